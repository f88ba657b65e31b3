package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/ecodeli/ecodeli/internal/middleware"
	"github.com/ecodeli/ecodeli/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса EcoDeli.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/track/{code}", h.TrackFulfillment)

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Route("/listings", func(r chi.Router) {
				r.Post("/", h.PublishListing)
				r.Get("/", h.ListListings)
				r.Get("/{id}", h.GetListing)
				r.Post("/{id}/claim", h.ClaimListing)
				r.Post("/{id}/cancel", h.CancelListing)
			})

			r.Get("/fulfillments", h.ListFulfillments)
			r.Route("/deliveries/{id}", h.fulfillmentRoutes(model.PayableDelivery))
			r.Route("/services/{id}", h.fulfillmentRoutes(model.PayableService))

			r.Route("/payments", func(r chi.Router) {
				r.Get("/", h.ListPayments)
				r.Get("/{id}", h.GetPayment)
				r.Post("/{id}/decision", h.DecidePayment)
				r.Post("/{id}/refund", h.RefundPayment)
			})

			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", h.ListInvoices)
				r.Get("/{id}", h.GetInvoice)
				r.Post("/{id}/pay", h.PayInvoice)
				r.Put("/{id}/document", h.AttachInvoiceDocument)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}

func (h *Handler) fulfillmentRoutes(kind model.PayableKind) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/", h.GetFulfillment(kind))
		r.Post("/advance", h.AdvanceFulfillment(kind))
		r.Post("/cancel", h.CancelFulfillment(kind))
		r.Post("/review", h.RateFulfillment(kind))
		r.Post("/payment", h.RequestPayment(kind))
		r.Post("/invoice", h.IssueInvoice(kind))
	}
}
