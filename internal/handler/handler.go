// Package handler содержит HTTP-обработчики API сервиса EcoDeli.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ecodeli/ecodeli/internal/middleware"
	"github.com/ecodeli/ecodeli/internal/model"
	"github.com/ecodeli/ecodeli/internal/service"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	PublishListing(ctx context.Context, owner model.Actor, d model.ListingDraft) (*model.Listing, error)
	ListListings(ctx context.Context, f service.ListingFilter) ([]model.Listing, error)
	GetListing(ctx context.Context, id int64) (*model.Listing, error)
	ClaimListing(ctx context.Context, actor model.Actor, listingID int64, quote *decimal.Decimal) (*service.Claim, error)
	CancelListing(ctx context.Context, actor model.Actor, listingID int64) (*model.Listing, error)

	ListFulfillments(ctx context.Context, fulfillerID int64) ([]model.Fulfillment, error)
	TrackFulfillment(ctx context.Context, code string) (*model.Fulfillment, error)
	GetFulfillment(ctx context.Context, actor model.Actor, ref model.PayableRef) (*model.Fulfillment, error)
	AdvanceFulfillment(ctx context.Context, actor model.Actor, ref model.PayableRef, target model.FulfillmentStatus) (*model.Fulfillment, error)
	CancelFulfillment(ctx context.Context, actor model.Actor, ref model.PayableRef) (*model.Fulfillment, error)
	RateFulfillment(ctx context.Context, actor model.Actor, ref model.PayableRef, rating decimal.Decimal, review string) (*model.Fulfillment, error)

	RequestPayment(ctx context.Context, actor model.Actor, ref model.PayableRef) (*model.Payment, error)
	ListPayments(ctx context.Context, payerID int64) ([]model.Payment, error)
	GetPayment(ctx context.Context, actor model.Actor, id int64) (*model.Payment, error)
	DecidePayment(ctx context.Context, actor model.Actor, paymentID int64, outcome model.PaymentDecision, notes string) (*model.Payment, error)
	RefundPayment(ctx context.Context, actor model.Actor, paymentID int64) (*model.Payment, error)

	IssueInvoice(ctx context.Context, actor model.Actor, ref model.PayableRef) (*model.Invoice, error)
	ListInvoices(ctx context.Context, ownerID int64) ([]model.Invoice, error)
	GetInvoice(ctx context.Context, actor model.Actor, id int64) (*model.Invoice, error)
	PayInvoiceDirectly(ctx context.Context, actor model.Actor, invoiceID int64, method string) (*model.Payment, *model.Invoice, error)
	AttachInvoiceDocument(ctx context.Context, actor model.Actor, invoiceID int64, reference string) (*model.Invoice, error)
}

// Handler реализует HTTP-обработчики API сервиса EcoDeli.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor сопоставляет виду ошибки ядра HTTP-статус.
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrAuthorization):
		return http.StatusForbidden
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConflict), errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, model.ErrPrecondition):
		return http.StatusPreconditionFailed
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err), zap.String("method", r.Method), zap.String("path", r.URL.Path))
		writeJSON(w, status, errorResponse{Error: http.StatusText(status)})
		return
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

// actor возвращает участника из контекста или отвечает 401.
func actor(w http.ResponseWriter, r *http.Request) (model.Actor, bool) {
	a, ok := middleware.GetActorFromContext(r.Context())
	if !ok {
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	}
	return a, ok
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "invalid id")
		return 0, false
	}
	return id, true
}

// decodeBody разбирает JSON-тело запроса. Пустое тело допустимо, если optional.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		badRequest(w, "cannot read body")
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		if optional {
			return true
		}
		badRequest(w, "empty body")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		badRequest(w, "invalid json")
		return false
	}
	return true
}
