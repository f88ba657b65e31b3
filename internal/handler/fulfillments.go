package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ecodeli/ecodeli/internal/model"
)

// ListFulfillments возвращает исполнения текущего курьера или престатора.
func (h *Handler) ListFulfillments(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	items, err := h.service.ListFulfillments(r.Context(), a.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if len(items) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]fulfillmentResponse, 0, len(items))
	for i := range items {
		resp = append(resp, newFulfillmentResponse(&items[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// TrackFulfillment отдаёт статус исполнения по коду отслеживания без авторизации.
func (h *Handler) TrackFulfillment(w http.ResponseWriter, r *http.Request) {
	f, err := h.service.TrackFulfillment(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newTrackingResponse(f))
}

func ref(w http.ResponseWriter, r *http.Request, kind model.PayableKind) (model.PayableRef, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return model.PayableRef{}, false
	}
	return model.PayableRef{Kind: kind, ID: id}, true
}

// GetFulfillment возвращает доставку или услугу по идентификатору.
func (h *Handler) GetFulfillment(kind model.PayableKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := actor(w, r)
		if !ok {
			return
		}
		p, ok := ref(w, r, kind)
		if !ok {
			return
		}

		f, err := h.service.GetFulfillment(r.Context(), a, p)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newFulfillmentResponse(f))
	}
}

type advanceRequest struct {
	Status model.FulfillmentStatus `json:"status"`
}

// AdvanceFulfillment переводит исполнение в следующий статус.
func (h *Handler) AdvanceFulfillment(kind model.PayableKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := actor(w, r)
		if !ok {
			return
		}
		p, ok := ref(w, r, kind)
		if !ok {
			return
		}

		var req advanceRequest
		if !decodeBody(w, r, &req, false) {
			return
		}

		f, err := h.service.AdvanceFulfillment(r.Context(), a, p, req.Status)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		h.logger.Info("fulfillment advanced", zap.Stringer("ref", p), zap.String("status", string(f.Status)))
		writeJSON(w, http.StatusOK, newFulfillmentResponse(f))
	}
}

// CancelFulfillment отменяет исполнение и возвращает объявление в active.
func (h *Handler) CancelFulfillment(kind model.PayableKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := actor(w, r)
		if !ok {
			return
		}
		p, ok := ref(w, r, kind)
		if !ok {
			return
		}

		f, err := h.service.CancelFulfillment(r.Context(), a, p)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newFulfillmentResponse(f))
	}
}

type reviewRequest struct {
	Rating decimal.Decimal `json:"rating"`
	Review string          `json:"review"`
}

// RateFulfillment сохраняет оценку владельца объявления.
func (h *Handler) RateFulfillment(kind model.PayableKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := actor(w, r)
		if !ok {
			return
		}
		p, ok := ref(w, r, kind)
		if !ok {
			return
		}

		var req reviewRequest
		if !decodeBody(w, r, &req, false) {
			return
		}

		f, err := h.service.RateFulfillment(r.Context(), a, p, req.Rating, req.Review)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newFulfillmentResponse(f))
	}
}

// RequestPayment создаёт ожидающий платёж за исполнение.
func (h *Handler) RequestPayment(kind model.PayableKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := actor(w, r)
		if !ok {
			return
		}
		p, ok := ref(w, r, kind)
		if !ok {
			return
		}

		pay, err := h.service.RequestPayment(r.Context(), a, p)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		h.logger.Info("payment requested", zap.Stringer("ref", p), zap.Int64("payment_id", pay.ID))
		writeJSON(w, http.StatusCreated, newPaymentResponse(pay))
	}
}

// IssueInvoice выставляет счёт за исполнение.
func (h *Handler) IssueInvoice(kind model.PayableKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := actor(w, r)
		if !ok {
			return
		}
		p, ok := ref(w, r, kind)
		if !ok {
			return
		}

		inv, err := h.service.IssueInvoice(r.Context(), a, p)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		h.logger.Info("invoice issued", zap.Stringer("ref", p), zap.String("number", inv.Number))
		writeJSON(w, http.StatusCreated, newInvoiceResponse(inv))
	}
}
