package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ecodeli/ecodeli/internal/model"
)

// ListPayments возвращает платежи, в которых текущий участник выступает плательщиком.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	payments, err := h.service.ListPayments(r.Context(), a.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if len(payments) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]paymentResponse, 0, len(payments))
	for i := range payments {
		resp = append(resp, newPaymentResponse(&payments[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetPayment возвращает платёж плательщику или исполнителю.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	pay, err := h.service.GetPayment(r.Context(), a, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPaymentResponse(pay))
}

type decisionRequest struct {
	Outcome model.PaymentDecision `json:"outcome"`
	Notes   string                `json:"notes"`
}

// DecidePayment одобряет или отклоняет ожидающий платёж.
func (h *Handler) DecidePayment(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req decisionRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	pay, err := h.service.DecidePayment(r.Context(), a, id, req.Outcome, req.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("payment decided", zap.Int64("payment_id", id), zap.String("status", string(pay.Status)))
	writeJSON(w, http.StatusOK, newPaymentResponse(pay))
}

// RefundPayment возвращает проведённый платёж.
func (h *Handler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	pay, err := h.service.RefundPayment(r.Context(), a, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("payment refunded", zap.Int64("payment_id", id), zap.Int64("admin_id", a.ID))
	writeJSON(w, http.StatusOK, newPaymentResponse(pay))
}
