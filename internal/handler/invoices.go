package handler

import (
	"net/http"

	"go.uber.org/zap"
)

// ListInvoices возвращает счета текущего участника.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	invoices, err := h.service.ListInvoices(r.Context(), a.ID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if len(invoices) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]invoiceResponse, 0, len(invoices))
	for i := range invoices {
		resp = append(resp, newInvoiceResponse(&invoices[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetInvoice возвращает счёт его владельцу.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	inv, err := h.service.GetInvoice(r.Context(), a, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newInvoiceResponse(inv))
}

type payInvoiceRequest struct {
	Method string `json:"method"`
}

// PayInvoice оплачивает счёт напрямую.
func (h *Handler) PayInvoice(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req payInvoiceRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	pay, inv, err := h.service.PayInvoiceDirectly(r.Context(), a, id, req.Method)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("invoice paid", zap.String("number", inv.Number), zap.Int64("payment_id", pay.ID))
	writeJSON(w, http.StatusOK, invoicePaymentResponse{
		Payment: newPaymentResponse(pay),
		Invoice: newInvoiceResponse(inv),
	})
}

type documentRequest struct {
	Reference string `json:"reference"`
}

// AttachInvoiceDocument сохраняет ссылку на документ счёта.
func (h *Handler) AttachInvoiceDocument(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req documentRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	inv, err := h.service.AttachInvoiceDocument(r.Context(), a, id, req.Reference)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newInvoiceResponse(inv))
}
