package handler

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ecodeli/ecodeli/internal/model"
	"github.com/ecodeli/ecodeli/internal/service"
)

// PublishListing публикует объявление текущего участника.
func (h *Handler) PublishListing(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req listingRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	l, err := h.service.PublishListing(r.Context(), a, req.draft())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("listing published", zap.Int64("listing_id", l.ID), zap.Int64("owner_id", a.ID))
	writeJSON(w, http.StatusCreated, newListingResponse(l))
}

// ListListings возвращает объявления с фильтрами status, kind, owner и limit.
func (h *Handler) ListListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := service.ListingFilter{
		Status: model.ListingStatus(q.Get("status")),
		Kind:   model.ListingKind(q.Get("kind")),
	}
	if v := q.Get("owner"); v != "" {
		owner, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			badRequest(w, "invalid owner")
			return
		}
		f.Owner = owner
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			badRequest(w, "invalid limit")
			return
		}
		f.Limit = limit
	}

	listings, err := h.service.ListListings(r.Context(), f)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if len(listings) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	resp := make([]listingResponse, 0, len(listings))
	for i := range listings {
		resp = append(resp, newListingResponse(&listings[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetListing возвращает объявление по идентификатору.
func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	l, err := h.service.GetListing(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListingResponse(l))
}

type claimRequest struct {
	Price *decimal.Decimal `json:"price,omitempty"`
}

// ClaimListing закрепляет объявление за текущим курьером или престатором.
func (h *Handler) ClaimListing(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req claimRequest
	if !decodeBody(w, r, &req, true) {
		return
	}

	claim, err := h.service.ClaimListing(r.Context(), a, id, req.Price)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info("listing claimed",
		zap.Int64("listing_id", id),
		zap.Int64("fulfillment_id", claim.Fulfillment.ID),
		zap.Int64("fulfiller_id", a.ID),
	)
	writeJSON(w, http.StatusCreated, claimResponse{
		Listing:     newListingResponse(claim.Listing),
		Fulfillment: newFulfillmentResponse(claim.Fulfillment),
	})
}

// CancelListing отменяет объявление текущего владельца.
func (h *Handler) CancelListing(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	l, err := h.service.CancelListing(r.Context(), a, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListingResponse(l))
}
