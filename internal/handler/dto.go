package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecodeli/ecodeli/internal/model"
)

type listingRequest struct {
	Kind               model.ListingKind `json:"kind"`
	Title              string            `json:"title"`
	Description        string            `json:"description"`
	Price              decimal.Decimal   `json:"price"`
	OriginAddress      string            `json:"origin_address"`
	DestinationAddress string            `json:"destination_address"`
	WindowStart        *time.Time        `json:"window_start,omitempty"`
	WindowEnd          *time.Time        `json:"window_end,omitempty"`
	WeightKg           float64           `json:"weight_kg"`
	LengthCm           float64           `json:"length_cm"`
	WidthCm            float64           `json:"width_cm"`
	HeightCm           float64           `json:"height_cm"`
	Fragile            bool              `json:"fragile"`
	Urgent             bool              `json:"urgent"`
}

func (req listingRequest) draft() model.ListingDraft {
	return model.ListingDraft{
		Kind:               req.Kind,
		Title:              req.Title,
		Description:        req.Description,
		Price:              req.Price,
		OriginAddress:      req.OriginAddress,
		DestinationAddress: req.DestinationAddress,
		WindowStart:        req.WindowStart,
		WindowEnd:          req.WindowEnd,
		WeightKg:           req.WeightKg,
		LengthCm:           req.LengthCm,
		WidthCm:            req.WidthCm,
		HeightCm:           req.HeightCm,
		Fragile:            req.Fragile,
		Urgent:             req.Urgent,
	}
}

type listingResponse struct {
	ID                 int64      `json:"id"`
	OwnerID            int64      `json:"owner_id"`
	Kind               string     `json:"kind"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	Price              string     `json:"price"`
	OriginAddress      string     `json:"origin_address,omitempty"`
	DestinationAddress string     `json:"destination_address,omitempty"`
	WindowStart        *time.Time `json:"window_start,omitempty"`
	WindowEnd          *time.Time `json:"window_end,omitempty"`
	WeightKg           float64    `json:"weight_kg,omitempty"`
	LengthCm           float64    `json:"length_cm,omitempty"`
	WidthCm            float64    `json:"width_cm,omitempty"`
	HeightCm           float64    `json:"height_cm,omitempty"`
	Fragile            bool       `json:"fragile"`
	Urgent             bool       `json:"urgent"`
	Status             string     `json:"status"`
	AssignedFulfiller  *int64     `json:"assigned_fulfiller,omitempty"`
	CreatedAt          string     `json:"created_at"`
}

func newListingResponse(l *model.Listing) listingResponse {
	return listingResponse{
		ID:                 l.ID,
		OwnerID:            l.OwnerID,
		Kind:               string(l.Kind),
		Title:              l.Title,
		Description:        l.Description,
		Price:              l.Price.StringFixed(2),
		OriginAddress:      l.OriginAddress,
		DestinationAddress: l.DestinationAddress,
		WindowStart:        l.WindowStart,
		WindowEnd:          l.WindowEnd,
		WeightKg:           l.WeightKg,
		LengthCm:           l.LengthCm,
		WidthCm:            l.WidthCm,
		HeightCm:           l.HeightCm,
		Fragile:            l.Fragile,
		Urgent:             l.Urgent,
		Status:             string(l.Status),
		AssignedFulfiller:  l.AssignedFulfiller,
		CreatedAt:          l.CreatedAt.Format(time.RFC3339),
	}
}

type fulfillmentResponse struct {
	ID           int64   `json:"id"`
	Kind         string  `json:"kind"`
	ListingID    int64   `json:"listing_id"`
	FulfillerID  int64   `json:"fulfiller_id"`
	Status       string  `json:"status"`
	AgreedPrice  string  `json:"agreed_price"`
	TrackingCode string  `json:"tracking_code"`
	Rating       *string `json:"rating,omitempty"`
	Review       string  `json:"review,omitempty"`
	StartedAt    string  `json:"started_at"`
	CompletedAt  *string `json:"completed_at,omitempty"`
}

func newFulfillmentResponse(f *model.Fulfillment) fulfillmentResponse {
	resp := fulfillmentResponse{
		ID:           f.ID,
		Kind:         string(f.Kind),
		ListingID:    f.ListingID,
		FulfillerID:  f.FulfillerID,
		Status:       string(f.Status),
		AgreedPrice:  f.AgreedPrice.StringFixed(2),
		TrackingCode: f.TrackingCode,
		Review:       f.Review,
		StartedAt:    f.StartedAt.Format(time.RFC3339),
	}
	if f.Rating != nil {
		v := f.Rating.StringFixed(1)
		resp.Rating = &v
	}
	if f.CompletedAt != nil {
		v := f.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &v
	}
	return resp
}

// trackingResponse содержит публичное представление исполнения без персональных данных.
type trackingResponse struct {
	TrackingCode string  `json:"tracking_code"`
	Kind         string  `json:"kind"`
	Status       string  `json:"status"`
	UpdatedAt    string  `json:"updated_at"`
	CompletedAt  *string `json:"completed_at,omitempty"`
}

func newTrackingResponse(f *model.Fulfillment) trackingResponse {
	resp := trackingResponse{
		TrackingCode: f.TrackingCode,
		Kind:         string(f.Kind),
		Status:       string(f.Status),
		UpdatedAt:    f.UpdatedAt.Format(time.RFC3339),
	}
	if f.CompletedAt != nil {
		v := f.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &v
	}
	return resp
}

type claimResponse struct {
	Listing     listingResponse     `json:"listing"`
	Fulfillment fulfillmentResponse `json:"fulfillment"`
}

type paymentResponse struct {
	ID              int64  `json:"id"`
	PayerID         int64  `json:"payer_id"`
	PayableKind     string `json:"payable_kind"`
	PayableID       int64  `json:"payable_id"`
	Amount          string `json:"amount"`
	Status          string `json:"status"`
	Method          string `json:"method,omitempty"`
	ExternalRef     string `json:"external_ref"`
	TransactionDate string `json:"transaction_date"`
	Notes           string `json:"notes,omitempty"`
}

func newPaymentResponse(p *model.Payment) paymentResponse {
	return paymentResponse{
		ID:              p.ID,
		PayerID:         p.PayerID,
		PayableKind:     string(p.Payable.Kind),
		PayableID:       p.Payable.ID,
		Amount:          p.Amount.StringFixed(2),
		Status:          string(p.Status),
		Method:          p.Method,
		ExternalRef:     p.ExternalRef,
		TransactionDate: p.TransactionDate.Format(time.RFC3339),
		Notes:           p.Notes,
	}
}

type invoiceResponse struct {
	ID          int64   `json:"id"`
	Number      string  `json:"number"`
	OwnerID     int64   `json:"owner_id"`
	PayableKind string  `json:"payable_kind"`
	PayableID   int64   `json:"payable_id"`
	PaymentID   *int64  `json:"payment_id,omitempty"`
	NetAmount   string  `json:"net_amount"`
	TaxAmount   string  `json:"tax_amount"`
	GrossAmount string  `json:"gross_amount"`
	IssuedAt    string  `json:"issued_at"`
	DueAt       string  `json:"due_at"`
	Status      string  `json:"status"`
	DocumentRef *string `json:"document_ref,omitempty"`
}

func newInvoiceResponse(inv *model.Invoice) invoiceResponse {
	return invoiceResponse{
		ID:          inv.ID,
		Number:      inv.Number,
		OwnerID:     inv.OwnerID,
		PayableKind: string(inv.Payable.Kind),
		PayableID:   inv.Payable.ID,
		PaymentID:   inv.PaymentID,
		NetAmount:   inv.NetAmount.StringFixed(2),
		TaxAmount:   inv.TaxAmount.StringFixed(2),
		GrossAmount: inv.GrossAmount.StringFixed(2),
		IssuedAt:    inv.IssuedAt.Format(time.RFC3339),
		DueAt:       inv.DueAt.Format(time.RFC3339),
		Status:      string(inv.Status),
		DocumentRef: inv.DocumentRef,
	}
}

type invoicePaymentResponse struct {
	Payment paymentResponse `json:"payment"`
	Invoice invoiceResponse `json:"invoice"`
}
