package model

import (
	"encoding/json"
	"time"
)

// EventType задаёт тип доменного события, публикуемого через outbox.
type EventType string

const (
	EventFulfillmentCreated   EventType = "FulfillmentCreated"
	EventFulfillmentCompleted EventType = "FulfillmentCompleted"
	EventListingCanceled      EventType = "ListingCanceled"
	EventPaymentCompleted     EventType = "PaymentCompleted"
	EventInvoiceStatusChanged EventType = "InvoiceStatusChanged"
)

// Event хранит запись outbox, которую ретранслятор доставляет внешним подписчикам.
type Event struct {
	ID          int64           `json:"id"`
	Type        EventType       `json:"type"`
	AggregateID int64           `json:"aggregate_id"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
}

// FulfillmentCreatedPayload публикуется при успешном отклике на объявление.
type FulfillmentCreatedPayload struct {
	FulfillmentID int64       `json:"fulfillment_id"`
	Kind          PayableKind `json:"kind"`
	ListingID     int64       `json:"listing_id"`
	FulfillerID   int64       `json:"fulfiller_id"`
	TrackingCode  string      `json:"tracking_code"`
}

// FulfillmentCompletedPayload публикуется при достижении успешного финального статуса.
type FulfillmentCompletedPayload struct {
	FulfillmentID int64       `json:"fulfillment_id"`
	Kind          PayableKind `json:"kind"`
	ListingID     int64       `json:"listing_id"`
	CompletedAt   time.Time   `json:"completed_at"`
}

// ListingCanceledPayload публикуется при отмене объявления владельцем.
type ListingCanceledPayload struct {
	ListingID int64 `json:"listing_id"`
	OwnerID   int64 `json:"owner_id"`
}

// PaymentCompletedPayload публикуется при переходе платежа в completed.
type PaymentCompletedPayload struct {
	PaymentID   int64       `json:"payment_id"`
	PayerID     int64       `json:"payer_id"`
	PayableKind PayableKind `json:"payable_kind"`
	PayableID   int64       `json:"payable_id"`
	Amount      string      `json:"amount"`
}

// InvoiceStatusChangedPayload публикуется при каждом изменении статуса счёта.
type InvoiceStatusChangedPayload struct {
	InvoiceID int64         `json:"invoice_id"`
	Number    string        `json:"number"`
	OwnerID   int64         `json:"owner_id"`
	From      InvoiceStatus `json:"from"`
	To        InvoiceStatus `json:"to"`
	PaymentID *int64        `json:"payment_id,omitempty"`
}

// NewEvent сериализует полезную нагрузку в запись outbox.
func NewEvent(t EventType, aggregateID int64, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: t, AggregateID: aggregateID, Payload: raw}, nil
}
