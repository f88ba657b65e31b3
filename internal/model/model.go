// Package model содержит доменные сущности сервиса EcoDeli.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role описывает роль участника маркетплейса.
type Role string

const (
	RoleClient   Role = "client"
	RoleMerchant Role = "merchant"
	RoleCourier  Role = "courier"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// Valid сообщает, известна ли роль.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleMerchant, RoleCourier, RoleProvider, RoleAdmin:
		return true
	}
	return false
}

// Actor идентифицирует вызывающего участника и его роль.
type Actor struct {
	ID   int64
	Role Role
}

// IsAdmin сообщает, является ли участник администратором.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// ListingKind описывает тип объявления.
type ListingKind string

const (
	ListingKindDelivery ListingKind = "delivery-request"
	ListingKindService  ListingKind = "service-request"
)

// ListingStatus описывает статус объявления.
type ListingStatus string

const (
	ListingStatusActive    ListingStatus = "active"
	ListingStatusAccepted  ListingStatus = "accepted"
	ListingStatusCompleted ListingStatus = "completed"
	ListingStatusCanceled  ListingStatus = "canceled"
)

// Listing описывает объявление клиента или коммерсанта о доставке или услуге.
type Listing struct {
	ID                 int64
	OwnerID            int64
	Kind               ListingKind
	Title              string
	Description        string
	Price              decimal.Decimal
	OriginAddress      string
	DestinationAddress string
	WindowStart        *time.Time
	WindowEnd          *time.Time
	WeightKg           float64
	LengthCm           float64
	WidthCm            float64
	HeightCm           float64
	Fragile            bool
	Urgent             bool
	Status             ListingStatus
	AssignedFulfiller  *int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ListingDraft содержит поля, передаваемые владельцем при публикации объявления.
type ListingDraft struct {
	Kind               ListingKind
	Title              string
	Description        string
	Price              decimal.Decimal
	OriginAddress      string
	DestinationAddress string
	WindowStart        *time.Time
	WindowEnd          *time.Time
	WeightKg           float64
	LengthCm           float64
	WidthCm            float64
	HeightCm           float64
	Fragile            bool
	Urgent             bool
}

// Fulfillment описывает заявку исполнителя (курьера или престатора) на объявление.
type Fulfillment struct {
	ID           int64
	Kind         PayableKind
	ListingID    int64
	FulfillerID  int64
	Status       FulfillmentStatus
	AgreedPrice  decimal.Decimal
	TrackingCode string
	Notes        string
	Rating       *decimal.Decimal
	Review       string
	StartedAt    time.Time
	CompletedAt  *time.Time
	UpdatedAt    time.Time
}

// Ref возвращает полиморфную ссылку на исполнение как на объект оплаты.
func (f *Fulfillment) Ref() PayableRef {
	return PayableRef{Kind: f.Kind, ID: f.ID}
}

// PaymentStatus описывает статус платежа.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// Payment описывает денежную операцию по одному исполнению.
type Payment struct {
	ID              int64
	PayerID         int64
	Payable         PayableRef
	Amount          decimal.Decimal
	Status          PaymentStatus
	Method          string
	ExternalRef     string
	TransactionDate time.Time
	Notes           string
	CreatedAt       time.Time
}

// InvoiceStatus описывает статус счёта.
type InvoiceStatus string

const (
	InvoiceStatusPending  InvoiceStatus = "pending"
	InvoiceStatusPaid     InvoiceStatus = "paid"
	InvoiceStatusCanceled InvoiceStatus = "canceled"
)

// Invoice описывает счёт, выставленный владельцу объявления за исполнение.
type Invoice struct {
	ID          int64
	OwnerID     int64
	Payable     PayableRef
	PaymentID   *int64
	Number      string
	NetAmount   decimal.Decimal
	TaxAmount   decimal.Decimal
	GrossAmount decimal.Decimal
	IssuedAt    time.Time
	DueAt       time.Time
	Status      InvoiceStatus
	DocumentRef *string
	UpdatedAt   time.Time
}

// PaymentDecision описывает решение по ожидающему платежу.
type PaymentDecision string

const (
	DecisionApprove PaymentDecision = "approve"
	DecisionReject  PaymentDecision = "reject"
)
