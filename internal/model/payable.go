package model

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// PayableKind различает два варианта исполнения: доставку и оказание услуги.
type PayableKind string

const (
	PayableDelivery PayableKind = "delivery"
	PayableService  PayableKind = "service_engagement"
)

// PayableRef ссылается на объект оплаты по типу и идентификатору.
type PayableRef struct {
	Kind PayableKind
	ID   int64
}

func (r PayableRef) String() string {
	return string(r.Kind) + ":" + strconv.FormatInt(r.ID, 10)
}

// KindForListing возвращает вариант исполнения для типа объявления.
func KindForListing(k ListingKind) PayableKind {
	if k == ListingKindService {
		return PayableService
	}
	return PayableDelivery
}

// FulfillerRole возвращает роль, которой разрешено откликаться на объявления данного типа.
func FulfillerRole(k ListingKind) Role {
	if k == ListingKindService {
		return RoleProvider
	}
	return RoleCourier
}

// Payable описывает исполнение, по которому может быть проведён платёж или выставлен счёт.
type Payable interface {
	Ref() PayableRef
	CurrentStatus() FulfillmentStatus
	TerminalStatus() FulfillmentStatus
	Performer() int64
	ListingID() int64
	ChargeAmount() decimal.Decimal
}

// Delivery описывает доставку курьером. Оплачивается по цене объявления.
type Delivery struct {
	F            *Fulfillment
	ListingPrice decimal.Decimal
}

func (d Delivery) Ref() PayableRef                   { return d.F.Ref() }
func (d Delivery) CurrentStatus() FulfillmentStatus  { return d.F.Status }
func (d Delivery) TerminalStatus() FulfillmentStatus { return StatusDelivered }
func (d Delivery) Performer() int64                  { return d.F.FulfillerID }
func (d Delivery) ListingID() int64                  { return d.F.ListingID }
func (d Delivery) ChargeAmount() decimal.Decimal     { return d.ListingPrice }

// ServiceEngagement описывает оказание услуги престатором. Оплачивается по согласованной цене.
type ServiceEngagement struct {
	F *Fulfillment
}

func (s ServiceEngagement) Ref() PayableRef                   { return s.F.Ref() }
func (s ServiceEngagement) CurrentStatus() FulfillmentStatus  { return s.F.Status }
func (s ServiceEngagement) TerminalStatus() FulfillmentStatus { return StatusCompleted }
func (s ServiceEngagement) Performer() int64                  { return s.F.FulfillerID }
func (s ServiceEngagement) ListingID() int64                  { return s.F.ListingID }
func (s ServiceEngagement) ChargeAmount() decimal.Decimal     { return s.F.AgreedPrice }

// NewPayable оборачивает исполнение в вариант, соответствующий его типу.
func NewPayable(f *Fulfillment, l *Listing) (Payable, error) {
	switch f.Kind {
	case PayableDelivery:
		return Delivery{F: f, ListingPrice: l.Price}, nil
	case PayableService:
		return ServiceEngagement{F: f}, nil
	default:
		return nil, fmt.Errorf("%w: unknown payable kind %q", ErrValidation, f.Kind)
	}
}
