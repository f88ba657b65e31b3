// Package service реализует ядро жизненного цикла заказов EcoDeli: реестр объявлений,
// назначение исполнителей, платёжный журнал и сверку счетов.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecodeli/ecodeli/internal/model"
)

// ListingFilter задаёт условия выборки объявлений.
type ListingFilter struct {
	Status model.ListingStatus
	Kind   model.ListingKind
	Owner  int64
	Limit  int
}

// Tx — единица работы хранилища. Все изменения внутри одной Tx применяются атомарно.
// Методы Get*/Active*/Invoice* возвращают ошибку, оборачивающую model.ErrNotFound, если строки нет.
type Tx interface {
	CreateListing(ctx context.Context, l *model.Listing) error
	GetListing(ctx context.Context, id int64, lock bool) (*model.Listing, error)
	UpdateListing(ctx context.Context, l *model.Listing) error

	CreateFulfillment(ctx context.Context, f *model.Fulfillment) error
	GetFulfillment(ctx context.Context, id int64, lock bool) (*model.Fulfillment, error)
	GetFulfillmentByTrackingCode(ctx context.Context, code string) (*model.Fulfillment, error)
	ActiveFulfillmentForListing(ctx context.Context, listingID int64) (*model.Fulfillment, error)
	UpdateFulfillment(ctx context.Context, f *model.Fulfillment) error

	CreatePayment(ctx context.Context, p *model.Payment) error
	GetPayment(ctx context.Context, id int64, lock bool) (*model.Payment, error)
	ActivePaymentForPayable(ctx context.Context, ref model.PayableRef) (*model.Payment, error)
	UpdatePayment(ctx context.Context, p *model.Payment) error

	CreateInvoice(ctx context.Context, inv *model.Invoice) error
	GetInvoice(ctx context.Context, id int64, lock bool) (*model.Invoice, error)
	InvoiceForPayable(ctx context.Context, ref model.PayableRef) (*model.Invoice, error)
	InvoiceForPayment(ctx context.Context, paymentID int64, ref model.PayableRef) (*model.Invoice, error)
	UpdateInvoice(ctx context.Context, inv *model.Invoice) error
	NextInvoiceSequence(ctx context.Context, day time.Time) (int64, error)

	AppendEvent(ctx context.Context, e model.Event) error
}

// Store описывает контракт хранилища, используемый сервисом.
type Store interface {
	Close() error
	// InTx выполняет fn в одной транзакции. Ошибка fn откатывает все изменения.
	InTx(ctx context.Context, fn func(tx Tx) error) error
	ListListings(ctx context.Context, f ListingFilter) ([]model.Listing, error)
	ListFulfillmentsByFulfiller(ctx context.Context, fulfillerID int64) ([]model.Fulfillment, error)
	ListPaymentsByPayer(ctx context.Context, payerID int64) ([]model.Payment, error)
	ListInvoicesByOwner(ctx context.Context, ownerID int64) ([]model.Invoice, error)
}

// Config содержит параметры выставления счетов.
type Config struct {
	TaxRate        decimal.Decimal
	InvoiceDueDays int
}

// Service — оркестратор: единственная точка входа, последовательно вызывающая
// компоненты ядра внутри одной транзакции на операцию.
type Service struct {
	store Store
	now   func() time.Time

	listings    *registry
	assignments *assignment
	ledger      *ledger
	invoices    *reconciler
}

// NewService создаёт сервис поверх хранилища.
func NewService(store Store, cfg Config) *Service {
	if cfg.InvoiceDueDays <= 0 {
		cfg.InvoiceDueDays = 30
	}

	s := &Service{store: store}
	s.now = func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }
	clock := func() time.Time { return s.now() }

	s.listings = &registry{now: clock}
	s.invoices = &reconciler{now: clock, cfg: cfg}
	s.assignments = &assignment{now: clock, listings: s.listings, trackingCode: newTrackingCode}
	s.ledger = &ledger{now: clock, invoices: s.invoices, externalRef: newExternalRef}
	return s
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// inTx выполняет операцию атомарно. Ошибки, не относящиеся к бизнес-видам, становятся ErrInternal.
func (s *Service) inTx(ctx context.Context, fn func(tx Tx) error) error {
	err := s.store.InTx(ctx, fn)
	return classify(err)
}

func classify(err error) error {
	if err == nil || model.IsBusiness(err) || errors.Is(err, model.ErrInternal) {
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrInternal, err)
}

func emit(ctx context.Context, tx Tx, t model.EventType, aggregateID int64, payload any) error {
	e, err := model.NewEvent(t, aggregateID, payload)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", t, err)
	}
	return tx.AppendEvent(ctx, e)
}

// loadPayable загружает исполнение по ссылке вместе с его объявлением.
func loadPayable(ctx context.Context, tx Tx, ref model.PayableRef, lock bool) (*model.Fulfillment, *model.Listing, model.Payable, error) {
	f, err := tx.GetFulfillment(ctx, ref.ID, lock)
	if err != nil {
		return nil, nil, nil, err
	}
	if f.Kind != ref.Kind {
		return nil, nil, nil, fmt.Errorf("%w: %s", model.ErrNotFound, ref)
	}
	l, err := tx.GetListing(ctx, f.ListingID, false)
	if err != nil {
		return nil, nil, nil, err
	}
	p, err := model.NewPayable(f, l)
	if err != nil {
		return nil, nil, nil, err
	}
	return f, l, p, nil
}
