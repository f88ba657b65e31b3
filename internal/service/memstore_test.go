package service

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/ecodeli/ecodeli/internal/model"
)

// memStore — хранилище в памяти с сериализуемыми транзакциями для тестов сервиса.
// Ограничения уникальности повторяют частичные уникальные индексы схемы PostgreSQL.
type memStore struct {
	mu sync.Mutex

	seq          int64
	listings     map[int64]model.Listing
	fulfillments map[int64]model.Fulfillment
	payments     map[int64]model.Payment
	invoices     map[int64]model.Invoice
	invoiceSeq   map[string]int64
	events       []model.Event

	fail map[string]error
}

type memSnapshot struct {
	seq          int64
	listings     map[int64]model.Listing
	fulfillments map[int64]model.Fulfillment
	payments     map[int64]model.Payment
	invoices     map[int64]model.Invoice
	invoiceSeq   map[string]int64
	events       []model.Event
}

func newMemStore() *memStore {
	return &memStore{
		listings:     map[int64]model.Listing{},
		fulfillments: map[int64]model.Fulfillment{},
		payments:     map[int64]model.Payment{},
		invoices:     map[int64]model.Invoice{},
		invoiceSeq:   map[string]int64{},
		fail:         map[string]error{},
	}
}

func (m *memStore) snapshot() memSnapshot {
	return memSnapshot{
		seq:          m.seq,
		listings:     maps.Clone(m.listings),
		fulfillments: maps.Clone(m.fulfillments),
		payments:     maps.Clone(m.payments),
		invoices:     maps.Clone(m.invoices),
		invoiceSeq:   maps.Clone(m.invoiceSeq),
		events:       append([]model.Event(nil), m.events...),
	}
}

func (m *memStore) restore(s memSnapshot) {
	m.seq = s.seq
	m.listings = s.listings
	m.fulfillments = s.fulfillments
	m.payments = s.payments
	m.invoices = s.invoices
	m.invoiceSeq = s.invoiceSeq
	m.events = s.events
}

func (m *memStore) Close() error { return nil }

func (m *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snap := m.snapshot()
	if err := fn(&memTx{m: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memStore) ListListings(_ context.Context, f ListingFilter) ([]model.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []model.Listing
	for _, l := range m.listings {
		if f.Status != "" && l.Status != f.Status {
			continue
		}
		if f.Kind != "" && l.Kind != f.Kind {
			continue
		}
		if f.Owner != 0 && l.OwnerID != f.Owner {
			continue
		}
		res = append(res, l)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (m *memStore) ListFulfillmentsByFulfiller(_ context.Context, id int64) ([]model.Fulfillment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []model.Fulfillment
	for _, f := range m.fulfillments {
		if f.FulfillerID == id {
			res = append(res, f)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (m *memStore) ListPaymentsByPayer(_ context.Context, id int64) ([]model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []model.Payment
	for _, p := range m.payments {
		if p.PayerID == id {
			res = append(res, p)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (m *memStore) ListInvoicesByOwner(_ context.Context, id int64) ([]model.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var res []model.Invoice
	for _, inv := range m.invoices {
		if inv.OwnerID == id {
			res = append(res, inv)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

// Вспомогательные методы для проверок в тестах.

func (m *memStore) listing(id int64) model.Listing {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listings[id]
}

func (m *memStore) fulfillment(id int64) model.Fulfillment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fulfillments[id]
}

func (m *memStore) invoice(id int64) model.Invoice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.invoices[id]
}

func (m *memStore) eventTypes() []model.EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	res := make([]model.EventType, 0, len(m.events))
	for _, e := range m.events {
		res = append(res, e.Type)
	}
	return res
}

func (m *memStore) countFulfillments(listingID int64, pred func(model.Fulfillment) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, f := range m.fulfillments {
		if f.ListingID == listingID && pred(f) {
			n++
		}
	}
	return n
}

func (m *memStore) countPayments(ref model.PayableRef, pred func(model.Payment) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.payments {
		if p.Payable == ref && pred(p) {
			n++
		}
	}
	return n
}

func (m *memStore) injectFailure(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail[method] = err
}

// putFulfillment записывает исполнение в обход сервиса.
func (m *memStore) putFulfillment(f model.Fulfillment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fulfillments[f.ID] = f
}

func (m *memStore) putListing(l model.Listing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listings[l.ID] = l
}

type memTx struct {
	m *memStore
}

func (t *memTx) next() int64 {
	t.m.seq++
	return t.m.seq
}

func (t *memTx) failure(method string) error {
	return t.m.fail[method]
}

func notFound(what string, id any) error {
	return fmt.Errorf("%w: %s %v", model.ErrNotFound, what, id)
}

func (t *memTx) CreateListing(_ context.Context, l *model.Listing) error {
	if err := t.failure("CreateListing"); err != nil {
		return err
	}
	l.ID = t.next()
	t.m.listings[l.ID] = *l
	return nil
}

func (t *memTx) GetListing(_ context.Context, id int64, _ bool) (*model.Listing, error) {
	l, ok := t.m.listings[id]
	if !ok {
		return nil, notFound("listing", id)
	}
	return &l, nil
}

func (t *memTx) UpdateListing(_ context.Context, l *model.Listing) error {
	if err := t.failure("UpdateListing"); err != nil {
		return err
	}
	if _, ok := t.m.listings[l.ID]; !ok {
		return notFound("listing", l.ID)
	}
	t.m.listings[l.ID] = *l
	return nil
}

func (t *memTx) CreateFulfillment(_ context.Context, f *model.Fulfillment) error {
	if err := t.failure("CreateFulfillment"); err != nil {
		return err
	}
	for _, existing := range t.m.fulfillments {
		if existing.ListingID == f.ListingID && existing.Status != model.StatusCanceled {
			return fmt.Errorf("%w: unique fulfillments_listing_active", model.ErrConflict)
		}
	}
	f.ID = t.next()
	t.m.fulfillments[f.ID] = *f
	return nil
}

func (t *memTx) GetFulfillment(_ context.Context, id int64, _ bool) (*model.Fulfillment, error) {
	f, ok := t.m.fulfillments[id]
	if !ok {
		return nil, notFound("fulfillment", id)
	}
	return &f, nil
}

func (t *memTx) GetFulfillmentByTrackingCode(_ context.Context, code string) (*model.Fulfillment, error) {
	for _, f := range t.m.fulfillments {
		if f.TrackingCode == code {
			return &f, nil
		}
	}
	return nil, notFound("tracking code", code)
}

func (t *memTx) ActiveFulfillmentForListing(_ context.Context, listingID int64) (*model.Fulfillment, error) {
	for _, f := range t.m.fulfillments {
		if f.ListingID == listingID && f.Status != model.StatusCanceled {
			return &f, nil
		}
	}
	return nil, notFound("active fulfillment for listing", listingID)
}

func (t *memTx) UpdateFulfillment(_ context.Context, f *model.Fulfillment) error {
	if err := t.failure("UpdateFulfillment"); err != nil {
		return err
	}
	t.m.fulfillments[f.ID] = *f
	return nil
}

func (t *memTx) CreatePayment(_ context.Context, p *model.Payment) error {
	if err := t.failure("CreatePayment"); err != nil {
		return err
	}
	for _, existing := range t.m.payments {
		if existing.Payable == p.Payable && existing.Status != model.PaymentStatusFailed {
			return fmt.Errorf("%w: unique payments_payable_active", model.ErrConflict)
		}
	}
	p.ID = t.next()
	t.m.payments[p.ID] = *p
	return nil
}

func (t *memTx) GetPayment(_ context.Context, id int64, _ bool) (*model.Payment, error) {
	p, ok := t.m.payments[id]
	if !ok {
		return nil, notFound("payment", id)
	}
	return &p, nil
}

func (t *memTx) ActivePaymentForPayable(_ context.Context, ref model.PayableRef) (*model.Payment, error) {
	for _, p := range t.m.payments {
		if p.Payable == ref && p.Status != model.PaymentStatusFailed {
			return &p, nil
		}
	}
	return nil, notFound("active payment for", ref)
}

func (t *memTx) UpdatePayment(_ context.Context, p *model.Payment) error {
	if err := t.failure("UpdatePayment"); err != nil {
		return err
	}
	t.m.payments[p.ID] = *p
	return nil
}

func (t *memTx) CreateInvoice(_ context.Context, inv *model.Invoice) error {
	if err := t.failure("CreateInvoice"); err != nil {
		return err
	}
	for _, existing := range t.m.invoices {
		if existing.Payable == inv.Payable && existing.Status != model.InvoiceStatusCanceled {
			return fmt.Errorf("%w: unique invoices_payable_active", model.ErrConflict)
		}
	}
	inv.ID = t.next()
	t.m.invoices[inv.ID] = *inv
	return nil
}

func (t *memTx) GetInvoice(_ context.Context, id int64, _ bool) (*model.Invoice, error) {
	inv, ok := t.m.invoices[id]
	if !ok {
		return nil, notFound("invoice", id)
	}
	return &inv, nil
}

func (t *memTx) InvoiceForPayable(_ context.Context, ref model.PayableRef) (*model.Invoice, error) {
	for _, inv := range t.m.invoices {
		if inv.Payable == ref && inv.Status != model.InvoiceStatusCanceled {
			return &inv, nil
		}
	}
	return nil, notFound("invoice for", ref)
}

func (t *memTx) InvoiceForPayment(ctx context.Context, paymentID int64, ref model.PayableRef) (*model.Invoice, error) {
	for _, inv := range t.m.invoices {
		if inv.PaymentID != nil && *inv.PaymentID == paymentID {
			return &inv, nil
		}
	}
	return t.InvoiceForPayable(ctx, ref)
}

func (t *memTx) UpdateInvoice(_ context.Context, inv *model.Invoice) error {
	if err := t.failure("UpdateInvoice"); err != nil {
		return err
	}
	t.m.invoices[inv.ID] = *inv
	return nil
}

func (t *memTx) NextInvoiceSequence(_ context.Context, day time.Time) (int64, error) {
	key := day.Format("20060102")
	t.m.invoiceSeq[key]++
	return t.m.invoiceSeq[key], nil
}

func (t *memTx) AppendEvent(_ context.Context, e model.Event) error {
	if err := t.failure("AppendEvent"); err != nil {
		return err
	}
	e.ID = t.next()
	t.m.events = append(t.m.events, e)
	return nil
}
