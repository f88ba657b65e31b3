package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ecodeli/ecodeli/internal/model"
	"github.com/ecodeli/ecodeli/internal/validation"
)

// Claim содержит результат успешного отклика на объявление.
type Claim struct {
	Listing     *model.Listing
	Fulfillment *model.Fulfillment
}

// PublishListing публикует новое объявление в статусе active.
func (s *Service) PublishListing(ctx context.Context, owner model.Actor, d model.ListingDraft) (*model.Listing, error) {
	var l *model.Listing
	err := s.inTx(ctx, func(tx Tx) error {
		var err error
		l, err = s.listings.publish(ctx, tx, owner, d)
		return err
	})
	return l, err
}

// ClaimListing закрепляет объявление за курьером или престатором и создаёт исполнение.
// quote задаёт необязательную цену престатора для объявлений-услуг.
func (s *Service) ClaimListing(ctx context.Context, actor model.Actor, listingID int64, quote *decimal.Decimal) (*Claim, error) {
	var res Claim
	err := s.inTx(ctx, func(tx Tx) error {
		l, err := tx.GetListing(ctx, listingID, true)
		if err != nil {
			return err
		}
		if want := model.FulfillerRole(l.Kind); actor.Role != want {
			return fmt.Errorf("%w: %s listings are claimed by role %s", model.ErrAuthorization, l.Kind, want)
		}
		if err := s.listings.claim(ctx, tx, l, actor.ID); err != nil {
			return err
		}
		f, err := s.assignments.create(ctx, tx, l, actor.ID, quote)
		if err != nil {
			return err
		}
		res = Claim{Listing: l, Fulfillment: f}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CancelListing отменяет объявление, если по нему нет исполнения в работе.
func (s *Service) CancelListing(ctx context.Context, actor model.Actor, listingID int64) (*model.Listing, error) {
	var l *model.Listing
	err := s.inTx(ctx, func(tx Tx) error {
		var err error
		l, err = tx.GetListing(ctx, listingID, true)
		if err != nil {
			return err
		}
		return s.listings.cancel(ctx, tx, l, actor)
	})
	return l, err
}

// AdvanceFulfillment переводит исполнение в непосредственно следующий статус.
func (s *Service) AdvanceFulfillment(ctx context.Context, actor model.Actor, ref model.PayableRef, target model.FulfillmentStatus) (*model.Fulfillment, error) {
	var f *model.Fulfillment
	err := s.inTx(ctx, func(tx Tx) error {
		var err error
		f, _, _, err = loadPayable(ctx, tx, ref, true)
		if err != nil {
			return err
		}
		return s.assignments.advance(ctx, tx, f, target, actor)
	})
	return f, err
}

// CancelFulfillment отменяет исполнение и освобождает объявление для нового отклика.
func (s *Service) CancelFulfillment(ctx context.Context, actor model.Actor, ref model.PayableRef) (*model.Fulfillment, error) {
	var f *model.Fulfillment
	err := s.inTx(ctx, func(tx Tx) error {
		var err error
		f, _, _, err = loadPayable(ctx, tx, ref, true)
		if err != nil {
			return err
		}
		return s.assignments.cancel(ctx, tx, f, actor)
	})
	return f, err
}

// RateFulfillment сохраняет оценку и отзыв владельца объявления.
func (s *Service) RateFulfillment(ctx context.Context, actor model.Actor, ref model.PayableRef, rating decimal.Decimal, review string) (*model.Fulfillment, error) {
	var f *model.Fulfillment
	err := s.inTx(ctx, func(tx Tx) error {
		var (
			l   *model.Listing
			err error
		)
		f, l, _, err = loadPayable(ctx, tx, ref, true)
		if err != nil {
			return err
		}
		return s.assignments.rate(ctx, tx, f, l, actor, rating, review)
	})
	return f, err
}

// RequestPayment создаёт ожидающий платёж за завершённое исполнение.
func (s *Service) RequestPayment(ctx context.Context, actor model.Actor, ref model.PayableRef) (*model.Payment, error) {
	var pay *model.Payment
	err := s.inTx(ctx, func(tx Tx) error {
		_, l, p, err := loadPayable(ctx, tx, ref, true)
		if err != nil {
			return err
		}
		pay, err = s.ledger.request(ctx, tx, p, l, actor)
		return err
	})
	return pay, err
}

// DecidePayment одобряет или отклоняет ожидающий платёж.
func (s *Service) DecidePayment(ctx context.Context, actor model.Actor, paymentID int64, outcome model.PaymentDecision, notes string) (*model.Payment, error) {
	var pay *model.Payment
	err := s.inTx(ctx, func(tx Tx) error {
		var err error
		pay, err = tx.GetPayment(ctx, paymentID, true)
		if err != nil {
			return err
		}
		return s.ledger.decide(ctx, tx, pay, outcome, notes, actor)
	})
	return pay, err
}

// RefundPayment возвращает проведённый платёж; связанный счёт отменяется.
func (s *Service) RefundPayment(ctx context.Context, actor model.Actor, paymentID int64) (*model.Payment, error) {
	var pay *model.Payment
	err := s.inTx(ctx, func(tx Tx) error {
		var err error
		pay, err = tx.GetPayment(ctx, paymentID, true)
		if err != nil {
			return err
		}
		return s.ledger.refund(ctx, tx, pay, actor)
	})
	return pay, err
}

// IssueInvoice выставляет счёт за завершённое исполнение.
func (s *Service) IssueInvoice(ctx context.Context, actor model.Actor, ref model.PayableRef) (*model.Invoice, error) {
	var inv *model.Invoice
	err := s.inTx(ctx, func(tx Tx) error {
		_, l, p, err := loadPayable(ctx, tx, ref, true)
		if err != nil {
			return err
		}
		inv, err = s.invoices.issue(ctx, tx, p, l, actor)
		return err
	})
	return inv, err
}

// PayInvoiceDirectly оплачивает счёт синхронно: платёж создаётся сразу в completed.
func (s *Service) PayInvoiceDirectly(ctx context.Context, actor model.Actor, invoiceID int64, method string) (*model.Payment, *model.Invoice, error) {
	var (
		pay *model.Payment
		inv *model.Invoice
	)
	err := s.inTx(ctx, func(tx Tx) error {
		var err error
		inv, err = tx.GetInvoice(ctx, invoiceID, true)
		if err != nil {
			return err
		}
		pay, err = s.ledger.payInvoiceDirectly(ctx, tx, inv, method, actor)
		if err != nil {
			return err
		}
		inv, err = tx.GetInvoice(ctx, invoiceID, false)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return pay, inv, nil
}

// AttachInvoiceDocument сохраняет ссылку на документ счёта во внешнем файловом хранилище.
func (s *Service) AttachInvoiceDocument(ctx context.Context, actor model.Actor, invoiceID int64, reference string) (*model.Invoice, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return nil, fmt.Errorf("%w: document reference is required", model.ErrValidation)
	}

	var inv *model.Invoice
	err := s.inTx(ctx, func(tx Tx) error {
		var err error
		inv, err = tx.GetInvoice(ctx, invoiceID, true)
		if err != nil {
			return err
		}
		if actor.ID != inv.OwnerID && !actor.IsAdmin() {
			return fmt.Errorf("%w: invoice %d belongs to another owner", model.ErrAuthorization, inv.ID)
		}
		inv.DocumentRef = &reference
		inv.UpdatedAt = s.now()
		return tx.UpdateInvoice(ctx, inv)
	})
	return inv, err
}

// GetListing возвращает объявление по идентификатору.
func (s *Service) GetListing(ctx context.Context, id int64) (*model.Listing, error) {
	var l *model.Listing
	err := s.inTx(ctx, func(tx Tx) error {
		var err error
		l, err = tx.GetListing(ctx, id, false)
		return err
	})
	return l, err
}

// ListListings возвращает объявления по фильтру.
func (s *Service) ListListings(ctx context.Context, f ListingFilter) ([]model.Listing, error) {
	res, err := s.store.ListListings(ctx, f)
	return res, classify(err)
}

// GetFulfillment возвращает исполнение владельцу объявления, исполнителю или администратору.
// Публичное представление без цены и участников отдаёт TrackFulfillment.
func (s *Service) GetFulfillment(ctx context.Context, actor model.Actor, ref model.PayableRef) (*model.Fulfillment, error) {
	var f *model.Fulfillment
	err := s.inTx(ctx, func(tx Tx) error {
		var (
			l   *model.Listing
			err error
		)
		f, l, _, err = loadPayable(ctx, tx, ref, false)
		if err != nil {
			return err
		}
		if actor.ID == f.FulfillerID || actor.ID == l.OwnerID || actor.IsAdmin() {
			return nil
		}
		return fmt.Errorf("%w: %s", model.ErrAuthorization, ref)
	})
	return f, err
}

// ListFulfillments возвращает исполнения курьера или престатора.
func (s *Service) ListFulfillments(ctx context.Context, fulfillerID int64) ([]model.Fulfillment, error) {
	res, err := s.store.ListFulfillmentsByFulfiller(ctx, fulfillerID)
	return res, classify(err)
}

// TrackFulfillment находит исполнение по коду отслеживания.
func (s *Service) TrackFulfillment(ctx context.Context, code string) (*model.Fulfillment, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !validation.IsValidTrackingCode(code) {
		return nil, fmt.Errorf("%w: malformed tracking code", model.ErrValidation)
	}

	var f *model.Fulfillment
	err := s.inTx(ctx, func(tx Tx) error {
		var err error
		f, err = tx.GetFulfillmentByTrackingCode(ctx, code)
		return err
	})
	return f, err
}

// GetPayment возвращает платёж плательщику, исполнителю или администратору.
func (s *Service) GetPayment(ctx context.Context, actor model.Actor, id int64) (*model.Payment, error) {
	var pay *model.Payment
	err := s.inTx(ctx, func(tx Tx) error {
		var err error
		pay, err = tx.GetPayment(ctx, id, false)
		if err != nil {
			return err
		}
		if actor.ID == pay.PayerID || actor.IsAdmin() {
			return nil
		}
		f, err := tx.GetFulfillment(ctx, pay.Payable.ID, false)
		if err != nil {
			return err
		}
		if f.FulfillerID != actor.ID {
			return fmt.Errorf("%w: payment %d", model.ErrAuthorization, id)
		}
		return nil
	})
	return pay, err
}

// ListPayments возвращает платежи плательщика.
func (s *Service) ListPayments(ctx context.Context, payerID int64) ([]model.Payment, error) {
	res, err := s.store.ListPaymentsByPayer(ctx, payerID)
	return res, classify(err)
}

// GetInvoice возвращает счёт его владельцу или администратору.
func (s *Service) GetInvoice(ctx context.Context, actor model.Actor, id int64) (*model.Invoice, error) {
	var inv *model.Invoice
	err := s.inTx(ctx, func(tx Tx) error {
		var err error
		inv, err = tx.GetInvoice(ctx, id, false)
		if err != nil {
			return err
		}
		if actor.ID != inv.OwnerID && !actor.IsAdmin() {
			return fmt.Errorf("%w: invoice %d", model.ErrAuthorization, id)
		}
		return nil
	})
	return inv, err
}

// ListInvoices возвращает счета владельца.
func (s *Service) ListInvoices(ctx context.Context, ownerID int64) ([]model.Invoice, error) {
	res, err := s.store.ListInvoicesByOwner(ctx, ownerID)
	return res, classify(err)
}
