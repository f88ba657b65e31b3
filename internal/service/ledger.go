package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ecodeli/ecodeli/internal/model"
)

// ledger создаёт и переводит платежи. Не более одного неотклонённого платежа на объект оплаты.
type ledger struct {
	now         func() time.Time
	invoices    *reconciler
	externalRef func() string
}

func (lg *ledger) ensureNoActivePayment(ctx context.Context, tx Tx, ref model.PayableRef) error {
	existing, err := tx.ActivePaymentForPayable(ctx, ref)
	if err == nil {
		return fmt.Errorf("%w: payment %d already exists for %s", model.ErrConflict, existing.ID, ref)
	}
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	return err
}

func (lg *ledger) request(ctx context.Context, tx Tx, p model.Payable, l *model.Listing, actor model.Actor) (*model.Payment, error) {
	if actor.ID != p.Performer() {
		return nil, fmt.Errorf("%w: only the fulfiller can request payment", model.ErrAuthorization)
	}
	if p.CurrentStatus() != p.TerminalStatus() {
		return nil, fmt.Errorf("%w: %s is %s, want %s", model.ErrPrecondition, p.Ref(), p.CurrentStatus(), p.TerminalStatus())
	}
	if err := lg.ensureNoActivePayment(ctx, tx, p.Ref()); err != nil {
		return nil, err
	}

	now := lg.now()
	pay := &model.Payment{
		PayerID:         l.OwnerID,
		Payable:         p.Ref(),
		Amount:          p.ChargeAmount().Round(2),
		Status:          model.PaymentStatusPending,
		ExternalRef:     lg.externalRef(),
		TransactionDate: now,
		CreatedAt:       now,
	}
	if err := tx.CreatePayment(ctx, pay); err != nil {
		return nil, err
	}
	if err := lg.invoices.onPaymentFailedOrPending(ctx, tx, pay); err != nil {
		return nil, err
	}
	return pay, nil
}

func (lg *ledger) decide(ctx context.Context, tx Tx, pay *model.Payment, outcome model.PaymentDecision, notes string, actor model.Actor) error {
	if actor.ID != pay.PayerID && !actor.IsAdmin() {
		return fmt.Errorf("%w: payment %d can be decided by its payer or an admin", model.ErrAuthorization, pay.ID)
	}
	if outcome != model.DecisionApprove && outcome != model.DecisionReject {
		return fmt.Errorf("%w: unknown outcome %q", model.ErrValidation, outcome)
	}
	if pay.Status != model.PaymentStatusPending {
		return fmt.Errorf("%w: payment %d is %s", model.ErrInvalidTransition, pay.ID, pay.Status)
	}

	if n := strings.TrimSpace(notes); n != "" {
		pay.Notes = n
	}
	if outcome == model.DecisionReject {
		pay.Status = model.PaymentStatusFailed
		if err := tx.UpdatePayment(ctx, pay); err != nil {
			return err
		}
		return lg.invoices.onPaymentFailedOrPending(ctx, tx, pay)
	}

	pay.Status = model.PaymentStatusCompleted
	pay.TransactionDate = lg.now()
	if err := tx.UpdatePayment(ctx, pay); err != nil {
		return err
	}
	return lg.completed(ctx, tx, pay)
}

func (lg *ledger) refund(ctx context.Context, tx Tx, pay *model.Payment, actor model.Actor) error {
	if !actor.IsAdmin() {
		return fmt.Errorf("%w: refunds are issued by admins", model.ErrAuthorization)
	}
	if pay.Status != model.PaymentStatusCompleted {
		return fmt.Errorf("%w: payment %d is %s", model.ErrInvalidTransition, pay.ID, pay.Status)
	}
	pay.Status = model.PaymentStatusRefunded
	if err := tx.UpdatePayment(ctx, pay); err != nil {
		return err
	}
	return lg.invoices.onPaymentRefunded(ctx, tx, pay)
}

// payInvoiceDirectly проводит синхронную оплату счёта, минуя статус pending.
func (lg *ledger) payInvoiceDirectly(ctx context.Context, tx Tx, inv *model.Invoice, method string, actor model.Actor) (*model.Payment, error) {
	if actor.ID != inv.OwnerID {
		return nil, fmt.Errorf("%w: invoice %d belongs to another owner", model.ErrAuthorization, inv.ID)
	}
	method = strings.TrimSpace(method)
	if method == "" {
		return nil, fmt.Errorf("%w: payment method is required", model.ErrValidation)
	}
	if inv.Status != model.InvoiceStatusPending {
		return nil, fmt.Errorf("%w: invoice %d is %s", model.ErrInvalidTransition, inv.ID, inv.Status)
	}
	if err := lg.ensureNoActivePayment(ctx, tx, inv.Payable); err != nil {
		return nil, err
	}

	now := lg.now()
	pay := &model.Payment{
		PayerID:         actor.ID,
		Payable:         inv.Payable,
		Amount:          inv.GrossAmount,
		Status:          model.PaymentStatusCompleted,
		Method:          method,
		ExternalRef:     lg.externalRef(),
		TransactionDate: now,
		Notes:           "invoice " + inv.Number,
		CreatedAt:       now,
	}
	if err := tx.CreatePayment(ctx, pay); err != nil {
		return nil, err
	}
	if err := lg.completed(ctx, tx, pay); err != nil {
		return nil, err
	}
	return pay, nil
}

func (lg *ledger) completed(ctx context.Context, tx Tx, pay *model.Payment) error {
	err := emit(ctx, tx, model.EventPaymentCompleted, pay.ID, model.PaymentCompletedPayload{
		PaymentID:   pay.ID,
		PayerID:     pay.PayerID,
		PayableKind: pay.Payable.Kind,
		PayableID:   pay.Payable.ID,
		Amount:      pay.Amount.StringFixed(2),
	})
	if err != nil {
		return err
	}
	return lg.invoices.onPaymentCompleted(ctx, tx, pay)
}
