package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecodeli/ecodeli/internal/model"
)

// reconciler держит статус счёта в соответствии со статусом связанного платежа.
// Собственных бизнес-правил у него нет: только отображение model.InvoiceStatusFor.
type reconciler struct {
	now func() time.Time
	cfg Config
}

func (r *reconciler) onPaymentCompleted(ctx context.Context, tx Tx, pay *model.Payment) error {
	return r.mirror(ctx, tx, pay)
}

func (r *reconciler) onPaymentFailedOrPending(ctx context.Context, tx Tx, pay *model.Payment) error {
	return r.mirror(ctx, tx, pay)
}

func (r *reconciler) onPaymentRefunded(ctx context.Context, tx Tx, pay *model.Payment) error {
	return r.mirror(ctx, tx, pay)
}

func (r *reconciler) mirror(ctx context.Context, tx Tx, pay *model.Payment) error {
	inv, err := tx.InvoiceForPayment(ctx, pay.ID, pay.Payable)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return r.link(ctx, tx, inv, pay)
}

func (r *reconciler) link(ctx context.Context, tx Tx, inv *model.Invoice, pay *model.Payment) error {
	from := inv.Status
	to := model.InvoiceStatusFor(pay.Status)
	linked := inv.PaymentID != nil && *inv.PaymentID == pay.ID
	if linked && from == to {
		return nil
	}

	id := pay.ID
	inv.PaymentID = &id
	inv.Status = to
	inv.UpdatedAt = r.now()
	if err := tx.UpdateInvoice(ctx, inv); err != nil {
		return err
	}
	if from == to {
		return nil
	}
	return r.statusChanged(ctx, tx, inv, from)
}

func (r *reconciler) statusChanged(ctx context.Context, tx Tx, inv *model.Invoice, from model.InvoiceStatus) error {
	return emit(ctx, tx, model.EventInvoiceStatusChanged, inv.ID, model.InvoiceStatusChangedPayload{
		InvoiceID: inv.ID,
		Number:    inv.Number,
		OwnerID:   inv.OwnerID,
		From:      from,
		To:        inv.Status,
		PaymentID: inv.PaymentID,
	})
}

// issue выставляет счёт владельцу объявления за завершённое исполнение.
func (r *reconciler) issue(ctx context.Context, tx Tx, p model.Payable, l *model.Listing, actor model.Actor) (*model.Invoice, error) {
	if actor.ID != p.Performer() && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only the fulfiller or an admin can bill %s", model.ErrAuthorization, p.Ref())
	}
	if p.CurrentStatus() != p.TerminalStatus() {
		return nil, fmt.Errorf("%w: %s is %s, want %s", model.ErrPrecondition, p.Ref(), p.CurrentStatus(), p.TerminalStatus())
	}

	existing, err := tx.InvoiceForPayable(ctx, p.Ref())
	if err == nil {
		return nil, fmt.Errorf("%w: invoice %s already issued for %s", model.ErrConflict, existing.Number, p.Ref())
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	pay, err := tx.ActivePaymentForPayable(ctx, p.Ref())
	switch {
	case errors.Is(err, model.ErrNotFound):
		pay = nil
	case err != nil:
		return nil, err
	case pay.Status == model.PaymentStatusRefunded:
		return nil, fmt.Errorf("%w: payment %d for %s was refunded", model.ErrPrecondition, pay.ID, p.Ref())
	}

	now := r.now()
	seq, err := tx.NextInvoiceSequence(ctx, now)
	if err != nil {
		return nil, err
	}

	net, tax, gross := Totals(p.ChargeAmount(), r.cfg.TaxRate)
	inv := &model.Invoice{
		OwnerID:     l.OwnerID,
		Payable:     p.Ref(),
		Number:      InvoiceNumber(now, seq),
		NetAmount:   net,
		TaxAmount:   tax,
		GrossAmount: gross,
		IssuedAt:    now,
		DueAt:       now.AddDate(0, 0, r.cfg.InvoiceDueDays),
		Status:      model.InvoiceStatusPending,
		UpdatedAt:   now,
	}
	if err := tx.CreateInvoice(ctx, inv); err != nil {
		return nil, err
	}
	if err := r.statusChanged(ctx, tx, inv, ""); err != nil {
		return nil, err
	}
	if pay != nil {
		if err := r.link(ctx, tx, inv, pay); err != nil {
			return nil, err
		}
	}
	return inv, nil
}

// Totals считает суммы счёта: нетто, налог (округлённый до центов) и брутто.
func Totals(net, taxRate decimal.Decimal) (decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	net = net.Round(2)
	tax := net.Mul(taxRate).Round(2)
	return net, tax, net.Add(tax)
}

// InvoiceNumber формирует номер счёта вида INV-20260501-000042.
func InvoiceNumber(day time.Time, seq int64) string {
	return fmt.Sprintf("INV-%s-%06d", day.Format("20060102"), seq)
}
