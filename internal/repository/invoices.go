package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecodeli/ecodeli/internal/model"
)

const invoiceColumns = `id, owner_id, payable_kind, payable_id, payment_id, number,
	net_amount, tax_amount, gross_amount, issued_at, due_at, status, document_ref, updated_at`

func scanInvoice(row rowScanner) (*model.Invoice, error) {
	var (
		inv             model.Invoice
		kind            string
		status          string
		net, tax, gross int64
	)
	err := row.Scan(
		&inv.ID, &inv.OwnerID, &kind, &inv.Payable.ID, &inv.PaymentID, &inv.Number,
		&net, &tax, &gross, &inv.IssuedAt, &inv.DueAt, &status, &inv.DocumentRef, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.Payable.Kind = model.PayableKind(kind)
	inv.Status = model.InvoiceStatus(status)
	inv.NetAmount = fromCents(net)
	inv.TaxAmount = fromCents(tax)
	inv.GrossAmount = fromCents(gross)
	return &inv, nil
}

func (t *pgTx) CreateInvoice(ctx context.Context, inv *model.Invoice) error {
	var cents [3]int64
	for i, d := range []decimal.Decimal{inv.NetAmount, inv.TaxAmount, inv.GrossAmount} {
		c, err := toCents(d)
		if err != nil {
			return err
		}
		cents[i] = c
	}

	err := t.q.QueryRow(ctx,
		`INSERT INTO invoices (owner_id, payable_kind, payable_id, payment_id, number,
			net_amount, tax_amount, gross_amount, issued_at, due_at, status, document_ref, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 RETURNING id`,
		inv.OwnerID, string(inv.Payable.Kind), inv.Payable.ID, inv.PaymentID, inv.Number,
		cents[0], cents[1], cents[2],
		inv.IssuedAt, inv.DueAt, string(inv.Status), inv.DocumentRef, inv.UpdatedAt,
	).Scan(&inv.ID)
	if err != nil {
		return mapError(err, "insert invoice")
	}
	return nil
}

func (t *pgTx) GetInvoice(ctx context.Context, id int64, lock bool) (*model.Invoice, error) {
	row := t.q.QueryRow(ctx,
		forUpdate(`SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, lock),
		id,
	)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("invoice %d", id))
	}
	return inv, nil
}

// InvoiceForPayable возвращает неотменённый счёт объекта оплаты.
func (t *pgTx) InvoiceForPayable(ctx context.Context, ref model.PayableRef) (*model.Invoice, error) {
	row := t.q.QueryRow(ctx,
		`SELECT `+invoiceColumns+`
		 FROM invoices
		 WHERE payable_kind = $1 AND payable_id = $2 AND status <> $3
		 FOR UPDATE`,
		string(ref.Kind), ref.ID, string(model.InvoiceStatusCanceled),
	)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, mapError(err, "invoice for "+ref.String())
	}
	return inv, nil
}

// InvoiceForPayment возвращает счёт, связанный с платежом, а если такого нет,
// неотменённый счёт того же объекта оплаты.
func (t *pgTx) InvoiceForPayment(ctx context.Context, paymentID int64, ref model.PayableRef) (*model.Invoice, error) {
	row := t.q.QueryRow(ctx,
		`SELECT `+invoiceColumns+`
		 FROM invoices
		 WHERE payment_id = $1
		    OR (payable_kind = $2 AND payable_id = $3 AND status <> $4)
		 ORDER BY (payment_id = $1) DESC NULLS LAST, id DESC
		 LIMIT 1
		 FOR UPDATE`,
		paymentID, string(ref.Kind), ref.ID, string(model.InvoiceStatusCanceled),
	)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("invoice for payment %d", paymentID))
	}
	return inv, nil
}

func (t *pgTx) UpdateInvoice(ctx context.Context, inv *model.Invoice) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE invoices SET payment_id = $2, status = $3, document_ref = $4, updated_at = $5 WHERE id = $1`,
		inv.ID, inv.PaymentID, string(inv.Status), inv.DocumentRef, inv.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "update invoice")
	}
	return expectOne(tag, fmt.Sprintf("invoice %d", inv.ID))
}

// NextInvoiceSequence выдаёт следующий номер счёта за календарный день.
func (t *pgTx) NextInvoiceSequence(ctx context.Context, day time.Time) (int64, error) {
	d := day.UTC()
	var seq int64
	err := t.q.QueryRow(ctx,
		`INSERT INTO invoice_sequences (day, last_value) VALUES ($1, 1)
		 ON CONFLICT (day) DO UPDATE SET last_value = invoice_sequences.last_value + 1
		 RETURNING last_value`,
		time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC),
	).Scan(&seq)
	if err != nil {
		return 0, mapError(err, "next invoice sequence")
	}
	return seq, nil
}

// ListInvoicesByOwner возвращает счета владельца, новые первыми.
func (r *PostgresRepository) ListInvoicesByOwner(ctx context.Context, ownerID int64) ([]model.Invoice, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+invoiceColumns+`
		 FROM invoices
		 WHERE owner_id = $1
		 ORDER BY issued_at DESC`,
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select invoices: %w", err)
	}
	defer rows.Close()

	var res []model.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		res = append(res, *inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
