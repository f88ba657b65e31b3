package repository

import (
	"context"
	"fmt"

	"github.com/ecodeli/ecodeli/internal/model"
)

const paymentColumns = `id, payer_id, payable_kind, payable_id, amount, status, method,
	external_ref, transaction_date, notes, created_at`

func scanPayment(row rowScanner) (*model.Payment, error) {
	var (
		p      model.Payment
		kind   string
		status string
		amount int64
	)
	err := row.Scan(
		&p.ID, &p.PayerID, &kind, &p.Payable.ID, &amount, &status, &p.Method,
		&p.ExternalRef, &p.TransactionDate, &p.Notes, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Payable.Kind = model.PayableKind(kind)
	p.Status = model.PaymentStatus(status)
	p.Amount = fromCents(amount)
	return &p, nil
}

// CreatePayment сохраняет платёж. Второй неотклонённый платёж по объекту оплаты
// отклоняется частичным уникальным индексом.
func (t *pgTx) CreatePayment(ctx context.Context, p *model.Payment) error {
	amount, err := toCents(p.Amount)
	if err != nil {
		return err
	}
	err = t.q.QueryRow(ctx,
		`INSERT INTO payments (payer_id, payable_kind, payable_id, amount, status, method,
			external_ref, transaction_date, notes, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		p.PayerID, string(p.Payable.Kind), p.Payable.ID, amount, string(p.Status), p.Method,
		p.ExternalRef, p.TransactionDate, p.Notes, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return mapError(err, "insert payment")
	}
	return nil
}

func (t *pgTx) GetPayment(ctx context.Context, id int64, lock bool) (*model.Payment, error) {
	row := t.q.QueryRow(ctx,
		forUpdate(`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, lock),
		id,
	)
	p, err := scanPayment(row)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("payment %d", id))
	}
	return p, nil
}

// ActivePaymentForPayable возвращает платёж объекта оплаты в статусе, отличном от failed.
func (t *pgTx) ActivePaymentForPayable(ctx context.Context, ref model.PayableRef) (*model.Payment, error) {
	row := t.q.QueryRow(ctx,
		`SELECT `+paymentColumns+`
		 FROM payments
		 WHERE payable_kind = $1 AND payable_id = $2 AND status <> $3
		 FOR UPDATE`,
		string(ref.Kind), ref.ID, string(model.PaymentStatusFailed),
	)
	p, err := scanPayment(row)
	if err != nil {
		return nil, mapError(err, "active payment for "+ref.String())
	}
	return p, nil
}

func (t *pgTx) UpdatePayment(ctx context.Context, p *model.Payment) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE payments SET status = $2, method = $3, transaction_date = $4, notes = $5 WHERE id = $1`,
		p.ID, string(p.Status), p.Method, p.TransactionDate, p.Notes,
	)
	if err != nil {
		return mapError(err, "update payment")
	}
	return expectOne(tag, fmt.Sprintf("payment %d", p.ID))
}

// ListPaymentsByPayer возвращает платежи плательщика, новые первыми.
func (r *PostgresRepository) ListPaymentsByPayer(ctx context.Context, payerID int64) ([]model.Payment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+paymentColumns+`
		 FROM payments
		 WHERE payer_id = $1
		 ORDER BY created_at DESC`,
		payerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select payments: %w", err)
	}
	defer rows.Close()

	var res []model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		res = append(res, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
