package repository

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ecodeli/ecodeli/internal/model"
)

const fulfillmentColumns = `id, kind, listing_id, fulfiller_id, status, agreed_price, tracking_code,
	notes, rating_x10, review, started_at, completed_at, updated_at`

func scanFulfillment(row rowScanner) (*model.Fulfillment, error) {
	var (
		f      model.Fulfillment
		kind   string
		status string
		price  int64
		rating *int64
	)
	err := row.Scan(
		&f.ID, &kind, &f.ListingID, &f.FulfillerID, &status, &price, &f.TrackingCode,
		&f.Notes, &rating, &f.Review, &f.StartedAt, &f.CompletedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	f.Kind = model.PayableKind(kind)
	f.Status = model.FulfillmentStatus(status)
	f.AgreedPrice = fromCents(price)
	if rating != nil {
		v := decimal.New(*rating, -1)
		f.Rating = &v
	}
	return &f, nil
}

// Оценка хранится в десятых долях балла.
func ratingX10(r *decimal.Decimal) *int64 {
	if r == nil {
		return nil
	}
	v := r.Shift(1).Round(0).IntPart()
	return &v
}

// CreateFulfillment сохраняет исполнение. Второе неотменённое исполнение по объявлению
// отклоняется частичным уникальным индексом и превращается в ErrConflict.
func (t *pgTx) CreateFulfillment(ctx context.Context, f *model.Fulfillment) error {
	price, err := toCents(f.AgreedPrice)
	if err != nil {
		return err
	}
	err = t.q.QueryRow(ctx,
		`INSERT INTO fulfillments (kind, listing_id, fulfiller_id, status, agreed_price, tracking_code,
			notes, rating_x10, review, started_at, completed_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		string(f.Kind), f.ListingID, f.FulfillerID, string(f.Status), price, f.TrackingCode,
		f.Notes, ratingX10(f.Rating), f.Review, f.StartedAt, f.CompletedAt, f.UpdatedAt,
	).Scan(&f.ID)
	if err != nil {
		return mapError(err, "insert fulfillment")
	}
	return nil
}

// GetFulfillment возвращает исполнение; при lock строка блокируется.
func (t *pgTx) GetFulfillment(ctx context.Context, id int64, lock bool) (*model.Fulfillment, error) {
	row := t.q.QueryRow(ctx,
		forUpdate(`SELECT `+fulfillmentColumns+` FROM fulfillments WHERE id = $1`, lock),
		id,
	)
	f, err := scanFulfillment(row)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("fulfillment %d", id))
	}
	return f, nil
}

// GetFulfillmentByTrackingCode находит исполнение по коду отслеживания.
func (t *pgTx) GetFulfillmentByTrackingCode(ctx context.Context, code string) (*model.Fulfillment, error) {
	row := t.q.QueryRow(ctx,
		`SELECT `+fulfillmentColumns+` FROM fulfillments WHERE tracking_code = $1`,
		code,
	)
	f, err := scanFulfillment(row)
	if err != nil {
		return nil, mapError(err, "tracking code "+code)
	}
	return f, nil
}

// ActiveFulfillmentForListing возвращает неотменённое исполнение объявления.
func (t *pgTx) ActiveFulfillmentForListing(ctx context.Context, listingID int64) (*model.Fulfillment, error) {
	row := t.q.QueryRow(ctx,
		`SELECT `+fulfillmentColumns+` FROM fulfillments WHERE listing_id = $1 AND status <> $2`,
		listingID, string(model.StatusCanceled),
	)
	f, err := scanFulfillment(row)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("active fulfillment for listing %d", listingID))
	}
	return f, nil
}

func (t *pgTx) UpdateFulfillment(ctx context.Context, f *model.Fulfillment) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE fulfillments
		 SET status = $2, notes = $3, rating_x10 = $4, review = $5, completed_at = $6, updated_at = $7
		 WHERE id = $1`,
		f.ID, string(f.Status), f.Notes, ratingX10(f.Rating), f.Review, f.CompletedAt, f.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "update fulfillment")
	}
	return expectOne(tag, fmt.Sprintf("fulfillment %d", f.ID))
}

// ListFulfillmentsByFulfiller возвращает исполнения курьера или престатора, новые первыми.
func (r *PostgresRepository) ListFulfillmentsByFulfiller(ctx context.Context, fulfillerID int64) ([]model.Fulfillment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+fulfillmentColumns+`
		 FROM fulfillments
		 WHERE fulfiller_id = $1
		 ORDER BY started_at DESC`,
		fulfillerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select fulfillments: %w", err)
	}
	defer rows.Close()

	var res []model.Fulfillment
	for rows.Next() {
		f, err := scanFulfillment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fulfillment: %w", err)
		}
		res = append(res, *f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
