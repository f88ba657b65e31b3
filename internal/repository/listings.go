package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/ecodeli/ecodeli/internal/model"
	"github.com/ecodeli/ecodeli/internal/service"
)

const listingColumns = `id, owner_id, kind, title, description, price, origin_address, destination_address,
	window_start, window_end, weight_kg, length_cm, width_cm, height_cm, fragile, urgent,
	status, assigned_fulfiller, created_at, updated_at`

func scanListing(row rowScanner) (*model.Listing, error) {
	var (
		l      model.Listing
		kind   string
		status string
		price  int64
	)
	err := row.Scan(
		&l.ID, &l.OwnerID, &kind, &l.Title, &l.Description, &price,
		&l.OriginAddress, &l.DestinationAddress, &l.WindowStart, &l.WindowEnd,
		&l.WeightKg, &l.LengthCm, &l.WidthCm, &l.HeightCm, &l.Fragile, &l.Urgent,
		&status, &l.AssignedFulfiller, &l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	l.Kind = model.ListingKind(kind)
	l.Status = model.ListingStatus(status)
	l.Price = fromCents(price)
	return &l, nil
}

// CreateListing сохраняет новое объявление и заполняет его идентификатор.
func (t *pgTx) CreateListing(ctx context.Context, l *model.Listing) error {
	price, err := toCents(l.Price)
	if err != nil {
		return err
	}
	err = t.q.QueryRow(ctx,
		`INSERT INTO listings (owner_id, kind, title, description, price, origin_address, destination_address,
			window_start, window_end, weight_kg, length_cm, width_cm, height_cm, fragile, urgent,
			status, assigned_fulfiller, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		 RETURNING id`,
		l.OwnerID, string(l.Kind), l.Title, l.Description, price, l.OriginAddress, l.DestinationAddress,
		l.WindowStart, l.WindowEnd, l.WeightKg, l.LengthCm, l.WidthCm, l.HeightCm, l.Fragile, l.Urgent,
		string(l.Status), l.AssignedFulfiller, l.CreatedAt, l.UpdatedAt,
	).Scan(&l.ID)
	if err != nil {
		return mapError(err, "insert listing")
	}
	return nil
}

// GetListing возвращает объявление; при lock строка блокируется до конца транзакции.
func (t *pgTx) GetListing(ctx context.Context, id int64, lock bool) (*model.Listing, error) {
	row := t.q.QueryRow(ctx,
		forUpdate(`SELECT `+listingColumns+` FROM listings WHERE id = $1`, lock),
		id,
	)
	l, err := scanListing(row)
	if err != nil {
		return nil, mapError(err, fmt.Sprintf("listing %d", id))
	}
	return l, nil
}

// UpdateListing сохраняет изменяемые поля объявления.
func (t *pgTx) UpdateListing(ctx context.Context, l *model.Listing) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE listings SET status = $2, assigned_fulfiller = $3, updated_at = $4 WHERE id = $1`,
		l.ID, string(l.Status), l.AssignedFulfiller, l.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "update listing")
	}
	return expectOne(tag, fmt.Sprintf("listing %d", l.ID))
}

func listingQuery(f service.ListingFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Kind != "" {
		args = append(args, string(f.Kind))
		conds = append(conds, fmt.Sprintf("kind = $%d", len(args)))
	}
	if f.Owner != 0 {
		args = append(args, f.Owner)
		conds = append(conds, fmt.Sprintf("owner_id = $%d", len(args)))
	}

	query := `SELECT ` + listingColumns + ` FROM listings`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return query, args
}

// ListListings возвращает объявления по фильтру, новые первыми.
func (r *PostgresRepository) ListListings(ctx context.Context, f service.ListingFilter) ([]model.Listing, error) {
	query, args := listingQuery(f)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select listings: %w", err)
	}
	defer rows.Close()

	var res []model.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		res = append(res, *l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
