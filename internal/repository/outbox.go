package repository

import (
	"context"
	"fmt"

	"github.com/ecodeli/ecodeli/internal/model"
)

// AppendEvent записывает событие в outbox в рамках текущей транзакции.
func (t *pgTx) AppendEvent(ctx context.Context, e model.Event) error {
	err := t.q.QueryRow(ctx,
		`INSERT INTO outbox_events (event_type, aggregate_id, payload) VALUES ($1, $2, $3) RETURNING id`,
		string(e.Type), e.AggregateID, []byte(e.Payload),
	).Scan(&e.ID)
	if err != nil {
		return mapError(err, "insert outbox event")
	}
	return nil
}

// PendingEvents возвращает ещё не доставленные события в порядке записи.
func (r *PostgresRepository) PendingEvents(ctx context.Context, limit int) ([]model.Event, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, event_type, aggregate_id, payload, created_at
		 FROM outbox_events
		 WHERE delivered_at IS NULL
		 ORDER BY id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select outbox events: %w", err)
	}
	defer rows.Close()

	var res []model.Event
	for rows.Next() {
		var (
			e       model.Event
			typ     string
			payload []byte
		)
		if err := rows.Scan(&e.ID, &typ, &e.AggregateID, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		e.Type = model.EventType(typ)
		e.Payload = payload
		res = append(res, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// MarkEventDelivered отмечает событие доставленным.
func (r *PostgresRepository) MarkEventDelivered(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE outbox_events SET delivered_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("mark event delivered: %w", err)
	}
	return nil
}
