package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ecodeli/ecodeli/internal/model"
)

// ThrottledError сообщает, что приёмник просит повторить доставку позже.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("sink throttled, retry after %s", e.RetryAfter)
}

// Sink принимает события outbox.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, e model.Event) error
}

// Outbox отдаёт недоставленные события.
type Outbox interface {
	PendingEvents(ctx context.Context, limit int) ([]model.Event, error)
	MarkEventDelivered(ctx context.Context, id int64) error
}

// Dispatcher периодически забирает события из outbox и доставляет их во все приёмники.
// Доставка «хотя бы один раз»: событие отмечается доставленным только после успеха всех приёмников.
type Dispatcher struct {
	outbox   Outbox
	sinks    []Sink
	logger   *zap.Logger
	interval time.Duration
	batch    int
}

// NewDispatcher создаёт ретранслятор outbox.
func NewDispatcher(outbox Outbox, logger *zap.Logger, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		outbox:   outbox,
		sinks:    sinks,
		logger:   logger,
		interval: 1 * time.Second,
		batch:    100,
	}
}

// Run обрабатывает outbox до отмены контекста.
func (d *Dispatcher) Run(ctx context.Context) {
	if len(d.sinks) == 0 {
		d.logger.Info("no event sinks configured, outbox relay disabled")
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.processBatch(ctx)
		}
	}
}

func (d *Dispatcher) processBatch(ctx context.Context) {
	events, err := d.outbox.PendingEvents(ctx, d.batch)
	if err != nil {
		d.logger.Warn("failed to load outbox events", zap.Error(err))
		return
	}

	for _, e := range events {
		if err := d.deliver(ctx, e); err != nil {
			var throttled *ThrottledError
			if errors.As(err, &throttled) {
				d.wait(ctx, throttled.RetryAfter)
				return
			}
			// События доставляются по порядку: при ошибке пачка откладывается до следующего тика.
			d.logger.Warn("event delivery failed",
				zap.Int64("event_id", e.ID),
				zap.String("event_type", string(e.Type)),
				zap.Error(err),
			)
			return
		}

		if err := d.outbox.MarkEventDelivered(ctx, e.ID); err != nil {
			d.logger.Warn("failed to mark event delivered", zap.Int64("event_id", e.ID), zap.Error(err))
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, e model.Event) error {
	for _, s := range d.sinks {
		if err := s.Deliver(ctx, e); err != nil {
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
	}
	return nil
}

func (d *Dispatcher) wait(ctx context.Context, pause time.Duration) {
	if pause <= 0 {
		return
	}
	timer := time.NewTimer(pause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
