package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecodeli/ecodeli/internal/model"
	"github.com/ecodeli/ecodeli/internal/validation"
)

// assignment гарантирует не более одного неотменённого исполнения на объявление
// и ведёт исполнения по машине состояний.
type assignment struct {
	now          func() time.Time
	listings     *registry
	trackingCode func() string
}

// create создаёт исполнение сразу в статусе accepted (отклик в один шаг).
func (a *assignment) create(ctx context.Context, tx Tx, l *model.Listing, fulfillerID int64, quote *decimal.Decimal) (*model.Fulfillment, error) {
	existing, err := tx.ActiveFulfillmentForListing(ctx, l.ID)
	if err == nil {
		return nil, fmt.Errorf("%w: listing %d already claimed by fulfillment %d", model.ErrConflict, l.ID, existing.ID)
	}
	if !errors.Is(err, model.ErrNotFound) {
		return nil, err
	}

	kind := model.KindForListing(l.Kind)
	price := l.Price
	if quote != nil {
		if kind != model.PayableService {
			return nil, fmt.Errorf("%w: price quotes apply to service requests only", model.ErrValidation)
		}
		if err := validation.QuotedPrice(*quote); err != nil {
			return nil, err
		}
		price = *quote
	}

	now := a.now()
	f := &model.Fulfillment{
		Kind:         kind,
		ListingID:    l.ID,
		FulfillerID:  fulfillerID,
		Status:       model.StatusAccepted,
		AgreedPrice:  price,
		TrackingCode: a.trackingCode(),
		StartedAt:    now,
		UpdatedAt:    now,
	}
	if err := tx.CreateFulfillment(ctx, f); err != nil {
		return nil, err
	}

	err = emit(ctx, tx, model.EventFulfillmentCreated, f.ID, model.FulfillmentCreatedPayload{
		FulfillmentID: f.ID,
		Kind:          f.Kind,
		ListingID:     f.ListingID,
		FulfillerID:   f.FulfillerID,
		TrackingCode:  f.TrackingCode,
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (a *assignment) advance(ctx context.Context, tx Tx, f *model.Fulfillment, target model.FulfillmentStatus, actor model.Actor) error {
	if actor.ID != f.FulfillerID {
		return fmt.Errorf("%w: fulfillment %d belongs to another fulfiller", model.ErrAuthorization, f.ID)
	}
	if !model.CanAdvance(f.Kind, f.Status, target) {
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, f.Status, target)
	}

	now := a.now()
	f.Status = target
	f.UpdatedAt = now
	terminal := target == model.TerminalSuccess(f.Kind)
	if terminal {
		f.CompletedAt = &now
	}
	if err := tx.UpdateFulfillment(ctx, f); err != nil {
		return err
	}
	if !terminal {
		return nil
	}

	if err := a.listings.complete(ctx, tx, f.ListingID); err != nil {
		return err
	}
	return emit(ctx, tx, model.EventFulfillmentCompleted, f.ID, model.FulfillmentCompletedPayload{
		FulfillmentID: f.ID,
		Kind:          f.Kind,
		ListingID:     f.ListingID,
		CompletedAt:   now,
	})
}

func (a *assignment) cancel(ctx context.Context, tx Tx, f *model.Fulfillment, actor model.Actor) error {
	if actor.ID != f.FulfillerID && !actor.IsAdmin() {
		return fmt.Errorf("%w: fulfillment %d belongs to another fulfiller", model.ErrAuthorization, f.ID)
	}
	if !model.CanCancel(f.Status) {
		return fmt.Errorf("%w: cannot cancel from %s", model.ErrInvalidTransition, f.Status)
	}

	f.Status = model.StatusCanceled
	f.UpdatedAt = a.now()
	if err := tx.UpdateFulfillment(ctx, f); err != nil {
		return err
	}
	return a.listings.release(ctx, tx, f.ListingID, f.FulfillerID)
}

func (a *assignment) rate(ctx context.Context, tx Tx, f *model.Fulfillment, l *model.Listing, actor model.Actor, rating decimal.Decimal, review string) error {
	if actor.ID != l.OwnerID {
		return fmt.Errorf("%w: only the listing owner can rate", model.ErrAuthorization)
	}
	if f.Status != model.TerminalSuccess(f.Kind) {
		return fmt.Errorf("%w: fulfillment %d is %s", model.ErrPrecondition, f.ID, f.Status)
	}
	if f.Rating != nil {
		return fmt.Errorf("%w: fulfillment %d already rated", model.ErrConflict, f.ID)
	}
	if err := validation.Rating(rating); err != nil {
		return err
	}

	f.Rating = &rating
	f.Review = strings.TrimSpace(review)
	f.UpdatedAt = a.now()
	return tx.UpdateFulfillment(ctx, f)
}
