package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ecodeli/ecodeli/internal/model"
	"github.com/ecodeli/ecodeli/internal/validation"
)

// registry владеет жизненным циклом объявления:
// active -> accepted -> completed, active -> canceled.
type registry struct {
	now func() time.Time
}

func (r *registry) publish(ctx context.Context, tx Tx, owner model.Actor, d model.ListingDraft) (*model.Listing, error) {
	if owner.Role != model.RoleClient && owner.Role != model.RoleMerchant {
		return nil, fmt.Errorf("%w: role %s cannot publish listings", model.ErrAuthorization, owner.Role)
	}
	if err := validation.ListingDraft(d); err != nil {
		return nil, err
	}

	now := r.now()
	l := &model.Listing{
		OwnerID:            owner.ID,
		Kind:               d.Kind,
		Title:              d.Title,
		Description:        d.Description,
		Price:              d.Price.Round(2),
		OriginAddress:      d.OriginAddress,
		DestinationAddress: d.DestinationAddress,
		WindowStart:        d.WindowStart,
		WindowEnd:          d.WindowEnd,
		WeightKg:           d.WeightKg,
		LengthCm:           d.LengthCm,
		WidthCm:            d.WidthCm,
		HeightCm:           d.HeightCm,
		Fragile:            d.Fragile,
		Urgent:             d.Urgent,
		Status:             model.ListingStatusActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := tx.CreateListing(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// claim закрепляет объявление за исполнителем. Вызывающий обязан удерживать блокировку строки.
func (r *registry) claim(ctx context.Context, tx Tx, l *model.Listing, fulfillerID int64) error {
	if l.Status != model.ListingStatusActive || l.AssignedFulfiller != nil {
		return fmt.Errorf("%w: listing %d already claimed", model.ErrConflict, l.ID)
	}
	l.Status = model.ListingStatusAccepted
	l.AssignedFulfiller = &fulfillerID
	l.UpdatedAt = r.now()
	return tx.UpdateListing(ctx, l)
}

func (r *registry) cancel(ctx context.Context, tx Tx, l *model.Listing, by model.Actor) error {
	if l.OwnerID != by.ID && !by.IsAdmin() {
		return fmt.Errorf("%w: listing %d belongs to another owner", model.ErrAuthorization, l.ID)
	}

	f, err := tx.ActiveFulfillmentForListing(ctx, l.ID)
	switch {
	case err == nil:
		if model.IsInFlight(f.Kind, f.Status) {
			return fmt.Errorf("%w: listing %d has a fulfillment in status %s", model.ErrPrecondition, l.ID, f.Status)
		}
	case !errors.Is(err, model.ErrNotFound):
		return err
	}

	if l.Status != model.ListingStatusActive {
		return fmt.Errorf("%w: listing %d is %s", model.ErrInvalidTransition, l.ID, l.Status)
	}

	l.Status = model.ListingStatusCanceled
	l.UpdatedAt = r.now()
	if err := tx.UpdateListing(ctx, l); err != nil {
		return err
	}
	return emit(ctx, tx, model.EventListingCanceled, l.ID, model.ListingCanceledPayload{
		ListingID: l.ID,
		OwnerID:   l.OwnerID,
	})
}

// complete вызывается только назначением исполнителя при успешном завершении.
func (r *registry) complete(ctx context.Context, tx Tx, listingID int64) error {
	l, err := tx.GetListing(ctx, listingID, true)
	if err != nil {
		return err
	}
	if l.Status != model.ListingStatusAccepted {
		return fmt.Errorf("%w: listing %d is %s, want accepted", model.ErrInvalidTransition, l.ID, l.Status)
	}
	l.Status = model.ListingStatusCompleted
	l.UpdatedAt = r.now()
	return tx.UpdateListing(ctx, l)
}

// release возвращает объявление в active после отмены исполнения.
func (r *registry) release(ctx context.Context, tx Tx, listingID, fulfillerID int64) error {
	l, err := tx.GetListing(ctx, listingID, true)
	if err != nil {
		return err
	}
	if l.Status != model.ListingStatusAccepted || l.AssignedFulfiller == nil || *l.AssignedFulfiller != fulfillerID {
		return nil
	}
	l.Status = model.ListingStatusActive
	l.AssignedFulfiller = nil
	l.UpdatedAt = r.now()
	return tx.UpdateListing(ctx, l)
}
