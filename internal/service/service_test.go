package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecodeli/ecodeli/internal/model"
	"github.com/ecodeli/ecodeli/internal/validation"
)

var (
	client   = model.Actor{ID: 1, Role: model.RoleClient}
	merchant = model.Actor{ID: 2, Role: model.RoleMerchant}
	courier1 = model.Actor{ID: 11, Role: model.RoleCourier}
	courier2 = model.Actor{ID: 12, Role: model.RoleCourier}
	provider = model.Actor{ID: 21, Role: model.RoleProvider}
	admin    = model.Actor{ID: 99, Role: model.RoleAdmin}

	testNow = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
)

func newTestService(t *testing.T) (*Service, *memStore) {
	t.Helper()

	store := newMemStore()
	svc := NewService(store, Config{
		TaxRate:        decimal.RequireFromString("0.20"),
		InvoiceDueDays: 30,
	})
	svc.now = func() time.Time { return testNow }
	return svc, store
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func deliveryDraft(price string) model.ListingDraft {
	start := testNow.Add(24 * time.Hour)
	end := start.Add(3 * time.Hour)
	return model.ListingDraft{
		Kind:               model.ListingKindDelivery,
		Title:              "Colis 5kg",
		Price:              dec(price),
		OriginAddress:      "110 rue de Flandre, Paris",
		DestinationAddress: "8 cours Lafayette, Lyon",
		WindowStart:        &start,
		WindowEnd:          &end,
		WeightKg:           5,
	}
}

func publishDelivery(t *testing.T, svc *Service) *model.Listing {
	t.Helper()
	l, err := svc.PublishListing(context.Background(), client, deliveryDraft("49.00"))
	require.NoError(t, err)
	return l
}

func publishService(t *testing.T, svc *Service) *model.Listing {
	t.Helper()
	l, err := svc.PublishListing(context.Background(), merchant, model.ListingDraft{
		Kind:  model.ListingKindService,
		Title: "Montage de meuble",
		Price: dec("80.00"),
	})
	require.NoError(t, err)
	return l
}

// delivered публикует объявление, откликается курьером и доводит доставку до delivered.
func delivered(t *testing.T, svc *Service) (*model.Listing, *model.Fulfillment) {
	t.Helper()
	ctx := context.Background()

	l := publishDelivery(t, svc)
	claim, err := svc.ClaimListing(ctx, courier1, l.ID, nil)
	require.NoError(t, err)

	ref := claim.Fulfillment.Ref()
	_, err = svc.AdvanceFulfillment(ctx, courier1, ref, model.StatusInProgress)
	require.NoError(t, err)
	f, err := svc.AdvanceFulfillment(ctx, courier1, ref, model.StatusDelivered)
	require.NoError(t, err)
	return l, f
}

func TestPublishListing(t *testing.T) {
	svc, store := newTestService(t)

	l := publishDelivery(t, svc)
	assert.Equal(t, model.ListingStatusActive, l.Status)
	assert.Nil(t, l.AssignedFulfiller)
	assert.Equal(t, client.ID, store.listing(l.ID).OwnerID)
}

func TestPublishListing_EndBeforeStart(t *testing.T) {
	svc, _ := newTestService(t)

	d := deliveryDraft("49.00")
	end := d.WindowStart.Add(-time.Hour)
	d.WindowEnd = &end

	_, err := svc.PublishListing(context.Background(), client, d)
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestPublishListing_CourierCannotPublish(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.PublishListing(context.Background(), courier1, deliveryDraft("10"))
	require.ErrorIs(t, err, model.ErrAuthorization)
}

func TestClaimListing_ConcurrentClaimsHaveSingleWinner(t *testing.T) {
	svc, store := newTestService(t)
	l := publishDelivery(t, svc)

	const n = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   []int64
		conflicts int
		other     []error
	)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := svc.ClaimListing(context.Background(), model.Actor{ID: id, Role: model.RoleCourier}, l.ID, nil)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, id)
			case errors.Is(err, model.ErrConflict):
				conflicts++
			default:
				other = append(other, err)
			}
		}(int64(100 + i))
	}
	wg.Wait()

	require.Empty(t, other)
	require.Len(t, winners, 1)
	assert.Equal(t, n-1, conflicts)

	got := store.listing(l.ID)
	assert.Equal(t, model.ListingStatusAccepted, got.Status)
	require.NotNil(t, got.AssignedFulfiller)
	assert.Equal(t, winners[0], *got.AssignedFulfiller)

	active := store.countFulfillments(l.ID, func(f model.Fulfillment) bool { return f.Status != model.StatusCanceled })
	assert.Equal(t, 1, active)
}

func TestClaimListing_OneStepAccept(t *testing.T) {
	svc, store := newTestService(t)
	l := publishDelivery(t, svc)

	claim, err := svc.ClaimListing(context.Background(), courier1, l.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, model.StatusAccepted, claim.Fulfillment.Status)
	assert.Equal(t, model.PayableDelivery, claim.Fulfillment.Kind)
	assert.True(t, validation.IsValidTrackingCode(claim.Fulfillment.TrackingCode), claim.Fulfillment.TrackingCode)
	assert.Equal(t, model.ListingStatusAccepted, claim.Listing.Status)
	assert.Equal(t, []model.EventType{model.EventFulfillmentCreated}, store.eventTypes())
}

func TestClaimListing_WrongRole(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	delivery := publishDelivery(t, svc)
	_, err := svc.ClaimListing(ctx, provider, delivery.ID, nil)
	require.ErrorIs(t, err, model.ErrAuthorization)

	service := publishService(t, svc)
	_, err = svc.ClaimListing(ctx, courier1, service.ID, nil)
	require.ErrorIs(t, err, model.ErrAuthorization)
}

func TestClaimListing_UnknownListing(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ClaimListing(context.Background(), courier1, 404, nil)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestClaimListing_RollsBackWhenFulfillmentInsertFails(t *testing.T) {
	svc, store := newTestService(t)
	l := publishDelivery(t, svc)

	store.injectFailure("CreateFulfillment", errors.New("connection reset by peer"))

	_, err := svc.ClaimListing(context.Background(), courier1, l.ID, nil)
	require.ErrorIs(t, err, model.ErrInternal)

	got := store.listing(l.ID)
	assert.Equal(t, model.ListingStatusActive, got.Status)
	assert.Nil(t, got.AssignedFulfiller)
	assert.Zero(t, store.countFulfillments(l.ID, func(model.Fulfillment) bool { return true }))
	assert.Empty(t, store.eventTypes())
}

func TestClaimListing_ExistingActiveFulfillmentConflicts(t *testing.T) {
	svc, store := newTestService(t)
	l := publishDelivery(t, svc)

	store.putFulfillment(model.Fulfillment{
		ID:          500,
		Kind:        model.PayableDelivery,
		ListingID:   l.ID,
		FulfillerID: courier2.ID,
		Status:      model.StatusPending,
	})

	_, err := svc.ClaimListing(context.Background(), courier1, l.ID, nil)
	require.ErrorIs(t, err, model.ErrConflict)

	got := store.listing(l.ID)
	assert.Equal(t, model.ListingStatusActive, got.Status)
	assert.Nil(t, got.AssignedFulfiller)
}

func TestClaimListing_ServiceQuote(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	l := publishService(t, svc)

	quote := dec("65.50")
	claim, err := svc.ClaimListing(ctx, provider, l.ID, &quote)
	require.NoError(t, err)
	assert.Equal(t, model.PayableService, claim.Fulfillment.Kind)
	assert.True(t, claim.Fulfillment.AgreedPrice.Equal(quote))

	ref := claim.Fulfillment.Ref()
	_, err = svc.AdvanceFulfillment(ctx, provider, ref, model.StatusInProgress)
	require.NoError(t, err)
	f, err := svc.AdvanceFulfillment(ctx, provider, ref, model.StatusCompleted)
	require.NoError(t, err)
	require.NotNil(t, f.CompletedAt)

	pay, err := svc.RequestPayment(ctx, provider, ref)
	require.NoError(t, err)
	assert.Equal(t, "65.50", pay.Amount.StringFixed(2))
	assert.Equal(t, merchant.ID, pay.PayerID)
}

func TestClaimListing_QuoteRejectedForDelivery(t *testing.T) {
	svc, store := newTestService(t)
	l := publishDelivery(t, svc)

	quote := dec("30")
	_, err := svc.ClaimListing(context.Background(), courier1, l.ID, &quote)
	require.ErrorIs(t, err, model.ErrValidation)
	assert.Equal(t, model.ListingStatusActive, store.listing(l.ID).Status)
}

func TestAdvanceFulfillment_DeliveryLifecycle(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	l := publishDelivery(t, svc)
	claim, err := svc.ClaimListing(ctx, courier1, l.ID, nil)
	require.NoError(t, err)
	ref := claim.Fulfillment.Ref()

	f, err := svc.AdvanceFulfillment(ctx, courier1, ref, model.StatusInProgress)
	require.NoError(t, err)
	assert.Nil(t, f.CompletedAt)

	f, err = svc.AdvanceFulfillment(ctx, courier1, ref, model.StatusDelivered)
	require.NoError(t, err)
	require.NotNil(t, f.CompletedAt)
	assert.Equal(t, testNow, *f.CompletedAt)
	assert.Equal(t, model.ListingStatusCompleted, store.listing(l.ID).Status)

	_, err = svc.AdvanceFulfillment(ctx, courier1, ref, model.StatusInProgress)
	require.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestAdvanceFulfillment_OnlyFulfiller(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	l := publishDelivery(t, svc)
	claim, err := svc.ClaimListing(ctx, courier1, l.ID, nil)
	require.NoError(t, err)

	_, err = svc.AdvanceFulfillment(ctx, courier2, claim.Fulfillment.Ref(), model.StatusInProgress)
	require.ErrorIs(t, err, model.ErrAuthorization)
}

func TestAdvanceFulfillment_KindMismatchIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	l := publishDelivery(t, svc)
	claim, err := svc.ClaimListing(ctx, courier1, l.ID, nil)
	require.NoError(t, err)

	ref := model.PayableRef{Kind: model.PayableService, ID: claim.Fulfillment.ID}
	_, err = svc.AdvanceFulfillment(ctx, courier1, ref, model.StatusInProgress)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestAdvanceFulfillment_ForwardOnly(t *testing.T) {
	statuses := []model.FulfillmentStatus{
		model.StatusPending,
		model.StatusAccepted,
		model.StatusInProgress,
		model.StatusDelivered,
		model.StatusCompleted,
		model.StatusCanceled,
	}
	kinds := []struct {
		kind    model.PayableKind
		listing model.ListingKind
		actor   model.Actor
	}{
		{model.PayableDelivery, model.ListingKindDelivery, courier1},
		{model.PayableService, model.ListingKindService, provider},
	}

	for _, k := range kinds {
		for _, from := range statuses {
			if !model.ValidFulfillmentStatus(k.kind, from) {
				continue
			}
			for _, target := range statuses {
				name := fmt.Sprintf("%s/%s->%s", k.kind, from, target)
				t.Run(name, func(t *testing.T) {
					svc, store := newTestService(t)
					fulfiller := k.actor.ID
					store.putListing(model.Listing{
						ID:                1,
						OwnerID:           client.ID,
						Kind:              k.listing,
						Price:             dec("10"),
						Status:            model.ListingStatusAccepted,
						AssignedFulfiller: &fulfiller,
					})
					store.putFulfillment(model.Fulfillment{
						ID:          2,
						Kind:        k.kind,
						ListingID:   1,
						FulfillerID: fulfiller,
						Status:      from,
					})

					_, err := svc.AdvanceFulfillment(context.Background(), k.actor, model.PayableRef{Kind: k.kind, ID: 2}, target)
					if model.CanAdvance(k.kind, from, target) {
						require.NoError(t, err)
						assert.Equal(t, target, store.fulfillment(2).Status)
						return
					}
					require.ErrorIs(t, err, model.ErrInvalidTransition)
					assert.Equal(t, from, store.fulfillment(2).Status)
				})
			}
		}
	}
}

func TestCancelFulfillment_FreesListingForNewClaim(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	l := publishDelivery(t, svc)
	claim, err := svc.ClaimListing(ctx, courier1, l.ID, nil)
	require.NoError(t, err)

	f, err := svc.CancelFulfillment(ctx, courier1, claim.Fulfillment.Ref())
	require.NoError(t, err)
	assert.Equal(t, model.StatusCanceled, f.Status)

	got := store.listing(l.ID)
	assert.Equal(t, model.ListingStatusActive, got.Status)
	assert.Nil(t, got.AssignedFulfiller)

	second, err := svc.ClaimListing(ctx, courier2, l.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, courier2.ID, *second.Listing.AssignedFulfiller)
}

func TestCancelFulfillment_NotFromInProgress(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	l := publishDelivery(t, svc)
	claim, err := svc.ClaimListing(ctx, courier1, l.ID, nil)
	require.NoError(t, err)
	_, err = svc.AdvanceFulfillment(ctx, courier1, claim.Fulfillment.Ref(), model.StatusInProgress)
	require.NoError(t, err)

	_, err = svc.CancelFulfillment(ctx, courier1, claim.Fulfillment.Ref())
	require.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = svc.CancelFulfillment(ctx, courier2, claim.Fulfillment.Ref())
	require.ErrorIs(t, err, model.ErrAuthorization)
}

func TestCancelListing(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	busy := publishDelivery(t, svc)
	claim, err := svc.ClaimListing(ctx, courier1, busy.ID, nil)
	require.NoError(t, err)
	_, err = svc.AdvanceFulfillment(ctx, courier1, claim.Fulfillment.Ref(), model.StatusInProgress)
	require.NoError(t, err)

	_, err = svc.CancelListing(ctx, client, busy.ID)
	require.ErrorIs(t, err, model.ErrPrecondition)
	assert.Equal(t, model.ListingStatusAccepted, store.listing(busy.ID).Status)

	free := publishDelivery(t, svc)
	_, err = svc.CancelListing(ctx, merchant, free.ID)
	require.ErrorIs(t, err, model.ErrAuthorization)

	l, err := svc.CancelListing(ctx, client, free.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ListingStatusCanceled, l.Status)
	assert.Contains(t, store.eventTypes(), model.EventListingCanceled)

	_, err = svc.CancelListing(ctx, client, free.ID)
	require.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = svc.ClaimListing(ctx, courier2, free.ID, nil)
	require.ErrorIs(t, err, model.ErrConflict)
}

func TestRequestPayment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	l := publishDelivery(t, svc)
	claim, err := svc.ClaimListing(ctx, courier1, l.ID, nil)
	require.NoError(t, err)
	ref := claim.Fulfillment.Ref()

	_, err = svc.RequestPayment(ctx, courier1, ref)
	require.ErrorIs(t, err, model.ErrPrecondition)

	_, err = svc.AdvanceFulfillment(ctx, courier1, ref, model.StatusInProgress)
	require.NoError(t, err)
	_, err = svc.AdvanceFulfillment(ctx, courier1, ref, model.StatusDelivered)
	require.NoError(t, err)

	_, err = svc.RequestPayment(ctx, courier2, ref)
	require.ErrorIs(t, err, model.ErrAuthorization)

	pay, err := svc.RequestPayment(ctx, courier1, ref)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusPending, pay.Status)
	assert.Equal(t, "49.00", pay.Amount.StringFixed(2))
	assert.Equal(t, client.ID, pay.PayerID)
	assert.Equal(t, testNow, pay.TransactionDate)
	assert.NotEmpty(t, pay.ExternalRef)

	_, err = svc.RequestPayment(ctx, courier1, ref)
	require.ErrorIs(t, err, model.ErrConflict)
}

func TestPaymentApprovalAndRefundDriveInvoice(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	_, f := delivered(t, svc)

	inv, err := svc.IssueInvoice(ctx, courier1, f.Ref())
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPending, inv.Status)
	assert.Equal(t, "INV-20260501-000001", inv.Number)
	assert.Equal(t, "49.00", inv.NetAmount.StringFixed(2))
	assert.Equal(t, "9.80", inv.TaxAmount.StringFixed(2))
	assert.Equal(t, "58.80", inv.GrossAmount.StringFixed(2))
	assert.Equal(t, testNow.AddDate(0, 0, 30), inv.DueAt)
	assert.Equal(t, client.ID, inv.OwnerID)

	pay, err := svc.RequestPayment(ctx, courier1, f.Ref())
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPending, store.invoice(inv.ID).Status)

	_, err = svc.DecidePayment(ctx, courier1, pay.ID, model.DecisionApprove, "")
	require.ErrorIs(t, err, model.ErrAuthorization)

	pay, err = svc.DecidePayment(ctx, client, pay.ID, model.DecisionApprove, "ok")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, pay.Status)

	got := store.invoice(inv.ID)
	assert.Equal(t, model.InvoiceStatusPaid, got.Status)
	require.NotNil(t, got.PaymentID)
	assert.Equal(t, pay.ID, *got.PaymentID)

	_, err = svc.DecidePayment(ctx, client, pay.ID, model.DecisionReject, "")
	require.ErrorIs(t, err, model.ErrInvalidTransition)

	_, err = svc.RefundPayment(ctx, client, pay.ID)
	require.ErrorIs(t, err, model.ErrAuthorization)

	pay, err = svc.RefundPayment(ctx, admin, pay.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusRefunded, pay.Status)
	assert.Equal(t, model.InvoiceStatusCanceled, store.invoice(inv.ID).Status)

	_, err = svc.RefundPayment(ctx, admin, pay.ID)
	require.ErrorIs(t, err, model.ErrInvalidTransition)

	events := store.eventTypes()
	assert.Contains(t, events, model.EventPaymentCompleted)
	assert.Contains(t, events, model.EventInvoiceStatusChanged)
}

func TestRejectedPaymentAllowsNewRequest(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	_, f := delivered(t, svc)

	inv, err := svc.IssueInvoice(ctx, admin, f.Ref())
	require.NoError(t, err)

	first, err := svc.RequestPayment(ctx, courier1, f.Ref())
	require.NoError(t, err)
	_, err = svc.DecidePayment(ctx, admin, first.ID, model.DecisionReject, "insufficient funds")
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPending, store.invoice(inv.ID).Status)

	second, err := svc.RequestPayment(ctx, courier1, f.Ref())
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)

	got := store.invoice(inv.ID)
	require.NotNil(t, got.PaymentID)
	assert.Equal(t, second.ID, *got.PaymentID)
}

func TestDecidePayment_UnknownOutcome(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, f := delivered(t, svc)

	pay, err := svc.RequestPayment(ctx, courier1, f.Ref())
	require.NoError(t, err)

	_, err = svc.DecidePayment(ctx, admin, pay.ID, "maybe", "")
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestAtMostOneActivePayment(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	_, f := delivered(t, svc)
	ref := f.Ref()

	active := func() int {
		return store.countPayments(ref, func(p model.Payment) bool {
			return p.Status == model.PaymentStatusPending || p.Status == model.PaymentStatusCompleted
		})
	}

	var last *model.Payment
	steps := []func() error{
		func() (err error) { last, err = svc.RequestPayment(ctx, courier1, ref); return err },
		func() error { _, err := svc.DecidePayment(ctx, admin, last.ID, model.DecisionReject, ""); return err },
		func() (err error) { last, err = svc.RequestPayment(ctx, courier1, ref); return err },
		func() error { _, err := svc.RequestPayment(ctx, courier1, ref); return err },
		func() error { _, err := svc.DecidePayment(ctx, admin, last.ID, model.DecisionApprove, ""); return err },
		func() error { _, err := svc.RequestPayment(ctx, courier1, ref); return err },
		func() error { _, err := svc.RefundPayment(ctx, admin, last.ID); return err },
		func() error { _, err := svc.RequestPayment(ctx, courier1, ref); return err },
	}

	for i, step := range steps {
		_ = step()
		require.LessOrEqualf(t, active(), 1, "step %d", i)
	}
}

func TestIssueInvoice(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	l := publishDelivery(t, svc)
	claim, err := svc.ClaimListing(ctx, courier1, l.ID, nil)
	require.NoError(t, err)

	_, err = svc.IssueInvoice(ctx, courier1, claim.Fulfillment.Ref())
	require.ErrorIs(t, err, model.ErrPrecondition)

	_, f := delivered(t, svc)
	_, err = svc.IssueInvoice(ctx, client, f.Ref())
	require.ErrorIs(t, err, model.ErrAuthorization)

	_, err = svc.IssueInvoice(ctx, courier1, f.Ref())
	require.NoError(t, err)

	_, err = svc.IssueInvoice(ctx, courier1, f.Ref())
	require.ErrorIs(t, err, model.ErrConflict)
}

func TestIssueInvoice_MirrorsExistingPayment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, f := delivered(t, svc)

	pay, err := svc.RequestPayment(ctx, courier1, f.Ref())
	require.NoError(t, err)
	_, err = svc.DecidePayment(ctx, client, pay.ID, model.DecisionApprove, "")
	require.NoError(t, err)

	inv, err := svc.IssueInvoice(ctx, courier1, f.Ref())
	require.NoError(t, err)
	assert.Equal(t, model.InvoiceStatusPaid, inv.Status)
	require.NotNil(t, inv.PaymentID)
	assert.Equal(t, pay.ID, *inv.PaymentID)
}

func TestIssueInvoice_SequencePerDay(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, f1 := delivered(t, svc)
	_, f2 := delivered(t, svc)

	inv1, err := svc.IssueInvoice(ctx, courier1, f1.Ref())
	require.NoError(t, err)
	inv2, err := svc.IssueInvoice(ctx, courier1, f2.Ref())
	require.NoError(t, err)

	assert.Equal(t, "INV-20260501-000001", inv1.Number)
	assert.Equal(t, "INV-20260501-000002", inv2.Number)
}

func TestPayInvoiceDirectly(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	_, f := delivered(t, svc)

	inv, err := svc.IssueInvoice(ctx, admin, f.Ref())
	require.NoError(t, err)

	_, _, err = svc.PayInvoiceDirectly(ctx, merchant, inv.ID, "card")
	require.ErrorIs(t, err, model.ErrAuthorization)

	_, _, err = svc.PayInvoiceDirectly(ctx, client, inv.ID, " ")
	require.ErrorIs(t, err, model.ErrValidation)

	pay, paid, err := svc.PayInvoiceDirectly(ctx, client, inv.ID, "card")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusCompleted, pay.Status)
	assert.Equal(t, "58.80", pay.Amount.StringFixed(2))
	assert.Equal(t, "card", pay.Method)
	assert.Equal(t, model.InvoiceStatusPaid, paid.Status)
	require.NotNil(t, paid.PaymentID)
	assert.Equal(t, pay.ID, *paid.PaymentID)
	assert.Equal(t, model.InvoiceStatusPaid, store.invoice(inv.ID).Status)

	_, _, err = svc.PayInvoiceDirectly(ctx, client, inv.ID, "card")
	require.ErrorIs(t, err, model.ErrInvalidTransition)
}

func TestPayInvoiceDirectly_PendingRequestConflicts(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()
	_, f := delivered(t, svc)

	inv, err := svc.IssueInvoice(ctx, courier1, f.Ref())
	require.NoError(t, err)
	_, err = svc.RequestPayment(ctx, courier1, f.Ref())
	require.NoError(t, err)

	_, _, err = svc.PayInvoiceDirectly(ctx, client, inv.ID, "transfer")
	require.ErrorIs(t, err, model.ErrConflict)
	assert.Equal(t, model.InvoiceStatusPending, store.invoice(inv.ID).Status)
}

func TestAttachInvoiceDocument(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, f := delivered(t, svc)

	inv, err := svc.IssueInvoice(ctx, courier1, f.Ref())
	require.NoError(t, err)

	_, err = svc.AttachInvoiceDocument(ctx, client, inv.ID, "")
	require.ErrorIs(t, err, model.ErrValidation)
	_, err = svc.AttachInvoiceDocument(ctx, courier2, inv.ID, "invoices/x.pdf")
	require.ErrorIs(t, err, model.ErrAuthorization)

	got, err := svc.AttachInvoiceDocument(ctx, admin, inv.ID, "invoices/INV-20260501-000001.pdf")
	require.NoError(t, err)
	require.NotNil(t, got.DocumentRef)
	assert.Equal(t, "invoices/INV-20260501-000001.pdf", *got.DocumentRef)
}

func TestRateFulfillment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	l := publishDelivery(t, svc)
	claim, err := svc.ClaimListing(ctx, courier1, l.ID, nil)
	require.NoError(t, err)
	_, err = svc.RateFulfillment(ctx, client, claim.Fulfillment.Ref(), dec("4"), "")
	require.ErrorIs(t, err, model.ErrPrecondition)

	_, f := delivered(t, svc)
	_, err = svc.RateFulfillment(ctx, courier1, f.Ref(), dec("5"), "")
	require.ErrorIs(t, err, model.ErrAuthorization)
	_, err = svc.RateFulfillment(ctx, client, f.Ref(), dec("4.25"), "")
	require.ErrorIs(t, err, model.ErrValidation)

	rated, err := svc.RateFulfillment(ctx, client, f.Ref(), dec("4.5"), "  Rapide et soigneux ")
	require.NoError(t, err)
	require.NotNil(t, rated.Rating)
	assert.Equal(t, "4.5", rated.Rating.String())
	assert.Equal(t, "Rapide et soigneux", rated.Review)

	_, err = svc.RateFulfillment(ctx, client, f.Ref(), dec("3"), "")
	require.ErrorIs(t, err, model.ErrConflict)
}

func TestTrackFulfillment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	l := publishDelivery(t, svc)
	claim, err := svc.ClaimListing(ctx, courier1, l.ID, nil)
	require.NoError(t, err)

	f, err := svc.TrackFulfillment(ctx, claim.Fulfillment.TrackingCode)
	require.NoError(t, err)
	assert.Equal(t, claim.Fulfillment.ID, f.ID)

	_, err = svc.TrackFulfillment(ctx, "EDL123")
	require.ErrorIs(t, err, model.ErrValidation)
}

func TestReadAuthorization(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	_, f := delivered(t, svc)

	pay, err := svc.RequestPayment(ctx, courier1, f.Ref())
	require.NoError(t, err)
	inv, err := svc.IssueInvoice(ctx, courier1, f.Ref())
	require.NoError(t, err)

	_, err = svc.GetPayment(ctx, courier1, pay.ID)
	require.NoError(t, err)
	_, err = svc.GetPayment(ctx, client, pay.ID)
	require.NoError(t, err)
	_, err = svc.GetPayment(ctx, courier2, pay.ID)
	require.ErrorIs(t, err, model.ErrAuthorization)

	_, err = svc.GetInvoice(ctx, client, inv.ID)
	require.NoError(t, err)
	_, err = svc.GetInvoice(ctx, courier2, inv.ID)
	require.ErrorIs(t, err, model.ErrAuthorization)

	for _, a := range []model.Actor{courier1, client, admin} {
		got, err := svc.GetFulfillment(ctx, a, f.Ref())
		require.NoError(t, err, a.Role)
		assert.Equal(t, f.ID, got.ID)
	}
	_, err = svc.GetFulfillment(ctx, courier2, f.Ref())
	require.ErrorIs(t, err, model.ErrAuthorization)
	_, err = svc.GetFulfillment(ctx, merchant, f.Ref())
	require.ErrorIs(t, err, model.ErrAuthorization)

	invoices, err := svc.ListInvoices(ctx, client.ID)
	require.NoError(t, err)
	assert.Len(t, invoices, 1)

	payments, err := svc.ListPayments(ctx, client.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)

	mine, err := svc.ListFulfillments(ctx, courier1.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestListListings_FiltersByStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	open := publishDelivery(t, svc)
	taken := publishDelivery(t, svc)
	_, err := svc.ClaimListing(ctx, courier1, taken.ID, nil)
	require.NoError(t, err)

	active, err := svc.ListListings(ctx, ListingFilter{Status: model.ListingStatusActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, open.ID, active[0].ID)
}

func TestCanceledContextLeavesNoState(t *testing.T) {
	svc, store := newTestService(t)
	l := publishDelivery(t, svc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ClaimListing(ctx, courier1, l.ID, nil)
	require.ErrorIs(t, err, model.ErrInternal)
	assert.Equal(t, model.ListingStatusActive, store.listing(l.ID).Status)
}
