package submission_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/p5portal/backend-portal/internal/distributor"
	"github.com/p5portal/backend-portal/internal/events"
	"github.com/p5portal/backend-portal/internal/pricing"
	"github.com/p5portal/backend-portal/internal/reconcile"
	"github.com/p5portal/backend-portal/internal/submission"
)

type mockStore struct {
	subs    map[int64]submission.Submission
	items   map[int64]submission.Item
	status  map[int64]string
	updated []submission.Item
}

func newMockStore() *mockStore {
	return &mockStore{
		subs:   map[int64]submission.Submission{},
		items:  map[int64]submission.Item{},
		status: map[int64]string{},
	}
}

func (m *mockStore) Get(_ context.Context, id int64) (submission.Submission, error) {
	sub, ok := m.subs[id]
	if !ok {
		return submission.Submission{}, submission.ErrNotFound
	}
	return sub, nil
}

func (m *mockStore) GetItem(_ context.Context, itemID int64) (submission.Item, string, error) {
	it, ok := m.items[itemID]
	if !ok {
		return submission.Item{}, "", submission.ErrNotFound
	}
	return it, m.status[it.SubmissionID], nil
}

func (m *mockStore) UpdateItem(_ context.Context, it submission.Item) error {
	m.items[it.ID] = it
	m.updated = append(m.updated, it)
	return nil
}

func (m *mockStore) UpdateStatus(_ context.Context, id int64, status string) error {
	sub, ok := m.subs[id]
	if !ok {
		return submission.ErrNotFound
	}
	sub.Status = status
	m.subs[id] = sub
	return nil
}

func (m *mockStore) ListByStatus(_ context.Context, status string, limit, offset int) ([]submission.Submission, int64, error) {
	var out []submission.Submission
	for _, sub := range m.subs {
		if sub.Status == status {
			out = append(out, sub)
		}
	}
	return out, int64(len(out)), nil
}

type staticCatalog struct{ cat *distributor.Catalog }

func (s staticCatalog) Catalog(context.Context) (*distributor.Catalog, error) { return s.cat, nil }

type recordingBus struct {
	topics []string
}

func (r *recordingBus) Emit(_ context.Context, topic, _ string, _ any) (events.Event, error) {
	r.topics = append(r.topics, topic)
	return events.Event{ID: int64(len(r.topics))}, nil
}

func newService(store *mockStore) (*submission.Service, *recordingBus) {
	bus := &recordingBus{}
	svc := &submission.Service{
		Store:      store,
		Reconciler: reconcile.Reconciler{Pricing: pricing.DefaultParams()},
		Distributors: staticCatalog{cat: distributor.NewCatalog([]distributor.Distributor{
			{ID: 1, Code: "ep", RuleTag: pricing.RuleEPFormula, Active: true},
			{ID: 2, Code: "alltron", RuleTag: pricing.RuleSimpleDiff, Active: true},
		})},
		Events: bus,
	}
	return svc, bus
}

func seedItem(store *mockStore, status string) submission.Item {
	store.subs[10] = submission.Submission{ID: 10, Status: status, DistributorCode: "ep"}
	store.status[10] = status
	it := submission.Item{
		ID:              100,
		SubmissionID:    10,
		ProductID:       5,
		Quantity:        1,
		DistributorCode: "ep",
		RuleTag:         pricing.RuleEPFormula,
		DealerPrice:     380,
		Baseline:        400,
		RetailPrice:     499,
		VRG:             2.5,
		StreetGross:     450,
	}
	store.items[100] = it
	return it
}

func TestEditItemPriceRecomputesDerived(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	seedItem(store, submission.StatusPending)
	svc, bus := newService(store)

	item, err := svc.EditItem(context.Background(), 10, 100, submission.Edit{Field: "dealer_price", Value: 360})
	require.NoError(t, err)
	require.Equal(t, 360.0, item.DealerPrice)
	require.NotZero(t, item.Invest)
	require.NotZero(t, item.PriceOnInvoice)
	require.NotNil(t, item.StreetMargin)
	require.Equal(t, []string{events.TopicItemAdjusted}, bus.topics)
	require.Len(t, store.updated, 1)
}

func TestEditItemWrongSubmission(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	seedItem(store, submission.StatusPending)
	svc, bus := newService(store)

	_, err := svc.EditItem(context.Background(), 99, 100, submission.Edit{Field: "dealer_price", Value: 360})
	require.ErrorIs(t, err, submission.ErrNotFound)
	require.Empty(t, bus.topics)
	require.Empty(t, store.updated)
}

func TestEditItemLockedAfterApproval(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	seedItem(store, submission.StatusApproved)
	svc, _ := newService(store)

	_, err := svc.EditItem(context.Background(), 10, 100, submission.Edit{Field: "dealer_price", Value: 360})
	require.ErrorIs(t, err, submission.ErrItemLocked)
}

func TestEditItemDistributorSwitch(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	seedItem(store, submission.StatusPending)
	svc, _ := newService(store)

	item, err := svc.EditItem(context.Background(), 10, 100, submission.Edit{Field: "distributor", DistributorCode: "ALLTRON"})
	require.NoError(t, err)
	require.Equal(t, "alltron", item.DistributorCode)
	require.Equal(t, pricing.RuleSimpleDiff, item.RuleTag)
	require.InDelta(t, 20.0, item.Invest, 0.01, "simple_diff invest is baseline minus price")
}

func TestEditItemUnknownDistributor(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	seedItem(store, submission.StatusPending)
	svc, _ := newService(store)

	_, err := svc.EditItem(context.Background(), 10, 100, submission.Edit{Field: "distributor", DistributorCode: "nobody"})
	require.ErrorIs(t, err, distributor.ErrUnknownCode)
}

func TestEditItemQuantityValidation(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	seedItem(store, submission.StatusPending)
	svc, _ := newService(store)

	_, err := svc.EditItem(context.Background(), 10, 100, submission.Edit{Field: "quantity", Quantity: 0})
	require.ErrorIs(t, err, submission.ErrInvalidEdit)

	item, err := svc.EditItem(context.Background(), 10, 100, submission.Edit{Field: "quantity", Quantity: 3})
	require.NoError(t, err)
	require.Equal(t, 3, item.Quantity)
}

func TestEditItemCoalesced(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	seedItem(store, submission.StatusPending)
	svc, bus := newService(store)
	svc.Coalescer = &submission.Coalescer{Inner: store, Delay: time.Hour}
	svc.Coalescer.OnPersist = func(it submission.Item) {
		svc.EmitItemAdjusted(context.Background(), it)
	}

	_, err := svc.EditItem(context.Background(), 10, 100, submission.Edit{Field: "dealer_price", Value: 370})
	require.NoError(t, err)
	require.Empty(t, store.updated, "write must be held back by the coalescer")
	require.Empty(t, bus.topics, "event must wait for the persisted write")

	// The second edit sees the queued state, not the stale stored one.
	item, err := svc.EditItem(context.Background(), 10, 100, submission.Edit{Field: "street_gross", Value: 430})
	require.NoError(t, err)
	require.Equal(t, 370.0, item.DealerPrice)

	require.NoError(t, svc.Coalescer.Flush(context.Background()))
	require.Len(t, store.updated, 1)
	require.Equal(t, 370.0, store.updated[0].DealerPrice)
	require.Equal(t, 430.0, store.updated[0].StreetGross)
	require.Equal(t, []string{events.TopicItemAdjusted}, bus.topics, "burst of edits notifies once")
}

func TestApproveEmitsEvent(t *testing.T) {
	t.Parallel()

	store := newMockStore()
	seedItem(store, submission.StatusPending)
	svc, bus := newService(store)

	sub, err := svc.Approve(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, submission.StatusApproved, sub.Status)
	require.Equal(t, []string{events.TopicSubmissionApproved}, bus.topics)

	_, err = svc.Reject(context.Background(), 10)
	require.ErrorIs(t, err, submission.ErrItemLocked)
}

func TestTransitionUnknownSubmission(t *testing.T) {
	t.Parallel()

	svc, _ := newService(newMockStore())
	_, err := svc.Approve(context.Background(), 999)
	require.True(t, errors.Is(err, submission.ErrNotFound))
}
