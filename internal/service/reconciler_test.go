package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mireiacv/citalert/internal/model"
)

type fakeReconciliationStore struct {
	mu       sync.Mutex
	commits  int
	removals []model.Subscription
	deltas   map[model.Topic]model.CounterDelta
	err      error
}

func (f *fakeReconciliationStore) ApplyReconciliation(_ context.Context, removals []model.Subscription, deltas map[model.Topic]model.CounterDelta) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.commits++
	f.removals = append(f.removals, removals...)
	f.deltas = deltas
	return nil
}

func newTestReconciler(store ReconciliationStore, now time.Time) *Reconciler {
	r := NewReconciler(store, 60*24*time.Hour)
	r.now = func() time.Time { return now }
	return r
}

func TestReconcileRemovalPolicy(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name          string
		outcome       model.DeliveryOutcome
		age           time.Duration
		wantRemoved   bool
		wantDelivered int64
	}{
		{name: "delivered removes and counts", outcome: model.OutcomeDelivered, age: time.Hour, wantRemoved: true, wantDelivered: 1},
		{name: "invalid token removes without counting", outcome: model.OutcomeInvalidToken, age: time.Hour, wantRemoved: true},
		{name: "not registered removes without counting", outcome: model.OutcomeNotRegistered, age: time.Hour, wantRemoved: true},
		{name: "transient error young sub kept", outcome: model.OutcomeOtherError, age: 24 * time.Hour, wantRemoved: false},
		{name: "transient error stale sub removed", outcome: model.OutcomeOtherError, age: 61 * 24 * time.Hour, wantRemoved: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeReconciliationStore{}
			r := newTestReconciler(store, now)

			sub := model.Subscription{ID: "sub-1", Token: "tok", Topic: "5_12", CreatedAt: now.Add(-tt.age)}
			err := r.Reconcile(context.Background(), []NotifiedSubscription{{Subscription: sub, Outcome: tt.outcome}})
			require.NoError(t, err)

			if !tt.wantRemoved {
				assert.Zero(t, store.commits, "kept subscription must not trigger a commit")
				return
			}

			require.Len(t, store.removals, 1)
			assert.Equal(t, "sub-1", store.removals[0].ID)
			assert.Equal(t, int64(-1), store.deltas["5_12"].Active)
			assert.Equal(t, tt.wantDelivered, store.deltas["5_12"].Delivered)
		})
	}
}

func TestReconcileMixedGroupCommitsOnce(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeReconciliationStore{}
	r := newTestReconciler(store, now)

	group := []NotifiedSubscription{
		{Subscription: model.Subscription{ID: "a", Topic: "5_12", CreatedAt: now.Add(-time.Hour)}, Outcome: model.OutcomeDelivered},
		{Subscription: model.Subscription{ID: "b", Topic: "5_12", CreatedAt: now.Add(-time.Hour)}, Outcome: model.OutcomeInvalidToken},
		{Subscription: model.Subscription{ID: "c", Topic: "5_12", CreatedAt: now.Add(-time.Hour)}, Outcome: model.OutcomeOtherError},
	}

	require.NoError(t, r.Reconcile(context.Background(), group))

	assert.Equal(t, 1, store.commits)
	require.Len(t, store.removals, 2)
	assert.Equal(t, model.CounterDelta{Active: -2, Delivered: 1}, store.deltas["5_12"])
}

func TestReconcileNothingToRemoveSkipsCommit(t *testing.T) {
	now := time.Now()
	store := &fakeReconciliationStore{}
	r := newTestReconciler(store, now)

	group := []NotifiedSubscription{
		{Subscription: model.Subscription{ID: "a", Topic: "5_12", CreatedAt: now}, Outcome: model.OutcomeOtherError},
	}

	require.NoError(t, r.Reconcile(context.Background(), group))
	assert.Zero(t, store.commits)
}

func TestReconcileCommitFailurePropagates(t *testing.T) {
	now := time.Now()
	store := &fakeReconciliationStore{err: errors.New("batch write failed")}
	r := newTestReconciler(store, now)

	group := []NotifiedSubscription{
		{Subscription: model.Subscription{ID: "a", Topic: "5_12", CreatedAt: now}, Outcome: model.OutcomeDelivered},
	}

	err := r.Reconcile(context.Background(), group)
	assert.Error(t, err)
}
