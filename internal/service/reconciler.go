package service

import (
	"context"
	"time"

	"github.com/mireiacv/citalert/internal/model"
)

// NotifiedSubscription pairs one subscription with its delivery outcome from
// the multicast send.
type NotifiedSubscription struct {
	Subscription model.Subscription
	Outcome      model.DeliveryOutcome
}

// ReconciliationStore commits one service group's reconciliation as a single
// all-or-nothing batch.
type ReconciliationStore interface {
	ApplyReconciliation(ctx context.Context, removals []model.Subscription, deltas map[model.Topic]model.CounterDelta) error
}

// Reconciler prunes subscriptions after a dispatch. A subscription is
// removed once its notification was delivered, once its token is permanently
// unreachable, or once the watch outlived the maximum age. Everything else
// stays and is retried on a future tick.
type Reconciler struct {
	store  ReconciliationStore
	maxAge time.Duration
	now    func() time.Time
}

func NewReconciler(store ReconciliationStore, maxAge time.Duration) *Reconciler {
	return &Reconciler{
		store:  store,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Reconcile decides removals for one service group and commits them together
// with the topic counter adjustments. A failed commit leaves every record in
// place, so the next tick derives the same decision again.
func (r *Reconciler) Reconcile(ctx context.Context, group []NotifiedSubscription) error {
	removals, deltas := r.decide(group, r.now())
	if len(removals) == 0 {
		return nil
	}
	return r.store.ApplyReconciliation(ctx, removals, deltas)
}

// decide applies the removal policy to each pair. For every removal the
// topic's active counter goes down by one; delivered removals additionally
// raise the delivered counter, once per device-delivery event.
func (r *Reconciler) decide(group []NotifiedSubscription, now time.Time) ([]model.Subscription, map[model.Topic]model.CounterDelta) {
	var removals []model.Subscription
	deltas := make(map[model.Topic]model.CounterDelta)

	for _, ns := range group {
		expired := now.Sub(ns.Subscription.CreatedAt) > r.maxAge
		if ns.Outcome != model.OutcomeDelivered && !ns.Outcome.Permanent() && !expired {
			continue
		}

		removals = append(removals, ns.Subscription)
		delta := deltas[ns.Subscription.Topic]
		delta.Active--
		if ns.Outcome == model.OutcomeDelivered {
			delta.Delivered++
		}
		deltas[ns.Subscription.Topic] = delta
	}
	return removals, deltas
}
