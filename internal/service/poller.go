package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mireiacv/citalert/internal/model"
)

// TopicRegistry yields the topics that currently have subscribers.
type TopicRegistry interface {
	ActiveTopics(ctx context.Context) ([]model.Topic, error)
}

// Prober checks whether a topic has open appointment slots right now.
// Implementations resolve every failure to false.
type Prober interface {
	HasAppointments(ctx context.Context, topic model.Topic) bool
}

// SubscriptionStore is the slice of the repository the poller reads.
type SubscriptionStore interface {
	SubscriptionsForTopics(ctx context.Context, topics []model.Topic) (map[string][]model.Subscription, error)
}

// Catalog resolves service names for notification text.
type Catalog interface {
	Services(ctx context.Context) ([]model.Service, error)
}

// Dispatcher multicasts one notification per service and reports per-token
// outcomes in token order.
type Dispatcher interface {
	Send(ctx context.Context, serviceName string, tokens []string) ([]model.DeliveryOutcome, error)
}

// Poller runs one complete poll cycle per invocation: find watched topics,
// probe the booking site for each, notify subscribers of topics that opened
// up, then prune the subscription set. Every effect is safe to repeat on the
// next tick; the external scheduler is responsible for not overlapping
// invocations.
type Poller struct {
	registry   TopicRegistry
	prober     Prober
	store      SubscriptionStore
	catalog    Catalog
	dispatcher Dispatcher
	reconciler *Reconciler

	probeTimeout     time.Duration
	probeConcurrency int
}

func NewPoller(
	registry TopicRegistry,
	prober Prober,
	store SubscriptionStore,
	catalog Catalog,
	dispatcher Dispatcher,
	reconciler *Reconciler,
	probeTimeout time.Duration,
	probeConcurrency int,
) *Poller {
	return &Poller{
		registry:         registry,
		prober:           prober,
		store:            store,
		catalog:          catalog,
		dispatcher:       dispatcher,
		reconciler:       reconciler,
		probeTimeout:     probeTimeout,
		probeConcurrency: probeConcurrency,
	}
}

// RunTick executes one poll cycle. Failures inside a service group are
// contained to that group; store read failures end the tick early and leave
// everything for the next one.
func (p *Poller) RunTick(ctx context.Context) error {
	tick := uuid.NewString()[:8]

	topics, err := p.registry.ActiveTopics(ctx)
	if err != nil {
		// Fail closed: a failed read never fabricates topics.
		log.Printf("[tick %s] active topics read failed: %v", tick, err)
		sentry.CaptureException(err)
		return nil
	}
	if len(topics) == 0 {
		return nil
	}

	open := p.openTopics(ctx, topics)
	// Most ticks stop here: nothing opened up.
	if len(open) == 0 {
		return nil
	}
	log.Printf("[tick %s] %d of %d watched topics have open slots", tick, len(open), len(topics))

	grouped, err := p.store.SubscriptionsForTopics(ctx, open)
	if err != nil {
		log.Printf("[tick %s] subscription listing failed: %v", tick, err)
		sentry.CaptureException(err)
		return nil
	}

	names := p.serviceNames(ctx, tick)

	// Service groups touch disjoint topics, so they proceed concurrently and
	// independently: one group failing neither blocks nor rolls back another.
	var wg sync.WaitGroup
	for serviceID, subs := range grouped {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.notifyGroup(ctx, tick, serviceID, names[serviceID], subs)
		}()
	}
	wg.Wait()
	return nil
}

// openTopics probes every candidate concurrently, bounded, each probe under
// its own timeout. Results land in per-index slots and the open set is
// reduced only after every probe has settled.
func (p *Poller) openTopics(ctx context.Context, topics []model.Topic) []model.Topic {
	results := make([]bool, len(topics))

	g := new(errgroup.Group)
	g.SetLimit(p.probeConcurrency)
	for i, topic := range topics {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(ctx, p.probeTimeout)
			defer cancel()
			results[i] = p.prober.HasAppointments(probeCtx, topic)
			return nil
		})
	}
	_ = g.Wait() // probes never return errors, only false

	var open []model.Topic
	for i, hasSlots := range results {
		if hasSlots {
			open = append(open, topics[i])
		}
	}
	return open
}

// serviceNames fetches the upstream service list for notification text. A
// catalog outage must not block dispatch, so the caller falls back to the
// raw service id for anything missing here.
func (p *Poller) serviceNames(ctx context.Context, tick string) map[string]string {
	services, err := p.catalog.Services(ctx)
	if err != nil {
		log.Printf("[tick %s] service catalog unavailable: %v", tick, err)
		return nil
	}

	names := make(map[string]string, len(services))
	for _, svc := range services {
		names[svc.ID] = svc.Name
	}
	return names
}

// notifyGroup dispatches to one service group and reconciles the results.
// When the provider call itself fails there are no outcomes to act on, so
// the group's subscriptions stay untouched until the next tick.
func (p *Poller) notifyGroup(ctx context.Context, tick, serviceID, serviceName string, subs []model.Subscription) {
	if serviceName == "" {
		serviceName = serviceID
	}

	tokens := make([]string, len(subs))
	for i, sub := range subs {
		tokens[i] = sub.Token
	}

	outcomes, err := p.dispatcher.Send(ctx, serviceName, tokens)
	if err != nil {
		log.Printf("[tick %s] dispatch failed for service %s: %v", tick, serviceID, err)
		sentry.CaptureException(err)
		return
	}
	if len(outcomes) != len(subs) {
		err := fmt.Errorf("dispatch for service %s returned %d outcomes for %d tokens", serviceID, len(outcomes), len(subs))
		log.Printf("[tick %s] %v", tick, err)
		sentry.CaptureException(err)
		return
	}

	group := make([]NotifiedSubscription, len(subs))
	for i, sub := range subs {
		group[i] = NotifiedSubscription{Subscription: sub, Outcome: outcomes[i]}
	}

	if err := p.reconciler.Reconcile(ctx, group); err != nil {
		log.Printf("[tick %s] reconciliation failed for service %s: %v", tick, serviceID, err)
		sentry.CaptureException(err)
	}
}
