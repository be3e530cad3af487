package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mvelabs/boardroom/internal/domain"
)

// SubscriptionService exposes the subscription lifecycle. Expiry runs
// both on demand and from the periodic queue job.
type SubscriptionService struct {
	dispatcher *Dispatcher
	store      domain.ProjectionStore
	clock      domain.Clock
}

func NewSubscriptionService(dispatcher *Dispatcher, store domain.ProjectionStore, clock domain.Clock) *SubscriptionService {
	return &SubscriptionService{dispatcher: dispatcher, store: store, clock: clock}
}

// Start enrolls a tenant on a plan.
func (s *SubscriptionService) Start(ctx context.Context, tenantID, planID string, trial bool) (domain.SubscriptionState, error) {
	id, err := newID()
	if err != nil {
		return domain.SubscriptionState{}, fmt.Errorf("generating subscription id: %w", err)
	}

	env := domain.NewEnvelope(
		domain.SubscriptionStarted{TenantID: tenantID, PlanID: planID, Trial: trial},
		map[domain.EntityKind]string{
			domain.KindSubscription: id,
			domain.KindTenant:       tenantID,
		},
		s.clock.Now(),
	)

	if err := s.dispatcher.Dispatch(ctx, env); err != nil {
		return domain.SubscriptionState{}, err
	}
	return s.store.GetSubscription(ctx, id)
}

// Renew records a successful renewal payment.
func (s *SubscriptionService) Renew(ctx context.Context, id string, amount float64) (domain.SubscriptionState, error) {
	return s.transition(ctx, id, domain.SubscriptionRenewed{Amount: amount})
}

// RecordPaymentFailure counts one failed billing attempt.
func (s *SubscriptionService) RecordPaymentFailure(ctx context.Context, id, reason string) (domain.SubscriptionState, error) {
	return s.transition(ctx, id, domain.SubscriptionPaymentFailed{Reason: reason})
}

// Cancel ends the subscription at the period end, or immediately when the
// period is already over (which provisions the trial downgrade).
func (s *SubscriptionService) Cancel(ctx context.Context, id, reason string) (domain.SubscriptionState, error) {
	return s.transition(ctx, id, domain.SubscriptionCancelledPayload{Reason: reason})
}

// Expire closes a subscription whose billing cycle ended.
func (s *SubscriptionService) Expire(ctx context.Context, id string) (domain.SubscriptionState, error) {
	return s.transition(ctx, id, domain.SubscriptionExpiredPayload{})
}

func (s *SubscriptionService) Get(ctx context.Context, id string) (domain.SubscriptionState, error) {
	return s.store.GetSubscription(ctx, id)
}

// ExpireDue expires every open subscription whose period ended. Called by
// the periodic expiry job; per-subscription failures are logged and do
// not stop the sweep.
func (s *SubscriptionService) ExpireDue(ctx context.Context) (int, error) {
	due, err := s.store.ListSubscriptionsDue(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("listing due subscriptions: %w", err)
	}

	expired := 0
	for _, sub := range due {
		if _, err := s.Expire(ctx, sub.ID); err != nil {
			slog.ErrorContext(ctx, "expiring subscription", "subscription_id", sub.ID, "error", err)
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *SubscriptionService) transition(ctx context.Context, id string, payload domain.Payload) (domain.SubscriptionState, error) {
	sub, err := s.store.GetSubscription(ctx, id)
	if err != nil {
		return domain.SubscriptionState{}, err
	}

	env := domain.NewEnvelope(payload,
		map[domain.EntityKind]string{
			domain.KindSubscription: id,
			domain.KindTenant:       sub.TenantID,
		},
		s.clock.Now(),
	)
	if err := s.dispatcher.Dispatch(ctx, env); err != nil {
		return domain.SubscriptionState{}, err
	}
	return s.store.GetSubscription(ctx, id)
}
