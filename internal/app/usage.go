package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mvelabs/boardroom/internal/domain"
)

// Usage cache sizing. Counts are recomputed from live entities after the
// TTL; reads tolerate that much staleness.
const (
	usageCacheSize = 4096
	UsageCacheTTL  = 30 * time.Second
)

// UsageService answers plan-gating questions from subscription
// projections and live usage counts. All output is advisory — enforcement
// is a separate concern.
type UsageService struct {
	store   domain.ProjectionStore
	counter domain.UsageCounter
	clock   domain.Clock
	cache   *expirable.LRU[string, int]
}

func NewUsageService(store domain.ProjectionStore, counter domain.UsageCounter, clock domain.Clock) *UsageService {
	return &UsageService{
		store:   store,
		counter: counter,
		clock:   clock,
		cache:   expirable.NewLRU[string, int](usageCacheSize, nil, UsageCacheTTL),
	}
}

// HasFeature reports whether the subscription's plan includes the feature.
func (s *UsageService) HasFeature(sub domain.SubscriptionState, feature domain.Feature) bool {
	plan, err := domain.PlanByID(sub.PlanID)
	if err != nil {
		return false
	}
	return plan.HasFeature(feature)
}

// CanUseFeature reports whether the tenant may consume one more unit of
// the feature: the plan must include it, and usage must be strictly below
// the limit (a limit of -1 is unlimited).
func (s *UsageService) CanUseFeature(ctx context.Context, sub domain.SubscriptionState, feature domain.Feature) (bool, error) {
	plan, err := domain.PlanByID(sub.PlanID)
	if err != nil {
		return false, err
	}
	limit, ok := plan.Limit(feature)
	if !ok {
		return false, nil
	}
	if limit == domain.Unlimited {
		return true, nil
	}

	usage, err := s.FeatureUsage(ctx, sub.TenantID, feature)
	if err != nil {
		return false, err
	}
	return usage < limit, nil
}

// FeatureUsage returns the tenant's current usage of the feature, cached
// with a short TTL.
func (s *UsageService) FeatureUsage(ctx context.Context, tenantID string, feature domain.Feature) (int, error) {
	key := tenantID + ":" + string(feature)
	if usage, ok := s.cache.Get(key); ok {
		return usage, nil
	}

	usage, err := s.counter.Count(ctx, tenantID, feature)
	if err != nil {
		return 0, fmt.Errorf("counting %s usage: %w", feature, err)
	}
	s.cache.Add(key, usage)
	return usage, nil
}

// NeedsAttention surfaces advisory issues on a subscription: inactivity,
// a trial about to end, past-due payments, and any feature at or beyond
// 90% of its limit.
func (s *UsageService) NeedsAttention(ctx context.Context, sub domain.SubscriptionState) ([]domain.Issue, error) {
	now := s.clock.Now()
	var issues []domain.Issue

	switch sub.Status {
	case domain.SubscriptionTrial, domain.SubscriptionActive:
		// healthy
	case domain.SubscriptionPastDue:
		issues = append(issues, domain.Issue{
			Kind:     "past_due",
			Severity: domain.SeverityCritical,
			Message:  fmt.Sprintf("%d consecutive payment attempts failed", sub.FailedPaymentAttempts),
			Action:   "update payment method",
		})
	default:
		issues = append(issues, domain.Issue{
			Kind:     "inactive_subscription",
			Severity: domain.SeverityCritical,
			Message:  fmt.Sprintf("subscription is %s", sub.Status),
			Action:   "renew or start a new subscription",
		})
	}

	if sub.Status == domain.SubscriptionTrial && sub.TrialEndsAt != nil {
		remaining := sub.TrialEndsAt.Sub(now)
		if remaining > 0 && remaining <= domain.TrialAttentionWindow {
			issues = append(issues, domain.Issue{
				Kind:     "trial_ending",
				Severity: domain.SeverityWarning,
				Message:  fmt.Sprintf("trial ends %s", sub.TrialEndsAt.Format("2006-01-02")),
				Action:   "choose a paid plan",
			})
		}
	}

	plan, err := domain.PlanByID(sub.PlanID)
	if err != nil {
		return issues, err
	}
	features := make([]domain.Feature, 0, len(plan.Limits))
	for feature := range plan.Limits {
		features = append(features, feature)
	}
	sort.Slice(features, func(i, j int) bool { return features[i] < features[j] })

	for _, feature := range features {
		limit := plan.Limits[feature]
		if limit == domain.Unlimited || limit == 0 {
			continue
		}
		usage, err := s.FeatureUsage(ctx, sub.TenantID, feature)
		if err != nil {
			return issues, err
		}
		if float64(usage) >= float64(limit)*domain.UsageWarningRatio {
			issues = append(issues, domain.Issue{
				Kind:     "limit_approaching",
				Severity: domain.SeverityWarning,
				Message:  fmt.Sprintf("%s at %d of %d", feature, usage, limit),
				Action:   "upgrade the plan or reduce usage",
			})
		}
	}

	return issues, nil
}
