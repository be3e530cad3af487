package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mvelabs/boardroom/internal/app"
	"github.com/mvelabs/boardroom/internal/domain"
)

func TestSubscriptionService_StartAndRenew(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	svc := app.NewSubscriptionService(h.dispatcher, h.store, h.clock)

	sub, err := svc.Start(ctx, "tn-1", "starter", false)
	if err != nil {
		t.Fatalf("starting: %v", err)
	}
	if sub.Status != domain.SubscriptionActive {
		t.Fatalf("Status = %q, want active", sub.Status)
	}

	renewed, err := svc.Renew(ctx, sub.ID, 49)
	if err != nil {
		t.Fatalf("renewing: %v", err)
	}
	if renewed.RenewalCount != 1 || renewed.TotalRevenue != 49 {
		t.Errorf("RenewalCount = %d TotalRevenue = %g, want 1 / 49", renewed.RenewalCount, renewed.TotalRevenue)
	}
}

func TestSubscriptionService_UnknownPlan(t *testing.T) {
	h := newHarness()
	svc := app.NewSubscriptionService(h.dispatcher, h.store, h.clock)

	_, err := svc.Start(context.Background(), "tn-1", "platinum", false)
	if !errors.Is(err, domain.ErrPlanNotFound) {
		t.Errorf("got %v, want ErrPlanNotFound", err)
	}
}

func TestSubscriptionService_PaymentFailureDegrades(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	svc := app.NewSubscriptionService(h.dispatcher, h.store, h.clock)

	sub, err := svc.Start(ctx, "tn-1", "starter", false)
	if err != nil {
		t.Fatalf("starting: %v", err)
	}

	var last domain.SubscriptionState
	for i := 0; i < domain.SuspendThreshold; i++ {
		last, err = svc.RecordPaymentFailure(ctx, sub.ID, "card declined")
		if err != nil {
			t.Fatalf("failure %d: %v", i+1, err)
		}
	}

	if last.Status != domain.SubscriptionSuspended {
		t.Errorf("Status = %q, want suspended", last.Status)
	}
	if last.FailedPaymentAttempts != domain.SuspendThreshold {
		t.Errorf("FailedPaymentAttempts = %d, want %d", last.FailedPaymentAttempts, domain.SuspendThreshold)
	}
}

func TestSubscriptionService_CancelAfterPeriodDowngrades(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	svc := app.NewSubscriptionService(h.dispatcher, h.store, h.clock)

	sub, err := svc.Start(ctx, "tn-1", "starter", false)
	if err != nil {
		t.Fatalf("starting: %v", err)
	}

	// Move past the billing period so the cancel takes effect immediately
	// and derives the trial downgrade.
	h.clock.Advance(32 * 24 * time.Hour)

	cancelled, err := svc.Cancel(ctx, sub.ID, "churn")
	if err != nil {
		t.Fatalf("cancelling: %v", err)
	}
	if cancelled.Status != domain.SubscriptionCancelled {
		t.Errorf("Status = %q, want cancelled", cancelled.Status)
	}

	// The derived event provisioned a fresh trial for the tenant.
	var trial *domain.SubscriptionState
	for _, env := range h.recorder.published() {
		if env.Type != domain.EventSubscriptionStarted {
			continue
		}
		id := env.Targets[domain.KindSubscription]
		if id == sub.ID {
			continue
		}
		s, err := h.store.GetSubscription(ctx, id)
		if err != nil {
			t.Fatalf("loading derived subscription: %v", err)
		}
		trial = &s
	}
	if trial == nil {
		t.Fatal("no trial downgrade was provisioned")
	}
	if trial.Status != domain.SubscriptionTrial || trial.PlanID != domain.TrialPlanID {
		t.Errorf("downgrade = %q on plan %q, want trial on %q", trial.Status, trial.PlanID, domain.TrialPlanID)
	}
}

func TestSubscriptionService_ExpireDue(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	svc := app.NewSubscriptionService(h.dispatcher, h.store, h.clock)

	due, err := svc.Start(ctx, "tn-due", "starter", false)
	if err != nil {
		t.Fatalf("starting due subscription: %v", err)
	}
	if _, err := svc.Start(ctx, "tn-fresh", "starter", false); err != nil {
		t.Fatalf("starting fresh subscription: %v", err)
	}

	// One period later the first subscription is due; the second one was
	// renewed meanwhile and is not.
	h.clock.Advance(32 * 24 * time.Hour)
	freshList, err := h.store.ListSubscriptionsDue(ctx, h.clock.Now())
	if err != nil {
		t.Fatalf("listing due: %v", err)
	}
	if len(freshList) != 2 {
		t.Fatalf("due before renewal = %d, want 2", len(freshList))
	}
	for _, s := range freshList {
		if s.TenantID == "tn-fresh" {
			if _, err := svc.Renew(ctx, s.ID, 49); err != nil {
				t.Fatalf("renewing: %v", err)
			}
		}
	}

	expired, err := svc.ExpireDue(ctx)
	if err != nil {
		t.Fatalf("expiring due: %v", err)
	}
	if expired != 1 {
		t.Errorf("expired = %d, want 1", expired)
	}

	got, _ := h.store.GetSubscription(ctx, due.ID)
	if got.Status != domain.SubscriptionExpired {
		t.Errorf("Status = %q, want expired", got.Status)
	}
}

func TestSubscriptionService_TrialExpiry(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	svc := app.NewSubscriptionService(h.dispatcher, h.store, h.clock)

	sub, err := svc.Start(ctx, "tn-1", domain.TrialPlanID, true)
	if err != nil {
		t.Fatalf("starting trial: %v", err)
	}

	h.clock.Advance(domain.TrialPeriod + time.Hour)

	expired, err := svc.ExpireDue(ctx)
	if err != nil {
		t.Fatalf("expiring due: %v", err)
	}
	// The old trial expires; its downgrade starts a new trial which is not
	// yet due.
	if expired != 1 {
		t.Errorf("expired = %d, want 1", expired)
	}
	got, _ := h.store.GetSubscription(ctx, sub.ID)
	if got.Status != domain.SubscriptionExpired {
		t.Errorf("Status = %q, want expired", got.Status)
	}
}
