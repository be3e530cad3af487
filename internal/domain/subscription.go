package domain

import "time"

// SubscriptionStatus is the lifecycle state of a tenant's subscription.
type SubscriptionStatus string

const (
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
	SubscriptionSuspended SubscriptionStatus = "suspended"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// SubscriptionPaymentStatus tracks the billing health of a subscription.
type SubscriptionPaymentStatus string

const (
	SubPaymentTrialing SubscriptionPaymentStatus = "trialing"
	SubPaymentPaid     SubscriptionPaymentStatus = "paid"
	SubPaymentFailed   SubscriptionPaymentStatus = "failed"
)

// Consecutive failed payment thresholds and the trial length. Hoisted so
// tests can reference them instead of repeating literals.
const (
	PastDueThreshold = 3
	SuspendThreshold = 5
	TrialPeriod      = 14 * 24 * time.Hour
)

// TrialPlanID is the plan every cancelled or expired subscription is
// downgraded to, so tenants are never left in a dead state.
const TrialPlanID = "trial"

var subscriptionTransitions = []Transition{
	{Event: EventSubscriptionRenewed, Src: string(SubscriptionTrial), Dst: string(SubscriptionActive)},
	{Event: EventSubscriptionRenewed, Src: string(SubscriptionActive), Dst: string(SubscriptionActive)},
	{Event: EventSubscriptionRenewed, Src: string(SubscriptionPastDue), Dst: string(SubscriptionActive)},
	{Event: EventSubscriptionRenewed, Src: string(SubscriptionSuspended), Dst: string(SubscriptionActive)},
	{Event: EventSubscriptionPaymentFailed, Src: string(SubscriptionActive), Dst: string(SubscriptionActive)},
	{Event: EventSubscriptionPaymentFailed, Src: string(SubscriptionActive), Dst: string(SubscriptionPastDue)},
	{Event: EventSubscriptionPaymentFailed, Src: string(SubscriptionPastDue), Dst: string(SubscriptionPastDue)},
	{Event: EventSubscriptionPaymentFailed, Src: string(SubscriptionPastDue), Dst: string(SubscriptionSuspended)},
	{Event: EventSubscriptionPaymentFailed, Src: string(SubscriptionSuspended), Dst: string(SubscriptionSuspended)},
	{Event: EventSubscriptionCancelled, Src: string(SubscriptionTrial), Dst: string(SubscriptionCancelled)},
	{Event: EventSubscriptionCancelled, Src: string(SubscriptionActive), Dst: string(SubscriptionCancelled)},
	{Event: EventSubscriptionExpired, Src: string(SubscriptionTrial), Dst: string(SubscriptionExpired)},
	{Event: EventSubscriptionExpired, Src: string(SubscriptionActive), Dst: string(SubscriptionExpired)},
}

// --- Payloads ---

type SubscriptionStarted struct {
	TenantID string
	PlanID   string
	Trial    bool
}

func (SubscriptionStarted) EventType() EventType { return EventSubscriptionStarted }

type SubscriptionRenewed struct {
	Amount float64
}

func (SubscriptionRenewed) EventType() EventType { return EventSubscriptionRenewed }

type SubscriptionPaymentFailed struct {
	Reason string
}

func (SubscriptionPaymentFailed) EventType() EventType { return EventSubscriptionPaymentFailed }

type SubscriptionCancelledPayload struct {
	Reason string
}

func (SubscriptionCancelledPayload) EventType() EventType { return EventSubscriptionCancelled }

type SubscriptionExpiredPayload struct{}

func (SubscriptionExpiredPayload) EventType() EventType { return EventSubscriptionExpired }

// --- Projection ---

// SubscriptionState is the current projection of a tenant's plan
// enrollment. It belongs to exactly one tenant and references a plan by id.
type SubscriptionState struct {
	ID                    string                    `json:"id"`
	TenantID              string                    `json:"tenant_id"`
	PlanID                string                    `json:"plan_id"`
	Interval              BillingInterval           `json:"interval"`
	Status                SubscriptionStatus        `json:"status"`
	PaymentStatus         SubscriptionPaymentStatus `json:"payment_status"`
	CurrentPeriodStart    time.Time                 `json:"current_period_start"`
	CurrentPeriodEnd      time.Time                 `json:"current_period_end"`
	TrialEndsAt           *time.Time                `json:"trial_ends_at,omitempty"`
	EndsAt                *time.Time                `json:"ends_at,omitempty"`
	CancelledAt           *time.Time                `json:"cancelled_at,omitempty"`
	SuspendedAt           *time.Time                `json:"suspended_at,omitempty"`
	CancelReason          string                    `json:"cancel_reason,omitempty"`
	ExpiryReason          string                    `json:"expiry_reason,omitempty"`
	FailedPaymentAttempts int                       `json:"failed_payment_attempts"`
	RenewalCount          int                       `json:"renewal_count"`
	TotalRevenue          float64                   `json:"total_revenue"`
	StartedAt             time.Time                 `json:"started_at"`
	Version               int64                     `json:"-"`
}

// NewSubscriptionState enrolls a tenant on a plan. Trial subscriptions get
// a TrialEndsAt stamp; the billing period always starts now.
func NewSubscriptionState(id string, p SubscriptionStarted, plan Plan, now time.Time) (SubscriptionState, error) {
	if p.TenantID == "" {
		return SubscriptionState{}, Validationf("subscription requires a tenant id")
	}
	s := SubscriptionState{
		ID:                 id,
		TenantID:           p.TenantID,
		PlanID:             plan.ID,
		Interval:           plan.Interval,
		Status:             SubscriptionActive,
		PaymentStatus:      SubPaymentPaid,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   AddInterval(now, plan.Interval),
		StartedAt:          now,
	}
	if p.Trial {
		trialEnd := now.Add(TrialPeriod)
		s.Status = SubscriptionTrial
		s.PaymentStatus = SubPaymentTrialing
		s.TrialEndsAt = &trialEnd
	}
	return s, nil
}

// ApplyRenewed processes a successful renewal payment: the period extends
// one interval from the previous period end (not from now), markers are
// cleared and the failure counter resets.
func (s *SubscriptionState) ApplyRenewed(p SubscriptionRenewed, now time.Time) error {
	if p.Amount <= 0 {
		return Validationf("renewal amount must be positive, got %.2f", p.Amount)
	}
	s.CurrentPeriodStart = s.CurrentPeriodEnd
	s.CurrentPeriodEnd = AddInterval(s.CurrentPeriodEnd, s.Interval)
	s.Status = SubscriptionActive
	s.PaymentStatus = SubPaymentPaid
	s.TrialEndsAt = nil
	s.EndsAt = nil
	s.CancelledAt = nil
	s.SuspendedAt = nil
	s.CancelReason = ""
	s.FailedPaymentAttempts = 0
	s.RenewalCount++
	s.TotalRevenue += p.Amount
	return nil
}

// ApplyPaymentFailed increments the consecutive failure counter and
// degrades the status at the declared thresholds. The counter only ever
// resets on a successful payment.
func (s *SubscriptionState) ApplyPaymentFailed(now time.Time) SubscriptionStatus {
	s.FailedPaymentAttempts++
	s.PaymentStatus = SubPaymentFailed

	switch {
	case s.FailedPaymentAttempts >= SuspendThreshold:
		s.Status = SubscriptionSuspended
		if s.SuspendedAt == nil {
			s.SuspendedAt = &now
		}
	case s.FailedPaymentAttempts >= PastDueThreshold:
		s.Status = SubscriptionPastDue
	}
	return s.Status
}

// ApplyCancelled ends the subscription. If the current period still has
// time left the subscription runs until its end; otherwise it ends
// immediately and a trial downgrade is derived so the tenant keeps a
// working (if minimal) subscription.
func (s *SubscriptionState) ApplyCancelled(p SubscriptionCancelledPayload, now time.Time) []Envelope {
	s.Status = SubscriptionCancelled
	s.CancelledAt = &now
	s.CancelReason = p.Reason

	if s.CurrentPeriodEnd.After(now) {
		end := s.CurrentPeriodEnd
		s.EndsAt = &end
		return nil
	}

	s.EndsAt = &now
	return []Envelope{s.downgradeToTrial(now)}
}

// ApplyExpired closes a subscription whose billing cycle ended, always
// deriving the trial downgrade.
func (s *SubscriptionState) ApplyExpired(now time.Time) []Envelope {
	s.Status = SubscriptionExpired
	if s.CancelledAt == nil {
		s.ExpiryReason = "billing_cycle_ended"
	}
	s.EndsAt = &now
	return []Envelope{s.downgradeToTrial(now)}
}

// downgradeToTrial derives a fresh trial subscription for the tenant. The
// new record gets its own id; the closed one is kept, never deleted.
func (s *SubscriptionState) downgradeToTrial(now time.Time) Envelope {
	return NewEnvelope(
		SubscriptionStarted{
			TenantID: s.TenantID,
			PlanID:   TrialPlanID,
			Trial:    true,
		},
		map[EntityKind]string{
			KindSubscription: NewDerivedID(),
			KindTenant:       s.TenantID,
		},
		now,
	)
}
