package domain

import (
	"context"
	"time"
)

// ChangeSet is everything one committed event touches: the envelope plus
// the projections it mutated. The store persists it atomically — the
// envelope id lands in the append-only event log in the same transaction
// as the projection writes.
type ChangeSet struct {
	Event         Envelope
	Tenants       []TenantState
	Billboards    []BillboardState
	Bookings      []BookingState
	Payments      []PaymentState
	Subscriptions []SubscriptionState
}

// BillboardFilter holds optional criteria for listing billboards.
type BillboardFilter struct {
	TenantID string
	Status   *BillboardStatus
	Limit    int
	Offset   int
}

// ProjectionStore is the persistence contract for projections and the
// event log. Loaded projections carry a Version; Commit re-checks it and
// returns a ConflictError on mismatch, or ErrEventAlreadyApplied when the
// envelope id has been committed before.
type ProjectionStore interface {
	GetTenant(ctx context.Context, id string) (TenantState, error)
	GetBillboard(ctx context.Context, id string) (BillboardState, error)
	GetBooking(ctx context.Context, id string) (BookingState, error)
	GetPayment(ctx context.Context, id string) (PaymentState, error)
	GetSubscription(ctx context.Context, id string) (SubscriptionState, error)

	ListBillboards(ctx context.Context, filter BillboardFilter) ([]BillboardState, error)
	// ListSubscriptionsDue returns open subscriptions whose current period
	// ended at or before the given time.
	ListSubscriptionsDue(ctx context.Context, before time.Time) ([]SubscriptionState, error)

	// Applied reports whether an envelope id is already in the event log.
	// The dispatcher checks it before validation so a redelivered envelope
	// is a no-op instead of a transition failure; the log's primary key
	// inside Commit remains the authoritative guard.
	Applied(ctx context.Context, eventID string) (bool, error)

	Commit(ctx context.Context, cs ChangeSet) error
}

// TransitionValidator checks that an event may move a projection between
// two statuses, per the declared transition tables.
type TransitionValidator interface {
	Validate(ctx context.Context, kind EntityKind, event EventType, from, to string) error
}

// EventPublisher broadcasts committed envelopes to downstream consumers
// (dashboards, webhooks). Fire-and-forget from the core's perspective.
type EventPublisher interface {
	Publish(ctx context.Context, env Envelope) error
}

// Notification is a user-facing alert.
type Notification struct {
	TenantID string
	UserID   string
	Type     string
	Title    string
	Message  string
	Data     map[string]any
	Priority string
}

// Notifier delivers user-facing alerts. Fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// ActivityLog records an advisory audit entry after every committed event.
type ActivityLog interface {
	Record(ctx context.Context, subjectID string, properties map[string]any, message string) error
}

// ProviderResult is a payment provider's answer to a charge request,
// already mapped onto the internal status enum.
type ProviderResult struct {
	ExternalID string
	Status     PaymentStatus
}

// PaymentGateway initiates charges against external providers. Calls are
// bounded by caller-supplied timeouts; failures surface as ProviderError.
type PaymentGateway interface {
	Process(ctx context.Context, providerID string, amount float64, payerRef string) (ProviderResult, error)
}

// UsageCounter reports live usage of a feature for a tenant (campaign
// count, storage, API calls, ...). Reads tolerate slight staleness; the
// usage service caches them with a short TTL.
type UsageCounter interface {
	Count(ctx context.Context, tenantID string, feature Feature) (int, error)
}
