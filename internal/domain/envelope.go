package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntityKind identifies which projection an event targets.
type EntityKind string

const (
	KindTenant       EntityKind = "tenant"
	KindBillboard    EntityKind = "billboard"
	KindBooking      EntityKind = "booking"
	KindPayment      EntityKind = "payment"
	KindSubscription EntityKind = "subscription"
)

// EventType tags an envelope with the state change it describes.
type EventType string

const (
	EventBillboardRegistered          EventType = "billboard.registered"
	EventBillboardAvailabilityChanged EventType = "billboard.availability_changed"
	EventBillboardMaintenanceStarted  EventType = "billboard.maintenance_started"
	EventBillboardRetired             EventType = "billboard.retired"
	EventBillboardPriceApplied        EventType = "billboard.price_applied"

	EventBookingRequested EventType = "booking.requested"
	EventBookingConfirmed EventType = "booking.confirmed"
	EventBookingRejected  EventType = "booking.rejected"
	EventBookingCancelled EventType = "booking.cancelled"
	EventBookingCompleted EventType = "booking.completed"

	EventPaymentInitiated EventType = "payment.initiated"
	EventPaymentCompleted EventType = "payment.completed"
	EventPaymentFailed    EventType = "payment.failed"
	EventPaymentCancelled EventType = "payment.cancelled"

	EventSubscriptionStarted       EventType = "subscription.started"
	EventSubscriptionRenewed       EventType = "subscription.renewed"
	EventSubscriptionPaymentFailed EventType = "subscription.payment_failed"
	EventSubscriptionCancelled     EventType = "subscription.cancelled"
	EventSubscriptionExpired       EventType = "subscription.expired"
)

// Payload is the typed body of an envelope. Each event type has exactly
// one concrete payload shape; consumers switch on the concrete type.
type Payload interface {
	EventType() EventType
}

// Envelope is an immutable record of an intended state change. It is
// constructed once by a command service (or as a derived event by a
// reducer) and consumed once by the dispatcher. The ID doubles as the
// idempotency key at the persistence boundary.
type Envelope struct {
	ID         string
	Type       EventType
	Targets    map[EntityKind]string
	Payload    Payload
	OccurredAt time.Time
}

// NewEnvelope stamps a fresh envelope for the given payload and targets.
// Some events touch multiple projections (a booking confirmation touches
// both the booking and its billboard), hence targets is a map.
func NewEnvelope(payload Payload, targets map[EntityKind]string, now time.Time) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		Type:       payload.EventType(),
		Targets:    targets,
		Payload:    payload,
		OccurredAt: now,
	}
}

// NewDerivedID mints an entity id for records provisioned from inside a
// reducer (e.g. the trial subscription created on expiry).
func NewDerivedID() string { return uuid.NewString() }
