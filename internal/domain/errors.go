package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrTenantNotFound       = errors.New("tenant not found")
	ErrBillboardNotFound    = errors.New("billboard not found")
	ErrBookingNotFound      = errors.New("booking not found")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrPlanNotFound         = errors.New("billing plan not found")

	// ErrEventAlreadyApplied is returned by the store when an envelope id
	// is already present in the event log. The dispatcher treats it as a
	// successful no-op, making dispatch idempotent.
	ErrEventAlreadyApplied = errors.New("event already applied")
)

// ValidationError is returned when a precondition fails before any
// mutation. Recoverable by the caller: fix the input and retry.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// Validationf builds a ValidationError with a formatted reason.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// TransitionError is returned when an event is not allowed from the
// projection's current status.
type TransitionError struct {
	Kind    EntityKind
	Event   EventType
	Current string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %q is not valid for %s in state %q", e.Event, e.Kind, e.Current)
}

// ConflictError is returned when a projection write loses an optimistic
// version check. The caller should re-validate and retry once.
type ConflictError struct {
	Kind EntityKind
	ID   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("concurrent modification of %s %q", e.Kind, e.ID)
}

// ProviderError wraps a payment or notification dependency failure. It is
// recorded as business state (a failed payment), never propagated as a
// dispatch failure.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %q: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
