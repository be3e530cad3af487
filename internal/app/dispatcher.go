package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mvelabs/boardroom/internal/domain"
)

// Dispatcher runs the validate → apply → persist → derived pipeline for
// one envelope at a time. Failure before the commit has zero observable
// effect; derived events and side effects run only after the triggering
// event's own commit succeeds, which gives cross-projection events a
// causal order.
type Dispatcher struct {
	store     domain.ProjectionStore
	validator domain.TransitionValidator
	publisher domain.EventPublisher
	notifier  domain.Notifier
	activity  domain.ActivityLog
	clock     domain.Clock
	locks     *entityLocks
}

// NewDispatcher creates a dispatcher with the given adapters.
func NewDispatcher(
	store domain.ProjectionStore,
	validator domain.TransitionValidator,
	publisher domain.EventPublisher,
	notifier domain.Notifier,
	activity domain.ActivityLog,
	clock domain.Clock,
) *Dispatcher {
	return &Dispatcher{
		store:     store,
		validator: validator,
		publisher: publisher,
		notifier:  notifier,
		activity:  activity,
		clock:     clock,
		locks:     newEntityLocks(),
	}
}

// Dispatch applies the envelope and then its derived events in FIFO
// order. A derived event failing after the trigger committed is reported,
// but the trigger's commit stands — it is business state by then.
func (d *Dispatcher) Dispatch(ctx context.Context, env domain.Envelope) error {
	queue := []domain.Envelope{env}
	for i := 0; len(queue) > 0; i++ {
		next := queue[0]
		queue = queue[1:]

		derived, err := d.dispatchOne(ctx, next)
		if err != nil {
			if i == 0 {
				return err
			}
			return fmt.Errorf("derived event %s (%s): %w", next.Type, next.ID, err)
		}
		queue = append(queue, derived...)
	}
	return nil
}

// dispatchOne serializes on the envelope's targets, applies it against
// fresh copies of the projections and commits atomically. A duplicate
// envelope id makes the whole call a successful no-op.
func (d *Dispatcher) dispatchOne(ctx context.Context, env domain.Envelope) ([]domain.Envelope, error) {
	unlock := d.locks.lockTargets(env.Targets)
	defer unlock()

	// A redelivered envelope must not reach validation: the projections
	// already reflect it, so the transition would look illegal.
	applied, err := d.store.Applied(ctx, env.ID)
	if err != nil {
		return nil, err
	}
	if applied {
		return nil, nil
	}

	cs, derived, err := d.apply(ctx, env)
	if err != nil {
		return nil, err
	}

	if err := d.store.Commit(ctx, cs); err != nil {
		if errors.Is(err, domain.ErrEventAlreadyApplied) {
			return nil, nil
		}
		return nil, err
	}

	d.sideEffects(ctx, env, cs)
	return derived, nil
}

// apply builds the change set for one envelope. All mutations happen on
// local copies; nothing is observable until Commit.
func (d *Dispatcher) apply(ctx context.Context, env domain.Envelope) (domain.ChangeSet, []domain.Envelope, error) {
	now := env.OccurredAt
	cs := domain.ChangeSet{Event: env}
	var derived []domain.Envelope

	switch p := env.Payload.(type) {
	case domain.BillboardRegistered:
		id, err := d.target(env, domain.KindBillboard)
		if err != nil {
			return cs, nil, err
		}
		if err := d.mustNotExist(ctx, domain.KindBillboard, id); err != nil {
			return cs, nil, err
		}
		billboard, err := domain.NewBillboardState(id, p, now)
		if err != nil {
			return cs, nil, err
		}
		tenant, _, err := d.loadOrNewTenant(ctx, p.TenantID, now)
		if err != nil {
			return cs, nil, err
		}
		tenant.RecordBillboard(now)
		cs.Billboards = append(cs.Billboards, billboard)
		cs.Tenants = append(cs.Tenants, tenant)

	case domain.BillboardAvailabilityChanged:
		billboard, err := d.loadBillboard(ctx, env)
		if err != nil {
			return cs, nil, err
		}
		if err := d.validate(ctx, domain.KindBillboard, env.Type, string(billboard.Status), string(p.To)); err != nil {
			return cs, nil, err
		}
		if err := billboard.ApplyAvailabilityChange(p, now); err != nil {
			return cs, nil, err
		}
		cs.Billboards = append(cs.Billboards, billboard)

	case domain.BillboardMaintenanceStarted:
		billboard, err := d.loadBillboard(ctx, env)
		if err != nil {
			return cs, nil, err
		}
		if err := d.validate(ctx, domain.KindBillboard, env.Type, string(billboard.Status), string(domain.BillboardMaintenance)); err != nil {
			return cs, nil, err
		}
		if err := billboard.ApplyMaintenanceStarted(p, now); err != nil {
			return cs, nil, err
		}
		cs.Billboards = append(cs.Billboards, billboard)

	case domain.BillboardRetiredPayload:
		billboard, err := d.loadBillboard(ctx, env)
		if err != nil {
			return cs, nil, err
		}
		if err := d.validate(ctx, domain.KindBillboard, env.Type, string(billboard.Status), string(domain.BillboardRetired)); err != nil {
			return cs, nil, err
		}
		if err := billboard.ApplyRetired(p, now); err != nil {
			return cs, nil, err
		}
		cs.Billboards = append(cs.Billboards, billboard)

	case domain.BillboardPriceApplied:
		billboard, err := d.loadBillboard(ctx, env)
		if err != nil {
			return cs, nil, err
		}
		if err := billboard.ApplyPriceApplied(p, now); err != nil {
			return cs, nil, err
		}
		cs.Billboards = append(cs.Billboards, billboard)

	case domain.BookingRequestedPayload:
		id, err := d.target(env, domain.KindBooking)
		if err != nil {
			return cs, nil, err
		}
		if err := d.mustNotExist(ctx, domain.KindBooking, id); err != nil {
			return cs, nil, err
		}
		billboard, err := d.loadBillboard(ctx, env)
		if err != nil {
			return cs, nil, err
		}
		booking, err := domain.NewBookingState(id, p, &billboard, now)
		if err != nil {
			return cs, nil, err
		}
		tenant, _, err := d.loadOrNewTenant(ctx, p.TenantID, now)
		if err != nil {
			return cs, nil, err
		}
		tenant.RecordBooking(now)
		cs.Bookings = append(cs.Bookings, booking)
		cs.Billboards = append(cs.Billboards, billboard)
		cs.Tenants = append(cs.Tenants, tenant)

	case domain.BookingConfirmedPayload:
		booking, billboard, err := d.loadBookingPair(ctx, env)
		if err != nil {
			return cs, nil, err
		}
		if err := d.validate(ctx, domain.KindBooking, env.Type, string(booking.Status), string(domain.BookingConfirmed)); err != nil {
			return cs, nil, err
		}
		derived, err = booking.ApplyConfirmed(p, &billboard, now)
		if err != nil {
			return cs, nil, err
		}
		cs.Bookings = append(cs.Bookings, booking)
		cs.Billboards = append(cs.Billboards, billboard)

	case domain.BookingRejectedPayload:
		booking, billboard, err := d.loadBookingPair(ctx, env)
		if err != nil {
			return cs, nil, err
		}
		if err := d.validate(ctx, domain.KindBooking, env.Type, string(booking.Status), string(domain.BookingRejected)); err != nil {
			return cs, nil, err
		}
		if err := booking.ApplyRejected(p, &billboard, now); err != nil {
			return cs, nil, err
		}
		cs.Bookings = append(cs.Bookings, booking)
		cs.Billboards = append(cs.Billboards, billboard)

	case domain.BookingCancelledPayload:
		booking, billboard, err := d.loadBookingPair(ctx, env)
		if err != nil {
			return cs, nil, err
		}
		if err := d.validate(ctx, domain.KindBooking, env.Type, string(booking.Status), string(domain.BookingCancelled)); err != nil {
			return cs, nil, err
		}
		derived, err = booking.ApplyCancelled(p, &billboard, now)
		if err != nil {
			return cs, nil, err
		}
		cs.Bookings = append(cs.Bookings, booking)
		cs.Billboards = append(cs.Billboards, billboard)

	case domain.BookingCompletedPayload:
		booking, billboard, err := d.loadBookingPair(ctx, env)
		if err != nil {
			return cs, nil, err
		}
		if err := d.validate(ctx, domain.KindBooking, env.Type, string(booking.Status), string(domain.BookingCompleted)); err != nil {
			return cs, nil, err
		}
		derived, err = booking.ApplyCompleted(&billboard, now)
		if err != nil {
			return cs, nil, err
		}
		cs.Bookings = append(cs.Bookings, booking)
		cs.Billboards = append(cs.Billboards, billboard)

	case domain.PaymentInitiated:
		id, err := d.target(env, domain.KindPayment)
		if err != nil {
			return cs, nil, err
		}
		if err := d.mustNotExist(ctx, domain.KindPayment, id); err != nil {
			return cs, nil, err
		}
		payment, err := domain.NewPaymentState(id, p, now)
		if err != nil {
			return cs, nil, err
		}
		tenant, _, err := d.loadOrNewTenant(ctx, p.TenantID, now)
		if err != nil {
			return cs, nil, err
		}
		tenant.RecordPayment(now)
		cs.Payments = append(cs.Payments, payment)
		cs.Tenants = append(cs.Tenants, tenant)

	case domain.PaymentCompletedPayload:
		payment, err := d.loadPayment(ctx, env)
		if err != nil {
			return cs, nil, err
		}
		if err := d.validate(ctx, domain.KindPayment, env.Type, string(payment.Status), string(domain.PaymentCompleted)); err != nil {
			return cs, nil, err
		}
		tenant, _, err := d.loadOrNewTenant(ctx, payment.TenantID, now)
		if err != nil {
			return cs, nil, err
		}
		payment.ApplyCompleted(&tenant, now)
		cs.Payments = append(cs.Payments, payment)
		cs.Tenants = append(cs.Tenants, tenant)

	case domain.PaymentFailedPayload:
		payment, err := d.loadPayment(ctx, env)
		if err != nil {
			return cs, nil, err
		}
		if err := d.validate(ctx, domain.KindPayment, env.Type, string(payment.Status), string(domain.PaymentFailed)); err != nil {
			return cs, nil, err
		}
		payment.ApplyFailed(p.Reason, now)
		cs.Payments = append(cs.Payments, payment)

	case domain.PaymentCancelledPayload:
		payment, err := d.loadPayment(ctx, env)
		if err != nil {
			return cs, nil, err
		}
		if err := d.validate(ctx, domain.KindPayment, env.Type, string(payment.Status), string(domain.PaymentCancelled)); err != nil {
			return cs, nil, err
		}
		payment.ApplyCancelled(p.Reason, now)
		cs.Payments = append(cs.Payments, payment)

	case domain.SubscriptionStarted:
		id, err := d.target(env, domain.KindSubscription)
		if err != nil {
			return cs, nil, err
		}
		if err := d.mustNotExist(ctx, domain.KindSubscription, id); err != nil {
			return cs, nil, err
		}
		plan, err := domain.PlanByID(p.PlanID)
		if err != nil {
			return cs, nil, err
		}
		sub, err := domain.NewSubscriptionState(id, p, plan, now)
		if err != nil {
			return cs, nil, err
		}
		tenant, created, err := d.loadOrNewTenant(ctx, p.TenantID, now)
		if err != nil {
			return cs, nil, err
		}
		cs.Subscriptions = append(cs.Subscriptions, sub)
		if created {
			cs.Tenants = append(cs.Tenants, tenant)
		}

	case domain.SubscriptionRenewed:
		sub, err := d.loadSubscription(ctx, env)
		if err != nil {
			return cs, nil, err
		}
		if err := d.validate(ctx, domain.KindSubscription, env.Type, string(sub.Status), string(domain.SubscriptionActive)); err != nil {
			return cs, nil, err
		}
		if err := sub.ApplyRenewed(p, now); err != nil {
			return cs, nil, err
		}
		cs.Subscriptions = append(cs.Subscriptions, sub)

	case domain.SubscriptionPaymentFailed:
		sub, err := d.loadSubscription(ctx, env)
		if err != nil {
			return cs, nil, err
		}
		from := sub.Status
		to := sub.ApplyPaymentFailed(now)
		if err := d.validate(ctx, domain.KindSubscription, env.Type, string(from), string(to)); err != nil {
			return cs, nil, err
		}
		cs.Subscriptions = append(cs.Subscriptions, sub)

	case domain.SubscriptionCancelledPayload:
		sub, err := d.loadSubscription(ctx, env)
		if err != nil {
			return cs, nil, err
		}
		if err := d.validate(ctx, domain.KindSubscription, env.Type, string(sub.Status), string(domain.SubscriptionCancelled)); err != nil {
			return cs, nil, err
		}
		derived = sub.ApplyCancelled(p, now)
		cs.Subscriptions = append(cs.Subscriptions, sub)

	case domain.SubscriptionExpiredPayload:
		sub, err := d.loadSubscription(ctx, env)
		if err != nil {
			return cs, nil, err
		}
		if err := d.validate(ctx, domain.KindSubscription, env.Type, string(sub.Status), string(domain.SubscriptionExpired)); err != nil {
			return cs, nil, err
		}
		derived = sub.ApplyExpired(now)
		cs.Subscriptions = append(cs.Subscriptions, sub)

	default:
		return cs, nil, domain.Validationf("unknown event type %q", env.Type)
	}

	return cs, derived, nil
}

func (d *Dispatcher) validate(ctx context.Context, kind domain.EntityKind, event domain.EventType, from, to string) error {
	return d.validator.Validate(ctx, kind, event, from, to)
}

func (d *Dispatcher) target(env domain.Envelope, kind domain.EntityKind) (string, error) {
	id, ok := env.Targets[kind]
	if !ok || id == "" {
		return "", domain.Validationf("event %s is missing its %s target", env.Type, kind)
	}
	return id, nil
}

// mustNotExist guards creation events against id reuse.
func (d *Dispatcher) mustNotExist(ctx context.Context, kind domain.EntityKind, id string) error {
	var err error
	switch kind {
	case domain.KindBillboard:
		_, err = d.store.GetBillboard(ctx, id)
	case domain.KindBooking:
		_, err = d.store.GetBooking(ctx, id)
	case domain.KindPayment:
		_, err = d.store.GetPayment(ctx, id)
	case domain.KindSubscription:
		_, err = d.store.GetSubscription(ctx, id)
	}
	if err == nil {
		return domain.Validationf("%s %q already exists", kind, id)
	}
	if isNotFound(err) {
		return nil
	}
	return err
}

func (d *Dispatcher) loadBillboard(ctx context.Context, env domain.Envelope) (domain.BillboardState, error) {
	id, err := d.target(env, domain.KindBillboard)
	if err != nil {
		return domain.BillboardState{}, err
	}
	return d.store.GetBillboard(ctx, id)
}

func (d *Dispatcher) loadPayment(ctx context.Context, env domain.Envelope) (domain.PaymentState, error) {
	id, err := d.target(env, domain.KindPayment)
	if err != nil {
		return domain.PaymentState{}, err
	}
	return d.store.GetPayment(ctx, id)
}

func (d *Dispatcher) loadSubscription(ctx context.Context, env domain.Envelope) (domain.SubscriptionState, error) {
	id, err := d.target(env, domain.KindSubscription)
	if err != nil {
		return domain.SubscriptionState{}, err
	}
	return d.store.GetSubscription(ctx, id)
}

// loadBookingPair loads a booking together with its billboard. The
// billboard id comes from the booking projection, not the envelope, so
// booking commands only need the booking target.
func (d *Dispatcher) loadBookingPair(ctx context.Context, env domain.Envelope) (domain.BookingState, domain.BillboardState, error) {
	id, err := d.target(env, domain.KindBooking)
	if err != nil {
		return domain.BookingState{}, domain.BillboardState{}, err
	}
	booking, err := d.store.GetBooking(ctx, id)
	if err != nil {
		return domain.BookingState{}, domain.BillboardState{}, err
	}
	billboard, err := d.store.GetBillboard(ctx, booking.BillboardID)
	if err != nil {
		return domain.BookingState{}, domain.BillboardState{}, err
	}
	return booking, billboard, nil
}

// loadOrNewTenant returns the tenant projection, creating it on the first
// event that references the tenant id.
func (d *Dispatcher) loadOrNewTenant(ctx context.Context, id string, now time.Time) (domain.TenantState, bool, error) {
	if id == "" {
		return domain.TenantState{}, false, domain.Validationf("event is missing a tenant id")
	}
	tenant, err := d.store.GetTenant(ctx, id)
	if err == nil {
		return tenant, false, nil
	}
	if errors.Is(err, domain.ErrTenantNotFound) {
		return domain.NewTenantState(id, now), true, nil
	}
	return domain.TenantState{}, false, err
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrTenantNotFound) ||
		errors.Is(err, domain.ErrBillboardNotFound) ||
		errors.Is(err, domain.ErrBookingNotFound) ||
		errors.Is(err, domain.ErrPaymentNotFound) ||
		errors.Is(err, domain.ErrSubscriptionNotFound)
}

// sideEffects runs the post-commit hooks: broadcast, activity log and
// user notifications. All advisory — failures are logged, never returned.
func (d *Dispatcher) sideEffects(ctx context.Context, env domain.Envelope, cs domain.ChangeSet) {
	if err := d.publisher.Publish(ctx, env); err != nil {
		slog.ErrorContext(ctx, "publishing committed event", "event", env.Type, "event_id", env.ID, "error", err)
	}

	props := map[string]any{"event_id": env.ID}
	for kind, id := range env.Targets {
		props[string(kind)] = id
	}
	if err := d.activity.Record(ctx, primarySubject(env), props, string(env.Type)); err != nil {
		slog.ErrorContext(ctx, "recording activity", "event", env.Type, "error", err)
	}

	if n, ok := notificationFor(env, cs); ok {
		if err := d.notifier.Notify(ctx, n); err != nil {
			slog.ErrorContext(ctx, "sending notification", "event", env.Type, "error", err)
		}
	}
}

// primarySubject picks the most specific target as the audit subject.
func primarySubject(env domain.Envelope) string {
	for _, kind := range []domain.EntityKind{
		domain.KindBooking, domain.KindPayment, domain.KindSubscription,
		domain.KindBillboard, domain.KindTenant,
	} {
		if id, ok := env.Targets[kind]; ok {
			return id
		}
	}
	return ""
}
