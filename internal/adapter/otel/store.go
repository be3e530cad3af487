package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mvelabs/boardroom/internal/domain"
)

const tracerName = "github.com/mvelabs/boardroom/internal/adapter/otel"

// TracingStore wraps a domain.ProjectionStore with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
type TracingStore struct {
	next   domain.ProjectionStore
	tracer trace.Tracer
}

// Compile-time check: TracingStore implements domain.ProjectionStore.
var _ domain.ProjectionStore = (*TracingStore)(nil)

// NewTracingStore creates a tracing decorator around the given store.
func NewTracingStore(next domain.ProjectionStore) *TracingStore {
	return &TracingStore{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (s *TracingStore) GetTenant(ctx context.Context, id string) (domain.TenantState, error) {
	ctx, span := s.tracer.Start(ctx, "ProjectionStore.GetTenant",
		trace.WithAttributes(attribute.String("tenant.id", id)),
	)
	defer span.End()

	tenant, err := s.next.GetTenant(ctx, id)
	recordError(span, err)
	return tenant, err
}

func (s *TracingStore) GetBillboard(ctx context.Context, id string) (domain.BillboardState, error) {
	ctx, span := s.tracer.Start(ctx, "ProjectionStore.GetBillboard",
		trace.WithAttributes(attribute.String("billboard.id", id)),
	)
	defer span.End()

	billboard, err := s.next.GetBillboard(ctx, id)
	recordError(span, err)
	return billboard, err
}

func (s *TracingStore) GetBooking(ctx context.Context, id string) (domain.BookingState, error) {
	ctx, span := s.tracer.Start(ctx, "ProjectionStore.GetBooking",
		trace.WithAttributes(attribute.String("booking.id", id)),
	)
	defer span.End()

	booking, err := s.next.GetBooking(ctx, id)
	recordError(span, err)
	return booking, err
}

func (s *TracingStore) GetPayment(ctx context.Context, id string) (domain.PaymentState, error) {
	ctx, span := s.tracer.Start(ctx, "ProjectionStore.GetPayment",
		trace.WithAttributes(attribute.String("payment.id", id)),
	)
	defer span.End()

	payment, err := s.next.GetPayment(ctx, id)
	recordError(span, err)
	return payment, err
}

func (s *TracingStore) GetSubscription(ctx context.Context, id string) (domain.SubscriptionState, error) {
	ctx, span := s.tracer.Start(ctx, "ProjectionStore.GetSubscription",
		trace.WithAttributes(attribute.String("subscription.id", id)),
	)
	defer span.End()

	sub, err := s.next.GetSubscription(ctx, id)
	recordError(span, err)
	return sub, err
}

func (s *TracingStore) ListBillboards(ctx context.Context, filter domain.BillboardFilter) ([]domain.BillboardState, error) {
	ctx, span := s.tracer.Start(ctx, "ProjectionStore.ListBillboards",
		trace.WithAttributes(
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)
	defer span.End()

	if filter.TenantID != "" {
		span.SetAttributes(attribute.String("filter.tenant_id", filter.TenantID))
	}
	if filter.Status != nil {
		span.SetAttributes(attribute.String("filter.status", string(*filter.Status)))
	}

	billboards, err := s.next.ListBillboards(ctx, filter)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int("result.count", len(billboards)))
	}
	return billboards, err
}

func (s *TracingStore) ListSubscriptionsDue(ctx context.Context, before time.Time) ([]domain.SubscriptionState, error) {
	ctx, span := s.tracer.Start(ctx, "ProjectionStore.ListSubscriptionsDue",
		trace.WithAttributes(attribute.String("before", before.Format(time.RFC3339))),
	)
	defer span.End()

	subs, err := s.next.ListSubscriptionsDue(ctx, before)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int("result.count", len(subs)))
	}
	return subs, err
}

func (s *TracingStore) Applied(ctx context.Context, eventID string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "ProjectionStore.Applied",
		trace.WithAttributes(attribute.String("event.id", eventID)),
	)
	defer span.End()

	applied, err := s.next.Applied(ctx, eventID)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Bool("result.applied", applied))
	}
	return applied, err
}

func (s *TracingStore) Commit(ctx context.Context, cs domain.ChangeSet) error {
	ctx, span := s.tracer.Start(ctx, "ProjectionStore.Commit",
		trace.WithAttributes(
			attribute.String("event.id", cs.Event.ID),
			attribute.String("event.type", string(cs.Event.Type)),
			attribute.Int("changes.tenants", len(cs.Tenants)),
			attribute.Int("changes.billboards", len(cs.Billboards)),
			attribute.Int("changes.bookings", len(cs.Bookings)),
			attribute.Int("changes.payments", len(cs.Payments)),
			attribute.Int("changes.subscriptions", len(cs.Subscriptions)),
		),
	)
	defer span.End()

	err := s.next.Commit(ctx, cs)
	recordError(span, err)
	return err
}

func recordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
