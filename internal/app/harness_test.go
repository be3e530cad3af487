package app_test

import (
	"context"
	"sync"
	"time"

	"github.com/mvelabs/boardroom/internal/adapter/fsm"
	"github.com/mvelabs/boardroom/internal/app"
	"github.com/mvelabs/boardroom/internal/domain"
)

// memStore is an in-memory ProjectionStore with the same idempotency and
// versioning contract as the SQLite adapter.
type memStore struct {
	mu            sync.Mutex
	events        map[string]bool
	tenants       map[string]domain.TenantState
	billboards    map[string]domain.BillboardState
	bookings      map[string]domain.BookingState
	payments      map[string]domain.PaymentState
	subscriptions map[string]domain.SubscriptionState
	commits       int
}

func newMemStore() *memStore {
	return &memStore{
		events:        make(map[string]bool),
		tenants:       make(map[string]domain.TenantState),
		billboards:    make(map[string]domain.BillboardState),
		bookings:      make(map[string]domain.BookingState),
		payments:      make(map[string]domain.PaymentState),
		subscriptions: make(map[string]domain.SubscriptionState),
	}
}

func (s *memStore) GetTenant(_ context.Context, id string) (domain.TenantState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return domain.TenantState{}, domain.ErrTenantNotFound
	}
	return t, nil
}

func (s *memStore) GetBillboard(_ context.Context, id string) (domain.BillboardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.billboards[id]
	if !ok {
		return domain.BillboardState{}, domain.ErrBillboardNotFound
	}
	return b, nil
}

func (s *memStore) GetBooking(_ context.Context, id string) (domain.BookingState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return domain.BookingState{}, domain.ErrBookingNotFound
	}
	return b, nil
}

func (s *memStore) GetPayment(_ context.Context, id string) (domain.PaymentState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return domain.PaymentState{}, domain.ErrPaymentNotFound
	}
	return p, nil
}

func (s *memStore) GetSubscription(_ context.Context, id string) (domain.SubscriptionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[id]
	if !ok {
		return domain.SubscriptionState{}, domain.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (s *memStore) ListBillboards(_ context.Context, filter domain.BillboardFilter) ([]domain.BillboardState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.BillboardState
	for _, b := range s.billboards {
		if filter.TenantID != "" && b.TenantID != filter.TenantID {
			continue
		}
		if filter.Status != nil && b.Status != *filter.Status {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *memStore) ListSubscriptionsDue(_ context.Context, before time.Time) ([]domain.SubscriptionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.SubscriptionState
	for _, sub := range s.subscriptions {
		switch sub.Status {
		case domain.SubscriptionTrial:
			if sub.TrialEndsAt != nil && !sub.TrialEndsAt.After(before) {
				out = append(out, sub)
			}
		case domain.SubscriptionActive:
			if !sub.CurrentPeriodEnd.After(before) {
				out = append(out, sub)
			}
		}
	}
	return out, nil
}

func (s *memStore) Applied(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[eventID], nil
}

func (s *memStore) Commit(_ context.Context, cs domain.ChangeSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.events[cs.Event.ID] {
		return domain.ErrEventAlreadyApplied
	}

	for _, t := range cs.Tenants {
		if err := checkVersion(s.tenants, t.ID, t.Version, domain.KindTenant); err != nil {
			return err
		}
	}
	for _, b := range cs.Billboards {
		if err := checkVersion(s.billboards, b.ID, b.Version, domain.KindBillboard); err != nil {
			return err
		}
	}
	for _, b := range cs.Bookings {
		if err := checkVersion(s.bookings, b.ID, b.Version, domain.KindBooking); err != nil {
			return err
		}
	}
	for _, p := range cs.Payments {
		if err := checkVersion(s.payments, p.ID, p.Version, domain.KindPayment); err != nil {
			return err
		}
	}
	for _, sub := range cs.Subscriptions {
		if err := checkVersion(s.subscriptions, sub.ID, sub.Version, domain.KindSubscription); err != nil {
			return err
		}
	}

	s.events[cs.Event.ID] = true
	for _, t := range cs.Tenants {
		t.Version++
		s.tenants[t.ID] = t
	}
	for _, b := range cs.Billboards {
		b.Version++
		s.billboards[b.ID] = b
	}
	for _, b := range cs.Bookings {
		b.Version++
		s.bookings[b.ID] = b
	}
	for _, p := range cs.Payments {
		p.Version++
		s.payments[p.ID] = p
	}
	for _, sub := range cs.Subscriptions {
		sub.Version++
		s.subscriptions[sub.ID] = sub
	}
	s.commits++
	return nil
}

type hasVersion interface {
	domain.TenantState | domain.BillboardState | domain.BookingState | domain.PaymentState | domain.SubscriptionState
}

func checkVersion[T hasVersion](m map[string]T, id string, version int64, kind domain.EntityKind) error {
	_, exists := m[id]
	if version == 0 && exists {
		return &domain.ConflictError{Kind: kind, ID: id}
	}
	if version > 0 {
		if !exists {
			return &domain.ConflictError{Kind: kind, ID: id}
		}
		current := currentVersion(m[id])
		if current != version {
			return &domain.ConflictError{Kind: kind, ID: id}
		}
	}
	return nil
}

func currentVersion[T hasVersion](v T) int64 {
	switch s := any(v).(type) {
	case domain.TenantState:
		return s.Version
	case domain.BillboardState:
		return s.Version
	case domain.BookingState:
		return s.Version
	case domain.PaymentState:
		return s.Version
	case domain.SubscriptionState:
		return s.Version
	}
	return 0
}

func (s *memStore) commitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// recorder captures side effects for assertions.
type recorder struct {
	mu       sync.Mutex
	events   []domain.Envelope
	notes    []domain.Notification
	activity []string
}

func (r *recorder) Publish(_ context.Context, env domain.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, env)
	return nil
}

func (r *recorder) Notify(_ context.Context, n domain.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
	return nil
}

func (r *recorder) Record(_ context.Context, _ string, _ map[string]any, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.activity = append(r.activity, message)
	return nil
}

func (r *recorder) published() []domain.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Envelope(nil), r.events...)
}

func (r *recorder) notifications() []domain.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Notification(nil), r.notes...)
}

// staticGateway answers every charge with a canned result or error.
type staticGateway struct {
	status domain.PaymentStatus
	err    error
}

func (g staticGateway) Process(_ context.Context, providerID string, _ float64, _ string) (domain.ProviderResult, error) {
	if g.err != nil {
		return domain.ProviderResult{}, g.err
	}
	return domain.ProviderResult{ExternalID: "ext-" + providerID, Status: g.status}, nil
}

// fixedClock returns a preset time, advanceable by tests.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(now time.Time) *fixedClock { return &fixedClock{now: now} }

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// harness bundles a dispatcher with its observable ports.
type harness struct {
	store      *memStore
	recorder   *recorder
	clock      *fixedClock
	dispatcher *app.Dispatcher
}

func newHarness() *harness {
	store := newMemStore()
	rec := &recorder{}
	clock := newFixedClock(time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC))
	return &harness{
		store:      store,
		recorder:   rec,
		clock:      clock,
		dispatcher: app.NewDispatcher(store, fsm.New(), rec, rec, rec, clock),
	}
}
