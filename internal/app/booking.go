package app

import (
	"context"
	"fmt"
	"time"

	"github.com/mvelabs/boardroom/internal/domain"
)

// BookingService exposes the booking lifecycle: request, confirm, reject,
// cancel, complete.
type BookingService struct {
	dispatcher *Dispatcher
	store      domain.ProjectionStore
	clock      domain.Clock
}

func NewBookingService(dispatcher *Dispatcher, store domain.ProjectionStore, clock domain.Clock) *BookingService {
	return &BookingService{dispatcher: dispatcher, store: store, clock: clock}
}

// Request submits a booking for a billboard and date range.
func (s *BookingService) Request(ctx context.Context, billboardID, clientID, tenantID string, start, end time.Time, price float64) (domain.BookingState, error) {
	id, err := newID()
	if err != nil {
		return domain.BookingState{}, fmt.Errorf("generating booking id: %w", err)
	}

	env := domain.NewEnvelope(
		domain.BookingRequestedPayload{
			BillboardID:    billboardID,
			ClientID:       clientID,
			TenantID:       tenantID,
			Start:          start,
			End:            end,
			RequestedPrice: price,
		},
		map[domain.EntityKind]string{
			domain.KindBooking:   id,
			domain.KindBillboard: billboardID,
			domain.KindTenant:    tenantID,
		},
		s.clock.Now(),
	)

	if err := s.dispatcher.Dispatch(ctx, env); err != nil {
		return domain.BookingState{}, err
	}
	return s.store.GetBooking(ctx, id)
}

// Confirm accepts a requested booking, optionally renegotiating the price
// (finalPrice 0 keeps the requested one).
func (s *BookingService) Confirm(ctx context.Context, id string, finalPrice float64) (domain.BookingState, error) {
	return s.transition(ctx, id, domain.BookingConfirmedPayload{FinalPrice: finalPrice})
}

// Reject declines a requested booking.
func (s *BookingService) Reject(ctx context.Context, id, reason string) (domain.BookingState, error) {
	return s.transition(ctx, id, domain.BookingRejectedPayload{Reason: reason})
}

// Cancel aborts a confirmed booking.
func (s *BookingService) Cancel(ctx context.Context, id, reason string) (domain.BookingState, error) {
	return s.transition(ctx, id, domain.BookingCancelledPayload{Reason: reason})
}

// Complete closes a finished campaign.
func (s *BookingService) Complete(ctx context.Context, id string) (domain.BookingState, error) {
	return s.transition(ctx, id, domain.BookingCompletedPayload{})
}

func (s *BookingService) Get(ctx context.Context, id string) (domain.BookingState, error) {
	return s.store.GetBooking(ctx, id)
}

// transition looks the booking up first so the envelope can target the
// billboard too — the dispatcher serializes on every target it sees.
func (s *BookingService) transition(ctx context.Context, id string, payload domain.Payload) (domain.BookingState, error) {
	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return domain.BookingState{}, err
	}

	env := domain.NewEnvelope(payload,
		map[domain.EntityKind]string{
			domain.KindBooking:   id,
			domain.KindBillboard: booking.BillboardID,
		},
		s.clock.Now(),
	)
	if err := s.dispatcher.Dispatch(ctx, env); err != nil {
		return domain.BookingState{}, err
	}
	return s.store.GetBooking(ctx, id)
}
