package app

import (
	"context"
	"fmt"

	"github.com/mvelabs/boardroom/internal/domain"
)

// BillboardService exposes billboard commands and queries. Commands build
// envelopes and hand them to the dispatcher; queries read projections.
type BillboardService struct {
	dispatcher *Dispatcher
	store      domain.ProjectionStore
	clock      domain.Clock
}

func NewBillboardService(dispatcher *Dispatcher, store domain.ProjectionStore, clock domain.Clock) *BillboardService {
	return &BillboardService{dispatcher: dispatcher, store: store, clock: clock}
}

// Register adds a billboard to a tenant's inventory.
func (s *BillboardService) Register(ctx context.Context, tenantID, name, location string, basePrice float64) (domain.BillboardState, error) {
	id, err := newID()
	if err != nil {
		return domain.BillboardState{}, fmt.Errorf("generating billboard id: %w", err)
	}

	env := domain.NewEnvelope(
		domain.BillboardRegistered{
			TenantID:  tenantID,
			Name:      name,
			Location:  location,
			BasePrice: basePrice,
		},
		map[domain.EntityKind]string{
			domain.KindBillboard: id,
			domain.KindTenant:    tenantID,
		},
		s.clock.Now(),
	)

	if err := s.dispatcher.Dispatch(ctx, env); err != nil {
		return domain.BillboardState{}, err
	}
	return s.store.GetBillboard(ctx, id)
}

// StartMaintenance takes an available billboard out of rotation.
func (s *BillboardService) StartMaintenance(ctx context.Context, id, reason string) (domain.BillboardState, error) {
	return s.transition(ctx, id, domain.BillboardMaintenanceStarted{Reason: reason})
}

// Retire closes a billboard permanently.
func (s *BillboardService) Retire(ctx context.Context, id, reason string) (domain.BillboardState, error) {
	return s.transition(ctx, id, domain.BillboardRetiredPayload{Reason: reason})
}

// EndMaintenance returns a billboard to rotation.
func (s *BillboardService) EndMaintenance(ctx context.Context, id string) (domain.BillboardState, error) {
	return s.transition(ctx, id, domain.BillboardAvailabilityChanged{
		From:   domain.BillboardMaintenance,
		To:     domain.BillboardAvailable,
		Reason: "maintenance ended",
	})
}

func (s *BillboardService) transition(ctx context.Context, id string, payload domain.Payload) (domain.BillboardState, error) {
	env := domain.NewEnvelope(payload,
		map[domain.EntityKind]string{domain.KindBillboard: id},
		s.clock.Now(),
	)
	if err := s.dispatcher.Dispatch(ctx, env); err != nil {
		return domain.BillboardState{}, err
	}
	return s.store.GetBillboard(ctx, id)
}

func (s *BillboardService) Get(ctx context.Context, id string) (domain.BillboardState, error) {
	return s.store.GetBillboard(ctx, id)
}

func (s *BillboardService) List(ctx context.Context, filter domain.BillboardFilter) ([]domain.BillboardState, error) {
	return s.store.ListBillboards(ctx, filter)
}
