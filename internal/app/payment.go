package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mvelabs/boardroom/internal/domain"
)

// ProviderTimeout bounds every call to an external payment provider. A
// provider that does not answer in time produces a failed payment, never
// one left pending indefinitely.
const ProviderTimeout = 30 * time.Second

// PaymentService initiates charges through the gateway and translates
// provider callbacks into payment events. The payment id is the reference
// sent to the provider, and providers echo it back in webhooks.
type PaymentService struct {
	dispatcher *Dispatcher
	store      domain.ProjectionStore
	gateway    domain.PaymentGateway
	clock      domain.Clock
}

func NewPaymentService(dispatcher *Dispatcher, store domain.ProjectionStore, gateway domain.PaymentGateway, clock domain.Clock) *PaymentService {
	return &PaymentService{dispatcher: dispatcher, store: store, gateway: gateway, clock: clock}
}

// Initiate charges the payer through the named provider. A provider
// failure is recorded as a failed payment — the Initiate call itself
// succeeds and returns the failed projection.
func (s *PaymentService) Initiate(ctx context.Context, tenantID, provider string, amount float64, payerRef, bookingID string) (domain.PaymentState, error) {
	id, err := newID()
	if err != nil {
		return domain.PaymentState{}, fmt.Errorf("generating payment id: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, ProviderTimeout)
	result, provErr := s.gateway.Process(callCtx, provider, amount, payerRef)
	cancel()

	initiated := domain.PaymentInitiated{
		TenantID:   tenantID,
		Provider:   provider,
		Amount:     amount,
		PayerRef:   payerRef,
		BookingID:  bookingID,
		ExternalID: result.ExternalID,
		Status:     result.Status,
	}
	if provErr != nil {
		initiated.ExternalID = ""
		initiated.Status = domain.PaymentPending
	}

	targets := map[domain.EntityKind]string{
		domain.KindPayment: id,
		domain.KindTenant:  tenantID,
	}

	if err := s.dispatcher.Dispatch(ctx, domain.NewEnvelope(initiated, targets, s.clock.Now())); err != nil {
		return domain.PaymentState{}, err
	}

	if provErr != nil {
		var pErr *domain.ProviderError
		reason := provErr.Error()
		if errors.As(provErr, &pErr) {
			reason = pErr.Err.Error()
		}
		failed := domain.NewEnvelope(
			domain.PaymentFailedPayload{Reason: reason},
			map[domain.EntityKind]string{domain.KindPayment: id},
			s.clock.Now(),
		)
		if err := s.dispatcher.Dispatch(ctx, failed); err != nil {
			return domain.PaymentState{}, err
		}
	}

	return s.store.GetPayment(ctx, id)
}

// HandleCallback translates an asynchronous provider webhook into the
// matching payment event. The paymentID is the reference the provider
// echoes back; providerStatus is the provider's raw status string.
func (s *PaymentService) HandleCallback(ctx context.Context, paymentID string, status domain.PaymentStatus, reason string) (domain.PaymentState, error) {
	payment, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return domain.PaymentState{}, err
	}

	var payload domain.Payload
	switch status {
	case domain.PaymentCompleted:
		payload = domain.PaymentCompletedPayload{Amount: payment.Amount}
	case domain.PaymentFailed:
		payload = domain.PaymentFailedPayload{Reason: reason}
	case domain.PaymentCancelled:
		payload = domain.PaymentCancelledPayload{Reason: reason}
	case domain.PaymentPending, domain.PaymentProcessing:
		// Intermediate callbacks carry no state change.
		return payment, nil
	default:
		return domain.PaymentState{}, domain.Validationf("unknown payment status %q", status)
	}

	env := domain.NewEnvelope(payload,
		map[domain.EntityKind]string{
			domain.KindPayment: paymentID,
			domain.KindTenant:  payment.TenantID,
		},
		s.clock.Now(),
	)
	if err := s.dispatcher.Dispatch(ctx, env); err != nil {
		return domain.PaymentState{}, err
	}
	return s.store.GetPayment(ctx, paymentID)
}

// Retry re-initiates a failed payment as a brand-new attempt. The failed
// projection is never mutated.
func (s *PaymentService) Retry(ctx context.Context, failedID string) (domain.PaymentState, error) {
	failed, err := s.store.GetPayment(ctx, failedID)
	if err != nil {
		return domain.PaymentState{}, err
	}
	if failed.Status != domain.PaymentFailed {
		return domain.PaymentState{}, domain.Validationf("payment %s is %q, only failed payments can be retried", failedID, failed.Status)
	}
	return s.Initiate(ctx, failed.TenantID, failed.Provider, failed.Amount, failed.PayerRef, failed.BookingID)
}

func (s *PaymentService) Get(ctx context.Context, id string) (domain.PaymentState, error) {
	return s.store.GetPayment(ctx, id)
}
