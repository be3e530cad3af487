package app_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mvelabs/boardroom/internal/app"
	"github.com/mvelabs/boardroom/internal/domain"
)

func TestPaymentService_Initiate(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	svc := app.NewPaymentService(h.dispatcher, h.store, staticGateway{status: domain.PaymentProcessing}, h.clock)

	p, err := svc.Initiate(ctx, "tn-1", "stripe", 900, "cus_1", "")
	if err != nil {
		t.Fatalf("initiating: %v", err)
	}

	if p.Status != domain.PaymentProcessing {
		t.Errorf("Status = %q, want processing", p.Status)
	}
	if p.ExternalID != "ext-stripe" {
		t.Errorf("ExternalID = %q, want ext-stripe", p.ExternalID)
	}

	tenant, _ := h.store.GetTenant(ctx, "tn-1")
	if tenant.PaymentCount != 1 {
		t.Errorf("PaymentCount = %d, want 1", tenant.PaymentCount)
	}
	if tenant.TotalRevenue != 0 {
		t.Errorf("TotalRevenue = %g, want 0 before completion", tenant.TotalRevenue)
	}
}

func TestPaymentService_ProviderFailureRecordedAsState(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	gw := staticGateway{err: &domain.ProviderError{Provider: "stripe", Err: errors.New("connection refused")}}
	svc := app.NewPaymentService(h.dispatcher, h.store, gw, h.clock)

	// The Initiate call itself succeeds; the failure is business state.
	p, err := svc.Initiate(ctx, "tn-1", "stripe", 900, "cus_1", "")
	if err != nil {
		t.Fatalf("initiating: %v", err)
	}

	if p.Status != domain.PaymentFailed {
		t.Errorf("Status = %q, want failed", p.Status)
	}
	if p.FailureReason != "connection refused" {
		t.Errorf("FailureReason = %q", p.FailureReason)
	}
	if p.ExternalID != "" {
		t.Errorf("ExternalID = %q, want empty on provider failure", p.ExternalID)
	}
}

func TestPaymentService_CallbackCompletes(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	svc := app.NewPaymentService(h.dispatcher, h.store, staticGateway{status: domain.PaymentProcessing}, h.clock)

	p, err := svc.Initiate(ctx, "tn-1", "stripe", 900, "cus_1", "")
	if err != nil {
		t.Fatalf("initiating: %v", err)
	}

	completed, err := svc.HandleCallback(ctx, p.ID, domain.PaymentCompleted, "")
	if err != nil {
		t.Fatalf("handling callback: %v", err)
	}
	if completed.Status != domain.PaymentCompleted {
		t.Errorf("Status = %q, want completed", completed.Status)
	}

	tenant, _ := h.store.GetTenant(ctx, "tn-1")
	if tenant.TotalRevenue != 900 {
		t.Errorf("TotalRevenue = %g, want 900", tenant.TotalRevenue)
	}

	// A repeated completion callback is rejected by the transition table,
	// so revenue is never counted twice.
	if _, err := svc.HandleCallback(ctx, p.ID, domain.PaymentCompleted, ""); err == nil {
		t.Fatal("expected error on duplicate completion")
	}
	tenant, _ = h.store.GetTenant(ctx, "tn-1")
	if tenant.TotalRevenue != 900 {
		t.Errorf("TotalRevenue = %g after duplicate callback, want 900", tenant.TotalRevenue)
	}
}

func TestPaymentService_IntermediateCallbackIsNoop(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	svc := app.NewPaymentService(h.dispatcher, h.store, staticGateway{status: domain.PaymentPending}, h.clock)

	p, err := svc.Initiate(ctx, "tn-1", "stripe", 900, "cus_1", "")
	if err != nil {
		t.Fatalf("initiating: %v", err)
	}

	got, err := svc.HandleCallback(ctx, p.ID, domain.PaymentProcessing, "")
	if err != nil {
		t.Fatalf("handling callback: %v", err)
	}
	if got.Status != domain.PaymentPending {
		t.Errorf("Status = %q, want pending (intermediate callbacks carry no change)", got.Status)
	}
}

func TestPaymentService_Retry(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	gw := staticGateway{err: &domain.ProviderError{Provider: "stripe", Err: errors.New("timeout")}}
	svc := app.NewPaymentService(h.dispatcher, h.store, gw, h.clock)

	failed, err := svc.Initiate(ctx, "tn-1", "stripe", 900, "cus_1", "bk-1")
	if err != nil {
		t.Fatalf("initiating: %v", err)
	}
	if failed.Status != domain.PaymentFailed {
		t.Fatalf("Status = %q, want failed", failed.Status)
	}

	// Retrying with a working provider creates a brand-new payment.
	working := app.NewPaymentService(h.dispatcher, h.store, staticGateway{status: domain.PaymentProcessing}, h.clock)
	retried, err := working.Retry(ctx, failed.ID)
	if err != nil {
		t.Fatalf("retrying: %v", err)
	}

	if retried.ID == failed.ID {
		t.Error("retry must create a new payment, not mutate the failed one")
	}
	if retried.Status != domain.PaymentProcessing {
		t.Errorf("Status = %q, want processing", retried.Status)
	}
	if retried.BookingID != "bk-1" || retried.Amount != 900 {
		t.Errorf("retry did not carry over the charge: %+v", retried)
	}

	original, _ := h.store.GetPayment(ctx, failed.ID)
	if original.Status != domain.PaymentFailed {
		t.Errorf("original status = %q, should stay failed", original.Status)
	}
}

func TestPaymentService_RetryNonFailed(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	svc := app.NewPaymentService(h.dispatcher, h.store, staticGateway{status: domain.PaymentProcessing}, h.clock)

	p, err := svc.Initiate(ctx, "tn-1", "stripe", 900, "cus_1", "")
	if err != nil {
		t.Fatalf("initiating: %v", err)
	}

	_, err = svc.Retry(ctx, p.ID)
	var valErr *domain.ValidationError
	if !errors.As(err, &valErr) {
		t.Errorf("got %v, want ValidationError", err)
	}
}
