package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mvelabs/boardroom/internal/adapter/provider"
	"github.com/mvelabs/boardroom/internal/app"
	"github.com/mvelabs/boardroom/internal/domain"
)

// PaymentResponse is the API representation of a payment.
type PaymentResponse struct {
	ID            string  `json:"id" doc:"Unique identifier"`
	TenantID      string  `json:"tenant_id" doc:"Owning tenant"`
	Provider      string  `json:"provider" doc:"Payment provider"`
	Amount        float64 `json:"amount" doc:"Charge amount"`
	BookingID     string  `json:"booking_id,omitempty" doc:"Paid booking, when applicable"`
	ExternalID    string  `json:"external_id,omitempty" doc:"Provider's charge reference"`
	Status        string  `json:"status" doc:"Lifecycle state"`
	FailureReason string  `json:"failure_reason,omitempty" doc:"Why the payment failed"`
	InitiatedAt   string  `json:"initiated_at" doc:"Initiation timestamp (ISO 8601)"`
}

func toPaymentResponse(p domain.PaymentState) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		TenantID:      p.TenantID,
		Provider:      p.Provider,
		Amount:        p.Amount,
		BookingID:     p.BookingID,
		ExternalID:    p.ExternalID,
		Status:        string(p.Status),
		FailureReason: p.FailureReason,
		InitiatedAt:   p.InitiatedAt.Format(time.RFC3339),
	}
}

// --- Initiate ---

type InitiatePaymentInput struct {
	Body struct {
		TenantID  string  `json:"tenant_id" minLength:"1" doc:"Owning tenant"`
		Provider  string  `json:"provider" minLength:"1" doc:"Payment provider id"`
		Amount    float64 `json:"amount" exclusiveMinimum:"0" doc:"Charge amount"`
		PayerRef  string  `json:"payer_ref" minLength:"1" doc:"Provider-side payer reference"`
		BookingID string  `json:"booking_id,omitempty" doc:"Booking being paid, when applicable"`
	}
}

type InitiatePaymentOutput struct {
	Body PaymentResponse
}

// --- Get / Retry ---

type GetPaymentInput struct {
	ID string `path:"id" doc:"Payment ID"`
}

type GetPaymentOutput struct {
	Body PaymentResponse
}

type RetryPaymentInput struct {
	ID string `path:"id" doc:"Payment ID"`
}

type RetryPaymentOutput struct {
	Body PaymentResponse
}

// --- Webhook ---

// WebhookInput is an asynchronous provider callback. Status uses the
// provider's own vocabulary and is mapped at this boundary.
type WebhookInput struct {
	Provider string `path:"provider" doc:"Provider id"`
	Body     struct {
		PaymentID string `json:"payment_id" minLength:"1" doc:"Internal payment id"`
		Status    string `json:"status" minLength:"1" doc:"Provider status string"`
		Reason    string `json:"reason,omitempty" doc:"Failure detail, when failed"`
	}
}

type WebhookOutput struct {
	Body PaymentResponse
}

func registerPayments(api huma.API, svc *app.PaymentService) {
	huma.Register(api, huma.Operation{
		OperationID: "initiate-payment",
		Method:      http.MethodPost,
		Path:        "/api/v1/payments",
		Summary:     "Initiate a payment through a provider",
		Tags:        []string{"Payments"},
	}, func(ctx context.Context, input *InitiatePaymentInput) (*InitiatePaymentOutput, error) {
		p, err := svc.Initiate(ctx, input.Body.TenantID, input.Body.Provider,
			input.Body.Amount, input.Body.PayerRef, input.Body.BookingID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &InitiatePaymentOutput{Body: toPaymentResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-payment",
		Method:      http.MethodGet,
		Path:        "/api/v1/payments/{id}",
		Summary:     "Get a payment by ID",
		Tags:        []string{"Payments"},
	}, func(ctx context.Context, input *GetPaymentInput) (*GetPaymentOutput, error) {
		p, err := svc.Get(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetPaymentOutput{Body: toPaymentResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "retry-payment",
		Method:      http.MethodPost,
		Path:        "/api/v1/payments/{id}/retry",
		Summary:     "Retry a failed payment",
		Tags:        []string{"Payments"},
	}, func(ctx context.Context, input *RetryPaymentInput) (*RetryPaymentOutput, error) {
		p, err := svc.Retry(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &RetryPaymentOutput{Body: toPaymentResponse(p)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "payment-webhook",
		Method:      http.MethodPost,
		Path:        "/api/v1/payments/webhooks/{provider}",
		Summary:     "Receive an asynchronous provider callback",
		Tags:        []string{"Payments"},
	}, func(ctx context.Context, input *WebhookInput) (*WebhookOutput, error) {
		status, err := provider.MapStatus(input.Body.Status)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		p, err := svc.HandleCallback(ctx, input.Body.PaymentID, status, input.Body.Reason)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &WebhookOutput{Body: toPaymentResponse(p)}, nil
	})
}
