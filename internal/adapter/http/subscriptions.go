package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mvelabs/boardroom/internal/app"
	"github.com/mvelabs/boardroom/internal/domain"
)

// SubscriptionResponse is the API representation of a subscription.
type SubscriptionResponse struct {
	ID                    string  `json:"id" doc:"Unique identifier"`
	TenantID              string  `json:"tenant_id" doc:"Enrolled tenant"`
	PlanID                string  `json:"plan_id" doc:"Billing plan"`
	Interval              string  `json:"interval" doc:"Billing interval"`
	Status                string  `json:"status" doc:"Lifecycle state"`
	PaymentStatus         string  `json:"payment_status" doc:"Billing health"`
	CurrentPeriodStart    string  `json:"current_period_start" doc:"Period start (ISO 8601)"`
	CurrentPeriodEnd      string  `json:"current_period_end" doc:"Period end (ISO 8601)"`
	TrialEndsAt           string  `json:"trial_ends_at,omitempty" doc:"Trial end, when trialing"`
	EndsAt                string  `json:"ends_at,omitempty" doc:"Effective end, when closing"`
	FailedPaymentAttempts int     `json:"failed_payment_attempts" doc:"Consecutive failed payments"`
	RenewalCount          int     `json:"renewal_count" doc:"Successful renewals"`
	TotalRevenue          float64 `json:"total_revenue" doc:"Lifetime revenue"`
}

func toSubscriptionResponse(s domain.SubscriptionState) SubscriptionResponse {
	resp := SubscriptionResponse{
		ID:                    s.ID,
		TenantID:              s.TenantID,
		PlanID:                s.PlanID,
		Interval:              string(s.Interval),
		Status:                string(s.Status),
		PaymentStatus:         string(s.PaymentStatus),
		CurrentPeriodStart:    s.CurrentPeriodStart.Format(time.RFC3339),
		CurrentPeriodEnd:      s.CurrentPeriodEnd.Format(time.RFC3339),
		FailedPaymentAttempts: s.FailedPaymentAttempts,
		RenewalCount:          s.RenewalCount,
		TotalRevenue:          s.TotalRevenue,
	}
	if s.TrialEndsAt != nil {
		resp.TrialEndsAt = s.TrialEndsAt.Format(time.RFC3339)
	}
	if s.EndsAt != nil {
		resp.EndsAt = s.EndsAt.Format(time.RFC3339)
	}
	return resp
}

// --- Start ---

type StartSubscriptionInput struct {
	Body struct {
		TenantID string `json:"tenant_id" minLength:"1" doc:"Tenant to enroll"`
		PlanID   string `json:"plan_id" minLength:"1" doc:"Billing plan"`
		Trial    bool   `json:"trial,omitempty" doc:"Start as a trial"`
	}
}

type StartSubscriptionOutput struct {
	Body SubscriptionResponse
}

// --- Transitions ---

type GetSubscriptionInput struct {
	ID string `path:"id" doc:"Subscription ID"`
}

type GetSubscriptionOutput struct {
	Body SubscriptionResponse
}

type RenewSubscriptionInput struct {
	ID   string `path:"id" doc:"Subscription ID"`
	Body struct {
		Amount float64 `json:"amount" exclusiveMinimum:"0" doc:"Renewal payment amount"`
	}
}

type SubscriptionReasonInput struct {
	ID   string `path:"id" doc:"Subscription ID"`
	Body struct {
		Reason string `json:"reason,omitempty" maxLength:"255" doc:"Operator note"`
	}
}

type SubscriptionActionOutput struct {
	Body SubscriptionResponse
}

// --- Attention ---

type AttentionInput struct {
	ID string `path:"id" doc:"Subscription ID"`
}

type AttentionOutput struct {
	Body []domain.Issue
}

func registerSubscriptions(api huma.API, svc *app.SubscriptionService, usage *app.UsageService) {
	huma.Register(api, huma.Operation{
		OperationID: "start-subscription",
		Method:      http.MethodPost,
		Path:        "/api/v1/subscriptions",
		Summary:     "Enroll a tenant on a billing plan",
		Tags:        []string{"Subscriptions"},
	}, func(ctx context.Context, input *StartSubscriptionInput) (*StartSubscriptionOutput, error) {
		s, err := svc.Start(ctx, input.Body.TenantID, input.Body.PlanID, input.Body.Trial)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &StartSubscriptionOutput{Body: toSubscriptionResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-subscription",
		Method:      http.MethodGet,
		Path:        "/api/v1/subscriptions/{id}",
		Summary:     "Get a subscription by ID",
		Tags:        []string{"Subscriptions"},
	}, func(ctx context.Context, input *GetSubscriptionInput) (*GetSubscriptionOutput, error) {
		s, err := svc.Get(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetSubscriptionOutput{Body: toSubscriptionResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "renew-subscription",
		Method:      http.MethodPost,
		Path:        "/api/v1/subscriptions/{id}/renew",
		Summary:     "Record a successful renewal payment",
		Tags:        []string{"Subscriptions"},
	}, func(ctx context.Context, input *RenewSubscriptionInput) (*SubscriptionActionOutput, error) {
		s, err := svc.Renew(ctx, input.ID, input.Body.Amount)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SubscriptionActionOutput{Body: toSubscriptionResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "record-subscription-payment-failure",
		Method:      http.MethodPost,
		Path:        "/api/v1/subscriptions/{id}/payment-failure",
		Summary:     "Record a failed renewal payment",
		Tags:        []string{"Subscriptions"},
	}, func(ctx context.Context, input *SubscriptionReasonInput) (*SubscriptionActionOutput, error) {
		s, err := svc.RecordPaymentFailure(ctx, input.ID, input.Body.Reason)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SubscriptionActionOutput{Body: toSubscriptionResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-subscription",
		Method:      http.MethodPost,
		Path:        "/api/v1/subscriptions/{id}/cancel",
		Summary:     "Cancel a subscription",
		Tags:        []string{"Subscriptions"},
	}, func(ctx context.Context, input *SubscriptionReasonInput) (*SubscriptionActionOutput, error) {
		s, err := svc.Cancel(ctx, input.ID, input.Body.Reason)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &SubscriptionActionOutput{Body: toSubscriptionResponse(s)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-subscription-attention",
		Method:      http.MethodGet,
		Path:        "/api/v1/subscriptions/{id}/attention",
		Summary:     "List issues needing attention on a subscription",
		Tags:        []string{"Subscriptions"},
	}, func(ctx context.Context, input *AttentionInput) (*AttentionOutput, error) {
		s, err := svc.Get(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		issues, err := usage.NeedsAttention(ctx, s)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &AttentionOutput{Body: issues}, nil
	})
}
