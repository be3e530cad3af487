package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mvelabs/boardroom/internal/domain"
)

// TenantResponse is the API representation of a tenant's rollup counters.
type TenantResponse struct {
	ID                string  `json:"id" doc:"Unique identifier"`
	BillboardCount    int     `json:"billboard_count" doc:"Registered billboards"`
	BookingsThisMonth int     `json:"bookings_this_month" doc:"Bookings in the current calendar month"`
	PaymentCount      int     `json:"payment_count" doc:"Completed payments"`
	TotalRevenue      float64 `json:"total_revenue" doc:"Lifetime revenue"`
	FirstSeenAt       string  `json:"first_seen_at" doc:"First event referencing the tenant (ISO 8601)"`
}

type GetTenantInput struct {
	ID string `path:"id" doc:"Tenant ID"`
}

type GetTenantOutput struct {
	Body TenantResponse
}

func registerTenants(api huma.API, store domain.ProjectionStore) {
	huma.Register(api, huma.Operation{
		OperationID: "get-tenant",
		Method:      http.MethodGet,
		Path:        "/api/v1/tenants/{id}",
		Summary:     "Get a tenant's usage counters",
		Tags:        []string{"Tenants"},
	}, func(ctx context.Context, input *GetTenantInput) (*GetTenantOutput, error) {
		t, err := store.GetTenant(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetTenantOutput{Body: TenantResponse{
			ID:                t.ID,
			BillboardCount:    t.BillboardCount,
			BookingsThisMonth: t.BookingsThisMonth,
			PaymentCount:      t.PaymentCount,
			TotalRevenue:      t.TotalRevenue,
			FirstSeenAt:       t.FirstSeenAt.Format(time.RFC3339),
		}}, nil
	})
}
