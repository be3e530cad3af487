package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mvelabs/boardroom/internal/app"
	"github.com/mvelabs/boardroom/internal/domain"
)

// BillboardResponse is the API representation of a billboard.
type BillboardResponse struct {
	ID           string  `json:"id" doc:"Unique identifier"`
	TenantID     string  `json:"tenant_id" doc:"Owning tenant"`
	Name         string  `json:"name" doc:"Display name"`
	Location     string  `json:"location" doc:"Physical location"`
	Status       string  `json:"status" doc:"Lifecycle state"`
	BasePrice    float64 `json:"base_price" doc:"List price per period"`
	CurrentPrice float64 `json:"current_price" doc:"Price currently in effect"`
	RegisteredAt string  `json:"registered_at" doc:"Registration timestamp (ISO 8601)"`
	UpdatedAt    string  `json:"updated_at" doc:"Last update timestamp (ISO 8601)"`
}

func toBillboardResponse(b domain.BillboardState) BillboardResponse {
	return BillboardResponse{
		ID:           b.ID,
		TenantID:     b.TenantID,
		Name:         b.Name,
		Location:     b.Location,
		Status:       string(b.Status),
		BasePrice:    b.BasePrice,
		CurrentPrice: b.CurrentPrice,
		RegisteredAt: b.RegisteredAt.Format(time.RFC3339),
		UpdatedAt:    b.UpdatedAt.Format(time.RFC3339),
	}
}

// --- Register ---

type RegisterBillboardInput struct {
	Body struct {
		TenantID  string  `json:"tenant_id" minLength:"1" doc:"Owning tenant"`
		Name      string  `json:"name" minLength:"1" maxLength:"255" doc:"Display name"`
		Location  string  `json:"location" maxLength:"255" doc:"Physical location"`
		BasePrice float64 `json:"base_price" exclusiveMinimum:"0" doc:"List price per period"`
	}
}

type RegisterBillboardOutput struct {
	Body BillboardResponse
}

// --- Get / List ---

type GetBillboardInput struct {
	ID string `path:"id" doc:"Billboard ID"`
}

type GetBillboardOutput struct {
	Body BillboardResponse
}

type ListBillboardsInput struct {
	TenantID string `query:"tenant_id" required:"false" doc:"Filter by tenant"`
	Status   string `query:"status" required:"false" doc:"Filter by status" enum:"available,occupied,maintenance,retired"`
	Limit    int    `query:"limit" required:"false" default:"50" doc:"Max results"`
	Offset   int    `query:"offset" required:"false" default:"0" doc:"Pagination offset"`
}

type ListBillboardsOutput struct {
	Body []BillboardResponse
}

// --- Maintenance / Retire ---

type BillboardReasonInput struct {
	ID   string `path:"id" doc:"Billboard ID"`
	Body struct {
		Reason string `json:"reason,omitempty" maxLength:"255" doc:"Operator note"`
	}
}

type BillboardActionOutput struct {
	Body BillboardResponse
}

// --- Pricing ---

type QuoteInput struct {
	ID   string `path:"id" doc:"Billboard ID"`
	Body struct {
		OccupancyRate        float64 `json:"occupancy_rate" minimum:"0" maximum:"1" doc:"Booked share of comparable boards"`
		RecentBookings       int     `json:"recent_bookings" minimum:"0" doc:"Bookings in the lookback window"`
		Month                int     `json:"month" minimum:"1" maximum:"12" doc:"Campaign month"`
		LocationScore        float64 `json:"location_score" minimum:"0" maximum:"1" doc:"Site quality score"`
		ImpressionsPerDay    float64 `json:"impressions_per_day" minimum:"0" doc:"Observed daily impressions"`
		AvgImpressionsPerDay float64 `json:"avg_impressions_per_day" minimum:"0" doc:"Market average daily impressions"`
		CompetitorAvgPrice   float64 `json:"competitor_avg_price" minimum:"0" doc:"Average price of comparable boards"`
		DaysUntilStart       int     `json:"days_until_start" doc:"Days until the campaign starts"`
		PriceVolatility      float64 `json:"price_volatility" minimum:"0" maximum:"1" doc:"Local market price volatility"`
	}
}

type QuoteOutput struct {
	Body domain.PriceQuote
}

type ApplyPriceInput struct {
	ID   string `path:"id" doc:"Billboard ID"`
	Body struct {
		Price float64 `json:"price" exclusiveMinimum:"0" doc:"New current price"`
	}
}

type ApplyPriceOutput struct {
	Body BillboardResponse
}

func registerBillboards(api huma.API, svc *app.BillboardService, pricing *app.PricingService) {
	huma.Register(api, huma.Operation{
		OperationID: "register-billboard",
		Method:      http.MethodPost,
		Path:        "/api/v1/billboards",
		Summary:     "Register a new billboard",
		Tags:        []string{"Billboards"},
	}, func(ctx context.Context, input *RegisterBillboardInput) (*RegisterBillboardOutput, error) {
		b, err := svc.Register(ctx, input.Body.TenantID, input.Body.Name, input.Body.Location, input.Body.BasePrice)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &RegisterBillboardOutput{Body: toBillboardResponse(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-billboard",
		Method:      http.MethodGet,
		Path:        "/api/v1/billboards/{id}",
		Summary:     "Get a billboard by ID",
		Tags:        []string{"Billboards"},
	}, func(ctx context.Context, input *GetBillboardInput) (*GetBillboardOutput, error) {
		b, err := svc.Get(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetBillboardOutput{Body: toBillboardResponse(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-billboards",
		Method:      http.MethodGet,
		Path:        "/api/v1/billboards",
		Summary:     "List billboards",
		Tags:        []string{"Billboards"},
	}, func(ctx context.Context, input *ListBillboardsInput) (*ListBillboardsOutput, error) {
		filter := domain.BillboardFilter{
			TenantID: input.TenantID,
			Limit:    input.Limit,
			Offset:   input.Offset,
		}
		if input.Status != "" {
			s := domain.BillboardStatus(input.Status)
			filter.Status = &s
		}

		billboards, err := svc.List(ctx, filter)
		if err != nil {
			return nil, toHumaError(err)
		}

		resp := make([]BillboardResponse, len(billboards))
		for i, b := range billboards {
			resp[i] = toBillboardResponse(b)
		}
		return &ListBillboardsOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "start-billboard-maintenance",
		Method:      http.MethodPost,
		Path:        "/api/v1/billboards/{id}/maintenance",
		Summary:     "Take a billboard out of rotation for maintenance",
		Tags:        []string{"Billboards"},
	}, func(ctx context.Context, input *BillboardReasonInput) (*BillboardActionOutput, error) {
		b, err := svc.StartMaintenance(ctx, input.ID, input.Body.Reason)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &BillboardActionOutput{Body: toBillboardResponse(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "end-billboard-maintenance",
		Method:      http.MethodPost,
		Path:        "/api/v1/billboards/{id}/maintenance/end",
		Summary:     "Return a billboard to rotation after maintenance",
		Tags:        []string{"Billboards"},
	}, func(ctx context.Context, input *GetBillboardInput) (*BillboardActionOutput, error) {
		b, err := svc.EndMaintenance(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &BillboardActionOutput{Body: toBillboardResponse(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "retire-billboard",
		Method:      http.MethodPost,
		Path:        "/api/v1/billboards/{id}/retire",
		Summary:     "Permanently retire a billboard",
		Tags:        []string{"Billboards"},
	}, func(ctx context.Context, input *BillboardReasonInput) (*BillboardActionOutput, error) {
		b, err := svc.Retire(ctx, input.ID, input.Body.Reason)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &BillboardActionOutput{Body: toBillboardResponse(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "quote-billboard-price",
		Method:      http.MethodPost,
		Path:        "/api/v1/billboards/{id}/quote",
		Summary:     "Compute an advisory dynamic price quote",
		Tags:        []string{"Pricing"},
	}, func(ctx context.Context, input *QuoteInput) (*QuoteOutput, error) {
		quote, err := pricing.Quote(ctx, input.ID, app.MarketConditions{
			OccupancyRate:        input.Body.OccupancyRate,
			RecentBookings:       input.Body.RecentBookings,
			Month:                time.Month(input.Body.Month),
			LocationScore:        input.Body.LocationScore,
			ImpressionsPerDay:    input.Body.ImpressionsPerDay,
			AvgImpressionsPerDay: input.Body.AvgImpressionsPerDay,
			CompetitorAvgPrice:   input.Body.CompetitorAvgPrice,
			DaysUntilStart:       input.Body.DaysUntilStart,
			PriceVolatility:      input.Body.PriceVolatility,
		})
		if err != nil {
			return nil, toHumaError(err)
		}
		return &QuoteOutput{Body: quote}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "apply-billboard-price",
		Method:      http.MethodPost,
		Path:        "/api/v1/billboards/{id}/price",
		Summary:     "Apply a price recommendation",
		Tags:        []string{"Pricing"},
	}, func(ctx context.Context, input *ApplyPriceInput) (*ApplyPriceOutput, error) {
		b, err := pricing.ApplyRecommendation(ctx, input.ID, input.Body.Price)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ApplyPriceOutput{Body: toBillboardResponse(b)}, nil
	})
}
