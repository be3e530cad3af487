package http

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mvelabs/boardroom/internal/app"
	"github.com/mvelabs/boardroom/internal/domain"
)

// BookingResponse is the API representation of a booking.
type BookingResponse struct {
	ID             string  `json:"id" doc:"Unique identifier"`
	BillboardID    string  `json:"billboard_id" doc:"Booked billboard"`
	ClientID       string  `json:"client_id" doc:"Requesting client"`
	TenantID       string  `json:"tenant_id" doc:"Owning tenant"`
	Status         string  `json:"status" doc:"Lifecycle state"`
	Start          string  `json:"start" doc:"Campaign start (ISO 8601)"`
	End            string  `json:"end" doc:"Campaign end (ISO 8601)"`
	RequestedPrice float64 `json:"requested_price" doc:"Price at request time"`
	FinalPrice     float64 `json:"final_price,omitempty" doc:"Price agreed at confirmation"`
	Reason         string  `json:"reason,omitempty" doc:"Rejection or cancellation note"`
}

func toBookingResponse(b domain.BookingState) BookingResponse {
	return BookingResponse{
		ID:             b.ID,
		BillboardID:    b.BillboardID,
		ClientID:       b.ClientID,
		TenantID:       b.TenantID,
		Status:         string(b.Status),
		Start:          b.Start.Format(time.RFC3339),
		End:            b.End.Format(time.RFC3339),
		RequestedPrice: b.RequestedPrice,
		FinalPrice:     b.FinalPrice,
		Reason:         b.Reason,
	}
}

// --- Request ---

type RequestBookingInput struct {
	BillboardID string `path:"id" doc:"Billboard ID"`
	Body        struct {
		ClientID string    `json:"client_id" minLength:"1" doc:"Requesting client"`
		TenantID string    `json:"tenant_id" minLength:"1" doc:"Owning tenant"`
		Start    time.Time `json:"start" doc:"Campaign start"`
		End      time.Time `json:"end" doc:"Campaign end"`
		Price    float64   `json:"price" minimum:"0" doc:"Requested price"`
	}
}

type RequestBookingOutput struct {
	Body BookingResponse
}

// --- Transitions ---

type GetBookingInput struct {
	ID string `path:"id" doc:"Booking ID"`
}

type GetBookingOutput struct {
	Body BookingResponse
}

type ConfirmBookingInput struct {
	ID   string `path:"id" doc:"Booking ID"`
	Body struct {
		FinalPrice float64 `json:"final_price,omitempty" minimum:"0" doc:"Negotiated price; zero keeps the requested one"`
	}
}

type BookingReasonInput struct {
	ID   string `path:"id" doc:"Booking ID"`
	Body struct {
		Reason string `json:"reason,omitempty" maxLength:"255" doc:"Operator note"`
	}
}

type BookingActionOutput struct {
	Body BookingResponse
}

func registerBookings(api huma.API, svc *app.BookingService) {
	huma.Register(api, huma.Operation{
		OperationID: "request-booking",
		Method:      http.MethodPost,
		Path:        "/api/v1/billboards/{id}/bookings",
		Summary:     "Request a booking on a billboard",
		Tags:        []string{"Bookings"},
	}, func(ctx context.Context, input *RequestBookingInput) (*RequestBookingOutput, error) {
		b, err := svc.Request(ctx, input.BillboardID, input.Body.ClientID, input.Body.TenantID,
			input.Body.Start, input.Body.End, input.Body.Price)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &RequestBookingOutput{Body: toBookingResponse(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-booking",
		Method:      http.MethodGet,
		Path:        "/api/v1/bookings/{id}",
		Summary:     "Get a booking by ID",
		Tags:        []string{"Bookings"},
	}, func(ctx context.Context, input *GetBookingInput) (*GetBookingOutput, error) {
		b, err := svc.Get(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &GetBookingOutput{Body: toBookingResponse(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "confirm-booking",
		Method:      http.MethodPost,
		Path:        "/api/v1/bookings/{id}/confirm",
		Summary:     "Confirm a requested booking",
		Tags:        []string{"Bookings"},
	}, func(ctx context.Context, input *ConfirmBookingInput) (*BookingActionOutput, error) {
		b, err := svc.Confirm(ctx, input.ID, input.Body.FinalPrice)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &BookingActionOutput{Body: toBookingResponse(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "reject-booking",
		Method:      http.MethodPost,
		Path:        "/api/v1/bookings/{id}/reject",
		Summary:     "Reject a requested booking",
		Tags:        []string{"Bookings"},
	}, func(ctx context.Context, input *BookingReasonInput) (*BookingActionOutput, error) {
		b, err := svc.Reject(ctx, input.ID, input.Body.Reason)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &BookingActionOutput{Body: toBookingResponse(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "cancel-booking",
		Method:      http.MethodPost,
		Path:        "/api/v1/bookings/{id}/cancel",
		Summary:     "Cancel a confirmed booking",
		Tags:        []string{"Bookings"},
	}, func(ctx context.Context, input *BookingReasonInput) (*BookingActionOutput, error) {
		b, err := svc.Cancel(ctx, input.ID, input.Body.Reason)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &BookingActionOutput{Body: toBookingResponse(b)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "complete-booking",
		Method:      http.MethodPost,
		Path:        "/api/v1/bookings/{id}/complete",
		Summary:     "Complete a finished campaign",
		Tags:        []string{"Bookings"},
	}, func(ctx context.Context, input *GetBookingInput) (*BookingActionOutput, error) {
		b, err := svc.Complete(ctx, input.ID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &BookingActionOutput{Body: toBookingResponse(b)}, nil
	})
}
