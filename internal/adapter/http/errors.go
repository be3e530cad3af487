package http

import (
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/mvelabs/boardroom/internal/domain"
)

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	switch {
	case errors.Is(err, domain.ErrTenantNotFound):
		return huma.Error404NotFound("tenant not found")
	case errors.Is(err, domain.ErrBillboardNotFound):
		return huma.Error404NotFound("billboard not found")
	case errors.Is(err, domain.ErrBookingNotFound):
		return huma.Error404NotFound("booking not found")
	case errors.Is(err, domain.ErrPaymentNotFound):
		return huma.Error404NotFound("payment not found")
	case errors.Is(err, domain.ErrSubscriptionNotFound):
		return huma.Error404NotFound("subscription not found")
	case errors.Is(err, domain.ErrPlanNotFound):
		return huma.Error404NotFound("plan not found")
	}

	var valErr *domain.ValidationError
	if errors.As(err, &valErr) {
		return huma.Error422UnprocessableEntity(valErr.Error())
	}

	var trErr *domain.TransitionError
	if errors.As(err, &trErr) {
		return huma.Error422UnprocessableEntity(trErr.Error())
	}

	var conflictErr *domain.ConflictError
	if errors.As(err, &conflictErr) {
		return huma.Error409Conflict(conflictErr.Error())
	}

	var provErr *domain.ProviderError
	if errors.As(err, &provErr) {
		return huma.Error502BadGateway(provErr.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
