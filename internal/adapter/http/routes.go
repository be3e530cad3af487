package http

import (
	"github.com/danielgtaylor/huma/v2"

	"github.com/mvelabs/boardroom/internal/app"
	"github.com/mvelabs/boardroom/internal/domain"
)

// Services bundles everything the API surfaces. Store serves the
// read-only tenant projection directly.
type Services struct {
	Billboards    *app.BillboardService
	Bookings      *app.BookingService
	Subscriptions *app.SubscriptionService
	Payments      *app.PaymentService
	Pricing       *app.PricingService
	Usage         *app.UsageService
	Store         domain.ProjectionStore
}

// Register adds all API routes to the Huma API.
func Register(api huma.API, svc Services) {
	registerBillboards(api, svc.Billboards, svc.Pricing)
	registerBookings(api, svc.Bookings)
	registerSubscriptions(api, svc.Subscriptions, svc.Usage)
	registerPayments(api, svc.Payments)
	registerTenants(api, svc.Store)
}
