package app

import (
	"fmt"

	"github.com/mvelabs/boardroom/internal/domain"
)

// notificationFor maps a committed event to the user-facing alert it
// should raise, if any. The tenant id comes from the committed states, so
// events whose targets omit the tenant still notify the right one.
func notificationFor(env domain.Envelope, cs domain.ChangeSet) (domain.Notification, bool) {
	n := domain.Notification{
		Type:     string(env.Type),
		Priority: "normal",
		Data:     map[string]any{"event_id": env.ID},
	}
	for kind, id := range env.Targets {
		n.Data[string(kind)] = id
	}

	switch p := env.Payload.(type) {
	case domain.BookingConfirmedPayload:
		bk := cs.Bookings[0]
		n.TenantID = bk.TenantID
		n.Title = "Booking confirmed"
		n.Message = fmt.Sprintf("Booking %s confirmed at %.2f", bk.ID, bk.FinalPrice)

	case domain.BookingRejectedPayload:
		bk := cs.Bookings[0]
		n.TenantID = bk.TenantID
		n.Title = "Booking rejected"
		n.Message = fmt.Sprintf("Booking %s rejected: %s", bk.ID, p.Reason)

	case domain.BookingCancelledPayload:
		bk := cs.Bookings[0]
		n.TenantID = bk.TenantID
		n.Title = "Booking cancelled"
		n.Message = fmt.Sprintf("Booking %s cancelled: %s", bk.ID, p.Reason)

	case domain.PaymentCompletedPayload:
		pm := cs.Payments[0]
		n.TenantID = pm.TenantID
		n.Title = "Payment received"
		n.Message = fmt.Sprintf("Payment of %.2f completed via %s", pm.Amount, pm.Provider)

	case domain.PaymentFailedPayload:
		pm := cs.Payments[0]
		n.TenantID = pm.TenantID
		n.Priority = "high"
		n.Title = "Payment failed"
		n.Message = fmt.Sprintf("Payment of %.2f failed: %s", pm.Amount, pm.FailureReason)

	case domain.SubscriptionPaymentFailed:
		sub := cs.Subscriptions[0]
		n.TenantID = sub.TenantID
		n.Priority = "high"
		n.Title = "Subscription payment failed"
		n.Message = fmt.Sprintf("Attempt %d failed; subscription is %s", sub.FailedPaymentAttempts, sub.Status)

	case domain.SubscriptionCancelledPayload:
		sub := cs.Subscriptions[0]
		n.TenantID = sub.TenantID
		n.Title = "Subscription cancelled"
		n.Message = fmt.Sprintf("Subscription ends %s", sub.EndsAt.Format("2006-01-02"))

	case domain.SubscriptionExpiredPayload:
		sub := cs.Subscriptions[0]
		n.TenantID = sub.TenantID
		n.Priority = "high"
		n.Title = "Subscription expired"
		n.Message = "Your subscription has expired; a trial downgrade was provisioned"

	default:
		return domain.Notification{}, false
	}

	return n, true
}
