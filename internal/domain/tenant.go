package domain

import "time"

// TenantState aggregates usage counters derived from the tenant's owned
// entities. The counters are maintained by reducers of billboard, booking
// and payment events; the tenant never owns those projections.
type TenantState struct {
	ID                string    `json:"id"`
	BillboardCount    int       `json:"billboard_count"`
	BookingsThisMonth int       `json:"bookings_this_month"`
	BookingsMonth     string    `json:"bookings_month"` // YYYY-MM the counter belongs to
	PaymentCount      int       `json:"payment_count"`
	TotalRevenue      float64   `json:"total_revenue"`
	FirstSeenAt       time.Time `json:"first_seen_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	Version           int64     `json:"-"`
}

// NewTenantState creates the projection on the first event that
// references the tenant id.
func NewTenantState(id string, now time.Time) TenantState {
	return TenantState{
		ID:            id,
		BookingsMonth: now.Format("2006-01"),
		FirstSeenAt:   now,
		UpdatedAt:     now,
	}
}

func (t *TenantState) RecordBillboard(now time.Time) {
	t.BillboardCount++
	t.UpdatedAt = now
}

// RecordBooking counts a booking against the current calendar month,
// rolling the counter over on month change.
func (t *TenantState) RecordBooking(now time.Time) {
	month := now.Format("2006-01")
	if t.BookingsMonth != month {
		t.BookingsMonth = month
		t.BookingsThisMonth = 0
	}
	t.BookingsThisMonth++
	t.UpdatedAt = now
}

func (t *TenantState) RecordPayment(now time.Time) {
	t.PaymentCount++
	t.UpdatedAt = now
}

func (t *TenantState) recordRevenue(amount float64, now time.Time) {
	t.TotalRevenue += amount
	t.UpdatedAt = now
}
