package domain

import "time"

// BillboardStatus is the lifecycle state of a billboard.
type BillboardStatus string

const (
	BillboardAvailable   BillboardStatus = "available"
	BillboardOccupied    BillboardStatus = "occupied"
	BillboardMaintenance BillboardStatus = "maintenance"
	BillboardRetired     BillboardStatus = "retired"
)

// HistoryCap bounds the availability history of a billboard. The oldest
// entries are dropped first.
const HistoryCap = 50

var billboardTransitions = []Transition{
	{Event: EventBillboardAvailabilityChanged, Src: string(BillboardAvailable), Dst: string(BillboardOccupied)},
	{Event: EventBillboardAvailabilityChanged, Src: string(BillboardOccupied), Dst: string(BillboardAvailable)},
	{Event: EventBillboardAvailabilityChanged, Src: string(BillboardMaintenance), Dst: string(BillboardAvailable)},
	{Event: EventBillboardMaintenanceStarted, Src: string(BillboardAvailable), Dst: string(BillboardMaintenance)},
	{Event: EventBillboardRetired, Src: string(BillboardAvailable), Dst: string(BillboardRetired)},
	{Event: EventBillboardRetired, Src: string(BillboardMaintenance), Dst: string(BillboardRetired)},
}

// --- Payloads ---

type BillboardRegistered struct {
	TenantID  string
	Name      string
	Location  string
	BasePrice float64
}

func (BillboardRegistered) EventType() EventType { return EventBillboardRegistered }

// BillboardAvailabilityChanged is a derived event: it is raised by booking
// reducers, never dispatched directly by a caller.
type BillboardAvailabilityChanged struct {
	From   BillboardStatus
	To     BillboardStatus
	Reason string
}

func (BillboardAvailabilityChanged) EventType() EventType { return EventBillboardAvailabilityChanged }

type BillboardMaintenanceStarted struct {
	Reason string
}

func (BillboardMaintenanceStarted) EventType() EventType { return EventBillboardMaintenanceStarted }

type BillboardRetiredPayload struct {
	Reason string
}

func (BillboardRetiredPayload) EventType() EventType { return EventBillboardRetired }

// BillboardPriceApplied applies a pricing recommendation to the board.
type BillboardPriceApplied struct {
	Price float64
}

func (BillboardPriceApplied) EventType() EventType { return EventBillboardPriceApplied }

// --- Projection ---

// AvailabilityChange is one entry in a billboard's availability history.
type AvailabilityChange struct {
	From   BillboardStatus `json:"from"`
	To     BillboardStatus `json:"to"`
	Reason string          `json:"reason,omitempty"`
	At     time.Time       `json:"at"`
}

// BookingWindow is a billboard's view of one tracked booking: enough to
// answer overlap questions without loading the booking itself.
type BookingWindow struct {
	BookingID string        `json:"booking_id"`
	Start     time.Time     `json:"start"`
	End       time.Time     `json:"end"`
	Status    BookingStatus `json:"status"`
}

// BillboardState is the current projection of a billboard.
type BillboardState struct {
	ID              string               `json:"id"`
	TenantID        string               `json:"tenant_id"`
	Name            string               `json:"name"`
	Location        string               `json:"location"`
	Status          BillboardStatus      `json:"status"`
	BasePrice       float64              `json:"base_price"`
	CurrentPrice    float64              `json:"current_price"`
	PendingBookings []BookingWindow      `json:"pending_bookings,omitempty"`
	History         []AvailabilityChange `json:"history,omitempty"`
	RegisteredAt    time.Time            `json:"registered_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
	Version         int64                `json:"-"`
}

// NewBillboardState creates the projection for a freshly registered board.
func NewBillboardState(id string, p BillboardRegistered, now time.Time) (BillboardState, error) {
	if p.TenantID == "" {
		return BillboardState{}, Validationf("billboard requires a tenant id")
	}
	if p.BasePrice <= 0 {
		return BillboardState{}, Validationf("base price must be positive, got %.2f", p.BasePrice)
	}
	return BillboardState{
		ID:           id,
		TenantID:     p.TenantID,
		Name:         p.Name,
		Location:     p.Location,
		Status:       BillboardAvailable,
		BasePrice:    p.BasePrice,
		CurrentPrice: p.BasePrice,
		RegisteredAt: now,
		UpdatedAt:    now,
	}, nil
}

// ApplyAvailabilityChange moves the board to p.To and appends a history
// entry, trimming the oldest entries beyond HistoryCap.
func (b *BillboardState) ApplyAvailabilityChange(p BillboardAvailabilityChanged, now time.Time) error {
	if p.From != b.Status {
		return Validationf("billboard %s is %q, not %q", b.ID, b.Status, p.From)
	}
	b.recordChange(p.To, p.Reason, now)
	return nil
}

// ApplyMaintenanceStarted takes the board out of rotation.
func (b *BillboardState) ApplyMaintenanceStarted(p BillboardMaintenanceStarted, now time.Time) error {
	if len(b.PendingBookings) > 0 {
		return Validationf("billboard %s has %d tracked bookings", b.ID, len(b.PendingBookings))
	}
	b.recordChange(BillboardMaintenance, p.Reason, now)
	return nil
}

// ApplyRetired closes the board permanently. Retired boards are never
// deleted, only closed.
func (b *BillboardState) ApplyRetired(p BillboardRetiredPayload, now time.Time) error {
	if len(b.PendingBookings) > 0 {
		return Validationf("billboard %s has %d tracked bookings", b.ID, len(b.PendingBookings))
	}
	b.recordChange(BillboardRetired, p.Reason, now)
	return nil
}

// ApplyPriceApplied sets a new current price. The change is bounded
// relative to the present price so a runaway recommendation cannot be
// applied.
func (b *BillboardState) ApplyPriceApplied(p BillboardPriceApplied, now time.Time) error {
	if p.Price < b.CurrentPrice*MinPriceChangeFactor || p.Price > b.CurrentPrice*MaxPriceChangeFactor {
		return Validationf("price %.2f outside allowed range [%.2f, %.2f]",
			p.Price, b.CurrentPrice*MinPriceChangeFactor, b.CurrentPrice*MaxPriceChangeFactor)
	}
	b.CurrentPrice = p.Price
	b.UpdatedAt = now
	return nil
}

func (b *BillboardState) recordChange(to BillboardStatus, reason string, now time.Time) {
	b.History = append(b.History, AvailabilityChange{
		From:   b.Status,
		To:     to,
		Reason: reason,
		At:     now,
	})
	if len(b.History) > HistoryCap {
		b.History = b.History[len(b.History)-HistoryCap:]
	}
	b.Status = to
	b.UpdatedAt = now
}

// Overlaps reports whether [start, end) collides with any tracked booking
// window. Overlap checking is billboard-exclusive: one campaign at a time.
func (b *BillboardState) Overlaps(start, end time.Time) bool {
	for _, w := range b.PendingBookings {
		if start.Before(w.End) && w.Start.Before(end) {
			return true
		}
	}
	return false
}

func (b *BillboardState) trackBooking(w BookingWindow, now time.Time) {
	b.PendingBookings = append(b.PendingBookings, w)
	b.UpdatedAt = now
}

func (b *BillboardState) markBooking(bookingID string, status BookingStatus, now time.Time) {
	for i := range b.PendingBookings {
		if b.PendingBookings[i].BookingID == bookingID {
			b.PendingBookings[i].Status = status
			b.UpdatedAt = now
			return
		}
	}
}

func (b *BillboardState) releaseBooking(bookingID string, now time.Time) {
	for i, w := range b.PendingBookings {
		if w.BookingID == bookingID {
			b.PendingBookings = append(b.PendingBookings[:i], b.PendingBookings[i+1:]...)
			b.UpdatedAt = now
			return
		}
	}
}
