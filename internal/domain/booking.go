package domain

import "time"

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingRequested BookingStatus = "requested"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingRejected  BookingStatus = "rejected"
	BookingCancelled BookingStatus = "cancelled"
)

var bookingTransitions = []Transition{
	{Event: EventBookingConfirmed, Src: string(BookingRequested), Dst: string(BookingConfirmed)},
	{Event: EventBookingRejected, Src: string(BookingRequested), Dst: string(BookingRejected)},
	{Event: EventBookingCancelled, Src: string(BookingConfirmed), Dst: string(BookingCancelled)},
	{Event: EventBookingCompleted, Src: string(BookingConfirmed), Dst: string(BookingCompleted)},
}

// --- Payloads ---

type BookingRequestedPayload struct {
	BillboardID    string
	ClientID       string
	TenantID       string
	Start          time.Time
	End            time.Time
	RequestedPrice float64
}

func (BookingRequestedPayload) EventType() EventType { return EventBookingRequested }

// BookingConfirmed may renegotiate the price: a zero FinalPrice keeps the
// requested one.
type BookingConfirmedPayload struct {
	FinalPrice float64
}

func (BookingConfirmedPayload) EventType() EventType { return EventBookingConfirmed }

type BookingRejectedPayload struct {
	Reason string
}

func (BookingRejectedPayload) EventType() EventType { return EventBookingRejected }

type BookingCancelledPayload struct {
	Reason string
}

func (BookingCancelledPayload) EventType() EventType { return EventBookingCancelled }

type BookingCompletedPayload struct{}

func (BookingCompletedPayload) EventType() EventType { return EventBookingCompleted }

// --- Projection ---

// BookingState is the current projection of a booking. Billboard and
// client are weak references by id.
type BookingState struct {
	ID             string        `json:"id"`
	BillboardID    string        `json:"billboard_id"`
	ClientID       string        `json:"client_id"`
	TenantID       string        `json:"tenant_id"`
	Status         BookingStatus `json:"status"`
	Start          time.Time     `json:"start"`
	End            time.Time     `json:"end"`
	RequestedPrice float64       `json:"requested_price"`
	FinalPrice     float64       `json:"final_price,omitempty"`
	Reason         string        `json:"reason,omitempty"`
	RequestedAt    time.Time     `json:"requested_at"`
	ConfirmedAt    *time.Time    `json:"confirmed_at,omitempty"`
	CancelledAt    *time.Time    `json:"cancelled_at,omitempty"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	Version        int64         `json:"-"`
}

// NewBookingState validates a booking request against the target billboard
// and produces the initial projection. On success the billboard starts
// tracking the booking window; its status stays available until a
// confirmation derives an availability change.
func NewBookingState(id string, p BookingRequestedPayload, billboard *BillboardState, now time.Time) (BookingState, error) {
	if billboard.Status != BillboardAvailable {
		return BookingState{}, Validationf("billboard %s is %q, not available", billboard.ID, billboard.Status)
	}
	if !p.Start.After(now) {
		return BookingState{}, Validationf("start date must be in the future")
	}
	if !p.End.After(p.Start) {
		return BookingState{}, Validationf("end date must be after start date")
	}
	if billboard.Overlaps(p.Start, p.End) {
		return BookingState{}, Validationf("billboard %s is already booked for the requested period", billboard.ID)
	}

	booking := BookingState{
		ID:             id,
		BillboardID:    billboard.ID,
		ClientID:       p.ClientID,
		TenantID:       p.TenantID,
		Status:         BookingRequested,
		Start:          p.Start,
		End:            p.End,
		RequestedPrice: p.RequestedPrice,
		RequestedAt:    now,
	}

	billboard.trackBooking(BookingWindow{
		BookingID: id,
		Start:     p.Start,
		End:       p.End,
		Status:    BookingRequested,
	}, now)

	return booking, nil
}

// ApplyConfirmed confirms the booking and derives the availability change
// that flips the billboard to occupied. The derived envelope is returned
// to the dispatcher, which processes it only after this event commits.
func (bk *BookingState) ApplyConfirmed(p BookingConfirmedPayload, billboard *BillboardState, now time.Time) ([]Envelope, error) {
	bk.Status = BookingConfirmed
	bk.ConfirmedAt = &now
	bk.FinalPrice = p.FinalPrice
	if bk.FinalPrice == 0 {
		bk.FinalPrice = bk.RequestedPrice
	}
	billboard.markBooking(bk.ID, BookingConfirmed, now)

	derived := NewEnvelope(
		BillboardAvailabilityChanged{
			From:   billboard.Status,
			To:     BillboardOccupied,
			Reason: "booking " + bk.ID + " confirmed",
		},
		map[EntityKind]string{KindBillboard: billboard.ID},
		now,
	)
	return []Envelope{derived}, nil
}

// ApplyRejected closes a requested booking. The billboard was never
// occupied, so rejecting only releases the tracked window.
func (bk *BookingState) ApplyRejected(p BookingRejectedPayload, billboard *BillboardState, now time.Time) error {
	bk.Status = BookingRejected
	bk.Reason = p.Reason
	bk.CancelledAt = &now
	billboard.releaseBooking(bk.ID, now)
	return nil
}

// ApplyCancelled cancels a confirmed booking and derives the availability
// change that frees the billboard.
func (bk *BookingState) ApplyCancelled(p BookingCancelledPayload, billboard *BillboardState, now time.Time) ([]Envelope, error) {
	bk.Status = BookingCancelled
	bk.Reason = p.Reason
	bk.CancelledAt = &now
	billboard.releaseBooking(bk.ID, now)

	derived := NewEnvelope(
		BillboardAvailabilityChanged{
			From:   billboard.Status,
			To:     BillboardAvailable,
			Reason: "booking " + bk.ID + " cancelled",
		},
		map[EntityKind]string{KindBillboard: billboard.ID},
		now,
	)
	return []Envelope{derived}, nil
}

// ApplyCompleted closes a finished campaign and frees the billboard.
func (bk *BookingState) ApplyCompleted(billboard *BillboardState, now time.Time) ([]Envelope, error) {
	bk.Status = BookingCompleted
	bk.CompletedAt = &now
	billboard.releaseBooking(bk.ID, now)

	derived := NewEnvelope(
		BillboardAvailabilityChanged{
			From:   billboard.Status,
			To:     BillboardAvailable,
			Reason: "booking " + bk.ID + " completed",
		},
		map[EntityKind]string{KindBillboard: billboard.ID},
		now,
	)
	return []Envelope{derived}, nil
}
