package domain

import "time"

// PaymentStatus is the internal payment state enum. Provider-specific
// status strings are mapped onto it at the gateway boundary.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentCompleted  PaymentStatus = "completed"
	PaymentFailed     PaymentStatus = "failed"
	PaymentCancelled  PaymentStatus = "cancelled"
)

var paymentTransitions = []Transition{
	{Event: EventPaymentCompleted, Src: string(PaymentPending), Dst: string(PaymentCompleted)},
	{Event: EventPaymentCompleted, Src: string(PaymentProcessing), Dst: string(PaymentCompleted)},
	{Event: EventPaymentFailed, Src: string(PaymentPending), Dst: string(PaymentFailed)},
	{Event: EventPaymentFailed, Src: string(PaymentProcessing), Dst: string(PaymentFailed)},
	{Event: EventPaymentCancelled, Src: string(PaymentPending), Dst: string(PaymentCancelled)},
	{Event: EventPaymentCancelled, Src: string(PaymentProcessing), Dst: string(PaymentCancelled)},
}

// --- Payloads ---

type PaymentInitiated struct {
	TenantID   string
	Provider   string
	Amount     float64
	PayerRef   string
	BookingID  string // optional
	ExternalID string
	Status     PaymentStatus // pending or processing, from the provider
}

func (PaymentInitiated) EventType() EventType { return EventPaymentInitiated }

type PaymentCompletedPayload struct {
	Amount float64
}

func (PaymentCompletedPayload) EventType() EventType { return EventPaymentCompleted }

type PaymentFailedPayload struct {
	Reason string
}

func (PaymentFailedPayload) EventType() EventType { return EventPaymentFailed }

type PaymentCancelledPayload struct {
	Reason string
}

func (PaymentCancelledPayload) EventType() EventType { return EventPaymentCancelled }

// --- Projection ---

// PaymentState is the current projection of one payment attempt. A failed
// attempt is never mutated into a retry: retrying creates a new payment.
type PaymentState struct {
	ID            string        `json:"id"`
	TenantID      string        `json:"tenant_id"`
	Provider      string        `json:"provider"`
	Amount        float64       `json:"amount"`
	PayerRef      string        `json:"payer_ref"`
	BookingID     string        `json:"booking_id,omitempty"`
	ExternalID    string        `json:"external_id,omitempty"`
	Status        PaymentStatus `json:"status"`
	FailureReason string        `json:"failure_reason,omitempty"`
	InitiatedAt   time.Time     `json:"initiated_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	FailedAt      *time.Time    `json:"failed_at,omitempty"`
	Version       int64         `json:"-"`
}

// NewPaymentState creates the projection for a freshly initiated payment.
func NewPaymentState(id string, p PaymentInitiated, now time.Time) (PaymentState, error) {
	if p.Amount <= 0 {
		return PaymentState{}, Validationf("payment amount must be positive, got %.2f", p.Amount)
	}
	if p.Provider == "" {
		return PaymentState{}, Validationf("payment requires a provider")
	}
	status := p.Status
	if status == "" {
		status = PaymentPending
	}
	if status != PaymentPending && status != PaymentProcessing {
		return PaymentState{}, Validationf("initial payment status must be pending or processing, got %q", status)
	}
	return PaymentState{
		ID:          id,
		TenantID:    p.TenantID,
		Provider:    p.Provider,
		Amount:      p.Amount,
		PayerRef:    p.PayerRef,
		BookingID:   p.BookingID,
		ExternalID:  p.ExternalID,
		Status:      status,
		InitiatedAt: now,
	}, nil
}

// ApplyCompleted settles the payment and accumulates the amount on the
// tenant. Idempotency is the dispatcher's job: this runs at most once per
// envelope id.
func (p *PaymentState) ApplyCompleted(tenant *TenantState, now time.Time) {
	p.Status = PaymentCompleted
	p.CompletedAt = &now
	tenant.recordRevenue(p.Amount, now)
}

// ApplyFailed records the failure as business state, not a system error.
func (p *PaymentState) ApplyFailed(reason string, now time.Time) {
	p.Status = PaymentFailed
	p.FailureReason = reason
	p.FailedAt = &now
}

// ApplyCancelled closes the payment without settlement.
func (p *PaymentState) ApplyCancelled(reason string, now time.Time) {
	p.Status = PaymentCancelled
	p.FailureReason = reason
	p.FailedAt = &now
}
