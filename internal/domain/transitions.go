package domain

// Transition defines a valid status change for one entity kind: an event
// moves a projection from Src to Dst. Reducers decide the destination
// (some of them from counters, not just the event); the transition tables
// declare which (event, src, dst) triples are legal at all.
type Transition struct {
	Event EventType
	Src   string
	Dst   string
}

// TransitionsByKind declares every legal status change per entity kind.
// This is domain knowledge consumed by the FSM adapter. Creation events
// (booking.requested, payment.initiated, ...) do not appear here: they
// produce a projection rather than move one.
var TransitionsByKind = map[EntityKind][]Transition{
	KindBillboard:    billboardTransitions,
	KindBooking:      bookingTransitions,
	KindPayment:      paymentTransitions,
	KindSubscription: subscriptionTransitions,
}
