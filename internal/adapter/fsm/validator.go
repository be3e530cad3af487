package fsm

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/mvelabs/boardroom/internal/domain"
)

// Compile-time check: Validator implements domain.TransitionValidator.
var _ domain.TransitionValidator = (*Validator)(nil)

// eventsByKind holds one looplab/fsm event table per entity kind, built
// once at init from the domain transition tables.
var eventsByKind = buildEvents()

// buildEvents converts domain transitions into looplab/fsm EventDesc
// format. Reducers pick the destination state themselves (a payment
// failure can leave a subscription active, past_due or suspended
// depending on the attempt count), so the looplab event name encodes the
// destination as "event:dst". Transitions with the same event+destination
// are consolidated into a single EventDesc with multiple source states.
func buildEvents() map[domain.EntityKind][]loopfsm.EventDesc {
	out := make(map[domain.EntityKind][]loopfsm.EventDesc, len(domain.TransitionsByKind))

	for kind, transitions := range domain.TransitionsByKind {
		type key struct {
			event string
			dst   string
		}
		grouped := make(map[key][]string)
		order := make([]key, 0)

		for _, t := range transitions {
			k := key{event: string(t.Event), dst: t.Dst}
			if _, exists := grouped[k]; !exists {
				order = append(order, k)
			}
			grouped[k] = append(grouped[k], t.Src)
		}

		events := make([]loopfsm.EventDesc, 0, len(order))
		for _, k := range order {
			events = append(events, loopfsm.EventDesc{
				Name: k.event + ":" + k.dst,
				Src:  grouped[k],
				Dst:  k.dst,
			})
		}
		out[kind] = events
	}
	return out
}

// Validator implements domain.TransitionValidator using looplab/fsm.
// It creates a short-lived FSM instance per Validate call, initialized
// with the entity's current state. This is necessary because looplab/fsm
// is stateful (it tracks the current state internally).
type Validator struct{}

// New creates a new FSM-backed transition validator.
func New() *Validator {
	return &Validator{}
}

// Validate checks that event may move an entity of the given kind from
// the current state to the requested destination. Returns a
// domain.TransitionError if the transition is not allowed.
func (v *Validator) Validate(ctx context.Context, kind domain.EntityKind, event domain.EventType, from, to string) error {
	events, ok := eventsByKind[kind]
	if !ok {
		return &domain.TransitionError{Kind: kind, Event: event, Current: from}
	}

	machine := loopfsm.NewFSM(from, events, nil)

	if err := machine.Event(ctx, string(event)+":"+to); err != nil {
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &noTransition) {
			// Destination equals source; the transition table allows it.
			return nil
		}
		var invalidEvent loopfsm.InvalidEventError
		if errors.As(err, &invalidEvent) {
			return &domain.TransitionError{Kind: kind, Event: event, Current: from}
		}
		return err
	}
	return nil
}
