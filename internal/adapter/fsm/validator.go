package fsm

import (
	"context"
	"errors"

	loopfsm "github.com/looplab/fsm"

	"github.com/fieldflow/fieldflow/internal/domain"
)

// Compile-time check: Validator implements domain.TransitionValidator.
var _ domain.TransitionValidator = (*Validator)(nil)

// Validator implements domain.TransitionValidator using looplab/fsm.
// It creates a short-lived FSM instance per Apply call, initialized
// with the work order's current state. This is necessary because
// looplab/fsm is stateful (it tracks the current state internally).
type Validator struct{}

// New creates a new FSM-backed transition validator.
func New() *Validator {
	return &Validator{}
}

// Apply checks that an edge from current to the requested state exists
// in the transition graph and returns the action bound to it. Returns
// a domain.TransitionError if the transition is not allowed.
func (v *Validator) Apply(ctx context.Context, current, to domain.Status) (domain.Action, error) {
	tr, ok := domain.FindTransition(current, to)
	if !ok {
		return "", &domain.TransitionError{From: current, To: to}
	}

	machine := loopfsm.NewFSM(string(current), eventsFor(tr), nil)

	if err := machine.Event(ctx, string(tr.Action)); err != nil {
		var invalidEvent loopfsm.InvalidEventError
		var noTransition loopfsm.NoTransitionError
		if errors.As(err, &invalidEvent) || errors.As(err, &noTransition) {
			return "", &domain.TransitionError{From: current, To: to}
		}
		return "", err
	}

	if got := domain.Status(machine.Current()); got != to {
		return "", &domain.TransitionError{From: current, To: to}
	}
	return tr.Action, nil
}

// eventsFor converts the domain transitions sharing this edge's action
// and destination into looplab/fsm EventDesc format, consolidating
// multiple source states into a single EventDesc (e.g. ActionCancel
// from every active state goes to "cancelled"). Restricting the event
// set to one destination keeps actions like resume, whose destination
// varies per work order, unambiguous for the machine.
func eventsFor(tr domain.Transition) []loopfsm.EventDesc {
	var srcs []string
	for _, t := range domain.Transitions {
		if t.Action == tr.Action && t.Dst == tr.Dst {
			srcs = append(srcs, string(t.Src))
		}
	}
	return []loopfsm.EventDesc{{
		Name: string(tr.Action),
		Src:  srcs,
		Dst:  string(tr.Dst),
	}}
}
