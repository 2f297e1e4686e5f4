package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
// An unknown id and a work order hidden by tenant scoping are
// deliberately indistinguishable to the caller.
var (
	ErrWorkOrderNotFound = errors.New("work order not found")
)

// ForbiddenError is returned when the ability oracle or tenant resolver
// denies an action. Never retried.
type ForbiddenError struct {
	Action Action
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("cannot perform action %s", e.Action)
}

// ValidationError is returned when a transition guard is not met.
// Required names the missing precondition in machine-checkable form
// (e.g. "attachment:BEFORE", "assignment").
type ValidationError struct {
	Required string
	Message  string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// TransitionError is returned when the requested edge does not exist in
// the transition graph from the current state.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("no transition from %q to %q", e.From, e.To)
}

// ConflictError is returned when a compare-and-swap write lost a race
// with a concurrent transition. Safe for the caller to retry once
// against the now-current state.
type ConflictError struct {
	WorkOrderID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("work order %s was modified concurrently", e.WorkOrderID)
}
