package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session ID cannot be found.
var ErrSessionNotFound = errors.New("session not found")

// ErrNoTransition is returned when an event has no rule at the current step.
var ErrNoTransition = errors.New("no transition for event")

// ErrSessionFrozen is returned when work is submitted to a frozen session.
var ErrSessionFrozen = errors.New("session frozen")

var (
	ErrAnswerRetracted  = errors.New("answers cannot be removed or rewritten")
	ErrPremiumRevoked   = errors.New("premium unlock cannot be revoked")
	ErrGenerationChange = errors.New("generation cannot change within a session")
	ErrInvalidStep      = errors.New("step is not a vertex of the graph")
	ErrMessageOrder     = errors.New("message ids must strictly increase")
)

// TransitionError reports an invariant violation raised by the engine.
type TransitionError struct {
	Step  Step
	Event EventKind
	Tag   string
	Cause error
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("step %s: %s", e.Step, e.Event)
	if e.Tag != "" {
		msg += "(" + e.Tag + ")"
	}
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg + ": " + ErrNoTransition.Error()
}

func (e *TransitionError) Unwrap() error {
	if e.Cause != nil {
		return e.Cause
	}
	return ErrNoTransition
}
