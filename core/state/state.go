// Package state defines the lifecycle of a browser test session.
package state

import (
	"fmt"
	"log/slog"
)

// SessionState is a step in a session's lifecycle:
//
//	Idle -> Starting -> Preparing -> Ready -> Stopping -> Stopped
//
// Starting and Preparing may also fail straight to Stopped.
type SessionState int

const (
	StateIdle SessionState = iota
	// StateStarting covers the browser launch.
	StateStarting
	// StatePreparing covers ad blocking, dialog hooks and the optional warm-up.
	StatePreparing
	StateReady
	StateStopping
	StateStopped
)

var stateNames = [...]string{"Idle", "Starting", "Preparing", "Ready", "Stopping", "Stopped"}

// next lists the states each state may move to, indexed by the current state.
var next = [...][]SessionState{
	StateIdle:      {StateStarting},
	StateStarting:  {StatePreparing, StateStopping, StateStopped},
	StatePreparing: {StateReady, StateStopping, StateStopped},
	StateReady:     {StateStopping},
	StateStopping:  {StateStopped},
	StateStopped:   nil,
}

func (s SessionState) valid() bool {
	return s >= StateIdle && s <= StateStopped
}

func (s SessionState) String() string {
	if !s.valid() {
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
	return stateNames[s]
}

// LogValue logs the state by name.
func (s SessionState) LogValue() slog.Value {
	return slog.StringValue(s.String())
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s SessionState) CanTransitionTo(target SessionState) bool {
	if !s.valid() {
		return false
	}
	for _, t := range next[s] {
		if t == target {
			return true
		}
	}
	return false
}

// CanAcceptOperations reports whether browser operations may be issued.
// Preparing is included so the warm-up navigation can use the resilient wrapper.
func (s SessionState) CanAcceptOperations() bool {
	return s == StatePreparing || s == StateReady
}

// ShuttingDown reports whether the session is stopping or has stopped.
func (s SessionState) ShuttingDown() bool {
	return s == StateStopping || s == StateStopped
}

// TransitionError is returned for a transition the lifecycle does not allow.
type TransitionError struct {
	From SessionState
	To   SessionState
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("session cannot move from %s to %s", e.From, e.To)
}

// NewTransitionError creates a TransitionError.
func NewTransitionError(from, to SessionState) *TransitionError {
	return &TransitionError{From: from, To: to}
}
