// Package event defines the events a test session publishes. Subscribers
// such as the run coordinator and the CLI use them to follow retries,
// dialogs and blocked requests without reaching into the session.
package event

import (
	"time"

	"demoqa-e2e/core/state"
)

// Event is anything published on the event bus.
type Event interface {
	EventName() string
}

// SessionEvent is an event raised by one browser session.
type SessionEvent interface {
	Event
	SessionID() string
	// OccurredAt is when the session raised the event, not when it was delivered.
	OccurredAt() time.Time
}

type baseSessionEvent struct {
	sessionID string
	at        time.Time
}

func newBase(sessionID string) baseSessionEvent {
	return baseSessionEvent{sessionID: sessionID, at: time.Now()}
}

func (e *baseSessionEvent) SessionID() string     { return e.sessionID }
func (e *baseSessionEvent) OccurredAt() time.Time { return e.at }

// SessionStarted is published when a session's browser is up and the page is prepared.
type SessionStarted struct {
	baseSessionEvent
	Profile string
	Engine  string
}

func NewSessionStarted(sessionID, profile, engine string) *SessionStarted {
	return &SessionStarted{
		baseSessionEvent: newBase(sessionID),
		Profile:          profile,
		Engine:           engine,
	}
}

func (e *SessionStarted) EventName() string {
	return "SessionStarted"
}

// SessionStopped is published when a session stops.
type SessionStopped struct {
	baseSessionEvent
	Error error // nil if stopped normally
}

func NewSessionStopped(sessionID string, err error) *SessionStopped {
	return &SessionStopped{
		baseSessionEvent: newBase(sessionID),
		Error:            err,
	}
}

func (e *SessionStopped) EventName() string {
	return "SessionStopped"
}

// SessionStateChanged is published when a session's state changes.
type SessionStateChanged struct {
	baseSessionEvent
	OldState state.SessionState
	NewState state.SessionState
}

func NewSessionStateChanged(sessionID string, oldState, newState state.SessionState) *SessionStateChanged {
	return &SessionStateChanged{
		baseSessionEvent: newBase(sessionID),
		OldState:         oldState,
		NewState:         newState,
	}
}

func (e *SessionStateChanged) EventName() string {
	return "SessionStateChanged"
}
