// Package eventbus fans session events out to in-process subscribers.
package eventbus

import (
	"slices"

	"demoqa-e2e/core/event"
)

// EventBus delivers published events to subscribers on a single dispatch goroutine.
type EventBus interface {
	// Publish queues e for delivery. It never blocks; events are dropped
	// and counted when the queue is full.
	Publish(e event.Event)

	// Subscribe registers handler for events passing every filter and
	// returns an ID for Unsubscribe.
	Subscribe(handler EventHandler, filters ...Filter) string

	// Unsubscribe removes a subscription by its ID.
	Unsubscribe(subscriptionID string)

	// Stats returns the delivery counters.
	Stats() Stats

	// Close delivers the queued events and stops the bus. Publish is a
	// no-op afterwards.
	Close()
}

// EventHandler handles one event.
type EventHandler func(e event.Event)

// Filter selects the events a subscription receives.
type Filter func(e event.Event) bool

// ForSession passes session events from sessionID only.
func ForSession(sessionID string) Filter {
	return func(e event.Event) bool {
		se, ok := e.(event.SessionEvent)
		return ok && se.SessionID() == sessionID
	}
}

// Named passes events whose EventName is one of names.
func Named(names ...string) Filter {
	return func(e event.Event) bool {
		return slices.Contains(names, e.EventName())
	}
}

// Stats counts events over the lifetime of a bus.
type Stats struct {
	Published uint64
	Dropped   uint64
	// Delivered counts handler invocations, so one event can count several times.
	Delivered uint64
	Panics    uint64
}
