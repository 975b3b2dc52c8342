package session

import (
	"context"
	"sync"
	"time"

	"demoqa-e2e/core/event"
	"demoqa-e2e/core/eventbus"
	"demoqa-e2e/domain/retry"
	"demoqa-e2e/infrastructure/browser/browsertest"
)

// recordingBus delivers events synchronously into a slice.
type recordingBus struct {
	mu     sync.Mutex
	events []event.Event
}

func (b *recordingBus) Publish(e event.Event) {
	b.mu.Lock()
	b.events = append(b.events, e)
	b.mu.Unlock()
}

func (b *recordingBus) Subscribe(eventbus.EventHandler, ...eventbus.Filter) string { return "" }
func (b *recordingBus) Unsubscribe(string)                                         {}
func (b *recordingBus) Stats() eventbus.Stats                                      { return eventbus.Stats{} }
func (b *recordingBus) Close()                                                     {}

func (b *recordingBus) named(name string) []event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []event.Event
	for _, e := range b.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

// testPolicy keeps every wait in the tens of milliseconds.
func testPolicy() retry.Policy {
	s := retry.Schedule{
		MaxAttempts:     3,
		BaseTimeout:     20 * time.Millisecond,
		FallbackTimeout: 10 * time.Millisecond,
		Backoff:         time.Second,
	}
	return retry.Policy{
		Navigation: s,
		Element:    s,
		Click:      s,
		Fill:       retry.Schedule{MaxAttempts: 2, BaseTimeout: 50 * time.Millisecond, Settle: time.Second},
	}
}

// newTestController returns a controller over a running fake whose sleeps
// are recorded instead of waited.
func newTestController() (*BrowserController, *browsertest.FakeDriver, *recordingBus, *[]time.Duration) {
	driver := browsertest.Running("")
	bus := &recordingBus{}
	ctrl := NewBrowserController(&ControllerConfig{
		Driver:    driver,
		Policy:    testPolicy(),
		BaseURL:   "https://demoqa.com",
		SessionID: "s-1",
		EventBus:  bus,
	})
	var slept []time.Duration
	var mu sync.Mutex
	ctrl.sleep = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		slept = append(slept, d)
		mu.Unlock()
		return ctx.Err()
	}
	return ctrl, driver, bus, &slept
}
