package eventbus

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"demoqa-e2e/core/event"
)

type subscription struct {
	id      string
	handler EventHandler
	filters []Filter
}

func (s *subscription) accepts(e event.Event) bool {
	for _, f := range s.filters {
		if !f(e) {
			return false
		}
	}
	return true
}

// channelEventBus queues events on a buffered channel drained by one goroutine.
type channelEventBus struct {
	queue  chan event.Event
	logger *slog.Logger

	mu   sync.RWMutex
	subs map[string]*subscription

	// closeMu keeps Close from closing the queue under a concurrent send.
	closeMu sync.RWMutex
	closed  bool
	done    chan struct{}

	published atomic.Uint64
	dropped   atomic.Uint64
	delivered atomic.Uint64
	panics    atomic.Uint64
}

// New creates an EventBus queueing up to bufferSize events.
func New(bufferSize int, logger *slog.Logger) EventBus {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}

	b := &channelEventBus{
		queue:  make(chan event.Event, bufferSize),
		logger: logger.With("component", "eventbus"),
		subs:   make(map[string]*subscription),
		done:   make(chan struct{}),
	}
	go b.dispatch()
	return b
}

func (b *channelEventBus) Publish(e event.Event) {
	b.closeMu.RLock()
	defer b.closeMu.RUnlock()
	if b.closed {
		return
	}

	select {
	case b.queue <- e:
		b.published.Add(1)
	default:
		n := b.dropped.Add(1)
		b.logger.Warn("Event dropped, queue full", "event", e.EventName(), "dropped_total", n)
	}
}

func (b *channelEventBus) Subscribe(handler EventHandler, filters ...Filter) string {
	sub := &subscription{
		id:      uuid.NewString(),
		handler: handler,
		filters: filters,
	}
	b.mu.Lock()
	b.subs[sub.id] = sub
	b.mu.Unlock()
	return sub.id
}

func (b *channelEventBus) Unsubscribe(subscriptionID string) {
	b.mu.Lock()
	delete(b.subs, subscriptionID)
	b.mu.Unlock()
}

func (b *channelEventBus) Stats() Stats {
	return Stats{
		Published: b.published.Load(),
		Dropped:   b.dropped.Load(),
		Delivered: b.delivered.Load(),
		Panics:    b.panics.Load(),
	}
}

func (b *channelEventBus) Close() {
	b.closeMu.Lock()
	if b.closed {
		b.closeMu.Unlock()
		<-b.done
		return
	}
	b.closed = true
	close(b.queue)
	b.closeMu.Unlock()

	<-b.done
	st := b.Stats()
	b.logger.Debug("Event bus closed",
		"published", st.Published,
		"delivered", st.Delivered,
		"dropped", st.Dropped)
}

func (b *channelEventBus) dispatch() {
	defer close(b.done)
	for e := range b.queue {
		b.deliver(e)
	}
}

func (b *channelEventBus) deliver(e event.Event) {
	// Handlers run without the lock so they may subscribe or unsubscribe.
	b.mu.RLock()
	targets := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		if sub.accepts(e) {
			targets = append(targets, sub)
		}
	}
	b.mu.RUnlock()

	for _, sub := range targets {
		b.call(sub, e)
	}
}

func (b *channelEventBus) call(sub *subscription, e event.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
			b.logger.Error("Event handler panicked",
				"event", e.EventName(),
				"subscription", sub.id,
				"panic", r)
		}
	}()
	sub.handler(e)
	b.delivered.Add(1)
}
