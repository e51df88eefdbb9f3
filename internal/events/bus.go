package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/morashelf/morashelf-core/internal/logger"
)

const (
	busBuffer          = 1000
	subscriptionBuffer = 100
)

// Subscription is one subscriber's view of the bus.
type Subscription struct {
	SubscribedAt time.Time
	// Events is closed when the subscription ends.
	Events chan Event
	Done   chan struct{}
	ID     string
	// types filters delivery; empty means every type.
	types map[EventType]bool
}

// Wants reports whether the subscription receives events of type t.
func (s *Subscription) Wants(t EventType) bool {
	return len(s.types) == 0 || s.types[t]
}

// Bus fans events out to subscribers. Delivery is non-blocking: a
// subscriber whose buffer is full misses the event.
type Bus struct {
	subs   map[string]*Subscription
	events chan Event
	logger *slog.Logger
	wg     sync.WaitGroup
	mu     sync.RWMutex

	// Shutdown state - protected by shutdownMu
	shutdownMu sync.RWMutex
	shutdown   bool
}

// NewBus creates a new event bus.
func NewBus(log *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[string]*Subscription),
		events: make(chan Event, busBuffer),
		logger: logger.OrDiscard(log),
	}
}

// Start runs the broadcast loop until ctx is done or the bus shuts down.
// Call it once, in its own goroutine.
func (b *Bus) Start(ctx context.Context) {
	b.wg.Add(1)
	defer b.wg.Done()

	b.logger.Debug("event bus starting")

	for {
		select {
		case event, ok := <-b.events:
			if !ok {
				// Shutdown drains the rest and closes subscriptions.
				return
			}
			b.broadcast(event)

		case <-ctx.Done():
			b.logger.Debug("event bus stopping")
			b.closeAll()
			return
		}
	}
}

// Shutdown stops accepting events, delivers what is queued and closes every
// subscription.
func (b *Bus) Shutdown(ctx context.Context) error {
	// Mark as shutdown AND close channel atomically while holding lock.
	// This prevents a race with Emit, which holds the read lock during send.
	b.shutdownMu.Lock()
	if b.shutdown {
		b.shutdownMu.Unlock()
		return nil
	}
	b.shutdown = true
	close(b.events)
	b.shutdownMu.Unlock()

	done := make(chan struct{})
	go func() {
		for event := range b.events {
			b.broadcast(event)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		b.logger.Warn("event drain timeout, some events may be lost")
	}

	b.wg.Wait()
	b.closeAll()
	return nil
}

// Emit queues an event for broadcasting. It never blocks; events emitted
// after Shutdown are dropped.
func (b *Bus) Emit(event Event) {
	b.shutdownMu.RLock()
	defer b.shutdownMu.RUnlock()

	if b.shutdown {
		return
	}

	select {
	case b.events <- event:
	default:
		b.logger.Error("event queue full, dropping event",
			slog.String("event_type", string(event.Type)))
	}
}

// Subscribe registers a subscriber for the given event types, or for every
// type when none are given.
func (b *Bus) Subscribe(types ...EventType) *Subscription {
	sub := &Subscription{
		ID:           uuid.NewString(),
		Events:       make(chan Event, subscriptionBuffer),
		Done:         make(chan struct{}),
		SubscribedAt: time.Now(),
	}
	if len(types) > 0 {
		sub.types = make(map[EventType]bool, len(types))
		for _, t := range types {
			sub.types[t] = true
		}
	}

	b.mu.Lock()
	b.subs[sub.ID] = sub
	total := len(b.subs)
	b.mu.Unlock()

	b.logger.Debug("subscriber added",
		slog.String("subscription_id", sub.ID),
		slog.Int("total_subscribers", total))
	return sub
}

// Unsubscribe removes a subscription and closes its channels.
// Unknown ids are ignored.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	sub, ok := b.subs[id]
	if !ok {
		b.mu.Unlock()
		return
	}
	delete(b.subs, id)
	b.mu.Unlock()

	close(sub.Done)
	close(sub.Events)
}

func (b *Bus) subscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) broadcast(event Event) {
	var delivered, dropped int

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if !sub.Wants(event.Type) {
			continue
		}
		// Non-blocking send (drop if subscriber is slow).
		select {
		case sub.Events <- event:
			delivered++
		default:
			dropped++
			b.logger.Warn("dropped event for slow subscriber",
				slog.String("subscription_id", sub.ID),
				slog.String("event_type", string(event.Type)))
		}
	}

	b.logger.Debug("event broadcast",
		slog.String("event_type", string(event.Type)),
		slog.Group("stats",
			slog.Int("delivered", delivered),
			slog.Int("dropped", dropped)))
}

func (b *Bus) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		close(sub.Done)
		close(sub.Events)
	}
	b.subs = make(map[string]*Subscription)
}
