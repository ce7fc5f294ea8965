// Package events implements the client's lifecycle observer registry.
//
// Subscribers register per topic and are invoked synchronously, in
// registration order, by Emit. The subscriber list is snapshotted before
// dispatch so handlers may subscribe, unsubscribe, or call back into the
// client without deadlocking.
package events

import (
	"log/slog"
	"sync"

	"github.com/wagiedev/agent-bridge-go/internal/frame"
)

// Topic names a lifecycle notification.
type Topic string

const (
	// TopicConnected fires when the transport opens.
	TopicConnected Topic = "connected"
	// TopicDisconnected fires when an open connection closes.
	TopicDisconnected Topic = "disconnected"
	// TopicError fires on transport and dial errors.
	TopicError Topic = "error"
	// TopicMaxReconnectAttempts fires once automatic reconnection gives up.
	TopicMaxReconnectAttempts Topic = "max_reconnect_attempts_reached"
	// TopicEvent carries unsolicited frames pushed by the bridge.
	TopicEvent Topic = "event"
)

// Event is one notification delivered to subscribers.
type Event struct {
	Topic Topic

	// Err is set for error, disconnected and max_reconnect_attempts_reached.
	Err error

	// Frame is set for event.
	Frame *frame.Frame
}

// Handler receives events for a topic.
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is a per-topic list of subscribers.
type Bus struct {
	log *slog.Logger

	mu       sync.RWMutex
	nextID   uint64
	handlers map[Topic][]subscription
}

// NewBus creates an empty registry.
func NewBus(log *slog.Logger) *Bus {
	return &Bus{
		log:      log.With("component", "events"),
		handlers: make(map[Topic][]subscription, 5),
	}
}

// Subscribe registers handler for topic and returns a function that removes it.
// The returned function is safe to call more than once.
func (b *Bus) Subscribe(topic Topic, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[topic] = append(b.handlers[topic], subscription{id: id, handler: handler})

	return func() { b.unsubscribe(topic, id) }
}

func (b *Bus) unsubscribe(topic Topic, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[topic]
	for i, s := range subs {
		if s.id == id {
			b.handlers[topic] = append(subs[:i:i], subs[i+1:]...)

			return
		}
	}
}

// Emit invokes every handler subscribed to ev.Topic in registration order.
// A panicking handler is logged and does not prevent later handlers from running.
func (b *Bus) Emit(ev Event) {
	b.mu.RLock()
	subs := make([]subscription, len(b.handlers[ev.Topic]))
	copy(subs, b.handlers[ev.Topic])
	b.mu.RUnlock()

	for _, s := range subs {
		b.invoke(ev, s.handler)
	}
}

func (b *Bus) invoke(ev Event, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Event handler panicked", "topic", ev.Topic, "panic", r)
		}
	}()

	handler(ev)
}
