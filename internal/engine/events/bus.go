// Package events provides a one-directional event bus for the overlay
// engine. Pipelines and managers only emit; consumers (the rendering
// manager, UI layers) subscribe. No pipeline ever holds a reference back
// to its manager.
package events

import "sync"

// Type identifies an event category.
type Type string

// Event types emitted by the engine.
const (
	Initialized     Type = "initialized"
	Disposed        Type = "disposed"
	ConfigChanged   Type = "config:changed"
	SunUpdated      Type = "sun:updated"
	PerformanceTick Type = "performance:update"
	Warning         Type = "warning"
	Error           Type = "error"
	TreesLoaded     Type = "trees:loaded"
	BuildingsLoaded Type = "buildings:loaded"
	TerrainLoaded   Type = "terrain:loaded"
)

// Event carries a type and an optional payload.
type Event struct {
	Type    Type
	Payload any
}

// Handler receives events synchronously on the emitting goroutine.
// Handlers must be cheap; the render loop emits from its frame callback.
type Handler func(Event)

// Bus fans events out to subscribers by type. The zero value is not
// usable; create with NewBus.
type Bus struct {
	mu   sync.Mutex
	next int
	subs map[Type]map[int]Handler
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Type]map[int]Handler)}
}

// Subscribe registers a handler for one event type and returns an
// unsubscribe function. Unsubscribing twice is harmless.
func (b *Bus) Subscribe(t Type, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[t] == nil {
		b.subs[t] = make(map[int]Handler)
	}
	id := b.next
	b.next++
	b.subs[t][id] = h

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[t], id)
	}
}

// Emit delivers an event synchronously to all current subscribers of its
// type, in unspecified order.
func (b *Bus) Emit(t Type, payload any) {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs[t]))
	for _, h := range b.subs[t] {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	ev := Event{Type: t, Payload: payload}
	for _, h := range handlers {
		h(ev)
	}
}
