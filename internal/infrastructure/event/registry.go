package event

import (
	"sync"

	"github.com/craftmarket/backend/internal/domain/shared"
)

// HandlerRegistry maps event types to their subscribed handlers. Safe for
// concurrent use.
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string][]shared.EventHandler
}

// NewHandlerRegistry creates an empty registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[string][]shared.EventHandler),
	}
}

// Register adds a handler for the given event types
func (r *HandlerRegistry) Register(handler shared.EventHandler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, eventType := range eventTypes {
		r.handlers[eventType] = append(r.handlers[eventType], handler)
	}
}

// Unregister removes a handler from every event type
func (r *HandlerRegistry) Unregister(handler shared.EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for eventType, handlers := range r.handlers {
		filtered := handlers[:0]
		for _, h := range handlers {
			if h != handler {
				filtered = append(filtered, h)
			}
		}
		if len(filtered) == 0 {
			delete(r.handlers, eventType)
		} else {
			r.handlers[eventType] = filtered
		}
	}
}

// HandlersFor returns a copy of the handlers registered for an event type
func (r *HandlerRegistry) HandlersFor(eventType string) []shared.EventHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	handlers := r.handlers[eventType]
	if len(handlers) == 0 {
		return nil
	}
	out := make([]shared.EventHandler, len(handlers))
	copy(out, handlers)
	return out
}

// EventTypeCount returns the number of event types with at least one
// handler
func (r *HandlerRegistry) EventTypeCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers)
}
