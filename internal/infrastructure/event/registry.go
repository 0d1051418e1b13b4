package event

import (
	"sync"

	"github.com/omnisync/backend/internal/domain/shared"
)

// HandlerRegistry manages notification handler registrations
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string][]shared.NotificationHandler // type -> handlers
	wildcard []shared.NotificationHandler            // handlers for every type
}

// NewHandlerRegistry creates a new handler registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[string][]shared.NotificationHandler),
	}
}

// Register adds a handler for the given notification types. Without types
// the handler receives every notification.
func (r *HandlerRegistry) Register(handler shared.NotificationHandler, types ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(types) == 0 {
		r.wildcard = append(r.wildcard, handler)
		return
	}
	for _, t := range types {
		r.handlers[t] = append(r.handlers[t], handler)
	}
}

// Unregister removes a handler from every type
func (r *HandlerRegistry) Unregister(handler shared.NotificationHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.wildcard = removeHandler(r.wildcard, handler)
	for t, handlers := range r.handlers {
		r.handlers[t] = removeHandler(handlers, handler)
		if len(r.handlers[t]) == 0 {
			delete(r.handlers, t)
		}
	}
}

// GetHandlers returns the type-specific handlers followed by the wildcard ones
func (r *HandlerRegistry) GetHandlers(notificationType string) []shared.NotificationHandler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typed := r.handlers[notificationType]
	result := make([]shared.NotificationHandler, 0, len(typed)+len(r.wildcard))
	result = append(result, typed...)
	result = append(result, r.wildcard...)
	return result
}

// Len returns the number of distinct registered handlers
func (r *HandlerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[shared.NotificationHandler]struct{})
	for _, h := range r.wildcard {
		seen[h] = struct{}{}
	}
	for _, handlers := range r.handlers {
		for _, h := range handlers {
			seen[h] = struct{}{}
		}
	}
	return len(seen)
}

func removeHandler(handlers []shared.NotificationHandler, target shared.NotificationHandler) []shared.NotificationHandler {
	result := make([]shared.NotificationHandler, 0, len(handlers))
	for _, h := range handlers {
		if h != target {
			result = append(result, h)
		}
	}
	return result
}
