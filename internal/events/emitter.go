package events

import (
	"context"
	"log/slog"
	"sync"
)

// InMemoryEventEmitter is a simple implementation of the EventEmitter interface
// that stores registered handlers in memory and dispatches events to them.
// It stands in for the event channel in tests and when events.driver is memory.
type InMemoryEventEmitter struct {
	handlers []EventHandler
	mu       sync.RWMutex
	logger   *slog.Logger
}

// NewInMemoryEventEmitter creates a new instance of InMemoryEventEmitter.
// If logger is nil, a default logger will be used.
func NewInMemoryEventEmitter(logger *slog.Logger) *InMemoryEventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &InMemoryEventEmitter{
		handlers: make([]EventHandler, 0),
		logger:   logger.With("component", "in_memory_event_emitter"),
	}
}

// RegisterHandler adds a new event handler to receive events.
func (e *InMemoryEventEmitter) RegisterHandler(handler EventHandler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, handler)
	e.logger.Debug("registered new event handler", "handler_count", len(e.handlers))
}

// EmitEvent publishes the given event to all registered handlers.
// If any handler returns an error, the event will still be sent to all other handlers,
// and the first error encountered will be returned.
func (e *InMemoryEventEmitter) EmitEvent(ctx context.Context, event *Event) error {
	e.mu.RLock()
	handlers := make([]EventHandler, len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.RUnlock()

	e.logger.Debug("emitting event",
		"event_id", event.ID,
		"topic", event.Topic,
		"event_type", event.Type,
		"handler_count", len(handlers))

	if len(handlers) == 0 {
		e.logger.Debug("no handlers registered for event",
			"event_id", event.ID,
			"topic", event.Topic)
		return nil
	}

	var firstErr error
	for i, handler := range handlers {
		if err := handler.HandleEvent(ctx, event); err != nil {
			e.logger.Error("handler failed to process event",
				"error", err,
				"handler_index", i,
				"event_id", event.ID,
				"topic", event.Topic)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

// Router dispatches events to the handler registered for their topic.
// Events on topics without a handler are dropped.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]EventHandler
	logger   *slog.Logger
}

// NewRouter creates an empty Router.
// If logger is nil, a default logger will be used.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		handlers: make(map[string]EventHandler),
		logger:   logger.With("component", "event_router"),
	}
}

// Handle registers handler for topic, replacing any previous one.
func (r *Router) Handle(topic string, handler EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[topic] = handler
}

// Topics returns the topics that have a handler.
func (r *Router) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	topics := make([]string, 0, len(r.handlers))
	for topic := range r.handlers {
		topics = append(topics, topic)
	}
	return topics
}

// HandleEvent implements EventHandler.
func (r *Router) HandleEvent(ctx context.Context, event *Event) error {
	r.mu.RLock()
	handler, ok := r.handlers[event.Topic]
	r.mu.RUnlock()

	if !ok {
		r.logger.Debug("ignoring event on unrouted topic",
			"topic", event.Topic,
			"event_id", event.ID)
		return nil
	}
	return handler.HandleEvent(ctx, event)
}
