// Package events provides the in-process pub/sub bus connecting the
// reconciliation monitor to the status feed.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType represents different event types
type EventType string

const (
	SnapshotUpdated EventType = "SNAPSHOT_UPDATED"
	StatusChanged   EventType = "STATUS_CHANGED"
	PollFailed      EventType = "POLL_FAILED"
	CacheCleared    EventType = "CACHE_CLEARED"
	ErrorOccurred   EventType = "ERROR_OCCURRED"
)

// Event represents a system event
type Event struct {
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Module    string                 `json:"module"`
}

// Handler receives events for the types it subscribed to.
type Handler func(event *Event)

// Subscription identifies one registered handler so a disconnecting
// subscriber can remove it.
type Subscription struct {
	eventType EventType
	id        uint64
}

// Bus fans events out to subscribed handlers. Handlers are invoked
// synchronously on the emitter's goroutine, so they must not block;
// the feed handler bridges onto a buffered channel.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType]map[uint64]Handler
	nextID   uint64
	log      zerolog.Logger
}

// NewBus creates a new event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType]map[uint64]Handler),
		log:      log.With().Str("service", "events").Logger(),
	}
}

// Subscribe registers a handler for an event type.
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[uint64]Handler)
	}
	b.handlers[eventType][b.nextID] = handler

	return Subscription{eventType: eventType, id: b.nextID}
}

// Unsubscribe removes a handler. Long-lived feed connections must call this
// on disconnect or the handler set grows with every reconnect.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers[sub.eventType], sub.id)
}

// Emit publishes an event to all handlers subscribed to its type.
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) {
	event := &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Module:    module,
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[eventType]))
	for _, h := range b.handlers[eventType] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	eventJSON, _ := json.Marshal(event)
	b.log.Debug().
		Str("event_type", string(eventType)).
		Str("module", module).
		RawJSON("event", eventJSON).
		Msg("Event emitted")

	for _, handler := range handlers {
		handler(event)
	}
}

// EmitTyped publishes an event carrying typed data.
func (b *Bus) EmitTyped(eventType EventType, module string, data EventData) {
	b.Emit(eventType, module, convertEventDataToMap(data))
}

// EmitError emits an error event
func (b *Bus) EmitError(module string, err error, context map[string]interface{}) {
	b.Emit(ErrorOccurred, module, map[string]interface{}{
		"error":   err.Error(),
		"context": context,
	})
}

// convertEventDataToMap converts typed event data to the wire map form.
func convertEventDataToMap(data EventData) map[string]interface{} {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &m); err != nil {
		return nil
	}
	return m
}
