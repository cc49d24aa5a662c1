package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType defines the possible event types for store operations.
type EventType string

const (
	CollectionCreate        EventType = "collection:create"
	CollectionDrop          EventType = "collection:drop"
	CollectionLoadStart     EventType = "collection:load:start"
	CollectionLoadSuccess   EventType = "collection:load:success"
	CollectionLoadFailed    EventType = "collection:load:failed"
	CollectionReloadStart   EventType = "collection:reload:start"
	CollectionReloadSuccess EventType = "collection:reload:success"
	CollectionReloadFailed  EventType = "collection:reload:failed"
	DocumentInsert          EventType = "document:insert"
	DocumentRemove          EventType = "document:remove"
)

// Event is emitted around store operations for observability.
type Event struct {
	Type       EventType `json:"type"`
	Timestamp  int64     `json:"timestamp"` // Unix milliseconds.
	Operation  string    `json:"operation"`
	Collection string    `json:"collection"`
	// Count carries the number of documents affected, when known.
	Count    *int    `json:"count,omitempty"`
	Error    *string `json:"error,omitempty"`
	Duration *int64  `json:"duration,omitempty"` // Milliseconds.
}

// EventCallback handles a single emitted event.
type EventCallback func(ctx context.Context, event Event) error

// RegisterSubscriptionOptions configures an event subscription.
type RegisterSubscriptionOptions struct {
	Event       EventType
	Callback    EventCallback
	Label       *string
	Description *string
}

// SubscriptionInfo describes an active subscription.
type SubscriptionInfo struct {
	Id          *string   `json:"id,omitempty"`
	Event       EventType `json:"event"`
	Label       *string   `json:"label,omitempty"`
	Description *string   `json:"description,omitempty"`
	Unsubscribe func()    `json:"-"`
}

func newEvent(eventType EventType, operation, collection string, count *int, errStr *string, startTime time.Time) Event {
	var duration *int64
	if !startTime.IsZero() {
		d := time.Since(startTime).Milliseconds()
		duration = &d
	}

	return Event{
		Type:       eventType,
		Timestamp:  time.Now().UnixMilli(),
		Operation:  operation,
		Collection: collection,
		Count:      count,
		Error:      errStr,
		Duration:   duration,
	}
}

func (s *Store) emitEvent(event Event) {
	if s.bus != nil {
		s.bus.Emit(string(event.Type), event)
	}
}

// withEventEmission wraps an operation with start, success, and failure
// events. The operation reports how many documents it touched.
func (s *Store) withEventEmission(
	operation string,
	collection string,
	startEventType EventType,
	successEventType EventType,
	failedEventType EventType,
	fn func() (int, error),
) error {
	startTime := time.Now()
	s.emitEvent(newEvent(startEventType, operation, collection, nil, nil, startTime))

	count, err := fn()
	if err != nil {
		errStr := err.Error()
		s.emitEvent(newEvent(failedEventType, operation, collection, nil, &errStr, startTime))
		return err
	}

	s.emitEvent(newEvent(successEventType, operation, collection, &count, nil, startTime))
	return nil
}

// RegisterSubscription registers a callback for a store event type. It
// returns a unique ID that can be used to unregister the subscription later.
func (s *Store) RegisterSubscription(options RegisterSubscriptionOptions) string {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	unsubscribe := s.bus.Subscribe(string(options.Event), options.Callback)
	id := uuid.New().String()

	s.subscriptions[id] = &SubscriptionInfo{
		Id:          &id,
		Event:       options.Event,
		Unsubscribe: unsubscribe,
		Label:       options.Label,
		Description: options.Description,
	}
	return id
}

// UnregisterSubscription removes a subscription by its ID.
func (s *Store) UnregisterSubscription(id string) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if info, ok := s.subscriptions[id]; ok {
		info.Unsubscribe()
		delete(s.subscriptions, id)
	}
}

// Subscriptions returns all currently active subscriptions.
func (s *Store) Subscriptions() []SubscriptionInfo {
	s.subMu.RLock()
	defer s.subMu.RUnlock()

	subs := make([]SubscriptionInfo, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		subs = append(subs, *sub)
	}
	return subs
}
