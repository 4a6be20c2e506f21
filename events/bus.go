package events

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/GoCodeAlone/interception/logging"
)

// ErrNilObserver is returned when registering a nil observer.
var ErrNilObserver = errors.New("observer is nil")

type observerRegistration struct {
	observer     Observer
	eventTypes   map[string]bool
	registeredAt time.Time
}

// Bus is a synchronous Subject. Observers are notified in registration order
// on the caller's goroutine; a failing or panicking observer is logged and
// does not prevent delivery to the others.
type Bus struct {
	mu        sync.RWMutex
	observers map[string]*observerRegistration
	order     []string
	logger    logging.Logger
}

// NewBus creates an empty bus. A nil logger discards observer failures.
func NewBus(logger logging.Logger) *Bus {
	return &Bus{
		observers: make(map[string]*observerRegistration),
		logger:    logging.OrNop(logger),
	}
}

// RegisterObserver adds or replaces an observer keyed by its ID.
func (b *Bus) RegisterObserver(observer Observer, eventTypes ...string) error {
	if observer == nil {
		return ErrNilObserver
	}

	eventTypeMap := make(map[string]bool, len(eventTypes))
	for _, eventType := range eventTypes {
		eventTypeMap[eventType] = true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := observer.ObserverID()
	if _, exists := b.observers[id]; !exists {
		b.order = append(b.order, id)
	}
	b.observers[id] = &observerRegistration{
		observer:     observer,
		eventTypes:   eventTypeMap,
		registeredAt: time.Now(),
	}

	b.logger.Debug("Observer registered", "observerID", id, "eventTypes", eventTypes)
	return nil
}

// UnregisterObserver removes an observer; it is idempotent.
func (b *Bus) UnregisterObserver(observer Observer) error {
	if observer == nil {
		return ErrNilObserver
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id := observer.ObserverID()
	if _, exists := b.observers[id]; !exists {
		return nil
	}
	delete(b.observers, id)
	for i, existing := range b.order {
		if existing == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	b.logger.Debug("Observer unregistered", "observerID", id)
	return nil
}

// NotifyObservers validates event and delivers it to interested observers.
func (b *Bus) NotifyObservers(ctx context.Context, event cloudevents.Event) error {
	if event.Time().IsZero() {
		event.SetTime(time.Now())
	}
	if err := ValidateCloudEvent(event); err != nil {
		b.logger.Error("Invalid CloudEvent", "eventType", event.Type(), "error", err)
		return err
	}

	b.mu.RLock()
	targets := make([]*observerRegistration, 0, len(b.order))
	for _, id := range b.order {
		registration := b.observers[id]
		if len(registration.eventTypes) > 0 && !registration.eventTypes[event.Type()] {
			continue
		}
		targets = append(targets, registration)
	}
	b.mu.RUnlock()

	for _, registration := range targets {
		b.deliver(ctx, registration.observer, event)
	}
	return nil
}

func (b *Bus) deliver(ctx context.Context, observer Observer, event cloudevents.Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Observer panicked", "observerID", observer.ObserverID(), "event", event.Type(), "panic", r)
		}
	}()

	if err := observer.OnEvent(ctx, event); err != nil {
		b.logger.Error("Observer error", "observerID", observer.ObserverID(), "event", event.Type(), "error", err)
	}
}

// GetObservers returns registration info in registration order.
func (b *Bus) GetObservers() []ObserverInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()

	info := make([]ObserverInfo, 0, len(b.order))
	for _, id := range b.order {
		registration := b.observers[id]
		eventTypes := make([]string, 0, len(registration.eventTypes))
		for eventType := range registration.eventTypes {
			eventTypes = append(eventTypes, eventType)
		}
		sort.Strings(eventTypes)

		info = append(info, ObserverInfo{
			ID:           id,
			EventTypes:   eventTypes,
			RegisteredAt: registration.registeredAt,
		})
	}
	return info
}

// Emit builds an event and notifies subject. A nil subject is a no-op.
// Emission errors are logged rather than returned.
func Emit(ctx context.Context, subject Subject, logger logging.Logger, eventType, source string, data any) {
	if subject == nil {
		return
	}
	event := NewCloudEvent(eventType, source, data, nil)
	if err := subject.NotifyObservers(ctx, event); err != nil {
		logging.OrNop(logger).Debug("Failed to emit event", "eventType", eventType, "error", err)
	}
}
