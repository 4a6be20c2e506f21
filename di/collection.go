// Package di is the dependency-injection container the interception helpers
// register into: a ServiceCollection of descriptors built into a Provider that
// resolves services by type and optional key under singleton, scoped or
// transient lifetimes.
package di

import (
	"context"
	"reflect"
	"sync"

	"github.com/GoCodeAlone/interception/events"
	"github.com/GoCodeAlone/interception/logging"
)

const eventSource = "interception/di"

// ServiceCollection is an ordered list of service descriptors.
//
// Registration is expected to happen during application composition on a
// single goroutine; the collection is still guarded by a mutex so misuse does
// not corrupt it.
type ServiceCollection struct {
	mu          sync.Mutex
	descriptors []*ServiceDescriptor
	logger      logging.Logger
	subject     events.Subject
}

// CollectionOption configures a ServiceCollection.
type CollectionOption func(*ServiceCollection)

// WithLogger sets the logger used by the collection and the providers it builds.
func WithLogger(logger logging.Logger) CollectionOption {
	return func(c *ServiceCollection) {
		c.logger = logging.OrNop(logger)
	}
}

// WithSubject sets the subject that receives registration and resolution events.
func WithSubject(subject events.Subject) CollectionOption {
	return func(c *ServiceCollection) {
		c.subject = subject
	}
}

// NewServiceCollection creates an empty collection.
func NewServiceCollection(opts ...CollectionOption) *ServiceCollection {
	c := &ServiceCollection{
		logger: logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Logger returns the collection's logger.
func (c *ServiceCollection) Logger() logging.Logger {
	return c.logger
}

// Subject returns the collection's event subject, which may be nil.
func (c *ServiceCollection) Subject() events.Subject {
	return c.subject
}

// Add appends d. Later registrations of the same identity take precedence
// at resolution time.
func (c *ServiceCollection) Add(d *ServiceDescriptor) error {
	if err := d.validate(); err != nil {
		return err
	}

	c.mu.Lock()
	c.descriptors = append(c.descriptors, d)
	c.mu.Unlock()

	c.logger.Debug("Service registered", "service", d.String())
	c.emit(events.EventTypeServiceRegistered, d)
	return nil
}

// TryAdd appends d only when no descriptor with the same service type and key
// exists. It reports whether d was added.
func (c *ServiceCollection) TryAdd(d *ServiceDescriptor) (bool, error) {
	if err := d.validate(); err != nil {
		return false, err
	}

	c.mu.Lock()
	if c.containsLocked(d.identity()) {
		c.mu.Unlock()
		c.logger.Debug("Service registration skipped, already registered", "service", d.String())
		c.emit(events.EventTypeServiceSkipped, d)
		return false, nil
	}
	c.descriptors = append(c.descriptors, d)
	c.mu.Unlock()

	c.logger.Debug("Service registered", "service", d.String())
	c.emit(events.EventTypeServiceRegistered, d)
	return true, nil
}

// Contains reports whether an unkeyed descriptor exists for serviceType.
func (c *ServiceCollection) Contains(serviceType reflect.Type) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.containsLocked(serviceIdentifier{serviceType: serviceType})
}

// ContainsKeyed reports whether a keyed descriptor exists for serviceType and key.
// A nil key matches registrations made with a nil key, not unkeyed ones.
func (c *ServiceCollection) ContainsKeyed(serviceType reflect.Type, key any) bool {
	if !isComparable(key) {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.containsLocked(serviceIdentifier{serviceType: serviceType, keyed: true, key: key})
}

func (c *ServiceCollection) containsLocked(id serviceIdentifier) bool {
	for _, existing := range c.descriptors {
		if existing.identity() == id {
			return true
		}
	}
	return false
}

// Len returns the number of descriptors.
func (c *ServiceCollection) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.descriptors)
}

// Descriptors returns a copy of the descriptor list in registration order.
func (c *ServiceCollection) Descriptors() []*ServiceDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ServiceDescriptor, len(c.descriptors))
	copy(out, c.descriptors)
	return out
}

// Build snapshots the descriptors into a Provider. Later changes to the
// collection do not affect the provider.
func (c *ServiceCollection) Build(opts ...ProviderOption) (*Provider, error) {
	return newProvider(c.Descriptors(), c.logger, c.subject, opts...)
}

func (c *ServiceCollection) emit(eventType string, d *ServiceDescriptor) {
	events.Emit(context.Background(), c.subject, c.logger, eventType, eventSource, describe(d))
}

// DescriptorInfo is a serializable summary of a descriptor.
type DescriptorInfo struct {
	ServiceType        string `json:"serviceType"`
	Keyed              bool   `json:"keyed"`
	Key                string `json:"key,omitempty"`
	Lifetime           string `json:"lifetime"`
	Kind               string `json:"kind"`
	ImplementationType string `json:"implementationType,omitempty"`
}

// Describe summarizes every descriptor of the collection.
func (c *ServiceCollection) Describe() []DescriptorInfo {
	descriptors := c.Descriptors()
	out := make([]DescriptorInfo, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, describe(d))
	}
	return out
}

func describe(d *ServiceDescriptor) DescriptorInfo {
	info := DescriptorInfo{
		ServiceType: typeName(d.ServiceType),
		Keyed:       d.IsKeyedService,
		Lifetime:    d.Lifetime.String(),
		Kind:        d.Kind(),
	}
	if d.IsKeyedService {
		if d.ServiceKey == nil {
			info.Key = "<nil>"
		} else {
			info.Key = toKeyString(d.ServiceKey)
		}
	}
	if d.ImplementationType != nil {
		info.ImplementationType = typeName(d.ImplementationType)
	}
	return info
}
