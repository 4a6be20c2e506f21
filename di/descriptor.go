package di

import (
	"fmt"
	"reflect"
	"strings"
)

// Factory creates a service instance using the resolver it is given.
type Factory func(r ServiceResolver) (any, error)

// KeyedFactory creates a keyed service instance. It receives the key the
// descriptor was registered with.
type KeyedFactory func(r ServiceResolver, key any) (any, error)

// ServiceDescriptor binds a service identity to one construction strategy and a lifetime.
//
// Exactly one of ImplementationType, ImplementationFactory,
// KeyedImplementationFactory and ImplementationInstance is set.
// IsKeyedService distinguishes a keyed registration whose ServiceKey is nil
// from an unkeyed registration.
type ServiceDescriptor struct {
	ServiceType    reflect.Type
	ServiceKey     any
	IsKeyedService bool
	Lifetime       ServiceLifetime

	ImplementationType         reflect.Type
	ImplementationFactory      Factory
	KeyedImplementationFactory KeyedFactory
	ImplementationInstance     any
}

// NewTypeDescriptor registers implementationType, activated by the container.
func NewTypeDescriptor(serviceType, implementationType reflect.Type, lifetime ServiceLifetime) *ServiceDescriptor {
	return &ServiceDescriptor{
		ServiceType:        serviceType,
		ImplementationType: implementationType,
		Lifetime:           lifetime,
	}
}

// NewFactoryDescriptor registers a factory.
func NewFactoryDescriptor(serviceType reflect.Type, factory Factory, lifetime ServiceLifetime) *ServiceDescriptor {
	return &ServiceDescriptor{
		ServiceType:           serviceType,
		ImplementationFactory: factory,
		Lifetime:              lifetime,
	}
}

// NewInstanceDescriptor registers an existing instance as a singleton.
func NewInstanceDescriptor(serviceType reflect.Type, instance any) *ServiceDescriptor {
	return &ServiceDescriptor{
		ServiceType:            serviceType,
		ImplementationInstance: instance,
		Lifetime:               Singleton,
	}
}

// NewKeyedTypeDescriptor is the keyed form of NewTypeDescriptor.
func NewKeyedTypeDescriptor(serviceType reflect.Type, serviceKey any, implementationType reflect.Type, lifetime ServiceLifetime) *ServiceDescriptor {
	d := NewTypeDescriptor(serviceType, implementationType, lifetime)
	d.ServiceKey = serviceKey
	d.IsKeyedService = true
	return d
}

// NewKeyedFactoryDescriptor is the keyed form of NewFactoryDescriptor.
func NewKeyedFactoryDescriptor(serviceType reflect.Type, serviceKey any, factory KeyedFactory, lifetime ServiceLifetime) *ServiceDescriptor {
	return &ServiceDescriptor{
		ServiceType:                serviceType,
		ServiceKey:                 serviceKey,
		IsKeyedService:             true,
		KeyedImplementationFactory: factory,
		Lifetime:                   lifetime,
	}
}

// NewKeyedInstanceDescriptor is the keyed form of NewInstanceDescriptor.
func NewKeyedInstanceDescriptor(serviceType reflect.Type, serviceKey any, instance any) *ServiceDescriptor {
	d := NewInstanceDescriptor(serviceType, instance)
	d.ServiceKey = serviceKey
	d.IsKeyedService = true
	return d
}

// Kind names the construction strategy: "type", "factory", "instance" or "invalid".
func (d *ServiceDescriptor) Kind() string {
	switch {
	case d.strategies() != 1:
		return "invalid"
	case d.ImplementationType != nil:
		return "type"
	case d.ImplementationInstance != nil:
		return "instance"
	default:
		return "factory"
	}
}

func (d *ServiceDescriptor) strategies() int {
	n := 0
	if d.ImplementationType != nil {
		n++
	}
	if d.ImplementationFactory != nil {
		n++
	}
	if d.KeyedImplementationFactory != nil {
		n++
	}
	if d.ImplementationInstance != nil {
		n++
	}
	return n
}

func (d *ServiceDescriptor) String() string {
	var b strings.Builder
	b.WriteString(typeName(d.ServiceType))
	if d.IsKeyedService {
		fmt.Fprintf(&b, " [key=%v]", d.ServiceKey)
	}
	fmt.Fprintf(&b, " (%s, %s)", d.Lifetime, d.Kind())
	return b.String()
}

func (d *ServiceDescriptor) validate() error {
	if d == nil {
		return ErrNilDescriptor
	}
	if d.ServiceType == nil {
		return ErrNilServiceType
	}
	if !d.Lifetime.IsValid() {
		return fmt.Errorf("%w: %q for %s", ErrInvalidLifetime, d.Lifetime, typeName(d.ServiceType))
	}
	if d.strategies() != 1 {
		return fmt.Errorf("%w: %s", ErrInvalidDescriptor, typeName(d.ServiceType))
	}
	if d.ImplementationInstance != nil {
		if d.Lifetime != Singleton {
			return fmt.Errorf("%w: %s", ErrInstanceNotSingleton, typeName(d.ServiceType))
		}
		if !reflect.TypeOf(d.ImplementationInstance).AssignableTo(d.ServiceType) {
			return fmt.Errorf("%w: %T is not assignable to %s", ErrServiceWrongType, d.ImplementationInstance, typeName(d.ServiceType))
		}
	}
	if d.KeyedImplementationFactory != nil && !d.IsKeyedService {
		return fmt.Errorf("%w: %s", ErrKeyedFactoryNotKeyed, typeName(d.ServiceType))
	}
	if d.IsKeyedService && !isComparable(d.ServiceKey) {
		return fmt.Errorf("%w: %T", ErrServiceKeyNotComparable, d.ServiceKey)
	}
	return nil
}

func (d *ServiceDescriptor) identity() serviceIdentifier {
	return serviceIdentifier{serviceType: d.ServiceType, keyed: d.IsKeyedService, key: d.ServiceKey}
}

// serviceIdentifier is the lookup key of a registration. keyed=false is the
// "no key" sentinel, so a keyed nil key never collides with an unkeyed entry.
type serviceIdentifier struct {
	serviceType reflect.Type
	keyed       bool
	key         any
}

func (id serviceIdentifier) String() string {
	if id.keyed {
		return fmt.Sprintf("%s [key=%v]", typeName(id.serviceType), id.key)
	}
	return typeName(id.serviceType)
}

// isComparable checks the dynamic value, so a struct key whose interface
// field holds a slice is rejected rather than panicking on ==.
func isComparable(key any) bool {
	return key == nil || reflect.ValueOf(key).Comparable()
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

func toKeyString(key any) string {
	return fmt.Sprint(key)
}
