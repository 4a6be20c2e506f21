package interception

import (
	"reflect"

	"github.com/GoCodeAlone/interception/di"
	"github.com/GoCodeAlone/interception/proxy"
)

type registerFunc func(*di.ServiceCollection, Registration) (*di.ServiceCollection, error)

func requireServices(services *di.ServiceCollection, serviceType reflect.Type) error {
	if services == nil {
		return argumentNil("services")
	}
	if serviceType == nil {
		return argumentNil("serviceType")
	}
	return nil
}

func addSelf(register registerFunc, services *di.ServiceCollection, r Registration) (*di.ServiceCollection, error) {
	if err := requireServices(services, r.ServiceType); err != nil {
		return services, err
	}
	return register(services, r)
}

func addType(register registerFunc, services *di.ServiceCollection, r Registration) (*di.ServiceCollection, error) {
	if err := requireServices(services, r.ServiceType); err != nil {
		return services, err
	}
	if r.ImplementationType == nil {
		return services, argumentNil("implementationType")
	}
	return register(services, r)
}

func addFactory(register registerFunc, services *di.ServiceCollection, r Registration) (*di.ServiceCollection, error) {
	if err := requireServices(services, r.ServiceType); err != nil {
		return services, err
	}
	if r.Factory == nil && r.KeyedFactory == nil {
		return services, argumentNil("factory")
	}
	return register(services, r)
}

// AddIntercepted registers serviceType as its own implementation.
func AddIntercepted(services *di.ServiceCollection, serviceType reflect.Type, lifetime di.ServiceLifetime, interceptors ...proxy.Interceptor) (*di.ServiceCollection, error) {
	return addSelf(Register, services, Registration{ServiceType: serviceType, Lifetime: lifetime, Interceptors: interceptors})
}

// AddInterceptedType registers implementationType for serviceType.
func AddInterceptedType(services *di.ServiceCollection, serviceType, implementationType reflect.Type, lifetime di.ServiceLifetime, interceptors ...proxy.Interceptor) (*di.ServiceCollection, error) {
	return addType(Register, services, Registration{
		ServiceType:        serviceType,
		ImplementationType: implementationType,
		Lifetime:           lifetime,
		Interceptors:       interceptors,
	})
}

// AddInterceptedFactory registers factory for serviceType.
func AddInterceptedFactory(services *di.ServiceCollection, serviceType reflect.Type, factory di.Factory, lifetime di.ServiceLifetime, interceptors ...proxy.Interceptor) (*di.ServiceCollection, error) {
	return addFactory(Register, services, Registration{
		ServiceType:  serviceType,
		Factory:      factory,
		Lifetime:     lifetime,
		Interceptors: interceptors,
	})
}

// AddKeyedIntercepted registers serviceType as its own implementation under serviceKey.
// A nil serviceKey is a valid key.
func AddKeyedIntercepted(services *di.ServiceCollection, serviceType reflect.Type, serviceKey any, lifetime di.ServiceLifetime, interceptors ...proxy.Interceptor) (*di.ServiceCollection, error) {
	return addSelf(Register, services, Registration{
		ServiceType:  serviceType,
		ServiceKey:   serviceKey,
		Keyed:        true,
		Lifetime:     lifetime,
		Interceptors: interceptors,
	})
}

// AddKeyedInterceptedType registers implementationType for serviceType under serviceKey.
func AddKeyedInterceptedType(services *di.ServiceCollection, serviceType reflect.Type, serviceKey any, implementationType reflect.Type, lifetime di.ServiceLifetime, interceptors ...proxy.Interceptor) (*di.ServiceCollection, error) {
	return addType(Register, services, Registration{
		ServiceType:        serviceType,
		ServiceKey:         serviceKey,
		Keyed:              true,
		ImplementationType: implementationType,
		Lifetime:           lifetime,
		Interceptors:       interceptors,
	})
}

// AddKeyedInterceptedFactory registers factory for serviceType under serviceKey.
// The factory receives the key.
func AddKeyedInterceptedFactory(services *di.ServiceCollection, serviceType reflect.Type, serviceKey any, factory di.KeyedFactory, lifetime di.ServiceLifetime, interceptors ...proxy.Interceptor) (*di.ServiceCollection, error) {
	return addFactory(Register, services, Registration{
		ServiceType:  serviceType,
		ServiceKey:   serviceKey,
		Keyed:        true,
		KeyedFactory: factory,
		Lifetime:     lifetime,
		Interceptors: interceptors,
	})
}

// TryAddIntercepted is AddIntercepted that does nothing when serviceType is already registered.
func TryAddIntercepted(services *di.ServiceCollection, serviceType reflect.Type, lifetime di.ServiceLifetime, interceptors ...proxy.Interceptor) (*di.ServiceCollection, error) {
	return addSelf(TryRegister, services, Registration{ServiceType: serviceType, Lifetime: lifetime, Interceptors: interceptors})
}

// TryAddInterceptedType is AddInterceptedType that does nothing when serviceType is already registered.
func TryAddInterceptedType(services *di.ServiceCollection, serviceType, implementationType reflect.Type, lifetime di.ServiceLifetime, interceptors ...proxy.Interceptor) (*di.ServiceCollection, error) {
	return addType(TryRegister, services, Registration{
		ServiceType:        serviceType,
		ImplementationType: implementationType,
		Lifetime:           lifetime,
		Interceptors:       interceptors,
	})
}

// TryAddInterceptedFactory is AddInterceptedFactory that does nothing when serviceType is already registered.
func TryAddInterceptedFactory(services *di.ServiceCollection, serviceType reflect.Type, factory di.Factory, lifetime di.ServiceLifetime, interceptors ...proxy.Interceptor) (*di.ServiceCollection, error) {
	return addFactory(TryRegister, services, Registration{
		ServiceType:  serviceType,
		Factory:      factory,
		Lifetime:     lifetime,
		Interceptors: interceptors,
	})
}

// TryAddKeyedIntercepted is AddKeyedIntercepted that does nothing when
// serviceType is already registered under serviceKey.
func TryAddKeyedIntercepted(services *di.ServiceCollection, serviceType reflect.Type, serviceKey any, lifetime di.ServiceLifetime, interceptors ...proxy.Interceptor) (*di.ServiceCollection, error) {
	return addSelf(TryRegister, services, Registration{
		ServiceType:  serviceType,
		ServiceKey:   serviceKey,
		Keyed:        true,
		Lifetime:     lifetime,
		Interceptors: interceptors,
	})
}

// TryAddKeyedInterceptedType is AddKeyedInterceptedType that does nothing when
// serviceType is already registered under serviceKey.
func TryAddKeyedInterceptedType(services *di.ServiceCollection, serviceType reflect.Type, serviceKey any, implementationType reflect.Type, lifetime di.ServiceLifetime, interceptors ...proxy.Interceptor) (*di.ServiceCollection, error) {
	return addType(TryRegister, services, Registration{
		ServiceType:        serviceType,
		ServiceKey:         serviceKey,
		Keyed:              true,
		ImplementationType: implementationType,
		Lifetime:           lifetime,
		Interceptors:       interceptors,
	})
}

// TryAddKeyedInterceptedFactory is AddKeyedInterceptedFactory that does nothing
// when serviceType is already registered under serviceKey.
func TryAddKeyedInterceptedFactory(services *di.ServiceCollection, serviceType reflect.Type, serviceKey any, factory di.KeyedFactory, lifetime di.ServiceLifetime, interceptors ...proxy.Interceptor) (*di.ServiceCollection, error) {
	return addFactory(TryRegister, services, Registration{
		ServiceType:  serviceType,
		ServiceKey:   serviceKey,
		Keyed:        true,
		KeyedFactory: factory,
		Lifetime:     lifetime,
		Interceptors: interceptors,
	})
}
