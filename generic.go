package interception

import (
	"github.com/GoCodeAlone/interception/di"
	"github.com/GoCodeAlone/interception/proxy"
)

// AddInterceptedSingleton registers a typed factory for T as a singleton.
func AddInterceptedSingleton[T any](services *di.ServiceCollection, factory func(di.ServiceResolver) (T, error), interceptors ...proxy.Interceptor) (*di.ServiceCollection, error) {
	return addTyped(services, factory, di.Singleton, interceptors)
}

// AddInterceptedScoped registers a typed factory for T as a scoped service.
func AddInterceptedScoped[T any](services *di.ServiceCollection, factory func(di.ServiceResolver) (T, error), interceptors ...proxy.Interceptor) (*di.ServiceCollection, error) {
	return addTyped(services, factory, di.Scoped, interceptors)
}

// AddInterceptedTransient registers a typed factory for T as a transient service.
func AddInterceptedTransient[T any](services *di.ServiceCollection, factory func(di.ServiceResolver) (T, error), interceptors ...proxy.Interceptor) (*di.ServiceCollection, error) {
	return addTyped(services, factory, di.Transient, interceptors)
}

// AddKeyedInterceptedSingleton registers a typed keyed factory for T as a singleton.
func AddKeyedInterceptedSingleton[T any](services *di.ServiceCollection, key any, factory func(di.ServiceResolver, any) (T, error), interceptors ...proxy.Interceptor) (*di.ServiceCollection, error) {
	return addKeyedTyped(services, key, factory, di.Singleton, interceptors)
}

// AddKeyedInterceptedScoped registers a typed keyed factory for T as a scoped service.
func AddKeyedInterceptedScoped[T any](services *di.ServiceCollection, key any, factory func(di.ServiceResolver, any) (T, error), interceptors ...proxy.Interceptor) (*di.ServiceCollection, error) {
	return addKeyedTyped(services, key, factory, di.Scoped, interceptors)
}

// AddKeyedInterceptedTransient registers a typed keyed factory for T as a transient service.
func AddKeyedInterceptedTransient[T any](services *di.ServiceCollection, key any, factory func(di.ServiceResolver, any) (T, error), interceptors ...proxy.Interceptor) (*di.ServiceCollection, error) {
	return addKeyedTyped(services, key, factory, di.Transient, interceptors)
}

func addTyped[T any](services *di.ServiceCollection, factory func(di.ServiceResolver) (T, error), lifetime di.ServiceLifetime, interceptors []proxy.Interceptor) (*di.ServiceCollection, error) {
	if factory == nil {
		if services == nil {
			return nil, argumentNil("services")
		}
		return services, argumentNil("factory")
	}
	return AddInterceptedFactory(services, di.TypeOf[T](), func(r di.ServiceResolver) (any, error) {
		instance, err := factory(r)
		if err != nil {
			return nil, err
		}
		return instance, nil
	}, lifetime, interceptors...)
}

func addKeyedTyped[T any](services *di.ServiceCollection, key any, factory func(di.ServiceResolver, any) (T, error), lifetime di.ServiceLifetime, interceptors []proxy.Interceptor) (*di.ServiceCollection, error) {
	if factory == nil {
		if services == nil {
			return nil, argumentNil("services")
		}
		return services, argumentNil("factory")
	}
	return AddKeyedInterceptedFactory(services, di.TypeOf[T](), key, func(r di.ServiceResolver, key any) (any, error) {
		instance, err := factory(r, key)
		if err != nil {
			return nil, err
		}
		return instance, nil
	}, lifetime, interceptors...)
}
