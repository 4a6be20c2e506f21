// Package interception registers services into a di.ServiceCollection so that
// resolving them yields either the raw implementation or, when interceptors
// are supplied, a proxy that routes every call through those interceptors
// before reaching the implementation.
//
//	services := di.NewServiceCollection()
//	_, err := interception.AddKeyedInterceptedFactory(services,
//		di.TypeOf[ITestService](), "test-key",
//		func(di.ServiceResolver, any) (any, error) { return NewTestService(), nil },
//		di.Transient, capture)
//
// Interface proxies come from factories registered with proxy.Default, usually
// generated by cmd/proxygen. Function-typed services need no generated code.
package interception

import (
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/GoCodeAlone/interception/di"
	"github.com/GoCodeAlone/interception/logging"
	"github.com/GoCodeAlone/interception/proxy"
)

// ErrArgumentNil is returned when a required argument is nil. The error
// message names the argument.
var ErrArgumentNil = errors.New("argument is nil")

// Logger is the structured logger used by the built-in interceptors.
type Logger = logging.Logger

func argumentNil(name string) error {
	return fmt.Errorf("%w: %s", ErrArgumentNil, name)
}

// Registration is one intercepted registration request.
//
// At most one of ImplementationType, Factory and KeyedFactory is set; when
// none is, ServiceType itself is activated. Keyed marks a keyed registration,
// which makes a nil ServiceKey a valid key distinct from an unkeyed one.
type Registration struct {
	ServiceType reflect.Type
	ServiceKey  any
	Keyed       bool

	ImplementationType reflect.Type
	Factory            di.Factory
	KeyedFactory       di.KeyedFactory

	Lifetime     di.ServiceLifetime
	Interceptors []proxy.Interceptor

	// Generator overrides proxy.Default. A *proxy.Generator registered in the
	// container takes precedence over both.
	Generator *proxy.Generator
}

// Register adds the registration to services. Later registrations of the same
// service type and key take precedence at resolution time.
func Register(services *di.ServiceCollection, r Registration) (*di.ServiceCollection, error) {
	d, err := r.descriptor(services)
	if err != nil {
		return services, err
	}
	if err := services.Add(d); err != nil {
		return services, err
	}
	return services, nil
}

// TryRegister adds the registration only when services has no descriptor for
// the same service type and key. An existing registration is left untouched
// and no error is returned.
func TryRegister(services *di.ServiceCollection, r Registration) (*di.ServiceCollection, error) {
	d, err := r.descriptor(services)
	if err != nil {
		return services, err
	}
	if _, err := services.TryAdd(d); err != nil {
		return services, err
	}
	return services, nil
}

func (r Registration) descriptor(services *di.ServiceCollection) (*di.ServiceDescriptor, error) {
	if services == nil {
		return nil, argumentNil("services")
	}
	if r.ServiceType == nil {
		return nil, argumentNil("serviceType")
	}

	if r.strategies() > 1 {
		return nil, fmt.Errorf("%w: %s has more than one of implementation type, factory and keyed factory",
			di.ErrInvalidDescriptor, r.ServiceType)
	}
	if r.KeyedFactory != nil && !r.Keyed {
		return nil, fmt.Errorf("%w: %s", di.ErrKeyedFactoryNotKeyed, r.ServiceType)
	}

	interceptors := compact(r.Interceptors)
	target := r.target()

	services.Logger().Debug("Registering service",
		"serviceType", r.ServiceType.String(),
		"keyed", r.Keyed,
		"lifetime", string(r.Lifetime),
		"interceptors", len(interceptors))

	if len(interceptors) == 0 {
		return r.rawDescriptor(), nil
	}

	serviceType := r.ServiceType
	generator := r.Generator
	intercepted := func(resolver di.ServiceResolver, key any) (any, error) {
		instance, err := target(resolver, key)
		if err != nil {
			return nil, err
		}
		g, err := selectGenerator(resolver, generator)
		if err != nil {
			trackTarget(resolver, instance, nil)
			return nil, err
		}
		proxied, err := g.CreateProxy(serviceType, instance, interceptors...)
		trackTarget(resolver, instance, proxied)
		if err != nil {
			return nil, err
		}
		return proxied, nil
	}

	if r.Keyed {
		return di.NewKeyedFactoryDescriptor(serviceType, r.ServiceKey, intercepted, r.Lifetime), nil
	}
	return di.NewFactoryDescriptor(serviceType, func(resolver di.ServiceResolver) (any, error) {
		return intercepted(resolver, nil)
	}, r.Lifetime), nil
}

// rawDescriptor registers the implementation without a proxy.
func (r Registration) rawDescriptor() *di.ServiceDescriptor {
	switch {
	case r.KeyedFactory != nil:
		return di.NewKeyedFactoryDescriptor(r.ServiceType, r.ServiceKey, r.KeyedFactory, r.Lifetime)
	case r.Factory != nil && r.Keyed:
		factory := r.Factory
		return di.NewKeyedFactoryDescriptor(r.ServiceType, r.ServiceKey, func(resolver di.ServiceResolver, _ any) (any, error) {
			return factory(resolver)
		}, r.Lifetime)
	case r.Factory != nil:
		return di.NewFactoryDescriptor(r.ServiceType, r.Factory, r.Lifetime)
	case r.Keyed:
		return di.NewKeyedTypeDescriptor(r.ServiceType, r.ServiceKey, r.implementationType(), r.Lifetime)
	default:
		return di.NewTypeDescriptor(r.ServiceType, r.implementationType(), r.Lifetime)
	}
}

// target returns the function that produces the unproxied instance.
func (r Registration) target() di.KeyedFactory {
	switch {
	case r.KeyedFactory != nil:
		return r.KeyedFactory
	case r.Factory != nil:
		factory := r.Factory
		return func(resolver di.ServiceResolver, _ any) (any, error) {
			return factory(resolver)
		}
	default:
		implementationType := r.implementationType()
		serviceType := r.ServiceType
		return func(resolver di.ServiceResolver, _ any) (any, error) {
			instance, err := di.Activate(resolver, implementationType)
			if err != nil {
				return nil, fmt.Errorf("activating %s for %s: %w", implementationType, serviceType, err)
			}
			return instance, nil
		}
	}
}

func (r Registration) strategies() int {
	n := 0
	if r.ImplementationType != nil {
		n++
	}
	if r.Factory != nil {
		n++
	}
	if r.KeyedFactory != nil {
		n++
	}
	return n
}

func (r Registration) implementationType() reflect.Type {
	if r.ImplementationType != nil {
		return r.ImplementationType
	}
	return r.ServiceType
}

var generatorType = reflect.TypeFor[*proxy.Generator]()

// selectGenerator prefers a generator registered in the container, then the
// registration's own, then proxy.Default.
func selectGenerator(resolver di.ServiceResolver, fallback *proxy.Generator) (*proxy.Generator, error) {
	instance, err := resolver.Resolve(generatorType)
	switch {
	case err == nil:
		if g, ok := instance.(*proxy.Generator); ok && g != nil {
			return g, nil
		}
	case !errors.Is(err, di.ErrServiceNotFound):
		return nil, err
	}
	if fallback != nil {
		return fallback, nil
	}
	return proxy.Default, nil
}

// trackTarget hands a closable target to the resolving scope unless the proxy
// is itself an io.Closer, in which case the scope closes the proxy and the
// call reaches the target through the interceptors.
func trackTarget(resolver di.ServiceResolver, target, proxied any) {
	closer, ok := target.(io.Closer)
	if !ok {
		return
	}
	if _, forwards := proxied.(io.Closer); forwards {
		return
	}
	di.TrackDisposable(resolver, closer)
}

func compact(interceptors []proxy.Interceptor) []proxy.Interceptor {
	out := make([]proxy.Interceptor, 0, len(interceptors))
	for _, interceptor := range interceptors {
		if interceptor != nil {
			out = append(out, interceptor)
		}
	}
	return out
}
