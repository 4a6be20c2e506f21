package proxy

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/GoCodeAlone/interception/events"
	"github.com/GoCodeAlone/interception/logging"
)

const eventSource = "interception/proxy"

// Factory builds a proxy for target that forwards every call through invoker.
type Factory func(target any, invoker *Invoker) any

// Generator creates proxies for service types. Interface types need a factory
// registered with Register; function types are proxied dynamically.
type Generator struct {
	mu        sync.RWMutex
	factories map[reflect.Type]Factory
	logger    logging.Logger
	subject   events.Subject
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the generator logger.
func WithLogger(logger logging.Logger) Option {
	return func(g *Generator) {
		g.logger = logging.OrNop(logger)
	}
}

// WithSubject publishes proxy.created events to subject.
func WithSubject(subject events.Subject) Option {
	return func(g *Generator) {
		g.subject = subject
	}
}

// NewGenerator creates an empty generator.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		factories: make(map[reflect.Type]Factory),
		logger:    logging.NopLogger{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Default is the generator generated proxies register with from init.
var Default = NewGenerator()

// Register installs a typed proxy factory for the interface T.
func Register[T any](g *Generator, factory func(target T, invoker *Invoker) T) error {
	if g == nil {
		return ErrNilGenerator
	}
	if factory == nil {
		return ErrNilFactory
	}
	return g.RegisterFactory(reflect.TypeFor[T](), func(target any, invoker *Invoker) any {
		return factory(target.(T), invoker)
	})
}

// MustRegister is Register that panics on error. Generated code calls it from init.
func MustRegister[T any](g *Generator, factory func(target T, invoker *Invoker) T) {
	if err := Register(g, factory); err != nil {
		panic(err)
	}
}

// RegisterFactory installs an untyped proxy factory for an interface type.
func (g *Generator) RegisterFactory(serviceType reflect.Type, factory Factory) error {
	if serviceType == nil {
		return ErrNilServiceType
	}
	if factory == nil {
		return ErrNilFactory
	}
	if serviceType.Kind() != reflect.Interface {
		return fmt.Errorf("%w: %s", ErrNotInterface, serviceType)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.factories[serviceType]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateFactory, serviceType)
	}
	g.factories[serviceType] = factory
	g.logger.Debug("Registered proxy factory", "serviceType", serviceType.String())
	return nil
}

// HasFactory reports whether a typed factory is registered for serviceType.
func (g *Generator) HasFactory(serviceType reflect.Type) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.factories[serviceType]
	return ok
}

// CanProxy reports whether CreateProxy can handle serviceType.
func (g *Generator) CanProxy(serviceType reflect.Type) bool {
	if serviceType == nil {
		return false
	}
	return serviceType.Kind() == reflect.Func || g.HasFactory(serviceType)
}

// CreateProxy wraps target so that calls pass through interceptors in order.
func (g *Generator) CreateProxy(serviceType reflect.Type, target any, interceptors ...Interceptor) (any, error) {
	if serviceType == nil {
		return nil, ErrNilServiceType
	}
	if target == nil {
		return nil, fmt.Errorf("%w: %s", ErrNilTarget, serviceType)
	}
	if !reflect.TypeOf(target).AssignableTo(serviceType) {
		return nil, fmt.Errorf("%w: %T is not %s", ErrTargetMismatch, target, serviceType)
	}

	invoker := NewInvoker(serviceType, target, interceptors...)

	g.mu.RLock()
	factory, ok := g.factories[serviceType]
	g.mu.RUnlock()

	var instance any
	switch {
	case ok:
		instance = factory(target, invoker)
		if instance == nil || !reflect.TypeOf(instance).AssignableTo(serviceType) {
			return nil, fmt.Errorf("%w: %s", ErrFactoryResult, serviceType)
		}
	case serviceType.Kind() == reflect.Func:
		instance = funcProxy(serviceType, target, invoker)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNoProxyFactory, serviceType)
	}

	g.logger.Debug("Created proxy",
		"serviceType", serviceType.String(),
		"interceptors", len(invoker.interceptors))
	events.Emit(context.Background(), g.subject, g.logger, events.EventTypeProxyCreated, eventSource,
		map[string]any{
			"serviceType":  serviceType.String(),
			"targetType":   fmt.Sprintf("%T", target),
			"interceptors": len(invoker.interceptors),
		})
	return instance, nil
}

// CreateProxy is the typed form of Generator.CreateProxy.
func CreateProxy[T any](g *Generator, target T, interceptors ...Interceptor) (T, error) {
	var zero T
	if g == nil {
		return zero, ErrNilGenerator
	}
	instance, err := g.CreateProxy(reflect.TypeFor[T](), any(target), interceptors...)
	if err != nil {
		return zero, err
	}
	return instance.(T), nil
}

// funcProxy builds a function of type fnType that routes through invoker.
// The method name recorded on invocations is the named type, or "Invoke".
func funcProxy(fnType reflect.Type, target any, invoker *Invoker) any {
	fn := reflect.ValueOf(target)
	method := fnType.Name()
	if method == "" {
		method = "Invoke"
	}

	proxied := reflect.MakeFunc(fnType, func(in []reflect.Value) []reflect.Value {
		args := make([]any, len(in))
		for i, v := range in {
			args[i] = v.Interface()
		}

		inv := invoker.Invoke(method, args, func(inv *Invocation) {
			callIn := make([]reflect.Value, fnType.NumIn())
			for i := range callIn {
				callIn[i] = valueOf(inv.Argument(i), fnType.In(i))
			}
			var out []reflect.Value
			if fnType.IsVariadic() {
				out = fn.CallSlice(callIn)
			} else {
				out = fn.Call(callIn)
			}
			inv.ReturnValues = make([]any, len(out))
			for i, v := range out {
				inv.ReturnValues[i] = v.Interface()
			}
		})

		results := make([]reflect.Value, fnType.NumOut())
		for i := range results {
			results[i] = valueOf(inv.ReturnValue(i), fnType.Out(i))
		}
		return results
	})
	return proxied.Interface()
}

// valueOf returns value as a reflect.Value of exactly type t, or the zero t
// when value is nil or incompatible.
func valueOf(value any, t reflect.Type) reflect.Value {
	out := reflect.New(t).Elem()
	if value == nil {
		return out
	}
	v := reflect.ValueOf(value)
	switch {
	case v.Type().AssignableTo(t):
		out.Set(v)
	case v.Type().ConvertibleTo(t):
		out.Set(v.Convert(t))
	}
	return out
}
