// Package proxy creates proxies that route every call on a service through an
// ordered chain of interceptors before reaching the real target.
//
// Go cannot synthesize method sets at runtime, so interface proxies are typed
// factories registered with a Generator, normally produced by cmd/proxygen.
// Function-typed services are proxied dynamically with reflect.MakeFunc.
package proxy

import (
	"context"
	"reflect"

	"github.com/GoCodeAlone/interception/events"
)

// Interceptor observes or wraps a call. It continues the chain with
// Invocation.Proceed; not calling it short-circuits the target.
type Interceptor interface {
	Intercept(inv *Invocation)
}

// InterceptorFunc adapts a function to Interceptor.
type InterceptorFunc func(inv *Invocation)

// Intercept calls f(inv).
func (f InterceptorFunc) Intercept(inv *Invocation) {
	f(inv)
}

// Invocation is one call travelling through an interceptor chain.
// Interceptors may rewrite Arguments before proceeding and ReturnValues after.
type Invocation struct {
	ID           string
	Method       string
	ServiceType  reflect.Type
	Target       any
	Arguments    []any
	ReturnValues []any

	interceptors []Interceptor
	index        int
	terminal     func(*Invocation)
}

// Proceed calls the next interceptor, or the target when the chain is
// exhausted. It may be called more than once, for example to retry.
func (inv *Invocation) Proceed() {
	i := inv.index
	if i >= len(inv.interceptors) {
		inv.terminal(inv)
		return
	}
	inv.index++
	defer func() { inv.index = i }()
	inv.interceptors[i].Intercept(inv)
}

// ProceedToTarget skips the remaining interceptors and calls the target.
func (inv *Invocation) ProceedToTarget() {
	inv.terminal(inv)
}

// Context returns the first argument when it is a context.Context,
// otherwise context.Background.
func (inv *Invocation) Context() context.Context {
	if len(inv.Arguments) > 0 {
		if ctx, ok := inv.Arguments[0].(context.Context); ok && ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

// Argument returns argument i, or nil when out of range.
func (inv *Invocation) Argument(i int) any {
	if i < 0 || i >= len(inv.Arguments) {
		return nil
	}
	return inv.Arguments[i]
}

// ReturnValue returns return value i, or nil when out of range.
func (inv *Invocation) ReturnValue(i int) any {
	if i < 0 || i >= len(inv.ReturnValues) {
		return nil
	}
	return inv.ReturnValues[i]
}

// SetReturnValue sets return value i, growing ReturnValues as needed.
func (inv *Invocation) SetReturnValue(i int, value any) {
	for len(inv.ReturnValues) <= i {
		inv.ReturnValues = append(inv.ReturnValues, nil)
	}
	inv.ReturnValues[i] = value
}

// Err returns the last return value when it is a non-nil error.
func (inv *Invocation) Err() error {
	if len(inv.ReturnValues) == 0 {
		return nil
	}
	err, _ := inv.ReturnValues[len(inv.ReturnValues)-1].(error)
	return err
}

// Invoker runs invocations for one proxy: one target, one interceptor chain.
type Invoker struct {
	serviceType  reflect.Type
	target       any
	interceptors []Interceptor
}

// NewInvoker creates an invoker. Nil interceptors are dropped; the slice is copied.
func NewInvoker(serviceType reflect.Type, target any, interceptors ...Interceptor) *Invoker {
	return &Invoker{
		serviceType:  serviceType,
		target:       target,
		interceptors: compact(interceptors),
	}
}

// Target returns the proxied instance.
func (iv *Invoker) Target() any {
	return iv.target
}

// ServiceType returns the contract the proxy implements.
func (iv *Invoker) ServiceType() reflect.Type {
	return iv.serviceType
}

// Interceptors returns a copy of the chain in call order.
func (iv *Invoker) Interceptors() []Interceptor {
	out := make([]Interceptor, len(iv.interceptors))
	copy(out, iv.interceptors)
	return out
}

// Invoke runs method through the chain. terminal calls the real target using
// inv.Arguments and stores its results in inv.ReturnValues.
func (iv *Invoker) Invoke(method string, args []any, terminal func(inv *Invocation)) *Invocation {
	inv := &Invocation{
		ID:           events.NewID(),
		Method:       method,
		ServiceType:  iv.serviceType,
		Target:       iv.target,
		Arguments:    args,
		interceptors: iv.interceptors,
		terminal:     terminal,
	}
	inv.Proceed()
	return inv
}

// Arg returns argument i as T, or the zero T when absent or of another type.
func Arg[T any](inv *Invocation, i int) T {
	value, _ := inv.Argument(i).(T)
	return value
}

// Result returns return value i as T, or the zero T when absent or of another type.
func Result[T any](inv *Invocation, i int) T {
	value, _ := inv.ReturnValue(i).(T)
	return value
}

// Proxy is implemented by generated interface proxies.
type Proxy interface {
	ProxyInvoker() *Invoker
}

// Unwrap returns the target behind a generated proxy.
func Unwrap(instance any) (any, bool) {
	p, ok := instance.(Proxy)
	if !ok {
		return instance, false
	}
	return p.ProxyInvoker().Target(), true
}

func compact(interceptors []Interceptor) []Interceptor {
	out := make([]Interceptor, 0, len(interceptors))
	for _, interceptor := range interceptors {
		if interceptor != nil {
			out = append(out, interceptor)
		}
	}
	return out
}
