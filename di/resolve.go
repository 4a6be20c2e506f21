package di

import (
	"fmt"
	"reflect"
)

// TypeOf returns the reflect.Type of T, including interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// Resolve resolves the unkeyed registration of T.
func Resolve[T any](r ServiceResolver) (T, error) {
	var zero T
	if r == nil {
		return zero, ErrNilResolver
	}
	instance, err := r.Resolve(TypeOf[T]())
	if err != nil {
		return zero, err
	}
	return cast[T](instance)
}

// ResolveKeyed resolves the registration of T under key.
func ResolveKeyed[T any](r ServiceResolver, key any) (T, error) {
	var zero T
	if r == nil {
		return zero, ErrNilResolver
	}
	instance, err := r.ResolveKeyed(TypeOf[T](), key)
	if err != nil {
		return zero, err
	}
	return cast[T](instance)
}

// ResolveAll resolves every unkeyed registration of T.
func ResolveAll[T any](r ServiceResolver) ([]T, error) {
	if r == nil {
		return nil, ErrNilResolver
	}
	instances, err := r.ResolveAll(TypeOf[T]())
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(instances))
	for _, instance := range instances {
		typed, err := cast[T](instance)
		if err != nil {
			return nil, err
		}
		out = append(out, typed)
	}
	return out, nil
}

// MustResolve is Resolve that panics on error. Intended for composition roots.
func MustResolve[T any](r ServiceResolver) T {
	instance, err := Resolve[T](r)
	if err != nil {
		panic(err)
	}
	return instance
}

func cast[T any](instance any) (T, error) {
	typed, ok := instance.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %T is not %s", ErrServiceWrongType, instance, TypeOf[T]())
	}
	return typed, nil
}
