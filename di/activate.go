package di

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

const injectTag = "inject"

// Activate allocates implementationType and resolves its injectable fields.
//
// implementationType must be a struct or a pointer to a struct. Exported
// fields tagged `inject:""` are resolved by their type; `inject:"name"`
// resolves the keyed registration whose key is the string "name"; an
// ",optional" suffix leaves the field zero when nothing is registered.
// A pointer type yields a pointer, a struct type yields a value.
func Activate(r ServiceResolver, implementationType reflect.Type) (any, error) {
	if r == nil {
		return nil, ErrNilResolver
	}
	if err := checkActivatable(implementationType); err != nil {
		return nil, err
	}

	structType := implementationType
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}

	ptr := reflect.New(structType)
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		tag, ok := field.Tag.Lookup(injectTag)
		if !ok {
			continue
		}
		key, optional := parseInjectTag(tag)

		var (
			dependency any
			err        error
		)
		if key == "" {
			dependency, err = r.Resolve(field.Type)
		} else {
			dependency, err = r.ResolveKeyed(field.Type, key)
		}
		if err != nil {
			if optional && errors.Is(err, ErrServiceNotFound) {
				continue
			}
			return nil, fmt.Errorf("%w: field %s.%s: %w", ErrCannotActivate, typeName(structType), field.Name, err)
		}
		ptr.Elem().Field(i).Set(reflect.ValueOf(dependency))
	}

	if implementationType.Kind() == reflect.Pointer {
		return ptr.Interface(), nil
	}
	return ptr.Elem().Interface(), nil
}

func checkActivatable(t reflect.Type) error {
	if t == nil {
		return fmt.Errorf("%w: implementation type is nil", ErrCannotActivate)
	}
	structType := t
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %s is not a struct or pointer to struct", ErrCannotActivate, typeName(t))
	}
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if _, ok := field.Tag.Lookup(injectTag); ok && !field.IsExported() {
			return fmt.Errorf("%w: field %s.%s is tagged for injection but unexported", ErrCannotActivate, typeName(structType), field.Name)
		}
	}
	return nil
}

func parseInjectTag(tag string) (key string, optional bool) {
	parts := strings.Split(tag, ",")
	key = strings.TrimSpace(parts[0])
	for _, opt := range parts[1:] {
		if strings.TrimSpace(opt) == "optional" {
			optional = true
		}
	}
	return key, optional
}
