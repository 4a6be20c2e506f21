package config

import (
	"reflect"
	"strings"
)

// Change is one top-level field that differs between two configurations.
type Change struct {
	FieldPath string `json:"field_path"`
	OldValue  any    `json:"old_value"`
	NewValue  any    `json:"new_value"`
}

// Diff lists the top-level fields of next that differ from prev, named by
// their yaml keys. A nil prev is compared against the zero Config.
func Diff(prev, next *Config) []Change {
	if prev == nil {
		prev = &Config{}
	}
	if next == nil {
		next = &Config{}
	}

	pv := reflect.ValueOf(prev).Elem()
	nv := reflect.ValueOf(next).Elem()
	rt := pv.Type()

	var changes []Change
	for i := 0; i < rt.NumField(); i++ {
		oldValue := pv.Field(i).Interface()
		newValue := nv.Field(i).Interface()
		if reflect.DeepEqual(oldValue, newValue) {
			continue
		}
		changes = append(changes, Change{
			FieldPath: fieldPath(rt.Field(i)),
			OldValue:  oldValue,
			NewValue:  newValue,
		})
	}
	return changes
}

func fieldPath(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
	if name == "" {
		return field.Name
	}
	return name
}
