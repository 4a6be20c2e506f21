package di

import (
	"fmt"
	"strings"
)

// ServiceLifetime defines how long an instance produced by a descriptor lives
// and how it is shared.
//
// The lifetime determines:
//   - How many instances of a service can exist
//   - Where instances are cached
//   - Which scope closes the instances it created
type ServiceLifetime string

const (
	// Singleton creates one instance per provider. The instance is created on
	// first resolution from any scope, cached in the root scope and shared.
	Singleton ServiceLifetime = "singleton"

	// Scoped creates one instance per scope. Every scope created with
	// Provider.CreateScope gets its own instance; the root scope behaves as a
	// scope of its own unless scope validation is enabled.
	Scoped ServiceLifetime = "scoped"

	// Transient creates a new instance on every resolution. Nothing is cached.
	Transient ServiceLifetime = "transient"
)

// String returns the string representation of the lifetime.
func (l ServiceLifetime) String() string {
	return string(l)
}

// IsValid reports whether l is one of the defined lifetimes.
func (l ServiceLifetime) IsValid() bool {
	switch l {
	case Singleton, Scoped, Transient:
		return true
	default:
		return false
	}
}

// IsCacheable reports whether instances of this lifetime are reused.
func (l ServiceLifetime) IsCacheable() bool {
	switch l {
	case Singleton, Scoped:
		return true
	default:
		return false
	}
}

// Description returns a brief description of the lifetime behavior.
func (l ServiceLifetime) Description() string {
	switch l {
	case Singleton:
		return "Single instance shared across the provider"
	case Scoped:
		return "Single instance per scope"
	case Transient:
		return "New instance created for each resolution"
	default:
		return "Unknown lifetime behavior"
	}
}

// ParseServiceLifetime parses a lifetime name case-insensitively.
func ParseServiceLifetime(s string) (ServiceLifetime, error) {
	lifetime := ServiceLifetime(strings.ToLower(strings.TrimSpace(s)))
	if !lifetime.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidLifetime, s)
	}
	return lifetime, nil
}
