// Package config loads the settings that drive config-based intercepted
// registration: which services to register, with which lifetime, key and
// named interceptors, and how the container validates itself.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/GoCodeAlone/interception/di"
)

// Static errors for the configuration package
var (
	ErrInvalidDefaultLifetime = errors.New("invalid default lifetime")
	ErrServiceNameRequired    = errors.New("service name is required")
	ErrInvalidServiceLifetime = errors.New("invalid service lifetime")
	ErrDuplicateService       = errors.New("duplicate service registration")
	ErrEmptyInterceptorName   = errors.New("interceptor name is empty")
	ErrUnsupportedFormat      = errors.New("unsupported config file format")
	ErrInvalidConfig          = errors.New("invalid configuration")
	ErrNilConfig              = errors.New("config is nil")
)

// Config is the root configuration document.
type Config struct {
	// Enabled turns interception on. When false, configured services are
	// registered without interceptors.
	Enabled bool `yaml:"enabled" toml:"enabled" json:"enabled" env:"ENABLED"`

	// ValidateScopes makes resolving a scoped service from the root provider an error.
	ValidateScopes bool `yaml:"validate_scopes" toml:"validate_scopes" json:"validate_scopes" env:"VALIDATE_SCOPES"`

	// ValidateOnBuild checks every descriptor when the provider is built.
	ValidateOnBuild bool `yaml:"validate_on_build" toml:"validate_on_build" json:"validate_on_build" env:"VALIDATE_ON_BUILD"`

	// LogInvocations prepends a logging interceptor to every configured service.
	LogInvocations bool `yaml:"log_invocations" toml:"log_invocations" json:"log_invocations" env:"LOG_INVOCATIONS"`

	// DefaultLifetime applies to services that do not set one.
	DefaultLifetime string `yaml:"default_lifetime" toml:"default_lifetime" json:"default_lifetime" env:"DEFAULT_LIFETIME"`

	Services []ServiceConfig `yaml:"services" toml:"services" json:"services"`
}

// ServiceConfig describes one service registration.
type ServiceConfig struct {
	Name string `yaml:"name" toml:"name" json:"name"`

	// Key makes the registration keyed. A nil Key registers an unkeyed service.
	Key *string `yaml:"key,omitempty" toml:"key,omitempty" json:"key,omitempty"`

	Lifetime     string   `yaml:"lifetime,omitempty" toml:"lifetime,omitempty" json:"lifetime,omitempty"`
	Interceptors []string `yaml:"interceptors,omitempty" toml:"interceptors,omitempty" json:"interceptors,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Enabled:         true,
		DefaultLifetime: string(di.Transient),
	}
}

// ResolvedLifetime returns the service lifetime, falling back to defaultLifetime.
func (s ServiceConfig) ResolvedLifetime(defaultLifetime string) (di.ServiceLifetime, error) {
	raw := s.Lifetime
	if strings.TrimSpace(raw) == "" {
		raw = defaultLifetime
	}
	return di.ParseServiceLifetime(raw)
}

// String identifies the service as "name" or "name[key]".
func (s ServiceConfig) String() string {
	if s.Key == nil {
		return s.Name
	}
	return fmt.Sprintf("%s[%s]", s.Name, *s.Key)
}

// Validate reports every problem in the configuration at once.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}

	var errs []error
	if _, err := di.ParseServiceLifetime(c.DefaultLifetime); err != nil {
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidDefaultLifetime, c.DefaultLifetime))
	}

	seen := make(map[string]bool, len(c.Services))
	for i, svc := range c.Services {
		if strings.TrimSpace(svc.Name) == "" {
			errs = append(errs, fmt.Errorf("services[%d]: %w", i, ErrServiceNameRequired))
			continue
		}
		if svc.Lifetime != "" {
			if _, err := di.ParseServiceLifetime(svc.Lifetime); err != nil {
				errs = append(errs, fmt.Errorf("services[%d] %s: %w: %q", i, svc, ErrInvalidServiceLifetime, svc.Lifetime))
			}
		}
		id := svc.String()
		if svc.Key != nil {
			id = "keyed:" + id
		}
		if seen[id] {
			errs = append(errs, fmt.Errorf("services[%d]: %w: %s", i, ErrDuplicateService, svc))
		}
		seen[id] = true
		if slices.ContainsFunc(svc.Interceptors, func(name string) bool { return strings.TrimSpace(name) == "" }) {
			errs = append(errs, fmt.Errorf("services[%d] %s: %w", i, svc, ErrEmptyInterceptorName))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	if c.Services == nil {
		return &out
	}
	out.Services = make([]ServiceConfig, len(c.Services))
	for i, svc := range c.Services {
		out.Services[i] = svc
		if svc.Key != nil {
			key := *svc.Key
			out.Services[i].Key = &key
		}
		out.Services[i].Interceptors = slices.Clone(svc.Interceptors)
	}
	return &out
}

// Key returns a pointer to key, for building ServiceConfig values in code.
func Key(key string) *string {
	return &key
}
