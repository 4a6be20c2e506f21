package interception

import (
	"context"
	"fmt"
	"slices"

	"github.com/GoCodeAlone/interception/config"
	"github.com/GoCodeAlone/interception/di"
	"github.com/GoCodeAlone/interception/proxy"
)

// ConfigBinding is the runtime handle returned by ApplyConfig.
type ConfigBinding struct {
	// Switch heads every configured interceptor chain. Turning it off sends
	// calls straight to the targets.
	Switch *SwitchInterceptor

	// Registered lists the configured services in registration order.
	Registered []string

	// chained records whether interceptor chains were built at apply time.
	chained bool
	logger  Logger
}

// OnReload applies a reloaded configuration. It has the config.ReloadCallback
// signature so it can be passed to config.Loader.Watch. The enabled flag takes
// effect at runtime when the configuration was applied enabled; enabling a
// configuration that was applied disabled, and every other change, is logged
// and needs a new container.
func (b *ConfigBinding) OnReload(_ context.Context, cfg *config.Config, changes []config.Change) error {
	if cfg == nil {
		return config.ErrNilConfig
	}
	for _, change := range changes {
		if change.FieldPath == "enabled" && b.chained {
			b.Switch.SetEnabled(cfg.Enabled)
			b.logger.Info("Interception toggled", "enabled", cfg.Enabled)
			continue
		}
		b.logger.Warn("Configuration change requires rebuilding the container", "field", change.FieldPath)
	}
	return nil
}

// ApplyConfig registers every service listed in cfg using the factories and
// interceptors named in catalog. Nothing is registered when any entry is
// invalid. When cfg.Enabled is false services are registered without
// interceptors.
func ApplyConfig(services *di.ServiceCollection, cfg *config.Config, catalog *Catalog) (*ConfigBinding, error) {
	if services == nil {
		return nil, argumentNil("services")
	}
	if cfg == nil {
		return nil, argumentNil("config")
	}
	if catalog == nil {
		return nil, argumentNil("catalog")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	binding := &ConfigBinding{
		Switch:  NewSwitchInterceptor(cfg.Enabled),
		chained: cfg.Enabled,
		logger:  services.Logger(),
	}

	registrations := make([]Registration, 0, len(cfg.Services))
	for _, svc := range cfg.Services {
		r, err := registrationFor(svc, cfg, catalog, binding, services.Logger())
		if err != nil {
			return nil, err
		}
		registrations = append(registrations, r)
	}

	for i, r := range registrations {
		if _, err := Register(services, r); err != nil {
			return nil, fmt.Errorf("registering %s: %w", cfg.Services[i], err)
		}
		binding.Registered = append(binding.Registered, cfg.Services[i].String())
	}

	services.Logger().Info("Applied interception configuration",
		"services", len(registrations),
		"enabled", cfg.Enabled)
	return binding, nil
}

func registrationFor(svc config.ServiceConfig, cfg *config.Config, catalog *Catalog, binding *ConfigBinding, logger Logger) (Registration, error) {
	entry, ok := catalog.Service(svc.Name)
	if !ok {
		return Registration{}, fmt.Errorf("%w: %q", ErrUnknownService, svc.Name)
	}
	lifetime, err := svc.ResolvedLifetime(cfg.DefaultLifetime)
	if err != nil {
		return Registration{}, fmt.Errorf("service %s: %w", svc, err)
	}

	var interceptors []proxy.Interceptor
	if cfg.Enabled {
		interceptors = append(interceptors, binding.Switch)
		if cfg.LogInvocations {
			interceptors = append(interceptors, NewLoggingInterceptor(logger))
		}
		for _, name := range svc.Interceptors {
			interceptor, ok := catalog.Interceptor(name)
			if !ok {
				return Registration{}, fmt.Errorf("service %s: %w: %q", svc, ErrUnknownInterceptor, name)
			}
			interceptors = append(interceptors, interceptor)
		}
		if len(interceptors) == 1 {
			// Only the switch: nothing to intercept.
			interceptors = nil
		}
	}

	r := Registration{
		ServiceType:  entry.ServiceType,
		Lifetime:     lifetime,
		Interceptors: slices.Clip(interceptors),
	}
	if svc.Key != nil {
		r.Keyed = true
		r.ServiceKey = *svc.Key
		r.KeyedFactory = entry.Factory
	} else {
		factory := entry.Factory
		r.Factory = func(resolver di.ServiceResolver) (any, error) {
			return factory(resolver, nil)
		}
	}
	return r, nil
}

// ProviderOptions translates the container settings in cfg.
func ProviderOptions(cfg *config.Config) []di.ProviderOption {
	if cfg == nil {
		return nil
	}
	var opts []di.ProviderOption
	if cfg.ValidateScopes {
		opts = append(opts, di.WithScopeValidation())
	}
	if cfg.ValidateOnBuild {
		opts = append(opts, di.WithValidateOnBuild())
	}
	return opts
}
