package interception_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/interception"
	"github.com/GoCodeAlone/interception/config"
	"github.com/GoCodeAlone/interception/di"
	"github.com/GoCodeAlone/interception/internal/testutil"
)

func newCatalog(t *testing.T) (*interception.Catalog, *testutil.CapturingInterceptor, *interception.CountingInterceptor) {
	t.Helper()
	catalog := interception.NewCatalog()
	require.NoError(t, interception.AddCatalogService(catalog, "test-service",
		func(_ di.ServiceResolver, key any) (testutil.ITestService, error) {
			svc := testutil.NewTestService()
			if name, ok := key.(string); ok && name != "" {
				svc.SetName(name)
			}
			return svc, nil
		}))
	capture := &testutil.CapturingInterceptor{}
	counter := interception.NewCountingInterceptor()
	require.NoError(t, catalog.AddInterceptor("capture", capture))
	require.NoError(t, catalog.AddInterceptor("counting", counter))
	return catalog, capture, counter
}

func TestApplyConfig(t *testing.T) {
	catalog, capture, counter := newCatalog(t)
	logger := testutil.NewTestLogger()
	cfg := &config.Config{
		Enabled:         true,
		LogInvocations:  true,
		DefaultLifetime: "singleton",
		Services: []config.ServiceConfig{
			{Name: "test-service", Interceptors: []string{"capture", "counting"}},
			{Name: "test-service", Key: config.Key("formal"), Lifetime: "transient", Interceptors: []string{"counting"}},
			{Name: "test-service", Key: config.Key("plain")},
		},
	}

	services := di.NewServiceCollection(di.WithLogger(logger))
	binding, err := interception.ApplyConfig(services, cfg, catalog)
	require.NoError(t, err)
	assert.Equal(t, []string{"test-service", "test-service[formal]", "test-service[plain]"}, binding.Registered)
	assert.True(t, binding.Switch.Enabled())

	provider := build(t, services)

	unkeyed, err := di.Resolve[testutil.ITestService](provider)
	require.NoError(t, err)
	again, err := di.Resolve[testutil.ITestService](provider)
	require.NoError(t, err)
	assert.Same(t, unkeyed, again)
	assert.Equal(t, "TestService", unkeyed.GetName())

	formal, err := di.ResolveKeyed[testutil.ITestService](provider, "formal")
	require.NoError(t, err)
	assert.Equal(t, "formal", formal.GetName())

	plain, err := di.ResolveKeyed[testutil.ITestService](provider, "plain")
	require.NoError(t, err)
	plain.GetName()

	assert.Equal(t, []string{"GetName"}, capture.Methods())
	assert.Equal(t, int64(2), counter.Calls("GetName"))
	assert.Len(t, logger.Messages("info"), 4, "one applied message plus three logged calls")
}

func TestApplyConfigDisabledRegistersRaw(t *testing.T) {
	catalog, capture, _ := newCatalog(t)
	cfg := config.Default()
	cfg.Enabled = false
	cfg.Services = []config.ServiceConfig{{Name: "test-service", Interceptors: []string{"capture"}}}

	services := di.NewServiceCollection()
	binding, err := interception.ApplyConfig(services, cfg, catalog)
	require.NoError(t, err)
	assert.False(t, binding.Switch.Enabled())

	resolved, err := di.Resolve[testutil.ITestService](build(t, services))
	require.NoError(t, err)
	resolved.GetName()

	assert.IsType(t, &testutil.TestService{}, resolved)
	assert.False(t, capture.Invoked())
}

func TestApplyConfigErrors(t *testing.T) {
	catalog, _, _ := newCatalog(t)
	services := di.NewServiceCollection()

	_, err := interception.ApplyConfig(nil, config.Default(), catalog)
	assert.ErrorIs(t, err, interception.ErrArgumentNil)
	_, err = interception.ApplyConfig(services, nil, catalog)
	assert.ErrorIs(t, err, interception.ErrArgumentNil)
	_, err = interception.ApplyConfig(services, config.Default(), nil)
	assert.ErrorIs(t, err, interception.ErrArgumentNil)

	cfg := config.Default()
	cfg.Services = []config.ServiceConfig{
		{Name: "test-service"},
		{Name: "missing"},
	}
	_, err = interception.ApplyConfig(services, cfg, catalog)
	assert.ErrorIs(t, err, interception.ErrUnknownService)

	cfg.Services = []config.ServiceConfig{{Name: "test-service", Interceptors: []string{"nope"}}}
	_, err = interception.ApplyConfig(services, cfg, catalog)
	assert.ErrorIs(t, err, interception.ErrUnknownInterceptor)

	cfg.DefaultLifetime = "eternal"
	_, err = interception.ApplyConfig(services, cfg, catalog)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	assert.Zero(t, services.Len(), "nothing is registered when any entry is invalid")
}

func TestCatalog(t *testing.T) {
	catalog, _, _ := newCatalog(t)

	assert.Equal(t, []string{"test-service"}, catalog.ServiceNames())
	assert.Equal(t, []string{"capture", "counting"}, catalog.InterceptorNames())

	entry, ok := catalog.Service("test-service")
	require.True(t, ok)
	assert.Equal(t, serviceType, entry.ServiceType)

	assert.ErrorIs(t, catalog.AddService("test-service", serviceType, newKeyedTestService), interception.ErrDuplicateCatalogEntry)
	assert.ErrorIs(t, catalog.AddInterceptor("capture", &testutil.CapturingInterceptor{}), interception.ErrDuplicateCatalogEntry)
	assert.ErrorIs(t, catalog.AddService("x", nil, newKeyedTestService), interception.ErrArgumentNil)
	assert.ErrorIs(t, catalog.AddService("x", serviceType, nil), interception.ErrArgumentNil)
	assert.ErrorIs(t, catalog.AddInterceptor("x", nil), interception.ErrArgumentNil)
	assert.ErrorIs(t, interception.AddCatalogService[testutil.ITestService](catalog, "x", nil), interception.ErrArgumentNil)

	_, ok = catalog.Interceptor("missing")
	assert.False(t, ok)
}

func TestProviderOptions(t *testing.T) {
	assert.Empty(t, interception.ProviderOptions(nil))
	assert.Empty(t, interception.ProviderOptions(config.Default()))

	cfg := config.Default()
	cfg.ValidateScopes = true
	cfg.ValidateOnBuild = true
	assert.Len(t, interception.ProviderOptions(cfg), 2)

	catalog, _, _ := newCatalog(t)
	cfg.Services = []config.ServiceConfig{{Name: "test-service", Lifetime: "scoped"}}
	services := di.NewServiceCollection()
	_, err := interception.ApplyConfig(services, cfg, catalog)
	require.NoError(t, err)

	provider := build(t, services, interception.ProviderOptions(cfg)...)
	_, err = di.Resolve[testutil.ITestService](provider)
	assert.ErrorIs(t, err, di.ErrScopedFromRoot)
}

func TestConfigBindingOnReload(t *testing.T) {
	catalog, capture, _ := newCatalog(t)
	logger := testutil.NewTestLogger()
	cfg := config.Default()
	cfg.Services = []config.ServiceConfig{{Name: "test-service", Interceptors: []string{"capture"}}}

	services := di.NewServiceCollection(di.WithLogger(logger))
	binding, err := interception.ApplyConfig(services, cfg, catalog)
	require.NoError(t, err)
	resolved, err := di.Resolve[testutil.ITestService](build(t, services))
	require.NoError(t, err)

	next := cfg.Clone()
	next.Enabled = false
	next.LogInvocations = true
	require.NoError(t, binding.OnReload(context.Background(), next, config.Diff(cfg, next)))

	resolved.GetName()
	assert.False(t, capture.Invoked())
	assert.True(t, logger.Contains("warn", "Configuration change requires rebuilding the container"))

	again := next.Clone()
	again.Enabled = true
	require.NoError(t, binding.OnReload(context.Background(), again, config.Diff(next, again)))
	assert.True(t, binding.Switch.Enabled())
	resolved.GetName()
	assert.True(t, capture.Invoked())

	assert.ErrorIs(t, binding.OnReload(context.Background(), nil, nil), config.ErrNilConfig)
}

func TestConfigBindingOnReloadCannotEnableRawRegistrations(t *testing.T) {
	catalog, capture, _ := newCatalog(t)
	logger := testutil.NewTestLogger()
	cfg := config.Default()
	cfg.Enabled = false
	cfg.Services = []config.ServiceConfig{{Name: "test-service", Interceptors: []string{"capture"}}}

	services := di.NewServiceCollection(di.WithLogger(logger))
	binding, err := interception.ApplyConfig(services, cfg, catalog)
	require.NoError(t, err)
	resolved, err := di.Resolve[testutil.ITestService](build(t, services))
	require.NoError(t, err)

	next := cfg.Clone()
	next.Enabled = true
	require.NoError(t, binding.OnReload(context.Background(), next, config.Diff(cfg, next)))

	resolved.GetName()
	assert.False(t, capture.Invoked())
	assert.False(t, binding.Switch.Enabled())
	assert.True(t, logger.Contains("warn", "Configuration change requires rebuilding the container"))
	assert.False(t, logger.Contains("info", "Interception toggled"))
}

func TestConfigWatchTogglesInterception(t *testing.T) {
	testutil.Isolate(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "interception.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
enabled: true
services:
  - name: test-service
    interceptors: [capture]
`), 0o600))

	loader := config.NewLoader(config.WithFile(path))
	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)

	catalog, capture, _ := newCatalog(t)
	services := di.NewServiceCollection()
	binding, err := interception.ApplyConfig(services, cfg, catalog)
	require.NoError(t, err)
	resolved, err := di.Resolve[testutil.ITestService](build(t, services))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loader.Watch(ctx, binding.OnReload) }()

	disabled := []byte(`
enabled: false
services:
  - name: test-service
    interceptors: [capture]
`)
	require.Eventually(t, func() bool {
		_ = os.WriteFile(path, disabled, 0o600)
		return !binding.Switch.Enabled()
	}, 5*time.Second, 50*time.Millisecond)

	resolved.GetName()
	assert.False(t, capture.Invoked())
}
