package diagnostics_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/interception"
	"github.com/GoCodeAlone/interception/di"
	"github.com/GoCodeAlone/interception/diagnostics"
	"github.com/GoCodeAlone/interception/events"
	"github.com/GoCodeAlone/interception/internal/testutil"
)

type fixture struct {
	router   http.Handler
	provider *di.Provider
	counter  *interception.CountingInterceptor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	counter := interception.NewCountingInterceptor()
	services := di.NewServiceCollection()
	factory := func(di.ServiceResolver, any) (any, error) { return testutil.NewTestService(), nil }

	_, err := interception.AddKeyedInterceptedFactory(services, di.TypeOf[testutil.ITestService](), "a", factory, di.Singleton, counter)
	require.NoError(t, err)
	_, err = interception.AddKeyedInterceptedFactory(services, di.TypeOf[testutil.ITestService](), "b", factory, di.Transient)
	require.NoError(t, err)
	_, err = interception.AddIntercepted(services, di.TypeOf[*testutil.TestService](), di.Scoped)
	require.NoError(t, err)

	provider, err := services.Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Close() })

	bus := events.NewBus(nil)
	require.NoError(t, bus.RegisterObserver(events.NewFunctionalObserver("audit", func(context.Context, events.CloudEvent) error { return nil })))

	return &fixture{
		router: diagnostics.NewRouter(diagnostics.Options{
			Services: provider,
			Stats:    counter,
			Events:   bus,
			Logger:   testutil.NewTestLogger(),
		}),
		provider: provider,
		counter:  counter,
	}
}

func get(t *testing.T, h http.Handler, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func TestListServices(t *testing.T) {
	f := newFixture(t)

	var infos []di.DescriptorInfo
	rec := get(t, f.router, "/services", &infos)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Len(t, infos, 3)
	assert.Equal(t, "testutil.ITestService", infos[0].ServiceType)
	assert.Equal(t, "a", infos[0].Key)
	assert.Equal(t, "factory", infos[0].Kind)
	assert.Equal(t, "*testutil.TestService", infos[2].ImplementationType)

	get(t, f.router, "/services?keyed=true", &infos)
	assert.Len(t, infos, 2)

	get(t, f.router, "/services?lifetime=Scoped", &infos)
	require.Len(t, infos, 1)
	assert.Equal(t, "*testutil.TestService", infos[0].ServiceType)
}

func TestListServicesBadFilters(t *testing.T) {
	f := newFixture(t)

	rec := get(t, f.router, "/services?keyed=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body map[string]string
	rec = get(t, f.router, "/services?lifetime=forever", &body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body["error"], "forever")
	assert.NotEmpty(t, body["requestId"])
}

func TestGetService(t *testing.T) {
	f := newFixture(t)

	var infos []di.DescriptorInfo
	rec := get(t, f.router, "/services/testutil.ITestService", &infos)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, infos, 2)

	rec = get(t, f.router, "/services/%2Atestutil.TestService", &infos)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, infos, 1)

	rec = get(t, f.router, "/services/missing.Type", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListInterceptions(t *testing.T) {
	f := newFixture(t)

	svc, err := di.ResolveKeyed[testutil.ITestService](f.provider, "a")
	require.NoError(t, err)
	svc.GetName()
	svc.GetName()

	var stats []interception.MethodStats
	rec := get(t, f.router, "/interceptions", &stats)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, stats, 1)
	assert.Equal(t, "GetName", stats[0].Method)
	assert.Equal(t, int64(2), stats[0].Calls)
}

func TestListObservers(t *testing.T) {
	f := newFixture(t)

	var observers []events.ObserverInfo
	get(t, f.router, "/observers", &observers)
	require.Len(t, observers, 1)
	assert.Equal(t, "audit", observers[0].ID)
}

func TestEmptyOptions(t *testing.T) {
	router := diagnostics.NewRouter(diagnostics.Options{})

	for _, path := range []string{"/services", "/interceptions", "/observers"} {
		rec := get(t, router, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
		assert.JSONEq(t, "[]", rec.Body.String(), path)
	}
}
