package interception

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/GoCodeAlone/interception/di"
	"github.com/GoCodeAlone/interception/proxy"
)

var (
	ErrUnknownService        = errors.New("service is not in the catalog")
	ErrUnknownInterceptor    = errors.New("interceptor is not in the catalog")
	ErrDuplicateCatalogEntry = errors.New("catalog entry already exists")
)

// CatalogService is a named service that configuration can register.
type CatalogService struct {
	ServiceType reflect.Type
	// Factory receives the configured key, or nil for unkeyed registrations.
	Factory di.KeyedFactory
}

// Catalog names the services and interceptors available to ApplyConfig.
type Catalog struct {
	mu           sync.RWMutex
	services     map[string]CatalogService
	interceptors map[string]proxy.Interceptor
}

func NewCatalog() *Catalog {
	return &Catalog{
		services:     make(map[string]CatalogService),
		interceptors: make(map[string]proxy.Interceptor),
	}
}

// AddService names a service type and the factory that builds it.
func (c *Catalog) AddService(name string, serviceType reflect.Type, factory di.KeyedFactory) error {
	if serviceType == nil {
		return argumentNil("serviceType")
	}
	if factory == nil {
		return argumentNil("factory")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.services[name]; exists {
		return fmt.Errorf("%w: service %q", ErrDuplicateCatalogEntry, name)
	}
	c.services[name] = CatalogService{ServiceType: serviceType, Factory: factory}
	return nil
}

// AddCatalogService is the typed form of Catalog.AddService.
func AddCatalogService[T any](c *Catalog, name string, factory func(r di.ServiceResolver, key any) (T, error)) error {
	if factory == nil {
		return argumentNil("factory")
	}
	return c.AddService(name, di.TypeOf[T](), func(r di.ServiceResolver, key any) (any, error) {
		instance, err := factory(r, key)
		if err != nil {
			return nil, err
		}
		return instance, nil
	})
}

// AddInterceptor names an interceptor. The same instance is shared by every
// service that lists it.
func (c *Catalog) AddInterceptor(name string, interceptor proxy.Interceptor) error {
	if interceptor == nil {
		return argumentNil("interceptor")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.interceptors[name]; exists {
		return fmt.Errorf("%w: interceptor %q", ErrDuplicateCatalogEntry, name)
	}
	c.interceptors[name] = interceptor
	return nil
}

func (c *Catalog) Service(name string) (CatalogService, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.services[name]
	return s, ok
}

func (c *Catalog) Interceptor(name string) (proxy.Interceptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.interceptors[name]
	return i, ok
}

// ServiceNames returns the catalog's service names, sorted.
func (c *Catalog) ServiceNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.services))
	for name := range c.services {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// InterceptorNames returns the catalog's interceptor names, sorted.
func (c *Catalog) InterceptorNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.interceptors))
	for name := range c.interceptors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
