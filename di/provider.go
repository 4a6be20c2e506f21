package di

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/GoCodeAlone/interception/events"
	"github.com/GoCodeAlone/interception/logging"
)

// ServiceResolver resolves services. Providers, scopes and the resolver
// handed to factories all implement it.
type ServiceResolver interface {
	// Resolve returns the last unkeyed registration of serviceType.
	Resolve(serviceType reflect.Type) (any, error)

	// ResolveKeyed returns the last registration of serviceType under key.
	ResolveKeyed(serviceType reflect.Type, key any) (any, error)

	// ResolveAll returns every unkeyed registration of serviceType in registration order.
	ResolveAll(serviceType reflect.Type) ([]any, error)

	// Context returns the context of the scope doing the resolution.
	Context() context.Context
}

type providerOptions struct {
	validateScopes  bool
	validateOnBuild bool
}

// ProviderOption configures Build.
type ProviderOption func(*providerOptions)

// WithScopeValidation makes resolving a scoped service from the root provider an error.
func WithScopeValidation() ProviderOption {
	return func(o *providerOptions) {
		o.validateScopes = true
	}
}

// WithValidateOnBuild checks every type descriptor can be activated when the
// provider is built.
func WithValidateOnBuild() ProviderOption {
	return func(o *providerOptions) {
		o.validateOnBuild = true
	}
}

// Provider resolves services from a snapshot of descriptors. It is the root
// scope: singletons live here, and it is safe for concurrent use.
type Provider struct {
	registry    map[serviceIdentifier][]*ServiceDescriptor
	descriptors []*ServiceDescriptor
	singletons  map[*ServiceDescriptor]*instanceEntry
	options     providerOptions
	logger      logging.Logger
	subject     events.Subject
	root        *Scope
}

func newProvider(descriptors []*ServiceDescriptor, logger logging.Logger, subject events.Subject, opts ...ProviderOption) (*Provider, error) {
	p := &Provider{
		registry:    make(map[serviceIdentifier][]*ServiceDescriptor),
		descriptors: descriptors,
		singletons:  make(map[*ServiceDescriptor]*instanceEntry),
		logger:      logging.OrNop(logger),
		subject:     subject,
	}
	for _, opt := range opts {
		opt(&p.options)
	}

	for _, d := range descriptors {
		id := d.identity()
		p.registry[id] = append(p.registry[id], d)
		if d.Lifetime == Singleton {
			p.singletons[d] = &instanceEntry{}
		}
	}

	if p.options.validateOnBuild {
		if err := p.validate(); err != nil {
			return nil, err
		}
	}

	p.root = &Scope{
		provider: p,
		ctx:      context.Background(),
		isRoot:   true,
		scoped:   make(map[*ServiceDescriptor]*instanceEntry),
	}
	return p, nil
}

func (p *Provider) validate() error {
	var errs []error
	for _, d := range p.descriptors {
		if d.ImplementationType == nil {
			continue
		}
		if err := checkActivatable(d.ImplementationType); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d, err))
			continue
		}
		if !d.ImplementationType.AssignableTo(d.ServiceType) {
			errs = append(errs, fmt.Errorf("%w: %s is not assignable to %s",
				ErrServiceWrongType, typeName(d.ImplementationType), typeName(d.ServiceType)))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrValidationFailed, errors.Join(errs...))
	}
	return nil
}

// Resolve returns the last unkeyed registration of serviceType.
func (p *Provider) Resolve(serviceType reflect.Type) (any, error) {
	return p.root.Resolve(serviceType)
}

// ResolveKeyed returns the last registration of serviceType under key.
func (p *Provider) ResolveKeyed(serviceType reflect.Type, key any) (any, error) {
	return p.root.ResolveKeyed(serviceType, key)
}

// ResolveAll returns every unkeyed registration of serviceType.
func (p *Provider) ResolveAll(serviceType reflect.Type) ([]any, error) {
	return p.root.ResolveAll(serviceType)
}

// Context returns context.Background for the root scope.
func (p *Provider) Context() context.Context {
	return p.root.ctx
}

// IsRegistered reports whether serviceType has an unkeyed registration.
func (p *Provider) IsRegistered(serviceType reflect.Type) bool {
	return len(p.registry[serviceIdentifier{serviceType: serviceType}]) > 0
}

// IsKeyedRegistered reports whether serviceType has a registration under key.
func (p *Provider) IsKeyedRegistered(serviceType reflect.Type, key any) bool {
	if !isComparable(key) {
		return false
	}
	return len(p.registry[serviceIdentifier{serviceType: serviceType, keyed: true, key: key}]) > 0
}

// Descriptors returns the descriptors the provider was built from.
func (p *Provider) Descriptors() []*ServiceDescriptor {
	out := make([]*ServiceDescriptor, len(p.descriptors))
	copy(out, p.descriptors)
	return out
}

// Describe summarizes the descriptors the provider was built from.
func (p *Provider) Describe() []DescriptorInfo {
	out := make([]DescriptorInfo, 0, len(p.descriptors))
	for _, d := range p.descriptors {
		out = append(out, describe(d))
	}
	return out
}

// CreateScope creates a child scope bound to ctx.
func (p *Provider) CreateScope(ctx context.Context) *Scope {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Scope{
		provider: p,
		ctx:      ctx,
		scoped:   make(map[*ServiceDescriptor]*instanceEntry),
	}
}

// Close closes the root scope: every io.Closer created by it, including
// singletons, is closed in reverse creation order.
func (p *Provider) Close() error {
	return p.root.Close()
}

// Scope caches scoped instances and tracks the io.Closer instances it created.
type Scope struct {
	provider *Provider
	ctx      context.Context
	isRoot   bool

	mu          sync.Mutex
	scoped      map[*ServiceDescriptor]*instanceEntry
	disposables []io.Closer
	closed      bool
}

// Resolve returns the last unkeyed registration of serviceType.
func (s *Scope) Resolve(serviceType reflect.Type) (any, error) {
	return s.resolve(&resolveCall{scope: s}, serviceIdentifier{serviceType: serviceType})
}

// ResolveKeyed returns the last registration of serviceType under key.
func (s *Scope) ResolveKeyed(serviceType reflect.Type, key any) (any, error) {
	if !isComparable(key) {
		return nil, fmt.Errorf("%w: %T", ErrServiceKeyNotComparable, key)
	}
	return s.resolve(&resolveCall{scope: s}, serviceIdentifier{serviceType: serviceType, keyed: true, key: key})
}

// ResolveAll returns every unkeyed registration of serviceType in registration order.
func (s *Scope) ResolveAll(serviceType reflect.Type) ([]any, error) {
	return s.resolveAll(&resolveCall{scope: s}, serviceIdentifier{serviceType: serviceType})
}

// Context returns the context the scope was created with.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Close closes every io.Closer the scope created, last first. Errors are joined.
func (s *Scope) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	disposables := s.disposables
	s.disposables = nil
	s.mu.Unlock()

	var errs []error
	for i := len(disposables) - 1; i >= 0; i-- {
		if err := disposables[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Scope) track(closer io.Closer) {
	s.mu.Lock()
	s.disposables = append(s.disposables, closer)
	s.mu.Unlock()
}

func (s *Scope) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Scope) resolve(call *resolveCall, id serviceIdentifier) (any, error) {
	if id.serviceType == nil {
		return nil, ErrNilServiceType
	}
	if s.isClosed() || s.provider.root.isClosed() {
		return nil, ErrProviderClosed
	}

	descriptors := s.provider.registry[id]
	if len(descriptors) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, id)
	}
	return s.resolveDescriptor(call, id, descriptors[len(descriptors)-1])
}

func (s *Scope) resolveAll(call *resolveCall, id serviceIdentifier) ([]any, error) {
	if id.serviceType == nil {
		return nil, ErrNilServiceType
	}
	if s.isClosed() || s.provider.root.isClosed() {
		return nil, ErrProviderClosed
	}

	descriptors := s.provider.registry[id]
	out := make([]any, 0, len(descriptors))
	for _, d := range descriptors {
		instance, err := s.resolveDescriptor(call, id, d)
		if err != nil {
			return nil, err
		}
		out = append(out, instance)
	}
	return out, nil
}

func (s *Scope) resolveDescriptor(call *resolveCall, id serviceIdentifier, d *ServiceDescriptor) (any, error) {
	if err := call.enter(id); err != nil {
		return nil, err
	}

	switch d.Lifetime {
	case Singleton:
		root := s.provider.root
		next := call.child(root, id)
		return s.provider.singletons[d].get(func() (any, error) {
			return root.create(next, d)
		})
	case Scoped:
		if s.isRoot && s.provider.options.validateScopes {
			return nil, fmt.Errorf("%w: %s", ErrScopedFromRoot, id)
		}
		next := call.child(s, id)
		return s.scopedEntry(d).get(func() (any, error) {
			return s.create(next, d)
		})
	default:
		return s.create(call.child(s, id), d)
	}
}

func (s *Scope) scopedEntry(d *ServiceDescriptor) *instanceEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.scoped[d]
	if !ok {
		entry = &instanceEntry{}
		s.scoped[d] = entry
	}
	return entry
}

func (s *Scope) create(call *resolveCall, d *ServiceDescriptor) (any, error) {
	var (
		instance any
		err      error
	)
	switch {
	case d.ImplementationInstance != nil:
		return d.ImplementationInstance, nil
	case d.ImplementationFactory != nil:
		instance, err = d.ImplementationFactory(call)
	case d.KeyedImplementationFactory != nil:
		instance, err = d.KeyedImplementationFactory(call, d.ServiceKey)
	default:
		instance, err = Activate(call, d.ImplementationType)
	}
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", d, err)
	}
	if instance == nil {
		return nil, fmt.Errorf("%w: %s", ErrServiceNil, d)
	}
	if !reflect.TypeOf(instance).AssignableTo(d.ServiceType) {
		return nil, fmt.Errorf("%w: %T is not assignable to %s", ErrServiceWrongType, instance, typeName(d.ServiceType))
	}

	if closer, ok := instance.(io.Closer); ok {
		s.track(closer)
	}

	s.provider.logger.Debug("Service instance created", "service", d.String(), "instance", fmt.Sprintf("%T", instance))
	events.Emit(s.ctx, s.provider.subject, s.provider.logger, events.EventTypeServiceResolved, eventSource, describe(d))
	return instance, nil
}

// instanceEntry holds a lazily created cached instance. Failed creations are
// not cached so a later resolution retries.
type instanceEntry struct {
	mu      sync.Mutex
	created bool
	value   any
}

func (e *instanceEntry) get(create func() (any, error)) (any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.created {
		return e.value, nil
	}
	value, err := create()
	if err != nil {
		return nil, err
	}
	e.value = value
	e.created = true
	return value, nil
}

// resolveCall is the resolver handed to factories. It remembers the chain of
// identities being constructed so cycles fail instead of deadlocking.
type resolveCall struct {
	scope *Scope
	chain []serviceIdentifier
}

func (c *resolveCall) enter(id serviceIdentifier) error {
	for i, pending := range c.chain {
		if pending != id {
			continue
		}
		path := make([]string, 0, len(c.chain)-i+1)
		for _, p := range c.chain[i:] {
			path = append(path, p.String())
		}
		path = append(path, id.String())
		return fmt.Errorf("%w: %s", ErrCircularDependency, strings.Join(path, " -> "))
	}
	return nil
}

func (c *resolveCall) child(scope *Scope, id serviceIdentifier) *resolveCall {
	chain := make([]serviceIdentifier, len(c.chain), len(c.chain)+1)
	copy(chain, c.chain)
	return &resolveCall{scope: scope, chain: append(chain, id)}
}

func (c *resolveCall) Resolve(serviceType reflect.Type) (any, error) {
	return c.scope.resolve(c, serviceIdentifier{serviceType: serviceType})
}

func (c *resolveCall) ResolveKeyed(serviceType reflect.Type, key any) (any, error) {
	if !isComparable(key) {
		return nil, fmt.Errorf("%w: %T", ErrServiceKeyNotComparable, key)
	}
	return c.scope.resolve(c, serviceIdentifier{serviceType: serviceType, keyed: true, key: key})
}

func (c *resolveCall) ResolveAll(serviceType reflect.Type) ([]any, error) {
	return c.scope.resolveAll(c, serviceIdentifier{serviceType: serviceType})
}

func (c *resolveCall) Context() context.Context {
	return c.scope.ctx
}

// TrackDisposable makes closer part of the resolution in progress: it is
// closed together with the scope that owns the instance being created.
// Factories use it for instances they create but do not return, such as the
// target behind a proxy. It reports false when r is not a resolver handed to
// a factory.
func TrackDisposable(r ServiceResolver, closer io.Closer) bool {
	call, ok := r.(*resolveCall)
	if !ok || closer == nil {
		return false
	}
	call.scope.track(closer)
	return true
}

var (
	_ ServiceResolver = (*Provider)(nil)
	_ ServiceResolver = (*Scope)(nil)
	_ ServiceResolver = (*resolveCall)(nil)
)
