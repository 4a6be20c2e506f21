package di

import (
	"context"
	"sync"
	"testing"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/interception/events"
)

type greeter interface {
	Greet() string
}

type englishGreeter struct{ name string }

func (g *englishGreeter) Greet() string { return "hello " + g.name }

func newGreeterFactory(name string) Factory {
	return func(ServiceResolver) (any, error) {
		return &englishGreeter{name: name}, nil
	}
}

func TestServiceCollectionAddValidation(t *testing.T) {
	greeterType := TypeOf[greeter]()

	tests := []struct {
		name       string
		descriptor *ServiceDescriptor
		err        error
	}{
		{"nil descriptor", nil, ErrNilDescriptor},
		{"nil service type", NewFactoryDescriptor(nil, newGreeterFactory("x"), Singleton), ErrNilServiceType},
		{"bad lifetime", NewFactoryDescriptor(greeterType, newGreeterFactory("x"), "forever"), ErrInvalidLifetime},
		{"no strategy", &ServiceDescriptor{ServiceType: greeterType, Lifetime: Singleton}, ErrInvalidDescriptor},
		{"two strategies", &ServiceDescriptor{
			ServiceType:           greeterType,
			Lifetime:              Singleton,
			ImplementationFactory: newGreeterFactory("x"),
			ImplementationType:    TypeOf[*englishGreeter](),
		}, ErrInvalidDescriptor},
		{"transient instance", &ServiceDescriptor{
			ServiceType:            greeterType,
			Lifetime:               Transient,
			ImplementationInstance: &englishGreeter{},
		}, ErrInstanceNotSingleton},
		{"wrong instance type", NewInstanceDescriptor(greeterType, "not a greeter"), ErrServiceWrongType},
		{"unkeyed keyed factory", &ServiceDescriptor{
			ServiceType: greeterType,
			Lifetime:    Singleton,
			KeyedImplementationFactory: func(ServiceResolver, any) (any, error) {
				return &englishGreeter{}, nil
			},
		}, ErrKeyedFactoryNotKeyed},
		{"slice key", NewKeyedFactoryDescriptor(greeterType, []string{"a"}, func(ServiceResolver, any) (any, error) {
			return &englishGreeter{}, nil
		}, Singleton), ErrServiceKeyNotComparable},
		{"struct key holding slice", NewKeyedFactoryDescriptor(greeterType, compositeKey{Part: []int{1}}, func(ServiceResolver, any) (any, error) {
			return &englishGreeter{}, nil
		}, Singleton), ErrServiceKeyNotComparable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			services := NewServiceCollection()
			err := services.Add(tt.descriptor)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 0, services.Len())
		})
	}
}

type compositeKey struct {
	Part any
}

func TestServiceCollectionTryAdd(t *testing.T) {
	greeterType := TypeOf[greeter]()
	services := NewServiceCollection()

	added, err := services.TryAdd(NewFactoryDescriptor(greeterType, newGreeterFactory("first"), Singleton))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = services.TryAdd(NewFactoryDescriptor(greeterType, newGreeterFactory("second"), Singleton))
	require.NoError(t, err)
	assert.False(t, added)

	// A keyed registration is a different identity, including the nil key.
	added, err = services.TryAdd(NewKeyedFactoryDescriptor(greeterType, nil, func(ServiceResolver, any) (any, error) {
		return &englishGreeter{name: "nil-key"}, nil
	}, Singleton))
	require.NoError(t, err)
	assert.True(t, added)

	assert.Equal(t, 2, services.Len())
	assert.True(t, services.Contains(greeterType))
	assert.True(t, services.ContainsKeyed(greeterType, nil))
	assert.False(t, services.ContainsKeyed(greeterType, "other"))
	assert.False(t, services.ContainsKeyed(greeterType, []int{1}))
	assert.False(t, services.ContainsKeyed(greeterType, compositeKey{Part: []int{1}}))

	// Struct keys are fine as long as the dynamic value is comparable.
	added, err = services.TryAdd(NewKeyedFactoryDescriptor(greeterType, compositeKey{Part: "x"}, func(ServiceResolver, any) (any, error) {
		return &englishGreeter{name: "composite"}, nil
	}, Singleton))
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, services.ContainsKeyed(greeterType, compositeKey{Part: "x"}))

	_, err = services.TryAdd(NewKeyedFactoryDescriptor(greeterType, compositeKey{Part: []int{1}}, func(ServiceResolver, any) (any, error) {
		return &englishGreeter{}, nil
	}, Singleton))
	assert.ErrorIs(t, err, ErrServiceKeyNotComparable)

	provider, err := services.Build()
	require.NoError(t, err)
	g, err := Resolve[greeter](provider)
	require.NoError(t, err)
	assert.Equal(t, "hello first", g.Greet())
}

func TestServiceCollectionDescriptorsIsCopy(t *testing.T) {
	services := NewServiceCollection()
	require.NoError(t, services.Add(NewInstanceDescriptor(TypeOf[greeter](), &englishGreeter{})))

	descriptors := services.Descriptors()
	descriptors[0] = nil
	assert.NotNil(t, services.Descriptors()[0])
}

func TestServiceCollectionDescribe(t *testing.T) {
	services := NewServiceCollection()
	require.NoError(t, services.Add(NewTypeDescriptor(TypeOf[greeter](), TypeOf[*englishGreeter](), Transient)))
	require.NoError(t, services.Add(NewKeyedInstanceDescriptor(TypeOf[greeter](), nil, &englishGreeter{})))

	info := services.Describe()
	require.Len(t, info, 2)
	assert.Equal(t, DescriptorInfo{
		ServiceType:        "di.greeter",
		Lifetime:           "transient",
		Kind:               "type",
		ImplementationType: "*di.englishGreeter",
	}, info[0])
	assert.True(t, info[1].Keyed)
	assert.Equal(t, "<nil>", info[1].Key)
	assert.Equal(t, "instance", info[1].Kind)
}

func TestServiceCollectionEmitsEvents(t *testing.T) {
	bus := events.NewBus(nil)
	var (
		mu    sync.Mutex
		types []string
	)
	require.NoError(t, bus.RegisterObserver(events.NewFunctionalObserver("rec", func(_ context.Context, e cloudevents.Event) error {
		mu.Lock()
		defer mu.Unlock()
		types = append(types, e.Type())
		return nil
	})))

	services := NewServiceCollection(WithSubject(bus))
	_, err := services.TryAdd(NewFactoryDescriptor(TypeOf[greeter](), newGreeterFactory("a"), Transient))
	require.NoError(t, err)
	_, err = services.TryAdd(NewFactoryDescriptor(TypeOf[greeter](), newGreeterFactory("b"), Transient))
	require.NoError(t, err)

	provider, err := services.Build()
	require.NoError(t, err)
	_, err = Resolve[greeter](provider)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		events.EventTypeServiceRegistered,
		events.EventTypeServiceSkipped,
		events.EventTypeServiceResolved,
	}, types)
}
