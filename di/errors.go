package di

import "errors"

// Registration errors
var (
	ErrNilDescriptor           = errors.New("descriptor is nil")
	ErrNilServiceType          = errors.New("descriptor service type is nil")
	ErrInvalidLifetime         = errors.New("invalid service lifetime")
	ErrInvalidDescriptor       = errors.New("descriptor must have exactly one implementation strategy")
	ErrServiceKeyNotComparable = errors.New("service key is not comparable")
	ErrInstanceNotSingleton    = errors.New("instance descriptors must use the singleton lifetime")
	ErrKeyedFactoryNotKeyed    = errors.New("keyed factory requires a keyed descriptor")
)

// Resolution errors
var (
	ErrServiceNotFound    = errors.New("service not found")
	ErrServiceNil         = errors.New("service is nil")
	ErrServiceWrongType   = errors.New("service doesn't satisfy required type")
	ErrCannotActivate     = errors.New("cannot activate implementation type")
	ErrCircularDependency = errors.New("circular dependency detected")
	ErrProviderClosed     = errors.New("provider or scope is closed")
	ErrScopedFromRoot     = errors.New("scoped service resolved from root provider")
	ErrValidationFailed   = errors.New("service provider validation failed")
	ErrNilResolver        = errors.New("service resolver is nil")
)
