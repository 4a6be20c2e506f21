package proxy

import "errors"

var (
	ErrNilServiceType   = errors.New("proxy service type is nil")
	ErrNilTarget        = errors.New("proxy target is nil")
	ErrTargetMismatch   = errors.New("proxy target does not implement service type")
	ErrNoProxyFactory   = errors.New("no proxy factory registered for service type")
	ErrNotInterface     = errors.New("proxy factories can only be registered for interface types")
	ErrNilFactory       = errors.New("proxy factory is nil")
	ErrFactoryResult    = errors.New("proxy factory returned a value that does not implement service type")
	ErrNilGenerator     = errors.New("proxy generator is nil")
	ErrDuplicateFactory = errors.New("proxy factory already registered for service type")
)
