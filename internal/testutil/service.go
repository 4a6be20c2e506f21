package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrEmptyName is returned by Describe when the service has no name.
var ErrEmptyName = errors.New("test service has no name")

//go:generate go run ../../cmd/proxygen generate --type ITestService --out itestservice_proxy.go

// ITestService is the contract most interception tests register.
type ITestService interface {
	GetName() string
	Describe(ctx context.Context, verbose bool) (string, error)
	SetName(name string)
}

// TestService is the plain implementation of ITestService.
type TestService struct {
	mu    sync.Mutex
	name  string
	calls atomic.Int64
}

// NewTestService returns a service named "TestService".
func NewTestService() *TestService {
	return &TestService{name: "TestService"}
}

func (s *TestService) GetName() string {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *TestService) Describe(ctx context.Context, verbose bool) (string, error) {
	s.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.name == "" {
		return "", ErrEmptyName
	}
	if verbose {
		return fmt.Sprintf("%s (%d calls)", s.name, s.calls.Load()), nil
	}
	return s.name, nil
}

func (s *TestService) SetName(name string) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = name
}

// Calls reports how many ITestService methods reached this instance.
func (s *TestService) Calls() int64 {
	return s.calls.Load()
}
