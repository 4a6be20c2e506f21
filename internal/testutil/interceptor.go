package testutil

import (
	"sync"

	"github.com/GoCodeAlone/interception/proxy"
)

// CapturingInterceptor records the methods it sees and always proceeds.
type CapturingInterceptor struct {
	mu      sync.Mutex
	methods []string
}

func (c *CapturingInterceptor) Intercept(inv *proxy.Invocation) {
	c.mu.Lock()
	c.methods = append(c.methods, inv.Method)
	c.mu.Unlock()
	inv.Proceed()
}

// Invoked reports whether any call went through the interceptor.
func (c *CapturingInterceptor) Invoked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.methods) > 0
}

// MethodName returns the most recent intercepted method, or "".
func (c *CapturingInterceptor) MethodName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.methods) == 0 {
		return ""
	}
	return c.methods[len(c.methods)-1]
}

// Methods returns every intercepted method in call order.
func (c *CapturingInterceptor) Methods() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.methods...)
}

// Reset forgets recorded calls.
func (c *CapturingInterceptor) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.methods = nil
}

// OrderInterceptor appends its name to a shared trace before proceeding.
type OrderInterceptor struct {
	Name  string
	Trace *Trace
}

func (o *OrderInterceptor) Intercept(inv *proxy.Invocation) {
	o.Trace.Add(o.Name)
	inv.Proceed()
}

// Trace is a goroutine-safe list of strings.
type Trace struct {
	mu      sync.Mutex
	entries []string
}

func (t *Trace) Add(entry string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry)
}

func (t *Trace) Entries() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.entries...)
}
