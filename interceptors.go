package interception

import (
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GoCodeAlone/interception/logging"
	"github.com/GoCodeAlone/interception/proxy"
)

// LoggingInterceptor logs every call at Debug on entry and at Info or Error
// on completion, depending on whether the call's last result is an error.
type LoggingInterceptor struct {
	logger Logger
}

// NewLoggingInterceptor creates a LoggingInterceptor. A nil logger discards output.
func NewLoggingInterceptor(logger Logger) *LoggingInterceptor {
	return &LoggingInterceptor{logger: logging.OrNop(logger)}
}

func (l *LoggingInterceptor) Intercept(inv *proxy.Invocation) {
	service := serviceName(inv)
	l.logger.Debug("Invoking service method",
		"service", service,
		"method", inv.Method,
		"invocationID", inv.ID)

	start := time.Now()
	inv.Proceed()
	duration := time.Since(start)

	if err := inv.Err(); err != nil {
		l.logger.Error("Service method failed",
			"service", service,
			"method", inv.Method,
			"invocationID", inv.ID,
			"duration", duration,
			"error", err)
		return
	}
	l.logger.Info("Service method completed",
		"service", service,
		"method", inv.Method,
		"invocationID", inv.ID,
		"duration", duration)
}

// MethodStats aggregates calls to one method of one service.
type MethodStats struct {
	Service       string        `json:"service"`
	Method        string        `json:"method"`
	Calls         int64         `json:"calls"`
	Errors        int64         `json:"errors"`
	TotalDuration time.Duration `json:"totalDurationNs"`
}

// CountingInterceptor counts calls, errors and time spent per method.
type CountingInterceptor struct {
	mu    sync.Mutex
	stats map[string]*MethodStats
}

func NewCountingInterceptor() *CountingInterceptor {
	return &CountingInterceptor{stats: make(map[string]*MethodStats)}
}

func (c *CountingInterceptor) Intercept(inv *proxy.Invocation) {
	start := time.Now()
	inv.Proceed()
	duration := time.Since(start)
	failed := inv.Err() != nil

	service := serviceName(inv)
	key := service + "." + inv.Method

	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stats[key]
	if !ok {
		s = &MethodStats{Service: service, Method: inv.Method}
		c.stats[key] = s
	}
	s.Calls++
	if failed {
		s.Errors++
	}
	s.TotalDuration += duration
}

// Stats returns a snapshot ordered by service and method.
func (c *CountingInterceptor) Stats() []MethodStats {
	c.mu.Lock()
	out := make([]MethodStats, 0, len(c.stats))
	for _, s := range c.stats {
		out = append(out, *s)
	}
	c.mu.Unlock()

	slices.SortFunc(out, func(a, b MethodStats) int {
		if n := strings.Compare(a.Service, b.Service); n != 0 {
			return n
		}
		return strings.Compare(a.Method, b.Method)
	})
	return out
}

// Calls returns how many times method was called on any service.
func (c *CountingInterceptor) Calls(method string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, s := range c.stats {
		if s.Method == method {
			n += s.Calls
		}
	}
	return n
}

// Reset clears all counters.
func (c *CountingInterceptor) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.stats)
}

// SwitchInterceptor turns the rest of the chain on and off at runtime. While
// off, calls go straight to the target.
type SwitchInterceptor struct {
	enabled atomic.Bool
}

func NewSwitchInterceptor(enabled bool) *SwitchInterceptor {
	s := &SwitchInterceptor{}
	s.enabled.Store(enabled)
	return s
}

func (s *SwitchInterceptor) Intercept(inv *proxy.Invocation) {
	if s.enabled.Load() {
		inv.Proceed()
		return
	}
	inv.ProceedToTarget()
}

func (s *SwitchInterceptor) Enabled() bool { return s.enabled.Load() }

func (s *SwitchInterceptor) SetEnabled(enabled bool) { s.enabled.Store(enabled) }

func serviceName(inv *proxy.Invocation) string {
	if inv.ServiceType == nil {
		return ""
	}
	return inv.ServiceType.String()
}
