// Package testutil holds fixtures shared by the interception test suites.
package testutil

import (
	"os"
	"sync"
	"testing"
)

// TrackedEnv lists the environment variables config tests mutate.
var TrackedEnv = []string{
	"INTERCEPTION_ENABLED",
	"INTERCEPTION_VALIDATE_SCOPES",
	"INTERCEPTION_VALIDATE_ON_BUILD",
	"INTERCEPTION_LOG_INVOCATIONS",
	"INTERCEPTION_DEFAULT_LIFETIME",
}

var envMu sync.Mutex

func snapshotEnv(keys []string) map[string]*string {
	snapshot := make(map[string]*string, len(keys))
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			val := v
			snapshot[k] = &val
		} else {
			snapshot[k] = nil
		}
	}
	return snapshot
}

func restoreEnv(snapshot map[string]*string) {
	for k, v := range snapshot {
		if v == nil {
			_ = os.Unsetenv(k)
		} else {
			_ = os.Setenv(k, *v)
		}
	}
}

// WithIsolatedEnv runs fn and then restores TrackedEnv plus extra to their
// previous values. Calls are serialized.
func WithIsolatedEnv(fn func(), extra ...string) {
	envMu.Lock()
	defer envMu.Unlock()

	snapshot := snapshotEnv(append(append([]string{}, TrackedEnv...), extra...))
	defer restoreEnv(snapshot)

	fn()
}

// Isolate snapshots TrackedEnv plus extra and restores them in t.Cleanup.
// It may be called more than once; restores run LIFO.
func Isolate(t *testing.T, extra ...string) {
	t.Helper()
	snapshot := snapshotEnv(append(append([]string{}, TrackedEnv...), extra...))
	t.Cleanup(func() { restoreEnv(snapshot) })
}
