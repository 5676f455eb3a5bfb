// Package registry implements the process-wide Step Registry: a
// string-keyed map from step type name to its Constructor.
//
// This is a direct generalization of the teacher's model-provider driver
// registry (internal/router's ProviderDriver map, guarded by a
// sync.RWMutex and exposed via RegisterDriver/GetDriver/ListDrivers). The
// one behavioral change from that teacher pattern: the teacher's
// RegisterDriver silently replaces a driver registered under the same
// name, logging at Info. The Step Registry cannot do that — spec.md's
// idempotence law requires that registering the same type name twice be a
// program-configuration error, not a silent overwrite — so Register
// panics, the same way database/sql.Register panics on a duplicate driver
// name in the standard library.
package registry

import (
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/recipeforge/recipeforge/internal/stepapi"
)

var (
	mu    sync.RWMutex
	ctors = make(map[string]stepapi.Constructor)
)

// Register adds a step constructor under stepType. It panics if stepType
// is already registered — re-registration is a program-configuration
// error, not a runtime condition a caller should need to check for.
func Register(stepType string, ctor stepapi.Constructor) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := ctors[stepType]; exists {
		panic(fmt.Sprintf("registry: step type %q already registered", stepType))
	}
	ctors[stepType] = ctor
}

// MustRegister is an alias for Register, used at call sites where the
// panic-on-duplicate behavior should read as intentional rather than
// incidental.
func MustRegister(stepType string, ctor stepapi.Constructor) {
	Register(stepType, ctor)
}

// Lookup returns the constructor registered for stepType, if any.
func Lookup(stepType string) (stepapi.Constructor, bool) {
	mu.RLock()
	defer mu.RUnlock()
	ctor, ok := ctors[stepType]
	return ctor, ok
}

// RegisteredTypes returns the sorted list of currently registered step
// type names. Used for diagnostics and tests.
func RegisteredTypes() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(ctors))
	for t := range ctors {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// reset clears the registry. It is unexported and exists only so this
// package's own tests can exercise Register's duplicate-detection panic
// without interfering with the real, process-wide registrations other
// tests rely on.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	ctors = make(map[string]stepapi.Constructor)
}

// TestRegister registers ctor under stepType for the duration of tb's test,
// unregistering it via tb.Cleanup. It exists so tests in other packages can
// register scratch step types against the real, process-wide registry
// without leaking them into later tests or colliding with the real
// built-in registrations performed by internal/steps' init.
func TestRegister(tb testing.TB, stepType string, ctor stepapi.Constructor) {
	tb.Helper()
	Register(stepType, ctor)
	tb.Cleanup(func() {
		mu.Lock()
		defer mu.Unlock()
		delete(ctors, stepType)
	})
}
