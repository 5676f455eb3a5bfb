// Package recipectx implements the shared, cloneable artifact store every
// step reads from and writes to. It is named recipectx (not context) to
// avoid colliding with the standard library's context.Context, which steps
// also carry for cancellation.
//
// A Context holds two disjoint scopes: a mutable artifact map and a
// separate configuration map. Reading a missing artifact never returns a
// silent zero value — callers get an explicit "absent" signal via the
// second bool return, matching the teacher's store layer's (found, ok)
// convention (see internal/store's Get-style accessors before it was
// trimmed down to runlog).
package recipectx

import (
	"errors"
	"strings"
	"sync"
)

// ErrKeyNotFound is returned by Delete when the key is absent.
var ErrKeyNotFound = errors.New("recipectx: key not found")

// Context is the shared artifact store passed to every step. The zero
// value is not usable; construct with New or NewWithConfig.
type Context struct {
	mu sync.RWMutex

	artifacts map[string]interface{}
	// order tracks insertion order so Keys/Iterate produce a stable,
	// reproducible sequence instead of Go's randomized map order.
	order []string

	config map[string]interface{}
}

// New creates an empty Context with no configuration.
func New() *Context {
	return NewWithConfig(nil)
}

// NewWithConfig creates an empty artifact store with the given
// configuration scope. cfg is copied in, not aliased.
func NewWithConfig(cfg map[string]interface{}) *Context {
	c := &Context{
		artifacts: make(map[string]interface{}),
		order:     make([]string, 0),
		config:    make(map[string]interface{}),
	}
	for k, v := range cfg {
		c.config[k] = deepCopyValue(v)
	}
	return c
}

// Get returns the artifact stored under key, and whether it was present.
func (c *Context) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.artifacts[key]
	return v, ok
}

// GetOrDefault returns the artifact under key, or def if absent.
func (c *Context) GetOrDefault(key string, def interface{}) interface{} {
	if v, ok := c.Get(key); ok {
		return v
	}
	return def
}

// Set stores value under key, overwriting any existing value.
func (c *Context) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.artifacts[key]; !exists {
		c.order = append(c.order, key)
	}
	c.artifacts[key] = value
}

// Delete removes key from the artifact store. It returns ErrKeyNotFound if
// key was not present, matching the spec's requirement that deletion of an
// absent key is a signaled condition rather than a silent no-op.
func (c *Context) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.artifacts[key]; !ok {
		return ErrKeyNotFound
	}
	delete(c.artifacts, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Contains reports whether key is present in the artifact store.
func (c *Context) Contains(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.artifacts[key]
	return ok
}

// Len returns the number of artifacts currently stored.
func (c *Context) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.artifacts)
}

// Keys returns a snapshot of artifact keys in insertion order. Mutating the
// Context afterward does not affect the returned slice.
func (c *Context) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Iterate calls fn for each (key, value) pair in the artifact store, in a
// snapshot of the key set taken when Iterate is called. Mutating the
// Context from within fn is safe and does not affect this iteration.
func (c *Context) Iterate(fn func(key string, value interface{}) bool) {
	c.mu.RLock()
	keys := make([]string, len(c.order))
	copy(keys, c.order)
	values := make([]interface{}, len(keys))
	for i, k := range keys {
		values[i] = c.artifacts[k]
	}
	c.mu.RUnlock()

	for i, k := range keys {
		if !fn(k, values[i]) {
			return
		}
	}
}

// Clone returns a deep, independent copy of both the artifact and
// configuration scopes. Mutating the clone never affects the original and
// vice versa. Every concurrency-branching step (parallel, loop) must call
// Clone before handing a Context to a concurrent branch — this is the
// engine's sole concurrency-safety rule.
func (c *Context) Clone() *Context {
	c.mu.RLock()
	defer c.mu.RUnlock()

	clone := &Context{
		artifacts: make(map[string]interface{}, len(c.artifacts)),
		order:     make([]string, len(c.order)),
		config:    make(map[string]interface{}, len(c.config)),
	}
	copy(clone.order, c.order)
	for k, v := range c.artifacts {
		clone.artifacts[k] = deepCopyValue(v)
	}
	for k, v := range c.config {
		clone.config[k] = deepCopyValue(v)
	}
	return clone
}

// ConfigGet returns a deep copy of the configuration scope.
func (c *Context) ConfigGet() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]interface{}, len(c.config))
	for k, v := range c.config {
		out[k] = deepCopyValue(v)
	}
	return out
}

// ConfigSet replaces the configuration scope wholesale with a deep copy of
// cfg.
func (c *Context) ConfigSet(cfg map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.config = make(map[string]interface{}, len(cfg))
	for k, v := range cfg {
		c.config[k] = deepCopyValue(v)
	}
}

// ResolvePath resolves a dotted path against the artifact store — the
// first segment names a top-level artifact, and each subsequent segment
// indexes one level deeper into a nested map (used by the loop step's
// `items` field, spec.md §4.6). A path with no dots is equivalent to Get.
func (c *Context) ResolvePath(path string) (interface{}, bool) {
	segments := strings.Split(path, ".")
	cur, ok := c.Get(segments[0])
	if !ok {
		return nil, false
	}
	for _, seg := range segments[1:] {
		m, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// AsMapping returns a deep-copy snapshot of the artifact store, for
// rendering and diagnostics. Callers must not rely on it reflecting later
// mutations.
func (c *Context) AsMapping() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]interface{}, len(c.artifacts))
	for k, v := range c.artifacts {
		out[k] = deepCopyValue(v)
	}
	return out
}

// deepCopyValue recursively copies JSON-shaped values (the only shapes a
// JSON-sourced recipe or a step ever produces: maps, slices, and scalars).
func deepCopyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, vv := range val {
			out[k] = deepCopyValue(vv)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, vv := range val {
			out[i] = deepCopyValue(vv)
		}
		return out
	default:
		// Scalars (string, float64, bool, nil, int, etc.) are copied by value
		// already; anything else opaque is handed back by reference, matching
		// the original spec's "values are opaque" data-model note.
		return val
	}
}
