package value

import (
	"sync"

	"rogchap.com/v8go"
)

// Releaser receives engine values whose persistent handles must be released
// on the isolate's owner goroutine.
type Releaser interface {
	Collect(val *v8go.Value)
}

// Value wraps either an inline primitive or a pinned engine object. The
// Registry holds the unique strong reference; clients hold only the address
// of the embedded Handle.
type Value struct {
	handle     Handle
	persistent *v8go.Value // pinned engine value, released via the collector
	sharedFree func()      // releases the shared backing store contents
	releaser   Releaser
}

// Handle the client identity of this value. The pointer is stable for the
// lifetime of the Value.
func (val *Value) Handle() *Handle {
	return &val.handle
}

// Tag the type tag
func (val *Value) Tag() Tag {
	return val.handle.Tag
}

// Pinned the engine value backing this Value, nil for inline primitives
func (val *Value) Pinned() *v8go.Value {
	return val.persistent
}

// dispose releases engine resources. Runs on any goroutine; engine handles
// are routed through the releaser so they die on the owner goroutine.
func (val *Value) dispose() {
	if val.sharedFree != nil {
		val.sharedFree()
		val.sharedFree = nil
	}
	if val.persistent != nil {
		if val.releaser != nil {
			val.releaser.Collect(val.persistent)
		}
		val.persistent = nil
	}
}

// Registry maps handle addresses to their owning Values. The map is keyed by
// pointer identity, so entries never relocate.
type Registry struct {
	mutex  sync.Mutex
	values map[*Handle]*Value
}

// NewRegistry create an empty registry
func NewRegistry() *Registry {
	return &Registry{values: map[*Handle]*Value{}}
}

// Remember insert the value and return its handle address
func (registry *Registry) Remember(val *Value) *Handle {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	handle := val.Handle()
	registry.values[handle] = val
	return handle
}

// Forget erase the entry and release its resources. Unknown handles are
// ignored.
func (registry *Registry) Forget(handle *Handle) {
	registry.mutex.Lock()
	val, has := registry.values[handle]
	if has {
		delete(registry.values, handle)
	}
	registry.mutex.Unlock()

	if has {
		val.dispose()
	}
}

// Lookup the owning value, nil if the handle is unknown
func (registry *Registry) Lookup(handle *Handle) *Value {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	return registry.values[handle]
}

// Count the number of live values
func (registry *Registry) Count() int {
	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	return len(registry.values)
}

// Drain release every remaining value. Called at context teardown while the
// owner loop still runs cleanup tasks, so pinned handles are released through
// the collector before the isolate is disposed.
func (registry *Registry) Drain() {
	registry.mutex.Lock()
	values := registry.values
	registry.values = map[*Handle]*Value{}
	registry.mutex.Unlock()

	for _, val := range values {
		val.dispose()
	}
}
