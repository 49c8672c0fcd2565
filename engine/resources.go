package engine

import (
	"reflect"
	"sync"
	"time"

	"github.com/lixenwraith/ecshttp/event"
)

// ResourceStore is a thread-safe container for world-global singletons
// Systems reach shared data (budget, transport, messages) without coupling to the App
type ResourceStore struct {
	mu        sync.RWMutex
	resources map[reflect.Type]any
}

// NewResourceStore creates a new empty resource store
func NewResourceStore() *ResourceStore {
	return &ResourceStore{
		resources: make(map[reflect.Type]any),
	}
}

// AddResource registers or replaces a resource keyed by its static type T
// Pointers are recommended so systems can mutate in place
func AddResource[T any](rs *ResourceStore, resource T) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.resources[reflect.TypeOf((*T)(nil)).Elem()] = resource
}

// GetResource retrieves a resource of type T
// Returns the zero value of T and false if not found
func GetResource[T any](rs *ResourceStore) (T, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()

	val, ok := rs.resources[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		var zero T
		return zero, false
	}
	return val.(T), true
}

// HasResource reports whether a resource of type T is registered
func HasResource[T any](rs *ResourceStore) bool {
	_, ok := GetResource[T](rs)
	return ok
}

// RemoveResource deletes the resource of type T if present
func RemoveResource[T any](rs *ResourceStore) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	delete(rs.resources, reflect.TypeOf((*T)(nil)).Elem())
}

// MustGetResource retrieves a resource or panics if missing
// Reserved for resources the App itself installs (tick, queue, status)
func MustGetResource[T any](rs *ResourceStore) T {
	res, ok := GetResource[T](rs)
	if !ok {
		panic("required resource not found: " + reflect.TypeOf((*T)(nil)).Elem().String())
	}
	return res
}

// --- Core Resources ---

// TickResource wraps loop timing for systems
// Updated by App.Tick before systems run
type TickResource struct {
	// Tick is the current tick number, starting at 1
	Tick int64

	// Now is the wall-clock time at tick start
	Now time.Time

	// Delta is the duration since the previous tick
	Delta time.Duration
}

// EventQueueResource wraps the inbound event queue for system access
type EventQueueResource struct {
	Queue *event.Queue
}
