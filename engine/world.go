package engine

import (
	"reflect"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"github.com/lixenwraith/ecshttp/core"
	"github.com/lixenwraith/ecshttp/event"
)

// World contains all entities, their components and global resources
type World struct {
	mu           sync.RWMutex
	nextEntityID core.Entity
	alive        map[core.Entity]struct{}

	// Lifecycle registry: component stores and observer tables, keyed by their concrete type
	stores     map[reflect.Type]AnyStore
	storeOrder []AnyStore

	// Global ResourceStore
	Resources *ResourceStore

	// Direct pointers for the cross-goroutine event path
	eventQueue *event.Queue
	tickSource atomic.Int64

	systems     []System
	updateMutex sync.Mutex
}

// NewWorld creates an empty world with its inbound event queue installed as a resource
func NewWorld() *World {
	w := &World{
		nextEntityID: 1,
		alive:        make(map[core.Entity]struct{}),
		stores:       make(map[reflect.Type]AnyStore),
		Resources:    NewResourceStore(),
		eventQueue:   event.NewQueue(),
		systems:      make([]System, 0),
	}
	AddResource(w.Resources, &EventQueueResource{Queue: w.eventQueue})
	return w
}

// CreateEntity reserves a new entity ID
func (w *World) CreateEntity() core.Entity {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextEntityID
	w.nextEntityID++
	w.alive[id] = struct{}{}
	return id
}

// Alive reports whether the entity was created and not yet destroyed
func (w *World) Alive(e core.Entity) bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	_, ok := w.alive[e]
	return ok
}

// EntityCount returns the number of live entities
func (w *World) EntityCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.alive)
}

// DestroyEntity removes the entity from every store and observer table
// Destroying an unknown or already destroyed entity is a no-op
func (w *World) DestroyEntity(e core.Entity) {
	w.mu.Lock()
	if _, ok := w.alive[e]; !ok {
		w.mu.Unlock()
		return
	}
	delete(w.alive, e)
	stores := make([]AnyStore, len(w.storeOrder))
	copy(stores, w.storeOrder)
	w.mu.Unlock()

	for _, s := range stores {
		s.Remove(e)
	}
}

// Clear removes all entities and components, resources are kept
func (w *World) Clear() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextEntityID = 1
	w.alive = make(map[core.Entity]struct{})
	for _, s := range w.storeOrder {
		s.Clear()
	}
}

// registerStore returns the store registered under key, creating it with ctor on first use
func registerStore[S AnyStore](w *World, key reflect.Type, ctor func() S) S {
	w.mu.RLock()
	if s, ok := w.stores[key]; ok {
		w.mu.RUnlock()
		return s.(S)
	}
	w.mu.RUnlock()

	w.mu.Lock()
	defer w.mu.Unlock()
	if s, ok := w.stores[key]; ok {
		return s.(S)
	}
	s := ctor()
	w.stores[key] = s
	w.storeOrder = append(w.storeOrder, s)
	return s
}

// GetStore returns the component store for T, creating and registering it on first use
// Callers cache the pointer; it stays valid for the world lifetime
func GetStore[T any](w *World) *Store[T] {
	return registerStore(w, reflect.TypeOf((*Store[T])(nil)), NewStore[T])
}

// AddSystem adds a system to the world and sorts by priority
// Systems with equal priority keep registration order
func (w *World) AddSystem(system System) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.systems = append(w.systems, system)

	// Sort by priority (stable bubble sort, small N)
	for i := 0; i < len(w.systems)-1; i++ {
		for j := 0; j < len(w.systems)-i-1; j++ {
			if w.systems[j].Priority() > w.systems[j+1].Priority() {
				w.systems[j], w.systems[j+1] = w.systems[j+1], w.systems[j]
			}
		}
	}
}

// Systems returns a copy of all registered systems in run order
func (w *World) Systems() []System {
	w.mu.RLock()
	defer w.mu.RUnlock()
	result := make([]System, len(w.systems))
	copy(result, w.systems)
	return result
}

// RunSafe executes a function while holding the world's update lock
func (w *World) RunSafe(fn func()) {
	w.updateMutex.Lock()
	defer w.updateMutex.Unlock()
	fn()
}

// TryRunSafe runs fn only if the update lock is free, reports whether it ran
// Renderers use it to skip a frame rather than stall behind a tick
func (w *World) TryRunSafe(fn func()) bool {
	if !w.updateMutex.TryLock() {
		return false
	}
	defer w.updateMutex.Unlock()
	fn()
	return true
}

// UpdateLocked runs all systems assuming the caller already holds the update lock
func (w *World) UpdateLocked() {
	for _, system := range w.Systems() {
		system.Update(w)
	}
}

// TickNumber returns the current tick, safe from any goroutine
func (w *World) TickNumber() int64 {
	return w.tickSource.Load()
}

// PushEvent enqueues an inbound event from any goroutine
// Events are routed at the start of the next tick
// Returns false when the queue was full and its oldest unread event was lost
func (w *World) PushEvent(eventType event.EventType, payload any) bool {
	ok := w.eventQueue.Push(event.Event{
		Type:    eventType,
		Payload: payload,
		Tick:    w.tickSource.Load(),
	})
	if !ok {
		log.WithFields(log.Fields{
			"type":    eventType.String(),
			"dropped": w.eventQueue.Dropped(),
		}).Warn("event queue full, oldest event overwritten")
	}
	return ok
}
