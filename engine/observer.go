package engine

import (
	"reflect"
	"sync"

	"github.com/lixenwraith/ecshttp/core"
)

// ObserverFunc reacts to a T targeted at a specific entity
type ObserverFunc[T any] func(w *World, target core.Entity, ev T)

// Observers holds per-entity callbacks for targeted triggers of T
// Registered in the world lifecycle registry, so destroying an entity drops its observers
type Observers[T any] struct {
	mu       sync.RWMutex
	byEntity map[core.Entity][]ObserverFunc[T]
	order    []core.Entity
}

func newObservers[T any]() *Observers[T] {
	return &Observers[T]{
		byEntity: make(map[core.Entity][]ObserverFunc[T]),
	}
}

// GetObservers returns the observer table for T, creating it on first use
func GetObservers[T any](w *World) *Observers[T] {
	return registerStore(w, reflect.TypeOf((*Observers[T])(nil)), newObservers[T])
}

// Observe registers fn to run whenever T is triggered on target
func Observe[T any](w *World, target core.Entity, fn ObserverFunc[T]) {
	GetObservers[T](w).add(target, fn)
}

// Trigger runs every observer of T registered on target, in registration order
// Returns the number of observers invoked
func Trigger[T any](w *World, target core.Entity, ev T) int {
	obs := GetObservers[T](w)

	obs.mu.RLock()
	fns := append([]ObserverFunc[T](nil), obs.byEntity[target]...)
	obs.mu.RUnlock()

	// Invoked outside the lock so observers may register or trigger further
	for _, fn := range fns {
		fn(w, target, ev)
	}
	return len(fns)
}

func (o *Observers[T]) add(target core.Entity, fn ObserverFunc[T]) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.byEntity[target]; !ok {
		o.order = append(o.order, target)
	}
	o.byEntity[target] = append(o.byEntity[target], fn)
}

// Remove implements AnyStore
func (o *Observers[T]) Remove(e core.Entity) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.byEntity[e]; !ok {
		return
	}
	delete(o.byEntity, e)
	for i, entity := range o.order {
		if entity == e {
			o.order = append(o.order[:i], o.order[i+1:]...)
			break
		}
	}
}

// Has implements AnyStore
func (o *Observers[T]) Has(e core.Entity) bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	_, ok := o.byEntity[e]
	return ok
}

// Count implements AnyStore
func (o *Observers[T]) Count() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.order)
}

// Clear implements AnyStore
func (o *Observers[T]) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.byEntity = make(map[core.Entity][]ObserverFunc[T])
	o.order = nil
}

// All implements AnyStore
func (o *Observers[T]) All() []core.Entity {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]core.Entity(nil), o.order...)
}
