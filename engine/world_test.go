package engine

import (
	"testing"

	"github.com/lixenwraith/ecshttp/core"
	"github.com/lixenwraith/ecshttp/event"
)

func TestEntityLifecycle(t *testing.T) {
	w := NewWorld()
	store := GetStore[tagA](w)

	e := w.CreateEntity()
	if !e.Valid() || !w.Alive(e) {
		t.Fatalf("Expected live entity, got %v", e)
	}
	store.Set(e, tagA{7})
	Observe[tagB](w, e, func(*World, core.Entity, tagB) {})

	if GetStore[tagA](w) != store {
		t.Error("GetStore must return the cached store")
	}

	w.DestroyEntity(e)
	if w.Alive(e) {
		t.Error("Entity still alive after destroy")
	}
	if store.Has(e) {
		t.Error("Component survived entity destruction")
	}
	if GetObservers[tagB](w).Has(e) {
		t.Error("Observers survived entity destruction")
	}

	// Second destroy is a no-op
	w.DestroyEntity(e)
	if w.EntityCount() != 0 {
		t.Errorf("Expected 0 entities, got %d", w.EntityCount())
	}
}

func TestStoreTake(t *testing.T) {
	s := NewStore[tagA]()
	s.Set(1, tagA{1})
	s.Set(2, tagA{2})
	s.Set(3, tagA{3})

	v, ok := s.Take(2)
	if !ok || v.N != 2 {
		t.Fatalf("Take returned %v, %v", v, ok)
	}
	if s.Has(2) {
		t.Error("Take must remove the component")
	}
	all := s.All()
	if len(all) != 2 || all[0] != 1 || all[1] != 3 {
		t.Errorf("Expected order preserved [1 3], got %v", all)
	}
	if _, ok := s.Take(2); ok {
		t.Error("Second Take must miss")
	}
}

type recordingSystem struct {
	name     string
	priority int
	log      *[]string
}

func (s *recordingSystem) Update(*World) { *s.log = append(*s.log, s.name) }
func (s *recordingSystem) Priority() int { return s.priority }
func (s *recordingSystem) Name() string  { return s.name }

func TestSystemOrdering(t *testing.T) {
	w := NewWorld()
	var order []string

	w.AddSystem(&recordingSystem{"update-a", PriorityUpdate, &order})
	w.AddSystem(&recordingSystem{"pre", PriorityPreUpdate, &order})
	w.AddSystem(&recordingSystem{"update-b", PriorityUpdate, &order})
	w.AddSystem(&recordingSystem{"first", PriorityFirst, &order})

	w.RunSafe(w.UpdateLocked)

	want := []string{"first", "pre", "update-a", "update-b"}
	if len(order) != len(want) {
		t.Fatalf("Expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], order[i])
		}
	}
}

func TestResourceStore(t *testing.T) {
	rs := NewResourceStore()

	if _, ok := GetResource[*TickResource](rs); ok {
		t.Error("Expected missing resource")
	}

	tr := &TickResource{Tick: 4}
	AddResource(rs, tr)
	if got := MustGetResource[*TickResource](rs); got != tr {
		t.Error("MustGetResource returned a different pointer")
	}

	RemoveResource[*TickResource](rs)
	if HasResource[*TickResource](rs) {
		t.Error("Resource survived removal")
	}

	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected MustGetResource to panic on missing resource")
		}
	}()
	MustGetResource[*TickResource](rs)
}

func TestPushEventStampsTick(t *testing.T) {
	w := NewWorld()
	w.tickSource.Store(41)
	w.PushEvent(event.EventShutdown, nil)

	q := MustGetResource[*EventQueueResource](w.Resources).Queue
	events := q.Consume()
	if len(events) != 1 || events[0].Tick != 41 || events[0].Type != event.EventShutdown {
		t.Errorf("Unexpected events %+v", events)
	}
}

func TestTryRunSafe(t *testing.T) {
	w := NewWorld()
	w.RunSafe(func() {
		if w.TryRunSafe(func() {}) {
			t.Error("TryRunSafe must not run while the update lock is held")
		}
	})
	ran := false
	if !w.TryRunSafe(func() { ran = true }) || !ran {
		t.Error("TryRunSafe must run when the lock is free")
	}
}
