package engine

import (
	"testing"

	"github.com/lixenwraith/ecshttp/core"
)

func TestMessagesTwoTickLifetime(t *testing.T) {
	m := NewMessages[int]()
	r := m.Reader()

	m.Send(1)
	m.Send(2)
	if got := r.Read(m); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("Expected [1 2], got %v", got)
	}
	if got := r.Read(m); len(got) != 0 {
		t.Errorf("Reader saw messages twice: %v", got)
	}

	// Late reader still sees messages one rotation later
	late := m.Reader()
	m.Update()
	m.Send(3)
	if got := late.Read(m); len(got) != 3 {
		t.Errorf("Expected late reader to see 3 messages, got %v", got)
	}
	if got := r.Read(m); len(got) != 1 || got[0] != 3 {
		t.Errorf("Expected [3], got %v", got)
	}

	// Two rotations drop 1 and 2
	m.Update()
	m.Update()
	if m.Len() != 0 {
		t.Errorf("Expected all messages expired, %d retained", m.Len())
	}
}

func TestMessagesMissedCount(t *testing.T) {
	m := NewMessages[string]()
	r := m.Reader()

	m.Send("a")
	m.Update()
	m.Send("b")
	m.Update()
	m.Update()

	if got := r.Read(m); len(got) != 0 {
		t.Errorf("Expected nothing readable, got %v", got)
	}
	if r.Missed() != 2 {
		t.Errorf("Expected 2 missed, got %d", r.Missed())
	}
}

func TestMessagesDrain(t *testing.T) {
	m := NewMessages[int]()
	m.Send(1)
	m.Update()
	m.SendBatch(2, 3)

	got := m.Drain()
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("Expected [1 2 3], got %v", got)
	}
	if m.Len() != 0 {
		t.Error("Drain must empty the channel")
	}
	if again := m.Drain(); len(again) != 0 {
		t.Errorf("Expected empty second drain, got %v", again)
	}
}

func TestSendMessageMissingResource(t *testing.T) {
	w := NewWorld()
	if SendMessage(w, 5) {
		t.Error("Expected SendMessage to fail without a registered channel")
	}

	m := NewMessages[int]()
	AddResource(w.Resources, m)
	if !SendMessage(w, 5) || m.Len() != 1 {
		t.Error("Expected message to be published")
	}
}

func TestObserverTrigger(t *testing.T) {
	w := NewWorld()
	e1 := w.CreateEntity()
	e2 := w.CreateEntity()

	var got []string
	Observe[string](w, e1, func(_ *World, target core.Entity, ev string) {
		if target != e1 {
			t.Errorf("Observer received target %v", target)
		}
		got = append(got, "first:"+ev)
	})
	Observe[string](w, e1, func(_ *World, _ core.Entity, ev string) {
		got = append(got, "second:"+ev)
	})

	if n := Trigger(w, e2, "x"); n != 0 {
		t.Errorf("Expected no observers on e2, got %d", n)
	}
	if n := Trigger(w, e1, "y"); n != 2 {
		t.Errorf("Expected 2 observers on e1, got %d", n)
	}
	if len(got) != 2 || got[0] != "first:y" || got[1] != "second:y" {
		t.Errorf("Unexpected observer calls %v", got)
	}

	w.DestroyEntity(e1)
	if n := Trigger(w, e1, "z"); n != 0 {
		t.Errorf("Expected observers removed with entity, got %d", n)
	}
}

func TestCommandQueueApply(t *testing.T) {
	w := NewWorld()
	var q CommandQueue
	var order []int
	q.Push(func(*World) { order = append(order, 1) })
	q.Push(func(w *World) {
		order = append(order, 2)
		w.CreateEntity()
	})

	if q.Len() != 2 {
		t.Fatalf("Expected 2 commands, got %d", q.Len())
	}
	q.Apply(w)
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("Commands ran out of order: %v", order)
	}
	if w.EntityCount() != 1 {
		t.Error("Command did not mutate the world")
	}
	if q.Len() != 0 {
		t.Error("Apply must empty the queue")
	}
}
