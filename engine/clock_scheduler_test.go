package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lixenwraith/ecshttp/event"
)

func TestSchedulerTicksAndStops(t *testing.T) {
	app := NewApp()
	var ticks atomic.Int64
	app.AddSystemFunc("count", PriorityUpdate, func(*World) { ticks.Add(1) })

	sched, updates := NewScheduler(app, 5*time.Millisecond)
	sched.Start()

	deadline := time.After(2 * time.Second)
	for seen := 0; seen < 3; {
		select {
		case <-updates:
			seen++
		case <-deadline:
			t.Fatal("Scheduler did not tick")
		}
	}
	sched.Stop()
	sched.Stop() // idempotent

	stopped := ticks.Load()
	if stopped < 3 {
		t.Errorf("Expected at least 3 ticks, got %d", stopped)
	}
	time.Sleep(20 * time.Millisecond)
	if ticks.Load() != stopped {
		t.Error("Scheduler ticked after Stop")
	}
	if sched.TickCount() != uint64(stopped) {
		t.Errorf("TickCount %d != system runs %d", sched.TickCount(), stopped)
	}
}

func TestAppRunStopsOnShutdownEvent(t *testing.T) {
	app := NewApp()
	app.AddSystemFunc("stopper", PriorityUpdate, func(w *World) {
		if MustGetResource[*TickResource](w.Resources).Tick == 3 {
			w.PushEvent(event.EventShutdown, nil)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := app.Run(ctx, time.Millisecond); err != nil {
		t.Fatalf("Run returned %v", err)
	}
	// Shutdown pushed on tick 3 is routed at the start of tick 4
	if got := app.World.TickNumber(); got != 4 {
		t.Errorf("Expected to stop after tick 4, stopped at %d", got)
	}
	if app.Status.Ints.Get("engine.ticks").Load() != 4 {
		t.Error("engine.ticks metric not updated")
	}
}

func TestAppRunContextCancel(t *testing.T) {
	app := NewApp()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := app.Run(ctx, time.Millisecond); err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if err := app.Run(context.Background(), 0); err == nil {
		t.Error("Expected error for zero interval")
	}
}

type countingPlugin struct{ builds *int }

func (p countingPlugin) Build(app *App) {
	*p.builds++
	AddMessage[string](app)
}

func TestAppPluginsAndMessageRotation(t *testing.T) {
	app := NewApp()
	builds := 0
	app.AddPlugins(countingPlugin{&builds}, countingPlugin{&builds})
	if builds != 1 {
		t.Errorf("Expected plugin built once, got %d", builds)
	}
	if !app.HasPlugin(countingPlugin{}) {
		t.Error("HasPlugin must report the added plugin")
	}

	m := AddMessage[string](app)
	if again := AddMessage[string](app); again != m {
		t.Error("AddMessage must return the existing channel")
	}

	var seen [][]string
	reader := m.Reader()
	app.AddSystemFunc("read", PriorityUpdate, func(*World) {
		seen = append(seen, reader.Read(m))
	})

	m.Send("before-first-tick")
	app.Tick()
	app.Tick()
	app.Tick()

	if len(seen) != 3 || len(seen[0]) != 1 || len(seen[1]) != 0 {
		t.Errorf("Unexpected reads %v", seen)
	}
	if m.Len() != 0 {
		t.Errorf("Expected message expired after two rotations, %d retained", m.Len())
	}

	tick := MustGetResource[*TickResource](app.World.Resources)
	if tick.Tick != 3 || tick.Now.IsZero() {
		t.Errorf("Unexpected tick resource %+v", tick)
	}
}
