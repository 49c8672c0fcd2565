package engine

import (
	"context"
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/lixenwraith/ecshttp/event"
	"github.com/lixenwraith/ecshttp/status"
)

// Plugin bundles resources, messages and systems into an App
type Plugin interface {
	Build(app *App)
}

// PluginFunc adapts a function to Plugin
type PluginFunc func(app *App)

// Build implements Plugin
func (f PluginFunc) Build(app *App) { f(app) }

// App owns a World, its background task pool and the per-tick pipeline
//
// Tick pipeline (all on the tick goroutine, under World.RunSafe):
//  1. TickResource update
//  2. Messages rotation
//  3. Inbound event routing (event.Queue -> handlers)
//  4. Systems by priority
type App struct {
	World  *World
	Tasks  *TaskPool
	Status *status.Registry

	router   *event.Router[*World]
	rotators []func()
	plugins  map[reflect.Type]bool

	tickRes       *TickResource
	lastTick      time.Time
	stopRequested atomic.Bool
	statTicks     *atomic.Int64
}

// NewApp creates an App with its core resources installed
func NewApp() *App {
	w := NewWorld()
	reg := status.NewRegistry()
	tickRes := &TickResource{}

	AddResource(w.Resources, reg)
	AddResource(w.Resources, tickRes)

	a := &App{
		World:     w,
		Tasks:     NewTaskPool(),
		Status:    reg,
		router:    event.NewRouter[*World](w.eventQueue),
		plugins:   make(map[reflect.Type]bool),
		tickRes:   tickRes,
		statTicks: reg.Ints.Get("engine.ticks"),
	}
	AddResource(w.Resources, a.Tasks)

	a.router.Register(event.HandlerFunc[*World]{
		Types: []event.EventType{event.EventShutdown},
		Fn: func(_ *World, _ event.Event) {
			a.RequestStop()
		},
	})
	return a
}

// AddPlugins builds each plugin once; adding the same plugin type twice is ignored
func (a *App) AddPlugins(plugins ...Plugin) *App {
	for _, p := range plugins {
		t := reflect.TypeOf(p)
		if a.plugins[t] {
			log.WithField("plugin", t.String()).Warn("plugin already added, skipping")
			continue
		}
		a.plugins[t] = true
		p.Build(a)
	}
	return a
}

// HasPlugin reports whether a plugin of the same dynamic type was added
func (a *App) HasPlugin(p Plugin) bool {
	return a.plugins[reflect.TypeOf(p)]
}

// AddSystem registers a system with the world
func (a *App) AddSystem(s System) *App {
	a.World.AddSystem(s)
	return a
}

// AddSystemFunc registers fn as a named system
func (a *App) AddSystemFunc(name string, priority int, fn func(w *World)) *App {
	a.World.AddSystem(NewSystemFunc(name, priority, fn))
	return a
}

// RegisterEventHandler adds a handler for inbound events, must be called before the first tick
func (a *App) RegisterEventHandler(h event.Handler[*World]) {
	a.router.Register(h)
}

// AddMessage registers a Messages[T] resource rotated every tick
// Returns the existing channel if T was already registered
func AddMessage[T any](a *App) *Messages[T] {
	if m, ok := GetResource[*Messages[T]](a.World.Resources); ok {
		return m
	}
	m := NewMessages[T]()
	AddResource(a.World.Resources, m)
	a.rotators = append(a.rotators, m.Update)
	return m
}

// Tick runs one iteration of the pipeline under the world update lock
func (a *App) Tick() {
	a.World.RunSafe(func() {
		a.tickLocked(time.Now())
	})
}

func (a *App) tickLocked(now time.Time) {
	var delta time.Duration
	if !a.lastTick.IsZero() {
		delta = now.Sub(a.lastTick)
	}
	a.lastTick = now

	tick := a.World.tickSource.Add(1)
	a.tickRes.Tick = tick
	a.tickRes.Now = now
	a.tickRes.Delta = delta

	for _, rotate := range a.rotators {
		rotate()
	}

	a.router.DispatchAll(a.World)
	a.World.UpdateLocked()

	a.statTicks.Store(tick)
}

// RequestStop makes Run return after the current tick, safe from any goroutine
func (a *App) RequestStop() {
	a.stopRequested.Store(true)
}

// StopRequested reports whether RequestStop was called or EventShutdown routed
func (a *App) StopRequested() bool {
	return a.stopRequested.Load()
}

// Run ticks the app on a fixed interval until ctx is done or a stop is requested
// Returns nil on a requested stop and ctx.Err() on cancellation
func (a *App) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("invalid tick interval %v", interval)
	}

	sched, _ := NewScheduler(a, interval)
	sched.Start()
	defer sched.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-sched.Done():
		return nil
	}
}

// Shutdown stops the background task pool, waiting up to timeout for running tasks
func (a *App) Shutdown(timeout time.Duration) error {
	return a.Tasks.Shutdown(timeout)
}
