package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/ecshttp/core"
)

// ErrPoolClosed is returned when spawning on a pool that has been shut down
var ErrPoolClosed = errors.New("task pool closed")

// TaskPool runs background work off the tick goroutine
// Every task runs on its own goroutine launched through core.Go; the pool only tracks
// lifetime so shutdown can wait for stragglers
type TaskPool struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex // Guards closed against concurrent Spawn/Shutdown
	closed  bool
	wg      sync.WaitGroup
	running atomic.Int64
	spawned atomic.Uint64
}

// NewTaskPool creates a pool whose task contexts are cancelled on Shutdown
func NewTaskPool() *TaskPool {
	ctx, cancel := context.WithCancel(context.Background())
	return &TaskPool{ctx: ctx, cancel: cancel}
}

// Task is a handle to a background computation yielding T
// Poll is meant for the tick goroutine; Detach hands ownership to the pool
type Task[T any] struct {
	done     chan T
	result   T
	finished bool
	detached atomic.Bool
}

// Spawn starts fn on a new goroutine and returns its handle
func Spawn[T any](p *TaskPool, fn func(ctx context.Context) T) (*Task[T], error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, ErrPoolClosed
	}

	t := &Task[T]{done: make(chan T, 1)}
	p.wg.Add(1)
	p.running.Add(1)
	p.spawned.Add(1)

	core.Go(func() {
		defer p.wg.Done()
		defer p.running.Add(-1)
		t.done <- fn(p.ctx)
	})
	return t, nil
}

// Poll checks for completion without blocking
// Returns the result and true once the task has finished; later calls return the same result
func (t *Task[T]) Poll() (T, bool) {
	if t.finished {
		return t.result, true
	}
	select {
	case v := <-t.done:
		t.result = v
		t.finished = true
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Wait blocks until the task finishes or ctx is done
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	if t.finished {
		return t.result, nil
	}
	select {
	case v := <-t.done:
		t.result = v
		t.finished = true
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Detach releases the handle; the task keeps running and its result is discarded
// Tasks that report through their own channel are detached right after spawning
func (t *Task[T]) Detach() {
	t.detached.Store(true)
}

// Detached reports whether Detach was called
func (t *Task[T]) Detached() bool {
	return t.detached.Load()
}

// Running returns the number of tasks still executing
func (p *TaskPool) Running() int {
	return int(p.running.Load())
}

// Spawned returns the total number of tasks ever started
func (p *TaskPool) Spawned() uint64 {
	return p.spawned.Load()
}

// Shutdown refuses new tasks, cancels the shared task context and waits for running tasks
// Returns an error if tasks are still running after timeout
func (p *TaskPool) Shutdown(timeout time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("task pool shutdown: %d tasks still running after %v", p.Running(), timeout)
	}
}

// --- service.Service ---

// Name implements service.Service
func (p *TaskPool) Name() string { return "tasks" }

// Dependencies implements service.Service
func (p *TaskPool) Dependencies() []string { return nil }

// Init implements service.Service
func (p *TaskPool) Init(args ...any) error { return nil }

// Start implements service.Service
func (p *TaskPool) Start() error { return nil }

// Stop implements service.Service, waiting up to five seconds for running tasks
func (p *TaskPool) Stop() error {
	return p.Shutdown(5 * time.Second)
}
