package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/ecshttp/core"
)

// Scheduler drives App.Tick on a fixed interval with drift correction
type Scheduler struct {
	app *App

	tickInterval     time.Duration
	nextTickDeadline time.Time

	tickCount atomic.Uint64

	// Control channels
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool
	done     chan struct{}

	// Post-tick notification for renderers
	updateDone chan struct{}
}

// NewScheduler creates a scheduler for app
// Returns the scheduler and a receive channel signalled after each tick
func NewScheduler(app *App, tickInterval time.Duration) (*Scheduler, <-chan struct{}) {
	s := &Scheduler{
		app:          app,
		tickInterval: tickInterval,
		stopChan:     make(chan struct{}),
		done:         make(chan struct{}),
		updateDone:   make(chan struct{}, 1),
	}
	return s, s.updateDone
}

// Start begins the scheduler loop
func (s *Scheduler) Start() {
	if s.running.CompareAndSwap(false, true) {
		s.wg.Add(1)
		core.Go(s.loop)
	}
}

// Stop halts the scheduler loop and waits for the tick in progress
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
}

// Done is closed when the loop exits, either by Stop or by an app stop request
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

// TickCount returns the number of ticks run by this scheduler
func (s *Scheduler) TickCount() uint64 {
	return s.tickCount.Load()
}

func (s *Scheduler) loop() {
	defer s.wg.Done()
	defer close(s.done)
	defer s.running.Store(false)

	s.nextTickDeadline = time.Now().Add(s.tickInterval)

	timer := time.NewTimer(0)
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	defer timer.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		default:
		}

		now := time.Now()
		if !now.Before(s.nextTickDeadline) {
			s.app.Tick()
			s.tickCount.Add(1)

			select {
			case s.updateDone <- struct{}{}:
			default:
			}

			if s.app.StopRequested() {
				return
			}

			s.nextTickDeadline = s.nextTickDeadline.Add(s.tickInterval)

			// Fell too far behind, resync instead of bursting
			if now.Sub(s.nextTickDeadline) > s.tickInterval*2 {
				s.nextTickDeadline = now.Add(s.tickInterval)
			}
		}

		sleep := time.Until(s.nextTickDeadline)
		if sleep <= 0 {
			continue
		}

		timer.Reset(sleep)
		select {
		case <-timer.C:
		case <-s.stopChan:
			return
		}
	}
}
