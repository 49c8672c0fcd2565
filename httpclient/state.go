package httpclient

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dchest/uniuri"
	log "github.com/sirupsen/logrus"

	"github.com/lixenwraith/ecshttp/core"
	"github.com/lixenwraith/ecshttp/engine"
	"github.com/lixenwraith/ecshttp/status"
)

// completionBuffer is the per-entity channel capacity
// Senders block past it until the completion system drains
const completionBuffer = 8

var errNoResponse = errors.New("transport returned no response")

// outcomeFunc turns a fetch result into the commands applied on the tick goroutine
// Runs on the task goroutine and must not touch the world
type outcomeFunc func(id string, target core.Entity, owned bool, resp *Response, err error) *engine.CommandQueue

// completionChannel fans in every finished request routed to one entity
type completionChannel struct {
	ch          chan *engine.CommandQueue
	outstanding int
}

// channelRegistry maps entities to their open completion channels
// Tick goroutine only
type channelRegistry struct {
	byEntity map[core.Entity]*completionChannel
	order    []core.Entity
}

func newChannelRegistry() *channelRegistry {
	return &channelRegistry{byEntity: make(map[core.Entity]*completionChannel)}
}

// acquire returns the entity's channel, creating it if needed, and counts one more sender
func (r *channelRegistry) acquire(e core.Entity) chan<- *engine.CommandQueue {
	cc, ok := r.byEntity[e]
	if !ok {
		cc = &completionChannel{ch: make(chan *engine.CommandQueue, completionBuffer)}
		r.byEntity[e] = cc
		r.order = append(r.order, e)
	}
	cc.outstanding++
	return cc.ch
}

// abandon undoes an acquire whose sender was never started
func (r *channelRegistry) abandon(e core.Entity) {
	if cc, ok := r.byEntity[e]; ok {
		cc.outstanding--
		if cc.outstanding <= 0 {
			r.forget(e)
		}
	}
}

func (r *channelRegistry) forget(e core.Entity) {
	cc, ok := r.byEntity[e]
	if !ok {
		return
	}
	close(cc.ch)
	delete(r.byEntity, e)
	for i, id := range r.order {
		if id == e {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Open returns the number of entities with requests outstanding
func (r *channelRegistry) Open() int {
	return len(r.order)
}

// clientMetrics caches status registry pointers
type clientMetrics struct {
	inflight      *atomic.Int64
	dispatched    *atomic.Int64
	backlog       *atomic.Int64
	completed     *atomic.Int64
	failed        *atomic.Int64
	lastStatus    *atomic.Int64
	lastLatencyUS *atomic.Int64
	lastError     *status.AtomicString
}

func newClientMetrics(reg *status.Registry) *clientMetrics {
	return &clientMetrics{
		inflight:      reg.Ints.Get("http.inflight"),
		dispatched:    reg.Ints.Get("http.dispatched"),
		backlog:       reg.Ints.Get("http.backlog"),
		completed:     reg.Ints.Get("http.completed"),
		failed:        reg.Ints.Get("http.failed"),
		lastStatus:    reg.Ints.Get("http.last_status"),
		lastLatencyUS: reg.Ints.Get("http.last_latency_us"),
		lastError:     reg.Strings.Get("http.last_error"),
	}
}

func (m *clientMetrics) success(resp *Response) {
	m.completed.Add(1)
	m.lastStatus.Store(int64(resp.Status))
	m.lastLatencyUS.Store(resp.Elapsed.Microseconds())
}

func (m *clientMetrics) failure(msg string) {
	m.failed.Add(1)
	m.lastError.Store(msg)
}

// clientState is the plugin's world resource shared by every dispatch system
type clientState struct {
	channels *channelRegistry
	tasks    *engine.TaskPool
	metrics  *clientMetrics

	// Requests handed over by Submit, unbounded; swapped out by dispatch each tick
	inboxMu sync.Mutex
	inbox   []HTTPRequest
}

// pendingRequest is one backlog entry
// Entries with a carrier stand for the HTTPRequest component on that entity,
// read when the entry is admitted
type pendingRequest struct {
	req     HTTPRequest
	carrier core.Entity
}

func (s *clientState) submit(req HTTPRequest) {
	s.inboxMu.Lock()
	s.inbox = append(s.inbox, req)
	s.inboxMu.Unlock()
}

func (s *clientState) takeSubmitted() []HTTPRequest {
	s.inboxMu.Lock()
	defer s.inboxMu.Unlock()
	out := s.inbox
	s.inbox = nil
	return out
}

func newClientState(tasks *engine.TaskPool, reg *status.Registry) *clientState {
	return &clientState{
		channels: newChannelRegistry(),
		tasks:    tasks,
		metrics:  newClientMetrics(reg),
	}
}

// launch admits req: resolves its owner, spawns the fetch and charges the budget
// Caller checks setting.IsAvailable first
func (s *clientState) launch(w *engine.World, setting *Setting, req HTTPRequest, outcome outcomeFunc) error {
	tr, ok := engine.GetResource[*TransportResource](w.Resources)
	if !ok || tr.Fetcher == nil {
		return fmt.Errorf("no transport installed")
	}
	fetcher := tr.Fetcher

	if req.ID == "" {
		req.ID = uniuri.New()
	}

	target, owned := req.Owner.Entity(), req.Owner.Kind() == OwnerOwned
	if owned {
		target = w.CreateEntity()
	}

	ch := s.channels.acquire(target)
	id, r := req.ID, req.Request

	task, err := engine.Spawn(s.tasks, func(ctx context.Context) struct{} {
		resp, ferr := fetch(ctx, fetcher, r)
		q := outcome(id, target, owned, resp, ferr)
		select {
		case ch <- q:
		case <-ctx.Done():
			log.WithFields(log.Fields{
				"request_id": id,
				"entity":     target,
			}).Debug("Task pool closed before completion was delivered")
		}
		return struct{}{}
	})
	if err != nil {
		s.channels.abandon(target)
		if owned {
			w.DestroyEntity(target)
		}
		return err
	}
	task.Detach()

	setting.acquire()
	s.metrics.dispatched.Add(1)
	s.metrics.inflight.Store(int64(setting.InFlight()))

	log.WithFields(log.Fields{
		"request_id": id,
		"entity":     target,
		"owner":      req.Owner.Kind(),
		"method":     r.Method,
		"url":        r.URL,
	}).Debug("Dispatched http request")
	return nil
}

// fetch calls the transport, turning panics and empty results into errors
func fetch(ctx context.Context, f Fetcher, req Request) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"panic": r,
				"url":   req.URL,
			}).Errorf("transport panicked\n%s", debug.Stack())
			resp, err = nil, fmt.Errorf("transport panic: %v", r)
		}
	}()

	start := time.Now()
	resp, err = f.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errNoResponse
	}
	if resp.Elapsed == 0 {
		resp.Elapsed = time.Since(start)
	}
	if resp.URL == "" {
		resp.URL = req.URL
	}
	return resp, nil
}

// drainBacklog launches queued requests in order while the budget allows
// Returns the requests still waiting
func (s *clientState) drainBacklog(w *engine.World, setting *Setting, backlog []pendingRequest, outcome outcomeFunc) []pendingRequest {
	n := 0
	for n < len(backlog) && setting.IsAvailable() {
		p := backlog[n]
		n++

		req := p.req
		if p.carrier.Valid() {
			var ok bool
			if req, ok = engine.GetStore[HTTPRequest](w).Take(p.carrier); !ok {
				// Detached or destroyed while waiting
				continue
			}
			req.Owner = Borrowed(p.carrier)
		}

		if err := s.launch(w, setting, req, outcome); err != nil {
			log.WithFields(log.Fields{
				"request_id": req.ID,
				"entity":     p.carrier,
				"url":        req.Request.URL,
			}).WithError(err).Error("Dropping http request")
		}
	}
	if n == 0 {
		return backlog
	}
	return append(backlog[:0], backlog[n:]...)
}
