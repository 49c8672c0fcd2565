package httpclient

import (
	log "github.com/sirupsen/logrus"

	"github.com/lixenwraith/ecshttp/core"
	"github.com/lixenwraith/ecshttp/engine"
)

// dispatchSystem admits HTTPRequest messages, submitted requests and components within the budget
// All three sources share one FIFO backlog in the order they were first seen
type dispatchSystem struct {
	state    *clientState
	messages *engine.Messages[HTTPRequest]
	reader   *engine.MessageReader[HTTPRequest]
	backlog  []pendingRequest
	missed   uint64
}

func newDispatchSystem(state *clientState, messages *engine.Messages[HTTPRequest]) *dispatchSystem {
	return &dispatchSystem{
		state:    state,
		messages: messages,
		reader:   messages.Reader(),
	}
}

func (s *dispatchSystem) Name() string  { return "http.dispatch" }
func (s *dispatchSystem) Priority() int { return engine.PriorityUpdate }

func (s *dispatchSystem) Update(w *engine.World) {
	setting, ok := engine.GetResource[*Setting](w.Resources)
	if !ok {
		return
	}

	for _, req := range s.reader.Read(s.messages) {
		s.backlog = append(s.backlog, pendingRequest{req: req})
	}
	if missed := s.reader.Missed(); missed != s.missed {
		log.WithField("count", missed-s.missed).Warn("http requests expired before dispatch")
		s.missed = missed
	}

	for _, req := range s.state.takeSubmitted() {
		s.backlog = append(s.backlog, pendingRequest{req: req})
	}

	// Carriers seen for the first time join the back of the queue
	queued := make(map[core.Entity]struct{})
	for _, p := range s.backlog {
		if p.carrier.Valid() {
			queued[p.carrier] = struct{}{}
		}
	}
	for _, e := range w.Query().With(engine.GetStore[HTTPRequest](w)).Execute() {
		if _, seen := queued[e]; !seen {
			s.backlog = append(s.backlog, pendingRequest{carrier: e})
		}
	}

	s.backlog = s.state.drainBacklog(w, setting, s.backlog, responseOutcome(s.state.metrics))
	s.state.metrics.backlog.Store(int64(len(s.backlog)))
}

// Backlog returns the number of requests waiting for budget
func (s *dispatchSystem) Backlog() int {
	return len(s.backlog)
}

// responseOutcome delivers untyped envelopes
func responseOutcome(m *clientMetrics) outcomeFunc {
	return func(id string, target core.Entity, owned bool, resp *Response, err error) *engine.CommandQueue {
		q := &engine.CommandQueue{}
		if err != nil {
			ev := HTTPResponseError{ID: id, Entity: target, Err: err.Error()}
			q.Push(func(w *engine.World) {
				m.failure(ev.Err)
				engine.SendMessage(w, ev)
				engine.Trigger(w, target, ev)
				if !owned && w.Alive(target) {
					engine.GetStore[HTTPResponse](w).Remove(target)
					engine.GetStore[HTTPResponseError](w).Set(target, ev)
				}
			})
		} else {
			ev := HTTPResponse{ID: id, Entity: target, Response: resp}
			q.Push(func(w *engine.World) {
				m.success(resp)
				engine.SendMessage(w, ev)
				engine.Trigger(w, target, ev)
				if !owned && w.Alive(target) {
					engine.GetStore[HTTPResponseError](w).Remove(target)
					engine.GetStore[HTTPResponse](w).Set(target, ev)
				}
			})
		}
		if owned {
			q.Push(func(w *engine.World) { w.DestroyEntity(target) })
		}
		return q
	}
}
