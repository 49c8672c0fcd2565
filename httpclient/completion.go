package httpclient

import (
	"github.com/lixenwraith/ecshttp/core"
	"github.com/lixenwraith/ecshttp/engine"
)

// completionSystem applies finished command queues and returns their budget
type completionSystem struct {
	state *clientState
}

func (s *completionSystem) Name() string  { return "http.completion" }
func (s *completionSystem) Priority() int { return engine.PriorityPostUpdate }

func (s *completionSystem) Update(w *engine.World) {
	setting, ok := engine.GetResource[*Setting](w.Resources)
	if !ok {
		return
	}

	reg := s.state.channels
	var drained []core.Entity
	for _, e := range reg.order {
		cc := reg.byEntity[e]
	take:
		for cc.outstanding > 0 {
			select {
			case q := <-cc.ch:
				q.Apply(w)
				cc.outstanding--
				setting.release()
			default:
				break take
			}
		}
		if cc.outstanding == 0 {
			drained = append(drained, e)
		}
	}
	for _, e := range drained {
		reg.forget(e)
	}

	s.state.metrics.inflight.Store(int64(setting.InFlight()))
}
