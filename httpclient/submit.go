package httpclient

import (
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/lixenwraith/ecshttp/engine"
	"github.com/lixenwraith/ecshttp/event"
)

// ErrPluginMissing is returned by Submit before the plugin is added to the app
var ErrPluginMissing = errors.New("http client plugin not installed")

// Submit queues req for dispatch from any goroutine
// The hand-off is unbounded; requests join the backlog at the next dispatch
func Submit(w *engine.World, req *HTTPRequest) error {
	if req == nil {
		return errors.New("nil http request")
	}
	state, ok := engine.GetResource[*clientState](w.Resources)
	if !ok {
		return ErrPluginMissing
	}
	state.submit(*req)
	return nil
}

// SetMaxConcurrent changes the budget cap from any goroutine, applied next tick
func SetMaxConcurrent(w *engine.World, max int) {
	w.PushEvent(event.EventSettingChange, &SettingChangePayload{MaxConcurrent: max})
}

// eventHandler routes inbound events onto the tick goroutine
type eventHandler struct{}

func (h *eventHandler) EventTypes() []event.EventType {
	return []event.EventType{event.EventRequestSubmit, event.EventSettingChange}
}

func (h *eventHandler) HandleEvent(w *engine.World, ev event.Event) {
	switch ev.Type {
	case event.EventRequestSubmit:
		req, ok := ev.Payload.(*HTTPRequest)
		if !ok || req == nil {
			log.WithField("payload", ev.Payload).Error("Invalid request submit payload")
			return
		}
		if state, ok := engine.GetResource[*clientState](w.Resources); ok {
			state.submit(*req)
			return
		}
		engine.SendMessage(w, *req)

	case event.EventSettingChange:
		p, ok := ev.Payload.(*SettingChangePayload)
		if !ok || p == nil {
			log.WithField("payload", ev.Payload).Error("Invalid setting change payload")
			return
		}
		if p.MaxConcurrent < 1 {
			log.WithField("max_concurrent", p.MaxConcurrent).Warn("Ignoring non-positive concurrency cap")
			return
		}
		setting, ok := engine.GetResource[*Setting](w.Resources)
		if !ok {
			log.Error("Setting change before the http client plugin was added")
			return
		}
		log.WithFields(log.Fields{
			"old": setting.MaxConcurrent,
			"new": p.MaxConcurrent,
		}).Info("Concurrency cap changed")
		setting.MaxConcurrent = p.MaxConcurrent
	}
}
