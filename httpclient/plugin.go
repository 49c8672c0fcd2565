// Package httpclient issues HTTP requests from an engine.App without blocking the tick loop.
//
// Requests enter as HTTPRequest messages, HTTPRequest components or Submit calls.
// A dispatch system admits them within the Setting budget and fetches each on the
// app's task pool. Results come back over per-entity channels and a completion system
// applies them on the tick goroutine as messages, observer triggers and components.
package httpclient

import (
	"github.com/lixenwraith/ecshttp/config"
	"github.com/lixenwraith/ecshttp/engine"
)

// Plugin installs the HTTP client into an App
type Plugin struct {
	// MaxConcurrent caps requests in flight; DefaultMaxConcurrent when below 1
	// Ignored if a Setting resource already exists
	MaxConcurrent int

	// Transport performs the fetches; an HTTPTransport with default configuration when nil
	// Ignored if a TransportResource already exists
	Transport Fetcher
}

// NewPlugin builds a plugin from the [http] configuration block
func NewPlugin(conf config.HTTPConfig) *Plugin {
	return &Plugin{
		MaxConcurrent: conf.MaxConcurrent,
		Transport:     NewHTTPTransport(conf),
	}
}

// Build implements engine.Plugin
func (p *Plugin) Build(app *engine.App) {
	w := app.World

	if !engine.HasResource[*Setting](w.Resources) {
		engine.AddResource(w.Resources, NewSetting(p.MaxConcurrent))
	}
	if !engine.HasResource[*TransportResource](w.Resources) {
		fetcher := p.Transport
		if fetcher == nil {
			fetcher = NewHTTPTransport(config.Default().HTTP)
		}
		engine.AddResource(w.Resources, &TransportResource{Fetcher: fetcher})
	}

	requests := engine.AddMessage[HTTPRequest](app)
	engine.AddMessage[HTTPResponse](app)
	engine.AddMessage[HTTPResponseError](app)

	engine.GetStore[HTTPRequest](w)
	engine.GetStore[HTTPResponse](w)
	engine.GetStore[HTTPResponseError](w)
	engine.GetObservers[HTTPResponse](w)
	engine.GetObservers[HTTPResponseError](w)

	state := newClientState(app.Tasks, app.Status)
	engine.AddResource(w.Resources, state)

	app.RegisterEventHandler(&eventHandler{})
	app.AddSystem(newDispatchSystem(state, requests))
	app.AddSystem(&completionSystem{state: state})
}
