package httpclient

import (
	"reflect"

	log "github.com/sirupsen/logrus"

	"github.com/lixenwraith/ecshttp/core"
	"github.com/lixenwraith/ecshttp/engine"
)

// TypedRequest is a request whose response body is decoded into T
type TypedRequest[T any] struct {
	HTTPRequest
}

// TypedResponse carries a decoded body
type TypedResponse[T any] struct {
	ID       string
	Entity   core.Entity
	Value    T
	Response *Response
}

// TypedResponseError reports a transport or decode failure for a TypedRequest
// Decode failures keep the raw response; transport failures have none
type TypedResponseError[T any] struct {
	ID       string
	Entity   core.Entity
	Err      string
	Response *Response
	Kind     ErrorKind
}

func (e TypedResponseError[T]) Error() string {
	return e.Kind.String() + ": " + e.Err
}

// Typed builds c into a request decoded as T
func Typed[T any](c *Client) (*TypedRequest[T], error) {
	req, err := c.Build()
	if err != nil {
		return nil, err
	}
	return &TypedRequest[T]{HTTPRequest: *req}, nil
}

// typedMarker records that T has been registered
type typedMarker[T any] struct{}

// RegisterRequestType adds the message channels and dispatch system for requests decoded as T
// Shares the budget and completion step with Plugin, which should be added first
func RegisterRequestType[T any](app *engine.App) *engine.App {
	w := app.World
	name := typeName[T]()

	if engine.HasResource[*typedMarker[T]](w.Resources) {
		log.WithField("type", name).Warn("Request type already registered")
		return app
	}
	engine.AddResource(w.Resources, &typedMarker[T]{})

	if !engine.HasResource[*Setting](w.Resources) {
		log.WithField("type", name).Error("Request type registered before the http client plugin")
	}

	requests := engine.AddMessage[TypedRequest[T]](app)
	engine.AddMessage[TypedResponse[T]](app)
	engine.AddMessage[TypedResponseError[T]](app)
	engine.GetObservers[TypedResponse[T]](w)
	engine.GetObservers[TypedResponseError[T]](w)

	app.AddSystem(&typedDispatchSystem[T]{
		name:     "http.dispatch." + name,
		messages: requests,
		reader:   requests.Reader(),
	})
	return app
}

type typedDispatchSystem[T any] struct {
	name     string
	messages *engine.Messages[TypedRequest[T]]
	reader   *engine.MessageReader[TypedRequest[T]]
	backlog  []pendingRequest
	warned   bool
}

func (s *typedDispatchSystem[T]) Name() string  { return s.name }
func (s *typedDispatchSystem[T]) Priority() int { return engine.PriorityPreUpdate }

func (s *typedDispatchSystem[T]) Update(w *engine.World) {
	// Read every tick so held requests do not expire
	for _, req := range s.reader.Read(s.messages) {
		s.backlog = append(s.backlog, pendingRequest{req: req.HTTPRequest})
	}

	setting, ok := engine.GetResource[*Setting](w.Resources)
	state, ok2 := engine.GetResource[*clientState](w.Resources)
	if !ok || !ok2 {
		if !s.warned {
			log.WithField("system", s.name).Error("http client plugin missing, typed requests held")
			s.warned = true
		}
		return
	}

	s.backlog = state.drainBacklog(w, setting, s.backlog, typedOutcome[T](state.metrics))
}

// typedOutcome decodes on the task goroutine and delivers typed envelopes
func typedOutcome[T any](m *clientMetrics) outcomeFunc {
	return func(id string, target core.Entity, owned bool, resp *Response, err error) *engine.CommandQueue {
		q := &engine.CommandQueue{}

		switch {
		case err != nil:
			ev := TypedResponseError[T]{ID: id, Entity: target, Err: err.Error(), Kind: ErrorTransport}
			q.Push(func(w *engine.World) {
				m.failure(ev.Err)
				engine.SendMessage(w, ev)
				engine.Trigger(w, target, ev)
			})

		default:
			var v T
			if derr := json.Unmarshal(resp.Bytes, &v); derr != nil {
				ev := TypedResponseError[T]{ID: id, Entity: target, Err: derr.Error(), Response: resp, Kind: ErrorDecode}
				q.Push(func(w *engine.World) {
					m.success(resp)
					m.lastError.Store(ev.Err)
					engine.SendMessage(w, ev)
					engine.Trigger(w, target, ev)
				})
			} else {
				ev := TypedResponse[T]{ID: id, Entity: target, Value: v, Response: resp}
				q.Push(func(w *engine.World) {
					m.success(resp)
					engine.SendMessage(w, ev)
					engine.Trigger(w, target, ev)
				})
			}
		}

		if owned {
			q.Push(func(w *engine.World) { w.DestroyEntity(target) })
		}
		return q
	}
}

func typeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}
