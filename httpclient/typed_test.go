package httpclient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/ecshttp/config"
	"github.com/lixenwraith/ecshttp/core"
	"github.com/lixenwraith/ecshttp/engine"
)

type typedCollector[T any] struct {
	okMsgs  *engine.Messages[TypedResponse[T]]
	errMsgs *engine.Messages[TypedResponseError[T]]
	ok      *engine.MessageReader[TypedResponse[T]]
	err     *engine.MessageReader[TypedResponseError[T]]

	successes []TypedResponse[T]
	failures  []TypedResponseError[T]
}

func newTypedCollector[T any](w *engine.World) *typedCollector[T] {
	p := &typedCollector[T]{
		okMsgs:  engine.MustGetResource[*engine.Messages[TypedResponse[T]]](w.Resources),
		errMsgs: engine.MustGetResource[*engine.Messages[TypedResponseError[T]]](w.Resources),
	}
	p.ok, p.err = p.okMsgs.Reader(), p.errMsgs.Reader()
	return p
}

func (p *typedCollector[T]) collect() int {
	p.successes = append(p.successes, p.ok.Read(p.okMsgs)...)
	p.failures = append(p.failures, p.err.Read(p.errMsgs)...)
	return len(p.successes) + len(p.failures)
}

func sendTyped[T any](t *testing.T, w *engine.World, c *Client) *TypedRequest[T] {
	t.Helper()
	tr, err := Typed[T](c)
	require.NoError(t, err)
	require.True(t, engine.SendMessage(w, *tr))
	return tr
}

func TestTypedIPLookup(t *testing.T) {
	srv := newTestServer(t)
	app := newTestApp(t, 5, NewHTTPTransport(config.Default().HTTP))
	RegisterRequestType[ipInfo](app)
	w := app.World

	got := newTypedCollector[ipInfo](w)
	tr := sendTyped[ipInfo](t, w, New().Get(srv.URL+"/ip"))

	tickUntil(t, app, func() bool { return got.collect() > 0 })

	require.Len(t, got.successes, 1)
	assert.Empty(t, got.failures)
	assert.Equal(t, "1.2.3.4", got.successes[0].Value.IP)
	assert.Equal(t, tr.ID, got.successes[0].ID)
}

func TestTypedDecodeFailureKeepsRawBytes(t *testing.T) {
	srv := newTestServer(t)
	app := newTestApp(t, 5, NewHTTPTransport(config.Default().HTTP))
	RegisterRequestType[ipInfo](app)
	w := app.World

	got := newTypedCollector[ipInfo](w)
	sendTyped[ipInfo](t, w, New().Get(srv.URL+"/garbage"))

	tickUntil(t, app, func() bool { return got.collect() > 0 })

	require.Len(t, got.failures, 1)
	assert.Empty(t, got.successes)

	fail := got.failures[0]
	assert.Equal(t, ErrorDecode, fail.Kind)
	assert.NotEmpty(t, fail.Err)
	require.NotNil(t, fail.Response)
	assert.Equal(t, "<html>not json</html>", string(fail.Response.Bytes))
}

func TestTypedTransportFailure(t *testing.T) {
	app := newTestApp(t, 5, FetchFunc(func(ctx context.Context, req Request) (*Response, error) {
		return nil, errors.New("connection refused")
	}))
	RegisterRequestType[ipInfo](app)
	w := app.World

	e := w.CreateEntity()
	var observed []TypedResponseError[ipInfo]
	engine.Observe[TypedResponseError[ipInfo]](w, e, func(_ *engine.World, _ core.Entity, ev TypedResponseError[ipInfo]) {
		observed = append(observed, ev)
	})

	got := newTypedCollector[ipInfo](w)
	sendTyped[ipInfo](t, w, NewWithEntity(e).Get("http://example.test/ip"))

	tickUntil(t, app, func() bool { return got.collect() > 0 && len(observed) > 0 })

	require.Len(t, got.failures, 1)
	assert.Empty(t, got.successes)
	assert.Equal(t, "connection refused", got.failures[0].Err)
	assert.Equal(t, ErrorTransport, got.failures[0].Kind)
	assert.Nil(t, got.failures[0].Response)
	assert.Len(t, observed, 1)
	assert.True(t, w.Alive(e))
}

func TestTypedSharesBudget(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	app := newTestApp(t, 1, FetchFunc(func(ctx context.Context, req Request) (*Response, error) {
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil, errors.New("done")
	}))
	RegisterRequestType[ipInfo](app)
	w := app.World

	sendTyped[ipInfo](t, w, New().Get("http://example.test/typed"))
	engine.SendMessage(w, mustBuild(t, New().Get("http://example.test/plain")))
	app.Tick()

	// Typed dispatch runs first and takes the only slot
	setting := engine.MustGetResource[*Setting](w.Resources)
	assert.Equal(t, 1, setting.InFlight())
	assert.EqualValues(t, 1, app.Status.Ints.Get("http.backlog").Load())
}

func TestRegisterRequestTypeTwice(t *testing.T) {
	app := newTestApp(t, 5, okFetcher("{}"))
	RegisterRequestType[ipInfo](app)
	n := len(app.World.Systems())

	require.NotPanics(t, func() { RegisterRequestType[ipInfo](app) })
	assert.Equal(t, n, len(app.World.Systems()))
}

func TestRegisterBeforePluginHoldsRequests(t *testing.T) {
	app := engine.NewApp()
	t.Cleanup(func() { _ = app.Shutdown(time.Second) })
	RegisterRequestType[ipInfo](app)
	w := app.World

	got := newTypedCollector[ipInfo](w)
	sendTyped[ipInfo](t, w, New().Get("http://example.test/ip"))

	require.NotPanics(t, func() {
		for i := 0; i < 4; i++ {
			app.Tick()
		}
	})
	assert.Zero(t, got.collect())

	app.AddPlugins(&Plugin{Transport: okFetcher(`{"ip":"5.6.7.8"}`)})
	tickUntil(t, app, func() bool { return got.collect() > 0 })
	require.Len(t, got.successes, 1)
	assert.Equal(t, "5.6.7.8", got.successes[0].Value.IP)
}
