package httpclient

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/ecshttp/core"
)

func TestBuildRejectsBlankURL(t *testing.T) {
	for _, url := range []string{"", " ", "\t", " \n  "} {
		var err error
		require.NotPanics(t, func() {
			_, err = New().Get(url).Build()
		})
		assert.ErrorIs(t, err, ErrMissingURL, "url %q", url)

		var berr *BuildError
		require.True(t, errors.As(err, &berr))
		assert.Equal(t, http.MethodGet, berr.Method)
	}
}

func TestBuildRejectsMissingMethod(t *testing.T) {
	_, err := New().Header("Accept", "application/json").Build()
	assert.ErrorIs(t, err, ErrMissingMethod)
}

func TestBuildRejectsClearedHeaders(t *testing.T) {
	_, err := New().Get("http://example.test").ClearHeaders().Build()
	assert.ErrorIs(t, err, ErrMissingHeaders)
}

func TestBuildVerbsAndHeaders(t *testing.T) {
	verbs := map[string]func(*Client, string) *Client{
		http.MethodGet:     (*Client).Get,
		http.MethodPost:    (*Client).Post,
		http.MethodPut:     (*Client).Put,
		http.MethodPatch:   (*Client).Patch,
		http.MethodDelete:  (*Client).Delete,
		http.MethodHead:    (*Client).Head,
		http.MethodOptions: (*Client).Options,
	}
	for method, verb := range verbs {
		req, err := verb(New(), "http://example.test/x").Build()
		require.NoError(t, err)
		assert.Equal(t, method, req.Request.Method)
	}

	req, err := New().
		Post("http://example.test/x").
		Headers([2]string{"Accept", "application/json"}, [2]string{"X-Trace", "1"}).
		Body([]byte("hello")).
		Build()
	require.NoError(t, err)

	assert.Equal(t, "application/json", req.Request.Headers.Get("Accept"))
	assert.Equal(t, "1", req.Request.Headers.Get("X-Trace"))
	assert.Equal(t, []byte("hello"), req.Request.Body)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, req.ID, req.Request.Headers.Get(RequestIDHeader))
	assert.Equal(t, OwnerOwned, req.Owner.Kind())
}

func TestBuildIDsAreUnique(t *testing.T) {
	c := New().Get("http://example.test")
	a, err := c.Build()
	require.NoError(t, err)
	b, err := c.Build()
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestNewWithEntityBorrows(t *testing.T) {
	req, err := NewWithEntity(core.Entity(42)).Get("http://example.test").Build()
	require.NoError(t, err)
	assert.Equal(t, OwnerBorrowed, req.Owner.Kind())
	assert.Equal(t, core.Entity(42), req.Owner.Entity())
}

func TestTryJSON(t *testing.T) {
	c, err := New().Post("http://example.test").TryJSON(map[string]int{"a": 1})
	require.NoError(t, err)
	req, err := c.Build()
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(req.Request.Body))
	assert.Equal(t, "application/json", req.Request.Headers.Get("Content-Type"))

	_, err = New().Post("http://example.test").TryJSON(make(chan int))
	require.Error(t, err)

	var serr *SerializationError
	require.True(t, errors.As(err, &serr))
	assert.NotEmpty(t, serr.Message)
	assert.Equal(t, []byte("{}"), serr.Fallback)
}

func TestTryJSONLargeBodyWarns(t *testing.T) {
	hook := logtest.NewGlobal()
	defer log.StandardLogger().ReplaceHooks(make(log.LevelHooks))

	c, err := New().Post("http://example.test/upload").TryJSON(strings.Repeat("a", LargeBodyWarnSize))
	require.NoError(t, err)

	var warned *log.Entry
	for _, e := range hook.AllEntries() {
		if e.Message == "Large JSON request body" {
			warned = e
		}
	}
	require.NotNil(t, warned, "large body warning logged")
	assert.Equal(t, log.WarnLevel, warned.Level)
	assert.Equal(t, "http://example.test/upload", warned.Data["url"])
	assert.Greater(t, warned.Data["bytes"], LargeBodyWarnSize)

	// The body is still attached
	req, err := c.Build()
	require.NoError(t, err)
	assert.Greater(t, len(req.Request.Body), LargeBodyWarnSize)
	assert.Equal(t, "application/json", req.Request.Headers.Get("Content-Type"))

	hook.Reset()
	_, err = New().Post("http://example.test").TryJSON("small")
	require.NoError(t, err)
	assert.Empty(t, hook.AllEntries())
}

func TestJSONOrFallbacks(t *testing.T) {
	tests := []struct {
		name string
		fb   Fallback
		want string
	}{
		{"object", FallbackEmptyObject, "{}"},
		{"array", FallbackEmptyArray, "[]"},
		{"null", FallbackNull, "null"},
		{"custom", FallbackBytes([]byte(`{"error":true}`)), `{"error":true}`},
		{"zero", Fallback{}, "{}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c *Client
			require.NotPanics(t, func() {
				c = New().Post("http://example.test").JSONOr(func() {}, tt.fb)
			})
			req, err := c.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(req.Request.Body))
		})
	}
}

func TestTypedBuild(t *testing.T) {
	_, err := Typed[ipInfo](New().Get(" "))
	assert.ErrorIs(t, err, ErrMissingURL)

	tr, err := Typed[ipInfo](New().Get("http://example.test"))
	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, tr.Request.Method)
}
