package httpclient

import (
	"net/http"
	"strings"

	"github.com/dchest/uniuri"
	log "github.com/sirupsen/logrus"

	"github.com/lixenwraith/ecshttp/core"
)

// LargeBodyWarnSize is the encoded JSON size above which a warning is logged
const LargeBodyWarnSize = 50 << 20

// RequestIDHeader carries the request correlation ID to the server
const RequestIDHeader = "X-Request-Id"

// Client accumulates a request description; Build validates it
// Methods mutate and return the receiver for chaining
type Client struct {
	method  string
	url     string
	headers http.Header
	body    []byte
	owner   Owner
}

// New returns a builder whose outcome is delivered to a plugin-owned entity
func New() *Client {
	return &Client{
		headers: http.Header{"Accept": []string{"*/*"}},
		owner:   Owned(),
	}
}

// NewWithEntity returns a builder whose outcome is delivered to e
func NewWithEntity(e core.Entity) *Client {
	c := New()
	c.owner = Borrowed(e)
	return c
}

// Method sets an arbitrary verb and target
func (c *Client) Method(method, url string) *Client {
	c.method = method
	c.url = url
	return c
}

func (c *Client) Get(url string) *Client     { return c.Method(http.MethodGet, url) }
func (c *Client) Post(url string) *Client    { return c.Method(http.MethodPost, url) }
func (c *Client) Put(url string) *Client     { return c.Method(http.MethodPut, url) }
func (c *Client) Patch(url string) *Client   { return c.Method(http.MethodPatch, url) }
func (c *Client) Delete(url string) *Client  { return c.Method(http.MethodDelete, url) }
func (c *Client) Head(url string) *Client    { return c.Method(http.MethodHead, url) }
func (c *Client) Options(url string) *Client { return c.Method(http.MethodOptions, url) }

// Header sets one header, replacing previous values for key
func (c *Client) Header(key, value string) *Client {
	if c.headers == nil {
		c.headers = make(http.Header)
	}
	c.headers.Set(key, value)
	return c
}

// Headers merges key/value pairs into the header set
func (c *Client) Headers(pairs ...[2]string) *Client {
	for _, p := range pairs {
		c.Header(p[0], p[1])
	}
	return c
}

// ClearHeaders removes every header including the default Accept
func (c *Client) ClearHeaders() *Client {
	c.headers = nil
	return c
}

// Body sets a raw body
func (c *Client) Body(b []byte) *Client {
	c.body = b
	return c
}

// TryJSON encodes v as the body and sets Content-Type
// On failure the builder is left unchanged and a *SerializationError is returned
func (c *Client) TryJSON(v any) (*Client, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return c, &SerializationError{
			Message:  err.Error(),
			Fallback: FallbackEmptyObject.Bytes(),
		}
	}
	c.setJSON(b)
	return c, nil
}

// JSONOr encodes v as the body, substituting fb when encoding fails
// Failures are logged, never returned
func (c *Client) JSONOr(v any, fb Fallback) *Client {
	b, err := json.Marshal(v)
	if err != nil {
		log.WithFields(log.Fields{
			"url":      c.url,
			"fallback": string(fb.Bytes()),
		}).WithError(err).Warn("JSON body serialization failed, using fallback")
		b = fb.Bytes()
	}
	c.setJSON(b)
	return c
}

func (c *Client) setJSON(b []byte) {
	if len(b) > LargeBodyWarnSize {
		log.WithFields(log.Fields{
			"url":   c.url,
			"bytes": len(b),
		}).Warn("Large JSON request body")
	}
	c.body = b
	c.Header("Content-Type", "application/json")
}

// Build validates the builder and returns a request envelope with a fresh ID
func (c *Client) Build() (*HTTPRequest, error) {
	var err error
	switch {
	case c.method == "":
		err = ErrMissingMethod
	case strings.TrimSpace(c.url) == "":
		err = ErrMissingURL
	case len(c.headers) == 0:
		err = ErrMissingHeaders
	}
	if err != nil {
		return nil, &BuildError{Err: err, Method: c.method, URL: c.url}
	}

	id := uniuri.New()
	headers := c.headers.Clone()
	headers.Set(RequestIDHeader, id)

	var body []byte
	if c.body != nil {
		body = append([]byte(nil), c.body...)
	}

	return &HTTPRequest{
		ID: id,
		Request: Request{
			Method:  c.method,
			URL:     c.url,
			Headers: headers,
			Body:    body,
		},
		Owner: c.owner,
	}, nil
}
