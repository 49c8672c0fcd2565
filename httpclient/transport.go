package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/lixenwraith/ecshttp/config"
)

// Fetcher performs one HTTP exchange
// Called on task pool goroutines, never on the tick goroutine
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}

// FetchFunc adapts a function to Fetcher
type FetchFunc func(ctx context.Context, req Request) (*Response, error)

// Fetch implements Fetcher
func (f FetchFunc) Fetch(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

// TransportResource holds the world's Fetcher
type TransportResource struct {
	Fetcher Fetcher
}

// HTTPTransport is the default Fetcher backed by net/http
type HTTPTransport struct {
	Client    *http.Client
	UserAgent string
	Limiter   *rate.Limiter // Optional; waited on before each request
}

// NewHTTPTransport builds a transport from the [http] configuration block
func NewHTTPTransport(conf config.HTTPConfig) *HTTPTransport {
	t := &HTTPTransport{
		Client:    &http.Client{Timeout: conf.Timeout},
		UserAgent: conf.UserAgent,
	}
	if conf.RateLimit > 0 {
		burst := conf.RateBurst
		if burst < 1 {
			burst = 1
		}
		t.Limiter = rate.NewLimiter(rate.Limit(conf.RateLimit), burst)
	}
	return t
}

// Fetch sends req and reads the whole body
// Any status code is a response; only failing to get one is an error
func (t *HTTPTransport) Fetch(ctx context.Context, req Request) (*Response, error) {
	if t.Limiter != nil {
		if err := t.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if t.UserAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", t.UserAgent)
	}

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			return nil, uerr.Err
		}
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &Response{
		URL:        resp.Request.URL.String(),
		Status:     resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Headers:    resp.Header,
		Bytes:      b,
		Elapsed:    time.Since(start),
	}, nil
}
