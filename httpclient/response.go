package httpclient

import (
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/lixenwraith/ecshttp/core"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Response is a completed HTTP exchange; any status code counts as completed
type Response struct {
	URL        string
	Status     int
	StatusText string
	Headers    http.Header
	Bytes      []byte
	Elapsed    time.Duration
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status < 300
}

// Text returns the body as a string
func (r *Response) Text() string {
	return string(r.Bytes)
}

// JSON decodes the body into v
func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Bytes, v)
}

// HTTPResponse is the success envelope, delivered as a message, an observer
// trigger on Entity and, for borrowed owners, a component
type HTTPResponse struct {
	ID       string
	Entity   core.Entity
	Response *Response
}

// HTTPResponseError is the transport failure envelope
type HTTPResponseError struct {
	ID     string
	Entity core.Entity
	Err    string
}

func (e HTTPResponseError) Error() string {
	return e.Err
}
