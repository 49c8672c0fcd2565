package httpclient

import (
	"errors"
	"fmt"
)

// Build failures, wrapped in *BuildError
var (
	ErrMissingMethod  = errors.New("http request has no method")
	ErrMissingURL     = errors.New("http request has no url")
	ErrMissingHeaders = errors.New("http request has no headers")
)

// BuildError reports why Build refused a builder, with a summary of its state
type BuildError struct {
	Err    error
	Method string
	URL    string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s %q: %v", e.Method, e.URL, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// SerializationError is returned by TryJSON when a value cannot be encoded
// Fallback holds the body the fallback policy would have substituted
type SerializationError struct {
	Message  string
	Fallback []byte
}

func (e *SerializationError) Error() string {
	return "serialize json body: " + e.Message
}

// ErrorKind distinguishes typed failure envelopes
type ErrorKind uint8

const (
	// ErrorTransport: no response was received
	ErrorTransport ErrorKind = iota
	// ErrorDecode: a response arrived but did not decode into the declared type
	ErrorDecode
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorTransport:
		return "transport"
	case ErrorDecode:
		return "decode"
	default:
		return "unknown"
	}
}
