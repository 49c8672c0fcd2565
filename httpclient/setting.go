package httpclient

import (
	log "github.com/sirupsen/logrus"
)

// DefaultMaxConcurrent is the in-flight cap used when none is configured
const DefaultMaxConcurrent = 5

// Setting is the concurrency budget shared by every dispatch system
// Lives in the world as a resource; only touched on the tick goroutine
type Setting struct {
	// MaxConcurrent caps requests in flight; values below 1 admit nothing
	MaxConcurrent int

	current int
}

// NewSetting returns a budget with the given cap, DefaultMaxConcurrent if max < 1
func NewSetting(max int) *Setting {
	if max < 1 {
		max = DefaultMaxConcurrent
	}
	return &Setting{MaxConcurrent: max}
}

// IsAvailable reports whether another request may be admitted now
func (s *Setting) IsAvailable() bool {
	return s.current < s.MaxConcurrent
}

// InFlight returns the number of admitted requests not yet completed
func (s *Setting) InFlight() int {
	return s.current
}

func (s *Setting) acquire() {
	s.current++
}

func (s *Setting) release() {
	if s.current == 0 {
		log.Error("http budget released with nothing in flight")
		return
	}
	s.current--
}

// SettingChangePayload carries a new in-flight cap through the event queue
type SettingChangePayload struct {
	MaxConcurrent int
}
