package status

import "sync/atomic"

// Registry is the central metrics facade
// Systems cache pointers during plugin build; update loops write directly to atomics
type Registry struct {
	Bools   *MetricMap[atomic.Bool]
	Ints    *MetricMap[atomic.Int64]
	Strings *MetricMap[AtomicString]
}

// NewRegistry creates an initialized Registry
func NewRegistry() *Registry {
	return &Registry{
		Bools:   NewMetricMap[atomic.Bool](),
		Ints:    NewMetricMap[atomic.Int64](),
		Strings: NewMetricMap[AtomicString](),
	}
}

// TotalCount returns total metrics across all types
func (r *Registry) TotalCount() int {
	return r.Bools.Count() + r.Ints.Count() + r.Strings.Count()
}

// Line is one rendered metric, used by overlays and log dumps
type Line struct {
	Key   string
	Value any
}

// Snapshot returns every metric in sorted key order per kind (ints, bools, strings)
func (r *Registry) Snapshot() []Line {
	lines := make([]Line, 0, r.TotalCount())
	r.Ints.Range(func(key string, ptr *atomic.Int64) {
		lines = append(lines, Line{Key: key, Value: ptr.Load()})
	})
	r.Bools.Range(func(key string, ptr *atomic.Bool) {
		lines = append(lines, Line{Key: key, Value: ptr.Load()})
	})
	r.Strings.Range(func(key string, ptr *AtomicString) {
		lines = append(lines, Line{Key: key, Value: ptr.Load()})
	})
	return lines
}
