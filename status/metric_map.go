package status

import (
	"cmp"
	"slices"
	"sync"
)

// MetricMap holds one kind of named metric, keyed "http.inflight", "http.last_status" and so on
// clientMetrics resolves its pointers once when the plugin is built; the dispatch,
// completion and task goroutines then write through them without touching the map
type MetricMap[T any] struct {
	mu    sync.RWMutex
	items map[string]*T
}

func NewMetricMap[T any]() *MetricMap[T] {
	return &MetricMap[T]{items: make(map[string]*T)}
}

// Get returns the pointer registered under key, registering a zero value on first use
// Two plugins asking for the same key share one counter
func (m *MetricMap[T]) Get(key string) *T {
	if ptr, ok := m.Lookup(key); ok {
		return ptr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	ptr, ok := m.items[key]
	if !ok {
		ptr = new(T)
		m.items[key] = ptr
	}
	return ptr
}

// Lookup reads a metric the HUD or a test expects without registering it
func (m *MetricMap[T]) Lookup(key string) (*T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ptr, ok := m.items[key]
	return ptr, ok
}

type metricEntry[T any] struct {
	key string
	ptr *T
}

// Range visits metrics sorted by key, so HUD rows keep a stable order between frames
// fn runs outside the lock and may call Get
func (m *MetricMap[T]) Range(fn func(key string, ptr *T)) {
	m.mu.RLock()
	entries := make([]metricEntry[T], 0, len(m.items))
	for k, p := range m.items {
		entries = append(entries, metricEntry[T]{key: k, ptr: p})
	}
	m.mu.RUnlock()

	slices.SortFunc(entries, func(a, b metricEntry[T]) int { return cmp.Compare(a.key, b.key) })
	for _, e := range entries {
		fn(e.key, e.ptr)
	}
}

func (m *MetricMap[T]) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
