package engine

import (
	"reflect"

	log "github.com/sirupsen/logrus"
)

// Messages is a double-buffered broadcast channel of T, stored as a world resource
//
// Lifetime:
//   - Send appends to the current buffer
//   - Update (once per tick, before systems) retires the previous buffer and starts a new one
//   - Every message is therefore readable during the tick it was sent and the following tick
//
// Each reader keeps its own cursor, so any number of systems observe every message once.
// Only the tick goroutine may touch a Messages value.
type Messages[T any] struct {
	older      []T
	current    []T
	olderStart uint64 // Sequence number of older[0]
	curStart   uint64 // Sequence number of current[0]
	next       uint64 // Sequence number of the next Send
}

// NewMessages creates an empty channel
func NewMessages[T any]() *Messages[T] {
	return &Messages[T]{}
}

// Send publishes a message and returns its sequence number
func (m *Messages[T]) Send(msg T) uint64 {
	id := m.next
	m.current = append(m.current, msg)
	m.next++
	return id
}

// SendBatch publishes several messages in order
func (m *Messages[T]) SendBatch(msgs ...T) {
	for _, msg := range msgs {
		m.Send(msg)
	}
}

// Update retires the older buffer, messages sent two ticks ago are dropped
func (m *Messages[T]) Update() {
	recycled := m.older[:0]
	m.older = m.current
	m.olderStart = m.curStart
	m.current = recycled
	m.curStart = m.next
}

// Len returns the number of retained messages
func (m *Messages[T]) Len() int {
	return len(m.older) + len(m.current)
}

// Drain removes and returns every retained message, oldest first
// Readers that have not caught up lose the drained messages
func (m *Messages[T]) Drain() []T {
	out := make([]T, 0, m.Len())
	out = append(out, m.older...)
	out = append(out, m.current...)
	m.older = m.older[:0]
	m.current = m.current[:0]
	m.olderStart = m.next
	m.curStart = m.next
	return out
}

// Reader returns a cursor positioned at the oldest retained message
func (m *Messages[T]) Reader() *MessageReader[T] {
	return &MessageReader[T]{last: m.olderStart}
}

// MessageReader tracks which messages a single consumer has already seen
type MessageReader[T any] struct {
	last   uint64 // Sequence number of the next unseen message
	missed uint64
}

// Read returns the messages this reader has not seen yet, oldest first
func (r *MessageReader[T]) Read(m *Messages[T]) []T {
	if r.last < m.olderStart {
		r.missed += m.olderStart - r.last
		r.last = m.olderStart
	}

	var out []T
	if r.last < m.curStart && len(m.older) > 0 {
		from := int(r.last - m.olderStart)
		out = append(out, m.older[from:]...)
		r.last = m.curStart
	}
	if r.last < m.curStart {
		r.last = m.curStart
	}
	if r.last < m.next {
		from := int(r.last - m.curStart)
		out = append(out, m.current[from:]...)
	}
	r.last = m.next
	return out
}

// Missed returns how many messages expired before this reader saw them
func (r *MessageReader[T]) Missed() uint64 {
	return r.missed
}

// SendMessage publishes msg on the world's Messages[T] resource
// A missing resource is logged and reported as false, never fatal
func SendMessage[T any](w *World, msg T) bool {
	m, ok := GetResource[*Messages[T]](w.Resources)
	if !ok {
		log.WithField("type", reflect.TypeOf((*T)(nil)).Elem().String()).
			Error("messages resource not found, message dropped")
		return false
	}
	m.Send(msg)
	return true
}
