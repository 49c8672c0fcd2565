package engine

// Schedule priorities, lower values run first within a tick
const (
	PriorityFirst      = 0
	PriorityPreUpdate  = 100
	PriorityUpdate     = 200
	PriorityPostUpdate = 300
	PriorityLast       = 400
)

// System is implemented by everything the world runs once per tick
type System interface {
	Update(w *World)
	Priority() int // Lower values run first
	Name() string
}

// SystemFunc adapts a plain function to System
type SystemFunc struct {
	name     string
	priority int
	fn       func(w *World)
}

// NewSystemFunc wraps fn as a named system at the given priority
func NewSystemFunc(name string, priority int, fn func(w *World)) *SystemFunc {
	return &SystemFunc{name: name, priority: priority, fn: fn}
}

// Update implements System
func (s *SystemFunc) Update(w *World) { s.fn(w) }

// Priority implements System
func (s *SystemFunc) Priority() int { return s.priority }

// Name implements System
func (s *SystemFunc) Name() string { return s.name }
