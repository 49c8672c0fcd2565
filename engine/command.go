package engine

// Command is a deferred mutation of the world
// Built anywhere, applied only on the tick goroutine
type Command func(w *World)

// CommandQueue is an ordered batch of deferred mutations
// Background tasks fill a queue and hand it to the tick loop over a channel
type CommandQueue struct {
	cmds []Command
}

// Push appends a command
func (q *CommandQueue) Push(cmd Command) {
	q.cmds = append(q.cmds, cmd)
}

// Len returns the number of queued commands
func (q *CommandQueue) Len() int {
	return len(q.cmds)
}

// Apply runs every command in push order against w and empties the queue
func (q *CommandQueue) Apply(w *World) {
	cmds := q.cmds
	q.cmds = nil
	for _, cmd := range cmds {
		cmd(w)
	}
}
