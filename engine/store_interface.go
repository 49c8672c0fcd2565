package engine

import (
	"github.com/lixenwraith/ecshttp/core"
)

// AnyStore provides type-erased operations for lifecycle management
// World manages every registered store uniformly (entity destruction, clearing)
// without knowing the concrete component type
type AnyStore interface {
	// Remove deletes the entry of an entity
	Remove(e core.Entity)

	// Has checks if an entity has an entry
	Has(e core.Entity) bool

	// Count returns the number of entities with an entry
	Count() int

	// Clear removes all entries
	Clear()

	// All returns every entity that has an entry
	All() []core.Entity
}
