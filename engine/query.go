package engine

import (
	"sort"

	"github.com/lixenwraith/ecshttp/core"
)

// QueryBuilder provides a fluent interface for querying entities by store intersection
// The query starts with the smallest included store and filters through the others
type QueryBuilder struct {
	include  []AnyStore
	exclude  []AnyStore
	executed bool
	results  []core.Entity
}

// Query creates a new QueryBuilder
//
// Example:
//
//	pending := w.Query().
//	    With(requests).
//	    Without(inFlight).
//	    Execute()
func (w *World) Query() *QueryBuilder {
	return &QueryBuilder{
		include: make([]AnyStore, 0, 4),
	}
}

// With restricts results to entities present in store
// Panics if called after Execute()
func (qb *QueryBuilder) With(store AnyStore) *QueryBuilder {
	if qb.executed {
		panic("query already executed - cannot modify after Execute()")
	}
	qb.include = append(qb.include, store)
	return qb
}

// Without removes entities present in store from the results
// Panics if called after Execute()
func (qb *QueryBuilder) Without(store AnyStore) *QueryBuilder {
	if qb.executed {
		panic("query already executed - cannot modify after Execute()")
	}
	qb.exclude = append(qb.exclude, store)
	return qb
}

// Execute runs the query; repeated calls return the cached result
// Result order follows the smallest included store's iteration order
func (qb *QueryBuilder) Execute() []core.Entity {
	if qb.executed {
		return qb.results
	}
	qb.executed = true

	if len(qb.include) == 0 {
		qb.results = make([]core.Entity, 0)
		return qb.results
	}

	// Smallest store first minimizes Has() checks
	sort.SliceStable(qb.include, func(i, j int) bool {
		return qb.include[i].Count() < qb.include[j].Count()
	})

	candidates := qb.include[0].All()
	filtered := candidates[:0]
	for _, e := range candidates {
		if qb.matches(e) {
			filtered = append(filtered, e)
		}
	}

	qb.results = filtered
	return qb.results
}

func (qb *QueryBuilder) matches(e core.Entity) bool {
	for _, s := range qb.include[1:] {
		if !s.Has(e) {
			return false
		}
	}
	for _, s := range qb.exclude {
		if s.Has(e) {
			return false
		}
	}
	return true
}
