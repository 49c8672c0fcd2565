package core

import "strconv"

// Entity is a unique identifier for an entity
// Zero is never allocated and means "no entity"
type Entity uint64

// Valid reports whether the identifier was ever allocated
func (e Entity) Valid() bool {
	return e != 0
}

func (e Entity) String() string {
	return "entity#" + strconv.FormatUint(uint64(e), 10)
}
