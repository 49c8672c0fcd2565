package httpclient

import (
	"net/http"

	"github.com/lixenwraith/ecshttp/core"
)

// Request is the transport-level description of one HTTP call
type Request struct {
	Method  string
	URL     string
	Headers http.Header
	Body    []byte
}

// OwnerKind tells who owns the entity a request is delivered to
type OwnerKind uint8

const (
	// OwnerOwned: the plugin allocates an entity at dispatch and destroys it after completion
	OwnerOwned OwnerKind = iota
	// OwnerBorrowed: the caller's entity, never destroyed by the plugin
	OwnerBorrowed
)

func (k OwnerKind) String() string {
	if k == OwnerBorrowed {
		return "borrowed"
	}
	return "owned"
}

// Owner identifies where a request's outcome is routed
type Owner struct {
	kind   OwnerKind
	entity core.Entity
}

// Owned returns an owner resolved to a fresh entity at dispatch time
func Owned() Owner {
	return Owner{kind: OwnerOwned}
}

// Borrowed returns an owner bound to the caller's entity e
func Borrowed(e core.Entity) Owner {
	return Owner{kind: OwnerBorrowed, entity: e}
}

// Kind returns the ownership kind
func (o Owner) Kind() OwnerKind { return o.kind }

// Entity returns the borrowed entity, zero for Owned
func (o Owner) Entity() core.Entity { return o.entity }

// HTTPRequest is the envelope consumed exactly once by dispatch
// Publish it as a message, attach it as a component, or hand it to Submit
type HTTPRequest struct {
	ID      string
	Request Request
	Owner   Owner
}
