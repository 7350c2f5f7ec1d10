// router.go: key routing contract (spec §4.K)
//
// Distributed routing beyond a single local node is explicitly out of
// scope; Router exists so a caller can plug in a multi-node
// implementation later without changing the Cache's operation surface.
// NewLocalRouter is the only implementation this module ships, modeled
// on the teacher's NoOpLogger/NoOpMetricsCollector default-stub idiom
// in interfaces.go.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package warden

// Node identifies one member of a routing topology.
type Node struct {
	ID   string
	Addr string
}

// Router dispatches a key (already hashed by the caller) to the node
// responsible for it. Implementations beyond the local single-node
// case are out of this module's scope (spec §1 non-goals).
type Router interface {
	// Nodes lists every node currently attached.
	Nodes() []Node

	// Route returns the node responsible for keyHash.
	Route(keyHash uint64) (Node, error)

	// Attach adds a node to the topology.
	Attach(n Node) error

	// Detach removes a node from the topology.
	Detach(id string) error
}

const localNodeID = "local"

// localRouter is the single-node Router every Cache uses unless a
// caller supplies its own. Every key routes to the same local node.
// Attaching any other node, or detaching the local node, reports an
// ErrCodeCrossSlot error since this module implements no cross-node
// transport; re-attaching the local node or detaching an unknown node
// is a no-op.
type localRouter struct {
	node Node
}

// NewLocalRouter returns a Router whose single node is this process.
func NewLocalRouter() Router {
	return &localRouter{node: Node{ID: localNodeID, Addr: ""}}
}

func (r *localRouter) Nodes() []Node {
	return []Node{r.node}
}

func (r *localRouter) Route(uint64) (Node, error) {
	return r.node, nil
}

func (r *localRouter) Attach(n Node) error {
	if n.ID == localNodeID {
		return nil
	}
	return NewErrCrossSlot(2)
}

func (r *localRouter) Detach(id string) error {
	if id == localNodeID {
		return NewErrCrossSlot(0)
	}
	return nil
}
