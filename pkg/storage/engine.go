package storage

import "github.com/orneryd/graphforge/pkg/value"

// NodeIterator is a lazy, one-row-at-a-time cursor over nodes (§4.2
// "lazy sequence"), mirroring the idiom of database/sql.Rows: call Next
// until it returns false, then check Err.
type NodeIterator interface {
	Next() bool
	Node() NodeRecord
	Err() error
	Close() error
}

// RelIterator is the relationship analogue of NodeIterator.
type RelIterator interface {
	Next() bool
	Rel() RelRecord
	Err() error
	Close() error
}

// NeighbourIterator is a lazy cursor over adjacency-scan results.
type NeighbourIterator interface {
	Next() bool
	Neighbour() Neighbour
	Err() error
	Close() error
}

// Tx is a single logical transaction against the store. A read-only Tx
// sees a consistent snapshot as of Begin; a writable Tx serializes against
// every other writer (§5). All mutations funnel through Tx so that a
// single commit/rollback point governs visibility (§4.2).
type Tx interface {
	// Node operations.
	CreateNode(labels []string, props value.Map) (value.NodeID, error)
	GetNode(id value.NodeID) (NodeRecord, error)
	SetNodeProperty(id value.NodeID, key string, v value.Value) error
	RemoveNodeProperty(id value.NodeID, key string) error
	AddLabel(id value.NodeID, label string) error
	RemoveLabel(id value.NodeID, label string) error
	DeleteNode(id value.NodeID, detach bool) error

	// Relationship operations.
	CreateRel(relType string, from, to value.NodeID, props value.Map) (value.RelID, error)
	GetRel(id value.RelID) (RelRecord, error)
	SetRelProperty(id value.RelID, key string, v value.Value) error
	RemoveRelProperty(id value.RelID, key string) error
	DeleteRel(id value.RelID) error

	// Scans.
	ScanAllNodes() (NodeIterator, error)
	ScanNodesByLabel(label string) (NodeIterator, error)
	ScanAllRels() (RelIterator, error)
	ScanRelsByType(relType string) (RelIterator, error)

	// Adjacency. types == nil means "any type".
	OutEdges(node value.NodeID, types []string) (NeighbourIterator, error)
	InEdges(node value.NodeID, types []string) (NeighbourIterator, error)
	BothEdges(node value.NodeID, types []string) (NeighbourIterator, error)

	// Stats.
	NodeCount() (int64, error)
	RelCount() (int64, error)

	Writable() bool
	Commit() error
	Rollback() error
}

// Engine is the storage backend abstraction: an in-memory engine for
// ephemeral use, or a Badger-backed engine for durable, crash-recoverable
// storage (§4.2, §6.3).
type Engine interface {
	// Begin starts a transaction. A writable Begin blocks until any other
	// in-flight writer commits or rolls back (§5 "the only place an
	// operator may block").
	Begin(writable bool) (Tx, error)
	Close() error
}
