// Package storage implements GraphForge's graph store (C2): node and
// relationship CRUD, label/type-indexed scans, adjacency traversal, and
// transactional writes, backed by either an in-memory engine or a
// Badger-backed durable engine.
//
// Property values are value.Value, restricted at the storage boundary to
// value.IsPropertyValue (scalars, temporal, spatial, and homogeneous
// lists thereof) — heterogeneous lists and maps are rejected before they
// ever reach disk.
package storage

import (
	"errors"

	"github.com/orneryd/graphforge/pkg/value"
)

// Sentinel errors surfaced by every Engine implementation.
var (
	ErrNotFound         = errors.New("storage: not found")
	ErrClosed           = errors.New("storage: engine closed")
	ErrHasRelationships = errors.New("storage: node has incident relationships")
	ErrInvalidProperty  = errors.New("storage: value is not a valid property")
	ErrReadOnly         = errors.New("storage: transaction is read-only")
	ErrWriteConflict    = errors.New("storage: commit conflict")
)

// Direction selects which side of a relationship's incidence to traverse.
type Direction int

const (
	DirOut Direction = iota
	DirIn
	DirBoth
)

// NodeRecord is the durable representation of a node: its labels and
// property map. It is copied in and out of the engine so callers can never
// mutate storage-internal state through an aliased pointer.
type NodeRecord struct {
	ID         value.NodeID
	Labels     []string
	Properties value.Map
}

// RelRecord is the durable representation of a relationship.
type RelRecord struct {
	ID         value.RelID
	Type       string
	StartID    value.NodeID
	EndID      value.NodeID
	Properties value.Map
}

// ToNodeValue converts a stored record to the Value the evaluator/executor
// operate on.
func (n NodeRecord) ToNodeValue() value.Node {
	return value.Node{ID: n.ID, Labels: append([]string(nil), n.Labels...), Properties: n.Properties}
}

// ToRelValue converts a stored record to a Value.
func (r RelRecord) ToRelValue() value.Rel {
	return value.Rel{ID: r.ID, Type: r.Type, StartID: r.StartID, EndID: r.EndID, Properties: r.Properties}
}

// Neighbour is one adjacency-scan result: the relationship traversed and
// the node found at its far end.
type Neighbour struct {
	RelID   value.RelID
	RelType string
	NodeID  value.NodeID
	Forward bool // true if traversed in the relationship's own direction
}

// ValidateProperties rejects any property map entry that isn't a legal
// property value (§3.1).
func ValidateProperties(props value.Map) error {
	for _, e := range props.Entries() {
		if !value.IsPropertyValue(e.Value) {
			return ErrInvalidProperty
		}
	}
	return nil
}
