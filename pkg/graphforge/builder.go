package graphforge

import (
	"github.com/orneryd/graphforge/pkg/storage"
	"github.com/orneryd/graphforge/pkg/value"
)

// Builder is a thin, directly-testable wrapper over the same
// storage.Engine the Cypher executor runs against — for callers (bulk
// loaders, tests) that want to build a graph without going through the
// query text, mirroring the teacher's direct CreateNode/CreateEdge
// methods on its db façade. It holds no state of its own beyond the one
// transaction it wraps.
type Builder struct {
	tx storage.Tx
}

// NewBuilder wraps an already-open, writable transaction. The caller owns
// commit/rollback.
func NewBuilder(tx storage.Tx) *Builder { return &Builder{tx: tx} }

// CreateNode creates a node with the given labels and properties and
// returns it as a value.Node.
func (b *Builder) CreateNode(labels []string, props value.Map) (value.Node, error) {
	id, err := b.tx.CreateNode(labels, props)
	if err != nil {
		return value.Node{}, err
	}
	rec, err := b.tx.GetNode(id)
	if err != nil {
		return value.Node{}, err
	}
	return rec.ToNodeValue(), nil
}

// CreateRelationship creates a relationship between two already-created
// nodes.
func (b *Builder) CreateRelationship(relType string, from, to value.NodeID, props value.Map) (value.Rel, error) {
	id, err := b.tx.CreateRel(relType, from, to, props)
	if err != nil {
		return value.Rel{}, err
	}
	rec, err := b.tx.GetRel(id)
	if err != nil {
		return value.Rel{}, err
	}
	return rec.ToRelValue(), nil
}

// SetProperty sets a single node property.
func (b *Builder) SetProperty(id value.NodeID, key string, v value.Value) error {
	return b.tx.SetNodeProperty(id, key, v)
}

// SetRelProperty sets a single relationship property.
func (b *Builder) SetRelProperty(id value.RelID, key string, v value.Value) error {
	return b.tx.SetRelProperty(id, key, v)
}

// AddLabel adds a label to an existing node.
func (b *Builder) AddLabel(id value.NodeID, label string) error {
	return b.tx.AddLabel(id, label)
}

// DeleteNode deletes a node, optionally detaching (deleting) its incident
// relationships first.
func (b *Builder) DeleteNode(id value.NodeID, detach bool) error {
	return b.tx.DeleteNode(id, detach)
}

// DeleteRelationship deletes a relationship by id.
func (b *Builder) DeleteRelationship(id value.RelID) error {
	return b.tx.DeleteRel(id)
}

// Node fetches a node by id.
func (b *Builder) Node(id value.NodeID) (value.Node, error) {
	rec, err := b.tx.GetNode(id)
	if err != nil {
		return value.Node{}, err
	}
	return rec.ToNodeValue(), nil
}

// Relationship fetches a relationship by id.
func (b *Builder) Relationship(id value.RelID) (value.Rel, error) {
	rec, err := b.tx.GetRel(id)
	if err != nil {
		return value.Rel{}, err
	}
	return rec.ToRelValue(), nil
}
