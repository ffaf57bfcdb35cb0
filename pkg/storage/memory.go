package storage

import (
	"sync"

	"github.com/orneryd/graphforge/pkg/value"
)

// MemoryEngine is a thread-safe, in-memory Engine. It keeps the indexes
// the spec recommends (§4.2): label -> node set, type -> rel set, and a
// node -> {out, in} adjacency index, so that labelled scans and traversal
// never degrade to a full table scan.
//
// Concurrency model (§5): MemoryEngine allows any number of concurrent
// readers or exactly one writer at a time, enforced with a single
// sync.RWMutex held for the lifetime of the transaction — a reader's
// RLock blocks a writer's Lock and vice versa, giving the required
// snapshot/serialization behaviour without a separate MVCC layer.
type MemoryEngine struct {
	mu sync.RWMutex

	nodes map[value.NodeID]*NodeRecord
	rels  map[value.RelID]*RelRecord

	nodesByLabel map[string]map[value.NodeID]struct{}
	relsByType   map[string]map[value.RelID]struct{}
	outAdj       map[value.NodeID]map[value.RelID]struct{}
	inAdj        map[value.NodeID]map[value.RelID]struct{}

	nextNodeID uint64
	nextRelID  uint64

	closed bool
}

// NewMemoryEngine creates an empty in-memory store.
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{
		nodes:        make(map[value.NodeID]*NodeRecord),
		rels:         make(map[value.RelID]*RelRecord),
		nodesByLabel: make(map[string]map[value.NodeID]struct{}),
		relsByType:   make(map[string]map[value.RelID]struct{}),
		outAdj:       make(map[value.NodeID]map[value.RelID]struct{}),
		inAdj:        make(map[value.NodeID]map[value.RelID]struct{}),
	}
}

// Begin acquires the engine's lock for the duration of the transaction: a
// write lock for writable transactions, a read lock otherwise.
func (e *MemoryEngine) Begin(writable bool) (Tx, error) {
	e.mu.RLock()
	if e.closed {
		e.mu.RUnlock()
		return nil, ErrClosed
	}
	e.mu.RUnlock()

	if writable {
		e.mu.Lock()
	} else {
		e.mu.RLock()
	}
	return &memoryTx{engine: e, writable: writable, undo: nil}, nil
}

// Close releases engine resources. Further Begin calls fail.
func (e *MemoryEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

type undoOp func()

type memoryTx struct {
	engine   *MemoryEngine
	writable bool
	undo     []undoOp
	done     bool
}

func (t *memoryTx) Writable() bool { return t.writable }

func (t *memoryTx) requireWritable() error {
	if t.done {
		return ErrClosed
	}
	if !t.writable {
		return ErrReadOnly
	}
	return nil
}

func (t *memoryTx) record(op undoOp) {
	t.undo = append(t.undo, op)
}

// Commit releases the engine lock; writes are already visible in place
// because memoryTx mutates the engine's live maps directly and the engine
// lock excludes any other writer for the duration (§4.2: "writes within a
// transaction are visible to subsequent reads within the same
// transaction and are atomic on commit").
func (t *memoryTx) Commit() error {
	if t.done {
		return ErrClosed
	}
	t.done = true
	t.undo = nil
	if t.writable {
		t.engine.mu.Unlock()
	} else {
		t.engine.mu.RUnlock()
	}
	return nil
}

// Rollback undoes every mutation performed in this transaction, in
// reverse order, before releasing the lock.
func (t *memoryTx) Rollback() error {
	if t.done {
		return ErrClosed
	}
	t.done = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	if t.writable {
		t.engine.mu.Unlock()
	} else {
		t.engine.mu.RUnlock()
	}
	return nil
}

func (t *memoryTx) CreateNode(labels []string, props value.Map) (value.NodeID, error) {
	if err := t.requireWritable(); err != nil {
		return 0, err
	}
	if err := ValidateProperties(props); err != nil {
		return 0, err
	}
	e := t.engine
	e.nextNodeID++
	id := value.NodeID(e.nextNodeID)
	rec := &NodeRecord{ID: id, Labels: append([]string(nil), labels...), Properties: props}
	e.nodes[id] = rec
	for _, l := range labels {
		t.indexLabel(id, l)
	}
	t.record(func() {
		delete(e.nodes, id)
		for _, l := range labels {
			delete(e.nodesByLabel[l], id)
		}
	})
	return id, nil
}

func (t *memoryTx) indexLabel(id value.NodeID, label string) {
	e := t.engine
	set, ok := e.nodesByLabel[label]
	if !ok {
		set = make(map[value.NodeID]struct{})
		e.nodesByLabel[label] = set
	}
	set[id] = struct{}{}
}

func (t *memoryTx) GetNode(id value.NodeID) (NodeRecord, error) {
	rec, ok := t.engine.nodes[id]
	if !ok {
		return NodeRecord{}, ErrNotFound
	}
	return copyNode(*rec), nil
}

func copyNode(r NodeRecord) NodeRecord {
	r.Labels = append([]string(nil), r.Labels...)
	return r
}

func copyRel(r RelRecord) RelRecord { return r }

func (t *memoryTx) SetNodeProperty(id value.NodeID, key string, v value.Value) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	rec, ok := t.engine.nodes[id]
	if !ok {
		return ErrNotFound
	}
	if value.IsNull(v) {
		return t.RemoveNodeProperty(id, key)
	}
	if !value.IsPropertyValue(v) {
		return ErrInvalidProperty
	}
	old, had := rec.Properties.Get(key)
	rec.Properties.Set(key, v)
	t.record(func() {
		if had {
			rec.Properties.Set(key, old)
			return
		}
		restored := value.NewMap()
		for _, e := range rec.Properties.Entries() {
			if e.Key != key {
				restored.Set(e.Key, e.Value)
			}
		}
		rec.Properties = restored
	})
	return nil
}

func (t *memoryTx) RemoveNodeProperty(id value.NodeID, key string) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	rec, ok := t.engine.nodes[id]
	if !ok {
		return ErrNotFound
	}
	old, had := rec.Properties.Get(key)
	if !had {
		return nil
	}
	rec.Properties.Set(key, value.NullValue)
	newProps := value.NewMap()
	for _, e := range rec.Properties.Entries() {
		if e.Key != key {
			newProps.Set(e.Key, e.Value)
		}
	}
	rec.Properties = newProps
	t.record(func() { rec.Properties.Set(key, old) })
	return nil
}

func (t *memoryTx) AddLabel(id value.NodeID, label string) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	rec, ok := t.engine.nodes[id]
	if !ok {
		return ErrNotFound
	}
	if rec.HasLabel(label) {
		return nil
	}
	rec.Labels = append(rec.Labels, label)
	t.indexLabel(id, label)
	t.record(func() {
		rec.Labels = rec.Labels[:len(rec.Labels)-1]
		delete(t.engine.nodesByLabel[label], id)
	})
	return nil
}

func (r *NodeRecord) HasLabel(label string) bool {
	for _, l := range r.Labels {
		if l == label {
			return true
		}
	}
	return false
}

func (t *memoryTx) RemoveLabel(id value.NodeID, label string) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	rec, ok := t.engine.nodes[id]
	if !ok {
		return ErrNotFound
	}
	idx := -1
	for i, l := range rec.Labels {
		if l == label {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	rec.Labels = append(rec.Labels[:idx], rec.Labels[idx+1:]...)
	delete(t.engine.nodesByLabel[label], id)
	t.record(func() {
		rec.Labels = append(rec.Labels, label)
		t.indexLabel(id, label)
	})
	return nil
}

func (t *memoryTx) DeleteNode(id value.NodeID, detach bool) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	e := t.engine
	rec, ok := e.nodes[id]
	if !ok {
		return ErrNotFound
	}
	hasIncident := len(e.outAdj[id]) > 0 || len(e.inAdj[id]) > 0
	if hasIncident && !detach {
		return ErrHasRelationships
	}
	if hasIncident && detach {
		for relID := range e.outAdj[id] {
			if err := t.DeleteRel(relID); err != nil {
				return err
			}
		}
		for relID := range e.inAdj[id] {
			if _, ok := e.rels[relID]; ok {
				if err := t.DeleteRel(relID); err != nil {
					return err
				}
			}
		}
	}
	delete(e.nodes, id)
	for _, l := range rec.Labels {
		delete(e.nodesByLabel[l], id)
	}
	t.record(func() {
		e.nodes[id] = rec
		for _, l := range rec.Labels {
			t.indexLabel(id, l)
		}
	})
	return nil
}

func (t *memoryTx) CreateRel(relType string, from, to value.NodeID, props value.Map) (value.RelID, error) {
	if err := t.requireWritable(); err != nil {
		return 0, err
	}
	if err := ValidateProperties(props); err != nil {
		return 0, err
	}
	e := t.engine
	if _, ok := e.nodes[from]; !ok {
		return 0, ErrNotFound
	}
	if _, ok := e.nodes[to]; !ok {
		return 0, ErrNotFound
	}
	e.nextRelID++
	id := value.RelID(e.nextRelID)
	rec := &RelRecord{ID: id, Type: relType, StartID: from, EndID: to, Properties: props}
	e.rels[id] = rec
	t.indexRelType(id, relType)
	t.indexAdjacency(id, from, to)
	t.record(func() {
		delete(e.rels, id)
		delete(e.relsByType[relType], id)
		delete(e.outAdj[from], id)
		delete(e.inAdj[to], id)
	})
	return id, nil
}

func (t *memoryTx) indexRelType(id value.RelID, relType string) {
	e := t.engine
	set, ok := e.relsByType[relType]
	if !ok {
		set = make(map[value.RelID]struct{})
		e.relsByType[relType] = set
	}
	set[id] = struct{}{}
}

func (t *memoryTx) indexAdjacency(id value.RelID, from, to value.NodeID) {
	e := t.engine
	if e.outAdj[from] == nil {
		e.outAdj[from] = make(map[value.RelID]struct{})
	}
	e.outAdj[from][id] = struct{}{}
	if e.inAdj[to] == nil {
		e.inAdj[to] = make(map[value.RelID]struct{})
	}
	e.inAdj[to][id] = struct{}{}
}

func (t *memoryTx) GetRel(id value.RelID) (RelRecord, error) {
	rec, ok := t.engine.rels[id]
	if !ok {
		return RelRecord{}, ErrNotFound
	}
	return copyRel(*rec), nil
}

func (t *memoryTx) SetRelProperty(id value.RelID, key string, v value.Value) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	rec, ok := t.engine.rels[id]
	if !ok {
		return ErrNotFound
	}
	if value.IsNull(v) {
		return t.RemoveRelProperty(id, key)
	}
	if !value.IsPropertyValue(v) {
		return ErrInvalidProperty
	}
	old, had := rec.Properties.Get(key)
	rec.Properties.Set(key, v)
	t.record(func() {
		if had {
			rec.Properties.Set(key, old)
			return
		}
		restored := value.NewMap()
		for _, e := range rec.Properties.Entries() {
			if e.Key != key {
				restored.Set(e.Key, e.Value)
			}
		}
		rec.Properties = restored
	})
	return nil
}

func (t *memoryTx) RemoveRelProperty(id value.RelID, key string) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	rec, ok := t.engine.rels[id]
	if !ok {
		return ErrNotFound
	}
	old, had := rec.Properties.Get(key)
	if !had {
		return nil
	}
	newProps := value.NewMap()
	for _, e := range rec.Properties.Entries() {
		if e.Key != key {
			newProps.Set(e.Key, e.Value)
		}
	}
	rec.Properties = newProps
	t.record(func() { rec.Properties.Set(key, old) })
	return nil
}

func (t *memoryTx) DeleteRel(id value.RelID) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	e := t.engine
	rec, ok := e.rels[id]
	if !ok {
		return ErrNotFound
	}
	delete(e.rels, id)
	delete(e.relsByType[rec.Type], id)
	delete(e.outAdj[rec.StartID], id)
	delete(e.inAdj[rec.EndID], id)
	t.record(func() {
		e.rels[id] = rec
		t.indexRelType(id, rec.Type)
		t.indexAdjacency(id, rec.StartID, rec.EndID)
	})
	return nil
}

// --- scans ---

type memNodeIter struct {
	ids []value.NodeID
	pos int
	eng *MemoryEngine
	cur NodeRecord
}

func (it *memNodeIter) Next() bool {
	for it.pos < len(it.ids) {
		id := it.ids[it.pos]
		it.pos++
		if rec, ok := it.eng.nodes[id]; ok {
			it.cur = copyNode(*rec)
			return true
		}
	}
	return false
}
func (it *memNodeIter) Node() NodeRecord { return it.cur }
func (it *memNodeIter) Err() error       { return nil }
func (it *memNodeIter) Close() error     { return nil }

func (t *memoryTx) ScanAllNodes() (NodeIterator, error) {
	ids := make([]value.NodeID, 0, len(t.engine.nodes))
	for id := range t.engine.nodes {
		ids = append(ids, id)
	}
	return &memNodeIter{ids: ids, eng: t.engine}, nil
}

func (t *memoryTx) ScanNodesByLabel(label string) (NodeIterator, error) {
	set := t.engine.nodesByLabel[label]
	ids := make([]value.NodeID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return &memNodeIter{ids: ids, eng: t.engine}, nil
}

type memRelIter struct {
	ids []value.RelID
	pos int
	eng *MemoryEngine
	cur RelRecord
}

func (it *memRelIter) Next() bool {
	for it.pos < len(it.ids) {
		id := it.ids[it.pos]
		it.pos++
		if rec, ok := it.eng.rels[id]; ok {
			it.cur = copyRel(*rec)
			return true
		}
	}
	return false
}
func (it *memRelIter) Rel() RelRecord { return it.cur }
func (it *memRelIter) Err() error     { return nil }
func (it *memRelIter) Close() error   { return nil }

func (t *memoryTx) ScanAllRels() (RelIterator, error) {
	ids := make([]value.RelID, 0, len(t.engine.rels))
	for id := range t.engine.rels {
		ids = append(ids, id)
	}
	return &memRelIter{ids: ids, eng: t.engine}, nil
}

func (t *memoryTx) ScanRelsByType(relType string) (RelIterator, error) {
	set := t.engine.relsByType[relType]
	ids := make([]value.RelID, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return &memRelIter{ids: ids, eng: t.engine}, nil
}

type memNeighbourIter struct {
	items []Neighbour
	pos   int
}

func (it *memNeighbourIter) Next() bool {
	if it.pos >= len(it.items) {
		return false
	}
	it.pos++
	return true
}
func (it *memNeighbourIter) Neighbour() Neighbour { return it.items[it.pos-1] }
func (it *memNeighbourIter) Err() error           { return nil }
func (it *memNeighbourIter) Close() error         { return nil }

func typeAllowed(relType string, types []string) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == relType {
			return true
		}
	}
	return false
}

func (t *memoryTx) OutEdges(node value.NodeID, types []string) (NeighbourIterator, error) {
	var items []Neighbour
	for relID := range t.engine.outAdj[node] {
		rec, ok := t.engine.rels[relID]
		if !ok || !typeAllowed(rec.Type, types) {
			continue
		}
		items = append(items, Neighbour{RelID: relID, RelType: rec.Type, NodeID: rec.EndID, Forward: true})
	}
	return &memNeighbourIter{items: items}, nil
}

func (t *memoryTx) InEdges(node value.NodeID, types []string) (NeighbourIterator, error) {
	var items []Neighbour
	for relID := range t.engine.inAdj[node] {
		rec, ok := t.engine.rels[relID]
		if !ok || !typeAllowed(rec.Type, types) {
			continue
		}
		items = append(items, Neighbour{RelID: relID, RelType: rec.Type, NodeID: rec.StartID, Forward: false})
	}
	return &memNeighbourIter{items: items}, nil
}

func (t *memoryTx) BothEdges(node value.NodeID, types []string) (NeighbourIterator, error) {
	out, _ := t.OutEdges(node, types)
	in, _ := t.InEdges(node, types)
	var items []Neighbour
	for out.Next() {
		items = append(items, out.Neighbour())
	}
	for in.Next() {
		items = append(items, in.Neighbour())
	}
	return &memNeighbourIter{items: items}, nil
}

func (t *memoryTx) NodeCount() (int64, error) { return int64(len(t.engine.nodes)), nil }
func (t *memoryTx) RelCount() (int64, error)  { return int64(len(t.engine.rels)), nil }
