package storage

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/orneryd/graphforge/pkg/value"
)

// Key prefixes for BadgerDB storage organization, one byte each for
// iteration efficiency — grounded on the teacher's own BadgerEngine key
// layout (pkg/storage/badger.go).
const (
	prefixNode   = byte(0x01) // node:<id>            -> encoded NodeRecord
	prefixRel    = byte(0x02) // rel:<id>             -> encoded RelRecord
	prefixLabel  = byte(0x03) // label:<label>\x00<id> -> (index, empty value)
	prefixType   = byte(0x04) // type:<type>\x00<id>   -> (index, empty value)
	prefixOutAdj = byte(0x05) // out:<nodeID>\x00<relID> -> (index, empty value)
	prefixInAdj  = byte(0x06) // in:<nodeID>\x00<relID>  -> (index, empty value)
)

var emptyVal = []byte{}

func u64key(prefix byte, id uint64) []byte {
	k := make([]byte, 9)
	k[0] = prefix
	binary.BigEndian.PutUint64(k[1:], id)
	return k
}

func nodeKey(id value.NodeID) []byte { return u64key(prefixNode, uint64(id)) }
func relKey(id value.RelID) []byte   { return u64key(prefixRel, uint64(id)) }

func labelIndexKey(label string, id value.NodeID) []byte {
	return indexKey(prefixLabel, label, uint64(id))
}
func labelIndexPrefix(label string) []byte { return indexPrefix(prefixLabel, label) }

func typeIndexKey(relType string, id value.RelID) []byte {
	return indexKey(prefixType, relType, uint64(id))
}
func typeIndexPrefix(relType string) []byte { return indexPrefix(prefixType, relType) }

func outAdjKey(node value.NodeID, rel value.RelID) []byte {
	return indexKey(prefixOutAdj, nodeIDString(node), uint64(rel))
}
func outAdjPrefix(node value.NodeID) []byte { return indexPrefix(prefixOutAdj, nodeIDString(node)) }

func inAdjKey(node value.NodeID, rel value.RelID) []byte {
	return indexKey(prefixInAdj, nodeIDString(node), uint64(rel))
}
func inAdjPrefix(node value.NodeID) []byte { return indexPrefix(prefixInAdj, nodeIDString(node)) }

func nodeIDString(id value.NodeID) string {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return string(b)
}

func indexKey(prefix byte, tag string, id uint64) []byte {
	k := make([]byte, 0, 1+len(tag)+1+8)
	k = append(k, prefix)
	k = append(k, []byte(tag)...)
	k = append(k, 0)
	idb := make([]byte, 8)
	binary.BigEndian.PutUint64(idb, id)
	return append(k, idb...)
}

func indexPrefix(prefix byte, tag string) []byte {
	k := make([]byte, 0, 1+len(tag)+1)
	k = append(k, prefix)
	k = append(k, []byte(tag)...)
	return append(k, 0)
}

func idFromIndexKey(k []byte) uint64 {
	return binary.BigEndian.Uint64(k[len(k)-8:])
}

// BadgerEngine is the durable Engine backend: every committed transaction
// survives a crash (§4.2, §6.3), because the write path is Badger's own
// value-log + LSM commit barrier — GraphForge never writes outside a
// *badger.Txn.
type BadgerEngine struct {
	db *badger.DB

	// writerMu serializes writable transactions (§5: "a single writer at a
	// time"); Badger itself already does this for its own Update/View
	// calls, but GraphForge's Tx spans multiple Badger calls (one per
	// operator pull), so the mutex has to be held for the whole logical
	// transaction, not just one Badger round-trip.
	writerMu sync.Mutex

	nextNodeID uint64
	nextRelID  uint64
}

// OpenBadgerEngine opens (or creates) a durable store at dir.
func OpenBadgerEngine(dir string) (*BadgerEngine, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	e := &BadgerEngine{db: db}
	if err := e.loadCounters(); err != nil {
		db.Close()
		return nil, err
	}
	return e, nil
}

func (e *BadgerEngine) loadCounters() error {
	return e.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: []byte{prefixNode}})
		defer it.Close()
		var maxNode uint64
		for it.Seek([]byte{prefixNode}); it.ValidForPrefix([]byte{prefixNode}); it.Next() {
			id := binary.BigEndian.Uint64(it.Item().Key()[1:])
			if id > maxNode {
				maxNode = id
			}
		}
		atomic.StoreUint64(&e.nextNodeID, maxNode)

		it2 := txn.NewIterator(badger.IteratorOptions{Prefix: []byte{prefixRel}})
		defer it2.Close()
		var maxRel uint64
		for it2.Seek([]byte{prefixRel}); it2.ValidForPrefix([]byte{prefixRel}); it2.Next() {
			id := binary.BigEndian.Uint64(it2.Item().Key()[1:])
			if id > maxRel {
				maxRel = id
			}
		}
		atomic.StoreUint64(&e.nextRelID, maxRel)
		return nil
	})
}

// Close flushes and closes the underlying Badger database.
func (e *BadgerEngine) Close() error { return e.db.Close() }

// Begin starts a transaction. Writable transactions take the engine-wide
// writer lock for their whole lifetime, matching the single-writer model
// of §5; the underlying *badger.Txn independently gives snapshot
// isolation to readers.
func (e *BadgerEngine) Begin(writable bool) (Tx, error) {
	if writable {
		e.writerMu.Lock()
	}
	txn := e.db.NewTransaction(writable)
	return &badgerTx{engine: e, txn: txn, writable: writable}, nil
}

type badgerTx struct {
	engine   *BadgerEngine
	txn      *badger.Txn
	writable bool
	done     bool
}

func (t *badgerTx) Writable() bool { return t.writable }

func (t *badgerTx) requireWritable() error {
	if t.done {
		return ErrClosed
	}
	if !t.writable {
		return ErrReadOnly
	}
	return nil
}

func (t *badgerTx) Commit() error {
	if t.done {
		return ErrClosed
	}
	t.done = true
	err := t.txn.Commit()
	if t.writable {
		t.engine.writerMu.Unlock()
	}
	if err != nil {
		return ErrWriteConflict
	}
	return nil
}

func (t *badgerTx) Rollback() error {
	if t.done {
		return ErrClosed
	}
	t.done = true
	t.txn.Discard()
	if t.writable {
		t.engine.writerMu.Unlock()
	}
	return nil
}

func (t *badgerTx) CreateNode(labels []string, props value.Map) (value.NodeID, error) {
	if err := t.requireWritable(); err != nil {
		return 0, err
	}
	if err := ValidateProperties(props); err != nil {
		return 0, err
	}
	id := value.NodeID(atomic.AddUint64(&t.engine.nextNodeID, 1))
	data, err := encodeNodeRecord(NodeRecord{ID: id, Labels: labels, Properties: props})
	if err != nil {
		return 0, err
	}
	if err := t.txn.Set(nodeKey(id), data); err != nil {
		return 0, err
	}
	for _, l := range labels {
		if err := t.txn.Set(labelIndexKey(l, id), emptyVal); err != nil {
			return 0, err
		}
	}
	return id, nil
}

func (t *badgerTx) GetNode(id value.NodeID) (NodeRecord, error) {
	item, err := t.txn.Get(nodeKey(id))
	if err == badger.ErrKeyNotFound {
		return NodeRecord{}, ErrNotFound
	}
	if err != nil {
		return NodeRecord{}, err
	}
	var rec NodeRecord
	err = item.Value(func(val []byte) error {
		r, err := decodeNodeRecord(id, val)
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	return rec, err
}

func (t *badgerTx) putNode(rec NodeRecord) error {
	data, err := encodeNodeRecord(rec)
	if err != nil {
		return err
	}
	return t.txn.Set(nodeKey(rec.ID), data)
}

func (t *badgerTx) SetNodeProperty(id value.NodeID, key string, v value.Value) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	if value.IsNull(v) {
		return t.RemoveNodeProperty(id, key)
	}
	if !value.IsPropertyValue(v) {
		return ErrInvalidProperty
	}
	rec, err := t.GetNode(id)
	if err != nil {
		return err
	}
	rec.Properties.Set(key, v)
	return t.putNode(rec)
}

func (t *badgerTx) RemoveNodeProperty(id value.NodeID, key string) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	rec, err := t.GetNode(id)
	if err != nil {
		return err
	}
	newProps := value.NewMap()
	for _, e := range rec.Properties.Entries() {
		if e.Key != key {
			newProps.Set(e.Key, e.Value)
		}
	}
	rec.Properties = newProps
	return t.putNode(rec)
}

func (t *badgerTx) AddLabel(id value.NodeID, label string) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	rec, err := t.GetNode(id)
	if err != nil {
		return err
	}
	if rec.HasLabel(label) {
		return nil
	}
	rec.Labels = append(rec.Labels, label)
	if err := t.putNode(rec); err != nil {
		return err
	}
	return t.txn.Set(labelIndexKey(label, id), emptyVal)
}

func (t *badgerTx) RemoveLabel(id value.NodeID, label string) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	rec, err := t.GetNode(id)
	if err != nil {
		return err
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
	if err := t.putNode(rec); err != nil {
		return err
	}
	return t.txn.Delete(labelIndexKey(label, id))
}

func (t *badgerTx) DeleteNode(id value.NodeID, detach bool) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	rec, err := t.GetNode(id)
	if err != nil {
		return err
	}
	incident, err := t.incidentRelIDs(id)
	if err != nil {
		return err
	}
	if len(incident) > 0 && !detach {
		return ErrHasRelationships
	}
	for _, relID := range incident {
		if err := t.DeleteRel(relID); err != nil && err != ErrNotFound {
			return err
		}
	}
	for _, l := range rec.Labels {
		if err := t.txn.Delete(labelIndexKey(l, id)); err != nil {
			return err
		}
	}
	return t.txn.Delete(nodeKey(id))
}

func (t *badgerTx) incidentRelIDs(id value.NodeID) ([]value.RelID, error) {
	var ids []value.RelID
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := t.txn.NewIterator(opts)
	defer it.Close()
	for _, prefix := range [][]byte{outAdjPrefix(id), inAdjPrefix(id)} {
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, value.RelID(idFromIndexKey(it.Item().Key())))
		}
	}
	return ids, nil
}

func (t *badgerTx) CreateRel(relType string, from, to value.NodeID, props value.Map) (value.RelID, error) {
	if err := t.requireWritable(); err != nil {
		return 0, err
	}
	if err := ValidateProperties(props); err != nil {
		return 0, err
	}
	if _, err := t.txn.Get(nodeKey(from)); err == badger.ErrKeyNotFound {
		return 0, ErrNotFound
	}
	if _, err := t.txn.Get(nodeKey(to)); err == badger.ErrKeyNotFound {
		return 0, ErrNotFound
	}
	id := value.RelID(atomic.AddUint64(&t.engine.nextRelID, 1))
	data, err := encodeRelRecord(RelRecord{ID: id, Type: relType, StartID: from, EndID: to, Properties: props})
	if err != nil {
		return 0, err
	}
	if err := t.txn.Set(relKey(id), data); err != nil {
		return 0, err
	}
	if err := t.txn.Set(typeIndexKey(relType, id), emptyVal); err != nil {
		return 0, err
	}
	if err := t.txn.Set(outAdjKey(from, id), emptyVal); err != nil {
		return 0, err
	}
	if err := t.txn.Set(inAdjKey(to, id), emptyVal); err != nil {
		return 0, err
	}
	return id, nil
}

func (t *badgerTx) GetRel(id value.RelID) (RelRecord, error) {
	item, err := t.txn.Get(relKey(id))
	if err == badger.ErrKeyNotFound {
		return RelRecord{}, ErrNotFound
	}
	if err != nil {
		return RelRecord{}, err
	}
	var rec RelRecord
	err = item.Value(func(val []byte) error {
		r, err := decodeRelRecord(id, val)
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	return rec, err
}

func (t *badgerTx) putRel(rec RelRecord) error {
	data, err := encodeRelRecord(rec)
	if err != nil {
		return err
	}
	return t.txn.Set(relKey(rec.ID), data)
}

func (t *badgerTx) SetRelProperty(id value.RelID, key string, v value.Value) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	if value.IsNull(v) {
		return t.RemoveRelProperty(id, key)
	}
	if !value.IsPropertyValue(v) {
		return ErrInvalidProperty
	}
	rec, err := t.GetRel(id)
	if err != nil {
		return err
	}
	rec.Properties.Set(key, v)
	return t.putRel(rec)
}

func (t *badgerTx) RemoveRelProperty(id value.RelID, key string) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	rec, err := t.GetRel(id)
	if err != nil {
		return err
	}
	newProps := value.NewMap()
	for _, e := range rec.Properties.Entries() {
		if e.Key != key {
			newProps.Set(e.Key, e.Value)
		}
	}
	rec.Properties = newProps
	return t.putRel(rec)
}

func (t *badgerTx) DeleteRel(id value.RelID) error {
	if err := t.requireWritable(); err != nil {
		return err
	}
	rec, err := t.GetRel(id)
	if err != nil {
		return err
	}
	if err := t.txn.Delete(typeIndexKey(rec.Type, id)); err != nil {
		return err
	}
	if err := t.txn.Delete(outAdjKey(rec.StartID, id)); err != nil {
		return err
	}
	if err := t.txn.Delete(inAdjKey(rec.EndID, id)); err != nil {
		return err
	}
	return t.txn.Delete(relKey(id))
}

// --- scans ---

type badgerNodeIter struct {
	it   *badger.Iterator
	pfx  []byte
	cur  NodeRecord
	err  error
	seek bool
}

func (it *badgerNodeIter) Next() bool {
	if !it.seek {
		it.it.Seek(it.pfx)
		it.seek = true
	} else {
		it.it.Next()
	}
	if !it.it.ValidForPrefix(it.pfx) {
		return false
	}
	item := it.it.Item()
	id := value.NodeID(binary.BigEndian.Uint64(item.Key()[1:]))
	err := item.Value(func(val []byte) error {
		rec, err := decodeNodeRecord(id, val)
		if err != nil {
			return err
		}
		it.cur = rec
		return nil
	})
	if err != nil {
		it.err = err
		return false
	}
	return true
}
func (it *badgerNodeIter) Node() NodeRecord { return it.cur }
func (it *badgerNodeIter) Err() error       { return it.err }
func (it *badgerNodeIter) Close() error     { it.it.Close(); return nil }

func (t *badgerTx) ScanAllNodes() (NodeIterator, error) {
	it := t.txn.NewIterator(badger.DefaultIteratorOptions)
	return &badgerNodeIter{it: it, pfx: []byte{prefixNode}}, nil
}

// labelScanIter resolves a label index prefix into node records by
// following each index entry's id back to the node record.
type labelScanIter struct {
	txn *badger.Txn
	it  *badger.Iterator
	pfx []byte
	cur NodeRecord
	err error
	seek bool
}

func (it *labelScanIter) Next() bool {
	for {
		if !it.seek {
			it.it.Seek(it.pfx)
			it.seek = true
		} else {
			it.it.Next()
		}
		if !it.it.ValidForPrefix(it.pfx) {
			return false
		}
		id := value.NodeID(idFromIndexKey(it.it.Item().Key()))
		item, err := it.txn.Get(nodeKey(id))
		if err == badger.ErrKeyNotFound {
			continue // stale index entry from a concurrent delete; skip
		}
		if err != nil {
			it.err = err
			return false
		}
		err = item.Value(func(val []byte) error {
			rec, err := decodeNodeRecord(id, val)
			if err != nil {
				return err
			}
			it.cur = rec
			return nil
		})
		if err != nil {
			it.err = err
			return false
		}
		return true
	}
}
func (it *labelScanIter) Node() NodeRecord { return it.cur }
func (it *labelScanIter) Err() error       { return it.err }
func (it *labelScanIter) Close() error     { it.it.Close(); return nil }

func (t *badgerTx) ScanNodesByLabel(label string) (NodeIterator, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := t.txn.NewIterator(opts)
	return &labelScanIter{txn: t.txn, it: it, pfx: labelIndexPrefix(label)}, nil
}

type badgerRelIter struct {
	it   *badger.Iterator
	pfx  []byte
	cur  RelRecord
	err  error
	seek bool
}

func (it *badgerRelIter) Next() bool {
	if !it.seek {
		it.it.Seek(it.pfx)
		it.seek = true
	} else {
		it.it.Next()
	}
	if !it.it.ValidForPrefix(it.pfx) {
		return false
	}
	item := it.it.Item()
	id := value.RelID(binary.BigEndian.Uint64(item.Key()[1:]))
	err := item.Value(func(val []byte) error {
		rec, err := decodeRelRecord(id, val)
		if err != nil {
			return err
		}
		it.cur = rec
		return nil
	})
	if err != nil {
		it.err = err
		return false
	}
	return true
}
func (it *badgerRelIter) Rel() RelRecord { return it.cur }
func (it *badgerRelIter) Err() error     { return it.err }
func (it *badgerRelIter) Close() error   { it.it.Close(); return nil }

func (t *badgerTx) ScanAllRels() (RelIterator, error) {
	it := t.txn.NewIterator(badger.DefaultIteratorOptions)
	return &badgerRelIter{it: it, pfx: []byte{prefixRel}}, nil
}

type typeScanIter struct {
	txn  *badger.Txn
	it   *badger.Iterator
	pfx  []byte
	cur  RelRecord
	err  error
	seek bool
}

func (it *typeScanIter) Next() bool {
	for {
		if !it.seek {
			it.it.Seek(it.pfx)
			it.seek = true
		} else {
			it.it.Next()
		}
		if !it.it.ValidForPrefix(it.pfx) {
			return false
		}
		id := value.RelID(idFromIndexKey(it.it.Item().Key()))
		item, err := it.txn.Get(relKey(id))
		if err == badger.ErrKeyNotFound {
			continue
		}
		if err != nil {
			it.err = err
			return false
		}
		err = item.Value(func(val []byte) error {
			rec, err := decodeRelRecord(id, val)
			if err != nil {
				return err
			}
			it.cur = rec
			return nil
		})
		if err != nil {
			it.err = err
			return false
		}
		return true
	}
}
func (it *typeScanIter) Rel() RelRecord { return it.cur }
func (it *typeScanIter) Err() error     { return it.err }
func (it *typeScanIter) Close() error   { it.it.Close(); return nil }

func (t *badgerTx) ScanRelsByType(relType string) (RelIterator, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := t.txn.NewIterator(opts)
	return &typeScanIter{txn: t.txn, it: it, pfx: typeIndexPrefix(relType)}, nil
}

func (t *badgerTx) scanAdjacency(prefix []byte, node value.NodeID, forward bool, types []string) (NeighbourIterator, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := t.txn.NewIterator(opts)
	defer it.Close()
	var items []Neighbour
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		relID := value.RelID(idFromIndexKey(it.Item().Key()))
		rec, err := t.GetRel(relID)
		if err == ErrNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !typeAllowed(rec.Type, types) {
			continue
		}
		if forward {
			items = append(items, Neighbour{RelID: relID, RelType: rec.Type, NodeID: rec.EndID, Forward: true})
		} else {
			items = append(items, Neighbour{RelID: relID, RelType: rec.Type, NodeID: rec.StartID, Forward: false})
		}
	}
	return &memNeighbourIter{items: items}, nil
}

func (t *badgerTx) OutEdges(node value.NodeID, types []string) (NeighbourIterator, error) {
	return t.scanAdjacency(outAdjPrefix(node), node, true, types)
}

func (t *badgerTx) InEdges(node value.NodeID, types []string) (NeighbourIterator, error) {
	return t.scanAdjacency(inAdjPrefix(node), node, false, types)
}

func (t *badgerTx) BothEdges(node value.NodeID, types []string) (NeighbourIterator, error) {
	out, err := t.OutEdges(node, types)
	if err != nil {
		return nil, err
	}
	in, err := t.InEdges(node, types)
	if err != nil {
		return nil, err
	}
	var items []Neighbour
	for out.Next() {
		items = append(items, out.Neighbour())
	}
	for in.Next() {
		items = append(items, in.Neighbour())
	}
	return &memNeighbourIter{items: items}, nil
}

func (t *badgerTx) NodeCount() (int64, error) {
	var n int64
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := t.txn.NewIterator(opts)
	defer it.Close()
	for it.Seek([]byte{prefixNode}); it.ValidForPrefix([]byte{prefixNode}); it.Next() {
		n++
	}
	return n, nil
}

func (t *badgerTx) RelCount() (int64, error) {
	var n int64
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	it := t.txn.NewIterator(opts)
	defer it.Close()
	for it.Seek([]byte{prefixRel}); it.ValidForPrefix([]byte{prefixRel}); it.Next() {
		n++
	}
	return n, nil
}
