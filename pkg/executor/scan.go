package executor

import (
	"github.com/orneryd/graphforge/pkg/eval"
	"github.com/orneryd/graphforge/pkg/planner"
	"github.com/orneryd/graphforge/pkg/storage"
)

// baseSeed holds the row an operator at the bottom of a (sub)plan starts
// each produced row from. It defaults to an empty row for a top-level
// query and is set to the outer row's bindings for a correlated subquery
// or OPTIONAL MATCH branch (EXISTS{}/COUNT{}/CALL{}/OPTIONAL MATCH), via
// seed().
type baseSeed struct {
	row      eval.Row
	consumed bool
}

func (s *baseSeed) seed(row eval.Row) { s.row = row }

// bound reports whether v is already present in the seed row: the scan
// is the anchor of a correlated subplan reusing an outer/imported
// variable, not a fresh one this scan is meant to enumerate (§4.4 — a
// correlated subplan's anchor is the single outer binding, not every
// node/relationship in the store).
func (s *baseSeed) bound(v string) bool {
	if s.row == nil {
		return false
	}
	_, ok := s.row[v]
	return ok
}

func (s *baseSeed) start() eval.Row {
	if s.row == nil {
		return eval.Row{}
	}
	return cloneRow(s.row)
}

// passthroughOnce yields the seed row itself exactly once, used instead
// of a real scan when the scan's own variable is already bound in the
// seed.
func (s *baseSeed) passthroughOnce() (eval.Row, bool) {
	if s.consumed {
		return nil, false
	}
	s.consumed = true
	return s.start(), true
}

type scanAllNodesOp struct {
	baseSeed
	plan *planner.ScanAllNodes
	iter storage.NodeIterator
}

func (o *scanAllNodesOp) Open(tx storage.Tx) error {
	o.consumed = false
	if o.bound(o.plan.Var) {
		return nil
	}
	it, err := tx.ScanAllNodes()
	if err != nil {
		return err
	}
	o.iter = it
	return nil
}

func (o *scanAllNodesOp) Next() (eval.Row, bool, error) {
	if o.bound(o.plan.Var) {
		row, ok := o.passthroughOnce()
		return row, ok, nil
	}
	if !o.iter.Next() {
		return nil, false, o.iter.Err()
	}
	row := o.start()
	row[o.plan.Var] = o.iter.Node().ToNodeValue()
	return row, true, nil
}

func (o *scanAllNodesOp) Close() error {
	if o.iter == nil {
		return nil
	}
	return o.iter.Close()
}

type scanNodesByLabelOp struct {
	baseSeed
	plan *planner.ScanNodesByLabel
	iter storage.NodeIterator
}

func (o *scanNodesByLabelOp) Open(tx storage.Tx) error {
	o.consumed = false
	if o.bound(o.plan.Var) {
		return nil
	}
	it, err := tx.ScanNodesByLabel(o.plan.Label)
	if err != nil {
		return err
	}
	o.iter = it
	return nil
}

func (o *scanNodesByLabelOp) Next() (eval.Row, bool, error) {
	if o.bound(o.plan.Var) {
		row, ok := o.passthroughOnce()
		return row, ok, nil
	}
	if !o.iter.Next() {
		return nil, false, o.iter.Err()
	}
	row := o.start()
	row[o.plan.Var] = o.iter.Node().ToNodeValue()
	return row, true, nil
}

func (o *scanNodesByLabelOp) Close() error {
	if o.iter == nil {
		return nil
	}
	return o.iter.Close()
}

type scanAllRelsOp struct {
	baseSeed
	plan *planner.ScanAllRels
	iter storage.RelIterator
}

func (o *scanAllRelsOp) Open(tx storage.Tx) error {
	o.consumed = false
	if o.bound(o.plan.Var) {
		return nil
	}
	it, err := tx.ScanAllRels()
	if err != nil {
		return err
	}
	o.iter = it
	return nil
}

func (o *scanAllRelsOp) Next() (eval.Row, bool, error) {
	if o.bound(o.plan.Var) {
		row, ok := o.passthroughOnce()
		return row, ok, nil
	}
	if !o.iter.Next() {
		return nil, false, o.iter.Err()
	}
	row := o.start()
	row[o.plan.Var] = o.iter.Rel().ToRelValue()
	return row, true, nil
}

func (o *scanAllRelsOp) Close() error {
	if o.iter == nil {
		return nil
	}
	return o.iter.Close()
}

type scanRelsByTypeOp struct {
	baseSeed
	plan *planner.ScanRelsByType
	iter storage.RelIterator
}

func (o *scanRelsByTypeOp) Open(tx storage.Tx) error {
	o.consumed = false
	if o.bound(o.plan.Var) {
		return nil
	}
	it, err := tx.ScanRelsByType(o.plan.Type)
	if err != nil {
		return err
	}
	o.iter = it
	return nil
}

func (o *scanRelsByTypeOp) Next() (eval.Row, bool, error) {
	if o.bound(o.plan.Var) {
		row, ok := o.passthroughOnce()
		return row, ok, nil
	}
	if !o.iter.Next() {
		return nil, false, o.iter.Err()
	}
	row := o.start()
	row[o.plan.Var] = o.iter.Rel().ToRelValue()
	return row, true, nil
}

func (o *scanRelsByTypeOp) Close() error {
	if o.iter == nil {
		return nil
	}
	return o.iter.Close()
}
