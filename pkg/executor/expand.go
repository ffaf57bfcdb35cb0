package executor

import (
	"github.com/orneryd/graphforge/pkg/ast"
	"github.com/orneryd/graphforge/pkg/eval"
	"github.com/orneryd/graphforge/pkg/planner"
	"github.com/orneryd/graphforge/pkg/storage"
	"github.com/orneryd/graphforge/pkg/value"
)

func neighbourDirection(d ast.RelDirection) storage.Direction {
	switch d {
	case ast.DirRight:
		return storage.DirOut
	case ast.DirLeft:
		return storage.DirIn
	default:
		return storage.DirBoth
	}
}

func fetchNeighbours(tx storage.Tx, node value.NodeID, dir ast.RelDirection, types []string) (storage.NeighbourIterator, error) {
	switch neighbourDirection(dir) {
	case storage.DirOut:
		return tx.OutEdges(node, types)
	case storage.DirIn:
		return tx.InEdges(node, types)
	default:
		return tx.BothEdges(node, types)
	}
}

// usedRelsKey is a row entry carrying the set of relationship ids already
// bound earlier in the same pattern. It is keyed with a NUL prefix so it
// can never collide with a Cypher identifier (identifiers can't contain
// NUL), and is dropped the moment a row reaches a Project (§8.1: every
// result row of a fixed-length pattern has pairwise-distinct relationship
// bindings, the same rule varExpandOp already enforces within one path).
const usedRelsKey = "\x00usedRels"

func usedRels(row eval.Row) []value.RelID {
	v, ok := row[usedRelsKey]
	if !ok {
		return nil
	}
	list, ok := v.(value.List)
	if !ok {
		return nil
	}
	ids := make([]value.RelID, len(list))
	for i, e := range list {
		ids[i] = value.RelID(e.(value.Int))
	}
	return ids
}

func relIsUsed(row eval.Row, id value.RelID) bool {
	return containsRel(usedRels(row), id)
}

func markRelUsed(row eval.Row, id value.RelID) {
	ids := append(usedRels(row), id)
	list := make(value.List, len(ids))
	for i, r := range ids {
		list[i] = value.Int(r)
	}
	row[usedRelsKey] = list
}

// expandOp is one fixed-length adjacency hop (§4.4/§4.6): for each input
// row it emits one output row per matching relationship, each extended
// with RelVar and ToVar.
type expandOp struct {
	plan  *planner.Expand
	input Operator
	b     *opBuilder
	tx    storage.Tx

	cur       eval.Row
	neighbour storage.NeighbourIterator
}

func (o *expandOp) Open(tx storage.Tx) error {
	o.tx = tx
	return o.input.Open(tx)
}

func (o *expandOp) Next() (eval.Row, bool, error) {
	for {
		if o.neighbour == nil {
			row, ok, err := o.input.Next()
			if err != nil || !ok {
				return nil, false, err
			}
			from, ok := fromNodeID(row, o.plan.FromVar)
			if !ok {
				continue
			}
			it, err := fetchNeighbours(o.tx, from, o.plan.Direction, o.plan.Types)
			if err != nil {
				return nil, false, err
			}
			o.cur = row
			o.neighbour = it
		}
		for o.neighbour.Next() {
			n := o.neighbour.Neighbour()
			if relIsUsed(o.cur, n.RelID) {
				continue // relationship-uniqueness across chained hops (§8.1/§4.6)
			}
			rel, err := o.tx.GetRel(n.RelID)
			if err != nil {
				return nil, false, err
			}
			out := cloneRow(o.cur)
			markRelUsed(out, n.RelID)
			if o.plan.RelVar != "" {
				out[o.plan.RelVar] = rel.ToRelValue()
			}
			if o.plan.ToVar != "" {
				node, err := o.tx.GetNode(n.NodeID)
				if err != nil {
					return nil, false, err
				}
				out[o.plan.ToVar] = node.ToNodeValue()
			}
			if o.plan.PatternPred != nil {
				ok, err := evalBool(o.b, o.tx, o.plan.PatternPred, out)
				if err != nil {
					return nil, false, err
				}
				if !ok {
					continue
				}
			}
			return out, true, nil
		}
		if err := o.neighbour.Err(); err != nil {
			return nil, false, err
		}
		o.neighbour.Close()
		o.neighbour = nil
	}
}

func (o *expandOp) Close() error {
	if o.neighbour != nil {
		o.neighbour.Close()
	}
	return o.input.Close()
}

func fromNodeID(row eval.Row, name string) (value.NodeID, bool) {
	v, ok := row[name]
	if !ok {
		return 0, false
	}
	n, ok := v.(value.Node)
	if !ok {
		return 0, false
	}
	return n.ID, true
}

// varExpandOp is the variable-length form: a depth-bounded depth-first
// search per input row, each path emitted as a row binding ToVar to the
// path's end node and (optionally) RelVar to the list of every
// relationship on the path.
type varExpandOp struct {
	plan  *planner.VarExpand
	input Operator
	b     *opBuilder
	tx    storage.Tx

	pending []eval.Row
}

type varExpandFrame struct {
	node  value.NodeID
	rels  []value.Rel
	depth int
}

func (o *varExpandOp) Open(tx storage.Tx) error {
	o.tx = tx
	return o.input.Open(tx)
}

func (o *varExpandOp) Next() (eval.Row, bool, error) {
	for {
		if len(o.pending) > 0 {
			row := o.pending[0]
			o.pending = o.pending[1:]
			return row, true, nil
		}
		row, ok, err := o.input.Next()
		if err != nil || !ok {
			return nil, false, err
		}
		from, ok := fromNodeID(row, o.plan.FromVar)
		if !ok {
			continue
		}
		rows, err := o.expandFrom(row, from)
		if err != nil {
			return nil, false, err
		}
		o.pending = rows
	}
}

// expandFrom performs a depth-bounded depth-first search from start, collecting every path
// whose length is within [Min, Max] as one output row. Max < 0 means
// unbounded subject to MaxTraversalDepth, surfacing UnboundedTraversal
// (§7) if that cap is exceeded without the traversal naturally ending.
func (o *varExpandOp) expandFrom(seedRow eval.Row, start value.NodeID) ([]eval.Row, error) {
	var out []eval.Row
	max := o.plan.Max
	cap := MaxTraversalDepth
	if max >= 0 && max < cap {
		cap = max
	}

	type frame struct {
		node value.NodeID
		rels []value.RelID
	}
	stack := []frame{{node: start}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		depth := len(f.rels)

		if depth >= o.plan.Min {
			row, err := o.buildVarRow(seedRow, f.node, f.rels)
			if err != nil {
				return nil, err
			}
			if row != nil {
				out = append(out, row)
			}
		}
		if depth >= cap {
			if max < 0 && depth >= MaxTraversalDepth {
				return nil, rtErr("UnboundedTraversal", "variable-length expansion exceeded %d hops", MaxTraversalDepth)
			}
			continue
		}
		it, err := fetchNeighbours(o.tx, f.node, o.plan.Direction, o.plan.Types)
		if err != nil {
			return nil, err
		}
		for it.Next() {
			n := it.Neighbour()
			if containsRel(f.rels, n.RelID) || relIsUsed(seedRow, n.RelID) {
				continue // relationship-uniqueness within one path, and against earlier hops in the same pattern (§4.4/§8.1)
			}
			nextRels := append(append([]value.RelID(nil), f.rels...), n.RelID)
			stack = append(stack, frame{node: n.NodeID, rels: nextRels})
		}
		if err := it.Err(); err != nil {
			it.Close()
			return nil, err
		}
		it.Close()
	}
	return out, nil
}

func containsRel(rels []value.RelID, id value.RelID) bool {
	for _, r := range rels {
		if r == id {
			return true
		}
	}
	return false
}

func (o *varExpandOp) buildVarRow(seedRow eval.Row, end value.NodeID, relIDs []value.RelID) (eval.Row, error) {
	rels := make([]value.Rel, len(relIDs))
	for i, id := range relIDs {
		rec, err := o.tx.GetRel(id)
		if err != nil {
			return nil, err
		}
		rels[i] = rec.ToRelValue()
	}
	endNode, err := o.tx.GetNode(end)
	if err != nil {
		return nil, err
	}
	row := cloneRow(seedRow)
	for _, id := range relIDs {
		markRelUsed(row, id)
	}
	if o.plan.ToVar != "" {
		row[o.plan.ToVar] = endNode.ToNodeValue()
	}
	if o.plan.RelVar != "" {
		list := make(value.List, len(rels))
		for i, r := range rels {
			list[i] = r
		}
		row[o.plan.RelVar] = list
	}
	if o.plan.PatternPred != nil {
		ok, err := evalBool(o.b, o.tx, o.plan.PatternPred, row)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
	}
	return row, nil
}

func (o *varExpandOp) Close() error { return o.input.Close() }

func (o *expandOp) seed(row eval.Row) {
	if s, ok := o.input.(seedable); ok {
		s.seed(row)
	}
}

func (o *varExpandOp) seed(row eval.Row) {
	if s, ok := o.input.(seedable); ok {
		s.seed(row)
	}
}
