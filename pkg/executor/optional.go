package executor

import (
	"github.com/orneryd/graphforge/pkg/eval"
	"github.com/orneryd/graphforge/pkg/planner"
	"github.com/orneryd/graphforge/pkg/storage"
	"github.com/orneryd/graphforge/pkg/value"
)

// optionalExpandOp is Expand's OPTIONAL MATCH counterpart: every input row
// survives even when no neighbour matches, with RelVar/ToVar bound to Null.
type optionalExpandOp struct {
	plan  *planner.OptionalExpand
	input Operator
	b     *opBuilder
	tx    storage.Tx

	cur        eval.Row
	neighbour  storage.NeighbourIterator
	emittedAny bool
}

func (o *optionalExpandOp) Open(tx storage.Tx) error {
	o.tx = tx
	return o.input.Open(tx)
}

func (o *optionalExpandOp) Next() (eval.Row, bool, error) {
	for {
		if o.neighbour == nil {
			row, ok, err := o.input.Next()
			if err != nil || !ok {
				return nil, false, err
			}
			from, ok := fromNodeID(row, o.plan.FromVar)
			if !ok {
				return o.nullRow(row), true, nil
			}
			it, err := fetchNeighbours(o.tx, from, o.plan.Direction, o.plan.Types)
			if err != nil {
				return nil, false, err
			}
			o.cur = row
			o.neighbour = it
			o.emittedAny = false
		}
		for o.neighbour.Next() {
			n := o.neighbour.Neighbour()
			rel, err := o.tx.GetRel(n.RelID)
			if err != nil {
				return nil, false, err
			}
			node, err := o.tx.GetNode(n.NodeID)
			if err != nil {
				return nil, false, err
			}
			out := cloneRow(o.cur)
			if o.plan.RelVar != "" {
				out[o.plan.RelVar] = rel.ToRelValue()
			}
			if o.plan.ToVar != "" {
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
			o.emittedAny = true
			return out, true, nil
		}
		if err := o.neighbour.Err(); err != nil {
			return nil, false, err
		}
		o.neighbour.Close()
		o.neighbour = nil
		if !o.emittedAny {
			return o.nullRow(o.cur), true, nil
		}
	}
}

func (o *optionalExpandOp) nullRow(base eval.Row) eval.Row {
	out := cloneRow(base)
	if o.plan.RelVar != "" {
		out[o.plan.RelVar] = value.NullValue
	}
	if o.plan.ToVar != "" {
		out[o.plan.ToVar] = value.NullValue
	}
	return out
}

func (o *optionalExpandOp) Close() error {
	if o.neighbour != nil {
		o.neighbour.Close()
	}
	return o.input.Close()
}

// optionalMatchOp wraps an entire subplan for OPTIONAL MATCH patterns
// that need more than a single adjacency hop (multi-step patterns, or a
// pattern whose anchor isn't already bound in the outer row): run the
// subplan once per input row, Null-filling its Vars if it produces none.
type optionalMatchOp struct {
	plan  *planner.OptionalMatch
	input Operator
	sub   Operator
	tx    storage.Tx

	cur      eval.Row
	subRows  []eval.Row
	subIndex int
	started  bool
}

func (o *optionalMatchOp) Open(tx storage.Tx) error {
	o.tx = tx
	return o.input.Open(tx)
}

func (o *optionalMatchOp) Next() (eval.Row, bool, error) {
	for {
		if o.started && o.subIndex < len(o.subRows) {
			row := o.subRows[o.subIndex]
			o.subIndex++
			return row, true, nil
		}
		row, ok, err := o.input.Next()
		if err != nil || !ok {
			return nil, false, err
		}
		if err := rebindAndOpen(o.sub, o.tx, row); err != nil {
			return nil, false, err
		}
		rows, err := drain(o.sub)
		o.sub.Close()
		if err != nil {
			return nil, false, err
		}
		o.started = true
		o.subIndex = 0
		if len(rows) == 0 {
			o.subRows = []eval.Row{o.nullFill(row)}
			continue
		}
		o.subRows = rows
	}
}

func (o *optionalMatchOp) nullFill(base eval.Row) eval.Row {
	out := cloneRow(base)
	for _, v := range o.plan.Vars {
		if _, exists := out[v]; !exists {
			out[v] = value.NullValue
		}
	}
	return out
}

func (o *optionalMatchOp) Close() error { return o.input.Close() }

func drain(op Operator) ([]eval.Row, error) {
	var rows []eval.Row
	for {
		row, ok, err := op.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return rows, nil
		}
		rows = append(rows, row)
	}
}

func (o *optionalExpandOp) seed(row eval.Row) {
	if s, ok := o.input.(seedable); ok {
		s.seed(row)
	}
}

func (o *optionalMatchOp) seed(row eval.Row) {
	if s, ok := o.input.(seedable); ok {
		s.seed(row)
	}
}
