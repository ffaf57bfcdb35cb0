package executor

import (
	"github.com/orneryd/graphforge/pkg/eval"
	"github.com/orneryd/graphforge/pkg/planner"
	"github.com/orneryd/graphforge/pkg/storage"
)

// callSubqueryOp executes CALL { ... } per driving row. A unit subquery
// (!Returning) must preserve 1:1 cardinality and contributes no columns;
// a returning subquery is a Cartesian product of the driving row with
// every row the subquery produces, merged column-wise (§4.4).
type callSubqueryOp struct {
	plan  *planner.CallSubquery
	input Operator
	sub   Operator
	b     *opBuilder
	tx    storage.Tx

	cur      eval.Row
	subRows  []eval.Row
	subIndex int
	started  bool
}

func (o *callSubqueryOp) Open(tx storage.Tx) error {
	o.tx = tx
	return o.input.Open(tx)
}

func (o *callSubqueryOp) Next() (eval.Row, bool, error) {
	for {
		if o.started && o.subIndex < len(o.subRows) {
			sub := o.subRows[o.subIndex]
			o.subIndex++
			if !o.plan.Returning {
				return o.cur, true, nil
			}
			out := cloneRow(o.cur)
			for k, v := range sub {
				out[k] = v
			}
			return out, true, nil
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
		o.cur = row
		o.started = true
		o.subIndex = 0
		if !o.plan.Returning {
			// A unit subquery runs once for its side effects and emits
			// the driving row unchanged exactly once, regardless of how
			// many rows it internally produced.
			o.subRows = []eval.Row{{}}
			continue
		}
		o.subRows = rows
	}
}

func (o *callSubqueryOp) Close() error { return o.input.Close() }

func (o *callSubqueryOp) seed(row eval.Row) {
	if s, ok := o.input.(seedable); ok {
		s.seed(row)
	}
}
