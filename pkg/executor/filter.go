package executor

import (
	"github.com/orneryd/graphforge/pkg/eval"
	"github.com/orneryd/graphforge/pkg/planner"
	"github.com/orneryd/graphforge/pkg/storage"
)

// filterOp drops every input row whose Predicate isn't truthy (three-valued:
// Null and false both fail, per value.IsTruthy).
type filterOp struct {
	plan  *planner.Filter
	input Operator
	b     *opBuilder
	tx    storage.Tx
}

func (o *filterOp) Open(tx storage.Tx) error {
	o.tx = tx
	return o.input.Open(tx)
}

func (o *filterOp) Next() (eval.Row, bool, error) {
	for {
		row, ok, err := o.input.Next()
		if err != nil || !ok {
			return nil, false, err
		}
		pass, err := evalBool(o.b, o.tx, o.plan.Predicate, row)
		if err != nil {
			return nil, false, err
		}
		if pass {
			return row, true, nil
		}
	}
}

func (o *filterOp) Close() error { return o.input.Close() }

func (o *filterOp) seed(row eval.Row) {
	if s, ok := o.input.(seedable); ok {
		s.seed(row)
	}
}
