package executor

import (
	"github.com/orneryd/graphforge/pkg/eval"
	"github.com/orneryd/graphforge/pkg/planner"
	"github.com/orneryd/graphforge/pkg/storage"
	"github.com/orneryd/graphforge/pkg/value"
)

// unwindOp evaluates Expr per input row and emits one output row per
// element. UNWIND of Null produces zero rows; a non-list scalar unwinds
// as a single-element sequence (§4.4, §4.6).
type unwindOp struct {
	plan  *planner.Unwind
	input Operator
	b     *opBuilder
	tx    storage.Tx

	cur eval.Row
	seq value.List
	pos int
}

func (o *unwindOp) Open(tx storage.Tx) error {
	o.tx = tx
	return o.input.Open(tx)
}

func (o *unwindOp) Next() (eval.Row, bool, error) {
	for {
		if o.pos < len(o.seq) {
			out := cloneRow(o.cur)
			out[o.plan.Var] = o.seq[o.pos]
			o.pos++
			return out, true, nil
		}
		row, ok, err := o.input.Next()
		if err != nil || !ok {
			return nil, false, err
		}
		v, err := eval.Eval(o.b.evalCtx(o.tx), o.plan.Expr, row)
		if err != nil {
			return nil, false, err
		}
		o.cur = row
		o.pos = 0
		switch vv := v.(type) {
		case value.Null:
			o.seq = nil
		case value.List:
			o.seq = vv
		default:
			o.seq = value.List{vv}
		}
	}
}

func (o *unwindOp) Close() error { return o.input.Close() }

func (o *unwindOp) seed(row eval.Row) {
	if s, ok := o.input.(seedable); ok {
		s.seed(row)
	}
}
