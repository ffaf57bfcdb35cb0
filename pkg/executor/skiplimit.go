package executor

import (
	"github.com/orneryd/graphforge/pkg/ast"
	"github.com/orneryd/graphforge/pkg/eval"
	"github.com/orneryd/graphforge/pkg/planner"
	"github.com/orneryd/graphforge/pkg/storage"
	"github.com/orneryd/graphforge/pkg/value"
)

func evalCount(b *opBuilder, tx storage.Tx, expr ast.Expression, row eval.Row) (int64, error) {
	v, err := eval.Eval(b.evalCtx(tx), expr, row)
	if err != nil {
		return 0, err
	}
	n, ok := v.(value.Int)
	if !ok {
		return 0, rtErr("TypeError", "SKIP/LIMIT expects an integer, got %s", v.Kind())
	}
	if n < 0 {
		return 0, rtErr("InvalidArgument", "SKIP/LIMIT must not be negative")
	}
	return int64(n), nil
}

type skipOp struct {
	plan  *planner.Skip
	input Operator
	b     *opBuilder
	tx    storage.Tx

	n       int64
	skipped int64
	resolved bool
}

func (o *skipOp) Open(tx storage.Tx) error {
	o.tx = tx
	return o.input.Open(tx)
}

func (o *skipOp) Next() (eval.Row, bool, error) {
	for {
		row, ok, err := o.input.Next()
		if err != nil || !ok {
			return nil, false, err
		}
		if !o.resolved {
			o.n, err = evalCount(o.b, o.tx, o.plan.Expr, row)
			if err != nil {
				return nil, false, err
			}
			o.resolved = true
		}
		if o.skipped < o.n {
			o.skipped++
			continue
		}
		return row, true, nil
	}
}

func (o *skipOp) Close() error { return o.input.Close() }

func (o *skipOp) seed(row eval.Row) {
	if s, ok := o.input.(seedable); ok {
		s.seed(row)
	}
}

type limitOp struct {
	plan  *planner.Limit
	input Operator
	b     *opBuilder
	tx    storage.Tx

	n        int64
	emitted  int64
	resolved bool
}

func (o *limitOp) Open(tx storage.Tx) error {
	o.tx = tx
	return o.input.Open(tx)
}

func (o *limitOp) Next() (eval.Row, bool, error) {
	row, ok, err := o.input.Next()
	if err != nil || !ok {
		return nil, false, err
	}
	if !o.resolved {
		o.n, err = evalCount(o.b, o.tx, o.plan.Expr, row)
		if err != nil {
			return nil, false, err
		}
		o.resolved = true
	}
	if o.emitted >= o.n {
		return nil, false, nil
	}
	o.emitted++
	return row, true, nil
}

func (o *limitOp) Close() error { return o.input.Close() }

func (o *limitOp) seed(row eval.Row) {
	if s, ok := o.input.(seedable); ok {
		s.seed(row)
	}
}
