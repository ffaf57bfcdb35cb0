package executor

import (
	"github.com/orneryd/graphforge/pkg/eval"
	"github.com/orneryd/graphforge/pkg/planner"
	"github.com/orneryd/graphforge/pkg/storage"
)

// unionOp concatenates Left then Right, deduplicating the combined row
// stream unless All (§4.4).
type unionOp struct {
	plan  *planner.Union
	left  Operator
	right Operator
	tx    storage.Tx

	onLeft bool
	seen   map[string]bool
}

func (o *unionOp) Open(tx storage.Tx) error {
	o.tx = tx
	o.onLeft = true
	if !o.plan.All {
		o.seen = make(map[string]bool)
	}
	return o.left.Open(tx)
}

func (o *unionOp) Next() (eval.Row, bool, error) {
	for {
		if o.onLeft {
			row, ok, err := o.left.Next()
			if err != nil {
				return nil, false, err
			}
			if !ok {
				if err := o.left.Close(); err != nil {
					return nil, false, err
				}
				o.onLeft = false
				if err := o.right.Open(o.tx); err != nil {
					return nil, false, err
				}
				continue
			}
			if o.dup(row) {
				continue
			}
			return row, true, nil
		}
		row, ok, err := o.right.Next()
		if err != nil || !ok {
			return nil, false, err
		}
		if o.dup(row) {
			continue
		}
		return row, true, nil
	}
}

func (o *unionOp) dup(row eval.Row) bool {
	if o.seen == nil {
		return false
	}
	k := rowKey(row)
	if o.seen[k] {
		return true
	}
	o.seen[k] = true
	return false
}

func (o *unionOp) Close() error {
	if o.onLeft {
		return o.left.Close()
	}
	return o.right.Close()
}

// seed forwards to whichever branch is currently active; a UNION is
// unlikely to sit at the leaf of a correlated subquery in practice, but
// every wrapping operator honors seedable for uniformity.
func (o *unionOp) seed(row eval.Row) {
	if o.onLeft {
		if s, ok := o.left.(seedable); ok {
			s.seed(row)
		}
		return
	}
	if s, ok := o.right.(seedable); ok {
		s.seed(row)
	}
}
