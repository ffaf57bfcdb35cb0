package executor

import (
	"sort"

	"github.com/orneryd/graphforge/pkg/eval"
	"github.com/orneryd/graphforge/pkg/planner"
	"github.com/orneryd/graphforge/pkg/storage"
	"github.com/orneryd/graphforge/pkg/value"
)

// sortOp buffers all input and orders it by Keys; ORDER BY is a blocking
// operator for the same reason Aggregate is. Ascending keys sort Null
// last, descending keys sort Null first, matching openCypher's default
// Null-ordering rule (§4.6).
type sortOp struct {
	plan  *planner.Sort
	input Operator
	b     *opBuilder
	tx    storage.Tx

	rows []eval.Row
	pos  int
	err  error
	done bool
}

func (o *sortOp) Open(tx storage.Tx) error {
	o.tx = tx
	return o.input.Open(tx)
}

func (o *sortOp) Next() (eval.Row, bool, error) {
	if !o.done {
		if err := o.load(); err != nil {
			return nil, false, err
		}
		o.done = true
	}
	if o.err != nil {
		return nil, false, o.err
	}
	if o.pos >= len(o.rows) {
		return nil, false, nil
	}
	row := o.rows[o.pos]
	o.pos++
	return row, true, nil
}

func (o *sortOp) load() error {
	var keyed []sortedRow
	for {
		row, ok, err := o.input.Next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		keys := make([]value.Value, len(o.plan.Keys))
		for i, k := range o.plan.Keys {
			v, err := eval.Eval(o.b.evalCtx(o.tx), k.Expr, row)
			if err != nil {
				return err
			}
			keys[i] = v
		}
		keyed = append(keyed, sortedRow{row: row, keys: keys})
	}
	sort.SliceStable(keyed, func(i, j int) bool {
		for k, sk := range o.plan.Keys {
			a, b := keyed[i].keys[k], keyed[j].keys[k]
			an, bn := value.IsNull(a), value.IsNull(b)
			switch {
			case an && bn:
				continue
			case sk.Descending && an:
				return true // Null sorts first for DESC
			case sk.Descending && bn:
				return false
			case !sk.Descending && an:
				return false // Null sorts last for ASC
			case !sk.Descending && bn:
				return true
			}
			ord, ok := value.Compare(a, b)
			if !ok || ord == value.EqualOrd {
				continue
			}
			if sk.Descending {
				return ord == value.Greater
			}
			return ord == value.Less
		}
		return false
	})
	o.rows = make([]eval.Row, len(keyed))
	for i, kr := range keyed {
		o.rows[i] = kr.row
	}
	return nil
}

type sortedRow struct {
	row  eval.Row
	keys []value.Value
}

func (o *sortOp) Close() error { return o.input.Close() }

func (o *sortOp) seed(row eval.Row) {
	if s, ok := o.input.(seedable); ok {
		s.seed(row)
	}
}
