package executor

import (
	"sort"
	"strings"

	"github.com/orneryd/graphforge/pkg/eval"
	"github.com/orneryd/graphforge/pkg/planner"
	"github.com/orneryd/graphforge/pkg/storage"
	"github.com/orneryd/graphforge/pkg/value"
)

// projectOp evaluates each Items entry into its Alias column, optionally
// deduplicating the resulting rows for DISTINCT. It also serves as the
// passthrough wrapper the planner inserts after an Aggregate for
// "DISTINCT after aggregation" (§4.4).
type projectOp struct {
	plan  *planner.Project
	input Operator
	b     *opBuilder
	tx    storage.Tx

	seen map[string]bool
}

func (o *projectOp) Open(tx storage.Tx) error {
	o.tx = tx
	if o.plan.Distinct {
		o.seen = make(map[string]bool)
	}
	return o.input.Open(tx)
}

func (o *projectOp) Next() (eval.Row, bool, error) {
	for {
		row, ok, err := o.input.Next()
		if err != nil || !ok {
			return nil, false, err
		}
		out := make(eval.Row, len(o.plan.Items))
		for _, item := range o.plan.Items {
			v, err := eval.Eval(o.b.evalCtx(o.tx), item.Expr, row)
			if err != nil {
				return nil, false, err
			}
			out[item.Alias] = v
		}
		if o.plan.Distinct {
			key := rowKey(out)
			if o.seen[key] {
				continue
			}
			o.seen[key] = true
		}
		return out, true, nil
	}
}

func (o *projectOp) Close() error { return o.input.Close() }

func (o *projectOp) seed(row eval.Row) {
	if s, ok := o.input.(seedable); ok {
		s.seed(row)
	}
}

// rowKey builds a stable dedup key for DISTINCT/UNION semantics: columns
// are sorted by name so row construction order doesn't affect equality,
// and each value renders through value.String rather than relying on the
// three-valued value.Equal (Null must compare equal to Null for dedup,
// unlike Cypher's usual Null-propagating equality).
func rowKey(row eval.Row) string {
	names := make([]string, 0, len(row))
	for k := range row {
		names = append(names, k)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, n := range names {
		b.WriteString(n)
		b.WriteByte('=')
		b.WriteString(value.String(row[n]))
		b.WriteByte('\x1f')
	}
	return b.String()
}
