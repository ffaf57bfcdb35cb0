// Package executor implements C6: a pull-based (Open/Next/Close), row-at-
// a-time evaluator for the LogicalPlan tree pkg/planner produces, the same
// iterator-driven style the teacher's own cypher executor used before it
// was rewritten for the staged AST/plan/executor pipeline this package is
// part of.
package executor

import (
	"fmt"

	"github.com/orneryd/graphforge/pkg/ast"
	"github.com/orneryd/graphforge/pkg/eval"
	"github.com/orneryd/graphforge/pkg/planner"
	"github.com/orneryd/graphforge/pkg/storage"
	"github.com/orneryd/graphforge/pkg/value"
)

// RuntimeError mirrors eval.RuntimeError's shape for executor-raised
// failures that have no expression to blame: unbounded traversals,
// constraint violations on DELETE, and resource-limit trips (§7).
type RuntimeError struct {
	Kind    string
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func rtErr(kind, format string, args ...interface{}) error {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// MaxTraversalDepth bounds VarExpand when a pattern's upper bound is
// unset (§5: "operators must not allocate unboundedly"); exceeding it
// without reaching Max surfaces UnboundedTraversal rather than hanging.
const MaxTraversalDepth = 1000

// Operator is the pull-based iterator every lowered Plan node becomes.
// Open prepares the operator against a transaction;
// Next produces the next row or (nil, false) at exhaustion; Close
// releases any held iterators.
type Operator interface {
	Open(tx storage.Tx) error
	Next() (eval.Row, bool, error)
	Close() error
}

// Params aliases eval.Params so callers don't need to import both packages
// for a single type.
type Params = eval.Params

// Stats accumulates write-clause counters over a single query execution,
// mirroring the teacher's QueryStats on cypher.ExecuteResult (nodes and
// relationships created/deleted, properties set, labels added/removed).
type Stats struct {
	NodesCreated  int
	NodesDeleted  int
	RelsCreated   int
	RelsDeleted   int
	PropertiesSet int
	LabelsAdded   int
	LabelsRemoved int
}

// Build compiles a LogicalPlan into an Operator tree. params is threaded
// through to every expression evaluation via eval.Context. Write-clause
// counters are discarded; callers that need them should use
// BuildWithStats instead.
func Build(plan planner.Plan, params Params) (Operator, error) {
	op, _, err := BuildWithStats(plan, params)
	return op, err
}

// BuildWithStats is Build plus a Stats accumulator that every mutating
// operator in the resulting tree reports into as it runs.
func BuildWithStats(plan planner.Plan, params Params) (Operator, *Stats, error) {
	stats := &Stats{}
	b := &opBuilder{params: params, stats: stats}
	op, err := b.build(plan)
	if err != nil {
		return nil, nil, err
	}
	return op, stats, nil
}

type opBuilder struct {
	params Params
	stats  *Stats
}

func (b *opBuilder) evalCtx(tx storage.Tx) *eval.Context {
	return &eval.Context{Params: b.params, Subquery: &subqueryRunner{tx: tx, b: b}}
}

func (b *opBuilder) build(plan planner.Plan) (Operator, error) {
	switch p := plan.(type) {
	case *planner.ScanAllNodes:
		return &scanAllNodesOp{plan: p}, nil
	case *planner.ScanNodesByLabel:
		return &scanNodesByLabelOp{plan: p}, nil
	case *planner.ScanAllRels:
		return &scanAllRelsOp{plan: p}, nil
	case *planner.ScanRelsByType:
		return &scanRelsByTypeOp{plan: p}, nil
	case *planner.Expand:
		input, err := b.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &expandOp{plan: p, input: input, b: b}, nil
	case *planner.VarExpand:
		input, err := b.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &varExpandOp{plan: p, input: input, b: b}, nil
	case *planner.OptionalExpand:
		input, err := b.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &optionalExpandOp{plan: p, input: input, b: b}, nil
	case *planner.OptionalMatch:
		input, err := b.build(p.Input)
		if err != nil {
			return nil, err
		}
		sub, err := b.build(p.Subplan)
		if err != nil {
			return nil, err
		}
		return &optionalMatchOp{plan: p, input: input, sub: sub}, nil
	case *planner.Filter:
		input, err := b.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &filterOp{plan: p, input: input, b: b}, nil
	case *planner.Project:
		input, err := b.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &projectOp{plan: p, input: input, b: b}, nil
	case *planner.Aggregate:
		input, err := b.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &aggregateOp{plan: p, input: input, b: b}, nil
	case *planner.Sort:
		input, err := b.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &sortOp{plan: p, input: input, b: b}, nil
	case *planner.Skip:
		input, err := b.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &skipOp{plan: p, input: input, b: b}, nil
	case *planner.Limit:
		input, err := b.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &limitOp{plan: p, input: input, b: b}, nil
	case *planner.Unwind:
		input, err := b.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &unwindOp{plan: p, input: input, b: b}, nil
	case *planner.Create:
		input, err := b.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &createOp{plan: p, input: input, b: b}, nil
	case *planner.Merge:
		input, err := b.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &mergeOp{plan: p, input: input, b: b}, nil
	case *planner.Set:
		input, err := b.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &setOp{plan: p, input: input, b: b}, nil
	case *planner.Remove:
		input, err := b.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &removeOp{plan: p, input: input, b: b}, nil
	case *planner.Delete:
		input, err := b.build(p.Input)
		if err != nil {
			return nil, err
		}
		return &deleteOp{plan: p, input: input, b: b}, nil
	case *planner.Union:
		left, err := b.build(p.Left)
		if err != nil {
			return nil, err
		}
		right, err := b.build(p.Right)
		if err != nil {
			return nil, err
		}
		return &unionOp{plan: p, left: left, right: right}, nil
	case *planner.CallSubquery:
		input, err := b.build(p.Input)
		if err != nil {
			return nil, err
		}
		sub, err := b.build(p.Subplan)
		if err != nil {
			return nil, err
		}
		return &callSubqueryOp{plan: p, input: input, sub: sub, b: b}, nil
	case *planner.Eof:
		input, err := b.build(p.Input)
		if err != nil {
			return nil, err
		}
		return input, nil
	}
	return nil, fmt.Errorf("executor: unsupported plan node %T", plan)
}

// Run drives an Operator to completion against tx, returning every row.
// Callers wanting streaming consumption should call Open/Next/Close
// directly instead.
func Run(op Operator, tx storage.Tx) ([]eval.Row, error) {
	if err := op.Open(tx); err != nil {
		return nil, err
	}
	defer op.Close()
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

func cloneRow(row eval.Row) eval.Row {
	out := make(eval.Row, len(row)+2)
	for k, v := range row {
		out[k] = v
	}
	return out
}

func evalBool(b *opBuilder, tx storage.Tx, expr ast.Expression, row eval.Row) (bool, error) {
	v, err := eval.Eval(b.evalCtx(tx), expr, row)
	if err != nil {
		return false, err
	}
	return value.IsTruthy(v), nil
}

// subqueryRunner implements eval.SubqueryRunner by re-planning and
// re-executing a nested query correlated against the current row: the
// subquery's driving input is the current bindings reinterpreted as a
// single-row operator, exactly how CallSubquery's own inner plan runs.
type subqueryRunner struct {
	tx storage.Tx
	b  *opBuilder
}

func (s *subqueryRunner) run(query *ast.Query, row eval.Row) ([]eval.Row, error) {
	plan, err := planner.Build(query)
	if err != nil {
		return nil, err
	}
	op, err := s.b.build(plan)
	if err != nil {
		return nil, err
	}
	wrapped := &singleRowSeed{row: row, inner: op}
	return Run(wrapped, s.tx)
}

func (s *subqueryRunner) Exists(query *ast.Query, row eval.Row) (bool, error) {
	rows, err := s.run(query, row)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

func (s *subqueryRunner) Count(query *ast.Query, row eval.Row) (int64, error) {
	rows, err := s.run(query, row)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

// singleRowSeed feeds exactly one outer row into inner as its upstream
// source, the same trick callSubqueryOp uses for each driving row.
type singleRowSeed struct {
	row   eval.Row
	inner Operator
	fed   bool
}

func (s *singleRowSeed) Open(tx storage.Tx) error {
	s.fed = false
	return rebindAndOpen(s.inner, tx, s.row)
}
func (s *singleRowSeed) Next() (eval.Row, bool, error) { return s.inner.Next() }
func (s *singleRowSeed) Close() error                  { return s.inner.Close() }

// rebindAndOpen opens inner seeded with exactly one row (outer's current
// bindings) as its source, used by both subquery execution and
// CallSubquery per driving row.
func rebindAndOpen(op Operator, tx storage.Tx, seed eval.Row) error {
	if seeder, ok := op.(seedable); ok {
		seeder.seed(seed)
	}
	return op.Open(tx)
}

// seedable is implemented by the scan/anchor operators that sit at the
// bottom of a subplan, letting the outer row's bindings flow in as the
// starting row rather than a fresh node/rel scan discarding them.
type seedable interface {
	seed(row eval.Row)
}
