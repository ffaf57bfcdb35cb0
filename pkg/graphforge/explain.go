package graphforge

import (
	"fmt"
	"strings"

	"github.com/orneryd/graphforge/pkg/parser"
	"github.com/orneryd/graphforge/pkg/planner"
)

// Explain parses and plans query (C3/C4 only, no execution) and renders
// the logical plan as an indented tree, the same box-bordered style the
// teacher's cypher.StorageExecutor.formatPlan used for its EXPLAIN mode —
// except the tree here comes from walking the real planner.Plan the
// query lowers to, not from regexing the query text for keywords.
func (db *DB) Explain(queryText string) (string, error) {
	q, err := parser.Parse(queryText)
	if err != nil {
		return "", fmt.Errorf("parse error: %w", err)
	}
	plan, err := planner.Build(q)
	if err != nil {
		return "", fmt.Errorf("plan error: %w", err)
	}

	var sb strings.Builder
	const width = 60
	border := "+" + strings.Repeat("-", width+2) + "+"
	sb.WriteString(border + "\n")
	sb.WriteString(fmt.Sprintf("| %-*s |\n", width, "EXPLAIN Query Plan"))
	sb.WriteString(border + "\n")
	writePlanLine(&sb, plan, 0, width)
	sb.WriteString(border + "\n")
	return sb.String(), nil
}

func writePlanLine(sb *strings.Builder, p planner.Plan, depth int, width int) {
	indent := strings.Repeat("  ", depth)
	desc, child := describePlan(p)
	line := fmt.Sprintf("%s+-%s", indent, desc)
	sb.WriteString(fmt.Sprintf("| %-*s |\n", width, truncatePlanLine(line, width)))
	for _, c := range child {
		writePlanLine(sb, c, depth+1, width)
	}
}

func truncatePlanLine(s string, width int) string {
	if len(s) <= width {
		return s
	}
	return s[:width-3] + "..."
}

// describePlan returns one operator's one-line description and its
// children, walking every planner.Plan variant so EXPLAIN never silently
// drops a node type a future query shape introduces.
func describePlan(p planner.Plan) (string, []planner.Plan) {
	switch n := p.(type) {
	case *planner.ScanAllNodes:
		return fmt.Sprintf("AllNodesScan(%s)", n.Var), nil
	case *planner.ScanNodesByLabel:
		return fmt.Sprintf("NodeByLabelScan(%s:%s)", n.Var, n.Label), nil
	case *planner.ScanAllRels:
		return fmt.Sprintf("AllRelsScan(%s)", n.Var), nil
	case *planner.ScanRelsByType:
		return fmt.Sprintf("RelsByTypeScan(%s:%s)", n.Var, n.Type), nil
	case *planner.Expand:
		return fmt.Sprintf("Expand(%s-[%s]->%s)", n.FromVar, n.RelVar, n.ToVar), []planner.Plan{n.Input}
	case *planner.VarExpand:
		return fmt.Sprintf("VarLengthExpand(%s[%d..%d]%s)", n.FromVar, n.Min, n.Max, n.ToVar), []planner.Plan{n.Input}
	case *planner.OptionalExpand:
		return fmt.Sprintf("OptionalExpand(%s-[%s]->%s)", n.FromVar, n.RelVar, n.ToVar), []planner.Plan{n.Input}
	case *planner.OptionalMatch:
		return "OptionalMatch", []planner.Plan{n.Input, n.Subplan}
	case *planner.Filter:
		return "Filter", []planner.Plan{n.Input}
	case *planner.Project:
		return fmt.Sprintf("Project(distinct=%v, %d items)", n.Distinct, len(n.Items)), []planner.Plan{n.Input}
	case *planner.Aggregate:
		return fmt.Sprintf("EagerAggregation(%d aggregators)", len(n.Aggregators)), []planner.Plan{n.Input}
	case *planner.Sort:
		return fmt.Sprintf("Sort(%d keys)", len(n.Keys)), []planner.Plan{n.Input}
	case *planner.Skip:
		return "Skip", []planner.Plan{n.Input}
	case *planner.Limit:
		return "Limit", []planner.Plan{n.Input}
	case *planner.Unwind:
		return fmt.Sprintf("Unwind(%s)", n.Var), []planner.Plan{n.Input}
	case *planner.Create:
		return fmt.Sprintf("Create(%d pattern parts)", len(n.Pattern)), []planner.Plan{n.Input}
	case *planner.Merge:
		return "Merge", []planner.Plan{n.Input}
	case *planner.Set:
		return fmt.Sprintf("SetProperty(%d items)", len(n.Items)), []planner.Plan{n.Input}
	case *planner.Remove:
		return fmt.Sprintf("Remove(%d items)", len(n.Items)), []planner.Plan{n.Input}
	case *planner.Delete:
		op := "Delete"
		if n.Detach {
			op = "DetachDelete"
		}
		return op, []planner.Plan{n.Input}
	case *planner.Union:
		op := "Union"
		if n.All {
			op = "UnionAll"
		}
		return op, []planner.Plan{n.Left, n.Right}
	case *planner.CallSubquery:
		return "CallSubquery", []planner.Plan{n.Input, n.Subplan}
	case *planner.Eof:
		return "ProduceResults", []planner.Plan{n.Input}
	default:
		return fmt.Sprintf("%T", p), nil
	}
}
