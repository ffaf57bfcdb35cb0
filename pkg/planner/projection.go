package planner

import (
	"strconv"

	"github.com/orneryd/graphforge/pkg/ast"
)

// buildProjection lowers a WITH or RETURN clause: alias validation,
// aggregation detection (§4.4: "grouping keys are every non-aggregate
// projection item"), DISTINCT, ORDER BY/SKIP/LIMIT, and — for WITH only —
// the projection barrier that resets scope to exactly the projected names.
func buildProjection(
	cur Plan, sc *scope,
	items []ast.ProjectionItem, where ast.Expression,
	orderBy []ast.OrderItem, skip, limit ast.Expression,
	distinct bool, isWith bool,
) (Plan, *scope, error) {
	if !isWith {
		// RETURN names an unaliased item that is neither a bare variable
		// nor an aggregate call col_<index>; under WITH such an item
		// reaches resolveItems unaliased and is rejected there.
		named := append([]ast.ProjectionItem(nil), items...)
		for i := range named {
			_, isVar := named[i].Expr.(*ast.Variable)
			fc, isCall := named[i].Expr.(*ast.FunctionCall)
			if named[i].Star || named[i].Alias != "" || isVar || (isCall && aggregateFuncs[lower(fc.Name)]) {
				continue
			}
			named[i].Alias = "col_" + strconv.Itoa(i)
		}
		items = named
	}
	projItems, aggregators, groupingKeys, err := resolveItems(sc, items)
	if err != nil {
		return nil, nil, err
	}

	var plan Plan = cur
	if len(aggregators) > 0 {
		plan = &Aggregate{Input: plan, GroupingKeys: groupingKeys, Aggregators: aggregators}
	} else {
		plan = &Project{Input: plan, Items: projItems, Distinct: distinct}
	}

	out := newScope()
	for _, it := range projItems {
		out.bind(it.Alias)
	}
	for _, agg := range aggregators {
		out.bind(agg.Alias)
	}

	if len(aggregators) > 0 && distinct {
		// DISTINCT after aggregation applies to the full output tuple,
		// not to any single aggregator's argument; a Project wrapper
		// re-expresses that without duplicating the aggregate logic.
		passthrough := make([]ProjectItem, 0, len(out.order))
		for _, name := range out.order {
			passthrough = append(passthrough, ProjectItem{Expr: &ast.Variable{Name: name}, Alias: name})
		}
		plan = &Project{Input: plan, Items: passthrough, Distinct: true}
	}

	if where != nil {
		plan = &Filter{Input: plan, Predicate: where}
	}
	if len(orderBy) > 0 {
		keys := make([]SortKey, 0, len(orderBy))
		for _, o := range orderBy {
			keys = append(keys, SortKey{Expr: o.Expr, Descending: o.Descending})
		}
		plan = &Sort{Input: plan, Keys: keys}
	}
	if skip != nil {
		plan = &Skip{Input: plan, Expr: skip}
	}
	if limit != nil {
		plan = &Limit{Input: plan, Expr: limit}
	}

	if isWith {
		// WITH is a hard scope barrier: only the names it projects
		// (under their new aliases) remain visible downstream.
		return plan, out, nil
	}
	// RETURN does not change scope; nothing follows it in the same
	// clause sequence, but CALL subqueries reuse this path for their
	// trailing RETURN, where the caller decides what to import back.
	merged := sc.clone()
	for _, name := range out.order {
		merged.bind(name)
	}
	return plan, merged, nil
}

// resolveItems expands `RETURN *` / `WITH *`, assigns default aliases for
// bare-variable items, rejects unaliased non-variable expressions and
// duplicate aliases, and splits aggregate calls out from plain projections.
func resolveItems(sc *scope, items []ast.ProjectionItem) ([]ProjectItem, []Aggregator, []ProjectItem, error) {
	seen := map[string]bool{}
	var plain []ProjectItem
	var aggregators []Aggregator
	var groupingKeys []ProjectItem

	for _, item := range items {
		if item.Star {
			for _, name := range sc.order {
				if seen[name] {
					return nil, nil, nil, semErr(ColumnNameConflict, "column %q projected more than once", name)
				}
				seen[name] = true
				pi := ProjectItem{Expr: &ast.Variable{Name: name}, Alias: name}
				plain = append(plain, pi)
				groupingKeys = append(groupingKeys, pi)
			}
			continue
		}

		alias := item.Alias
		if alias == "" {
			if v, ok := item.Expr.(*ast.Variable); ok {
				alias = v.Name
			} else if fc, ok := item.Expr.(*ast.FunctionCall); ok && aggregateFuncs[lower(fc.Name)] {
				// Unaliased aggregates default to the function name
				// itself, the same implicit-column-name convention
				// openCypher uses for `count(n)` with no AS.
				alias = lower(fc.Name)
			} else {
				return nil, nil, nil, semErr(NoExpressionAlias, "expression requires an alias")
			}
		}
		if seen[alias] {
			return nil, nil, nil, semErr(ColumnNameConflict, "column %q projected more than once", alias)
		}
		seen[alias] = true

		if fc, ok := item.Expr.(*ast.FunctionCall); ok && aggregateFuncs[lower(fc.Name)] {
			var arg, arg2 ast.Expression
			if len(fc.Args) > 0 {
				arg = fc.Args[0]
			}
			if len(fc.Args) > 1 {
				arg2 = fc.Args[1]
			}
			aggregators = append(aggregators, Aggregator{Func: lower(fc.Name), Arg: arg, Arg2: arg2, Distinct: fc.Distinct, Alias: alias})
			continue
		}

		pi := ProjectItem{Expr: item.Expr, Alias: alias}
		plain = append(plain, pi)
		groupingKeys = append(groupingKeys, pi)
	}

	return plain, aggregators, groupingKeys, nil
}

func lower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
