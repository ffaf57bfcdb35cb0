// Package eval implements C5, the expression evaluator: turning one
// ast.Expression plus a current row of bindings into a value.Value,
// following the same "closed set of variants dispatched by type switch"
// idiom the AST and plan types use (§4.5).
package eval

import (
	"fmt"
	"strings"

	"github.com/orneryd/graphforge/pkg/ast"
	"github.com/orneryd/graphforge/pkg/token"
	"github.com/orneryd/graphforge/pkg/value"
)

// Row is one binding frame: the variable/column names currently in scope
// mapped to their bound value. Rows are never mutated in place by Eval —
// operators in pkg/executor build successor rows by copying and extending.
type Row map[string]value.Value

// RuntimeError is a typed evaluation-time failure (§7), distinct from the
// planner's SemanticError (plan-time) and the parser's ParseError
// (parse-time).
type RuntimeError struct {
	Kind    string // e.g. "TypeError", "ParameterMissing"
	Message string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func typeErr(format string, args ...interface{}) error {
	return &RuntimeError{Kind: "TypeError", Message: fmt.Sprintf(format, args...)}
}

// Params is the query's parameter map ($name lookups), separate from Row
// so that a parameter reference never shadows or is shadowed by a bound
// variable.
type Params map[string]value.Value

// SubqueryRunner executes a nested ast.Query correlated against the
// current row, used for EXISTS{}/COUNT{} and list-comprehension WHERE
// clauses that need full pattern matching rather than pure expression
// evaluation. pkg/executor supplies the concrete implementation so pkg/eval
// never imports pkg/storage or pkg/planner directly, keeping the
// dependency direction the same as the teacher's own
// evaluator-calls-storage-through-an-interface shape.
type SubqueryRunner interface {
	// Count returns the number of result rows the query produces when
	// correlated against row.
	Count(query *ast.Query, row Row) (int64, error)
	// Exists reports whether the query produces at least one result row.
	Exists(query *ast.Query, row Row) (bool, error)
}

// Context carries everything Eval needs beyond the expression and row.
type Context struct {
	Params   Params
	Subquery SubqueryRunner
}

// Eval evaluates expr against row, following §4.5's widening, three-valued
// logic, and Null-propagation rules (all delegated to pkg/value).
func Eval(ctx *Context, expr ast.Expression, row Row) (value.Value, error) {
	switch e := expr.(type) {
	case *ast.NullLiteral:
		return value.NullValue, nil
	case *ast.BoolLiteral:
		return value.Bool(e.Value), nil
	case *ast.IntLiteral:
		return value.Int(e.Value), nil
	case *ast.FloatLiteral:
		return value.Float(e.Value), nil
	case *ast.StringLiteral:
		return value.Str(e.Value), nil
	case *ast.Variable:
		if v, ok := row[e.Name]; ok {
			return v, nil
		}
		return value.NullValue, nil
	case *ast.Parameter:
		if ctx != nil {
			if v, ok := ctx.Params[e.Name]; ok {
				return v, nil
			}
		}
		return nil, &RuntimeError{Kind: "ParameterMissing", Message: fmt.Sprintf("parameter $%s was not supplied", e.Name)}
	case *ast.ListExpr:
		return evalList(ctx, e, row)
	case *ast.MapExpr:
		return evalMap(ctx, e, row)
	case *ast.PropertyAccess:
		return evalPropertyAccess(ctx, e, row)
	case *ast.Subscript:
		return evalSubscript(ctx, e, row)
	case *ast.Slice:
		return evalSlice(ctx, e, row)
	case *ast.BinaryExpr:
		return evalBinary(ctx, e, row)
	case *ast.UnaryExpr:
		return evalUnary(ctx, e, row)
	case *ast.IsNullExpr:
		return evalIsNull(ctx, e, row)
	case *ast.FunctionCall:
		return evalFunctionCall(ctx, e, row)
	case *ast.CaseExpr:
		return evalCase(ctx, e, row)
	case *ast.ListComprehension:
		return evalListComprehension(ctx, e, row)
	case *ast.PatternPredicate:
		// A bare pattern predicate used inside WHERE (not EXISTS{}) is
		// evaluated the same way EXISTS{} is: true iff the pattern has
		// at least one match against the current bindings.
		return evalPatternPredicateAsExists(ctx, e, row)
	case *ast.ExistsSubquery:
		return evalExists(ctx, e, row)
	case *ast.CountSubquery:
		return evalCount(ctx, e, row)
	}
	return nil, typeErr("cannot evaluate expression of type %T", expr)
}

func evalList(ctx *Context, e *ast.ListExpr, row Row) (value.Value, error) {
	out := make(value.List, 0, len(e.Elements))
	for _, el := range e.Elements {
		v, err := Eval(ctx, el, row)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func evalMap(ctx *Context, e *ast.MapExpr, row Row) (value.Value, error) {
	m := value.NewMap()
	for _, entry := range e.Entries {
		v, err := Eval(ctx, entry.Value, row)
		if err != nil {
			return nil, err
		}
		m.Set(entry.Key, v)
	}
	return m, nil
}

func evalPropertyAccess(ctx *Context, e *ast.PropertyAccess, row Row) (value.Value, error) {
	target, err := Eval(ctx, e.Target, row)
	if err != nil {
		return nil, err
	}
	switch t := target.(type) {
	case value.Null:
		return value.NullValue, nil
	case value.Node:
		return t.Properties.GetOrNull(e.Name), nil
	case value.Rel:
		return t.Properties.GetOrNull(e.Name), nil
	case value.Map:
		return t.GetOrNull(e.Name), nil
	default:
		return nil, typeErr("property access on a %s value", target.Kind())
	}
}

func evalSubscript(ctx *Context, e *ast.Subscript, row Row) (value.Value, error) {
	target, err := Eval(ctx, e.Target, row)
	if err != nil {
		return nil, err
	}
	idx, err := Eval(ctx, e.Index, row)
	if err != nil {
		return nil, err
	}
	if _, ok := target.(value.Null); ok {
		return value.NullValue, nil
	}
	if _, ok := idx.(value.Null); ok {
		return value.NullValue, nil
	}
	switch t := target.(type) {
	case value.List:
		i, ok := idx.(value.Int)
		if !ok {
			return nil, typeErr("list index must be an integer, got %s", idx.Kind())
		}
		n := int64(len(t))
		pos := int64(i)
		if pos < 0 {
			pos += n
		}
		if pos < 0 || pos >= n {
			return value.NullValue, nil
		}
		return t[pos], nil
	case value.Map:
		key, ok := idx.(value.Str)
		if !ok {
			return nil, typeErr("map index must be a string, got %s", idx.Kind())
		}
		return t.GetOrNull(string(key)), nil
	default:
		return nil, typeErr("cannot subscript a %s value", target.Kind())
	}
}

func evalSlice(ctx *Context, e *ast.Slice, row Row) (value.Value, error) {
	target, err := Eval(ctx, e.Target, row)
	if err != nil {
		return nil, err
	}
	list, ok := target.(value.List)
	if !ok {
		if _, isNull := target.(value.Null); isNull {
			return value.NullValue, nil
		}
		return nil, typeErr("cannot slice a %s value", target.Kind())
	}
	n := int64(len(list))
	from, err := sliceBound(ctx, e.From, row, 0, n)
	if err != nil {
		return nil, err
	}
	to, err := sliceBound(ctx, e.To, row, n, n)
	if err != nil {
		return nil, err
	}
	if from < 0 {
		from = 0
	}
	if to > n {
		to = n
	}
	if from >= to {
		return value.List{}, nil
	}
	return append(value.List{}, list[from:to]...), nil
}

func sliceBound(ctx *Context, expr ast.Expression, row Row, deflt, n int64) (int64, error) {
	if expr == nil {
		return deflt, nil
	}
	v, err := Eval(ctx, expr, row)
	if err != nil {
		return 0, err
	}
	i, ok := v.(value.Int)
	if !ok {
		return 0, typeErr("slice bound must be an integer, got %s", v.Kind())
	}
	pos := int64(i)
	if pos < 0 {
		pos += n
	}
	return pos, nil
}

func evalUnary(ctx *Context, e *ast.UnaryExpr, row Row) (value.Value, error) {
	v, err := Eval(ctx, e.Operand, row)
	if err != nil {
		return nil, err
	}
	switch e.Op {
	case token.MINUS:
		return value.Neg(v)
	case token.NOT:
		return value.Not(v), nil
	}
	return nil, typeErr("unsupported unary operator %s", e.Op)
}

func evalIsNull(ctx *Context, e *ast.IsNullExpr, row Row) (value.Value, error) {
	v, err := Eval(ctx, e.Operand, row)
	if err != nil {
		return nil, err
	}
	_, isNull := v.(value.Null)
	if e.Not {
		return value.Bool(!isNull), nil
	}
	return value.Bool(isNull), nil
}

func evalBinary(ctx *Context, e *ast.BinaryExpr, row Row) (value.Value, error) {
	// AND/OR/XOR short-circuit-free three-valued logic needs both sides
	// evaluated regardless (Null AND false is false even though Null is
	// "unknown"), so they are handled first without a shared eager path.
	switch e.Op {
	case token.AND:
		l, err := Eval(ctx, e.Left, row)
		if err != nil {
			return nil, err
		}
		r, err := Eval(ctx, e.Right, row)
		if err != nil {
			return nil, err
		}
		return value.And(l, r), nil
	case token.OR:
		l, err := Eval(ctx, e.Left, row)
		if err != nil {
			return nil, err
		}
		r, err := Eval(ctx, e.Right, row)
		if err != nil {
			return nil, err
		}
		return value.Or(l, r), nil
	case token.XOR:
		l, err := Eval(ctx, e.Left, row)
		if err != nil {
			return nil, err
		}
		r, err := Eval(ctx, e.Right, row)
		if err != nil {
			return nil, err
		}
		return value.Xor(l, r), nil
	}

	l, err := Eval(ctx, e.Left, row)
	if err != nil {
		return nil, err
	}
	r, err := Eval(ctx, e.Right, row)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case token.PLUS:
		return value.Add(l, r)
	case token.MINUS:
		return value.Sub(l, r)
	case token.ASTERISK:
		return value.Mul(l, r)
	case token.SLASH:
		return value.Div(l, r)
	case token.PERCENT:
		return value.Mod(l, r)
	case token.CARET:
		return value.Pow(l, r)
	case token.EQ:
		return value.Equal(l, r), nil
	case token.NEQ:
		return value.Not(value.Equal(l, r)), nil
	case token.LT:
		return value.Less3(l, r), nil
	case token.LTE:
		return value.LessEq3(l, r), nil
	case token.GT:
		return value.Greater3(l, r), nil
	case token.GTE:
		return value.GreaterEq3(l, r), nil
	case token.IN:
		return value.In(l, r), nil
	case token.STARTS:
		return stringPredicate(l, r, strings.HasPrefix)
	case token.ENDS:
		return stringPredicate(l, r, strings.HasSuffix)
	case token.CONTAINS:
		return stringPredicate(l, r, strings.Contains)
	}
	return nil, typeErr("unsupported binary operator %s", e.Op)
}

func stringPredicate(l, r value.Value, pred func(s, substr string) bool) (value.Value, error) {
	if _, ok := l.(value.Null); ok {
		return value.NullValue, nil
	}
	if _, ok := r.(value.Null); ok {
		return value.NullValue, nil
	}
	ls, ok := l.(value.Str)
	if !ok {
		return nil, typeErr("expected String, got %s", l.Kind())
	}
	rs, ok := r.(value.Str)
	if !ok {
		return nil, typeErr("expected String, got %s", r.Kind())
	}
	return value.Bool(pred(string(ls), string(rs))), nil
}

func evalCase(ctx *Context, e *ast.CaseExpr, row Row) (value.Value, error) {
	var operand value.Value
	if e.Operand != nil {
		v, err := Eval(ctx, e.Operand, row)
		if err != nil {
			return nil, err
		}
		operand = v
	}
	for _, when := range e.Whens {
		if operand != nil {
			cmpVal, err := Eval(ctx, when.Condition, row)
			if err != nil {
				return nil, err
			}
			if value.IsTruthy(value.Equal(operand, cmpVal)) {
				return Eval(ctx, when.Result, row)
			}
			continue
		}
		cond, err := Eval(ctx, when.Condition, row)
		if err != nil {
			return nil, err
		}
		if value.IsTruthy(cond) {
			return Eval(ctx, when.Result, row)
		}
	}
	if e.Else != nil {
		return Eval(ctx, e.Else, row)
	}
	return value.NullValue, nil
}

func evalListComprehension(ctx *Context, e *ast.ListComprehension, row Row) (value.Value, error) {
	listVal, err := Eval(ctx, e.List, row)
	if err != nil {
		return nil, err
	}
	list, ok := listVal.(value.List)
	if !ok {
		if _, isNull := listVal.(value.Null); isNull {
			return value.NullValue, nil
		}
		return nil, typeErr("list comprehension source must be a List, got %s", listVal.Kind())
	}
	out := make(value.List, 0, len(list))
	for _, item := range list {
		inner := cloneRow(row)
		inner[e.Variable] = item
		if e.Where != nil {
			cond, err := Eval(ctx, e.Where, inner)
			if err != nil {
				return nil, err
			}
			if !value.IsTruthy(cond) {
				continue
			}
		}
		if e.Project == nil {
			out = append(out, item)
			continue
		}
		projected, err := Eval(ctx, e.Project, inner)
		if err != nil {
			return nil, err
		}
		out = append(out, projected)
	}
	return out, nil
}

func cloneRow(row Row) Row {
	out := make(Row, len(row)+1)
	for k, v := range row {
		out[k] = v
	}
	return out
}

func evalPatternPredicateAsExists(ctx *Context, e *ast.PatternPredicate, row Row) (value.Value, error) {
	if ctx == nil || ctx.Subquery == nil {
		return nil, typeErr("pattern predicate requires a subquery runner")
	}
	q := &ast.Query{Clauses: []ast.Clause{
		&ast.MatchClause{Pattern: []ast.PathPart{e.Pattern}},
		&ast.ReturnClause{Items: []ast.ProjectionItem{{Star: true}}},
	}}
	ok, err := ctx.Subquery.Exists(q, row)
	if err != nil {
		return nil, err
	}
	return value.Bool(ok), nil
}

func evalExists(ctx *Context, e *ast.ExistsSubquery, row Row) (value.Value, error) {
	if ctx == nil || ctx.Subquery == nil {
		return nil, typeErr("EXISTS{} requires a subquery runner")
	}
	ok, err := ctx.Subquery.Exists(e.Query, row)
	if err != nil {
		return nil, err
	}
	return value.Bool(ok), nil
}

func evalCount(ctx *Context, e *ast.CountSubquery, row Row) (value.Value, error) {
	if ctx == nil || ctx.Subquery == nil {
		return nil, typeErr("COUNT{} requires a subquery runner")
	}
	n, err := ctx.Subquery.Count(e.Query, row)
	if err != nil {
		return nil, err
	}
	return value.Int(n), nil
}
