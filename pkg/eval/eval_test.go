package eval_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/graphforge/pkg/ast"
	"github.com/orneryd/graphforge/pkg/eval"
	"github.com/orneryd/graphforge/pkg/token"
	"github.com/orneryd/graphforge/pkg/value"
)

func TestEvalArithmeticWidensIntToFloat(t *testing.T) {
	expr := &ast.BinaryExpr{Op: token.PLUS, Left: &ast.IntLiteral{Value: 1}, Right: &ast.FloatLiteral{Value: 2.5}}
	v, err := eval.Eval(nil, expr, eval.Row{})
	require.NoError(t, err)
	assert.Equal(t, value.Float(3.5), v)
}

func TestEvalDivisionByZeroYieldsNull(t *testing.T) {
	expr := &ast.BinaryExpr{Op: token.SLASH, Left: &ast.IntLiteral{Value: 1}, Right: &ast.IntLiteral{Value: 0}}
	v, err := eval.Eval(nil, expr, eval.Row{})
	require.NoError(t, err)
	assert.Equal(t, value.NullValue, v)
}

func TestEvalPropertyAccessOnNode(t *testing.T) {
	m := value.NewMap(value.MapEntry{Key: "name", Value: value.Str("Ada")})
	row := eval.Row{"n": value.Node{ID: 1, Labels: []string{"Person"}, Properties: m}}
	expr := &ast.PropertyAccess{Target: &ast.Variable{Name: "n"}, Name: "name"}
	v, err := eval.Eval(nil, expr, row)
	require.NoError(t, err)
	assert.Equal(t, value.Str("Ada"), v)
}

func TestEvalPropertyAccessMissingKeyYieldsNull(t *testing.T) {
	row := eval.Row{"n": value.Node{ID: 1, Properties: value.NewMap()}}
	expr := &ast.PropertyAccess{Target: &ast.Variable{Name: "n"}, Name: "missing"}
	v, err := eval.Eval(nil, expr, row)
	require.NoError(t, err)
	assert.Equal(t, value.NullValue, v)
}

func TestEvalListSubscriptNegativeIndex(t *testing.T) {
	row := eval.Row{"l": value.List{value.Int(1), value.Int(2), value.Int(3)}}
	expr := &ast.Subscript{Target: &ast.Variable{Name: "l"}, Index: &ast.IntLiteral{Value: -1}}
	v, err := eval.Eval(nil, expr, row)
	require.NoError(t, err)
	assert.Equal(t, value.Int(3), v)
}

func TestEvalSliceClampsOutOfRange(t *testing.T) {
	row := eval.Row{"l": value.List{value.Int(1), value.Int(2), value.Int(3)}}
	to := ast.Expression(&ast.IntLiteral{Value: 100})
	expr := &ast.Slice{Target: &ast.Variable{Name: "l"}, To: to}
	v, err := eval.Eval(nil, expr, row)
	require.NoError(t, err)
	assert.Equal(t, value.List{value.Int(1), value.Int(2), value.Int(3)}, v)
}

func TestEvalThreeValuedAnd(t *testing.T) {
	expr := &ast.BinaryExpr{Op: token.AND, Left: &ast.BoolLiteral{Value: false}, Right: &ast.NullLiteral{}}
	v, err := eval.Eval(nil, expr, eval.Row{})
	require.NoError(t, err)
	assert.Equal(t, value.Bool(false), v) // false AND Null == false, not Null
}

func TestEvalCaseSimpleForm(t *testing.T) {
	expr := &ast.CaseExpr{
		Operand: &ast.Variable{Name: "x"},
		Whens: []ast.WhenClause{
			{Condition: &ast.IntLiteral{Value: 1}, Result: &ast.StringLiteral{Value: "one"}},
		},
		Else: &ast.StringLiteral{Value: "other"},
	}
	row := eval.Row{"x": value.Int(1)}
	v, err := eval.Eval(nil, expr, row)
	require.NoError(t, err)
	assert.Equal(t, value.Str("one"), v)
}

func TestEvalListComprehensionFiltersAndProjects(t *testing.T) {
	expr := &ast.ListComprehension{
		Variable: "x",
		List:     &ast.ListExpr{Elements: []ast.Expression{&ast.IntLiteral{Value: 1}, &ast.IntLiteral{Value: 2}, &ast.IntLiteral{Value: 3}}},
		Where:    &ast.BinaryExpr{Op: token.GT, Left: &ast.Variable{Name: "x"}, Right: &ast.IntLiteral{Value: 1}},
		Project:  &ast.BinaryExpr{Op: token.ASTERISK, Left: &ast.Variable{Name: "x"}, Right: &ast.IntLiteral{Value: 10}},
	}
	v, err := eval.Eval(nil, expr, eval.Row{})
	require.NoError(t, err)
	assert.Equal(t, value.List{value.Int(20), value.Int(30)}, v)
}

func TestEvalFunctionCoalesceSkipsNull(t *testing.T) {
	expr := &ast.FunctionCall{Name: "coalesce", Args: []ast.Expression{&ast.NullLiteral{}, &ast.StringLiteral{Value: "fallback"}}}
	v, err := eval.Eval(nil, expr, eval.Row{})
	require.NoError(t, err)
	assert.Equal(t, value.Str("fallback"), v)
}

func TestEvalFunctionSizeOnList(t *testing.T) {
	expr := &ast.FunctionCall{Name: "size", Args: []ast.Expression{
		&ast.ListExpr{Elements: []ast.Expression{&ast.IntLiteral{Value: 1}, &ast.IntLiteral{Value: 2}}},
	}}
	v, err := eval.Eval(nil, expr, eval.Row{})
	require.NoError(t, err)
	assert.Equal(t, value.Int(2), v)
}

func TestEvalFunctionLabelsOnNode(t *testing.T) {
	row := eval.Row{"n": value.Node{ID: 1, Labels: []string{"Person", "Admin"}}}
	expr := &ast.FunctionCall{Name: "labels", Args: []ast.Expression{&ast.Variable{Name: "n"}}}
	v, err := eval.Eval(nil, expr, row)
	require.NoError(t, err)
	assert.Equal(t, value.List{value.Str("Person"), value.Str("Admin")}, v)
}

func TestEvalParameterMissingIsRuntimeError(t *testing.T) {
	_, err := eval.Eval(&eval.Context{Params: eval.Params{}}, &ast.Parameter{Name: "missing"}, eval.Row{})
	require.Error(t, err)
	rtErr, ok := err.(*eval.RuntimeError)
	require.True(t, ok)
	assert.Equal(t, "ParameterMissing", rtErr.Kind)
}

type stubSubquery struct {
	exists bool
	count  int64
}

func (s stubSubquery) Exists(q *ast.Query, row eval.Row) (bool, error) { return s.exists, nil }
func (s stubSubquery) Count(q *ast.Query, row eval.Row) (int64, error) { return s.count, nil }

func TestEvalExistsSubqueryDelegatesToRunner(t *testing.T) {
	ctx := &eval.Context{Subquery: stubSubquery{exists: true}}
	expr := &ast.ExistsSubquery{Query: &ast.Query{}}
	v, err := eval.Eval(ctx, expr, eval.Row{})
	require.NoError(t, err)
	assert.Equal(t, value.Bool(true), v)
}

func TestEvalCountSubqueryDelegatesToRunner(t *testing.T) {
	ctx := &eval.Context{Subquery: stubSubquery{count: 3}}
	expr := &ast.CountSubquery{Query: &ast.Query{}}
	v, err := eval.Eval(ctx, expr, eval.Row{})
	require.NoError(t, err)
	assert.Equal(t, value.Int(3), v)
}
