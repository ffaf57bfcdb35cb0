package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/graphforge/pkg/ast"
	"github.com/orneryd/graphforge/pkg/parser"
)

func parseOne(t *testing.T, text string) *ast.Query {
	t.Helper()
	q, err := parser.Parse(text)
	require.NoError(t, err)
	require.NotNil(t, q)
	return q
}

func TestParseSimpleMatchReturn(t *testing.T) {
	q := parseOne(t, "MATCH (n:Person) RETURN n.name AS name")
	require.Len(t, q.Clauses, 2)

	m, ok := q.Clauses[0].(*ast.MatchClause)
	require.True(t, ok)
	require.Len(t, m.Pattern, 1)
	assert.Equal(t, "n", m.Pattern[0].Start.Name)
	require.NotNil(t, m.Pattern[0].Start.Labels)
	assert.Equal(t, ast.LabelName, m.Pattern[0].Start.Labels.Kind)
	assert.Equal(t, "Person", m.Pattern[0].Start.Labels.Name)

	ret, ok := q.Clauses[1].(*ast.ReturnClause)
	require.True(t, ok)
	require.Len(t, ret.Items, 1)
	assert.Equal(t, "name", ret.Items[0].Alias)
}

func TestParseRelationshipPatternWithDirectionAndType(t *testing.T) {
	q := parseOne(t, "MATCH (a)-[r:KNOWS]->(b) RETURN r")
	m := q.Clauses[0].(*ast.MatchClause)
	part := m.Pattern[0]
	require.Len(t, part.Steps, 1)
	step := part.Steps[0]
	assert.Equal(t, ast.DirRight, step.Rel.Direction)
	assert.Equal(t, "r", step.Rel.Name)
	require.NotNil(t, step.Rel.Types)
	assert.Equal(t, "KNOWS", step.Rel.Types.Name)
}

func TestParseVariableLengthRelationship(t *testing.T) {
	q := parseOne(t, "MATCH (a)-[:LINK*1..3]-(b) RETURN a")
	m := q.Clauses[0].(*ast.MatchClause)
	rel := m.Pattern[0].Steps[0].Rel
	assert.True(t, rel.Variable)
	assert.Equal(t, 1, rel.Min)
	assert.Equal(t, 3, rel.Max)
	assert.Equal(t, ast.DirEither, rel.Direction)
}

func TestParseLabelExpressionConjunctionDisjunctionNegation(t *testing.T) {
	q := parseOne(t, "MATCH (n:A&B) RETURN n")
	labels := q.Clauses[0].(*ast.MatchClause).Pattern[0].Start.Labels
	assert.Equal(t, ast.LabelAnd, labels.Kind)

	q2 := parseOne(t, "MATCH (n:A|B) RETURN n")
	labels2 := q2.Clauses[0].(*ast.MatchClause).Pattern[0].Start.Labels
	assert.Equal(t, ast.LabelOr, labels2.Kind)

	q3 := parseOne(t, "MATCH (n:!A) RETURN n")
	labels3 := q3.Clauses[0].(*ast.MatchClause).Pattern[0].Start.Labels
	assert.Equal(t, ast.LabelNot, labels3.Kind)
}

func TestParseWhereClauseAttachesToMatch(t *testing.T) {
	q := parseOne(t, "MATCH (n:Person) WHERE n.age > 30 RETURN n")
	m := q.Clauses[0].(*ast.MatchClause)
	require.NotNil(t, m.Where)
	bin, ok := m.Where.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "age", bin.Left.(*ast.PropertyAccess).Name)
}

func TestParseArithmeticPrecedence(t *testing.T) {
	q := parseOne(t, "RETURN 1 + 2 * 3 AS x")
	item := q.Clauses[0].(*ast.ReturnClause).Items[0]
	bin := item.Expr.(*ast.BinaryExpr)
	_, isMul := bin.Right.(*ast.BinaryExpr)
	assert.True(t, isMul, "expected 2*3 to bind tighter than +")
}

func TestParsePowerIsRightAssociativeAndHighestPrecedence(t *testing.T) {
	q := parseOne(t, "RETURN 2 ^ 3 ^ 2 AS x")
	item := q.Clauses[0].(*ast.ReturnClause).Items[0]
	top := item.Expr.(*ast.BinaryExpr)
	_, rightIsPower := top.Right.(*ast.BinaryExpr)
	assert.True(t, rightIsPower, "2^3^2 should parse as 2^(3^2)")
}

func TestParseUnaryMinusBindsLooserThanPower(t *testing.T) {
	q := parseOne(t, "RETURN -2 ^ 2 AS x")
	item := q.Clauses[0].(*ast.ReturnClause).Items[0]
	unary, ok := item.Expr.(*ast.UnaryExpr)
	require.True(t, ok, "expected -2^2 to parse as -(2^2)")
	_, isPower := unary.Operand.(*ast.BinaryExpr)
	assert.True(t, isPower)
}

func TestParseWithOrderBySkipLimit(t *testing.T) {
	q := parseOne(t, "MATCH (n) WITH n ORDER BY n.age DESC SKIP 1 LIMIT 10 RETURN n")
	w := q.Clauses[1].(*ast.WithClause)
	require.Len(t, w.OrderBy, 1)
	assert.True(t, w.OrderBy[0].Descending)
	require.NotNil(t, w.Skip)
	require.NotNil(t, w.Limit)
}

func TestParseUnwind(t *testing.T) {
	q := parseOne(t, "UNWIND [1, 2, 3] AS x RETURN x")
	u := q.Clauses[0].(*ast.UnwindClause)
	assert.Equal(t, "x", u.As)
	list, ok := u.Expr.(*ast.ListExpr)
	require.True(t, ok)
	assert.Len(t, list.Elements, 3)
}

func TestParseCreateAndSetAndDelete(t *testing.T) {
	q := parseOne(t, "CREATE (n:Person {name: 'Ada'}) SET n.age = 30 DETACH DELETE n")
	_, isCreate := q.Clauses[0].(*ast.CreateClause)
	assert.True(t, isCreate)
	set, ok := q.Clauses[1].(*ast.SetClause)
	require.True(t, ok)
	require.Len(t, set.Items, 1)
	del, ok := q.Clauses[2].(*ast.DeleteClause)
	require.True(t, ok)
	assert.True(t, del.Detach)
}

func TestParseMergeWithOnCreateOnMatch(t *testing.T) {
	q := parseOne(t, "MERGE (n:Person {name: 'Ada'}) ON CREATE SET n.created = true ON MATCH SET n.seen = true")
	m := q.Clauses[0].(*ast.MergeClause)
	require.Len(t, m.OnCreate, 1)
	require.Len(t, m.OnMatch, 1)
}

func TestParseUnionAll(t *testing.T) {
	q := parseOne(t, "MATCH (n:A) RETURN n.x AS v UNION ALL MATCH (n:B) RETURN n.y AS v")
	require.Len(t, q.Unions, 1)
	assert.True(t, q.Unions[0].All)
}

func TestParseCaseExpression(t *testing.T) {
	q := parseOne(t, "RETURN CASE WHEN true THEN 1 ELSE 2 END AS x")
	item := q.Clauses[0].(*ast.ReturnClause).Items[0]
	ce, ok := item.Expr.(*ast.CaseExpr)
	require.True(t, ok)
	require.Len(t, ce.Whens, 1)
	require.NotNil(t, ce.Else)
}

func TestParseExistsAndCountSubquery(t *testing.T) {
	q := parseOne(t, "MATCH (n) WHERE EXISTS { MATCH (n)-->(m) } RETURN n")
	m := q.Clauses[0].(*ast.MatchClause)
	_, ok := m.Where.(*ast.ExistsSubquery)
	require.True(t, ok)

	q2 := parseOne(t, "MATCH (n) RETURN COUNT { MATCH (n)-->(m) } AS c")
	item := q2.Clauses[1].(*ast.ReturnClause).Items[0]
	_, ok2 := item.Expr.(*ast.CountSubquery)
	require.True(t, ok2)
}

func TestParseCallSubqueryWithImportingList(t *testing.T) {
	q := parseOne(t, "MATCH (n) CALL (n) { RETURN n.name AS name } RETURN name")
	call := q.Clauses[1].(*ast.CallSubqueryClause)
	assert.Equal(t, []string{"n"}, call.Importing)
	require.NotNil(t, call.Query)
}

func TestParseListSliceAndSubscript(t *testing.T) {
	q := parseOne(t, "RETURN [1,2,3][0] AS first, [1,2,3][1..] AS rest")
	items := q.Clauses[0].(*ast.ReturnClause).Items
	_, ok := items[0].Expr.(*ast.Subscript)
	assert.True(t, ok)
	_, ok2 := items[1].Expr.(*ast.Slice)
	assert.True(t, ok2)
}

func TestParseInvalidQueryProducesParseError(t *testing.T) {
	_, err := parser.Parse("MATCH (n RETURN n")
	require.Error(t, err)
	var perr *parser.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Greater(t, perr.Line, 0)
}
