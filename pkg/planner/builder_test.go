package planner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/graphforge/pkg/ast"
	"github.com/orneryd/graphforge/pkg/parser"
	"github.com/orneryd/graphforge/pkg/planner"
)

func buildOne(t *testing.T, text string) planner.Plan {
	t.Helper()
	q, err := parser.Parse(text)
	require.NoError(t, err)
	p, err := planner.Build(q)
	require.NoError(t, err)
	return p
}

func unwrapEof(t *testing.T, p planner.Plan) planner.Plan {
	t.Helper()
	eof, ok := p.(*planner.Eof)
	require.True(t, ok)
	return eof.Input
}

func TestBuildSimpleMatchReturnProducesScanThenProject(t *testing.T) {
	p := unwrapEof(t, buildOne(t, "MATCH (n:Person) RETURN n.name AS name"))

	project, ok := p.(*planner.Project)
	require.True(t, ok)
	require.Len(t, project.Items, 1)
	assert.Equal(t, "name", project.Items[0].Alias)

	scan, ok := project.Input.(*planner.ScanNodesByLabel)
	require.True(t, ok)
	assert.Equal(t, "Person", scan.Label)
	assert.Equal(t, "n", scan.Var)
}

func TestBuildRelationshipPatternProducesExpand(t *testing.T) {
	p := unwrapEof(t, buildOne(t, "MATCH (a:Person)-[r:KNOWS]->(b:Person) RETURN b"))

	project := p.(*planner.Project)
	expand, ok := project.Input.(*planner.Expand)
	require.True(t, ok)
	assert.Equal(t, "a", expand.FromVar)
	assert.Equal(t, "r", expand.RelVar)
	assert.Equal(t, "b", expand.ToVar)
	assert.Equal(t, []string{"KNOWS"}, expand.Types)

	_, ok = expand.Input.(*planner.ScanNodesByLabel)
	require.True(t, ok)
}

func TestBuildVariableLengthRelationshipProducesVarExpand(t *testing.T) {
	p := unwrapEof(t, buildOne(t, "MATCH (a)-[r:KNOWS*1..3]->(b) RETURN b"))
	project := p.(*planner.Project)
	varExpand, ok := project.Input.(*planner.VarExpand)
	require.True(t, ok)
	assert.Equal(t, 1, varExpand.Min)
	assert.Equal(t, 3, varExpand.Max)
}

func TestBuildWhereIsFoldedAsFilterAfterPattern(t *testing.T) {
	p := unwrapEof(t, buildOne(t, "MATCH (n:Person) WHERE n.age > 30 RETURN n"))
	project := p.(*planner.Project)
	filter, ok := project.Input.(*planner.Filter)
	require.True(t, ok)
	_, ok = filter.Input.(*planner.ScanNodesByLabel)
	require.True(t, ok)
}

func TestBuildInlinePropertyMapBecomesFilter(t *testing.T) {
	p := unwrapEof(t, buildOne(t, "MATCH (n:Person {name: 'Bob'}) RETURN n"))
	project := p.(*planner.Project)
	filter, ok := project.Input.(*planner.Filter)
	require.True(t, ok)
	_, ok = filter.Input.(*planner.ScanNodesByLabel)
	require.True(t, ok)
}

func TestBuildWithActsAsScopeBarrier(t *testing.T) {
	p := unwrapEof(t, buildOne(t, "MATCH (n:Person) WITH n.name AS name RETURN name"))
	outerProject := p.(*planner.Project)
	innerProject, ok := outerProject.Input.(*planner.Project)
	require.True(t, ok)
	assert.Equal(t, "name", innerProject.Items[0].Alias)
}

func TestBuildAggregationGroupsByNonAggregateItems(t *testing.T) {
	p := unwrapEof(t, buildOne(t, "MATCH (n:Person) RETURN n.city AS city, count(n) AS total"))
	agg, ok := p.(*planner.Aggregate)
	require.True(t, ok)
	require.Len(t, agg.GroupingKeys, 1)
	assert.Equal(t, "city", agg.GroupingKeys[0].Alias)
	require.Len(t, agg.Aggregators, 1)
	assert.Equal(t, "count", agg.Aggregators[0].Func)
	assert.Equal(t, "total", agg.Aggregators[0].Alias)
}

func TestBuildUnwindBindsVariable(t *testing.T) {
	p := unwrapEof(t, buildOne(t, "UNWIND [1,2,3] AS x RETURN x"))
	project := p.(*planner.Project)
	unwind, ok := project.Input.(*planner.Unwind)
	require.True(t, ok)
	assert.Equal(t, "x", unwind.Var)
}

func TestBuildOptionalMatchWrapsSubplan(t *testing.T) {
	p := unwrapEof(t, buildOne(t, "MATCH (n:Person) OPTIONAL MATCH (n)-[:KNOWS]->(f) RETURN n, f"))
	project := p.(*planner.Project)
	opt, ok := project.Input.(*planner.OptionalMatch)
	require.True(t, ok)
	_, ok = opt.Subplan.(*planner.Expand)
	require.True(t, ok)
}

func TestBuildCreateLowersPattern(t *testing.T) {
	p := unwrapEof(t, buildOne(t, "CREATE (n:Person {name: 'Ada'})"))
	create, ok := p.(*planner.Create)
	require.True(t, ok)
	require.Len(t, create.Pattern, 1)
}

func TestBuildMergeLowersOnCreateOnMatch(t *testing.T) {
	p := unwrapEof(t, buildOne(t, "MERGE (n:Person {name: 'Ada'}) ON CREATE SET n.created = true ON MATCH SET n.seen = true"))
	merge, ok := p.(*planner.Merge)
	require.True(t, ok)
	assert.Len(t, merge.OnCreate, 1)
	assert.Len(t, merge.OnMatch, 1)
}

func TestBuildDetachDeleteSetsFlag(t *testing.T) {
	p := unwrapEof(t, buildOne(t, "MATCH (n:Person) DETACH DELETE n"))
	del, ok := p.(*planner.Delete)
	require.True(t, ok)
	assert.True(t, del.Detach)
}

func TestBuildUnionRequiresMatchingColumnCount(t *testing.T) {
	_, err := planner.Build(mustParse(t, "RETURN 1 AS a UNION RETURN 1 AS a, 2 AS b"))
	require.Error(t, err)
	semErr, ok := err.(*planner.SemanticError)
	require.True(t, ok)
	assert.Equal(t, planner.UnionShapeMismatch, semErr.Kind)
}

func TestBuildUnionWithMatchingShapeSucceeds(t *testing.T) {
	p, err := planner.Build(mustParse(t, "RETURN 1 AS a UNION ALL RETURN 2 AS a"))
	require.NoError(t, err)
	eof := p.(*planner.Eof)
	union, ok := eof.Input.(*planner.Union)
	require.True(t, ok)
	assert.True(t, union.All)
}

func TestBuildNoExpressionAliasIsRejected(t *testing.T) {
	_, err := planner.Build(mustParse(t, "WITH 1 + 2 RETURN 1"))
	require.Error(t, err)
	semErr, ok := err.(*planner.SemanticError)
	require.True(t, ok)
	assert.Equal(t, planner.NoExpressionAlias, semErr.Kind)
}

func TestBuildDuplicateColumnNameIsRejected(t *testing.T) {
	_, err := planner.Build(mustParse(t, "RETURN 1 AS a, 2 AS a"))
	require.Error(t, err)
	semErr, ok := err.(*planner.SemanticError)
	require.True(t, ok)
	assert.Equal(t, planner.ColumnNameConflict, semErr.Kind)
}

func TestBuildCallSubqueryReturningMergesColumns(t *testing.T) {
	p := unwrapEof(t, buildOne(t, "CALL { MATCH (x:Person) RETURN x } RETURN x"))
	project, ok := p.(*planner.Project)
	require.True(t, ok)
	call, ok := project.Input.(*planner.CallSubquery)
	require.True(t, ok)
	assert.True(t, call.Returning)
}

func mustParse(t *testing.T, text string) *ast.Query {
	t.Helper()
	q, err := parser.Parse(text)
	require.NoError(t, err)
	return q
}
