package executor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/graphforge/pkg/executor"
	"github.com/orneryd/graphforge/pkg/parser"
	"github.com/orneryd/graphforge/pkg/planner"
	"github.com/orneryd/graphforge/pkg/storage"
	"github.com/orneryd/graphforge/pkg/value"
)

func run(t *testing.T, tx storage.Tx, query string, params executor.Params) []map[string]value.Value {
	t.Helper()
	q, err := parser.Parse(query)
	require.NoError(t, err)
	plan, err := planner.Build(q)
	require.NoError(t, err)
	op, err := executor.Build(plan, params)
	require.NoError(t, err)
	rows, err := executor.Run(op, tx)
	require.NoError(t, err)
	out := make([]map[string]value.Value, len(rows))
	for i, r := range rows {
		out[i] = map[string]value.Value(r)
	}
	return out
}

func writeTx(t *testing.T, eng storage.Engine) storage.Tx {
	t.Helper()
	tx, err := eng.Begin(true)
	require.NoError(t, err)
	return tx
}

func TestExecutorCreateThenMatchReturnsNode(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx := writeTx(t, eng)
	rows := run(t, tx, `CREATE (n:Person {name: "Ada", age: 36})`, nil)
	require.Len(t, rows, 1)
	require.NoError(t, tx.Commit())

	tx2, err := eng.Begin(false)
	require.NoError(t, err)
	defer tx2.Rollback()
	rows = run(t, tx2, `MATCH (n:Person) RETURN n.name AS name, n.age AS age`, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, value.Str("Ada"), rows[0]["name"])
	assert.Equal(t, value.Int(36), rows[0]["age"])
}

func TestExecutorRelationshipExpandMatchesPattern(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx := writeTx(t, eng)
	run(t, tx, `CREATE (a:Person {name: "Ada"})-[:KNOWS]->(b:Person {name: "Bob"})`, nil)
	require.NoError(t, tx.Commit())

	tx2, err := eng.Begin(false)
	require.NoError(t, err)
	defer tx2.Rollback()
	rows := run(t, tx2, `MATCH (a:Person)-[:KNOWS]->(b:Person) RETURN a.name AS a, b.name AS b`, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, value.Str("Ada"), rows[0]["a"])
	assert.Equal(t, value.Str("Bob"), rows[0]["b"])
}

func TestExecutorOptionalMatchFillsNullWhenNoNeighbour(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx := writeTx(t, eng)
	run(t, tx, `CREATE (a:Person {name: "Ada"})`, nil)
	require.NoError(t, tx.Commit())

	tx2, err := eng.Begin(false)
	require.NoError(t, err)
	defer tx2.Rollback()
	rows := run(t, tx2, `MATCH (a:Person) OPTIONAL MATCH (a)-[:KNOWS]->(b) RETURN a.name AS a, b`, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, value.Str("Ada"), rows[0]["a"])
	assert.Equal(t, value.NullValue, rows[0]["b"])
}

func TestExecutorWhereFiltersRows(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx := writeTx(t, eng)
	run(t, tx, `CREATE (:Person {name: "Ada", age: 36})`, nil)
	run(t, tx, `CREATE (:Person {name: "Bob", age: 20})`, nil)
	require.NoError(t, tx.Commit())

	tx2, err := eng.Begin(false)
	require.NoError(t, err)
	defer tx2.Rollback()
	rows := run(t, tx2, `MATCH (n:Person) WHERE n.age > 30 RETURN n.name AS name`, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, value.Str("Ada"), rows[0]["name"])
}

func TestExecutorAggregateCountGroupsByNonAggregateItem(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx := writeTx(t, eng)
	run(t, tx, `CREATE (:Person {team: "red"})`, nil)
	run(t, tx, `CREATE (:Person {team: "red"})`, nil)
	run(t, tx, `CREATE (:Person {team: "blue"})`, nil)
	require.NoError(t, tx.Commit())

	tx2, err := eng.Begin(false)
	require.NoError(t, err)
	defer tx2.Rollback()
	rows := run(t, tx2, `MATCH (n:Person) RETURN n.team AS team, count(n) AS n ORDER BY team`, nil)
	require.Len(t, rows, 2)
	assert.Equal(t, value.Str("blue"), rows[0]["team"])
	assert.Equal(t, value.Int(1), rows[0]["n"])
	assert.Equal(t, value.Str("red"), rows[1]["team"])
	assert.Equal(t, value.Int(2), rows[1]["n"])
}

func TestExecutorOrderBySkipLimit(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx := writeTx(t, eng)
	for _, n := range []int64{3, 1, 2} {
		run(t, tx, `CREATE (:Item {n: $n})`, executor.Params{"n": value.Int(n)})
	}
	require.NoError(t, tx.Commit())

	tx2, err := eng.Begin(false)
	require.NoError(t, err)
	defer tx2.Rollback()
	rows := run(t, tx2, `MATCH (i:Item) RETURN i.n AS n ORDER BY n SKIP 1 LIMIT 1`, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, value.Int(2), rows[0]["n"])
}

func TestExecutorUnwindProducesOneRowPerElement(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx := writeTx(t, eng)
	rows := run(t, tx, `UNWIND [1, 2, 3] AS x RETURN x`, nil)
	require.Len(t, rows, 3)
	assert.Equal(t, value.Int(1), rows[0]["x"])
	assert.Equal(t, value.Int(2), rows[1]["x"])
	assert.Equal(t, value.Int(3), rows[2]["x"])
}

func TestExecutorMergeCreatesOnceThenMatches(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx := writeTx(t, eng)
	run(t, tx, `MERGE (n:Person {name: "Ada"})`, nil)
	run(t, tx, `MERGE (n:Person {name: "Ada"})`, nil)
	require.NoError(t, tx.Commit())

	tx2, err := eng.Begin(false)
	require.NoError(t, err)
	defer tx2.Rollback()
	rows := run(t, tx2, `MATCH (n:Person) RETURN count(n) AS c`, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, value.Int(1), rows[0]["c"])
}

func TestExecutorMergeOnCreateSetsProperty(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx := writeTx(t, eng)
	run(t, tx, `MERGE (n:Person {name: "Ada"}) ON CREATE SET n.createdNew = true`, nil)
	require.NoError(t, tx.Commit())

	tx2, err := eng.Begin(false)
	require.NoError(t, err)
	defer tx2.Rollback()
	rows := run(t, tx2, `MATCH (n:Person) RETURN n.createdNew AS c`, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, value.Bool(true), rows[0]["c"])
}

func TestExecutorSetUpdatesProperty(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx := writeTx(t, eng)
	run(t, tx, `CREATE (:Person {name: "Ada", age: 36})`, nil)
	run(t, tx, `MATCH (n:Person {name: "Ada"}) SET n.age = 37`, nil)
	require.NoError(t, tx.Commit())

	tx2, err := eng.Begin(false)
	require.NoError(t, err)
	defer tx2.Rollback()
	rows := run(t, tx2, `MATCH (n:Person) RETURN n.age AS age`, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, value.Int(37), rows[0]["age"])
}

func TestExecutorSetToNullRemovesProperty(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx := writeTx(t, eng)
	run(t, tx, `CREATE (:Person {name: "Ada", age: 36})`, nil)
	run(t, tx, `MATCH (n:Person {name: "Ada"}) SET n.age = null`, nil)
	require.NoError(t, tx.Commit())

	tx2, err := eng.Begin(false)
	require.NoError(t, err)
	defer tx2.Rollback()
	rows := run(t, tx2, `MATCH (n:Person) RETURN n.age AS age`, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, value.NullValue, rows[0]["age"])
}

func TestExecutorRemoveLabel(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx := writeTx(t, eng)
	run(t, tx, `CREATE (n:Person:Admin {name: "Ada"})`, nil)
	run(t, tx, `MATCH (n:Person) REMOVE n:Admin`, nil)
	require.NoError(t, tx.Commit())

	tx2, err := eng.Begin(false)
	require.NoError(t, err)
	defer tx2.Rollback()
	rows := run(t, tx2, `MATCH (n:Admin) RETURN n`, nil)
	assert.Len(t, rows, 0)
}

func TestExecutorDeleteWithoutDetachFailsOnConnectedNode(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx := writeTx(t, eng)
	run(t, tx, `CREATE (a:Person)-[:KNOWS]->(b:Person)`, nil)

	q, err := parser.Parse(`MATCH (a:Person) DELETE a`)
	require.NoError(t, err)
	plan, err := planner.Build(q)
	require.NoError(t, err)
	op, err := executor.Build(plan, nil)
	require.NoError(t, err)
	_, err = executor.Run(op, tx)
	require.Error(t, err)
	rtErr, ok := err.(*executor.RuntimeError)
	require.True(t, ok)
	assert.Equal(t, "ConstraintViolation", rtErr.Kind)
}

func TestExecutorDetachDeleteRemovesNodeAndRelationships(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx := writeTx(t, eng)
	run(t, tx, `CREATE (a:Person)-[:KNOWS]->(b:Person)`, nil)
	run(t, tx, `MATCH (a:Person) DETACH DELETE a`, nil)
	require.NoError(t, tx.Commit())

	tx2, err := eng.Begin(false)
	require.NoError(t, err)
	defer tx2.Rollback()
	rows := run(t, tx2, `MATCH (n:Person) RETURN n`, nil)
	require.Len(t, rows, 0)
}

func TestExecutorUnionDeduplicatesRows(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx := writeTx(t, eng)
	run(t, tx, `CREATE (:Person {name: "Ada"})`, nil)
	require.NoError(t, tx.Commit())

	tx2, err := eng.Begin(false)
	require.NoError(t, err)
	defer tx2.Rollback()
	rows := run(t, tx2, `MATCH (n:Person) RETURN n.name AS name UNION MATCH (n:Person) RETURN n.name AS name`, nil)
	assert.Len(t, rows, 1)
}

func TestExecutorUnionAllKeepsDuplicates(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx := writeTx(t, eng)
	run(t, tx, `CREATE (:Person {name: "Ada"})`, nil)
	require.NoError(t, tx.Commit())

	tx2, err := eng.Begin(false)
	require.NoError(t, err)
	defer tx2.Rollback()
	rows := run(t, tx2, `MATCH (n:Person) RETURN n.name AS name UNION ALL MATCH (n:Person) RETURN n.name AS name`, nil)
	assert.Len(t, rows, 2)
}

func TestExecutorCallSubqueryReturningMergesColumns(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx := writeTx(t, eng)
	run(t, tx, `CREATE (:Person {name: "Ada"})`, nil)
	require.NoError(t, tx.Commit())

	tx2, err := eng.Begin(false)
	require.NoError(t, err)
	defer tx2.Rollback()
	rows := run(t, tx2, `MATCH (n:Person) CALL { MATCH (m:Person) RETURN count(m) AS total } RETURN n.name AS name, total`, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, value.Str("Ada"), rows[0]["name"])
	assert.Equal(t, value.Int(1), rows[0]["total"])
}

func TestExecutorExistsSubqueryDelegatesCorrelatedFilter(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx := writeTx(t, eng)
	run(t, tx, `CREATE (a:Person {name: "Ada"})-[:KNOWS]->(b:Person {name: "Bob"})`, nil)
	run(t, tx, `CREATE (:Person {name: "Carl"})`, nil)
	require.NoError(t, tx.Commit())

	tx2, err := eng.Begin(false)
	require.NoError(t, err)
	defer tx2.Rollback()
	rows := run(t, tx2, `MATCH (n:Person) WHERE EXISTS { MATCH (n)-[:KNOWS]->(:Person) } RETURN n.name AS name`, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, value.Str("Ada"), rows[0]["name"])
}

func TestExecutorFixedLengthExpandEnforcesRelationshipUniqueness(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx := writeTx(t, eng)
	run(t, tx, `CREATE (a:Node {n: 1})-[:R]->(b:Node {n: 2})`, nil)
	require.NoError(t, tx.Commit())

	tx2, err := eng.Begin(false)
	require.NoError(t, err)
	defer tx2.Rollback()
	rows := run(t, tx2, `MATCH (a:Node)-[r1]-(b:Node)-[r2]-(c:Node) RETURN c.n AS n`, nil)
	assert.Len(t, rows, 0, "r2 must not rebind the same relationship as r1")
}

func TestExecutorFixedLengthExpandAllowsDistinctRelationships(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx := writeTx(t, eng)
	run(t, tx, `CREATE (a:Node {n: 1})-[:R]->(b:Node {n: 2})-[:R]->(c:Node {n: 3})`, nil)
	require.NoError(t, tx.Commit())

	tx2, err := eng.Begin(false)
	require.NoError(t, err)
	defer tx2.Rollback()
	rows := run(t, tx2, `MATCH (a:Node {n: 1})-[r1]-(b:Node)-[r2]-(c:Node) RETURN c.n AS n`, nil)
	require.Len(t, rows, 1)
	assert.Equal(t, value.Int(3), rows[0]["n"])
}

func TestExecutorOptionalMatchCorrelatesAnchorPerRow(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx := writeTx(t, eng)
	run(t, tx, `CREATE (:Z {id: 1})`, nil)
	run(t, tx, `CREATE (:Z {id: 2})-[:R]->(:Y {v: "x"})`, nil)
	require.NoError(t, tx.Commit())

	tx2, err := eng.Begin(false)
	require.NoError(t, err)
	defer tx2.Rollback()
	rows := run(t, tx2, `MATCH (z:Z) OPTIONAL MATCH (z)-[:R]->(y:Y) RETURN z.id AS id, y.v AS v ORDER BY id`, nil)
	require.Len(t, rows, 2)
	assert.Equal(t, value.Int(1), rows[0]["id"])
	assert.Equal(t, value.NullValue, rows[0]["v"])
	assert.Equal(t, value.Int(2), rows[1]["id"])
	assert.Equal(t, value.Str("x"), rows[1]["v"])
}

func TestExecutorCountSubqueryCorrelatesPerRow(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx := writeTx(t, eng)
	run(t, tx, `CREATE (:Person {name: "Ada"})-[:KNOWS]->(:Person {name: "Bob"})`, nil)
	run(t, tx, `CREATE (:Person {name: "Carl"})`, nil)
	require.NoError(t, tx.Commit())

	tx2, err := eng.Begin(false)
	require.NoError(t, err)
	defer tx2.Rollback()
	rows := run(t, tx2, `MATCH (n:Person) RETURN n.name AS name, COUNT { MATCH (n)-[:KNOWS]->(:Person) } AS c ORDER BY name`, nil)
	require.Len(t, rows, 3)
	assert.Equal(t, value.Str("Ada"), rows[0]["name"])
	assert.Equal(t, value.Int(1), rows[0]["c"])
	assert.Equal(t, value.Str("Bob"), rows[1]["name"])
	assert.Equal(t, value.Int(0), rows[1]["c"])
	assert.Equal(t, value.Str("Carl"), rows[2]["name"])
	assert.Equal(t, value.Int(0), rows[2]["c"])
}

func TestExecutorVariableLengthExpandRespectsBounds(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx := writeTx(t, eng)
	run(t, tx, `CREATE (a:Node {n: 1})-[:NEXT]->(b:Node {n: 2})-[:NEXT]->(c:Node {n: 3})`, nil)
	require.NoError(t, tx.Commit())

	tx2, err := eng.Begin(false)
	require.NoError(t, err)
	defer tx2.Rollback()
	rows := run(t, tx2, `MATCH (a:Node {n: 1})-[:NEXT*1..2]->(x) RETURN x.n AS n ORDER BY n`, nil)
	require.Len(t, rows, 2)
	assert.Equal(t, value.Int(2), rows[0]["n"])
	assert.Equal(t, value.Int(3), rows[1]["n"])
}
