package graphforge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/graphforge/pkg/config"
	"github.com/orneryd/graphforge/pkg/executor"
	"github.com/orneryd/graphforge/pkg/graphforge"
	"github.com/orneryd/graphforge/pkg/value"
)

func openDB(t *testing.T) *graphforge.DB {
	t.Helper()
	cfg := config.LoadFromEnv()
	db, err := graphforge.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestExecuteCreateAndMatch(t *testing.T) {
	db := openDB(t)

	_, err := db.Execute(`CREATE (:Person {name: "Ada"})`, nil)
	require.NoError(t, err)

	result, err := db.Execute(`MATCH (n:Person) RETURN n.name AS name`, nil)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, value.Str("Ada"), result.Rows[0]["name"])
}

func TestExecuteReportsStats(t *testing.T) {
	db := openDB(t)

	result, err := db.Execute(`CREATE (a:Person {name: "Ada"})-[:KNOWS]->(b:Person {name: "Bob"})`, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Stats.NodesCreated)
	assert.Equal(t, 1, result.Stats.RelsCreated)
}

func TestExecuteUsesParams(t *testing.T) {
	db := openDB(t)
	_, err := db.Execute(`CREATE (:Person {name: $name})`, executor.Params{"name": value.Str("Grace")})
	require.NoError(t, err)

	result, err := db.Execute(`MATCH (n:Person {name: $name}) RETURN n.name AS name`, executor.Params{"name": value.Str("Grace")})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, value.Str("Grace"), result.Rows[0]["name"])
}

func TestExecuteRollsBackOnRuntimeError(t *testing.T) {
	db := openDB(t)

	_, err := db.Execute(`CREATE (:Person {name: $missing})`, nil)
	assert.Error(t, err)

	result, err := db.Execute(`MATCH (n:Person) RETURN n`, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
}

func TestExecuteWriteOnlyChainedMatchHidesInternalBookkeeping(t *testing.T) {
	db := openDB(t)

	_, err := db.Execute(`CREATE (a:N {n: 1})-[:R]->(b:N {n: 2})-[:R]->(c:N {n: 3})`, nil)
	require.NoError(t, err)

	result, err := db.Execute(`MATCH (a:N)-[r1]-(b:N)-[r2]-(c:N) SET c.seen = true`, nil)
	require.NoError(t, err)
	for _, col := range result.Columns {
		assert.NotContains(t, col, "\x00")
	}
	for _, row := range result.Rows {
		for k := range row {
			assert.NotContains(t, k, "\x00")
		}
	}
}

func TestExecuteReadOnlyOnEmptyDatabaseReturnsNoRows(t *testing.T) {
	db := openDB(t)

	result, err := db.ExecuteReadOnly(`MATCH (n) RETURN n`, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Rows)
}
