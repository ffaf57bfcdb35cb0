package graphforge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplainRendersScanFilterLimit(t *testing.T) {
	db := openDB(t)

	out, err := db.Explain(`MATCH (n:Person) WHERE n.age > 21 RETURN n.name ORDER BY n.name LIMIT 10`)
	require.NoError(t, err)
	assert.Contains(t, out, "EXPLAIN Query Plan")
	assert.Contains(t, out, "NodeByLabelScan(n:Person)")
	assert.Contains(t, out, "Filter")
	assert.Contains(t, out, "Sort")
	assert.Contains(t, out, "Limit")
	assert.Contains(t, out, "ProduceResults")
}

func TestExplainRendersExpand(t *testing.T) {
	db := openDB(t)

	out, err := db.Explain(`MATCH (a:Person)-[:KNOWS]->(b:Person) RETURN b`)
	require.NoError(t, err)
	assert.Contains(t, out, "Expand(")
}

func TestExplainRendersCreate(t *testing.T) {
	db := openDB(t)

	out, err := db.Explain(`CREATE (:Person {name: "Ada"})`)
	require.NoError(t, err)
	assert.Contains(t, out, "Create(")
}

func TestExplainRejectsInvalidQuery(t *testing.T) {
	db := openDB(t)

	_, err := db.Explain(`MATCH (n RETURN n`)
	assert.Error(t, err)
}
