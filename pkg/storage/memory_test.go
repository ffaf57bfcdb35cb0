package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/graphforge/pkg/storage"
	"github.com/orneryd/graphforge/pkg/value"
)

func props(pairs ...interface{}) value.Map {
	m := value.NewMap()
	for i := 0; i < len(pairs); i += 2 {
		m.Set(pairs[i].(string), pairs[i+1].(value.Value))
	}
	return m
}

func TestMemoryEngineCreateAndGetNode(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx, err := eng.Begin(true)
	require.NoError(t, err)

	id, err := tx.CreateNode([]string{"Person"}, props("name", value.Str("Ada")))
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx2, err := eng.Begin(false)
	require.NoError(t, err)
	defer tx2.Rollback()

	rec, err := tx2.GetNode(id)
	require.NoError(t, err)
	assert.True(t, rec.HasLabel("Person"))
	name, ok := rec.Properties.Get("name")
	require.True(t, ok)
	assert.Equal(t, value.Str("Ada"), name)
}

func TestMemoryEngineRollbackUndoesMutations(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx, err := eng.Begin(true)
	require.NoError(t, err)
	id, err := tx.CreateNode([]string{"Thing"}, value.NewMap())
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	tx2, err := eng.Begin(false)
	require.NoError(t, err)
	defer tx2.Rollback()
	_, err = tx2.GetNode(id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemoryEngineDeleteNodeWithRelationshipsFailsWithoutDetach(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx, err := eng.Begin(true)
	require.NoError(t, err)
	a, _ := tx.CreateNode([]string{"A"}, value.NewMap())
	b, _ := tx.CreateNode([]string{"B"}, value.NewMap())
	_, err = tx.CreateRel("LIKES", a, b, value.NewMap())
	require.NoError(t, err)

	err = tx.DeleteNode(a, false)
	assert.ErrorIs(t, err, storage.ErrHasRelationships)

	err = tx.DeleteNode(a, true)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx2, _ := eng.Begin(false)
	defer tx2.Rollback()
	_, err = tx2.GetNode(a)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemoryEngineLabelIndexScan(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx, _ := eng.Begin(true)
	_, _ = tx.CreateNode([]string{"Person"}, value.NewMap())
	_, _ = tx.CreateNode([]string{"Person"}, value.NewMap())
	_, _ = tx.CreateNode([]string{"Company"}, value.NewMap())
	require.NoError(t, tx.Commit())

	tx2, _ := eng.Begin(false)
	defer tx2.Rollback()
	it, err := tx2.ScanNodesByLabel("Person")
	require.NoError(t, err)
	count := 0
	for it.Next() {
		count++
	}
	assert.Equal(t, 2, count)
}

func TestMemoryEngineAdjacencyOutAndIn(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx, _ := eng.Begin(true)
	a, _ := tx.CreateNode([]string{"A"}, value.NewMap())
	b, _ := tx.CreateNode([]string{"B"}, value.NewMap())
	_, err := tx.CreateRel("KNOWS", a, b, value.NewMap())
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx2, _ := eng.Begin(false)
	defer tx2.Rollback()

	out, err := tx2.OutEdges(a, nil)
	require.NoError(t, err)
	require.True(t, out.Next())
	assert.Equal(t, b, out.Neighbour().NodeID)

	in, err := tx2.InEdges(b, nil)
	require.NoError(t, err)
	require.True(t, in.Next())
	assert.Equal(t, a, in.Neighbour().NodeID)
}

func TestMemoryEngineSetNodePropertyToNullRemovesIt(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx, _ := eng.Begin(true)
	id, _ := tx.CreateNode(nil, props("age", value.Int(30)))
	require.NoError(t, tx.SetNodeProperty(id, "age", value.NullValue))
	rec, err := tx.GetNode(id)
	require.NoError(t, err)
	_, ok := rec.Properties.Get("age")
	assert.False(t, ok)
}

func TestMemoryEngineInvalidPropertyRejected(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx, _ := eng.Begin(true)
	heterogeneous := value.List{value.Int(1), value.Str("x")}
	_, err := tx.CreateNode(nil, props("bad", heterogeneous))
	assert.ErrorIs(t, err, storage.ErrInvalidProperty)
}

func TestMemoryEngineReadOnlyTxRejectsWrites(t *testing.T) {
	eng := storage.NewMemoryEngine()
	tx, _ := eng.Begin(false)
	defer tx.Rollback()
	_, err := tx.CreateNode(nil, value.NewMap())
	assert.ErrorIs(t, err, storage.ErrReadOnly)
}
