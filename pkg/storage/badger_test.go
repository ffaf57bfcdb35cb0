package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/graphforge/pkg/storage"
	"github.com/orneryd/graphforge/pkg/value"
)

func openBadger(t *testing.T) *storage.BadgerEngine {
	t.Helper()
	eng, err := storage.OpenBadgerEngine(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return eng
}

func TestBadgerEngineCreateAndGetNode(t *testing.T) {
	eng := openBadger(t)
	tx, err := eng.Begin(true)
	require.NoError(t, err)
	id, err := tx.CreateNode([]string{"Person"}, props("name", value.Str("Grace")))
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
	assert.Equal(t, value.Str("Grace"), name)
}

func TestBadgerEnginePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	eng, err := storage.OpenBadgerEngine(dir)
	require.NoError(t, err)

	tx, _ := eng.Begin(true)
	id, err := tx.CreateNode([]string{"Node"}, value.NewMap())
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	require.NoError(t, eng.Close())

	eng2, err := storage.OpenBadgerEngine(dir)
	require.NoError(t, err)
	defer eng2.Close()

	tx2, _ := eng2.Begin(false)
	defer tx2.Rollback()
	_, err = tx2.GetNode(id)
	require.NoError(t, err)

	tx3, _ := eng2.Begin(true)
	newID, err := tx3.CreateNode(nil, value.NewMap())
	require.NoError(t, err)
	require.NoError(t, tx3.Commit())
	assert.Greater(t, uint64(newID), uint64(id))
}

func TestBadgerEngineLabelAndTypeScans(t *testing.T) {
	eng := openBadger(t)
	tx, _ := eng.Begin(true)
	a, _ := tx.CreateNode([]string{"Person"}, value.NewMap())
	b, _ := tx.CreateNode([]string{"Person"}, value.NewMap())
	_, err := tx.CreateRel("KNOWS", a, b, value.NewMap())
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx2, _ := eng.Begin(false)
	defer tx2.Rollback()

	nit, err := tx2.ScanNodesByLabel("Person")
	require.NoError(t, err)
	n := 0
	for nit.Next() {
		n++
	}
	assert.Equal(t, 2, n)

	rit, err := tx2.ScanRelsByType("KNOWS")
	require.NoError(t, err)
	r := 0
	for rit.Next() {
		r++
	}
	assert.Equal(t, 1, r)
}

func TestBadgerEngineDeleteNodeDetachCascadesRelationships(t *testing.T) {
	eng := openBadger(t)
	tx, _ := eng.Begin(true)
	a, _ := tx.CreateNode(nil, value.NewMap())
	b, _ := tx.CreateNode(nil, value.NewMap())
	relID, err := tx.CreateRel("LIKES", a, b, value.NewMap())
	require.NoError(t, err)

	err = tx.DeleteNode(a, false)
	assert.ErrorIs(t, err, storage.ErrHasRelationships)

	require.NoError(t, tx.DeleteNode(a, true))
	require.NoError(t, tx.Commit())

	tx2, _ := eng.Begin(false)
	defer tx2.Rollback()
	_, err = tx2.GetRel(relID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBadgerEngineRollbackDiscardsUncommittedWrites(t *testing.T) {
	eng := openBadger(t)
	tx, _ := eng.Begin(true)
	id, err := tx.CreateNode([]string{"Temp"}, value.NewMap())
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	tx2, _ := eng.Begin(false)
	defer tx2.Rollback()
	_, err = tx2.GetNode(id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBadgerEngineAdjacencyOutAndIn(t *testing.T) {
	eng := openBadger(t)
	tx, _ := eng.Begin(true)
	a, _ := tx.CreateNode(nil, value.NewMap())
	b, _ := tx.CreateNode(nil, value.NewMap())
	_, err := tx.CreateRel("FOLLOWS", a, b, value.NewMap())
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx2, _ := eng.Begin(false)
	defer tx2.Rollback()

	out, err := tx2.OutEdges(a, nil)
	require.NoError(t, err)
	require.True(t, out.Next())
	assert.Equal(t, b, out.Neighbour().NodeID)

	in, err := tx2.InEdges(b, []string{"FOLLOWS"})
	require.NoError(t, err)
	require.True(t, in.Next())
	assert.Equal(t, a, in.Neighbour().NodeID)
}
