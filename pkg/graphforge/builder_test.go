package graphforge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/graphforge/pkg/config"
	"github.com/orneryd/graphforge/pkg/graphforge"
	"github.com/orneryd/graphforge/pkg/storage"
	"github.com/orneryd/graphforge/pkg/value"
)

func openEngine(t *testing.T) storage.Engine {
	t.Helper()
	cfg := config.LoadFromEnv()
	eng, err := graphforge.OpenEngine(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return eng
}

func TestBuilderCreatesNodesAndRelationshipsDirectly(t *testing.T) {
	eng := openEngine(t)
	tx, err := eng.Begin(true)
	require.NoError(t, err)
	defer tx.Rollback()

	b := graphforge.NewBuilder(tx)
	ada, err := b.CreateNode([]string{"Person"}, value.NewMap(value.MapEntry{Key: "name", Value: value.Str("Ada")}))
	require.NoError(t, err)
	bob, err := b.CreateNode([]string{"Person"}, value.NewMap(value.MapEntry{Key: "name", Value: value.Str("Bob")}))
	require.NoError(t, err)

	rel, err := b.CreateRelationship("KNOWS", ada.ID, bob.ID, value.Map{})
	require.NoError(t, err)
	assert.Equal(t, "KNOWS", rel.Type)
	assert.Equal(t, ada.ID, rel.StartID)
	assert.Equal(t, bob.ID, rel.EndID)

	require.NoError(t, tx.Commit())
}

func TestBuilderSetPropertyAndAddLabel(t *testing.T) {
	eng := openEngine(t)
	tx, err := eng.Begin(true)
	require.NoError(t, err)
	defer tx.Rollback()

	b := graphforge.NewBuilder(tx)
	n, err := b.CreateNode([]string{"Person"}, value.Map{})
	require.NoError(t, err)

	require.NoError(t, b.SetProperty(n.ID, "age", value.Int(30)))
	require.NoError(t, b.AddLabel(n.ID, "Employee"))

	got, err := b.Node(n.ID)
	require.NoError(t, err)
	age, ok := got.Properties.Get("age")
	require.True(t, ok)
	assert.Equal(t, value.Int(30), age)
	assert.Contains(t, got.Labels, "Employee")
}

func TestBuilderDeleteNodeRequiresDetachWhenConnected(t *testing.T) {
	eng := openEngine(t)
	tx, err := eng.Begin(true)
	require.NoError(t, err)
	defer tx.Rollback()

	b := graphforge.NewBuilder(tx)
	a, err := b.CreateNode([]string{"Person"}, value.Map{})
	require.NoError(t, err)
	bb, err := b.CreateNode([]string{"Person"}, value.Map{})
	require.NoError(t, err)
	_, err = b.CreateRelationship("KNOWS", a.ID, bb.ID, value.Map{})
	require.NoError(t, err)

	err = b.DeleteNode(a.ID, false)
	assert.Error(t, err)

	require.NoError(t, b.DeleteNode(a.ID, true))
}
