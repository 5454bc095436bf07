package dsl_test

import (
	"testing"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_Attach(t *testing.T) {
	root := dsl.NewRoot()
	a := dsl.State("A")

	require.NoError(t, root.Attach(a))
	assert.Same(t, root, a.Parent())
	assert.Equal(t, []*dsl.Node{a}, root.Children())
	assert.True(t, root.IsRoot())
	assert.Equal(t, domain.RootStateID, root.ID())

	t.Run("Already attached", func(t *testing.T) {
		other := dsl.State("other")
		assert.ErrorIs(t, other.Attach(a), dsl.ErrAlreadyAttached)
		assert.Same(t, root, a.Parent())
	})

	t.Run("Cycle", func(t *testing.T) {
		child := dsl.State("child")
		parent := dsl.State("parent")
		require.NoError(t, parent.Attach(child))
		assert.ErrorIs(t, child.Attach(parent), dsl.ErrCycle)
		assert.ErrorIs(t, child.Attach(child), dsl.ErrCycle)
	})

	t.Run("Root and nil", func(t *testing.T) {
		assert.ErrorIs(t, a.Attach(dsl.NewRoot()), dsl.ErrRootAttach)
		assert.ErrorIs(t, a.Attach(nil), dsl.ErrNilChild)
	})
}

func TestNode_AddRecordsFailures(t *testing.T) {
	shared := dsl.State("shared")
	first := dsl.State("first").Add(shared)
	second := dsl.State("second").Add(shared, dsl.State("ok"))

	assert.Empty(t, first.Errs())
	require.Len(t, second.Errs(), 1)
	assert.ErrorIs(t, second.Errs()[0], dsl.ErrAlreadyAttached)
	assert.Len(t, second.Children(), 1)
}

func TestNode_FindAndWalk(t *testing.T) {
	root := dsl.NewRoot().Add(
		dsl.State("A").Add(dsl.State("A1"), dsl.State("dup")),
		dsl.State("dup"),
	)

	// Breadth-first: the shallow "dup" wins.
	found := root.Find("dup")
	require.NotNil(t, found)
	assert.Same(t, root, found.Parent())
	assert.Nil(t, root.Find("missing"))

	var order []string
	root.Walk(func(n *dsl.Node) bool {
		order = append(order, n.ID())
		return n.ID() != "A"
	})
	assert.Equal(t, []string{"root", "A", "dup"}, order)
}

func TestNode_Options(t *testing.T) {
	n := dsl.State("loading", dsl.Enter(func(from, to string) {}), dsl.ExitAsync(nil))
	assert.NotNil(t, n.Hooks().OnEnter)
	assert.False(t, n.Hooks().IsAsync())
}
