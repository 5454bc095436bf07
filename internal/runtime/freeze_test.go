package runtime

import (
	"testing"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeze(t *testing.T) {
	t.Run("Builds parent and children links", func(t *testing.T) {
		root := dsl.NewRoot().Add(
			dsl.State("menu").Add(dsl.State("options")),
			dsl.State("game"),
		)

		states, order, errs := Freeze(root)
		require.Empty(t, errs)
		assert.Equal(t, []string{domain.RootStateID, "menu", "options", "game"}, order)
		assert.Equal(t, "", states[domain.RootStateID].Parent())
		assert.Equal(t, []string{"menu", "game"}, states[domain.RootStateID].Children())
		assert.Equal(t, "menu", states["options"].Parent())
	})

	t.Run("First occurrence of a duplicate id wins", func(t *testing.T) {
		first := dsl.State("dup")
		second := dsl.State("dup").Add(dsl.State("below"))
		root := dsl.NewRoot().Add(first, dsl.State("other").Add(second))

		states, order, errs := Freeze(root)
		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], domain.ErrDuplicateStateID)

		var dup *domain.DuplicateStateError
		require.ErrorAs(t, errs[0], &dup)
		assert.Equal(t, "dup", dup.ID)

		assert.Equal(t, domain.RootStateID, states["dup"].Parent())
		assert.Empty(t, states["dup"].Children())

		// The duplicate's subtree is still frozen under the dropped node.
		require.Contains(t, states, "below")
		assert.Equal(t, "dup", states["below"].Parent())
		assert.Equal(t, []string{domain.RootStateID, "dup", "other", "below"}, order)
	})

	t.Run("Reports attach failures", func(t *testing.T) {
		child := dsl.State("child")
		root := dsl.NewRoot().Add(dsl.State("a").Add(child), dsl.State("b").Add(child))

		_, _, errs := Freeze(root)
		require.Len(t, errs, 1)
		assert.ErrorIs(t, errs[0], domain.ErrAttachFailed)
		assert.ErrorIs(t, errs[0], dsl.ErrAlreadyAttached)
	})

	t.Run("Nil root", func(t *testing.T) {
		states, order, errs := Freeze(nil)
		assert.Empty(t, states)
		assert.Empty(t, order)
		assert.Empty(t, errs)
	})
}

func TestEngine_NoCommonAncestor(t *testing.T) {
	// Two disconnected roots can only be produced by hand.
	states := map[string]*State{
		"left":  {id: "left"},
		"right": {id: "right"},
	}
	var reported []error
	e := NewEngine(states, []string{"left", "right"}, WithReporter(reporterFunc(func(err error) {
		reported = append(reported, err)
	})))

	require.NoError(t, e.ChangeState("left"))
	err := e.ChangeState("right")
	assert.ErrorIs(t, err, domain.ErrNoCommonAncestor)
	assert.Equal(t, "left", e.CurrentStateID())
	require.Len(t, reported, 1)
}

func TestEngine_PathStopsOnCycle(t *testing.T) {
	states := map[string]*State{
		"a": {id: "a", parent: "b"},
		"b": {id: "b", parent: "a"},
	}
	e := NewEngine(states, nil)

	path := e.path(states["a"])
	require.Len(t, path, 2)
	assert.Equal(t, "a", path[0].id)
	assert.Equal(t, "b", path[1].id)
}

type reporterFunc func(error)

func (f reporterFunc) Report(_ string, err error) { f(err) }
