package runtime

import (
	"fmt"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/dsl"
)

// Freeze converts a builder tree into the immutable state map.
//
// Nodes are visited parent first, children in order. When two nodes share an
// id the first one wins; the duplicate is dropped and reported, and its subtree
// is still visited. Attach failures recorded on builder nodes are reported too.
// The returned order lists the kept ids in visit order.
func Freeze(root *dsl.Node) (map[string]*State, []string, []error) {
	states := make(map[string]*State)
	var order []string
	var errs []error

	if root == nil {
		return states, order, errs
	}

	root.Walk(func(n *dsl.Node) bool {
		for _, err := range n.Errs() {
			errs = append(errs, fmt.Errorf("%w: %w", domain.ErrAttachFailed, err))
		}

		if _, exists := states[n.ID()]; exists {
			errs = append(errs, &domain.DuplicateStateError{ID: n.ID()})
			return true
		}

		children := n.Children()
		ids := make([]string, 0, len(children))
		for _, c := range children {
			ids = append(ids, c.ID())
		}

		parent := ""
		if p := n.Parent(); p != nil {
			parent = p.ID()
		}

		states[n.ID()] = &State{
			id:       n.ID(),
			parent:   parent,
			children: ids,
			hooks:    n.Hooks(),
		}
		order = append(order, n.ID())
		return true
	})

	return states, order, errs
}
