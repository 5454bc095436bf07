package runtime

import (
	"github.com/aretw0/canopy/pkg/domain"
)

// State is a frozen node of the tree. It is never mutated after Freeze.
type State struct {
	id       string
	parent   string
	children []string
	hooks    domain.Hooks
}

// ID returns the state id.
func (s *State) ID() string { return s.id }

// Parent returns the parent id, "" for the root.
func (s *State) Parent() string { return s.parent }

// Hooks returns the resolved hooks.
func (s *State) Hooks() domain.Hooks { return s.hooks }

// Children returns a copy of the ordered child ids.
func (s *State) Children() []string {
	out := make([]string, len(s.children))
	copy(out, s.children)
	return out
}

// Info returns the introspection snapshot of the state.
func (s *State) Info() domain.StateInfo {
	return domain.StateInfo{
		Name:     s.id,
		Parent:   s.parent,
		Children: s.Children(),
		IsAsync:  s.hooks.IsAsync(),
	}
}
