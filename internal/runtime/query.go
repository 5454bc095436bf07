package runtime

import (
	"github.com/aretw0/canopy/pkg/domain"
)

// CurrentStateID returns the current state id, or "" before the first transition.
// Safe to call while an asynchronous transition is running.
func (e *Engine) CurrentStateID() string {
	if s := e.currentState(); s != nil {
		return s.id
	}
	return ""
}

// StateExists reports whether id is part of the tree.
func (e *Engine) StateExists(id string) bool {
	_, ok := e.states[id]
	return ok
}

// State returns the frozen state for id.
func (e *Engine) State(id string) (*State, bool) {
	s, ok := e.states[id]
	return s, ok
}

// ChildCount returns the number of direct children of id.
// Unknown ids are reported and count as zero.
func (e *Engine) ChildCount(id string) int {
	s, ok := e.lookup(id)
	if !ok {
		return 0
	}
	return len(s.children)
}

// StateInfo returns a snapshot of id, or the zero value (reported) when unknown.
func (e *Engine) StateInfo(id string) domain.StateInfo {
	s, ok := e.lookup(id)
	if !ok {
		return domain.StateInfo{}
	}
	return s.Info()
}

// AllStates returns every id in assembly order.
func (e *Engine) AllStates() []string {
	out := make([]string, len(e.order))
	copy(out, e.order)
	return out
}

// Len returns the number of states.
func (e *Engine) Len() int {
	return len(e.states)
}

func (e *Engine) lookup(id string) (*State, bool) {
	s, ok := e.states[id]
	if !ok {
		e.report(&domain.UnknownStateError{ID: id})
	}
	return s, ok
}
