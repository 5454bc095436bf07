package ports

import (
	"context"

	"github.com/aretw0/canopy/pkg/async"
	"github.com/aretw0/canopy/pkg/domain"
)

// Inspector is the read side of a machine: the queries presentation layers need.
type Inspector interface {
	// CurrentStateID returns the current state, or "" before the first transition.
	CurrentStateID() string

	// StateExists reports whether id is part of the frozen tree.
	StateExists(id string) bool

	// StateInfo returns a snapshot of id, or the zero value if unknown.
	StateInfo(id string) domain.StateInfo

	// ChildCount returns the number of direct children of id (0 if unknown).
	ChildCount(id string) int

	// AllStates returns every state id in assembly order.
	AllStates() []string
}

// Driver changes the current state of a machine.
type Driver interface {
	// ChangeState runs a synchronous transition. The error mirrors what was reported.
	ChangeState(id string) error

	// ChangeStateAsync runs a transition that awaits suspendable hooks.
	ChangeStateAsync(ctx context.Context, id string) *async.Future[domain.Transition]
}

// Machine is the full public contract consumed by adapters (HTTP, MCP, CLI).
type Machine interface {
	Inspector
	Driver

	// Subscribe registers a listener for completed transitions and returns its cancel func.
	Subscribe(l domain.Listener) func()
}
