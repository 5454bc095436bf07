package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnresolvedDependency is reported when contributions target a parent that never materialized.
	ErrUnresolvedDependency = errors.New("unresolved dependency")

	// ErrDuplicateStateID is reported when two builder nodes claim the same id. The first one wins.
	ErrDuplicateStateID = errors.New("duplicate state id")

	// ErrUnknownState is reported by queries and transitions that reference a nonexistent id.
	ErrUnknownState = errors.New("unknown state")

	// ErrNoCommonAncestor signals a corrupted tree: two states share no ancestor.
	ErrNoCommonAncestor = errors.New("no common ancestor")

	// ErrTransitionInProgress is returned when a transition is requested while another one is running.
	ErrTransitionInProgress = errors.New("transition in progress")

	// ErrAttachFailed is reported when a builder node could not be attached to its parent.
	ErrAttachFailed = errors.New("attach failed")

	// ErrApplyFailed is reported when a contribution returned an error while building its subtree.
	ErrApplyFailed = errors.New("contribution failed")

	// ErrHookFailed is reported when a suspendable hook returned an error. The transition continues.
	ErrHookFailed = errors.New("hook failed")

	// ErrAlreadyAssembled is reported when Assemble is called a second time.
	ErrAlreadyAssembled = errors.New("machine already assembled")

	// ErrNotAssembled is reported when a transition is requested before Assemble.
	ErrNotAssembled = errors.New("machine not assembled")
)

// UnresolvedDependencyError lists the parent ids that no contribution ever created.
type UnresolvedDependencyError struct {
	Parents []string
}

func (e *UnresolvedDependencyError) Error() string {
	return fmt.Sprintf("missing dependencies: %s", strings.Join(e.Parents, ", "))
}

func (e *UnresolvedDependencyError) Unwrap() error { return ErrUnresolvedDependency }

// DuplicateStateError carries the id that was registered twice.
type DuplicateStateError struct {
	ID string
}

func (e *DuplicateStateError) Error() string {
	return fmt.Sprintf("tried to register state with id %q, but it is already registered", e.ID)
}

func (e *DuplicateStateError) Unwrap() error { return ErrDuplicateStateID }

// UnknownStateError carries the id that could not be found.
type UnknownStateError struct {
	ID string
}

func (e *UnknownStateError) Error() string {
	return fmt.Sprintf("no state with id %q registered", e.ID)
}

func (e *UnknownStateError) Unwrap() error { return ErrUnknownState }

// ErrorKind maps an error to a stable, low-cardinality label.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnresolvedDependency):
		return "unresolved_dependency"
	case errors.Is(err, ErrDuplicateStateID):
		return "duplicate_state_id"
	case errors.Is(err, ErrUnknownState):
		return "unknown_state"
	case errors.Is(err, ErrNoCommonAncestor):
		return "no_common_ancestor"
	case errors.Is(err, ErrTransitionInProgress):
		return "transition_in_progress"
	case errors.Is(err, ErrAttachFailed):
		return "attach_failed"
	case errors.Is(err, ErrApplyFailed):
		return "apply_failed"
	case errors.Is(err, ErrHookFailed):
		return "hook_failed"
	case errors.Is(err, ErrAlreadyAssembled):
		return "already_assembled"
	case errors.Is(err, ErrNotAssembled):
		return "not_assembled"
	default:
		return "other"
	}
}
