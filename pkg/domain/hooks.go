package domain

import "context"

// EnterFunc is a synchronous enter hook, called with (previousStateID, enteringStateID).
// previousStateID is empty on the very first transition of a machine.
type EnterFunc func(from, to string)

// ExitFunc is a synchronous exit hook, called with (exitingStateID, nextStateID).
type ExitFunc func(from, to string)

// EnterAsyncFunc is a suspendable enter hook. It is only awaited by asynchronous
// transitions; synchronous transitions fall back to the EnterFunc (if any).
type EnterAsyncFunc func(ctx context.Context, from, to string) error

// ExitAsyncFunc is the suspendable counterpart of ExitFunc.
type ExitAsyncFunc func(ctx context.Context, from, to string) error

// Hooks groups the four optional callbacks of a state. Any subset may be nil.
type Hooks struct {
	OnEnter      EnterFunc
	OnExit       ExitFunc
	OnEnterAsync EnterAsyncFunc
	OnExitAsync  ExitAsyncFunc
}

// IsAsync reports whether the state defines at least one suspendable hook.
func (h Hooks) IsAsync() bool {
	return h.OnEnterAsync != nil || h.OnExitAsync != nil
}

// Merge returns h with every nil slot filled from other.
func (h Hooks) Merge(other Hooks) Hooks {
	if h.OnEnter == nil {
		h.OnEnter = other.OnEnter
	}
	if h.OnExit == nil {
		h.OnExit = other.OnExit
	}
	if h.OnEnterAsync == nil {
		h.OnEnterAsync = other.OnEnterAsync
	}
	if h.OnExitAsync == nil {
		h.OnExitAsync = other.OnExitAsync
	}
	return h
}
