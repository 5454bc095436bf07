package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/canopy/pkg/async"
	"github.com/aretw0/canopy/pkg/domain"
)

// step is one hop of a transition: exiting State towards next, or entering State from prev.
type step struct {
	state *State
	other string
}

// plan is the ordered exit/enter sequence between the current state and a target.
type plan struct {
	from   string
	to     string
	exits  []step
	enters []step
}

// path returns [s, parent(s), ..., root]. The walk stops on a missing parent or a repeated id.
func (e *Engine) path(s *State) []*State {
	var out []*State
	seen := make(map[string]bool)
	for cur := s; cur != nil && !seen[cur.id]; {
		seen[cur.id] = true
		out = append(out, cur)
		if cur.parent == "" {
			break
		}
		cur = e.states[cur.parent]
	}
	return out
}

// plan computes the exits (leaf to root, strictly below the LCA) and the
// enters (root to leaf, strictly below the LCA) from the current state to id.
// With no current state the target is entered alone.
func (e *Engine) plan(id string) (plan, error) {
	target, ok := e.states[id]
	if !ok {
		return plan{}, fmt.Errorf("changing state: %w", &domain.UnknownStateError{ID: id})
	}

	current := e.currentState()
	if current == nil {
		return plan{to: id, enters: []step{{state: target}}}, nil
	}

	fromPath := e.path(current)
	toPath := e.path(target)

	toIndex := make(map[string]int, len(toPath))
	for i, s := range toPath {
		toIndex[s.id] = i
	}

	lcaFrom, lcaTo := -1, -1
	for i, s := range fromPath {
		if j, ok := toIndex[s.id]; ok {
			lcaFrom, lcaTo = i, j
			break
		}
	}
	if lcaFrom < 0 {
		return plan{}, fmt.Errorf("failed transition from %q to %q: %w", current.id, id, domain.ErrNoCommonAncestor)
	}

	p := plan{from: current.id, to: id}
	for i := 0; i < lcaFrom; i++ {
		p.exits = append(p.exits, step{state: fromPath[i], other: fromPath[i+1].id})
	}
	for j := lcaTo - 1; j >= 0; j-- {
		p.enters = append(p.enters, step{state: toPath[j], other: toPath[j+1].id})
	}
	return p, nil
}

// ChangeState runs a synchronous transition to id. It never suspends: only the
// synchronous hooks are invoked. Failures are reported and returned; the
// current state is left unchanged.
func (e *Engine) ChangeState(id string) error {
	if !e.guard.TryAcquire(1) {
		return e.report(fmt.Errorf("changing state to %q: %w", id, domain.ErrTransitionInProgress))
	}

	p, err := e.plan(id)
	if err != nil {
		e.guard.Release(1)
		return e.report(err)
	}

	e.logger.Debug("transition started", "from", p.from, "to", p.to, "exits", len(p.exits), "enters", len(p.enters))
	e.run(context.Background(), p, false)

	e.logger.Debug("transition complete", "from", p.from, "to", p.to)
	e.notify(p.from, p.to)
	return nil
}

// ChangeStateAsync runs a transition to id on its own goroutine, awaiting the
// suspendable hook of each step when there is one and running the synchronous
// hook otherwise. Steps run strictly one after the other.
//
// On exit the hook completes before the pointer leaves the state; on enter the
// pointer reaches the state before its hook is awaited, so CurrentStateID
// already returns the target while the target's enter hook is still pending.
//
// The returned future completes after listeners were notified. Its error is
// set only when the transition did not run. ctx is passed to the hooks but its
// cancellation is ignored: a started transition always runs to completion.
func (e *Engine) ChangeStateAsync(ctx context.Context, id string) *async.Future[domain.Transition] {
	if !e.guard.TryAcquire(1) {
		err := e.report(fmt.Errorf("changing state to %q: %w", id, domain.ErrTransitionInProgress))
		return async.Resolved(domain.Transition{}, err)
	}

	p, err := e.plan(id)
	if err != nil {
		e.guard.Release(1)
		return async.Resolved(domain.Transition{}, e.report(err))
	}

	e.logger.Debug("async transition started", "from", p.from, "to", p.to, "exits", len(p.exits), "enters", len(p.enters))
	return async.Go(context.WithoutCancel(ctx), func(ctx context.Context) (domain.Transition, error) {
		e.run(ctx, p, true)

		e.logger.Debug("async transition complete", "from", p.from, "to", p.to)
		e.notify(p.from, p.to)
		return domain.Transition{From: p.from, To: p.to}, nil
	})
}

// run walks the exits then the enters of p and releases the guard.
func (e *Engine) run(ctx context.Context, p plan, suspend bool) {
	defer e.guard.Release(1)
	for _, st := range p.exits {
		e.exit(ctx, st, suspend)
	}
	for _, st := range p.enters {
		e.enter(ctx, st, suspend)
	}
}

// exit runs the exit hook of st.state, then moves the pointer to its parent.
func (e *Engine) exit(ctx context.Context, st step, suspend bool) {
	s, next := st.state, st.other
	hooks := s.hooks
	started := time.Now()

	var err error
	usedAsync := suspend && hooks.OnExitAsync != nil
	switch {
	case usedAsync:
		err = e.callAsync(ctx, s.id, next, hooks.OnExitAsync)
	case hooks.OnExit != nil:
		err = e.callSync(s.id, next, hooks.OnExit)
	}

	e.setCurrent(e.states[next])
	e.logger.Debug("exited state", "state", s.id, "next", next, "async", usedAsync)
	e.emit(ctx, e.hooks.OnStateExit, domain.EventStateExit, s.id, s.id, next, usedAsync, started, err)
}

// enter moves the pointer to st.state, then runs its enter hook.
func (e *Engine) enter(ctx context.Context, st step, suspend bool) {
	s, prev := st.state, st.other
	hooks := s.hooks

	e.setCurrent(s)
	started := time.Now()

	var err error
	usedAsync := suspend && hooks.OnEnterAsync != nil
	switch {
	case usedAsync:
		err = e.callAsync(ctx, prev, s.id, hooks.OnEnterAsync)
	case hooks.OnEnter != nil:
		err = e.callSync(prev, s.id, hooks.OnEnter)
	}

	e.logger.Debug("entered state", "state", s.id, "previous", prev, "async", usedAsync)
	e.emit(ctx, e.hooks.OnStateEnter, domain.EventStateEnter, s.id, prev, s.id, usedAsync, started, err)
}

// callSync invokes a synchronous hook, turning a panic into a reported error.
func (e *Engine) callSync(from, to string, fn func(from, to string)) (err error) {
	defer e.recoverHook(from, to, &err)
	fn(from, to)
	return nil
}

// callAsync awaits a suspendable hook. Errors are reported, never propagated.
func (e *Engine) callAsync(ctx context.Context, from, to string, fn func(context.Context, string, string) error) (err error) {
	defer e.recoverHook(from, to, &err)
	if hookErr := fn(ctx, from, to); hookErr != nil {
		err = e.report(fmt.Errorf("%s -> %s: %w: %w", from, to, domain.ErrHookFailed, hookErr))
	}
	return err
}

func (e *Engine) recoverHook(from, to string, err *error) {
	if r := recover(); r != nil {
		*err = e.report(fmt.Errorf("%s -> %s: %w: panic: %v", from, to, domain.ErrHookFailed, r))
	}
}

// emit calls a lifecycle hook. A panic is reported like a state hook panic.
func (e *Engine) emit(ctx context.Context, fn func(context.Context, *domain.StateEvent), kind domain.EventType, id, from, to string, isAsync bool, started time.Time, err error) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.report(fmt.Errorf("%s %s: %w: lifecycle panic: %v", kind, id, domain.ErrHookFailed, r))
		}
	}()
	fn(ctx, &domain.StateEvent{
		EventBase: domain.EventBase{Timestamp: started, Type: kind},
		StateID:   id,
		From:      from,
		To:        to,
		Async:     isAsync,
		Duration:  time.Since(started),
		Err:       err,
	})
}
