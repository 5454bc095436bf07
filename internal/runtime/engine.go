package runtime

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
	"golang.org/x/sync/semaphore"
)

// Engine owns a frozen state map and the current-state pointer.
// Only one transition runs at a time; see ChangeState and ChangeStateAsync.
type Engine struct {
	states map[string]*State
	order  []string

	reporter ports.Reporter
	logger   *slog.Logger
	hooks    domain.LifecycleHooks

	// guard admits a single in-flight transition.
	guard *semaphore.Weighted

	mu           sync.RWMutex
	current      *State
	listeners    []listener
	nextListener uint64
}

type listener struct {
	id uint64
	fn domain.Listener
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithReporter sets the sink for fail-soft errors.
func WithReporter(r ports.Reporter) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.reporter = r
		}
	}
}

// WithLogger sets the structured logger used for debug traces.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// NewEngine creates an engine over a frozen map. order lists the ids in assembly order.
func NewEngine(states map[string]*State, order []string, opts ...EngineOption) *Engine {
	if states == nil {
		states = make(map[string]*State)
	}
	e := &Engine{
		states:   states,
		order:    order,
		reporter: ports.ReporterFunc(func(string, error) {}),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		guard:    semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Subscribe registers l for completed transitions and returns a func that removes it.
func (e *Engine) Subscribe(l domain.Listener) func() {
	if l == nil {
		return func() {}
	}

	e.mu.Lock()
	e.nextListener++
	id := e.nextListener
	e.listeners = append(e.listeners, listener{id: id, fn: l})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { e.unsubscribe(id) })
	}
}

func (e *Engine) unsubscribe(id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, l := range e.listeners {
		if l.id == id {
			e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
			return
		}
	}
}

// notify calls every listener in registration order. A panicking listener is
// reported and the remaining ones still run.
func (e *Engine) notify(from, to string) {
	e.mu.RLock()
	ls := make([]listener, len(e.listeners))
	copy(ls, e.listeners)
	e.mu.RUnlock()

	for _, l := range ls {
		e.callListener(l.fn, from, to)
	}
}

func (e *Engine) callListener(fn domain.Listener, from, to string) {
	defer func() {
		if r := recover(); r != nil {
			e.report(fmt.Errorf("%s -> %s: %w: listener panic: %v", from, to, domain.ErrHookFailed, r))
		}
	}()
	fn(from, to)
}

func (e *Engine) report(err error) error {
	e.reporter.Report(domain.SourceMachine, err)
	return err
}

func (e *Engine) setCurrent(s *State) {
	e.mu.Lock()
	e.current = s
	e.mu.Unlock()
}

func (e *Engine) currentState() *State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}
