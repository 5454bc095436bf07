package canopy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/internal/runtime"
	"github.com/aretw0/canopy/pkg/async"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
	"github.com/aretw0/canopy/pkg/registry"
)

// Machine is the high-level entry point of the library.
// It collects contributions, assembles them into a frozen tree and drives
// transitions over it. Every failure is handed to the Reporter; nothing panics.
type Machine struct {
	Name string

	registry     *registry.Registry
	reporter     ports.Reporter
	logger       *slog.Logger
	hooks        domain.LifecycleHooks
	verification bool
	initial      string

	mu      sync.RWMutex
	engine  *runtime.Engine
	pending []*subscription

	initialized atomic.Bool
}

var _ ports.Machine = (*Machine)(nil)

// subscription holds a listener registered before the engine exists.
type subscription struct {
	mu     sync.Mutex
	fn     domain.Listener
	cancel func()
	done   bool
}

// Option defines a functional option for configuring the Machine.
type Option func(*Machine)

// WithName labels the machine in logs and published events.
func WithName(name string) Option {
	return func(m *Machine) {
		m.Name = name
	}
}

// WithLogger sets a custom structured logger for the machine.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithReporter sets the sink for fail-soft errors (default: log at error level).
func WithReporter(r ports.Reporter) Option {
	return func(m *Machine) {
		m.reporter = r
	}
}

// WithVerificationMode drops contributions flagged SkipInVerification.
func WithVerificationMode(enabled bool) Option {
	return func(m *Machine) {
		m.verification = enabled
	}
}

// WithRegistry uses r instead of a fresh, empty registry.
func WithRegistry(r *registry.Registry) Option {
	return func(m *Machine) {
		if r != nil {
			m.registry = r
		}
	}
}

// WithInitialState sets the state entered by Assemble (default: root).
func WithInitialState(id string) Option {
	return func(m *Machine) {
		m.initial = id
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Machine) {
		m.hooks = hooks
	}
}

// New creates an unassembled Machine.
func New(opts ...Option) *Machine {
	m := &Machine{
		registry: registry.NewRegistry(),
		initial:  domain.RootStateID,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.logger == nil {
		m.logger = logging.NewNop()
	}
	if m.Name != "" {
		m.logger = m.logger.With("machine", m.Name)
	}
	if m.reporter == nil {
		m.reporter = logging.NewReporter(m.logger)
	}
	return m
}

// Register adds contributions. Only contributions registered before Assemble are used.
func (m *Machine) Register(descriptors ...registry.Descriptor) {
	m.registry.Register(descriptors...)
}

// Contribute is shorthand for Register(registry.Under(parent, apply, opts...)).
func (m *Machine) Contribute(parent string, apply registry.ApplyFunc, opts ...registry.Option) {
	m.registry.Register(registry.Under(parent, apply, opts...))
}

// Registry returns the registry the machine assembles from.
func (m *Machine) Registry() *registry.Registry {
	return m.registry
}

// Assemble resolves every contribution, freezes the tree and enters the
// initial state. It runs once; later calls report ErrAlreadyAssembled.
//
// Problems found along the way are reported one by one and also returned
// joined together. The machine is usable even when the error is non-nil.
func (m *Machine) Assemble() error {
	m.mu.Lock()
	if m.engine != nil {
		m.mu.Unlock()
		return m.report(domain.SourceMachine, fmt.Errorf("assemble: %w", domain.ErrAlreadyAssembled))
	}

	var problems []error
	root, errs := m.registry.Resolve(m.verification)
	for _, err := range errs {
		problems = append(problems, m.report(domain.SourceRegistry, err))
	}

	states, order, errs := runtime.Freeze(root)
	for _, err := range errs {
		problems = append(problems, m.report(domain.SourceFreeze, err))
	}

	m.engine = runtime.NewEngine(states, order,
		runtime.WithReporter(m.reporter),
		runtime.WithLogger(m.logger),
		runtime.WithLifecycleHooks(m.hooks),
	)
	for _, sub := range m.pending {
		sub.attach(m.engine)
	}
	m.pending = nil
	m.mu.Unlock()

	m.logger.Debug("machine assembled", "states", len(order), "verification", m.verification, "problems", len(problems))
	if err := m.engine.ChangeState(m.initial); err != nil {
		problems = append(problems, err)
	}
	m.initialized.Store(true)

	return errors.Join(problems...)
}

// Initialized reports whether Assemble has completed.
func (m *Machine) Initialized() bool {
	return m.initialized.Load()
}

// Shutdown moves the machine back to the root, running every exit hook of the current branch.
func (m *Machine) Shutdown() error {
	if !m.Initialized() {
		return nil
	}
	return m.ChangeState(domain.RootStateID)
}

// ChangeState runs a synchronous transition to id.
// Errors are reported before being returned; callers may ignore them.
func (m *Machine) ChangeState(id string) error {
	e, err := m.runtime()
	if err != nil {
		return err
	}
	return e.ChangeState(id)
}

// ChangeStateAsync runs a transition to id that awaits suspendable hooks.
// The future completes once listeners have been notified.
func (m *Machine) ChangeStateAsync(ctx context.Context, id string) *async.Future[domain.Transition] {
	e, err := m.runtime()
	if err != nil {
		return async.Resolved(domain.Transition{}, err)
	}
	return e.ChangeStateAsync(ctx, id)
}

// CurrentStateID returns the current state, or "" before the first transition.
func (m *Machine) CurrentStateID() string {
	if e := m.engineOrNil(); e != nil {
		return e.CurrentStateID()
	}
	return ""
}

// StateExists reports whether id is part of the assembled tree.
func (m *Machine) StateExists(id string) bool {
	if e := m.engineOrNil(); e != nil {
		return e.StateExists(id)
	}
	return false
}

// ChildCount returns the number of direct children of id.
func (m *Machine) ChildCount(id string) int {
	e, err := m.runtime()
	if err != nil {
		return 0
	}
	return e.ChildCount(id)
}

// StateInfo returns a snapshot of id.
func (m *Machine) StateInfo(id string) domain.StateInfo {
	e, err := m.runtime()
	if err != nil {
		return domain.StateInfo{}
	}
	return e.StateInfo(id)
}

// AllStates returns every state id in assembly order.
func (m *Machine) AllStates() []string {
	if e := m.engineOrNil(); e != nil {
		return e.AllStates()
	}
	return nil
}

// Subscribe registers l for completed transitions and returns a func that removes it.
// Listeners registered before Assemble also observe the transition to the initial state.
func (m *Machine) Subscribe(l domain.Listener) func() {
	if l == nil {
		return func() {}
	}

	m.mu.Lock()
	if m.engine != nil {
		e := m.engine
		m.mu.Unlock()
		return e.Subscribe(l)
	}
	sub := &subscription{fn: l}
	m.pending = append(m.pending, sub)
	m.mu.Unlock()

	return sub.unsubscribe
}

func (m *Machine) engineOrNil() *runtime.Engine {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.engine
}

func (m *Machine) runtime() (*runtime.Engine, error) {
	if e := m.engineOrNil(); e != nil {
		return e, nil
	}
	return nil, m.report(domain.SourceMachine, domain.ErrNotAssembled)
}

func (m *Machine) report(source string, err error) error {
	m.reporter.Report(source, err)
	return err
}

func (s *subscription) attach(e *runtime.Engine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.done {
		s.cancel = e.Subscribe(s.fn)
	}
}

func (s *subscription) unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	if s.cancel != nil {
		s.cancel()
	}
}
