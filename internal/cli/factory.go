package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/logging"
	"github.com/aretw0/canopy/pkg/adapters/file"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/observability"
	"github.com/aretw0/canopy/pkg/ports"
)

// ErrNoTreeFiles is returned when no tree file was given by flag or environment.
var ErrNoTreeFiles = errors.New("no tree files: pass --file or set CANOPY_TREE_FILES")

// Build is the outcome of CreateMachine.
type Build struct {
	Machine *canopy.Machine

	mu       sync.Mutex
	problems []error
}

// Problems returns everything reported so far (also logged).
func (b *Build) Problems() []error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]error(nil), b.problems...)
}

func (b *Build) record(err error) {
	b.mu.Lock()
	b.problems = append(b.problems, err)
	b.mu.Unlock()
}

// MachineOption tweaks the machine before it is assembled.
type MachineOption func(*machineSetup)

type machineSetup struct {
	listeners []domain.Listener
	hooks     []domain.LifecycleHooks
	reporter  func(ports.Reporter) ports.Reporter
}

// WithListener subscribes l before assembly, so it sees the initial transition.
func WithListener(l domain.Listener) MachineOption {
	return func(s *machineSetup) {
		s.listeners = append(s.listeners, l)
	}
}

// WithMetrics wires m into the machine: hooks, listener and reporter.
func WithMetrics(m *observability.Metrics) MachineOption {
	return func(s *machineSetup) {
		s.hooks = append(s.hooks, m.LifecycleHooks())
		s.listeners = append(s.listeners, m.Listener())
		prev := s.reporter
		s.reporter = func(r ports.Reporter) ports.Reporter {
			if prev != nil {
				r = prev(r)
			}
			return m.WrapReporter(r)
		}
	}
}

// CreateMachine loads the tree files and assembles a machine with standard CLI conventions.
// Assembly problems are not fatal; they are collected by Build.Problems.
func CreateMachine(opts Options, logger *slog.Logger, extra ...MachineOption) (*Build, error) {
	if len(opts.Files) == 0 {
		return nil, ErrNoTreeFiles
	}

	descs, err := file.NewLoader().LoadFiles(opts.Files...)
	if err != nil {
		return nil, fmt.Errorf("error loading tree files: %w", err)
	}

	setup := &machineSetup{}
	for _, opt := range extra {
		opt(setup)
	}

	build := &Build{}
	logged := logging.NewReporter(logger)
	var reporter ports.Reporter = ports.ReporterFunc(func(source string, err error) {
		build.record(err)
		logged.Report(source, err)
	})
	if setup.reporter != nil {
		reporter = setup.reporter(reporter)
	}

	hooks := setup.hooks
	if opts.Debug {
		hooks = append(hooks, observability.LoggingHooks(logger))
	}

	initial := opts.InitialState
	if initial == "" {
		initial = domain.RootStateID
	}

	m := canopy.New(
		canopy.WithName(opts.Name),
		canopy.WithLogger(logger),
		canopy.WithReporter(reporter),
		canopy.WithVerificationMode(opts.Verify),
		canopy.WithInitialState(initial),
		canopy.WithLifecycleHooks(observability.Combine(hooks...)),
	)
	m.Register(descs...)
	for _, l := range setup.listeners {
		m.Subscribe(l)
	}

	// Problems were captured by the reporter.
	_ = m.Assemble()
	build.Machine = m
	return build, nil
}
