package testutils

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/dsl"
	"github.com/aretw0/canopy/pkg/registry"
)

// Recorder is a ports.Reporter that keeps every report in memory.
// Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	reports []Report
}

// Report is one recorded (source, error) pair.
type Report struct {
	Source string
	Err    error
}

// Report implements ports.Reporter.
func (r *Recorder) Report(source string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, Report{Source: source, Err: err})
}

// Reports returns a copy of the recorded reports.
func (r *Recorder) Reports() []Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Report, len(r.reports))
	copy(out, r.reports)
	return out
}

// Errors returns the recorded errors in order.
func (r *Recorder) Errors() []error {
	reports := r.Reports()
	out := make([]error, len(reports))
	for i, rep := range reports {
		out[i] = rep.Err
	}
	return out
}

// Reset drops every recorded report.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = nil
}

// HookLog records hook invocations as "enter <id> (<from>-><to>)" / "exit <id> (<from>-><to>)".
type HookLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *HookLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, fmt.Sprintf(format, args...))
}

// Entries returns a copy of the log.
func (l *HookLog) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// Reset clears the log.
func (l *HookLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// Hooks returns synchronous hooks for id that write to the log.
func (l *HookLog) Hooks(id string) domain.Hooks {
	return domain.Hooks{
		OnEnter: func(from, to string) { l.add("enter %s (%s->%s)", id, from, to) },
		OnExit:  func(from, to string) { l.add("exit %s (%s->%s)", id, from, to) },
	}
}

// AsyncHooks returns hooks for id whose suspendable variants log with an "async " prefix.
// The sync variants log like Hooks so tests can tell which one ran.
func (l *HookLog) AsyncHooks(id string) domain.Hooks {
	h := l.Hooks(id)
	h.OnEnterAsync = func(ctx context.Context, from, to string) error {
		l.add("async enter %s (%s->%s)", id, from, to)
		return nil
	}
	h.OnExitAsync = func(ctx context.Context, from, to string) error {
		l.add("async exit %s (%s->%s)", id, from, to)
		return nil
	}
	return h
}

// Sample tree ids, matching the layout below.
//
//	root: A
//	A:    A1  A2  B
//	B:    B1  C
//	C:    C1
const (
	A  = "A"
	A1 = "A1"
	A2 = "A2"
	B  = "B"
	B1 = "B1"
	C  = "C"
	C1 = "C1"
)

// SampleTree returns the three contributions that build the sample tree.
// Each state gets its hooks from hooksFor (nil means no hooks).
func SampleTree(hooksFor func(id string) domain.Hooks) []registry.Descriptor {
	state := func(id string) *dsl.Node {
		if hooksFor == nil {
			return dsl.State(id)
		}
		return dsl.State(id, dsl.WithHooks(hooksFor(id)))
	}

	return []registry.Descriptor{
		registry.Under(domain.RootStateID, func(parent *dsl.Node) error {
			return parent.Attach(state(A).Add(state(A1), state(A2)))
		}, registry.WithName("sample A")),
		registry.Under(A, func(parent *dsl.Node) error {
			return parent.Attach(state(B).Add(state(B1)))
		}, registry.WithName("sample B"), registry.WithPriority(math.MinInt)),
		registry.Under(B, func(parent *dsl.Node) error {
			return parent.Attach(state(C).Add(state(C1)))
		}, registry.WithName("sample C"), registry.WithPriority(math.MinInt)),
	}
}
