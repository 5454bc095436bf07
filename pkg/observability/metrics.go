package observability

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/ports"
)

const namespace = "canopy"

// Metrics holds the Prometheus collectors for one machine.
type Metrics struct {
	StateEnters  *prometheus.CounterVec
	StateExits   *prometheus.CounterVec
	HookDuration *prometheus.HistogramVec
	Transitions  *prometheus.CounterVec
	Errors       *prometheus.CounterVec
	CurrentState *prometheus.GaugeVec

	mu      sync.Mutex
	current string
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		StateEnters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_enters_total",
			Help:      "Total number of times a state was entered",
		}, []string{"state"}),
		StateExits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_exits_total",
			Help:      "Total number of times a state was exited",
		}, []string{"state"}),
		HookDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "hook_duration_seconds",
			Help:      "Duration of enter and exit hooks",
			Buckets:   prometheus.DefBuckets,
		}, []string{"state", "phase", "async"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Total number of completed transitions by target state",
		}, []string{"to"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of reported errors",
		}, []string{"source", "kind"}),
		CurrentState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "current_state",
			Help:      "1 for the state the machine is currently in, 0 otherwise",
		}, []string{"state"}),
	}

	for _, c := range []prometheus.Collector{m.StateEnters, m.StateExits, m.HookDuration, m.Transitions, m.Errors, m.CurrentState} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
	}
	return m, nil
}

// LifecycleHooks returns hooks that count enters/exits and time their hooks.
func (m *Metrics) LifecycleHooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateEnter: func(_ context.Context, e *domain.StateEvent) {
			m.StateEnters.WithLabelValues(e.StateID).Inc()
			m.observe(e, "enter")
		},
		OnStateExit: func(_ context.Context, e *domain.StateEvent) {
			m.StateExits.WithLabelValues(e.StateID).Inc()
			m.observe(e, "exit")
		},
	}
}

func (m *Metrics) observe(e *domain.StateEvent, phase string) {
	m.HookDuration.WithLabelValues(e.StateID, phase, strconv.FormatBool(e.Async)).Observe(e.Duration.Seconds())
}

// Listener returns a transition listener that tracks completed transitions
// and the current-state gauge.
func (m *Metrics) Listener() domain.Listener {
	return func(from, to string) {
		m.Transitions.WithLabelValues(to).Inc()

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.current != "" {
			m.CurrentState.WithLabelValues(m.current).Set(0)
		}
		m.CurrentState.WithLabelValues(to).Set(1)
		m.current = to
	}
}

// WrapReporter counts every report by source and kind before passing it on.
func (m *Metrics) WrapReporter(next ports.Reporter) ports.Reporter {
	return ports.ReporterFunc(func(source string, err error) {
		m.Errors.WithLabelValues(source, domain.ErrorKind(err)).Inc()
		if next != nil {
			next.Report(source, err)
		}
	})
}
