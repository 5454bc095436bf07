package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/canopy"
	"github.com/aretw0/canopy/internal/testutils"
	"github.com/aretw0/canopy/pkg/domain"
	"github.com/aretw0/canopy/pkg/observability"
)

func newMachine(t *testing.T, metrics *observability.Metrics, rec *testutils.Recorder, hooks domain.LifecycleHooks) *canopy.Machine {
	t.Helper()
	m := canopy.New(
		canopy.WithReporter(metrics.WrapReporter(rec)),
		canopy.WithLifecycleHooks(hooks),
	)
	m.Register(testutils.SampleTree(nil)...)
	m.Subscribe(metrics.Listener())
	require.NoError(t, m.Assemble())
	return m
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	rec := &testutils.Recorder{}
	m := newMachine(t, metrics, rec, metrics.LifecycleHooks())

	require.NoError(t, m.ChangeState(testutils.A1))
	require.NoError(t, m.ChangeState(testutils.B1))
	_ = m.ChangeState("missing")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StateEnters.WithLabelValues(testutils.A1)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StateExits.WithLabelValues(testutils.A1)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StateEnters.WithLabelValues(testutils.B)))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.StateExits.WithLabelValues(testutils.A)))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Transitions.WithLabelValues(domain.RootStateID)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Transitions.WithLabelValues(testutils.B1)))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CurrentState.WithLabelValues(testutils.B1)))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.CurrentState.WithLabelValues(testutils.A1)))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Errors.WithLabelValues(domain.SourceMachine, "unknown_state")))
	assert.Len(t, rec.Errors(), 1, "reports are forwarded")

	count, err := testutil.GatherAndCount(reg, "canopy_hook_duration_seconds")
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestNewMetrics_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	_, err = observability.NewMetrics(reg)
	assert.Error(t, err)
}

func TestCombineAndLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var enters int
	counting := domain.LifecycleHooks{
		OnStateEnter: func(_ context.Context, _ *domain.StateEvent) { enters++ },
	}

	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	m := newMachine(t, metrics, &testutils.Recorder{}, observability.Combine(
		counting,
		observability.LoggingHooks(logger),
		domain.LifecycleHooks{},
	))
	require.NoError(t, m.ChangeState(testutils.A2))
	require.NoError(t, m.ChangeState(testutils.A1))

	// root (assemble), A, A2, A1
	assert.Equal(t, 4, enters)
	assert.Contains(t, buf.String(), "msg=state_enter state=A2")
	assert.Contains(t, buf.String(), "msg=state_exit state=A2")
}

func TestCombine_Empty(t *testing.T) {
	hooks := observability.Combine()
	assert.Nil(t, hooks.OnStateEnter)
	assert.Nil(t, hooks.OnStateExit)
}
