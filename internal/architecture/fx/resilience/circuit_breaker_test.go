package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestFactory() *CircuitBreakerFactory {
	return NewCircuitBreakerFactory(CircuitBreakerParams{Logger: zap.NewNop()})
}

func TestExecuteRecordsSuccessAndFailure(t *testing.T) {
	f := newTestFactory()

	result := f.Execute("svc", func() (interface{}, error) { return "ok", nil })
	require.NoError(t, result.Error)
	assert.Equal(t, "ok", result.Value)

	result = f.Execute("svc", func() (interface{}, error) { return nil, errors.New("boom") })
	assert.Error(t, result.Error)

	metrics := f.GetMetrics()
	assert.Equal(t, int64(2), metrics.GetExecutionCount("svc"))
	assert.Equal(t, int64(1), metrics.GetSuccessCount("svc"))
	assert.Equal(t, int64(1), metrics.GetFailureCount("svc"))
	assert.InDelta(t, 0.5, metrics.GetSuccessRate("svc"), 1e-9)
}

func TestExecuteWithContextPropagatesCancellation(t *testing.T) {
	f := newTestFactory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := f.ExecuteWithContext(ctx, "ctx-svc", func(ctx context.Context) (interface{}, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	assert.ErrorIs(t, result.Error, context.Canceled)
}

func TestExecuteWithFallbackRunsFallbackOnFailure(t *testing.T) {
	f := newTestFactory()

	result := f.ExecuteWithFallback("fb-svc",
		func() (interface{}, error) { return nil, errors.New("unreachable") },
		func(err error) (interface{}, error) { return "degraded", nil },
	)

	require.NoError(t, result.Error)
	assert.Equal(t, "degraded", result.Value)

	metrics := f.GetMetrics()
	assert.Equal(t, int64(1), metrics.GetFallbackCount("fb-svc"))
	assert.Equal(t, int64(1), metrics.GetFallbackSuccessCount("fb-svc"))
	assert.InDelta(t, 1.0, metrics.GetFallbackSuccessRate("fb-svc"), 1e-9)
}

func TestGetCircuitBreakerWithSettingsReusesUnchangedSettings(t *testing.T) {
	f := newTestFactory()
	settings := gobreaker.Settings{Name: "custom", MaxRequests: 2}

	first := f.GetCircuitBreakerWithSettings("custom", settings)
	second := f.GetCircuitBreakerWithSettings("custom", settings)

	assert.Same(t, first, second)
}

func TestGetCircuitBreakerWithSettingsReplacesChangedSettings(t *testing.T) {
	f := newTestFactory()
	first := f.GetCircuitBreakerWithSettings("custom", gobreaker.Settings{Name: "custom", MaxRequests: 1})
	second := f.GetCircuitBreakerWithSettings("custom", gobreaker.Settings{Name: "custom", MaxRequests: 5})

	assert.NotSame(t, first, second)
}

func TestGetStateDefaultsToClosedForUnknownBreaker(t *testing.T) {
	f := newTestFactory()
	assert.Equal(t, gobreaker.StateClosed, f.GetState("never-seen"))

	f.GetCircuitBreaker("known")
	assert.Equal(t, gobreaker.StateClosed, f.GetState("known"))
}

func TestResetClearsBreakersAndMetrics(t *testing.T) {
	f := newTestFactory()
	f.Execute("svc", func() (interface{}, error) { return "ok", nil })
	require.Equal(t, int64(1), f.GetMetrics().GetExecutionCount("svc"))

	f.Reset()

	assert.Equal(t, int64(0), f.GetMetrics().GetExecutionCount("svc"))
	assert.Equal(t, gobreaker.StateClosed, f.GetState("svc"))
}

func TestTrippedBreakerRecordsStateChange(t *testing.T) {
	f := newTestFactory()
	settings := gobreaker.Settings{
		Name:        "flaky",
		MaxRequests: 1,
		ReadyToTrip: func(counts gobreaker.Counts) bool { return counts.ConsecutiveFailures >= 1 },
	}
	f.GetCircuitBreakerWithSettings("flaky", settings)

	result := f.Execute("flaky", func() (interface{}, error) { return nil, errors.New("down") })
	assert.Error(t, result.Error)

	assert.Equal(t, gobreaker.StateOpen, f.GetState("flaky"))
	assert.Equal(t, int64(1), f.GetMetrics().GetStateChangeCount("flaky", "closed", "open"))
}
