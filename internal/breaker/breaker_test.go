package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brokerops/charterlink/pkg/logger"
)

func testBreaker(cfg Config) (*Breaker, *time.Time) {
	b := New("avinode", cfg, logger.NewNop())
	current := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return current }
	return b, &current
}

func TestBreakerLifecycle(t *testing.T) {
	cfg := Config{FailureThreshold: 3, SuccessThreshold: 2, ResetTimeout: time.Minute}
	b, clock := testBreaker(cfg)

	assert.Equal(t, StateClosed, b.State())

	// Three consecutive failures trip the circuit.
	for i := 0; i < 3; i++ {
		require.NoError(t, b.Allow())
		b.RecordFailure()
	}
	assert.Equal(t, StateOpen, b.State())

	// Within the reset window every call is rejected with metrics.
	err := b.Allow()
	var openErr *OpenError
	require.ErrorAs(t, err, &openErr)
	assert.Equal(t, "avinode", openErr.Service)
	assert.Equal(t, 3, openErr.Metrics.ConsecutiveFailures)
	assert.Equal(t, "open", openErr.Metrics.State)

	// After the reset timeout one trial call is allowed (half-open).
	*clock = clock.Add(cfg.ResetTimeout + time.Second)
	require.NoError(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())

	// Enough consecutive successes close the circuit again.
	b.RecordSuccess()
	assert.Equal(t, StateHalfOpen, b.State())
	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	cfg := Config{FailureThreshold: 1, SuccessThreshold: 2, ResetTimeout: time.Minute}
	b, clock := testBreaker(cfg)

	require.NoError(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())

	*clock = clock.Add(2 * time.Minute)
	require.NoError(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerSuccessResetsFailureStreak(t *testing.T) {
	cfg := Config{FailureThreshold: 3, SuccessThreshold: 1, ResetTimeout: time.Minute}
	b, _ := testBreaker(cfg)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, StateClosed, b.State(), "non-consecutive failures must not trip the circuit")
}

func TestBreakerExecuteFailurePredicate(t *testing.T) {
	cfg := Config{FailureThreshold: 1, SuccessThreshold: 1, ResetTimeout: time.Minute}
	b, _ := testBreaker(cfg)

	notFound := errors.New("not found")
	isFailure := func(err error) bool { return !errors.Is(err, notFound) }

	// A non-counting error propagates but leaves the circuit closed.
	err := b.Execute(func() error { return notFound }, isFailure)
	assert.ErrorIs(t, err, notFound)
	assert.Equal(t, StateClosed, b.State())

	err = b.Execute(func() error { return errors.New("boom") }, isFailure)
	require.Error(t, err)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerEmitsStateChanges(t *testing.T) {
	cfg := Config{FailureThreshold: 1, SuccessThreshold: 1, ResetTimeout: time.Minute}
	b, clock := testBreaker(cfg)

	var changes []StateChange
	b.OnStateChange(func(c StateChange) { changes = append(changes, c) })

	b.RecordFailure()
	*clock = clock.Add(2 * time.Minute)
	require.NoError(t, b.Allow())
	b.RecordSuccess()

	require.Len(t, changes, 3)
	assert.Equal(t, StateOpen, changes[0].To)
	assert.Equal(t, StateHalfOpen, changes[1].To)
	assert.Equal(t, StateClosed, changes[2].To)
}

func TestRegistryKeysBreakersByService(t *testing.T) {
	r := NewRegistry(DefaultConfig(), logger.NewNop())

	a := r.Get("avinode")
	assert.Same(t, a, r.Get("avinode"))
	assert.NotSame(t, a, r.Get("weather"))

	a.RecordFailure()
	metrics := r.Metrics()
	require.Contains(t, metrics, "avinode")
	require.Contains(t, metrics, "weather")
	assert.Equal(t, 1, metrics["avinode"].ConsecutiveFailures)
	assert.Equal(t, 0, metrics["weather"].ConsecutiveFailures)
}

func TestRegistryHealthy(t *testing.T) {
	r := NewRegistry(Config{FailureThreshold: 1, SuccessThreshold: 1, ResetTimeout: time.Minute}, logger.NewNop())
	assert.True(t, r.Healthy())

	r.Get("avinode").RecordFailure()
	assert.False(t, r.Healthy())
}
