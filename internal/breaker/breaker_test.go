package breaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClosedByDefault(t *testing.T) {
	cb := New(Config{FailureThreshold: 3, CooldownPeriod: time.Minute})
	require.True(t, cb.Allow())
	require.False(t, cb.IsOpen())
}

func TestOpensAtThreshold(t *testing.T) {
	cb := New(Config{FailureThreshold: 3, CooldownPeriod: time.Minute})

	require.False(t, cb.RecordFailure())
	require.False(t, cb.RecordFailure())
	require.True(t, cb.RecordFailure())

	require.True(t, cb.IsOpen())
	require.False(t, cb.Allow())

	status := cb.Status()
	require.True(t, status.IsOpen)
	require.Equal(t, 3, status.Failures)
	require.False(t, status.InHalfOpenState)
}

func TestHalfOpenAfterCooldown(t *testing.T) {
	cb := New(Config{FailureThreshold: 1, CooldownPeriod: 10 * time.Millisecond})
	cb.RecordFailure()
	require.True(t, cb.IsOpen())

	var now time.Time
	cb.withClock(func() time.Time { return now })
	now = cb.Status().LastFailureTime.Add(11 * time.Millisecond)

	require.True(t, cb.Allow())
	require.True(t, cb.Status().InHalfOpenState)
}

func TestRecordSuccessClosesBreaker(t *testing.T) {
	cb := New(Config{FailureThreshold: 1, CooldownPeriod: time.Minute})
	cb.RecordFailure()
	require.True(t, cb.IsOpen())

	recovered := cb.RecordSuccess()
	require.True(t, recovered)
	require.False(t, cb.IsOpen())
	require.Equal(t, 0, cb.Status().Failures)
}

func TestRecordSuccessNoOpWhenAlreadyClosed(t *testing.T) {
	cb := New(Config{FailureThreshold: 3, CooldownPeriod: time.Minute})
	require.False(t, cb.RecordSuccess())
}

func TestDefaultsAppliedForZeroConfig(t *testing.T) {
	cb := New(Config{})
	require.Equal(t, 5, cb.cfg.FailureThreshold)
	require.Equal(t, 30*time.Second, cb.cfg.CooldownPeriod)
}
