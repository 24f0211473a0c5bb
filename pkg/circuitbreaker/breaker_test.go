package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errDown = errors.New("down")

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 3, Cooldown: time.Hour})

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, cb.Execute(context.Background(), func() error { return errDown }), errDown)
	}
	require.Equal(t, StateOpen, cb.State())

	err := cb.Execute(context.Background(), func() error { return nil })
	require.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 1, SuccessThreshold: 1, Cooldown: 5 * time.Millisecond})

	require.Error(t, cb.Execute(context.Background(), func() error { return errDown }))
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(10 * time.Millisecond)

	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
	require.Equal(t, StateClosed, cb.State())
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	cb := New("test", Config{FailureThreshold: 2})

	require.Error(t, cb.Execute(context.Background(), func() error { return errDown }))
	require.NoError(t, cb.Execute(context.Background(), func() error { return nil }))
	require.Error(t, cb.Execute(context.Background(), func() error { return errDown }))

	require.Equal(t, StateClosed, cb.State())
}
