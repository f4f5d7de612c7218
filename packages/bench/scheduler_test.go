package bench

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerAcquireRelease(t *testing.T) {
	s := NewScheduler(100, 2)
	ctx := context.Background()

	require.NoError(t, s.Acquire(ctx))
	require.NoError(t, s.Acquire(ctx))
	assert.Equal(t, 2, s.InFlight())

	ctx2, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Acquire(ctx2), context.DeadlineExceeded)

	s.Release()
	assert.Equal(t, 1, s.InFlight())
	require.NoError(t, s.Acquire(ctx))
}

func TestSchedulerMinimumConcurrency(t *testing.T) {
	s := NewScheduler(10, 0)
	require.NoError(t, s.Acquire(context.Background()))
	assert.Equal(t, 1, s.InFlight())
}

func TestSchedulerWaitPacesStarts(t *testing.T) {
	s := NewScheduler(50, 10)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 6; i++ {
		require.NoError(t, s.Wait(ctx))
	}

	// burst of one, then 20ms apart
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestSchedulerWaitCancelled(t *testing.T) {
	s := NewScheduler(0.1, 1)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Wait(ctx))

	cancel()
	assert.Error(t, s.Wait(ctx))
}
