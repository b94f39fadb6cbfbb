package alert

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingRunner struct {
	calls   atomic.Int32
	ran     chan struct{}
	timeout chan bool
}

func (r *countingRunner) Run(ctx context.Context) (Summary, error) {
	r.calls.Add(1)
	_, hasDeadline := ctx.Deadline()
	select {
	case r.timeout <- hasDeadline:
	default:
	}
	r.ran <- struct{}{}
	return Summary{}, nil
}

func TestScheduler_RunsImmediatelyThenOnInterval(t *testing.T) {
	clock := clockwork.NewFakeClock()
	runner := &countingRunner{ran: make(chan struct{}, 10), timeout: make(chan bool, 1)}
	s := NewScheduler(runner, 15*time.Minute, time.Minute, clock)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)

	waitRun := func() {
		t.Helper()
		select {
		case <-runner.ran:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for run")
		}
	}

	waitRun()
	assert.True(t, <-runner.timeout, "each run should carry a deadline")

	for i := 0; i < 2; i++ {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(15 * time.Minute)
		waitRun()
	}

	cancel()
	s.Stop()
	assert.Equal(t, int32(3), runner.calls.Load())
}

type busyRunner struct{ calls atomic.Int32 }

func (r *busyRunner) Run(ctx context.Context) (Summary, error) {
	r.calls.Add(1)
	return Summary{}, ErrRunInProgress
}

func TestScheduler_ToleratesRunInProgress(t *testing.T) {
	runner := &busyRunner{}
	s := NewScheduler(runner, time.Hour, time.Minute, clockwork.NewFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	assert.Eventually(t, func() bool { return runner.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	s.Stop()
}
