package alert

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type Runner interface {
	Run(ctx context.Context) (Summary, error)
}

// Scheduler triggers a run immediately on Start and then every interval.
// Each run is bounded by timeout.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	timeout  time.Duration
	clock    clockwork.Clock
	wg       sync.WaitGroup
}

func NewScheduler(runner Runner, interval, timeout time.Duration, clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		timeout:  timeout,
		clock:    clock,
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("starting alert scheduler", "interval", s.interval, "timeout", s.timeout)
	s.wg.Add(1)
	go s.loop(ctx)
}

// Stop waits for the loop to exit. Cancel the Start context first.
func (s *Scheduler) Stop() {
	s.wg.Wait()
	slog.Info("alert scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	summary, err := s.runner.Run(runCtx)
	switch {
	case errors.Is(err, ErrRunInProgress):
		slog.Info("skipping scheduled alert run, another run is in progress")
	case err != nil:
		slog.Error("scheduled alert run failed", "error", err)
	case summary.Failed > 0:
		slog.Warn("scheduled alert run had failures", "failed", summary.Failed, "error", summary.Err())
	}
}
