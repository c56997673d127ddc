// Package poll schedules periodic work. Viewers of a session refresh on a
// fixed interval and the server re-checks pending payments the same way;
// both go through Scheduler so either can move to a push mechanism without
// touching the code being scheduled.
package poll

import (
	"context"
	"log/slog"
	"time"
)

// Task is one unit of scheduled work.
type Task func(ctx context.Context) error

// Scheduler runs a task repeatedly until ctx is done.
type Scheduler interface {
	Run(ctx context.Context, name string, task Task) error
	// Interval is the period between runs, advertised to polling clients.
	Interval() time.Duration
}

// Ticker runs tasks on a fixed interval. A failing run is logged and the
// schedule continues.
type Ticker struct {
	every time.Duration
}

var _ Scheduler = Ticker{}

// Every returns a Ticker with the given period.
func Every(d time.Duration) Ticker {
	return Ticker{every: d}
}

// Interval returns the period between runs.
func (t Ticker) Interval() time.Duration {
	return t.every
}

// Run blocks until ctx is done, running task once per interval. It returns
// nil on cancellation. A non-positive interval disables the schedule.
func (t Ticker) Run(ctx context.Context, name string, task Task) error {
	if t.every <= 0 {
		slog.Info("scheduled task disabled", "task", name)
		return nil
	}

	tick := time.NewTicker(t.every)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			if err := task(ctx); err != nil && ctx.Err() == nil {
				slog.Warn("scheduled task failed", "task", name, "error", err)
			}
		}
	}
}
