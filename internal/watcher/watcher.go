// Package watcher blocks until a predicted Dark Auction window opens,
// printing a countdown once per tick.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/albapepper/darkauction/internal/clock"
	"github.com/albapepper/darkauction/internal/failure"
	"github.com/albapepper/darkauction/internal/skytime"
)

const stage = "wait for window"

// Progress receives countdown output.
type Progress interface {
	Status(line string) error
	Println(line string) error
}

// Reporter receives errors caught during a tick.
type Reporter interface {
	ReportError(ctx context.Context, stage string, err error)
}

// Watcher counts down to a target instant.
type Watcher struct {
	clock    clock.Clock
	interval time.Duration
	out      Progress
	reporter Reporter
	logger   *slog.Logger
}

// New creates a Watcher ticking every interval.
func New(c clock.Clock, interval time.Duration, out Progress, reporter Reporter, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		clock:    c,
		interval: interval,
		out:      out,
		reporter: reporter,
		logger:   logger.With("component", "watcher"),
	}
}

// WaitUntil returns nil once target has been reached, or ctx.Err() if ctx is
// cancelled first. Errors raised while reporting a tick are reported and the
// countdown continues.
func (w *Watcher) WaitUntil(ctx context.Context, target time.Time) error {
	w.logger.Info("Waiting for next Dark Auction", "at", target.Format(time.DateTime))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		remaining := target.Sub(w.clock.Now())
		if remaining <= 0 {
			if err := w.out.Println("The Dark Auction is starting now!"); err != nil {
				w.report(ctx, err)
			}
			return nil
		}

		if err := w.tick(remaining); err != nil {
			w.report(ctx, err)
		}

		if err := w.clock.Sleep(ctx, min(w.interval, remaining)); err != nil {
			return err
		}
	}
}

func (w *Watcher) tick(remaining time.Duration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = failure.Recovered(stage, r)
		}
	}()
	line := fmt.Sprintf("Time left until the next Dark Auction: %s", skytime.Format(remaining))
	if err := w.out.Status(line); err != nil {
		return fmt.Errorf("write countdown: %w", err)
	}
	return nil
}

func (w *Watcher) report(ctx context.Context, err error) {
	if w.reporter != nil {
		w.reporter.ReportError(ctx, stage, err)
		return
	}
	w.logger.Warn("Countdown tick failed", "error", err)
}
