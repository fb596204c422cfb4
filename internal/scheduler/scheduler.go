// Package scheduler runs the top-level monitor loop: attach to an auction
// that is already live, or predict the next window, wait for it, look for the
// auction during the grace period, and hand off to an auction.Monitor.
//
// Each cycle ends in an explicit Outcome. Errors are reported at the loop
// iteration that caught them and never stop the process; only ctx
// cancellation ends Run.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/albapepper/darkauction/internal/auction"
	"github.com/albapepper/darkauction/internal/clock"
	"github.com/albapepper/darkauction/internal/failure"
	"github.com/albapepper/darkauction/internal/metrics"
	"github.com/albapepper/darkauction/internal/notifications"
	"github.com/albapepper/darkauction/internal/provider"
	"github.com/albapepper/darkauction/internal/skytime"
	"github.com/albapepper/darkauction/internal/status"
)

const (
	stageDetect = "waiting for auction start"
	stageLoop   = "main loop"
)

// Outcome is how a cycle ended.
type Outcome string

const (
	Completed Outcome = "completed"
	NoAuction Outcome = "no_auction"
	Failed    Outcome = "failed"
	Stopped   Outcome = "stopped"
)

// CycleResult describes one pass through the loop.
type CycleResult struct {
	Outcome  Outcome
	Attached bool // auction was already live when the cycle began
	Window   time.Time
	Summary  *auction.Summary
	Err      error
}

func (r CycleResult) String() string {
	return fmt.Sprintf("outcome=%s attached=%t window=%s", r.Outcome, r.Attached, r.Window.Format(time.DateTime))
}

// --------------------------------------------------------------------------
// Dependencies
// --------------------------------------------------------------------------

// Source is the data source the loop polls.
type Source interface {
	Fetch(ctx context.Context) (provider.Reading, error)
	CheckPresence(ctx context.Context) bool
}

// Reporter emits notifications best-effort.
type Reporter interface {
	Send(ctx context.Context, msg notifications.Message)
	ReportError(ctx context.Context, stage string, err error)
	NoAuction(ctx context.Context)
}

// Waiter blocks until a target instant.
type Waiter interface {
	WaitUntil(ctx context.Context, target time.Time) error
}

// Progress receives console output.
type Progress interface {
	Status(line string) error
	Println(line string) error
}

// Deps holds the collaborators of the Orchestrator. Progress and Tracker are optional.
type Deps struct {
	Source   Source
	Reporter Reporter
	Waiter   Waiter
	Clock    clock.Clock
	Calendar skytime.Calendar
	Progress Progress
	Tracker  *status.Tracker
	Logger   *slog.Logger
}

// Settings tunes the loop cadence.
type Settings struct {
	DetectInterval time.Duration
	GracePeriod    time.Duration
	SampleInterval time.Duration
	LowFloor       int
}

// --------------------------------------------------------------------------
// Orchestrator
// --------------------------------------------------------------------------

// Orchestrator owns the current auction.Monitor exclusively.
type Orchestrator struct {
	deps     Deps
	settings Settings
	logger   *slog.Logger
}

// New creates an Orchestrator.
func New(settings Settings, deps Deps) *Orchestrator {
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Tracker == nil {
		deps.Tracker = status.NewTracker(deps.Clock.Now)
	}
	return &Orchestrator{
		deps:     deps,
		settings: settings,
		logger:   deps.Logger.With("component", "scheduler"),
	}
}

// Run loops until ctx is cancelled. It always returns nil: cancellation is
// the normal way to stop.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("Dark Auction monitor started",
		"grace_period", o.settings.GracePeriod,
		"sample_interval", o.settings.SampleInterval)
	for {
		res := o.Cycle(ctx)
		metrics.IncCycle(string(res.Outcome))
		o.logger.Debug("Cycle finished", "result", res.String())

		switch res.Outcome {
		case Stopped:
			o.deps.Tracker.SetPhase(status.PhaseStopped, time.Time{})
			o.logger.Info("Dark Auction monitor stopped")
			return nil
		case Failed:
			o.deps.Reporter.ReportError(ctx, stageLoop, res.Err)
			// back off so a persistent fault does not spin
			if err := o.deps.Clock.Sleep(ctx, o.settings.DetectInterval); err != nil {
				o.deps.Tracker.SetPhase(status.PhaseStopped, time.Time{})
				return nil
			}
		}
	}
}

// Cycle runs one pass of the loop. Panics are recovered into a Failed outcome.
func (o *Orchestrator) Cycle(ctx context.Context) (res CycleResult) {
	defer func() {
		if r := recover(); r != nil {
			res = CycleResult{Outcome: Failed, Err: failure.Recovered(stageLoop, r)}
		}
	}()
	if ctx.Err() != nil {
		return CycleResult{Outcome: Stopped, Err: ctx.Err()}
	}

	if o.deps.Source.CheckPresence(ctx) {
		return o.attach(ctx)
	}
	if ctx.Err() != nil {
		return CycleResult{Outcome: Stopped, Err: ctx.Err()}
	}
	return o.awaitWindow(ctx)
}

// attach monitors an auction that was already live, backfilling its start to
// the most recent cadence boundary.
func (o *Orchestrator) attach(ctx context.Context) CycleResult {
	now := o.deps.Clock.Now()
	start := skytime.Time(o.deps.Calendar.LastBoundary(skytime.Millis(now)))
	o.println("Auction detected on startup. Monitoring current auction.")
	o.logger.Info("Auction already running, attaching", "assumed_start", start.Format(time.DateTime))

	res := o.monitor(ctx, o.newMonitor(start))
	res.Attached = true
	res.Window = start
	return res
}

// awaitWindow waits for the next predicted window, then polls for the
// auction until the grace period runs out.
func (o *Orchestrator) awaitWindow(ctx context.Context) CycleResult {
	nowMs := skytime.Millis(o.deps.Clock.Now())
	window := skytime.Time(o.deps.Calendar.NextWindowStart(nowMs))
	o.deps.Tracker.SetPhase(status.PhaseWaiting, window)
	metrics.SetNextWindow(window)

	if err := o.deps.Waiter.WaitUntil(ctx, window); err != nil {
		return CycleResult{Outcome: Stopped, Window: window, Err: err}
	}

	o.deps.Tracker.SetPhase(status.PhaseDetecting, window)
	deadline := window.Add(o.settings.GracePeriod)
	for o.deps.Clock.Now().Before(deadline) {
		reading, err := o.detect(ctx)
		switch {
		case ctx.Err() != nil:
			return CycleResult{Outcome: Stopped, Window: window, Err: ctx.Err()}
		case err != nil:
			o.deps.Reporter.ReportError(ctx, stageDetect, err)
		case reading.Present:
			m := o.newMonitor(window)
			m.Observe(reading, o.deps.Clock.Now())
			res := o.monitor(ctx, m)
			res.Window = window
			return res
		}
		if err := o.deps.Clock.Sleep(ctx, o.settings.DetectInterval); err != nil {
			return CycleResult{Outcome: Stopped, Window: window, Err: err}
		}
	}

	o.println("No Dark Auction found within the expected window.")
	o.logger.Warn("No Dark Auction found within the expected window",
		"window", window.Format(time.DateTime), "grace_period", o.settings.GracePeriod)
	o.deps.Tracker.MissedWindow()
	o.deps.Reporter.NoAuction(ctx)
	return CycleResult{Outcome: NoAuction, Window: window}
}

func (o *Orchestrator) detect(ctx context.Context) (r provider.Reading, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = failure.Recovered(stageDetect, p)
		}
	}()
	return o.deps.Source.Fetch(ctx)
}

func (o *Orchestrator) monitor(ctx context.Context, m *auction.Monitor) CycleResult {
	sum, err := m.Run(ctx)
	switch {
	case err == nil:
		return CycleResult{Outcome: Completed, Summary: &sum}
	case ctx.Err() != nil:
		return CycleResult{Outcome: Stopped, Err: ctx.Err()}
	case errors.Is(err, auction.ErrNotDetected):
		o.println("No Dark Auction found.")
		o.deps.Tracker.MissedWindow()
		o.deps.Reporter.NoAuction(ctx)
		return CycleResult{Outcome: NoAuction, Err: err}
	default:
		return CycleResult{Outcome: Failed, Err: err}
	}
}

func (o *Orchestrator) newMonitor(start time.Time) *auction.Monitor {
	return auction.NewMonitor(start,
		auction.Settings{SampleInterval: o.settings.SampleInterval, LowFloor: o.settings.LowFloor},
		auction.Deps{
			Source:   o.deps.Source,
			Reporter: o.deps.Reporter,
			Clock:    o.deps.Clock,
			Progress: o.deps.Progress,
			Observer: o.deps.Tracker,
			Logger:   o.deps.Logger,
		})
}

func (o *Orchestrator) println(line string) {
	if o.deps.Progress != nil {
		_ = o.deps.Progress.Println(line)
	}
}
