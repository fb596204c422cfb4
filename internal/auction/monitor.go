// Package auction tracks a single Dark Auction from first sighting to the
// poll where it disappears, and produces its summary.
//
// A Monitor moves Idle -> Active -> Finalized exactly once. The orchestrator
// builds a fresh Monitor for every auction it attaches to.
package auction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/albapepper/darkauction/internal/clock"
	"github.com/albapepper/darkauction/internal/failure"
	"github.com/albapepper/darkauction/internal/metrics"
	"github.com/albapepper/darkauction/internal/notifications"
	"github.com/albapepper/darkauction/internal/provider"
)

const stage = "auction monitoring"

// ErrNotDetected is returned by Run when the first poll does not show the
// auction. The caller owns the "no auction" notice.
var ErrNotDetected = errors.New("no dark auction detected")

// State is the monitor lifecycle position.
type State int

const (
	Idle State = iota
	Active
	Finalized
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Finalized:
		return "finalized"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// --------------------------------------------------------------------------
// Dependencies
// --------------------------------------------------------------------------

// Source fetches one reading of the monitored mode.
type Source interface {
	Fetch(ctx context.Context) (provider.Reading, error)
}

// Reporter emits notifications and error reports best-effort.
type Reporter interface {
	Send(ctx context.Context, msg notifications.Message)
	ReportError(ctx context.Context, stage string, err error)
}

// Progress receives console output.
type Progress interface {
	Status(line string) error
	Println(line string) error
}

// Observer is told about every sample and the final summary.
type Observer interface {
	Sampled(runID string, s Stats)
	Finished(sum Summary)
}

// Deps holds the collaborators of a Monitor. Progress and Observer are optional.
type Deps struct {
	Source   Source
	Reporter Reporter
	Clock    clock.Clock
	Progress Progress
	Observer Observer
	Logger   *slog.Logger
}

// Settings tunes sampling.
type Settings struct {
	SampleInterval time.Duration
	LowFloor       int
}

// --------------------------------------------------------------------------
// Monitor
// --------------------------------------------------------------------------

// Monitor is the per-auction state machine. It is not safe for concurrent use.
type Monitor struct {
	deps     Deps
	settings Settings
	runID    string
	start    time.Time
	state    State
	stats    *Stats
	summary  Summary
	logger   *slog.Logger
}

// NewMonitor creates an Idle monitor whose run will be recorded as starting at
// start, which may precede the first sighting.
func NewMonitor(start time.Time, settings Settings, deps Deps) *Monitor {
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	runID := uuid.NewString()
	return &Monitor{
		deps:     deps,
		settings: settings,
		runID:    runID,
		start:    start,
		state:    Idle,
		logger:   deps.Logger.With("component", "auction", "run_id", runID),
	}
}

// RunID identifies this auction in logs and sink records.
func (m *Monitor) RunID() string { return m.runID }

// State returns the current lifecycle state.
func (m *Monitor) State() State { return m.state }

// Stats returns the live accumulator, or nil while Idle.
func (m *Monitor) Stats() *Stats { return m.stats }

// Summary returns the result once Finalized.
func (m *Monitor) Summary() (Summary, bool) {
	return m.summary, m.state == Finalized
}

// Observe applies one successful reading taken at now and returns the new state.
func (m *Monitor) Observe(r provider.Reading, now time.Time) State {
	switch m.state {
	case Idle:
		if !r.Present {
			return m.state
		}
		m.stats = Begin(m.start, r.Players, m.settings.LowFloor)
		m.state = Active
		m.logger.Info("Dark Auction started", "players", r.Players, "start", m.start.Format(time.DateTime))
		m.println(fmt.Sprintf("Dark Auction started with %d players at %s", r.Players, m.start.Format(time.DateTime)))
		m.sampled(r.Players)
	case Active:
		if r.Present {
			m.stats.Add(r.Players)
			m.sampled(r.Players)
			return m.state
		}
		m.summary = m.stats.Finalize(m.runID, now)
		m.state = Finalized
	}
	return m.state
}

// Run drives the monitor to Finalized, emits the SummaryReport and returns
// the summary. An Idle monitor polls once first and returns ErrNotDetected
// if the auction is not there. Failed polls while Active are reported and
// retried on the next tick. Only ctx cancellation interrupts an active run.
func (m *Monitor) Run(ctx context.Context) (Summary, error) {
	if m.state == Idle {
		r, err := m.deps.Source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return Summary{}, ctx.Err()
			}
			m.deps.Reporter.ReportError(ctx, stage, err)
			return Summary{}, fmt.Errorf("%w: %w", ErrNotDetected, err)
		}
		if m.Observe(r, m.deps.Clock.Now()) != Active {
			return Summary{}, ErrNotDetected
		}
	}

	for m.state == Active {
		if err := m.deps.Clock.Sleep(ctx, m.settings.SampleInterval); err != nil {
			return Summary{}, err
		}
		if err := m.sample(ctx); err != nil {
			if ctx.Err() != nil {
				return Summary{}, ctx.Err()
			}
			m.deps.Reporter.ReportError(ctx, stage, err)
		}
	}

	m.finish(ctx)
	return m.summary, nil
}

func (m *Monitor) sample(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = failure.Recovered(stage, r)
		}
	}()
	r, err := m.deps.Source.Fetch(ctx)
	if err != nil {
		return err
	}
	m.Observe(r, m.deps.Clock.Now())
	return nil
}

func (m *Monitor) finish(ctx context.Context) {
	s := m.summary
	m.logger.Info("Dark Auction ended",
		"end_players", s.EndPlayers,
		"avg_players", s.AvgPlayers,
		"peak_players", s.PeakPlayers,
		"lowest_players", s.LowestText(),
		"samples", s.Samples,
		"duration", s.Duration.Round(time.Second))

	m.println(fmt.Sprintf("Dark Auction ended with %d players at %s", s.EndPlayers, s.EndTime.Format(time.DateTime)))
	m.println(fmt.Sprintf("Average players throughout the auction: %d", s.AvgPlayers))
	m.println(fmt.Sprintf("Peak players throughout the auction: %d", s.PeakPlayers))
	m.println(fmt.Sprintf("Lowest players throughout the auction: %s", s.LowestText()))
	m.println(fmt.Sprintf("Dark Auction ran for: %s", s.DurationText()))

	metrics.ObserveAuction(s.Duration, s.AvgPlayers)
	if m.deps.Observer != nil {
		m.deps.Observer.Finished(s)
	}
	m.deps.Reporter.Send(ctx, s.Message(m.deps.Clock.Now()))
}

func (m *Monitor) sampled(players int) {
	metrics.SetPlayers(players)
	if m.deps.Progress != nil {
		_ = m.deps.Progress.Status(fmt.Sprintf("Dark Auction live: %d players (peak %d, samples %d)",
			players, m.stats.PeakPlayers, m.stats.Samples))
	}
	if m.deps.Observer != nil {
		m.deps.Observer.Sampled(m.runID, *m.stats)
	}
}

func (m *Monitor) println(line string) {
	if m.deps.Progress != nil {
		_ = m.deps.Progress.Println(line)
	}
}
