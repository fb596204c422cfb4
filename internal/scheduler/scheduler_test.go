package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/albapepper/darkauction/internal/clock"
	"github.com/albapepper/darkauction/internal/console"
	"github.com/albapepper/darkauction/internal/failure"
	"github.com/albapepper/darkauction/internal/notifications"
	"github.com/albapepper/darkauction/internal/provider"
	"github.com/albapepper/darkauction/internal/skytime"
	"github.com/albapepper/darkauction/internal/status"
	"github.com/albapepper/darkauction/internal/watcher"
)

// liveSource answers from a function of the fake clock's current time.
type liveSource struct {
	clock   *clock.Fake
	answer  func(now time.Time) (provider.Reading, error)
	fetches int
}

func (s *liveSource) Fetch(context.Context) (provider.Reading, error) {
	s.fetches++
	return s.answer(s.clock.Now())
}

func (s *liveSource) CheckPresence(ctx context.Context) bool {
	r, err := s.Fetch(ctx)
	return err == nil && r.Present
}

type fakeReporter struct {
	mu        sync.Mutex
	sent      []notifications.Message
	stages    []string
	errs      []error
	noAuction int
}

func (r *fakeReporter) Send(_ context.Context, msg notifications.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
}

func (r *fakeReporter) ReportError(_ context.Context, stage string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
	r.errs = append(r.errs, err)
}

func (r *fakeReporter) NoAuction(context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.noAuction++
}

var cal = skytime.Default()

func players(n int) (provider.Reading, error) { return provider.Reading{Present: true, Players: n}, nil }
func none() (provider.Reading, error) { return provider.Reading{}, nil }

func setup(start time.Time, answer func(now time.Time) (provider.Reading, error)) (*Orchestrator, *clock.Fake, *liveSource, *fakeReporter, *status.Tracker) {
	c := clock.NewFake(start)
	src := &liveSource{clock: c, answer: answer}
	rep := &fakeReporter{}
	out := console.New(io.Discard)
	tracker := status.NewTracker(c.Now)
	o := New(Settings{
		DetectInterval: time.Second,
		GracePeriod:    2 * time.Minute,
		SampleInterval: 2 * time.Second,
		LowFloor:       2,
	}, Deps{
		Source:   src,
		Reporter: rep,
		Waiter:   watcher.New(c, time.Second, out, rep, nil),
		Clock:    c,
		Calendar: cal,
		Progress: out,
		Tracker:  tracker,
	})
	return o, c, src, rep, tracker
}

// beforeWindow returns an instant 30 minutes into a cadence slot and the
// window that follows it.
func beforeWindow() (time.Time, time.Time) {
	now := skytime.Time(cal.EraEpochMs + 1000*cal.YearMs + 30*60*1000)
	return now, skytime.Time(cal.NextWindowStart(skytime.Millis(now)))
}

func TestCycleGracePeriodExpires(t *testing.T) {
	now, window := beforeWindow()
	o, c, src, rep, tracker := setup(now, func(time.Time) (provider.Reading, error) { return none() })

	res := o.Cycle(context.Background())

	if res.Outcome != NoAuction || res.Summary != nil {
		t.Fatalf("result = %+v", res)
	}
	if !res.Window.Equal(window) {
		t.Fatalf("window = %v, want %v", res.Window, window)
	}
	if rep.noAuction != 1 || len(rep.sent) != 0 {
		t.Fatalf("noAuction = %d, sent = %d", rep.noAuction, len(rep.sent))
	}
	if c.Now().Before(window.Add(2 * time.Minute)) {
		t.Fatalf("gave up early at %v", c.Now())
	}
	// one presence check plus one poll per second of the grace period
	if src.fetches != 1+120 {
		t.Fatalf("fetches = %d", src.fetches)
	}
	if tracker.Snapshot().Missed != 1 {
		t.Fatalf("missed = %d", tracker.Snapshot().Missed)
	}
}

func TestCycleDetectsLateAuction(t *testing.T) {
	now, window := beforeWindow()
	opens, closes := window.Add(30*time.Second), window.Add(50*time.Second)
	o, _, _, rep, tracker := setup(now, func(at time.Time) (provider.Reading, error) {
		if !at.Before(opens) && at.Before(closes) {
			return players(10)
		}
		return none()
	})

	res := o.Cycle(context.Background())

	if res.Outcome != Completed || res.Summary == nil || res.Attached {
		t.Fatalf("result = %+v", res)
	}
	sum := res.Summary
	if !sum.StartTime.Equal(window) {
		t.Fatalf("start = %v, want predicted window %v", sum.StartTime, window)
	}
	if !sum.EndTime.Equal(closes) {
		t.Fatalf("end = %v, want %v", sum.EndTime, closes)
	}
	if sum.Samples != 10 || sum.AvgPlayers != 10 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(rep.sent) != 1 || rep.sent[0].Kind != notifications.KindSummary || rep.noAuction != 0 {
		t.Fatalf("sent = %+v, noAuction = %d", rep.sent, rep.noAuction)
	}
	if snap := tracker.Snapshot(); snap.Auctions != 1 || snap.Phase != status.PhaseIdle || snap.Live != nil {
		t.Fatalf("tracker = %+v", snap)
	}
}

func TestCycleDetectionFailuresAreReported(t *testing.T) {
	now, window := beforeWindow()
	o, _, _, rep, _ := setup(now, func(at time.Time) (provider.Reading, error) {
		switch {
		case at.Before(window):
			return none()
		case at.Before(window.Add(3 * time.Second)):
			return provider.Reading{}, failure.Network("counts returned 502")
		case at.Before(window.Add(5 * time.Second)):
			return players(4)
		default:
			return none()
		}
	})

	res := o.Cycle(context.Background())
	if res.Outcome != Completed {
		t.Fatalf("result = %+v", res)
	}
	if len(rep.errs) != 3 || rep.stages[0] != "waiting for auction start" || !errors.Is(rep.errs[0], failure.ErrNetwork) {
		t.Fatalf("reported = %v %v", rep.stages, rep.errs)
	}
}

func TestCycleStartupBackfill(t *testing.T) {
	boot := time.Date(2026, 10, 19, 14, 37, 12, 0, time.UTC)
	until := boot.Add(10 * time.Second)
	o, _, _, _, _ := setup(boot, func(at time.Time) (provider.Reading, error) {
		if at.Before(until) {
			return players(25)
		}
		return none()
	})

	res := o.Cycle(context.Background())

	if res.Outcome != Completed || !res.Attached {
		t.Fatalf("result = %+v", res)
	}
	want := time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)
	if !res.Summary.StartTime.Equal(want) {
		t.Fatalf("start = %v, want %v", res.Summary.StartTime, want)
	}
	// the auction is last seen at boot+8s and found gone at boot+10s
	if res.Summary.Duration != 37*time.Minute+22*time.Second {
		t.Fatalf("duration = %v", res.Summary.Duration)
	}
	// first monitor poll plus four 2s samples; the presence check is not a sample
	if res.Summary.Samples != 5 {
		t.Fatalf("samples = %d, want 5", res.Summary.Samples)
	}
}

func TestCycleStartupAuctionGoneBeforeMonitor(t *testing.T) {
	boot := time.Date(2026, 10, 19, 14, 59, 59, 0, time.UTC)
	calls := 0
	o, _, _, rep, _ := setup(boot, func(time.Time) (provider.Reading, error) {
		calls++
		if calls == 1 {
			return players(3)
		}
		return none()
	})

	res := o.Cycle(context.Background())
	if res.Outcome != NoAuction || !res.Attached {
		t.Fatalf("result = %+v", res)
	}
	if rep.noAuction != 1 {
		t.Fatalf("noAuction = %d", rep.noAuction)
	}
}

func TestCycleRecoversPanic(t *testing.T) {
	now, _ := beforeWindow()
	o, _, _, _, _ := setup(now, func(time.Time) (provider.Reading, error) {
		var m map[string]int
		m["boom"]++
		return none()
	})

	res := o.Cycle(context.Background())
	if res.Outcome != Failed || !errors.Is(res.Err, failure.ErrUnexpected) {
		t.Fatalf("result = %+v", res)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	now, window := beforeWindow()
	o, c, _, rep, tracker := setup(now, func(time.Time) (provider.Reading, error) { return none() })

	ctx, cancel := context.WithCancel(context.Background())
	// two windows are missed, then the run is stopped during the third grace period
	c.OnSleep = func(at time.Time) {
		if at.After(window.Add(2*cal.Cadence() + time.Minute)) {
			cancel()
		}
	}

	if err := o.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.noAuction != 2 {
		t.Fatalf("noAuction = %d, want 2", rep.noAuction)
	}
	if got := tracker.Snapshot().Phase; got != status.PhaseStopped {
		t.Fatalf("phase = %s", got)
	}
}

func TestRunReportsFailedCycles(t *testing.T) {
	now, _ := beforeWindow()
	o, c, _, rep, _ := setup(now, func(time.Time) (provider.Reading, error) { panic("decoder exploded") })

	ctx, cancel := context.WithCancel(context.Background())
	sleeps := 0
	c.OnSleep = func(time.Time) {
		sleeps++
		if sleeps == 3 {
			cancel()
		}
	}

	if err := o.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(rep.errs) != 3 || rep.stages[0] != "main loop" || !errors.Is(rep.errs[0], failure.ErrUnexpected) {
		t.Fatalf("reported = %v %v", rep.stages, rep.errs)
	}
}
