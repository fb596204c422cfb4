package status

import (
	"errors"
	"testing"
	"time"

	"github.com/albapepper/darkauction/internal/auction"
)

func fixedNow() time.Time { return time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC) }

func TestTrackerLifecycle(t *testing.T) {
	tr := NewTracker(fixedNow)
	next := fixedNow().Add(55 * time.Minute)

	tr.SetPhase(PhaseWaiting, next)
	s := tr.Snapshot()
	if s.Phase != PhaseWaiting || s.NextWindow == nil || !s.NextWindow.Equal(next) {
		t.Fatalf("snapshot = %+v", s)
	}

	st := auction.Begin(next, 5, 2)
	st.Add(3)
	tr.Sampled("run-1", *st)
	s = tr.Snapshot()
	if s.Phase != PhaseLive || s.Live == nil || s.Live.CurrentPlayers != 3 || *s.Live.LowestPlayers != 3 {
		t.Fatalf("live = %+v", s.Live)
	}
	if s.NextWindow != nil {
		t.Fatal("next window kept while live")
	}

	tr.Finished(st.Finalize("run-1", next.Add(time.Minute)))
	s = tr.Snapshot()
	if s.Live != nil || s.LastSummary == nil || s.Auctions != 1 {
		t.Fatalf("after finish = %+v", s)
	}
	if s.Phase != PhaseIdle {
		t.Fatalf("phase after finish = %s, want %s", s.Phase, PhaseIdle)
	}

	tr.SetPhase(PhaseWaiting, next.Add(time.Hour))
	if s = tr.Snapshot(); s.Phase != PhaseWaiting || s.LastSummary == nil {
		t.Fatalf("next wait = %+v", s)
	}

	tr.MissedWindow()
	tr.RecordError("wait for window", errors.New("boom"))
	s = tr.Snapshot()
	if s.Missed != 1 || s.LastError == nil || s.LastError.Stage != "wait for window" {
		t.Fatalf("snapshot = %+v", s)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(fixedNow)
	tr.Sampled("r", *auction.Begin(fixedNow(), 9, 2))
	s := tr.Snapshot()
	s.Live.CurrentPlayers = 100
	if tr.Snapshot().Live.CurrentPlayers != 9 {
		t.Fatal("snapshot shares live state with tracker")
	}
}
