// Package status keeps a concurrency-safe snapshot of what the monitor loop
// is doing, for the status API. The loop is the only writer.
package status

import (
	"sync"
	"time"

	"github.com/albapepper/darkauction/internal/auction"
)

// Phase is the orchestrator stage.
type Phase string

const (
	PhaseStarting  Phase = "starting"
	PhaseWaiting   Phase = "waiting"
	PhaseDetecting Phase = "detecting"
	PhaseLive      Phase = "live"
	PhaseIdle      Phase = "idle" // an auction just ended; the next wait has not begun
	PhaseStopped   Phase = "stopped"
)

// Live describes the auction currently being sampled.
type Live struct {
	RunID          string    `json:"run_id"`
	StartTime      time.Time `json:"start_time"`
	StartPlayers   int       `json:"start_players"`
	CurrentPlayers int       `json:"current_players"`
	PeakPlayers    int       `json:"peak_players"`
	AvgPlayers     int       `json:"avg_players"`
	LowestPlayers  *int      `json:"lowest_players"`
	Samples        int       `json:"samples"`
}

// ErrorInfo is the last reported error.
type ErrorInfo struct {
	Stage   string    `json:"stage"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Snapshot is a point-in-time copy of the tracker.
type Snapshot struct {
	Phase       Phase            `json:"phase"`
	NextWindow  *time.Time       `json:"next_window,omitempty"`
	Live        *Live            `json:"live,omitempty"`
	LastSummary *auction.Summary `json:"last_summary,omitempty"`
	LastError   *ErrorInfo       `json:"last_error,omitempty"`
	Auctions    int              `json:"auctions_completed"`
	Missed      int              `json:"windows_missed"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Tracker holds the latest snapshot.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker returns a tracker in the starting phase.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{snap: Snapshot{Phase: PhaseStarting, UpdatedAt: now()}, now: now}
}

// Snapshot returns a copy safe to serialize.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.snap
	if s.Live != nil {
		live := *s.Live
		s.Live = &live
	}
	return s
}

// SetPhase records the orchestrator stage. next is the predicted window, or
// the zero time when none applies.
func (t *Tracker) SetPhase(p Phase, next time.Time) {
	t.update(func(s *Snapshot) {
		s.Phase = p
		if next.IsZero() {
			s.NextWindow = nil
		} else {
			s.NextWindow = &next
		}
		if p != PhaseLive {
			s.Live = nil
		}
	})
}

// MissedWindow counts a window that passed without an auction.
func (t *Tracker) MissedWindow() {
	t.update(func(s *Snapshot) { s.Missed++ })
}

// RecordError keeps the last reported error.
func (t *Tracker) RecordError(stage string, err error) {
	if err == nil {
		return
	}
	t.update(func(s *Snapshot) {
		s.LastError = &ErrorInfo{Stage: stage, Message: err.Error(), At: t.now()}
	})
}

// Sampled implements auction.Observer.
func (t *Tracker) Sampled(runID string, st auction.Stats) {
	live := &Live{
		RunID:          runID,
		StartTime:      st.StartTime,
		StartPlayers:   st.StartPlayers,
		CurrentPlayers: st.EndPlayers,
		PeakPlayers:    st.PeakPlayers,
		AvgPlayers:     st.Average(),
		Samples:        st.Samples,
	}
	if low, ok := st.Lowest(); ok {
		live.LowestPlayers = &low
	}
	t.update(func(s *Snapshot) {
		s.Phase = PhaseLive
		s.NextWindow = nil
		s.Live = live
	})
}

// Finished implements auction.Observer.
func (t *Tracker) Finished(sum auction.Summary) {
	t.update(func(s *Snapshot) {
		s.Phase = PhaseIdle
		s.NextWindow = nil
		s.Live = nil
		s.LastSummary = &sum
		s.Auctions++
	})
}

func (t *Tracker) update(fn func(*Snapshot)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(&t.snap)
	t.snap.UpdatedAt = t.now()
}
