package auction

import (
	"strconv"
	"time"

	"github.com/albapepper/darkauction/internal/notifications"
	"github.com/albapepper/darkauction/internal/skytime"
)

// Stats accumulates player counts for one auction. Counts at or below the
// floor never become the lowest value.
type Stats struct {
	StartTime    time.Time
	StartPlayers int
	EndPlayers   int
	TotalPlayers int
	Samples      int
	PeakPlayers  int

	floor     int
	lowest    int
	hasLowest bool
}

// Begin starts a run with the first present sample.
func Begin(start time.Time, players, floor int) *Stats {
	s := &Stats{
		StartTime:    start,
		StartPlayers: players,
		EndPlayers:   players,
		TotalPlayers: players,
		Samples:      1,
		PeakPlayers:  players,
		floor:        floor,
	}
	if players > floor {
		s.lowest, s.hasLowest = players, true
	}
	return s
}

// Add folds one more present sample into the run.
func (s *Stats) Add(players int) {
	s.TotalPlayers += players
	s.Samples++
	s.EndPlayers = players
	if players > s.PeakPlayers {
		s.PeakPlayers = players
	}
	if players > s.floor && (!s.hasLowest || players < s.lowest) {
		s.lowest, s.hasLowest = players, true
	}
}

// Lowest returns the lowest count above the floor, if any sample qualified.
func (s *Stats) Lowest() (int, bool) {
	return s.lowest, s.hasLowest
}

// Average is the floored mean over all samples.
func (s *Stats) Average() int {
	if s.Samples == 0 {
		return 0
	}
	return s.TotalPlayers / s.Samples
}

// Finalize closes the run at end.
func (s *Stats) Finalize(runID string, end time.Time) Summary {
	sum := Summary{
		RunID:        runID,
		StartTime:    s.StartTime,
		EndTime:      end,
		Duration:     end.Sub(s.StartTime),
		StartPlayers: s.StartPlayers,
		EndPlayers:   s.EndPlayers,
		AvgPlayers:   s.Average(),
		PeakPlayers:  s.PeakPlayers,
		Samples:      s.Samples,
	}
	if low, ok := s.Lowest(); ok {
		sum.LowestPlayers = &low
	}
	return sum
}

// Summary is the finalized result of one auction.
type Summary struct {
	RunID         string        `json:"run_id"`
	StartTime     time.Time     `json:"start_time"`
	EndTime       time.Time     `json:"end_time"`
	Duration      time.Duration `json:"duration_ns"`
	StartPlayers  int           `json:"start_players"`
	EndPlayers    int           `json:"end_players"`
	AvgPlayers    int           `json:"avg_players"`
	PeakPlayers   int           `json:"peak_players"`
	LowestPlayers *int          `json:"lowest_players"` // nil when no sample cleared the floor
	Samples       int           `json:"samples"`
}

// LowestText renders the lowest count, or "N/A".
func (s Summary) LowestText() string {
	if s.LowestPlayers == nil {
		return "N/A"
	}
	return strconv.Itoa(*s.LowestPlayers)
}

// DurationText renders the run length as "Dd HHh MMm SSs".
func (s Summary) DurationText() string {
	return skytime.Format(s.Duration)
}

// Fields returns the embed rows in display order.
func (s Summary) Fields() []notifications.Field {
	return []notifications.Field{
		{Name: "Start Time", Value: s.StartTime.Format(time.DateTime), Inline: false},
		{Name: "End Time", Value: s.EndTime.Format(time.DateTime), Inline: false},
		{Name: "Auction Duration", Value: s.DurationText(), Inline: false},
		{Name: "Starting Players", Value: strconv.Itoa(s.StartPlayers), Inline: true},
		{Name: "Ending Players", Value: strconv.Itoa(s.EndPlayers), Inline: true},
		{Name: "Average Players", Value: strconv.Itoa(s.AvgPlayers), Inline: true},
		{Name: "Peak Players", Value: strconv.Itoa(s.PeakPlayers), Inline: true},
		{Name: "Lowest Players", Value: s.LowestText(), Inline: true},
	}
}

// Message builds the webhook SummaryReport.
func (s Summary) Message(at time.Time) notifications.Message {
	return notifications.SummaryReport(s.RunID, s.Fields(), at)
}
