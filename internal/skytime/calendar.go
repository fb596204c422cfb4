// Package skytime maps real-world timestamps onto the Skyblock calendar and
// predicts Dark Auction windows.
//
// All arithmetic is done in Unix milliseconds. Offsets are taken modulo the
// Skyblock year so every derived value is recomputed from the constants and
// never accumulated.
package skytime

import (
	"fmt"
	"time"

	"github.com/albapepper/darkauction/internal/config"
)

const (
	dayMs   int64 = 1200000
	monthMs int64 = 37200000
)

var monthNames = [12]string{
	"Early Spring", "Spring", "Late Spring",
	"Early Summer", "Summer", "Late Summer",
	"Early Autumn", "Autumn", "Late Autumn",
	"Early Winter", "Winter", "Late Winter",
}

// Calendar holds the fixed calendar parameters. The zero value is not usable;
// build one with New or FromConfig.
type Calendar struct {
	EraEpochMs int64
	YearMs     int64
	CadenceMs  int64
}

// New returns a Calendar for the given constants.
func New(eraEpochMs, yearMs, cadenceMs int64) Calendar {
	return Calendar{EraEpochMs: eraEpochMs, YearMs: yearMs, CadenceMs: cadenceMs}
}

// FromConfig builds the calendar from loaded configuration.
func FromConfig(cfg *config.Config) Calendar {
	return New(cfg.EraEpochMs, cfg.YearMs, cfg.CadenceMs)
}

// Default is the live Skyblock calendar with an hourly cadence.
func Default() Calendar {
	return New(config.DefaultEraEpochMs, config.DefaultYearMs, config.DefaultCadenceMs)
}

// Cadence is the window spacing as a duration.
func (c Calendar) Cadence() time.Duration {
	return time.Duration(c.CadenceMs) * time.Millisecond
}

// Phase returns how far nowMs is into the current Skyblock year and the
// real-world instant that year began. Both values are non-negative.
func (c Calendar) Phase(nowMs int64) (offset, eraStart int64) {
	offset = floorMod(nowMs-c.EraEpochMs, c.YearMs)
	return offset, nowMs - offset
}

// NextWindowStart returns the first cadence-aligned instant strictly after
// nowMs. A nowMs already on a boundary yields the following boundary.
func (c Calendar) NextWindowStart(nowMs int64) int64 {
	offset, eraStart := c.Phase(nowMs)
	aligned := offset - offset%c.CadenceMs + c.CadenceMs
	return eraStart + aligned
}

// Upcoming returns the next n predicted windows in ascending order.
func (c Calendar) Upcoming(nowMs int64, n int) []int64 {
	windows := make([]int64, 0, max(n, 0))
	at := nowMs
	for i := 0; i < n; i++ {
		at = c.NextWindowStart(at)
		windows = append(windows, at)
	}
	return windows
}

// LastBoundary returns the most recent real-world cadence boundary at or
// before nowMs. It is wall-clock aligned, not era aligned, and is used to
// backfill the start of an auction that was already running at startup.
func (c Calendar) LastBoundary(nowMs int64) int64 {
	return nowMs - floorMod(nowMs, c.CadenceMs)
}

// Date is a position on the Skyblock calendar.
type Date struct {
	Year  int64
	Month int // 1..12
	Day   int // 1..31
}

// MonthName returns the seasonal month name.
func (d Date) MonthName() string {
	if d.Month < 1 || d.Month > len(monthNames) {
		return "Unknown"
	}
	return monthNames[d.Month-1]
}

func (d Date) String() string {
	return fmt.Sprintf("%s %d, Year %d", d.MonthName(), d.Day, d.Year)
}

// Date converts a real-world instant into a Skyblock date.
func (c Calendar) Date(ms int64) Date {
	offset, _ := c.Phase(ms)
	year := floorDiv(ms-c.EraEpochMs, c.YearMs) + 1
	return Date{
		Year:  year,
		Month: int(offset/monthMs) + 1,
		Day:   int(offset%monthMs/dayMs) + 1,
	}
}

// Millis converts t to Unix milliseconds.
func Millis(t time.Time) int64 { return t.UnixMilli() }

// Time converts Unix milliseconds to a time.Time.
func Time(ms int64) time.Time { return time.UnixMilli(ms) }

func floorMod(a, m int64) int64 {
	r := a % m
	if r < 0 {
		r += m
	}
	return r
}

func floorDiv(a, m int64) int64 {
	q := a / m
	if a%m < 0 {
		q--
	}
	return q
}
