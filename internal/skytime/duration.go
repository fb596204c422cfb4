package skytime

import (
	"fmt"
	"time"
)

// FormatDuration renders milliseconds as "Dd HHh MMm SSs". Sub-second
// remainders are truncated and negative input renders as zero.
func FormatDuration(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	s := ms / 1000
	days := s / 86400
	hours := s % 86400 / 3600
	minutes := s % 3600 / 60
	seconds := s % 60
	return fmt.Sprintf("%dd %02dh %02dm %02ds", days, hours, minutes, seconds)
}

// Format is FormatDuration for a time.Duration.
func Format(d time.Duration) string {
	return FormatDuration(d.Milliseconds())
}
