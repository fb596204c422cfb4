// Package notifications delivers Dark Auction summaries and error alerts.
//
// Messages use the Discord webhook embed shape. A Notifier fans each message
// out to the configured sinks (Discord webhook, optional Kafka topic) and
// swallows delivery failures after logging them: nothing is retried and a
// failed error report never produces another report.
package notifications

import (
	"context"
	"time"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	ColorError   = 15158332
	ColorSummary = 3447003

	TitleError     = "Dark Auction Monitor Error"
	TitleNotice    = "Dark Auction Monitor"
	TitleSummary   = "Dark Auction Summary"
	FooterText     = "Skyblock Dark Auction Monitor"
	NoAuctionText  = "No Dark Auction detected within the expected window."
	TestText       = "Test notification. The webhook is reachable."
	maxDescription = 4096
)

// Message kinds, carried alongside the payload for non-Discord sinks.
const (
	KindError     = "error"
	KindNoAuction = "no_auction"
	KindSummary   = "summary"
	KindTest      = "test"
)

// --------------------------------------------------------------------------
// Types
// --------------------------------------------------------------------------

// Message is a webhook payload. Kind, RunID and At are not sent to Discord.
type Message struct {
	Kind   string    `json:"-"`
	RunID  string    `json:"-"`
	At     time.Time `json:"-"`
	Embeds []Embed   `json:"embeds"`
}

// Embed is a single Discord embed.
type Embed struct {
	Title       string  `json:"title"`
	Color       int     `json:"color"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields,omitempty"`
	Footer      *Footer `json:"footer,omitempty"`
	Timestamp   string  `json:"timestamp"`
}

// Field is one name/value row of an embed.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Footer is the small text under an embed.
type Footer struct {
	Text string `json:"text"`
}

// Sink delivers a message to one destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// --------------------------------------------------------------------------
// Builders
// --------------------------------------------------------------------------

// ErrorReport builds the alert sent for a failure.
func ErrorReport(description string, at time.Time) Message {
	return Message{
		Kind: KindError,
		At:   at.UTC(),
		Embeds: []Embed{{
			Title:       TitleError,
			Color:       ColorError,
			Description: clip(description, maxDescription),
			Timestamp:   timestamp(at),
		}},
	}
}

// NoAuctionReport builds the notice sent when a predicted window passes
// without the auction appearing.
func NoAuctionReport(at time.Time) Message {
	return Message{
		Kind: KindNoAuction,
		At:   at.UTC(),
		Embeds: []Embed{{
			Title:       TitleNotice,
			Color:       ColorError,
			Description: NoAuctionText,
			Timestamp:   timestamp(at),
		}},
	}
}

// SummaryReport builds the end-of-auction summary with the given fields.
func SummaryReport(runID string, fields []Field, at time.Time) Message {
	return Message{
		Kind:  KindSummary,
		RunID: runID,
		At:    at.UTC(),
		Embeds: []Embed{{
			Title:     TitleSummary,
			Color:     ColorSummary,
			Fields:    fields,
			Footer:    &Footer{Text: FooterText},
			Timestamp: timestamp(at),
		}},
	}
}

// TestReport builds the message sent to check a webhook by hand.
func TestReport(at time.Time) Message {
	return Message{
		Kind: KindTest,
		At:   at.UTC(),
		Embeds: []Embed{{
			Title:       TitleNotice,
			Color:       ColorSummary,
			Description: TestText,
			Footer:      &Footer{Text: FooterText},
			Timestamp:   timestamp(at),
		}},
	}
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
