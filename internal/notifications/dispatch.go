package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/albapepper/darkauction/internal/clock"
	"github.com/albapepper/darkauction/internal/failure"
	"github.com/albapepper/darkauction/internal/metrics"
)

// Multi sends every message to each sink in order and joins their errors.
// Nil entries are skipped.
type Multi []Sink

func (m Multi) Name() string { return "multi" }

func (m Multi) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		err := s.Send(ctx, msg)
		metrics.ObserveDelivery(s.Name(), err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// ErrorHook observes every reported error, e.g. to surface it on the status API.
type ErrorHook func(stage string, err error)

// Notifier is the single entry point the monitor uses to emit messages.
// It never returns delivery errors to callers.
type Notifier struct {
	sink   Sink
	clock  clock.Clock
	logger *slog.Logger
	onErr  ErrorHook
}

// Option configures the notifier.
type Option func(*Notifier)

// WithErrorHook registers a hook called for every reported error.
func WithErrorHook(h ErrorHook) Option {
	return func(n *Notifier) {
		n.onErr = h
	}
}

// WithClock overrides the clock used for embed timestamps.
func WithClock(c clock.Clock) Option {
	return func(n *Notifier) {
		if c != nil {
			n.clock = c
		}
	}
}

// NewNotifier wraps sink. A nil sink only logs.
func NewNotifier(sink Sink, logger *slog.Logger, opts ...Option) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Notifier{
		sink:   sink,
		clock:  clock.Real{},
		logger: logger.With("component", "notifier"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Send delivers msg best-effort. Failures are logged locally only.
func (n *Notifier) Send(ctx context.Context, msg Message) {
	if n == nil || n.sink == nil {
		return
	}
	if err := n.sink.Send(ctx, msg); err != nil {
		metrics.IncFailure(string(failure.KindDelivery), "deliver")
		n.logger.Warn("Failed to deliver notification", "kind", msg.Kind, "error", err)
	}
}

// ReportError logs err, counts it, and sends an ErrorReport. stage names the
// loop that caught the error. Context cancellation is not reported.
func (n *Notifier) ReportError(ctx context.Context, stage string, err error) {
	if n == nil || err == nil {
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	kind := failure.KindOf(err)
	metrics.IncFailure(string(kind), stage)
	n.logger.Error("Monitor error", "stage", stage, "kind", kind, "error", err)
	if n.onErr != nil {
		n.onErr(stage, err)
	}
	n.Send(ctx, ErrorReport(fmt.Sprintf("Error in %s: %v", stage, err), n.clock.Now()))
}

// NoAuction sends the "no auction detected" notice.
func (n *Notifier) NoAuction(ctx context.Context) {
	if n == nil {
		return
	}
	n.Send(ctx, NoAuctionReport(n.clock.Now()))
}

