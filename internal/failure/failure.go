// Package failure defines the error kinds the monitor distinguishes when
// logging, counting and reporting problems.
package failure

import (
	"errors"
	"fmt"
)

var (
	ErrNetwork    = errors.New("network failure")
	ErrParse      = errors.New("parse failure")
	ErrDelivery   = errors.New("delivery failure")
	ErrUnexpected = errors.New("unexpected failure")
)

// Kind is a short label for an error, suitable for metric labels.
type Kind string

const (
	KindNetwork    Kind = "network"
	KindParse      Kind = "parse"
	KindDelivery   Kind = "delivery"
	KindUnexpected Kind = "unexpected"
	KindNone       Kind = ""
)

// KindOf classifies err. Errors that wrap none of the sentinels are unexpected.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrParse):
		return KindParse
	case errors.Is(err, ErrDelivery):
		return KindDelivery
	default:
		return KindUnexpected
	}
}

// Network wraps err as a NetworkFailure.
func Network(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNetwork, fmt.Sprintf(format, args...))
}

// Parse wraps err as a ParseFailure.
func Parse(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))
}

// Delivery wraps err as a DeliveryFailure.
func Delivery(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrDelivery, fmt.Sprintf(format, args...))
}

// Recovered converts a recovered panic value into an UnexpectedFailure.
func Recovered(where string, v any) error {
	if err, ok := v.(error); ok {
		return fmt.Errorf("%w: panic in %s: %w", ErrUnexpected, where, err)
	}
	return fmt.Errorf("%w: panic in %s: %v", ErrUnexpected, where, v)
}
