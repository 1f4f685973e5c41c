package models

import "errors"

var (
	// ErrMalformedSnapshot marks a payload that failed shape or type checks.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
	// ErrTransport marks a push or pull acquisition failure.
	ErrTransport = errors.New("transport error")
	// ErrMissingClosedReport marks a closed-market snapshot without its report.
	ErrMissingClosedReport = errors.New("missing closed-market report")
	// ErrInvalidTransition is returned by the channel monitor for an event
	// that is not legal in the current state.
	ErrInvalidTransition = errors.New("invalid channel transition")
)
