package streaming

import "errors"

// Errors raised by the streaming context. Configuration errors abort
// session start; everything recoverable is absorbed inside the step
// loop and surfaced as a Status instead.
var (
	ErrNilEngine       = errors.New("streaming: decoder engine is required")
	ErrInvalidConfig   = errors.New("streaming: invalid configuration")
	ErrContextReleased = errors.New("streaming: context already released")

	errMalformedStep = errors.New("streaming: attention matrix does not match window or token count")
)
