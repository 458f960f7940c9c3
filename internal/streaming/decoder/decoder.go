// Package decoder defines the capability interface for the incremental
// inference engine and the token/attention data it produces per step.
package decoder

import (
	"context"
	"errors"
)

// ErrAttentionNotRetained indicates the engine was constructed without
// cross-attention retention. The commit policy cannot function without
// it, so streaming contexts reject such engines at startup.
var ErrAttentionNotRetained = errors.New("decoder: engine does not retain cross-attention weights")

// Token is one unit of decoded output. Timestamps are milliseconds
// relative to the start of the window the token was decoded from; the
// assembler rebases them onto the absolute stream position.
type Token struct {
	Text string
	T0   int64
	T1   int64

	// Attention holds one cross-attention weight per audio frame of the
	// window, indicating which audio evidence most influenced the token.
	Attention []float32
}

// StepOptions carries per-step decode configuration.
type StepOptions struct {
	Language   string
	Translate  bool
	Timestamps bool
}

// StepResult is the output of one inference invocation: tokens produced
// beyond the prior context, and the frame count of the decoded window.
type StepResult struct {
	Tokens []Token
	Frames int
}

// Engine is the opaque inference backend. Given the current audio
// window and the running transcript prefix it produces new tokens plus
// their cross-attention weight vectors.
//
// RunStep blocks for the duration of inference; it is the only
// long-running call in the step pipeline and honors ctx cancellation.
// A non-nil error is a transient decode failure: the caller retries the
// next step without losing buffered audio.
type Engine interface {
	RunStep(ctx context.Context, window []float32, prior []Token, opts StepOptions) (StepResult, error)

	// RetainsAttention reports whether the engine was constructed with
	// cross-attention storage enabled.
	RetainsAttention() bool

	Close() error
}
