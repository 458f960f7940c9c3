package decoder

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultScript is the transcript the stub engine walks through, one
// slice of words per decode step.
var DefaultScript = []string{
	"the", "quick", "brown", "fox", "jumps", "over", "the", "lazy", "dog",
	"while", "the", "stream", "keeps", "rolling", "along",
}

// Stub is a deterministic engine that produces scripted tokens with
// synthesized attention maps, for tests and demo runs without a model.
// It derives its position in the script from the committed prefix it is
// handed, so speculative words are naturally re-decoded on later steps.
type Stub struct {
	words         []string
	sampleRate    int
	frameStrideMs int
	tokensPerStep int
	withAttention bool
}

// NewStub returns a stub engine over the default script.
func NewStub(sampleRate, frameStrideMs int) *Stub {
	return &Stub{
		words:         DefaultScript,
		sampleRate:    sampleRate,
		frameStrideMs: frameStrideMs,
		tokensPerStep: 3,
		withAttention: true,
	}
}

// NewStubWithScript returns a stub engine over the given word list.
func NewStubWithScript(sampleRate, frameStrideMs int, words []string) *Stub {
	s := NewStub(sampleRate, frameStrideMs)
	s.words = words
	return s
}

// DisableAttention makes the stub behave like an engine constructed
// without cross-attention storage, for configuration-error tests.
func (s *Stub) DisableAttention() { s.withAttention = false }

func (s *Stub) RetainsAttention() bool { return s.withAttention }

func (s *Stub) Close() error { return nil }

// RunStep emits the next scripted words as tokens. Peaks are spread
// across the window with the last token pinned to the trailing edge, so
// a threshold sweep commits the head of the run and leaves the tail
// speculative, the way a live model behaves mid-utterance.
func (s *Stub) RunStep(ctx context.Context, window []float32, prior []Token, opts StepOptions) (StepResult, error) {
	if err := ctx.Err(); err != nil {
		return StepResult{}, err
	}

	samplesPerFrame := s.sampleRate * s.frameStrideMs / 1000
	if samplesPerFrame <= 0 || len(window) < samplesPerFrame {
		return StepResult{}, nil
	}
	frames := len(window) / samplesPerFrame
	windowMs := int64(frames * s.frameStrideMs)

	done := len(prior)
	if done >= len(s.words) {
		return StepResult{Frames: frames}, nil
	}
	n := s.tokensPerStep
	if rest := len(s.words) - done; n > rest {
		n = rest
	}

	tokens := make([]Token, 0, n)
	for i := 0; i < n; i++ {
		peak := frames * (i + 1) / (n + 1)
		if i == n-1 {
			peak = frames - 1
		}
		var attn []float32
		if s.withAttention {
			attn = make([]float32, frames)
			attn[peak] = 1
		}
		t0 := windowMs * int64(i) / int64(n)
		t1 := windowMs * int64(i+1) / int64(n)
		tokens = append(tokens, Token{
			Text:      s.words[done+i],
			T0:        t0,
			T1:        t1,
			Attention: attn,
		})
	}

	log.Debug().
		Int("frames", frames).
		Int("prior", done).
		Str("tokens", strings.Join(s.words[done:done+n], " ")).
		Msg("stub decode step")

	return StepResult{Tokens: tokens, Frames: frames}, nil
}
