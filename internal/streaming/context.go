// Package streaming ties the window buffer, the voice activity gate,
// the decoder adapter, the AlignAtt commit policy and the segment
// assembler into one incremental transcription session.
package streaming

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oLauand/subtitlesforall/internal/observability/metrics"
	"github.com/oLauand/subtitlesforall/internal/streaming/alignatt"
	"github.com/oLauand/subtitlesforall/internal/streaming/assembler"
	"github.com/oLauand/subtitlesforall/internal/streaming/decoder"
	"github.com/oLauand/subtitlesforall/internal/streaming/vad"
	"github.com/oLauand/subtitlesforall/internal/streaming/window"
)

// Status is the outcome of one ProcessStep call. Recoverable trouble is
// reported here rather than as an error.
type Status int

const (
	// StatusProcessed - a decode ran and the commit policy was applied.
	StatusProcessed Status = iota
	// StatusNoAudio - no fresh samples since the last step; the caller
	// should back off and re-poll.
	StatusNoAudio
	// StatusSilence - the VAD gate classified the window as silence and
	// the decode was skipped; the buffer still advanced.
	StatusSilence
	// StatusDecodeFailed - the inference call failed or returned
	// malformed attention; the window was retained for the next step.
	StatusDecodeFailed
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusProcessed:
		return "PROCESSED"
	case StatusNoAudio:
		return "NO_AUDIO"
	case StatusSilence:
		return "SILENCE"
	case StatusDecodeFailed:
		return "DECODE_FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// Config holds the per-session streaming parameters.
type Config struct {
	SampleRate int // Hz
	StepMs     int // audio step size
	LengthMs   int // window length
	KeepMs     int // overlap carried between steps

	// FrameThreshold is the AlignAtt commit distance in attention
	// frames; FrameStrideMs is the engine's frame stride, a model
	// constant that must match the inference backend.
	FrameThreshold int
	FrameStrideMs  int

	UseVAD     bool
	Language   string
	Translate  bool
	Timestamps bool

	// MaxContextTokens bounds the committed prefix handed back to the
	// engine for conditioning.
	MaxContextTokens int
}

// DefaultConfig mirrors the canonical real-time settings: 3 s window,
// 1 s step, 200 ms overlap, threshold 25 frames at 10 ms per frame.
func DefaultConfig() Config {
	return Config{
		SampleRate:       16000,
		StepMs:           1000,
		LengthMs:         3000,
		KeepMs:           200,
		FrameThreshold:   alignatt.DefaultFrameThreshold,
		FrameStrideMs:    10,
		Language:         "en",
		Timestamps:       true,
		MaxContextTokens: 224,
	}
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.SampleRate <= 0 {
		c.SampleRate = def.SampleRate
	}
	if c.StepMs <= 0 {
		c.StepMs = def.StepMs
	}
	if c.LengthMs <= 0 {
		c.LengthMs = def.LengthMs
	}
	if c.KeepMs < 0 {
		c.KeepMs = def.KeepMs
	}
	if c.FrameThreshold <= 0 {
		c.FrameThreshold = def.FrameThreshold
	}
	if c.FrameStrideMs <= 0 {
		c.FrameStrideMs = def.FrameStrideMs
	}
	if c.Language == "" {
		c.Language = def.Language
	}
	if c.MaxContextTokens <= 0 {
		c.MaxContextTokens = def.MaxContextTokens
	}
}

// Context owns one incremental transcription session: the audio window,
// the committed transcript, and the speculative tail. It is not safe
// for concurrent use; callers serialize all operations per session.
type Context struct {
	cfg    Config
	engine decoder.Engine
	buf    *window.Buffer
	gate   *vad.Gate
	asm    *assembler.Assembler

	prior    []decoder.Token // committed tokens fed back as conditioning
	lastSpec []decoder.Token // speculative tail from the latest step
	lastBase int64           // absolute ms of the latest decoded window

	finalized bool
	released  bool

	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewContext validates the configuration and builds a session around
// the given engine. An engine constructed without cross-attention
// retention is a fatal misconfiguration rejected here, never at steady
// state.
func NewContext(engine decoder.Engine, cfg Config) (*Context, error) {
	if engine == nil {
		return nil, ErrNilEngine
	}
	cfg.applyDefaults()
	if !engine.RetainsAttention() {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, decoder.ErrAttentionNotRetained)
	}
	if cfg.KeepMs >= cfg.LengthMs {
		return nil, fmt.Errorf("%w: keep_ms %d must be below length_ms %d", ErrInvalidConfig, cfg.KeepMs, cfg.LengthMs)
	}

	capacity := cfg.SampleRate * cfg.LengthMs / 1000
	keep := cfg.SampleRate * cfg.KeepMs / 1000
	buf, err := window.New(capacity, keep)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &Context{
		cfg:     cfg,
		engine:  engine,
		buf:     buf,
		gate:    vad.New(0, 0),
		asm:     assembler.New(),
		metrics: metrics.DefaultMetrics,
		log:     log.With().Str("component", "streaming").Logger(),
	}, nil
}

// InsertAudio appends captured PCM samples to the session window. Audio
// beyond the window capacity is dropped from the oldest end and logged
// as a degraded-window condition.
func (c *Context) InsertAudio(samples []float32) {
	if c.released || c.finalized || len(samples) == 0 {
		return
	}
	c.metrics.RecordAudioSamples(len(samples))
	if dropped := c.buf.Push(samples); dropped > 0 {
		c.metrics.RecordDegradedWindow()
		c.log.Warn().
			Int("dropped_samples", dropped).
			Msg("window overrun, oldest audio dropped")
	}
}

// ProcessStep runs one iteration of the decode pipeline: drain window,
// gate, decode, apply the commit policy, assemble segments. Recoverable
// failures are absorbed and reported through the returned Status; the
// error is non-nil only for cancellation or a released context.
func (c *Context) ProcessStep(ctx context.Context) (Status, error) {
	if c.released {
		return StatusNoAudio, ErrContextReleased
	}
	if c.finalized {
		return StatusNoAudio, nil
	}

	start := time.Now()

	win, startSample, ok := c.buf.Drain()
	if !ok {
		return StatusNoAudio, nil
	}

	if c.cfg.UseVAD && !c.gate.IsSpeech(win) {
		c.metrics.RecordStep(StatusSilence.String(), time.Since(start).Seconds())
		c.log.Debug().Int("samples", len(win)).Msg("window gated as silence")
		return StatusSilence, nil
	}

	opts := decoder.StepOptions{
		Language:   c.cfg.Language,
		Translate:  c.cfg.Translate,
		Timestamps: c.cfg.Timestamps,
	}
	res, err := c.engine.RunStep(ctx, win, c.prior, opts)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return StatusDecodeFailed, err
		}
		c.buf.Reseed(win)
		c.metrics.RecordDecodeFailure("inference")
		c.metrics.RecordStep(StatusDecodeFailed.String(), time.Since(start).Seconds())
		c.log.Warn().Err(err).Int("samples", len(win)).Msg("decode step failed, audio retained")
		return StatusDecodeFailed, nil
	}

	if err := validateStep(res); err != nil {
		c.buf.Reseed(win)
		c.metrics.RecordDecodeFailure("malformed_attention")
		c.metrics.RecordStep(StatusDecodeFailed.String(), time.Since(start).Seconds())
		c.log.Warn().Err(err).
			Int("tokens", len(res.Tokens)).
			Int("frames", res.Frames).
			Msg("malformed attention, step discarded")
		return StatusDecodeFailed, nil
	}

	peaks := make([]int, len(res.Tokens))
	for i, tok := range res.Tokens {
		peaks[i] = alignatt.PeakFrame(tok.Attention)
	}
	n := alignatt.CommitCount(peaks, res.Frames, c.cfg.FrameThreshold)
	committed, speculative := res.Tokens[:n], res.Tokens[n:]

	baseMs := startSample * 1000 / int64(c.cfg.SampleRate)
	_, emitted := c.asm.Update(committed, speculative, baseMs)

	c.appendPrior(committed)
	c.lastSpec = append(c.lastSpec[:0], speculative...)
	c.lastBase = baseMs

	c.metrics.RecordCommit(n, len(speculative))
	if emitted {
		c.metrics.RecordSegmentEmitted()
	}
	c.metrics.RecordStep(StatusProcessed.String(), time.Since(start).Seconds())
	c.log.Debug().
		Int("frames", res.Frames).
		Int("committed", n).
		Int("speculative", len(speculative)).
		Int64("base_ms", baseMs).
		Msg("decode step processed")

	return StatusProcessed, nil
}

// Finalize forces all outstanding speculative tokens to commit,
// bypassing the threshold check and reusing their last computed
// timestamps. Idempotent; a second call is a no-op.
func (c *Context) Finalize() {
	if c.released || c.finalized {
		return
	}
	c.finalized = true

	if len(c.lastSpec) == 0 {
		return
	}
	if _, emitted := c.asm.Update(c.lastSpec, nil, c.lastBase); emitted {
		c.metrics.RecordSegmentEmitted()
	}
	c.metrics.RecordCommit(len(c.lastSpec), 0)
	c.appendPrior(c.lastSpec)
	c.lastSpec = nil
}

// Release frees the buffers owned by the session. The engine is an
// external collaborator and stays open.
func (c *Context) Release() {
	if c.released {
		return
	}
	c.released = true
	c.buf.Release()
	c.asm.Release()
	c.prior = nil
	c.lastSpec = nil
}

// SegmentCount reports the number of finalized segments so far.
func (c *Context) SegmentCount() int { return c.asm.Count() }

// Segment returns the i-th finalized segment.
func (c *Context) Segment(i int) assembler.Segment { return c.asm.Segment(i) }

// Segments returns a copy of the finalized segment sequence.
func (c *Context) Segments() []assembler.Segment { return c.asm.Segments() }

// PartialText returns the current speculative tail.
func (c *Context) PartialText() string { return c.asm.Partial() }

// SampleRate reports the configured sample rate in Hz.
func (c *Context) SampleRate() int { return c.cfg.SampleRate }

func (c *Context) appendPrior(tokens []decoder.Token) {
	for _, tok := range tokens {
		// Attention maps are only needed for the step's own policy
		// evaluation; conditioning keeps text and timing.
		tok.Attention = nil
		c.prior = append(c.prior, tok)
	}
	if len(c.prior) > c.cfg.MaxContextTokens {
		c.prior = append(c.prior[:0], c.prior[len(c.prior)-c.cfg.MaxContextTokens:]...)
	}
}

func validateStep(res decoder.StepResult) error {
	if res.Frames <= 0 && len(res.Tokens) > 0 {
		return fmt.Errorf("%w: %d frames for %d tokens", errMalformedStep, res.Frames, len(res.Tokens))
	}
	for i, tok := range res.Tokens {
		if len(tok.Attention) != res.Frames {
			return fmt.Errorf("%w: token %d has %d weights, window has %d frames",
				errMalformedStep, i, len(tok.Attention), res.Frames)
		}
	}
	return nil
}
