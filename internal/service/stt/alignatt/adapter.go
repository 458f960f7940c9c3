// Package alignatt provides the local incremental STT adapter. It runs
// the sliding-window transcription loop over a local decoder engine and
// commits tokens with the attention-based policy, so results stream out
// without waiting for utterance boundaries.
package alignatt

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oLauand/subtitlesforall/internal/service/stt"
	"github.com/oLauand/subtitlesforall/internal/streaming"
	"github.com/oLauand/subtitlesforall/internal/streaming/decoder"
)

// Audio encodings accepted by SendAudio.
const (
	EncodingF32LE = "f32le"
	EncodingS16LE = "s16le"
)

// Config configures the adapter.
type Config struct {
	Streaming streaming.Config
	// Encoding of the bytes passed to SendAudio. Defaults to f32le.
	Encoding string
}

// Adapter implements stt.Adapter on top of a local decoder engine.
// It buffers incoming audio and runs one decode step per full step
// interval, emitting committed segments and superseding partials.
type Adapter struct {
	cfg    Config
	engine decoder.Engine

	mu      sync.Mutex
	stream  *streaming.Context
	cb      stt.Callback
	pending int // samples inserted since the last step
	emitted int // segments already delivered to the callback
	partial string
	closed  bool

	log zerolog.Logger
}

// New creates an adapter around the given engine. The engine must
// retain cross-attention weights; engines that cannot are rejected at
// session start.
func New(engine decoder.Engine, cfg Config) *Adapter {
	if cfg.Encoding == "" {
		cfg.Encoding = EncodingF32LE
	}
	return &Adapter{
		cfg:    cfg,
		engine: engine,
		log:    log.With().Str("component", "alignatt-adapter").Logger(),
	}
}

// Start creates the streaming context for a new session.
func (a *Adapter) Start(ctx context.Context, cb stt.Callback) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return streaming.ErrContextReleased
	}

	sc, err := streaming.NewContext(a.engine, a.cfg.Streaming)
	if err != nil {
		return err
	}
	a.stream = sc
	a.cb = cb
	a.pending = 0
	a.emitted = 0
	a.partial = ""

	a.log.Info().
		Int("sampleRate", sc.SampleRate()).
		Str("encoding", a.cfg.Encoding).
		Msg("Streaming session started")
	return nil
}

// SendAudio decodes the payload and feeds it to the window. One decode
// step runs per accumulated step interval; a short tail stays buffered
// until more audio arrives or the session closes.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.stream == nil {
		return streaming.ErrContextReleased
	}

	var samples []float32
	switch a.cfg.Encoding {
	case EncodingS16LE:
		samples = streaming.DecodeS16LE(audio)
	default:
		samples = streaming.DecodeF32LE(audio)
	}
	if len(samples) == 0 {
		return nil
	}

	a.stream.InsertAudio(samples)
	a.pending += len(samples)

	stepSamples := a.stream.SampleRate() * a.cfg.Streaming.StepMs / 1000
	if stepSamples <= 0 {
		stepSamples = a.stream.SampleRate()
	}

	for a.pending >= stepSamples {
		a.pending -= stepSamples
		if err := a.step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (a *Adapter) step(ctx context.Context) error {
	status, err := a.stream.ProcessStep(ctx)
	if err != nil {
		if a.cb != nil {
			a.cb.OnError(err)
		}
		return err
	}
	if status == streaming.StatusDecodeFailed {
		a.log.Warn().Msg("Decode step failed, audio retained for retry")
		return nil
	}
	a.deliver()
	return nil
}

// deliver pushes newly committed segments and any changed partial to
// the callback. Caller holds the lock.
func (a *Adapter) deliver() {
	if a.cb == nil {
		return
	}
	for a.emitted < a.stream.SegmentCount() {
		a.cb.OnSegment(a.stream.Segment(a.emitted))
		a.emitted++
	}
	if p := a.stream.PartialText(); p != a.partial {
		a.partial = p
		a.cb.OnPartial(p)
	}
}

// Close finalizes the session: outstanding speculative tokens are
// committed and delivered before resources are released. The engine is
// left open for reuse by the next session.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	if a.stream == nil {
		return nil
	}

	// Flush whatever audio is still buffered below a full step.
	if a.pending > 0 {
		if _, err := a.stream.ProcessStep(context.Background()); err != nil {
			a.log.Warn().Err(err).Msg("Final step failed during close")
		}
	}

	a.stream.Finalize()
	a.deliver()
	a.stream.Release()
	a.stream = nil

	a.log.Info().Int("segments", a.emitted).Msg("Streaming session closed")
	return nil
}

// NewEngine constructs the decoder engine named by provider. The mock
// engine is the scripted stub; "whisper" is reserved for a cgo-backed
// build.
func NewEngine(provider string, cfg streaming.Config) (decoder.Engine, error) {
	switch provider {
	case "", "mock", "stub":
		return decoder.NewStub(cfg.SampleRate, cfg.FrameStrideMs), nil
	default:
		return nil, fmt.Errorf("unknown decoder engine %q", provider)
	}
}
