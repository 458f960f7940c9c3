package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/oLauand/subtitlesforall/internal/events"
	"github.com/oLauand/subtitlesforall/internal/models"
	"github.com/oLauand/subtitlesforall/internal/observability/metrics"
	"github.com/oLauand/subtitlesforall/internal/service/stt"
	"github.com/oLauand/subtitlesforall/internal/streaming/assembler"
)

// Limits defines safety guardrails for a streaming session.
// These prevent unbounded resource usage and ensure backpressure.
type Limits struct {
	MaxAudioBytes int64         // Max audio accepted per session
	MaxDuration   time.Duration // Max session duration
	MaxPartials   int           // Max partial transcripts per session
}

// DefaultLimits returns sensible default limits.
func DefaultLimits() Limits {
	return Limits{
		MaxAudioBytes: 50 * 1024 * 1024, // ~27 minutes at 16kHz 16-bit mono
		MaxDuration:   30 * time.Minute,
		MaxPartials:   5000,
	}
}

// Handler manages a streaming transcription session.
// It implements stt.Callback to receive transcripts and publish events.
// Uses an explicit session state machine to enforce lifecycle rules and
// backpressure limits to prevent unbounded resource usage.
type Handler struct {
	adapter    stt.Adapter
	publisher  *events.Publisher
	segmentGen *Generator
	sessionID  string

	lifecycle *Lifecycle
	limits    Limits
	metrics   *metrics.Metrics

	mu           sync.RWMutex
	observer     stt.Callback
	closed       bool
	startTime    time.Time
	audioBytes   int64
	partialCount int
	segmentCount int
}

// NewHandler creates a handler for a transcription session with default
// limits.
func NewHandler(adapter stt.Adapter, publisher *events.Publisher, sessionID string) *Handler {
	return NewHandlerWithLimits(adapter, publisher, sessionID, DefaultLimits())
}

// NewHandlerWithLimits creates a handler with custom session limits.
func NewHandlerWithLimits(adapter stt.Adapter, publisher *events.Publisher, sessionID string, limits Limits) *Handler {
	return &Handler{
		adapter:    adapter,
		publisher:  publisher,
		segmentGen: NewGenerator(),
		sessionID:  sessionID,
		lifecycle:  NewLifecycle(sessionID),
		limits:     limits,
		metrics:    metrics.DefaultMetrics,
		startTime:  time.Now(),
	}
}

// SetObserver registers a callback that receives every event the
// handler accepts, after publishing. Used by transports to push results
// back to the client.
func (h *Handler) SetObserver(cb stt.Callback) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.observer = cb
}

func (h *Handler) getObserver() stt.Callback {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.observer
}

// Start begins the STT session with this handler as the callback receiver.
func (h *Handler) Start(ctx context.Context) error {
	h.metrics.RecordSessionStart()
	return h.adapter.Start(ctx, h)
}

// SendAudio forwards audio bytes to the STT adapter.
// Returns an error if session limits are exceeded (session is dropped).
func (h *Handler) SendAudio(ctx context.Context, audio []byte) error {
	h.mu.Lock()
	h.audioBytes += int64(len(audio))
	currentBytes := h.audioBytes
	startTime := h.startTime
	h.mu.Unlock()

	h.metrics.RecordAudioBytes(len(audio))

	if h.limits.MaxAudioBytes > 0 && currentBytes > h.limits.MaxAudioBytes {
		reason := fmt.Sprintf("max audio bytes exceeded: %d > %d", currentBytes, h.limits.MaxAudioBytes)
		h.metrics.RecordLimitExceeded("audio_bytes")
		h.Drop(reason)
		return fmt.Errorf("session limit exceeded: %s", reason)
	}

	if h.limits.MaxDuration > 0 && time.Since(startTime) > h.limits.MaxDuration {
		reason := fmt.Sprintf("max duration exceeded: %v > %v", time.Since(startTime), h.limits.MaxDuration)
		h.metrics.RecordLimitExceeded("duration")
		h.Drop(reason)
		return fmt.Errorf("session limit exceeded: %s", reason)
	}

	return h.adapter.SendAudio(ctx, audio)
}

// Close finalizes the session: the adapter flushes its speculative tail
// through OnSegment before the session transitions to CLOSED.
// Idempotent.
func (h *Handler) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	if err := h.lifecycle.Finalize(); err != nil {
		// Already finalized or dropped: adapter teardown still runs.
		log.Debug().
			Str("sessionId", h.sessionID).
			Err(err).
			Msg("Finalize skipped")
	}

	err := h.adapter.Close()

	h.lifecycle.Close()
	h.mu.RLock()
	duration := time.Since(h.startTime)
	h.mu.RUnlock()
	h.metrics.RecordSessionEnd(err == nil && !h.lifecycle.IsDropped(), duration.Seconds())

	return err
}

// SessionID returns the session ID.
func (h *Handler) SessionID() string {
	return h.sessionID
}

// State returns the current session lifecycle state.
func (h *Handler) State() State {
	return h.lifecycle.State()
}

// --- stt.Callback implementation ---

// OnPartial is called with the current speculative transcript.
// Only emits if the session is OPEN and within limits. The finalize
// flush is the one exception: an empty partial still passes so clients
// see the speculative text retire.
func (h *Handler) OnPartial(text string) {
	if err := h.lifecycle.EmitPartial(); err != nil {
		if text != "" || !errors.Is(err, ErrPartialAfterFinal) {
			log.Debug().
				Str("sessionId", h.sessionID).
				Str("state", h.lifecycle.State().String()).
				Err(err).
				Msg("OnPartial ignored")
			return
		}
	}

	if text != "" {
		h.mu.Lock()
		h.partialCount++
		count := h.partialCount
		h.mu.Unlock()

		if h.limits.MaxPartials > 0 && count > h.limits.MaxPartials {
			reason := fmt.Sprintf("max partials exceeded: %d > %d", count, h.limits.MaxPartials)
			h.metrics.RecordLimitExceeded("partials")
			h.Drop(reason)
			return
		}
	}

	ev := models.TranscriptPartial{
		EventType: "transcript.partial",
		SessionID: h.sessionID,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := h.publisher.PublishPartial(context.Background(), h.sessionID, &ev); err != nil {
		log.Error().
			Str("sessionId", h.sessionID).
			Err(err).
			Msg("Failed to publish partial")
	}
	if obs := h.getObserver(); obs != nil {
		obs.OnPartial(text)
	}
}

// OnSegment is called when a transcript segment is committed.
// Segments are emitted while open and during the finalize flush.
func (h *Handler) OnSegment(seg assembler.Segment) {
	if err := h.lifecycle.EmitSegment(); err != nil {
		log.Debug().
			Str("sessionId", h.sessionID).
			Str("state", h.lifecycle.State().String()).
			Err(err).
			Msg("OnSegment ignored")
		return
	}

	h.mu.Lock()
	h.segmentCount++
	h.mu.Unlock()

	ev := models.TranscriptSegment{
		EventType: "transcript.segment",
		SessionID: h.sessionID,
		SegmentID: h.segmentGen.Next(h.sessionID),
		Text:      seg.Text,
		T0Ms:      seg.T0,
		T1Ms:      seg.T1,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := h.publisher.PublishSegment(context.Background(), h.sessionID, &ev); err != nil {
		log.Error().
			Str("sessionId", h.sessionID).
			Str("segmentId", ev.SegmentID).
			Err(err).
			Msg("Failed to publish segment")
		return
	}
	h.metrics.RecordSegmentEmitted()
	if obs := h.getObserver(); obs != nil {
		obs.OnSegment(seg)
	}
}

// OnError is called when an STT error occurs.
// The session is DROPPED - no further events will be emitted.
// "Silence > bad data" - it's better to emit nothing than
// incorrect/incomplete data.
func (h *Handler) OnError(err error) {
	state := h.lifecycle.State()
	dropped := h.lifecycle.Drop()

	log.Error().
		Str("sessionId", h.sessionID).
		Str("previousState", state.String()).
		Bool("dropped", dropped).
		Err(err).
		Msg("STT error - session dropped")

	if obs := h.getObserver(); obs != nil {
		obs.OnError(err)
	}
}

// Drop explicitly drops the session without a final flush.
// Use when the session should be abandoned due to external factors
// (e.g., client disconnect, timeout, limit breach).
//
// Returns true if the session was dropped, false if already terminal.
func (h *Handler) Drop(reason string) bool {
	state := h.lifecycle.State()
	dropped := h.lifecycle.Drop()

	log.Warn().
		Str("sessionId", h.sessionID).
		Str("previousState", state.String()).
		Str("reason", reason).
		Msg("Session dropped")

	return dropped
}

// IsDropped returns true if the session was dropped.
func (h *Handler) IsDropped() bool {
	return h.lifecycle.IsDropped()
}

// Metrics holds current session usage counters.
type Metrics struct {
	AudioBytes   int64
	PartialCount int
	SegmentCount int
	Duration     time.Duration
}

// SessionMetrics returns current usage counters for observability.
func (h *Handler) SessionMetrics() Metrics {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return Metrics{
		AudioBytes:   h.audioBytes,
		PartialCount: h.partialCount,
		SegmentCount: h.segmentCount,
		Duration:     time.Since(h.startTime),
	}
}
