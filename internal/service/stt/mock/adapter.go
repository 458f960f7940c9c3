// Package mock provides a mock STT adapter for testing without a model
// or cloud credentials. It simulates realistic streaming behavior with
// progressive partial transcripts followed by a committed segment per
// utterance.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/oLauand/subtitlesforall/internal/service/stt"
	"github.com/oLauand/subtitlesforall/internal/streaming/assembler"
)

// SimulatedUtterance represents a mock utterance with progressive transcripts.
type SimulatedUtterance struct {
	Partials   []string // Progressive partial transcripts
	Final      string   // Committed segment text
	DurationMs int64    // Segment span in stream time
}

// DefaultUtterances provides sample utterances for simulation.
var DefaultUtterances = []SimulatedUtterance{
	{
		Partials:   []string{"I want", "I want to", "I want to turn on"},
		Final:      "I want to turn on subtitles",
		DurationMs: 2600,
	},
	{
		Partials:   []string{"Yes", "Yes please"},
		Final:      "Yes please go ahead",
		DurationMs: 1800,
	},
	{
		Partials:   []string{"Can you", "Can you help", "Can you help me with"},
		Final:      "Can you help me with my account",
		DurationMs: 2900,
	},
	{
		Partials:   []string{"I've been", "I've been waiting", "I've been waiting for"},
		Final:      "I've been waiting for over an hour",
		DurationMs: 3100,
	},
	{
		Partials:   []string{"Thank you"},
		Final:      "Thank you very much",
		DurationMs: 1400,
	},
}

// Adapter implements stt.Adapter with mock responses.
// It simulates realistic streaming behavior:
// - Multiple superseding partial transcripts as audio is received
// - Exactly one committed segment per utterance
type Adapter struct {
	cb            stt.Callback
	mu            sync.Mutex
	audioReceived int                // Count of audio frames received
	utterance     SimulatedUtterance // Current utterance being simulated
	partialIndex  int                // Next partial to send
	segmentSent   bool               // Ensures only one segment per utterance
	closed        bool
}

// utteranceCounter tracks which utterance to use next (cycles through defaults)
var (
	utteranceCounter int
	counterMu        sync.Mutex
)

// New creates a new mock STT adapter.
func New() *Adapter {
	counterMu.Lock()
	idx := utteranceCounter % len(DefaultUtterances)
	utteranceCounter++
	counterMu.Unlock()

	return &Adapter{
		utterance: DefaultUtterances[idx],
	}
}

// Start begins a mock transcription session.
func (a *Adapter) Start(ctx context.Context, cb stt.Callback) error {
	a.cb = cb
	return nil
}

// SendAudio simulates receiving audio and triggers progressive partial
// transcripts. When all partials are sent, the utterance is committed as
// a segment, mimicking the commit policy catching up with the audio.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.cb == nil {
		return nil
	}

	a.audioReceived++

	// Send next partial if available (one partial per audio frame)
	if a.partialIndex < len(a.utterance.Partials) {
		partial := a.utterance.Partials[a.partialIndex]
		a.partialIndex++

		// Simulate processing delay
		go func(text string) {
			time.Sleep(50 * time.Millisecond)
			a.mu.Lock()
			if !a.closed && a.cb != nil {
				a.cb.OnPartial(text)
			}
			a.mu.Unlock()
		}(partial)
	} else if !a.segmentSent {
		// All partials sent - commit the utterance
		a.segmentSent = true

		go func() {
			time.Sleep(100 * time.Millisecond)
			a.mu.Lock()
			cb := a.cb
			closed := a.closed
			utt := a.utterance
			a.mu.Unlock()

			if !closed && cb != nil {
				cb.OnSegment(assembler.Segment{
					Text: utt.Final,
					T0:   0,
					T1:   utt.DurationMs,
				})
				cb.OnPartial("")
			}
		}()
	}

	return nil
}

// Close ends the mock session.
// If the segment wasn't committed via SendAudio (stream ended early),
// commit it now.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	if !a.segmentSent && a.cb != nil {
		a.segmentSent = true
		cb := a.cb
		utt := a.utterance
		go func() {
			time.Sleep(100 * time.Millisecond)
			cb.OnSegment(assembler.Segment{
				Text: utt.Final,
				T0:   0,
				T1:   utt.DurationMs,
			})
		}()
	}

	return nil
}
