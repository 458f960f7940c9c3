// Package stt defines the interface for Speech-to-Text adapters.
package stt

import (
	"context"

	"github.com/oLauand/subtitlesforall/internal/streaming/assembler"
)

// Callback receives transcript results from the STT provider.
type Callback interface {
	// OnPartial is called with the current speculative transcript.
	// Each call fully supersedes the previous partial.
	OnPartial(text string)

	// OnSegment is called when a transcript segment is committed.
	// Committed segments are immutable and never retracted.
	OnSegment(seg assembler.Segment)

	// OnError is called when an error occurs during transcription.
	OnError(err error)
}

// Adapter defines the interface for STT providers.
type Adapter interface {
	// Start begins a streaming transcription session.
	Start(ctx context.Context, cb Callback) error

	// SendAudio sends audio bytes to the STT provider.
	SendAudio(ctx context.Context, audio []byte) error

	// Close ends the session, flushes outstanding results and releases
	// resources.
	Close() error
}
