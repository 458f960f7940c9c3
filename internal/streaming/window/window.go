// Package window maintains the rolling PCM sample window fed to the
// decoder each step, carrying a bounded overlap forward between steps.
package window

import (
	"errors"
	"fmt"
)

// Errors for invalid buffer construction.
var (
	ErrInvalidCapacity = errors.New("window: capacity must be positive")
	ErrKeepTooLarge    = errors.New("window: keep length must be smaller than capacity")
)

// Buffer accumulates float32 PCM samples and hands out decode windows.
// A window is the carry-over from the previous step plus everything
// pushed since the last drain. The carry-over is the trailing keep
// region of the last drained window.
//
// Not safe for concurrent use; callers serialize Push/Drain per session.
type Buffer struct {
	capacity int // max window length in samples
	keep     int // overlap carried between steps, in samples

	pending []float32
	fresh   int   // samples pushed since the last drain
	pushed  int64 // lifetime samples pushed, including truncated ones

	truncations int64
}

// New creates a buffer with the given capacity and overlap length, both
// in samples.
func New(capacity, keep int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, capacity)
	}
	if keep < 0 || keep >= capacity {
		return nil, fmt.Errorf("%w: keep=%d capacity=%d", ErrKeepTooLarge, keep, capacity)
	}
	return &Buffer{
		capacity: capacity,
		keep:     keep,
		pending:  make([]float32, 0, capacity),
	}, nil
}

// Push appends freshly captured samples. When the pending window would
// exceed capacity the oldest samples are dropped and their count is
// returned, so the caller can surface a degraded-window condition. The
// loss is acceptable; it is a quality warning, not an error.
func (b *Buffer) Push(samples []float32) (dropped int) {
	if len(samples) == 0 {
		return 0
	}
	b.pending = append(b.pending, samples...)
	b.fresh += len(samples)
	b.pushed += int64(len(samples))

	if len(b.pending) > b.capacity {
		dropped = len(b.pending) - b.capacity
		b.pending = append(b.pending[:0], b.pending[dropped:]...)
		b.truncations++
	}
	return dropped
}

// Drain returns the current window together with the absolute sample
// index of its first sample, and resets the carry-over to the trailing
// keep region of the returned window (the whole window when shorter).
//
// When no samples arrived since the last drain it returns ok=false and
// leaves the buffer untouched; the caller should back off instead of
// issuing a redundant decode.
func (b *Buffer) Drain() (win []float32, start int64, ok bool) {
	if b.fresh == 0 || len(b.pending) == 0 {
		return nil, 0, false
	}

	win = append([]float32(nil), b.pending...)
	start = b.pushed - int64(len(win))

	carry := b.keep
	if carry > len(win) {
		carry = len(win)
	}
	b.pending = append(b.pending[:0], win[len(win)-carry:]...)
	b.fresh = 0
	return win, start, true
}

// Reseed restores a previously drained window as the pending audio so
// the next step retries with the same samples, capacity-capped from
// the oldest end. Used after a transient decode failure so no buffered
// audio is lost.
func (b *Buffer) Reseed(win []float32) {
	if len(win) > b.capacity {
		win = win[len(win)-b.capacity:]
	}
	b.pending = append(b.pending[:0], win...)
	b.fresh = len(win)
}

// Len reports the pending sample count.
func (b *Buffer) Len() int { return len(b.pending) }

// Truncations reports how many pushes overran capacity.
func (b *Buffer) Truncations() int64 { return b.truncations }

// Release drops the pending audio and carry-over.
func (b *Buffer) Release() {
	b.pending = nil
	b.fresh = 0
}
