// Package assembler converts committed tokens into finalized,
// timestamped segments and tracks the speculative tail as partial text.
package assembler

import (
	"strings"

	"github.com/oLauand/subtitlesforall/internal/streaming/decoder"
)

// Segment is a finalized, user-facing unit of output. Immutable once
// emitted; timestamps are milliseconds on the absolute audio stream.
type Segment struct {
	Text string
	T0   int64
	T1   int64
}

// Assembler accumulates segments across steps. One segment is emitted
// per decode step containing all tokens committed in that step; steps
// that commit nothing emit nothing. The speculative tail is step-local
// and fully superseded on every update.
type Assembler struct {
	segments []Segment
	partial  string

	lastT0 int64
	lastT1 int64
}

// New returns an empty assembler.
func New() *Assembler {
	return &Assembler{}
}

// Update appends one segment built from the step's committed tokens and
// replaces the partial text with the speculative tail. baseMs is the
// absolute stream position of the decoded window's first sample; token
// timestamps are window-relative and get rebased onto it.
//
// Emitted timestamps are clamped so t0 never decreases across segments
// and t1 never precedes t0, even when the window overlap makes raw
// token times step backwards.
func (a *Assembler) Update(committed, speculative []decoder.Token, baseMs int64) (Segment, bool) {
	a.partial = joinTokens(speculative)

	if len(committed) == 0 {
		return Segment{}, false
	}

	t0 := baseMs + committed[0].T0
	t1 := baseMs + committed[len(committed)-1].T1
	if t0 < a.lastT0 {
		t0 = a.lastT0
	}
	if t1 < t0 {
		t1 = t0
	}

	seg := Segment{
		Text: joinTokens(committed),
		T0:   t0,
		T1:   t1,
	}
	a.segments = append(a.segments, seg)
	a.lastT0 = t0
	a.lastT1 = t1
	return seg, true
}

// Count reports the number of finalized segments.
func (a *Assembler) Count() int { return len(a.segments) }

// Segment returns the i-th finalized segment.
func (a *Assembler) Segment(i int) Segment { return a.segments[i] }

// Segments returns a copy of the finalized segment sequence.
func (a *Assembler) Segments() []Segment {
	return append([]Segment(nil), a.segments...)
}

// Partial returns the current speculative tail as a single string.
func (a *Assembler) Partial() string { return a.partial }

// Release drops the accumulated state.
func (a *Assembler) Release() {
	a.segments = nil
	a.partial = ""
}

func joinTokens(tokens []decoder.Token) string {
	if len(tokens) == 0 {
		return ""
	}
	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if text := strings.TrimSpace(tok.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
