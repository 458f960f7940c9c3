package assembler

import (
	"testing"

	"github.com/oLauand/subtitlesforall/internal/streaming/decoder"
)

func tok(text string, t0, t1 int64) decoder.Token {
	return decoder.Token{Text: text, T0: t0, T1: t1}
}

func TestUpdate_EmitsOneSegmentPerStep(t *testing.T) {
	a := New()

	seg, ok := a.Update([]decoder.Token{tok("hello", 0, 400), tok("world", 400, 900)}, nil, 0)
	if !ok {
		t.Fatal("expected a segment")
	}
	if seg.Text != "hello world" {
		t.Errorf("expected 'hello world', got %q", seg.Text)
	}
	if seg.T0 != 0 || seg.T1 != 900 {
		t.Errorf("expected [0, 900], got [%d, %d]", seg.T0, seg.T1)
	}
	if a.Count() != 1 {
		t.Errorf("expected 1 segment, got %d", a.Count())
	}
}

func TestUpdate_NoCommitNoSegment(t *testing.T) {
	a := New()

	_, ok := a.Update(nil, []decoder.Token{tok("maybe", 0, 300)}, 0)
	if ok {
		t.Error("expected no segment when nothing committed")
	}
	if a.Count() != 0 {
		t.Errorf("expected 0 segments, got %d", a.Count())
	}
	if a.Partial() != "maybe" {
		t.Errorf("expected partial 'maybe', got %q", a.Partial())
	}
}

func TestUpdate_PartialSupersededEachStep(t *testing.T) {
	a := New()

	a.Update(nil, []decoder.Token{tok("I", 0, 100), tok("want", 100, 300)}, 0)
	if a.Partial() != "I want" {
		t.Fatalf("expected 'I want', got %q", a.Partial())
	}

	// Speculative state is never accumulated across steps.
	a.Update(nil, []decoder.Token{tok("I", 0, 100), tok("wanted", 100, 400)}, 1000)
	if a.Partial() != "I wanted" {
		t.Errorf("expected replacement 'I wanted', got %q", a.Partial())
	}

	a.Update([]decoder.Token{tok("I", 0, 100), tok("wanted", 100, 400)}, nil, 2000)
	if a.Partial() != "" {
		t.Errorf("expected empty partial after full commit, got %q", a.Partial())
	}
}

func TestUpdate_RebasesOntoStreamPosition(t *testing.T) {
	a := New()

	seg, ok := a.Update([]decoder.Token{tok("later", 200, 700)}, nil, 5000)
	if !ok {
		t.Fatal("expected a segment")
	}
	if seg.T0 != 5200 || seg.T1 != 5700 {
		t.Errorf("expected [5200, 5700], got [%d, %d]", seg.T0, seg.T1)
	}
}

func TestUpdate_MonotonicTimestamps(t *testing.T) {
	a := New()

	a.Update([]decoder.Token{tok("one", 0, 2000)}, nil, 0)
	// The overlap region makes the next window's raw token times start
	// before the previous segment's t0.
	seg, ok := a.Update([]decoder.Token{tok("two", 0, 500)}, nil, 1800)
	if !ok {
		t.Fatal("expected a segment")
	}
	if seg.T0 < 0 {
		t.Fatalf("negative t0: %d", seg.T0)
	}
	if seg.T1 < seg.T0 {
		t.Errorf("t1 %d precedes t0 %d", seg.T1, seg.T0)
	}

	segs := a.Segments()
	for i := 1; i < len(segs); i++ {
		if segs[i].T0 < segs[i-1].T0 {
			t.Errorf("segment %d t0 %d decreases below %d", i, segs[i].T0, segs[i-1].T0)
		}
	}
}

func TestSegments_ReturnsCopy(t *testing.T) {
	a := New()
	a.Update([]decoder.Token{tok("x", 0, 100)}, nil, 0)

	segs := a.Segments()
	segs[0].Text = "mutated"
	if a.Segment(0).Text != "x" {
		t.Error("emitted segments must be immutable to callers")
	}
}
