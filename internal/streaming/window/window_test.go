package window

import (
	"errors"
	"testing"
)

func samplesOf(n int, base float32) []float32 {
	s := make([]float32, n)
	for i := range s {
		s[i] = base + float32(i)
	}
	return s
}

func TestNew_RejectsBadConfig(t *testing.T) {
	if _, err := New(0, 0); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("expected ErrInvalidCapacity, got %v", err)
	}
	if _, err := New(100, 100); !errors.Is(err, ErrKeepTooLarge) {
		t.Errorf("expected ErrKeepTooLarge for keep==capacity, got %v", err)
	}
	if _, err := New(100, -1); !errors.Is(err, ErrKeepTooLarge) {
		t.Errorf("expected ErrKeepTooLarge for negative keep, got %v", err)
	}
}

func TestDrain_EmptyBuffer(t *testing.T) {
	b, err := New(100, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, ok := b.Drain(); ok {
		t.Error("expected ok=false on empty buffer")
	}
}

func TestDrain_CarriesOverlap(t *testing.T) {
	b, _ := New(100, 10)

	b.Push(samplesOf(50, 0))
	win, start, ok := b.Drain()
	if !ok {
		t.Fatal("expected ok=true after push")
	}
	if len(win) != 50 {
		t.Fatalf("expected 50 samples, got %d", len(win))
	}
	if start != 0 {
		t.Errorf("expected start 0, got %d", start)
	}

	// Next window = trailing 10 of the previous window + new samples.
	b.Push(samplesOf(20, 1000))
	win, start, ok = b.Drain()
	if !ok {
		t.Fatal("expected ok=true on second drain")
	}
	if len(win) != 30 {
		t.Fatalf("expected 30 samples (10 carry + 20 fresh), got %d", len(win))
	}
	if win[0] != 40 { // sample index 40 of the first push
		t.Errorf("expected carry to start at sample 40, got %v", win[0])
	}
	if win[10] != 1000 {
		t.Errorf("expected fresh samples after carry, got %v", win[10])
	}
	if start != 40 {
		t.Errorf("expected absolute start 40, got %d", start)
	}
}

func TestDrain_ShortWindowKeepsWhole(t *testing.T) {
	b, _ := New(100, 10)

	b.Push(samplesOf(5, 0))
	win, _, ok := b.Drain()
	if !ok || len(win) != 5 {
		t.Fatalf("expected 5-sample window, got ok=%v len=%d", ok, len(win))
	}
	if b.Len() != 5 {
		t.Errorf("expected whole short window carried, got %d", b.Len())
	}
}

func TestDrain_NoFreshSamples(t *testing.T) {
	b, _ := New(100, 10)

	b.Push(samplesOf(50, 0))
	if _, _, ok := b.Drain(); !ok {
		t.Fatal("first drain should succeed")
	}
	// Carry-over alone is not fresh audio; a second drain must back off.
	if _, _, ok := b.Drain(); ok {
		t.Error("expected ok=false when only carry-over remains")
	}
}

func TestPush_TruncatesFromOldest(t *testing.T) {
	b, _ := New(100, 10)

	if dropped := b.Push(samplesOf(80, 0)); dropped != 0 {
		t.Fatalf("expected no drop, got %d", dropped)
	}
	dropped := b.Push(samplesOf(50, 1000))
	if dropped != 30 {
		t.Fatalf("expected 30 samples dropped, got %d", dropped)
	}
	if b.Truncations() != 1 {
		t.Errorf("expected 1 truncation, got %d", b.Truncations())
	}

	win, start, ok := b.Drain()
	if !ok || len(win) != 100 {
		t.Fatalf("expected full 100-sample window, got ok=%v len=%d", ok, len(win))
	}
	if win[0] != 30 { // oldest 30 were dropped
		t.Errorf("expected window to start at sample 30, got %v", win[0])
	}
	if start != 30 {
		t.Errorf("absolute start must account for truncated samples, got %d", start)
	}
}

func TestReseed_RetriesSameWindow(t *testing.T) {
	b, _ := New(100, 10)

	b.Push(samplesOf(40, 0))
	win, _, ok := b.Drain()
	if !ok {
		t.Fatal("drain failed")
	}

	b.Reseed(win)
	retry, start, ok := b.Drain()
	if !ok {
		t.Fatal("expected reseeded window to drain")
	}
	if len(retry) != len(win) {
		t.Fatalf("expected identical window length, got %d vs %d", len(retry), len(win))
	}
	for i := range retry {
		if retry[i] != win[i] {
			t.Fatalf("sample %d differs after reseed", i)
		}
	}
	if start != 0 {
		t.Errorf("expected start 0 after reseed, got %d", start)
	}
}

func TestRelease_DropsPending(t *testing.T) {
	b, _ := New(100, 10)
	b.Push(samplesOf(40, 0))
	b.Release()
	if b.Len() != 0 {
		t.Errorf("expected empty buffer after release, got %d", b.Len())
	}
	if _, _, ok := b.Drain(); ok {
		t.Error("expected no drain after release")
	}
}
