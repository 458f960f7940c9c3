package streaming

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestDecodeS16LE(t *testing.T) {
	samples := []int16{0, 16384, -32768}
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(s))
	}

	got := DecodeS16LE(buf)
	want := []float32{0, 0.5, -1}
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("sample %d: got %f, want %f", i, got[i], want[i])
		}
	}
}

func TestDecodeS16LE_TruncatedTail(t *testing.T) {
	// An odd trailing byte is dropped rather than misread.
	buf := make([]byte, 5)
	if got := DecodeS16LE(buf); len(got) != 2 {
		t.Errorf("expected 2 samples, got %d", len(got))
	}
}

func TestDecodeF32LE(t *testing.T) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(0.25))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(-1))

	got := DecodeF32LE(buf)
	if len(got) != 2 || got[0] != 0.25 || got[1] != -1 {
		t.Errorf("unexpected samples: %v", got)
	}
}
