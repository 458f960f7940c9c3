package streaming

import (
	"encoding/binary"
	"math"
)

// DecodeS16LE converts 16-bit little-endian PCM bytes to float32
// samples in [-1, 1]. A trailing odd byte is ignored.
func DecodeS16LE(buf []byte) []float32 {
	n := len(buf) / 2
	if n == 0 {
		return nil
	}
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		u := binary.LittleEndian.Uint16(buf[2*i:])
		samples[i] = float32(int16(u)) / 32768.0
	}
	return samples
}

// DecodeF32LE converts little-endian float32 PCM bytes (the wire format
// of the WebSocket ingress) to samples. Trailing partial values are
// ignored.
func DecodeF32LE(buf []byte) []float32 {
	n := len(buf) / 4
	if n == 0 {
		return nil
	}
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(buf[4*i:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}
