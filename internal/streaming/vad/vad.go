// Package vad provides a cheap energy-based voice activity gate used to
// suppress decode calls on windows classified as silence.
package vad

import "math"

const (
	// DefaultFloor is the RMS energy below which a window is treated as
	// silence regardless of the adaptive baseline.
	DefaultFloor = 0.005

	// DefaultRatio is how far above the noise baseline the window energy
	// must rise to count as speech.
	DefaultRatio = 2.0

	// baselineAlpha controls how quickly the noise baseline follows
	// silence windows.
	baselineAlpha = 0.25
)

// Gate classifies PCM windows as speech or silence. The only state
// carried across calls is a moving-average noise baseline, updated from
// windows classified as silence so speech does not inflate it.
type Gate struct {
	floor float64
	ratio float64

	baseline    float64
	hasBaseline bool
}

// New returns a gate with the given absolute floor and baseline ratio.
// Non-positive arguments fall back to the defaults.
func New(floor, ratio float64) *Gate {
	if floor <= 0 {
		floor = DefaultFloor
	}
	if ratio <= 0 {
		ratio = DefaultRatio
	}
	return &Gate{floor: floor, ratio: ratio}
}

// IsSpeech reports whether the window contains speech energy. An empty
// window cannot be classified and defaults to speech so real audio is
// never silently dropped.
func (g *Gate) IsSpeech(win []float32) bool {
	if len(win) == 0 {
		return true
	}

	rms := rmsEnergy(win)

	// Seed the baseline no higher than the floor so a session that opens
	// with speech is not misread as noise.
	if !g.hasBaseline {
		g.baseline = math.Min(rms, g.floor)
		g.hasBaseline = true
	}

	if rms < g.floor || rms < g.baseline*g.ratio {
		g.baseline = (1-baselineAlpha)*g.baseline + baselineAlpha*rms
		return false
	}
	return true
}

// Reset clears the adaptive baseline, e.g. between sessions.
func (g *Gate) Reset() {
	g.baseline = 0
	g.hasBaseline = false
}

func rmsEnergy(win []float32) float64 {
	var sum float64
	for _, s := range win {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(win)))
}
