// Package alignatt implements the AlignAtt commit policy: a token is
// trusted as final only when its cross-attention focus lies far enough
// from the trailing edge of the audio window, where evidence is still
// in flux.
package alignatt

// DefaultFrameThreshold is the minimum frame distance from the window
// edge required to commit a token (250 ms at a 10 ms frame stride).
const DefaultFrameThreshold = 25

// PeakFrame returns the index of the audio frame receiving maximal
// attention weight, or -1 for an empty vector. Ties resolve to the
// earliest frame.
func PeakFrame(weights []float32) int {
	if len(weights) == 0 {
		return -1
	}
	peak := 0
	for i, w := range weights {
		if w > weights[peak] {
			peak = i
		}
	}
	return peak
}

// CommitCount decides how many of the newly produced tokens commit.
//
// Scanning peaks in decode order, a token commits iff
// frames - peak > threshold: its attention evidence does not depend on
// the boundary audio that more context could still revise. The first
// token failing the test ends the run; everything after it stays
// speculative regardless of its own distance, so no committed token can
// ever follow a speculative one. The test is strict: a peak at exactly
// threshold distance is not yet safe.
func CommitCount(peaks []int, frames, threshold int) int {
	n := 0
	for _, peak := range peaks {
		if peak < 0 || frames-peak <= threshold {
			break
		}
		n++
	}
	return n
}
