package alignatt

import "testing"

func TestPeakFrame(t *testing.T) {
	tests := []struct {
		name    string
		weights []float32
		want    int
	}{
		{"empty", nil, -1},
		{"single", []float32{1}, 0},
		{"middle", []float32{0.1, 0.7, 0.2}, 1},
		{"last", []float32{0.1, 0.2, 0.7}, 2},
		{"tie resolves earliest", []float32{0.4, 0.4, 0.2}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PeakFrame(tt.weights); got != tt.want {
				t.Errorf("PeakFrame() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCommitCount(t *testing.T) {
	tests := []struct {
		name      string
		peaks     []int
		frames    int
		threshold int
		want      int
	}{
		{"no tokens", nil, 300, 25, 0},
		{"all far from edge", []int{10, 50, 100}, 300, 25, 3},
		{"all near edge", []int{280, 290, 295}, 300, 25, 0},
		// Window 300, threshold 25: distances 290, 250, 200, 20, 5.
		{"head commits tail speculative", []int{10, 50, 100, 280, 295}, 300, 25, 3},
		// A safe token after an unsafe one must not commit.
		{"sweep stops at first failure", []int{10, 290, 20}, 300, 25, 1},
		{"invalid peak stops sweep", []int{10, -1, 20}, 300, 25, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CommitCount(tt.peaks, tt.frames, tt.threshold); got != tt.want {
				t.Errorf("CommitCount() = %d, want %d", got, tt.want)
			}
		})
	}
}

// The test is strict greater-than: distance exactly at the threshold is
// not yet safe, one frame further is.
func TestCommitCount_ExactBoundary(t *testing.T) {
	const frames, threshold = 300, 25

	atThreshold := frames - threshold // distance == threshold
	if got := CommitCount([]int{atThreshold}, frames, threshold); got != 0 {
		t.Errorf("peak at exact threshold distance must stay speculative, got %d commits", got)
	}

	beyond := frames - threshold - 1 // distance == threshold + 1
	if got := CommitCount([]int{beyond}, frames, threshold); got != 1 {
		t.Errorf("peak one frame beyond threshold must commit, got %d commits", got)
	}
}
