package clip

import "testing"

func TestEstimatedDuration(t *testing.T) {
	cases := []struct {
		count, perSegment, want int
	}{
		{6, DefaultSegmentSeconds, 60},
		{6, 5, 30},
		{0, DefaultSegmentSeconds, 0},
		{1, 10, 10},
	}
	for _, c := range cases {
		if got := EstimatedDuration(c.count, c.perSegment); got != c.want {
			t.Errorf("EstimatedDuration(%d, %d) = %d, want %d", c.count, c.perSegment, got, c.want)
		}
	}
}

func TestEstimatedFileSize(t *testing.T) {
	cases := []struct {
		duration, kbps int
		want           int64
	}{
		{60, DefaultBitrateKbps, 45_000_000},
		{1, 1, 125},
		{0, DefaultBitrateKbps, 0},
	}
	for _, c := range cases {
		if got := EstimatedFileSize(c.duration, c.kbps); got != c.want {
			t.Errorf("EstimatedFileSize(%d, %d) = %d, want %d", c.duration, c.kbps, got, c.want)
		}
	}
}

func TestEstimatedFileSizeRoundsUp(t *testing.T) {
	// 3 kbps for 1s = 3000 bits = 375 bytes exactly; 1 kbps for 3s = 375 too.
	// 1 kbps for 1s = 1000 bits = 125 bytes. An inexact division rounds up:
	// 3 bits would be 1 byte.
	if got := EstimatedFileSize(3, 1); got != 375 {
		t.Fatalf("EstimatedFileSize(3, 1) = %d, want 375", got)
	}
}
