// ABOUTME: Tests for decoder stall detection
// ABOUTME: Tests thresholds and the once-per-burst guarantee
package playback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStallDeclaredOnce(t *testing.T) {
	var d StallDetector
	start := time.Unix(1000, 0)
	for i := 0; i < 25; i++ {
		d.Issued(start.Add(time.Duration(i) * time.Millisecond))
	}

	now := start.Add(6000 * time.Millisecond)
	require.True(t, d.Check(0, now))
	require.True(t, d.Stalled())
	require.False(t, d.Check(0, now.Add(time.Second)))
}

func TestStallThresholds(t *testing.T) {
	start := time.Unix(1000, 0)

	tests := []struct {
		name     string
		issued   int
		expected uint64
		elapsed  time.Duration
		stall    bool
	}{
		{"stalled", 21, 1, 5001 * time.Millisecond, true},
		{"too few requests", 20, 0, time.Minute, false},
		{"progressing", 50, 2, time.Minute, false},
		{"not long enough", 50, 0, 5 * time.Second, false},
		{"nothing issued", 0, 0, time.Minute, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d StallDetector
			for i := 0; i < tt.issued; i++ {
				d.Issued(start)
			}
			require.Equal(t, tt.stall, d.Check(tt.expected, start.Add(tt.elapsed)))
		})
	}
}

func TestStallResetStartsNewBurst(t *testing.T) {
	var d StallDetector
	start := time.Unix(1000, 0)
	for i := 0; i < 25; i++ {
		d.Issued(start)
	}
	require.True(t, d.Check(0, start.Add(6*time.Second)))

	d.Reset()
	require.Equal(t, 0, d.Requests())

	later := start.Add(time.Minute)
	for i := 0; i < 25; i++ {
		d.Issued(later)
	}
	require.False(t, d.Check(0, later.Add(time.Second)))
	require.True(t, d.Check(0, later.Add(6*time.Second)))
}
