// ABOUTME: Decoder stall detection
// ABOUTME: Declares a stall when many decodes are outstanding but none complete in order
package playback

import "time"

// Stall thresholds.
const (
	StallMinRequests = 20
	StallMaxExpected = 1
	StallTimeout     = 5 * time.Second
)

// StallDetector watches decode submissions against reorder progress.
type StallDetector struct {
	issued     int
	burstStart time.Time
	fired      bool
}

// Issued records one decode request made at now. The first request after
// construction or Reset starts the burst.
func (d *StallDetector) Issued(now time.Time) {
	if d.issued == 0 {
		d.burstStart = now
	}
	d.issued++
}

// Requests returns how many requests were issued in the current burst.
func (d *StallDetector) Requests() int {
	return d.issued
}

// Check reports whether the decoder is stalled given the reorder queue's
// expected index. It returns true at most once per burst.
func (d *StallDetector) Check(expected uint64, now time.Time) bool {
	if d.fired || d.issued == 0 {
		return false
	}
	if expected > StallMaxExpected || d.issued <= StallMinRequests {
		return false
	}
	if now.Sub(d.burstStart) <= StallTimeout {
		return false
	}
	d.fired = true
	return true
}

// Stalled reports whether a stall was declared in the current burst.
func (d *StallDetector) Stalled() bool {
	return d.fired
}

// Reset starts a new burst.
func (d *StallDetector) Reset() {
	*d = StallDetector{}
}
