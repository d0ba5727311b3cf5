// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the clocked Device interface with oto and silent implementations
// Package output provides audio playback devices.
//
// A Device owns a clock and plays units at absolute times on it, much like
// an audio graph in a browser. Open picks the oto-backed sound card when
// one is available and falls back to NoOp otherwise.
//
// Example:
//
//	dev, ok := output.Open(8000, log)
//	dev.Resume()
//	dev.Start(1, unit, dev.CurrentTime()+0.2)
package output
