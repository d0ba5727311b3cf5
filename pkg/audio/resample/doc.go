// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts decoded units between sample rates
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation. The output device runs at one fixed rate for
// the life of the process, so units decoded at other rates pass through
// here before being scheduled.
//
// Example:
//
//	u = resample.ToRate(u, 48000)
package resample
