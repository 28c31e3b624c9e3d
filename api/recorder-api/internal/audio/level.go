// Copyright (c) 2025-2026 MurmurAI
//
// Licensed under GPL-2.0 with Murmur Additional Terms.
// See LICENSE.md for details.
package internal_audio

import "math"

// Level converts a sample buffer to a normalized 0.0–1.0 input level:
// RMS energy → decibels → rescaled so typical speech (-30..-10 dB) lands in
// the upper half of the range.
func Level(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms == 0 {
		return 0
	}
	db := 20 * math.Log10(rms)
	return math.Max(0.0, math.Min(1.0, (db+60)/50))
}
