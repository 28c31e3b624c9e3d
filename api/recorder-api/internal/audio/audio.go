// Copyright (c) 2025-2026 MurmurAI
//
// Licensed under GPL-2.0 with Murmur Additional Terms.
// See LICENSE.md for details.
package internal_audio

const (
	AudioBytesPerSample = 2  // LINEAR16 → 2 bytes per sample
	AudioBitsPerSample  = 16 // LINEAR16 → 16 bits per sample
	AudioPCMFormat      = 1  // WAV PCM format tag
)

// Config describes the capture format. 16kHz mono is sufficient for speech
// and keeps segment files small.
type Config struct {
	SampleRate uint32
	Channels   uint16
}

// MURMUR_INTERNAL_AUDIO_CONFIG is the single capture format used across the
// pipeline. Segment files, the remote endpoint and the local fallback all
// expect this format.
var MURMUR_INTERNAL_AUDIO_CONFIG = Config{
	SampleRate: 16000,
	Channels:   1,
}

// BytesPerSecond returns the PCM data rate of the capture format.
func BytesPerSecond() int {
	cfg := MURMUR_INTERNAL_AUDIO_CONFIG
	return int(cfg.SampleRate) * int(cfg.Channels) * AudioBytesPerSample
}
