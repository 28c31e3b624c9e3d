// Copyright (c) 2025-2026 MurmurAI
//
// Licensed under GPL-2.0 with Murmur Additional Terms.
// See LICENSE.md for details.
package internal_type

// SegmentStatus is the closed set of transcription-segment states.
//
// Transitions: pending → processing → {completed | failed | queued};
// queued → processing → {completed | failed}. Nothing leaves completed or
// failed short of deleting the row. A segment only becomes queued when no
// remote attempt could even start (no connectivity) — a remote call that was
// attempted and lost is failed, never queued.
type SegmentStatus string

const (
	StatusPending    SegmentStatus = "pending"
	StatusProcessing SegmentStatus = "processing"
	StatusCompleted  SegmentStatus = "completed"
	StatusFailed     SegmentStatus = "failed"
	StatusQueued     SegmentStatus = "queued"
)

// Terminal reports whether no further automatic transition occurs.
func (s SegmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// RecorderState is the derived state of a recording session.
type RecorderState string

const (
	RecorderIdle        RecorderState = "idle"
	RecorderRecording   RecorderState = "recording"
	RecorderPaused      RecorderState = "paused"
	RecorderInterrupted RecorderState = "interrupted"
)
