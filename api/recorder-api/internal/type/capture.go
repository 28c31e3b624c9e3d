// Copyright (c) 2025-2026 MurmurAI
//
// Licensed under GPL-2.0 with Murmur Additional Terms.
// See LICENSE.md for details.
package internal_type

import (
	"context"
	"time"
)

// CaptureEventKind tags the events a capture engine emits.
type CaptureEventKind int

const (
	// CaptureSegmentFinished carries a finished, playable segment file.
	CaptureSegmentFinished CaptureEventKind = iota
	// CaptureLevelUpdate carries a normalized 0.0–1.0 input level reading.
	CaptureLevelUpdate
	// CaptureInterrupted signals the engine paused itself because of an
	// external condition (device loss, I/O failure). Reason is human-readable.
	CaptureInterrupted
	// CaptureResumed signals recovery from an interruption.
	CaptureResumed
	// CaptureStopped signals the session ended. It is enqueued after the
	// session's final segment-finished event, so consumers observing it have
	// already seen every boundary.
	CaptureStopped
)

// FinishedSegment describes one bounded audio chunk the engine completed.
// StartOffset is the session-relative start of THIS segment, not of the next
// one.
type FinishedSegment struct {
	FilePath    string
	Duration    time.Duration
	StartOffset time.Duration
}

// CaptureEvent is the tagged message type flowing from the capture engine to
// its consumer. Exactly the fields matching Kind are populated.
type CaptureEvent struct {
	Kind    CaptureEventKind
	Segment *FinishedSegment
	Level   float64
	Reason  string
}

// CaptureEngine turns the live microphone into one playable mono PCM file
// per segment plus a continuous level signal. Events are delivered on a
// buffered channel and may arrive from a non-UI goroutine; consumers must
// not block the channel for long.
type CaptureEngine interface {
	// Start begins capturing a new segment of the given length. It fails
	// when the input device cannot be acquired or the segment file cannot
	// be created.
	Start(ctx context.Context, segmentDuration time.Duration) error

	// Pause finalizes the in-flight partial segment (a segment-finished
	// event is emitted with the measured partial duration) and releases the
	// input stream. Resume after Pause starts a fresh segment file.
	Pause() error

	// Resume re-acquires the input and starts a new segment.
	Resume(ctx context.Context) error

	// Stop finalizes whatever segment is in progress, emitting one final
	// segment-finished event followed by a stopped event before returning.
	Stop() error

	// Events returns the engine's event stream.
	Events() <-chan CaptureEvent

	// Close releases the audio subsystem. The engine is unusable afterwards.
	Close() error
}
