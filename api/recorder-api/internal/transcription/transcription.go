// Copyright (c) 2025-2026 MurmurAI
//
// Licensed under GPL-2.0 with Murmur Additional Terms.
// See LICENSE.md for details.
package internal_transcription

import (
	"context"

	internal_type "github.com/murmurai/api/recorder-api/internal/type"
)

// Transcriber converts one audio file into raw text. Implementations return
// *TranscriptionError so the worker can classify retryability.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (string, error)
}

// Recognizer is the opaque on-device fallback capability tried once after
// all remote retries are exhausted.
type Recognizer interface {
	Available() bool
	Recognize(ctx context.Context, audioPath string) (string, error)
}

// Connectivity gates whether a remote attempt may even begin. Online is a
// bounded probe, not a cached flag.
type Connectivity interface {
	Online(ctx context.Context) bool
}

// Outcome is the single terminal report the worker produces per submitted
// segment: completed text, a failure with its preserved reason, or queued
// when no attempt could start.
type Outcome struct {
	SegmentId     string
	Status        internal_type.SegmentStatus
	Text          string
	FailureKind   FailureKind
	FailureReason string
}
