// Copyright (c) 2025-2026 MurmurAI
//
// Licensed under GPL-2.0 with Murmur Additional Terms.
// See LICENSE.md for details.
package internal_transcription

import (
	"errors"
	"fmt"
)

// FailureKind is the closed taxonomy of transcription failures. Only
// rate-limited and server-error are retryable; no-connectivity is a
// pre-flight condition that parks the segment as queued without consuming a
// retry attempt.
type FailureKind string

const (
	FailureNoConnectivity      FailureKind = "no_connectivity"
	FailureRateLimited         FailureKind = "rate_limited"
	FailureServerError         FailureKind = "server_error"
	FailureMalformedResponse   FailureKind = "malformed_response"
	FailureClientError         FailureKind = "client_error"
	FailureFallbackUnavailable FailureKind = "fallback_unavailable"
	FailureLocalRecognition    FailureKind = "local_recognition"
)

// TranscriptionError carries the failure kind plus the human-readable
// message preserved for display on the segment.
type TranscriptionError struct {
	Kind    FailureKind
	Message string
	Err     error
}

func (e *TranscriptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the worker's backoff loop may try again.
func (e *TranscriptionError) Retryable() bool {
	return e.Kind == FailureRateLimited || e.Kind == FailureServerError
}

func newError(kind FailureKind, message string, err error) *TranscriptionError {
	return &TranscriptionError{Kind: kind, Message: message, Err: err}
}

// AsTranscriptionError unwraps err into the taxonomy; unknown errors map to
// a non-retryable local-recognition failure so nothing loops forever on a
// surprise.
func AsTranscriptionError(err error) *TranscriptionError {
	var terr *TranscriptionError
	if errors.As(err, &terr) {
		return terr
	}
	return newError(FailureLocalRecognition, err.Error(), err)
}
