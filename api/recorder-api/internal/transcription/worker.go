// Copyright (c) 2025-2026 MurmurAI
//
// Licensed under GPL-2.0 with Murmur Additional Terms.
// See LICENSE.md for details.
package internal_transcription

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/murmurai/api/recorder-api/config"
	internal_type "github.com/murmurai/api/recorder-api/internal/type"
	"github.com/murmurai/pkg/commons"
)

// Worker converts one finished segment file into text or a definitive
// failure. Each submission runs on its own goroutine, so a segment deep in
// backoff never delays the segments behind it.
type Worker struct {
	logger       commons.Logger
	transcriber  Transcriber
	fallback     Recognizer
	connectivity Connectivity
	language     string

	// newBackoff builds the per-submission retry policy; injectable so tests
	// can collapse the delays.
	newBackoff func() backoff.BackOff
}

func NewWorker(
	logger commons.Logger,
	transcriber Transcriber,
	fallback Recognizer,
	connectivity Connectivity,
	cfg config.TranscriptionConfig,
) *Worker {
	maxRetries := cfg.MaxRetries
	maxInterval := cfg.BackoffCap()
	return &Worker{
		logger:       logger,
		transcriber:  transcriber,
		fallback:     fallback,
		connectivity: connectivity,
		language:     cfg.Language,
		newBackoff: func() backoff.BackOff {
			// delay doubles from one second up to the cap, with jitter.
			eb := backoff.NewExponentialBackOff()
			eb.InitialInterval = time.Second
			eb.Multiplier = 2
			eb.RandomizationFactor = 0.25
			eb.MaxInterval = maxInterval
			eb.MaxElapsedTime = 0
			return backoff.WithMaxRetries(eb, maxRetries)
		},
	}
}

// Submit starts transcribing asynchronously. Exactly one Outcome is
// delivered to onOutcome per submission.
func (w *Worker) Submit(ctx context.Context, segmentId, audioPath string, onOutcome func(Outcome)) {
	go func() {
		onOutcome(w.process(ctx, segmentId, audioPath))
	}()
}

// Process runs a submission synchronously; the reconciler uses this to bound
// a resubmission sweep.
func (w *Worker) Process(ctx context.Context, segmentId, audioPath string) Outcome {
	return w.process(ctx, segmentId, audioPath)
}

func (w *Worker) process(ctx context.Context, segmentId, audioPath string) Outcome {
	// The connectivity probe gates the first attempt: with no network the
	// segment parks as queued without consuming a single retry.
	if !w.connectivity.Online(ctx) {
		w.logger.Infof("transcription: no connectivity, queueing segment %s", segmentId)
		return Outcome{
			SegmentId:     segmentId,
			Status:        internal_type.StatusQueued,
			FailureKind:   FailureNoConnectivity,
			FailureReason: "no network connection available",
		}
	}

	text, err := w.transcribeWithRetry(ctx, audioPath)
	if err == nil {
		return Outcome{
			SegmentId: segmentId,
			Status:    internal_type.StatusCompleted,
			Text:      strings.TrimSpace(text),
		}
	}

	terr := AsTranscriptionError(err)
	if !terr.Retryable() {
		// Client errors and malformed responses fail immediately; repeating
		// the identical request cannot change the answer.
		w.logger.Warnf("transcription: segment %s failed terminally: %v", segmentId, terr)
		return Outcome{
			SegmentId:     segmentId,
			Status:        internal_type.StatusFailed,
			FailureKind:   terr.Kind,
			FailureReason: terr.Message,
		}
	}

	return w.runFallback(ctx, segmentId, audioPath, terr)
}

// runFallback tries the on-device recognizer once after remote retries are
// exhausted.
func (w *Worker) runFallback(ctx context.Context, segmentId, audioPath string, remoteErr *TranscriptionError) Outcome {
	if w.fallback == nil || !w.fallback.Available() {
		return Outcome{
			SegmentId:     segmentId,
			Status:        internal_type.StatusFailed,
			FailureKind:   FailureFallbackUnavailable,
			FailureReason: fmt.Sprintf("%s; no fallback recognizer available", remoteErr.Message),
		}
	}

	w.logger.Infof("transcription: remote retries exhausted for segment %s, trying local recognizer", segmentId)
	text, err := w.fallback.Recognize(ctx, audioPath)
	if err != nil {
		ferr := AsTranscriptionError(err)
		return Outcome{
			SegmentId:     segmentId,
			Status:        internal_type.StatusFailed,
			FailureKind:   FailureLocalRecognition,
			FailureReason: ferr.Message,
		}
	}
	return Outcome{
		SegmentId: segmentId,
		Status:    internal_type.StatusCompleted,
		Text:      strings.TrimSpace(text),
	}
}

func (w *Worker) transcribeWithRetry(ctx context.Context, audioPath string) (string, error) {
	operation := func() (string, error) {
		text, err := w.transcriber.Transcribe(ctx, audioPath, w.language)
		if err == nil {
			return text, nil
		}
		if terr := AsTranscriptionError(err); !terr.Retryable() {
			return "", backoff.Permanent(err)
		}
		return "", err
	}
	notify := func(err error, next time.Duration) {
		w.logger.Debugf("transcription: attempt failed (%v), retrying in %s", err, next)
	}
	return backoff.RetryNotifyWithData(operation, backoff.WithContext(w.newBackoff(), ctx), notify)
}
