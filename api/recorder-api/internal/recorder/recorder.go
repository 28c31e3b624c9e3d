// Copyright (c) 2025-2026 MurmurAI
//
// Licensed under GPL-2.0 with Murmur Additional Terms.
// See LICENSE.md for details.
package internal_recorder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	internal_assembler "github.com/murmurai/api/recorder-api/internal/assembler"
	internal_transcription "github.com/murmurai/api/recorder-api/internal/transcription"
	internal_type "github.com/murmurai/api/recorder-api/internal/type"
	"github.com/murmurai/pkg/commons"
)

// Submitter dispatches one finished segment file for transcription.
type Submitter interface {
	Submit(ctx context.Context, segmentId, audioPath string, onOutcome func(internal_transcription.Outcome))
}

// Recorder drives a recording session over the capture engine's event
// stream. Segment boundaries are persisted and dispatched immediately while
// the next segment is already recording, so a long session is transcribed as
// it happens rather than at the end.
type Recorder struct {
	logger    commons.Logger
	engine    internal_type.CaptureEngine
	assembler *internal_assembler.Assembler
	worker    Submitter

	segmentDuration time.Duration

	mu          sync.Mutex
	state       internal_type.RecorderState
	recordingID string
	level       float64
	index       int
	stopDone    chan struct{}

	loopDone chan struct{}
}

// NewRecorder wires the event loop immediately; it runs until the engine's
// event channel closes.
func NewRecorder(
	logger commons.Logger,
	engine internal_type.CaptureEngine,
	assembler *internal_assembler.Assembler,
	worker Submitter,
	segmentDuration time.Duration,
) *Recorder {
	r := &Recorder{
		logger:          logger,
		engine:          engine,
		assembler:       assembler,
		worker:          worker,
		segmentDuration: segmentDuration,
		state:           internal_type.RecorderIdle,
		loopDone:        make(chan struct{}),
	}
	go r.eventLoop()
	return r
}

// Start opens a new recording session and returns its recording id.
func (r *Recorder) Start(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.state != internal_type.RecorderIdle {
		state := r.state
		r.mu.Unlock()
		return "", fmt.Errorf("cannot start while %s", state)
	}
	recordingID := uuid.New().String()
	r.recordingID = recordingID
	r.state = internal_type.RecorderRecording
	r.index = 0
	r.mu.Unlock()

	if err := r.engine.Start(ctx, r.segmentDuration); err != nil {
		r.mu.Lock()
		r.recordingID = ""
		r.state = internal_type.RecorderIdle
		r.mu.Unlock()
		return "", err
	}
	r.logger.Infof("recorder: session started, recording=%s", recordingID)
	return recordingID, nil
}

// Pause suspends capture. The in-flight partial segment is finalized and
// dispatched like any other.
func (r *Recorder) Pause() error {
	r.mu.Lock()
	if r.state != internal_type.RecorderRecording {
		state := r.state
		r.mu.Unlock()
		return fmt.Errorf("cannot pause while %s", state)
	}
	r.state = internal_type.RecorderPaused
	r.mu.Unlock()
	return r.engine.Pause()
}

// Resume continues a paused or interrupted session with a fresh segment.
func (r *Recorder) Resume(ctx context.Context) error {
	r.mu.Lock()
	if r.state != internal_type.RecorderPaused && r.state != internal_type.RecorderInterrupted {
		state := r.state
		r.mu.Unlock()
		return fmt.Errorf("cannot resume while %s", state)
	}
	r.mu.Unlock()

	if err := r.engine.Resume(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	r.state = internal_type.RecorderRecording
	r.mu.Unlock()
	return nil
}

// Stop ends the session. It returns once the final segment boundary has
// been persisted and the post-session digest kicked off, so the caller can
// immediately read a consistent recording.
func (r *Recorder) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.state == internal_type.RecorderIdle {
		r.mu.Unlock()
		return fmt.Errorf("no session in progress")
	}
	done := make(chan struct{})
	r.stopDone = done
	r.mu.Unlock()

	if err := r.engine.Stop(); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the session state.
func (r *Recorder) State() internal_type.RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Level returns the latest normalized input level.
func (r *Recorder) Level() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.level
}

// RecordingID returns the active session's recording id, empty when idle.
func (r *Recorder) RecordingID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recordingID
}

// Wait blocks until the event loop exits (the engine closed).
func (r *Recorder) Wait() {
	<-r.loopDone
}

func (r *Recorder) eventLoop() {
	defer close(r.loopDone)
	for event := range r.engine.Events() {
		switch event.Kind {
		case internal_type.CaptureSegmentFinished:
			r.handleSegment(event.Segment)
		case internal_type.CaptureLevelUpdate:
			r.mu.Lock()
			r.level = event.Level
			r.mu.Unlock()
		case internal_type.CaptureInterrupted:
			r.mu.Lock()
			r.state = internal_type.RecorderInterrupted
			r.mu.Unlock()
			r.logger.Warnf("recorder: session interrupted: %s", event.Reason)
		case internal_type.CaptureResumed:
			r.logger.Info("recorder: session resumed")
		case internal_type.CaptureStopped:
			r.handleStopped()
		}
	}
}

// handleSegment persists the boundary and hands the file to the worker. The
// outcome callback runs on the worker's goroutine later.
func (r *Recorder) handleSegment(finished *internal_type.FinishedSegment) {
	r.mu.Lock()
	recordingID := r.recordingID
	r.index++
	index := r.index
	r.mu.Unlock()
	if recordingID == "" {
		r.logger.Warnf("recorder: dropping segment %s without an active session", finished.FilePath)
		return
	}

	ctx := context.Background()
	segment, err := r.assembler.SegmentFinished(ctx, recordingID, *finished)
	if err != nil {
		r.logger.Errorf("recorder: failed to persist segment %d of recording %s: %v", index, recordingID, err)
		return
	}
	r.logger.Debugf("recorder: segment %d finished, offset=%.1fs, duration=%.1fs",
		index, finished.StartOffset.Seconds(), finished.Duration.Seconds())

	r.worker.Submit(ctx, segment.Id, segment.FilePath, func(outcome internal_transcription.Outcome) {
		if err := r.assembler.SegmentResolved(context.Background(), recordingID, outcome); err != nil {
			r.logger.Warnf("recorder: outcome for segment %s not applied: %v", outcome.SegmentId, err)
		}
	})
}

// handleStopped closes out the session. By channel ordering every boundary
// of the session has already been persisted.
func (r *Recorder) handleStopped() {
	r.mu.Lock()
	recordingID := r.recordingID
	done := r.stopDone
	r.recordingID = ""
	r.state = internal_type.RecorderIdle
	r.stopDone = nil
	r.level = 0
	r.mu.Unlock()

	if recordingID != "" {
		if err := r.assembler.SessionStopped(context.Background(), recordingID); err != nil {
			r.logger.Warnf("recorder: post-session digest failed for recording %s: %v", recordingID, err)
		}
		r.logger.Infof("recorder: session finished, recording=%s", recordingID)
	}
	if done != nil {
		close(done)
	}
}
