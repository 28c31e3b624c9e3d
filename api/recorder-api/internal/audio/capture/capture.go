// Copyright (c) 2025-2026 MurmurAI
//
// Licensed under GPL-2.0 with Murmur Additional Terms.
// See LICENSE.md for details.
package internal_capture

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"

	internal_audio "github.com/murmurai/api/recorder-api/internal/audio"
	internal_type "github.com/murmurai/api/recorder-api/internal/type"
	"github.com/murmurai/pkg/commons"
)

const (
	framesPerBuffer = 512
	// level readings are throttled to this cadence; intermediate buffers
	// only contribute to the file.
	levelInterval = 100 * time.Millisecond
)

// ErrInsufficientDiskSpace is returned by Start when the free-space floor is
// not met. No segment file is produced.
var ErrInsufficientDiskSpace = errors.New("insufficient disk space for recording")

// inputStream is the engine's view of an audio input stream. NewEngine binds
// it to portaudio; tests script device behavior through it.
type inputStream interface {
	Start() error
	Stop() error
	Close() error
	Read() error
}

// Engine is the portaudio-backed capture engine. One engine owns the input
// device exclusively; the read loop runs on its own goroutine and never
// performs network I/O.
type Engine struct {
	logger    commons.Logger
	dir       string
	minFreeMB uint64

	openStream func() (inputStream, error)
	terminate  func() error

	mu              sync.Mutex
	stream          inputStream
	buffer          []float32
	writer          *internal_audio.SegmentWriter
	segmentDuration time.Duration
	segmentStart    time.Time
	sessionOffset   time.Duration
	recording       bool
	paused          bool
	active          bool
	closed          bool

	events    chan internal_type.CaptureEvent
	loopDone  chan struct{}
	lastLevel time.Time

	// clock is injectable for testing; defaults to time.Now.
	clock func() time.Time
}

// NewEngine initializes portaudio and prepares an engine writing segment
// files into dir.
func NewEngine(logger commons.Logger, dir string, minFreeMB uint64) (*Engine, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	e := &Engine{
		logger:    logger,
		dir:       dir,
		minFreeMB: minFreeMB,
		buffer:    make([]float32, framesPerBuffer),
		events:    make(chan internal_type.CaptureEvent, 64),
		clock:     time.Now,
		terminate: portaudio.Terminate,
	}
	e.openStream = func() (inputStream, error) {
		cfg := internal_audio.MURMUR_INTERNAL_AUDIO_CONFIG
		stream, err := portaudio.OpenDefaultStream(
			int(cfg.Channels), // input channels
			0,                 // output channels (none)
			float64(cfg.SampleRate),
			framesPerBuffer,
			e.buffer,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to open audio input stream: %w", err)
		}
		return stream, nil
	}
	return e, nil
}

// Events returns the engine's event stream.
func (e *Engine) Events() <-chan internal_type.CaptureEvent {
	return e.events
}

// Start begins capturing a new segment. The free-space floor is enforced
// here so a full disk surfaces before any file is created.
func (e *Engine) Start(ctx context.Context, segmentDuration time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return fmt.Errorf("capture engine is closed")
	}
	if e.recording {
		return fmt.Errorf("capture already running")
	}
	if !internal_audio.HasSufficientDiskSpace(e.dir, e.minFreeMB) {
		return ErrInsufficientDiskSpace
	}

	if e.stream == nil {
		stream, err := e.openStream()
		if err != nil {
			return err
		}
		if err := stream.Start(); err != nil {
			stream.Close()
			return fmt.Errorf("failed to start audio input stream: %w", err)
		}
		e.stream = stream
		e.loopDone = make(chan struct{})
		go e.captureLoop(ctx, e.loopDone)
	}

	if err := e.beginSegmentLocked(segmentDuration); err != nil {
		return err
	}
	e.paused = false
	e.active = true
	return nil
}

// beginSegmentLocked creates the next segment file and arms its boundary.
func (e *Engine) beginSegmentLocked(segmentDuration time.Duration) error {
	path := filepath.Join(e.dir, uuid.New().String()+".wav")
	writer, err := internal_audio.NewSegmentWriter(path)
	if err != nil {
		return err
	}
	e.writer = writer
	e.segmentDuration = segmentDuration
	e.segmentStart = e.clock()
	e.recording = true
	e.logger.Debugf("capture: segment started, file=%s, offset=%.1fs", path, e.sessionOffset.Seconds())
	return nil
}

// finishSegmentLocked closes the current file and emits its boundary event.
// The emitted start offset is the offset of the segment that just finished.
func (e *Engine) finishSegmentLocked() {
	if e.writer == nil {
		return
	}
	duration := e.clock().Sub(e.segmentStart)
	path := e.writer.Path()
	if err := e.writer.Close(); err != nil {
		e.logger.Errorf("capture: failed to finalize segment %s: %v", path, err)
	}
	e.writer = nil
	e.recording = false

	event := internal_type.CaptureEvent{
		Kind: internal_type.CaptureSegmentFinished,
		Segment: &internal_type.FinishedSegment{
			FilePath:    path,
			Duration:    duration,
			StartOffset: e.sessionOffset,
		},
	}
	e.sessionOffset += duration
	e.mu.Unlock()
	e.events <- event
	e.mu.Lock()
}

// captureLoop continuously reads from the input stream, feeding the level
// meter and the segment file. It exits when the engine closes, the stream is
// released, or the context is cancelled; done signals the exit to Stop.
func (e *Engine) captureLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			return
		}
		if e.stream == nil {
			e.mu.Unlock()
			return
		}
		if e.paused {
			e.mu.Unlock()
			time.Sleep(20 * time.Millisecond)
			continue
		}
		stream := e.stream
		e.mu.Unlock()

		if err := stream.Read(); err != nil {
			e.handleReadError(err)
			continue
		}

		samples := make([]float32, len(e.buffer))
		copy(samples, e.buffer)
		e.emitLevel(samples)

		e.mu.Lock()
		if e.recording && e.writer != nil {
			if err := e.writer.Write(samples); err != nil {
				e.logger.Errorf("capture: segment write failed: %v", err)
				e.finishSegmentLocked()
				e.paused = true
				if e.stream != nil {
					e.stream.Stop()
				}
				e.mu.Unlock()
				e.events <- internal_type.CaptureEvent{
					Kind:   internal_type.CaptureInterrupted,
					Reason: fmt.Sprintf("segment write failed: %v", err),
				}
				continue
			}
			if e.clock().Sub(e.segmentStart) >= e.segmentDuration {
				e.finishSegmentLocked()
				// roll straight into the next segment so capture never
				// pauses waiting on downstream work; Pause and Stop may
				// have intervened while the boundary event was delivered.
				if !e.paused && !e.closed && e.stream != nil {
					if err := e.beginSegmentLocked(e.segmentDuration); err != nil {
						e.logger.Errorf("capture: failed to start next segment: %v", err)
						e.paused = true
						e.mu.Unlock()
						e.events <- internal_type.CaptureEvent{
							Kind:   internal_type.CaptureInterrupted,
							Reason: fmt.Sprintf("could not start next segment: %v", err),
						}
						continue
					}
				}
			}
		}
		e.mu.Unlock()
	}
}

// handleReadError routes input-device failures through the same pause path
// as a manual pause, surfaced as a distinct interruption event.
func (e *Engine) handleReadError(err error) {
	e.mu.Lock()
	if e.closed || e.paused || e.stream == nil {
		e.mu.Unlock()
		return
	}
	e.logger.Warnf("capture: input read failed: %v", err)
	if e.recording {
		e.finishSegmentLocked()
	}
	e.paused = true
	if e.stream != nil {
		e.stream.Stop()
	}
	e.mu.Unlock()

	e.events <- internal_type.CaptureEvent{
		Kind:   internal_type.CaptureInterrupted,
		Reason: fmt.Sprintf("audio input interrupted: %v", err),
	}
}

// emitLevel pushes a throttled, non-blocking level reading. Stale readings
// are dropped rather than ever stalling the capture path.
func (e *Engine) emitLevel(samples []float32) {
	now := e.clock()
	e.mu.Lock()
	if now.Sub(e.lastLevel) < levelInterval {
		e.mu.Unlock()
		return
	}
	e.lastLevel = now
	e.mu.Unlock()

	select {
	case e.events <- internal_type.CaptureEvent{
		Kind:  internal_type.CaptureLevelUpdate,
		Level: internal_audio.Level(samples),
	}:
	default:
	}
}

// Pause finalizes the partial segment and releases the input. The partial
// segment's boundary event carries its measured duration, so resume starts
// a fresh file and the offset bookkeeping stays exact.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || e.paused {
		return nil
	}
	if e.recording {
		e.finishSegmentLocked()
	}
	e.paused = true
	if e.stream != nil {
		if err := e.stream.Stop(); err != nil {
			return fmt.Errorf("failed to release audio input: %w", err)
		}
	}
	return nil
}

// Resume re-acquires the input and starts a new segment of the configured
// length.
func (e *Engine) Resume(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return fmt.Errorf("capture engine is closed")
	}
	if !e.paused {
		return fmt.Errorf("capture is not paused")
	}
	if e.stream == nil {
		return fmt.Errorf("no audio input stream to resume")
	}
	if err := e.stream.Start(); err != nil {
		return fmt.Errorf("failed to re-acquire audio input: %w", err)
	}
	if err := e.beginSegmentLocked(e.segmentDuration); err != nil {
		return err
	}
	e.paused = false

	e.mu.Unlock()
	e.events <- internal_type.CaptureEvent{Kind: internal_type.CaptureResumed}
	e.mu.Lock()
	return nil
}

// Stop finalizes the in-progress segment, emits its boundary event followed
// by the stopped event, then releases the input stream and waits for the
// capture goroutine to exit, so a later Start can never race a stale loop
// over the shared read buffer. The session offset resets for the next
// session.
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.recording {
		e.finishSegmentLocked()
	}
	e.paused = false
	e.sessionOffset = 0
	stream := e.stream
	done := e.loopDone
	active := e.active
	e.stream = nil
	e.loopDone = nil
	e.active = false
	e.mu.Unlock()

	if active {
		e.events <- internal_type.CaptureEvent{Kind: internal_type.CaptureStopped}
	}
	if stream == nil {
		return nil
	}
	if err := stream.Stop(); err != nil {
		e.logger.Warnf("capture: stream stop failed: %v", err)
	}
	closeErr := stream.Close()
	// the loop observes the cleared stream and exits; a read blocked on the
	// closed stream fails and takes the same path.
	<-done
	if closeErr != nil {
		return fmt.Errorf("failed to close audio input stream: %w", closeErr)
	}
	return nil
}

// Close stops any session, closes the event stream and terminates the audio
// subsystem.
func (e *Engine) Close() error {
	if err := e.Stop(); err != nil {
		return err
	}
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	close(e.events)
	if e.terminate != nil {
		if err := e.terminate(); err != nil {
			return fmt.Errorf("failed to terminate portaudio: %w", err)
		}
	}
	return nil
}
