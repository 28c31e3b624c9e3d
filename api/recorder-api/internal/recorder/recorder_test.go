package internal_recorder

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internal_assembler "github.com/murmurai/api/recorder-api/internal/assembler"
	internal_store "github.com/murmurai/api/recorder-api/internal/store"
	internal_textservice "github.com/murmurai/api/recorder-api/internal/textservice"
	internal_transcription "github.com/murmurai/api/recorder-api/internal/transcription"
	internal_type "github.com/murmurai/api/recorder-api/internal/type"
	"github.com/murmurai/pkg/commons"
	"github.com/murmurai/pkg/connectors"
)

func newTestLogger() commons.Logger {
	l, _ := commons.NewApplicationLogger()
	return l
}

// fakeEngine is a scriptable capture engine: tests push events; Stop emits
// the optional final partial segment followed by the stopped event, matching
// the real engine's ordering contract.
type fakeEngine struct {
	mu          sync.Mutex
	events      chan internal_type.CaptureEvent
	startCalls  int
	pauseCalls  int
	resumeCalls int
	stopCalls   int
	final       *internal_type.FinishedSegment
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{events: make(chan internal_type.CaptureEvent, 64)}
}

func (e *fakeEngine) Start(ctx context.Context, segmentDuration time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startCalls++
	return nil
}

func (e *fakeEngine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pauseCalls++
	return nil
}

func (e *fakeEngine) Resume(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resumeCalls++
	e.events <- internal_type.CaptureEvent{Kind: internal_type.CaptureResumed}
	return nil
}

func (e *fakeEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopCalls++
	if e.final != nil {
		e.events <- internal_type.CaptureEvent{Kind: internal_type.CaptureSegmentFinished, Segment: e.final}
		e.final = nil
	}
	e.events <- internal_type.CaptureEvent{Kind: internal_type.CaptureStopped}
	return nil
}

func (e *fakeEngine) Events() <-chan internal_type.CaptureEvent { return e.events }

func (e *fakeEngine) Close() error {
	close(e.events)
	return nil
}

func (e *fakeEngine) emitSegment(offset, duration float64, path string) {
	e.events <- internal_type.CaptureEvent{
		Kind: internal_type.CaptureSegmentFinished,
		Segment: &internal_type.FinishedSegment{
			FilePath:    path,
			Duration:    time.Duration(duration * float64(time.Second)),
			StartOffset: time.Duration(offset * float64(time.Second)),
		},
	}
}

func (e *fakeEngine) setFinal(offset, duration float64, path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.final = &internal_type.FinishedSegment{
		FilePath:    path,
		Duration:    time.Duration(duration * float64(time.Second)),
		StartOffset: time.Duration(offset * float64(time.Second)),
	}
}

// fakeSubmitter completes every segment with text derived from its file
// name.
type fakeSubmitter struct{}

func (fakeSubmitter) Submit(ctx context.Context, segmentId, audioPath string, onOutcome func(internal_transcription.Outcome)) {
	go onOutcome(internal_transcription.Outcome{
		SegmentId: segmentId,
		Status:    internal_type.StatusCompleted,
		Text:      strings.TrimSuffix(filepath.Base(audioPath), ".wav"),
	})
}

type noopTextService struct{}

func (noopTextService) GenerateTitle(ctx context.Context, transcript string) string { return "title" }
func (noopTextService) Summarize(ctx context.Context, transcript string) internal_textservice.Summary {
	return internal_textservice.Summary{Overview: "overview"}
}
func (noopTextService) Keywords(ctx context.Context, transcript string) []string { return nil }
func (noopTextService) Answer(ctx context.Context, transcript, question string) string {
	return question
}
func (noopTextService) Translate(ctx context.Context, text, targetLanguage string) string {
	return text
}

func newTestRecorder(t *testing.T) (*Recorder, *fakeEngine, internal_store.Store) {
	t.Helper()
	logger := newTestLogger()
	sqlite, err := connectors.NewSqliteConnector(logger, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)

	store, err := internal_store.NewStore(sqlite, logger)
	require.NoError(t, err)

	assembler := internal_assembler.NewAssembler(logger, store, noopTextService{})
	engine := newFakeEngine()
	recorder := NewRecorder(logger, engine, assembler, fakeSubmitter{}, 20*time.Second)
	t.Cleanup(func() {
		engine.Close()
		recorder.Wait()
		sqlite.Close()
	})
	return recorder, engine, store
}

// --- Session Lifecycle Tests ---

func TestSession_SegmentsAreDispatchedBackToBack(t *testing.T) {
	recorder, engine, store := newTestRecorder(t)
	ctx := context.Background()

	recordingID, err := recorder.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, internal_type.RecorderRecording, recorder.State())
	assert.Equal(t, recordingID, recorder.RecordingID())

	// 45 seconds of capture with 20-second segments: two full boundaries
	// during the session, a 5-second partial at stop.
	engine.emitSegment(0, 20, "/tmp/a.wav")
	engine.emitSegment(20, 20, "/tmp/b.wav")
	engine.setFinal(40, 5, "/tmp/c.wav")

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, recorder.Stop(stopCtx))
	assert.Equal(t, internal_type.RecorderIdle, recorder.State())
	assert.Empty(t, recorder.RecordingID())

	rec, err := store.GetRecording(ctx, recordingID)
	require.NoError(t, err)
	require.Len(t, rec.Segments, 3)
	assert.InDelta(t, 45.0, rec.Duration, 0.001)

	sorted := rec.SortedSegments()
	assert.InDelta(t, 0.0, sorted[0].StartOffset, 0.001)
	assert.InDelta(t, 20.0, sorted[1].StartOffset, 0.001)
	assert.InDelta(t, 40.0, sorted[2].StartOffset, 0.001)
	assert.InDelta(t, 5.0, sorted[2].Duration, 0.001)

	// outcomes land asynchronously
	require.Eventually(t, func() bool {
		rec, err := store.GetRecording(ctx, recordingID)
		return err == nil && rec.FullTranscript() == "a b c"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSession_StopWithoutStartFails(t *testing.T) {
	recorder, _, _ := newTestRecorder(t)
	assert.Error(t, recorder.Stop(context.Background()))
}

func TestSession_DoubleStartFails(t *testing.T) {
	recorder, engine, _ := newTestRecorder(t)
	ctx := context.Background()

	_, err := recorder.Start(ctx)
	require.NoError(t, err)
	_, err = recorder.Start(ctx)
	assert.Error(t, err)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, recorder.Stop(stopCtx))
	assert.Equal(t, 1, engine.startCalls)
}

// --- Pause and Resume Tests ---

func TestSession_PauseAndResume(t *testing.T) {
	recorder, engine, _ := newTestRecorder(t)
	ctx := context.Background()

	_, err := recorder.Start(ctx)
	require.NoError(t, err)

	require.NoError(t, recorder.Pause())
	assert.Equal(t, internal_type.RecorderPaused, recorder.State())
	assert.Equal(t, 1, engine.pauseCalls)
	assert.Error(t, recorder.Pause())

	require.NoError(t, recorder.Resume(ctx))
	assert.Equal(t, internal_type.RecorderRecording, recorder.State())
	assert.Equal(t, 1, engine.resumeCalls)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, recorder.Stop(stopCtx))
}

// --- Interruption Tests ---

func TestSession_InterruptionThenResume(t *testing.T) {
	recorder, engine, _ := newTestRecorder(t)
	ctx := context.Background()

	_, err := recorder.Start(ctx)
	require.NoError(t, err)

	engine.events <- internal_type.CaptureEvent{
		Kind:   internal_type.CaptureInterrupted,
		Reason: "audio input interrupted: device lost",
	}
	require.Eventually(t, func() bool {
		return recorder.State() == internal_type.RecorderInterrupted
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, recorder.Resume(ctx))
	assert.Equal(t, internal_type.RecorderRecording, recorder.State())

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, recorder.Stop(stopCtx))
}

// --- Level Tests ---

func TestSession_LevelUpdatesAreObservable(t *testing.T) {
	recorder, engine, _ := newTestRecorder(t)
	ctx := context.Background()

	_, err := recorder.Start(ctx)
	require.NoError(t, err)

	engine.events <- internal_type.CaptureEvent{Kind: internal_type.CaptureLevelUpdate, Level: 0.7}
	require.Eventually(t, func() bool {
		return recorder.Level() == 0.7
	}, 2*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, recorder.Stop(stopCtx))
	assert.Equal(t, 0.0, recorder.Level())
}
