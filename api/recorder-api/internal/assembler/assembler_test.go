package internal_assembler

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

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

type fakeTextService struct {
	mu         sync.Mutex
	title      string
	titleCalls int
	summary    internal_textservice.Summary
	keywords   []string
}

func (f *fakeTextService) GenerateTitle(ctx context.Context, transcript string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titleCalls++
	return f.title
}

func (f *fakeTextService) titleCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.titleCalls
}

func (f *fakeTextService) Summarize(ctx context.Context, transcript string) internal_textservice.Summary {
	return f.summary
}

func (f *fakeTextService) Keywords(ctx context.Context, transcript string) []string {
	return f.keywords
}

func (f *fakeTextService) Answer(ctx context.Context, transcript, question string) string {
	return "answered: " + question
}

func (f *fakeTextService) Translate(ctx context.Context, text, targetLanguage string) string {
	return "[" + targetLanguage + "] " + text
}

func newTestAssembler(t *testing.T, text internal_textservice.TextService) (*Assembler, internal_store.Store) {
	t.Helper()
	logger := newTestLogger()
	sqlite, err := connectors.NewSqliteConnector(logger, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	store, err := internal_store.NewStore(sqlite, logger)
	require.NoError(t, err)
	return NewAssembler(logger, store, text), store
}

func finished(offset, duration float64) internal_type.FinishedSegment {
	return internal_type.FinishedSegment{
		FilePath:    fmt.Sprintf("/tmp/seg-%.0f.wav", offset),
		Duration:    time.Duration(duration * float64(time.Second)),
		StartOffset: time.Duration(offset * float64(time.Second)),
	}
}

func completed(segmentID, text string) internal_transcription.Outcome {
	return internal_transcription.Outcome{
		SegmentId: segmentID,
		Status:    internal_type.StatusCompleted,
		Text:      text,
	}
}

// --- SegmentFinished Tests ---

func TestSegmentFinished_CreatesRecordingAndAccumulatesDuration(t *testing.T) {
	assembler, store := newTestAssembler(t, &fakeTextService{})
	ctx := context.Background()
	recordingID := "rec-1"

	_, err := assembler.SegmentFinished(ctx, recordingID, finished(0, 20))
	require.NoError(t, err)
	_, err = assembler.SegmentFinished(ctx, recordingID, finished(20, 20))
	require.NoError(t, err)
	_, err = assembler.SegmentFinished(ctx, recordingID, finished(40, 5.2))
	require.NoError(t, err)

	rec, err := store.GetRecording(ctx, recordingID)
	require.NoError(t, err)
	require.Len(t, rec.Segments, 3)
	assert.InDelta(t, 45.2, rec.Duration, 0.001)

	var sum float64
	for _, seg := range rec.Segments {
		assert.Equal(t, internal_type.StatusProcessing, seg.Status)
		sum += seg.Duration
	}
	assert.InDelta(t, rec.Duration, sum, 0.001)
}

// --- Transcript Assembly Tests ---

func TestTranscript_FailedSegmentsAreSkipped(t *testing.T) {
	assembler, _ := newTestAssembler(t, &fakeTextService{title: "t"})
	ctx := context.Background()
	recordingID := "rec-1"

	seg1, err := assembler.SegmentFinished(ctx, recordingID, finished(0, 20))
	require.NoError(t, err)
	seg2, err := assembler.SegmentFinished(ctx, recordingID, finished(20, 20))
	require.NoError(t, err)
	seg3, err := assembler.SegmentFinished(ctx, recordingID, finished(40, 20))
	require.NoError(t, err)

	require.NoError(t, assembler.SegmentResolved(ctx, recordingID, completed(seg1.Id, "a")))
	require.NoError(t, assembler.SegmentResolved(ctx, recordingID, internal_transcription.Outcome{
		SegmentId:     seg2.Id,
		Status:        internal_type.StatusFailed,
		FailureKind:   internal_transcription.FailureServerError,
		FailureReason: "transcription server error (status 500)",
	}))
	require.NoError(t, assembler.SegmentResolved(ctx, recordingID, completed(seg3.Id, "c")))

	transcript, err := assembler.Transcript(ctx, recordingID)
	require.NoError(t, err)
	assert.Equal(t, "a c", transcript)
}

func TestTranscript_OrderedByStartOffsetNotCompletionOrder(t *testing.T) {
	assembler, _ := newTestAssembler(t, &fakeTextService{title: "t"})
	ctx := context.Background()
	recordingID := "rec-1"

	seg1, err := assembler.SegmentFinished(ctx, recordingID, finished(0, 20))
	require.NoError(t, err)
	seg2, err := assembler.SegmentFinished(ctx, recordingID, finished(20, 20))
	require.NoError(t, err)

	// the later segment completes first
	require.NoError(t, assembler.SegmentResolved(ctx, recordingID, completed(seg2.Id, "second")))
	require.NoError(t, assembler.SegmentResolved(ctx, recordingID, completed(seg1.Id, "first")))

	transcript, err := assembler.Transcript(ctx, recordingID)
	require.NoError(t, err)
	assert.Equal(t, "first second", transcript)
}

// --- Title Tests ---

func TestSegmentResolved_FirstCompletionTriggersTitleOnce(t *testing.T) {
	text := &fakeTextService{title: "Team Standup"}
	assembler, store := newTestAssembler(t, text)
	ctx := context.Background()
	recordingID := "rec-1"

	seg1, err := assembler.SegmentFinished(ctx, recordingID, finished(0, 20))
	require.NoError(t, err)
	seg2, err := assembler.SegmentFinished(ctx, recordingID, finished(20, 20))
	require.NoError(t, err)

	require.NoError(t, assembler.SegmentResolved(ctx, recordingID, completed(seg1.Id, "hello")))
	require.Eventually(t, func() bool {
		rec, err := store.GetRecording(ctx, recordingID)
		return err == nil && rec.Title != nil
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, assembler.SegmentResolved(ctx, recordingID, completed(seg2.Id, "again")))
	time.Sleep(50 * time.Millisecond)

	rec, err := store.GetRecording(ctx, recordingID)
	require.NoError(t, err)
	require.NotNil(t, rec.Title)
	assert.Equal(t, "Team Standup", *rec.Title)
	assert.Equal(t, 1, text.titleCallCount())
}

// --- SessionStopped Tests ---

func TestSessionStopped_SavesDigest(t *testing.T) {
	text := &fakeTextService{
		title:    "t",
		summary:  internal_textservice.Summary{Overview: "short overview", ActionItems: []string{"send notes"}},
		keywords: []string{"standup", "planning"},
	}
	assembler, store := newTestAssembler(t, text)
	ctx := context.Background()
	recordingID := "rec-1"

	seg, err := assembler.SegmentFinished(ctx, recordingID, finished(0, 20))
	require.NoError(t, err)
	require.NoError(t, assembler.SegmentResolved(ctx, recordingID, completed(seg.Id, "we planned the sprint")))

	require.NoError(t, assembler.SessionStopped(ctx, recordingID))

	rec, err := store.GetRecording(ctx, recordingID)
	require.NoError(t, err)
	require.NotNil(t, rec.Summary)
	assert.Equal(t, "short overview", *rec.Summary)
	assert.Equal(t, []string{"send notes"}, rec.ActionItems)
	assert.Equal(t, []string{"standup", "planning"}, rec.Keywords)
}

func TestSessionStopped_NoCompletedTextIsANoop(t *testing.T) {
	assembler, store := newTestAssembler(t, &fakeTextService{summary: internal_textservice.Summary{Overview: "x"}})
	ctx := context.Background()
	recordingID := "rec-1"

	_, err := assembler.SegmentFinished(ctx, recordingID, finished(0, 20))
	require.NoError(t, err)

	require.NoError(t, assembler.SessionStopped(ctx, recordingID))

	rec, err := store.GetRecording(ctx, recordingID)
	require.NoError(t, err)
	assert.Nil(t, rec.Summary)
}

// --- Q&A and Translation Tests ---

func TestAskAndTranslate_PassThroughTranscript(t *testing.T) {
	assembler, _ := newTestAssembler(t, &fakeTextService{title: "t"})
	ctx := context.Background()
	recordingID := "rec-1"

	seg, err := assembler.SegmentFinished(ctx, recordingID, finished(0, 20))
	require.NoError(t, err)
	require.NoError(t, assembler.SegmentResolved(ctx, recordingID, completed(seg.Id, "hola")))

	answer, err := assembler.Ask(ctx, recordingID, "what was said?")
	require.NoError(t, err)
	assert.Equal(t, "answered: what was said?", answer)

	translated, err := assembler.TranslateTranscript(ctx, recordingID, "en")
	require.NoError(t, err)
	assert.Equal(t, "[en] hola", translated)
}

// --- Export Tests ---

func TestExport_Markdown(t *testing.T) {
	text := &fakeTextService{
		title:    "Team Standup",
		summary:  internal_textservice.Summary{Overview: "short overview", ActionItems: []string{"send notes"}},
		keywords: []string{"standup"},
	}
	assembler, store := newTestAssembler(t, text)
	ctx := context.Background()
	recordingID := "rec-1"

	seg, err := assembler.SegmentFinished(ctx, recordingID, finished(0, 20))
	require.NoError(t, err)
	require.NoError(t, assembler.SegmentResolved(ctx, recordingID, completed(seg.Id, "we planned the sprint")))
	require.Eventually(t, func() bool {
		rec, err := store.GetRecording(ctx, recordingID)
		return err == nil && rec.Title != nil
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, assembler.SessionStopped(ctx, recordingID))

	out, err := assembler.Export(ctx, recordingID, true)
	require.NoError(t, err)
	assert.Contains(t, out, "# Team Standup")
	assert.Contains(t, out, "## Summary")
	assert.Contains(t, out, "- [ ] send notes")
	assert.Contains(t, out, "we planned the sprint")

	plain, err := assembler.Export(ctx, recordingID, false)
	require.NoError(t, err)
	assert.Contains(t, plain, "Team Standup")
	assert.Contains(t, plain, "we planned the sprint")
}
