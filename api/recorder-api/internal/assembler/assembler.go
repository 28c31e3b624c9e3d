// Copyright (c) 2025-2026 MurmurAI
//
// Licensed under GPL-2.0 with Murmur Additional Terms.
// See LICENSE.md for details.
package internal_assembler

import (
	"context"
	"sync"

	internal_entity "github.com/murmurai/api/recorder-api/internal/entity"
	internal_store "github.com/murmurai/api/recorder-api/internal/store"
	internal_textservice "github.com/murmurai/api/recorder-api/internal/textservice"
	internal_transcription "github.com/murmurai/api/recorder-api/internal/transcription"
	internal_type "github.com/murmurai/api/recorder-api/internal/type"
	"github.com/murmurai/pkg/commons"
	"github.com/murmurai/pkg/utils"
)

// Assembler is the single writer for a recording's transcript. Segment
// boundaries and worker outcomes arrive from different goroutines; all of
// them funnel through a per-recording lock so partial updates never
// interleave.
type Assembler struct {
	logger commons.Logger
	store  internal_store.Store
	text   internal_textservice.TextService

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewAssembler(logger commons.Logger, store internal_store.Store, text internal_textservice.TextService) *Assembler {
	return &Assembler{
		logger: logger,
		store:  store,
		text:   text,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (a *Assembler) lockFor(recordingID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	lock, ok := a.locks[recordingID]
	if !ok {
		lock = &sync.Mutex{}
		a.locks[recordingID] = lock
	}
	return lock
}

// SegmentFinished registers a finished capture segment: the recording row is
// created on its first segment, the segment row is inserted as processing,
// and the session duration accumulates by the segment's measured duration.
func (a *Assembler) SegmentFinished(ctx context.Context, recordingID string, finished internal_type.FinishedSegment) (*internal_entity.TranscriptionSegment, error) {
	lock := a.lockFor(recordingID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := a.store.GetRecording(ctx, recordingID)
	if err != nil {
		rec = &internal_entity.Recording{Id: recordingID}
		if err := a.store.CreateRecording(ctx, rec); err != nil {
			return nil, err
		}
	}

	segment := &internal_entity.TranscriptionSegment{
		RecordingId: recordingID,
		Status:      internal_type.StatusProcessing,
		StartOffset: finished.StartOffset.Seconds(),
		Duration:    finished.Duration.Seconds(),
		FilePath:    finished.FilePath,
	}
	if err := a.store.CreateSegment(ctx, segment); err != nil {
		return nil, err
	}

	rec.Duration += finished.Duration.Seconds()
	rec.FilePath = finished.FilePath
	if err := a.store.SaveRecording(ctx, rec); err != nil {
		return nil, err
	}
	return segment, nil
}

// SegmentResolved applies a worker outcome to its segment row. The first
// completed segment of an untitled recording triggers title generation in
// the background.
func (a *Assembler) SegmentResolved(ctx context.Context, recordingID string, outcome internal_transcription.Outcome) error {
	lock := a.lockFor(recordingID)
	lock.Lock()
	defer lock.Unlock()

	if err := a.store.ResolveSegment(ctx, outcome.SegmentId, outcome.Status, outcome.Text, outcome.FailureReason); err != nil {
		a.logger.Warnf("assembler: could not resolve segment %s: %v", outcome.SegmentId, err)
		return err
	}
	if outcome.Status != internal_type.StatusCompleted {
		return nil
	}

	rec, err := a.store.GetRecording(ctx, recordingID)
	if err != nil {
		return err
	}
	if rec.Title == nil {
		go a.generateTitle(recordingID, outcome.Text)
	}
	return nil
}

// generateTitle names the recording after its first completed segment.
// Whichever segment completes first wins; later completions see a title and
// skip.
func (a *Assembler) generateTitle(recordingID, text string) {
	ctx := context.Background()
	title := a.text.GenerateTitle(ctx, text)

	lock := a.lockFor(recordingID)
	lock.Lock()
	defer lock.Unlock()

	rec, err := a.store.GetRecording(ctx, recordingID)
	if err != nil || rec.Title != nil {
		return
	}
	rec.Title = &title
	if err := a.store.SaveRecording(ctx, rec); err != nil {
		a.logger.Warnf("assembler: failed to save title for recording %s: %v", recordingID, err)
	}
}

// SessionStopped runs the post-session digest: summary, action items and
// keywords over whatever transcript text has completed so far. The text
// service calls run outside the recording lock; only the final save holds
// it.
func (a *Assembler) SessionStopped(ctx context.Context, recordingID string) error {
	rec, err := a.store.GetRecording(ctx, recordingID)
	if err != nil {
		return err
	}
	transcript := rec.FullTranscript()
	if utils.IsEmpty(transcript) {
		a.logger.Infof("assembler: recording %s has no completed text yet, skipping digest", recordingID)
		return nil
	}

	summary := a.text.Summarize(ctx, transcript)
	keywords := a.text.Keywords(ctx, transcript)

	lock := a.lockFor(recordingID)
	lock.Lock()
	defer lock.Unlock()

	rec, err = a.store.GetRecording(ctx, recordingID)
	if err != nil {
		return err
	}
	rec.Summary = &summary.Overview
	rec.ActionItems = summary.ActionItems
	rec.Keywords = keywords
	return a.store.SaveRecording(ctx, rec)
}

// Transcript returns the recording's completed text in start-offset order.
func (a *Assembler) Transcript(ctx context.Context, recordingID string) (string, error) {
	rec, err := a.store.GetRecording(ctx, recordingID)
	if err != nil {
		return "", err
	}
	return rec.FullTranscript(), nil
}

// Ask answers a question against the recording's transcript.
func (a *Assembler) Ask(ctx context.Context, recordingID, question string) (string, error) {
	transcript, err := a.Transcript(ctx, recordingID)
	if err != nil {
		return "", err
	}
	return a.text.Answer(ctx, transcript, question), nil
}

// TranslateTranscript renders the transcript in the target language.
func (a *Assembler) TranslateTranscript(ctx context.Context, recordingID, targetLanguage string) (string, error) {
	transcript, err := a.Transcript(ctx, recordingID)
	if err != nil {
		return "", err
	}
	return a.text.Translate(ctx, transcript, targetLanguage), nil
}

// Export renders the recording as plain text or markdown.
func (a *Assembler) Export(ctx context.Context, recordingID string, markdown bool) (string, error) {
	rec, err := a.store.GetRecording(ctx, recordingID)
	if err != nil {
		return "", err
	}
	if markdown {
		return internal_textservice.ExportMarkdown(rec), nil
	}
	return internal_textservice.ExportText(rec), nil
}
