// Copyright (c) 2025-2026 MurmurAI
//
// Licensed under GPL-2.0 with Murmur Additional Terms.
// See LICENSE.md for details.
package internal_store

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	internal_entity "github.com/murmurai/api/recorder-api/internal/entity"
	internal_type "github.com/murmurai/api/recorder-api/internal/type"
	"github.com/murmurai/pkg/commons"
	"github.com/murmurai/pkg/connectors"
)

// Store provides operations over recordings and their transcription
// segments.
//
// Segment rows transition pending/processing → completed/failed/queued and
// queued → processing → completed/failed. Terminal rows are never
// transitioned again: transcription completions arrive asynchronously and
// can race a reconciliation pass, so every status write is guarded by the
// row's current status instead of trusting the caller's snapshot.
type Store interface {
	// CreateRecording inserts a recording, generating its id when empty.
	CreateRecording(ctx context.Context, rec *internal_entity.Recording) error

	// SaveRecording persists all mutated fields of an existing recording.
	SaveRecording(ctx context.Context, rec *internal_entity.Recording) error

	// GetRecording loads a recording with its segments.
	GetRecording(ctx context.Context, recordingID string) (*internal_entity.Recording, error)

	// ListRecordings returns all recordings, newest first, segments loaded.
	ListRecordings(ctx context.Context) ([]*internal_entity.Recording, error)

	// SearchRecordings returns recordings owning at least one segment whose
	// text matches the query, case-insensitively. An empty query lists all.
	SearchRecordings(ctx context.Context, query string) ([]*internal_entity.Recording, error)

	// CreateSegment inserts a segment, generating its id when empty.
	CreateSegment(ctx context.Context, seg *internal_entity.TranscriptionSegment) error

	// GetSegment loads one segment.
	GetSegment(ctx context.Context, segmentID string) (*internal_entity.TranscriptionSegment, error)

	// MarkSegmentProcessing transitions a segment to processing. It only
	// succeeds from a non-terminal status.
	MarkSegmentProcessing(ctx context.Context, segmentID string) error

	// ResolveSegment writes a terminal-or-queued outcome. Terminal rows are
	// left untouched; the write is status-guarded.
	ResolveSegment(ctx context.Context, segmentID string, status internal_type.SegmentStatus, text, failureReason string) error

	// QueuedSegments returns every segment with status queued.
	QueuedSegments(ctx context.Context) ([]*internal_entity.TranscriptionSegment, error)

	// DeleteRecording removes a recording and cascades to its segments.
	DeleteRecording(ctx context.Context, recordingID string) error

	// DeleteAllRecordings removes every recording and segment.
	DeleteAllRecordings(ctx context.Context) error

	// CleanupProcessedAudio deletes the audio files of completed segments
	// and blanks their file paths, leaving the rows (and text) intact.
	// Returns the number of files removed.
	CleanupProcessedAudio(ctx context.Context) (int, error)
}

type sqliteStore struct {
	sqlite connectors.SqliteConnector
	logger commons.Logger
}

// NewStore creates the recording store and migrates its schema.
func NewStore(sqlite connectors.SqliteConnector, logger commons.Logger) (Store, error) {
	if err := sqlite.Migrate(&internal_entity.Recording{}, &internal_entity.TranscriptionSegment{}); err != nil {
		return nil, err
	}
	return &sqliteStore{sqlite: sqlite, logger: logger}, nil
}

func (s *sqliteStore) CreateRecording(ctx context.Context, rec *internal_entity.Recording) error {
	if rec.Id == "" {
		rec.Id = uuid.New().String()
	}
	db := s.sqlite.DB(ctx)
	if err := db.Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create recording %s: %w", rec.Id, err)
	}
	s.logger.Infof("created recording: id=%s", rec.Id)
	return nil
}

func (s *sqliteStore) SaveRecording(ctx context.Context, rec *internal_entity.Recording) error {
	db := s.sqlite.DB(ctx)
	if err := db.Omit("Segments").Save(rec).Error; err != nil {
		return fmt.Errorf("failed to save recording %s: %w", rec.Id, err)
	}
	return nil
}

func (s *sqliteStore) GetRecording(ctx context.Context, recordingID string) (*internal_entity.Recording, error) {
	db := s.sqlite.DB(ctx)
	var rec internal_entity.Recording
	if err := db.Preload("Segments").Where("id = ?", recordingID).First(&rec).Error; err != nil {
		return nil, fmt.Errorf("recording not found: %s: %w", recordingID, err)
	}
	return &rec, nil
}

func (s *sqliteStore) ListRecordings(ctx context.Context) ([]*internal_entity.Recording, error) {
	db := s.sqlite.DB(ctx)
	var recs []*internal_entity.Recording
	if err := db.Preload("Segments").Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}
	return recs, nil
}

func (s *sqliteStore) SearchRecordings(ctx context.Context, query string) ([]*internal_entity.Recording, error) {
	if query == "" {
		return s.ListRecordings(ctx)
	}
	db := s.sqlite.DB(ctx)
	var ids []string
	if err := db.Model(&internal_entity.TranscriptionSegment{}).
		Distinct("recording_id").
		Where("text LIKE ?", "%"+query+"%").
		Pluck("recording_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("segment search failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var recs []*internal_entity.Recording
	if err := db.Preload("Segments").Where("id IN ?", ids).Order("created_at DESC").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to load matched recordings: %w", err)
	}
	return recs, nil
}

func (s *sqliteStore) CreateSegment(ctx context.Context, seg *internal_entity.TranscriptionSegment) error {
	if seg.Id == "" {
		seg.Id = uuid.New().String()
	}
	if seg.Status == "" {
		seg.Status = internal_type.StatusPending
	}
	db := s.sqlite.DB(ctx)
	if err := db.Create(seg).Error; err != nil {
		return fmt.Errorf("failed to create segment %s: %w", seg.Id, err)
	}
	s.logger.Debugf("created segment: id=%s, recording=%s, offset=%.1fs, status=%s",
		seg.Id, seg.RecordingId, seg.StartOffset, seg.Status)
	return nil
}

func (s *sqliteStore) GetSegment(ctx context.Context, segmentID string) (*internal_entity.TranscriptionSegment, error) {
	db := s.sqlite.DB(ctx)
	var seg internal_entity.TranscriptionSegment
	if err := db.Where("id = ?", segmentID).First(&seg).Error; err != nil {
		return nil, fmt.Errorf("segment not found: %s: %w", segmentID, err)
	}
	return &seg, nil
}

func (s *sqliteStore) MarkSegmentProcessing(ctx context.Context, segmentID string) error {
	db := s.sqlite.DB(ctx)
	result := db.Model(&internal_entity.TranscriptionSegment{}).
		Where("id = ? AND status IN ?", segmentID, []string{
			string(internal_type.StatusPending),
			string(internal_type.StatusProcessing),
			string(internal_type.StatusQueued),
		}).
		Update("status", internal_type.StatusProcessing)
	if result.Error != nil {
		return fmt.Errorf("failed to mark segment %s processing: %w", segmentID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("segment %s is terminal or missing", segmentID)
	}
	return nil
}

func (s *sqliteStore) ResolveSegment(ctx context.Context, segmentID string, status internal_type.SegmentStatus, text, failureReason string) error {
	db := s.sqlite.DB(ctx)
	result := db.Model(&internal_entity.TranscriptionSegment{}).
		Where("id = ? AND status NOT IN ?", segmentID, []string{
			string(internal_type.StatusCompleted),
			string(internal_type.StatusFailed),
		}).
		Updates(map[string]interface{}{
			"status":         status,
			"text":           text,
			"failure_reason": failureReason,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to resolve segment %s: %w", segmentID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("segment %s already terminal or missing", segmentID)
	}
	s.logger.Debugf("resolved segment: id=%s, status=%s", segmentID, status)
	return nil
}

func (s *sqliteStore) QueuedSegments(ctx context.Context) ([]*internal_entity.TranscriptionSegment, error) {
	db := s.sqlite.DB(ctx)
	var segs []*internal_entity.TranscriptionSegment
	if err := db.Where("status = ?", internal_type.StatusQueued).Find(&segs).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch queued segments: %w", err)
	}
	return segs, nil
}

func (s *sqliteStore) DeleteRecording(ctx context.Context, recordingID string) error {
	db := s.sqlite.DB(ctx)
	if err := db.Where("recording_id = ?", recordingID).
		Delete(&internal_entity.TranscriptionSegment{}).Error; err != nil {
		return fmt.Errorf("failed to delete segments of recording %s: %w", recordingID, err)
	}
	if err := db.Where("id = ?", recordingID).
		Delete(&internal_entity.Recording{}).Error; err != nil {
		return fmt.Errorf("failed to delete recording %s: %w", recordingID, err)
	}
	s.logger.Infof("deleted recording: id=%s", recordingID)
	return nil
}

func (s *sqliteStore) DeleteAllRecordings(ctx context.Context) error {
	db := s.sqlite.DB(ctx)
	if err := db.Where("1 = 1").Delete(&internal_entity.TranscriptionSegment{}).Error; err != nil {
		return fmt.Errorf("failed to clear segments: %w", err)
	}
	if err := db.Where("1 = 1").Delete(&internal_entity.Recording{}).Error; err != nil {
		return fmt.Errorf("failed to clear recordings: %w", err)
	}
	s.logger.Info("cleared all recordings")
	return nil
}

func (s *sqliteStore) CleanupProcessedAudio(ctx context.Context) (int, error) {
	db := s.sqlite.DB(ctx)
	var segs []*internal_entity.TranscriptionSegment
	if err := db.Where("status = ? AND file_path <> ''", internal_type.StatusCompleted).
		Find(&segs).Error; err != nil {
		return 0, fmt.Errorf("failed to fetch cleanable segments: %w", err)
	}

	removed := 0
	for _, seg := range segs {
		if err := os.Remove(seg.FilePath); err != nil && !os.IsNotExist(err) {
			s.logger.Warnf("cleanup failed for %s: %v", seg.FilePath, err)
			continue
		}
		if err := db.Model(seg).Update("file_path", "").Error; err != nil {
			return removed, fmt.Errorf("failed to blank file path on segment %s: %w", seg.Id, err)
		}
		removed++
	}
	if removed > 0 {
		s.logger.Infof("storage cleanup removed %d segment audio files", removed)
	}
	return removed, nil
}
