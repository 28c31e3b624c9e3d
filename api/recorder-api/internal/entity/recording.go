package internal_entity

import (
	"sort"
	"strings"
	"time"

	internal_type "github.com/murmurai/api/recorder-api/internal/type"
)

// Recording is one continuous capture session. Deleting a recording cascades
// to its segments. Duration is the running sum of measured segment durations
// and never decreases.
type Recording struct {
	Id        string    `json:"id" gorm:"type:string;size:36;primaryKey"`
	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime;index"`
	Duration  float64   `json:"duration" gorm:"not null;default:0"`

	// FilePath keeps the most recent segment's audio path. Legacy field kept
	// for compatibility with earlier single-file recordings.
	FilePath string `json:"filePath" gorm:"type:string;size:512"`

	Title       *string  `json:"title" gorm:"type:string;size:255"`
	Summary     *string  `json:"summary" gorm:"type:text"`
	ActionItems []string `json:"actionItems" gorm:"serializer:json"`
	Keywords    []string `json:"keywords" gorm:"serializer:json"`

	Segments []*TranscriptionSegment `json:"segments" gorm:"foreignKey:RecordingId;constraint:OnDelete:CASCADE"`
}

// TranscriptionSegment is one bounded audio chunk of a recording. Each
// segment keeps its own audio artifact so it can be replayed or retried
// independently; storage cleanup may later blank FilePath once the segment
// is completed.
type TranscriptionSegment struct {
	Id          string    `json:"id" gorm:"type:string;size:36;primaryKey"`
	CreatedAt   time.Time `json:"createdAt" gorm:"autoCreateTime"`
	RecordingId string    `json:"recordingId" gorm:"type:string;size:36;not null;index"`

	Text   string                      `json:"text" gorm:"type:text"`
	Status internal_type.SegmentStatus `json:"status" gorm:"type:string;size:20;not null;default:pending"`

	// StartOffset is the segment's start in seconds relative to the
	// recording's start. It is the authoritative ordering key; completion
	// order is meaningless.
	StartOffset float64 `json:"startOffset" gorm:"not null"`

	Duration float64 `json:"duration" gorm:"not null;default:0"`
	FilePath string  `json:"filePath" gorm:"type:string;size:512"`

	// FailureReason holds the human-readable terminal error for display.
	FailureReason string `json:"failureReason" gorm:"type:text"`
}

// SortedSegments returns the segments ordered by ascending start offset.
func (r *Recording) SortedSegments() []*TranscriptionSegment {
	sorted := make([]*TranscriptionSegment, len(r.Segments))
	copy(sorted, r.Segments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartOffset < sorted[j].StartOffset
	})
	return sorted
}

// FullTranscript joins the text of completed segments with single spaces,
// ordered by start offset. Segments in any other status contribute nothing.
func (r *Recording) FullTranscript() string {
	var parts []string
	for _, seg := range r.SortedSegments() {
		if seg.Status == internal_type.StatusCompleted {
			parts = append(parts, seg.Text)
		}
	}
	return strings.Join(parts, " ")
}
