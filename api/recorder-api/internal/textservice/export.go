// Copyright (c) 2025-2026 MurmurAI
//
// Licensed under GPL-2.0 with Murmur Additional Terms.
// See LICENSE.md for details.
package internal_textservice

import (
	"fmt"
	"strings"

	internal_entity "github.com/murmurai/api/recorder-api/internal/entity"
	"github.com/murmurai/pkg/utils"
)

// ExportText renders a recording as plain text for sharing.
func ExportText(recording *internal_entity.Recording) string {
	var b strings.Builder
	b.WriteString(exportTitle(recording) + "\n")
	b.WriteString(recording.CreatedAt.Format("January 2, 2006 at 3:04 PM") + "\n")
	b.WriteString(fmt.Sprintf("Duration: %s\n", formatDuration(recording.Duration)))
	if len(recording.Keywords) > 0 {
		b.WriteString("Keywords: " + strings.Join(recording.Keywords, ", ") + "\n")
	}
	b.WriteString("\n")

	if recording.Summary != nil && !utils.IsEmpty(*recording.Summary) {
		b.WriteString("Summary\n" + *recording.Summary + "\n\n")
	}
	if len(recording.ActionItems) > 0 {
		b.WriteString("Action Items\n")
		for _, item := range recording.ActionItems {
			b.WriteString("- " + item + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Transcript\n" + recording.FullTranscript() + "\n")
	return b.String()
}

// ExportMarkdown renders a recording as a markdown document.
func ExportMarkdown(recording *internal_entity.Recording) string {
	var b strings.Builder
	b.WriteString("# " + exportTitle(recording) + "\n\n")
	b.WriteString(fmt.Sprintf("*%s · %s*\n\n",
		recording.CreatedAt.Format("January 2, 2006 at 3:04 PM"),
		formatDuration(recording.Duration)))

	if recording.Summary != nil && !utils.IsEmpty(*recording.Summary) {
		b.WriteString("## Summary\n\n" + *recording.Summary + "\n\n")
	}
	if len(recording.ActionItems) > 0 {
		b.WriteString("## Action Items\n\n")
		for _, item := range recording.ActionItems {
			b.WriteString("- [ ] " + item + "\n")
		}
		b.WriteString("\n")
	}
	if len(recording.Keywords) > 0 {
		b.WriteString("## Keywords\n\n" + strings.Join(recording.Keywords, ", ") + "\n\n")
	}
	b.WriteString("## Transcript\n\n" + recording.FullTranscript() + "\n")
	return b.String()
}

func exportTitle(recording *internal_entity.Recording) string {
	if recording.Title != nil && !utils.IsEmpty(*recording.Title) {
		return *recording.Title
	}
	return defaultTitle
}

func formatDuration(seconds float64) string {
	total := int(seconds)
	if total >= 3600 {
		return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
	}
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
