package speech

import (
	"strings"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
)

// TextForWindow extracts the transcript covering one candidate window.
// A segment contributes when it overlaps the window at all, so text at
// the edges is included rather than cut mid-sentence.
func TextForWindow(segments []Segment, start, end float64) string {
	var parts []string
	for _, seg := range segments {
		if seg.End >= start && seg.Start <= end {
			if t := strings.TrimSpace(seg.Text); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, " ")
}

// WordsForClip extracts the transcript and word timings covering one
// clip. Word timestamps are rebased to clip-relative seconds so the
// subtitle stage can use them directly against the rendered file.
func WordsForClip(segments []Segment, start, end float64) (string, []models.WordTiming) {
	var parts []string
	var words []models.WordTiming

	for _, seg := range segments {
		if seg.End < start || seg.Start > end {
			continue
		}
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
		for _, w := range seg.Words {
			// Overlap, not strict inclusion: words straddling the clip
			// boundary still belong to the clip, with their rebased times
			// clamped to the clip's timeline.
			if w.End > start && w.Start < end {
				words = append(words, models.WordTiming{
					Word:  w.Word,
					Start: max(w.Start-start, 0),
					End:   max(w.End-start, 0),
				})
			}
		}
	}
	return strings.Join(parts, " "), words
}
