package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
)

// SynthesizeSRT builds karaoke-style subtitles: one uppercase word per
// cue. startShift is the total movement of the clip's start since the
// word timings were captured (recuts and snapping, minus the render
// padding); every cue time is rebased by it and clamped at zero.
// Returns "" when there are no words.
func SynthesizeSRT(words []models.WordTiming, startShift float64) string {
	if len(words) == 0 {
		return ""
	}

	sorted := make([]models.WordTiming, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var b strings.Builder
	for i, w := range sorted {
		text := strings.ToUpper(strings.TrimSpace(w.Word))
		if text == "" {
			continue
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1,
			formatSRTTime(w.Start-startShift),
			formatSRTTime(w.End-startShift),
			text)
	}
	return b.String()
}

// formatSRTTime renders seconds as HH:MM:SS,mmm, clamping negatives to zero.
func formatSRTTime(t float64) string {
	if t < 0 {
		t = 0
	}
	d := time.Duration(t * float64(time.Second))
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	ms := int(d.Milliseconds()) % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
