package pipeline

import (
	"strings"
	"unicode"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
)

// snapMinDurationSeconds rejects snap results that would leave the clip
// too short to stand alone.
const snapMinDurationSeconds = 5.0

// fillerWords are leading words worth cutting, mixed Indonesian/English.
var fillerWords = map[string]bool{
	"eee": true, "ee": true, "hmm": true, "umm": true, "uh": true, "yak": true,
	"so": true, "nah": true, "jadi": true, "okay": true, "oke": true,
	"terus": true, "berarti": true, "actually": true, "like": true,
	"you know": true, "basically": true, "literally": true,
	"anu": true, "ngg": true, "yg": true, "yang": true,
}

// allowedShortWords are one-letter or two-letter words that still count
// as real speech when deciding where a clip starts.
var allowedShortWords = map[string]bool{
	"i": true, "a": true, "di": true, "ke": true,
}

// SnapAndClean tightens the clip boundaries using word timing: the
// start snaps to the first non-filler word and the end snaps to the
// last word, trimming silence tails. The applied start shift
// accumulates into TimingOffset. Clips without word timing, or whose
// snapped duration would fall below the minimum, are left unchanged.
func SnapAndClean(c *models.Clip) bool {
	if len(c.Words) == 0 {
		return false
	}

	origStart := c.Start
	origEnd := c.End

	snapStartRel := 0.0
	for _, w := range c.Words {
		clean := normalizeWord(w.Word)
		if !fillerWords[clean] && (len([]rune(clean)) > 1 || allowedShortWords[clean]) {
			snapStartRel = w.Start
			break
		}
	}
	snapEndRel := c.Words[len(c.Words)-1].End

	newStart := origStart + snapStartRel
	newEnd := origStart + snapEndRel
	if newEnd-newStart < snapMinDurationSeconds {
		return false
	}

	c.Start = newStart
	c.End = newEnd
	c.TimingOffset += newStart - origStart
	return newStart != origStart || newEnd != origEnd
}

// normalizeWord lowercases and strips everything but letters.
func normalizeWord(w string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(w)) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
