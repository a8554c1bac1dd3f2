package media

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/candidates"
)

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*([0-9.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*([0-9.]+)`)
)

// ParseSilence extracts silence intervals from ffmpeg silencedetect
// stderr output. Lines look like:
//
//	[silencedetect @ 0x...] silence_start: 12.345
//	[silencedetect @ 0x...] silence_end: 14.567 | silence_duration: 2.222
//
// An end without a preceding start is ignored.
func ParseSilence(stderr string) []candidates.Interval {
	var silences []candidates.Interval
	var start *float64

	for _, line := range strings.Split(stderr, "\n") {
		if m := silenceStartRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				start = &v
			}
			continue
		}
		if m := silenceEndRe.FindStringSubmatch(line); m != nil && start != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				silences = append(silences, candidates.Interval{Start: *start, End: v})
				start = nil
			}
		}
	}
	return silences
}
