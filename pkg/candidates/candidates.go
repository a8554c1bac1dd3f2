// Package candidates generates clip candidate windows from video structure:
// creator chapters when present, speech blocks from silence detection
// otherwise, and fixed intervals as a last resort.
package candidates

import (
	"sort"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
)

// Window is one candidate clip window in absolute video seconds.
type Window struct {
	Start      float64
	End        float64
	Strategy   models.Strategy
	SourceInfo string
}

// Interval is a half-open time range in seconds, used for silence and
// speech blocks.
type Interval struct {
	Start float64
	End   float64
}

// Params controls window generation. MinSeconds/MaxSeconds come from the
// channel's clip length policy; the rest from process config.
type Params struct {
	MinSeconds   float64
	MaxSeconds   float64
	ShiftSeconds float64
	Limit        int
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// FromChapters creates shifted candidate windows inside each chapter.
// Windows are clamped to the chapter and video bounds and dropped when
// shorter than MinSeconds.
func FromChapters(duration float64, chapters []models.Chapter, p Params) []Window {
	var out []Window

	for _, ch := range chapters {
		s, e := ch.Start, ch.End
		if e <= s {
			continue
		}
		chapterLen := e - s
		win := clamp(chapterLen, p.MinSeconds, p.MaxSeconds)

		for offset := 0.0; offset < chapterLen; offset += p.ShiftSeconds {
			start := s + offset
			end := start + win
			if end > e {
				end = e
				start = s
				if e-win > s {
					start = e - win
				}
			}
			start = clamp(start, 0, duration)
			end = clamp(end, 0, duration)

			if end-start >= p.MinSeconds {
				out = append(out, Window{
					Start:      start,
					End:        end,
					Strategy:   models.StrategyChapter,
					SourceInfo: ch.Title,
				})
			}
		}
	}

	return truncate(out, p.Limit)
}

// SpeechBlocks derives speech blocks as the complement of the detected
// silence intervals. Gaps shorter than one second are ignored; with no
// silences at all the whole video is a single block.
func SpeechBlocks(silences []Interval, duration float64) []Interval {
	sorted := make([]Interval, len(silences))
	copy(sorted, silences)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var blocks []Interval
	cur := 0.0
	for _, s := range sorted {
		if s.Start > cur+1.0 {
			blocks = append(blocks, Interval{Start: cur, End: s.Start})
		}
		if s.End > cur {
			cur = s.End
		}
	}
	if cur < duration-1.0 {
		blocks = append(blocks, Interval{Start: cur, End: duration})
	}
	return blocks
}

// FromSpeechBlocks slides candidate windows through each speech block
// long enough to hold a minimum-length clip.
func FromSpeechBlocks(blocks []Interval, p Params) []Window {
	var out []Window

	for _, b := range blocks {
		blockLen := b.End - b.Start
		if blockLen < p.MinSeconds {
			continue
		}
		win := clamp(blockLen, p.MinSeconds, p.MaxSeconds)

		for t := b.Start; t+p.MinSeconds <= b.End; t += p.ShiftSeconds {
			end := t + win
			if end > b.End {
				end = b.End
			}
			if end-t >= p.MinSeconds {
				out = append(out, Window{
					Start:    t,
					End:      end,
					Strategy: models.StrategySilence,
				})
			}
		}
	}

	return truncate(out, p.Limit)
}

// FromFixedIntervals generates windows at fixed shifts across the whole
// video. Used when chapters are missing and silence detection fails.
func FromFixedIntervals(duration float64, p Params) []Window {
	var out []Window

	for t := 0.0; t+p.MinSeconds < duration; t += p.ShiftSeconds {
		end := t + p.MaxSeconds
		if end > duration {
			end = duration
		}
		if end-t >= p.MinSeconds {
			out = append(out, Window{
				Start:    t,
				End:      end,
				Strategy: models.StrategyFixedInterval,
			})
		}
	}

	return truncate(out, p.Limit)
}

// Generate picks the strategy and produces candidate windows:
// chapters when present, otherwise speech blocks from the silence scan,
// otherwise fixed intervals. silenceOK reports whether the silence scan
// completed; a failed scan skips straight to fixed intervals.
func Generate(duration float64, chapters []models.Chapter, silences []Interval, silenceOK bool, p Params) ([]Window, models.Strategy) {
	if len(chapters) > 0 {
		return FromChapters(duration, chapters, p), models.StrategyChapter
	}

	if silenceOK {
		if windows := FromSpeechBlocks(SpeechBlocks(silences, duration), p); len(windows) > 0 {
			return windows, models.StrategySilence
		}
	}

	return FromFixedIntervals(duration, p), models.StrategyFixedInterval
}

func truncate(windows []Window, limit int) []Window {
	if limit > 0 && len(windows) > limit {
		return windows[:limit]
	}
	return windows
}
