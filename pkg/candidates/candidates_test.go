package candidates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
)

func defaultParams() Params {
	return Params{MinSeconds: 60, MaxSeconds: 120, ShiftSeconds: 15, Limit: 400}
}

func TestFromChapters_WindowsStayInsideChapter(t *testing.T) {
	chapters := []models.Chapter{
		{Title: "Intro", Start: 0, End: 90},
		{Title: "Main", Start: 90, End: 400},
	}

	windows := FromChapters(600, chapters, defaultParams())
	require.NotEmpty(t, windows)

	for _, w := range windows {
		assert.GreaterOrEqual(t, w.End-w.Start, 60.0)
		assert.LessOrEqual(t, w.End-w.Start, 120.0)
		assert.Equal(t, models.StrategyChapter, w.Strategy)
	}

	// The 90s chapter fits exactly one window length: every window from it
	// must stay inside [0, 90].
	for _, w := range windows {
		if w.SourceInfo == "Intro" {
			assert.GreaterOrEqual(t, w.Start, 0.0)
			assert.LessOrEqual(t, w.End, 90.0)
		}
	}
}

func TestFromChapters_SkipsInvertedAndShortChapters(t *testing.T) {
	chapters := []models.Chapter{
		{Title: "bad", Start: 100, End: 100},
		{Title: "inverted", Start: 200, End: 150},
		{Title: "too short", Start: 300, End: 330},
	}

	windows := FromChapters(600, chapters, defaultParams())
	assert.Empty(t, windows)
}

func TestFromChapters_RespectsLimit(t *testing.T) {
	chapters := []models.Chapter{{Title: "long", Start: 0, End: 3000}}
	p := defaultParams()
	p.Limit = 10

	windows := FromChapters(3000, chapters, p)
	assert.Len(t, windows, 10)
}

func TestSpeechBlocks_ComplementOfSilence(t *testing.T) {
	silences := []Interval{
		{Start: 100, End: 105},
		{Start: 300, End: 302},
	}

	blocks := SpeechBlocks(silences, 600)
	require.Len(t, blocks, 3)
	assert.Equal(t, Interval{Start: 0, End: 100}, blocks[0])
	assert.Equal(t, Interval{Start: 105, End: 300}, blocks[1])
	assert.Equal(t, Interval{Start: 302, End: 600}, blocks[2])
}

func TestSpeechBlocks_NoSilenceYieldsWholeVideo(t *testing.T) {
	blocks := SpeechBlocks(nil, 600)
	require.Len(t, blocks, 1)
	assert.Equal(t, Interval{Start: 0, End: 600}, blocks[0])
}

func TestSpeechBlocks_IgnoresSubSecondGaps(t *testing.T) {
	// Silence starting 0.5s after the cursor leaves no usable speech gap.
	silences := []Interval{
		{Start: 0.5, End: 50},
		{Start: 50.2, End: 60},
	}

	blocks := SpeechBlocks(silences, 600)
	require.Len(t, blocks, 1)
	assert.Equal(t, Interval{Start: 60, End: 600}, blocks[0])
}

func TestSpeechBlocks_UnsortedInput(t *testing.T) {
	silences := []Interval{
		{Start: 300, End: 302},
		{Start: 100, End: 105},
	}

	blocks := SpeechBlocks(silences, 600)
	require.Len(t, blocks, 3)
	assert.Equal(t, 0.0, blocks[0].Start)
}

func TestFromSpeechBlocks_SlidesThroughBlock(t *testing.T) {
	blocks := []Interval{{Start: 0, End: 200}}

	windows := FromSpeechBlocks(blocks, defaultParams())
	require.NotEmpty(t, windows)

	for _, w := range windows {
		assert.GreaterOrEqual(t, w.End-w.Start, 60.0)
		assert.LessOrEqual(t, w.End, 200.0)
		assert.Equal(t, models.StrategySilence, w.Strategy)
	}
	// First window starts at the block start; successive starts shift by 15s.
	assert.Equal(t, 0.0, windows[0].Start)
	assert.Equal(t, 15.0, windows[1].Start)
}

func TestFromSpeechBlocks_SkipsShortBlocks(t *testing.T) {
	blocks := []Interval{{Start: 0, End: 45}}
	windows := FromSpeechBlocks(blocks, defaultParams())
	assert.Empty(t, windows)
}

func TestFromFixedIntervals_CoversDuration(t *testing.T) {
	windows := FromFixedIntervals(300, defaultParams())
	require.NotEmpty(t, windows)

	assert.Equal(t, 0.0, windows[0].Start)
	assert.Equal(t, 120.0, windows[0].End)

	for _, w := range windows {
		assert.GreaterOrEqual(t, w.End-w.Start, 60.0)
		assert.LessOrEqual(t, w.End, 300.0)
		assert.Equal(t, models.StrategyFixedInterval, w.Strategy)
	}
}

func TestFromFixedIntervals_TooShortVideo(t *testing.T) {
	windows := FromFixedIntervals(50, defaultParams())
	assert.Empty(t, windows)
}

func TestGenerate_PrefersChapters(t *testing.T) {
	chapters := []models.Chapter{{Title: "c", Start: 0, End: 300}}

	windows, strategy := Generate(600, chapters, nil, true, defaultParams())
	assert.Equal(t, models.StrategyChapter, strategy)
	assert.NotEmpty(t, windows)
}

func TestGenerate_FallsBackToSilence(t *testing.T) {
	silences := []Interval{{Start: 200, End: 210}}

	windows, strategy := Generate(600, nil, silences, true, defaultParams())
	assert.Equal(t, models.StrategySilence, strategy)
	assert.NotEmpty(t, windows)
}

func TestGenerate_FixedIntervalWhenSilenceScanFails(t *testing.T) {
	windows, strategy := Generate(600, nil, nil, false, defaultParams())
	assert.Equal(t, models.StrategyFixedInterval, strategy)
	assert.NotEmpty(t, windows)
}

func TestGenerate_FixedIntervalWhenNoUsableSpeech(t *testing.T) {
	// One long silence swallowing the whole video leaves no speech blocks.
	silences := []Interval{{Start: 0, End: 600}}

	windows, strategy := Generate(600, nil, silences, true, defaultParams())
	assert.Equal(t, models.StrategyFixedInterval, strategy)
	assert.NotEmpty(t, windows)
}
