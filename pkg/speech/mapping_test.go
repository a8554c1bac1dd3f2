package speech

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
)

func testSegments() []Segment {
	return []Segment{
		{Text: " first segment ", Start: 0, End: 10},
		{Text: "second segment", Start: 10, End: 20, Words: []models.WordTiming{
			{Word: "second", Start: 10.5, End: 11.0},
			{Word: "segment", Start: 11.2, End: 12.0},
		}},
		{Text: "third segment", Start: 20, End: 30, Words: []models.WordTiming{
			{Word: "third", Start: 20.1, End: 20.8},
			{Word: "segment", Start: 21.0, End: 21.9},
		}},
		{Text: "far away", Start: 100, End: 110},
	}
}

func TestTextForWindow(t *testing.T) {
	text := TextForWindow(testSegments(), 5, 25)
	assert.Equal(t, "first segment second segment third segment", text)
}

func TestTextForWindow_EdgeTouchIncluded(t *testing.T) {
	// Segment ending exactly at the window start still contributes.
	text := TextForWindow(testSegments(), 10, 15)
	assert.Equal(t, "first segment second segment", text)
}

func TestTextForWindow_NoOverlap(t *testing.T) {
	assert.Equal(t, "", TextForWindow(testSegments(), 40, 60))
}

func TestWordsForClip_RelativeTimes(t *testing.T) {
	text, words := WordsForClip(testSegments(), 10, 22)

	assert.Equal(t, "first segment second segment third segment", text)
	require.Len(t, words, 4)
	assert.Equal(t, models.WordTiming{Word: "second", Start: 0.5, End: 1.0}, words[0])
	assert.Equal(t, models.WordTiming{Word: "third", Start: 10.1, End: 10.8}, words[2])
}

func TestWordsForClip_BoundaryWordClamped(t *testing.T) {
	segments := []Segment{
		{Text: "edge", Start: 0, End: 20, Words: []models.WordTiming{
			{Word: "before", Start: 8.0, End: 9.9},
			{Word: "straddle", Start: 9.4, End: 10.6},
			{Word: "inside", Start: 11.0, End: 12.0},
			{Word: "after", Start: 30.0, End: 31.0},
		}},
	}

	// The straddling word starts before the clip; its rebased start must
	// not go negative.
	_, words := WordsForClip(segments, 10, 25)
	require.Len(t, words, 2)
	assert.Equal(t, "straddle", words[0].Word)
	assert.Zero(t, words[0].Start)
	assert.InDelta(t, 0.6, words[0].End, 1e-9)
	assert.Equal(t, "inside", words[1].Word)
	assert.InDelta(t, 1.0, words[1].Start, 1e-9)
}

func TestWordsForClip_NoWords(t *testing.T) {
	text, words := WordsForClip(testSegments(), 0, 5)
	assert.Equal(t, "first segment", text)
	assert.Empty(t, words)
}
