package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
)

func TestSnapAndClean_TrimsLeadingFillers(t *testing.T) {
	clip := &models.Clip{
		Start: 100.0,
		End:   160.0,
		Words: []models.WordTiming{
			{Word: "Eee,", Start: 0.0, End: 0.4},
			{Word: "jadi", Start: 0.5, End: 0.9},
			{Word: "investasi", Start: 1.2, End: 1.9},
			{Word: "itu", Start: 2.0, End: 2.3},
			{Word: "penting", Start: 55.0, End: 55.8},
		},
	}

	changed := SnapAndClean(clip)

	assert.True(t, changed)
	assert.InDelta(t, 101.2, clip.Start, 1e-9)
	assert.InDelta(t, 155.8, clip.End, 1e-9)
	assert.InDelta(t, 1.2, clip.TimingOffset, 1e-9)
}

func TestSnapAndClean_AllowedShortWords(t *testing.T) {
	clip := &models.Clip{
		Start: 10.0,
		End:   70.0,
		Words: []models.WordTiming{
			{Word: "di", Start: 0.3, End: 0.5},
			{Word: "sini", Start: 0.6, End: 1.0},
			{Word: "akhir", Start: 50.0, End: 50.5},
		},
	}

	SnapAndClean(clip)
	assert.InDelta(t, 10.3, clip.Start, 1e-9)
}

func TestSnapAndClean_NoWordTiming(t *testing.T) {
	clip := &models.Clip{Start: 10, End: 70}
	assert.False(t, SnapAndClean(clip))
	assert.Equal(t, 10.0, clip.Start)
	assert.Equal(t, 70.0, clip.End)
}

func TestSnapAndClean_RejectsTooShortResult(t *testing.T) {
	clip := &models.Clip{
		Start: 10.0,
		End:   70.0,
		Words: []models.WordTiming{
			{Word: "short", Start: 0.0, End: 0.5},
			{Word: "burst", Start: 3.0, End: 3.8},
		},
	}

	changed := SnapAndClean(clip)

	assert.False(t, changed)
	assert.Equal(t, 10.0, clip.Start)
	assert.Equal(t, 70.0, clip.End)
	assert.Equal(t, 0.0, clip.TimingOffset)
}

func TestSnapAndClean_AllFillersKeepsStart(t *testing.T) {
	clip := &models.Clip{
		Start: 10.0,
		End:   70.0,
		Words: []models.WordTiming{
			{Word: "hmm", Start: 0.5, End: 0.9},
			{Word: "jadi", Start: 1.0, End: 1.4},
			{Word: "oke", Start: 40.0, End: 40.4},
		},
	}

	SnapAndClean(clip)

	// No non-filler word found: start stays, end still snaps.
	assert.Equal(t, 10.0, clip.Start)
	assert.InDelta(t, 50.4, clip.End, 1e-9)
	assert.Equal(t, 0.0, clip.TimingOffset)
}

func TestNormalizeWord(t *testing.T) {
	assert.Equal(t, "jadi", normalizeWord(" Jadi, "))
	assert.Equal(t, "dont", normalizeWord("Don't!"))
	assert.Equal(t, "", normalizeWord("123..."))
}
