package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
)

func TestSynthesizeSRT(t *testing.T) {
	words := []models.WordTiming{
		{Word: "dunia", Start: 2.0, End: 2.5},
		{Word: " halo ", Start: 1.5, End: 2.0},
	}

	srt := SynthesizeSRT(words, 0)

	entries := strings.Split(strings.TrimSpace(srt), "\n\n")
	require.Len(t, entries, 2)
	assert.Equal(t, "1\n00:00:01,500 --> 00:00:02,000\nHALO", entries[0])
	assert.Equal(t, "2\n00:00:02,000 --> 00:00:02,500\nDUNIA", entries[1])
}

func TestSynthesizeSRT_StartShiftRebasesCues(t *testing.T) {
	words := []models.WordTiming{{Word: "word", Start: 5.0, End: 5.5}}

	// Start moved 2s later in the rendered file minus 1.5s padding:
	// effective shift +0.5 pulls cues 0.5s earlier.
	srt := SynthesizeSRT(words, 0.5)
	assert.Contains(t, srt, "00:00:04,500 --> 00:00:05,000")

	// Negative shift (padding only) pushes cues later.
	srt = SynthesizeSRT(words, -1.5)
	assert.Contains(t, srt, "00:00:06,500 --> 00:00:07,000")
}

func TestSynthesizeSRT_ClampsNegativeTimes(t *testing.T) {
	words := []models.WordTiming{{Word: "early", Start: 0.2, End: 0.6}}
	srt := SynthesizeSRT(words, 1.0)
	assert.Contains(t, srt, "00:00:00,000 -->")
}

func TestSynthesizeSRT_Empty(t *testing.T) {
	assert.Equal(t, "", SynthesizeSRT(nil, 0))
}

func TestFormatSRTTime(t *testing.T) {
	assert.Equal(t, "00:00:00,000", formatSRTTime(0))
	assert.Equal(t, "00:01:05,250", formatSRTTime(65.25))
	assert.Equal(t, "01:00:00,000", formatSRTTime(3600))
	assert.Equal(t, "00:00:00,000", formatSRTTime(-3))
}
