package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/llm"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
)

func TestApplyRecut(t *testing.T) {
	clip := &models.Clip{Start: 100, End: 160}

	applied := applyRecut(clip, llm.RecutPlan{
		Action:          llm.RecutActionShiftBoth,
		ShiftStartBySec: 2.0,
		ShiftEndBySec:   -1.0,
	})

	assert.True(t, applied)
	assert.Equal(t, 102.0, clip.Start)
	assert.Equal(t, 159.0, clip.End)
	assert.Equal(t, 2.0, clip.TimingOffset)
	assert.True(t, clip.WasRecut)
}

func TestApplyRecut_ClampsShifts(t *testing.T) {
	clip := &models.Clip{Start: 100, End: 160}

	applyRecut(clip, llm.RecutPlan{
		Action:          llm.RecutActionShiftStart,
		ShiftStartBySec: 10.0,
	})

	assert.Equal(t, 103.0, clip.Start)
	assert.Equal(t, 3.0, clip.TimingOffset)
}

func TestApplyRecut_RejectsTooShortResult(t *testing.T) {
	clip := &models.Clip{Start: 100, End: 131}

	applied := applyRecut(clip, llm.RecutPlan{
		Action:          llm.RecutActionShiftBoth,
		ShiftStartBySec: 2.0,
		ShiftEndBySec:   -2.0,
	})

	assert.False(t, applied)
	assert.Equal(t, 100.0, clip.Start)
	assert.Equal(t, 131.0, clip.End)
	assert.False(t, clip.WasRecut)
}

func TestApplyRecut_RejectsNegativeStart(t *testing.T) {
	clip := &models.Clip{Start: 1, End: 60}

	applied := applyRecut(clip, llm.RecutPlan{
		Action:          llm.RecutActionShiftStart,
		ShiftStartBySec: -3.0,
	})

	assert.False(t, applied)
	assert.Equal(t, 1.0, clip.Start)
}

func TestApplyRecut_AccumulatesTimingOffset(t *testing.T) {
	clip := &models.Clip{Start: 100, End: 160, TimingOffset: 1.5}

	applyRecut(clip, llm.RecutPlan{
		Action:          llm.RecutActionShiftStart,
		ShiftStartBySec: 1.0,
	})

	assert.Equal(t, 2.5, clip.TimingOffset)
}

func TestOpeningAndEndingText(t *testing.T) {
	o := &Orchestrator{}
	clip := &models.Clip{
		Start: 0,
		End:   60,
		Words: []models.WordTiming{
			{Word: "opening", Start: 1, End: 2},
			{Word: "words", Start: 3, End: 4},
			{Word: "middle", Start: 25, End: 26},
			{Word: "closing", Start: 50, End: 51},
			{Word: "words", Start: 52, End: 53},
		},
	}

	assert.Equal(t, "opening words", o.openingText(clip))
	assert.Equal(t, "closing words", o.endingText(clip))
}

func TestOpeningText_TranscriptFallback(t *testing.T) {
	o := &Orchestrator{}
	clip := &models.Clip{
		Start:           0,
		End:             60,
		TranscriptPass2: "one two three four five",
	}
	assert.Equal(t, "one two three four five", o.openingText(clip))
}
