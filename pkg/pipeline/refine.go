package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/llm"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
)

// Quality gate windows and limits.
const (
	openingWindowSeconds = 10.0
	endingWindowSeconds  = 12.0
	qcMinDurationSeconds = 30.0
	maxRecutShiftSeconds = 3.0
	// packagingMinTranscript skips packaging for near-empty transcripts.
	packagingMinTranscript = 50
	// fallbackOpeningWords approximates 10 seconds of speech when word
	// timing is missing (~2.5 words per second).
	fallbackOpeningWords = 25
)

// RiskFlagWeakOpening marks clips that failed opening validation but
// were kept anyway.
const RiskFlagWeakOpening = "weak_opening"

// handleLLMRefine is the editorial stage: polish hook/caption, validate
// openings, run final QC with recutting, and generate packaging. QC may
// drop unfixable clips; everything else degrades to keeping the original
// data when a model call fails.
func (o *Orchestrator) handleLLMRefine(ctx context.Context, payload json.RawMessage) error {
	p, err := decodePayload(payload)
	if err != nil {
		return err
	}
	video, err := o.beginStage(ctx, p.VideoID, models.PhaseLLMRefining, progressRefine)
	if err != nil || video == nil {
		return err
	}

	clips, err := o.clips.ListByVideo(ctx, video.ID, models.ClipShortlisted)
	if err != nil {
		return err
	}
	if len(clips) == 0 {
		o.logger.Warn("No shortlisted clips to refine", "video_id", video.ID)
		return o.finish(ctx, video.ID)
	}

	if err := o.refineClips(ctx, clips); err != nil {
		return err
	}
	o.validateOpenings(ctx, clips)
	clips = o.runFinalQC(ctx, video.ID, clips)
	o.packageClips(ctx, clips)

	for _, clip := range clips {
		if err := o.clips.Save(ctx, clip); err != nil {
			return err
		}
	}

	o.logger.Info("Refine stage complete", "video_id", video.ID, "clips", len(clips))

	if len(clips) == 0 {
		return o.finish(ctx, video.ID)
	}
	if _, err := o.jobs.Enqueue(ctx, QueueRender, HandlerRender, StagePayload{VideoID: video.ID}); err != nil {
		return fmt.Errorf("failed to enqueue render: %w", err)
	}
	return nil
}

// refineClips polishes hook text and captions. A transport or parse
// error here is retryable; partial results only update matched clips.
func (o *Orchestrator) refineClips(ctx context.Context, clips []*models.Clip) error {
	inputs := make([]llm.RefineInput, len(clips))
	for i, c := range clips {
		text := c.TranscriptPass2
		if text == "" {
			text = c.TranscriptPass1
		}
		inputs[i] = llm.RefineInput{
			ID:        c.ID,
			Start:     c.Start,
			End:       c.End,
			Text:      text,
			RiskFlags: c.RiskFlags,
			Keywords:  c.Keywords,
		}
	}

	results, err := o.llm.Refine(ctx, inputs)
	if err != nil {
		return fmt.Errorf("refine failed: %w", err)
	}

	for _, c := range clips {
		r, ok := results[c.ID]
		if !ok {
			continue
		}
		if r.HookText != "" {
			c.HookText = r.HookText
		}
		if r.Caption != "" {
			c.Caption = r.Caption
		}
		if r.RiskFlags != nil {
			c.RiskFlags = r.RiskFlags
		}
		if len(r.Keywords) > 0 {
			c.Keywords = r.Keywords
		}
	}
	return nil
}

// validateOpenings flags clips whose first seconds fail to hook. A
// failed validation call defaults to pass; clips under the QC minimum
// are skipped entirely.
func (o *Orchestrator) validateOpenings(ctx context.Context, clips []*models.Clip) {
	for _, c := range clips {
		if c.Duration() < qcMinDurationSeconds {
			continue
		}
		result, err := o.llm.ValidateOpening(ctx, o.openingText(c), c.Duration())
		if err != nil {
			o.logger.Warn("Opening validation failed, keeping clip",
				"clip_id", c.ID, "error", err)
			continue
		}
		if !result.Pass {
			o.logger.Warn("Weak opening flagged",
				"clip_id", c.ID, "opening_type", result.OpeningType, "reason", result.Reason)
			if !c.HasRiskFlag(RiskFlagWeakOpening) {
				c.RiskFlags = append(c.RiskFlags, RiskFlagWeakOpening)
			}
		}
	}
}

// runFinalQC evaluates opening and ending of each clip and applies the
// recut plan. Dropped clips are deleted; a failed call keeps the clip
// unchanged.
func (o *Orchestrator) runFinalQC(ctx context.Context, videoID string, clips []*models.Clip) []*models.Clip {
	passed := make([]*models.Clip, 0, len(clips))
	for _, c := range clips {
		if c.Duration() < qcMinDurationSeconds {
			passed = append(passed, c)
			continue
		}

		result, err := o.llm.FinalQC(ctx, c.ID, c.Duration(), o.openingText(c), o.endingText(c))
		if err != nil {
			o.logger.Warn("Final QC failed, keeping clip", "clip_id", c.ID, "error", err)
			passed = append(passed, c)
			continue
		}

		switch result.RecutPlan.Action {
		case llm.RecutActionDrop:
			o.logger.Warn("Clip dropped by final QC",
				"clip_id", c.ID, "notes", result.RecutPlan.Notes)
			if err := o.clips.Delete(ctx, c.ID); err != nil {
				o.logger.Error("Failed to delete dropped clip", "clip_id", c.ID, "error", err)
			}
			continue
		case llm.RecutActionShiftStart, llm.RecutActionShiftEnd, llm.RecutActionShiftBoth:
			applyRecut(c, result.RecutPlan)
		}
		passed = append(passed, c)
	}
	if len(passed) != len(clips) {
		o.logger.Info("Final QC dropped clips",
			"video_id", videoID, "before", len(clips), "after", len(passed))
	}
	return passed
}

// applyRecut shifts the clip boundaries per the QC plan. Shifts are
// clamped to the allowed window and the result must keep a valid
// duration and non-negative start, otherwise the plan is ignored. The
// applied start shift accumulates into TimingOffset so subtitles stay
// aligned.
func applyRecut(c *models.Clip, plan llm.RecutPlan) bool {
	shiftStart := clampShift(plan.ShiftStartBySec)
	shiftEnd := clampShift(plan.ShiftEndBySec)

	newStart := c.Start + shiftStart
	newEnd := c.End + shiftEnd
	if newEnd-newStart < qcMinDurationSeconds || newStart < 0 {
		return false
	}

	c.Start = newStart
	c.End = newEnd
	c.TimingOffset += shiftStart
	c.WasRecut = true
	return true
}

func clampShift(v float64) float64 {
	if v < -maxRecutShiftSeconds {
		return -maxRecutShiftSeconds
	}
	if v > maxRecutShiftSeconds {
		return maxRecutShiftSeconds
	}
	return v
}

// packageClips generates title/caption/hashtags from the transcript.
// Clips with too little transcript are skipped; a failed call keeps the
// existing editorial data.
func (o *Orchestrator) packageClips(ctx context.Context, clips []*models.Clip) {
	for _, c := range clips {
		transcript := c.TranscriptPass2
		if len([]rune(transcript)) < packagingMinTranscript {
			o.logger.Warn("Packaging skipped, transcript too short", "clip_id", c.ID)
			continue
		}
		result, err := o.llm.Package(ctx, c.ID, c.Duration(), transcript)
		if err != nil {
			o.logger.Warn("Packaging failed, keeping editorial data",
				"clip_id", c.ID, "error", err)
			continue
		}
		c.KeySentence = result.KeySentence
		if result.Title != "" {
			c.HookText = result.Title
		}
		if result.Caption != "" {
			c.Caption = result.Caption
		}
		c.Hashtags = result.Hashtags
		c.PackagingConfidence = result.Confidence
	}
}

// openingText extracts the first seconds of speech from word timing,
// falling back to the leading words of the transcript.
func (o *Orchestrator) openingText(c *models.Clip) string {
	var words []string
	for _, w := range c.Words {
		if w.End <= openingWindowSeconds {
			words = append(words, w.Word)
		}
	}
	if len(words) > 0 {
		return strings.Join(words, " ")
	}
	fields := strings.Fields(c.TranscriptPass2)
	if len(fields) > fallbackOpeningWords {
		fields = fields[:fallbackOpeningWords]
	}
	return strings.Join(fields, " ")
}

// endingText extracts the final seconds of speech from word timing,
// falling back to the transcript tail.
func (o *Orchestrator) endingText(c *models.Clip) string {
	endingStart := c.Duration() - endingWindowSeconds
	if endingStart < 0 {
		endingStart = 0
	}
	var words []string
	for _, w := range c.Words {
		if w.Start >= endingStart {
			words = append(words, w.Word)
		}
	}
	if len(words) > 0 {
		return strings.Join(words, " ")
	}
	runes := []rune(c.TranscriptPass2)
	if len(runes) > 150 {
		runes = runes[len(runes)-150:]
	}
	return string(runes)
}
