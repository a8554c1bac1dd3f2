package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/llm"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/scoring"
)

// handleLLMShortlist sends the strongest candidates to the model, fuses
// its viral scores with the heuristic features, applies the diversity
// filter and promotes the survivors to SHORTLISTED. Everything left in
// CANDIDATE is deleted at this boundary.
func (o *Orchestrator) handleLLMShortlist(ctx context.Context, payload json.RawMessage) error {
	p, err := decodePayload(payload)
	if err != nil {
		return err
	}
	video, err := o.beginStage(ctx, p.VideoID, models.PhaseLLMShortlisting, progressShortlist)
	if err != nil || video == nil {
		return err
	}

	clips, err := o.clips.ListByVideo(ctx, video.ID, models.ClipCandidate)
	if err != nil {
		return err
	}
	if len(clips) == 0 {
		o.logger.Warn("No candidates to shortlist", "video_id", video.ID)
		return o.finish(ctx, video.ID)
	}

	// Pre-rank on the text heuristics alone so the strongest candidates
	// fill the limited prompt budget.
	preRanked := make([]*models.Clip, len(clips))
	copy(preRanked, clips)
	preScore := make(map[string]float64, len(preRanked))
	for _, c := range preRanked {
		score, _ := scoring.Fuse(0, c.TranscriptPass1, nil, c.Duration())
		preScore[c.ID] = score
	}
	sort.SliceStable(preRanked, func(i, j int) bool {
		return preScore[preRanked[i].ID] > preScore[preRanked[j].ID]
	})
	if len(preRanked) > o.cand.SendMaxCandidates {
		preRanked = preRanked[:o.cand.SendMaxCandidates]
	}

	segments := make([]llm.SegmentInput, len(preRanked))
	for i, c := range preRanked {
		segments[i] = llm.SegmentInput{
			ID:    c.ID,
			Start: c.Start,
			End:   c.End,
			Text:  c.TranscriptPass1,
		}
	}

	limit, err := o.shortlistLimit(ctx, video)
	if err != nil {
		return err
	}

	picks, err := o.llm.Shortlist(ctx, segments, limit)
	if err != nil {
		return fmt.Errorf("shortlist failed for video %s: %w", video.ID, err)
	}

	byID := make(map[string]*models.Clip, len(clips))
	for _, c := range clips {
		byID[c.ID] = c
	}

	scored := make([]scoring.ScoredKeywords, 0, len(picks))
	for _, pick := range picks {
		clip := byID[pick.ID]
		if clip == nil {
			continue
		}
		final, breakdown := scoring.Fuse(pick.ViralScore, clip.TranscriptPass1, pick.RiskFlags, clip.Duration())

		clip.LLMScore = pick.ViralScore
		clip.HookText = pick.HookText
		clip.Caption = pick.Caption
		clip.Reason = pick.Reason
		clip.RiskFlags = pick.RiskFlags
		clip.Keywords = pick.Keywords
		clip.HeuristicScore = final
		clip.Breakdown = &breakdown

		scored = append(scored, scoring.ScoredKeywords{
			ClipID:   clip.ID,
			Score:    final,
			Keywords: pick.Keywords,
		})
	}

	kept := scoring.DiversityFilter(scored, scoring.DefaultDiversityThreshold)
	if len(kept) > limit {
		kept = kept[:limit]
	}

	for _, id := range kept {
		clip := byID[id]
		clip.Phase = models.ClipShortlisted
		if err := o.clips.Save(ctx, clip); err != nil {
			return err
		}
	}

	deleted, err := o.clips.DeleteUnpromoted(ctx, video.ID)
	if err != nil {
		return err
	}

	o.logger.Info("Shortlist complete",
		"video_id", video.ID,
		"candidates", len(clips),
		"picked", len(picks),
		"promoted", len(kept),
		"deleted", deleted)

	if len(kept) == 0 {
		return o.finish(ctx, video.ID)
	}
	if _, err := o.jobs.Enqueue(ctx, QueueAI, HandlerTranscribePass2, StagePayload{VideoID: video.ID}); err != nil {
		return fmt.Errorf("failed to enqueue pass-2 transcription: %w", err)
	}
	return nil
}

// shortlistLimit resolves how many clips may survive the shortlist: the
// per-video max_clips override first, then the channel's target count,
// then the process default.
func (o *Orchestrator) shortlistLimit(ctx context.Context, video *models.Video) (int, error) {
	limit := o.cand.ShortlistMax
	if video.ChannelID != nil {
		channel, err := o.channels.GetByID(ctx, *video.ChannelID)
		if err != nil {
			return 0, fmt.Errorf("failed to load channel policy: %w", err)
		}
		if channel.TargetCount > 0 {
			limit = channel.TargetCount
		}
	}
	if video.MaxClips != nil && *video.MaxClips > 0 {
		limit = *video.MaxClips
	}
	return limit, nil
}
