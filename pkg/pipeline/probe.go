package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/candidates"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
)

// handleProbe fetches metadata without downloading and records duration,
// chapters and the tentative generation strategy.
func (o *Orchestrator) handleProbe(ctx context.Context, payload json.RawMessage) error {
	p, err := decodePayload(payload)
	if err != nil {
		return err
	}
	video, err := o.beginStage(ctx, p.VideoID, models.PhaseProbing, progressProbing)
	if err != nil || video == nil {
		return err
	}

	probe, err := o.media.Probe(ctx, video.WatchURL())
	if err != nil {
		return fmt.Errorf("probe failed for video %s: %w", video.ID, err)
	}
	if probe.Duration <= 0 {
		return fmt.Errorf("probe returned non-positive duration %f for video %s", probe.Duration, video.ID)
	}

	strategy := models.StrategySilence
	if len(probe.Chapters) > 0 {
		strategy = models.StrategyChapter
	}
	if err := o.videos.SetProbeResult(ctx, video.ID, probe.Duration, probe.Chapters, strategy); err != nil {
		return err
	}

	o.logger.Info("Probe complete",
		"video_id", video.ID,
		"duration", probe.Duration,
		"chapters", len(probe.Chapters),
		"strategy", strategy)

	if _, err := o.jobs.Enqueue(ctx, QueueIO, HandlerGenerateCandidates, StagePayload{VideoID: video.ID}); err != nil {
		return fmt.Errorf("failed to enqueue candidate generation: %w", err)
	}
	return nil
}

// handleGenerateCandidates builds candidate windows from chapters,
// silence-derived speech blocks or fixed intervals, and persists them
// as CANDIDATE clips.
func (o *Orchestrator) handleGenerateCandidates(ctx context.Context, payload json.RawMessage) error {
	p, err := decodePayload(payload)
	if err != nil {
		return err
	}
	video, err := o.beginStage(ctx, p.VideoID, models.PhaseGeneratingCandidates, progressCandidates)
	if err != nil || video == nil {
		return err
	}

	params, err := o.candidateParams(ctx, video)
	if err != nil {
		return err
	}

	// Silence detection needs audio; chapters make the download unnecessary.
	var silences []candidates.Interval
	silenceOK := false
	if len(video.Chapters) == 0 {
		audioPath, err := o.media.DownloadAudio(ctx, video.WatchURL(), video.YoutubeVideoID)
		if err != nil {
			return fmt.Errorf("audio download failed for video %s: %w", video.ID, err)
		}
		silences, err = o.media.DetectSilence(ctx, audioPath)
		if err != nil {
			// A failed scan is not fatal: fall back to fixed intervals.
			o.logger.Warn("Silence detection failed, using fixed intervals",
				"video_id", video.ID, "error", err)
		} else {
			silenceOK = true
		}
	}

	windows, strategy := candidates.Generate(video.Duration, video.Chapters, silences, silenceOK, params)
	if strategy != video.Strategy {
		if err := o.videos.SetProbeResult(ctx, video.ID, video.Duration, video.Chapters, strategy); err != nil {
			return err
		}
	}

	// Redelivery after a mid-stage crash would otherwise duplicate
	// candidates; clear the previous batch first.
	if _, err := o.clips.DeleteUnpromoted(ctx, video.ID); err != nil {
		return err
	}

	clips := make([]*models.Clip, 0, len(windows))
	for _, w := range windows {
		clips = append(clips, &models.Clip{
			VideoID:  video.ID,
			Phase:    models.ClipCandidate,
			Start:    w.Start,
			End:      w.End,
			Strategy: w.Strategy,
		})
	}
	if err := o.clips.CreateBatch(ctx, clips); err != nil {
		return err
	}

	o.logger.Info("Candidates generated",
		"video_id", video.ID, "count", len(clips), "strategy", strategy)

	if len(clips) == 0 {
		return o.finish(ctx, video.ID)
	}
	if _, err := o.jobs.Enqueue(ctx, QueueAI, HandlerTranscribePass1, StagePayload{VideoID: video.ID}); err != nil {
		return fmt.Errorf("failed to enqueue pass-1 transcription: %w", err)
	}
	return nil
}

// candidateParams resolves the effective clip length policy: per-video
// overrides first, then the channel policy, then the process defaults.
func (o *Orchestrator) candidateParams(ctx context.Context, video *models.Video) (candidates.Params, error) {
	params := candidates.Params{
		MinSeconds:   o.cand.MinSeconds,
		MaxSeconds:   o.cand.MaxSeconds,
		ShiftSeconds: o.cand.ShiftSeconds,
		Limit:        o.cand.MaxPerVideo,
	}
	if video.ChannelID != nil {
		channel, err := o.channels.GetByID(ctx, *video.ChannelID)
		if err != nil {
			return params, fmt.Errorf("failed to load channel policy: %w", err)
		}
		if channel.ClipMinSeconds > 0 && channel.ClipMaxSeconds > channel.ClipMinSeconds {
			params.MinSeconds = channel.ClipMinSeconds
			params.MaxSeconds = channel.ClipMaxSeconds
		}
	}
	if video.ClipMinSeconds != nil && *video.ClipMinSeconds > 0 {
		params.MinSeconds = *video.ClipMinSeconds
	}
	if video.ClipMaxSeconds != nil && *video.ClipMaxSeconds > 0 {
		params.MaxSeconds = *video.ClipMaxSeconds
	}
	// A degenerate merge (override min against an inherited smaller max)
	// falls back to the process defaults.
	if params.MinSeconds >= params.MaxSeconds {
		params.MinSeconds = o.cand.MinSeconds
		params.MaxSeconds = o.cand.MaxSeconds
	}
	return params, nil
}
