package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/speech"
)

// handleTranscribePass1 runs the fast coarse transcription over the full
// audio and stores per-candidate transcript slices.
func (o *Orchestrator) handleTranscribePass1(ctx context.Context, payload json.RawMessage) error {
	p, err := decodePayload(payload)
	if err != nil {
		return err
	}
	video, err := o.beginStage(ctx, p.VideoID, models.PhaseTranscribingPass1, progressPass1)
	if err != nil || video == nil {
		return err
	}

	clips, err := o.clips.ListByVideo(ctx, video.ID, models.ClipCandidate)
	if err != nil {
		return err
	}
	if len(clips) == 0 {
		o.logger.Warn("No candidates to transcribe", "video_id", video.ID)
		return o.finish(ctx, video.ID)
	}

	audioPath, err := o.media.DownloadAudio(ctx, video.WatchURL(), video.YoutubeVideoID)
	if err != nil {
		return fmt.Errorf("audio download failed for video %s: %w", video.ID, err)
	}
	transcript, err := o.speech.TranscribePass1(ctx, audioPath)
	if err != nil {
		return fmt.Errorf("pass-1 transcription failed for video %s: %w", video.ID, err)
	}

	for _, clip := range clips {
		clip.TranscriptPass1 = speech.TextForWindow(transcript.Segments, clip.Start, clip.End)
		if err := o.clips.Save(ctx, clip); err != nil {
			return err
		}
	}

	o.logger.Info("Pass-1 transcription complete", "video_id", video.ID, "clips", len(clips))

	if _, err := o.jobs.Enqueue(ctx, QueueAI, HandlerLLMShortlist, StagePayload{VideoID: video.ID}); err != nil {
		return fmt.Errorf("failed to enqueue shortlist: %w", err)
	}
	return nil
}

// handleTranscribePass2 runs the accurate transcription with word
// timestamps and stores clip-relative word timings on the promoted clips.
func (o *Orchestrator) handleTranscribePass2(ctx context.Context, payload json.RawMessage) error {
	p, err := decodePayload(payload)
	if err != nil {
		return err
	}
	video, err := o.beginStage(ctx, p.VideoID, models.PhaseTranscribingPass2, progressPass2)
	if err != nil || video == nil {
		return err
	}

	clips, err := o.clips.ListByVideo(ctx, video.ID, models.ClipShortlisted)
	if err != nil {
		return err
	}
	if len(clips) == 0 {
		o.logger.Warn("No shortlisted clips to transcribe", "video_id", video.ID)
		return o.finish(ctx, video.ID)
	}

	audioPath, err := o.media.DownloadAudio(ctx, video.WatchURL(), video.YoutubeVideoID)
	if err != nil {
		return fmt.Errorf("audio download failed for video %s: %w", video.ID, err)
	}
	transcript, err := o.speech.TranscribePass2(ctx, audioPath)
	if err != nil {
		return fmt.Errorf("pass-2 transcription failed for video %s: %w", video.ID, err)
	}

	for _, clip := range clips {
		text, words := speech.WordsForClip(transcript.Segments, clip.Start, clip.End)
		clip.TranscriptPass2 = text
		clip.Words = words
		if err := o.clips.Save(ctx, clip); err != nil {
			return err
		}
	}

	o.logger.Info("Pass-2 transcription complete", "video_id", video.ID, "clips", len(clips))

	if _, err := o.jobs.Enqueue(ctx, QueueAI, HandlerLLMRefine, StagePayload{VideoID: video.ID}); err != nil {
		return fmt.Errorf("failed to enqueue refine: %w", err)
	}
	return nil
}
