package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/media"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
)

// handleRender cuts the final vertical clips: snap-and-clean the
// boundaries, synthesize karaoke subtitles, cut with padding, grab a
// thumbnail. A clip that fails to render goes to ERROR without failing
// its siblings; the video finishes READY either way.
func (o *Orchestrator) handleRender(ctx context.Context, payload json.RawMessage) error {
	p, err := decodePayload(payload)
	if err != nil {
		return err
	}
	video, err := o.beginStage(ctx, p.VideoID, models.PhaseRenderingPreview, progressRender)
	if err != nil || video == nil {
		return err
	}

	clips, err := o.clips.ListByVideo(ctx, video.ID, models.ClipShortlisted)
	if err != nil {
		return err
	}
	if len(clips) == 0 {
		o.logger.Warn("No clips to render", "video_id", video.ID)
		return o.finish(ctx, video.ID)
	}

	sourcePath, err := o.media.EnsureVideo(ctx, video.WatchURL(), video.YoutubeVideoID)
	if err != nil {
		return fmt.Errorf("source download failed for video %s: %w", video.ID, err)
	}

	rendered := 0
	for _, clip := range clips {
		if err := o.renderClip(ctx, sourcePath, clip); err != nil {
			o.logger.Error("Clip render failed", "clip_id", clip.ID, "error", err)
			clip.Phase = models.ClipError
			clip.Error = err.Error()
		} else {
			clip.Phase = models.ClipReady
			clip.Error = ""
			rendered++
		}
		if err := o.clips.Save(ctx, clip); err != nil {
			return err
		}
	}

	o.media.CleanupSource(video.YoutubeVideoID)
	o.logger.Info("Render complete",
		"video_id", video.ID, "rendered", rendered, "total", len(clips))

	return o.finish(ctx, video.ID)
}

// renderClip produces one padded vertical cut with burned-in subtitles
// and a thumbnail, mutating the clip's artifact paths.
func (o *Orchestrator) renderClip(ctx context.Context, sourcePath string, clip *models.Clip) error {
	SnapAndClean(clip)

	pad := o.render.PadSeconds
	paddedStart := clip.Start - pad
	if paddedStart < 0 {
		paddedStart = 0
	}
	duration := (clip.End + pad) - paddedStart

	subtitlePath := ""
	if len(clip.Words) > 0 {
		// The cut starts pad seconds before the clip, so cue times shift
		// by the accumulated offset minus the padding.
		content := SynthesizeSRT(clip.Words, clip.TimingOffset-pad)
		if content != "" {
			subtitlePath = filepath.Join(o.media.ClipsDir(), clip.ID+".srt")
			if err := os.WriteFile(subtitlePath, []byte(content), 0o644); err != nil {
				return fmt.Errorf("failed to write subtitles: %w", err)
			}
			clip.SubtitlePath = subtitlePath
		}
	}

	outputPath := filepath.Join(o.media.ClipsDir(), clip.ID+".mp4")
	if _, err := o.media.CutClip(ctx, media.CutSpec{
		InputPath:    sourcePath,
		OutputPath:   outputPath,
		Start:        paddedStart,
		Duration:     duration,
		SubtitlePath: subtitlePath,
		CRF:          o.render.PreviewCRF,
		Preset:       o.render.PreviewPreset,
	}); err != nil {
		return err
	}
	clip.PreviewPath = outputPath

	thumbPath, err := o.media.Thumbnail(ctx, outputPath)
	if err != nil {
		return err
	}
	clip.ThumbnailPath = thumbPath
	return nil
}
