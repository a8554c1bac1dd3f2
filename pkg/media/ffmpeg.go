package media

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/candidates"
)

// subtitleStyle centers small yellow karaoke captions on the vertical frame.
const subtitleStyle = "Alignment=2,Fontname=Arial,FontSize=16,PrimaryColour=&H00FFFF00," +
	"OutlineColour=&H00000000,BorderStyle=1,Outline=1,Shadow=1,MarginV=20"

// verticalCrop center-crops the frame to 9:16 at full height.
const verticalCrop = "crop=w=ih*(9/16):h=ih:x=(iw-ow)/2:y=0"

// CutSpec describes one clip render.
type CutSpec struct {
	InputPath    string
	OutputPath   string
	Start        float64 // padded start, seconds
	Duration     float64 // padded duration, seconds
	SubtitlePath string  // optional; burned in when set
	CRF          int
	Preset       string
}

// BuildCutArgs constructs the ffmpeg arguments for a vertical clip cut.
// It avoids shell usage entirely; the caller passes the vector to exec.
func BuildCutArgs(spec CutSpec) ([]string, error) {
	if spec.InputPath == "" {
		return nil, fmt.Errorf("missing input path")
	}
	if spec.OutputPath == "" {
		return nil, fmt.Errorf("missing output path")
	}
	if spec.Duration <= 0 {
		return nil, fmt.Errorf("non-positive duration %f", spec.Duration)
	}

	filter := verticalCrop
	if spec.SubtitlePath != "" {
		filter += fmt.Sprintf(",subtitles=%s:force_style='%s'", spec.SubtitlePath, subtitleStyle)
	}

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(spec.Start),
		"-t", formatSeconds(spec.Duration),
		"-i", spec.InputPath,
		"-vf", filter,
		"-c:v", "libx264",
		"-preset", spec.Preset,
		"-crf", strconv.Itoa(spec.CRF),
		"-c:a", "aac",
		"-strict", "experimental",
		"-y",
		spec.OutputPath,
	}
	return args, nil
}

// BuildThumbnailArgs grabs a single frame one second into the clip.
func BuildThumbnailArgs(videoPath, outputPath string) ([]string, error) {
	if videoPath == "" || outputPath == "" {
		return nil, fmt.Errorf("missing path")
	}
	return []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", "1",
		"-i", videoPath,
		"-vframes", "1",
		"-y",
		outputPath,
	}, nil
}

// BuildSilenceDetectArgs runs the silencedetect filter over an audio file.
// Output lands on stderr; nothing is written.
func BuildSilenceDetectArgs(audioPath string, noiseDB int, minSilence float64) []string {
	return []string{
		"-nostdin",
		"-hide_banner",
		"-i", audioPath,
		"-af", fmt.Sprintf("silencedetect=n=%ddB:d=%g", noiseDB, minSilence),
		"-f", "null",
		"-",
	}
}

// CutClip renders one clip to the clips directory and returns the output path.
func (g *Gateway) CutClip(ctx context.Context, spec CutSpec) (string, error) {
	if spec.OutputPath == "" {
		return "", fmt.Errorf("missing output path")
	}
	args, err := BuildCutArgs(spec)
	if err != nil {
		return "", err
	}
	g.logger.Info("Cutting clip",
		"input", spec.InputPath,
		"start", spec.Start,
		"duration", spec.Duration,
		"subtitles", spec.SubtitlePath != "")
	if _, err := g.run(ctx, renderTimeout, ffmpegBin, args); err != nil {
		return "", fmt.Errorf("clip cut failed: %w", err)
	}
	return spec.OutputPath, nil
}

// Thumbnail extracts a JPEG next to the rendered clip.
func (g *Gateway) Thumbnail(ctx context.Context, videoPath string) (string, error) {
	ext := filepath.Ext(videoPath)
	outputPath := videoPath[:len(videoPath)-len(ext)] + ".jpg"
	args, err := BuildThumbnailArgs(videoPath, outputPath)
	if err != nil {
		return "", err
	}
	if _, err := g.run(ctx, thumbnailBudget, ffmpegBin, args); err != nil {
		return "", fmt.Errorf("thumbnail generation failed: %w", err)
	}
	return outputPath, nil
}

// DetectSilence runs silencedetect over the audio file and returns the
// silence intervals. A timeout is not fatal to the pipeline; callers
// fall back to fixed-interval candidates on error.
func (g *Gateway) DetectSilence(ctx context.Context, audioPath string) ([]candidates.Interval, error) {
	args := BuildSilenceDetectArgs(audioPath, -35, 0.35)
	res, err := g.run(ctx, silenceTimeout, ffmpegBin, args)
	if err != nil {
		return nil, fmt.Errorf("silence detection failed: %w", err)
	}
	silences := ParseSilence(res.stderr)
	g.logger.Info("Silence detection complete", "intervals", len(silences))
	return silences, nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
