package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
)

// ProbeResult is the metadata extracted from a yt-dlp JSON probe.
type ProbeResult struct {
	VideoID  string
	Title    string
	Uploader string
	Duration float64
	Chapters []models.Chapter
}

// ytdlpInfo mirrors the subset of yt-dlp's -J output we consume.
type ytdlpInfo struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Uploader string  `json:"uploader"`
	Duration float64 `json:"duration"`
	Chapters []struct {
		Title     string  `json:"title"`
		StartTime float64 `json:"start_time"`
		EndTime   float64 `json:"end_time"`
	} `json:"chapters"`
}

// Probe fetches video metadata without downloading anything.
func (g *Gateway) Probe(ctx context.Context, url string) (*ProbeResult, error) {
	res, err := g.run(ctx, probeTimeout, ytdlpBin, []string{"-J", "--no-download", url})
	if err != nil {
		return nil, fmt.Errorf("metadata probe failed: %w", err)
	}

	var info ytdlpInfo
	if err := json.Unmarshal([]byte(res.stdout), &info); err != nil {
		return nil, fmt.Errorf("invalid JSON from yt-dlp: %w", err)
	}

	probe := &ProbeResult{
		VideoID:  info.ID,
		Title:    info.Title,
		Uploader: info.Uploader,
		Duration: info.Duration,
	}
	for _, ch := range info.Chapters {
		probe.Chapters = append(probe.Chapters, models.Chapter{
			Title: ch.Title,
			Start: ch.StartTime,
			End:   ch.EndTime,
		})
	}
	return probe, nil
}

// DownloadAudio fetches the audio-only stream for silence detection.
// Much faster than downloading the full video.
func (g *Gateway) DownloadAudio(ctx context.Context, url, youtubeID string) (string, error) {
	template := filepath.Join(g.mediaDir, youtubeID+"-audio.%(ext)s")
	args := []string{
		"-f", "bestaudio[ext=m4a]/bestaudio",
		"-o", template,
		"--no-playlist",
		url,
	}
	if _, err := g.run(ctx, audioTimeout, ytdlpBin, args); err != nil {
		return "", fmt.Errorf("audio download failed: %w", err)
	}

	for _, ext := range []string{"m4a", "webm", "mp3", "opus"} {
		path := filepath.Join(g.mediaDir, youtubeID+"-audio."+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("downloaded audio file not found for %s", youtubeID)
}

// SourcePath returns the cache location of a full source download.
func (g *Gateway) SourcePath(youtubeID string) string {
	return filepath.Join(g.mediaDir, youtubeID+".mp4")
}

// EnsureVideo downloads the full source video capped at 720p, reusing
// the cached file when a previous stage already fetched it.
func (g *Gateway) EnsureVideo(ctx context.Context, url, youtubeID string) (string, error) {
	path := g.SourcePath(youtubeID)
	if _, err := os.Stat(path); err == nil {
		g.logger.Debug("Source video cache hit", "youtube_video_id", youtubeID)
		return path, nil
	}

	args := []string{
		"-f", "bestvideo[height<=720][ext=mp4]+bestaudio[ext=m4a]/best[height<=720][ext=mp4]/best",
		"--merge-output-format", "mp4",
		"-o", path,
		"--no-playlist",
		url,
	}
	if _, err := g.run(ctx, videoTimeout, ytdlpBin, args); err != nil {
		return "", fmt.Errorf("video download failed: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("downloaded video file not found for %s", youtubeID)
	}
	return path, nil
}

// CleanupSource removes cached downloads for a video once rendering is done.
func (g *Gateway) CleanupSource(youtubeID string) {
	matches, err := filepath.Glob(filepath.Join(g.mediaDir, youtubeID+"*"))
	if err != nil {
		return
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			g.logger.Warn("Failed to remove cached media", "path", m, "error", err)
		}
	}
}
