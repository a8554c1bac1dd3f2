// Package media wraps the yt-dlp and ffmpeg binaries behind a gateway.
// Commands are built as argument vectors and run without a shell.
package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/config"
)

// Binary names resolved via PATH.
const (
	ytdlpBin  = "yt-dlp"
	ffmpegBin = "ffmpeg"
)

// Per-operation timeouts. Downloads get generous budgets; metadata
// probes must be fast.
const (
	probeTimeout    = 60 * time.Second
	audioTimeout    = 300 * time.Second
	videoTimeout    = 900 * time.Second
	silenceTimeout  = 300 * time.Second
	renderTimeout   = 900 * time.Second
	thumbnailBudget = 60 * time.Second
)

// Gateway shells out to yt-dlp and ffmpeg for probing, downloading and
// rendering. One gateway is shared by all workers.
type Gateway struct {
	mediaDir string
	clipsDir string
	render   config.RenderConfig
	logger   *slog.Logger
}

// NewGateway creates a media gateway. mediaDir caches downloaded source
// files; clipsDir receives rendered output.
func NewGateway(mediaDir, clipsDir string, render config.RenderConfig, logger *slog.Logger) (*Gateway, error) {
	for _, dir := range []string{mediaDir, clipsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create media directory %s: %w", dir, err)
		}
	}
	return &Gateway{
		mediaDir: mediaDir,
		clipsDir: clipsDir,
		render:   render,
		logger:   logger.With("component", "media"),
	}, nil
}

// ClipsDir returns the rendered output directory.
func (g *Gateway) ClipsDir() string {
	return g.clipsDir
}

// runResult captures one subprocess execution.
type runResult struct {
	stdout string
	stderr string
}

// run executes a command under the given timeout. A non-zero exit is an
// error carrying the tail of stderr.
func (g *Gateway) run(ctx context.Context, timeout time.Duration, name string, args []string) (*runResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	g.logger.Debug("Subprocess finished",
		"binary", name,
		"duration", time.Since(start),
		"error", err != nil)

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("%s timed out after %v", name, timeout)
	}
	if err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", name, err, tail(stderr.String(), 500))
	}
	return &runResult{stdout: stdout.String(), stderr: stderr.String()}, nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
