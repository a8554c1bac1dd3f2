// Package cleanup provides data retention for the pipeline.
package cleanup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/config"
)

// JobPruner deletes finished queue jobs older than a cutoff.
type JobPruner interface {
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Service periodically enforces retention policies:
//   - Deletes completed and failed queue jobs past their TTL
//   - Removes leftover downloads from the media working directory
//
// All operations are idempotent and safe to run from multiple pods.
type Service struct {
	config   config.RetentionConfig
	jobs     JobPruner
	mediaDir string
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new retention service. mediaDir may be empty to
// skip the file sweep.
func NewService(cfg config.RetentionConfig, jobs JobPruner, mediaDir string, logger *slog.Logger) *Service {
	return &Service{
		config:   cfg,
		jobs:     jobs,
		mediaDir: mediaDir,
		logger:   logger.With("component", "cleanup"),
	}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	s.logger.Info("Cleanup service started",
		"job_ttl", s.config.JobTTL,
		"media_ttl", s.config.MediaTTL,
		"interval", s.config.SweepInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.logger.Info("Cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.Sweep(ctx)

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one retention pass.
func (s *Service) Sweep(ctx context.Context) {
	s.pruneFinishedJobs(ctx)
	s.pruneStaleMedia()
}

func (s *Service) pruneFinishedJobs(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.config.JobTTL)
	count, err := s.jobs.DeleteFinishedBefore(ctx, cutoff)
	if err != nil {
		s.logger.Error("Retention: job cleanup failed", "error", err)
		return
	}
	if count > 0 {
		s.logger.Info("Retention: deleted finished jobs", "count", count)
	}
}

// pruneStaleMedia removes files in the media working dir that have not
// been touched within the TTL. Sources for videos still in flight get
// their mtime refreshed by each download, so only abandoned files age out.
func (s *Service) pruneStaleMedia() {
	if s.mediaDir == "" {
		return
	}
	cutoff := time.Now().Add(-s.config.MediaTTL)

	entries, err := os.ReadDir(s.mediaDir)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("Retention: media dir scan failed", "error", err)
		}
		return
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.mediaDir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.Warn("Retention: failed to remove stale file", "path", path, "error", err)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger.Info("Retention: removed stale media files", "count", removed)
	}
}
