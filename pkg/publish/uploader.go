package publish

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
)

// LocalDraftUploader is the default Uploader when no platform integration
// is configured. DRAFT mode succeeds without leaving the machine: the
// rendered file on disk is the draft, and its path becomes the external
// reference. DIRECT mode fails until a real uploader is wired in.
type LocalDraftUploader struct {
	logger *slog.Logger
}

// NewLocalDraftUploader creates the local draft uploader.
func NewLocalDraftUploader(logger *slog.Logger) *LocalDraftUploader {
	return &LocalDraftUploader{logger: logger.With("component", "uploader")}
}

func (u *LocalDraftUploader) Upload(_ context.Context, clip *models.Clip, mode models.PostMode) (string, error) {
	if mode == models.PostModeDirect {
		return "", fmt.Errorf("direct posting is not configured")
	}
	if clip.PreviewPath == "" {
		return "", fmt.Errorf("clip %s has no rendered file", clip.ID)
	}
	u.logger.Info("Draft ready", "clip_id", clip.ID, "path", clip.PreviewPath)
	return clip.PreviewPath, nil
}
