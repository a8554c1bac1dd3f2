// Package publish processes PostJobs for approved clips against an
// Uploader capability. The platform upload itself lives behind the
// interface; this package owns the QUEUED → UPLOADING → POSTED/FAILED
// status walk and its retry behavior.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/queue"
)

// HandlerUpload is the stable queue handler name for post job processing.
const HandlerUpload = "publish.upload"

// QueueName is the queue upload jobs run on.
const QueueName = "io"

// UploadPayload is the job payload for one post job.
type UploadPayload struct {
	PostJobID string `json:"post_job_id"`
}

// Uploader pushes a rendered clip to the target platform and returns the
// platform's reference for it.
type Uploader interface {
	Upload(ctx context.Context, clip *models.Clip, mode models.PostMode) (string, error)
}

// PostJobStore is the post job persistence the processor needs.
type PostJobStore interface {
	GetByID(ctx context.Context, id string) (*models.PostJob, error)
	SetStatus(ctx context.Context, id string, status models.PostStatus, externalRef, errMsg string) error
	IncrementAttempts(ctx context.Context, id string) error
}

// ClipGetter loads the clip a post job refers to.
type ClipGetter interface {
	GetByID(ctx context.Context, id string) (*models.Clip, error)
}

// Enqueuer persists upload jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, queue, handler string, payload any) (*queue.Job, error)
}

// Processor runs post jobs against the configured uploader.
type Processor struct {
	posts    PostJobStore
	clips    ClipGetter
	uploader Uploader
	logger   *slog.Logger
}

// NewProcessor creates the post job processor.
func NewProcessor(posts PostJobStore, clips ClipGetter, uploader Uploader, logger *slog.Logger) *Processor {
	return &Processor{
		posts:    posts,
		clips:    clips,
		uploader: uploader,
		logger:   logger.With("component", "publish"),
	}
}

// RegisterHandlers binds the upload handler by its stable name.
func (p *Processor) RegisterHandlers(reg *queue.Registry) {
	reg.MustRegister(HandlerUpload, p.handleUpload)
}

// EnqueueUpload queues processing for one post job.
func EnqueueUpload(ctx context.Context, jobs Enqueuer, postJobID string) error {
	_, err := jobs.Enqueue(ctx, QueueName, HandlerUpload, UploadPayload{PostJobID: postJobID})
	return err
}

// handleUpload walks one post job through the upload. A failed upload
// marks the job FAILED and returns the error so the queue retries it;
// a redelivered job that already posted is a no-op.
func (p *Processor) handleUpload(ctx context.Context, payload json.RawMessage) error {
	var up UploadPayload
	if err := json.Unmarshal(payload, &up); err != nil {
		return fmt.Errorf("invalid upload payload: %w", err)
	}
	if up.PostJobID == "" {
		return fmt.Errorf("upload payload missing post_job_id")
	}

	pj, err := p.posts.GetByID(ctx, up.PostJobID)
	if err != nil {
		return err
	}
	if pj.Status == models.PostPosted {
		p.logger.Info("Post job already posted, skipping", "post_job_id", pj.ID)
		return nil
	}

	clip, err := p.clips.GetByID(ctx, pj.ClipID)
	if err != nil {
		return err
	}
	if clip.Phase != models.ClipReady {
		return fmt.Errorf("clip %s is %s, not READY", clip.ID, clip.Phase)
	}

	if err := p.posts.IncrementAttempts(ctx, pj.ID); err != nil {
		return err
	}
	if err := p.posts.SetStatus(ctx, pj.ID, models.PostUploading, pj.ExternalRef, ""); err != nil {
		return err
	}

	ref, err := p.uploader.Upload(ctx, clip, pj.Mode)
	if err != nil {
		p.logger.Error("Upload failed",
			"post_job_id", pj.ID, "clip_id", clip.ID, "mode", pj.Mode, "error", err)
		if setErr := p.posts.SetStatus(ctx, pj.ID, models.PostFailed, "", err.Error()); setErr != nil {
			p.logger.Error("Failed to mark post job failed", "post_job_id", pj.ID, "error", setErr)
		}
		return fmt.Errorf("upload failed for post job %s: %w", pj.ID, err)
	}

	if err := p.posts.SetStatus(ctx, pj.ID, models.PostPosted, ref, ""); err != nil {
		return err
	}
	p.logger.Info("Clip posted",
		"post_job_id", pj.ID, "clip_id", clip.ID, "mode", pj.Mode, "external_ref", ref)
	return nil
}
