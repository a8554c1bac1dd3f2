// Package api is the operator-facing HTTP surface: channel subscriptions,
// video and clip inspection, clip approval and post tracking. All pipeline
// work happens in the queue workers; handlers only read state and enqueue.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/feed"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/queue"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/store"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/version"
)

// ChannelStore is the channel persistence the API needs.
type ChannelStore interface {
	Create(ctx context.Context, ch *models.Channel) error
	GetByID(ctx context.Context, id string) (*models.Channel, error)
	List(ctx context.Context, enabledOnly bool) ([]*models.Channel, error)
	Update(ctx context.Context, id string, patch store.ChannelUpdate) (*models.Channel, error)
	Delete(ctx context.Context, id string) error
}

// VideoStore is the video persistence the API needs.
type VideoStore interface {
	GetByID(ctx context.Context, id string) (*models.Video, error)
	List(ctx context.Context, f store.VideoFilters) ([]*models.Video, error)
	UpdateOverrides(ctx context.Context, id string, patch store.VideoUpdate) (*models.Video, error)
}

// ClipStore is the clip persistence the API needs.
type ClipStore interface {
	GetByID(ctx context.Context, id string) (*models.Clip, error)
	ListByVideo(ctx context.Context, videoID string, phase models.ClipPhase) ([]*models.Clip, error)
	UpdateEditorial(ctx context.Context, id string, patch store.ClipUpdate) (*models.Clip, error)
}

// PostJobStore is the post job persistence the API needs.
type PostJobStore interface {
	Create(ctx context.Context, pj *models.PostJob) error
	List(ctx context.Context, status models.PostStatus, limit int) ([]*models.PostJob, error)
}

// FeedService is the ingestion capability behind channel and video creation.
type FeedService interface {
	Resolve(ctx context.Context, urlOrID string) (*feed.Resolution, error)
	SeedBaseline(ctx context.Context, ch *models.Channel, processLatest bool) error
	Backfill(ctx context.Context, channelID string, count int) (int, error)
	Submit(ctx context.Context, urlOrID string, opts feed.SubmitOptions) (*models.Video, error)
}

// Enqueuer persists queue jobs created by handlers.
type Enqueuer interface {
	Enqueue(ctx context.Context, queue, handler string, payload any) (*queue.Job, error)
}

// WorkerPool exposes worker pool health for the health endpoint.
type WorkerPool interface {
	Health() *queue.PoolHealth
}

// Deps are the collaborators the server needs. DBCheck and Pool may be
// nil; the health endpoint then skips the corresponding check.
type Deps struct {
	Channels ChannelStore
	Videos   VideoStore
	Clips    ClipStore
	Posts    PostJobStore
	Feed     FeedService
	Jobs     Enqueuer
	DBCheck  func(ctx context.Context) error
	Pool     WorkerPool
	Logger   *slog.Logger
}

// Server is the gin HTTP server.
type Server struct {
	deps   Deps
	logger *slog.Logger
}

// NewServer creates the API server.
func NewServer(deps Deps) *Server {
	return &Server{deps: deps, logger: deps.Logger.With("component", "api")}
}

// Routes builds the gin engine with all endpoints registered.
func (s *Server) Routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.health)

	v1 := r.Group("/api")
	{
		v1.POST("/channels/resolve", s.resolveChannel)
		v1.POST("/channels", s.createChannel)
		v1.GET("/channels", s.listChannels)
		v1.GET("/channels/:id", s.getChannel)
		v1.PATCH("/channels/:id", s.updateChannel)
		v1.DELETE("/channels/:id", s.deleteChannel)
		v1.POST("/channels/:id/backfill", s.backfillChannel)

		v1.POST("/videos", s.submitVideo)
		v1.GET("/videos", s.listVideos)
		v1.GET("/videos/:id", s.getVideo)
		v1.PATCH("/videos/:id", s.updateVideo)
		v1.GET("/videos/:id/clips", s.listVideoClips)
		v1.POST("/videos/:id/approve", s.approveClips)

		v1.PATCH("/clips/:id", s.updateClip)

		v1.GET("/posts", s.listPosts)
	}
	return r
}

const (
	healthStatusHealthy   = "healthy"
	healthStatusDegraded  = "degraded"
	healthStatusUnhealthy = "unhealthy"
)

// health checks the database and the worker pool. External capabilities
// (LLM, whisper, yt-dlp) are deliberately not checked so an upstream
// outage cannot get this process restarted.
func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := healthStatusHealthy
	checks := gin.H{}

	if s.deps.DBCheck != nil {
		if err := s.deps.DBCheck(ctx); err != nil {
			status = healthStatusUnhealthy
			checks["database"] = gin.H{"status": healthStatusUnhealthy, "message": err.Error()}
		} else {
			checks["database"] = gin.H{"status": healthStatusHealthy}
		}
	}

	if s.deps.Pool != nil {
		poolHealth := s.deps.Pool.Health()
		if poolHealth != nil && !poolHealth.IsHealthy {
			if status == healthStatusHealthy {
				status = healthStatusDegraded
			}
			checks["worker_pool"] = gin.H{"status": healthStatusDegraded, "message": poolHealth.DBError}
		} else {
			checks["worker_pool"] = gin.H{"status": healthStatusHealthy}
		}
	}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, gin.H{
		"status":  status,
		"version": version.GitCommit,
		"checks":  checks,
	})
}

// Run serves until the context is cancelled, then drains with a timeout.
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
