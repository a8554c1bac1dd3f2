package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/feed"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/store"
)

type resolveChannelRequest struct {
	URL string `json:"url" binding:"required"`
}

// resolveChannel handles POST /api/channels/resolve: turn any channel
// URL/handle into the canonical UC id without creating anything.
func (s *Server) resolveChannel(c *gin.Context) {
	var req resolveChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "url is required")
		return
	}
	res, err := s.deps.Feed.Resolve(c.Request.Context(), req.URL)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"channel_id": res.ChannelID, "name": res.Name})
}

type createChannelRequest struct {
	URL            string  `json:"url" binding:"required"`
	Title          string  `json:"title"`
	ClipMinSeconds float64 `json:"clip_min_seconds"`
	ClipMaxSeconds float64 `json:"clip_max_seconds"`
	TargetCount    int     `json:"target_count"`
	ProcessLatest  bool    `json:"process_latest"`
}

// createChannel handles POST /api/channels: resolve the reference, create
// the subscription and seed the forward-only baseline from the feed's
// newest entry. With process_latest the newest entry also enters the
// pipeline immediately.
func (s *Server) createChannel(c *gin.Context) {
	var req createChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "url is required")
		return
	}
	ctx := c.Request.Context()

	res, err := s.deps.Feed.Resolve(ctx, req.URL)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	title := req.Title
	if title == "" {
		title = res.Name
	}
	ch := &models.Channel{
		YoutubeChannel: res.ChannelID,
		Title:          title,
		FeedURL:        feed.FeedURL(res.ChannelID),
		Enabled:        true,
		ClipMinSeconds: req.ClipMinSeconds,
		ClipMaxSeconds: req.ClipMaxSeconds,
		TargetCount:    req.TargetCount,
	}
	if ch.ClipMinSeconds == 0 && ch.ClipMaxSeconds == 0 {
		ch.ClipMinSeconds = 60
		ch.ClipMaxSeconds = 120
	}
	if err := s.deps.Channels.Create(ctx, ch); err != nil {
		s.abortWithError(c, err)
		return
	}

	// A failed seed is not fatal: the first poll will set the baseline.
	if err := s.deps.Feed.SeedBaseline(ctx, ch, req.ProcessLatest); err != nil {
		s.logger.Warn("Failed to seed channel baseline",
			"channel_id", ch.ID, "error", err)
	}

	c.JSON(http.StatusCreated, ch)
}

func (s *Server) listChannels(c *gin.Context) {
	enabledOnly := c.Query("enabled") == "true"
	channels, err := s.deps.Channels.List(c.Request.Context(), enabledOnly)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	if channels == nil {
		channels = []*models.Channel{}
	}
	c.JSON(http.StatusOK, channels)
}

func (s *Server) getChannel(c *gin.Context) {
	ch, err := s.deps.Channels.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

type updateChannelRequest struct {
	Title          *string  `json:"title"`
	Enabled        *bool    `json:"enabled"`
	ClipMinSeconds *float64 `json:"clip_min_seconds"`
	ClipMaxSeconds *float64 `json:"clip_max_seconds"`
	TargetCount    *int     `json:"target_count"`
}

func (s *Server) updateChannel(c *gin.Context) {
	var req updateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	ch, err := s.deps.Channels.Update(c.Request.Context(), c.Param("id"), store.ChannelUpdate{
		Title:          req.Title,
		Enabled:        req.Enabled,
		ClipMinSeconds: req.ClipMinSeconds,
		ClipMaxSeconds: req.ClipMaxSeconds,
		TargetCount:    req.TargetCount,
	})
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, ch)
}

func (s *Server) deleteChannel(c *gin.Context) {
	if err := s.deps.Channels.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type backfillRequest struct {
	Count int `json:"count"`
}

// backfillChannel handles POST /api/channels/:id/backfill: ingest up to
// count recent entries without moving the baseline.
func (s *Server) backfillChannel(c *gin.Context) {
	var req backfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	processed, err := s.deps.Feed.Backfill(c.Request.Context(), c.Param("id"), req.Count)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"processed": processed})
}
