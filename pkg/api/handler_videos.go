package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/feed"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/store"
)

type submitVideoRequest struct {
	URL            string   `json:"url" binding:"required"`
	ClipMinSeconds *float64 `json:"clip_min_seconds"`
	ClipMaxSeconds *float64 `json:"clip_max_seconds"`
	MaxClips       *int     `json:"max_clips"`
}

// submitVideo handles POST /api/videos: manual submission of a single
// video outside any subscription, with optional clip policy overrides.
// The pipeline starts immediately.
func (s *Server) submitVideo(c *gin.Context) {
	var req submitVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "url is required")
		return
	}
	video, err := s.deps.Feed.Submit(c.Request.Context(), req.URL, feed.SubmitOptions{
		ClipMinSeconds: req.ClipMinSeconds,
		ClipMaxSeconds: req.ClipMaxSeconds,
		MaxClips:       req.MaxClips,
	})
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, video)
}

type updateVideoRequest struct {
	ClipMinSeconds *float64 `json:"clip_min_seconds"`
	ClipMaxSeconds *float64 `json:"clip_max_seconds"`
	MaxClips       *int     `json:"max_clips"`
}

// updateVideo handles PATCH /api/videos/:id: adjust the per-video clip
// policy overrides. Stages that already ran keep their results; the
// overrides apply from the next stage onward.
func (s *Server) updateVideo(c *gin.Context) {
	var req updateVideoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	video, err := s.deps.Videos.UpdateOverrides(c.Request.Context(), c.Param("id"), store.VideoUpdate{
		ClipMinSeconds: req.ClipMinSeconds,
		ClipMaxSeconds: req.ClipMaxSeconds,
		MaxClips:       req.MaxClips,
	})
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, video)
}

func (s *Server) listVideos(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	phase := models.VideoPhase(c.Query("phase"))
	if phase != "" && !phase.IsValid() {
		badRequest(c, "unknown phase")
		return
	}

	videos, err := s.deps.Videos.List(c.Request.Context(), store.VideoFilters{
		ChannelID: c.Query("channel_id"),
		Phase:     phase,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	if videos == nil {
		videos = []*models.Video{}
	}
	c.JSON(http.StatusOK, videos)
}

func (s *Server) getVideo(c *gin.Context) {
	video, err := s.deps.Videos.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, video)
}

func (s *Server) listVideoClips(c *gin.Context) {
	phase := models.ClipPhase(c.Query("phase"))
	if phase != "" && !phase.IsValid() {
		badRequest(c, "unknown phase")
		return
	}
	clips, err := s.deps.Clips.ListByVideo(c.Request.Context(), c.Param("id"), phase)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	if clips == nil {
		clips = []*models.Clip{}
	}
	c.JSON(http.StatusOK, clips)
}
