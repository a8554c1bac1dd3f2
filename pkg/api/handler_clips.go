package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/publish"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/store"
)

type updateClipRequest struct {
	Caption  *string `json:"caption"`
	Approved *bool   `json:"approved"`
}

// updateClip handles PATCH /api/clips/:id: operator edits to caption and
// approval before posting.
func (s *Server) updateClip(c *gin.Context) {
	var req updateClipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	clip, err := s.deps.Clips.UpdateEditorial(c.Request.Context(), c.Param("id"), store.ClipUpdate{
		Caption:  req.Caption,
		Approved: req.Approved,
	})
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, clip)
}

type approveClipsRequest struct {
	ClipIDs []string        `json:"clip_ids" binding:"required"`
	Mode    models.PostMode `json:"mode"`
}

// approveClips handles POST /api/videos/:id/approve: mark READY clips
// approved, create one PostJob per clip and queue the uploads. All clips
// must belong to the video and be READY or nothing happens.
func (s *Server) approveClips(c *gin.Context) {
	var req approveClipsRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.ClipIDs) == 0 {
		badRequest(c, "clip_ids is required")
		return
	}
	if req.Mode == "" {
		req.Mode = models.PostModeDraft
	}
	if !req.Mode.IsValid() {
		badRequest(c, fmt.Sprintf("unknown mode %q", req.Mode))
		return
	}
	ctx := c.Request.Context()
	videoID := c.Param("id")

	clips := make([]*models.Clip, 0, len(req.ClipIDs))
	for _, id := range req.ClipIDs {
		clip, err := s.deps.Clips.GetByID(ctx, id)
		if err != nil {
			s.abortWithError(c, err)
			return
		}
		if clip.VideoID != videoID {
			badRequest(c, fmt.Sprintf("clip %s does not belong to this video", id))
			return
		}
		if clip.Phase != models.ClipReady {
			badRequest(c, fmt.Sprintf("clip %s is %s, not READY", id, clip.Phase))
			return
		}
		clips = append(clips, clip)
	}

	approved := true
	created := 0
	for _, clip := range clips {
		if _, err := s.deps.Clips.UpdateEditorial(ctx, clip.ID, store.ClipUpdate{Approved: &approved}); err != nil {
			s.abortWithError(c, err)
			return
		}
		pj := &models.PostJob{ClipID: clip.ID, Mode: req.Mode}
		if err := s.deps.Posts.Create(ctx, pj); err != nil {
			s.abortWithError(c, err)
			return
		}
		if err := publish.EnqueueUpload(ctx, s.deps.Jobs, pj.ID); err != nil {
			s.abortWithError(c, err)
			return
		}
		created++
	}

	s.logger.Info("Clips approved for posting",
		"video_id", videoID, "clips", created, "mode", req.Mode)
	c.JSON(http.StatusOK, gin.H{"jobs_created": created})
}

func (s *Server) listPosts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	status := models.PostStatus(c.Query("status"))
	if status != "" && !status.IsValid() {
		badRequest(c, "unknown status")
		return
	}
	posts, err := s.deps.Posts.List(c.Request.Context(), status, limit)
	if err != nil {
		s.abortWithError(c, err)
		return
	}
	if posts == nil {
		posts = []*models.PostJob{}
	}
	c.JSON(http.StatusOK, posts)
}
