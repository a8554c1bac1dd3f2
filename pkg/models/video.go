package models

import "time"

// Chapter is a creator-provided chapter marker from video metadata.
// Times are seconds from the start of the video.
type Chapter struct {
	Title string  `json:"title"`
	Start float64 `json:"start_time"`
	End   float64 `json:"end_time"`
}

// Video is one source video moving through the pipeline.
//
// ChannelID is nil for operator-submitted videos (Source == SourceManual).
type Video struct {
	ID             string      `json:"id"`
	ChannelID      *string     `json:"channel_id,omitempty"`
	Source         VideoSource `json:"source"`
	YoutubeVideoID string      `json:"youtube_video_id"`
	URL            string      `json:"url"`
	Title          string      `json:"title"`
	PublishedAt    *time.Time  `json:"published_at,omitempty"`
	Phase          VideoPhase  `json:"phase"`
	Progress       int         `json:"progress"`
	Error          string      `json:"error,omitempty"`
	Duration       float64     `json:"duration_seconds"`
	Chapters       []Chapter   `json:"chapters,omitempty"`
	Strategy       Strategy    `json:"strategy,omitempty"`
	// Per-video clip policy overrides. Nil falls back to the channel
	// policy, then the process defaults.
	ClipMinSeconds *float64  `json:"clip_min_seconds,omitempty"`
	ClipMaxSeconds *float64  `json:"clip_max_seconds,omitempty"`
	MaxClips       *int      `json:"max_clips,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// WatchURL returns the canonical YouTube URL for the video.
func (v *Video) WatchURL() string {
	if v.URL != "" {
		return v.URL
	}
	return "https://www.youtube.com/watch?v=" + v.YoutubeVideoID
}
