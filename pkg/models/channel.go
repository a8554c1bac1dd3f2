package models

import "time"

// Channel is a subscribed YouTube channel whose RSS feed is polled for new uploads.
//
// LastSeenVideoID is the forward-only baseline: the poller never processes
// entries at or before it, and only advances it, so restarts and feed reorder
// cannot resurface old uploads.
type Channel struct {
	ID              string `json:"id"`
	YoutubeChannel  string `json:"youtube_channel_id"`
	Title           string `json:"title"`
	FeedURL         string `json:"feed_url"`
	Enabled         bool   `json:"enabled"`
	BaselineSet     bool   `json:"baseline_set"`
	LastSeenVideoID string `json:"last_seen_video_id,omitempty"`
	// LastSeenPublishedAt guards against feeds that reorder entries: even
	// when the baseline video id is missing from the feed, anything
	// published at or before this instant is skipped.
	LastSeenPublishedAt *time.Time `json:"last_seen_published_at,omitempty"`
	ClipMinSeconds      float64    `json:"clip_min_seconds"`
	ClipMaxSeconds      float64    `json:"clip_max_seconds"`
	// TargetCount is how many clips a video from this channel should end
	// up with after the shortlist.
	TargetCount  int        `json:"target_count"`
	LastPolledAt *time.Time `json:"last_polled_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
