package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/config"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/store"
)

// ChannelStore is the channel persistence the poller needs.
type ChannelStore interface {
	List(ctx context.Context, enabledOnly bool) ([]*models.Channel, error)
	GetByID(ctx context.Context, id string) (*models.Channel, error)
	AdvanceBaseline(ctx context.Context, id, lastSeenVideoID string, publishedAt *time.Time) error
	TouchPolled(ctx context.Context, id string, at time.Time) error
}

// VideoStore is the video persistence the poller needs.
type VideoStore interface {
	Create(ctx context.Context, v *models.Video) error
	ExistsByYoutubeID(ctx context.Context, youtubeVideoID string) (bool, error)
}

// Starter kicks off the pipeline for a newly created video.
type Starter interface {
	EnqueueProbe(ctx context.Context, videoID string) error
}

// Poller walks channel feeds on a fixed interval and enqueues new uploads.
type Poller struct {
	channels ChannelStore
	videos   VideoStore
	fetcher  Fetcher
	starter  Starter
	cfg      config.FeedConfig
	logger   *slog.Logger
}

// NewPoller creates the feed poller.
func NewPoller(channels ChannelStore, videos VideoStore, fetcher Fetcher, starter Starter, cfg config.FeedConfig, logger *slog.Logger) *Poller {
	return &Poller{
		channels: channels,
		videos:   videos,
		fetcher:  fetcher,
		starter:  starter,
		cfg:      cfg,
		logger:   logger.With("component", "feed"),
	}
}

// Run polls until the context is cancelled. One tick runs immediately.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("Feed poller started", "interval", p.cfg.PollInterval)
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	p.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Feed poller stopped")
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick polls every enabled channel once. A failing channel is logged and
// skipped; it never blocks the others.
func (p *Poller) Tick(ctx context.Context) {
	channels, err := p.channels.List(ctx, true)
	if err != nil {
		p.logger.Error("Failed to list channels", "error", err)
		return
	}
	for _, ch := range channels {
		if err := p.pollChannel(ctx, ch); err != nil {
			p.logger.Error("Channel poll failed",
				"channel_id", ch.ID, "title", ch.Title, "error", err)
		}
	}
}

// pollChannel applies the forward-only walk to one channel's feed.
func (p *Poller) pollChannel(ctx context.Context, ch *models.Channel) error {
	entries, err := p.fetcher.Fetch(ctx, ch.FeedURL)
	if err != nil {
		return err
	}
	if err := p.channels.TouchPolled(ctx, ch.ID, time.Now().UTC()); err != nil {
		p.logger.Warn("Failed to record poll time", "channel_id", ch.ID, "error", err)
	}
	if len(entries) == 0 {
		return nil
	}

	// First successful poll: record the newest entry as the baseline and
	// process nothing. Everything older than this moment stays untouched.
	if !ch.BaselineSet {
		newest := entries[0]
		if err := p.channels.AdvanceBaseline(ctx, ch.ID, newest.VideoID, newest.PublishedAt); err != nil {
			return err
		}
		p.logger.Info("Baseline set",
			"channel_id", ch.ID, "title", ch.Title, "last_seen", newest.VideoID)
		return nil
	}

	newEntries, err := p.collectNew(ctx, ch, entries)
	if err != nil {
		return err
	}
	for _, entry := range newEntries {
		if err := p.ingest(ctx, ch, entry); err != nil {
			return err
		}
	}
	if len(newEntries) > 0 {
		newest := newEntries[0]
		if err := p.channels.AdvanceBaseline(ctx, ch.ID, newest.VideoID, newest.PublishedAt); err != nil {
			return err
		}
		p.logger.Info("Poll complete",
			"channel_id", ch.ID, "title", ch.Title, "new_videos", len(newEntries))
	}
	return nil
}

// collectNew walks entries newest-first and keeps those strictly newer
// than the baseline and not already ingested. The walk stops at the
// baseline video id since the feed is sorted newest-first.
func (p *Poller) collectNew(ctx context.Context, ch *models.Channel, entries []Entry) ([]Entry, error) {
	var out []Entry
	for _, entry := range entries {
		if entry.VideoID == ch.LastSeenVideoID {
			break
		}
		if ch.LastSeenPublishedAt != nil && entry.PublishedAt != nil &&
			!entry.PublishedAt.After(*ch.LastSeenPublishedAt) {
			continue
		}
		exists, err := p.videos.ExistsByYoutubeID(ctx, entry.VideoID)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

// ingest creates the video and starts its pipeline. A concurrent insert
// of the same video id is treated as already ingested.
func (p *Poller) ingest(ctx context.Context, ch *models.Channel, entry Entry) error {
	video := &models.Video{
		ChannelID:      &ch.ID,
		Source:         models.SourceFeed,
		YoutubeVideoID: entry.VideoID,
		Title:          entry.Title,
		PublishedAt:    entry.PublishedAt,
	}
	if err := p.videos.Create(ctx, video); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil
		}
		return err
	}
	p.logger.Info("New video detected",
		"channel_id", ch.ID, "video_id", video.ID, "title", entry.Title)
	return p.starter.EnqueueProbe(ctx, video.ID)
}

// Backfill ingests up to count of the newest feed entries for one channel,
// regardless of the baseline. The baseline is never moved, so the next
// poll behaves exactly as if the backfill had not happened.
func (p *Poller) Backfill(ctx context.Context, channelID string, count int) (int, error) {
	if count <= 0 || count > p.cfg.BackfillLimit {
		count = p.cfg.BackfillLimit
	}
	ch, err := p.channels.GetByID(ctx, channelID)
	if err != nil {
		return 0, err
	}
	entries, err := p.fetcher.Fetch(ctx, ch.FeedURL)
	if err != nil {
		return 0, err
	}
	if len(entries) > count {
		entries = entries[:count]
	}

	processed := 0
	for _, entry := range entries {
		exists, err := p.videos.ExistsByYoutubeID(ctx, entry.VideoID)
		if err != nil {
			return processed, err
		}
		if exists {
			continue
		}
		if err := p.ingest(ctx, ch, entry); err != nil {
			return processed, err
		}
		processed++
	}
	p.logger.Info("Backfill complete",
		"channel_id", ch.ID, "requested", count, "processed", processed)
	return processed, nil
}

// SeedBaseline fetches the feed once for a just-created channel and seeds
// the baseline from its newest entry. With processLatest the newest entry
// is also ingested, so a new subscription can start with one video.
func (p *Poller) SeedBaseline(ctx context.Context, ch *models.Channel, processLatest bool) error {
	entries, err := p.fetcher.Fetch(ctx, ch.FeedURL)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	newest := entries[0]
	if err := p.channels.AdvanceBaseline(ctx, ch.ID, newest.VideoID, newest.PublishedAt); err != nil {
		return err
	}
	ch.BaselineSet = true
	ch.LastSeenVideoID = newest.VideoID
	ch.LastSeenPublishedAt = newest.PublishedAt
	if processLatest {
		return p.ingest(ctx, ch, newest)
	}
	return nil
}

// SubmitOptions carries optional per-video clip policy overrides for a
// manual submission. Nil fields fall back to the process defaults.
type SubmitOptions struct {
	ClipMinSeconds *float64
	ClipMaxSeconds *float64
	MaxClips       *int
}

// Submit ingests an operator-submitted video URL or id outside of any
// channel subscription.
func (p *Poller) Submit(ctx context.Context, urlOrID string, opts SubmitOptions) (*models.Video, error) {
	youtubeID, err := ExtractVideoID(urlOrID)
	if err != nil {
		return nil, err
	}
	exists, err := p.videos.ExistsByYoutubeID(ctx, youtubeID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("video %s: %w", youtubeID, store.ErrAlreadyExists)
	}

	video := &models.Video{
		Source:         models.SourceManual,
		YoutubeVideoID: youtubeID,
		ClipMinSeconds: opts.ClipMinSeconds,
		ClipMaxSeconds: opts.ClipMaxSeconds,
		MaxClips:       opts.MaxClips,
	}
	if err := p.videos.Create(ctx, video); err != nil {
		return nil, err
	}
	p.logger.Info("Manual video submitted", "video_id", video.ID, "youtube_video_id", youtubeID)
	if err := p.starter.EnqueueProbe(ctx, video.ID); err != nil {
		return nil, err
	}
	return video, nil
}
