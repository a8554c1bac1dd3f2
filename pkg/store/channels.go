package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
)

const channelColumns = `id, youtube_channel_id, title, feed_url, enabled, baseline_set,
	last_seen_video_id, last_seen_published_at, clip_min_seconds, clip_max_seconds,
	target_count, last_polled_at, created_at, updated_at`

// ChannelStore persists subscribed channels.
type ChannelStore struct {
	pool *pgxpool.Pool
}

// NewChannelStore creates a channel repository over the given pool.
func NewChannelStore(pool *pgxpool.Pool) *ChannelStore {
	return &ChannelStore{pool: pool}
}

// Create inserts a new channel. The clip length policy must satisfy min < max;
// a zero target count falls back to the default of 4 clips per video.
func (s *ChannelStore) Create(ctx context.Context, ch *models.Channel) error {
	if ch.YoutubeChannel == "" {
		return NewValidationError("youtube_channel_id", "is required")
	}
	if ch.ClipMinSeconds >= ch.ClipMaxSeconds {
		return NewValidationError("clip_min_seconds", "must be less than clip_max_seconds")
	}
	if ch.TargetCount < 0 {
		return NewValidationError("target_count", "must be positive")
	}
	if ch.TargetCount == 0 {
		ch.TargetCount = 4
	}
	if ch.ID == "" {
		ch.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	ch.CreatedAt = now
	ch.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO channels (id, youtube_channel_id, title, feed_url, enabled, baseline_set,
			last_seen_video_id, last_seen_published_at, clip_min_seconds, clip_max_seconds,
			target_count, last_polled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		ch.ID, ch.YoutubeChannel, ch.Title, ch.FeedURL, ch.Enabled, ch.BaselineSet,
		ch.LastSeenVideoID, ch.LastSeenPublishedAt, ch.ClipMinSeconds, ch.ClipMaxSeconds,
		ch.TargetCount, ch.LastPolledAt, ch.CreatedAt, ch.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("channel %s: %w", ch.YoutubeChannel, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create channel: %w", err)
	}
	return nil
}

// GetByID returns one channel by primary key.
func (s *ChannelStore) GetByID(ctx context.Context, id string) (*models.Channel, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = $1`, id)
	return scanChannel(row)
}

// GetByYoutubeID returns one channel by its YouTube channel id.
func (s *ChannelStore) GetByYoutubeID(ctx context.Context, youtubeID string) (*models.Channel, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels WHERE youtube_channel_id = $1`, youtubeID)
	return scanChannel(row)
}

// List returns all channels, optionally filtered to enabled ones.
func (s *ChannelStore) List(ctx context.Context, enabledOnly bool) ([]*models.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels ORDER BY created_at`
	if enabledOnly {
		query = `SELECT ` + channelColumns + ` FROM channels WHERE enabled ORDER BY created_at`
	}
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var channels []*models.Channel
	for rows.Next() {
		ch, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// ChannelUpdate holds the operator-editable channel fields. Nil means unchanged.
type ChannelUpdate struct {
	Title          *string
	Enabled        *bool
	ClipMinSeconds *float64
	ClipMaxSeconds *float64
	TargetCount    *int
}

// Update applies an editorial patch and returns the updated channel.
func (s *ChannelStore) Update(ctx context.Context, id string, patch ChannelUpdate) (*models.Channel, error) {
	ch, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		ch.Title = *patch.Title
	}
	if patch.Enabled != nil {
		ch.Enabled = *patch.Enabled
	}
	if patch.ClipMinSeconds != nil {
		ch.ClipMinSeconds = *patch.ClipMinSeconds
	}
	if patch.ClipMaxSeconds != nil {
		ch.ClipMaxSeconds = *patch.ClipMaxSeconds
	}
	if patch.TargetCount != nil {
		ch.TargetCount = *patch.TargetCount
	}
	if ch.ClipMinSeconds >= ch.ClipMaxSeconds {
		return nil, NewValidationError("clip_min_seconds", "must be less than clip_max_seconds")
	}
	if ch.TargetCount <= 0 {
		return nil, NewValidationError("target_count", "must be positive")
	}
	ch.UpdatedAt = time.Now().UTC()

	tag, err := s.pool.Exec(ctx, `
		UPDATE channels SET title = $2, enabled = $3, clip_min_seconds = $4,
			clip_max_seconds = $5, target_count = $6, updated_at = $7
		WHERE id = $1`,
		ch.ID, ch.Title, ch.Enabled, ch.ClipMinSeconds, ch.ClipMaxSeconds,
		ch.TargetCount, ch.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update channel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("channel %s: %w", id, ErrNotFound)
	}
	return ch, nil
}

// AdvanceBaseline moves the forward-only baseline to the given video id
// and publication time. The baseline only records newer entries; callers
// must pass the newest feed entry, never an older one.
func (s *ChannelStore) AdvanceBaseline(ctx context.Context, id, lastSeenVideoID string, publishedAt *time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE channels SET baseline_set = TRUE, last_seen_video_id = $2,
			last_seen_published_at = $3, updated_at = now()
		WHERE id = $1`,
		id, lastSeenVideoID, publishedAt)
	if err != nil {
		return fmt.Errorf("failed to advance baseline: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("channel %s: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes a channel. Its videos, clips and post jobs cascade away
// with it.
func (s *ChannelStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("channel %s: %w", id, ErrNotFound)
	}
	return nil
}

// TouchPolled records the time of the latest poll.
func (s *ChannelStore) TouchPolled(ctx context.Context, id string, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE channels SET last_polled_at = $2, updated_at = now() WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("failed to record poll time: %w", err)
	}
	return nil
}

func scanChannel(row pgx.Row) (*models.Channel, error) {
	var ch models.Channel
	err := row.Scan(&ch.ID, &ch.YoutubeChannel, &ch.Title, &ch.FeedURL, &ch.Enabled,
		&ch.BaselineSet, &ch.LastSeenVideoID, &ch.LastSeenPublishedAt,
		&ch.ClipMinSeconds, &ch.ClipMaxSeconds, &ch.TargetCount,
		&ch.LastPolledAt, &ch.CreatedAt, &ch.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("channel: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan channel: %w", err)
	}
	return &ch, nil
}
