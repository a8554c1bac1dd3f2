package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
)

const videoColumns = `id, channel_id, source, youtube_video_id, url, title, published_at,
	phase, progress, error, duration_seconds, chapters, strategy,
	clip_min_seconds, clip_max_seconds, max_clips, created_at, updated_at`

// VideoStore persists videos and their pipeline state.
type VideoStore struct {
	pool *pgxpool.Pool
}

// NewVideoStore creates a video repository over the given pool.
func NewVideoStore(pool *pgxpool.Pool) *VideoStore {
	return &VideoStore{pool: pool}
}

// Create inserts a new video in phase NEW.
func (s *VideoStore) Create(ctx context.Context, v *models.Video) error {
	if v.YoutubeVideoID == "" {
		return NewValidationError("youtube_video_id", "is required")
	}
	if !v.Source.IsValid() {
		return NewValidationError("source", fmt.Sprintf("unknown source %q", v.Source))
	}
	if err := validateClipOverrides(v); err != nil {
		return err
	}
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	if v.Phase == "" {
		v.Phase = models.PhaseNew
	}
	now := time.Now().UTC()
	v.CreatedAt = now
	v.UpdatedAt = now

	chapters, err := marshalJSON(v.Chapters)
	if err != nil {
		return fmt.Errorf("failed to encode chapters: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO videos (id, channel_id, source, youtube_video_id, url, title, published_at,
			phase, progress, error, duration_seconds, chapters, strategy,
			clip_min_seconds, clip_max_seconds, max_clips, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		v.ID, v.ChannelID, v.Source, v.YoutubeVideoID, v.URL, v.Title, v.PublishedAt,
		v.Phase, v.Progress, v.Error, v.Duration, chapters, v.Strategy,
		v.ClipMinSeconds, v.ClipMaxSeconds, v.MaxClips, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("video %s: %w", v.YoutubeVideoID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create video: %w", err)
	}
	return nil
}

// GetByID returns one video by primary key.
func (s *VideoStore) GetByID(ctx context.Context, id string) (*models.Video, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id)
	return scanVideo(row)
}

// ExistsByYoutubeID reports whether a video with the given external id exists.
func (s *VideoStore) ExistsByYoutubeID(ctx context.Context, youtubeVideoID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM videos WHERE youtube_video_id = $1)`, youtubeVideoID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check video existence: %w", err)
	}
	return exists, nil
}

// VideoFilters contains filtering options for listing videos.
type VideoFilters struct {
	ChannelID string
	Phase     models.VideoPhase
	Limit     int
	Offset    int
}

// List returns videos newest-first with optional filters.
func (s *VideoStore) List(ctx context.Context, f VideoFilters) ([]*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE TRUE`
	args := []any{}
	if f.ChannelID != "" {
		args = append(args, f.ChannelID)
		query += fmt.Sprintf(" AND channel_id = $%d", len(args))
	}
	if f.Phase != "" {
		args = append(args, f.Phase)
		query += fmt.Sprintf(" AND phase = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// SetPhase moves the video to the given phase and progress.
func (s *VideoStore) SetPhase(ctx context.Context, id string, phase models.VideoPhase, progress int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE videos SET phase = $2, progress = $3, updated_at = now() WHERE id = $1`,
		id, phase, progress)
	if err != nil {
		return fmt.Errorf("failed to set video phase: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	return nil
}

// SetError moves the video to ERROR with the failure message.
func (s *VideoStore) SetError(ctx context.Context, id string, errMsg string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE videos SET phase = $2, error = $3, updated_at = now() WHERE id = $1`,
		id, models.PhaseError, errMsg)
	if err != nil {
		return fmt.Errorf("failed to set video error: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	return nil
}

// VideoUpdate holds the per-video clip policy overrides. Nil means unchanged.
type VideoUpdate struct {
	ClipMinSeconds *float64
	ClipMaxSeconds *float64
	MaxClips       *int
}

// UpdateOverrides applies a clip policy patch and returns the updated video.
func (s *VideoStore) UpdateOverrides(ctx context.Context, id string, patch VideoUpdate) (*models.Video, error) {
	v, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.ClipMinSeconds != nil {
		v.ClipMinSeconds = patch.ClipMinSeconds
	}
	if patch.ClipMaxSeconds != nil {
		v.ClipMaxSeconds = patch.ClipMaxSeconds
	}
	if patch.MaxClips != nil {
		v.MaxClips = patch.MaxClips
	}
	if err := validateClipOverrides(v); err != nil {
		return nil, err
	}
	v.UpdatedAt = time.Now().UTC()

	tag, err := s.pool.Exec(ctx, `
		UPDATE videos SET clip_min_seconds = $2, clip_max_seconds = $3, max_clips = $4,
			updated_at = $5
		WHERE id = $1`,
		v.ID, v.ClipMinSeconds, v.ClipMaxSeconds, v.MaxClips, v.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update video overrides: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	return v, nil
}

func validateClipOverrides(v *models.Video) error {
	if v.ClipMinSeconds != nil && *v.ClipMinSeconds <= 0 {
		return NewValidationError("clip_min_seconds", "must be positive")
	}
	if v.ClipMaxSeconds != nil && *v.ClipMaxSeconds <= 0 {
		return NewValidationError("clip_max_seconds", "must be positive")
	}
	if v.ClipMinSeconds != nil && v.ClipMaxSeconds != nil && *v.ClipMinSeconds >= *v.ClipMaxSeconds {
		return NewValidationError("clip_min_seconds", "must be less than clip_max_seconds")
	}
	if v.MaxClips != nil && *v.MaxClips <= 0 {
		return NewValidationError("max_clips", "must be positive")
	}
	return nil
}

// SetProbeResult persists duration, chapters and the chosen strategy.
func (s *VideoStore) SetProbeResult(ctx context.Context, id string, duration float64, chapters []models.Chapter, strategy models.Strategy) error {
	data, err := marshalJSON(chapters)
	if err != nil {
		return fmt.Errorf("failed to encode chapters: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE videos SET duration_seconds = $2, chapters = $3, strategy = $4, updated_at = now()
		WHERE id = $1`,
		id, duration, data, strategy)
	if err != nil {
		return fmt.Errorf("failed to persist probe result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("video %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanVideo(row pgx.Row) (*models.Video, error) {
	var v models.Video
	var chapters []byte
	err := row.Scan(&v.ID, &v.ChannelID, &v.Source, &v.YoutubeVideoID, &v.URL, &v.Title,
		&v.PublishedAt, &v.Phase, &v.Progress, &v.Error, &v.Duration, &chapters,
		&v.Strategy, &v.ClipMinSeconds, &v.ClipMaxSeconds, &v.MaxClips,
		&v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("video: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan video: %w", err)
	}
	if len(chapters) > 0 {
		if err := json.Unmarshal(chapters, &v.Chapters); err != nil {
			return nil, fmt.Errorf("failed to decode chapters: %w", err)
		}
	}
	return &v, nil
}

// marshalJSON encodes a value for a JSONB column, mapping empty slices to NULL.
func marshalJSON(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case []models.Chapter:
		if len(val) == 0 {
			return nil, nil
		}
	case []models.WordTiming:
		if len(val) == 0 {
			return nil, nil
		}
	case []string:
		if len(val) == 0 {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
