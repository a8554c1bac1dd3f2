package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
)

const clipColumns = `id, video_id, phase, start_seconds, end_seconds, strategy,
	transcript_pass1, transcript_pass2, words, heuristic_score, score_breakdown, keywords,
	llm_score, hook_text, reason, risk_flags, key_sentence, caption, hashtags,
	packaging_confidence, timing_offset, was_recut, approved, preview_path, thumbnail_path,
	subtitle_path, error, created_at, updated_at`

// ClipStore persists clips. All updates address clips by id; the pipeline
// never matches clips by time window.
type ClipStore struct {
	pool *pgxpool.Pool
}

// NewClipStore creates a clip repository over the given pool.
func NewClipStore(pool *pgxpool.Pool) *ClipStore {
	return &ClipStore{pool: pool}
}

// CreateBatch inserts candidate clips for a video in one transaction.
func (s *ClipStore) CreateBatch(ctx context.Context, clips []*models.Clip) error {
	if len(clips) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	now := time.Now().UTC()
	for _, c := range clips {
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		if c.Phase == "" {
			c.Phase = models.ClipCandidate
		}
		c.CreatedAt = now
		c.UpdatedAt = now

		words, breakdown, keywords, riskFlags, hashtags, err := encodeClipJSON(c)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO clips (`+clipColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
				$16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29)`,
			c.ID, c.VideoID, c.Phase, c.Start, c.End, c.Strategy,
			c.TranscriptPass1, c.TranscriptPass2, words, c.HeuristicScore, breakdown, keywords,
			c.LLMScore, c.HookText, c.Reason, riskFlags, c.KeySentence, c.Caption, hashtags,
			c.PackagingConfidence, c.TimingOffset, c.WasRecut, c.Approved, c.PreviewPath,
			c.ThumbnailPath, c.SubtitlePath, c.Error, c.CreatedAt, c.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert clip: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit clips: %w", err)
	}
	return nil
}

// GetByID returns one clip by primary key.
func (s *ClipStore) GetByID(ctx context.Context, id string) (*models.Clip, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+clipColumns+` FROM clips WHERE id = $1`, id)
	return scanClip(row)
}

// ListByVideo returns a video's clips ordered by start time, optionally
// filtered by phase.
func (s *ClipStore) ListByVideo(ctx context.Context, videoID string, phase models.ClipPhase) ([]*models.Clip, error) {
	query := `SELECT ` + clipColumns + ` FROM clips WHERE video_id = $1`
	args := []any{videoID}
	if phase != "" {
		args = append(args, phase)
		query += ` AND phase = $2`
	}
	query += ` ORDER BY start_seconds`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list clips: %w", err)
	}
	defer rows.Close()

	var clips []*models.Clip
	for rows.Next() {
		c, err := scanClip(rows)
		if err != nil {
			return nil, err
		}
		clips = append(clips, c)
	}
	return clips, rows.Err()
}

// Save writes every mutable field of the clip back by id.
func (s *ClipStore) Save(ctx context.Context, c *models.Clip) error {
	c.UpdatedAt = time.Now().UTC()
	words, breakdown, keywords, riskFlags, hashtags, err := encodeClipJSON(c)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE clips SET phase = $2, start_seconds = $3, end_seconds = $4,
			transcript_pass1 = $5, transcript_pass2 = $6, words = $7,
			heuristic_score = $8, score_breakdown = $9, keywords = $10,
			llm_score = $11, hook_text = $12, reason = $13, risk_flags = $14,
			key_sentence = $15, caption = $16, hashtags = $17, packaging_confidence = $18,
			timing_offset = $19, was_recut = $20, approved = $21,
			preview_path = $22, thumbnail_path = $23, subtitle_path = $24,
			error = $25, updated_at = $26
		WHERE id = $1`,
		c.ID, c.Phase, c.Start, c.End,
		c.TranscriptPass1, c.TranscriptPass2, words,
		c.HeuristicScore, breakdown, keywords,
		c.LLMScore, c.HookText, c.Reason, riskFlags,
		c.KeySentence, c.Caption, hashtags, c.PackagingConfidence,
		c.TimingOffset, c.WasRecut, c.Approved,
		c.PreviewPath, c.ThumbnailPath, c.SubtitlePath,
		c.Error, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save clip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("clip %s: %w", c.ID, ErrNotFound)
	}
	return nil
}

// Delete removes one clip.
func (s *ClipStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM clips WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete clip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("clip %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteUnpromoted removes the video's clips still in CANDIDATE phase.
// Called once the shortlist boundary has promoted its picks.
func (s *ClipStore) DeleteUnpromoted(ctx context.Context, videoID string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM clips WHERE video_id = $1 AND phase = $2`, videoID, models.ClipCandidate)
	if err != nil {
		return 0, fmt.Errorf("failed to delete unpromoted clips: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ClipUpdate holds the operator-editable clip fields. Nil means unchanged.
type ClipUpdate struct {
	Caption  *string
	Approved *bool
}

// UpdateEditorial applies an operator patch and returns the updated clip.
func (s *ClipStore) UpdateEditorial(ctx context.Context, id string, patch ClipUpdate) (*models.Clip, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Caption != nil {
		c.Caption = *patch.Caption
	}
	if patch.Approved != nil {
		c.Approved = *patch.Approved
	}
	if err := s.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func encodeClipJSON(c *models.Clip) (words, breakdown, keywords, riskFlags, hashtags []byte, err error) {
	if len(c.Words) > 0 {
		if words, err = json.Marshal(c.Words); err != nil {
			return nil, nil, nil, nil, nil, fmt.Errorf("failed to encode words: %w", err)
		}
	}
	if c.Breakdown != nil {
		if breakdown, err = json.Marshal(c.Breakdown); err != nil {
			return nil, nil, nil, nil, nil, fmt.Errorf("failed to encode score breakdown: %w", err)
		}
	}
	if len(c.Keywords) > 0 {
		if keywords, err = json.Marshal(c.Keywords); err != nil {
			return nil, nil, nil, nil, nil, fmt.Errorf("failed to encode keywords: %w", err)
		}
	}
	if len(c.RiskFlags) > 0 {
		if riskFlags, err = json.Marshal(c.RiskFlags); err != nil {
			return nil, nil, nil, nil, nil, fmt.Errorf("failed to encode risk flags: %w", err)
		}
	}
	if len(c.Hashtags) > 0 {
		if hashtags, err = json.Marshal(c.Hashtags); err != nil {
			return nil, nil, nil, nil, nil, fmt.Errorf("failed to encode hashtags: %w", err)
		}
	}
	return words, breakdown, keywords, riskFlags, hashtags, nil
}

func scanClip(row pgx.Row) (*models.Clip, error) {
	var c models.Clip
	var words, breakdown, keywords, riskFlags, hashtags []byte
	err := row.Scan(&c.ID, &c.VideoID, &c.Phase, &c.Start, &c.End, &c.Strategy,
		&c.TranscriptPass1, &c.TranscriptPass2, &words, &c.HeuristicScore, &breakdown, &keywords,
		&c.LLMScore, &c.HookText, &c.Reason, &riskFlags, &c.KeySentence, &c.Caption, &hashtags,
		&c.PackagingConfidence, &c.TimingOffset, &c.WasRecut, &c.Approved, &c.PreviewPath,
		&c.ThumbnailPath, &c.SubtitlePath, &c.Error, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("clip: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan clip: %w", err)
	}
	for _, dec := range []struct {
		data []byte
		dst  any
	}{
		{words, &c.Words},
		{breakdown, &c.Breakdown},
		{keywords, &c.Keywords},
		{riskFlags, &c.RiskFlags},
		{hashtags, &c.Hashtags},
	} {
		if len(dec.data) > 0 {
			if err := json.Unmarshal(dec.data, dec.dst); err != nil {
				return nil, fmt.Errorf("failed to decode clip field: %w", err)
			}
		}
	}
	return &c, nil
}
