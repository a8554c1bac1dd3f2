package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/models"
)

const postJobColumns = `id, clip_id, mode, status, external_ref, error, attempts,
	posted_at, created_at, updated_at`

// PostJobStore persists publishing jobs for approved clips.
type PostJobStore struct {
	pool *pgxpool.Pool
}

// NewPostJobStore creates a post job repository over the given pool.
func NewPostJobStore(pool *pgxpool.Pool) *PostJobStore {
	return &PostJobStore{pool: pool}
}

// Create inserts a new post job in status QUEUED.
func (s *PostJobStore) Create(ctx context.Context, pj *models.PostJob) error {
	if pj.ClipID == "" {
		return NewValidationError("clip_id", "is required")
	}
	if !pj.Mode.IsValid() {
		return NewValidationError("mode", fmt.Sprintf("unknown mode %q", pj.Mode))
	}
	if pj.ID == "" {
		pj.ID = uuid.New().String()
	}
	if pj.Status == "" {
		pj.Status = models.PostQueued
	}
	now := time.Now().UTC()
	pj.CreatedAt = now
	pj.UpdatedAt = now

	_, err := s.pool.Exec(ctx, `
		INSERT INTO post_jobs (`+postJobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		pj.ID, pj.ClipID, pj.Mode, pj.Status, pj.ExternalRef, pj.Error, pj.Attempts,
		pj.PostedAt, pj.CreatedAt, pj.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create post job: %w", err)
	}
	return nil
}

// GetByID returns one post job by primary key.
func (s *PostJobStore) GetByID(ctx context.Context, id string) (*models.PostJob, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+postJobColumns+` FROM post_jobs WHERE id = $1`, id)
	return scanPostJob(row)
}

// List returns post jobs newest-first, optionally filtered by status.
func (s *PostJobStore) List(ctx context.Context, status models.PostStatus, limit int) ([]*models.PostJob, error) {
	query := `SELECT ` + postJobColumns + ` FROM post_jobs WHERE TRUE`
	args := []any{}
	if status != "" {
		args = append(args, status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list post jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.PostJob
	for rows.Next() {
		pj, err := scanPostJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, pj)
	}
	return jobs, rows.Err()
}

// SetStatus updates the status walk of a post job.
func (s *PostJobStore) SetStatus(ctx context.Context, id string, status models.PostStatus, externalRef, errMsg string) error {
	var postedAt *time.Time
	if status == models.PostPosted {
		now := time.Now().UTC()
		postedAt = &now
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE post_jobs SET status = $2, external_ref = $3, error = $4,
			posted_at = COALESCE($5, posted_at), updated_at = now()
		WHERE id = $1`,
		id, status, externalRef, errMsg, postedAt)
	if err != nil {
		return fmt.Errorf("failed to set post job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("post job %s: %w", id, ErrNotFound)
	}
	return nil
}

// IncrementAttempts bumps the attempt counter before an upload try.
func (s *PostJobStore) IncrementAttempts(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE post_jobs SET attempts = attempts + 1, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment post job attempts: %w", err)
	}
	return nil
}

func scanPostJob(row pgx.Row) (*models.PostJob, error) {
	var pj models.PostJob
	err := row.Scan(&pj.ID, &pj.ClipID, &pj.Mode, &pj.Status, &pj.ExternalRef, &pj.Error,
		&pj.Attempts, &pj.PostedAt, &pj.CreatedAt, &pj.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("post job: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan post job: %w", err)
	}
	return &pj, nil
}
