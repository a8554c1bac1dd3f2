package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/config"
)

const jobColumns = `id, queue, handler, payload, status, attempts, max_attempts,
	run_at, claimed_by, claimed_at, heartbeat_at, last_error, created_at, updated_at`

// Store persists jobs in the jobs table.
type Store struct {
	pool *pgxpool.Pool
	cfg  config.QueuesConfig
}

// NewStore creates a job store over the given pool.
func NewStore(pool *pgxpool.Pool, cfg config.QueuesConfig) *Store {
	return &Store{pool: pool, cfg: cfg}
}

// Enqueue persists a new pending job. The payload is marshaled to JSON;
// MaxAttempts comes from the queue's policy.
func (s *Store) Enqueue(ctx context.Context, queue, handler string, payload any) (*Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job payload: %w", err)
	}
	policy := s.cfg.PolicyFor(queue)
	now := time.Now().UTC()
	job := &Job{
		ID:          uuid.New().String(),
		Queue:       queue,
		Handler:     handler,
		Payload:     data,
		Status:      StatusPending,
		MaxAttempts: policy.MaxAttempts,
		RunAt:       now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO jobs (id, queue, handler, payload, status, attempts, max_attempts,
			run_at, claimed_by, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7, '', '', $8, $9)`,
		job.ID, job.Queue, job.Handler, job.Payload, job.Status, job.MaxAttempts,
		job.RunAt, job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}
	return job, nil
}

// ClaimNext atomically claims the next runnable job using
// FOR UPDATE SKIP LOCKED. The attempt counter is consumed at claim time,
// so a crash between claim and completion costs one delivery. When the
// config names ServeQueues, only those queues are claimed from.
func (s *Store) ClaimNext(ctx context.Context, podID string) (*Job, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Order by created_at for FIFO processing within and across queues.
	query := `
		SELECT ` + jobColumns + ` FROM jobs
		WHERE status = $1 AND run_at <= now()`
	args := []any{StatusPending}
	if len(s.cfg.ServeQueues) > 0 {
		args = append(args, s.cfg.ServeQueues)
		query += fmt.Sprintf(" AND queue = ANY($%d)", len(args))
	}
	query += `
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED`

	row := tx.QueryRow(ctx, query, args...)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoJobsAvailable
		}
		return nil, fmt.Errorf("failed to query pending job: %w", err)
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `
		UPDATE jobs SET status = $2, attempts = attempts + 1, claimed_by = $3,
			claimed_at = $4, heartbeat_at = $4, updated_at = $4
		WHERE id = $1`,
		job.ID, StatusRunning, podID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit claim: %w", err)
	}

	job.Status = StatusRunning
	job.Attempts++
	job.ClaimedBy = podID
	job.ClaimedAt = &now
	job.HeartbeatAt = &now
	return job, nil
}

// Heartbeat refreshes the liveness timestamp of a running job.
func (s *Store) Heartbeat(ctx context.Context, jobID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE jobs SET heartbeat_at = now(), updated_at = now() WHERE id = $1 AND status = $2`,
		jobID, StatusRunning)
	if err != nil {
		return fmt.Errorf("failed to update heartbeat: %w", err)
	}
	return nil
}

// MarkCompleted records a successful execution.
func (s *Store) MarkCompleted(ctx context.Context, jobID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = $2, updated_at = now() WHERE id = $1`,
		jobID, StatusCompleted)
	if err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}
	return nil
}

// MarkFailedOrRetry applies the retry policy after a failed execution:
// requeue with backoff while attempts remain, terminal failure otherwise.
// Returns true if the job will be retried.
func (s *Store) MarkFailedOrRetry(ctx context.Context, job *Job, execErr error) (bool, error) {
	errMsg := ""
	if execErr != nil {
		errMsg = execErr.Error()
	}

	if job.Attempts >= job.MaxAttempts {
		_, err := s.pool.Exec(ctx, `
			UPDATE jobs SET status = $2, last_error = $3, updated_at = now()
			WHERE id = $1`,
			job.ID, StatusFailed, errMsg)
		if err != nil {
			return false, fmt.Errorf("failed to mark job failed: %w", err)
		}
		return false, nil
	}

	backoff := s.cfg.PolicyFor(job.Queue).BackoffFor(job.Attempts)
	_, err := s.pool.Exec(ctx, `
		UPDATE jobs SET status = $2, last_error = $3, run_at = $4,
			claimed_by = '', claimed_at = NULL, heartbeat_at = NULL, updated_at = now()
		WHERE id = $1`,
		job.ID, StatusPending, errMsg, time.Now().UTC().Add(backoff))
	if err != nil {
		return false, fmt.Errorf("failed to requeue job: %w", err)
	}
	return true, nil
}

// DeleteFinishedBefore removes completed and failed jobs last touched
// before the cutoff. Retention only; pending and running jobs are never
// deleted.
func (s *Store) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM jobs WHERE status IN ($1, $2) AND updated_at < $3`,
		StatusCompleted, StatusFailed, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete finished jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PendingCount returns the number of runnable jobs across all queues.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM jobs WHERE status = $1`, StatusPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending jobs: %w", err)
	}
	return count, nil
}

// ListStale returns running jobs whose heartbeat is older than the threshold.
func (s *Store) ListStale(ctx context.Context, threshold time.Time) ([]*Job, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE status = $1 AND heartbeat_at IS NOT NULL AND heartbeat_at < $2`,
		StatusRunning, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to query stale jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// ListClaimedBy returns running jobs claimed by the given pod.
func (s *Store) ListClaimedBy(ctx context.Context, podID string) ([]*Job, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs WHERE status = $1 AND claimed_by = $2`,
		StatusRunning, podID)
	if err != nil {
		return nil, fmt.Errorf("failed to query claimed jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

// GetByID returns one job by primary key.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("job %s not found", id)
	}
	return job, err
}

func collectJobs(rows pgx.Rows) ([]*Job, error) {
	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	err := row.Scan(&j.ID, &j.Queue, &j.Handler, &j.Payload, &j.Status, &j.Attempts,
		&j.MaxAttempts, &j.RunAt, &j.ClaimedBy, &j.ClaimedAt, &j.HeartbeatAt,
		&j.LastError, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}
