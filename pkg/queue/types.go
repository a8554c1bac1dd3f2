// Package queue provides the durable, database-backed job queue and its
// worker pool. Jobs survive restarts; delivery is at-least-once, so
// handlers must be idempotent.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Sentinel errors for queue operations.
var (
	// ErrNoJobsAvailable indicates no runnable jobs are in the queue.
	ErrNoJobsAvailable = errors.New("no jobs available")

	// ErrUnknownHandler indicates a job references a handler name that
	// was never registered.
	ErrUnknownHandler = errors.New("unknown handler")
)

// JobStatus is the lifecycle state of a queued job.
type JobStatus string

// Job status constants.
const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
)

// Job is one durable unit of work. Handler names the registered function;
// Payload is its JSON argument.
type Job struct {
	ID          string
	Queue       string
	Handler     string
	Payload     json.RawMessage
	Status      JobStatus
	Attempts    int
	MaxAttempts int
	RunAt       time.Time
	ClaimedBy   string
	ClaimedAt   *time.Time
	HeartbeatAt *time.Time
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HandlerFunc processes one job payload. A non-nil error triggers the
// queue's retry policy; handlers are re-delivered, so they must tolerate
// partially applied work.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) error

// PermanentFailureFunc is invoked once when a job exhausts its attempts,
// from both the worker failure path and orphan recovery. It lets domain
// code record terminal state for the entity the job was driving.
type PermanentFailureFunc func(ctx context.Context, job *Job, execErr error)

// PoolHealth contains health information for the entire worker pool.
type PoolHealth struct {
	IsHealthy        bool           `json:"is_healthy"`
	DBReachable      bool           `json:"db_reachable"`
	DBError          string         `json:"db_error,omitempty"`
	PodID            string         `json:"pod_id"`
	ActiveWorkers    int            `json:"active_workers"`
	TotalWorkers     int            `json:"total_workers"`
	QueueDepth       int            `json:"queue_depth"`
	WorkerStats      []WorkerHealth `json:"worker_stats"`
	LastOrphanScan   time.Time      `json:"last_orphan_scan"`
	OrphansRecovered int            `json:"orphans_recovered"`
}

// WorkerHealth contains health information for a single worker.
type WorkerHealth struct {
	ID            string    `json:"id"`
	Status        string    `json:"status"` // "idle" or "working"
	CurrentJobID  string    `json:"current_job_id,omitempty"`
	JobsProcessed int       `json:"jobs_processed"`
	LastActivity  time.Time `json:"last_activity"`
}
