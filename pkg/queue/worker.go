package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/config"
)

// WorkerStatus represents the current state of a worker.
type WorkerStatus string

// Worker status constants.
const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// Worker is a single queue worker that polls for and processes jobs.
type Worker struct {
	id       string
	podID    string
	store    *Store
	config   config.QueuesConfig
	registry *Registry
	pool     JobRegistry
	// onPermanentFailure is called when a job exhausts its attempts.
	onPermanentFailure PermanentFailureFunc
	stopCh             chan struct{}
	stopOnce           sync.Once
	wg                 sync.WaitGroup

	// Health tracking
	mu            sync.RWMutex
	status        WorkerStatus
	currentJobID  string
	jobsProcessed int
	lastActivity  time.Time
}

// JobRegistry is the subset of WorkerPool used by Worker for job registration.
type JobRegistry interface {
	RegisterJob(jobID string, cancel context.CancelFunc)
	UnregisterJob(jobID string)
}

// NewWorker creates a new queue worker.
func NewWorker(id, podID string, store *Store, cfg config.QueuesConfig, registry *Registry, pool JobRegistry) *Worker {
	return &Worker{
		id:           id,
		podID:        podID,
		store:        store,
		config:       cfg,
		registry:     registry,
		pool:         pool,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker polling loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to stop and waits for it to finish.
// It is safe to call Stop multiple times.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// Health returns the current worker health status.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:            w.id,
		Status:        string(w.status),
		CurrentJobID:  w.currentJobID,
		JobsProcessed: w.jobsProcessed,
		LastActivity:  w.lastActivity,
	}
}

// run is the main worker loop.
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	log := slog.With("worker_id", w.id, "pod_id", w.podID)
	log.Info("Worker started")

	for {
		select {
		case <-w.stopCh:
			log.Info("Worker shutting down")
			return
		case <-ctx.Done():
			log.Info("Context cancelled, worker shutting down")
			return
		default:
			if err := w.pollAndProcess(ctx); err != nil {
				if errors.Is(err, ErrNoJobsAvailable) {
					w.sleep(w.pollInterval())
					continue
				}
				log.Error("Error processing job", "error", err)
				w.sleep(time.Second) // Brief backoff on error
			}
		}
	}
}

// sleep waits for the given duration or until stop is signalled.
func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.stopCh:
	case <-time.After(d):
	}
}

// pollAndProcess claims a job and runs its handler under the queue's
// timeout policy.
func (w *Worker) pollAndProcess(ctx context.Context) error {
	job, err := w.store.ClaimNext(ctx, w.podID)
	if err != nil {
		return err
	}

	log := slog.With("job_id", job.ID, "queue", job.Queue, "handler", job.Handler, "worker_id", w.id)
	log.Info("Job claimed", "attempt", job.Attempts, "max_attempts", job.MaxAttempts)

	w.setStatus(WorkerStatusWorking, job.ID)
	defer w.setStatus(WorkerStatusIdle, "")

	policy := w.config.PolicyFor(job.Queue)
	jobCtx, cancelJob := context.WithTimeout(ctx, policy.Timeout)
	defer cancelJob()

	// Register cancel function for API-triggered cancellation
	w.pool.RegisterJob(job.ID, cancelJob)
	defer w.pool.UnregisterJob(job.ID)

	heartbeatCtx, cancelHeartbeat := context.WithCancel(jobCtx)
	defer cancelHeartbeat()
	go w.runHeartbeat(heartbeatCtx, job.ID)

	execErr := w.execute(jobCtx, job)

	if execErr == nil && jobCtx.Err() != nil {
		execErr = jobCtx.Err()
	}
	if errors.Is(execErr, context.DeadlineExceeded) {
		execErr = fmt.Errorf("job timed out after %v: %w", policy.Timeout, execErr)
	}

	cancelHeartbeat()

	// Terminal status update uses a background context — the job context
	// may already be cancelled.
	if execErr != nil {
		retrying, err := w.store.MarkFailedOrRetry(context.Background(), job, execErr)
		if err != nil {
			log.Error("Failed to record job failure", "error", err)
			return err
		}
		log.Warn("Job failed", "error", execErr, "retrying", retrying)
		if !retrying && w.onPermanentFailure != nil {
			w.onPermanentFailure(context.Background(), job, execErr)
		}
	} else {
		if err := w.store.MarkCompleted(context.Background(), job.ID); err != nil {
			log.Error("Failed to mark job completed", "error", err)
			return err
		}
		log.Info("Job completed")
	}

	w.mu.Lock()
	w.jobsProcessed++
	w.mu.Unlock()

	return nil
}

// execute resolves and runs the job's handler, converting panics into errors
// so a misbehaving handler cannot take down the worker.
func (w *Worker) execute(ctx context.Context, job *Job) (err error) {
	handler, lookupErr := w.registry.Lookup(job.Handler)
	if lookupErr != nil {
		return lookupErr
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return handler(ctx, job.Payload)
}

// runHeartbeat periodically refreshes the job heartbeat for orphan detection.
func (w *Worker) runHeartbeat(ctx context.Context, jobID string) {
	ticker := time.NewTicker(w.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.store.Heartbeat(ctx, jobID); err != nil {
				slog.Warn("Heartbeat update failed", "job_id", jobID, "error", err)
			}
		}
	}
}

// pollInterval returns the poll duration with jitter.
func (w *Worker) pollInterval() time.Duration {
	base := w.config.PollInterval
	jitter := w.config.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	// Range: [base - jitter, base + jitter]
	offset := time.Duration(rand.Int63n(int64(2 * jitter)))
	return base - jitter + offset
}

// setStatus updates the worker's health tracking state.
func (w *Worker) setStatus(status WorkerStatus, jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}
