package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// orphanState tracks orphan detection metrics (thread-safe).
type orphanState struct {
	mu               sync.Mutex
	lastOrphanScan   time.Time
	orphansRecovered int
}

// runOrphanDetection periodically scans for orphaned jobs.
// All pods run this independently — operations are idempotent.
func (p *WorkerPool) runOrphanDetection(ctx context.Context) {
	ticker := time.NewTicker(p.config.OrphanDetectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.detectAndRecoverOrphans(ctx); err != nil {
				slog.Error("Orphan detection failed", "error", err)
			}
		}
	}
}

// detectAndRecoverOrphans finds running jobs with stale heartbeats and
// requeues them. The claim already consumed an attempt, so a job that
// keeps orphaning eventually exhausts its attempts and fails.
func (p *WorkerPool) detectAndRecoverOrphans(ctx context.Context) error {
	threshold := time.Now().Add(-p.config.OrphanThreshold)

	orphans, err := p.store.ListStale(ctx, threshold)
	if err != nil {
		return fmt.Errorf("failed to query orphaned jobs: %w", err)
	}

	if len(orphans) == 0 {
		p.orphans.mu.Lock()
		p.orphans.lastOrphanScan = time.Now()
		p.orphans.mu.Unlock()
		return nil
	}

	slog.Warn("Detected orphaned jobs", "count", len(orphans))

	recovered := 0
	for _, job := range orphans {
		lastHeartbeat := "unknown"
		if job.HeartbeatAt != nil {
			lastHeartbeat = job.HeartbeatAt.Format(time.RFC3339)
		}
		orphanErr := fmt.Errorf("orphaned: no heartbeat from pod %s since %s", job.ClaimedBy, lastHeartbeat)

		retrying, err := p.store.MarkFailedOrRetry(ctx, job, orphanErr)
		if err != nil {
			slog.Error("Failed to recover orphaned job",
				"job_id", job.ID,
				"error", err)
			continue
		}
		slog.Warn("Orphaned job recovered",
			"job_id", job.ID,
			"old_pod_id", job.ClaimedBy,
			"last_heartbeat", lastHeartbeat,
			"retrying", retrying)
		if !retrying && p.failureHook != nil {
			p.failureHook(ctx, job, orphanErr)
		}
		recovered++
	}

	p.orphans.mu.Lock()
	p.orphans.lastOrphanScan = time.Now()
	p.orphans.orphansRecovered += recovered
	p.orphans.mu.Unlock()

	return nil
}

// CleanupStartupOrphans performs a one-time cleanup of jobs claimed by this
// pod that were running when the pod previously crashed.
// Called once during startup, before the worker pool begins processing.
// onPermanentFailure may be nil.
func CleanupStartupOrphans(ctx context.Context, store *Store, podID string, onPermanentFailure PermanentFailureFunc) error {
	orphans, err := store.ListClaimedBy(ctx, podID)
	if err != nil {
		return fmt.Errorf("failed to query startup orphans: %w", err)
	}

	if len(orphans) == 0 {
		return nil
	}

	slog.Warn("Found startup orphans from previous run",
		"pod_id", podID,
		"count", len(orphans))

	for _, job := range orphans {
		orphanErr := fmt.Errorf("orphaned: pod %s restarted while job was running", podID)
		retrying, err := store.MarkFailedOrRetry(ctx, job, orphanErr)
		if err != nil {
			slog.Error("Failed to recover startup orphan",
				"job_id", job.ID,
				"error", err)
			continue
		}
		slog.Info("Startup orphan recovered", "job_id", job.ID, "retrying", retrying)
		if !retrying && onPermanentFailure != nil {
			onPermanentFailure(ctx, job, orphanErr)
		}
	}

	return nil
}
