package config

import (
	"os"
	"strings"
	"time"
)

// Queue names. Jobs are partitioned by workload so each class can be
// scaled independently.
const (
	QueueIO     = "io"
	QueueAI     = "ai"
	QueueRender = "render"
)

// QueuePolicy is the retry and timeout policy for one queue.
type QueuePolicy struct {
	// Name identifies the queue in the jobs table.
	Name string
	// Timeout is the maximum time one job execution may take.
	Timeout time.Duration
	// MaxAttempts is the total number of deliveries before a job is
	// marked failed (first attempt included).
	MaxAttempts int
	// Backoff holds the delay before each retry; the last entry repeats
	// when attempts outnumber entries.
	Backoff []time.Duration
}

// BackoffFor returns the delay before the retry following the given
// attempt number (1-based).
func (p QueuePolicy) BackoffFor(attempt int) time.Duration {
	if len(p.Backoff) == 0 {
		return 30 * time.Second
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(p.Backoff) {
		idx = len(p.Backoff) - 1
	}
	return p.Backoff[idx]
}

// QueuesConfig contains worker pool settings and the per-queue policies.
type QueuesConfig struct {
	// WorkerCount is the number of worker goroutines per pod.
	WorkerCount int
	// PollInterval is the base interval for checking pending jobs.
	PollInterval time.Duration
	// PollIntervalJitter is the random jitter added to PollInterval.
	PollIntervalJitter time.Duration
	// HeartbeatInterval is how often a worker refreshes the heartbeat of
	// its running job.
	HeartbeatInterval time.Duration
	// OrphanDetectionInterval is how often to scan for orphaned jobs.
	OrphanDetectionInterval time.Duration
	// OrphanThreshold is how long a running job can go without a
	// heartbeat before it is considered orphaned.
	OrphanThreshold time.Duration
	// GracefulShutdownTimeout is the max time to wait for active jobs
	// to complete during shutdown.
	GracefulShutdownTimeout time.Duration
	// ServeQueues limits which queues this process claims from.
	// Empty means all queues.
	ServeQueues []string

	IO     QueuePolicy
	AI     QueuePolicy
	Render QueuePolicy
}

// PolicyFor returns the policy for the named queue, defaulting to the IO
// policy for unknown names.
func (c QueuesConfig) PolicyFor(queue string) QueuePolicy {
	switch queue {
	case c.AI.Name:
		return c.AI
	case c.Render.Name:
		return c.Render
	default:
		return c.IO
	}
}

// DefaultQueuesConfig returns the built-in queue defaults.
//
// The AI queue gets more attempts because LLM providers rate-limit;
// render retries are capped low because render failures usually need a
// manual fix.
func DefaultQueuesConfig() QueuesConfig {
	return QueuesConfig{
		WorkerCount:             5,
		PollInterval:            1 * time.Second,
		PollIntervalJitter:      500 * time.Millisecond,
		HeartbeatInterval:       30 * time.Second,
		OrphanDetectionInterval: 1 * time.Minute,
		OrphanThreshold:         5 * time.Minute,
		GracefulShutdownTimeout: 10 * time.Minute,
		IO: QueuePolicy{
			Name:        QueueIO,
			Timeout:     600 * time.Second,
			MaxAttempts: 3,
			Backoff:     []time.Duration{30 * time.Second, 60 * time.Second, 120 * time.Second},
		},
		AI: QueuePolicy{
			Name:        QueueAI,
			Timeout:     3600 * time.Second,
			MaxAttempts: 5,
			Backoff:     []time.Duration{30 * time.Second, 60 * time.Second, 120 * time.Second, 120 * time.Second, 120 * time.Second},
		},
		Render: QueuePolicy{
			Name:        QueueRender,
			Timeout:     1800 * time.Second,
			MaxAttempts: 2,
			Backoff:     []time.Duration{30 * time.Second, 60 * time.Second},
		},
	}
}

// LoadQueuesConfig reads queue settings from the environment on top of
// the defaults. Queue names are overridable so multiple deployments can
// share one database.
func LoadQueuesConfig() QueuesConfig {
	cfg := DefaultQueuesConfig()
	cfg.WorkerCount = getEnvInt("WORKER_COUNT", cfg.WorkerCount)
	if serve := os.Getenv("WORKER_QUEUES"); serve != "" {
		for _, name := range strings.Split(serve, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.ServeQueues = append(cfg.ServeQueues, name)
			}
		}
	}
	cfg.IO.Name = getEnvOrDefault("QUEUE_IO_NAME", cfg.IO.Name)
	cfg.AI.Name = getEnvOrDefault("QUEUE_AI_NAME", cfg.AI.Name)
	cfg.Render.Name = getEnvOrDefault("QUEUE_RENDER_NAME", cfg.Render.Name)
	return cfg
}
