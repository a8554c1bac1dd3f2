// Package config loads all pipeline configuration from the environment.
//
// One Config value is built at process start and passed into constructors;
// nothing reads the environment after startup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the complete runtime configuration for the pipeline.
type Config struct {
	HTTPPort   int
	PodID      string
	MediaDir   string
	ClipsDir   string
	Queues     QueuesConfig
	Candidates CandidateConfig
	LLM        LLMConfig
	Whisper    WhisperConfig
	Render     RenderConfig
	Feed       FeedConfig
	Retention  RetentionConfig
}

// Load builds the full configuration from environment variables,
// falling back to defaults for anything unset.
func Load() (*Config, error) {
	port, err := strconv.Atoi(getEnvOrDefault("HTTP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid HTTP_PORT: %w", err)
	}

	podID := os.Getenv("POD_ID")
	if podID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("POD_ID not set and hostname unavailable: %w", err)
		}
		podID = hostname
	}

	llm, err := LoadLLMConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		HTTPPort:   port,
		PodID:      podID,
		MediaDir:   getEnvOrDefault("MEDIA_DIR", "/tmp/clipper/media"),
		ClipsDir:   getEnvOrDefault("CLIPS_DIR", "/tmp/clipper/clips"),
		Queues:     LoadQueuesConfig(),
		Candidates: LoadCandidateConfig(),
		LLM:        llm,
		Whisper:    LoadWhisperConfig(),
		Render:     LoadRenderConfig(),
		Feed:       LoadFeedConfig(),
		Retention:  LoadRetentionConfig(),
	}, nil
}

// RetentionConfig controls periodic cleanup of finished queue jobs and
// leftover downloads.
type RetentionConfig struct {
	// SweepInterval is how often the retention pass runs.
	SweepInterval time.Duration
	// JobTTL is how long completed and failed jobs are kept.
	JobTTL time.Duration
	// MediaTTL is how long unclaimed files in the media dir are kept.
	MediaTTL time.Duration
}

// LoadRetentionConfig reads retention settings from the environment.
func LoadRetentionConfig() RetentionConfig {
	jobDays := getEnvInt("JOB_RETENTION_DAYS", 7)
	mediaHours := getEnvInt("MEDIA_RETENTION_HOURS", 48)
	return RetentionConfig{
		SweepInterval: time.Hour,
		JobTTL:        time.Duration(jobDays) * 24 * time.Hour,
		MediaTTL:      time.Duration(mediaHours) * time.Hour,
	}
}

// FeedConfig controls the RSS poller.
type FeedConfig struct {
	// PollInterval is how often enabled channels are checked for new uploads.
	PollInterval time.Duration
	// BackfillLimit caps how many historical entries a manual backfill may enqueue.
	BackfillLimit int
}

// LoadFeedConfig reads poller settings from the environment.
func LoadFeedConfig() FeedConfig {
	seconds, _ := strconv.Atoi(getEnvOrDefault("POLL_INTERVAL_SECONDS", "300"))
	if seconds <= 0 {
		seconds = 300
	}
	return FeedConfig{
		PollInterval:  time.Duration(seconds) * time.Second,
		BackfillLimit: 10,
	}
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}
