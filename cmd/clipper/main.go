// Clipper server — polls channel feeds, runs the clip pipeline through
// the job queues, and serves the operator HTTP API.
//
// Run modes:
//
//	server    API + workers + poller (default)
//	worker    queue workers only
//	poller    feed poller only
//	backfill  one-shot: ingest recent entries for a channel, then exit
//	submit    one-shot: submit a single video URL, then exit
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/api"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/cleanup"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/config"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/database"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/feed"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/llm"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/media"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/pipeline"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/publish"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/queue"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/speech"
	"github.com/ibbxx/autoclipper-rss-pipeline/pkg/store"
)

func main() {
	mode := flag.String("mode", "server", "server | worker | poller | backfill | submit")
	envPath := flag.String("env-file", ".env", "Path to .env file")
	backfillCount := flag.Int("count", 0, "backfill mode: entries to ingest (0 = limit)")
	queues := flag.String("queues", "", "worker mode: comma-separated queues to serve (empty = all)")
	flag.Parse()

	// Load .env if present; a missing file just means the environment is
	// already set.
	if err := godotenv.Load(*envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", *envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", *envPath)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *queues != "" {
		cfg.Queues.ServeQueues = nil
		for _, name := range strings.Split(*queues, ",") {
			if name = strings.TrimSpace(name); name != "" {
				cfg.Queues.ServeQueues = append(cfg.Queues.ServeQueues, name)
			}
		}
	}

	logger.Info("Starting clipper",
		"mode", *mode,
		"http_port", cfg.HTTPPort,
		"pod_id", cfg.PodID,
		"workers", cfg.Queues.WorkerCount)

	// 2. Connect to PostgreSQL and run migrations
	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		logger.Error("Failed to load database config", "error", err)
		os.Exit(1)
	}
	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbClient.Close()
	logger.Info("Connected to PostgreSQL database")

	// 3. Stores
	pool := dbClient.Pool()
	channels := store.NewChannelStore(pool)
	videos := store.NewVideoStore(pool)
	clips := store.NewClipStore(pool)
	posts := store.NewPostJobStore(pool)
	jobStore := queue.NewStore(pool, cfg.Queues)

	// 4. Gateways
	mediaGW, err := media.NewGateway(cfg.MediaDir, cfg.ClipsDir, cfg.Render, logger)
	if err != nil {
		logger.Error("Failed to initialize media gateway", "error", err)
		os.Exit(1)
	}
	speechGW := speech.NewClient(cfg.Whisper, logger)
	llmGW := llm.NewGateway(cfg.LLM, logger)

	// 5. Pipeline orchestrator, publish processor and feed service
	orchestrator := pipeline.NewOrchestrator(
		videos, clips, channels, jobStore,
		mediaGW, speechGW, llmGW,
		cfg.Candidates, cfg.Render, logger)

	uploader := publish.NewLocalDraftUploader(logger)
	publisher := publish.NewProcessor(posts, clips, uploader, logger)

	fetcher := feed.NewGofeedFetcher(30 * time.Second)
	poller := feed.NewPoller(channels, videos, fetcher, orchestrator, cfg.Feed, logger)
	feedSvc := &feed.Service{
		Poller:   poller,
		Resolver: feed.NewResolver(10 * time.Second),
	}

	// One-shot modes finish here.
	switch *mode {
	case "backfill":
		channelID := flag.Arg(0)
		if channelID == "" {
			logger.Error("backfill mode needs a channel id argument")
			os.Exit(1)
		}
		processed, err := poller.Backfill(ctx, channelID, *backfillCount)
		if err != nil {
			logger.Error("Backfill failed", "channel_id", channelID, "error", err)
			os.Exit(1)
		}
		fmt.Printf("backfill enqueued %d videos\n", processed)
		return
	case "submit":
		url := flag.Arg(0)
		if url == "" {
			logger.Error("submit mode needs a video URL argument")
			os.Exit(1)
		}
		video, err := poller.Submit(ctx, url, feed.SubmitOptions{})
		if err != nil {
			logger.Error("Submit failed", "url", url, "error", err)
			os.Exit(1)
		}
		fmt.Printf("submitted video %s (%s)\n", video.ID, video.YoutubeVideoID)
		return
	case "server", "worker", "poller":
		// long-running modes continue below
	default:
		logger.Error("Unknown mode", "mode", *mode)
		os.Exit(1)
	}

	runWorkers := *mode == "server" || *mode == "worker"
	runPoller := *mode == "server" || *mode == "poller"
	runHTTP := *mode == "server"

	// 6. Start worker pool (before HTTP server)
	var workerPool *queue.WorkerPool
	if runWorkers {
		registry := queue.NewRegistry()
		orchestrator.RegisterHandlers(registry)
		publisher.RegisterHandlers(registry)

		// One-time startup orphan cleanup
		if err := queue.CleanupStartupOrphans(ctx, jobStore, cfg.PodID, orchestrator.HandlePermanentFailure); err != nil {
			logger.Error("Failed to cleanup startup orphans", "error", err)
			// Non-fatal — continue
		}

		workerPool = queue.NewWorkerPool(cfg.PodID, jobStore, cfg.Queues, registry)
		workerPool.OnPermanentFailure(orchestrator.HandlePermanentFailure)
		// A background context keeps active jobs alive through the signal;
		// shutdown drains them via Stop below.
		if err := workerPool.Start(context.Background()); err != nil {
			logger.Error("Failed to start worker pool", "error", err)
			os.Exit(1)
		}

		retention := cleanup.NewService(cfg.Retention, jobStore, cfg.MediaDir, logger)
		retention.Start(ctx)
		defer retention.Stop()
	}

	// 7. Start the feed poller
	if runPoller {
		go poller.Run(ctx)
	}

	// 8. HTTP server (blocks until signal or listen error)
	if runHTTP {
		server := api.NewServer(api.Deps{
			Channels: channels,
			Videos:   videos,
			Clips:    clips,
			Posts:    posts,
			Feed:     feedSvc,
			Jobs:     jobStore,
			DBCheck: func(ctx context.Context) error {
				_, err := database.Health(ctx, pool)
				return err
			},
			Pool:   workerPool,
			Logger: logger,
		})
		if err := server.Run(ctx, cfg.HTTPPort); err != nil {
			logger.Error("HTTP server error", "error", err)
		}
	} else {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
	}

	// 9. Graceful shutdown: drain active jobs before closing the database
	if workerPool != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Queues.GracefulShutdownTimeout)
		defer cancel()

		done := make(chan struct{})
		go func() {
			workerPool.Stop()
			close(done)
		}()
		select {
		case <-done:
			logger.Info("Worker pool stopped gracefully")
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout exceeded — running jobs will be orphan-recovered")
		}
	}

	logger.Info("Shutdown complete")
}
