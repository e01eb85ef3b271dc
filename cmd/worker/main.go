package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/robfig/cron/v3"

	"catchup-feed/internal/config"
	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/extract"
	"catchup-feed/internal/infra/db"
	"catchup-feed/internal/infra/grpc"
	"catchup-feed/internal/infra/fetcher"
	"catchup-feed/internal/infra/notifier"
	"catchup-feed/internal/infra/scraper"
	"catchup-feed/internal/infra/summarizer"
	workerPkg "catchup-feed/internal/infra/worker"
	"catchup-feed/internal/jobstore"
	"catchup-feed/internal/keypool"
	"catchup-feed/internal/usecase/notify"
	"catchup-feed/internal/worker"
)

func waitForMigrations(logger *slog.Logger, db *sql.DB) {
	const probe = "SELECT 1 FROM sources LIMIT 1"
	for i := 0; i < 10; i++ {
		if _, err := db.Exec(probe); err == nil {
			return
		}
		logger.Info("waiting for migrations, retrying in 3s", slog.Int("attempt", i+1))
		time.Sleep(3 * time.Second)
	}
	logger.Error("migrations did not complete in time")
	os.Exit(1)
}

func main() {
	resumeJobs := flag.Bool("resume-jobs", false, "skip the startup sweep and resume jobs left IN_PROGRESS by a prior run")
	flag.Parse()

	logger := initLogger()
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	cronConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("batch_cron_schedule", cronConfig.CronSchedule),
		slog.String("timezone", cronConfig.Timezone),
		slog.Int("notify_max_concurrent", cronConfig.NotifyMaxConcurrent),
		slog.Int("health_port", cronConfig.HealthPort))

	runtimeConfig := worker.LoadRuntimeConfigFromEnv(logger)
	runtimeConfig.ResumeJobs = *resumeJobs || runtimeConfig.ResumeJobs
	logger.Info("poll loop configuration loaded",
		slog.Duration("poll_interval", runtimeConfig.PollInterval),
		slog.Duration("max_poll_interval", runtimeConfig.MaxPollInterval),
		slog.Bool("embeddings_enabled", runtimeConfig.EmbeddingsEnabled),
		slog.Bool("resume_jobs", runtimeConfig.ResumeJobs))

	notifyService := setupNotifyService(logger, cronConfig)

	healthAddr := fmt.Sprintf(":%d", cronConfig.HealthPort)
	healthServer := worker.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	rt, aiCleanup := setupRuntime(ctx, logger, database, notifyService, runtimeConfig)
	defer aiCleanup()

	supervisor := jobstore.NewSupervisor(database)
	loop := worker.NewLoop(rt, supervisor, runtimeConfig, healthServer)

	scheduler := startBatchScheduler(logger, rt.Store, cronConfig, workerMetrics)
	defer scheduler.Stop()

	runWithWatchdog(ctx, logger, loop)
}

// setupRuntime builds the worker.Runtime: the extraction pipeline, key pool,
// external classifier/summarizer/embedder collaborators, and the job store.
// Returns a cleanup function that closes the AI gRPC connection, if any.
func setupRuntime(ctx context.Context, logger *slog.Logger, database *sql.DB, notifyService notify.Service, cfg worker.RuntimeConfig) (*worker.Runtime, func()) {
	store := jobstore.New(database)

	keys := keypool.New(loadDiffbotKeys(logger))

	primary := extract.NewPrimaryEngine(ctx)
	secondary := extract.NewSecondaryEngine(keys)

	var dater extract.AIDater
	openaiKey := os.Getenv("OPENAI_API_KEY")
	if openaiKey != "" {
		dater = summarizer.NewArticleDater(openaiKey)
	} else {
		logger.Warn("OPENAI_API_KEY not set, AI date extraction disabled")
	}
	tertiary := fetcher.NewReadabilityFetcher(loadTertiaryFetchConfig(logger))
	extractor := extract.NewExtractor(primary, secondary, dater, tertiary)

	var classifier worker.Classifier
	var summarizerCollab worker.Summarizer
	if openaiKey != "" {
		classifier = &worker.ClassifierAdapter{Classifier: summarizer.NewArticleClassifier(openaiKey)}
		summarizerCollab = &worker.SummarizerAdapter{Summarizer: summarizer.NewArticleSummarizer(openaiKey)}
	} else {
		logger.Warn("OPENAI_API_KEY not set, classification/summarization disabled; articles fall back to TRASH")
	}

	embedder, aiCleanup := setupEmbedder(logger)

	scraperClient := &http.Client{Timeout: 30 * time.Second}
	feedScrapers := scraper.NewScraperFactory(scraperClient).CreateScrapers()

	return &worker.Runtime{
		Store:             store,
		Keys:              keys,
		Extractor:         extractor,
		Primary:           primary,
		Secondary:         secondary,
		Classifier:        classifier,
		Summarizer:        summarizerCollab,
		Embedder:          embedder,
		Notifier:          notifyService,
		FeedScrapers:      feedScrapers,
		EmbeddingsEnabled: cfg.EmbeddingsEnabled,
		MaxConcurrentJobs: cfg.MaxConcurrentEmbeddings,
	}, aiCleanup
}

// loadTertiaryFetchConfig loads the plain-HTTP Readability fallback's
// CONTENT_FETCH_* tuning, falling back to defaults on a malformed value
// rather than failing worker start-up over a last-resort extraction tier.
func loadTertiaryFetchConfig(logger *slog.Logger) fetcher.ContentFetchConfig {
	cfg, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Warn("invalid CONTENT_FETCH_* configuration, using defaults", slog.Any("error", err))
		return fetcher.DefaultConfig()
	}
	return cfg
}

// setupEmbedder creates the AI-backed Embedder collaborator and returns a
// cleanup function that closes the underlying gRPC connection, if any.
func setupEmbedder(logger *slog.Logger) (worker.Embedder, func()) {
	aiConfig, err := config.LoadAIConfig()
	if err != nil {
		logger.Warn("failed to load AI configuration, embeddings disabled", slog.Any("error", err))
		return &worker.EmbedderAdapter{Provider: grpc.NewNoopAIProvider()}, func() {}
	}
	if err := aiConfig.Validate(); err != nil {
		logger.Warn("invalid AI configuration, embeddings disabled", slog.Any("error", err))
		return &worker.EmbedderAdapter{Provider: grpc.NewNoopAIProvider()}, func() {}
	}
	if !aiConfig.Enabled {
		logger.Info("AI features disabled via configuration")
		return &worker.EmbedderAdapter{Provider: grpc.NewNoopAIProvider()}, func() {}
	}

	provider, err := grpc.NewGRPCAIProvider(aiConfig)
	if err != nil {
		logger.Warn("failed to create AI provider, embeddings disabled", slog.Any("error", err))
		return &worker.EmbedderAdapter{Provider: grpc.NewNoopAIProvider()}, func() {}
	}

	logger.Info("AI embedding provider initialized", slog.String("grpc_address", aiConfig.GRPCAddress))
	cleanup := func() {
		if err := provider.Close(); err != nil {
			logger.Error("failed to close AI provider", slog.Any("error", err))
		}
	}
	return &worker.EmbedderAdapter{Provider: provider}, cleanup
}

// loadDiffbotKeys reads the comma-separated DIFFBOT_KEYS environment
// variable used to build the secondary extraction engine's key pool and,
// via its length, the batch pipeline's fan-out width (spec §4.5.3;
// original_source/headline_worker/config.py's DIFFBOT_KEYS).
func loadDiffbotKeys(logger *slog.Logger) []string {
	raw := os.Getenv("DIFFBOT_KEYS")
	if raw == "" {
		logger.Warn("DIFFBOT_KEYS not set, secondary extraction engine has no keys")
		return nil
	}
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		k = strings.TrimSpace(k)
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// setupNotifyService wires the Discord/Slack notification fan-out, reusing
// the teacher's webhook validation and rate limiting.
func setupNotifyService(logger *slog.Logger, cfg *workerPkg.WorkerConfig) notify.Service {
	var channels []notify.Channel

	discordConfig := loadDiscordConfig(logger)
	if discordConfig.Enabled {
		channels = append(channels, notify.NewDiscordChannel(discordConfig))
		logger.Info("Discord channel initialized", slog.String("status", "enabled"))
	} else {
		logger.Info("Discord channel disabled")
	}

	slackConfig := loadSlackConfig(logger)
	if slackConfig.Enabled {
		channels = append(channels, notify.NewSlackChannel(slackConfig))
		logger.Info("Slack channel initialized", slog.String("status", "enabled"))
	} else {
		logger.Info("Slack channel disabled")
	}

	notifyService := notify.NewService(channels, cfg.NotifyMaxConcurrent)
	logger.Info("notification service initialized",
		slog.Int("channels", len(channels)),
		slog.Int("max_concurrent", cfg.NotifyMaxConcurrent))
	return notifyService
}

// startBatchScheduler runs a companion cron schedule that periodically
// enqueues a BATCH job (SPEC_FULL §11: the continuous poll loop in
// internal/worker claims and executes jobs; this scheduler only decides
// when a new BATCH run is due, matching the teacher's cron wiring while the
// actual crawl work moves to the job queue).
func startBatchScheduler(logger *slog.Logger, store *jobstore.Store, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics) *cron.Cron {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}

	batchSize := 50
	if raw := os.Getenv("BATCH_CRON_SIZE"); raw != "" {
		if n, scanErr := fmt.Sscanf(raw, "%d", &batchSize); scanErr != nil || n != 1 {
			batchSize = 50
		}
	}

	c := cron.New(cron.WithLocation(loc))
	_, err = c.AddFunc(cfg.CronSchedule, func() {
		enqueueBatch(logger, store, metrics, batchSize)
	})
	if err != nil {
		logger.Error("failed to add batch cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	logger.Info("batch scheduler started", slog.String("schedule", cfg.CronSchedule), slog.String("timezone", cfg.Timezone))
	return c
}

// enqueueBatch inserts one BATCH job per cron firing; the poll loop picks
// it up like any other job.
func enqueueBatch(logger *slog.Logger, store *jobstore.Store, metrics *workerPkg.WorkerMetrics, batchSize int) {
	metrics.RecordJobRun("started")

	id, err := store.Enqueue(context.Background(), entity.JobTypeBatch, worker.BatchPayload{BatchSize: batchSize})
	if err != nil {
		logger.Error("failed to enqueue scheduled batch job", slog.Any("error", err))
		metrics.RecordJobRun("failure")
		return
	}

	metrics.RecordJobRun("success")
	metrics.RecordFeedsProcessed(batchSize)
	metrics.RecordLastSuccess()
	logger.Info("scheduled batch job enqueued", slog.Int64("job_id", id), slog.Int("batch_size", batchSize))
}

// runWithWatchdog runs the poll loop until ctx is cancelled, then gives it
// watchdogGrace to shut down cooperatively before forcing a hard exit.
// Grounded on original_source/headline_worker/__main__.py's
// handle_signal/signal.alarm(5) watchdog.
func runWithWatchdog(ctx context.Context, logger *slog.Logger, loop *worker.Loop) {
	done := make(chan error, 1)
	go func() {
		done <- loop.Run(ctx)
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received, waiting for poll loop to stop")

	select {
	case err := <-done:
		if err != nil {
			logger.Error("poll loop exited with error", slog.Any("error", err))
		}
		logger.Info("worker shut down cleanly")
	case <-time.After(5 * time.Second):
		logger.Error("watchdog timeout exceeded, forcing exit")
		os.Exit(1)
	}
}

// initLogger initializes and returns a structured logger based on environment configuration.
func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the database connection and waits for migrations to complete.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	waitForMigrations(logger, database)
	return database
}

// loadDiscordConfig loads Discord configuration from environment variables.
func loadDiscordConfig(logger *slog.Logger) notifier.DiscordConfig {
	enabled := os.Getenv("DISCORD_ENABLED") == "true"
	webhookURL := os.Getenv("DISCORD_WEBHOOK_URL")

	if !enabled {
		return notifier.DiscordConfig{Enabled: false}
	}

	if webhookURL == "" {
		logger.Warn("Discord webhook URL is empty, disabling notifications")
		return notifier.DiscordConfig{Enabled: false}
	}

	u, err := url.Parse(webhookURL)
	if err != nil {
		logger.Warn("Invalid Discord webhook URL format, disabling notifications", slog.Any("error", err))
		return notifier.DiscordConfig{Enabled: false}
	}

	if u.Scheme != "https" {
		logger.Warn("Discord webhook URL must use HTTPS, disabling notifications")
		return notifier.DiscordConfig{Enabled: false}
	}

	if u.Host != "discord.com" {
		logger.Warn("Invalid Discord webhook host, disabling notifications", slog.String("host", u.Host))
		return notifier.DiscordConfig{Enabled: false}
	}

	if !strings.HasPrefix(u.Path, "/api/webhooks/") {
		logger.Warn("Invalid Discord webhook path, disabling notifications", slog.String("path", u.Path))
		return notifier.DiscordConfig{Enabled: false}
	}

	return notifier.DiscordConfig{
		Enabled:    true,
		WebhookURL: webhookURL,
		Timeout:    30 * time.Second,
	}
}

// loadSlackConfig loads Slack configuration from environment variables.
func loadSlackConfig(logger *slog.Logger) notifier.SlackConfig {
	enabled := os.Getenv("SLACK_ENABLED") == "true"
	webhookURL := os.Getenv("SLACK_WEBHOOK_URL")

	if !enabled {
		return notifier.SlackConfig{Enabled: false}
	}

	if webhookURL == "" {
		logger.Warn("Slack webhook URL is empty, disabling notifications")
		return notifier.SlackConfig{Enabled: false}
	}

	u, err := url.Parse(webhookURL)
	if err != nil {
		logger.Warn("Invalid Slack webhook URL format, disabling notifications", slog.Any("error", err))
		return notifier.SlackConfig{Enabled: false}
	}

	if u.Scheme != "https" {
		logger.Warn("Slack webhook URL must use HTTPS, disabling notifications")
		return notifier.SlackConfig{Enabled: false}
	}

	if u.Host != "hooks.slack.com" {
		logger.Warn("Invalid Slack webhook host, disabling notifications", slog.String("host", u.Host))
		return notifier.SlackConfig{Enabled: false}
	}

	if !strings.HasPrefix(u.Path, "/services/") {
		logger.Warn("Invalid Slack webhook path, disabling notifications", slog.String("path", u.Path))
		return notifier.SlackConfig{Enabled: false}
	}

	return notifier.SlackConfig{
		Enabled:    true,
		WebhookURL: webhookURL,
		Timeout:    30 * time.Second,
	}
}

