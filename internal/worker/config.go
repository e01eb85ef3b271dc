package worker

import (
	"log/slog"
	"time"

	"catchup-feed/internal/pkg/config"
	infraworker "catchup-feed/internal/infra/worker"
)

// RuntimeConfig holds the poll-loop tuning knobs recognized by spec §6's
// configuration table, loaded with the same fail-open strategy as the
// teacher's internal/infra/worker.WorkerConfig.
type RuntimeConfig struct {
	// PollInterval is the base sleep between empty polls (spec §4.5 "Main
	// loop": "Reads poll_interval (default 2s)").
	PollInterval time.Duration

	// MaxPollInterval bounds the exponential backoff applied on repeated
	// empty polls and connection-class failures (spec §4.5:
	// "min(poll_interval * (1+consecutive_failures), 60s)" and "widen...
	// up to 120s").
	MaxPollInterval time.Duration

	// MaxConcurrentEmbeddings upper-bounds in-flight embedding requests
	// (spec §6: MAX_CONCURRENT_EMBEDDINGS).
	MaxConcurrentEmbeddings int

	// EmbeddingsEnabled gates step 11 of the article pipeline entirely
	// (spec §6: ENABLE_EMBEDDINGS).
	EmbeddingsEnabled bool

	// ResumeJobs skips the startup sweep when true (spec §4.5 "Startup
	// recovery": "--resume-jobs flag").
	ResumeJobs bool

	// FailureThreshold is the consecutive connection-class failure count
	// that triggers a forced pool refresh (spec §4.5: "on reaching a
	// threshold (5)").
	FailureThreshold int
}

// DefaultRuntimeConfig mirrors spec §4.5's stated defaults.
func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		PollInterval:            2 * time.Second,
		MaxPollInterval:         120 * time.Second,
		MaxConcurrentEmbeddings: 5,
		EmbeddingsEnabled:       true,
		ResumeJobs:              false,
		FailureThreshold:        5,
	}
}

// LoadRuntimeConfigFromEnv loads RuntimeConfig from the environment with
// the teacher's fail-open strategy (internal/infra/worker.LoadConfigFromEnv):
// never returns an error, logs and falls back to the default on any
// validation failure.
func LoadRuntimeConfigFromEnv(logger *slog.Logger) RuntimeConfig {
	cfg := DefaultRuntimeConfig()

	pollResult := config.LoadEnvDuration("WORKER_POLL_INTERVAL", cfg.PollInterval, func(d time.Duration) error {
		return config.ValidateDuration(d, 100*time.Millisecond, time.Minute)
	})
	cfg.PollInterval = pollResult.Value.(time.Duration)
	logFallback(logger, "PollInterval", pollResult)

	embedResult := config.LoadEnvInt("MAX_CONCURRENT_EMBEDDINGS", cfg.MaxConcurrentEmbeddings, func(v int) error {
		return config.ValidateIntRange(v, 1, 50)
	})
	cfg.MaxConcurrentEmbeddings = embedResult.Value.(int)
	logFallback(logger, "MaxConcurrentEmbeddings", embedResult)

	enabledResult := config.LoadEnvBool("ENABLE_EMBEDDINGS", cfg.EmbeddingsEnabled)
	cfg.EmbeddingsEnabled = enabledResult.Value.(bool)
	logFallback(logger, "EmbeddingsEnabled", enabledResult)

	return cfg
}

func logFallback(logger *slog.Logger, field string, result config.ConfigLoadResult) {
	if !result.FallbackApplied {
		return
	}
	for _, warning := range result.Warnings {
		logger.Warn("configuration fallback applied", slog.String("field", field), slog.String("warning", warning))
	}
}

// NewHealthServer re-exports the teacher's health server for C5's
// poll-loop readiness reporting, keeping one implementation shared across
// the worker runtime and the poll loop.
var NewHealthServer = infraworker.NewHealthServer
