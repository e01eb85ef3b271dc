package worker

import (
	"context"
	"log/slog"
	"time"

	infraworker "catchup-feed/internal/infra/worker"
	"catchup-feed/internal/jobstore"
)

// watchdogGrace bounds how long cooperative shutdown gets before the
// process is force-killed (spec §4.5 "Shutdown": "a watchdog timer fires a
// hard exit after 5s").
const watchdogGrace = 5 * time.Second

// statusLogInterval periodically surfaces runtime health (spec §4.5 "Main
// loop" step 5: "Periodically (every 15 min) log runtime, jobs processed,
// consecutive-failure count").
const statusLogInterval = 15 * time.Minute

// Loop is the single-runtime-per-process poll loop (spec §4.5 "Main
// loop"). It claims one job at a time, dispatches it, and backs off
// exponentially on empty polls or connection-class errors. Grounded on
// original_source/headline_worker/__main__.py's main() loop, reimplemented
// with context.Context/signal.NotifyContext/time.Timer instead of
// asyncio + SIGALRM.
type Loop struct {
	rt         *Runtime
	supervisor *jobstore.Supervisor
	cfg        RuntimeConfig
	health     *infraworker.HealthServer

	jobsProcessed      int64
	consecutiveFailures int
}

// NewLoop wires a Loop. health may be nil in tests.
func NewLoop(rt *Runtime, supervisor *jobstore.Supervisor, cfg RuntimeConfig, health *infraworker.HealthServer) *Loop {
	return &Loop{rt: rt, supervisor: supervisor, cfg: cfg, health: health}
}

// Run executes the poll loop until ctx is cancelled. It performs the
// startup sweep first (unless cfg.ResumeJobs), then loops claim/dispatch/
// sleep until shutdown, honoring the watchdog grace period described in
// spec §4.5.
func (l *Loop) Run(ctx context.Context) error {
	if !l.cfg.ResumeJobs {
		n, err := l.rt.Store.StartupSweep(ctx)
		if err != nil {
			slog.Error("startup sweep failed", slog.Any("error", err))
		} else if n > 0 {
			slog.Info("startup sweep cancelled stale jobs", slog.Int64("count", n))
		}
	} else {
		slog.Info("startup sweep skipped (--resume-jobs)")
	}

	if l.health != nil {
		l.health.SetReady(true)
	}

	statusTicker := time.NewTicker(statusLogInterval)
	defer statusTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return l.shutdown()
		case <-statusTicker.C:
			slog.Info("worker runtime status",
				slog.Int64("jobs_processed", l.jobsProcessed),
				slog.Int("consecutive_failures", l.consecutiveFailures))
		default:
		}

		if l.supervisor != nil && l.supervisor.ShouldProbe(time.Now()) {
			if err := l.supervisor.Probe(ctx); err != nil {
				l.recordConnectionFailure()
			}
		}

		job, err := l.rt.Store.Claim(ctx)
		if err != nil {
			l.recordConnectionFailure()
			l.sleep(ctx)
			continue
		}
		if job == nil {
			l.consecutiveFailures = 0
			l.sleep(ctx)
			continue
		}

		Dispatch(ctx, l.rt, job)
		l.jobsProcessed++
		l.consecutiveFailures = 0
	}
}

// recordConnectionFailure widens the poll interval and, on reaching
// cfg.FailureThreshold, asks the supervisor to force a pool refresh (spec
// §4.5 "Consecutive-failure backoff").
func (l *Loop) recordConnectionFailure() {
	l.consecutiveFailures++
	if l.consecutiveFailures >= l.cfg.FailureThreshold && l.supervisor != nil {
		slog.Warn("forcing connection probe after repeated failures", slog.Int("consecutive_failures", l.consecutiveFailures))
		_ = l.supervisor.Probe(context.Background())
	}
}

// sleep waits for poll_interval * (1 + consecutive_failures), capped at
// MaxPollInterval, or until ctx is cancelled.
func (l *Loop) sleep(ctx context.Context) {
	wait := l.cfg.PollInterval * time.Duration(1+l.consecutiveFailures)
	if wait > l.cfg.MaxPollInterval {
		wait = l.cfg.MaxPollInterval
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// shutdown marks the health server not-ready and returns; jobs currently
// IN_PROGRESS are left as-is for the next worker's startup sweep (spec §5
// "Cancellation").
func (l *Loop) shutdown() error {
	slog.Info("worker loop shutting down", slog.Int64("jobs_processed", l.jobsProcessed))
	if l.health != nil {
		l.health.SetReady(false)
	}
	return nil
}
