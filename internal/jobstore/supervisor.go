package jobstore

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"
	"time"
)

// Supervisor runs a cheap connection health probe (SELECT 1) at most every
// probeInterval, and eagerly whenever the failure streak reaches
// failureThreshold, recreating the pool's connections on probe failure
// (spec §4.4: "Connection supervisor"). Grounded on
// original_source/headline_worker/__main__.py's
// test_connection/refresh_connection and teacher's
// internal/infra/db/open.go pool configuration.
type Supervisor struct {
	db               *sql.DB
	probeInterval    time.Duration
	failureThreshold int

	mu               sync.Mutex
	lastProbe        time.Time
	consecutiveFails int
}

// NewSupervisor wires a Supervisor over db with spec-default tuning: probe
// at most every 5 minutes, force a probe after 3 consecutive failures.
func NewSupervisor(db *sql.DB) *Supervisor {
	return &Supervisor{
		db:               db,
		probeInterval:    5 * time.Minute,
		failureThreshold: 3,
	}
}

// ShouldProbe reports whether the supervisor is due for a probe: either
// probeInterval has elapsed since the last one, or the failure streak has
// reached failureThreshold.
func (sv *Supervisor) ShouldProbe(now time.Time) bool {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return now.Sub(sv.lastProbe) >= sv.probeInterval || sv.consecutiveFails >= sv.failureThreshold
}

// Probe runs SELECT 1 with a 10s timeout. On failure it increments the
// consecutive-failure streak and, once streak >= failureThreshold,
// closes idle connections so the pool is forced to redial (pgx/sql.DB
// re-establishes lazily on next use — there is no explicit "reconnect",
// so SetConnMaxIdleTime(0) momentarily forces a fresh dial).
func (sv *Supervisor) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := sv.db.ExecContext(ctx, "SELECT 1")

	sv.mu.Lock()
	defer sv.mu.Unlock()
	sv.lastProbe = time.Now()

	if err != nil {
		sv.consecutiveFails++
		slog.Warn("connection health probe failed",
			slog.Int("consecutive_failures", sv.consecutiveFails),
			slog.Any("error", err))
		if sv.consecutiveFails >= sv.failureThreshold {
			sv.db.SetConnMaxIdleTime(1 * time.Nanosecond)
			sv.db.SetConnMaxIdleTime(30 * time.Minute)
			slog.Warn("forced connection pool refresh after repeated probe failures")
		}
		return err
	}

	sv.consecutiveFails = 0
	return nil
}
