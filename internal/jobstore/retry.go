package jobstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the Postgres error code for unique_violation. It is
// checked before any substring matching, per spec §9's instruction to
// replace string-sniffing with typed error kinds from the database driver
// wherever the driver gives them to us.
const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation, grounded on db.py's check for
// "duplicate key value violates unique constraint" but typed on the pgx
// driver's error code rather than a message substring.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

const (
	retryMaxAttempts  = 3
	retryBaseDelay    = 1 * time.Second
	retryMaxDelay     = 8 * time.Second
	retryJitterFrac   = 0.1
)

// withRetry wraps a Store operation with spec §4.4's retry policy,
// generalizing the shape of internal/resilience/retry.WithBackoff but with
// this package's own classification: unique violations propagate
// immediately (callers match ErrAlreadyProcessed explicitly), connection-
// class errors retry with exponential backoff (base 1s, <=3 attempts),
// everything else propagates immediately. Grounded on
// original_source/headline_api/db.py:retry_with_backoff.
func withRetry(ctx context.Context, op string, fn func() error) error {
	delay := retryBaseDelay
	var lastErr error

	for attempt := 1; attempt <= retryMaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if isUniqueViolation(lastErr) {
			return lastErr
		}
		if !isConnectionClassError(lastErr) {
			return lastErr
		}
		if attempt == retryMaxAttempts {
			break
		}

		slog.Warn("jobstore operation failed, retrying",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.Any("error", lastErr))

		timer := time.NewTimer(addJitter(delay))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: retry aborted: %w", op, ctx.Err())
		}
		delay *= 2
		if delay > retryMaxDelay {
			delay = retryMaxDelay
		}
	}

	return fmt.Errorf("%s: retries exhausted: %w", op, lastErr)
}

// isConnectionClassError matches the original's substring check
// (timeout/connection/reset/network) against the lower-cased error
// message. Kept as a narrow, documented exception to "no string-sniffing"
// per SPEC_FULL §10 — pgx does not always surface a typed error for libpq-
// level connection faults.
func isConnectionClassError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"timeout", "connection", "reset", "network"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func addJitter(d time.Duration) time.Duration {
	// #nosec G404 -- jitter does not need cryptographic randomness.
	jitter := time.Duration(rand.Float64() * float64(d) * retryJitterFrac)
	return d + jitter
}
