// Package jobstore implements the persistent relational job queue (spec
// §4.4, C4 Job Store): atomic claim via row-level locking, progress
// counters, and a retry decorator for transient faults.
package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"catchup-feed/internal/domain/entity"
)

// Store is the Job Store. It wraps a *sql.DB (pgx/v5/stdlib driver) and
// retries transient faults per retry.go's policy.
type Store struct {
	db *sql.DB
}

// New wraps an already-configured *sql.DB (see internal/infra/db.Open).
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Enqueue inserts a new job with status QUEUED and returns its id (spec
// §4.4: enqueue(type, payload) -> id).
func (s *Store) Enqueue(ctx context.Context, jobType entity.JobType, payload any) (int64, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("enqueue: marshal payload: %w", err)
	}

	var id int64
	err = withRetry(ctx, "enqueue", func() error {
		return s.db.QueryRowContext(ctx, `
			INSERT INTO scrape_jobs (job_type, payload, status, created_at, updated_at)
			VALUES ($1, $2, 'QUEUED', now(), now())
			RETURNING id`, string(jobType), raw).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("enqueue: %w", err)
	}
	return id, nil
}

// Claim atomically selects one QUEUED row with the lowest id, locking it
// with FOR UPDATE SKIP LOCKED so concurrent claimants never receive the
// same row, transitions it to IN_PROGRESS, and returns it. Returns
// (nil, nil) when the queue is empty. Grounded nearly verbatim on
// original_source/headline_api/db.py:claim_job.
func (s *Store) Claim(ctx context.Context) (*entity.Job, error) {
	var job entity.Job
	var payload []byte
	var errMsg sql.NullString

	err := withRetry(ctx, "claim", func() error {
		row := s.db.QueryRowContext(ctx, `
			UPDATE scrape_jobs
			SET status = 'IN_PROGRESS', updated_at = now()
			WHERE id = (
				SELECT id FROM scrape_jobs
				WHERE status = 'QUEUED'
				ORDER BY id
				LIMIT 1
				FOR UPDATE SKIP LOCKED
			)
			RETURNING id, job_type, payload, status, error_message, created_at, updated_at,
				links_found, links_skipped, articles_saved, errors`)
		return row.Scan(&job.ID, &job.Type, &payload, &job.Status, &errMsg,
			&job.CreatedAt, &job.UpdatedAt,
			&job.LinksFound, &job.LinksSkipped, &job.ArticlesSaved, &job.Errors)
	})

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim: %w", err)
	}

	job.Payload = payload
	if errMsg.Valid {
		job.ErrorMessage = &errMsg.String
	}
	return &job, nil
}

// MarkDone sets status DONE and bumps updated_at.
func (s *Store) MarkDone(ctx context.Context, id int64) error {
	return withRetry(ctx, "mark_done", func() error {
		_, err := s.db.ExecContext(ctx, `
			UPDATE scrape_jobs SET status = 'DONE', updated_at = now() WHERE id = $1`, id)
		return err
	})
}

// MarkError sets status ERROR with the given message.
func (s *Store) MarkError(ctx context.Context, id int64, msg string) error {
	return withRetry(ctx, "mark_error", func() error {
		_, err := s.db.ExecContext(ctx, `
			UPDATE scrape_jobs SET status = 'ERROR', error_message = $2, updated_at = now()
			WHERE id = $1`, id, msg)
		return err
	})
}

// UpdateCounters additively bumps the four progress counters (spec §4.4:
// update_counters is additive; counters are monotonically non-decreasing
// within a job's lifetime).
func (s *Store) UpdateCounters(ctx context.Context, id int64, delta entity.CounterDelta) error {
	return withRetry(ctx, "update_counters", func() error {
		_, err := s.db.ExecContext(ctx, `
			UPDATE scrape_jobs SET
				links_found = links_found + $2,
				links_skipped = links_skipped + $3,
				articles_saved = articles_saved + $4,
				errors = errors + $5,
				updated_at = now()
			WHERE id = $1`,
			id,
			intOrZero(delta.LinksFound),
			intOrZero(delta.LinksSkipped),
			intOrZero(delta.ArticlesSaved),
			intOrZero(delta.Errors))
		return err
	})
}

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// Get returns the full job row (spec §4.4: get(id) -> details).
func (s *Store) Get(ctx context.Context, id int64) (*entity.Job, error) {
	var job entity.Job
	var payload []byte
	var errMsg sql.NullString

	err := withRetry(ctx, "get", func() error {
		row := s.db.QueryRowContext(ctx, `
			SELECT id, job_type, payload, status, error_message, created_at, updated_at,
				links_found, links_skipped, articles_saved, errors
			FROM scrape_jobs WHERE id = $1`, id)
		return row.Scan(&job.ID, &job.Type, &payload, &job.Status, &errMsg,
			&job.CreatedAt, &job.UpdatedAt,
			&job.LinksFound, &job.LinksSkipped, &job.ArticlesSaved, &job.Errors)
	})

	if err == sql.ErrNoRows {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}

	job.Payload = payload
	if errMsg.Valid {
		job.ErrorMessage = &errMsg.String
	}
	return &job, nil
}

// StartupSweep atomically cancels every non-terminal job on worker boot
// (spec §4.5: "Startup recovery"), preventing zombie IN_PROGRESS rows from
// blocking new claims after a crash. Grounded on
// original_source/headline_worker/__main__.py:cleanup_old_jobs.
func (s *Store) StartupSweep(ctx context.Context) (int64, error) {
	var n int64
	err := withRetry(ctx, "startup_sweep", func() error {
		res, err := s.db.ExecContext(ctx, `
			UPDATE scrape_jobs
			SET status = 'CANCELLED', error_message = 'cancelled due to worker restart', updated_at = now()
			WHERE status IN ('QUEUED', 'IN_PROGRESS')`)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("startup_sweep: %w", err)
	}
	return n, nil
}
