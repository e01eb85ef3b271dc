package jobstore

import (
	"context"
	"database/sql"
	"fmt"

	"catchup-feed/internal/domain/entity"
)

// allowedSourceTables is the allow-list of tables SOURCE/BATCH/MULTI_SOURCE
// payloads may name. Table names are never interpolated from unvalidated
// input beyond this set (SPEC_FULL §12), unlike the original's
// psycopg2.sql.Identifier(table) which trusted the caller.
var allowedSourceTables = map[string]bool{
	entity.DefaultSourceTable: true,
	"rss_sources":             true,
	"manual_sources":          true,
}

func validTable(table string) (string, error) {
	if table == "" {
		table = entity.DefaultSourceTable
	}
	if !allowedSourceTables[table] {
		return "", ErrUnknownTable
	}
	return table, nil
}

// GetSource loads a source row from the named table by id (spec §4.5.2
// step 1). Grounded on
// original_source/headline_api/db.py:get_source_by_id.
func (s *Store) GetSource(ctx context.Context, table string, id int64) (*entity.Source, error) {
	table, err := validTable(table)
	if err != nil {
		return nil, err
	}

	src := &entity.Source{ID: id, Table: table}
	var lastScraped sql.NullTime
	var url, feedURL sql.NullString

	err = withRetry(ctx, "get_source_by_id", func() error {
		// #nosec G201 -- table is validated against allowedSourceTables above, never raw user input.
		query := fmt.Sprintf(`SELECT name, url, source_url, last_scraped_at, active FROM %s WHERE id = $1`, table)
		return s.db.QueryRowContext(ctx, query, id).Scan(&src.Name, &url, &feedURL, &lastScraped, &src.Active)
	})
	if err == sql.ErrNoRows {
		return nil, ErrSourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get_source_by_id: %w", err)
	}

	if url.Valid {
		src.URL = url.String
	}
	if feedURL.Valid {
		src.FeedURL = feedURL.String
	}
	if lastScraped.Valid {
		t := lastScraped.Time
		src.LastCrawledAt = &t
	}
	return src, nil
}

// TouchScrapedAt stamps last_scraped_at = now() on the named table's row
// (spec §4.5.2 step 5). Only fired by callers when table ==
// entity.DefaultSourceTable, per spec; enforced here too as a safety net.
func (s *Store) TouchScrapedAt(ctx context.Context, table string, id int64) error {
	table, err := validTable(table)
	if err != nil {
		return err
	}
	return withRetry(ctx, "update_source_scraped_at", func() error {
		// #nosec G201 -- table is validated against allowedSourceTables above.
		query := fmt.Sprintf(`UPDATE %s SET last_scraped_at = now() WHERE id = $1`, table)
		_, err := s.db.ExecContext(ctx, query, id)
		return err
	})
}

// SelectSourcesForBatch picks up to n active sources whose last_scraped_at
// is null or older than 24h, null-first then ascending, for BATCH fan-out
// (spec §4.4, §4.5.3). The original runs two separate queries
// (null-last-scraped-first, then >24h-stale) and dedups by id across them;
// here a single ORDER BY last_scraped_at NULLS FIRST query produces the
// same result set in one round trip (documented divergence, see
// DESIGN.md). Grounded on
// original_source/headline_api/db.py:select_sources_for_batch.
func (s *Store) SelectSourcesForBatch(ctx context.Context, n int, query string) ([]*entity.Source, error) {
	var rows *sql.Rows
	err := withRetry(ctx, "select_sources_for_batch", func() error {
		var err error
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, name, url, source_url, last_scraped_at
			FROM bighippo_sources
			WHERE active = true
			  AND (last_scraped_at IS NULL OR last_scraped_at < now() - interval '24 hours')
			  AND ($2 = '' OR name ILIKE '%' || $2 || '%')
			ORDER BY last_scraped_at ASC NULLS FIRST, id ASC
			LIMIT $1`, n, query)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("select_sources_for_batch: %w", err)
	}
	defer rows.Close()

	sources := make([]*entity.Source, 0, n)
	for rows.Next() {
		src := &entity.Source{Table: entity.DefaultSourceTable}
		var url, feedURL sql.NullString
		var lastScraped sql.NullTime
		if err := rows.Scan(&src.ID, &src.Name, &url, &feedURL, &lastScraped); err != nil {
			return nil, fmt.Errorf("select_sources_for_batch: scan: %w", err)
		}
		if url.Valid {
			src.URL = url.String
		}
		if feedURL.Valid {
			src.FeedURL = feedURL.String
		}
		if lastScraped.Valid {
			t := lastScraped.Time
			src.LastCrawledAt = &t
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}
