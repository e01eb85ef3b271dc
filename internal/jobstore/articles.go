package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"catchup-feed/internal/domain/entity"
)

// SaveArticle inserts an Article and returns its assigned id (spec §4.4:
// save_article(a) -> id). Grounded on
// original_source/headline_api/db.py:save_article.
func (s *Store) SaveArticle(ctx context.Context, a *entity.Article) (int64, error) {
	meta, err := json.Marshal(a.Metadata)
	if err != nil {
		return 0, fmt.Errorf("save_article: marshal metadata: %w", err)
	}

	var id int64
	err = withRetry(ctx, "save_article", func() error {
		return s.db.QueryRowContext(ctx, `
			INSERT INTO news_articles (
				url, url_canonical, date, title, summary, summary_medium, summary_long,
				topic, main_topic, topic_2, topic_3, grade, date_posted, is_embedded,
				vector_id, full_content, meta_data, city
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
			RETURNING id`,
			a.URL, a.CanonicalURL, a.PostedDate, a.Title, a.SummaryShort, a.SummaryMedium, a.SummaryLong,
			a.Topic, a.MainTopic, a.Subtopic2, a.Subtopic3, a.Grade, a.PostedDate, a.IsEmbedded,
			a.VectorID, a.FullText, meta, a.City,
		).Scan(&id)
	})
	if err != nil {
		return 0, fmt.Errorf("save_article: %w", err)
	}
	return id, nil
}

// CheckProcessed looks up a canonical URL in the dedup set (spec §4.4:
// check_processed(canonical_url) -> status | null).
func (s *Store) CheckProcessed(ctx context.Context, canonicalURL string) (*entity.ProcessedURLStatus, error) {
	var status entity.ProcessedURLStatus
	err := withRetry(ctx, "check_processed", func() error {
		return s.db.QueryRowContext(ctx, `
			SELECT processing_status FROM processed_news_urls WHERE url = $1`, canonicalURL).Scan(&status)
	})
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("check_processed: %w", err)
	}
	return &status, nil
}

// SaveProcessed inserts a ProcessedURL row, idempotently. A unique-key
// violation on the canonical URL is treated as success and returns
// ErrAlreadyProcessed so callers can distinguish "freshly recorded" from
// "already known" without parsing error text (spec §4.4, §9; SPEC_FULL
// §13 resolves the open question: any existing status wins, never
// overwritten). Grounded on
// original_source/headline_api/db.py:save_processed_url.
func (s *Store) SaveProcessed(ctx context.Context, canonicalURL string, status entity.ProcessedURLStatus, city string) error {
	err := withRetry(ctx, "save_processed", func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO processed_news_urls (url, city, scrape_date, is_news, processing_status)
			VALUES ($1, $2, now(), $3, $4)`,
			canonicalURL, city, status != entity.ProcessedURLTrash, status)
		return err
	})
	if isUniqueViolation(err) {
		return ErrAlreadyProcessed
	}
	if err != nil {
		return fmt.Errorf("save_processed: %w", err)
	}
	return nil
}

// ParseAudienceScope parses the original's "[city:NAME]" / "[industry:NAME]"
// bracket-tag convention out of a raw audience_scope string, overriding
// city/main_topic as the source does (SPEC_FULL §12). A scope without a
// recognized bracket tag is returned with an empty Slug.
func ParseAudienceScope(raw string) entity.AudienceScope {
	raw = strings.TrimSpace(raw)
	for _, prefix := range []string{"[city:", "[industry:"} {
		if !strings.HasPrefix(raw, prefix) {
			continue
		}
		rest := strings.TrimPrefix(raw, prefix)
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			continue
		}
		label := "city"
		if prefix == "[industry:" {
			label = "industry"
		}
		return entity.AudienceScope{Label: label, Slug: rest[:end]}
	}
	switch raw {
	case "global", "trash", "":
		if raw == "" {
			raw = "global"
		}
		return entity.AudienceScope{Label: raw}
	default:
		return entity.AudienceScope{Label: raw}
	}
}
