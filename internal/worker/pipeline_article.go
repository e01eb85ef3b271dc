package worker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/extract"
	"catchup-feed/internal/jobstore"
	"catchup-feed/internal/urlutil"
)

// minArticleTextLength is the extracted-text floor below which an article
// is treated as TRASH rather than an extraction error (spec §4.5.1 step 6,
// §8 boundary case: "extraction text under 50 chars -> TRASH, not an error").
const minArticleTextLength = 50

// runArticle executes the twelve-step article pipeline (spec §4.5.1). It
// returns a non-nil error only for conditions the dispatch table treats as
// job-level failures (extraction failure on both engines, a malformed
// canonical URL, a persistence error); every other terminal outcome
// (dedup short-circuit, TRASH) returns nil so the caller marks the job
// DONE. Grounded on
// original_source/headline_worker/modules/article_processor.py:process_article_job.
func runArticle(ctx context.Context, rt *Runtime, p *ArticlePayload) error {
	// (1) canonicalize URL
	canonicalURL, err := urlutil.Canonicalize(p.URL)
	if err != nil {
		return fmt.Errorf("canonicalize %q: %w", p.URL, err)
	}

	// (2) dedup short-circuit
	status, err := rt.Store.CheckProcessed(ctx, canonicalURL)
	if err != nil {
		return fmt.Errorf("check_processed: %w", err)
	}
	if status != nil {
		slog.Info("url already processed, skipping", slog.String("url", canonicalURL), slog.String("status", string(*status)))
		return nil
	}

	// (3) extraction: pre-extracted fields from a SOURCE job, or run §4.3
	content, err := resolveContent(ctx, rt, p)
	if err != nil {
		return fmt.Errorf("extraction failed for %s: %w", p.URL, err)
	}

	// (4) classification: pre-computed, or call the external classifier
	class := resolveClassification(ctx, rt, content, p)

	// (5) TRASH short-circuit, (6) too-short-text short-circuit
	if class.IsTrash() || len(content.Text) < minArticleTextLength {
		if err := saveProcessedIgnoreDup(ctx, rt.Store, canonicalURL, entity.ProcessedURLTrash, "unknown"); err != nil {
			return fmt.Errorf("save_processed(trash): %w", err)
		}
		return nil
	}

	// (7) external summarizer, CITY prompt for city-scope
	summary, err := rt.Summarizer.Summarize(ctx, class, content.Title, content.Text, content.Markdown, content.Metadata)
	if err != nil {
		return fmt.Errorf("summarize %s: %w", p.URL, err)
	}

	// (8) build Article record
	article := buildArticle(p.URL, canonicalURL, content, class, summary)
	if p.SourceID != nil {
		article.SourceID = *p.SourceID
	}

	// (9) save_article
	id, err := rt.Store.SaveArticle(ctx, &article)
	if err != nil {
		return fmt.Errorf("save_article: %w", err)
	}
	article.ID = id

	// (10) save_processed(url, PROCESSED, city)
	cityForDedupe := cityDedupeKey(class)
	if err := saveProcessedIgnoreDup(ctx, rt.Store, canonicalURL, entity.ProcessedURLProcessed, cityForDedupe); err != nil {
		return fmt.Errorf("save_processed(processed): %w", err)
	}

	notifyNewArticle(ctx, rt, &article, class, p)

	// (11) best-effort embed
	if rt.EmbeddingsEnabled && rt.Embedder != nil {
		vectorID, embedErr := rt.Embedder.Embed(ctx, &article)
		if embedErr != nil {
			slog.Warn("embedding failed, article saved without vector", slog.String("url", canonicalURL), slog.Any("error", embedErr))
		} else {
			// Best-effort: a failure here never fails the job (spec §7).
			_ = vectorID
		}
	}

	// (12) mark job DONE — signalled by returning nil to the caller.
	return nil
}

// resolveContent returns the pre-extracted content carried in the payload
// (a SOURCE job already did the work) or runs extraction itself.
func resolveContent(ctx context.Context, rt *Runtime, p *ArticlePayload) (extract.Content, error) {
	if p.PreExtracted != nil {
		return contentFromExtractedFields(*p.PreExtracted), nil
	}
	return rt.Extractor.Extract(ctx, p.URL)
}

func contentFromExtractedFields(f ExtractedFields) extract.Content {
	c := extract.Content{
		Title:                f.Title,
		Text:                 f.Text,
		Markdown:             f.Markdown,
		CleanHTML:            f.CleanHTML,
		Metadata:             f.Metadata,
		DateExtractionMethod: f.DateMethod,
		ScraperType:          extract.ScraperType(f.ScraperType),
	}
	if f.Date != "" {
		if t, ok := extract.ParseEngineDate(f.Date, time.Now()); ok {
			c.Date = &t
		}
	}
	return c
}

// resolveClassification returns the pre-computed classification carried in
// the payload (a SOURCE job already classified this article), or calls the
// external classifier. A classifier error defaults to TRASH (spec §7:
// "Classification failure ... Default to TRASH").
func resolveClassification(ctx context.Context, rt *Runtime, content extract.Content, p *ArticlePayload) ClassifiedFields {
	if p.PreClassified != nil {
		return *p.PreClassified
	}
	if rt.Classifier == nil {
		return ClassifiedFields{Label: "trash"}
	}
	class, err := rt.Classifier.Classify(ctx, content.Title, content.Text, p.URL)
	if err != nil {
		slog.Warn("classification failed, defaulting to trash", slog.Any("error", err))
		return ClassifiedFields{Label: "trash"}
	}
	return class
}

func buildArticle(rawURL, canonicalURL string, content extract.Content, class ClassifiedFields, summary SummaryResult) entity.Article {
	title := summary.Title
	if title == "" {
		title = content.Title
	}

	a := entity.Article{
		URL:          rawURL,
		CanonicalURL: canonicalURL,
		Title:        title,
		SummaryShort: summary.ShortSummary,
		Topic:        summary.Topic,
		MainTopic:    summary.MainTopic,
		Subtopic2:    summary.Subtopic2,
		Subtopic3:    summary.Subtopic3,
		Grade:        summary.Score,
		PostedDate:   content.Date,
		IsEmbedded:   false,
		FullText:     content.Text,
		Metadata:     content.Metadata,
	}

	// Medium/long tiers only populated for city-scope (spec §4.5.1 step 8).
	if class.IsCity() {
		a.SummaryMedium = summary.MediumSummary
		a.SummaryLong = summary.LongSummary
	}

	// audience_scope bracket-tag override, mirroring
	// original_source/headline_api/db.py:save_article.
	scope := jobstore.ParseAudienceScope(class.AudienceScope())
	switch scope.Label {
	case "city":
		a.City = scope.Slug
	case "industry":
		a.MainTopic = scope.Slug
	}

	return a
}

// notifyNewArticle fans a freshly saved CITY-scope article out to the
// configured Discord/Slack channels (enrichment carried over from the
// teacher's fetch service, see DESIGN.md "Ambient stack carryover"). It is
// entirely best-effort: a missing notifier, a source lookup failure, or a
// channel error never affect the job's outcome.
func notifyNewArticle(ctx context.Context, rt *Runtime, article *entity.Article, class ClassifiedFields, p *ArticlePayload) {
	if rt.Notifier == nil || !class.IsCity() || p.SourceID == nil {
		return
	}

	table := p.SourceTable
	if table == "" {
		table = entity.DefaultSourceTable
	}
	source, err := rt.Store.GetSource(ctx, table, *p.SourceID)
	if err != nil {
		slog.Warn("notify: source lookup failed, skipping notification", slog.Int64("source_id", *p.SourceID), slog.Any("error", err))
		return
	}

	if err := rt.Notifier.NotifyNewArticle(ctx, article, source); err != nil {
		slog.Warn("notify: dispatch failed", slog.Int64("article_id", article.ID), slog.Any("error", err))
	}
}

// cityDedupeKey extracts just the city name (no state) for the
// processed_news_urls dedup row, matching article_processor.py's
// city_for_dedupe computation.
func cityDedupeKey(class ClassifiedFields) string {
	if class.Label != "city" || class.CitySlug == "" {
		return "unknown"
	}
	first, _, _ := strings.Cut(class.CitySlug, ",")
	return strings.TrimSpace(first)
}

// saveProcessedIgnoreDup saves a ProcessedURL row, treating
// jobstore.ErrAlreadyProcessed as success (spec §7: "Duplicate key ...
// Swallow silently").
func saveProcessedIgnoreDup(ctx context.Context, store *jobstore.Store, canonicalURL string, status entity.ProcessedURLStatus, city string) error {
	err := store.SaveProcessed(ctx, canonicalURL, status, city)
	if err == jobstore.ErrAlreadyProcessed {
		return nil
	}
	return err
}
