package worker

import (
	"context"
	"fmt"
	"log/slog"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/extract"
	"catchup-feed/internal/urlutil"
)

// collectSourceLinks gathers up to max candidate article URLs for a source.
// Sources whose SourceType names a JS-rendered feed platform (Webflow,
// NextJS, Remix) are routed through the matching rt.FeedScrapers entry,
// since extract.CollectLinks' generic HTML link walk can't execute their
// client-side rendering. Everything else, including the default "RSS"
// type and ephemeral sources built from a bare URL, uses the generic path.
func collectSourceLinks(ctx context.Context, rt *Runtime, source *entity.Source, sourceURL string, max int) ([]string, error) {
	if scraper, ok := rt.FeedScrapers[source.SourceType]; ok {
		items, err := scraper.Fetch(ctx, sourceURL)
		if err != nil {
			return nil, fmt.Errorf("scrape(%s, %s): %w", source.SourceType, sourceURL, err)
		}
		links := make([]string, 0, len(items))
		for _, item := range items {
			links = append(links, item.URL)
		}
		return links, nil
	}
	return extract.CollectLinks(ctx, rt.Primary, rt.Secondary, sourceURL, max)
}

// sourceOutcome accumulates the counters a SOURCE pipeline run reports back
// to its job row (spec §4.5.2 step 4).
type sourceOutcome struct {
	ArticlesSaved int
	LinksSkipped  int
	Errors        int
}

// runSourceJob executes the source pipeline for a top-level SOURCE job
// (spec §4.5.2), resolving the source from the payload and reporting
// counters onto the job itself. BATCH fan-out calls processSource directly
// instead, since it already has the *entity.Source in hand and reports
// counters onto the parent BATCH job (spec §4.5.3 step 4-5).
func runSourceJob(ctx context.Context, rt *Runtime, jobID int64, p *SourcePayload) error {
	source, err := resolveSource(ctx, rt, p)
	if err != nil {
		return fmt.Errorf("resolve source: %w", err)
	}

	outcome, err := processSource(ctx, rt, source, p.Limit)
	applyOutcomeCounters(ctx, rt, jobID, outcome)
	if err != nil {
		return err
	}

	touchScrapedAt(ctx, rt, source)
	return nil
}

// applyOutcomeCounters reports a sourceOutcome onto a job row (spec §4.5.2
// step 4). Counters are applied even when the pipeline itself returned an
// error, honoring the "partial progress survives" principle (spec §7).
func applyOutcomeCounters(ctx context.Context, rt *Runtime, jobID int64, out sourceOutcome) {
	delta := entity.CounterDelta{
		ArticlesSaved: &out.ArticlesSaved,
		LinksSkipped:  &out.LinksSkipped,
		Errors:        &out.Errors,
	}
	if err := rt.Store.UpdateCounters(ctx, jobID, delta); err != nil {
		slog.Warn("update_counters failed", slog.Int64("job_id", jobID), slog.Any("error", err))
	}
}

// touchScrapedAt stamps last_scraped_at only for the primary sources table
// (spec §4.5.2 step 5).
func touchScrapedAt(ctx context.Context, rt *Runtime, source *entity.Source) {
	if source.ID != 0 && source.Table == entity.DefaultSourceTable {
		if err := rt.Store.TouchScrapedAt(ctx, source.Table, source.ID); err != nil {
			slog.Warn("update_source_scraped_at failed", slog.Int64("source_id", source.ID), slog.Any("error", err))
		}
	}
}

// resolveSource loads a source row by id when one is named, or builds an
// ephemeral Source from the payload's bare URL (spec §8 boundary case: "a
// source whose URL field is null -> job ERROR" implies a URL must resolve
// one way or the other).
func resolveSource(ctx context.Context, rt *Runtime, p *SourcePayload) (*entity.Source, error) {
	if p.SourceID != nil {
		return rt.Store.GetSource(ctx, p.SourceTable, *p.SourceID)
	}
	if p.URL == "" {
		return nil, fmt.Errorf("source payload has neither source_id nor url")
	}
	return &entity.Source{URL: p.URL, Table: p.SourceTable}, nil
}

// processSource runs the source pipeline's link collection / iteration /
// counter bookkeeping against an already-resolved Source, independent of
// whether it's a standalone SOURCE job or one leg of a BATCH fan-out.
// Grounded on
// original_source/headline_worker/modules/source_processor.py:process_source_job.
func processSource(ctx context.Context, rt *Runtime, source *entity.Source, limit int) (sourceOutcome, error) {
	var out sourceOutcome

	sourceURL := source.ResolveURL()
	if sourceURL == "" {
		return out, fmt.Errorf("source has no url")
	}

	// (2) collect up to 2*limit links
	links, err := collectSourceLinks(ctx, rt, source, sourceURL, 2*limit)
	if err != nil {
		return out, fmt.Errorf("collect_links(%s): %w", sourceURL, err)
	}

	// (3) iterate, stopping once processed+skipped >= limit
	processed := 0
	for _, link := range links {
		if processed+out.LinksSkipped >= limit {
			break
		}

		canonicalURL, err := urlutil.Canonicalize(link)
		if err != nil {
			out.LinksSkipped++
			continue
		}

		status, err := rt.Store.CheckProcessed(ctx, canonicalURL)
		if err != nil {
			slog.Warn("check_processed failed during source pipeline", slog.String("url", canonicalURL), slog.Any("error", err))
			out.Errors++
			continue
		}
		if status != nil {
			out.LinksSkipped++
			continue
		}

		if !urlutil.IsValidArticleURL(link, sourceURL) {
			if err := saveProcessedIgnoreDup(ctx, rt.Store, canonicalURL, entity.ProcessedURLTrash, "unknown"); err != nil {
				slog.Warn("save_processed(trash) failed for rejected link", slog.String("url", canonicalURL), slog.Any("error", err))
			}
			out.LinksSkipped++
			continue
		}

		content, err := rt.Extractor.Extract(ctx, link)
		if err != nil {
			slog.Warn("extraction failed during source pipeline, counting as article error",
				slog.String("url", link), slog.Any("error", err))
			out.Errors++
			continue
		}

		class := resolveClassification(ctx, rt, content, &ArticlePayload{URL: link})
		if class.IsTrash() {
			if err := saveProcessedIgnoreDup(ctx, rt.Store, canonicalURL, entity.ProcessedURLTrash, "unknown"); err != nil {
				slog.Warn("save_processed(trash) failed", slog.String("url", canonicalURL), slog.Any("error", err))
			}
			out.LinksSkipped++
			continue
		}

		payload := &ArticlePayload{
			URL:           link,
			SourceID:      sourceIDPtr(source),
			SourceTable:   source.Table,
			PreExtracted:  extractedFieldsFrom(content),
			PreClassified: &class,
		}
		if err := executeArticleJob(ctx, rt, payload); err != nil {
			out.Errors++
			continue
		}
		out.ArticlesSaved++
		processed++
	}

	return out, nil
}

func sourceIDPtr(source *entity.Source) *int64 {
	if source.ID == 0 {
		return nil
	}
	id := source.ID
	return &id
}

func extractedFieldsFrom(c extract.Content) *ExtractedFields {
	f := &ExtractedFields{
		Title:       c.Title,
		Text:        c.Text,
		Markdown:    c.Markdown,
		CleanHTML:   c.CleanHTML,
		Metadata:    c.Metadata,
		DateMethod:  c.DateExtractionMethod,
		ScraperType: string(c.ScraperType),
	}
	if c.Date != nil {
		f.Date = c.Date.Format("2006-01-02T15:04:05Z07:00")
	}
	return f
}
