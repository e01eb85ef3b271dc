package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"catchup-feed/internal/domain/entity"
)

// perSourceLinkLimit bounds link collection within a single BATCH leg (spec
// §4.5.3 step 4: "a per-source link limit of 15").
const perSourceLinkLimit = 15

// runBatch executes the batch fan-out (spec §4.5.3): select candidate
// sources, fan out the source pipeline across a bounded semaphore (width
// tied to key-pool capacity so concurrent legs never starve each other of
// API keys), and aggregate counters onto the BATCH job as legs finish.
// Grounded on original_source/headline_worker/modules/batch_processor.py
// and the fan-out shape of
// internal/usecase/fetch/service.go:processFeedItems (errgroup +
// buffered-channel semaphore, per-item counters via atomic).
func runBatch(ctx context.Context, rt *Runtime, jobID int64, p *BatchPayload) error {
	// (1) select_sources_for_batch(n, filter)
	sources, err := rt.Store.SelectSourcesForBatch(ctx, p.BatchSize, p.Query)
	if err != nil {
		return fmt.Errorf("select_sources_for_batch: %w", err)
	}

	// (2) set links_found = len(sources)
	linksFound := len(sources)
	if err := rt.Store.UpdateCounters(ctx, jobID, entity.CounterDelta{LinksFound: &linksFound}); err != nil {
		slog.Warn("update_counters(links_found) failed", slog.Int64("job_id", jobID), slog.Any("error", err))
	}

	// (3) dry_run short-circuit
	if p.DryRun {
		return nil
	}
	if len(sources) == 0 {
		return nil
	}

	width := batchSemaphoreWidth(rt.Keys.NumKeys())
	sem := make(chan struct{}, width)
	eg, egCtx := errgroup.WithContext(ctx)

	var savedTotal, errorsTotal int64

	// (4) process sources concurrently, SOURCE pipeline inline per source
	for _, source := range sources {
		source := source
		eg.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			outcome, err := processSource(egCtx, rt, source, perSourceLinkLimit)
			if err != nil {
				slog.Warn("batch leg failed for source", slog.Int64("source_id", source.ID), slog.Any("error", err))
				atomic.AddInt64(&errorsTotal, 1)
				return nil // a single source's failure doesn't abort the batch
			}
			touchScrapedAt(egCtx, rt, source)

			// articles_saved counts sources completed, not articles
			// persisted, matching batch_processor.py:78-80.
			atomic.AddInt64(&savedTotal, 1)
			atomic.AddInt64(&errorsTotal, int64(outcome.Errors))
			return nil
		})
	}

	// errgroup.Wait only ever returns an error here on ctx cancellation,
	// since every leg above swallows its own error.
	waitErr := eg.Wait()

	// (5) update articles_saved and errors as sources finish
	saved := int(savedTotal)
	errs := int(errorsTotal)
	if err := rt.Store.UpdateCounters(ctx, jobID, entity.CounterDelta{ArticlesSaved: &saved, Errors: &errs}); err != nil {
		slog.Warn("update_counters(batch) failed", slog.Int64("job_id", jobID), slog.Any("error", err))
	}

	return waitErr
}

// batchSemaphoreWidth caps fan-out concurrency so sources never collectively
// starve a key pool of spare capacity (spec §4.5.3: "max(1, min(8, num_api_keys - 1))").
func batchSemaphoreWidth(numKeys int) int {
	width := numKeys - 1
	if width > 8 {
		width = 8
	}
	if width < 1 {
		width = 1
	}
	return width
}
