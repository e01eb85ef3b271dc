package worker

import (
	"context"
	"fmt"

	"catchup-feed/internal/domain/entity"
)

// runMultiSource iterates an explicit list of sources and enqueues a SOURCE
// job for each — it does not execute any of them inline (spec §4.5
// dispatch table: "for each, enqueue a SOURCE job (does not execute
// inline)"), unlike BATCH fan-out which processes its sources immediately.
func runMultiSource(ctx context.Context, rt *Runtime, p *MultiSourcePayload) error {
	if p.DryRun {
		return nil
	}
	for _, entry := range p.Sources {
		sourceID := entry.SourceID
		payload := &SourcePayload{
			SourceID:    &sourceID,
			SourceTable: entry.SourceTable,
			Limit:       entry.Limit,
		}
		if _, err := rt.Store.Enqueue(ctx, entity.JobTypeSource, payload); err != nil {
			return fmt.Errorf("enqueue source job for source %d: %w", entry.SourceID, err)
		}
	}
	return nil
}
