package worker

import (
	"context"
	"fmt"
	"log/slog"

	"catchup-feed/internal/domain/entity"
)

// Dispatch claims a single job's processing: it decodes the payload for
// job.Type, runs the matching pipeline, and marks the job DONE or ERROR
// based on the outcome (spec §4.5 dispatch table). It never returns an
// error itself — failures are recorded on the job row, matching the main
// loop's "claim, dispatch, mark" contract (spec §4.5 "Main loop" step 3).
func Dispatch(ctx context.Context, rt *Runtime, job *entity.Job) {
	var err error
	switch job.Type {
	case entity.JobTypeArticle:
		var p *ArticlePayload
		p, err = decodeArticlePayload(job.Payload)
		if err == nil {
			err = runArticle(ctx, rt, p)
		}
	case entity.JobTypeSource:
		var p *SourcePayload
		p, err = decodeSourcePayload(job.Payload)
		if err == nil {
			err = runSourceJob(ctx, rt, job.ID, p)
		}
	case entity.JobTypeBatch:
		var p *BatchPayload
		p, err = decodeBatchPayload(job.Payload)
		if err == nil {
			err = runBatch(ctx, rt, job.ID, p)
		}
	case entity.JobTypeMultiSource:
		var p *MultiSourcePayload
		p, err = decodeMultiSourcePayload(job.Payload)
		if err == nil {
			err = runMultiSource(ctx, rt, p)
		}
	default:
		err = fmt.Errorf("unknown job type: %s", job.Type)
	}

	finishJob(ctx, rt, job.ID, err)
}

// finishJob records the terminal outcome of a claimed job. Marking the
// store itself failing is logged but not retried here — the next
// startup sweep will clean up anything left IN_PROGRESS (spec §4.5
// "Startup recovery").
func finishJob(ctx context.Context, rt *Runtime, jobID int64, err error) {
	if err != nil {
		if markErr := rt.Store.MarkError(ctx, jobID, err.Error()); markErr != nil {
			slog.Error("failed to mark job as ERROR", slog.Int64("job_id", jobID), slog.Any("error", markErr))
		}
		return
	}
	if markErr := rt.Store.MarkDone(ctx, jobID); markErr != nil {
		slog.Error("failed to mark job as DONE", slog.Int64("job_id", jobID), slog.Any("error", markErr))
	}
}

// executeArticleJob enqueues a fresh ARTICLE job carrying pre-extracted
// and/or pre-classified fields and executes it inline, used by the SOURCE
// and BATCH pipelines (spec §4.5.2 step 3, §4.5.3 step 4: "execute ... inline,
// not via a new job" for the outer pipeline, while the per-article job it
// spawns is still a real, auditable row). Returns the article pipeline's
// error (if any) so callers can fold it into their own counters instead of
// treating it as their own job's terminal failure.
func executeArticleJob(ctx context.Context, rt *Runtime, p *ArticlePayload) error {
	id, err := rt.Store.Enqueue(ctx, entity.JobTypeArticle, p)
	if err != nil {
		return fmt.Errorf("enqueue inline article job: %w", err)
	}
	runErr := runArticle(ctx, rt, p)
	finishJob(ctx, rt, id, runErr)
	return runErr
}
