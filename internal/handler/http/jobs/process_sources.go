package jobs

import (
	"encoding/json"
	"net/http"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/handler/http/respond"
	"catchup-feed/internal/jobstore"
	"catchup-feed/internal/worker"
)

// defaultBatchSize mirrors spec §6's `batch_size=50` default for
// POST /process-sources.
const defaultBatchSize = 50

// ProcessSourcesHandler enqueues a single BATCH job (spec §6: "POST
// /process-sources").
type ProcessSourcesHandler struct{ Store *jobstore.Store }

func (h ProcessSourcesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := struct {
		BatchSize int    `json:"batch_size"`
		Query     string `json:"query,omitempty"`
		DryRun    bool   `json:"dry_run"`
	}{BatchSize: defaultBatchSize}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	if req.BatchSize <= 0 {
		req.BatchSize = defaultBatchSize
	}

	id, err := h.Store.Enqueue(r.Context(), entity.JobTypeBatch, worker.BatchPayload{
		BatchSize: req.BatchSize,
		Query:     req.Query,
		DryRun:    req.DryRun,
	})
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	respond.JSON(w, http.StatusAccepted, enqueuedResponse{JobID: id})
}
