package jobs

import (
	"encoding/json"
	"errors"
	"net/http"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/handler/http/respond"
	"catchup-feed/internal/jobstore"
	"catchup-feed/internal/worker"
)

// defaultSourceLimit mirrors spec §6's `limit=100` default for
// POST /scrape-source.
const defaultSourceLimit = 100

// ScrapeSourceHandler enqueues a single SOURCE job (spec §6: "POST
// /scrape-source").
type ScrapeSourceHandler struct{ Store *jobstore.Store }

func (h ScrapeSourceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := struct {
		URL         string `json:"url"`
		SourceID    *int64 `json:"source_id,omitempty"`
		SourceTable string `json:"source_table,omitempty"`
		Limit       int    `json:"limit"`
	}{Limit: defaultSourceLimit}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	if req.URL == "" && req.SourceID == nil {
		respond.SafeError(w, http.StatusBadRequest, errors.New("url or source_id is required"))
		return
	}
	if req.Limit <= 0 {
		req.Limit = defaultSourceLimit
	}

	id, err := h.Store.Enqueue(r.Context(), entity.JobTypeSource, worker.SourcePayload{
		URL:         req.URL,
		SourceID:    req.SourceID,
		SourceTable: req.SourceTable,
		Limit:       req.Limit,
	})
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	respond.JSON(w, http.StatusAccepted, enqueuedResponse{JobID: id})
}
