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

// maxMultiSourceEntries caps the `sources` list on POST
// /scrape-multiple-sources (spec §6: "sources ≥ 1, ≤ 50, no duplicates").
const maxMultiSourceEntries = 50

// ScrapeMultipleSourcesHandler enqueues a single MULTI_SOURCE job (spec
// §6: "POST /scrape-multiple-sources").
type ScrapeMultipleSourcesHandler struct{ Store *jobstore.Store }

func (h ScrapeMultipleSourcesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Sources []struct {
			SourceID    int64  `json:"source_id"`
			SourceTable string `json:"source_table,omitempty"`
			Limit       int    `json:"limit"`
		} `json:"sources"`
		DryRun bool `json:"dry_run"`
	}{}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Sources) == 0 || len(req.Sources) > maxMultiSourceEntries {
		respond.SafeError(w, http.StatusBadRequest, errors.New("sources must have between 1 and 50 entries"))
		return
	}

	type key struct {
		id    int64
		table string
	}
	seen := make(map[key]struct{}, len(req.Sources))
	entries := make([]worker.MultiSourceEntry, 0, len(req.Sources))
	for _, s := range req.Sources {
		table := s.SourceTable
		if table == "" {
			table = entity.DefaultSourceTable
		}
		k := key{id: s.SourceID, table: table}
		if _, dup := seen[k]; dup {
			respond.SafeError(w, http.StatusBadRequest, errors.New("duplicate source in sources list"))
			return
		}
		seen[k] = struct{}{}

		limit := s.Limit
		if limit <= 0 {
			limit = defaultSourceLimit
		}
		entries = append(entries, worker.MultiSourceEntry{
			SourceID:    s.SourceID,
			SourceTable: table,
			Limit:       limit,
		})
	}

	id, err := h.Store.Enqueue(r.Context(), entity.JobTypeMultiSource, worker.MultiSourcePayload{
		Sources: entries,
		DryRun:  req.DryRun,
	})
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	respond.JSON(w, http.StatusAccepted, enqueuedResponse{JobID: id})
}
