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

// ScrapeArticleHandler enqueues a single ARTICLE job (spec §6: "POST
// /scrape-article").
type ScrapeArticleHandler struct{ Store *jobstore.Store }

func (h ScrapeArticleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL      string `json:"url"`
		SourceID *int64 `json:"source_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}
	if req.URL == "" {
		respond.SafeError(w, http.StatusBadRequest, errors.New("url is required"))
		return
	}

	id, err := h.Store.Enqueue(r.Context(), entity.JobTypeArticle, worker.ArticlePayload{
		URL:      req.URL,
		SourceID: req.SourceID,
	})
	if err != nil {
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	respond.JSON(w, http.StatusAccepted, enqueuedResponse{JobID: id})
}
