package jobs

import (
	"errors"
	"net/http"

	"catchup-feed/internal/handler/http/pathutil"
	"catchup-feed/internal/handler/http/respond"
	"catchup-feed/internal/jobstore"
)

// GetHandler serves GET /jobs/{id} (spec §6: "200 JobDetails").
type GetHandler struct{ Store *jobstore.Store }

func (h GetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := pathutil.ExtractID(r.URL.Path, "/jobs/")
	if err != nil {
		respond.SafeError(w, http.StatusBadRequest, err)
		return
	}

	job, err := h.Store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, jobstore.ErrJobNotFound) {
			respond.SafeError(w, http.StatusNotFound, err)
			return
		}
		respond.SafeError(w, http.StatusInternalServerError, err)
		return
	}

	respond.JSON(w, http.StatusOK, jobDetailsFrom(job))
}
