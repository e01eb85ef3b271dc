package jobs

import (
	"net/http"

	"catchup-feed/internal/handler/http/auth"
	"catchup-feed/internal/jobstore"
)

// Register registers the job-queue façade handlers with the given mux
// (spec §6). Enqueue endpoints mutate the queue and require
// authentication, matching the create/update/delete routes in the
// sibling article/source packages; GET /jobs/{id} is a read and stays
// public.
func Register(mux *http.ServeMux, store *jobstore.Store) {
	mux.Handle("POST   /scrape-article", auth.Authz(ScrapeArticleHandler{store}))
	mux.Handle("POST   /scrape-source", auth.Authz(ScrapeSourceHandler{store}))
	mux.Handle("POST   /process-sources", auth.Authz(ProcessSourcesHandler{store}))
	mux.Handle("POST   /scrape-multiple-sources", auth.Authz(ScrapeMultipleSourcesHandler{store}))

	mux.Handle("GET    /jobs/", GetHandler{store})
}
