// Package jobs implements the thin REST façade over the job queue (spec
// §6): handlers only decode a request body, call into internal/jobstore,
// and report back a job id or job status. No pipeline logic lives here.
package jobs

import (
	"time"

	"catchup-feed/internal/domain/entity"
)

// enqueuedResponse is the 202 body every enqueue endpoint returns.
type enqueuedResponse struct {
	JobID int64 `json:"job_id"`
}

// JobDetails is the GET /jobs/{id} response body (spec §6: "200
// JobDetails").
type JobDetails struct {
	ID            int64     `json:"id"`
	Type          string    `json:"job_type"`
	Status        string    `json:"status"`
	ErrorMessage  *string   `json:"error_message,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	LinksFound    int       `json:"links_found"`
	LinksSkipped  int       `json:"links_skipped"`
	ArticlesSaved int       `json:"articles_saved"`
	Errors        int       `json:"errors"`
}

func jobDetailsFrom(job *entity.Job) JobDetails {
	return JobDetails{
		ID:            job.ID,
		Type:          string(job.Type),
		Status:        string(job.Status),
		ErrorMessage:  job.ErrorMessage,
		CreatedAt:     job.CreatedAt,
		UpdatedAt:     job.UpdatedAt,
		LinksFound:    job.LinksFound,
		LinksSkipped:  job.LinksSkipped,
		ArticlesSaved: job.ArticlesSaved,
		Errors:        job.Errors,
	}
}
