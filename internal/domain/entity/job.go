package entity

import (
	"encoding/json"
	"time"
)

// JobType identifies the shape of a Job's payload and which pipeline
// handles it.
type JobType string

const (
	JobTypeArticle      JobType = "ARTICLE"
	JobTypeSource       JobType = "SOURCE"
	JobTypeBatch        JobType = "BATCH"
	JobTypeMultiSource  JobType = "MULTI_SOURCE"
)

// JobStatus is the job's position in the state machine described in
// spec §4.5: QUEUED -> IN_PROGRESS -> {DONE, ERROR, CANCELLED}.
type JobStatus string

const (
	JobStatusQueued     JobStatus = "QUEUED"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusDone       JobStatus = "DONE"
	JobStatusError      JobStatus = "ERROR"
	JobStatusCancelled  JobStatus = "CANCELLED"
)

// Job is the persistent queue record. Payload is stored as raw JSON and
// decoded into one of the typed payload variants in internal/worker/payload.go
// based on Type.
type Job struct {
	ID           int64
	Type         JobType
	Payload      json.RawMessage
	Status       JobStatus
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time

	LinksFound    int
	LinksSkipped  int
	ArticlesSaved int
	Errors        int
}

// CounterDelta describes an additive update to a Job's progress counters.
// Fields left nil are untouched. update_counters in spec §4.4 is additive
// within a single job's lifetime.
type CounterDelta struct {
	LinksFound    *int
	LinksSkipped  *int
	ArticlesSaved *int
	Errors        *int
}
