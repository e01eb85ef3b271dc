// Package entity defines the core domain entities and validation logic for the application.
// It contains the fundamental business objects such as Article and Source, along with
// their validation rules and domain-specific errors.
package entity

import "time"

// AudienceScope determines which summarizer prompt was used and which
// persisted fields are populated for an Article (spec GLOSSARY: Scope).
type AudienceScope struct {
	// Label is one of "city", "global", "industry", "trash".
	Label string
	// Slug is the city or industry identifier when Label is "city"/"industry".
	Slug string
}

// IsCity reports whether this scope carries the medium/long summary tiers.
func (a AudienceScope) IsCity() bool {
	return a.Label == "city"
}

// Article represents a persisted, extracted news article (spec §3).
// One Article exists per canonical URL; CanonicalURL is the dedup key.
type Article struct {
	ID       int64
	SourceID int64

	URL          string
	CanonicalURL string
	Title        string

	// Three summary tiers. Medium and Long are only populated for
	// city-scoped articles (spec §3, §4.5.1 step 8).
	SummaryShort  string
	SummaryMedium string
	SummaryLong   string

	Topic     string
	MainTopic string
	Subtopic2 string
	Subtopic3 string
	Grade     int // 0-100

	PostedDate *time.Time

	IsEmbedded bool
	VectorID   string

	FullText string
	Metadata map[string]string

	City string // audience scope city tag, empty for global/industry

	CreatedAt time.Time
}

// ProcessedURLStatus is the terminal classification recorded for a
// canonical URL once it has been handled (spec §3: ProcessedURL).
type ProcessedURLStatus string

const (
	ProcessedURLTrash     ProcessedURLStatus = "trash"
	ProcessedURLProcessed ProcessedURLStatus = "processed"
	ProcessedURLPending   ProcessedURLStatus = "pending"
)

// ProcessedURL is a dedup-set element keyed by canonical URL. Once
// inserted it is never mutated (spec §3).
type ProcessedURL struct {
	URL    string
	Status ProcessedURLStatus
	City   string
}
