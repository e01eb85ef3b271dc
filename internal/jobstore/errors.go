package jobstore

import "errors"

// Sentinel errors returned by Store operations. Callers match on these
// rather than parsing driver error strings (spec §9: "duplicate-key
// swallowing... modeled as a named error variant").
var (
	// ErrAlreadyProcessed is returned by SaveProcessed when the canonical
	// URL already has a ProcessedURL row; per spec §9's resolved open
	// question, this holds regardless of what status is already stored.
	ErrAlreadyProcessed = errors.New("jobstore: url already processed")

	// ErrJobNotFound is returned by Get when no row matches the id.
	ErrJobNotFound = errors.New("jobstore: job not found")

	// ErrSourceNotFound is returned when a (table, id) pair has no row.
	ErrSourceNotFound = errors.New("jobstore: source not found")

	// ErrUnknownTable is returned when a caller names a source table not
	// on the allow-list (SPEC_FULL §12: never interpolate raw table
	// names from untrusted input).
	ErrUnknownTable = errors.New("jobstore: unknown source table")
)
