// Package worker implements the runtime that claims jobs from C4, dispatches
// them by job_type, and executes the article/source/batch/multi-source
// pipelines (spec §4.5, §5, C5).
package worker

import (
	"encoding/json"
	"fmt"

	"catchup-feed/internal/domain/entity"
)

// ArticlePayload is the ARTICLE job body. PreExtracted/PreClassified are set
// when the job was spawned inline by a SOURCE pipeline that already did the
// work (spec §4.5.1 step 3/4: "if payload carries pre-extracted fields...
// skip network calls").
type ArticlePayload struct {
	URL           string            `json:"url"`
	SourceID      *int64            `json:"source_id,omitempty"`
	SourceTable   string            `json:"source_table,omitempty"`
	PreExtracted  *ExtractedFields  `json:"pre_extracted,omitempty"`
	PreClassified *ClassifiedFields `json:"pre_classified,omitempty"`
}

// ExtractedFields mirrors the subset of extract.Content a SOURCE pipeline
// forwards into an inline ARTICLE job, avoiding a second network fetch.
type ExtractedFields struct {
	Title       string            `json:"title"`
	Text        string            `json:"text"`
	Markdown    string            `json:"markdown"`
	CleanHTML   string            `json:"clean_html"`
	Metadata    map[string]string `json:"metadata"`
	Date        string            `json:"date,omitempty"`
	DateMethod  string            `json:"date_method,omitempty"`
	ScraperType string            `json:"scraper_type"`
}

// ClassifiedFields mirrors a pre-computed classifier verdict forwarded
// alongside ExtractedFields. Label is one of "city", "global", "industry",
// "trash" (grounded on content_classifier.py:ArticleClassification).
type ClassifiedFields struct {
	Label        string `json:"label"`
	CitySlug     string `json:"city_slug,omitempty"`
	IndustrySlug string `json:"industry_slug,omitempty"`
}

// IsTrash reports whether this classification ends the pipeline early
// (spec §4.5.1 step 5). An empty label is treated as trash defensively —
// see §7's "classification failure defaults to TRASH."
func (c ClassifiedFields) IsTrash() bool {
	return c.Label == "" || c.Label == "trash"
}

// IsCity reports whether the CITY summarizer prompt and medium/long
// summary tiers apply (spec §4.5.1 step 7-8).
func (c ClassifiedFields) IsCity() bool {
	return c.Label == "city"
}

// AudienceScope renders the classification in the original's bracket-tag
// convention ("[city:seattle, WA]", "[global]", "[industry:fintech]"),
// consumed by jobstore.ParseAudienceScope. Grounded on
// content_classifier.py:get_audience_scope.
func (c ClassifiedFields) AudienceScope() string {
	switch c.Label {
	case "city":
		return "[city:" + c.CitySlug + "]"
	case "industry":
		return "[industry:" + c.IndustrySlug + "]"
	case "global":
		return "[global]"
	default:
		return "[trash]"
	}
}

// SourcePayload is the SOURCE job body.
type SourcePayload struct {
	URL         string `json:"url"`
	SourceID    *int64 `json:"source_id,omitempty"`
	SourceTable string `json:"source_table,omitempty"`
	Limit       int    `json:"limit"`
}

// BatchPayload is the BATCH job body.
type BatchPayload struct {
	BatchSize int    `json:"batch_size"`
	Query     string `json:"query,omitempty"`
	DryRun    bool   `json:"dry_run"`
}

// MultiSourceEntry names one source within a MULTI_SOURCE job's list.
type MultiSourceEntry struct {
	SourceID    int64  `json:"source_id"`
	SourceTable string `json:"source_table,omitempty"`
	Limit       int    `json:"limit"`
}

// MultiSourcePayload is the MULTI_SOURCE job body.
type MultiSourcePayload struct {
	Sources []MultiSourceEntry `json:"sources"`
	DryRun  bool               `json:"dry_run"`
}

// ErrUnknownJobType is returned by decodePayload for any job_type outside
// the dispatch table (spec §4.5: "mark ERROR with 'unknown job type'").
var ErrUnknownJobType = fmt.Errorf("unknown job type")

// ErrCorruptPayload is returned when a payload fails validation on claim —
// e.g. missing URL — per spec §9: "Validation on claim, not on
// enqueue-reading code paths."
type ErrCorruptPayload struct {
	Reason string
}

func (e *ErrCorruptPayload) Error() string {
	return fmt.Sprintf("corrupt payload: %s", e.Reason)
}

// decodeArticlePayload validates and unmarshals an ARTICLE job payload.
func decodeArticlePayload(raw []byte) (*ArticlePayload, error) {
	var p ArticlePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &ErrCorruptPayload{Reason: err.Error()}
	}
	if p.URL == "" {
		return nil, &ErrCorruptPayload{Reason: "missing url"}
	}
	return &p, nil
}

// decodeSourcePayload validates and unmarshals a SOURCE job payload.
func decodeSourcePayload(raw []byte) (*SourcePayload, error) {
	var p SourcePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &ErrCorruptPayload{Reason: err.Error()}
	}
	if p.URL == "" && p.SourceID == nil {
		return nil, &ErrCorruptPayload{Reason: "missing url and source_id"}
	}
	if p.SourceTable == "" {
		p.SourceTable = entity.DefaultSourceTable
	}
	if p.Limit <= 0 {
		p.Limit = 100
	}
	return &p, nil
}

// decodeBatchPayload validates and unmarshals a BATCH job payload.
func decodeBatchPayload(raw []byte) (*BatchPayload, error) {
	var p BatchPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &ErrCorruptPayload{Reason: err.Error()}
	}
	if p.BatchSize <= 0 {
		p.BatchSize = 50
	}
	return &p, nil
}

// decodeMultiSourcePayload validates and unmarshals a MULTI_SOURCE job
// payload, rejecting an empty list, an oversized list (>50, spec §6), or
// duplicate source ids.
func decodeMultiSourcePayload(raw []byte) (*MultiSourcePayload, error) {
	var p MultiSourcePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &ErrCorruptPayload{Reason: err.Error()}
	}
	if len(p.Sources) == 0 {
		return nil, &ErrCorruptPayload{Reason: "empty sources list"}
	}
	if len(p.Sources) > 50 {
		return nil, &ErrCorruptPayload{Reason: "sources list exceeds 50"}
	}
	seen := make(map[int64]bool, len(p.Sources))
	for i := range p.Sources {
		if p.Sources[i].SourceTable == "" {
			p.Sources[i].SourceTable = entity.DefaultSourceTable
		}
		if p.Sources[i].Limit <= 0 {
			p.Sources[i].Limit = 100
		}
		if seen[p.Sources[i].SourceID] {
			return nil, &ErrCorruptPayload{Reason: "duplicate source_id in sources list"}
		}
		seen[p.Sources[i].SourceID] = true
	}
	return &p, nil
}
