// Package extract implements the extraction and date cascade (spec §4.3,
// C3). It fetches article HTML via a primary headless-browser engine,
// falling back to a secondary commercial extraction API, normalizes both
// into a common shape, and determines a publication date through a
// scraper-specific priority cascade.
package extract

import "time"

// ScraperType names which engine produced a Content value, selecting the
// date-extraction priority order (spec §4.3).
type ScraperType string

const (
	ScraperPrimary   ScraperType = "primary"   // headless-browser engine
	ScraperSecondary ScraperType = "secondary" // commercial extraction API
	ScraperTertiary  ScraperType = "tertiary"  // plain-HTTP Readability fallback
)

// Content is the normalized extraction result returned by Extract,
// regardless of which engine produced it (spec §4.3).
type Content struct {
	Title    string
	Text     string
	Markdown string
	// CleanHTML has navigation, headers, footers, sidebars, ad-labeled
	// containers, and scripts/styles removed.
	CleanHTML string
	Metadata  map[string]string

	Date                  *time.Time
	DateExtractionMethod   string
	ScraperType            ScraperType
}
