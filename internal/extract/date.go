package extract

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// sanityWindow bounds every date this package will persist (spec §4.3,
// §8): now-3650d <= d <= now+1d. Out-of-window dates are discarded, never
// persisted, and the cascade continues to its next step.
const (
	sanityPast   = 3650 * 24 * time.Hour
	sanityFuture = 24 * time.Hour
)

func inSanityWindow(d, now time.Time) bool {
	return !d.Before(now.Add(-sanityPast)) && !d.After(now.Add(sanityFuture))
}

// AIDater extracts a free-form publication-date string by analyzing
// content/metadata via an external LLM (spec §4.3's "AI fallback"/"AI
// extraction" step). This is the external classifier/summarizer
// collaborator's contract (spec §1 Non-goals): only the request/response
// shape matters here, not the prompt.
type AIDater interface {
	ExtractDateString(ctx context.Context, content string, metadata map[string]string) (string, error)
}

// metadataDateFields is the exact ordered field list checked by the
// algorithmic metadata fallback (spec §4.3). Grounded on
// original_source/headline_worker/modules/date_extractor.py:extract_date_from_metadata.
var metadataDateFields = []string{
	"article:published_time",
	"og:published_time",
	"date",
	"pubdate",
	"published",
	"publication_date",
	"datePublished",
	"article:modified_time",
	"og:updated_time",
	"last-modified",
	"modified",
}

// ParseEngineDate parses an engine-supplied date field (RFC-1123-like or
// otherwise free-form) and validates it against the sanity window.
// Grounded on date_extractor.py:parse_diffbot_date.
func ParseEngineDate(dateStr string, now time.Time) (*time.Time, bool) {
	if dateStr == "" {
		return nil, false
	}
	d, err := dateparse.ParseAny(dateStr)
	if err != nil {
		slog.Warn("failed to parse engine date", slog.String("date", dateStr), slog.Any("error", err))
		return nil, false
	}
	if !inSanityWindow(d, now) {
		slog.Warn("engine date outside sanity window", slog.Time("date", d))
		return nil, false
	}
	return &d, true
}

// ExtractDateFromMetadata walks metadataDateFields in order, returning the
// first parseable, in-window date. Grounded on date_extractor.py:
// extract_date_from_metadata.
func ExtractDateFromMetadata(metadata map[string]string, now time.Time) (*time.Time, bool) {
	for _, field := range metadataDateFields {
		v, ok := metadata[field]
		if !ok || v == "" {
			continue
		}
		d, err := dateparse.ParseAny(v)
		if err != nil {
			continue
		}
		if inSanityWindow(d, now) {
			return &d, true
		}
	}
	return nil, false
}

var (
	hoursAgoRe = regexp.MustCompile(`(\d+)\s*hours?\s*ago`)
	daysAgoRe  = regexp.MustCompile(`(\d+)\s*days?\s*ago`)
)

// ParseRelativeOrFreeform resolves "N hours ago", "N days ago",
// "yesterday", "today", or falls through to general free-form parsing.
// Used by every path that parses AI-extracted date text (spec §4.3:
// "Relative-date resolution"). Grounded on
// date_extractor.py:parse_ai_extracted_date.
func ParseRelativeOrFreeform(dateStr string, now time.Time) (*time.Time, bool) {
	dateStr = strings.TrimSpace(dateStr)
	lower := strings.ToLower(dateStr)

	switch {
	case strings.Contains(lower, "hour") && strings.Contains(lower, "ago"):
		if m := hoursAgoRe.FindStringSubmatch(lower); m != nil {
			n, _ := strconv.Atoi(m[1])
			d := now.Add(-time.Duration(n) * time.Hour)
			return &d, true
		}
	case strings.Contains(lower, "day") && strings.Contains(lower, "ago"):
		if m := daysAgoRe.FindStringSubmatch(lower); m != nil {
			n, _ := strconv.Atoi(m[1])
			d := now.AddDate(0, 0, -n)
			return &d, true
		}
	case strings.Contains(lower, "yesterday"):
		d := now.AddDate(0, 0, -1)
		return &d, true
	case strings.Contains(lower, "today"):
		d := time.Date(now.Year(), now.Month(), now.Day(), 12, 0, 0, 0, now.Location())
		return &d, true
	}

	d, err := dateparse.ParseAny(dateStr)
	if err != nil {
		return nil, false
	}
	if !inSanityWindow(d, now) {
		slog.Warn("AI-extracted date outside sanity window", slog.Time("date", d))
		return nil, false
	}
	return &d, true
}

// maxAIContentBytes caps the content/metadata blob sent to the AI dater
// (spec §4.3: "trimmed to 8 KB").
const maxAIContentBytes = 8000

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// ExtractDatePriority runs the scraper-specific priority cascade (spec
// §4.3). For ScraperSecondary: engine date field first, AI fallback
// second. For ScraperPrimary: AI extraction first, algorithmic metadata
// fallback second. Returns (nil, "failed") if every step is exhausted.
// Grounded on
// date_extractor.py:extract_date_priority_system.
func ExtractDatePriority(ctx context.Context, ai AIDater, scraperType ScraperType, engineDate string, content Content, now time.Time) (*time.Time, string) {
	metadata := content.Metadata
	contentForAI := content.CleanHTML
	if contentForAI == "" {
		contentForAI = content.Markdown
	}
	contentForAI = truncate(contentForAI, maxAIContentBytes)

	switch scraperType {
	case ScraperSecondary:
		if d, ok := ParseEngineDate(engineDate, now); ok {
			return d, "secondary-primary"
		}
		if ai != nil && (contentForAI != "" || len(metadata) > 0) {
			if dateStr, err := ai.ExtractDateString(ctx, contentForAI, metadata); err == nil && dateStr != "" {
				if d, ok := ParseRelativeOrFreeform(dateStr, now); ok {
					return d, "secondary-ai-fallback"
				}
			}
		}

	case ScraperPrimary:
		if ai != nil && (contentForAI != "" || len(metadata) > 0) {
			if dateStr, err := ai.ExtractDateString(ctx, contentForAI, metadata); err == nil && dateStr != "" {
				if d, ok := ParseRelativeOrFreeform(dateStr, now); ok {
					return d, "primary-ai"
				}
			}
		}
		if d, ok := ExtractDateFromMetadata(metadata, now); ok {
			return d, "primary-algorithmic-fallback"
		}

	case ScraperTertiary:
		// No metadata/engine date available from a plain-HTTP fetch; the
		// AI fallback is the only avenue, and it needs content to work with.
		if ai != nil && contentForAI != "" {
			if dateStr, err := ai.ExtractDateString(ctx, contentForAI, metadata); err == nil && dateStr != "" {
				if d, ok := ParseRelativeOrFreeform(dateStr, now); ok {
					return d, "tertiary-ai"
				}
			}
		}

	default:
		slog.Warn("unknown scraper type for date cascade", slog.String("scraper_type", string(scraperType)))
	}

	return nil, "failed"
}
