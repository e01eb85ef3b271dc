package extract

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

// TertiaryFetcher is a last-resort, SSRF-hardened plain HTTP GET + Readability
// extraction path, tried only once both the primary (headless-browser) and
// secondary (commercial API) engines have failed. Satisfied by
// internal/infra/fetcher.ReadabilityFetcher.
type TertiaryFetcher interface {
	FetchContent(ctx context.Context, urlStr string) (string, error)
}

// Extractor runs the extraction pipeline: primary (headless-browser +
// Readability) first, secondary (commercial API) second, and an optional
// tertiary plain-HTTP Readability fetch last (spec §4.3). Grounded on
// original_source/headline_worker/modules/content_extractor.py:
// extract_content (the try-primary-then-fallback shape) and the
// teacher's fetcher.ReadabilityFetcher both for readability.FromReader
// usage and, wired as Tertiary, as the final fallback tier.
type Extractor struct {
	primary   *PrimaryEngine
	secondary *SecondaryEngine
	tertiary  TertiaryFetcher
	ai        AIDater
	now       func() time.Time
}

// NewExtractor wires an Extractor. ai may be nil, in which case the date
// cascade's AI steps are skipped and only engine-date/metadata fallbacks
// run. tertiary may be nil, in which case Extract returns an error once
// both engines fail, same as before it existed.
func NewExtractor(primary *PrimaryEngine, secondary *SecondaryEngine, ai AIDater, tertiary TertiaryFetcher) *Extractor {
	return &Extractor{primary: primary, secondary: secondary, tertiary: tertiary, ai: ai, now: time.Now}
}

// Extract fetches and normalizes article content for targetURL, preferring
// the primary engine, falling back to the secondary engine, and finally to
// the tertiary plain-HTTP fetch if both fail, then resolves the
// publication date via the scraper-specific priority cascade.
func (e *Extractor) Extract(ctx context.Context, targetURL string) (Content, error) {
	content, err := e.extractPrimary(ctx, targetURL)
	if err != nil {
		slog.Warn("primary engine failed, falling back to secondary engine",
			slog.String("url", targetURL), slog.Any("error", err))
		content, err = e.secondary.Fetch(ctx, targetURL)
		if err != nil {
			content, err = e.extractTertiary(ctx, targetURL, err)
			if err != nil {
				return Content{}, err
			}
		}
	}

	now := e.now()
	engineDate := content.Metadata["date"]
	date, method := ExtractDatePriority(ctx, e.ai, content.ScraperType, engineDate, content, now)
	content.Date = date
	content.DateExtractionMethod = method
	slog.Info("date extraction complete", slog.String("url", targetURL), slog.String("method", method))

	return content, nil
}

func (e *Extractor) extractPrimary(ctx context.Context, targetURL string) (Content, error) {
	if e.primary == nil {
		return Content{}, fmt.Errorf("primary engine not configured")
	}

	page, err := e.primary.Fetch(ctx, targetURL)
	if err != nil {
		return Content{}, err
	}

	parsedURL, parseErr := url.Parse(targetURL)
	if parseErr != nil {
		parsedURL = nil
	}

	article, err := readability.FromReader(strings.NewReader(page.HTML), parsedURL)
	if err != nil {
		return Content{}, fmt.Errorf("readability extraction failed: %w", err)
	}

	mainHTML := article.Content
	if mainHTML == "" {
		mainHTML = page.HTML
	}

	return Content{
		Title:       page.Title,
		Text:        firstNonEmpty(article.TextContent, PlainText(mainHTML)),
		Markdown:    ToMarkdown(mainHTML),
		CleanHTML:   CleanHTMLForAI(mainHTML),
		Metadata:    page.Metadata,
		ScraperType: ScraperPrimary,
	}, nil
}

// extractTertiary tries the plain-HTTP Readability fallback once both the
// primary and secondary engines have failed. secondaryErr is the secondary
// engine's failure, folded into the returned error when tertiary is unset
// or also fails, so callers see why every tier gave up.
func (e *Extractor) extractTertiary(ctx context.Context, targetURL string, secondaryErr error) (Content, error) {
	if e.tertiary == nil {
		return Content{}, fmt.Errorf("both engines failed for %s: %w", targetURL, secondaryErr)
	}

	text, err := e.tertiary.FetchContent(ctx, targetURL)
	if err != nil {
		return Content{}, fmt.Errorf("all three engines failed for %s (secondary: %v): %w", targetURL, secondaryErr, err)
	}

	return Content{
		Text: text,
		// Markdown doubles as the AI date cascade's content input (there's
		// no HTML to derive CleanHTML from after a plain-text fetch).
		Markdown:    text,
		ScraperType: ScraperTertiary,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
