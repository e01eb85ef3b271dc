package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/chromedp"
)

// navigateTimeout bounds how long the headless browser waits for a page
// load before giving up and falling through to the secondary engine (spec
// §4.3: "3 second navigation timeout"). Grounded on
// original_source/headline_worker/modules/content_extractor.py:
// extract_content_with_playwright (page.goto(url, timeout=3000)).
const navigateTimeout = 3 * time.Second

// PrimaryEngine drives a headless Chrome instance to render a page and
// harvest its title, meta tags, and HTML for Readability-style extraction.
// One PrimaryEngine owns one long-lived browser allocator; Fetch opens a
// fresh tab per call so concurrent fetches don't share navigation state.
// Grounded on
// content_extractor.py:extract_content_with_playwright and
// ternarybob-quaero's internal/services/crawler/hybrid_scraper.go
// allocator/context wiring.
type PrimaryEngine struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewPrimaryEngine launches a headless Chrome allocator. Call Close when
// the engine is no longer needed.
func NewPrimaryEngine(ctx context.Context) *PrimaryEngine {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("ignore-certificate-errors", true),
		chromedp.Flag("disable-gpu", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	return &PrimaryEngine{allocCtx: allocCtx, allocCancel: allocCancel}
}

// Close releases the underlying Chrome process.
func (e *PrimaryEngine) Close() {
	e.allocCancel()
}

const metaExtractJS = `
(function() {
	const out = {};
	document.querySelectorAll('meta').forEach(function(m) {
		const key = m.getAttribute('name') || m.getAttribute('property');
		const content = m.getAttribute('content');
		if (key && content) out[key] = content;
	});
	return out;
})()
`

// rawPage is what a single navigation harvests before Readability-style
// content distillation is applied by the caller.
type rawPage struct {
	Title    string
	HTML     string
	Metadata map[string]string
}

// Fetch navigates to targetURL in a fresh tab, with navigateTimeout bound,
// and returns the page title, full HTML, and meta-tag map. The caller is
// responsible for running Readability-style main-content extraction over
// the HTML (spec §4.3 treats that as a separate, engine-agnostic step).
func (e *PrimaryEngine) Fetch(ctx context.Context, targetURL string) (rawPage, error) {
	tabCtx, tabCancel := chromedp.NewContext(e.allocCtx)
	defer tabCancel()

	navCtx, navCancel := context.WithTimeout(tabCtx, navigateTimeout)
	defer navCancel()

	slog.Info("navigating with primary engine", slog.String("url", targetURL))

	var page rawPage
	err := chromedp.Run(navCtx,
		chromedp.Navigate(targetURL),
		chromedp.Title(&page.Title),
		chromedp.OuterHTML("html", &page.HTML),
		chromedp.Evaluate(metaExtractJS, &page.Metadata),
	)
	if err != nil {
		return rawPage{}, fmt.Errorf("primary engine navigate %s: %w", targetURL, err)
	}
	return page, nil
}
