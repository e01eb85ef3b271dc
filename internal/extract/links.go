package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/chromedp/chromedp"

	"catchup-feed/internal/urlutil"
)

const linksCollectTimeout = 10 * time.Second

// collectLinksJS harvests every anchor href plus any og:url meta tags,
// resolved to absolute URLs client-side. Grounded on
// original_source/headline_worker/modules/link_collector.py:
// collect_links_with_playwright.
const collectLinksJS = `
(function() {
	const out = [];
	document.querySelectorAll('a[href]').forEach(function(a) { out.push(a.href); });
	document.querySelectorAll('meta[property="og:url"]').forEach(function(m) {
		const c = m.getAttribute('content');
		if (c) out.push(c);
	});
	return out;
})()
`

// CollectLinks gathers candidate article links from a source page using
// the primary engine, dedupes and canonicalizes them, filters them through
// urlutil.IsValidArticleURL, and caps the result at limit.
func (e *PrimaryEngine) CollectLinks(ctx context.Context, sourceURL string, limit int) ([]string, error) {
	tabCtx, tabCancel := chromedp.NewContext(e.allocCtx)
	defer tabCancel()

	navCtx, navCancel := context.WithTimeout(tabCtx, linksCollectTimeout)
	defer navCancel()

	var rawLinks []string
	err := chromedp.Run(navCtx,
		chromedp.Navigate(sourceURL),
		chromedp.Evaluate(collectLinksJS, &rawLinks),
	)
	if err != nil {
		return nil, fmt.Errorf("primary engine collect links %s: %w", sourceURL, err)
	}

	return filterAndCanonicalize(rawLinks, sourceURL, limit), nil
}

type listObject struct {
	Link string `json:"link"`
}

type listResponse struct {
	Objects   []listObject `json:"objects"`
	NextPages []string     `json:"nextPages"`
}

const secondaryListEndpoint = "https://api.diffbot.com/v3/list"

// CollectLinks gathers candidate article links via the secondary engine's
// listing API, gated through the same key pool used for article fetches.
// Grounded on link_collector.py:collect_links_with_diffbot.
func (e *SecondaryEngine) CollectLinks(ctx context.Context, sourceURL string, limit int) ([]string, error) {
	token, err := e.keys.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire key for link collection: %w", err)
	}

	q := url.Values{"token": {token}, "url": {sourceURL}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, secondaryListEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("secondary engine list request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("secondary engine list returned status %d", resp.StatusCode)
	}

	var body listResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode secondary engine list response: %w", err)
	}

	raw := make([]string, 0, len(body.Objects)+len(body.NextPages))
	for _, obj := range body.Objects {
		if obj.Link != "" {
			raw = append(raw, obj.Link)
		}
	}
	raw = append(raw, body.NextPages...)

	return filterAndCanonicalize(raw, sourceURL, limit), nil
}

// filterAndCanonicalize validates each raw link against sourceURL, drops
// invalid ones, canonicalizes the rest, dedupes, and caps at limit.
func filterAndCanonicalize(raw []string, sourceURL string, limit int) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, limit)

	for _, link := range raw {
		if len(out) >= limit {
			break
		}
		if !urlutil.IsValidArticleURL(link, sourceURL) {
			continue
		}
		canonical, err := urlutil.Canonicalize(link)
		if err != nil {
			slog.Debug("failed to canonicalize link", slog.String("link", link), slog.Any("error", err))
			continue
		}
		if seen[canonical] {
			continue
		}
		seen[canonical] = true
		out = append(out, canonical)
	}
	return out
}

// CollectLinks tries the primary engine first, falling back to the
// secondary engine if it fails. Grounded on link_collector.py:
// collect_links (try-playwright-then-diffbot shape).
func CollectLinks(ctx context.Context, primary *PrimaryEngine, secondary *SecondaryEngine, sourceURL string, limit int) ([]string, error) {
	if primary != nil {
		links, err := primary.CollectLinks(ctx, sourceURL, limit)
		if err == nil {
			return links, nil
		}
		slog.Warn("primary engine link collection failed, falling back to secondary engine",
			slog.String("url", sourceURL), slog.Any("error", err))
	}

	if secondary == nil {
		return nil, fmt.Errorf("no engine available to collect links from %s", sourceURL)
	}
	return secondary.CollectLinks(ctx, sourceURL, limit)
}
