package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"catchup-feed/internal/keypool"
	"catchup-feed/internal/resilience/circuitbreaker"
	"catchup-feed/internal/resilience/retry"
)

const secondaryEndpoint = "https://api.diffbot.com/v3/article"

// SecondaryEngine fetches article content via a commercial extraction API
// (spec §4.3's "secondary engine"), gated through a Pool so per-key rate
// limits are respected, with retry and circuit-breaker protection.
// Grounded on
// original_source/headline_worker/modules/diffbot.py:fetch_via_diffbot_async.
type SecondaryEngine struct {
	keys    *keypool.Pool
	client  *http.Client
	breaker *circuitbreaker.CircuitBreaker
	retry   retry.Config
}

// NewSecondaryEngine wires a SecondaryEngine over the given key pool, using
// the teacher's WebScraperConfig tuning for both retry and circuit breaker
// (grounded on internal/resilience/{retry,circuitbreaker}).
func NewSecondaryEngine(keys *keypool.Pool) *SecondaryEngine {
	return &SecondaryEngine{
		keys:    keys,
		client:  &http.Client{Timeout: 15 * time.Second},
		breaker: circuitbreaker.New(circuitbreaker.WebScraperConfig()),
		retry:   retry.WebScraperConfig(),
	}
}

type secondaryObject struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	HTML  string `json:"html"`
	Date  string `json:"date"`
}

type secondaryResponse struct {
	Objects []secondaryObject `json:"objects"`
}

// Fetch retrieves article content for targetURL via the secondary engine.
// It acquires a rate-limited key from the pool for the duration of the
// call; the key is not held across the full request lifetime beyond that.
func (e *SecondaryEngine) Fetch(ctx context.Context, targetURL string) (Content, error) {
	var out Content

	err := retry.WithBackoff(ctx, e.retry, func() error {
		token, err := e.keys.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("acquire key: %w", err)
		}

		result, err := e.breaker.Execute(func() (interface{}, error) {
			return e.fetchOnce(ctx, token, targetURL)
		})
		if err != nil {
			return err
		}
		out = result.(Content)
		return nil
	})
	if err != nil {
		return Content{}, fmt.Errorf("secondary engine fetch %s: %w", targetURL, err)
	}
	return out, nil
}

func (e *SecondaryEngine) fetchOnce(ctx context.Context, token, targetURL string) (Content, error) {
	q := url.Values{"token": {token}, "url": {targetURL}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, secondaryEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		return Content{}, err
	}

	slog.Info("fetching via secondary engine", slog.String("url", targetURL), slog.String("key_prefix", safePrefix(token)))

	resp, err := e.client.Do(req)
	if err != nil {
		return Content{}, &retry.HTTPError{StatusCode: 0, Message: err.Error()}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		slog.Warn("secondary engine key quota exceeded", slog.String("key_prefix", safePrefix(token)))
		return Content{}, &retry.HTTPError{StatusCode: resp.StatusCode, Message: "quota exceeded"}
	case http.StatusForbidden:
		return Content{}, &retry.HTTPError{StatusCode: resp.StatusCode, Message: "forbidden"}
	}
	if resp.StatusCode != http.StatusOK {
		return Content{}, &retry.HTTPError{StatusCode: resp.StatusCode, Message: "unexpected status"}
	}

	var body secondaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Content{}, fmt.Errorf("decode secondary engine response: %w", err)
	}
	if len(body.Objects) == 0 {
		return Content{}, fmt.Errorf("secondary engine returned no objects for %s", targetURL)
	}

	obj := body.Objects[0]
	return Content{
		Title:      obj.Title,
		Text:       obj.Text,
		Markdown:   ToMarkdown(obj.HTML),
		CleanHTML:  CleanHTMLForAI(obj.HTML),
		Metadata:   map[string]string{"date": obj.Date},
		ScraperType: ScraperSecondary,
	}, nil
}

func safePrefix(s string) string {
	if len(s) <= 5 {
		return s
	}
	return s[:5] + "..."
}
