package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"catchup-feed/internal/resilience/circuitbreaker"
	"catchup-feed/internal/resilience/retry"
)

// Classification is the external classifier's verdict: one of "city",
// "global", "industry", "trash" plus the matching slug. Grounded on
// original_source/headline_worker/modules/content_classifier.py's
// ArticleClassification.
type Classification struct {
	Label        string
	CitySlug     string
	IndustrySlug string
}

const classifierSystemPrompt = "You are a content classifier assistant that responds with valid JSON only."

// ArticleClassifier classifies article content with OpenAI's JSON response
// mode. It shares the circuit breaker and retry wiring used by the plain
// Summarize clients in this package.
type ArticleClassifier struct {
	client         *openai.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	model          string
}

// NewArticleClassifier creates an ArticleClassifier with the given API key.
func NewArticleClassifier(apiKey string) *ArticleClassifier {
	return &ArticleClassifier{
		client:         openai.NewClient(apiKey),
		circuitBreaker: circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
		model:          "gpt-4o-mini",
	}
}

type classifierResponse struct {
	Label        string `json:"label"`
	CitySlug     string `json:"city_slug"`
	IndustrySlug string `json:"industry_slug"`
}

// Classify returns an error only when the API call itself could not
// complete after retries. A malformed or missing-field model response is
// not an error — it resolves to a "trash" verdict, the same fallback
// content_classifier.py applies, so an unparseable reply never blocks the
// article pipeline.
func (c *ArticleClassifier) Classify(ctx context.Context, title, text, articleURL string) (Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	prompt := buildClassifierPrompt(title, text)

	var raw string
	retryErr := retry.WithBackoff(ctx, c.retryConfig, func() error {
		result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
			return c.callModel(ctx, prompt)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				return fmt.Errorf("classifier unavailable: circuit breaker open")
			}
			return err
		}
		raw = result.(string)
		return nil
	})
	if retryErr != nil {
		return Classification{}, fmt.Errorf("classify failed after retries: %w", retryErr)
	}

	return parseClassification(raw), nil
}

func (c *ArticleClassifier) callModel(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:          c.model,
		Temperature:    0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifierSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai classify call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai classify returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func buildClassifierPrompt(title, text string) string {
	truncated := text
	if len(truncated) > 1000 {
		truncated = truncated[:1000]
	}
	return fmt.Sprintf(
		"Classify the following article as city, global, industry, or trash.\n"+
			"Respond in JSON with \"label\", and \"city_slug\" (as \"City, State\") or \"industry_slug\" as appropriate.\n\n"+
			"Title: %s\nContent: %s", title, truncated)
}

// parseClassification mirrors classify_content's validation cascade:
// missing/invalid label, missing slug for its label, and missing state on
// a city slug all fall back to a safe default rather than erroring.
func parseClassification(raw string) Classification {
	cleaned := extractJSONObject(raw)

	var parsed classifierResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		slog.Warn("classifier returned unparseable JSON, defaulting to trash", slog.String("error", err.Error()))
		return Classification{Label: "trash"}
	}

	switch parsed.Label {
	case "city":
		if parsed.CitySlug == "" {
			return Classification{Label: "trash"}
		}
		if !strings.Contains(parsed.CitySlug, ",") {
			parsed.CitySlug += ", Unknown State"
		}
		return Classification{Label: "city", CitySlug: parsed.CitySlug}
	case "global":
		return Classification{Label: "global"}
	case "industry":
		if parsed.IndustrySlug == "" {
			return Classification{Label: "trash"}
		}
		return Classification{Label: "industry", IndustrySlug: parsed.IndustrySlug}
	default:
		return Classification{Label: "trash"}
	}
}

// extractJSONObject strips markdown code fences the model sometimes wraps
// its JSON in, then narrows to the outermost brace pair. Grounded on
// content_classifier.py:extract_json_from_text.
func extractJSONObject(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}
