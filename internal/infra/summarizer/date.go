package summarizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"catchup-feed/internal/resilience/circuitbreaker"
	"catchup-feed/internal/resilience/retry"
)

const dateNotFoundMarker = "Date not found"

const dateExtractionSystemPrompt = "You are an expert at extracting publication dates from news articles. " +
	"You analyze both metadata and content to find when an article was published."

// ArticleDater implements extract.AIDater: it asks the model to locate a
// publication date string within article content/metadata, returning "" when
// none is found. Grounded on
// original_source/headline_worker/modules/date_extractor.py:extract_date_with_ai.
type ArticleDater struct {
	client         *openai.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	model          string
}

// NewArticleDater creates an ArticleDater with the given API key.
func NewArticleDater(apiKey string) *ArticleDater {
	return &ArticleDater{
		client:         openai.NewClient(apiKey),
		circuitBreaker: circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
		model:          "gpt-4o-mini",
	}
}

// ExtractDateString implements extract.AIDater.
func (d *ArticleDater) ExtractDateString(ctx context.Context, content string, metadata map[string]string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	prompt := buildDatePrompt(content, metadata)

	var raw string
	retryErr := retry.WithBackoff(ctx, d.retryConfig, func() error {
		result, err := d.circuitBreaker.Execute(func() (interface{}, error) {
			return d.callModel(ctx, prompt)
		})
		if err != nil {
			return err
		}
		raw = result.(string)
		return nil
	})
	if retryErr != nil {
		return "", fmt.Errorf("extract date failed after retries: %w", retryErr)
	}

	result := strings.TrimSpace(raw)
	if result == "" || result == dateNotFoundMarker {
		return "", nil
	}
	return result, nil
}

func (d *ArticleDater) callModel(ctx context.Context, prompt string) (string, error) {
	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       d.model,
		Temperature: 0.1,
		MaxTokens:   100,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: dateExtractionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai date extraction call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai date extraction returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func buildDatePrompt(content string, metadata map[string]string) string {
	const maxContentLength = 8000
	truncated := content
	if len(truncated) > maxContentLength {
		truncated = truncated[:maxContentLength]
	}

	var metaLines []string
	for k, v := range metadata {
		metaLines = append(metaLines, fmt.Sprintf("%s: %s", k, v))
	}

	return fmt.Sprintf(`Extract the publication date from this news article. Look for the exact date when this article was published.

METADATA:
%s

ARTICLE CONTENT:
%s

INSTRUCTIONS:
1. First check the metadata for date fields like 'date', 'article:published_time', 'pubdate', etc.
2. If not in metadata, search the article content for publication date indicators: bylines, "Published on", "Posted on", timestamps near the title, relative dates like "2 hours ago", or a dateline at the start of the article.
3. Prioritize publication dates over event dates mentioned in the article.
4. If you find multiple dates, choose the one that appears to be the publication date.

Return ONLY the date string exactly as you find it in the content. Do not reformat it.
If no publication date can be found after thorough search, return "%s".`,
		strings.Join(metaLines, "\n"), truncated, dateNotFoundMarker)
}
