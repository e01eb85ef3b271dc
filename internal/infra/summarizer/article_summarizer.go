package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"catchup-feed/internal/resilience/circuitbreaker"
	"catchup-feed/internal/resilience/retry"
)

// ArticleResult is the structured verdict produced by summarizing a single
// article. MediumSummary/LongSummary are only requested when the CITY
// prompt was selected. Grounded on
// original_source/headline_worker/modules/summary_generator.py's
// process_article result dict and prompts.py's RESPONSE FORMAT blocks.
type ArticleResult struct {
	Title         string
	ShortSummary  string
	MediumSummary string
	LongSummary   string
	Topic         string
	MainTopic     string
	Subtopics     []string
	Score         int
}

const articleSummarizerSystemPrompt = "You analyze news articles and provide structured summaries and metadata. Always respond with valid JSON."

// ArticleSummarizer produces the rich per-article verdict (title, tiered
// summaries, topic, subtopics, score) used to build a saved article. It
// renders a CITY prompt (medium/long summaries included) or a
// GLOBAL/INDUSTRY prompt depending on the caller-supplied scope, mirroring
// summary_generator.py:process_article's prompt_template selection.
type ArticleSummarizer struct {
	client         *openai.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	model          string
}

// NewArticleSummarizer creates an ArticleSummarizer with the given API key.
func NewArticleSummarizer(apiKey string) *ArticleSummarizer {
	return &ArticleSummarizer{
		client:         openai.NewClient(apiKey),
		circuitBreaker: circuitbreaker.New(circuitbreaker.OpenAIAPIConfig()),
		retryConfig:    retry.AIAPIConfig(),
		model:          "gpt-4o-mini",
	}
}

type articleSummaryResponse struct {
	Score         json.Number `json:"score"`
	ShortSummary  string      `json:"short_summary"`
	MediumSummary string      `json:"medium_summary"`
	LongSummary   string      `json:"long_summary"`
	Title         string      `json:"title"`
	Topic         string      `json:"topic"`
	MainTopic     string      `json:"main_topic"`
	Subtopics     []string    `json:"subtopics"`
}

// Summarize calls the model with the prompt matching isCity and parses its
// JSON verdict. Unlike Classify, a malformed response here is a real
// error: the article pipeline has nothing sensible to save without a
// summary (spec §7 treats this the same as any other external-call
// failure — the ARTICLE job is marked ERROR, nothing is persisted).
func (s *ArticleSummarizer) Summarize(ctx context.Context, isCity bool, title, text, markdown string, metadata map[string]string) (ArticleResult, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	prompt := buildSummaryPrompt(isCity, title, markdown, metadata)

	var raw string
	retryErr := retry.WithBackoff(ctx, s.retryConfig, func() error {
		result, err := s.circuitBreaker.Execute(func() (interface{}, error) {
			return s.callModel(ctx, prompt)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				return fmt.Errorf("summarizer unavailable: circuit breaker open")
			}
			return err
		}
		raw = result.(string)
		return nil
	})
	if retryErr != nil {
		return ArticleResult{}, fmt.Errorf("summarize failed after retries: %w", retryErr)
	}

	return parseArticleResult(raw)
}

func (s *ArticleSummarizer) callModel(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:          s.model,
		Temperature:    0.3,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: articleSummarizerSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai summarize call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai summarize returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func buildSummaryPrompt(isCity bool, title, markdown string, metadata map[string]string) string {
	const maxContentLength = 4000
	content := markdown
	if len(content) > maxContentLength {
		content = content[:maxContentLength]
	}

	var metaLines []string
	for k, v := range metadata {
		metaLines = append(metaLines, fmt.Sprintf("%s: %s", k, v))
	}

	tiers := "a short_summary (2-3 sentences)"
	if isCity {
		tiers = "a short_summary (2-3 sentences), medium_summary (6 sentences), and long_summary (8 sentences)"
	}

	return fmt.Sprintf(
		"Analyze this article and respond with JSON containing %s, a title, topic, main_topic, "+
			"subtopics (an array of 2 strings), and a score (0-100).\n\n"+
			"Title: %s\nMetadata:\n%s\n\nContent:\n%s",
		tiers, title, strings.Join(metaLines, "\n"), content)
}

func parseArticleResult(raw string) (ArticleResult, error) {
	cleaned := extractJSONObject(raw)

	var parsed articleSummaryResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return ArticleResult{}, fmt.Errorf("parse summary response: %w", err)
	}

	score := 0
	if n, err := parsed.Score.Int64(); err == nil {
		score = int(n)
	}

	return ArticleResult{
		Title:         parsed.Title,
		ShortSummary:  parsed.ShortSummary,
		MediumSummary: parsed.MediumSummary,
		LongSummary:   parsed.LongSummary,
		Topic:         parsed.Topic,
		MainTopic:     parsed.MainTopic,
		Subtopics:     parsed.Subtopics,
		Score:         score,
	}, nil
}
