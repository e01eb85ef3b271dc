package worker

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/infra/summarizer"
	"catchup-feed/internal/usecase/ai"
)

// ClassifierAdapter satisfies the Classifier collaborator by delegating to
// an OpenAI-backed ArticleClassifier. It exists only to translate between
// the summarizer package's transport-agnostic Classification and this
// package's ClassifiedFields.
type ClassifierAdapter struct {
	Classifier *summarizer.ArticleClassifier
}

// Classify implements Classifier.
func (a *ClassifierAdapter) Classify(ctx context.Context, title, text, articleURL string) (ClassifiedFields, error) {
	result, err := a.Classifier.Classify(ctx, title, text, articleURL)
	if err != nil {
		return ClassifiedFields{}, err
	}
	return ClassifiedFields{
		Label:        result.Label,
		CitySlug:     result.CitySlug,
		IndustrySlug: result.IndustrySlug,
	}, nil
}

// SummarizerAdapter satisfies the Summarizer collaborator by delegating to
// an OpenAI-backed ArticleSummarizer, selecting the CITY prompt whenever
// the upstream classification carries a city scope.
type SummarizerAdapter struct {
	Summarizer *summarizer.ArticleSummarizer
}

// Summarize implements Summarizer.
func (a *SummarizerAdapter) Summarize(ctx context.Context, class ClassifiedFields, title, text, markdown string, metadata map[string]string) (SummaryResult, error) {
	result, err := a.Summarizer.Summarize(ctx, class.IsCity(), title, text, markdown, metadata)
	if err != nil {
		return SummaryResult{}, err
	}

	out := SummaryResult{
		Title:         result.Title,
		ShortSummary:  result.ShortSummary,
		MediumSummary: result.MediumSummary,
		LongSummary:   result.LongSummary,
		Topic:         result.Topic,
		MainTopic:     result.MainTopic,
		Score:         result.Score,
	}
	if len(result.Subtopics) > 0 {
		out.Subtopic2 = result.Subtopics[0]
	}
	if len(result.Subtopics) > 1 {
		out.Subtopic3 = result.Subtopics[1]
	}
	return out, nil
}

// EmbedderAdapter satisfies the Embedder collaborator by calling an
// ai.AIProvider synchronously — the article pipeline awaits the result
// and logs-but-does-not-fail on error (spec §4.5.1 step 11), matching
// original_source/headline_worker/modules/article_processor.py's awaited
// embed_article call rather than the teacher's fire-and-forget
// EmbeddingHook (which has no result for a caller to inspect).
type EmbedderAdapter struct {
	Provider ai.AIProvider
}

// Embed implements Embedder. The returned vector id mirrors the original's
// Pinecone convention of keying vectors by article id.
func (a *EmbedderAdapter) Embed(ctx context.Context, article *entity.Article) (string, error) {
	resp, err := a.Provider.EmbedArticle(ctx, ai.EmbedRequest{
		ArticleID: article.ID,
		Title:     article.Title,
		Content:   embeddingText(article),
		URL:       article.URL,
	})
	if err != nil {
		return "", err
	}
	if !resp.Success {
		return "", fmt.Errorf("embed article %d: %s", article.ID, resp.ErrorMessage)
	}
	return strconv.FormatInt(article.ID, 10), nil
}

// embeddingText mirrors embeddings.py:prepare_embedding_text: title,
// location, topics, then the short summary.
func embeddingText(article *entity.Article) string {
	var parts []string
	parts = append(parts, "[TITLE]: "+article.Title)

	if article.City != "" {
		parts = append(parts, "[LOCATION]: "+article.City)
	}

	var topics []string
	seen := make(map[string]bool)
	for _, t := range []string{article.MainTopic, article.Topic, article.Subtopic2, article.Subtopic3} {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		topics = append(topics, t)
	}
	if len(topics) > 0 {
		parts = append(parts, "[TOPICS]: "+strings.Join(topics, ", "))
	}

	if article.SummaryShort != "" {
		parts = append(parts, "[SUMMARY]: "+article.SummaryShort)
	}

	return strings.Join(parts, "\n")
}
