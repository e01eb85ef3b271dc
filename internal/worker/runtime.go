package worker

import (
	"context"

	"catchup-feed/internal/domain/entity"
	"catchup-feed/internal/extract"
	"catchup-feed/internal/jobstore"
	"catchup-feed/internal/keypool"
	"catchup-feed/internal/usecase/fetch"
	"catchup-feed/internal/usecase/notify"
)

// Classifier is the external topic/trash classifier collaborator (spec
// §4.5.1 step 4: "call the external classifier with (title, text, url)").
// Only the contract is specified; the teacher's summarizer clients
// (Claude/OpenAI) satisfy it via an adapter.
type Classifier interface {
	Classify(ctx context.Context, title, text, articleURL string) (ClassifiedFields, error)
}

// SummaryResult is the external summarizer's verdict (spec §4.5.1 step 7-8).
// Medium/Long are only populated by implementations when the CITY prompt
// was used; callers must not assume they're set otherwise. Grounded on
// summary_generator.py:process_article's result dict.
type SummaryResult struct {
	Title         string
	ShortSummary  string
	MediumSummary string
	LongSummary   string
	Topic         string
	MainTopic     string
	Subtopic2     string
	Subtopic3     string
	Score         int
}

// Summarizer is the external summarizer collaborator (spec §4.5.1 step 7).
// cityPrompt selects the CITY prompt variant; otherwise the GLOBAL/INDUSTRY
// prompt is used (spec §4.5.1 step 7).
type Summarizer interface {
	Summarize(ctx context.Context, class ClassifiedFields, title, text, markdown string, metadata map[string]string) (SummaryResult, error)
}

// Embedder performs best-effort embedding (spec §4.5.1 step 11, §7:
// "Embedding failure: log; do not fail job").
type Embedder interface {
	Embed(ctx context.Context, article *entity.Article) (vectorID string, err error)
}

// Runtime bundles every injected dependency a job handler needs: the
// persistent store, the extraction pipeline, the key pool, and the
// external collaborators. Replaces the source's process-wide globals with
// one explicit value constructed at start-up (spec §9: "Global mutable
// state... Re-architect as explicit injected dependencies... a Runtime
// value constructed at start-up"). Tests construct their own Runtime with
// fakes.
type Runtime struct {
	Store      *jobstore.Store
	Keys       *keypool.Pool
	Extractor  *extract.Extractor
	Primary    *extract.PrimaryEngine
	Secondary  *extract.SecondaryEngine
	Classifier Classifier
	Summarizer Summarizer
	Embedder   Embedder

	// Notifier is optional: when set, a newly saved CITY-scope article
	// triggers the same Discord/Slack fan-out the teacher's fetch service
	// used. Never nil-checked by callers other than the article pipeline,
	// and never allowed to fail a job (spec §7 best-effort posture).
	Notifier notify.Service

	// FeedScrapers routes a Source whose SourceType names a JS-rendered
	// feed platform (Webflow, NextJS, Remix) to the matching FeedFetcher
	// instead of the generic link-collection path. Keyed the same way as
	// entity.Source.SourceType. A source type with no entry (including the
	// default "RSS") falls back to extract.CollectLinks.
	FeedScrapers map[string]fetch.FeedFetcher

	EmbeddingsEnabled bool
	MaxConcurrentJobs int
}
