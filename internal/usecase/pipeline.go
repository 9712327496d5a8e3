package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"NewsIngestor/internal/dedup"
	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/enrichment"
	"NewsIngestor/internal/extractor"
	"NewsIngestor/internal/normalizer"
	"NewsIngestor/internal/ports"
)

// PipelineDeps wires all driven adapters into the per-job pipeline.
type PipelineDeps struct {
	Fetcher    ports.Fetcher
	Extractor  *extractor.Chain
	Normalizer *normalizer.Normalizer
	Dedup      *dedup.Deduplicator
	Scorer     *enrichment.Scorer
	Summarizer ports.Summarizer
	Store      ports.ArticleStore
	Recorder   ports.Recorder
	Logger     *slog.Logger
	Now        func() time.Time
}

// Pipeline turns one IngestJob into at most one staged article.
type Pipeline struct {
	fetcher    ports.Fetcher
	extractor  *extractor.Chain
	normalizer *normalizer.Normalizer
	dedup      *dedup.Deduplicator
	scorer     *enrichment.Scorer
	summarizer ports.Summarizer
	store      ports.ArticleStore
	recorder   ports.Recorder
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) (*Pipeline, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, errors.New("pipeline: fetcher is required")
	case deps.Extractor == nil:
		return nil, errors.New("pipeline: extractor is required")
	case deps.Store == nil:
		return nil, errors.New("pipeline: store is required")
	}

	p := &Pipeline{
		fetcher:    deps.Fetcher,
		extractor:  deps.Extractor,
		normalizer: deps.Normalizer,
		dedup:      deps.Dedup,
		scorer:     deps.Scorer,
		summarizer: deps.Summarizer,
		store:      deps.Store,
		recorder:   deps.Recorder,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if p.normalizer == nil {
		p.normalizer = normalizer.New(normalizer.DefaultHashPrefixLength, nil)
	}
	if p.dedup == nil {
		p.dedup = dedup.New(deps.Store)
	}
	if p.scorer == nil {
		p.scorer = enrichment.NewScorer(nil, domain.QueryContext{})
	}
	if p.recorder == nil {
		p.recorder = nopRecorder{}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// Process runs fetch, extraction, normalization, dedup, enrichment and
// persistence for a single job. A duplicate is a successful, skipped result.
// Errors that satisfy domain.IsPermanent must not be retried.
func (p *Pipeline) Process(ctx context.Context, job domain.IngestJob) (domain.IngestResult, error) {
	page, err := p.fetcher.Fetch(ctx, job.SourceURL)
	if err != nil {
		return domain.IngestResult{}, fmt.Errorf("fetch %s: %w", job.SourceURL, err)
	}

	pageURL := page.URL
	if pageURL == "" {
		pageURL = job.SourceURL
	}

	doc, err := p.extractor.Extract(ctx, page.Body, pageURL)
	if err != nil {
		if errors.Is(err, domain.ErrExtractionFailed) {
			return domain.IngestResult{Outcome: domain.OutcomeExtractionFailed}, err
		}
		return domain.IngestResult{}, fmt.Errorf("extract %s: %w", job.SourceURL, err)
	}
	p.recorder.Extracted(string(doc.ExtractorUsed))

	title := doc.Title
	if title == "" {
		title = job.TitleHint
	}
	content := p.normalizer.Normalize(title, doc.RawText)
	if content.CleanTitle == "" {
		content.CleanTitle = job.TitleHint
	}

	result := domain.IngestResult{
		ExtractorUsed: doc.ExtractorUsed,
		ContentHash:   content.ContentHash,
	}

	existing, err := p.dedup.Exists(ctx, job.SourceURL, content)
	if err != nil {
		return result, err
	}
	if existing != "" {
		result.Outcome = domain.OutcomeSkipped
		result.DuplicateOf = existing
		return result, nil
	}

	enr, err := p.scorer.Score(ctx, content)
	if err != nil {
		return result, fmt.Errorf("score: %w", err)
	}

	summary := enrichment.PrefixSummary(content.CleanText)
	if p.summarizer != nil {
		summary, err = p.summarizer.Summarize(ctx, content.CleanTitle, content.CleanText)
		if err != nil {
			return result, fmt.Errorf("summarize: %w", err)
		}
	}

	now := p.now().UTC()
	article := domain.StagedArticle{
		ID:             uuid.NewString(),
		Title:          content.CleanTitle,
		Summary:        summary,
		Content:        content.CleanText,
		ContentHash:    content.ContentHash,
		OriginalURL:    job.SourceURL,
		Source:         job.Source,
		Category:       enr.Category,
		RelevanceScore: enr.RelevanceScore,
		Images:         doc.Images,
		Status:         domain.StatusStaged,
		PubDate:        pubDate(job, doc, now),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := p.store.Insert(ctx, article); err != nil {
		if dup, ok := domain.AsDuplicate(err); ok {
			if dup.LookupErr != nil {
				p.logger.Warn("late duplicate without existing id",
					"url", job.SourceURL, "hash", article.ContentHash, "error", dup.LookupErr)
			}
			result.Outcome = domain.OutcomeSkipped
			result.DuplicateOf = dup.ExistingID
			return result, nil
		}
		return result, fmt.Errorf("insert article: %w", err)
	}

	result.Outcome = domain.OutcomeStaged
	result.ArticleID = article.ID
	return result, nil
}

func pubDate(job domain.IngestJob, doc *domain.ExtractedDocument, now time.Time) time.Time {
	switch {
	case job.PubDate != nil && !job.PubDate.IsZero():
		return job.PubDate.UTC()
	case doc.PublishedAt != nil && !doc.PublishedAt.IsZero():
		return doc.PublishedAt.UTC()
	default:
		return now
	}
}

type nopRecorder struct{}

func (nopRecorder) JobProcessed(string, time.Duration) {}
func (nopRecorder) Extracted(string)                   {}
func (nopRecorder) Enqueued(bool)                      {}
func (nopRecorder) FeedPolled(string, error)           {}
