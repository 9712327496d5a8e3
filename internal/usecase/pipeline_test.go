package usecase

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/enrichment"
	"NewsIngestor/internal/extractor"
	"NewsIngestor/internal/normalizer"
	"NewsIngestor/internal/ports"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestPipeline(t *testing.T, fetcher ports.Fetcher, store ports.ArticleStore, summarizer ports.Summarizer) *Pipeline {
	t.Helper()

	p, err := NewPipeline(PipelineDeps{
		Fetcher:    fetcher,
		Extractor:  extractor.NewDefaultChain(extractor.DefaultMinContentLength, extractor.DefaultMinParagraphLength, nil),
		Store:      store,
		Summarizer: summarizer,
		Now:        func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return p
}

func TestPipelineStagesPlainArticleWithHeuristic(t *testing.T) {
	t.Parallel()

	body := text(500)
	fetcher := newFakeFetcher().page("https://example.com/a", articleHTML("Plain", body))
	store := &memStore{}
	p := newTestPipeline(t, fetcher, store, nil)

	job := domain.NewIngestJob("https://example.com/a", "", domain.SourceMeta{Name: "manual"}, nil)
	res, err := p.Process(context.Background(), job)
	require.NoError(t, err)

	n := normalizer.New(normalizer.DefaultHashPrefixLength, nil)
	assert.Equal(t, domain.OutcomeStaged, res.Outcome)
	assert.Equal(t, domain.ExtractorHeuristic, res.ExtractorUsed)
	assert.Equal(t, n.Hash(n.Clean(body)), res.ContentHash)

	articles := store.all()
	require.Len(t, articles, 1)
	a := articles[0]
	assert.Equal(t, res.ArticleID, a.ID)
	assert.Equal(t, domain.StatusStaged, a.Status)
	assert.Equal(t, res.ContentHash, a.ContentHash)
	assert.Equal(t, "https://example.com/a", a.OriginalURL)
	assert.Equal(t, "Plain", a.Title)
	assert.Equal(t, body, a.Content)
	assert.Equal(t, enrichment.PrefixSummary(body), a.Summary)
	assert.Equal(t, enrichment.NeutralRelevance, a.RelevanceScore)
	assert.Equal(t, enrichment.CategoryUncategorized, a.Category)
	assert.True(t, a.PubDate.Equal(fixedNow))
	assert.True(t, a.CreatedAt.Equal(fixedNow))
	assert.True(t, a.UpdatedAt.Equal(fixedNow))
}

func TestPipelineSkipsDuplicates(t *testing.T) {
	t.Parallel()

	body := text(600)
	fetcher := newFakeFetcher().
		page("https://example.com/a", articleHTML("Story", body)).
		page("https://mirror.example.org/a", articleHTML("Story (mirror)", body))
	store := &memStore{}
	p := newTestPipeline(t, fetcher, store, nil)

	first, err := p.Process(context.Background(), domain.NewIngestJob("https://example.com/a", "", domain.SourceMeta{}, nil))
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeStaged, first.Outcome)

	byURL, err := p.Process(context.Background(), domain.NewIngestJob("https://example.com/a", "", domain.SourceMeta{}, nil))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkipped, byURL.Outcome)
	assert.Equal(t, first.ArticleID, byURL.DuplicateOf)

	byHash, err := p.Process(context.Background(), domain.NewIngestJob("https://mirror.example.org/a", "", domain.SourceMeta{}, nil))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkipped, byHash.Outcome)
	assert.Equal(t, first.ArticleID, byHash.DuplicateOf)

	assert.Len(t, store.all(), 1)
}

// blindStore never reports duplicates up front, like a concurrent insert
// racing the lookup.
type blindStore struct {
	*memStore
}

func (b blindStore) FindDuplicate(context.Context, string, string) (string, bool, error) {
	return "", false, nil
}

func TestPipelineTreatsInsertConflictAsSkip(t *testing.T) {
	t.Parallel()

	body := text(400)
	fetcher := newFakeFetcher().page("https://example.com/a", articleHTML("Story", body))
	inner := &memStore{}
	p := newTestPipeline(t, fetcher, blindStore{inner}, nil)

	job := domain.NewIngestJob("https://example.com/a", "", domain.SourceMeta{}, nil)
	first, err := p.Process(context.Background(), job)
	require.NoError(t, err)

	second, err := p.Process(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkipped, second.Outcome)
	assert.Equal(t, first.ArticleID, second.DuplicateOf)
	assert.Len(t, inner.all(), 1)
}

// unresolvedDupStore reports an insert conflict whose existing row could
// not be looked up.
type unresolvedDupStore struct {
	blindStore
}

func (unresolvedDupStore) Insert(context.Context, domain.StagedArticle) error {
	return &domain.DuplicateError{LookupErr: errors.New("database is locked")}
}

func TestPipelineLogsUnresolvedDuplicate(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	fetcher := newFakeFetcher().page("https://example.com/a", articleHTML("Story", text(400)))
	p, err := NewPipeline(PipelineDeps{
		Fetcher:   fetcher,
		Extractor: extractor.NewDefaultChain(extractor.DefaultMinContentLength, extractor.DefaultMinParagraphLength, nil),
		Store:     unresolvedDupStore{blindStore{&memStore{}}},
		Logger:    slog.New(slog.NewTextHandler(&logs, nil)),
	})
	require.NoError(t, err)

	res, err := p.Process(context.Background(), domain.NewIngestJob("https://example.com/a", "", domain.SourceMeta{}, nil))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSkipped, res.Outcome)
	assert.Empty(t, res.DuplicateOf)
	assert.Contains(t, logs.String(), "late duplicate without existing id")
	assert.Contains(t, logs.String(), "database is locked")
}

func TestPipelineExtractionFailureIsPermanent(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher().page("https://example.com/empty", []byte(`<html><body><p>Too short.</p></body></html>`))
	store := &memStore{}
	p := newTestPipeline(t, fetcher, store, nil)

	res, err := p.Process(context.Background(), domain.NewIngestJob("https://example.com/empty", "", domain.SourceMeta{}, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExtractionFailed)
	assert.True(t, domain.IsPermanent(err))
	assert.Equal(t, domain.OutcomeExtractionFailed, res.Outcome)
	assert.Empty(t, store.all())
}

func TestPipelineFetchErrorsKeepClassification(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.errs["https://example.com/slow"] = errors.New("connection reset")
	p := newTestPipeline(t, fetcher, &memStore{}, nil)

	_, err := p.Process(context.Background(), domain.NewIngestJob("https://example.com/slow", "", domain.SourceMeta{}, nil))
	require.Error(t, err)
	assert.False(t, domain.IsPermanent(err))

	_, err = p.Process(context.Background(), domain.NewIngestJob("https://example.com/missing", "", domain.SourceMeta{}, nil))
	require.Error(t, err)
	assert.True(t, domain.IsPermanent(err))
}

func TestPipelineStoreLookupErrorIsTransient(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher().page("https://example.com/a", articleHTML("Story", text(400)))
	store := &memStore{findErr: errors.New("database is locked")}
	p := newTestPipeline(t, fetcher, store, nil)

	_, err := p.Process(context.Background(), domain.NewIngestJob("https://example.com/a", "", domain.SourceMeta{}, nil))
	require.Error(t, err)
	assert.False(t, domain.IsPermanent(err))
}

type fixedSummarizer string

func (f fixedSummarizer) Summarize(context.Context, string, string) (string, error) {
	return string(f), nil
}

func TestPipelineUsesSummarizerAndJobMetadata(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher().page("https://example.com/a", []byte(`<html><body><article>`+text(300)+`</article></body></html>`))
	store := &memStore{}
	p := newTestPipeline(t, fetcher, store, fixedSummarizer("A short summary."))

	published := time.Date(2024, 2, 28, 8, 30, 0, 0, time.UTC)
	job := domain.NewIngestJob("https://example.com/a", "Title from feed", domain.SourceMeta{Name: "wire", FeedURL: "https://example.com/rss"}, &published)

	_, err := p.Process(context.Background(), job)
	require.NoError(t, err)

	articles := store.all()
	require.Len(t, articles, 1)
	assert.Equal(t, "A short summary.", articles[0].Summary)
	assert.Equal(t, "Title from feed", articles[0].Title)
	assert.Equal(t, job.Source, articles[0].Source)
	assert.True(t, articles[0].PubDate.Equal(published))
}

func TestNewPipelineRequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := NewPipeline(PipelineDeps{})
	require.Error(t, err)

	_, err = NewPipeline(PipelineDeps{Fetcher: newFakeFetcher(), Store: &memStore{}})
	require.Error(t, err)
}
