package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/ports"
)

// sentence is 40 characters long.
const sentence = "Lorem ipsum dolor sit amet consectetur. "

func text(chars int) string {
	return strings.TrimSpace(strings.Repeat(sentence, chars/len(sentence)+1)[:chars])
}

func articleHTML(title, body string) []byte {
	return []byte(fmt.Sprintf(`<html><head><title>%s</title></head><body><article>%s</article></body></html>`, title, body))
}

type memStore struct {
	mu       sync.Mutex
	articles []domain.StagedArticle
	findErr  error
}

var _ ports.ArticleStore = (*memStore)(nil)

func (m *memStore) FindDuplicate(_ context.Context, originalURL, contentHash string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return "", false, m.findErr
	}
	for _, a := range m.articles {
		if a.OriginalURL == originalURL {
			return a.ID, true, nil
		}
	}
	for _, a := range m.articles {
		if a.ContentHash == contentHash {
			return a.ID, true, nil
		}
	}
	return "", false, nil
}

func (m *memStore) Insert(_ context.Context, article domain.StagedArticle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.articles {
		if a.OriginalURL == article.OriginalURL || a.ContentHash == article.ContentHash {
			return &domain.DuplicateError{ExistingID: a.ID}
		}
	}
	m.articles = append(m.articles, article)
	return nil
}

func (m *memStore) all() []domain.StagedArticle {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.StagedArticle(nil), m.articles...)
}

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]ports.Page
	errs  map[string]error
	calls map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: map[string]ports.Page{}, errs: map[string]error{}, calls: map[string]int{}}
}

func (f *fakeFetcher) page(url string, body []byte) *fakeFetcher {
	f.pages[url] = ports.Page{URL: url, Body: body, ContentType: "text/html"}
	return f
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (ports.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if err, ok := f.errs[url]; ok {
		return ports.Page{}, err
	}
	p, ok := f.pages[url]
	if !ok {
		return ports.Page{}, domain.Permanent(errors.New("status 404"))
	}
	return p, nil
}

type memQueue struct {
	mu   sync.Mutex
	jobs map[string]domain.IngestJob
	err  error
}

func newMemQueue() *memQueue {
	return &memQueue{jobs: map[string]domain.IngestJob{}}
}

func (q *memQueue) Enqueue(_ context.Context, job domain.IngestJob) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return false, q.err
	}
	if _, ok := q.jobs[job.DedupKey()]; ok {
		return false, nil
	}
	q.jobs[job.DedupKey()] = job
	return true, nil
}

func (q *memQueue) Claim(ctx context.Context) (ports.Delivery, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (q *memQueue) urls() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.jobs))
	for _, j := range q.jobs {
		out = append(out, j.SourceURL)
	}
	return out
}

type countingRecorder struct {
	mu        sync.Mutex
	extracted []string
	enqueued  []bool
	polls     map[string]int
}

func (r *countingRecorder) JobProcessed(string, time.Duration) {}

func (r *countingRecorder) Extracted(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.extracted = append(r.extracted, kind)
}

func (r *countingRecorder) Enqueued(created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enqueued = append(r.enqueued, created)
}

func (r *countingRecorder) FeedPolled(source string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.polls == nil {
		r.polls = map[string]int{}
	}
	if err == nil {
		r.polls[source]++
	}
}
