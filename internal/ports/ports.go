package ports

import (
	"context"
	"errors"
	"time"

	"NewsIngestor/internal/domain"
)

// ArticleStore is the editorial document store as seen by the ingestion core.
type ArticleStore interface {
	// FindDuplicate returns the ID of an article matching originalURL or,
	// failing that, contentHash.
	FindDuplicate(ctx context.Context, originalURL, contentHash string) (string, bool, error)
	// Insert persists a staged article. A uniqueness violation is reported as
	// *domain.DuplicateError.
	Insert(ctx context.Context, article domain.StagedArticle) error
}

// Queue is the durable job channel shared by producers and workers.
type Queue interface {
	// Enqueue upserts by the job's dedup key. It reports false when an
	// equivalent job was already queued or in flight.
	Enqueue(ctx context.Context, job domain.IngestJob) (bool, error)
	// Claim blocks until a job is available or ctx is done.
	Claim(ctx context.Context) (Delivery, error)
}

// ErrLeaseLost is returned by Delivery acknowledgements when the lock
// expired and another worker owns the job now.
var ErrLeaseLost = errors.New("job lease lost")

// Delivery is a claimed job, hidden from other workers until acknowledged
// or until its lock expires.
type Delivery interface {
	Job() domain.IngestJob
	// Complete removes the job from the active queue.
	Complete(ctx context.Context) error
	// Retry schedules another attempt after backoff. It reports true when the
	// attempt budget is exhausted and the job is now permanently failed.
	Retry(ctx context.Context, cause error) (bool, error)
	// Fail records the job as permanently failed without retrying.
	Fail(ctx context.Context, cause error) error
}

// Page is a fetched document.
type Page struct {
	URL         string
	Body        []byte
	ContentType string
}

// Fetcher downloads raw HTML.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// FeedReader downloads and parses a syndication feed.
type FeedReader interface {
	Read(ctx context.Context, endpoint string) (domain.Feed, error)
}

// SourceProvider lists the configured sources.
type SourceProvider interface {
	Sources(ctx context.Context) ([]domain.Source, error)
}

// Categorizer maps text to a single category label.
type Categorizer interface {
	Categorize(ctx context.Context, title, text string) (string, error)
}

// Summarizer produces a short summary of article text.
type Summarizer interface {
	Summarize(ctx context.Context, title, text string) (string, error)
}

// Alerter is notified when a job is permanently failed.
type Alerter interface {
	JobFailed(ctx context.Context, job domain.IngestJob, reason string) error
}

// Scheduler triggers a recurring job.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// Recorder receives pipeline observations.
type Recorder interface {
	JobProcessed(outcome string, took time.Duration)
	Extracted(extractor string)
	Enqueued(created bool)
	FeedPolled(source string, err error)
}
