package domain

import (
	"crypto/sha1"
	"encoding/hex"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoffBase = 2 * time.Second
	BackoffExponential = "exponential"
)

// SourceMeta describes where a job came from.
type SourceMeta struct {
	Name    string `json:"name,omitempty"`
	FeedURL string `json:"feedUrl,omitempty"`
}

// BackoffPolicy controls the delay between retries of a transient failure.
type BackoffPolicy struct {
	Type      string        `json:"type"`
	BaseDelay time.Duration `json:"-"`
}

// Delay returns the wait before the next try after `attempt` failed tries:
// base, 2*base, 4*base, ...
func (b BackoffPolicy) Delay(attempt int) time.Duration {
	base := b.BaseDelay
	if base <= 0 {
		base = DefaultBackoffBase
	}
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 30 {
		attempt = 30
	}
	return base << (attempt - 1)
}

// IngestJob is one queued request to ingest a single URL.
type IngestJob struct {
	SourceURL    string
	TitleHint    string
	Source       SourceMeta
	PubDate      *time.Time
	SubmittedAt  time.Time
	AttemptCount int
	MaxAttempts  int
	Backoff      BackoffPolicy
}

// NewIngestJob fills retry defaults for a job about to be enqueued.
func NewIngestJob(sourceURL, titleHint string, source SourceMeta, pubDate *time.Time) IngestJob {
	return IngestJob{
		SourceURL:   strings.TrimSpace(sourceURL),
		TitleHint:   strings.TrimSpace(titleHint),
		Source:      source,
		PubDate:     pubDate,
		SubmittedAt: time.Now().UTC(),
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     BackoffPolicy{Type: BackoffExponential, BaseDelay: DefaultBackoffBase},
	}
}

// DedupKey is the idempotent enqueue key derived from the source URL.
func (j IngestJob) DedupKey() string {
	return DedupKeyFor(j.SourceURL)
}

// DedupKeyFor hashes a URL into a queue key.
func DedupKeyFor(sourceURL string) string {
	sum := sha1.Sum([]byte(strings.TrimSpace(sourceURL)))
	return hex.EncodeToString(sum[:])
}

// Validate rejects jobs that must never enter the queue.
func (j IngestJob) Validate() error {
	if err := ValidateSourceURL(j.SourceURL); err != nil {
		return err
	}
	if j.MaxAttempts < 1 {
		return &ValidationError{Field: "maxAttempts", Reason: "must be at least 1"}
	}
	if j.Backoff.Type != "" && j.Backoff.Type != BackoffExponential {
		return &ValidationError{Field: "backoff.type", Reason: "only exponential backoff is supported"}
	}
	return nil
}

// ValidateSourceURL accepts absolute http(s) URLs with a host.
func ValidateSourceURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return &ValidationError{Field: "url", Reason: "is required"}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return &ValidationError{Field: "url", Reason: "is not a valid URL"}
	}
	if !u.IsAbs() || u.Host == "" {
		return &ValidationError{Field: "url", Reason: "must be an absolute URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: "url", Reason: "scheme must be http or https"}
	}
	return nil
}

// Outcome is the final state of one job execution.
type Outcome string

const (
	OutcomeStaged           Outcome = "staged"
	OutcomeSkipped          Outcome = "skipped"
	OutcomeExtractionFailed Outcome = "extraction_failed"
	OutcomeRetried          Outcome = "retried"
	OutcomeFailed           Outcome = "failed"
)

// IngestResult reports what happened to a successfully finished job.
type IngestResult struct {
	Outcome       Outcome
	ArticleID     string
	DuplicateOf   string
	ExtractorUsed ExtractorKind
	ContentHash   string
}
