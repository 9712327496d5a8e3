// Package queue provides the durable ingest job queue backends: a table in
// the shared SQL database and a NATS JetStream work-queue stream.
package queue

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"NewsIngestor/internal/domain"
)

const maxErrorLength = 1000

// Settings is the retry and visibility policy shared by both backends.
type Settings struct {
	LockDuration time.Duration
	MaxAttempts  int
	BackoffBase  time.Duration
	PollInterval time.Duration
}

// withDefaults fills zero values.
func (s Settings) withDefaults() Settings {
	if s.LockDuration <= 0 {
		s.LockDuration = 30 * time.Second
	}
	if s.MaxAttempts <= 0 {
		s.MaxAttempts = domain.DefaultMaxAttempts
	}
	if s.BackoffBase <= 0 {
		s.BackoffBase = domain.DefaultBackoffBase
	}
	if s.PollInterval <= 0 {
		s.PollInterval = time.Second
	}
	return s
}

// stamp applies the queue's retry policy to a job being enqueued.
func (s Settings) stamp(job domain.IngestJob) domain.IngestJob {
	job.MaxAttempts = s.MaxAttempts
	job.Backoff = domain.BackoffPolicy{Type: domain.BackoffExponential, BaseDelay: s.BackoffBase}
	job.AttemptCount = 0
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now().UTC()
	}
	return job
}

type payload struct {
	Link        string             `json:"link"`
	Title       string             `json:"title,omitempty"`
	PubDate     *time.Time         `json:"pubDate,omitempty"`
	Source      *domain.SourceMeta `json:"source,omitempty"`
	SubmittedAt time.Time          `json:"submittedAt"`
	Attempts    int                `json:"attempts"`
	Backoff     backoffPayload     `json:"backoff"`
}

type backoffPayload struct {
	Type        string `json:"type"`
	BaseDelayMs int64  `json:"baseDelayMs"`
}

func encodeJob(job domain.IngestJob) ([]byte, error) {
	p := payload{
		Link:        job.SourceURL,
		Title:       job.TitleHint,
		PubDate:     job.PubDate,
		SubmittedAt: job.SubmittedAt,
		Attempts:    job.MaxAttempts,
		Backoff: backoffPayload{
			Type:        job.Backoff.Type,
			BaseDelayMs: job.Backoff.BaseDelay.Milliseconds(),
		},
	}
	if job.Source != (domain.SourceMeta{}) {
		src := job.Source
		p.Source = &src
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode job: %w", err)
	}
	return data, nil
}

// decodeJob rejects unknown fields and payloads that would fail validation.
func decodeJob(data []byte) (domain.IngestJob, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var p payload
	if err := dec.Decode(&p); err != nil {
		return domain.IngestJob{}, fmt.Errorf("decode job: %w", err)
	}

	job := domain.IngestJob{
		SourceURL:   p.Link,
		TitleHint:   p.Title,
		PubDate:     p.PubDate,
		SubmittedAt: p.SubmittedAt,
		MaxAttempts: p.Attempts,
		Backoff: domain.BackoffPolicy{
			Type:      p.Backoff.Type,
			BaseDelay: time.Duration(p.Backoff.BaseDelayMs) * time.Millisecond,
		},
	}
	if p.Source != nil {
		job.Source = *p.Source
	}
	if err := job.Validate(); err != nil {
		return domain.IngestJob{}, fmt.Errorf("invalid job payload: %w", err)
	}
	return job, nil
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) <= maxErrorLength {
		return msg
	}
	cut := maxErrorLength
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
