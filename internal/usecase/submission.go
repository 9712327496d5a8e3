package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/ports"
)

// SubmitRequest is an ad-hoc ingestion request from outside the scheduler.
type SubmitRequest struct {
	URL    string
	Title  string
	Source domain.SourceMeta
}

// SubmitResult confirms acceptance into the queue, never ingestion success.
type SubmitResult struct {
	JobID   string
	Created bool
}

// Submission validates jobs and hands them to the queue. Both the HTTP
// boundary and the feed poller enqueue through it.
type Submission struct {
	queue    ports.Queue
	recorder ports.Recorder
	logger   *slog.Logger
}

// NewSubmission builds the enqueue service.
func NewSubmission(queue ports.Queue, recorder ports.Recorder, logger *slog.Logger) (*Submission, error) {
	if queue == nil {
		return nil, errors.New("submission: queue is required")
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Submission{queue: queue, recorder: recorder, logger: logger}, nil
}

// Submit enqueues a manual URL. Invalid input is rejected with a
// *domain.ValidationError and never reaches the queue.
func (s *Submission) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	if err := domain.ValidateSourceURL(req.URL); err != nil {
		return SubmitResult{}, err
	}

	source := domain.SourceMeta{
		Name:    strings.TrimSpace(req.Source.Name),
		FeedURL: strings.TrimSpace(req.Source.FeedURL),
	}
	if source.Name == "" {
		source.Name = string(domain.SourceManual)
	}
	job := domain.NewIngestJob(req.URL, req.Title, source, nil)

	created, err := s.Enqueue(ctx, job)
	if err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{JobID: job.DedupKey(), Created: created}, nil
}

// Enqueue validates and enqueues a prepared job. It reports false when an
// equivalent job was already pending.
func (s *Submission) Enqueue(ctx context.Context, job domain.IngestJob) (bool, error) {
	if err := job.Validate(); err != nil {
		return false, err
	}

	created, err := s.queue.Enqueue(ctx, job)
	if err != nil {
		return false, fmt.Errorf("enqueue %s: %w", job.SourceURL, err)
	}
	s.recorder.Enqueued(created)

	s.logger.Debug("job enqueued",
		"job", job.DedupKey(),
		"url", job.SourceURL,
		"source", job.Source.Name,
		"created", created,
	)
	return created, nil
}
