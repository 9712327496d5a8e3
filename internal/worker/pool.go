// Package worker runs ingest jobs claimed from the queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/ports"
)

const (
	DefaultConcurrency = 5
	DefaultJobTimeout  = 20 * time.Second
	defaultAckTimeout  = 5 * time.Second
	claimErrorBackoff  = time.Second
)

// Processor executes one job. Errors satisfying domain.IsPermanent are not
// retried.
type Processor interface {
	Process(ctx context.Context, job domain.IngestJob) (domain.IngestResult, error)
}

// Config tunes the pool.
type Config struct {
	Concurrency int
	JobTimeout  time.Duration
	AckTimeout  time.Duration
}

// Deps wires the pool's collaborators. Alerter and Recorder are optional.
type Deps struct {
	Queue     ports.Queue
	Processor Processor
	Alerter   ports.Alerter
	Recorder  ports.Recorder
	Logger    *slog.Logger
}

// Pool runs N independent workers against one queue.
type Pool struct {
	cfg       Config
	queue     ports.Queue
	processor Processor
	alerter   ports.Alerter
	recorder  ports.Recorder
	logger    *slog.Logger
}

// New validates the pool wiring.
func New(cfg Config, deps Deps) (*Pool, error) {
	if deps.Queue == nil || deps.Processor == nil {
		return nil, errors.New("worker pool: queue and processor are required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultJobTimeout
	}
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = defaultAckTimeout
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		cfg:       cfg,
		queue:     deps.Queue,
		processor: deps.Processor,
		alerter:   deps.Alerter,
		recorder:  deps.Recorder,
		logger:    logger,
	}, nil
}

// Run blocks until ctx is cancelled and every worker has settled its
// current job.
func (p *Pool) Run(ctx context.Context) error {
	p.logger.Info("worker pool started", "concurrency", p.cfg.Concurrency, "job_timeout", p.cfg.JobTimeout)

	var wg sync.WaitGroup
	for i := range p.cfg.Concurrency {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			p.loop(ctx, p.logger.With("worker", id))
		}(i)
	}
	wg.Wait()

	p.logger.Info("worker pool stopped")
	return nil
}

func (p *Pool) loop(ctx context.Context, logger *slog.Logger) {
	for {
		delivery, err := p.queue.Claim(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("claim failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(claimErrorBackoff):
			}
			continue
		}
		p.handle(ctx, logger, delivery)
	}
}

func (p *Pool) handle(ctx context.Context, logger *slog.Logger, d ports.Delivery) {
	job := d.Job()
	logger = logger.With("job", job.DedupKey(), "url", job.SourceURL, "attempt", job.AttemptCount)
	start := time.Now()

	jobCtx, cancel := context.WithTimeout(ctx, p.cfg.JobTimeout)
	res, err := p.process(jobCtx, job)
	timedOut := errors.Is(jobCtx.Err(), context.DeadlineExceeded)
	cancel()

	if err != nil && ctx.Err() != nil {
		logger.Warn("job interrupted by shutdown, left for redelivery", "error", err)
		return
	}
	if err != nil && timedOut {
		err = fmt.Errorf("job exceeded %s: %w", p.cfg.JobTimeout, context.DeadlineExceeded)
	}

	ackCtx, ackCancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.AckTimeout)
	defer ackCancel()

	outcome := p.settle(ackCtx, logger, d, res, err)
	if p.recorder != nil {
		p.recorder.JobProcessed(string(outcome), time.Since(start))
	}
}

// settle acknowledges the delivery according to the job's result.
func (p *Pool) settle(ctx context.Context, logger *slog.Logger, d ports.Delivery, res domain.IngestResult, err error) domain.Outcome {
	job := d.Job()

	switch {
	case err == nil:
		p.ack(logger, d.Complete(ctx))
		logger.Info("job finished",
			"outcome", res.Outcome,
			"extractor", res.ExtractorUsed,
			"article", res.ArticleID,
			"duplicate_of", res.DuplicateOf,
		)
		return res.Outcome

	case domain.IsPermanent(err):
		p.ack(logger, d.Fail(ctx, err))
		outcome := domain.OutcomeFailed
		if errors.Is(err, domain.ErrExtractionFailed) {
			outcome = domain.OutcomeExtractionFailed
		}
		logger.Warn("job failed permanently", "outcome", outcome, "error", err)
		p.alert(ctx, logger, job, err)
		return outcome

	default:
		exhausted, ackErr := d.Retry(ctx, err)
		p.ack(logger, ackErr)
		if ackErr != nil {
			return domain.OutcomeRetried
		}
		if exhausted {
			logger.Warn("job retries exhausted", "outcome", domain.OutcomeFailed, "error", err)
			p.alert(ctx, logger, job, err)
			return domain.OutcomeFailed
		}
		logger.Info("job will be retried", "outcome", domain.OutcomeRetried, "error", err)
		return domain.OutcomeRetried
	}
}

func (p *Pool) process(ctx context.Context, job domain.IngestJob) (res domain.IngestResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing job: %v", r)
		}
	}()
	return p.processor.Process(ctx, job)
}

func (p *Pool) ack(logger *slog.Logger, err error) {
	switch {
	case err == nil:
	case errors.Is(err, ports.ErrLeaseLost):
		logger.Warn("job lease lost before acknowledgement")
	default:
		logger.Error("job acknowledgement failed", "error", err)
	}
}

// alert never affects queue state.
func (p *Pool) alert(ctx context.Context, logger *slog.Logger, job domain.IngestJob, cause error) {
	if p.alerter == nil {
		return
	}
	if err := p.alerter.JobFailed(ctx, job, cause.Error()); err != nil {
		logger.Error("failure alert not delivered", "error", err)
	}
}
