package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/ports"
)

const (
	DefaultSeenCapacity   = 1000
	DefaultSourceTimeout  = time.Minute
	defaultParallelSource = 8
)

// FeedPollerDeps wires the feed poller.
type FeedPollerDeps struct {
	Sources       ports.SourceProvider
	Feeds         ports.FeedReader
	Submission    *Submission
	Recorder      ports.Recorder
	Logger        *slog.Logger
	SourceTimeout time.Duration
	SeenCapacity  int
	Parallelism   int
	Now           func() time.Time
}

// PollReport summarises one tick.
type PollReport struct {
	Polled    int
	Skipped   int
	Failed    int
	Enqueued  int
	Coalesced int
}

// FeedPoller reads every active feed source and enqueues unseen items.
type FeedPoller struct {
	sources       ports.SourceProvider
	feeds         ports.FeedReader
	submission    *Submission
	recorder      ports.Recorder
	logger        *slog.Logger
	sourceTimeout time.Duration
	seenCapacity  int
	parallelism   int
	now           func() time.Time

	mu       sync.Mutex
	inFlight map[string]bool
	lastPoll map[string]time.Time
	seen     map[string]*seenSet
}

// NewFeedPoller validates dependencies and applies defaults.
func NewFeedPoller(deps FeedPollerDeps) (*FeedPoller, error) {
	switch {
	case deps.Sources == nil:
		return nil, errors.New("feed poller: source provider is required")
	case deps.Feeds == nil:
		return nil, errors.New("feed poller: feed reader is required")
	case deps.Submission == nil:
		return nil, errors.New("feed poller: submission service is required")
	}

	p := &FeedPoller{
		sources:       deps.Sources,
		feeds:         deps.Feeds,
		submission:    deps.Submission,
		recorder:      deps.Recorder,
		logger:        deps.Logger,
		sourceTimeout: deps.SourceTimeout,
		seenCapacity:  deps.SeenCapacity,
		parallelism:   deps.Parallelism,
		now:           deps.Now,
		inFlight:      make(map[string]bool),
		lastPoll:      make(map[string]time.Time),
		seen:          make(map[string]*seenSet),
	}
	if p.recorder == nil {
		p.recorder = nopRecorder{}
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.sourceTimeout <= 0 {
		p.sourceTimeout = DefaultSourceTimeout
	}
	if p.seenCapacity <= 0 {
		p.seenCapacity = DefaultSeenCapacity
	}
	if p.parallelism <= 0 {
		p.parallelism = defaultParallelSource
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// Tick polls every due source once. Sources are isolated from each other:
// a failing or slow source is logged and does not affect the rest, and each
// is bounded by the per-source timeout.
func (p *FeedPoller) Tick(ctx context.Context) PollReport {
	var report PollReport

	sources, err := p.sources.Sources(ctx)
	if err != nil {
		p.logger.Error("list sources failed", "error", err)
		return report
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(p.parallelism)

	for _, src := range sources {
		if src.Type != domain.SourceFeed || !src.IsActive() {
			continue
		}
		if !p.acquire(src) {
			report.Skipped++
			continue
		}

		g.Go(func() error {
			defer p.release(src.Name)

			res := p.pollSource(ctx, src)

			mu.Lock()
			defer mu.Unlock()
			report.Polled++
			report.Enqueued += res.Enqueued
			report.Coalesced += res.Coalesced
			if res.Failed > 0 {
				report.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	return report
}

func (p *FeedPoller) pollSource(ctx context.Context, src domain.Source) PollReport {
	var res PollReport
	logger := p.logger.With("source", src.Name, "feed", src.Endpoint)

	sctx, cancel := context.WithTimeout(ctx, p.sourceTimeout)
	defer cancel()

	feed, err := p.feeds.Read(sctx, src.Endpoint)
	p.recorder.FeedPolled(src.Name, err)
	if err != nil {
		logger.Warn("feed poll failed", "error", err)
		res.Failed = 1
		return res
	}

	meta := domain.SourceMeta{Name: src.Name, FeedURL: src.Endpoint}
	if title := strings.TrimSpace(feed.Title); title != "" {
		meta.Name = title
	}

	seen := p.seenFor(src.Name)
	for _, item := range feed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" || seen.contains(link) {
			continue
		}

		published := item.PubDate
		if published == nil {
			now := p.now().UTC()
			published = &now
		}
		job := domain.NewIngestJob(link, item.Title, meta, published)

		created, err := p.submission.Enqueue(sctx, job)
		switch {
		case domain.IsValidation(err):
			logger.Debug("feed item rejected", "url", link, "error", err)
			seen.add(link)
			continue
		case err != nil:
			logger.Warn("enqueue feed item failed", "url", link, "error", err)
			continue
		}

		seen.add(link)
		if created {
			res.Enqueued++
		} else {
			res.Coalesced++
		}
	}

	p.mu.Lock()
	p.lastPoll[src.Name] = p.now()
	p.mu.Unlock()

	logger.Info("feed polled", "items", len(feed.Items), "enqueued", res.Enqueued, "coalesced", res.Coalesced)
	return res
}

// acquire marks src in flight when it is due.
func (p *FeedPoller) acquire(src domain.Source) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.inFlight[src.Name] {
		return false
	}
	if interval := src.FetchInterval(); interval > 0 {
		if last, ok := p.lastPoll[src.Name]; ok && p.now().Sub(last) < interval {
			return false
		}
	}
	p.inFlight[src.Name] = true
	return true
}

func (p *FeedPoller) release(name string) {
	p.mu.Lock()
	delete(p.inFlight, name)
	p.mu.Unlock()
}

func (p *FeedPoller) seenFor(name string) *seenSet {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.seen[name]
	if !ok {
		s = newSeenSet(p.seenCapacity)
		p.seen[name] = s
	}
	return s
}

// seenSet is a bounded insertion-ordered set. The oldest link is evicted
// first once capacity is reached.
type seenSet struct {
	mu    sync.Mutex
	cap   int
	order []string
	items map[string]struct{}
}

func newSeenSet(capacity int) *seenSet {
	return &seenSet{cap: capacity, items: make(map[string]struct{}, capacity)}
}

func (s *seenSet) contains(link string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[link]
	return ok
}

func (s *seenSet) add(link string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[link]; ok {
		return
	}
	if len(s.order) >= s.cap {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.items, oldest)
	}
	s.order = append(s.order, link)
	s.items[link] = struct{}{}
}

// Scheduler wires the cron-like driver with the feed poller.
type Scheduler struct {
	driver ports.Scheduler
	poller *FeedPoller
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring polls.
func NewScheduler(driver ports.Scheduler, poller *FeedPoller, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{driver: driver, poller: poller, logger: logger}
}

// Start registers the poller with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.poller == nil {
		return nil
	}

	job := func(trigger time.Time) {
		report := s.poller.Tick(ctx)
		s.logger.Info("poll tick finished",
			"trigger", trigger,
			"polled", report.Polled,
			"skipped", report.Skipped,
			"failed", report.Failed,
			"enqueued", report.Enqueued,
			"coalesced", report.Coalesced,
		)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
