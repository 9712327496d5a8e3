package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"NewsIngestor/internal/config"
	"NewsIngestor/internal/dedup"
	"NewsIngestor/internal/enrichment"
	"NewsIngestor/internal/extractor"
	"NewsIngestor/internal/infrastructure/fetcher"
	"NewsIngestor/internal/infrastructure/httpapi"
	"NewsIngestor/internal/infrastructure/llm"
	"NewsIngestor/internal/infrastructure/metrics"
	"NewsIngestor/internal/infrastructure/ml"
	"NewsIngestor/internal/infrastructure/parser"
	"NewsIngestor/internal/infrastructure/queue"
	"NewsIngestor/internal/infrastructure/scheduler"
	"NewsIngestor/internal/infrastructure/storage"
	"NewsIngestor/internal/infrastructure/telegram"
	"NewsIngestor/internal/logging"
	"NewsIngestor/internal/normalizer"
	"NewsIngestor/internal/ports"
	"NewsIngestor/internal/usecase"
	"NewsIngestor/internal/worker"
)

const shutdownTimeout = 30 * time.Second

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	db         *storage.DB
	queue      ports.Queue
	closeQueue func() error
	metrics    *metrics.Metrics

	submission  *usecase.Submission
	pool        *worker.Pool
	scheduler   *usecase.Scheduler
	fileSources *parser.FileSources
	server      *httpapi.Server
}

// New opens the store and queue and builds every component. The schema is
// migrated on the way.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	a := &Application{cfg: cfg, logger: baseLogger, metrics: metrics.New()}
	if err := a.openBackends(ctx); err != nil {
		return nil, err
	}
	if err := a.build(); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// NewSubmitter opens only what the submit command needs.
func NewSubmitter(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*usecase.Submission, func() error, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	a := &Application{cfg: cfg, logger: baseLogger}
	if err := a.openBackends(ctx); err != nil {
		return nil, nil, err
	}
	sub, err := usecase.NewSubmission(a.queue, nil, baseLogger.With("component", "submission"))
	if err != nil {
		_ = a.Close()
		return nil, nil, err
	}
	return sub, a.Close, nil
}

// Migrate creates the tables and exits.
func Migrate(ctx context.Context, cfg config.Config) error {
	db, err := storage.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close()
	return storage.Migrate(ctx, db)
}

func (a *Application) openBackends(ctx context.Context) error {
	db, err := storage.Open(ctx, a.cfg.Database.Driver, a.cfg.Database.DSN)
	if err != nil {
		return err
	}
	a.db = db
	if err := storage.Migrate(ctx, db); err != nil {
		_ = a.Close()
		return err
	}

	settings := queue.Settings{
		LockDuration: a.cfg.Queue.LockDuration,
		MaxAttempts:  a.cfg.Queue.MaxAttempts,
		BackoffBase:  a.cfg.Queue.BackoffBase,
		PollInterval: a.cfg.Queue.PollInterval,
	}
	queueLogger := a.logger.With("component", "queue", "backend", a.cfg.Queue.Backend)

	switch a.cfg.Queue.Backend {
	case config.BackendNATS:
		nq, err := queue.NewNATSQueue(ctx, queue.NATSConfig{
			URL:             a.cfg.Queue.NATS.URL,
			Stream:          a.cfg.Queue.NATS.Stream,
			Subject:         a.cfg.Queue.NATS.Subject,
			Consumer:        a.cfg.Queue.NATS.Consumer,
			DuplicateWindow: a.cfg.Queue.NATS.DuplicateWindow,
		}, settings, queueLogger)
		if err != nil {
			_ = a.Close()
			return err
		}
		a.queue, a.closeQueue = nq, nq.Close
	default:
		sq := queue.NewSQLQueue(db, settings, queue.WithLogger(queueLogger))
		a.queue, a.closeQueue = sq, sq.Close
	}
	return nil
}

func (a *Application) build() error {
	cfg := a.cfg
	log := a.logger

	var err error
	a.submission, err = usecase.NewSubmission(a.queue, a.metrics, log.With("component", "submission"))
	if err != nil {
		return err
	}

	chain, err := extractor.NewDefaultRegistry(cfg.Extractor.MinParagraphLength).
		Chain(cfg.Extractor.Stages, cfg.Extractor.MinContentLength, log.With("component", "extractor"))
	if err != nil {
		return fmt.Errorf("extractor chain: %w", err)
	}

	var remoteCategorizer ports.Categorizer
	if cfg.Enrichment.Classifier.URL != "" {
		remoteCategorizer = ml.NewClient(cfg.Enrichment.Classifier.URL, cfg.Enrichment.Classifier.APIKey, cfg.Enrichment.Classifier.MinScore)
	}
	categorizer := enrichment.NewFallbackCategorizer(
		remoteCategorizer,
		enrichment.NewKeywordClassifier(enrichment.DefaultMinHits),
		log.With("component", "categorizer"),
	)

	var remoteSummarizer ports.Summarizer
	if cfg.Summarizer.Enabled() {
		remoteSummarizer = llm.NewChatGPTClient(llm.Config{
			Endpoint:     cfg.Summarizer.Endpoint,
			Model:        cfg.Summarizer.Model,
			APIKey:       cfg.Summarizer.APIKey,
			SystemPrompt: cfg.Summarizer.SystemPrompt,
			Timeout:      cfg.Summarizer.Timeout,
		})
	}

	store := storage.NewArticleStore(a.db)
	pipeline, err := usecase.NewPipeline(usecase.PipelineDeps{
		Fetcher: fetcher.New(fetcher.Options{
			Timeout:      cfg.Worker.FetchTimeout,
			MaxBodyBytes: cfg.Worker.MaxBodyBytes,
			UserAgent:    cfg.Worker.UserAgent,
		}),
		Extractor:  chain,
		Normalizer: normalizer.New(cfg.Normalizer.HashPrefixLength, cfg.Normalizer.BoilerplateMarkers),
		Dedup:      dedup.New(store),
		Scorer:     enrichment.NewScorer(categorizer, cfg.Enrichment.Query),
		Summarizer: enrichment.NewFallbackSummarizer(remoteSummarizer, log.With("component", "summarizer")),
		Store:      store,
		Recorder:   a.metrics,
		Logger:     log.With("component", "pipeline"),
	})
	if err != nil {
		return err
	}

	var alerter ports.Alerter
	if cfg.Notifications.Telegram.Enabled() {
		tg, err := telegram.NewAlerter(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID, cfg.Notifications.Telegram.APIEndpoint)
		if err != nil {
			return err
		}
		alerter = tg
	}

	a.pool, err = worker.New(worker.Config{
		Concurrency: cfg.Worker.Concurrency,
		JobTimeout:  cfg.Worker.JobTimeout,
	}, worker.Deps{
		Queue:     a.queue,
		Processor: pipeline,
		Alerter:   alerter,
		Recorder:  a.metrics,
		Logger:    log.With("component", "worker"),
	})
	if err != nil {
		return err
	}

	var sources ports.SourceProvider = parser.NewStaticSources(cfg.Sources)
	if cfg.Scheduler.SourcesFile != "" {
		a.fileSources, err = parser.LoadFileSources(cfg.Scheduler.SourcesFile, log.With("component", "sources"))
		if err != nil {
			return fmt.Errorf("load sources: %w", err)
		}
		sources = a.fileSources
	}

	poller, err := usecase.NewFeedPoller(usecase.FeedPollerDeps{
		Sources:       sources,
		Feeds:         parser.NewFeedReader(&http.Client{Timeout: cfg.Scheduler.SourceTimeout}, cfg.Worker.UserAgent),
		Submission:    a.submission,
		Recorder:      a.metrics,
		Logger:        log.With("component", "poller"),
		SourceTimeout: cfg.Scheduler.SourceTimeout,
		SeenCapacity:  cfg.Scheduler.SeenCapacity,
	})
	if err != nil {
		return err
	}
	driver := scheduler.NewCronScheduler(scheduler.Every(cfg.Scheduler.PollInterval), cfg.Scheduler.RunOnStart, log.With("component", "cron"))
	a.scheduler = usecase.NewScheduler(driver, poller, log.With("component", "scheduler"))

	handler := httpapi.NewHandler(a.submission, a.metrics.Handler(), a.db.PingContext, log.With("component", "http"))
	a.server = httpapi.NewServer(cfg.HTTP.Addr, handler.Routes(), log.With("component", "http"))

	log.Info("application initialised",
		"queue", cfg.Queue.Backend,
		"database", cfg.Database.Driver,
		"workers", cfg.Worker.Concurrency,
		"stages", chain.Stages(),
		"summarizer", cfg.Summarizer.Enabled(),
		"alerts", alerter != nil,
	)
	return nil
}

// Run serves until ctx is cancelled, then shuts everything down. Workers
// finish acknowledging their current job before Run returns.
func (a *Application) Run(ctx context.Context) error {
	defer a.Close()

	if a.fileSources != nil {
		if err := a.fileSources.Watch(ctx); err != nil {
			return fmt.Errorf("watch sources: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if err := a.scheduler.Start(gctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	g.Go(func() error { return a.pool.Run(gctx) })
	g.Go(func() error { return a.server.ListenAndServe() })
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return errors.Join(a.scheduler.Stop(shutdownCtx), a.server.Shutdown(shutdownCtx))
	})

	return g.Wait()
}

// Close releases the queue and the database.
func (a *Application) Close() error {
	var errs []error
	if a.closeQueue != nil {
		errs = append(errs, a.closeQueue())
		a.closeQueue = nil
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
		a.db = nil
	}
	return errors.Join(errs...)
}
