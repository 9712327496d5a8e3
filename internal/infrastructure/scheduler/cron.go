package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"NewsIngestor/internal/ports"
)

// CronScheduler runs a job on a cron schedule. Overlapping runs are allowed;
// callers that need per-key exclusion handle it themselves.
type CronScheduler struct {
	spec       string
	runOnStart bool
	logger     *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler accepts standard five-field expressions and descriptors
// such as "@every 5m".
func NewCronScheduler(spec string, runOnStart bool, logger *slog.Logger) *CronScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CronScheduler{spec: spec, runOnStart: runOnStart, logger: logger}
}

// Every builds an "@every" spec for a fixed interval.
func Every(interval time.Duration) string {
	return fmt.Sprintf("@every %s", interval)
}

// Start registers job and starts the cron loop. It stops when ctx is done.
func (c *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cron != nil {
		return nil
	}

	log := cronLogger{logger: c.logger}
	cr := cron.New(cron.WithLogger(log), cron.WithChain(cron.Recover(log)))
	if _, err := cr.AddFunc(c.spec, func() { job(time.Now()) }); err != nil {
		return fmt.Errorf("schedule %q: %w", c.spec, err)
	}
	cr.Start()
	c.cron = cr

	if c.runOnStart {
		go job(time.Now())
	}

	go func() {
		<-ctx.Done()
		_ = c.Stop(context.Background())
	}()
	return nil
}

// Stop halts scheduling and waits for running jobs or ctx, whichever is first.
func (c *CronScheduler) Stop(ctx context.Context) error {
	c.mu.Lock()
	cr := c.cron
	c.cron = nil
	c.mu.Unlock()

	if cr == nil {
		return nil
	}

	select {
	case <-cr.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
