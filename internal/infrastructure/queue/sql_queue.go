package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/infrastructure/storage"
	"NewsIngestor/internal/ports"
)

// Job states stored in ingest_jobs.state.
const (
	StateQueued = "queued"
	StateActive = "active"
	StateFailed = "failed"
)

// claimRetries bounds how many contended candidates one poll tries.
const claimRetries = 3

// ErrLeaseLost is returned when a delivery is acknowledged after its lock
// expired and another worker claimed the job.
var ErrLeaseLost = ports.ErrLeaseLost

// JobStatus is a snapshot of one queue row.
type JobStatus struct {
	State     string
	Attempts  int
	RunAt     time.Time
	LastError string
}

// SQLQueue keeps jobs in the ingest_jobs table, keyed by the job's dedup key.
// Completed jobs are deleted; permanently failed jobs stay for inspection
// until the same URL is enqueued again.
type SQLQueue struct {
	db       *storage.DB
	settings Settings
	now      func() time.Time
	wake     chan struct{}
	logger   *slog.Logger
}

var _ ports.Queue = (*SQLQueue)(nil)

// SQLOption customises an SQLQueue.
type SQLOption func(*SQLQueue)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SQLOption {
	return func(q *SQLQueue) { q.now = now }
}

// WithLogger sets the queue logger.
func WithLogger(logger *slog.Logger) SQLOption {
	return func(q *SQLQueue) { q.logger = logger }
}

// NewSQLQueue wires the queue over a migrated database.
func NewSQLQueue(db *storage.DB, settings Settings, opts ...SQLOption) *SQLQueue {
	q := &SQLQueue{
		db:       db,
		settings: settings.withDefaults(),
		now:      time.Now,
		wake:     make(chan struct{}, 1),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue inserts the job unless a row with the same dedup key exists. A
// permanently failed row is re-armed with a fresh attempt budget.
func (q *SQLQueue) Enqueue(ctx context.Context, job domain.IngestJob) (bool, error) {
	if err := job.Validate(); err != nil {
		return false, err
	}
	job = q.settings.stamp(job)
	data, err := encodeJob(job)
	if err != nil {
		return false, err
	}
	now := q.now().UnixMilli()
	key := job.DedupKey()

	query, args, err := q.db.Builder().
		Insert(storage.JobsTable).
		Columns("dedup_key", "source_url", "payload", "state", "attempts", "max_attempts",
			"run_at", "locked_until", "lease_token", "last_error", "created_at", "updated_at").
		Values(key, job.SourceURL, string(data), StateQueued, 0, job.MaxAttempts,
			now, 0, "", "", now, now).
		Suffix("ON CONFLICT (dedup_key) DO NOTHING").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build enqueue: %w", err)
	}
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("enqueue %s: %w", job.SourceURL, err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		q.signal()
		return true, nil
	}

	rearmed, err := q.update(ctx, sq.Eq{"dedup_key": key, "state": StateFailed}, map[string]any{
		"payload":      string(data),
		"state":        StateQueued,
		"attempts":     0,
		"max_attempts": job.MaxAttempts,
		"run_at":       now,
		"locked_until": 0,
		"lease_token":  "",
		"last_error":   "",
		"updated_at":   now,
	})
	if err != nil {
		return false, fmt.Errorf("re-arm %s: %w", job.SourceURL, err)
	}
	if rearmed {
		q.signal()
	}
	return rearmed, nil
}

// Claim blocks until a job is ready or ctx is done.
func (q *SQLQueue) Claim(ctx context.Context) (ports.Delivery, error) {
	for {
		delivery, err := q.tryClaim(ctx)
		if err != nil {
			return nil, err
		}
		if delivery != nil {
			return delivery, nil
		}

		wait := time.NewTimer(q.settings.PollInterval)
		select {
		case <-ctx.Done():
			wait.Stop()
			return nil, ctx.Err()
		case <-q.wake:
		case <-wait.C:
		}
		wait.Stop()
	}
}

func (q *SQLQueue) tryClaim(ctx context.Context) (*sqlDelivery, error) {
	now := q.now().UnixMilli()

	// Jobs whose final attempt crashed are not retried.
	expired, err := q.update(ctx, sq.And{
		sq.Eq{"state": StateActive},
		sq.LtOrEq{"locked_until": now},
		sq.Expr("attempts >= max_attempts"),
	}, map[string]any{
		"state":        StateFailed,
		"lease_token":  "",
		"locked_until": 0,
		"last_error":   "lock expired on final attempt",
		"updated_at":   now,
	})
	if err != nil {
		return nil, fmt.Errorf("expire exhausted jobs: %w", err)
	}
	if expired {
		q.logger.Warn("jobs failed after lock expiry on final attempt")
	}

	for i := 0; i < claimRetries; i++ {
		cand, found, err := q.candidate(ctx, now)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}

		job, err := decodeJob([]byte(cand.payload))
		if err != nil {
			if _, failErr := q.update(ctx, sq.Eq{"dedup_key": cand.key, "attempts": cand.attempts}, map[string]any{
				"state":      StateFailed,
				"last_error": truncateError(err),
				"updated_at": now,
			}); failErr != nil {
				return nil, fmt.Errorf("fail malformed job: %w", failErr)
			}
			q.logger.Error("malformed job payload", "job", cand.key, "error", err)
			continue
		}

		token := uuid.NewString()
		claimed, err := q.update(ctx, sq.Eq{
			"dedup_key":   cand.key,
			"state":       cand.state,
			"attempts":    cand.attempts,
			"lease_token": cand.token,
		}, map[string]any{
			"state":        StateActive,
			"attempts":     cand.attempts + 1,
			"lease_token":  token,
			"locked_until": now + q.settings.LockDuration.Milliseconds(),
			"updated_at":   now,
		})
		if err != nil {
			return nil, fmt.Errorf("claim job: %w", err)
		}
		if !claimed {
			continue
		}

		job.AttemptCount = cand.attempts + 1
		return &sqlDelivery{queue: q, key: cand.key, token: token, job: job}, nil
	}
	return nil, nil
}

type candidate struct {
	key      string
	payload  string
	state    string
	attempts int
	token    string
}

func (q *SQLQueue) candidate(ctx context.Context, now int64) (candidate, bool, error) {
	query, args, err := q.db.Builder().
		Select("dedup_key", "payload", "state", "attempts", "lease_token").
		From(storage.JobsTable).
		Where(sq.Or{
			sq.And{sq.Eq{"state": StateQueued}, sq.LtOrEq{"run_at": now}},
			sq.And{sq.Eq{"state": StateActive}, sq.LtOrEq{"locked_until": now}},
		}).
		OrderBy("run_at").
		Limit(1).
		ToSql()
	if err != nil {
		return candidate{}, false, fmt.Errorf("build candidate query: %w", err)
	}

	var c candidate
	err = q.db.QueryRowContext(ctx, query, args...).Scan(&c.key, &c.payload, &c.state, &c.attempts, &c.token)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return candidate{}, false, nil
	case err != nil:
		return candidate{}, false, fmt.Errorf("select candidate: %w", err)
	}
	return c, true, nil
}

// Status reports the queue row for sourceURL, if any.
func (q *SQLQueue) Status(ctx context.Context, sourceURL string) (JobStatus, bool, error) {
	query, args, err := q.db.Builder().
		Select("state", "attempts", "run_at", "last_error").
		From(storage.JobsTable).
		Where(sq.Eq{"dedup_key": domain.DedupKeyFor(sourceURL)}).
		ToSql()
	if err != nil {
		return JobStatus{}, false, fmt.Errorf("build status query: %w", err)
	}

	var (
		st    JobStatus
		runAt int64
	)
	err = q.db.QueryRowContext(ctx, query, args...).Scan(&st.State, &st.Attempts, &runAt, &st.LastError)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return JobStatus{}, false, nil
	case err != nil:
		return JobStatus{}, false, fmt.Errorf("job status: %w", err)
	}
	st.RunAt = time.UnixMilli(runAt).UTC()
	return st, true, nil
}

// Close is a no-op; the database is owned by the caller.
func (q *SQLQueue) Close() error {
	return nil
}

func (q *SQLQueue) update(ctx context.Context, where sq.Sqlizer, set map[string]any) (bool, error) {
	query, args, err := q.db.Builder().
		Update(storage.JobsTable).
		SetMap(set).
		Where(where).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build update: %w", err)
	}
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (q *SQLQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

type sqlDelivery struct {
	queue *SQLQueue
	key   string
	token string
	job   domain.IngestJob
}

func (d *sqlDelivery) Job() domain.IngestJob { return d.job }

func (d *sqlDelivery) Complete(ctx context.Context) error {
	query, args, err := d.queue.db.Builder().
		Delete(storage.JobsTable).
		Where(sq.Eq{"dedup_key": d.key, "lease_token": d.token}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build complete: %w", err)
	}
	res, err := d.queue.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrLeaseLost
	}
	return nil
}

func (d *sqlDelivery) Retry(ctx context.Context, cause error) (bool, error) {
	if d.job.AttemptCount >= d.job.MaxAttempts {
		return true, d.Fail(ctx, cause)
	}
	now := d.queue.now()
	delay := d.job.Backoff.Delay(d.job.AttemptCount)
	ok, err := d.queue.update(ctx, sq.Eq{"dedup_key": d.key, "lease_token": d.token}, map[string]any{
		"state":        StateQueued,
		"run_at":       now.Add(delay).UnixMilli(),
		"locked_until": 0,
		"lease_token":  "",
		"last_error":   truncateError(cause),
		"updated_at":   now.UnixMilli(),
	})
	if err != nil {
		return false, fmt.Errorf("retry job: %w", err)
	}
	if !ok {
		return false, ErrLeaseLost
	}
	return false, nil
}

func (d *sqlDelivery) Fail(ctx context.Context, cause error) error {
	ok, err := d.queue.update(ctx, sq.Eq{"dedup_key": d.key, "lease_token": d.token}, map[string]any{
		"state":        StateFailed,
		"locked_until": 0,
		"lease_token":  "",
		"last_error":   truncateError(cause),
		"updated_at":   d.queue.now().UnixMilli(),
	})
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	if !ok {
		return ErrLeaseLost
	}
	return nil
}
