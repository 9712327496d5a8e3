package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"NewsIngestor/internal/domain"
	"NewsIngestor/internal/ports"
)

// NATSConfig names the JetStream resources backing the queue.
type NATSConfig struct {
	URL             string
	Stream          string
	Subject         string
	Consumer        string
	DuplicateWindow time.Duration
}

// NATSQueue is a JetStream work-queue stream. Enqueue coalesces by
// Nats-Msg-Id, which only holds within the stream's duplicate window; the
// article store's uniqueness constraints cover anything older.
type NATSQueue struct {
	nc       *nats.Conn
	consumer jetstream.Consumer
	subject  string
	js       jetstream.JetStream
	settings Settings
	logger   *slog.Logger

	fetchBackoff time.Duration
}

// fetchErrorBackoff spaces out fetches while the connection is down.
const fetchErrorBackoff = time.Second

var _ ports.Queue = (*NATSQueue)(nil)

// NewNATSQueue connects and creates or updates the stream and durable
// consumer.
func NewNATSQueue(ctx context.Context, cfg NATSConfig, settings Settings, logger *slog.Logger) (*NATSQueue, error) {
	settings = settings.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DuplicateWindow <= 0 {
		cfg.DuplicateWindow = 10 * time.Minute
	}

	nc, err := nats.Connect(cfg.URL, nats.Name("newsingestor"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       cfg.Stream,
		Subjects:   []string{cfg.Subject},
		Retention:  jetstream.WorkQueuePolicy,
		Storage:    jetstream.FileStorage,
		Duplicates: cfg.DuplicateWindow,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create stream %s: %w", cfg.Stream, err)
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       cfg.Consumer,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       settings.LockDuration,
		MaxDeliver:    settings.MaxAttempts,
		FilterSubject: cfg.Subject,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create consumer %s: %w", cfg.Consumer, err)
	}

	return &NATSQueue{
		nc:       nc,
		js:       js,
		consumer: consumer,
		subject:  cfg.Subject,
		settings: settings,
		logger:   logger,

		fetchBackoff: fetchErrorBackoff,
	}, nil
}

// Enqueue publishes the job with its dedup key as message ID.
func (q *NATSQueue) Enqueue(ctx context.Context, job domain.IngestJob) (bool, error) {
	if err := job.Validate(); err != nil {
		return false, err
	}
	job = q.settings.stamp(job)
	data, err := encodeJob(job)
	if err != nil {
		return false, err
	}

	ack, err := q.js.Publish(ctx, q.subject, data, jetstream.WithMsgID(job.DedupKey()))
	if err != nil {
		return false, fmt.Errorf("publish %s: %w", job.SourceURL, err)
	}
	return !ack.Duplicate, nil
}

// Claim fetches one message at a time, waiting up to the poll interval per
// fetch.
func (q *NATSQueue) Claim(ctx context.Context) (ports.Delivery, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, err := q.consumer.Fetch(1, jetstream.FetchMaxWait(q.settings.PollInterval))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, nats.ErrConnectionClosed) {
				return nil, err
			}
			q.logger.Warn("jetstream fetch failed", "error", err)
			if err := sleepCtx(ctx, q.fetchBackoff); err != nil {
				return nil, err
			}
			continue
		}

		for msg := range batch.Messages() {
			if ctx.Err() != nil {
				_ = msg.Nak()
				continue
			}
			job, err := decodeJob(msg.Data())
			if err != nil {
				q.logger.Error("malformed job payload", "error", err)
				_ = msg.Term()
				continue
			}
			meta, err := msg.Metadata()
			if err != nil {
				_ = msg.Nak()
				continue
			}
			job.AttemptCount = int(meta.NumDelivered)
			return &natsDelivery{msg: msg, job: job}, nil
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		d = fetchErrorBackoff
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Close drains the connection.
func (q *NATSQueue) Close() error {
	if q.nc == nil {
		return nil
	}
	return q.nc.Drain()
}

type natsDelivery struct {
	msg jetstream.Msg
	job domain.IngestJob
}

func (d *natsDelivery) Job() domain.IngestJob { return d.job }

func (d *natsDelivery) Complete(ctx context.Context) error {
	if err := d.msg.DoubleAck(ctx); err != nil {
		return fmt.Errorf("ack job: %w", err)
	}
	return nil
}

func (d *natsDelivery) Retry(_ context.Context, _ error) (bool, error) {
	if d.job.AttemptCount >= d.job.MaxAttempts {
		if err := d.msg.Term(); err != nil {
			return true, fmt.Errorf("term job: %w", err)
		}
		return true, nil
	}
	if err := d.msg.NakWithDelay(d.job.Backoff.Delay(d.job.AttemptCount)); err != nil {
		return false, fmt.Errorf("nak job: %w", err)
	}
	return false, nil
}

func (d *natsDelivery) Fail(_ context.Context, _ error) error {
	if err := d.msg.Term(); err != nil {
		return fmt.Errorf("term job: %w", err)
	}
	return nil
}
