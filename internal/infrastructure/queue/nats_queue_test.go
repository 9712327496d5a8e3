package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newNATSTestQueue needs a JetStream-enabled server at NATS_URL.
func newNATSTestQueue(t *testing.T) *NATSQueue {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("NATS_URL not set")
	}

	suffix := uuid.NewString()[:8]
	settings := testSettings
	settings.BackoffBase = 100 * time.Millisecond
	settings.PollInterval = 200 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	q, err := NewNATSQueue(ctx, NATSConfig{
		URL:      url,
		Stream:   "INGEST_TEST_" + suffix,
		Subject:  "ingest.test." + suffix,
		Consumer: "workers-" + suffix,
	}, settings, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestNATSQueueCoalescesAndRetries(t *testing.T) {
	q := newNATSTestQueue(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	created, err := q.Enqueue(ctx, job("https://example.com/a"))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = q.Enqueue(ctx, job("https://example.com/a"))
	require.NoError(t, err)
	assert.False(t, created)

	d, err := q.Claim(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Job().AttemptCount)

	exhausted, err := d.Retry(ctx, errors.New("timeout"))
	require.NoError(t, err)
	assert.False(t, exhausted)

	d, err = q.Claim(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Job().AttemptCount)
	require.NoError(t, d.Complete(ctx))
}

// disconnectedConsumer fails every fetch the way a reconnecting client does.
type disconnectedConsumer struct {
	jetstream.Consumer
	fetches atomic.Int32
}

func (c *disconnectedConsumer) Fetch(int, ...jetstream.FetchOpt) (jetstream.MessageBatch, error) {
	c.fetches.Add(1)
	return nil, errors.New("nats: disconnected")
}

func TestNATSClaimBacksOffOnFetchErrors(t *testing.T) {
	t.Parallel()

	consumer := &disconnectedConsumer{}
	q := &NATSQueue{
		consumer:     consumer,
		settings:     testSettings.withDefaults(),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		fetchBackoff: 50 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 220*time.Millisecond)
	defer cancel()

	_, err := q.Claim(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.LessOrEqual(t, consumer.fetches.Load(), int32(6))
	assert.GreaterOrEqual(t, consumer.fetches.Load(), int32(2))
}
