// Package analytics publishes search and crawl events and aggregates them
// into summary statistics.
package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/resilience"
)

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

// Collector buffers events and publishes them in batches from a single
// goroutine. Track never blocks; when the buffer is full the event is
// dropped.
type Collector struct {
	publisher     Publisher
	eventCh       chan Event
	batchSize     int
	flushInterval time.Duration
	logger        *slog.Logger
	done          chan struct{}
}

func NewCollector(publisher Publisher, bufferSize, batchSize int, flushInterval time.Duration) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	return &Collector{
		publisher:     publisher,
		eventCh:       make(chan Event, bufferSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start runs the publish loop until ctx is cancelled or Close is called.
// Buffered events are flushed before the loop exits.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()

		batch := make([]kafka.Event, 0, c.batchSize)
		flush := func(ctx context.Context) {
			if len(batch) == 0 {
				return
			}
			c.publish(ctx, batch)
			batch = batch[:0]
		}
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					flush(context.Background())
					return
				}
				batch = append(batch, toKafka(event))
				if len(batch) >= c.batchSize {
					flush(ctx)
				}
			case <-ticker.C:
				flush(ctx)
			case <-ctx.Done():
				batch = c.drain(batch)
				flush(context.Background())
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh), "batch_size", c.batchSize)
}

func (c *Collector) Track(event Event) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Warn("analytics event dropped (buffer full)", "type", event.EventType())
	}
}

// Close stops accepting events and waits for the final flush. Track must not
// be called after Close.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}

// drain appends whatever is already buffered without waiting for more.
func (c *Collector) drain(batch []kafka.Event) []kafka.Event {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return batch
			}
			batch = append(batch, toKafka(event))
		default:
			return batch
		}
	}
}

func (c *Collector) publish(ctx context.Context, batch []kafka.Event) {
	err := resilience.Retry(ctx, "analytics-publish", resilience.RetryPolicy{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
	}, func(ctx context.Context) error {
		return c.publisher.Publish(ctx, batch...)
	})
	if err != nil {
		c.logger.Error("failed to publish analytics events", "count", len(batch), "error", err)
	}
}

func toKafka(event Event) kafka.Event {
	return kafka.Event{
		Key:   event.EventKey(),
		Type:  string(event.EventType()),
		Value: event,
	}
}
