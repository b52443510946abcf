package analytics

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/siterank/siterank/pkg/kafka"
	"github.com/siterank/siterank/pkg/resilience"
)

// Publish failures trip the broker circuit after this many consecutive
// errors; while it is open, events are shed without waiting on the broker.
const (
	publishFailureThreshold = 5
	publishRetryCooldown    = 30 * time.Second
)

// Publisher is the slice of the Kafka producer the collector needs.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector forwards lookup events to Kafka asynchronously. Track never
// blocks the query path: events go through a buffered channel and are
// dropped when the buffer is full or the broker circuit is open.
type Collector struct {
	publisher Publisher
	breaker   *resilience.Breaker
	eventCh   chan LookupEvent
	dropped   atomic.Int64
	logger    *slog.Logger
	done      chan struct{}
}

func NewCollector(publisher Publisher, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		publisher: publisher,
		breaker:   resilience.NewBreaker("lookup-events", publishFailureThreshold, publishRetryCooldown),
		eventCh:   make(chan LookupEvent, bufferSize),
		logger:    slog.Default().With("component", "lookup-collector"),
		done:      make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case ev, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, ev)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("lookup event collector started", "buffer_size", cap(c.eventCh))
}

func (c *Collector) Track(ev LookupEvent) {
	select {
	case c.eventCh <- ev:
	default:
		if c.dropped.Add(1) == 1 {
			c.logger.Warn("lookup events dropped, buffer full")
		}
	}
}

func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
	if n := c.dropped.Load(); n > 0 {
		c.logger.Warn("lookup events were dropped", "count", n)
	}
}

// Dropped reports how many events were shed because the buffer was full or
// the broker circuit was open.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

func (c *Collector) publish(ctx context.Context, ev LookupEvent) {
	err := c.breaker.Do(func() error {
		return c.publisher.Publish(ctx, kafka.Event{Key: ev.Input, Value: ev})
	})
	switch {
	case err == nil:
	case errors.Is(err, resilience.ErrOpen):
		c.dropped.Add(1)
	default:
		c.dropped.Add(1)
		c.logger.Error("failed to publish lookup event", "error", err)
	}
}

// drainRemaining flushes whatever is still buffered as one batch write.
func (c *Collector) drainRemaining() {
	events := make([]kafka.Event, 0, len(c.eventCh))
	for {
		select {
		case ev, ok := <-c.eventCh:
			if !ok {
				c.flush(events)
				return
			}
			events = append(events, kafka.Event{Key: ev.Input, Value: ev})
		default:
			c.flush(events)
			return
		}
	}
}

func (c *Collector) flush(events []kafka.Event) {
	if len(events) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := c.breaker.Do(func() error {
		return c.publisher.PublishBatch(ctx, events)
	})
	if err != nil {
		c.dropped.Add(int64(len(events)))
		c.logger.Error("failed to flush remaining events", "count", len(events), "error", err)
	}
}
