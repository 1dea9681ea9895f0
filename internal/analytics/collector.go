package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/textquery/pkg/kafka"
)

// Publisher sends events downstream. *kafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

// maxBatch bounds how many buffered events go out in one publish call.
const maxBatch = 100

// Collector queues query events and publishes them from a background
// goroutine so tracking never blocks a request. When the buffer is full,
// events are dropped and counted.
type Collector struct {
	publisher Publisher
	eventCh   chan QueryEvent
	logger    *slog.Logger
	done      chan struct{}

	mu      sync.RWMutex
	closed  bool
	started atomic.Bool
	dropped atomic.Int64
}

func NewCollector(publisher Publisher, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		publisher: publisher,
		eventCh:   make(chan QueryEvent, bufferSize),
		logger:    slog.Default().With("component", "analytics-collector"),
		done:      make(chan struct{}),
	}
}

// Start launches the publish loop. It exits when ctx is cancelled or Close
// is called, publishing whatever is still buffered first. Once ctx is
// cancelled the collector stops accepting events. Only the first call has
// any effect.
func (c *Collector) Start(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(c.done)
		batch := make([]kafka.Event, 0, maxBatch)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				batch = append(batch[:0], toKafka(event))
				batch = c.fill(batch)
				c.publish(ctx, batch)
			case <-ctx.Done():
				c.stop()
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track queues event without blocking. It is safe to call after Close.
func (c *Collector) Track(event QueryEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.eventCh <- event:
	default:
		if c.dropped.Add(1)%1000 == 1 {
			c.logger.Warn("analytics event dropped (buffer full)", "dropped_total", c.dropped.Load())
		}
	}
}

// Dropped reports how many events were discarded because the buffer was full.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Close stops accepting events and, if the publish loop was started, waits
// for the buffer to be published.
func (c *Collector) Close() {
	c.stop()
	if c.started.Load() {
		<-c.done
	}
}

// stop closes the buffer to new events. Events already queued stay readable.
func (c *Collector) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.eventCh)
}

// fill tops batch up with events already waiting, without blocking.
func (c *Collector) fill(batch []kafka.Event) []kafka.Event {
	for len(batch) < maxBatch {
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
	return batch
}

func (c *Collector) publish(ctx context.Context, batch []kafka.Event) {
	if err := c.publisher.Publish(ctx, batch...); err != nil {
		c.logger.Error("failed to publish analytics events", "count", len(batch), "error", err)
	}
}

func (c *Collector) drainRemaining() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		batch := c.fill(make([]kafka.Event, 0, maxBatch))
		if len(batch) == 0 {
			return
		}
		c.publish(ctx, batch)
	}
}

func toKafka(event QueryEvent) kafka.Event {
	return kafka.Event{Key: event.Fingerprint, Value: event}
}
