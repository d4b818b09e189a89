package analytics

import (
	"context"
	"sync"
	"time"

	"propsearch/internal/metrics"

	"github.com/rs/zerolog"
)

const publishTimeout = 5 * time.Second

// Collector buffers analytics events and publishes them from a single
// background goroutine. Track never blocks: events arriving while the buffer
// is full are dropped.
type Collector struct {
	publisher Publisher
	eventCh   chan any
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	done      chan struct{}

	mu      sync.RWMutex
	started bool
	closed  bool
}

// NewCollector creates a collector. m may be nil.
func NewCollector(publisher Publisher, bufferSize int, log zerolog.Logger, m *metrics.Metrics) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		publisher: publisher,
		eventCh:   make(chan any, bufferSize),
		logger:    log.With().Str("component", "analytics-collector").Logger(),
		metrics:   m,
		done:      make(chan struct{}),
	}
}

// Start launches the publishing loop. It runs until ctx is cancelled or
// Close is called.
func (c *Collector) Start(ctx context.Context) {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()

	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info().Int("buffer_size", cap(c.eventCh)).Msg("analytics collector started")
}

// Track queues an event for publishing
func (c *Collector) Track(event any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.metrics.EventDropped()
		c.logger.Warn().Msg("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events, publishes what is buffered and waits for the
// loop to exit
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.eventCh)
	started := c.started
	c.mu.Unlock()

	if started {
		<-c.done
	}
}

func (c *Collector) publish(ctx context.Context, event any) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := c.publisher.Publish(ctx, Event{Key: eventKey(event), Value: event}); err != nil {
		c.metrics.EventDropped()
		c.logger.Error().Err(err).Msg("failed to publish analytics event")
	}
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(context.Background(), event)
		default:
			return
		}
	}
}

func eventKey(event any) string {
	if k, ok := event.(interface{ Key() string }); ok {
		return k.Key()
	}
	return "analytics"
}
