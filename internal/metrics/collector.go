package metrics

import (
	"context"
	"log/slog"
	"time"
)

type EventType string

const (
	EventConnectionAccepted EventType = "connection_accepted"
	EventTargetSelected     EventType = "target_selected"
	EventSessionCompleted   EventType = "session_completed"
	EventConnectionRejected EventType = "connection_rejected"
	EventHealthChanged      EventType = "health_changed"
)

type Event struct {
	Type      EventType
	Timestamp time.Time
	Target    string
	Duration  time.Duration
	Bytes     int64
	Healthy   bool
}

// Collector receives events over a buffered channel and folds them into the
// metrics store off the connection path. Senders must use non-blocking sends;
// a full buffer drops the event rather than stalling a relay.
type Collector struct {
	eventCh chan Event
	metrics *Metrics
	logger  *slog.Logger
}

func NewCollector(bufferSize int, logger *slog.Logger) *Collector {
	return &Collector{
		eventCh: make(chan Event, bufferSize),
		metrics: NewMetrics(),
		logger:  logger,
	}
}

func (c *Collector) EventChannel() chan<- Event {
	return c.eventCh
}

// Emit is a convenience non-blocking send. Nil collectors are allowed so
// callers need no guard when metrics are disabled.
func (c *Collector) Emit(event Event) {
	if c == nil {
		return
	}
	select {
	case c.eventCh <- event:
	default:
	}
}

func (c *Collector) Snapshot() Snapshot {
	return c.metrics.Snapshot()
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event Event) {
	switch event.Type {
	case EventConnectionAccepted:
		c.metrics.IncrementAccepted()

	case EventTargetSelected:
		c.metrics.RecordSelection(event.Target)

	case EventSessionCompleted:
		c.metrics.RecordSession(event.Target, event.Duration, event.Bytes)

	case EventConnectionRejected:
		c.metrics.IncrementRejected()

	case EventHealthChanged:
		c.metrics.UpdateHealthStatus(event.Target, event.Healthy)
	}
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}
