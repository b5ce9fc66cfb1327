package consumer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Recomputer refreshes every cached chart for a scope. The production
// implementation is recompute.Orchestrator.
type Recomputer interface {
	Recompute(ctx context.Context, vehicleID string) error
}

// Options configures a Consumer.
type Options struct {
	// URL is the AMQP broker URL.
	URL string
	// Queue is the durable queue name carrying mutation events.
	Queue string
	// ReconnectBackoff is the wait between connection attempts.
	ReconnectBackoff time.Duration
}

func (o Options) normalized() Options {
	if o.Queue == "" {
		o.Queue = "vehicle_events"
	}
	if o.ReconnectBackoff <= 0 {
		o.ReconnectBackoff = 5 * time.Second
	}
	return o
}

// Consumer drains mutation events from the broker and triggers cache
// recomputation, one message at a time.
type Consumer struct {
	opts       Options
	recomputer Recomputer
}

// NewConsumer creates a Consumer. It does not connect; call Run.
func NewConsumer(opts Options, recomputer Recomputer) *Consumer {
	return &Consumer{opts: opts.normalized(), recomputer: recomputer}
}

// Run consumes until ctx is cancelled. Broker failures are retried
// indefinitely with a fixed backoff; Run only returns on cancellation.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if err := c.consumeOnce(ctx); err != nil {
			slog.Error("[Consumer] Broker session ended", "error", err, "retry_in", c.opts.ReconnectBackoff)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.opts.ReconnectBackoff):
		}
	}
}

// consumeOnce runs a single broker session: connect, declare, consume
// until the channel closes or ctx is cancelled.
func (c *Consumer) consumeOnce(ctx context.Context) error {
	conn, err := amqp.Dial(c.opts.URL)
	if err != nil {
		return err
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(c.opts.Queue, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		return err
	}

	deliveries, err := ch.Consume(c.opts.Queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}
	slog.Info("[Consumer] Consuming", "queue", c.opts.Queue)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return amqp.ErrClosed
			}
			c.handleDelivery(ctx, d)
		}
	}
}

// handleDelivery processes one message. Malformed messages are logged and
// acknowledged so they do not poison the queue. Recompute failures are
// logged but still acknowledged: the next event for the same scope will
// retry the work. The exception is a recompute cut short by shutdown,
// which leaves the message unacked so the broker redelivers it on the
// next start.
func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	evt, err := ParseEvent(d.Body)
	if err != nil {
		slog.Warn("[Consumer] Dropping malformed message", "error", err)
		if ackErr := d.Ack(false); ackErr != nil {
			slog.Error("[Consumer] Ack failed", "error", ackErr)
		}
		return
	}

	for _, scope := range evt.Scopes() {
		if err := c.recomputer.Recompute(ctx, scope); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				slog.Info("[Consumer] Recompute interrupted, leaving message for redelivery",
					"event_type", evt.Type, "scope", scopeLabel(scope))
				return
			}
			slog.Error("[Consumer] Recompute failed", "event_type", evt.Type, "scope", scopeLabel(scope), "error", err)
		}
	}

	if err := d.Ack(false); err != nil {
		slog.Error("[Consumer] Ack failed", "error", err)
	}
}

func scopeLabel(vehicleID string) string {
	if vehicleID == "" {
		return "fleet"
	}
	return vehicleID
}
