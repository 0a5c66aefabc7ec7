package messaging

import (
	"context"
	"errors"
	"time"

	"burger-system/internal/connections/rabbitmq"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Outcome is the result a handler reports for one message. The transport
// adapter translates it to the acknowledgement protocol, keeping business
// logic free of AMQP details.
type Outcome int

const (
	// Completed acknowledges the message. Business-rule failures also end
	// here: they are terminal application-level outcomes, not transient
	// faults, and retrying them cannot help.
	Completed Outcome = iota
	// RetryableFailure requeues the message until the attempt bound is
	// reached, then dead-letters it.
	RetryableFailure
	// PermanentFailure dead-letters the message immediately. Malformed
	// bodies cannot self-correct.
	PermanentFailure
)

// maxAttempts is how many deliveries a message gets before a retryable
// failure sends it to the DLQ.
const maxAttempts = 3

// Handler processes one message body. attempt is the explicit retry counter:
// 0 on first delivery, incremented by the broker's redelivery history.
type Handler func(ctx context.Context, body []byte, attempt int) Outcome

// Attempts reads the broker-maintained x-death header; its length is how many
// times this message has already been rejected back through the cycle.
func Attempts(headers amqp.Table) int {
	deaths, ok := headers["x-death"].([]interface{})
	if !ok {
		return 0
	}
	return len(deaths)
}

type acknowledgement interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// settle maps a handler outcome onto ack/nack-requeue/nack-discard.
func settle(d acknowledgement, out Outcome, attempt int) error {
	switch out {
	case Completed:
		return d.Ack(false)
	case PermanentFailure:
		return d.Nack(false, false)
	default:
		if attempt >= maxAttempts-1 {
			return d.Nack(false, false)
		}
		return d.Nack(false, true)
	}
}

// Consumer runs the reliable-consumption loop for one queue: prefetch of one,
// manual acknowledgement, bounded retry, dead-lettering, and a reconnect loop
// that re-declares the full topology after every connection loss.
type Consumer struct {
	Name    string
	Spec    QueueSpec
	Dial    func() (*rabbitmq.Client, error)
	Handler Handler
	Log     *logrus.Entry
	Backoff time.Duration // reconnect delay, defaults to 2s
}

// Run blocks until ctx is canceled, reconnecting with a fixed backoff on any
// connection-level failure.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := c.Backoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	for {
		if err := c.consume(ctx); err != nil {
			c.Log.WithError(err).WithField("queue", c.Spec.Queue).Warn("consumer_disconnected")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	client, err := c.Dial()
	if err != nil {
		return err
	}
	defer client.Close()

	ch := client.Channel()
	if err := c.Spec.Declare(ch); err != nil {
		return err
	}
	// one message at a time, end-to-end
	if err := ch.Qos(1, 0, false); err != nil {
		return err
	}
	deliveries, err := ch.Consume(c.Spec.Queue, c.Name, false, false, false, false, nil)
	if err != nil {
		return err
	}
	closed := ch.NotifyClose(make(chan *amqp.Error, 1))

	c.Log.WithField("queue", c.Spec.Queue).Info("consumer_started")

	for {
		select {
		case <-ctx.Done():
			_ = ch.Cancel(c.Name, false)
			return nil
		case amqpErr := <-closed:
			if amqpErr != nil {
				return amqpErr
			}
			return errors.New("channel closed")
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery stream closed")
			}
			attempt := Attempts(d.Headers)
			out := c.Handler(ctx, d.Body, attempt)
			if err := settle(&d, out, attempt); err != nil {
				c.Log.WithError(err).Error("settle_failed")
			}
		}
	}
}
