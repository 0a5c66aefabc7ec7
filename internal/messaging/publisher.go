package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"burger-system/internal/connections/rabbitmq"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// publishChannel is the slice of amqp.Channel the publisher needs.
type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher sends events to one fanout exchange. Publishing is
// fire-and-forget: no confirms, and loss on broker restart is an accepted gap.
// A failed publish drops the cached connection and redials once, so a broker
// restart costs at most the in-flight message, not every message after it.
type Publisher struct {
	exchange string
	source   string

	mu      sync.Mutex
	connect func() (publishChannel, func(), error)
	ch      publishChannel
	closeCh func()
}

// NewPublisher returns a publisher bound to exchange. The connection is opened
// lazily on first publish, declaring the exchange each time it (re)connects.
// source tags outgoing messages with the producing service.
func NewPublisher(dial func() (*rabbitmq.Client, error), exchange, source string) *Publisher {
	p := &Publisher{exchange: exchange, source: source}
	p.connect = func() (publishChannel, func(), error) {
		client, err := dial()
		if err != nil {
			return nil, nil, err
		}
		if err := DeclareExchange(client.Channel(), exchange); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("declare %s: %w", exchange, err)
		}
		return client.Channel(), client.Close, nil
	}
	return p
}

// Publish marshals event to JSON and publishes it persistently. The routing
// key is empty: fanout exchanges ignore it.
func (p *Publisher) Publish(ctx context.Context, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		if err := p.redial(); err != nil {
			return err
		}
	}
	if err := p.send(ctx, body); err != nil {
		// stale channel, likely a broker restart
		p.reset()
		if rerr := p.redial(); rerr != nil {
			return err
		}
		return p.send(ctx, body)
	}
	return nil
}

func (p *Publisher) send(ctx context.Context, body []byte) error {
	return p.ch.PublishWithContext(
		ctx,
		p.exchange,
		"",
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now().UTC(),
			Headers:      amqp.Table{"x-source": p.source},
			Body:         body,
		},
	)
}

func (p *Publisher) redial() error {
	ch, closeFn, err := p.connect()
	if err != nil {
		return fmt.Errorf("connect publisher: %w", err)
	}
	p.ch, p.closeCh = ch, closeFn
	return nil
}

func (p *Publisher) reset() {
	if p.closeCh != nil {
		p.closeCh()
	}
	p.ch, p.closeCh = nil, nil
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}
