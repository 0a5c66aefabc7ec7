package messaging

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Fanout exchanges of the system. Every queue bound to one of them receives a
// copy of every message published to it; there is no routing-key filtering.
const (
	OrdersExchange      = "orders_exchange"
	OrderStatusExchange = "order_status_exchange"
)

// QueueSpec describes one consumer's slice of the topology: its durable work
// queue bound to a producer's fanout exchange, plus a dedicated dead-letter
// exchange and queue that rejected messages are rerouted to.
type QueueSpec struct {
	Exchange string
	Queue    string
	DLX      string
	DLQ      string
}

// ConsumerQueue derives the conventional queue/DLX/DLQ names for a consumer
// stream, e.g. ConsumerQueue("kitchen_orders", OrdersExchange).
func ConsumerQueue(consumer, exchange string) QueueSpec {
	return QueueSpec{
		Exchange: exchange,
		Queue:    consumer + "_queue",
		DLX:      consumer + "_dlx",
		DLQ:      consumer + "_dlq",
	}
}

// DeclareExchange declares a durable fanout exchange. Declarations are
// idempotent, so repeated reconnects are safe.
func DeclareExchange(ch *amqp.Channel, name string) error {
	return ch.ExchangeDeclare(name, "fanout", true, false, false, false, nil)
}

// Declare sets up the consumer's full topology: DLX first, then the DLQ bound
// to it, then the work queue pointing at the DLX, bound to the producer's
// exchange. Must be called before every Consume, including after reconnects.
func (s QueueSpec) Declare(ch *amqp.Channel) error {
	if err := DeclareExchange(ch, s.DLX); err != nil {
		return fmt.Errorf("declare %s: %w", s.DLX, err)
	}
	if _, err := ch.QueueDeclare(s.DLQ, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare %s: %w", s.DLQ, err)
	}
	if err := ch.QueueBind(s.DLQ, "", s.DLX, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", s.DLQ, err)
	}
	if err := DeclareExchange(ch, s.Exchange); err != nil {
		return fmt.Errorf("declare %s: %w", s.Exchange, err)
	}
	if _, err := ch.QueueDeclare(s.Queue, true, false, false, false, amqp.Table{
		"x-dead-letter-exchange": s.DLX,
	}); err != nil {
		return fmt.Errorf("declare %s: %w", s.Queue, err)
	}
	if err := ch.QueueBind(s.Queue, "", s.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", s.Queue, err)
	}
	return nil
}
