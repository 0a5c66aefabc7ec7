package messaging

import "testing"

func TestConsumerQueue(t *testing.T) {
	spec := ConsumerQueue("kitchen_orders", OrdersExchange)
	if spec.Exchange != "orders_exchange" {
		t.Errorf("exchange = %q", spec.Exchange)
	}
	if spec.Queue != "kitchen_orders_queue" {
		t.Errorf("queue = %q", spec.Queue)
	}
	if spec.DLX != "kitchen_orders_dlx" {
		t.Errorf("dlx = %q", spec.DLX)
	}
	if spec.DLQ != "kitchen_orders_dlq" {
		t.Errorf("dlq = %q", spec.DLQ)
	}
}
