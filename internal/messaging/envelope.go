package messaging

import (
	"encoding/json"
	"fmt"
)

// Every message on the fabric carries an explicit event-type tag so that
// consumers of a fanout exchange can switch on it instead of guessing from
// whichever fields happen to be present.
const (
	TypeOrderCreated = "order.created"
	TypeOrderStatus  = "order.status"
)

// Statuses carried by order.status events.
const (
	StatusPreparing      = "PREPARING"
	StatusReady          = "READY"
	StatusCancelled      = "CANCELLED"
	StatusErrorInventory = "ERROR_INVENTORY"
)

// OrderCreated is published by the intake service after an order is persisted.
type OrderCreated struct {
	Type     string  `json:"type"`
	OrderID  int64   `json:"order_id"`
	Customer string  `json:"customer"`
	Item     string  `json:"item"`
	Note     *string `json:"note"`
}

func NewOrderCreated(orderID int64, customer, item string, note *string) OrderCreated {
	return OrderCreated{Type: TypeOrderCreated, OrderID: orderID, Customer: customer, Item: item, Note: note}
}

// OrderStatus is published by kitchen and inventory. OrderID always refers to
// the intake service's order identifier, never a kitchen-local ticket id.
type OrderStatus struct {
	Type     string `json:"type"`
	OrderID  int64  `json:"order_id"`
	Customer string `json:"customer,omitempty"`
	Item     string `json:"item,omitempty"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

func NewOrderStatus(orderID int64, customer, item, status, errMsg string) OrderStatus {
	return OrderStatus{Type: TypeOrderStatus, OrderID: orderID, Customer: customer, Item: item, Status: status, Error: errMsg}
}

// Kind peeks at the event-type tag of a raw message body. A decode error
// means the body is not a JSON object at all; consumers must dead-letter
// those instead of treating them as a foreign event type.
func Kind(body []byte) (string, error) {
	var peek struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &peek); err != nil {
		return "", fmt.Errorf("decode event type: %w", err)
	}
	return peek.Type, nil
}
