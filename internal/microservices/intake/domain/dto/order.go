package dto

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	Customer string  `json:"customer"`
	Item     string  `json:"item"`
	Note     *string `json:"note,omitempty"`
}
