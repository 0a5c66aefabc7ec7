package dao

import "time"

// Derived stock levels for an ingredient.
const (
	StockOK       = "OK"
	StockLow      = "LOW"
	StockCritical = "CRITICAL"
)

// Movement types. Rows are append-only audit records and are never mutated.
const (
	MovementIn  = "IN"
	MovementOut = "OUT"
)

type Ingredient struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Quantity     int       `json:"quantity"`
	Unit         string    `json:"unit"`
	MinThreshold int       `json:"min_threshold"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StockStatus derives the alert level: CRITICAL at or below the threshold,
// LOW at or below 1.5x the threshold.
func (i Ingredient) StockStatus() string {
	switch {
	case i.Quantity <= i.MinThreshold:
		return StockCritical
	case float64(i.Quantity) <= 1.5*float64(i.MinThreshold):
		return StockLow
	default:
		return StockOK
	}
}

type Movement struct {
	ID             int64     `json:"id"`
	IngredientName string    `json:"ingredient_name"`
	Type           string    `json:"type"`
	Quantity       int       `json:"quantity"`
	QuantityBefore int       `json:"quantity_before"`
	QuantityAfter  int       `json:"quantity_after"`
	Reason         string    `json:"reason,omitempty"`
	OrderID        *int64    `json:"order_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Recipe maps ingredient names to the quantity one unit of a product needs.
type Recipe map[string]int
