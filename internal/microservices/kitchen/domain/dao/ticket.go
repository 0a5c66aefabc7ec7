package dao

import "time"

// Ticket statuses. RECEIVED -> PREPARING -> READY is the only happy path;
// CANCELLED is reachable from RECEIVED and PREPARING. READY and CANCELLED are
// terminal.
const (
	StatusReceived  = "RECEIVED"
	StatusPreparing = "PREPARING"
	StatusReady     = "READY"
	StatusCancelled = "CANCELLED"
)

// Ticket is the kitchen's local view of an order's preparation. OrderID is a
// non-owning back-reference to the intake service's order row.
type Ticket struct {
	ID          int64      `json:"id"`
	OrderID     int64      `json:"order_id"`
	Customer    string     `json:"customer"`
	Item        string     `json:"item"`
	Note        *string    `json:"note,omitempty"`
	Status      string     `json:"status"`
	PrepMinutes int        `json:"prep_minutes"`
	ReceivedAt  time.Time  `json:"received_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Stats summarizes kitchen throughput.
type Stats struct {
	ByStatus       map[string]int `json:"tickets_by_status"`
	AvgPrepMinutes float64        `json:"avg_prep_minutes"`
	MinPrepMinutes int            `json:"min_prep_minutes"`
	MaxPrepMinutes int            `json:"max_prep_minutes"`
}
