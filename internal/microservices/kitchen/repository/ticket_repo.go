package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"burger-system/internal/microservices/kitchen/domain/dao"
)

var ErrNotFound = errors.New("not found")

// The transition methods are guarded updates: the WHERE clause carries the
// required current status, and a zero-row update reports false instead of
// mutating anything. That single-row check is the serialization point between
// the consumer loop and the HTTP path.
type TicketRepositoryInterface interface {
	CreateTicket(ctx context.Context, orderID int64, customer, item string, note *string) (dao.Ticket, error)
	GetTicket(ctx context.Context, id int64) (dao.Ticket, error)
	ListByStatus(ctx context.Context, status string) ([]dao.Ticket, error)
	ListQueue(ctx context.Context) ([]dao.Ticket, error)
	StartPreparation(ctx context.Context, id int64, startedAt time.Time) (bool, error)
	Finalize(ctx context.Context, id int64, completedAt time.Time, prepMinutes int) (bool, error)
	Cancel(ctx context.Context, id int64, completedAt time.Time) (bool, error)
	Stats(ctx context.Context) (dao.Stats, error)
}

type TicketRepository struct {
	db *sql.DB
}

func NewTicketRepository(db *sql.DB) TicketRepositoryInterface {
	return &TicketRepository{db: db}
}

const ticketColumns = `id, order_id, customer, item, note, status, prep_minutes, received_at, started_at, completed_at`

func scanTicket(row interface{ Scan(...any) error }) (dao.Ticket, error) {
	var t dao.Ticket
	err := row.Scan(&t.ID, &t.OrderID, &t.Customer, &t.Item, &t.Note, &t.Status,
		&t.PrepMinutes, &t.ReceivedAt, &t.StartedAt, &t.CompletedAt)
	return t, err
}

func (r *TicketRepository) CreateTicket(ctx context.Context, orderID int64, customer, item string, note *string) (dao.Ticket, error) {
	t, err := scanTicket(r.db.QueryRowContext(ctx, `
		INSERT INTO tickets (order_id, customer, item, note, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+ticketColumns,
		orderID, customer, item, note, dao.StatusReceived))
	if err != nil {
		return dao.Ticket{}, fmt.Errorf("insert ticket: %w", err)
	}
	return t, nil
}

func (r *TicketRepository) GetTicket(ctx context.Context, id int64) (dao.Ticket, error) {
	t, err := scanTicket(r.db.QueryRowContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return dao.Ticket{}, ErrNotFound
	}
	if err != nil {
		return dao.Ticket{}, fmt.Errorf("select ticket: %w", err)
	}
	return t, nil
}

func (r *TicketRepository) ListByStatus(ctx context.Context, status string) ([]dao.Ticket, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE status = $1 ORDER BY received_at ASC`, status)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	return collectTickets(rows)
}

// ListQueue returns unfinished tickets, in-progress ones first, oldest first
// within each group.
func (r *TicketRepository) ListQueue(ctx context.Context) ([]dao.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+ticketColumns+` FROM tickets
		WHERE status IN ($1, $2)
		ORDER BY CASE status WHEN $2 THEN 1 ELSE 2 END, received_at ASC
	`, dao.StatusReceived, dao.StatusPreparing)
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	return collectTickets(rows)
}

func collectTickets(rows *sql.Rows) ([]dao.Ticket, error) {
	defer rows.Close()
	tickets := []dao.Ticket{}
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (r *TicketRepository) StartPreparation(ctx context.Context, id int64, startedAt time.Time) (bool, error) {
	return r.guardedUpdate(ctx, `
		UPDATE tickets SET status = $2, started_at = $3
		WHERE id = $1 AND status = $4
	`, id, dao.StatusPreparing, startedAt, dao.StatusReceived)
}

func (r *TicketRepository) Finalize(ctx context.Context, id int64, completedAt time.Time, prepMinutes int) (bool, error) {
	return r.guardedUpdate(ctx, `
		UPDATE tickets SET status = $2, completed_at = $3, prep_minutes = $4
		WHERE id = $1 AND status = $5
	`, id, dao.StatusReady, completedAt, prepMinutes, dao.StatusPreparing)
}

func (r *TicketRepository) Cancel(ctx context.Context, id int64, completedAt time.Time) (bool, error) {
	return r.guardedUpdate(ctx, `
		UPDATE tickets SET status = $2, completed_at = $3
		WHERE id = $1 AND status IN ($4, $5)
	`, id, dao.StatusCancelled, completedAt, dao.StatusReceived, dao.StatusPreparing)
}

func (r *TicketRepository) guardedUpdate(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update ticket: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *TicketRepository) Stats(ctx context.Context) (dao.Stats, error) {
	stats := dao.Stats{ByStatus: map[string]int{}}

	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM tickets GROUP BY status`)
	if err != nil {
		return dao.Stats{}, fmt.Errorf("count tickets: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return dao.Stats{}, err
		}
		stats.ByStatus[status] = n
	}
	if err := rows.Err(); err != nil {
		return dao.Stats{}, err
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(prep_minutes), 0), COALESCE(MIN(prep_minutes), 0), COALESCE(MAX(prep_minutes), 0)
		FROM tickets WHERE status = $1
	`, dao.StatusReady).Scan(&stats.AvgPrepMinutes, &stats.MinPrepMinutes, &stats.MaxPrepMinutes)
	if err != nil {
		return dao.Stats{}, fmt.Errorf("prep time stats: %w", err)
	}
	return stats, nil
}
