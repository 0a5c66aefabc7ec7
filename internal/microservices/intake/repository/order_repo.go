package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"burger-system/internal/microservices/intake/domain/dao"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

type OrderRepositoryInterface interface {
	CreateOrder(ctx context.Context, customer, item string, note *string, price float64) (dao.Order, error)
	GetOrder(ctx context.Context, id int64) (dao.Order, error)
	ListOrders(ctx context.Context, status string, limit int) ([]dao.Order, error)
	// UpdateStatus overwrites the status of an order. It reports false when
	// no row matched the id, without treating that as an error.
	UpdateStatus(ctx context.Context, id int64, status string) (bool, error)
	GetMenuItem(ctx context.Context, name string) (dao.MenuItem, error)
	ListMenu(ctx context.Context) ([]dao.MenuItem, error)
}

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderRepositoryInterface {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) CreateOrder(ctx context.Context, customer, item string, note *string, price float64) (dao.Order, error) {
	var o dao.Order
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO orders (customer, item, note, status, price)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, customer, item, note, status, price, created_at, updated_at
	`, customer, item, note, dao.StatusPending, price).
		Scan(&o.ID, &o.Customer, &o.Item, &o.Note, &o.Status, &o.Price, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return dao.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) GetOrder(ctx context.Context, id int64) (dao.Order, error) {
	var o dao.Order
	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer, item, note, status, price, created_at, updated_at
		FROM orders WHERE id = $1
	`, id).Scan(&o.ID, &o.Customer, &o.Item, &o.Note, &o.Status, &o.Price, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return dao.Order{}, ErrNotFound
	}
	if err != nil {
		return dao.Order{}, fmt.Errorf("select order: %w", err)
	}
	return o, nil
}

func (r *OrderRepository) ListOrders(ctx context.Context, status string, limit int) ([]dao.Order, error) {
	query := `
		SELECT id, customer, item, note, status, price, created_at, updated_at
		FROM orders`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []dao.Order{}
	for rows.Next() {
		var o dao.Order
		if err := rows.Scan(&o.ID, &o.Customer, &o.Item, &o.Note, &o.Status, &o.Price, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $2, updated_at = now() WHERE id = $1
	`, id, status)
	if err != nil {
		return false, fmt.Errorf("update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *OrderRepository) GetMenuItem(ctx context.Context, name string) (dao.MenuItem, error) {
	var m dao.MenuItem
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, description, price, available FROM menu_items WHERE name = $1
	`, name).Scan(&m.ID, &m.Name, &m.Description, &m.Price, &m.Available)
	if errors.Is(err, sql.ErrNoRows) {
		return dao.MenuItem{}, ErrNotFound
	}
	if err != nil {
		return dao.MenuItem{}, fmt.Errorf("select menu item: %w", err)
	}
	return m, nil
}

func (r *OrderRepository) ListMenu(ctx context.Context) ([]dao.MenuItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, description, price, available
		FROM menu_items WHERE available ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list menu: %w", err)
	}
	defer rows.Close()

	items := []dao.MenuItem{}
	for rows.Next() {
		var m dao.MenuItem
		if err := rows.Scan(&m.ID, &m.Name, &m.Description, &m.Price, &m.Available); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}
