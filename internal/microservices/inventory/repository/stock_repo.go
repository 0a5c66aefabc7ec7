package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"burger-system/internal/microservices/inventory/domain"
	"burger-system/internal/microservices/inventory/domain/dao"
)

var ErrNotFound = errors.New("not found")

type StockRepositoryInterface interface {
	GetRecipe(ctx context.Context, product string) (dao.Recipe, error)
	GetQuantities(ctx context.Context, names []string) (map[string]int, error)
	// ApplyDeduction decrements every ingredient of the recipe and appends
	// one OUT movement per ingredient, all inside a single transaction.
	// Availability is re-verified under row locks; on any shortfall nothing
	// is deducted and a domain.InsufficientStockError is returned.
	ApplyDeduction(ctx context.Context, product string, recipe dao.Recipe, orderID int64) ([]dao.Movement, error)
	ListIngredients(ctx context.Context) ([]dao.Ingredient, error)
	GetIngredient(ctx context.Context, name string) (dao.Ingredient, error)
	AddStock(ctx context.Context, name string, quantity int, reason string) (dao.Movement, error)
	ListMovements(ctx context.Context, ingredient string, limit int) ([]dao.Movement, error)
}

type StockRepository struct {
	db *sql.DB
}

func NewStockRepository(db *sql.DB) StockRepositoryInterface {
	return &StockRepository{db: db}
}

func (r *StockRepository) GetRecipe(ctx context.Context, product string) (dao.Recipe, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ingredient_name, required_qty FROM recipes WHERE product = $1
	`, product)
	if err != nil {
		return nil, fmt.Errorf("select recipe: %w", err)
	}
	defer rows.Close()

	recipe := dao.Recipe{}
	for rows.Next() {
		var name string
		var qty int
		if err := rows.Scan(&name, &qty); err != nil {
			return nil, fmt.Errorf("scan recipe line: %w", err)
		}
		recipe[name] = qty
	}
	return recipe, rows.Err()
}

func (r *StockRepository) GetQuantities(ctx context.Context, names []string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, quantity FROM ingredients WHERE name = ANY($1)
	`, names)
	if err != nil {
		return nil, fmt.Errorf("select quantities: %w", err)
	}
	defer rows.Close()

	have := map[string]int{}
	for rows.Next() {
		var name string
		var qty int
		if err := rows.Scan(&name, &qty); err != nil {
			return nil, fmt.Errorf("scan quantity: %w", err)
		}
		have[name] = qty
	}
	return have, rows.Err()
}

func (r *StockRepository) ApplyDeduction(ctx context.Context, product string, recipe dao.Recipe, orderID int64) ([]dao.Movement, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin deduction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ordered := domain.SortedIngredients(recipe)

	// lock and re-read, so the verification cannot act on stale quantities
	have := make(map[string]int, len(ordered))
	for _, name := range ordered {
		var qty int
		err := tx.QueryRowContext(ctx,
			`SELECT quantity FROM ingredients WHERE name = $1 FOR UPDATE`, name).Scan(&qty)
		if errors.Is(err, sql.ErrNoRows) {
			continue // reported as unregistered by VerifyRecipe
		}
		if err != nil {
			return nil, fmt.Errorf("lock ingredient %s: %w", name, err)
		}
		have[name] = qty
	}
	if err := domain.VerifyRecipe(product, recipe, have); err != nil {
		return nil, err
	}

	reason := fmt.Sprintf("deduction for product: %s", product)
	movements := make([]dao.Movement, 0, len(ordered))
	for _, name := range ordered {
		required := recipe[name]
		before := have[name]
		after := before - required

		if _, err := tx.ExecContext(ctx, `
			UPDATE ingredients SET quantity = quantity - $2, updated_at = now() WHERE name = $1
		`, name, required); err != nil {
			return nil, fmt.Errorf("deduct %s: %w", name, err)
		}

		var m dao.Movement
		err := tx.QueryRowContext(ctx, `
			INSERT INTO movements (ingredient_name, type, quantity, quantity_before, quantity_after, reason, order_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, ingredient_name, type, quantity, quantity_before, quantity_after, reason, order_id, created_at
		`, name, dao.MovementOut, required, before, after, reason, orderID).
			Scan(&m.ID, &m.IngredientName, &m.Type, &m.Quantity, &m.QuantityBefore, &m.QuantityAfter, &m.Reason, &m.OrderID, &m.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("record movement for %s: %w", name, err)
		}
		movements = append(movements, m)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit deduction: %w", err)
	}
	return movements, nil
}

func (r *StockRepository) ListIngredients(ctx context.Context) ([]dao.Ingredient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, quantity, unit, min_threshold, updated_at FROM ingredients ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	defer rows.Close()

	items := []dao.Ingredient{}
	for rows.Next() {
		var i dao.Ingredient
		if err := rows.Scan(&i.ID, &i.Name, &i.Quantity, &i.Unit, &i.MinThreshold, &i.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (r *StockRepository) GetIngredient(ctx context.Context, name string) (dao.Ingredient, error) {
	var i dao.Ingredient
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, quantity, unit, min_threshold, updated_at FROM ingredients WHERE name = $1
	`, name).Scan(&i.ID, &i.Name, &i.Quantity, &i.Unit, &i.MinThreshold, &i.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return dao.Ingredient{}, ErrNotFound
	}
	if err != nil {
		return dao.Ingredient{}, fmt.Errorf("select ingredient: %w", err)
	}
	return i, nil
}

func (r *StockRepository) AddStock(ctx context.Context, name string, quantity int, reason string) (dao.Movement, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return dao.Movement{}, fmt.Errorf("begin restock: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var before int
	err = tx.QueryRowContext(ctx,
		`SELECT quantity FROM ingredients WHERE name = $1 FOR UPDATE`, name).Scan(&before)
	if errors.Is(err, sql.ErrNoRows) {
		return dao.Movement{}, ErrNotFound
	}
	if err != nil {
		return dao.Movement{}, fmt.Errorf("lock ingredient %s: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE ingredients SET quantity = quantity + $2, updated_at = now() WHERE name = $1
	`, name, quantity); err != nil {
		return dao.Movement{}, fmt.Errorf("restock %s: %w", name, err)
	}

	var m dao.Movement
	err = tx.QueryRowContext(ctx, `
		INSERT INTO movements (ingredient_name, type, quantity, quantity_before, quantity_after, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, ingredient_name, type, quantity, quantity_before, quantity_after, reason, order_id, created_at
	`, name, dao.MovementIn, quantity, before, before+quantity, reason).
		Scan(&m.ID, &m.IngredientName, &m.Type, &m.Quantity, &m.QuantityBefore, &m.QuantityAfter, &m.Reason, &m.OrderID, &m.CreatedAt)
	if err != nil {
		return dao.Movement{}, fmt.Errorf("record restock movement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return dao.Movement{}, fmt.Errorf("commit restock: %w", err)
	}
	return m, nil
}

func (r *StockRepository) ListMovements(ctx context.Context, ingredient string, limit int) ([]dao.Movement, error) {
	query := `
		SELECT id, ingredient_name, type, quantity, quantity_before, quantity_after, reason, order_id, created_at
		FROM movements`
	args := []any{}
	if ingredient != "" {
		query += ` WHERE ingredient_name = $1`
		args = append(args, ingredient)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	movements := []dao.Movement{}
	for rows.Next() {
		var m dao.Movement
		if err := rows.Scan(&m.ID, &m.IngredientName, &m.Type, &m.Quantity, &m.QuantityBefore, &m.QuantityAfter, &m.Reason, &m.OrderID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
