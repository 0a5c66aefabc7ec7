package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"burger-system/internal/messaging"
	"burger-system/internal/microservices/inventory/domain"
	"burger-system/internal/microservices/inventory/domain/dao"
	"burger-system/internal/microservices/inventory/repository"

	"github.com/sirupsen/logrus"
)

var ErrInvalidQuantity = errors.New("quantity must be positive")

type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// LowStockNotifier receives ingredients whose level dropped out of OK after a
// deduction. The default implementation logs a warning; alerting integrations
// hang off this hook.
type LowStockNotifier interface {
	LowStock(ingredient dao.Ingredient)
}

type logNotifier struct{ log *logrus.Entry }

func (n logNotifier) LowStock(i dao.Ingredient) {
	n.log.WithFields(logrus.Fields{
		"ingredient": i.Name,
		"quantity":   i.Quantity,
		"threshold":  i.MinThreshold,
		"level":      i.StockStatus(),
	}).Warn("low_stock")
}

type StockServiceInterface interface {
	VerifyAvailability(ctx context.Context, product string) error
	GetRecipe(ctx context.Context, product string) (dao.Recipe, error)
	Deduct(ctx context.Context, product string, orderID int64) ([]dao.Movement, error)
	ListIngredients(ctx context.Context) ([]dao.Ingredient, error)
	GetIngredient(ctx context.Context, name string) (dao.Ingredient, error)
	AddStock(ctx context.Context, name string, quantity int, reason string) (dao.Movement, error)
	ListMovements(ctx context.Context, ingredient string, limit int) ([]dao.Movement, error)
	HandleOrderCreated(ctx context.Context, body []byte, attempt int) messaging.Outcome
}

type StockService struct {
	db       repository.StockRepositoryInterface
	pub      EventPublisher
	notifier LowStockNotifier
	log      *logrus.Entry
}

func NewStockService(db repository.StockRepositoryInterface, pub EventPublisher, notifier LowStockNotifier, log *logrus.Entry) StockServiceInterface {
	if notifier == nil {
		notifier = logNotifier{log: log}
	}
	return &StockService{db: db, pub: pub, notifier: notifier, log: log}
}

// VerifyAvailability reports whether the stock can cover one unit of product.
// Every shortfall is collected into the returned error, not just the first.
func (s *StockService) VerifyAvailability(ctx context.Context, product string) error {
	recipe, err := s.db.GetRecipe(ctx, product)
	if err != nil {
		return fmt.Errorf("load recipe: %w", err)
	}
	if len(recipe) == 0 {
		return fmt.Errorf("%w: %q", domain.ErrRecipeNotFound, product)
	}
	have, err := s.db.GetQuantities(ctx, domain.SortedIngredients(recipe))
	if err != nil {
		return fmt.Errorf("load quantities: %w", err)
	}
	return domain.VerifyRecipe(product, recipe, have)
}

func (s *StockService) GetRecipe(ctx context.Context, product string) (dao.Recipe, error) {
	return s.db.GetRecipe(ctx, product)
}

// Deduct atomically consumes the ingredients for one unit of product,
// recording a movement per ingredient. Availability is re-verified inside the
// deduction transaction, so a stale earlier read cannot cause a partial
// deduction.
func (s *StockService) Deduct(ctx context.Context, product string, orderID int64) ([]dao.Movement, error) {
	recipe, err := s.db.GetRecipe(ctx, product)
	if err != nil {
		return nil, fmt.Errorf("load recipe: %w", err)
	}
	if len(recipe) == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrRecipeNotFound, product)
	}

	movements, err := s.db.ApplyDeduction(ctx, product, recipe, orderID)
	if err != nil {
		return nil, err
	}

	for _, m := range movements {
		ingredient, err := s.db.GetIngredient(ctx, m.IngredientName)
		if err != nil {
			s.log.WithError(err).WithField("ingredient", m.IngredientName).Error("low_stock_check_failed")
			continue
		}
		if ingredient.StockStatus() != dao.StockOK {
			s.notifier.LowStock(ingredient)
		}
	}
	return movements, nil
}

func (s *StockService) ListIngredients(ctx context.Context) ([]dao.Ingredient, error) {
	return s.db.ListIngredients(ctx)
}

func (s *StockService) GetIngredient(ctx context.Context, name string) (dao.Ingredient, error) {
	return s.db.GetIngredient(ctx, name)
}

func (s *StockService) AddStock(ctx context.Context, name string, quantity int, reason string) (dao.Movement, error) {
	if quantity <= 0 {
		return dao.Movement{}, ErrInvalidQuantity
	}
	if reason == "" {
		reason = "restock"
	}
	return s.db.AddStock(ctx, name, quantity, reason)
}

func (s *StockService) ListMovements(ctx context.Context, ingredient string, limit int) ([]dao.Movement, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.db.ListMovements(ctx, ingredient, limit)
}

// HandleOrderCreated deducts stock for every valid order.created event. A
// missing recipe or insufficient stock is a terminal business outcome: the
// message is acknowledged and an ERROR_INVENTORY status event tells the rest
// of the system why the order cannot be fulfilled.
func (s *StockService) HandleOrderCreated(ctx context.Context, body []byte, attempt int) messaging.Outcome {
	kind, err := messaging.Kind(body)
	if err != nil {
		s.log.WithError(err).Warn("order_event_undecodable")
		return messaging.PermanentFailure
	}
	if kind != messaging.TypeOrderCreated {
		return messaging.Completed
	}
	var evt messaging.OrderCreated
	if err := json.Unmarshal(body, &evt); err != nil {
		s.log.WithError(err).Warn("order_event_malformed")
		return messaging.PermanentFailure
	}
	if evt.OrderID <= 0 || evt.Item == "" {
		s.log.Warn("order_event_missing_fields")
		return messaging.PermanentFailure
	}

	movements, err := s.Deduct(ctx, evt.Item, evt.OrderID)
	var stockErr *domain.InsufficientStockError
	switch {
	case errors.Is(err, domain.ErrRecipeNotFound), errors.As(err, &stockErr):
		s.log.WithError(err).WithFields(logrus.Fields{
			"order_id": evt.OrderID,
			"item":     evt.Item,
		}).Warn("order_not_fulfillable")
		s.publishInventoryError(ctx, evt, err)
		return messaging.Completed
	case err != nil:
		s.log.WithError(err).WithField("attempt", attempt).Error("deduction_failed")
		return messaging.RetryableFailure
	}

	for _, m := range movements {
		s.log.WithFields(logrus.Fields{
			"order_id":   evt.OrderID,
			"ingredient": m.IngredientName,
			"deducted":   m.Quantity,
			"remaining":  m.QuantityAfter,
		}).Info("stock_deducted")
	}
	return messaging.Completed
}

func (s *StockService) publishInventoryError(ctx context.Context, evt messaging.OrderCreated, cause error) {
	event := messaging.NewOrderStatus(evt.OrderID, evt.Customer, evt.Item, messaging.StatusErrorInventory, cause.Error())
	if err := s.pub.Publish(ctx, event); err != nil {
		s.log.WithError(err).WithField("order_id", evt.OrderID).Error("status_publish_failed")
	}
}
