package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"burger-system/internal/messaging"
	"burger-system/internal/microservices/intake/domain/dao"
	"burger-system/internal/microservices/intake/domain/dto"
	"burger-system/internal/microservices/intake/repository"

	"github.com/sirupsen/logrus"
)

var (
	ErrInvalidOrder    = errors.New("invalid order")
	ErrUnknownItem     = errors.New("item not on the menu")
	ErrItemUnavailable = errors.New("item is currently unavailable")
)

// EventPublisher publishes one event to the order fanout exchange.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

type OrderServiceInterface interface {
	CreateOrder(ctx context.Context, req dto.CreateOrderRequest) (dao.Order, error)
	GetOrder(ctx context.Context, id int64) (dao.Order, error)
	ListOrders(ctx context.Context, status string, limit int) ([]dao.Order, error)
	ListMenu(ctx context.Context) ([]dao.MenuItem, error)
	HandleStatusEvent(ctx context.Context, body []byte, attempt int) messaging.Outcome
}

type OrderService struct {
	db  repository.OrderRepositoryInterface
	pub EventPublisher
	log *logrus.Entry
}

func NewOrderService(db repository.OrderRepositoryInterface, pub EventPublisher, log *logrus.Entry) OrderServiceInterface {
	return &OrderService{db: db, pub: pub, log: log}
}

// CreateOrder persists a new PENDING order with the menu price snapshotted,
// then broadcasts order.created. The publish is fire-and-forget: a broker
// failure is logged, never surfaced to the caller, since the order is already
// committed.
func (s *OrderService) CreateOrder(ctx context.Context, req dto.CreateOrderRequest) (dao.Order, error) {
	if req.Customer == "" {
		return dao.Order{}, fmt.Errorf("%w: customer is required", ErrInvalidOrder)
	}
	if req.Item == "" {
		return dao.Order{}, fmt.Errorf("%w: item is required", ErrInvalidOrder)
	}

	menuItem, err := s.db.GetMenuItem(ctx, req.Item)
	if errors.Is(err, repository.ErrNotFound) {
		return dao.Order{}, fmt.Errorf("%w: %q", ErrUnknownItem, req.Item)
	}
	if err != nil {
		return dao.Order{}, fmt.Errorf("menu lookup: %w", err)
	}
	if !menuItem.Available {
		return dao.Order{}, fmt.Errorf("%w: %q", ErrItemUnavailable, req.Item)
	}

	order, err := s.db.CreateOrder(ctx, req.Customer, req.Item, req.Note, menuItem.Price)
	if err != nil {
		return dao.Order{}, fmt.Errorf("save order: %w", err)
	}

	event := messaging.NewOrderCreated(order.ID, order.Customer, order.Item, order.Note)
	if err := s.pub.Publish(ctx, event); err != nil {
		s.log.WithError(err).WithField("order_id", order.ID).Error("order_created_publish_failed")
	} else {
		s.log.WithFields(logrus.Fields{"order_id": order.ID, "item": order.Item}).Info("order_created_published")
	}
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id int64) (dao.Order, error) {
	return s.db.GetOrder(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context, status string, limit int) ([]dao.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.db.ListOrders(ctx, status, limit)
}

func (s *OrderService) ListMenu(ctx context.Context) ([]dao.MenuItem, error) {
	return s.db.ListMenu(ctx)
}

// HandleStatusEvent projects order.status events onto the orders table. The
// projection is last-write-wins: events may arrive out of order and the most
// recent delivery overwrites whatever came before.
func (s *OrderService) HandleStatusEvent(ctx context.Context, body []byte, attempt int) messaging.Outcome {
	kind, err := messaging.Kind(body)
	if err != nil {
		s.log.WithError(err).Warn("status_event_undecodable")
		return messaging.PermanentFailure
	}
	if kind != messaging.TypeOrderStatus {
		// fanout delivers the whole stream; not ours
		return messaging.Completed
	}
	var evt messaging.OrderStatus
	if err := json.Unmarshal(body, &evt); err != nil {
		s.log.WithError(err).Warn("status_event_malformed")
		return messaging.PermanentFailure
	}
	if evt.OrderID <= 0 || evt.Status == "" {
		s.log.Warn("status_event_missing_fields")
		return messaging.PermanentFailure
	}
	status, ok := projectStatus(evt.Status)
	if !ok {
		s.log.WithField("status", evt.Status).Warn("status_event_unknown_status")
		return messaging.PermanentFailure
	}

	found, err := s.db.UpdateStatus(ctx, evt.OrderID, status)
	if err != nil {
		s.log.WithError(err).WithField("attempt", attempt).Error("status_projection_failed")
		return messaging.RetryableFailure
	}
	if !found {
		// unknown order ids are dropped, never fabricated
		s.log.WithField("order_id", evt.OrderID).Warn("status_event_unknown_order")
		return messaging.Completed
	}
	s.log.WithFields(logrus.Fields{"order_id": evt.OrderID, "status": status}).Info("order_status_updated")
	return messaging.Completed
}

// projectStatus maps an event status onto an order status. An inventory
// failure means the order will never be prepared, so it lands as CANCELLED.
func projectStatus(eventStatus string) (string, bool) {
	switch eventStatus {
	case messaging.StatusPreparing:
		return dao.StatusPreparing, true
	case messaging.StatusReady:
		return dao.StatusReady, true
	case messaging.StatusCancelled:
		return dao.StatusCancelled, true
	case messaging.StatusErrorInventory:
		return dao.StatusCancelled, true
	default:
		return "", false
	}
}
