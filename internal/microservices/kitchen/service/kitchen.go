package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"burger-system/internal/messaging"
	"burger-system/internal/microservices/kitchen/domain/dao"
	"burger-system/internal/microservices/kitchen/repository"

	"github.com/sirupsen/logrus"
)

// ErrInvalidTransition is returned when a ticket is not in the state a
// transition requires. The state is left untouched.
var ErrInvalidTransition = errors.New("invalid ticket transition")

type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

type KitchenServiceInterface interface {
	GetTicket(ctx context.Context, id int64) (dao.Ticket, error)
	ListByStatus(ctx context.Context, status string) ([]dao.Ticket, error)
	ListQueue(ctx context.Context) ([]dao.Ticket, error)
	Stats(ctx context.Context) (dao.Stats, error)
	StartPreparation(ctx context.Context, id int64) (dao.Ticket, error)
	Finalize(ctx context.Context, id int64) (dao.Ticket, error)
	Cancel(ctx context.Context, id int64, reason string) (dao.Ticket, error)
	HandleOrderCreated(ctx context.Context, body []byte, attempt int) messaging.Outcome
	HandleStatusEvent(ctx context.Context, body []byte, attempt int) messaging.Outcome
}

type KitchenService struct {
	db  repository.TicketRepositoryInterface
	pub EventPublisher
	log *logrus.Entry
	now func() time.Time
}

func NewKitchenService(db repository.TicketRepositoryInterface, pub EventPublisher, log *logrus.Entry) KitchenServiceInterface {
	return &KitchenService{db: db, pub: pub, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// HandleOrderCreated registers a fresh ticket for every valid order.created
// event. The ticket starts in RECEIVED; cooks advance it through the HTTP
// endpoints.
func (ks *KitchenService) HandleOrderCreated(ctx context.Context, body []byte, attempt int) messaging.Outcome {
	kind, err := messaging.Kind(body)
	if err != nil {
		ks.log.WithError(err).Warn("order_event_undecodable")
		return messaging.PermanentFailure
	}
	if kind != messaging.TypeOrderCreated {
		return messaging.Completed
	}
	var evt messaging.OrderCreated
	if err := json.Unmarshal(body, &evt); err != nil {
		ks.log.WithError(err).Warn("order_event_malformed")
		return messaging.PermanentFailure
	}
	if evt.OrderID <= 0 || evt.Customer == "" || evt.Item == "" {
		ks.log.Warn("order_event_missing_fields")
		return messaging.PermanentFailure
	}

	ticket, err := ks.db.CreateTicket(ctx, evt.OrderID, evt.Customer, evt.Item, evt.Note)
	if err != nil {
		ks.log.WithError(err).WithField("attempt", attempt).Error("ticket_create_failed")
		return messaging.RetryableFailure
	}
	ks.log.WithFields(logrus.Fields{
		"ticket_id": ticket.ID,
		"order_id":  ticket.OrderID,
		"item":      ticket.Item,
	}).Info("ticket_received")
	return messaging.Completed
}

// HandleStatusEvent watches the status stream the kitchen itself publishes
// to. The only foreign message of interest is an inventory failure, which is
// surfaced to the cooks in the log; the ticket is left as-is.
func (ks *KitchenService) HandleStatusEvent(ctx context.Context, body []byte, attempt int) messaging.Outcome {
	kind, err := messaging.Kind(body)
	if err != nil {
		ks.log.WithError(err).Warn("status_event_undecodable")
		return messaging.PermanentFailure
	}
	if kind != messaging.TypeOrderStatus {
		return messaging.Completed
	}
	var evt messaging.OrderStatus
	if err := json.Unmarshal(body, &evt); err != nil {
		return messaging.PermanentFailure
	}
	if evt.Status == messaging.StatusErrorInventory {
		ks.log.WithFields(logrus.Fields{
			"order_id": evt.OrderID,
			"item":     evt.Item,
			"reason":   evt.Error,
		}).Warn("inventory_shortage_reported")
	}
	return messaging.Completed
}

// StartPreparation moves a RECEIVED ticket to PREPARING and records the start
// timestamp.
func (ks *KitchenService) StartPreparation(ctx context.Context, id int64) (dao.Ticket, error) {
	ticket, err := ks.db.GetTicket(ctx, id)
	if err != nil {
		return dao.Ticket{}, err
	}
	if ticket.Status != dao.StatusReceived {
		return dao.Ticket{}, fmt.Errorf("%w: ticket %d is %s, expected %s", ErrInvalidTransition, id, ticket.Status, dao.StatusReceived)
	}

	ok, err := ks.db.StartPreparation(ctx, id, ks.now())
	if err != nil {
		return dao.Ticket{}, err
	}
	if !ok {
		return dao.Ticket{}, fmt.Errorf("%w: ticket %d left %s concurrently", ErrInvalidTransition, id, dao.StatusReceived)
	}

	ks.publishStatus(ctx, ticket, messaging.StatusPreparing, "")
	ks.log.WithFields(logrus.Fields{"ticket_id": id, "order_id": ticket.OrderID}).Info("preparation_started")
	return ks.db.GetTicket(ctx, id)
}

// Finalize moves a PREPARING ticket to READY and records the elapsed
// preparation time, computed here rather than supplied by the caller.
func (ks *KitchenService) Finalize(ctx context.Context, id int64) (dao.Ticket, error) {
	ticket, err := ks.db.GetTicket(ctx, id)
	if err != nil {
		return dao.Ticket{}, err
	}
	if ticket.Status != dao.StatusPreparing || ticket.StartedAt == nil {
		return dao.Ticket{}, fmt.Errorf("%w: ticket %d is %s, expected %s", ErrInvalidTransition, id, ticket.Status, dao.StatusPreparing)
	}

	completedAt := ks.now()
	minutes := int(completedAt.Sub(*ticket.StartedAt) / time.Minute)
	if minutes < 0 {
		minutes = 0
	}

	ok, err := ks.db.Finalize(ctx, id, completedAt, minutes)
	if err != nil {
		return dao.Ticket{}, err
	}
	if !ok {
		return dao.Ticket{}, fmt.Errorf("%w: ticket %d left %s concurrently", ErrInvalidTransition, id, dao.StatusPreparing)
	}

	ks.publishStatus(ctx, ticket, messaging.StatusReady, "")
	ks.log.WithFields(logrus.Fields{"ticket_id": id, "order_id": ticket.OrderID, "prep_minutes": minutes}).Info("ticket_ready")
	return ks.db.GetTicket(ctx, id)
}

// Cancel is allowed from RECEIVED or PREPARING. The reason travels only in
// the outbound event; it is not persisted on the ticket.
func (ks *KitchenService) Cancel(ctx context.Context, id int64, reason string) (dao.Ticket, error) {
	ticket, err := ks.db.GetTicket(ctx, id)
	if err != nil {
		return dao.Ticket{}, err
	}
	if ticket.Status != dao.StatusReceived && ticket.Status != dao.StatusPreparing {
		return dao.Ticket{}, fmt.Errorf("%w: ticket %d is %s", ErrInvalidTransition, id, ticket.Status)
	}

	ok, err := ks.db.Cancel(ctx, id, ks.now())
	if err != nil {
		return dao.Ticket{}, err
	}
	if !ok {
		return dao.Ticket{}, fmt.Errorf("%w: ticket %d reached a terminal state concurrently", ErrInvalidTransition, id)
	}

	ks.publishStatus(ctx, ticket, messaging.StatusCancelled, reason)
	ks.log.WithFields(logrus.Fields{"ticket_id": id, "order_id": ticket.OrderID, "reason": reason}).Info("ticket_cancelled")
	return ks.db.GetTicket(ctx, id)
}

func (ks *KitchenService) GetTicket(ctx context.Context, id int64) (dao.Ticket, error) {
	return ks.db.GetTicket(ctx, id)
}

func (ks *KitchenService) ListByStatus(ctx context.Context, status string) ([]dao.Ticket, error) {
	return ks.db.ListByStatus(ctx, status)
}

func (ks *KitchenService) ListQueue(ctx context.Context) ([]dao.Ticket, error) {
	return ks.db.ListQueue(ctx)
}

func (ks *KitchenService) Stats(ctx context.Context) (dao.Stats, error) {
	return ks.db.Stats(ctx)
}

// publishStatus broadcasts a status event carrying the original order id so
// the intake service can correlate it back to its own row. Publish failures
// are logged and swallowed: the local transition already happened.
func (ks *KitchenService) publishStatus(ctx context.Context, ticket dao.Ticket, status, errMsg string) {
	event := messaging.NewOrderStatus(ticket.OrderID, ticket.Customer, ticket.Item, status, errMsg)
	if err := ks.pub.Publish(ctx, event); err != nil {
		ks.log.WithError(err).WithFields(logrus.Fields{
			"order_id": ticket.OrderID,
			"status":   status,
		}).Error("status_publish_failed")
	}
}
