package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"burger-system/internal/messaging"
	"burger-system/internal/microservices/intake/domain/dao"
	"burger-system/internal/microservices/intake/domain/dto"
	"burger-system/internal/microservices/intake/repository"

	"github.com/sirupsen/logrus"
)

type mockOrderRepo struct {
	menu       map[string]dao.MenuItem
	orders     map[int64]dao.Order
	nextID     int64
	updateErr  error
	statusLog  []string
	lastStatus map[int64]string
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		menu:       map[string]dao.MenuItem{},
		orders:     map[int64]dao.Order{},
		nextID:     1,
		lastStatus: map[int64]string{},
	}
}

func (m *mockOrderRepo) CreateOrder(ctx context.Context, customer, item string, note *string, price float64) (dao.Order, error) {
	o := dao.Order{ID: m.nextID, Customer: customer, Item: item, Note: note, Status: dao.StatusPending, Price: price}
	m.orders[o.ID] = o
	m.nextID++
	return o, nil
}

func (m *mockOrderRepo) GetOrder(ctx context.Context, id int64) (dao.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return dao.Order{}, repository.ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) ListOrders(ctx context.Context, status string, limit int) ([]dao.Order, error) {
	return nil, nil
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, id int64, status string) (bool, error) {
	if m.updateErr != nil {
		return false, m.updateErr
	}
	o, ok := m.orders[id]
	if !ok {
		return false, nil
	}
	o.Status = status
	m.orders[id] = o
	m.statusLog = append(m.statusLog, status)
	m.lastStatus[id] = status
	return true, nil
}

func (m *mockOrderRepo) GetMenuItem(ctx context.Context, name string) (dao.MenuItem, error) {
	item, ok := m.menu[name]
	if !ok {
		return dao.MenuItem{}, repository.ErrNotFound
	}
	return item, nil
}

func (m *mockOrderRepo) ListMenu(ctx context.Context) ([]dao.MenuItem, error) {
	return nil, nil
}

type mockPublisher struct {
	events []any
	err    error
}

func (p *mockPublisher) Publish(ctx context.Context, event any) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func testLog() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func TestCreateOrder(t *testing.T) {
	repo := newMockOrderRepo()
	repo.menu["X-Salada"] = dao.MenuItem{ID: 1, Name: "X-Salada", Price: 15.00, Available: true}
	repo.menu["Sorvete"] = dao.MenuItem{ID: 2, Name: "Sorvete", Price: 6.00, Available: false}
	pub := &mockPublisher{}
	svc := NewOrderService(repo, pub, testLog())

	t.Run("snapshotsMenuPrice", func(t *testing.T) {
		order, err := svc.CreateOrder(context.Background(), dto.CreateOrderRequest{Customer: "Ana", Item: "X-Salada"})
		if err != nil {
			t.Fatalf("CreateOrder() error = %v", err)
		}
		if order.Price != 15.00 {
			t.Errorf("price = %v, want 15.00", order.Price)
		}
		if order.Status != dao.StatusPending {
			t.Errorf("status = %q, want %q", order.Status, dao.StatusPending)
		}
		if len(pub.events) != 1 {
			t.Fatalf("published %d events, want 1", len(pub.events))
		}
		evt, ok := pub.events[0].(messaging.OrderCreated)
		if !ok {
			t.Fatalf("published %T, want OrderCreated", pub.events[0])
		}
		if evt.Type != messaging.TypeOrderCreated || evt.OrderID != order.ID || evt.Item != "X-Salada" {
			t.Errorf("event = %+v", evt)
		}
	})

	t.Run("rejectsUnknownItem", func(t *testing.T) {
		_, err := svc.CreateOrder(context.Background(), dto.CreateOrderRequest{Customer: "Ana", Item: "Pizza"})
		if !errors.Is(err, ErrUnknownItem) {
			t.Errorf("error = %v, want ErrUnknownItem", err)
		}
	})

	t.Run("rejectsUnavailableItem", func(t *testing.T) {
		_, err := svc.CreateOrder(context.Background(), dto.CreateOrderRequest{Customer: "Ana", Item: "Sorvete"})
		if !errors.Is(err, ErrItemUnavailable) {
			t.Errorf("error = %v, want ErrItemUnavailable", err)
		}
	})

	t.Run("rejectsMissingFields", func(t *testing.T) {
		_, err := svc.CreateOrder(context.Background(), dto.CreateOrderRequest{Item: "X-Salada"})
		if !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("error = %v, want ErrInvalidOrder", err)
		}
		_, err = svc.CreateOrder(context.Background(), dto.CreateOrderRequest{Customer: "Ana"})
		if !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("error = %v, want ErrInvalidOrder", err)
		}
	})

	t.Run("publishFailureDoesNotFailOrder", func(t *testing.T) {
		broken := &mockPublisher{err: errors.New("broker down")}
		svc := NewOrderService(repo, broken, testLog())
		order, err := svc.CreateOrder(context.Background(), dto.CreateOrderRequest{Customer: "Bia", Item: "X-Salada"})
		if err != nil {
			t.Fatalf("CreateOrder() error = %v", err)
		}
		if _, ok := repo.orders[order.ID]; !ok {
			t.Error("order not persisted")
		}
	})
}

func statusBody(t *testing.T, orderID int64, status string) []byte {
	t.Helper()
	b, err := json.Marshal(messaging.NewOrderStatus(orderID, "Ana", "X-Salada", status, ""))
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestHandleStatusEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("projectsPreparing", func(t *testing.T) {
		repo := newMockOrderRepo()
		repo.orders[1] = dao.Order{ID: 1, Status: dao.StatusPending}
		svc := NewOrderService(repo, &mockPublisher{}, testLog())

		out := svc.HandleStatusEvent(ctx, statusBody(t, 1, messaging.StatusPreparing), 0)
		if out != messaging.Completed {
			t.Fatalf("outcome = %v, want Completed", out)
		}
		if repo.orders[1].Status != dao.StatusPreparing {
			t.Errorf("status = %q, want %q", repo.orders[1].Status, dao.StatusPreparing)
		}
	})

	t.Run("inventoryErrorCancelsOrder", func(t *testing.T) {
		repo := newMockOrderRepo()
		repo.orders[1] = dao.Order{ID: 1, Status: dao.StatusPending}
		svc := NewOrderService(repo, &mockPublisher{}, testLog())

		out := svc.HandleStatusEvent(ctx, statusBody(t, 1, messaging.StatusErrorInventory), 0)
		if out != messaging.Completed {
			t.Fatalf("outcome = %v, want Completed", out)
		}
		if repo.orders[1].Status != dao.StatusCancelled {
			t.Errorf("status = %q, want %q", repo.orders[1].Status, dao.StatusCancelled)
		}
	})

	t.Run("lastWriteWins", func(t *testing.T) {
		repo := newMockOrderRepo()
		repo.orders[1] = dao.Order{ID: 1, Status: dao.StatusPending}
		svc := NewOrderService(repo, &mockPublisher{}, testLog())

		svc.HandleStatusEvent(ctx, statusBody(t, 1, messaging.StatusReady), 0)
		svc.HandleStatusEvent(ctx, statusBody(t, 1, messaging.StatusPreparing), 0)
		if repo.orders[1].Status != dao.StatusPreparing {
			t.Errorf("status = %q, want %q after out-of-order delivery", repo.orders[1].Status, dao.StatusPreparing)
		}
	})

	t.Run("unknownOrderDropped", func(t *testing.T) {
		repo := newMockOrderRepo()
		svc := NewOrderService(repo, &mockPublisher{}, testLog())

		out := svc.HandleStatusEvent(ctx, statusBody(t, 99, messaging.StatusReady), 0)
		if out != messaging.Completed {
			t.Errorf("outcome = %v, want Completed for unknown order", out)
		}
		if len(repo.orders) != 0 {
			t.Error("order fabricated from status event")
		}
	})

	t.Run("databaseErrorRetries", func(t *testing.T) {
		repo := newMockOrderRepo()
		repo.updateErr = errors.New("connection reset")
		svc := NewOrderService(repo, &mockPublisher{}, testLog())

		out := svc.HandleStatusEvent(ctx, statusBody(t, 1, messaging.StatusReady), 0)
		if out != messaging.RetryableFailure {
			t.Errorf("outcome = %v, want RetryableFailure", out)
		}
	})

	t.Run("malformedBodyDeadLetters", func(t *testing.T) {
		svc := NewOrderService(newMockOrderRepo(), &mockPublisher{}, testLog())

		out := svc.HandleStatusEvent(ctx, []byte(`{"type":"order.status","order_id":"nope"}`), 0)
		if out != messaging.PermanentFailure {
			t.Errorf("outcome = %v, want PermanentFailure", out)
		}
	})

	t.Run("undecodableBodyDeadLetters", func(t *testing.T) {
		svc := NewOrderService(newMockOrderRepo(), &mockPublisher{}, testLog())

		for _, body := range [][]byte{[]byte("not-json-at-all"), []byte(`{"type":`), nil} {
			if out := svc.HandleStatusEvent(ctx, body, 0); out != messaging.PermanentFailure {
				t.Errorf("body %q: outcome = %v, want PermanentFailure", body, out)
			}
		}
	})

	t.Run("missingFieldsDeadLetter", func(t *testing.T) {
		svc := NewOrderService(newMockOrderRepo(), &mockPublisher{}, testLog())

		out := svc.HandleStatusEvent(ctx, []byte(`{"type":"order.status","status":"READY"}`), 0)
		if out != messaging.PermanentFailure {
			t.Errorf("outcome = %v, want PermanentFailure", out)
		}
	})

	t.Run("unknownStatusDeadLetters", func(t *testing.T) {
		svc := NewOrderService(newMockOrderRepo(), &mockPublisher{}, testLog())

		out := svc.HandleStatusEvent(ctx, statusBody(t, 1, "EXPLODED"), 0)
		if out != messaging.PermanentFailure {
			t.Errorf("outcome = %v, want PermanentFailure", out)
		}
	})

	t.Run("foreignEventTypeAcked", func(t *testing.T) {
		repo := newMockOrderRepo()
		repo.orders[1] = dao.Order{ID: 1, Status: dao.StatusPending}
		svc := NewOrderService(repo, &mockPublisher{}, testLog())

		body, _ := json.Marshal(messaging.NewOrderCreated(1, "Ana", "X-Salada", nil))
		out := svc.HandleStatusEvent(ctx, body, 0)
		if out != messaging.Completed {
			t.Errorf("outcome = %v, want Completed", out)
		}
		if repo.orders[1].Status != dao.StatusPending {
			t.Errorf("status changed by foreign event type")
		}
	})
}
