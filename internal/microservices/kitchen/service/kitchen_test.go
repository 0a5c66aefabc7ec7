package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"burger-system/internal/messaging"
	"burger-system/internal/microservices/kitchen/domain/dao"
	"burger-system/internal/microservices/kitchen/repository"

	"github.com/sirupsen/logrus"
)

type mockTicketRepo struct {
	tickets   map[int64]dao.Ticket
	nextID    int64
	createErr error
}

func newMockTicketRepo() *mockTicketRepo {
	return &mockTicketRepo{tickets: map[int64]dao.Ticket{}, nextID: 1}
}

func (m *mockTicketRepo) CreateTicket(ctx context.Context, orderID int64, customer, item string, note *string) (dao.Ticket, error) {
	if m.createErr != nil {
		return dao.Ticket{}, m.createErr
	}
	t := dao.Ticket{ID: m.nextID, OrderID: orderID, Customer: customer, Item: item, Note: note, Status: dao.StatusReceived}
	m.tickets[t.ID] = t
	m.nextID++
	return t, nil
}

func (m *mockTicketRepo) GetTicket(ctx context.Context, id int64) (dao.Ticket, error) {
	t, ok := m.tickets[id]
	if !ok {
		return dao.Ticket{}, repository.ErrNotFound
	}
	return t, nil
}

func (m *mockTicketRepo) ListByStatus(ctx context.Context, status string) ([]dao.Ticket, error) {
	return nil, nil
}

func (m *mockTicketRepo) ListQueue(ctx context.Context) ([]dao.Ticket, error) {
	return nil, nil
}

func (m *mockTicketRepo) StartPreparation(ctx context.Context, id int64, startedAt time.Time) (bool, error) {
	t, ok := m.tickets[id]
	if !ok || t.Status != dao.StatusReceived {
		return false, nil
	}
	t.Status = dao.StatusPreparing
	t.StartedAt = &startedAt
	m.tickets[id] = t
	return true, nil
}

func (m *mockTicketRepo) Finalize(ctx context.Context, id int64, completedAt time.Time, prepMinutes int) (bool, error) {
	t, ok := m.tickets[id]
	if !ok || t.Status != dao.StatusPreparing {
		return false, nil
	}
	t.Status = dao.StatusReady
	t.CompletedAt = &completedAt
	t.PrepMinutes = prepMinutes
	m.tickets[id] = t
	return true, nil
}

func (m *mockTicketRepo) Cancel(ctx context.Context, id int64, completedAt time.Time) (bool, error) {
	t, ok := m.tickets[id]
	if !ok || (t.Status != dao.StatusReceived && t.Status != dao.StatusPreparing) {
		return false, nil
	}
	t.Status = dao.StatusCancelled
	t.CompletedAt = &completedAt
	m.tickets[id] = t
	return true, nil
}

func (m *mockTicketRepo) Stats(ctx context.Context) (dao.Stats, error) {
	return dao.Stats{}, nil
}

type mockPublisher struct {
	events []messaging.OrderStatus
	err    error
}

func (p *mockPublisher) Publish(ctx context.Context, event any) error {
	if p.err != nil {
		return p.err
	}
	if evt, ok := event.(messaging.OrderStatus); ok {
		p.events = append(p.events, evt)
	}
	return nil
}

func testLog() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func newTestService(repo *mockTicketRepo, pub *mockPublisher, now time.Time) *KitchenService {
	return &KitchenService{db: repo, pub: pub, log: testLog(), now: func() time.Time { return now }}
}

func orderCreatedBody(t *testing.T, orderID int64, customer, item string) []byte {
	t.Helper()
	b, err := json.Marshal(messaging.NewOrderCreated(orderID, customer, item, nil))
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestHandleOrderCreated(t *testing.T) {
	ctx := context.Background()

	t.Run("createsReceivedTicket", func(t *testing.T) {
		repo := newMockTicketRepo()
		svc := newTestService(repo, &mockPublisher{}, time.Now())

		out := svc.HandleOrderCreated(ctx, orderCreatedBody(t, 42, "Ana", "X-Salada"), 0)
		if out != messaging.Completed {
			t.Fatalf("outcome = %v, want Completed", out)
		}
		ticket := repo.tickets[1]
		if ticket.OrderID != 42 {
			t.Errorf("order id = %d, want 42", ticket.OrderID)
		}
		if ticket.Status != dao.StatusReceived {
			t.Errorf("status = %q, want %q", ticket.Status, dao.StatusReceived)
		}
	})

	t.Run("databaseErrorRetries", func(t *testing.T) {
		repo := newMockTicketRepo()
		repo.createErr = errors.New("connection reset")
		svc := newTestService(repo, &mockPublisher{}, time.Now())

		out := svc.HandleOrderCreated(ctx, orderCreatedBody(t, 42, "Ana", "X-Salada"), 1)
		if out != messaging.RetryableFailure {
			t.Errorf("outcome = %v, want RetryableFailure", out)
		}
	})

	t.Run("malformedBodyDeadLetters", func(t *testing.T) {
		svc := newTestService(newMockTicketRepo(), &mockPublisher{}, time.Now())

		out := svc.HandleOrderCreated(ctx, []byte(`{"type":"order.created","order_id":"x"}`), 0)
		if out != messaging.PermanentFailure {
			t.Errorf("outcome = %v, want PermanentFailure", out)
		}
	})

	t.Run("missingFieldsDeadLetter", func(t *testing.T) {
		svc := newTestService(newMockTicketRepo(), &mockPublisher{}, time.Now())

		out := svc.HandleOrderCreated(ctx, []byte(`{"type":"order.created","order_id":42}`), 0)
		if out != messaging.PermanentFailure {
			t.Errorf("outcome = %v, want PermanentFailure", out)
		}
	})

	t.Run("undecodableBodyDeadLetters", func(t *testing.T) {
		repo := newMockTicketRepo()
		svc := newTestService(repo, &mockPublisher{}, time.Now())

		for _, body := range [][]byte{[]byte("not-json-at-all"), []byte(`{"type":`), nil} {
			if out := svc.HandleOrderCreated(ctx, body, 0); out != messaging.PermanentFailure {
				t.Errorf("body %q: outcome = %v, want PermanentFailure", body, out)
			}
		}
		if len(repo.tickets) != 0 {
			t.Error("ticket created from undecodable body")
		}
	})

	t.Run("foreignEventTypeAcked", func(t *testing.T) {
		repo := newMockTicketRepo()
		svc := newTestService(repo, &mockPublisher{}, time.Now())

		body, _ := json.Marshal(messaging.NewOrderStatus(42, "Ana", "X-Salada", messaging.StatusReady, ""))
		out := svc.HandleOrderCreated(ctx, body, 0)
		if out != messaging.Completed {
			t.Errorf("outcome = %v, want Completed", out)
		}
		if len(repo.tickets) != 0 {
			t.Error("ticket created from status event")
		}
	})
}

func TestTicketTransitions(t *testing.T) {
	ctx := context.Background()
	started := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	t.Run("startPublishesPreparingWithOrderID", func(t *testing.T) {
		repo := newMockTicketRepo()
		pub := &mockPublisher{}
		svc := newTestService(repo, pub, started)
		repo.CreateTicket(ctx, 42, "Ana", "X-Salada", nil)

		ticket, err := svc.StartPreparation(ctx, 1)
		if err != nil {
			t.Fatalf("StartPreparation() error = %v", err)
		}
		if ticket.Status != dao.StatusPreparing {
			t.Errorf("status = %q, want %q", ticket.Status, dao.StatusPreparing)
		}
		if len(pub.events) != 1 {
			t.Fatalf("published %d events, want 1", len(pub.events))
		}
		if pub.events[0].OrderID != 42 {
			t.Errorf("event order id = %d, want the original order id 42", pub.events[0].OrderID)
		}
		if pub.events[0].Status != messaging.StatusPreparing {
			t.Errorf("event status = %q, want %q", pub.events[0].Status, messaging.StatusPreparing)
		}
	})

	t.Run("startFromPreparingFails", func(t *testing.T) {
		repo := newMockTicketRepo()
		svc := newTestService(repo, &mockPublisher{}, started)
		repo.CreateTicket(ctx, 42, "Ana", "X-Salada", nil)
		if _, err := svc.StartPreparation(ctx, 1); err != nil {
			t.Fatal(err)
		}

		_, err := svc.StartPreparation(ctx, 1)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("error = %v, want ErrInvalidTransition", err)
		}
		if repo.tickets[1].Status != dao.StatusPreparing {
			t.Errorf("status changed by failed transition")
		}
	})

	t.Run("finalizeComputesPrepMinutes", func(t *testing.T) {
		repo := newMockTicketRepo()
		pub := &mockPublisher{}
		svc := newTestService(repo, pub, started)
		repo.CreateTicket(ctx, 42, "Ana", "X-Salada", nil)
		if _, err := svc.StartPreparation(ctx, 1); err != nil {
			t.Fatal(err)
		}

		svc.now = func() time.Time { return started.Add(17*time.Minute + 30*time.Second) }
		ticket, err := svc.Finalize(ctx, 1)
		if err != nil {
			t.Fatalf("Finalize() error = %v", err)
		}
		if ticket.Status != dao.StatusReady {
			t.Errorf("status = %q, want %q", ticket.Status, dao.StatusReady)
		}
		if ticket.PrepMinutes != 17 {
			t.Errorf("prep minutes = %d, want 17", ticket.PrepMinutes)
		}
		if pub.events[len(pub.events)-1].Status != messaging.StatusReady {
			t.Errorf("last event status = %q, want %q", pub.events[len(pub.events)-1].Status, messaging.StatusReady)
		}
	})

	t.Run("finalizeWithoutStartFails", func(t *testing.T) {
		repo := newMockTicketRepo()
		svc := newTestService(repo, &mockPublisher{}, started)
		repo.CreateTicket(ctx, 42, "Ana", "X-Salada", nil)

		_, err := svc.Finalize(ctx, 1)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("error = %v, want ErrInvalidTransition", err)
		}
		if repo.tickets[1].Status != dao.StatusReceived {
			t.Errorf("status changed by failed transition")
		}
	})

	t.Run("finalizeTwiceFails", func(t *testing.T) {
		repo := newMockTicketRepo()
		svc := newTestService(repo, &mockPublisher{}, started)
		repo.CreateTicket(ctx, 42, "Ana", "X-Salada", nil)
		if _, err := svc.StartPreparation(ctx, 1); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Finalize(ctx, 1); err != nil {
			t.Fatal(err)
		}

		_, err := svc.Finalize(ctx, 1)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("error = %v, want ErrInvalidTransition", err)
		}
	})

	t.Run("cancelFromReceivedCarriesReasonInEventOnly", func(t *testing.T) {
		repo := newMockTicketRepo()
		pub := &mockPublisher{}
		svc := newTestService(repo, pub, started)
		repo.CreateTicket(ctx, 42, "Ana", "X-Salada", nil)

		ticket, err := svc.Cancel(ctx, 1, "customer left")
		if err != nil {
			t.Fatalf("Cancel() error = %v", err)
		}
		if ticket.Status != dao.StatusCancelled {
			t.Errorf("status = %q, want %q", ticket.Status, dao.StatusCancelled)
		}
		if len(pub.events) != 1 {
			t.Fatalf("published %d events, want 1", len(pub.events))
		}
		if pub.events[0].Status != messaging.StatusCancelled || pub.events[0].Error != "customer left" {
			t.Errorf("event = %+v", pub.events[0])
		}
	})

	t.Run("cancelFromReadyFails", func(t *testing.T) {
		repo := newMockTicketRepo()
		svc := newTestService(repo, &mockPublisher{}, started)
		repo.CreateTicket(ctx, 42, "Ana", "X-Salada", nil)
		if _, err := svc.StartPreparation(ctx, 1); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.Finalize(ctx, 1); err != nil {
			t.Fatal(err)
		}

		_, err := svc.Cancel(ctx, 1, "too late")
		if !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("error = %v, want ErrInvalidTransition", err)
		}
		if repo.tickets[1].Status != dao.StatusReady {
			t.Errorf("status changed by failed cancel")
		}
	})

	t.Run("unknownTicket", func(t *testing.T) {
		svc := newTestService(newMockTicketRepo(), &mockPublisher{}, started)

		_, err := svc.StartPreparation(ctx, 99)
		if !errors.Is(err, repository.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("publishFailureDoesNotUndoTransition", func(t *testing.T) {
		repo := newMockTicketRepo()
		svc := newTestService(repo, &mockPublisher{err: errors.New("broker down")}, started)
		repo.CreateTicket(ctx, 42, "Ana", "X-Salada", nil)

		ticket, err := svc.StartPreparation(ctx, 1)
		if err != nil {
			t.Fatalf("StartPreparation() error = %v", err)
		}
		if ticket.Status != dao.StatusPreparing {
			t.Errorf("status = %q, want %q", ticket.Status, dao.StatusPreparing)
		}
	})
}

func TestHandleStatusEvent(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(newMockTicketRepo(), &mockPublisher{}, time.Now())

	t.Run("inventoryShortageAcked", func(t *testing.T) {
		body, _ := json.Marshal(messaging.NewOrderStatus(42, "Ana", "X-Salada", messaging.StatusErrorInventory, "carne: need 1, have 0"))
		if out := svc.HandleStatusEvent(ctx, body, 0); out != messaging.Completed {
			t.Errorf("outcome = %v, want Completed", out)
		}
	})

	t.Run("ownStatusAcked", func(t *testing.T) {
		body, _ := json.Marshal(messaging.NewOrderStatus(42, "Ana", "X-Salada", messaging.StatusReady, ""))
		if out := svc.HandleStatusEvent(ctx, body, 0); out != messaging.Completed {
			t.Errorf("outcome = %v, want Completed", out)
		}
	})

	t.Run("malformedBodyDeadLetters", func(t *testing.T) {
		if out := svc.HandleStatusEvent(ctx, []byte(`{"type":"order.status","order_id":{}}`), 0); out != messaging.PermanentFailure {
			t.Errorf("outcome = %v, want PermanentFailure", out)
		}
	})

	t.Run("undecodableBodyDeadLetters", func(t *testing.T) {
		if out := svc.HandleStatusEvent(ctx, []byte("not-json-at-all"), 0); out != messaging.PermanentFailure {
			t.Errorf("outcome = %v, want PermanentFailure", out)
		}
	})
}
