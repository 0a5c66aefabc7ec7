package kitchen

import (
	"context"
	"embed"
	"fmt"

	"burger-system/internal/config"
	"burger-system/internal/connections/database"
	"burger-system/internal/connections/rabbitmq"
	"burger-system/internal/httpx"
	"burger-system/internal/messaging"
	"burger-system/internal/microservices/kitchen/handlers"
	"burger-system/internal/microservices/kitchen/repository"
	"burger-system/internal/microservices/kitchen/service"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Run wires the kitchen service: the order.created consumer that opens
// tickets, the status-stream watcher, and the HTTP boundary the cooks use to
// advance tickets.
func Run(ctx context.Context, cfg *config.Config, port int) error {
	log := logrus.WithField("service", "kitchen-service")

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()
	if err := database.Migrate(db, migrationsFS); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	dial := func() (*rabbitmq.Client, error) { return rabbitmq.Dial(cfg.RabbitMQ) }
	pub := messaging.NewPublisher(dial, messaging.OrderStatusExchange, "kitchen-service")
	defer pub.Close()

	repo := repository.New(db)
	svc := service.New(repo, pub, log)
	handler := handlers.New(svc)

	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	orderConsumer := &messaging.Consumer{
		Name:    "kitchen-orders",
		Spec:    messaging.ConsumerQueue("kitchen_orders", messaging.OrdersExchange),
		Dial:    dial,
		Handler: svc.KitchenService.HandleOrderCreated,
		Log:     log,
	}
	statusConsumer := &messaging.Consumer{
		Name:    "kitchen-status",
		Spec:    messaging.ConsumerQueue("kitchen_status", messaging.OrderStatusExchange),
		Dial:    dial,
		Handler: svc.KitchenService.HandleStatusEvent,
		Log:     log,
	}
	go func() { _ = orderConsumer.Run(ctx) }()
	go func() { _ = statusConsumer.Run(ctx) }()

	log.WithField("port", port).Info("service_started")
	return httpx.New(fmt.Sprintf(":%d", port), router).Run(ctx)
}
