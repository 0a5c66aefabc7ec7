package inventory

import (
	"context"
	"embed"
	"fmt"

	"burger-system/internal/config"
	"burger-system/internal/connections/database"
	"burger-system/internal/connections/rabbitmq"
	"burger-system/internal/httpx"
	"burger-system/internal/messaging"
	"burger-system/internal/microservices/inventory/handlers"
	"burger-system/internal/microservices/inventory/repository"
	"burger-system/internal/microservices/inventory/service"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Run wires the inventory service: the order.created consumer that deducts
// ingredients, and the HTTP boundary for stock levels, restocking and the
// movement history.
func Run(ctx context.Context, cfg *config.Config, port int) error {
	log := logrus.WithField("service", "inventory-service")

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()
	if err := database.Migrate(db, migrationsFS); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	dial := func() (*rabbitmq.Client, error) { return rabbitmq.Dial(cfg.RabbitMQ) }
	pub := messaging.NewPublisher(dial, messaging.OrderStatusExchange, "inventory-service")
	defer pub.Close()

	repo := repository.New(db)
	svc := service.New(repo, pub, log)
	handler := handlers.New(svc)

	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	consumer := &messaging.Consumer{
		Name:    "inventory-orders",
		Spec:    messaging.ConsumerQueue("inventory_orders", messaging.OrdersExchange),
		Dial:    dial,
		Handler: svc.StockService.HandleOrderCreated,
		Log:     log,
	}
	go func() { _ = consumer.Run(ctx) }()

	log.WithField("port", port).Info("service_started")
	return httpx.New(fmt.Sprintf(":%d", port), router).Run(ctx)
}
