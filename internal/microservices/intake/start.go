package intake

import (
	"context"
	"embed"
	"fmt"

	"burger-system/internal/config"
	"burger-system/internal/connections/database"
	"burger-system/internal/connections/rabbitmq"
	"burger-system/internal/httpx"
	"burger-system/internal/messaging"
	"burger-system/internal/microservices/intake/handlers"
	"burger-system/internal/microservices/intake/repository"
	"burger-system/internal/microservices/intake/service"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Run wires the intake service: the HTTP boundary for creating and reading
// orders, and the consumer that projects order.status events back onto them.
func Run(ctx context.Context, cfg *config.Config, port int) error {
	log := logrus.WithField("service", "intake-service")

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()
	if err := database.Migrate(db, migrationsFS); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	dial := func() (*rabbitmq.Client, error) { return rabbitmq.Dial(cfg.RabbitMQ) }
	pub := messaging.NewPublisher(dial, messaging.OrdersExchange, "intake-service")
	defer pub.Close()

	repo := repository.New(db)
	svc := service.New(repo, pub, log)
	handler := handlers.New(svc)

	router := mux.NewRouter()
	handler.RegisterRoutes(router)

	consumer := &messaging.Consumer{
		Name:    "intake-status",
		Spec:    messaging.ConsumerQueue("intake_status", messaging.OrderStatusExchange),
		Dial:    dial,
		Handler: svc.OrderService.HandleStatusEvent,
		Log:     log,
	}
	go func() { _ = consumer.Run(ctx) }()

	log.WithField("port", port).Info("service_started")
	return httpx.New(fmt.Sprintf(":%d", port), router).Run(ctx)
}
