package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"burger-system/internal/config"
	"burger-system/internal/microservices/intake"
	"burger-system/internal/microservices/inventory"
	"burger-system/internal/microservices/kitchen"

	"github.com/sirupsen/logrus"
)

func main() {
	mode := flag.String("mode", "", "intake-service | kitchen-service | inventory-service")
	port := flag.Int("port", 0, "http port for the service")
	flag.Parse()

	logrus.SetFormatter(&logrus.JSONFormatter{})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch *mode {
	case "intake-service":
		if *port == 0 {
			*port = 3000
		}
		err = intake.Run(ctx, config.Load("intake"), *port)
	case "kitchen-service":
		if *port == 0 {
			*port = 3001
		}
		err = kitchen.Run(ctx, config.Load("kitchen"), *port)
	case "inventory-service":
		if *port == 0 {
			*port = 3002
		}
		err = inventory.Run(ctx, config.Load("inventory"), *port)
	default:
		fmt.Fprintln(os.Stderr, "--mode is required: intake-service | kitchen-service | inventory-service")
		os.Exit(2)
	}
	if err != nil {
		logrus.WithError(err).Fatal("service_failed")
	}
}
