package service

import (
	"burger-system/internal/microservices/intake/repository"

	"github.com/sirupsen/logrus"
)

type Service struct {
	OrderService OrderServiceInterface
}

func New(repo *repository.Repository, pub EventPublisher, log *logrus.Entry) *Service {
	return &Service{
		OrderService: NewOrderService(repo.OrderRepo, pub, log),
	}
}
