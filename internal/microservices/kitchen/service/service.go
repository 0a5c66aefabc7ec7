package service

import (
	"burger-system/internal/microservices/kitchen/repository"

	"github.com/sirupsen/logrus"
)

type Service struct {
	KitchenService KitchenServiceInterface
}

func New(repo *repository.Repository, pub EventPublisher, log *logrus.Entry) *Service {
	return &Service{
		KitchenService: NewKitchenService(repo.TicketRepo, pub, log),
	}
}
