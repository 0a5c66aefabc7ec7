package service

import (
	"burger-system/internal/microservices/inventory/repository"

	"github.com/sirupsen/logrus"
)

type Service struct {
	StockService StockServiceInterface
}

func New(repo *repository.Repository, pub EventPublisher, log *logrus.Entry) *Service {
	return &Service{
		StockService: NewStockService(repo.StockRepo, pub, nil, log),
	}
}
