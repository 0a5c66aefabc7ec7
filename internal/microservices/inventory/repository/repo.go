package repository

import "database/sql"

type Repository struct {
	StockRepo StockRepositoryInterface
}

func New(db *sql.DB) *Repository {
	return &Repository{
		StockRepo: NewStockRepository(db),
	}
}
