package repository

import "database/sql"

type Repository struct {
	TicketRepo TicketRepositoryInterface
}

func New(db *sql.DB) *Repository {
	return &Repository{
		TicketRepo: NewTicketRepository(db),
	}
}
