package handlers

import (
	"net/http"

	"burger-system/internal/httpx"
	"burger-system/internal/microservices/kitchen/service"

	"github.com/gorilla/mux"
)

type Handler struct {
	TicketHandler *TicketHandler
}

func New(s *service.Service) *Handler {
	return &Handler{
		TicketHandler: NewTicketHandler(s.KitchenService),
	}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/queue", h.TicketHandler.ListQueue).Methods("GET")
	r.HandleFunc("/tickets", h.TicketHandler.ListTickets).Methods("GET")
	r.HandleFunc("/tickets/{id:[0-9]+}", h.TicketHandler.GetTicket).Methods("GET")
	r.HandleFunc("/tickets/{id:[0-9]+}/start", h.TicketHandler.StartPreparation).Methods("PUT")
	r.HandleFunc("/tickets/{id:[0-9]+}/finish", h.TicketHandler.Finalize).Methods("PUT")
	r.HandleFunc("/tickets/{id:[0-9]+}/cancel", h.TicketHandler.Cancel).Methods("PUT")
	r.HandleFunc("/stats", h.TicketHandler.Stats).Methods("GET")
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "online", "service": "kitchen-service"})
	}).Methods("GET")
}
