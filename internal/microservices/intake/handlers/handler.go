package handlers

import (
	"net/http"

	"burger-system/internal/httpx"
	"burger-system/internal/microservices/intake/service"

	"github.com/gorilla/mux"
)

type Handler struct {
	OrderHandler *OrderHandler
}

func New(s *service.Service) *Handler {
	return &Handler{
		OrderHandler: NewOrderHandler(s.OrderService),
	}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/orders", h.OrderHandler.CreateOrder).Methods("POST")
	r.HandleFunc("/orders", h.OrderHandler.ListOrders).Methods("GET")
	r.HandleFunc("/orders/{id:[0-9]+}", h.OrderHandler.GetOrder).Methods("GET")
	r.HandleFunc("/menu", h.OrderHandler.ListMenu).Methods("GET")
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "online", "service": "intake-service"})
	}).Methods("GET")
}
