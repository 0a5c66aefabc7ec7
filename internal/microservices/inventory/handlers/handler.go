package handlers

import (
	"net/http"

	"burger-system/internal/httpx"
	"burger-system/internal/microservices/inventory/service"

	"github.com/gorilla/mux"
)

type Handler struct {
	StockHandler *StockHandler
}

func New(s *service.Service) *Handler {
	return &Handler{
		StockHandler: NewStockHandler(s.StockService),
	}
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/stock", h.StockHandler.ListStock).Methods("GET")
	r.HandleFunc("/stock/verify/{product}", h.StockHandler.VerifyProduct).Methods("GET")
	r.HandleFunc("/stock/{name}", h.StockHandler.GetIngredient).Methods("GET")
	r.HandleFunc("/stock/{name}/add", h.StockHandler.AddStock).Methods("POST")
	r.HandleFunc("/movements", h.StockHandler.ListMovements).Methods("GET")
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "online", "service": "inventory-service"})
	}).Methods("GET")
}
