package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"burger-system/internal/httpx"
	"burger-system/internal/microservices/intake/domain/dto"
	"burger-system/internal/microservices/intake/repository"
	"burger-system/internal/microservices/intake/service"

	"github.com/gorilla/mux"
)

type OrderHandler struct {
	service service.OrderServiceInterface
}

func NewOrderHandler(s service.OrderServiceInterface) *OrderHandler {
	return &OrderHandler{service: s}
}

func (oh *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	order, err := oh.service.CreateOrder(r.Context(), req)
	switch {
	case errors.Is(err, service.ErrInvalidOrder),
		errors.Is(err, service.ErrUnknownItem),
		errors.Is(err, service.ErrItemUnavailable):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		httpx.WriteError(w, http.StatusInternalServerError, "failed to create order")
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, order)
}

func (oh *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	order, err := oh.service.GetOrder(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "order not found")
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to fetch order")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, order)
}

func (oh *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	orders, err := oh.service.ListOrders(r.Context(), r.URL.Query().Get("status"), limit)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"total":  len(orders),
		"orders": orders,
	})
}

func (oh *OrderHandler) ListMenu(w http.ResponseWriter, r *http.Request) {
	items, err := oh.service.ListMenu(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list menu")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"total": len(items),
		"menu":  items,
	})
}
