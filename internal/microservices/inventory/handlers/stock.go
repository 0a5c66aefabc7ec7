package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"burger-system/internal/httpx"
	"burger-system/internal/microservices/inventory/domain"
	"burger-system/internal/microservices/inventory/domain/dao"
	"burger-system/internal/microservices/inventory/repository"
	"burger-system/internal/microservices/inventory/service"

	"github.com/gorilla/mux"
)

type StockHandler struct {
	service service.StockServiceInterface
}

func NewStockHandler(s service.StockServiceInterface) *StockHandler {
	return &StockHandler{service: s}
}

type ingredientView struct {
	dao.Ingredient
	Status string `json:"status"`
}

func (sh *StockHandler) ListStock(w http.ResponseWriter, r *http.Request) {
	items, err := sh.service.ListIngredients(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list stock")
		return
	}
	views := make([]ingredientView, 0, len(items))
	critical, low := 0, 0
	for _, item := range items {
		status := item.StockStatus()
		switch status {
		case dao.StockCritical:
			critical++
		case dao.StockLow:
			low++
		}
		views = append(views, ingredientView{Ingredient: item, Status: status})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"total": len(views),
		"alerts": map[string]int{
			"critical": critical,
			"low":      low,
		},
		"stock": views,
	})
}

func (sh *StockHandler) GetIngredient(w http.ResponseWriter, r *http.Request) {
	ingredient, err := sh.service.GetIngredient(r.Context(), mux.Vars(r)["name"])
	if errors.Is(err, repository.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "ingredient not found")
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to fetch ingredient")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ingredientView{Ingredient: ingredient, Status: ingredient.StockStatus()})
}

func (sh *StockHandler) AddStock(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Quantity int    `json:"quantity"`
		Reason   string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	movement, err := sh.service.AddStock(r.Context(), mux.Vars(r)["name"], body.Quantity, body.Reason)
	switch {
	case errors.Is(err, service.ErrInvalidQuantity):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "ingredient not found")
	case err != nil:
		httpx.WriteError(w, http.StatusInternalServerError, "failed to add stock")
	default:
		httpx.WriteJSON(w, http.StatusOK, movement)
	}
}

// VerifyProduct reports whether the stock covers one unit of a product,
// without deducting anything. Insufficient stock is still a 200: the answer is
// "no", with every short ingredient named.
func (sh *StockHandler) VerifyProduct(w http.ResponseWriter, r *http.Request) {
	product := mux.Vars(r)["product"]

	err := sh.service.VerifyAvailability(r.Context(), product)
	if errors.Is(err, domain.ErrRecipeNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "recipe not found")
		return
	}

	var stockErr *domain.InsufficientStockError
	if err != nil && !errors.As(err, &stockErr) {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to verify availability")
		return
	}

	recipe, rerr := sh.service.GetRecipe(r.Context(), product)
	if rerr != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to load recipe")
		return
	}

	resp := map[string]any{
		"product":   product,
		"available": stockErr == nil,
		"recipe":    recipe,
	}
	if stockErr != nil {
		resp["detail"] = stockErr.Error()
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (sh *StockHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	movements, err := sh.service.ListMovements(r.Context(), r.URL.Query().Get("ingredient"), limit)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list movements")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"total":     len(movements),
		"movements": movements,
	})
}
