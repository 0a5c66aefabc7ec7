package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"burger-system/internal/httpx"
	"burger-system/internal/microservices/kitchen/domain/dao"
	"burger-system/internal/microservices/kitchen/repository"
	"burger-system/internal/microservices/kitchen/service"

	"github.com/gorilla/mux"
)

type TicketHandler struct {
	service service.KitchenServiceInterface
}

func NewTicketHandler(s service.KitchenServiceInterface) *TicketHandler {
	return &TicketHandler{service: s}
}

func ticketID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func (th *TicketHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	id, err := ticketID(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid ticket id")
		return
	}
	ticket, err := th.service.GetTicket(r.Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, "ticket not found")
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to fetch ticket")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ticket)
}

func (th *TicketHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	status := strings.ToUpper(r.URL.Query().Get("status"))
	switch status {
	case dao.StatusReceived, dao.StatusPreparing, dao.StatusReady, dao.StatusCancelled:
	default:
		httpx.WriteError(w, http.StatusBadRequest, "invalid status")
		return
	}
	tickets, err := th.service.ListByStatus(r.Context(), status)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list tickets")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":  status,
		"total":   len(tickets),
		"tickets": tickets,
	})
}

func (th *TicketHandler) ListQueue(w http.ResponseWriter, r *http.Request) {
	tickets, err := th.service.ListQueue(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to list queue")
		return
	}
	received, preparing := 0, 0
	for _, t := range tickets {
		switch t.Status {
		case dao.StatusReceived:
			received++
		case dao.StatusPreparing:
			preparing++
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"total":     len(tickets),
		"received":  received,
		"preparing": preparing,
		"tickets":   tickets,
	})
}

func (th *TicketHandler) StartPreparation(w http.ResponseWriter, r *http.Request) {
	th.transition(w, r, func(id int64) (dao.Ticket, error) {
		return th.service.StartPreparation(r.Context(), id)
	})
}

func (th *TicketHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	th.transition(w, r, func(id int64) (dao.Ticket, error) {
		return th.service.Finalize(r.Context(), id)
	})
}

func (th *TicketHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	th.transition(w, r, func(id int64) (dao.Ticket, error) {
		return th.service.Cancel(r.Context(), id, body.Reason)
	})
}

// transition runs one guarded state change and maps its failure conditions to
// client-visible statuses: 404 for unknown tickets, 409 for transitions the
// current state forbids.
func (th *TicketHandler) transition(w http.ResponseWriter, r *http.Request, fn func(int64) (dao.Ticket, error)) {
	id, err := ticketID(r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid ticket id")
		return
	}
	ticket, err := fn(id)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "ticket not found")
	case errors.Is(err, service.ErrInvalidTransition):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	case err != nil:
		httpx.WriteError(w, http.StatusInternalServerError, "failed to update ticket")
	default:
		httpx.WriteJSON(w, http.StatusOK, ticket)
	}
}

func (th *TicketHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := th.service.Stats(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "failed to compute stats")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, stats)
}
