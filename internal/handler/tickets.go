package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/aiqa-platform/helpdesk-backend/internal/middleware"
	"github.com/aiqa-platform/helpdesk-backend/internal/model"
	"github.com/aiqa-platform/helpdesk-backend/internal/service"
	"github.com/aiqa-platform/helpdesk-backend/pkg/logger"
)

// TicketHandler handles ticket and reconciliation endpoints.
type TicketHandler struct {
	tickets *service.TicketService
	users   *service.UserService
	policy  *service.AccessPolicy
	logger  *logger.Logger
}

// NewTicketHandler creates a ticket handler.
func NewTicketHandler(tickets *service.TicketService, users *service.UserService, policy *service.AccessPolicy, log *logger.Logger) *TicketHandler {
	return &TicketHandler{tickets: tickets, users: users, policy: policy, logger: log}
}

// Sync handles GET /api/tickets/{chat_id}. It runs fetch -> analyze for one
// conversation and, unless save=0, attribute -> upsert as well, returning
// the summary either way. The acting user is named by the user_id query
// parameter and must hold an allowed role.
func (h *TicketHandler) Sync(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chat_id")
	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, ok := h.requireRole(w, r, service.ActionSyncTickets); !ok {
		return
	}

	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 1000 {
			limit = parsed
		}
	}

	save := true
	if s := r.URL.Query().Get("save"); s != "" {
		if parsed, err := strconv.ParseBool(s); err == nil {
			save = parsed
		}
	}

	summary, err := h.tickets.SyncConversation(r.Context(), chatID, limit, save)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// FullSync handles PUT /api/tickets: a full reconciliation pass over all
// discovered conversations.
func (h *TicketHandler) FullSync(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireRole(w, r, service.ActionSyncTickets); !ok {
		return
	}

	report, err := h.tickets.FullPass(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// List handles GET /api/tickets
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.tickets.ListTickets(r.Context())
	if err != nil {
		h.logger.Error("failed to list tickets")
		writeError(w, http.StatusInternalServerError, "failed to list tickets")
		return
	}
	if tickets == nil {
		tickets = []model.Ticket{}
	}
	writeJSON(w, http.StatusOK, model.ListTicketsResponse{Tickets: tickets, Total: len(tickets)})
}

// Delete handles DELETE /api/tickets/{id}
func (h *TicketHandler) Delete(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ticket ID format")
		return
	}

	if _, ok := h.requireRole(w, r, service.ActionDeleteTicket); !ok {
		return
	}

	if err := h.tickets.DeleteTicket(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// requireRole loads the acting user and checks the allow-list for the
// action. The user is named by the user_id query parameter; when absent the
// bearer-token subject is used. Fails closed.
func (h *TicketHandler) requireRole(w http.ResponseWriter, r *http.Request, action service.Action) (*model.User, bool) {
	subject := r.URL.Query().Get("user_id")
	if subject == "" {
		subject = middleware.GetUserID(r.Context())
	}

	id, err := uuid.Parse(subject)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID format")
		return nil, false
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return nil, false
	}

	if !h.policy.Authorize(user, action) {
		writeError(w, http.StatusForbidden, "access denied")
		return nil, false
	}
	return user, true
}
