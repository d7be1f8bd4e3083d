package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/aiqa-platform/helpdesk-backend/internal/middleware"
	"github.com/aiqa-platform/helpdesk-backend/internal/service"
	"github.com/aiqa-platform/helpdesk-backend/pkg/logger"
)

// BitrixHandler exposes read-only proxies to the external chat provider.
type BitrixHandler struct {
	tickets *service.TicketService
	users   *service.UserService
	policy  *service.AccessPolicy
	logger  *logger.Logger
}

// NewBitrixHandler creates a provider proxy handler.
func NewBitrixHandler(tickets *service.TicketService, users *service.UserService, policy *service.AccessPolicy, log *logger.Logger) *BitrixHandler {
	return &BitrixHandler{tickets: tickets, users: users, policy: policy, logger: log}
}

// RecentChats handles GET /api/bitrix: the discovered active conversation
// ids. Restricted to elevated roles.
func (h *BitrixHandler) RecentChats(w http.ResponseWriter, r *http.Request) {
	subject := middleware.GetUserID(r.Context())
	id, err := uuid.Parse(subject)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}
	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !h.policy.Authorize(user, service.ActionViewChats) {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}

	ids, err := h.tickets.DiscoverConversations(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

// UserLookup handles GET /api/users_bitrix?bitrix_user_id=|email=
func (h *BitrixHandler) UserLookup(w http.ResponseWriter, r *http.Request) {
	var bitrixUserID *int
	if raw := r.URL.Query().Get("bitrix_user_id"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid bitrix_user_id")
			return
		}
		bitrixUserID = &parsed
	}
	email := r.URL.Query().Get("email")

	record, err := h.tickets.ResolveExternalUser(r.Context(), bitrixUserID, email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
