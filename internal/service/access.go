package service

import (
	"github.com/aiqa-platform/helpdesk-backend/internal/model"
)

// Action is a sensitive operation gated by role membership.
type Action string

const (
	// ActionViewChats covers provider conversation discovery and transcript
	// fetches.
	ActionViewChats Action = "chats:view"
	// ActionSyncTickets covers triggering reconciliation (single or full pass).
	ActionSyncTickets Action = "tickets:sync"
	// ActionDeleteTicket covers removing persisted tickets.
	ActionDeleteTicket Action = "tickets:delete"
)

// AccessPolicy performs role membership checks against a fixed allow-list
// per action. Absence of a user, an empty role, or a role outside the list
// all deny.
type AccessPolicy struct {
	allowed map[Action]map[string]bool
}

// NewAccessPolicy builds the default policy: chat and ticket operations are
// restricted to admin and manager roles.
func NewAccessPolicy() *AccessPolicy {
	elevated := map[string]bool{
		model.RoleAdmin:   true,
		model.RoleManager: true,
	}
	return &AccessPolicy{
		allowed: map[Action]map[string]bool{
			ActionViewChats:    elevated,
			ActionSyncTickets:  elevated,
			ActionDeleteTicket: elevated,
		},
	}
}

// Authorize reports whether the user may perform the action. Unknown actions
// deny.
func (p *AccessPolicy) Authorize(user *model.User, action Action) bool {
	if user == nil {
		return false
	}
	roles, ok := p.allowed[action]
	if !ok {
		return false
	}
	return roles[user.Role]
}
