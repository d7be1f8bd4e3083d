package model

import (
	"time"

	"github.com/google/uuid"
)

// TicketStatus is the lifecycle state of a ticket.
type TicketStatus string

const (
	StatusOpen   TicketStatus = "open"
	StatusClosed TicketStatus = "closed"
)

// Connection channel and category assigned to tickets derived from
// provider chat conversations.
const (
	ConnectionChat = "chat"
	CategoryChat   = "chat"
)

// Ticket is the persisted record of a support interaction. A ticket derived
// from the chat provider keeps its external conversation identifier in
// ChatID; repeated reconciliation passes update the same row rather than
// inserting a new one (upsert key: ChatID + UserID).
type Ticket struct {
	ID             uuid.UUID            `json:"id"`
	UserID         *uuid.UUID           `json:"user_id,omitempty"`
	ChatID         string               `json:"chat_id"`
	ConnectionType string               `json:"connection_type"`
	Dialogue       map[string]time.Time `json:"dialogue"`
	Status         TicketStatus         `json:"status"`
	TimeOpen       *time.Time           `json:"time_open,omitempty"`
	TimeClose      *time.Time           `json:"time_close,omitempty"`
	Category       string               `json:"category"`
}

// ListTicketsResponse is the response for listing persisted tickets.
type ListTicketsResponse struct {
	Tickets []Ticket `json:"tickets"`
	Total   int      `json:"total"`
}

// SyncReport summarizes the outcome of a full reconciliation pass.
type SyncReport struct {
	Discovered int      `json:"discovered"`
	Upserted   int      `json:"upserted"`
	Skipped    int      `json:"skipped"`
	SkippedIDs []string `json:"skipped_ids,omitempty"`
}
