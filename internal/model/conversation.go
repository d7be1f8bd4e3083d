package model

import (
	"time"
)

// Message is a single raw chat message as returned by the provider.
// Ordering key is Timestamp; ties preserve provider order.
type Message struct {
	ID        int64     `json:"id"`
	AuthorID  int       `json:"author_id"`
	Timestamp time.Time `json:"date"`
	Text      string    `json:"text"`
}

// Participant is an entry in a conversation's user roster.
type Participant struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Conversation is an external chat thread: the raw message sequence plus the
// participant roster. Zero messages is a valid state, not an error.
type Conversation struct {
	ChatID       string        `json:"chat_id"`
	Messages     []Message     `json:"messages"`
	Participants []Participant `json:"participants"`
}

// ConversationSummary is the normalized, derived view of a conversation.
// It is never persisted directly; the reconciler projects it into a Ticket.
type ConversationSummary struct {
	ChatID string `json:"chat_id"`
	// First/LastMessageAt are nil for an empty conversation.
	FirstMessageAt *time.Time `json:"first_message_date"`
	LastMessageAt  *time.Time `json:"last_message_date"`
	// ParticipantIDs is the set of non-guest, non-system author identities
	// that authored at least one message.
	ParticipantIDs []int `json:"operator_ids"`
	// Resolved is a best-effort keyword heuristic over the last message,
	// not an authoritative classification.
	Resolved bool `json:"is_resolved"`
	// Dialogue maps message text to timestamp. Duplicate texts collapse to
	// the latest timestamp.
	Dialogue map[string]time.Time `json:"dialogue"`
}

// ExternalUserRecord is a user identity as known to the chat provider.
type ExternalUserRecord struct {
	ID       int    `json:"ID,string"`
	Name     string `json:"NAME"`
	LastName string `json:"LAST_NAME"`
	Email    string `json:"EMAIL"`
	Active   bool   `json:"ACTIVE"`
}
