package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aiqa-platform/helpdesk-backend/internal/model"
	"github.com/aiqa-platform/helpdesk-backend/pkg/metrics"
)

// Subjects for ticket lifecycle events.
const (
	SubjectTicketCreated = "helpdesk.tickets.created"
	SubjectTicketUpdated = "helpdesk.tickets.updated"
	SubjectTicketClosed  = "helpdesk.tickets.closed"
)

// TicketEvent is the payload published after a reconciliation upsert.
type TicketEvent struct {
	TicketID  string    `json:"ticket_id"`
	ChatID    string    `json:"chat_id"`
	UserID    string    `json:"user_id,omitempty"`
	Status    string    `json:"status"`
	Created   bool      `json:"created"`
	Timestamp time.Time `json:"timestamp"`
}

// TicketPublisher publishes ticket lifecycle events. Publishing is
// best-effort: a bus failure never fails the write that triggered it.
type TicketPublisher struct {
	client *Client
}

// NewTicketPublisher creates a publisher over an established connection.
func NewTicketPublisher(client *Client) *TicketPublisher {
	return &TicketPublisher{client: client}
}

// TicketUpserted publishes the event for a reconciled ticket.
func (p *TicketPublisher) TicketUpserted(ctx context.Context, ticket *model.Ticket, created bool) {
	event := TicketEvent{
		TicketID:  ticket.ID.String(),
		ChatID:    ticket.ChatID,
		Status:    string(ticket.Status),
		Created:   created,
		Timestamp: time.Now().UTC(),
	}
	if ticket.UserID != nil {
		event.UserID = ticket.UserID.String()
	}

	subject := SubjectTicketUpdated
	switch {
	case created && ticket.Status == model.StatusClosed:
		subject = SubjectTicketClosed
	case created:
		subject = SubjectTicketCreated
	case ticket.Status == model.StatusClosed:
		subject = SubjectTicketClosed
	}

	if err := p.publish(subject, event); err != nil {
		metrics.RecordTicketEvent(false)
		p.client.logger.Warn("failed to publish ticket event",
			zap.String("subject", subject),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err),
		)
		return
	}
	metrics.RecordTicketEvent(true)
}

func (p *TicketPublisher) publish(subject string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return p.client.conn.Publish(subject, payload)
}
