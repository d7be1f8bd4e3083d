package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aiqa-platform/helpdesk-backend/internal/model"
)

type ticketStore struct {
	pool *pgxpool.Pool
}

const ticketColumns = "id, user_id, chat_id, connection_type, dialogue, status, time_open, time_close, category"

// Upsert inserts or updates the ticket row for (chat_id, owner) in one
// atomic statement. The conflict target matches the partial-null unique
// index, so the database serializes concurrent writers per conversation.
func (s *ticketStore) Upsert(ctx context.Context, ticket *model.Ticket) (bool, error) {
	dialogue, err := json.Marshal(ticket.Dialogue)
	if err != nil {
		return false, fmt.Errorf("encode dialogue: %w", err)
	}

	var (
		id       uuid.UUID
		inserted bool
	)
	err = s.pool.QueryRow(ctx,
		`INSERT INTO ticket (`+ticketColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (chat_id, COALESCE(user_id, '00000000-0000-0000-0000-000000000000'::uuid))
		 DO UPDATE SET
			dialogue   = EXCLUDED.dialogue,
			status     = EXCLUDED.status,
			time_open  = EXCLUDED.time_open,
			time_close = EXCLUDED.time_close,
			connection_type = EXCLUDED.connection_type,
			category   = EXCLUDED.category
		 RETURNING id, (xmax = 0)`,
		ticket.ID, ticket.UserID, ticket.ChatID, ticket.ConnectionType, dialogue,
		ticket.Status, ticket.TimeOpen, ticket.TimeClose, ticket.Category,
	).Scan(&id, &inserted)
	if err != nil {
		return false, err
	}

	// The stable id of the persisted row, which differs from the candidate
	// id when an existing ticket was updated.
	ticket.ID = id
	return inserted, nil
}

func scanTicket(row pgx.Row) (*model.Ticket, error) {
	var (
		t        model.Ticket
		dialogue []byte
	)
	err := row.Scan(&t.ID, &t.UserID, &t.ChatID, &t.ConnectionType, &dialogue,
		&t.Status, &t.TimeOpen, &t.TimeClose, &t.Category)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(dialogue) > 0 {
		if err := json.Unmarshal(dialogue, &t.Dialogue); err != nil {
			return nil, fmt.Errorf("decode dialogue: %w", err)
		}
	}
	if t.Dialogue == nil {
		t.Dialogue = map[string]time.Time{}
	}
	return &t, nil
}

func (s *ticketStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM ticket WHERE id = $1`, id)
	return scanTicket(row)
}

func (s *ticketStore) List(ctx context.Context) ([]model.Ticket, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+ticketColumns+` FROM ticket ORDER BY time_open DESC NULLS LAST`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []model.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

func (s *ticketStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM ticket WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
