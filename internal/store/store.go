// Package store provides PostgreSQL persistence for users and tickets.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aiqa-platform/helpdesk-backend/internal/model"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("already exists")
)

// UserStore is the persistence interface for user accounts.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ExistsByUniqueFields(ctx context.Context, email, phone, login string) (bool, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, user *model.User) error
	// Delete removes the account row only. Ticket history is preserved:
	// owned tickets have their owner reference cleared, never cascaded.
	Delete(ctx context.Context, id uuid.UUID) error
	SetBitrixID(ctx context.Context, id uuid.UUID, bitrixID int) error
}

// TicketStore is the persistence interface for ticket records.
type TicketStore interface {
	// Upsert applies find-or-create semantics keyed by (chat_id, owner):
	// an existing row is updated in place, otherwise a new row is inserted.
	// Each call is a single atomic statement. Reports whether a row was
	// created.
	Upsert(ctx context.Context, ticket *model.Ticket) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Ticket, error)
	List(ctx context.Context) ([]model.Ticket, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Store bundles the connection pool and the typed stores.
type Store struct {
	pool    *pgxpool.Pool
	Users   UserStore
	Tickets TicketStore
}

// New connects to PostgreSQL and verifies the connection.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{
		pool:    pool,
		Users:   &userStore{pool: pool},
		Tickets: &ticketStore{pool: pool},
	}, nil
}

// Ping reports database reachability, used by the readiness endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id          UUID PRIMARY KEY,
	name        VARCHAR(100),
	surname     VARCHAR(100),
	middlename  VARCHAR(100),
	phone       VARCHAR(100) NOT NULL UNIQUE,
	login       VARCHAR(100) NOT NULL UNIQUE,
	email       VARCHAR(100) NOT NULL UNIQUE,
	password    VARCHAR(100) NOT NULL,
	role        VARCHAR(100) NOT NULL DEFAULT '',
	bitrix_id   INTEGER
);

CREATE TABLE IF NOT EXISTS ticket (
	id              UUID PRIMARY KEY,
	user_id         UUID REFERENCES users(id) ON DELETE SET NULL,
	chat_id         VARCHAR(64) NOT NULL,
	connection_type VARCHAR(50) NOT NULL,
	dialogue        JSONB NOT NULL DEFAULT '{}',
	status          VARCHAR(20) NOT NULL DEFAULT 'open',
	time_open       TIMESTAMPTZ,
	time_close      TIMESTAMPTZ,
	category        VARCHAR(50) NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS ticket_chat_owner_key
	ON ticket (chat_id, COALESCE(user_id, '00000000-0000-0000-0000-000000000000'::uuid));
`

// Bootstrap creates the schema when missing. Applied at startup, mirroring
// the service's managed-table model; unique indexes back the reconciliation
// upsert key.
func (s *Store) Bootstrap(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("bootstrap schema: %w", err)
	}
	return nil
}
