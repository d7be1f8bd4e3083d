package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aiqa-platform/helpdesk-backend/internal/model"
)

type userStore struct {
	pool *pgxpool.Pool
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

const userColumns = "id, name, surname, middlename, phone, login, email, password, role, bitrix_id"

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Name, &u.Surname, &u.Middlename, &u.Phone, &u.Login,
		&u.Email, &u.Password, &u.Role, &u.BitrixID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *userStore) Create(ctx context.Context, user *model.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		user.ID, user.Name, user.Surname, user.Middlename, user.Phone, user.Login,
		user.Email, user.Password, user.Role, user.BitrixID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *userStore) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (s *userStore) ExistsByUniqueFields(ctx context.Context, email, phone, login string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 OR phone = $2 OR login = $3)`,
		email, phone, login).Scan(&exists)
	return exists, err
}

func (s *userStore) List(ctx context.Context) ([]model.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY login`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Surname, &u.Middlename, &u.Phone, &u.Login,
			&u.Email, &u.Password, &u.Role, &u.BitrixID); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *userStore) Update(ctx context.Context, user *model.User) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET name = $2, surname = $3, middlename = $4, phone = $5,
		 login = $6, email = $7, password = $8, role = $9, bitrix_id = $10
		 WHERE id = $1`,
		user.ID, user.Name, user.Surname, user.Middlename, user.Phone, user.Login,
		user.Email, user.Password, user.Role, user.BitrixID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *userStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *userStore) SetBitrixID(ctx context.Context, id uuid.UUID, bitrixID int) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET bitrix_id = $2 WHERE id = $1`, id, bitrixID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
