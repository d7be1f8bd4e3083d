package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aiqa-platform/helpdesk-backend/internal/model"
	"github.com/aiqa-platform/helpdesk-backend/internal/store"
	"github.com/aiqa-platform/helpdesk-backend/pkg/logger"
)

// UserService handles account registration and CRUD.
type UserService struct {
	users  store.UserStore
	logger *logger.Logger
}

// NewUserService creates a user service.
func NewUserService(users store.UserStore, log *logger.Logger) *UserService {
	return &UserService{users: users, logger: log}
}

// Register creates a new account. Email, phone and login must be unique; a
// collision returns store.ErrConflict and no row is created.
func (s *UserService) Register(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	if req.Email == "" || req.Phone == "" || req.Login == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email, phone, login and password are required", ErrValidation)
	}

	exists, err := s.users.ExistsByUniqueFields(ctx, req.Email, req.Phone, req.Login)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, store.ErrConflict
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		ID:         uuid.New(),
		Name:       req.Name,
		Surname:    req.Surname,
		Middlename: req.Middlename,
		Phone:      req.Phone,
		Login:      req.Login,
		Email:      req.Email,
		Password:   hashed,
		Role:       req.Role,
	}

	// The registration/uniqueness window is also guarded by the database
	// unique indexes, so a concurrent duplicate still fails with a conflict.
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("login", user.Login))
	return user, nil
}

// GetByID returns an account by id.
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return s.users.GetByID(ctx, id)
}

// List returns all accounts.
func (s *UserService) List(ctx context.Context) ([]model.User, error) {
	return s.users.List(ctx)
}

// Update applies a partial account update. A supplied password is re-hashed;
// plaintext is never stored.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, req *model.UpdateUserRequest) (*model.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Surname != nil {
		user.Surname = *req.Surname
	}
	if req.Middlename != nil {
		user.Middlename = *req.Middlename
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.Login != nil {
		user.Login = *req.Login
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.BitrixID != nil {
		user.BitrixID = req.BitrixID
	}
	if req.Password != nil {
		hashed, err := HashPassword(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.Password = hashed
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes an account. Ticket history survives with its owner
// reference cleared; removal of history is a separate, explicit call.
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.String("user_id", id.String()))
	return nil
}
