package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/aiqa-platform/helpdesk-backend/internal/model"
	"github.com/aiqa-platform/helpdesk-backend/internal/store"
	"github.com/aiqa-platform/helpdesk-backend/pkg/logger"
)

// AuthService exchanges credentials for signed bearer tokens.
type AuthService struct {
	users      store.UserStore
	secret     []byte
	expiration time.Duration
	logger     *logger.Logger
}

// NewAuthService creates an auth service.
func NewAuthService(users store.UserStore, secret string, expiration time.Duration, log *logger.Logger) *AuthService {
	return &AuthService{
		users:      users,
		secret:     []byte(secret),
		expiration: expiration,
		logger:     log,
	}
}

// Authenticate verifies the email/password pair and issues a token with the
// user id as subject.
func (s *AuthService) Authenticate(ctx context.Context, req *model.AuthRequest) (*model.AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	s.logger.Info("user authenticated", zap.String("login", user.Login))

	return &model.AuthResponse{
		AccessToken: token,
		TokenType:   "bearer",
		Message:     fmt.Sprintf("User %s authenticated successfully", user.Login),
	}, nil
}

// IssueToken signs a time-limited HS256 token for the user.
func (s *AuthService) IssueToken(user *model.User) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// HashPassword hashes a plaintext credential for storage.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
