package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiqa-platform/helpdesk-backend/internal/model"
	"github.com/aiqa-platform/helpdesk-backend/pkg/logger"
)

const testSecret = "test-secret"

func newAuthFixture(t *testing.T) (*AuthService, *model.User) {
	t.Helper()

	hashed, err := HashPassword("secret")
	require.NoError(t, err)

	user := operatorUser("anna@example.com")
	user.Password = hashed

	svc := NewAuthService(newFakeUserStore(user), testSecret, time.Hour, logger.NewNop())
	return svc, user
}

func TestAuthenticate(t *testing.T) {
	svc, user := newAuthFixture(t)

	resp, err := svc.Authenticate(context.Background(), &model.AuthRequest{
		Email:    "anna@example.com",
		Password: "secret",
	})
	require.NoError(t, err)

	assert.Equal(t, "bearer", resp.TokenType)
	require.NotEmpty(t, resp.AccessToken)

	// The token subject must round-trip to the user id.
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(resp.AccessToken, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	})
	require.NoError(t, err)
	assert.True(t, token.Valid)
	assert.Equal(t, user.ID.String(), claims.Subject)
	require.NotNil(t, claims.ExpiresAt)
	assert.True(t, claims.ExpiresAt.After(time.Now()))
}

func TestAuthenticateWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Authenticate(context.Background(), &model.AuthRequest{
		Email:    "anna@example.com",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	svc, _ := newAuthFixture(t)

	// Unknown account and bad password are indistinguishable to the caller.
	_, err := svc.Authenticate(context.Background(), &model.AuthRequest{
		Email:    "nobody@example.com",
		Password: "secret",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestIssueTokenSignedWithServiceSecret(t *testing.T) {
	svc, user := newAuthFixture(t)

	signed, err := svc.IssueToken(user)
	require.NoError(t, err)

	_, err = jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return []byte("other-secret"), nil
	})
	assert.Error(t, err)
}
