package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aiqa-platform/helpdesk-backend/internal/model"
	"github.com/aiqa-platform/helpdesk-backend/internal/store"
	"github.com/aiqa-platform/helpdesk-backend/pkg/logger"
)

func newUserService(users store.UserStore) *UserService {
	return NewUserService(users, logger.NewNop())
}

func TestRegister(t *testing.T) {
	users := newFakeUserStore()
	svc := newUserService(users)

	user, err := svc.Register(context.Background(), &model.CreateUserRequest{
		Email:    "anna@example.com",
		Phone:    "+70000000001",
		Login:    "anna",
		Password: "secret",
		Role:     model.RoleManager,
	})
	require.NoError(t, err)

	assert.NotEqual(t, "", user.ID.String())
	assert.Equal(t, "anna", user.Login)
	// Stored credential must be a hash, never plaintext.
	assert.NotEqual(t, "secret", user.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("secret")))
}

func TestRegisterMissingFields(t *testing.T) {
	svc := newUserService(newFakeUserStore())

	_, err := svc.Register(context.Background(), &model.CreateUserRequest{
		Email: "anna@example.com",
	})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRegisterDuplicate(t *testing.T) {
	existing := operatorUser("anna@example.com")
	users := newFakeUserStore(existing)
	svc := newUserService(users)

	_, err := svc.Register(context.Background(), &model.CreateUserRequest{
		Email:    "anna@example.com",
		Phone:    "+70000000001",
		Login:    "anna2",
		Password: "secret",
	})
	assert.ErrorIs(t, err, store.ErrConflict)

	// No second row was written.
	all, _ := users.List(context.Background())
	assert.Len(t, all, 1)
}

func TestUpdatePartial(t *testing.T) {
	existing := operatorUser("anna@example.com")
	existing.Name = "Anna"
	users := newFakeUserStore(existing)
	svc := newUserService(users)

	newName := "Anya"
	updated, err := svc.Update(context.Background(), existing.ID, &model.UpdateUserRequest{
		Name: &newName,
	})
	require.NoError(t, err)

	assert.Equal(t, "Anya", updated.Name)
	// Untouched fields survive.
	assert.Equal(t, "anna@example.com", updated.Email)
	assert.Equal(t, model.RoleManager, updated.Role)
}

func TestUpdateRehashesPassword(t *testing.T) {
	existing := operatorUser("anna@example.com")
	users := newFakeUserStore(existing)
	svc := newUserService(users)

	newPassword := "rotated"
	updated, err := svc.Update(context.Background(), existing.ID, &model.UpdateUserRequest{
		Password: &newPassword,
	})
	require.NoError(t, err)

	assert.NotEqual(t, "rotated", updated.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.Password), []byte("rotated")))
}

func TestUpdateUnknownUser(t *testing.T) {
	svc := newUserService(newFakeUserStore())

	name := "nobody"
	_, err := svc.Update(context.Background(), uuid.New(), &model.UpdateUserRequest{Name: &name})
	assert.ErrorIs(t, err, store.ErrNotFound)
}
