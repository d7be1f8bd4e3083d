// Package model defines data structures for the helpdesk backend.
package model

import (
	"github.com/google/uuid"
)

// Role values with elevated access. Any other role is an ordinary account.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
)

// User represents a local helpdesk account. An account may optionally be
// linked to an operator identity in the external chat provider via BitrixID.
type User struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name,omitempty"`
	Surname    string    `json:"surname,omitempty"`
	Middlename string    `json:"middlename,omitempty"`
	Phone      string    `json:"phone"`
	Login      string    `json:"login"`
	Email      string    `json:"email"`
	// Password holds the hashed credential. Never serialized.
	Password string `json:"-"`
	Role     string `json:"role,omitempty"`
	BitrixID *int   `json:"bitrix_id,omitempty"`
}

// HasElevatedRole reports whether the user may access chat/ticket
// reconciliation endpoints. Fails closed for empty or unknown roles.
func (u *User) HasElevatedRole() bool {
	return u != nil && (u.Role == RoleAdmin || u.Role == RoleManager)
}

// CreateUserRequest is the registration payload.
type CreateUserRequest struct {
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Login      string `json:"login"`
	Password   string `json:"password"`
	Name       string `json:"name,omitempty"`
	Surname    string `json:"surname,omitempty"`
	Middlename string `json:"middlename,omitempty"`
	Role       string `json:"role,omitempty"`
}

// UpdateUserRequest carries a partial account update. Nil fields are left
// unchanged; a non-nil Password is re-hashed before storage.
type UpdateUserRequest struct {
	Email      *string `json:"email,omitempty"`
	Phone      *string `json:"phone,omitempty"`
	Login      *string `json:"login,omitempty"`
	Password   *string `json:"password,omitempty"`
	Name       *string `json:"name,omitempty"`
	Surname    *string `json:"surname,omitempty"`
	Middlename *string `json:"middlename,omitempty"`
	Role       *string `json:"role,omitempty"`
	BitrixID   *int    `json:"bitrix_id,omitempty"`
}

// AuthRequest is the credential exchange payload.
type AuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the issued bearer token.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Message     string `json:"message,omitempty"`
}
