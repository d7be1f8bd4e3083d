package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidateUserID validates a local user id path or query parameter.
func ValidateUserID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid user ID format")
	}
	return nil
}

// ValidateTicketID validates a ticket id path parameter.
func ValidateTicketID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid ticket ID format")
	}
	return nil
}

// ValidateChatID validates an external conversation id. Provider chat
// identifiers live in the "chat" namespace.
func ValidateChatID(id string) error {
	if id == "" {
		return errors.New("chat ID cannot be empty")
	}
	if len(id) > 64 {
		return errors.New("chat ID exceeds maximum length")
	}
	if !strings.HasPrefix(id, "chat") {
		return errors.New("chat ID must be in the chat namespace")
	}
	return nil
}

// ValidateEmail performs a light shape check on an email address.
func ValidateEmail(email string) error {
	if email == "" {
		return errors.New("email cannot be empty")
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return errors.New("invalid email format")
	}
	if !utf8.ValidString(email) || len(email) > 100 {
		return errors.New("invalid email format")
	}
	return nil
}
