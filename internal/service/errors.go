// Package service provides business logic for the helpdesk backend.
package service

import "errors"

var (
	// ErrValidation means caller input was malformed or incomplete.
	ErrValidation = errors.New("invalid input")

	// ErrInvalidCredentials means the email/password pair did not match an
	// account.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrForbidden means the caller's role is outside the allow-list for
	// the requested action.
	ErrForbidden = errors.New("access denied")

	// ErrNoResponsibleOperator means the provider designates no operator
	// for a conversation; reconciliation of that conversation aborts.
	ErrNoResponsibleOperator = errors.New("no responsible operator for conversation")

	// ErrOperatorNotRegistered means none of the responsible operators
	// correspond to a local account.
	ErrOperatorNotRegistered = errors.New("responsible operator has no local account")
)
