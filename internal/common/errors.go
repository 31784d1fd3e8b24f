// Package common defines sentinel errors shared across the server layers.
// Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrorConflict signals a unique-constraint violation (duplicate
	// username, email, or session token).
	ErrorConflict = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// ErrorInvalidSession covers session-not-found, session-expired and
	// session-inactive alike. The cases are deliberately indistinguishable
	// to the caller.
	ErrorInvalidSession = errors.New("invalid session")

	// ErrorCorruptCredential means the stored password hash is malformed.
	// A wrong password is never an error, only a false verification.
	ErrorCorruptCredential = errors.New("corrupt stored credential")

	// Token errors.
	ErrorInvalidToken = errors.New("invalid token")
)
