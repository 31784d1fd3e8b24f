// Package models defines the persisted entities of the auth core.
package models

import "time"

// User is an account row. PasswordHash is the argon2id-encoded credential;
// the plaintext never reaches storage. Accounts are soft-deleted by flipping
// IsActive, rows are never removed.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	FirstName    *string
	LastName     *string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
