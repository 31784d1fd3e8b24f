// Package users declares the repository contract for account rows.
package users

import (
	"context"

	"github.com/vaultkeep/vaultkeep/internal/server/models"
)

// Repository defines persistence operations for user accounts.
// Implementations must surface duplicate username/email as
// common.ErrorConflict and a missing row as common.ErrorNotFound.
type Repository interface {
	// Create inserts a new account and fills in the generated fields
	// (ID, timestamps) on the returned user.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByUsername returns the account with the given username.
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// GetByID returns the account with the given id.
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// UpdatePassword replaces the stored hash and bumps updated_at.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// SetActive flips the soft-delete flag and bumps updated_at.
	SetActive(ctx context.Context, id int64, active bool) error
}
