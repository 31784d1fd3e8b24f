// Package sessions declares the repository contract for issued-token rows.
package sessions

import (
	"context"
	"time"

	"github.com/vaultkeep/vaultkeep/internal/server/models"
)

// Repository defines operations for issuing, validating, and revoking
// sessions. Validity is always computed against expires_at at read time;
// is_active only ever transitions from true to false.
type Repository interface {
	// Create inserts a new session row expiring at now+ttl. A token
	// collision surfaces as common.ErrorConflict so the caller can retry
	// with a fresh token.
	Create(ctx context.Context, session *models.Session, ttl time.Duration) (*models.Session, error)

	// Touch atomically bumps last_activity on the session with the given
	// token, but only while it is active and unexpired, and returns the
	// owning user id. Any other state yields common.ErrorNotFound.
	Touch(ctx context.Context, token string) (int64, error)

	// Invalidate flips is_active to false. Idempotent: invalidating an
	// already-inactive or unknown token is a no-op.
	Invalidate(ctx context.Context, token string) error

	// DeactivateExpired flips is_active on every active session whose
	// expiry has passed and reports how many rows changed.
	DeactivateExpired(ctx context.Context) (int64, error)

	// Find returns the session row for the given token regardless of its
	// state. Mostly useful to operators and tests.
	Find(ctx context.Context, token string) (*models.Session, error)
}
