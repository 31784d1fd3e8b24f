// Package authlogs declares the repository contract for the append-only
// authentication audit trail.
package authlogs

import (
	"context"
	"time"

	"github.com/vaultkeep/vaultkeep/internal/server/models"
)

// Repository defines operations on auth_logs. Rows are inserted once and
// never updated or deleted.
type Repository interface {
	// Create appends one audit row. CreatedAt is assigned by the store.
	Create(ctx context.Context, log *models.AuthenticationLog) error

	// CountRecentFailures returns the number of failed_login rows recorded
	// for username within the trailing window. Feeds the rate-limit knobs
	// in config; enforcement lives outside this core.
	CountRecentFailures(ctx context.Context, username string, window time.Duration) (int64, error)
}
