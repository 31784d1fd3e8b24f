// Package sweeper runs the periodic expiry sweep over the sessions table.
package sweeper

import (
	"context"
	"database/sql"
	"time"

	"github.com/vaultkeep/vaultkeep/internal/logging"
	"github.com/vaultkeep/vaultkeep/internal/server/repositories/repomanager"
)

// Sweeper periodically flips is_active on sessions whose expiry has passed.
// Expiry is already enforced at validation time; the sweep only keeps the
// stored state in line with the derived one. Rows are never deleted.
type Sweeper struct {
	db       *sql.DB
	repos    repomanager.RepositoryManager
	logger   logging.Logger
	interval time.Duration
}

// New constructs a Sweeper running every interval.
func New(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, interval time.Duration) *Sweeper {
	return &Sweeper{db: db, repos: m, logger: logger, interval: interval}
}

// Run blocks, sweeping on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.repos.Sessions(s.db).DeactivateExpired(ctx)
	if err != nil {
		s.logger.Error(ctx, "session sweep failed", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info(ctx, "expired sessions deactivated", "count", n)
	}
}
