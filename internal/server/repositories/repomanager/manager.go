// Package repomanager hands out repositories bound to a database handle and
// owns schema migration at startup.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/vaultkeep/vaultkeep/internal/dbx"
	"github.com/vaultkeep/vaultkeep/internal/server/repositories/authlogs"
	"github.com/vaultkeep/vaultkeep/internal/server/repositories/sessions"
	"github.com/vaultkeep/vaultkeep/internal/server/repositories/users"
)

// RepositoryManager is the factory the service layer uses to obtain
// repositories. Passing a transactional DBTX makes the returned repository
// participate in that transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Sessions(db dbx.DBTX) sessions.Repository
	AuthLogs(db dbx.DBTX) authlogs.Repository
}
