package repomanager

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/vaultkeep/vaultkeep/internal/dbx"
	"github.com/vaultkeep/vaultkeep/internal/server/migrations"
	"github.com/vaultkeep/vaultkeep/internal/server/repositories/authlogs"
	"github.com/vaultkeep/vaultkeep/internal/server/repositories/sessions"
	"github.com/vaultkeep/vaultkeep/internal/server/repositories/users"
)

// PostgresRepositoryManager wires the Postgres repository implementations.
type PostgresRepositoryManager struct {
}

// NewPostgresRepositoryManager returns a manager for the Postgres store.
func NewPostgresRepositoryManager() RepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return sessions.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) AuthLogs(db dbx.DBTX) authlogs.Repository {
	return authlogs.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, ".")
}
