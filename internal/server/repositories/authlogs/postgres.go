package authlogs

import (
	"context"
	"fmt"
	"time"

	"github.com/vaultkeep/vaultkeep/internal/dbx"
	"github.com/vaultkeep/vaultkeep/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, log *models.AuthenticationLog) error {
	query := `
		INSERT INTO auth_logs (user_id, username, attempt_type, success, ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		log.UserID, log.Username, string(log.AttemptType), log.Success, log.IP, log.UserAgent).
		Scan(&log.ID, &log.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CountRecentFailures(ctx context.Context, username string, window time.Duration) (int64, error) {
	query := `
		SELECT COUNT(*) FROM auth_logs
		WHERE username = $1 AND attempt_type = 'failed_login' AND created_at > $2
	`
	var n int64
	err := r.db.QueryRowContext(ctx, query, username, time.Now().Add(-window)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
