package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vaultkeep/vaultkeep/internal/common"
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

func (r *PostgresRepository) Create(ctx context.Context, session *models.Session, ttl time.Duration) (*models.Session, error) {
	query := `
		INSERT INTO sessions (user_id, token, ip, user_agent, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_active, created_at, last_activity
	`
	session.ExpiresAt = time.Now().Add(ttl)

	err := r.db.QueryRowContext(ctx, query,
		session.UserID, session.Token, session.IP, session.UserAgent, session.ExpiresAt).
		Scan(&session.ID, &session.IsActive, &session.CreatedAt, &session.LastActivity)

	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return session, nil
}

// Touch is the single-statement read-modify-write that makes concurrent
// validations safe: the row lock serialises them, and the WHERE clause
// rechecks expiry under that lock, so an expired session is never extended.
func (r *PostgresRepository) Touch(ctx context.Context, token string) (int64, error) {
	query := `
		UPDATE sessions SET last_activity = now()
		WHERE token = $1 AND is_active AND expires_at > now()
		RETURNING user_id
	`
	var userID int64
	err := r.db.QueryRowContext(ctx, query, token).Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return userID, nil
}

func (r *PostgresRepository) Invalidate(ctx context.Context, token string) error {
	query := `UPDATE sessions SET is_active = FALSE WHERE token = $1 AND is_active`
	if _, err := r.db.ExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeactivateExpired(ctx context.Context) (int64, error) {
	query := `UPDATE sessions SET is_active = FALSE WHERE is_active AND expires_at <= now()`
	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.Session, error) {
	query := `
		SELECT id, user_id, token, ip, user_agent, is_active, created_at, expires_at, last_activity
		FROM sessions
		WHERE token = $1
	`
	session := &models.Session{}
	err := r.db.QueryRowContext(ctx, query, token).Scan(
		&session.ID, &session.UserID, &session.Token, &session.IP, &session.UserAgent,
		&session.IsActive, &session.CreatedAt, &session.ExpiresAt, &session.LastActivity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return session, nil
}
