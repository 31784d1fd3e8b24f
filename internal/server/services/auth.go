// Package services contains the server-side business logic. This file
// implements AuthService: registration, login, session validation, logout,
// password changes, and the authentication audit trail.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vaultkeep/vaultkeep/internal/common"
	"github.com/vaultkeep/vaultkeep/internal/cryptox"
	"github.com/vaultkeep/vaultkeep/internal/dbx"
	"github.com/vaultkeep/vaultkeep/internal/logging"
	"github.com/vaultkeep/vaultkeep/internal/server/auth"
	"github.com/vaultkeep/vaultkeep/internal/server/config"
	"github.com/vaultkeep/vaultkeep/internal/server/models"
	"github.com/vaultkeep/vaultkeep/internal/server/repositories/repomanager"
)

// tokenCreateAttempts bounds the retry loop on session-token collisions.
// With 256-bit tokens a second collision in a row means something is broken.
const tokenCreateAttempts = 3

// TokenPair bundles the short-lived JWT access token with the persisted
// session token issued at login.
type TokenPair struct {
	AccessToken  string
	SessionToken string
}

// AuthService provides the authentication operations of the core:
//   - Register: create accounts with policy-checked, argon2id-hashed passwords
//   - Login: verify credentials, issue a session and an access token
//   - ValidateSession / Logout: session lifecycle
//   - ChangePassword / Deactivate: account mutations
type AuthService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	logger logging.Logger

	jwtSecret           []byte
	accessTokenValidity time.Duration
	sessionTTL          time.Duration
	policy              cryptox.PasswordPolicy
	hashParams          cryptox.HashParams

	// decoyHash is verified against when the username is unknown, so the
	// failure path costs the same KDF work as a real mismatch.
	decoyHash string
}

// NewAuthService constructs an AuthService from repositories and config.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, logger logging.Logger, cfg *config.Config) (*AuthService, error) {
	decoy, err := cryptox.HashPassword("vaultkeep-decoy-credential", cfg.HashParams())
	if err != nil {
		return nil, fmt.Errorf("preparing decoy hash: %w", err)
	}

	return &AuthService{
		db:                  db,
		repos:               m,
		logger:              logger,
		jwtSecret:           []byte(cfg.SecretKey),
		accessTokenValidity: cfg.AccessTokenValidity,
		sessionTTL:          cfg.SessionTTL,
		policy:              cfg.Policy(),
		hashParams:          cfg.HashParams(),
		decoyHash:           decoy,
	}, nil
}

// Register creates a new user account. The password is checked against the
// configured policy and hashed before any store access.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if username == "" || email == "" {
		return nil, fmt.Errorf("%w: username and email are required", common.ErrorValidation)
	}
	if err := cryptox.ValidatePolicy(password, s.policy); err != nil {
		return nil, err
	}

	hash, err := cryptox.HashPassword(password, s.hashParams)
	if err != nil {
		return nil, err
	}

	user := &models.User{Username: username, Email: email, PasswordHash: hash}
	created, err := s.repos.Users(s.db).Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrorConflict) {
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return created, nil
}

// Login verifies the credentials and, on success, creates a session row and
// returns it together with a freshly minted access token. Every attempt,
// successful or not, is recorded in the audit trail; audit failures never
// block the flow.
func (s *AuthService) Login(ctx context.Context, username, password, ip, userAgent string) (*TokenPair, error) {
	user, err := s.repos.Users(s.db).GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// burn the same KDF work as a real mismatch
			_, _ = cryptox.VerifyPassword(password, s.decoyHash)
			s.recordAttempt(ctx, username, nil, models.AttemptFailedLogin, false, ip, userAgent)
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	if !user.IsActive {
		s.recordAttempt(ctx, username, &user.ID, models.AttemptFailedLogin, false, ip, userAgent)
		return nil, common.ErrorUnauthorized
	}

	ok, err := cryptox.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		// malformed stored hash; surface the corruption instead of a
		// generic unauthorized answer
		return nil, err
	}
	if !ok {
		s.recordAttempt(ctx, username, &user.ID, models.AttemptFailedLogin, false, ip, userAgent)
		return nil, common.ErrorUnauthorized
	}

	session, err := s.createSession(ctx, user.ID, ip, userAgent)
	if err != nil {
		return nil, err
	}

	access, err := auth.GenerateToken(user.ID, s.jwtSecret, s.accessTokenValidity)
	if err != nil {
		return nil, common.ErrorInternal
	}

	s.recordAttempt(ctx, username, &user.ID, models.AttemptLogin, true, ip, userAgent)

	return &TokenPair{AccessToken: access, SessionToken: session.Token}, nil
}

// ValidateSession resolves a session token to its owning user, bumping
// last_activity in the same transaction. Unknown, inactive, and expired
// tokens are indistinguishable: all yield ErrorInvalidSession.
func (s *AuthService) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	var user *models.User

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		userID, err := s.repos.Sessions(tx).Touch(ctx, token)
		if err != nil {
			return err
		}
		user, err = s.repos.Users(tx).GetByID(ctx, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorInvalidSession
		}
		return nil, common.ErrorInternal
	}

	if !user.IsActive {
		return nil, common.ErrorInvalidSession
	}
	return user, nil
}

// ValidateAccessToken verifies a JWT access token and returns the user id
// it was minted for.
func (s *AuthService) ValidateAccessToken(tokenString string) (int64, error) {
	return auth.GetUserIDFromToken(tokenString, s.jwtSecret)
}

// Logout invalidates the session. Idempotent: logging out an unknown or
// already-inactive token is a no-op, not an error.
func (s *AuthService) Logout(ctx context.Context, token, ip, userAgent string) error {
	var username string
	var userID *int64
	var wasActive bool

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		session, err := s.repos.Sessions(tx).Find(ctx, token)
		if err != nil {
			return err
		}
		wasActive = session.IsActive
		user, err := s.repos.Users(tx).GetByID(ctx, session.UserID)
		if err == nil {
			username = user.Username
			userID = &user.ID
		}
		return s.repos.Sessions(tx).Invalidate(ctx, token)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return common.ErrorInternal
	}

	// audit only the transition; repeating a logout is a no-op
	if wasActive {
		s.recordAttempt(ctx, username, userID, models.AttemptLogout, true, ip, userAgent)
	}
	return nil
}

// ChangePassword verifies the current password and replaces the stored hash.
// The new password must pass the configured policy. updated_at is bumped by
// the store.
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, current, next string) error {
	user, err := s.repos.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return common.ErrorInternal
	}

	ok, err := cryptox.VerifyPassword(current, user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return common.ErrorUnauthorized
	}

	if err := cryptox.ValidatePolicy(next, s.policy); err != nil {
		return err
	}

	hash, err := cryptox.HashPassword(next, s.hashParams)
	if err != nil {
		return err
	}

	if err := s.repos.Users(s.db).UpdatePassword(ctx, userID, hash); err != nil {
		return common.ErrorInternal
	}
	return nil
}

// Deactivate soft-deletes an account. Existing sessions stop validating at
// the next ValidateSession call through the user IsActive gate.
func (s *AuthService) Deactivate(ctx context.Context, userID int64) error {
	err := s.repos.Users(s.db).SetActive(ctx, userID, false)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return common.ErrorInternal
	}
	return err
}

// createSession issues a session with a fresh random token, retrying with a
// new token on the (astronomically unlikely) unique-constraint collision.
func (s *AuthService) createSession(ctx context.Context, userID int64, ip, userAgent string) (*models.Session, error) {
	for attempt := 0; attempt < tokenCreateAttempts; attempt++ {
		token, err := cryptox.NewToken()
		if err != nil {
			return nil, common.ErrorInternal
		}

		session := &models.Session{UserID: userID, Token: token, IP: ip, UserAgent: userAgent}
		created, err := s.repos.Sessions(s.db).Create(ctx, session, s.sessionTTL)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, common.ErrorConflict) {
			return nil, common.ErrorInternal
		}
	}
	return nil, common.ErrorInternal
}

// recordAttempt appends one audit row. Failures are logged and swallowed:
// a broken audit trail must not block authentication.
func (s *AuthService) recordAttempt(ctx context.Context, username string, userID *int64, at models.AttemptType, success bool, ip, userAgent string) {
	log := &models.AuthenticationLog{
		UserID:      userID,
		Username:    username,
		AttemptType: at,
		Success:     success,
		IP:          ip,
		UserAgent:   userAgent,
	}
	if err := s.repos.AuthLogs(s.db).Create(ctx, log); err != nil {
		s.logger.Error(ctx, "recording auth attempt", "username", username, "type", string(at), "error", err)
	}
}
