package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultkeep/vaultkeep/internal/common"
	"github.com/vaultkeep/vaultkeep/internal/cryptox"
	"github.com/vaultkeep/vaultkeep/internal/dbx"
	"github.com/vaultkeep/vaultkeep/internal/logging"
	"github.com/vaultkeep/vaultkeep/internal/server/config"
	"github.com/vaultkeep/vaultkeep/internal/server/models"
	"github.com/vaultkeep/vaultkeep/internal/server/repositories/authlogs"
	"github.com/vaultkeep/vaultkeep/internal/server/repositories/sessions"
	"github.com/vaultkeep/vaultkeep/internal/server/repositories/users"
)

// --- fakes ---

type fakeUsersRepo struct {
	byUsername map[string]*models.User
	byID       map[int64]*models.User
	nextID     int64
	createErr  error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{
		byUsername: make(map[string]*models.User),
		byID:       make(map[int64]*models.User),
		nextID:     1,
	}
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if _, dup := f.byUsername[u.Username]; dup {
		return nil, common.ErrorConflict
	}
	u.ID = f.nextID
	f.nextID++
	u.IsActive = true
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	f.byUsername[u.Username] = u
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsersRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	u, ok := f.byUsername[username]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) UpdatePassword(ctx context.Context, id int64, hash string) error {
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now()
	return nil
}

func (f *fakeUsersRepo) SetActive(ctx context.Context, id int64, active bool) error {
	u, ok := f.byID[id]
	if !ok {
		return common.ErrorNotFound
	}
	u.IsActive = active
	u.UpdatedAt = time.Now()
	return nil
}

type fakeSessionsRepo struct {
	byToken   map[string]*models.Session
	nextID    int64
	conflicts int // report Conflict on this many Creates before succeeding
}

func newFakeSessionsRepo() *fakeSessionsRepo {
	return &fakeSessionsRepo{byToken: make(map[string]*models.Session), nextID: 1}
}

func (f *fakeSessionsRepo) Create(ctx context.Context, s *models.Session, ttl time.Duration) (*models.Session, error) {
	if f.conflicts > 0 {
		f.conflicts--
		return nil, common.ErrorConflict
	}
	if _, dup := f.byToken[s.Token]; dup {
		return nil, common.ErrorConflict
	}
	s.ID = f.nextID
	f.nextID++
	s.IsActive = true
	s.CreatedAt = time.Now()
	s.ExpiresAt = s.CreatedAt.Add(ttl)
	s.LastActivity = s.CreatedAt
	f.byToken[s.Token] = s
	return s, nil
}

func (f *fakeSessionsRepo) Touch(ctx context.Context, token string) (int64, error) {
	s, ok := f.byToken[token]
	if !ok || !s.IsActive || !s.ExpiresAt.After(time.Now()) {
		return 0, common.ErrorNotFound
	}
	s.LastActivity = time.Now()
	return s.UserID, nil
}

func (f *fakeSessionsRepo) Invalidate(ctx context.Context, token string) error {
	if s, ok := f.byToken[token]; ok {
		s.IsActive = false
	}
	return nil
}

func (f *fakeSessionsRepo) DeactivateExpired(ctx context.Context) (int64, error) {
	var n int64
	for _, s := range f.byToken {
		if s.IsActive && !s.ExpiresAt.After(time.Now()) {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

func (f *fakeSessionsRepo) Find(ctx context.Context, token string) (*models.Session, error) {
	s, ok := f.byToken[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *s
	return &cp, nil
}

type fakeAuthLogsRepo struct {
	rows      []*models.AuthenticationLog
	createErr error
}

func (f *fakeAuthLogsRepo) Create(ctx context.Context, log *models.AuthenticationLog) error {
	if f.createErr != nil {
		return f.createErr
	}
	cp := *log
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeAuthLogsRepo) CountRecentFailures(ctx context.Context, username string, window time.Duration) (int64, error) {
	var n int64
	for _, r := range f.rows {
		if r.Username == username && r.AttemptType == models.AttemptFailedLogin {
			n++
		}
	}
	return n, nil
}

type fakeRepoManager struct {
	users    *fakeUsersRepo
	sessions *fakeSessionsRepo
	authlogs *fakeAuthLogsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:    newFakeUsersRepo(),
		sessions: newFakeSessionsRepo(),
		authlogs: &fakeAuthLogsRepo{},
	}
}

func (m *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository                  { return m.users }
func (m *fakeRepoManager) Sessions(db dbx.DBTX) sessions.Repository            { return m.sessions }
func (m *fakeRepoManager) AuthLogs(db dbx.DBTX) authlogs.Repository            { return m.authlogs }

// --- helpers ---

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	// keep the KDF cheap in tests
	cfg.HashTime = 1
	cfg.HashMemoryK = 8 * 1024
	cfg.HashThreads = 1
	cfg.SessionTTL = time.Hour
	cfg.AccessTokenValidity = time.Minute
	return cfg
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestService(t *testing.T) (*AuthService, *fakeRepoManager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rm := newFakeRepoManager()
	svc, err := NewAuthService(db, rm, discardLogger(), testConfig())
	require.NoError(t, err)
	return svc, rm, mock
}

func registerAlice(t *testing.T, svc *AuthService) *models.User {
	t.Helper()
	u, err := svc.Register(context.Background(), "alice", "alice@example.com", "Str0ng!pass")
	require.NoError(t, err)
	return u
}

func loginAlice(t *testing.T, svc *AuthService) *TokenPair {
	t.Helper()
	pair, err := svc.Login(context.Background(), "alice", "Str0ng!pass", "1.2.3.4", "test/1")
	require.NoError(t, err)
	return pair
}

// expectTx queues one committed transaction on the mock connection.
func expectTx(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectCommit()
}

// expectFailedTx queues one rolled-back transaction on the mock connection.
func expectFailedTx(mock sqlmock.Sqlmock) {
	mock.ExpectBegin()
	mock.ExpectRollback()
}

// --- registration ---

func TestRegister_HashesPassword(t *testing.T) {
	svc, rm, _ := newTestService(t)

	u := registerAlice(t, svc)

	stored := rm.users.byID[u.ID]
	assert.NotEqual(t, "Str0ng!pass", stored.PasswordHash)
	ok, err := cryptox.VerifyPassword("Str0ng!pass", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegister_PolicyViolation(t *testing.T) {
	svc, rm, _ := newTestService(t)

	_, err := svc.Register(context.Background(), "bob", "bob@example.com", "weak")
	require.ErrorIs(t, err, common.ErrorValidation)
	assert.Empty(t, rm.users.byUsername)
}

func TestRegister_MissingFields(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Register(context.Background(), "", "a@b.c", "Str0ng!pass")
	require.ErrorIs(t, err, common.ErrorValidation)

	_, err = svc.Register(context.Background(), "a", "", "Str0ng!pass")
	require.ErrorIs(t, err, common.ErrorValidation)
}

func TestRegister_DuplicateUsername(t *testing.T) {
	svc, _, _ := newTestService(t)
	registerAlice(t, svc)

	_, err := svc.Register(context.Background(), "alice", "other@example.com", "Str0ng!pass")
	assert.ErrorIs(t, err, common.ErrorConflict)
}

// --- login ---

func TestLogin_Success(t *testing.T) {
	svc, rm, _ := newTestService(t)
	u := registerAlice(t, svc)

	pair := loginAlice(t, svc)

	assert.Len(t, pair.SessionToken, 64, "256-bit hex token")
	uid, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, uid)

	require.Len(t, rm.authlogs.rows, 1)
	row := rm.authlogs.rows[0]
	assert.Equal(t, models.AttemptLogin, row.AttemptType)
	assert.True(t, row.Success)
	require.NotNil(t, row.UserID)
	assert.Equal(t, u.ID, *row.UserID)
	assert.Equal(t, "1.2.3.4", row.IP)
	assert.Equal(t, "test/1", row.UserAgent)
}

func TestLogin_UnknownUser_LogsWithNilUserID(t *testing.T) {
	svc, rm, _ := newTestService(t)

	_, err := svc.Login(context.Background(), "alice", "whatever", "1.2.3.4", "curl/8")
	require.ErrorIs(t, err, common.ErrorUnauthorized)

	require.Len(t, rm.authlogs.rows, 1)
	row := rm.authlogs.rows[0]
	assert.Equal(t, models.AttemptFailedLogin, row.AttemptType)
	assert.False(t, row.Success)
	assert.Nil(t, row.UserID)
	assert.Equal(t, "alice", row.Username)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, rm, _ := newTestService(t)
	u := registerAlice(t, svc)

	_, err := svc.Login(context.Background(), "alice", "Wr0ng!pass", "1.2.3.4", "test/1")
	require.ErrorIs(t, err, common.ErrorUnauthorized)

	require.Len(t, rm.authlogs.rows, 1)
	row := rm.authlogs.rows[0]
	assert.Equal(t, models.AttemptFailedLogin, row.AttemptType)
	require.NotNil(t, row.UserID)
	assert.Equal(t, u.ID, *row.UserID)
}

func TestLogin_CaseMismatchedPassword(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Register(context.Background(), "carol", "carol@example.com", "Secr3t!x")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "carol", "secr3t!x", "1.2.3.4", "test/1")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestLogin_DeactivatedUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	u := registerAlice(t, svc)
	require.NoError(t, svc.Deactivate(context.Background(), u.ID))

	_, err := svc.Login(context.Background(), "alice", "Str0ng!pass", "1.2.3.4", "test/1")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestLogin_CorruptStoredHash(t *testing.T) {
	svc, rm, _ := newTestService(t)
	u := registerAlice(t, svc)
	rm.users.byID[u.ID].PasswordHash = "not-a-hash"

	_, err := svc.Login(context.Background(), "alice", "Str0ng!pass", "1.2.3.4", "test/1")
	assert.ErrorIs(t, err, common.ErrorCorruptCredential)
}

func TestLogin_AuditFailureDoesNotBlock(t *testing.T) {
	svc, rm, _ := newTestService(t)
	registerAlice(t, svc)
	rm.authlogs.createErr = errors.New("audit store down")

	pair, err := svc.Login(context.Background(), "alice", "Str0ng!pass", "1.2.3.4", "test/1")
	require.NoError(t, err, "audit failure must not block authentication")
	assert.NotEmpty(t, pair.SessionToken)
}

func TestLogin_TokensAreUnique(t *testing.T) {
	svc, _, _ := newTestService(t)
	registerAlice(t, svc)

	seen := make(map[string]struct{})
	for i := 0; i < 10; i++ {
		pair := loginAlice(t, svc)
		_, dup := seen[pair.SessionToken]
		assert.False(t, dup, "session token collision")
		seen[pair.SessionToken] = struct{}{}
	}
}

func TestLogin_RetriesOnTokenCollision(t *testing.T) {
	svc, rm, _ := newTestService(t)
	registerAlice(t, svc)

	rm.sessions.conflicts = 2
	pair, err := svc.Login(context.Background(), "alice", "Str0ng!pass", "1.2.3.4", "test/1")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.SessionToken)
}

func TestLogin_GivesUpAfterRepeatedCollisions(t *testing.T) {
	svc, rm, _ := newTestService(t)
	registerAlice(t, svc)

	rm.sessions.conflicts = tokenCreateAttempts
	_, err := svc.Login(context.Background(), "alice", "Str0ng!pass", "1.2.3.4", "test/1")
	assert.ErrorIs(t, err, common.ErrorInternal)
}

// --- session validation ---

func TestValidateSession_Success(t *testing.T) {
	svc, _, mock := newTestService(t)
	u := registerAlice(t, svc)
	pair := loginAlice(t, svc)

	expectTx(mock)
	got, err := svc.ValidateSession(context.Background(), pair.SessionToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateSession_UnknownToken(t *testing.T) {
	svc, _, mock := newTestService(t)

	expectFailedTx(mock)
	_, err := svc.ValidateSession(context.Background(), "no-such-token")
	assert.ErrorIs(t, err, common.ErrorInvalidSession)
}

func TestValidateSession_ZeroTTL(t *testing.T) {
	svc, _, mock := newTestService(t)
	registerAlice(t, svc)

	svc.sessionTTL = 0
	pair := loginAlice(t, svc)

	expectFailedTx(mock)
	_, err := svc.ValidateSession(context.Background(), pair.SessionToken)
	assert.ErrorIs(t, err, common.ErrorInvalidSession)
}

func TestValidateSession_UpdatesLastActivity(t *testing.T) {
	svc, rm, mock := newTestService(t)
	registerAlice(t, svc)
	pair := loginAlice(t, svc)

	before := rm.sessions.byToken[pair.SessionToken].LastActivity
	time.Sleep(5 * time.Millisecond)

	expectTx(mock)
	_, err := svc.ValidateSession(context.Background(), pair.SessionToken)
	require.NoError(t, err)
	assert.True(t, rm.sessions.byToken[pair.SessionToken].LastActivity.After(before))
}

func TestValidateSession_DeactivatedUser(t *testing.T) {
	svc, _, mock := newTestService(t)
	u := registerAlice(t, svc)
	pair := loginAlice(t, svc)
	require.NoError(t, svc.Deactivate(context.Background(), u.ID))

	expectTx(mock)
	_, err := svc.ValidateSession(context.Background(), pair.SessionToken)
	assert.ErrorIs(t, err, common.ErrorInvalidSession)
}

// --- logout ---

func TestLogout_InvalidatesForever(t *testing.T) {
	svc, _, mock := newTestService(t)
	registerAlice(t, svc)
	pair := loginAlice(t, svc)

	expectTx(mock)
	require.NoError(t, svc.Logout(context.Background(), pair.SessionToken, "1.2.3.4", "test/1"))

	// still invalid well before natural expiry
	expectFailedTx(mock)
	_, err := svc.ValidateSession(context.Background(), pair.SessionToken)
	assert.ErrorIs(t, err, common.ErrorInvalidSession)
}

func TestLogout_Idempotent(t *testing.T) {
	svc, rm, mock := newTestService(t)
	registerAlice(t, svc)
	pair := loginAlice(t, svc)

	expectTx(mock)
	require.NoError(t, svc.Logout(context.Background(), pair.SessionToken, "1.2.3.4", "test/1"))
	logsAfterFirst := len(rm.authlogs.rows)

	expectTx(mock)
	require.NoError(t, svc.Logout(context.Background(), pair.SessionToken, "1.2.3.4", "test/1"))

	assert.False(t, rm.sessions.byToken[pair.SessionToken].IsActive)
	assert.Len(t, rm.authlogs.rows, logsAfterFirst, "second logout must not add audit rows")
}

func TestLogout_UnknownTokenIsNoop(t *testing.T) {
	svc, _, mock := newTestService(t)

	expectFailedTx(mock)
	assert.NoError(t, svc.Logout(context.Background(), "no-such-token", "1.2.3.4", "test/1"))
}

func TestLogout_RecordsAuditRow(t *testing.T) {
	svc, rm, mock := newTestService(t)
	u := registerAlice(t, svc)
	pair := loginAlice(t, svc)

	expectTx(mock)
	require.NoError(t, svc.Logout(context.Background(), pair.SessionToken, "1.2.3.4", "test/1"))

	last := rm.authlogs.rows[len(rm.authlogs.rows)-1]
	assert.Equal(t, models.AttemptLogout, last.AttemptType)
	assert.True(t, last.Success)
	require.NotNil(t, last.UserID)
	assert.Equal(t, u.ID, *last.UserID)
}

// --- password change / deactivation ---

func TestChangePassword_Success(t *testing.T) {
	svc, _, _ := newTestService(t)
	u := registerAlice(t, svc)

	err := svc.ChangePassword(context.Background(), u.ID, "Str0ng!pass", "N3w!passwd")
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "alice", "Str0ng!pass", "", "")
	assert.ErrorIs(t, err, common.ErrorUnauthorized, "old password must stop working")

	_, err = svc.Login(context.Background(), "alice", "N3w!passwd", "", "")
	assert.NoError(t, err)
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	svc, _, _ := newTestService(t)
	u := registerAlice(t, svc)

	err := svc.ChangePassword(context.Background(), u.ID, "nope", "N3w!passwd")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestChangePassword_PolicyApplies(t *testing.T) {
	svc, _, _ := newTestService(t)
	u := registerAlice(t, svc)

	err := svc.ChangePassword(context.Background(), u.ID, "Str0ng!pass", "weak")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestChangePassword_UnknownUser(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.ChangePassword(context.Background(), 999, "a", "b")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestDeactivate_UnknownUser(t *testing.T) {
	svc, _, _ := newTestService(t)
	assert.ErrorIs(t, svc.Deactivate(context.Background(), 999), common.ErrorNotFound)
}
