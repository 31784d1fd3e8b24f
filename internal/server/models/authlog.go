package models

import "time"

// AttemptType tags an authentication log row.
type AttemptType string

const (
	AttemptLogin       AttemptType = "login"
	AttemptLogout      AttemptType = "logout"
	AttemptFailedLogin AttemptType = "failed_login"
)

// AuthenticationLog is one append-only audit row per authentication event.
// UserID is nil for attempts against unknown usernames; Username keeps the
// value as submitted either way.
type AuthenticationLog struct {
	ID          int64
	UserID      *int64
	Username    string
	AttemptType AttemptType
	Success     bool
	IP          string
	UserAgent   string
	CreatedAt   time.Time
}
