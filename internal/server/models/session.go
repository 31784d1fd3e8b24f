package models

import "time"

// Session is an issued-token row. A session is valid only while IsActive is
// true and the current time is before ExpiresAt; expiry itself is derived at
// read time, never written back.
type Session struct {
	ID           int64
	UserID       int64
	Token        string
	IP           string
	UserAgent    string
	IsActive     bool
	CreatedAt    time.Time
	ExpiresAt    time.Time
	LastActivity time.Time
}
