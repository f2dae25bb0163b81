package session

import (
	"context"
	"time"
)

// Session represents an authenticated user session.
// It stores only the identity pointer; role and profile live in the user store.
type Session struct {
	SessionID string    `json:"sid"`
	UserID    string    `json:"uid"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its absolute expiry.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store defines how sessions are stored and retrieved.
// Get returns (nil, nil) when the session does not exist or has expired.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Delete(ctx context.Context, sessionID string) error
	DeleteAllForUser(ctx context.Context, userID string) error
}
