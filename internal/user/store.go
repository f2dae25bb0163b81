package user

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("user not found")

// Store is the relational profile store. Implementations return ErrNotFound
// when no row exists for the id, and other errors for infrastructure failures.
type Store interface {
	GetUserRole(ctx context.Context, userID string) (Role, error)
	GetUserProfile(ctx context.Context, userID string) (*User, error)
	UpdateUserProfile(ctx context.Context, userID string, patch Patch) (*User, error)
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error
}
