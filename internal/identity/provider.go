// Package identity is the credential and session authority the rest of the
// application talks to. Handlers, flows and the session resolver depend on
// Provider only; Local is the implementation backed by Postgres and Redis.
package identity

import (
	"context"
	"errors"
	"net/http"

	"classteamup/internal/auth"
	"classteamup/internal/session"
	"classteamup/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrRateLimited        = errors.New("too many attempts")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrNoSession          = errors.New("no active session")
	// ErrUnavailable wraps infrastructure failures. Callers may retry.
	ErrUnavailable = errors.New("identity provider unavailable")
)

// Attributes are the profile fields stored together with a new account.
type Attributes struct {
	FirstName string
	LastName  string
	Role      user.Role
}

// PendingAccount is the result of a sign-up awaiting email confirmation.
type PendingAccount struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Subject identifies whose password is being changed: the holder of an
// active session, or the bearer of a password-reset token.
type Subject struct {
	SessionID  string
	ResetToken string
}

type Provider interface {
	// GetSession returns the valid session carried by the request, or nil
	// when there is none.
	GetSession(r *http.Request) (*session.Session, error)

	SignInWithPassword(ctx context.Context, email, password string) (*session.Session, error)
	SignInWithIdentity(ctx context.Context, id *auth.Identity) (*session.Session, error)

	SignUp(ctx context.Context, email, password string, attrs Attributes) (*PendingAccount, error)
	ConfirmSignUp(ctx context.Context, token string) error

	// SignOut invalidates the session. Unknown or empty ids are not an error.
	SignOut(ctx context.Context, sessionID string) error

	SendPasswordReset(ctx context.Context, email, callbackURL string) error
	UpdatePassword(ctx context.Context, subject Subject, newPassword string) error

	// Subscribe returns the session-change feed. There is a single feed per
	// provider and it is closed when the provider is closed.
	Subscribe() <-chan Event
}
