package middleware

import (
	"context"
	"errors"
	"net/http"

	"classteamup/internal/logger"
	"classteamup/internal/route"
	"classteamup/internal/session"
	"classteamup/internal/user"
)

type Status int

const (
	Unauthenticated Status = iota
	Authenticated
	// Failed means the session or role could not be determined because a
	// backing service failed. It is distinct from "no session".
	Failed
)

func (s Status) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Failed:
		return "failed"
	}
	return "unauthenticated"
}

// Resolution is the per-request outcome of session resolution.
type Resolution struct {
	Status    Status
	UserID    string
	SessionID string
	Role      user.Role
	Err       error
}

// AuthState converts the resolution for the route classifier. A failed
// resolution counts as unauthenticated, so protected paths fail closed and
// public paths stay reachable.
func (r Resolution) AuthState() route.AuthState {
	if r.Status != Authenticated {
		return route.AuthState{}
	}
	return route.AuthState{
		Authenticated: true,
		UserID:        r.UserID,
		Role:          r.Role,
	}
}

type SessionSource interface {
	GetSession(r *http.Request) (*session.Session, error)
}

type RoleSource interface {
	GetUserRole(ctx context.Context, userID string) (user.Role, error)
}

// SessionResolver answers "who is calling" for a request. It only reads.
type SessionResolver struct {
	sessions SessionSource
	roles    RoleSource
}

func NewSessionResolver(sessions SessionSource, roles RoleSource) *SessionResolver {
	return &SessionResolver{sessions: sessions, roles: roles}
}

func (s *SessionResolver) Resolve(r *http.Request) Resolution {
	sess, err := s.sessions.GetSession(r)
	if err != nil {
		return Resolution{Status: Failed, Err: err}
	}
	if sess == nil {
		return Resolution{Status: Unauthenticated}
	}

	role, err := s.roles.GetUserRole(r.Context(), sess.UserID)
	if errors.Is(err, user.ErrNotFound) {
		logger.Warn("session without user record", map[string]any{
			"user_id": sess.UserID,
			"path":    r.URL.Path,
		})
		return Resolution{Status: Unauthenticated}
	}
	if err != nil {
		return Resolution{Status: Failed, UserID: sess.UserID, Err: err}
	}

	return Resolution{
		Status:    Authenticated,
		UserID:    sess.UserID,
		SessionID: sess.SessionID,
		Role:      role,
	}
}
