// Package account implements the credential lifecycle: sign-up, email
// confirmation, sign-in, sign-out, password reset and password update, plus
// reading and patching the caller's profile.
package account

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"classteamup/internal/auth"
	"classteamup/internal/identity"
	"classteamup/internal/logger"
	"classteamup/internal/route"
	"classteamup/internal/session"
	"classteamup/internal/user"

	"github.com/go-playground/validator/v10"
)

// ErrUserRecordMissing means authentication succeeded but no profile row
// exists. The session is revoked before this error is returned.
var ErrUserRecordMissing = errors.New("account setup incomplete")

const updatePasswordPath = "/auth/update-password"

type Service struct {
	idp      identity.Provider
	users    user.Store
	baseURL  string
	validate *validator.Validate
}

// NewService wires the flows to their capabilities. baseURL is the public
// origin used to build the password-reset callback.
func NewService(idp identity.Provider, users user.Store, baseURL string) *Service {
	return &Service{
		idp:      idp,
		users:    users,
		baseURL:  strings.TrimRight(baseURL, "/"),
		validate: newValidator(),
	}
}

type SignUpInput struct {
	FirstName       string `json:"firstName" validate:"required,min=2"`
	LastName        string `json:"lastName" validate:"required,min=2"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,password"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"required,oneof=student instructor"`
}

func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*identity.PendingAccount, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := s.check(ctx, in); err != nil {
		return nil, err
	}

	role, err := user.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}

	return s.idp.SignUp(ctx, in.Email, in.Password, identity.Attributes{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		Role:      role,
	})
}

type ConfirmInput struct {
	Token string `json:"token" validate:"required"`
}

func (s *Service) ConfirmEmail(ctx context.Context, in ConfirmInput) error {
	if err := s.check(ctx, in); err != nil {
		return err
	}
	return s.idp.ConfirmSignUp(ctx, in.Token)
}

type SignInInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// SignInResult carries the new session, the caller's profile and the
// dashboard the caller should land on.
type SignInResult struct {
	Session    *session.Session `json:"-"`
	User       *user.User       `json:"user"`
	RedirectTo string           `json:"redirectTo"`
}

func (s *Service) SignIn(ctx context.Context, in SignInInput) (*SignInResult, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := s.check(ctx, in); err != nil {
		return nil, err
	}

	sess, err := s.idp.SignInWithPassword(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	return s.completeSignIn(ctx, sess)
}

// SignInWithIdentity finishes an external (OIDC) sign-in.
func (s *Service) SignInWithIdentity(ctx context.Context, id *auth.Identity) (*SignInResult, error) {
	sess, err := s.idp.SignInWithIdentity(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.completeSignIn(ctx, sess)
}

// completeSignIn loads the profile for a fresh session. A sign-in never
// leaves a session behind when the profile cannot be read.
func (s *Service) completeSignIn(ctx context.Context, sess *session.Session) (*SignInResult, error) {
	profile, err := s.users.GetUserProfile(ctx, sess.UserID)
	if err == nil {
		return &SignInResult{
			Session:    sess,
			User:       profile,
			RedirectTo: route.RoleHome(profile.Role),
		}, nil
	}

	if signOutErr := s.idp.SignOut(ctx, sess.SessionID); signOutErr != nil {
		logger.Error("failed to revoke session after sign-in failure", map[string]any{
			"user_id": sess.UserID,
			"error":   signOutErr,
		})
	}

	if errors.Is(err, user.ErrNotFound) {
		logger.Warn("authenticated user has no profile record", map[string]any{
			"user_id": sess.UserID,
		})
		return nil, ErrUserRecordMissing
	}
	return nil, fmt.Errorf("%w: load profile: %v", identity.ErrUnavailable, err)
}

// SignOut ends the session. An empty or unknown session id is not an error.
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	return s.idp.SignOut(ctx, sessionID)
}

type ResetRequestInput struct {
	Email string `json:"email" validate:"required,email"`
}

// RequestPasswordReset asks the provider to mail a reset link pointing at
// the update-password page.
func (s *Service) RequestPasswordReset(ctx context.Context, in ResetRequestInput) error {
	in.Email = strings.TrimSpace(in.Email)
	if err := s.check(ctx, in); err != nil {
		return err
	}
	return s.idp.SendPasswordReset(ctx, in.Email, s.baseURL+updatePasswordPath)
}

type UpdatePasswordInput struct {
	Password        string `json:"password" validate:"required,password"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
	// Token is the reset token from the emailed link. Without it the
	// caller's session is the subject.
	Token string `json:"token"`
}

func (s *Service) UpdatePassword(ctx context.Context, sessionID string, in UpdatePasswordInput) error {
	if err := s.check(ctx, in); err != nil {
		return err
	}

	subject := identity.Subject{SessionID: sessionID}
	if in.Token != "" {
		subject = identity.Subject{ResetToken: in.Token}
	}
	return s.idp.UpdatePassword(ctx, subject, in.Password)
}

// CurrentUser returns the caller's profile, or nil for anonymous callers and
// sessions without a profile row.
func (s *Service) CurrentUser(r *http.Request) (*user.User, error) {
	sess, err := s.idp.GetSession(r)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, nil
	}

	profile, err := s.users.GetUserProfile(r.Context(), sess.UserID)
	if errors.Is(err, user.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load profile: %v", identity.ErrUnavailable, err)
	}
	return profile, nil
}

type ProfileInput struct {
	FirstName   *string `json:"firstName" validate:"omitempty,min=2,max=100"`
	LastName    *string `json:"lastName" validate:"omitempty,min=2,max=100"`
	Department  *string `json:"department" validate:"omitempty,max=120"`
	Preferences *string `json:"preferences" validate:"omitempty,max=2000"`
}

// UpdateProfile patches the caller's own profile. Role, email and status
// cannot be changed here.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*user.User, error) {
	if err := s.check(ctx, in); err != nil {
		return nil, err
	}

	return s.users.UpdateUserProfile(ctx, userID, user.Patch{
		FirstName:   trimmed(in.FirstName),
		LastName:    trimmed(in.LastName),
		Department:  in.Department,
		Preferences: in.Preferences,
	})
}

func (s *Service) check(ctx context.Context, in any) error {
	if err := s.validate.StructCtx(ctx, in); err != nil {
		return toValidationError(err)
	}
	return nil
}

func trimmed(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

// Profile loads a signed-in caller's profile.
func (s *Service) Profile(ctx context.Context, userID string) (*user.User, error) {
	profile, err := s.users.GetUserProfile(ctx, userID)
	if errors.Is(err, user.ErrNotFound) {
		return nil, ErrUserRecordMissing
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load profile: %v", identity.ErrUnavailable, err)
	}
	return profile, nil
}
