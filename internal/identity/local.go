package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"classteamup/internal/auth"
	"classteamup/internal/auth/credentials"
	"classteamup/internal/auth/resolver"
	"classteamup/internal/auth/token"
	"classteamup/internal/logger"
	"classteamup/internal/mail"
	"classteamup/internal/ratelimit"
	"classteamup/internal/session"
	"classteamup/internal/user"
)

// CredentialStore is the subset of credentials.Service the provider uses.
type CredentialStore interface {
	Register(ctx context.Context, in credentials.RegisterInput) (string, error)
	Authenticate(ctx context.Context, email, password string) (*credentials.Credential, error)
	LookupByEmail(ctx context.Context, email string) (string, error)
	SetPassword(ctx context.Context, userID, password string) error
	Activate(ctx context.Context, userID string) error
}

type Limiter interface {
	Allow(ctx context.Context, identifier string) error
	Reset(ctx context.Context, identifier string) error
}

type Deps struct {
	Credentials  CredentialStore
	Identities   resolver.Resolver
	Sessions     session.Store
	Tokens       *token.Manager
	Mailer       mail.Mailer
	LoginLimiter Limiter
	ResetLimiter Limiter
}

type Config struct {
	// BaseURL is the public origin used for confirmation links.
	BaseURL    string
	SessionTTL time.Duration
	// EventBuffer sizes the session-change channel.
	EventBuffer int
}

// Local implements Provider on top of the application's own database,
// Redis session store and mailer.
type Local struct {
	deps   Deps
	cfg    Config
	events *Dispatcher
	now    func() time.Time
}

var _ Provider = (*Local)(nil)

func NewLocal(deps Deps, cfg Config) *Local {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	return &Local{
		deps:   deps,
		cfg:    cfg,
		events: NewDispatcher(cfg.EventBuffer),
		now:    time.Now,
	}
}

func (p *Local) GetSession(r *http.Request) (*session.Session, error) {
	sid := session.IDFromRequest(r)
	if sid == "" {
		return nil, nil
	}

	sess, err := p.deps.Sessions.Get(r.Context(), sid)
	if err != nil {
		return nil, unavailable("get session", err)
	}
	return sess, nil
}

func (p *Local) SignInWithPassword(ctx context.Context, email, password string) (*session.Session, error) {
	if err := p.deps.LoginLimiter.Allow(ctx, email); err != nil {
		return nil, limiterError(err)
	}

	cred, err := p.deps.Credentials.Authenticate(ctx, email, password)
	if errors.Is(err, credentials.ErrInvalidCredentials) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, unavailable("authenticate", err)
	}

	switch cred.Status {
	case user.StatusPending:
		return nil, ErrEmailNotConfirmed
	case user.StatusInactive:
		return nil, ErrAccountDisabled
	}

	if err := p.deps.LoginLimiter.Reset(ctx, email); err != nil {
		logger.Warn("login limiter reset failed", map[string]any{
			"error": err,
		})
	}

	return p.createSession(ctx, cred.UserID)
}

func (p *Local) SignInWithIdentity(ctx context.Context, id *auth.Identity) (*session.Session, error) {
	if id == nil || id.ProviderUserID == "" {
		return nil, ErrInvalidCredentials
	}

	userID, err := p.deps.Identities.Resolve(ctx, id)
	switch {
	case errors.Is(err, resolver.ErrAccountDisabled):
		return nil, ErrAccountDisabled
	case errors.Is(err, resolver.ErrUnverifiedEmail):
		return nil, ErrInvalidCredentials
	case err != nil:
		return nil, unavailable("resolve identity", err)
	}

	return p.createSession(ctx, userID)
}

func (p *Local) SignUp(ctx context.Context, email, password string, attrs Attributes) (*PendingAccount, error) {
	userID, err := p.deps.Credentials.Register(ctx, credentials.RegisterInput{
		Email:     email,
		Password:  password,
		FirstName: attrs.FirstName,
		LastName:  attrs.LastName,
		Role:      attrs.Role,
	})
	if errors.Is(err, credentials.ErrAlreadyRegistered) {
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, unavailable("register", err)
	}

	raw, err := p.deps.Tokens.Issue(userID, token.PurposeConfirmEmail)
	if err != nil {
		return nil, unavailable("issue confirmation token", err)
	}

	// A failed mail does not undo the account.
	if err := p.deps.Mailer.Send(ctx, mail.Message{
		To:      email,
		Subject: "Confirm your ClassTeamUp account",
		Body:    "Follow the link to confirm your email address.",
		Link:    withToken(p.cfg.BaseURL+"/auth/confirm", raw),
	}); err != nil {
		logger.Error("confirmation mail failed", map[string]any{
			"user_id": userID,
			"error":   err,
		})
	}

	return &PendingAccount{UserID: userID, Email: email}, nil
}

func (p *Local) ConfirmSignUp(ctx context.Context, raw string) error {
	claims, err := p.deps.Tokens.Redeem(ctx, raw, token.PurposeConfirmEmail)
	if err != nil {
		return tokenError(err)
	}

	if err := p.deps.Credentials.Activate(ctx, claims.Subject); err != nil {
		p.release(ctx, claims)
		return unavailable("activate", err)
	}

	p.emit(EventUserConfirmed, claims.Subject, "")
	return nil
}

func (p *Local) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}

	sess, err := p.deps.Sessions.Get(ctx, sessionID)
	if err != nil {
		return unavailable("get session", err)
	}
	if sess == nil {
		return nil
	}

	if err := p.deps.Sessions.Delete(ctx, sessionID); err != nil {
		return unavailable("delete session", err)
	}

	p.emit(EventSignedOut, sess.UserID, sessionID)
	return nil
}

// SendPasswordReset mails a reset link to registered emails. Unknown emails
// succeed silently so the endpoint cannot be used to enumerate accounts.
func (p *Local) SendPasswordReset(ctx context.Context, email, callbackURL string) error {
	if err := p.deps.ResetLimiter.Allow(ctx, email); err != nil {
		return limiterError(err)
	}

	userID, err := p.deps.Credentials.LookupByEmail(ctx, email)
	if errors.Is(err, credentials.ErrNotRegistered) {
		logger.Debug("password reset for unknown email", nil)
		return nil
	}
	if err != nil {
		return unavailable("lookup email", err)
	}

	raw, err := p.deps.Tokens.Issue(userID, token.PurposePasswordReset)
	if err != nil {
		return unavailable("issue reset token", err)
	}

	if err := p.deps.Mailer.Send(ctx, mail.Message{
		To:      email,
		Subject: "Reset your ClassTeamUp password",
		Body:    "Follow the link to choose a new password.",
		Link:    withToken(callbackURL, raw),
	}); err != nil {
		return unavailable("send reset mail", err)
	}

	p.emit(EventPasswordRecovery, userID, "")
	return nil
}

// UpdatePassword sets a new password for the subject. A reset-token change
// revokes every session of the user.
func (p *Local) UpdatePassword(ctx context.Context, subject Subject, newPassword string) error {
	var (
		userID    string
		sessionID string
		claims    *token.Claims
	)

	switch {
	case subject.ResetToken != "":
		redeemed, err := p.deps.Tokens.Redeem(ctx, subject.ResetToken, token.PurposePasswordReset)
		if err != nil {
			return tokenError(err)
		}
		userID, claims = redeemed.Subject, redeemed

	case subject.SessionID != "":
		sess, err := p.deps.Sessions.Get(ctx, subject.SessionID)
		if err != nil {
			return unavailable("get session", err)
		}
		if sess == nil {
			return ErrNoSession
		}
		userID, sessionID = sess.UserID, sess.SessionID

	default:
		return ErrNoSession
	}

	if err := p.deps.Credentials.SetPassword(ctx, userID, newPassword); err != nil {
		if claims != nil {
			p.release(ctx, claims)
		}
		return unavailable("set password", err)
	}

	if claims != nil {
		if err := p.deps.Sessions.DeleteAllForUser(ctx, userID); err != nil {
			logger.Warn("session revocation after reset failed", map[string]any{
				"user_id": userID,
				"error":   err,
			})
		}
	}

	p.emit(EventPasswordUpdated, userID, sessionID)
	return nil
}

// release undoes a redeem whose follow-up write failed. The write error is
// what the caller sees; a failed release is only logged.
func (p *Local) release(ctx context.Context, claims *token.Claims) {
	if err := p.deps.Tokens.Release(ctx, claims); err != nil {
		logger.Warn("token release failed", map[string]any{
			"user_id": claims.Subject,
			"error":   err,
		})
	}
}

func (p *Local) Subscribe() <-chan Event {
	return p.events.Subscribe()
}

// Close ends the event feed.
func (p *Local) Close() {
	p.events.Close()
}

func (p *Local) createSession(ctx context.Context, userID string) (*session.Session, error) {
	sid, err := session.GenerateID()
	if err != nil {
		return nil, unavailable("session id", err)
	}

	now := p.now()
	sess := session.Session{
		SessionID: sid,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(p.cfg.SessionTTL),
	}

	if err := p.deps.Sessions.Create(ctx, sess); err != nil {
		return nil, unavailable("create session", err)
	}

	p.emit(EventSignedIn, userID, sid)
	return &sess, nil
}

func (p *Local) emit(t EventType, userID, sessionID string) {
	p.events.Emit(Event{
		Type:      t,
		UserID:    userID,
		SessionID: sessionID,
		At:        p.now(),
	})
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}

func limiterError(err error) error {
	if errors.Is(err, ratelimit.ErrRateLimited) {
		return ErrRateLimited
	}
	return unavailable("rate limit", err)
}

func tokenError(err error) error {
	if errors.Is(err, token.ErrInvalid) || errors.Is(err, token.ErrConsumed) {
		return ErrInvalidToken
	}
	return unavailable("redeem token", err)
}

func withToken(base, raw string) string {
	return base + "?token=" + url.QueryEscape(raw)
}
