package account

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"classteamup/internal/auth"
	"classteamup/internal/identity"
	"classteamup/internal/session"
	"classteamup/internal/user"
)

type mockProvider struct {
	signUpCalls         int
	signInCalls         int
	signOutCalls        []string
	resetCalls          int
	resetCallbackURL    string
	updateCalls         int
	updateSubject       identity.Subject
	confirmCalls        int
	signInErr           error
	session             *session.Session
	signUpAttrs         identity.Attributes
	getSessionErr       error
	getSessionResponses *session.Session
}

func (m *mockProvider) GetSession(*http.Request) (*session.Session, error) {
	return m.getSessionResponses, m.getSessionErr
}

func (m *mockProvider) SignInWithPassword(_ context.Context, _, _ string) (*session.Session, error) {
	m.signInCalls++
	if m.signInErr != nil {
		return nil, m.signInErr
	}
	return m.session, nil
}

func (m *mockProvider) SignInWithIdentity(context.Context, *auth.Identity) (*session.Session, error) {
	m.signInCalls++
	return m.session, m.signInErr
}

func (m *mockProvider) SignUp(_ context.Context, email, _ string, attrs identity.Attributes) (*identity.PendingAccount, error) {
	m.signUpCalls++
	m.signUpAttrs = attrs
	return &identity.PendingAccount{UserID: "u-new", Email: email}, nil
}

func (m *mockProvider) ConfirmSignUp(context.Context, string) error {
	m.confirmCalls++
	return nil
}

func (m *mockProvider) SignOut(_ context.Context, sessionID string) error {
	m.signOutCalls = append(m.signOutCalls, sessionID)
	return nil
}

func (m *mockProvider) SendPasswordReset(_ context.Context, _, callbackURL string) error {
	m.resetCalls++
	m.resetCallbackURL = callbackURL
	return nil
}

func (m *mockProvider) UpdatePassword(_ context.Context, subject identity.Subject, _ string) error {
	m.updateCalls++
	m.updateSubject = subject
	return nil
}

func (m *mockProvider) Subscribe() <-chan identity.Event { return nil }

type mockUsers struct {
	users     map[string]*user.User
	err       error
	lastPatch user.Patch
}

func (m *mockUsers) GetUserRole(_ context.Context, id string) (user.Role, error) {
	u, err := m.GetUserProfile(context.Background(), id)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

func (m *mockUsers) GetUserProfile(_ context.Context, id string) (*user.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (m *mockUsers) UpdateUserProfile(_ context.Context, id string, patch user.Patch) (*user.User, error) {
	m.lastPatch = patch
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	if patch.FirstName != nil {
		u.FirstName = *patch.FirstName
	}
	return u, nil
}

func (m *mockUsers) TouchLastLogin(context.Context, string, time.Time) error { return nil }

func newTestService() (*Service, *mockProvider, *mockUsers) {
	idp := &mockProvider{
		session: &session.Session{SessionID: "sid-1", UserID: "u-1", ExpiresAt: time.Now().Add(time.Hour)},
	}
	users := &mockUsers{users: map[string]*user.User{
		"u-1": {ID: "u-1", FirstName: "Grace", Role: user.RoleInstructor, Status: user.StatusActive},
	}}
	return NewService(idp, users, "https://teamup.example.edu/"), idp, users
}

func validSignUp() SignUpInput {
	return SignUpInput{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Email:           "ada@example.edu",
		Password:        "Secur3!Pass",
		ConfirmPassword: "Secur3!Pass",
		Role:            "student",
	}
}

func TestSignUpPassesAttributes(t *testing.T) {
	svc, idp, _ := newTestService()

	pending, err := svc.SignUp(context.Background(), validSignUp())
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if pending.Email != "ada@example.edu" {
		t.Fatalf("unexpected pending account %+v", pending)
	}
	if idp.signUpAttrs.Role != user.RoleStudent || idp.signUpAttrs.FirstName != "Ada" {
		t.Fatalf("unexpected attributes %+v", idp.signUpAttrs)
	}
}

func TestSignUpValidation(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*SignUpInput)
		field string
	}{
		{"short first name", func(in *SignUpInput) { in.FirstName = "A" }, "firstName"},
		{"missing last name", func(in *SignUpInput) { in.LastName = "" }, "lastName"},
		{"bad email", func(in *SignUpInput) { in.Email = "not-an-email" }, "email"},
		{"weak password", func(in *SignUpInput) { in.Password, in.ConfirmPassword = "password", "password" }, "password"},
		{"mismatch", func(in *SignUpInput) { in.ConfirmPassword = "Secur3!Pass?" }, "confirmPassword"},
		{"unknown role", func(in *SignUpInput) { in.Role = "admin" }, "role"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, idp, _ := newTestService()
			in := validSignUp()
			tt.edit(&in)

			_, err := svc.SignUp(context.Background(), in)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if !verr.Has(tt.field) {
				t.Fatalf("expected %s to be reported, got %+v", tt.field, verr.Fields)
			}
			if idp.signUpCalls != 0 {
				t.Fatal("provider must not be called on invalid input")
			}
		})
	}
}

func TestUpdatePasswordMismatchNeverReachesProvider(t *testing.T) {
	svc, idp, _ := newTestService()

	err := svc.UpdatePassword(context.Background(), "sid-1", UpdatePasswordInput{
		Password:        "Abc12345",
		ConfirmPassword: "Abc12345!",
	})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !verr.Has("confirmPassword") {
		t.Fatalf("expected confirmPassword in %+v", verr.Fields)
	}
	if idp.updateCalls != 0 {
		t.Fatalf("provider called %d times", idp.updateCalls)
	}
}

func TestUpdatePasswordSubject(t *testing.T) {
	svc, idp, _ := newTestService()
	in := UpdatePasswordInput{Password: "N3w!Password", ConfirmPassword: "N3w!Password"}

	if err := svc.UpdatePassword(context.Background(), "sid-1", in); err != nil {
		t.Fatalf("update: %v", err)
	}
	if idp.updateSubject != (identity.Subject{SessionID: "sid-1"}) {
		t.Fatalf("expected session subject, got %+v", idp.updateSubject)
	}

	in.Token = "reset-token"
	if err := svc.UpdatePassword(context.Background(), "sid-1", in); err != nil {
		t.Fatalf("update: %v", err)
	}
	if idp.updateSubject != (identity.Subject{ResetToken: "reset-token"}) {
		t.Fatalf("expected token subject, got %+v", idp.updateSubject)
	}
}

func TestSignInReturnsRoleHome(t *testing.T) {
	svc, _, _ := newTestService()

	res, err := svc.SignIn(context.Background(), SignInInput{Email: " grace@example.edu ", Password: "x"})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if res.Session.SessionID != "sid-1" || res.RedirectTo != "/dashboard/instructor" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestSignInEmptyFieldsRejected(t *testing.T) {
	svc, idp, _ := newTestService()

	_, err := svc.SignIn(context.Background(), SignInInput{Email: "", Password: ""})
	var verr *ValidationError
	if !errors.As(err, &verr) || !verr.Has("email") || !verr.Has("password") {
		t.Fatalf("expected email and password errors, got %v", err)
	}
	if idp.signInCalls != 0 {
		t.Fatal("provider must not be called")
	}
}

func TestSignInInvalidCredentialsPassThrough(t *testing.T) {
	svc, idp, _ := newTestService()
	idp.signInErr = identity.ErrInvalidCredentials

	res, err := svc.SignIn(context.Background(), SignInInput{Email: "grace@example.edu", Password: "wrong"})
	if !errors.Is(err, identity.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if res != nil {
		t.Fatalf("expected no result, got %+v", res)
	}
}

func TestSignInWithoutProfileRevokesSession(t *testing.T) {
	svc, idp, users := newTestService()
	delete(users.users, "u-1")

	_, err := svc.SignIn(context.Background(), SignInInput{Email: "grace@example.edu", Password: "x"})
	if !errors.Is(err, ErrUserRecordMissing) {
		t.Fatalf("expected ErrUserRecordMissing, got %v", err)
	}
	if len(idp.signOutCalls) != 1 || idp.signOutCalls[0] != "sid-1" {
		t.Fatalf("expected the new session to be revoked, got %v", idp.signOutCalls)
	}
}

func TestSignInProfileStoreDown(t *testing.T) {
	svc, idp, users := newTestService()
	users.err = errors.New("connection reset")

	_, err := svc.SignIn(context.Background(), SignInInput{Email: "grace@example.edu", Password: "x"})
	if !errors.Is(err, identity.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if len(idp.signOutCalls) != 1 {
		t.Fatal("expected session to be revoked")
	}
}

func TestRequestPasswordResetCallback(t *testing.T) {
	svc, idp, _ := newTestService()

	if err := svc.RequestPasswordReset(context.Background(), ResetRequestInput{Email: "grace@example.edu"}); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if idp.resetCallbackURL != "https://teamup.example.edu/auth/update-password" {
		t.Fatalf("unexpected callback %q", idp.resetCallbackURL)
	}

	err := svc.RequestPasswordReset(context.Background(), ResetRequestInput{Email: "nope"})
	var verr *ValidationError
	if !errors.As(err, &verr) || !verr.Has("email") {
		t.Fatalf("expected email validation error, got %v", err)
	}
	if idp.resetCalls != 1 {
		t.Fatalf("expected one provider call, got %d", idp.resetCalls)
	}
}

func TestConfirmEmailRequiresToken(t *testing.T) {
	svc, idp, _ := newTestService()

	var verr *ValidationError
	if err := svc.ConfirmEmail(context.Background(), ConfirmInput{}); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if err := svc.ConfirmEmail(context.Background(), ConfirmInput{Token: "t"}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if idp.confirmCalls != 1 {
		t.Fatalf("expected one confirm call, got %d", idp.confirmCalls)
	}
}

func TestSignOutDelegates(t *testing.T) {
	svc, idp, _ := newTestService()

	if err := svc.SignOut(context.Background(), ""); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if len(idp.signOutCalls) != 1 {
		t.Fatal("expected provider sign-out to be called")
	}
}

func TestCurrentUser(t *testing.T) {
	svc, idp, _ := newTestService()
	r := httptest.NewRequest(http.MethodGet, "/api/me", nil)

	u, err := svc.CurrentUser(r)
	if err != nil || u != nil {
		t.Fatalf("expected anonymous caller, got %+v, %v", u, err)
	}

	idp.getSessionResponses = idp.session
	u, err = svc.CurrentUser(r)
	if err != nil || u == nil || u.ID != "u-1" {
		t.Fatalf("expected profile for u-1, got %+v, %v", u, err)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, _, users := newTestService()
	name := "  Grace "

	u, err := svc.UpdateProfile(context.Background(), "u-1", ProfileInput{FirstName: &name})
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if u.FirstName != "Grace" || users.lastPatch.LastName != nil {
		t.Fatalf("unexpected patch result %+v / %+v", u, users.lastPatch)
	}

	short := "G"
	var verr *ValidationError
	if _, err := svc.UpdateProfile(context.Background(), "u-1", ProfileInput{FirstName: &short}); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestPasswordMeetsPolicy(t *testing.T) {
	tests := map[string]bool{
		"Abc12345":    false,
		"Abc1234!":    true,
		"abc1234!":    false,
		"ABC1234!":    false,
		"Abcdefg!":    false,
		"Ab1!":        false,
		"Pässw0rd!":   true,
		"Secur3 Pass": true,
	}
	for pw, want := range tests {
		if got := PasswordMeetsPolicy(pw); got != want {
			t.Fatalf("PasswordMeetsPolicy(%q) = %v, want %v", pw, got, want)
		}
	}
}

func TestValidatorEnforcesPasswordTag(t *testing.T) {
	v := newValidator()

	type form struct {
		Password string `json:"password" validate:"password"`
	}

	if err := v.Struct(form{Password: "Abc1234!"}); err != nil {
		t.Fatalf("expected strong password to pass, got %v", err)
	}

	verr, ok := toValidationError(v.Struct(form{Password: "abc"})).(*ValidationError)
	if !ok || !verr.Has("password") {
		t.Fatalf("expected a password field error, got %v", verr)
	}
}
