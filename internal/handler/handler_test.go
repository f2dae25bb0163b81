package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"classteamup/internal/account"
	"classteamup/internal/auth"
	"classteamup/internal/auth/provider"
	"classteamup/internal/identity"
	"classteamup/internal/middleware"
	"classteamup/internal/session"
	"classteamup/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

// fakeIdentity keeps sessions in memory and accepts one password.
type fakeIdentity struct {
	sessions    map[string]*session.Session
	password    string
	userID      string
	signUpCalls int
	updateCalls int
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		sessions: map[string]*session.Session{},
		password: "Secur3!Pass",
		userID:   "u-1",
	}
}

func (f *fakeIdentity) GetSession(r *http.Request) (*session.Session, error) {
	return f.sessions[session.IDFromRequest(r)], nil
}

func (f *fakeIdentity) SignInWithPassword(_ context.Context, _, password string) (*session.Session, error) {
	if password != f.password {
		return nil, identity.ErrInvalidCredentials
	}
	return f.newSession(), nil
}

func (f *fakeIdentity) SignInWithIdentity(context.Context, *auth.Identity) (*session.Session, error) {
	return f.newSession(), nil
}

func (f *fakeIdentity) newSession() *session.Session {
	s := &session.Session{
		SessionID: "sid-" + f.userID,
		UserID:    f.userID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	f.sessions[s.SessionID] = s
	return s
}

func (f *fakeIdentity) SignUp(_ context.Context, email, _ string, _ identity.Attributes) (*identity.PendingAccount, error) {
	f.signUpCalls++
	if email == "taken@example.edu" {
		return nil, identity.ErrDuplicateEmail
	}
	return &identity.PendingAccount{UserID: "u-new", Email: email}, nil
}

func (f *fakeIdentity) ConfirmSignUp(_ context.Context, token string) error {
	if token != "good" {
		return identity.ErrInvalidToken
	}
	return nil
}

func (f *fakeIdentity) SignOut(_ context.Context, sessionID string) error {
	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeIdentity) SendPasswordReset(context.Context, string, string) error { return nil }

func (f *fakeIdentity) UpdatePassword(context.Context, identity.Subject, string) error {
	f.updateCalls++
	return nil
}

func (f *fakeIdentity) Subscribe() <-chan identity.Event { return nil }

type fakeUsers struct {
	users map[string]*user.User
}

func (f *fakeUsers) GetUserRole(_ context.Context, id string) (user.Role, error) {
	u, ok := f.users[id]
	if !ok {
		return "", user.ErrNotFound
	}
	return u.Role, nil
}

func (f *fakeUsers) GetUserProfile(_ context.Context, id string) (*user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) UpdateUserProfile(_ context.Context, id string, p user.Patch) (*user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	if p.Department != nil {
		u.Department = p.Department
	}
	return u, nil
}

func (f *fakeUsers) TouchLastLogin(context.Context, string, time.Time) error { return nil }

type testApp struct {
	router *gin.Engine
	idp    *fakeIdentity
	users  *fakeUsers
}

func newTestApp(role user.Role) *testApp {
	gin.SetMode(gin.TestMode)

	idp := newFakeIdentity()
	users := &fakeUsers{users: map[string]*user.User{
		"u-1": {ID: "u-1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.edu", Role: role, Status: user.StatusActive},
	}}

	accounts := account.NewService(idp, users, "https://teamup.example.edu")
	mw := middleware.NewAuthMiddleware(middleware.NewSessionResolver(idp, users))

	r := gin.New()
	NewHandler(accounts, provider.NewRegistry(), session.CookieOptions{Secure: true}).RegisterRoutes(r, mw)

	return &testApp{router: r, idp: idp, users: users}
}

func (a *testApp) do(method, path, body, sessionID string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sessionID})
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func TestLoginSetsSessionCookie(t *testing.T) {
	app := newTestApp(user.RoleInstructor)

	w := app.do(http.MethodPost, "/api/auth/login", `{"email":"ada@example.edu","password":"Secur3!Pass"}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != "sid-u-1" || !cookie.HttpOnly || !cookie.Secure {
		t.Fatalf("unexpected session cookie %+v", cookie)
	}

	if got := decode(t, w)["redirectTo"]; got != "/dashboard/instructor" {
		t.Fatalf("expected instructor home, got %v", got)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	app := newTestApp(user.RoleStudent)

	w := app.do(http.MethodPost, "/api/auth/login", `{"email":"ada@example.edu","password":"nope"}`, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if len(w.Result().Cookies()) != 0 {
		t.Fatal("expected no cookie on failed login")
	}
	if len(app.idp.sessions) != 0 {
		t.Fatal("expected no session")
	}
}

func TestLoginMissingProfile(t *testing.T) {
	app := newTestApp(user.RoleStudent)
	delete(app.users.users, "u-1")

	w := app.do(http.MethodPost, "/api/auth/login", `{"email":"ada@example.edu","password":"Secur3!Pass"}`, "")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	if len(app.idp.sessions) != 0 {
		t.Fatal("expected the session to be revoked")
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	app := newTestApp(user.RoleStudent)

	w := app.do(http.MethodPost, "/api/auth/logout", "", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 without session, got %d", w.Code)
	}

	sess := app.idp.newSession()
	w = app.do(http.MethodPost, "/api/auth/logout", "", sess.SessionID)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if _, ok := app.idp.sessions[sess.SessionID]; ok {
		t.Fatal("expected session to be removed")
	}

	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("expected session cookie to be cleared")
	}
}

func TestSignUp(t *testing.T) {
	app := newTestApp(user.RoleStudent)
	body := `{"firstName":"Grace","lastName":"Hopper","email":"grace@example.edu",
		"password":"Secur3!Pass","confirmPassword":"Secur3!Pass","role":"instructor"}`

	w := app.do(http.MethodPost, "/api/auth/signup", body, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(w.Result().Cookies()) != 0 {
		t.Fatal("sign-up must not start a session")
	}

	w = app.do(http.MethodPost, "/api/auth/signup", strings.Replace(body, "grace@", "taken@", 1), "")
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate email, got %d", w.Code)
	}
}

func TestSignUpValidationFields(t *testing.T) {
	app := newTestApp(user.RoleStudent)
	body := `{"firstName":"G","lastName":"Hopper","email":"grace@example.edu",
		"password":"Secur3!Pass","confirmPassword":"different","role":"instructor"}`

	w := app.do(http.MethodPost, "/api/auth/signup", body, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	fields, _ := decode(t, w)["fields"].([]any)
	got := map[string]bool{}
	for _, f := range fields {
		if m, ok := f.(map[string]any); ok {
			got[m["field"].(string)] = true
		}
	}
	if !got["firstName"] || !got["confirmPassword"] {
		t.Fatalf("expected firstName and confirmPassword errors, got %v", fields)
	}
	if app.idp.signUpCalls != 0 {
		t.Fatal("provider must not be called")
	}
}

func TestUpdatePasswordMismatch(t *testing.T) {
	app := newTestApp(user.RoleStudent)

	w := app.do(http.MethodPost, "/api/auth/update-password", `{"password":"Abc12345","confirmPassword":"Abc12345!"}`, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if app.idp.updateCalls != 0 {
		t.Fatal("provider must not be called")
	}
}

func TestConfirmAndResetEndpoints(t *testing.T) {
	app := newTestApp(user.RoleStudent)

	if w := app.do(http.MethodPost, "/api/auth/confirm", `{"token":"bad"}`, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad token, got %d", w.Code)
	}
	if w := app.do(http.MethodPost, "/api/auth/confirm", `{"token":"good"}`, ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := app.do(http.MethodPost, "/api/auth/reset-password", `{"email":"someone@example.edu"}`, ""); w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", w.Code)
	}
	if w := app.do(http.MethodPost, "/api/auth/reset-password", `not json`, ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", w.Code)
	}
}

func TestPagesAreGuarded(t *testing.T) {
	app := newTestApp(user.RoleStudent)

	w := app.do(http.MethodGet, "/dashboard/instructor", "", "")
	if w.Code != http.StatusTemporaryRedirect || w.Header().Get("Location") != "/auth/login" {
		t.Fatalf("expected redirect to login, got %d %q", w.Code, w.Header().Get("Location"))
	}

	sess := app.idp.newSession()

	w = app.do(http.MethodGet, "/dashboard/instructor", "", sess.SessionID)
	if w.Code != http.StatusTemporaryRedirect || w.Header().Get("Location") != "/dashboard/student" {
		t.Fatalf("expected redirect to student home, got %d %q", w.Code, w.Header().Get("Location"))
	}

	w = app.do(http.MethodGet, "/auth/login", "", sess.SessionID)
	if w.Code != http.StatusTemporaryRedirect || w.Header().Get("Location") != "/dashboard/student" {
		t.Fatalf("expected signed-in user to leave the login page, got %d", w.Code)
	}

	w = app.do(http.MethodGet, "/dashboard/student/teams", "", sess.SessionID)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := decode(t, w)
	if body["dashboard"] != "student" {
		t.Fatalf("unexpected dashboard %v", body["dashboard"])
	}

	w = app.do(http.MethodGet, "/auth/login", "", "")
	if w.Code != http.StatusOK || decode(t, w)["page"] != "login" {
		t.Fatalf("expected login page, got %d %s", w.Code, w.Body.String())
	}
}

func TestProfileEndpoints(t *testing.T) {
	app := newTestApp(user.RoleStudent)

	if w := app.do(http.MethodGet, "/api/me", "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	sess := app.idp.newSession()
	w := app.do(http.MethodGet, "/api/me", "", sess.SessionID)
	if w.Code != http.StatusOK || decode(t, w)["email"] != "ada@example.edu" {
		t.Fatalf("unexpected profile response %d %s", w.Code, w.Body.String())
	}

	w = app.do(http.MethodPatch, "/api/me", `{"department":"Computer Science"}`, sess.SessionID)
	if w.Code != http.StatusOK || decode(t, w)["department"] != "Computer Science" {
		t.Fatalf("unexpected patch response %d %s", w.Code, w.Body.String())
	}

	w = app.do(http.MethodGet, "/api/auth/session", "", "")
	if w.Code != http.StatusOK || decode(t, w)["user"] != nil {
		t.Fatalf("expected null user for anonymous session, got %s", w.Body.String())
	}
}

func TestUnknownOAuthProvider(t *testing.T) {
	app := newTestApp(user.RoleStudent)

	if w := app.do(http.MethodGet, "/api/auth/oauth/github/login", "", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(user.RoleStudent)

	if w := app.do(http.MethodGet, "/health", "", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestGuardCoversUnregisteredPaths(t *testing.T) {
	app := newTestApp(user.RoleStudent)
	sess := app.idp.newSession()

	tests := []struct {
		name      string
		path      string
		sessionID string
		status    int
		location  string
	}{
		{"student on unknown auth page", "/auth/anything", sess.SessionID, http.StatusTemporaryRedirect, "/dashboard/student"},
		{"student on auth callback", "/auth/callback", sess.SessionID, http.StatusTemporaryRedirect, "/dashboard/student"},
		{"student on instructor prefix", "/dashboard/instructors", sess.SessionID, http.StatusTemporaryRedirect, "/dashboard/student"},
		{"anonymous on dashboard prefix", "/dashboardx", "", http.StatusTemporaryRedirect, "/auth/login"},
		{"anonymous on unknown auth page", "/auth/anything", "", http.StatusNotFound, ""},
		{"unknown api path", "/api/unknown", sess.SessionID, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(http.MethodGet, tt.path, "", tt.sessionID)
			if w.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, w.Code)
			}
			if got := w.Header().Get("Location"); got != tt.location {
				t.Fatalf("expected Location %q, got %q", tt.location, got)
			}
		})
	}
}
