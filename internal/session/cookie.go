package session

import (
	"net/http"
	"time"
)

// CookieName carries the session id. The __Host- prefix makes browsers
// reject the cookie unless it is Secure, host-only and scoped to "/".
const CookieName = "__Host-session"

// CookieOptions tunes the session cookie. The zero value yields an
// HttpOnly, SameSite=Lax cookie on "/"; Secure must be set explicitly and is
// only turned off for local plain-HTTP development.
type CookieOptions struct {
	Secure   bool
	SameSite http.SameSite
}

func (o CookieOptions) build(value string) *http.Cookie {
	sameSite := o.SameSite
	if sameSite == 0 {
		sameSite = http.SameSiteLaxMode
	}
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: sameSite,
	}
}

// SetCookie hands the session to the browser until the session expires.
func SetCookie(w http.ResponseWriter, sessionID string, expiresAt time.Time, opts CookieOptions) {
	c := opts.build(sessionID)
	c.Expires = expiresAt
	http.SetCookie(w, c)
}

// ClearCookie tells the browser to drop the session cookie.
func ClearCookie(w http.ResponseWriter, opts CookieOptions) {
	c := opts.build("")
	c.MaxAge = -1
	http.SetCookie(w, c)
}

// IDFromRequest returns the session id carried by the request cookie, or "".
func IDFromRequest(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
