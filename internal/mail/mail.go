// Package mail delivers transactional emails. Only a logging transport is
// provided; a real SMTP or API transport plugs in behind Mailer.
package mail

import (
	"context"
	"net/url"

	"classteamup/internal/logger"
)

const redacted = "REDACTED"

type Message struct {
	To      string
	Subject string
	Body    string
	// Link is the actionable URL (reset or confirmation) carried by the message.
	Link string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the process log instead of delivering them.
// Links carry live tokens, so they are logged with the token redacted; the
// full link is written at debug level only when revealLinks is set.
type LogMailer struct {
	revealLinks bool
}

func NewLogMailer(revealLinks bool) *LogMailer {
	return &LogMailer{revealLinks: revealLinks}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	logger.Info("mail dispatched", map[string]any{
		"subject": msg.Subject,
		"link":    RedactLink(msg.Link),
	})

	if m.revealLinks {
		logger.Debug("mail link", map[string]any{
			"to":   msg.To,
			"link": msg.Link,
		})
	}
	return nil
}

// RedactLink replaces the token query parameter. Links that do not parse are
// dropped entirely.
func RedactLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return redacted
	}

	q := u.Query()
	if q.Has("token") {
		q.Set("token", redacted)
		u.RawQuery = q.Encode()
	}
	return u.String()
}
