package app

import (
	"context"
	"time"

	"classteamup/internal/identity"
	"classteamup/internal/logger"
)

const touchTimeout = 3 * time.Second

type lastLoginRecorder interface {
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error
}

// watchSessions consumes the session-change feed until it is closed. Sign-ins
// update the user's last-login timestamp; every event is logged. The returned
// channel is closed once the feed has been drained.
func watchSessions(events <-chan identity.Event, users lastLoginRecorder) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)

		for ev := range events {
			logger.Info("session event", map[string]any{
				"event":   string(ev.Type),
				"user_id": ev.UserID,
			})

			if ev.Type != identity.EventSignedIn {
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), touchTimeout)
			if err := users.TouchLastLogin(ctx, ev.UserID, ev.At); err != nil {
				logger.Warn("failed to record last login", map[string]any{
					"user_id": ev.UserID,
					"error":   err,
				})
			}
			cancel()
		}
	}()

	return done
}
