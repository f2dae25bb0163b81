package resolver

import (
	"context"
	"errors"

	"classteamup/internal/auth"
)

var (
	// ErrUnverifiedEmail is returned when an unknown identity carries an
	// email the provider has not verified. Such identities are neither
	// linked nor used to create a user.
	ErrUnverifiedEmail = errors.New("identity email not verified")
	ErrAccountDisabled = errors.New("account disabled")
)

// Resolver determines which internal user an external identity belongs to.
// It is the ONLY place where identity-to-user mapping logic lives.
type Resolver interface {
	Resolve(
		ctx context.Context,
		identity *auth.Identity,
	) (userID string, err error)
}
