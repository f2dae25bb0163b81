package resolver

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"classteamup/internal/auth"
	"classteamup/internal/db"
	"classteamup/internal/user"

	"github.com/google/uuid"
)

// DBResolver resolves identities using the database. New users created from
// an external identity are students; instructors are promoted by an operator.
type DBResolver struct {
	db *db.DB
}

func NewDBResolver(db *db.DB) *DBResolver {
	return &DBResolver{db: db}
}

func (r *DBResolver) Resolve(
	ctx context.Context,
	identity *auth.Identity,
) (string, error) {

	if identity == nil {
		return "", errors.New("identity is nil")
	}

	// 1. Try identity lookup (provider + provider_user_id)
	var (
		userID uuid.UUID
		status string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT u.id, u.status
		FROM identities i
		JOIN users u ON u.id = i.user_id
		WHERE i.provider = $1
		  AND i.provider_user_id = $2
	`,
		identity.Provider,
		identity.ProviderUserID,
	).Scan(&userID, &status)

	if err == nil {
		return checkStatus(userID, status)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	// linking hands over an existing account and creating one claims the
	// address; both need the provider to vouch for it
	if !identity.EmailVerified {
		return "", ErrUnverifiedEmail
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	// 2. Try email-based linking (existing user, new provider)
	err = tx.QueryRowContext(ctx, `
		SELECT id, status
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`,
		strings.TrimSpace(identity.Email),
	).Scan(&userID, &status)

	switch {
	case err == nil:
		if user.Status(status) == user.StatusInactive {
			return "", ErrAccountDisabled
		}
		// a verified address completes a pending email confirmation
		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET status = $2, updated_at = NOW()
			WHERE id = $1 AND status = $3
		`, userID, string(user.StatusActive), string(user.StatusPending)); err != nil {
			return "", err
		}

	case errors.Is(err, sql.ErrNoRows):
		// 3. Create new user
		err = tx.QueryRowContext(ctx, `
			INSERT INTO users (email, first_name, last_name, role, status)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`,
			strings.TrimSpace(identity.Email),
			identity.GivenName,
			identity.FamilyName,
			string(user.RoleStudent),
			string(user.StatusActive),
		).Scan(&userID)
		if err != nil {
			return "", err
		}

	default:
		return "", err
	}

	// 4. Create identity mapping
	_, err = tx.ExecContext(ctx, `
		INSERT INTO identities (user_id, provider, provider_user_id)
		VALUES ($1, $2, $3)
	`,
		userID,
		identity.Provider,
		identity.ProviderUserID,
	)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	return userID.String(), nil
}

func checkStatus(userID uuid.UUID, status string) (string, error) {
	if user.Status(status) == user.StatusInactive {
		return "", ErrAccountDisabled
	}
	return userID.String(), nil
}
