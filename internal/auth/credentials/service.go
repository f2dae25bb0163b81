package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"classteamup/internal/db"
	"classteamup/internal/user"

	"github.com/google/uuid"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyRegistered  = errors.New("credentials already exist")
	ErrNotRegistered      = errors.New("no credentials for email")
)

type Service struct {
	db *db.DB
}

func NewService(db *db.DB) *Service {
	return &Service{db: db}
}

// Register creates the user row and its password credential in one
// transaction. The account starts in the pending state.
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, error) {
	if !in.Role.Valid() {
		return "", fmt.Errorf("credentials: invalid role %q", in.Role)
	}

	hash, version, err := HashPassword(in.Password)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	var userID uuid.UUID

	// 1. Create user; the unique index on LOWER(email) rejects duplicates
	err = tx.QueryRowContext(ctx, `
		INSERT INTO users (email, first_name, last_name, role, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`,
		normalizeEmail(in.Email),
		in.FirstName,
		in.LastName,
		string(in.Role),
		string(user.StatusPending),
	).Scan(&userID)

	if db.IsUniqueViolation(err) {
		return "", ErrAlreadyRegistered
	}
	if err != nil {
		return "", err
	}

	// 2. Insert credentials
	_, err = tx.ExecContext(ctx, `
		INSERT INTO credentials (user_id, password_hash, hash_version)
		VALUES ($1, $2, $3)
	`, userID, hash, version)

	if db.IsUniqueViolation(err) {
		return "", ErrAlreadyRegistered
	}
	if err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}

	return userID.String(), nil
}

// Authenticate verifies the password and returns the credential with the
// user's current status. Status policy is left to the caller.
func (s *Service) Authenticate(
	ctx context.Context,
	email string,
	password string,
) (*Credential, error) {

	var (
		cred   Credential
		status string
	)

	// 1. Find user + credentials
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.status, c.password_hash, c.hash_version
		FROM users u
		JOIN credentials c ON c.user_id = u.id
		WHERE LOWER(u.email) = LOWER($1)
	`, normalizeEmail(email)).Scan(&cred.UserID, &status, &cred.PasswordHash, &cred.HashVersion)

	if errors.Is(err, sql.ErrNoRows) {
		// hide whether user exists or not
		_ = VerifyPassword(string(dummyHash), password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	// 2. Verify password
	if err := VerifyPassword(cred.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}

	if cred.Status, err = user.ParseStatus(status); err != nil {
		return nil, err
	}

	return &cred, nil
}

// LookupByEmail returns the id of the user holding a password credential.
func (s *Service) LookupByEmail(ctx context.Context, email string) (string, error) {
	var userID uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id
		FROM users u
		JOIN credentials c ON c.user_id = u.id
		WHERE LOWER(u.email) = LOWER($1)
	`, normalizeEmail(email)).Scan(&userID)

	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotRegistered
	}
	if err != nil {
		return "", err
	}
	return userID.String(), nil
}

// SetPassword replaces the user's password hash, creating the credential
// when the account so far only signed in through an external provider.
func (s *Service) SetPassword(ctx context.Context, userID string, password string) error {
	hash, version, err := HashPassword(password)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO credentials (user_id, password_hash, hash_version)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET password_hash = EXCLUDED.password_hash,
		    hash_version = EXCLUDED.hash_version,
		    updated_at = NOW()
	`, userID, hash, version)
	return err
}

// Activate moves a pending account to active. Already-active accounts are
// left untouched; inactive accounts stay inactive.
func (s *Service) Activate(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`, userID, string(user.StatusActive), string(user.StatusPending))
	return err
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}
