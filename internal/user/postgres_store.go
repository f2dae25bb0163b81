package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"classteamup/internal/db"

	"github.com/google/uuid"
)

const profileColumns = `id, email, first_name, last_name, role, status,
	department, preferences, created_at, updated_at, last_login`

// PostgresStore reads and updates profile rows in the users table.
type PostgresStore struct {
	db *db.DB
}

func NewPostgresStore(db *db.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) GetUserRole(ctx context.Context, userID string) (Role, error) {
	id, ok := parseID(userID)
	if !ok {
		return "", ErrNotFound
	}

	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT role FROM users WHERE id = $1
	`, id).Scan(&raw)

	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("user: get role: %w", err)
	}

	return ParseRole(raw)
}

func (s *PostgresStore) GetUserProfile(ctx context.Context, userID string) (*User, error) {
	id, ok := parseID(userID)
	if !ok {
		return nil, ErrNotFound
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM users
		WHERE id = $1
	`, id)

	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("user: get profile: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) UpdateUserProfile(ctx context.Context, userID string, patch Patch) (*User, error) {
	if patch.Empty() {
		return s.GetUserProfile(ctx, userID)
	}

	id, ok := parseID(userID)
	if !ok {
		return nil, ErrNotFound
	}

	row := s.db.QueryRowContext(ctx, `
		UPDATE users SET
			first_name  = COALESCE($2::text, first_name),
			last_name   = COALESCE($3::text, last_name),
			department  = COALESCE($4::text, department),
			preferences = COALESCE($5::text, preferences),
			updated_at  = NOW()
		WHERE id = $1
		RETURNING `+profileColumns,
		id,
		patch.FirstName,
		patch.LastName,
		patch.Department,
		patch.Preferences,
	)

	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("user: update profile: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	id, ok := parseID(userID)
	if !ok {
		return ErrNotFound
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET last_login = $2 WHERE id = $1
	`, id, at.UTC())
	if err != nil {
		return fmt.Errorf("user: touch last login: %w", err)
	}

	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func parseID(userID string) (uuid.UUID, bool) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u           User
		role        string
		status      string
		department  sql.NullString
		preferences sql.NullString
		lastLogin   sql.NullTime
	)

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.FirstName,
		&u.LastName,
		&role,
		&status,
		&department,
		&preferences,
		&u.CreatedAt,
		&u.UpdatedAt,
		&lastLogin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if u.Role, err = ParseRole(role); err != nil {
		return nil, err
	}
	if u.Status, err = ParseStatus(status); err != nil {
		return nil, err
	}
	if department.Valid {
		u.Department = &department.String
	}
	if preferences.Valid {
		u.Preferences = &preferences.String
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}

	return &u, nil
}
