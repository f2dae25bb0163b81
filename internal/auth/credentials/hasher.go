package credentials

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	HashVersionBcrypt = "bcrypt"
)

// ErrPasswordTooShort guards the hasher itself; richer policy checks run
// before any credential call is made.
var ErrPasswordTooShort = errors.New("password too short")

// bcrypt ignores input past 72 bytes; reject instead of silently truncating.
var ErrPasswordTooLong = errors.New("password too long")

// HashPassword hashes a plaintext password using bcrypt.
func HashPassword(password string) (hash string, version string, err error) {
	if len(password) < 8 {
		return "", "", ErrPasswordTooShort
	}
	if len(password) > 72 {
		return "", "", ErrPasswordTooLong
	}

	bytes, err := bcrypt.GenerateFromPassword(
		[]byte(password),
		bcrypt.DefaultCost,
	)
	if err != nil {
		return "", "", err
	}

	return string(bytes), HashVersionBcrypt, nil
}

// VerifyPassword compares plaintext password with stored hash.
func VerifyPassword(hash string, password string) error {
	return bcrypt.CompareHashAndPassword(
		[]byte(hash),
		[]byte(password),
	)
}

// dummyHash is compared against when no credential exists so that unknown
// emails cost the same as wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("timing-equalizer-password"), bcrypt.DefaultCost)
