// Package token issues and redeems the signed links sent by email:
// password-reset and sign-up confirmation. Tokens are HS256 JWTs scoped to a
// purpose and redeemable once.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Purpose string

const (
	PurposePasswordReset Purpose = "password_reset"
	PurposeConfirmEmail  Purpose = "confirm_email"
)

const issuer = "classteamup"

var (
	ErrInvalid  = errors.New("token invalid")
	ErrConsumed = errors.New("token already used")
)

type Claims struct {
	Purpose Purpose `json:"pur"`
	jwt.RegisteredClaims
}

// Manager signs tokens and tracks redeemed token ids in Redis.
type Manager struct {
	secret []byte
	rdb    redis.UniversalClient
	ttls   map[Purpose]time.Duration
	now    func() time.Time
}

func NewManager(secret []byte, rdb redis.UniversalClient, resetTTL, confirmTTL time.Duration) (*Manager, error) {
	if len(secret) < 32 {
		return nil, errors.New("token: secret must be at least 32 bytes")
	}
	if resetTTL <= 0 || confirmTTL <= 0 {
		return nil, errors.New("token: invalid ttl configuration")
	}
	return &Manager{
		secret: secret,
		rdb:    rdb,
		ttls: map[Purpose]time.Duration{
			PurposePasswordReset: resetTTL,
			PurposeConfirmEmail:  confirmTTL,
		},
		now: time.Now,
	}, nil
}

// Issue returns a signed token binding userID to purpose.
func (m *Manager) Issue(userID string, purpose Purpose) (string, error) {
	ttl, ok := m.ttls[purpose]
	if !ok {
		return "", fmt.Errorf("token: unknown purpose %q", purpose)
	}

	now := m.now()
	claims := Claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Parse verifies signature, expiry and purpose without consuming the token.
func (m *Manager) Parse(raw string, purpose Purpose) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if claims.Purpose != purpose || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalid
	}
	return &claims, nil
}

// Redeem verifies the token and marks it used. A second redeem of the same
// token fails with ErrConsumed.
func (m *Manager) Redeem(ctx context.Context, raw string, purpose Purpose) (*Claims, error) {
	claims, err := m.Parse(raw, purpose)
	if err != nil {
		return nil, err
	}

	// keep the ledger entry until the token would have expired anyway
	ttl := claims.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return nil, ErrInvalid
	}

	ok, err := m.rdb.SetNX(ctx, ledgerKey(claims.ID), claims.Subject, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("token: ledger: %w", err)
	}
	if !ok {
		return nil, ErrConsumed
	}
	return claims, nil
}

// Release returns a redeemed token to the unused state. Callers use it when
// the write the token authorized failed, so the link can be retried.
func (m *Manager) Release(ctx context.Context, claims *Claims) error {
	if err := m.rdb.Del(ctx, ledgerKey(claims.ID)).Err(); err != nil {
		return fmt.Errorf("token: release: %w", err)
	}
	return nil
}

func ledgerKey(id string) string {
	return "token:used:" + id
}
