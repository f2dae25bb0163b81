package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort    string
	AppBaseURL string // public origin used to build email callback links

	// Development is set from the --development flag, not the environment.
	Development bool

	DatabaseDriver string // "postgres" (lib/pq) or "pgx"
	DatabaseDSN    string

	RedisAddr     string
	RedisPassword string

	SessionTTL   time.Duration
	CookieSecure bool

	TokenSecret     string
	ResetTokenTTL   time.Duration
	ConfirmTokenTTL time.Duration

	LoginMaxAttempts int
	LoginWindow      time.Duration
	ResetMaxRequests int
	ResetWindow      time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	KeycloakIssuer        string
	KeycloakClientID      string
	KeycloakRedirectURL   string
	KeycloakPublicBaseURL string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	l := &loader{}

	cfg := Config{
		AppPort:    getenv("APP_PORT", "8080"),
		AppBaseURL: strings.TrimRight(getenv("APP_BASE_URL", "http://localhost:8080"), "/"),

		DatabaseDriver: getenv("DATABASE_DRIVER", "postgres"),
		DatabaseDSN:    os.Getenv("DATABASE_DSN"),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		SessionTTL:   l.duration("SESSION_TTL", 24*time.Hour),
		CookieSecure: l.boolean("COOKIE_SECURE", true),

		TokenSecret:     os.Getenv("TOKEN_SECRET"),
		ResetTokenTTL:   l.duration("RESET_TOKEN_TTL", time.Hour),
		ConfirmTokenTTL: l.duration("CONFIRM_TOKEN_TTL", 24*time.Hour),

		LoginMaxAttempts: l.integer("LOGIN_MAX_ATTEMPTS", 5),
		LoginWindow:      l.duration("LOGIN_WINDOW", 15*time.Minute),
		ResetMaxRequests: l.integer("RESET_MAX_REQUESTS", 3),
		ResetWindow:      l.duration("RESET_WINDOW", time.Hour),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),

		KeycloakIssuer:        os.Getenv("KEYCLOAK_ISSUER"),
		KeycloakClientID:      os.Getenv("KEYCLOAK_CLIENT_ID"),
		KeycloakRedirectURL:   os.Getenv("KEYCLOAK_REDIRECT_URL"),
		KeycloakPublicBaseURL: os.Getenv("KEYCLOAK_PUBLIC_BASE_URL"),
	}

	if l.err != nil {
		return Config{}, l.err
	}

	return cfg, cfg.Validate()
}

// Validate checks the settings every subcommand depends on.
func (c Config) Validate() error {
	var errs []error

	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN is required"))
	}
	switch c.DatabaseDriver {
	case "postgres", "pgx":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER %q is not supported", c.DatabaseDriver))
	}
	if len(c.TokenSecret) < 32 {
		errs = append(errs, errors.New("TOKEN_SECRET must be at least 32 bytes"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.LoginMaxAttempts <= 0 || c.ResetMaxRequests <= 0 {
		errs = append(errs, errors.New("rate limit budgets must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// GoogleEnabled reports whether Google sign-in is configured.
func (c Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

// KeycloakEnabled reports whether Keycloak sign-in is configured.
func (c Config) KeycloakEnabled() bool {
	return c.KeycloakIssuer != "" && c.KeycloakClientID != "" &&
		c.KeycloakRedirectURL != "" && c.KeycloakPublicBaseURL != ""
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

// loader keeps the first parse error so Load can report it once.
type loader struct {
	err error
}

func (l *loader) fail(key string, err error) {
	if l.err == nil {
		l.err = fmt.Errorf("config: %s: %w", key, err)
	}
}

func (l *loader) duration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		l.fail(key, err)
		return def
	}
	return d
}

func (l *loader) boolean(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		l.fail(key, err)
		return def
	}
	return b
}

func (l *loader) integer(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		l.fail(key, err)
		return def
	}
	return n
}
