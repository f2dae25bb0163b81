package credentials

import "classteamup/internal/user"

// Credential is the password record joined with the owning user's state.
type Credential struct {
	UserID       string
	PasswordHash string
	HashVersion  string
	Status       user.Status
}

// RegisterInput carries the account and the profile attributes that must be
// written together.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      user.Role
}
