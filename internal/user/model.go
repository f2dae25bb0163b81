package user

import (
	"fmt"
	"time"
)

// Role is the authorization class of a user. Exactly one per user.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
)

// ParseRole validates a role read from storage or user input.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleStudent, RoleInstructor:
		return r, nil
	}
	return "", fmt.Errorf("user: unknown role %q", s)
}

func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleInstructor
}

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusPending  Status = "pending"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusActive, StatusInactive, StatusPending:
		return st, nil
	}
	return "", fmt.Errorf("user: unknown status %q", s)
}

// User is the persisted profile row, keyed by the identity-provider user id.
type User struct {
	ID          string     `json:"id"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Email       string     `json:"email"`
	Role        Role       `json:"role"`
	Status      Status     `json:"status"`
	Department  *string    `json:"department,omitempty"`
	Preferences *string    `json:"preferences,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	LastLogin   *time.Time `json:"lastLogin,omitempty"`
}

// Patch is a partial profile update. Nil fields are left unchanged.
// Role, email and status are not patchable through the profile surface.
type Patch struct {
	FirstName   *string
	LastName    *string
	Department  *string
	Preferences *string
}

func (p Patch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Department == nil && p.Preferences == nil
}
