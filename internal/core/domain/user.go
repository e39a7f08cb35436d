package domain

import (
	"strings"
	"time"
)

// UserType is the account kind. Values match the seeded user_type table.
type UserType int

const (
	UserTypeSuperuser UserType = 1
	UserTypePlayer    UserType = 3
)

// Role names used for access control.
const (
	RoleSuperuser = "superuser"
	RolePlayer    = "player"
)

// Role maps the account kind to its access-control role. Unknown kinds,
// including the zero value of records written before the field existed,
// are players.
func (t UserType) Role() string {
	if t == UserTypeSuperuser {
		return RoleSuperuser
	}
	return RolePlayer
}

// Normalize returns UserTypePlayer for any value that is not a known kind.
func (t UserType) Normalize() UserType {
	switch t {
	case UserTypeSuperuser, UserTypePlayer:
		return t
	default:
		return UserTypePlayer
	}
}

// User is a registered player account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	PasswordHash string    `json:"-"`
	UserType     UserType  `json:"user_type"`
	IsActive     bool      `json:"is_active"`
	IsValid      bool      `json:"is_valid"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NormalizeEmail returns the canonical form used for storage and lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
