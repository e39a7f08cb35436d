package domain

import "time"

// Claims is the identity carried by a signed session token.
type Claims struct {
	Subject   string // account email
	UserID    string
	UserType  UserType
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Role is the access-control role of the token holder.
func (c Claims) Role() string { return c.UserType.Role() }

// Identity is what a protected route learns about the caller.
type Identity = Claims
