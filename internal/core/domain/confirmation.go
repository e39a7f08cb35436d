package domain

import "time"

// ConfirmationTTL is how long an email confirmation link stays actionable.
const ConfirmationTTL = 24 * time.Hour

// ConfirmationToken is a single-use email confirmation token. Records are
// never deleted; a used or expired token stays in the store for audit.
type ConfirmationToken struct {
	ID        string
	Token     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	IsUsed    bool
}

// Expired reports whether the token can no longer be presented at now.
func (t *ConfirmationToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
