package ports

import (
	"context"
	"time"

	"github.com/asgr-game/account-service/internal/core/domain"
)

// PasswordHasher hashes and verifies passwords with an adaptive one-way function.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify never fails loudly: a malformed digest is simply a mismatch.
	Verify(plaintext, digest string) bool
}

// TokenIssuer signs and verifies bearer session tokens.
type TokenIssuer interface {
	Issue(claims domain.Claims, ttl time.Duration) (string, domain.Claims, error)
	// Verify returns domain.ErrTokenExpired or domain.ErrTokenInvalid on failure.
	Verify(token string) (domain.Claims, error)
}

// TokenDenylist revokes session tokens by id until they would expire anyway.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
