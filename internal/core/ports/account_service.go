package ports

import (
	"context"
	"time"

	"github.com/asgr-game/account-service/internal/core/domain"
)

// AuditOutcome reports whether the audit append that followed a successful
// business operation was written. A non-nil Err never means the operation
// itself failed.
type AuditOutcome struct {
	Event domain.EventType
	Err   error
}

// Degraded reports that the operation succeeded but its audit record is missing.
func (o AuditOutcome) Degraded() bool { return o.Err != nil }

// RegisterInput is the DTO passed from the transport layer for registration.
type RegisterInput struct {
	Email    string
	Password string
	ClientIP string // optional, audit enrichment only
}

type RegisterResult struct {
	UserID string
	Audit  AuditOutcome
}

type LoginInput struct {
	Email    string
	Password string
	ClientIP string
}

type LoginResult struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
	Claims      domain.Claims
	Audit       AuditOutcome
}

type ChangePasswordInput struct {
	UserID      string
	OldPassword string
	NewPassword string
	ClientIP    string
}

type UpdateProfileInput struct {
	UserID    string
	FirstName string
	LastName  string
	ClientIP  string
}

// ListUsersInput pages through all accounts. Actor must be a superuser.
type ListUsersInput struct {
	Actor  domain.Identity
	Limit  int
	Offset int
}

// SetActiveInput activates or deactivates UserID on behalf of Actor.
type SetActiveInput struct {
	Actor    domain.Identity
	UserID   string
	Active   bool
	ClientIP string
}

// AccountService orchestrates the account lifecycle.
type AccountService interface {
	Register(ctx context.Context, in RegisterInput) (RegisterResult, error)
	Login(ctx context.Context, in LoginInput) (LoginResult, error)
	ConfirmEmail(ctx context.Context, token string) (AuditOutcome, error)
	ChangePassword(ctx context.Context, in ChangePasswordInput) (AuditOutcome, error)
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
	Logout(ctx context.Context, identity domain.Identity) (AuditOutcome, error)
	Profile(ctx context.Context, userID string) (*domain.User, error)
	UpdateProfile(ctx context.Context, in UpdateProfileInput) (AuditOutcome, error)
	ListUsers(ctx context.Context, in ListUsersInput) ([]*domain.User, error)
	SetActive(ctx context.Context, in SetActiveInput) (AuditOutcome, error)
}
