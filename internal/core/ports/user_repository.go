package ports

import (
	"context"

	"github.com/asgr-game/account-service/internal/core/domain"
)

// UserRepository is the credential store.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// Create inserts a new user. It returns domain.ErrEmailTaken when the
	// store's unique email constraint rejects the insert.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	// MarkValid flips is_valid to true for the given user.
	MarkValid(ctx context.Context, id string) error
	// List returns accounts ordered by creation time, oldest first.
	List(ctx context.Context, limit, offset int) ([]*domain.User, error)
}
