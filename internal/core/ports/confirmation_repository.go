package ports

import (
	"context"

	"github.com/asgr-game/account-service/internal/core/domain"
)

// ConfirmationRepository persists email confirmation tokens.
type ConfirmationRepository interface {
	Create(ctx context.Context, token *domain.ConfirmationToken) (*domain.ConfirmationToken, error)
	// FindLatestByToken returns the most recently issued record matching value,
	// or domain.ErrConfirmationNotFound.
	FindLatestByToken(ctx context.Context, value string) (*domain.ConfirmationToken, error)
	FindLatestByUser(ctx context.Context, userID string) (*domain.ConfirmationToken, error)
	// MarkUsed sets is_used only if it is still false. A record that was
	// already used yields domain.ErrConfirmationConsumed.
	MarkUsed(ctx context.Context, id string) error
}
