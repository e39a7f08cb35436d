package service

import (
	"context"
	"crypto/rand"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/asgr-game/account-service/internal/core/domain"
	"github.com/asgr-game/account-service/internal/core/ports"
)

// ConfirmationService manages the single-use email confirmation tokens.
//
// A token is Issued at registration and ends either Used (stored) or Expired
// (implicit, by time). Only the most recently issued record matching a value
// is ever considered.
type ConfirmationService struct {
	tokens ports.ConfirmationRepository
	users  ports.UserRepository
	tx     ports.Transactor
	ttl    time.Duration
	log    zerolog.Logger
}

// NewConfirmationService returns a ConfirmationService. A nil transactor runs
// the confirm writes directly; ttl <= 0 falls back to domain.ConfirmationTTL.
func NewConfirmationService(
	tokens ports.ConfirmationRepository,
	users ports.UserRepository,
	tx ports.Transactor,
	ttl time.Duration,
	log zerolog.Logger,
) *ConfirmationService {
	if tx == nil {
		tx = directTx{}
	}
	if ttl <= 0 {
		ttl = domain.ConfirmationTTL
	}
	return &ConfirmationService{tokens: tokens, users: users, tx: tx, ttl: ttl, log: log}
}

// Issue creates and persists a fresh token for userID. It does not open a
// transaction so it can join the caller's.
func (s *ConfirmationService) Issue(ctx context.Context, userID string, now time.Time) (*domain.ConfirmationToken, error) {
	now = now.UTC()
	token := &domain.ConfirmationToken{
		Token:     generateConfirmationValue(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	created, err := s.tokens.Create(ctx, token)
	if err != nil {
		return nil, storeErr("issue confirmation token", err)
	}
	return created, nil
}

// Confirm consumes the token matching value and marks its owner valid. An
// expired token is reported exactly like an unknown one.
func (s *ConfirmationService) Confirm(ctx context.Context, value string, now time.Time) (*domain.ConfirmationToken, error) {
	if value == "" {
		return nil, domain.ErrConfirmationNotFound
	}

	token, err := s.tokens.FindLatestByToken(ctx, value)
	if err != nil {
		if errors.Is(err, domain.ErrConfirmationNotFound) {
			return nil, domain.ErrConfirmationNotFound
		}
		return nil, storeErr("find confirmation token", err)
	}
	if token.Expired(now) {
		s.log.Debug().Str("user_id", token.UserID).Msg("expired confirmation token presented")
		return nil, domain.ErrConfirmationNotFound
	}
	if token.IsUsed {
		return nil, domain.ErrConfirmationConsumed
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.tokens.MarkUsed(ctx, token.ID); err != nil {
			return err
		}
		return s.users.MarkValid(ctx, token.UserID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrConfirmationConsumed) {
			return nil, domain.ErrConfirmationConsumed
		}
		return nil, storeErr("confirm email", err)
	}

	token.IsUsed = true
	return token, nil
}

// generateConfirmationValue returns 26 characters of [A-Z2-7] carrying 128
// bits from crypto/rand.
func generateConfirmationValue() string {
	return rand.Text()
}
