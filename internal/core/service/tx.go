package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/asgr-game/account-service/internal/core/domain"
)

// directTx runs the unit of work without a surrounding transaction.
type directTx struct{}

func (directTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// storeErr tags unexpected persistence failures with domain.ErrStore so the
// transport renders them as a generic 500.
func storeErr(op string, err error) error {
	if errors.Is(err, domain.ErrStore) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStore, err)
}
