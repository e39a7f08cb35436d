package ports

import (
	"context"

	"github.com/asgr-game/account-service/internal/core/domain"
)

// EventLog is the write-only audit sink.
type EventLog interface {
	Append(ctx context.Context, record *domain.EventLogRecord) error
}
