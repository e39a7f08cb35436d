package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/asgr-game/account-service/internal/core/ports"
)

// Transactor implements ports.Transactor with MongoDB sessions. Multi-document
// transactions need a replica set; with enabled=false the unit of work runs
// without one.
type Transactor struct {
	client  *mongo.Client
	enabled bool
}

var _ ports.Transactor = (*Transactor)(nil)

func NewTransactor(client *mongo.Client, enabled bool) *Transactor {
	return &Transactor{client: client, enabled: enabled}
}

// WithinTransaction commits fn's writes atomically. fn may be retried by the
// driver on transient transaction errors.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled {
		return fn(ctx)
	}

	sess, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
