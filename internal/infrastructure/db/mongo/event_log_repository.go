package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/asgr-game/account-service/internal/core/domain"
	"github.com/asgr-game/account-service/internal/core/ports"
)

// EventLogRepository implements ports.EventLog using MongoDB. It only ever
// inserts.
type EventLogRepository struct {
	coll *mongo.Collection
}

var _ ports.EventLog = (*EventLogRepository)(nil)

func NewEventLogRepository(db *mongo.Database) *EventLogRepository {
	return &EventLogRepository{coll: db.Collection(collectionEventLog)}
}

// Append persists an audit record to the event_log collection.
func (r *EventLogRepository) Append(ctx context.Context, record *domain.EventLogRecord) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	doc := bson.M{
		"event_type": int(record.Type),
		"event_name": record.Type.String(),
		"user_id":    record.UserID,
		"body":       record.Body,
		"created_at": createdAt.UTC(),
	}
	if record.Origin != "" {
		doc["origin"] = record.Origin
	}

	_, err := r.coll.InsertOne(ctx, doc)
	return err
}
