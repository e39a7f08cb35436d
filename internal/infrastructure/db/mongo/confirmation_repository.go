package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/asgr-game/account-service/internal/core/domain"
	"github.com/asgr-game/account-service/internal/core/ports"
)

// ConfirmationRepository implements ports.ConfirmationRepository using MongoDB.
type ConfirmationRepository struct {
	coll *mongo.Collection
}

var _ ports.ConfirmationRepository = (*ConfirmationRepository)(nil)

func NewConfirmationRepository(db *mongo.Database) *ConfirmationRepository {
	return &ConfirmationRepository{coll: db.Collection(collectionConfirmations)}
}

type mongoConfirmation struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Token     string             `bson:"token"`
	UserID    string             `bson:"user_id"`
	CreatedAt time.Time          `bson:"created_at"`
	ExpiresAt time.Time          `bson:"expires_at"`
	IsUsed    bool               `bson:"is_used"`
	UsedAt    *time.Time         `bson:"used_at,omitempty"`
}

// newestFirst breaks ties between records sharing a value or a user.
var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

func (r *ConfirmationRepository) Create(ctx context.Context, token *domain.ConfirmationToken) (*domain.ConfirmationToken, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoConfirmation{
		Token:     token.Token,
		UserID:    token.UserID,
		CreatedAt: token.CreatedAt.UTC(),
		ExpiresAt: token.ExpiresAt.UTC(),
		IsUsed:    token.IsUsed,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert confirmation token: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("insert confirmation token: unexpected id type %T", res.InsertedID)
	}
	doc.ID = oid
	return doc.toDomain(), nil
}

func (r *ConfirmationRepository) FindLatestByToken(ctx context.Context, value string) (*domain.ConfirmationToken, error) {
	return r.findLatest(ctx, bson.M{"token": value})
}

func (r *ConfirmationRepository) FindLatestByUser(ctx context.Context, userID string) (*domain.ConfirmationToken, error) {
	return r.findLatest(ctx, bson.M{"user_id": userID})
}

// MarkUsed flips is_used with a conditional update so two concurrent
// confirmations cannot both succeed.
func (r *ConfirmationRepository) MarkUsed(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrConfirmationNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	filter := bson.M{"_id": oid, "is_used": false}
	update := bson.M{"$set": bson.M{"is_used": true, "used_at": now}}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mark confirmation used: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrConfirmationConsumed
	}
	return nil
}

func (r *ConfirmationRepository) findLatest(ctx context.Context, filter bson.M) (*domain.ConfirmationToken, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var mc mongoConfirmation
	err := r.coll.FindOne(ctx, filter, options.FindOne().SetSort(newestFirst)).Decode(&mc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrConfirmationNotFound
		}
		return nil, fmt.Errorf("find confirmation token: %w", err)
	}
	return mc.toDomain(), nil
}

func (mc mongoConfirmation) toDomain() *domain.ConfirmationToken {
	return &domain.ConfirmationToken{
		ID:        mc.ID.Hex(),
		Token:     mc.Token,
		UserID:    mc.UserID,
		CreatedAt: mc.CreatedAt.UTC(),
		ExpiresAt: mc.ExpiresAt.UTC(),
		IsUsed:    mc.IsUsed,
	}
}
