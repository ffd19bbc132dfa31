package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"church-payments/internal/core/domain"
	"church-payments/internal/core/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type webhookEventRepo struct {
	coll *mongo.Collection
}

// NewWebhookEventRepository creates the durable at-most-once gate for inbound
// events. The event id is the document id, so uniqueness is enforced by the
// primary index and needs no setup.
func NewWebhookEventRepository(db *mongo.Database) ports.WebhookEventRepository {
	return &webhookEventRepo{coll: db.Collection(CollWebhookEvents)}
}

// CreateIfAbsent inserts the record; a duplicate key means another delivery
// of the same event already won, reported as false.
func (r *webhookEventRepo) CreateIfAbsent(ctx context.Context, rec *domain.WebhookEventRecord) (bool, error) {
	_, err := r.coll.InsertOne(ctx, rec)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("insert webhook event: %w", err)
	}
	return true, nil
}

type webhookFailureRepo struct {
	coll *mongo.Collection
}

// NewWebhookFailureRepository creates the store for failed deliveries.
func NewWebhookFailureRepository(db *mongo.Database) ports.WebhookFailureRepository {
	return &webhookFailureRepo{coll: db.Collection(CollWebhookFailures)}
}

func (r *webhookFailureRepo) Create(ctx context.Context, rec *domain.WebhookFailureRecord) error {
	if _, err := r.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert webhook failure: %w", err)
	}
	return nil
}

func (r *webhookFailureRepo) GetByID(ctx context.Context, id string) (*domain.WebhookFailureRecord, error) {
	rec := &domain.WebhookFailureRecord{}
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get webhook failure: %w", err)
	}
	return rec, nil
}

func (r *webhookFailureRepo) List(ctx context.Context, page, pageSize int) ([]domain.WebhookFailureRecord, int64, error) {
	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count webhook failures: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))

	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list webhook failures: %w", err)
	}
	defer cur.Close(ctx)

	var recs []domain.WebhookFailureRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, 0, fmt.Errorf("decode webhook failures: %w", err)
	}
	return recs, total, nil
}

func (r *webhookFailureRepo) MarkReplayed(ctx context.Context, id string, at time.Time) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"replayed_at": at}},
	)
	if err != nil {
		return fmt.Errorf("mark webhook failure replayed: %w", err)
	}
	return nil
}
