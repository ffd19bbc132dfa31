package mongodb

import (
	"context"
	"fmt"

	"church-payments/config"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names. Ledger records live in one collection per payable kind.
const (
	CollEventPayments        = "payments_event"
	CollFormPayments         = "payments_form"
	CollDonationPayments     = "payments_donation"
	CollSubscriptionPayments = "payments_subscription"
	CollRefundRequests       = "refund_requests"
	CollWebhookEvents        = "webhook_events"
	CollWebhookFailures      = "webhook_failures"
	CollAuditLogs            = "audit_logs"
)

// Connect establishes a MongoDB client and verifies connectivity.
func Connect(ctx context.Context, cfg config.MongoConfig, log zerolog.Logger) (*mongo.Client, *mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	// Verify connectivity
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	log.Info().
		Str("database", cfg.Database).
		Msg("MongoDB connection established")

	return client, client.Database(cfg.Database), nil
}

// EnsureIndexes creates the indexes the conditional-update guards and lookups
// rely on. Safe to call on every startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database, cfg config.MongoConfig) error {
	paymentColls := []string{
		CollEventPayments, CollFormPayments, CollDonationPayments, CollSubscriptionPayments,
	}
	for _, name := range paymentColls {
		_, err := db.Collection(name).Indexes().CreateMany(ctx, []mongo.IndexModel{
			{
				Keys:    bson.D{{Key: "order_ref", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"order_ref": bson.M{"$exists": true}}),
			},
			{
				Keys:    bson.D{{Key: "external_reference", Value: 1}},
				Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"external_reference": bson.M{"$exists": true}}),
			},
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "reservations.created_at", Value: 1}}},
		})
		if err != nil {
			return fmt.Errorf("creating %s indexes: %w", name, err)
		}
	}

	_, err := db.Collection(CollRefundRequests).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "txn_kind", Value: 1}, {Key: "txn_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "requested_by", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("creating refund request indexes: %w", err)
	}

	// Failed deliveries age out; the TTL matches the operator replay window.
	_, err = db.Collection(CollWebhookFailures).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(cfg.FailuresTTL.Seconds())),
	})
	if err != nil {
		return fmt.Errorf("creating webhook failure indexes: %w", err)
	}

	_, err = db.Collection(CollAuditLogs).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("creating audit log indexes: %w", err)
	}
	return nil
}
