package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"church-payments/internal/core/domain"
	"church-payments/internal/core/ports"
	"church-payments/pkg/apperror"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RefundRequestRepo implements ports.RefundRequestRepository.
type RefundRequestRepo struct {
	coll *mongo.Collection
}

// NewRefundRequestRepo creates a new RefundRequestRepo.
func NewRefundRequestRepo(db *mongo.Database) *RefundRequestRepo {
	return &RefundRequestRepo{coll: db.Collection(CollRefundRequests)}
}

// Create inserts a new refund request, keyed by its request id.
func (r *RefundRequestRepo) Create(ctx context.Context, req *domain.RefundRequest) error {
	if _, err := r.coll.InsertOne(ctx, req); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.ErrDuplicateKey(err)
		}
		return fmt.Errorf("insert refund request: %w", err)
	}
	return nil
}

// GetByID fetches a request by id.
func (r *RefundRequestRepo) GetByID(ctx context.Context, requestID string) (*domain.RefundRequest, error) {
	req := &domain.RefundRequest{}
	if err := r.coll.FindOne(ctx, bson.M{"_id": requestID}).Decode(req); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get refund request: %w", err)
	}
	return req, nil
}

// TransitionStatus CASes status from->to; false when the request was not in
// the expected status. A non-nil amount replaces the full-remaining sentinel
// with the concrete reserved amount.
func (r *RefundRequestRepo) TransitionStatus(ctx context.Context, requestID string, from, to domain.RefundRequestStatus, amount *float64) (bool, error) {
	set := bson.M{"status": to}
	if amount != nil {
		set["amount"] = *amount
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": requestID, "status": from},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, fmt.Errorf("transition refund request status: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// Resolve CASes into a terminal status, stamping the resolution and
// resolved_at.
func (r *RefundRequestRepo) Resolve(ctx context.Context, requestID string, from, to domain.RefundRequestStatus, resolution *domain.Resolution) (bool, error) {
	set := bson.M{"status": to, "resolved_at": time.Now()}
	if resolution != nil {
		set["resolution"] = resolution
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": requestID, "status": from},
		bson.M{"$set": set},
	)
	if err != nil {
		return false, fmt.Errorf("resolve refund request: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// Search fetches requests with filtering and pagination, newest first.
func (r *RefundRequestRepo) Search(ctx context.Context, params ports.RefundRequestSearchParams) ([]domain.RefundRequest, int64, error) {
	filter := bson.M{}
	if params.RequestedBy != "" {
		filter["requested_by"] = params.RequestedBy
	}
	if params.Status != nil {
		filter["status"] = *params.Status
	}
	if params.TxnKind != "" {
		filter["txn_kind"] = params.TxnKind
	}
	if params.TxnID != "" {
		filter["txn_id"] = params.TxnID
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count refund requests: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((params.Page - 1) * params.PageSize)).
		SetLimit(int64(params.PageSize))

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("search refund requests: %w", err)
	}
	defer cur.Close(ctx)

	var reqs []domain.RefundRequest
	if err := cur.All(ctx, &reqs); err != nil {
		return nil, 0, fmt.Errorf("decode refund requests: %w", err)
	}
	return reqs, total, nil
}

// ListStale returns requests stuck in the given status since before the
// cutoff, oldest first.
func (r *RefundRequestRepo) ListStale(ctx context.Context, status domain.RefundRequestStatus, olderThan time.Time) ([]domain.RefundRequest, error) {
	cur, err := r.coll.Find(ctx,
		bson.M{"status": status, "created_at": bson.M{"$lt": olderThan}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list stale refund requests: %w", err)
	}
	defer cur.Close(ctx)

	var reqs []domain.RefundRequest
	if err := cur.All(ctx, &reqs); err != nil {
		return nil, fmt.Errorf("decode stale refund requests: %w", err)
	}
	return reqs, nil
}

// ListActiveForTxn returns RESERVING and RESERVED requests against one
// transaction. These are the transactional path's provisional holds.
func (r *RefundRequestRepo) ListActiveForTxn(ctx context.Context, kind domain.TransactionKind, txnID string) ([]domain.RefundRequest, error) {
	cur, err := r.coll.Find(ctx, bson.M{
		"txn_kind": kind,
		"txn_id":   txnID,
		"status":   bson.M{"$in": bson.A{domain.RefundStatusReserving, domain.RefundStatusReserved}},
	})
	if err != nil {
		return nil, fmt.Errorf("list active refund requests: %w", err)
	}
	defer cur.Close(ctx)

	var reqs []domain.RefundRequest
	if err := cur.All(ctx, &reqs); err != nil {
		return nil, fmt.Errorf("decode active refund requests: %w", err)
	}
	return reqs, nil
}
