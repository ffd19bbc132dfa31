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

// TransactionStore implements ports.TransactionStore over one collection per
// payable kind. Every mutation is a single conditional update so the balance
// and status guards hold under concurrency without read-modify-write cycles.
type TransactionStore struct {
	colls map[domain.TransactionKind]*mongo.Collection
}

// NewTransactionStore creates a TransactionStore routing kinds to their
// collections.
func NewTransactionStore(db *mongo.Database) *TransactionStore {
	return &TransactionStore{colls: map[domain.TransactionKind]*mongo.Collection{
		domain.KindEvent:               db.Collection(CollEventPayments),
		domain.KindForm:                db.Collection(CollFormPayments),
		domain.KindDonationOneTime:     db.Collection(CollDonationPayments),
		domain.KindSubscriptionPayment: db.Collection(CollSubscriptionPayments),
	}}
}

func (s *TransactionStore) coll(kind domain.TransactionKind) (*mongo.Collection, error) {
	c, ok := s.colls[kind]
	if !ok {
		return nil, fmt.Errorf("unknown transaction kind: %s", kind)
	}
	return c, nil
}

// Create inserts a new ledger record.
func (s *TransactionStore) Create(ctx context.Context, rec *domain.TransactionRecord) error {
	c, err := s.coll(rec.Kind)
	if err != nil {
		return err
	}
	if _, err := c.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID fetches a record by its id.
func (s *TransactionStore) GetByID(ctx context.Context, kind domain.TransactionKind, id string) (*domain.TransactionRecord, error) {
	return s.findOne(ctx, kind, bson.M{"_id": id})
}

// GetByOrderRef fetches a record by the processor order reference set at
// checkout creation.
func (s *TransactionStore) GetByOrderRef(ctx context.Context, kind domain.TransactionKind, orderRef string) (*domain.TransactionRecord, error) {
	return s.findOne(ctx, kind, bson.M{"order_ref": orderRef})
}

// GetByExternalRef fetches a record by the capture reference set when the
// charge settled.
func (s *TransactionStore) GetByExternalRef(ctx context.Context, kind domain.TransactionKind, externalRef string) (*domain.TransactionRecord, error) {
	return s.findOne(ctx, kind, bson.M{"external_reference": externalRef})
}

func (s *TransactionStore) findOne(ctx context.Context, kind domain.TransactionKind, filter bson.M) (*domain.TransactionRecord, error) {
	c, err := s.coll(kind)
	if err != nil {
		return nil, err
	}
	rec := &domain.TransactionRecord{}
	if err := c.FindOne(ctx, filter).Decode(rec); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return rec, nil
}

// List fetches records for one kind with filtering and pagination.
func (s *TransactionStore) List(ctx context.Context, params ports.TransactionListParams) ([]domain.TransactionRecord, int64, error) {
	c, err := s.coll(params.Kind)
	if err != nil {
		return nil, 0, err
	}

	filter := bson.M{}
	if params.OwnerID != "" {
		filter["owner_id"] = params.OwnerID
	}
	if params.Status != nil {
		filter["status"] = *params.Status
	}

	total, err := c.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((params.Page - 1) * params.PageSize)).
		SetLimit(int64(params.PageSize))

	cur, err := c.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	defer cur.Close(ctx)

	var recs []domain.TransactionRecord
	if err := cur.All(ctx, &recs); err != nil {
		return nil, 0, fmt.Errorf("decode transactions: %w", err)
	}
	return recs, total, nil
}

// MarkCaptured moves a CREATED record to CAPTURED, recording the capture
// reference. Redelivered capture events match nothing and report false.
func (s *TransactionStore) MarkCaptured(ctx context.Context, kind domain.TransactionKind, orderRef, captureRef string, capturedAt time.Time) (bool, error) {
	c, err := s.coll(kind)
	if err != nil {
		return false, err
	}
	res, err := c.UpdateOne(ctx,
		bson.M{"order_ref": orderRef, "status": domain.TxnStatusCreated},
		bson.M{"$set": bson.M{
			"status":             domain.TxnStatusCaptured,
			"external_reference": captureRef,
			"captured_at":        capturedAt,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("mark captured: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// MarkFailed moves a CREATED record to FAILED.
func (s *TransactionStore) MarkFailed(ctx context.Context, kind domain.TransactionKind, orderRef string) (bool, error) {
	c, err := s.coll(kind)
	if err != nil {
		return false, err
	}
	res, err := c.UpdateOne(ctx,
		bson.M{"order_ref": orderRef, "status": domain.TxnStatusCreated},
		bson.M{"$set": bson.M{"status": domain.TxnStatusFailed}},
	)
	if err != nil {
		return false, fmt.Errorf("mark failed: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// RegisterReservation pushes a provisional marker when the guard holds: the
// record is refundable, no marker for the request exists yet, and the
// remaining balance of the marker's scope covers the amount. Everything is
// evaluated server-side in one update, so two racing reservations cannot both
// win the same balance.
func (s *TransactionStore) RegisterReservation(ctx context.Context, kind domain.TransactionKind, id string, marker domain.ReservationMarker) (bool, error) {
	c, err := s.coll(kind)
	if err != nil {
		return false, err
	}
	res, err := c.UpdateOne(ctx,
		reservationGuardFilter(id, marker),
		reservationUpdate(marker),
		arrayFilterOpts(options.Update(), marker.LineID),
	)
	if err != nil {
		return false, fmt.Errorf("register reservation: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// ClearReservation pulls the marker for a request and releases its hold. The
// filter requires the marker to be present, so repeated clears are no-ops.
func (s *TransactionStore) ClearReservation(ctx context.Context, kind domain.TransactionKind, id string, marker domain.ReservationMarker) (bool, error) {
	c, err := s.coll(kind)
	if err != nil {
		return false, err
	}
	res, err := c.UpdateOne(ctx,
		bson.M{"_id": id, "reservations.request_id": marker.RequestID},
		clearReservationUpdate(marker),
		arrayFilterOpts(options.Update(), marker.LineID),
	)
	if err != nil {
		return false, fmt.Errorf("clear reservation: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// BumpRevision writes the revision guard field while asserting the record is
// still refundable. Inside a session transaction this write is what makes two
// concurrent reservations on the same record conflict instead of both
// committing against the same snapshot.
func (s *TransactionStore) BumpRevision(ctx context.Context, kind domain.TransactionKind, id string) (bool, error) {
	c, err := s.coll(kind)
	if err != nil {
		return false, err
	}
	res, err := c.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": refundableStatuses()}},
		bson.M{"$inc": bson.M{"revision": 1}},
	)
	if err != nil {
		return false, fmt.Errorf("bump revision: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// AppendRefund appends entry unless its refund id is already present. When
// clearMarker is non-nil the marker is pulled and its hold released in the
// same document write. A lingering marker is cleared even when the append
// itself turns out to be a replay.
func (s *TransactionStore) AppendRefund(ctx context.Context, kind domain.TransactionKind, id string, entry domain.RefundEntry, clearMarker *domain.ReservationMarker) (bool, error) {
	c, err := s.coll(kind)
	if err != nil {
		return false, err
	}

	if clearMarker != nil {
		// Fast path: entry absent and marker present, one atomic write.
		filter := appendRefundFilter(id, entry.RefundID)
		filter["reservations.request_id"] = clearMarker.RequestID
		update := appendRefundUpdate(entry)
		mergeClearReservation(update, *clearMarker)
		res, err := c.UpdateOne(ctx, filter, update, arrayFilterOpts(options.Update(), entry.LineID))
		if err != nil {
			return false, fmt.Errorf("append refund with marker: %w", err)
		}
		if res.ModifiedCount == 1 {
			return true, nil
		}
		// Either the entry already exists or the marker is already gone.
		// Retry each half independently; both remain conditional.
		applied, err := s.appendOnly(ctx, c, id, entry)
		if err != nil {
			return false, err
		}
		if _, err := s.ClearReservation(ctx, kind, id, *clearMarker); err != nil {
			return applied, err
		}
		return applied, nil
	}

	return s.appendOnly(ctx, c, id, entry)
}

func (s *TransactionStore) appendOnly(ctx context.Context, c *mongo.Collection, id string, entry domain.RefundEntry) (bool, error) {
	res, err := c.UpdateOne(ctx,
		appendRefundFilter(id, entry.RefundID),
		appendRefundUpdate(entry),
		arrayFilterOpts(options.Update(), entry.LineID),
	)
	if err != nil {
		return false, fmt.Errorf("append refund: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// SetDerivedStatus CASes the record status. The guard on the observed
// refunded total means a concurrent append invalidates this write instead of
// racing it; the caller re-reads and derives again.
func (s *TransactionStore) SetDerivedStatus(ctx context.Context, kind domain.TransactionKind, id string, from, to domain.TransactionStatus, observedRefunded float64) (bool, error) {
	c, err := s.coll(kind)
	if err != nil {
		return false, err
	}
	res, err := c.UpdateOne(ctx,
		bson.M{"_id": id, "status": from, "refunded_total": observedRefunded},
		bson.M{"$set": bson.M{"status": to}},
	)
	if err != nil {
		return false, fmt.Errorf("set derived status: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

// ListStaleMarkers returns every live marker older than the cutoff, across
// all kinds.
func (s *TransactionStore) ListStaleMarkers(ctx context.Context, olderThan time.Time) ([]ports.StaleMarker, error) {
	var out []ports.StaleMarker
	for _, kind := range domain.AllKinds() {
		c, err := s.coll(kind)
		if err != nil {
			return nil, err
		}
		cur, err := c.Find(ctx, bson.M{"reservations.created_at": bson.M{"$lt": olderThan}})
		if err != nil {
			return nil, fmt.Errorf("find stale markers: %w", err)
		}
		var recs []domain.TransactionRecord
		if err := cur.All(ctx, &recs); err != nil {
			return nil, fmt.Errorf("decode stale markers: %w", err)
		}
		for _, rec := range recs {
			for _, m := range rec.Reservations {
				if m.CreatedAt.Before(olderThan) {
					out = append(out, ports.StaleMarker{TxnKind: kind, TxnID: rec.ID, Marker: m})
				}
			}
		}
	}
	return out, nil
}

// --- Filter and update builders ---

func refundableStatuses() bson.A {
	return bson.A{domain.TxnStatusCaptured, domain.TxnStatusPartiallyRefunded}
}

// remainingExpr computes amount - refunded_total - reserved_total server-side.
func remainingExpr() bson.M {
	return bson.M{"$subtract": bson.A{
		"$amount",
		bson.M{"$add": bson.A{"$refunded_total", "$reserved_total"}},
	}}
}

// lineRemainingExpr computes the named line's remaining balance server-side.
func lineRemainingExpr(lineID string) bson.M {
	line := bson.M{"$first": bson.M{"$filter": bson.M{
		"input": "$line_items",
		"as":    "li",
		"cond":  bson.M{"$eq": bson.A{"$$li.line_id", lineID}},
	}}}
	return bson.M{"$let": bson.M{
		"vars": bson.M{"ln": line},
		"in": bson.M{"$subtract": bson.A{
			"$$ln.amount",
			bson.M{"$add": bson.A{"$$ln.refunded", "$$ln.reserved"}},
		}},
	}}
}

// reservationGuardFilter matches only when the reservation may be taken:
// refundable status, no marker for this request yet, and enough remaining
// balance at both the record scope and, for line-scoped requests, the line
// scope. The epsilon lets a request for the exact remaining balance survive
// settlement rounding.
func reservationGuardFilter(id string, marker domain.ReservationMarker) bson.M {
	need := marker.Amount - domain.MinorUnitEpsilon
	guards := bson.A{bson.M{"$gte": bson.A{remainingExpr(), need}}}
	if marker.LineID != "" {
		guards = append(guards, bson.M{"$gte": bson.A{lineRemainingExpr(marker.LineID), need}})
	}
	return bson.M{
		"_id":                     id,
		"status":                  bson.M{"$in": refundableStatuses()},
		"reservations.request_id": bson.M{"$ne": marker.RequestID},
		"$expr":                   bson.M{"$and": guards},
	}
}

func reservationUpdate(marker domain.ReservationMarker) bson.M {
	inc := bson.M{"reserved_total": marker.Amount}
	if marker.LineID != "" {
		inc["line_items.$[ln].reserved"] = marker.Amount
	}
	return bson.M{
		"$push": bson.M{"reservations": marker},
		"$inc":  inc,
	}
}

func clearReservationUpdate(marker domain.ReservationMarker) bson.M {
	inc := bson.M{"reserved_total": -marker.Amount}
	if marker.LineID != "" {
		inc["line_items.$[ln].reserved"] = -marker.Amount
	}
	return bson.M{
		"$pull": bson.M{"reservations": bson.M{"request_id": marker.RequestID}},
		"$inc":  inc,
	}
}

func appendRefundFilter(id, refundID string) bson.M {
	return bson.M{
		"_id":               id,
		"refunds.refund_id": bson.M{"$ne": refundID},
	}
}

func appendRefundUpdate(entry domain.RefundEntry) bson.M {
	inc := bson.M{"refunded_total": entry.Amount}
	if entry.LineID != "" {
		inc["line_items.$[ln].refunded"] = entry.Amount
	}
	return bson.M{
		"$push": bson.M{"refunds": entry},
		"$inc":  inc,
	}
}

// mergeClearReservation folds a marker release into an append update so both
// happen in one document write. The appended entry touches refunded fields,
// the marker touches reserved fields, so the $inc keys never collide.
func mergeClearReservation(update bson.M, marker domain.ReservationMarker) {
	update["$pull"] = bson.M{"reservations": bson.M{"request_id": marker.RequestID}}
	inc := update["$inc"].(bson.M)
	inc["reserved_total"] = -marker.Amount
	if marker.LineID != "" {
		inc["line_items.$[ln].reserved"] = -marker.Amount
	}
}

// arrayFilterOpts attaches the line-item array filter when the operation is
// line-scoped.
func arrayFilterOpts(opts *options.UpdateOptions, lineID string) *options.UpdateOptions {
	if lineID == "" {
		return opts
	}
	return opts.SetArrayFilters(options.ArrayFilters{
		Filters: []interface{}{bson.M{"ln.line_id": lineID}},
	})
}
