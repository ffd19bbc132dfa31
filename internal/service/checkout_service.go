package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"church-payments/internal/core/domain"
	"church-payments/internal/core/ports"
	"church-payments/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CheckoutServiceImpl implements ports.CheckoutService: bootstrap a processor
// order for a payable and capture it once approved. Capture is idempotent
// against the webhook path driving the same transition.
type CheckoutServiceImpl struct {
	txnStore  ports.TransactionStore
	processor ports.ProcessorClient
	log       zerolog.Logger
}

// NewCheckoutService creates a new CheckoutServiceImpl.
func NewCheckoutService(txnStore ports.TransactionStore, processor ports.ProcessorClient, log zerolog.Logger) *CheckoutServiceImpl {
	return &CheckoutServiceImpl{
		txnStore:  txnStore,
		processor: processor,
		log:       log,
	}
}

// CreateOrder creates the processor order and inserts the ledger record in
// CREATED. The custom id carries "kind:transaction_id" so webhook deliveries
// can find their way back to the right collection.
func (s *CheckoutServiceImpl) CreateOrder(ctx context.Context, req ports.CreateOrderRequest) (*domain.TransactionRecord, error) {
	if err := validateOrder(req); err != nil {
		return nil, err
	}

	txnID := uuid.NewString()
	customID := string(req.Kind) + ":" + txnID

	order, err := s.processor.CreateOrder(ctx, ports.ProcessorOrderRequest{
		Amount:      req.Amount,
		Currency:    req.Currency,
		CustomID:    customID,
		Description: req.Reference,
	})
	if err != nil {
		return nil, err
	}

	rec := &domain.TransactionRecord{
		ID:          txnID,
		Kind:        req.Kind,
		OrderRef:    order.OrderRef,
		ApprovalURL: order.ApprovalURL,
		OwnerID:     req.OwnerID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Status:      domain.TxnStatusCreated,
		Refunds:     []domain.RefundEntry{},
		LineItems:   buildLineItems(req.LineItems),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.txnStore.Create(ctx, rec); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create transaction: %w", err))
	}

	s.log.Info().
		Str("txn_kind", string(rec.Kind)).
		Str("txn_id", rec.ID).
		Str("order_ref", rec.OrderRef).
		Str("owner_id", rec.OwnerID).
		Float64("amount", rec.Amount).
		Msg("checkout order created")
	return rec, nil
}

// CaptureOrder captures an approved order at the processor and drives the
// same CREATED -> CAPTURED mutation the webhook path uses. Capturing an
// already-captured record is a no-op.
func (s *CheckoutServiceImpl) CaptureOrder(ctx context.Context, kind domain.TransactionKind, id, actorID string) (*domain.TransactionRecord, error) {
	if !kind.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown transaction kind %q", kind))
	}

	rec, err := s.txnStore.GetByID(ctx, kind, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get transaction: %w", err))
	}
	if rec == nil {
		return nil, apperror.ErrNotFound("transaction")
	}

	switch rec.Status {
	case domain.TxnStatusCreated:
		// fall through to capture
	case domain.TxnStatusCaptured, domain.TxnStatusPartiallyRefunded, domain.TxnStatusFullyRefunded:
		return rec, nil
	default:
		return nil, apperror.ErrStatusConflict(fmt.Sprintf("transaction is %s, not awaiting capture", rec.Status))
	}

	capture, err := s.processor.CaptureOrder(ctx, rec.OrderRef)
	if err != nil {
		return nil, err
	}

	ok, err := s.txnStore.MarkCaptured(ctx, kind, rec.OrderRef, capture.CaptureRef, time.Now().UTC())
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("mark captured: %w", err))
	}
	if !ok {
		// The webhook delivery of this capture raced us and won; re-read to
		// confirm.
		s.log.Debug().Str("txn_id", id).Msg("capture already recorded")
	}

	fresh, err := s.txnStore.GetByID(ctx, kind, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("reread transaction: %w", err))
	}
	if fresh == nil {
		return nil, apperror.ErrConsistency(fmt.Sprintf("transaction %s/%s vanished during capture", kind, id))
	}
	if fresh.Status == domain.TxnStatusCreated {
		return nil, apperror.ErrConsistency(fmt.Sprintf("transaction %s captured at the processor but not in the ledger", id))
	}

	s.log.Info().
		Str("txn_kind", string(kind)).
		Str("txn_id", id).
		Str("capture_ref", capture.CaptureRef).
		Str("actor_id", actorID).
		Msg("checkout order captured")
	return fresh, nil
}

func validateOrder(req ports.CreateOrderRequest) error {
	if !req.Kind.Valid() {
		return apperror.Validation(fmt.Sprintf("unknown transaction kind %q", req.Kind))
	}
	if req.Amount <= 0 {
		return apperror.Validation("amount must be positive")
	}
	if req.OwnerID == "" {
		return apperror.Validation("owner is required")
	}
	if len(req.LineItems) == 0 {
		return nil
	}
	if !req.Kind.HasLineItems() {
		return apperror.Validation(fmt.Sprintf("%s transactions carry no line items", req.Kind))
	}

	var sum float64
	seen := make(map[string]bool, len(req.LineItems))
	for _, li := range req.LineItems {
		if li.LineID == "" {
			return apperror.Validation("line items need a line id")
		}
		if seen[li.LineID] {
			return apperror.Validation(fmt.Sprintf("duplicate line id %q", li.LineID))
		}
		seen[li.LineID] = true
		if li.Amount <= 0 {
			return apperror.Validation(fmt.Sprintf("line %q amount must be positive", li.LineID))
		}
		sum += li.Amount
	}
	if math.Abs(sum-req.Amount) > domain.MinorUnitEpsilon {
		return apperror.Validation(fmt.Sprintf("line items sum to %.2f, not the order amount %.2f", sum, req.Amount))
	}
	return nil
}

func buildLineItems(in []ports.LineItemInput) []domain.LineItem {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.LineItem, 0, len(in))
	for _, li := range in {
		out = append(out, domain.LineItem{
			LineID: li.LineID,
			Label:  li.Label,
			Amount: li.Amount,
		})
	}
	return out
}
