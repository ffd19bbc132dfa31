package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"church-payments/internal/core/domain"
	"church-payments/internal/core/ports"
	"church-payments/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RefundServiceImpl implements ports.RefundService: the refund request
// lifecycle from petition through admin decision, reservation, external
// execution and ledger commit. The reservation mechanics live behind the
// strategy; this coordinator owns ordering — the external call never runs
// inside a store transaction, and an execution failure always rolls the
// reservation back.
type RefundServiceImpl struct {
	txnStore    ports.TransactionStore
	requestRepo ports.RefundRequestRepository
	strategy    ports.ReservationStrategy
	processor   ports.ProcessorClient
	authorizer  ports.Authorizer
	log         zerolog.Logger
}

// NewRefundService creates a new RefundServiceImpl.
func NewRefundService(
	txnStore ports.TransactionStore,
	requestRepo ports.RefundRequestRepository,
	strategy ports.ReservationStrategy,
	processor ports.ProcessorClient,
	authorizer ports.Authorizer,
	log zerolog.Logger,
) *RefundServiceImpl {
	return &RefundServiceImpl{
		txnStore:    txnStore,
		requestRepo: requestRepo,
		strategy:    strategy,
		processor:   processor,
		authorizer:  authorizer,
		log:         log,
	}
}

// CreateRequest validates a refund petition against the live ledger record
// and inserts it PENDING. The balance check here is advisory — the
// authoritative guard runs at reservation time.
func (s *RefundServiceImpl) CreateRequest(ctx context.Context, req ports.CreateRefundRequest) (*domain.RefundRequest, error) {
	if !req.TxnKind.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown transaction kind %q", req.TxnKind))
	}

	txn, err := s.txnStore.GetByID(ctx, req.TxnKind, req.TxnID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get transaction: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrNotFound("transaction")
	}

	claims := &ports.TokenClaims{UserID: req.RequestedBy}
	if req.IsAdmin {
		claims.Roles = []string{"admin"}
	}
	if !s.authorizer.CanAccess(claims, txn.OwnerID) {
		return nil, apperror.ErrNotOwner()
	}

	if !txn.IsRefundable() {
		return nil, apperror.ErrNotRefundable()
	}
	if req.LineID != "" && !req.TxnKind.HasLineItems() {
		return nil, apperror.Validation(fmt.Sprintf("%s transactions carry no line items", req.TxnKind))
	}

	remaining, ok := txn.RemainingFor(req.LineID)
	if !ok {
		return nil, apperror.Validation(fmt.Sprintf("line item %q not found", req.LineID))
	}
	if req.Amount != nil {
		if *req.Amount <= 0 {
			return nil, apperror.Validation("refund amount must be positive")
		}
		if *req.Amount > remaining+domain.MinorUnitEpsilon {
			return nil, apperror.ErrAmountExceedsBalance()
		}
	} else if remaining < domain.MinorUnitEpsilon {
		return nil, apperror.ErrAmountExceedsBalance()
	}

	rr := &domain.RefundRequest{
		RequestID:   uuid.NewString(),
		TxnKind:     req.TxnKind,
		TxnID:       req.TxnID,
		LineID:      req.LineID,
		Amount:      req.Amount,
		Currency:    txn.Currency,
		RequestedBy: req.RequestedBy,
		Message:     req.Message,
		Status:      domain.RefundStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.requestRepo.Create(ctx, rr); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create refund request: %w", err))
	}

	s.log.Info().
		Str("request_id", rr.RequestID).
		Str("txn_kind", string(rr.TxnKind)).
		Str("txn_id", rr.TxnID).
		Str("requested_by", rr.RequestedBy).
		Msg("refund request created")
	return rr, nil
}

// GetRequest returns one refund request for its requester or an admin.
func (s *RefundServiceImpl) GetRequest(ctx context.Context, requestID string, claims *ports.TokenClaims) (*domain.RefundRequest, error) {
	rr, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get refund request: %w", err))
	}
	if rr == nil {
		return nil, apperror.ErrNotFound("refund request")
	}
	if !s.authorizer.CanAccess(claims, rr.RequestedBy) {
		return nil, apperror.ErrNotOwner()
	}
	return rr, nil
}

// ListRequests returns a page of refund requests matching the search params.
func (s *RefundServiceImpl) ListRequests(ctx context.Context, params ports.RefundRequestSearchParams) ([]domain.RefundRequest, int64, error) {
	normalizePaging(&params.Page, &params.PageSize)

	reqs, total, err := s.requestRepo.Search(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(fmt.Errorf("search refund requests: %w", err))
	}
	return reqs, total, nil
}

// Decide resolves a PENDING request. Rejection closes it with a note and
// never touches the ledger. Approval runs reserve-and-execute: hold the
// balance via the strategy, execute the refund at the processor, then commit
// the ledger entry — or roll the hold back when execution fails.
func (s *RefundServiceImpl) Decide(ctx context.Context, req ports.DecideRefundRequest) (*domain.RefundRequest, error) {
	rr, err := s.requestRepo.GetByID(ctx, req.RequestID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get refund request: %w", err))
	}
	if rr == nil {
		return nil, apperror.ErrNotFound("refund request")
	}
	if rr.Status != domain.RefundStatusPending {
		return nil, apperror.ErrStatusConflict(fmt.Sprintf("refund request is %s, not PENDING", rr.Status))
	}

	if !req.Approve {
		return s.reject(ctx, rr, req)
	}
	return s.reserveAndExecute(ctx, rr, req)
}

func (s *RefundServiceImpl) reject(ctx context.Context, rr *domain.RefundRequest, req ports.DecideRefundRequest) (*domain.RefundRequest, error) {
	res := &domain.Resolution{DecidedBy: req.DecidedBy, Note: req.Note}
	ok, err := s.requestRepo.Resolve(ctx, rr.RequestID, domain.RefundStatusPending, domain.RefundStatusRejected, res)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("reject request: %w", err))
	}
	if !ok {
		return nil, apperror.ErrStatusConflict("refund request was decided concurrently")
	}

	s.log.Info().
		Str("request_id", rr.RequestID).
		Str("decided_by", req.DecidedBy).
		Msg("refund request rejected")
	return s.reload(ctx, rr.RequestID)
}

func (s *RefundServiceImpl) reserveAndExecute(ctx context.Context, rr *domain.RefundRequest, req ports.DecideRefundRequest) (*domain.RefundRequest, error) {
	txn, err := s.txnStore.GetByID(ctx, rr.TxnKind, rr.TxnID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get transaction: %w", err))
	}
	if txn == nil {
		return nil, apperror.ErrUnknownTransaction(fmt.Sprintf("%s/%s", rr.TxnKind, rr.TxnID))
	}
	if !txn.IsRefundable() {
		return nil, apperror.ErrNotRefundable()
	}
	if txn.ExternalReference == "" {
		return nil, apperror.ErrConsistency(fmt.Sprintf("captured transaction %s has no capture reference", txn.ID))
	}

	// Materialize the full-remaining sentinel against the current balance.
	amount, err := s.resolveAmount(rr, txn)
	if err != nil {
		return nil, err
	}

	if err := s.strategy.Reserve(ctx, txn, rr, amount); err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == "CONF_001" {
			// The transactional path leaves a losing request PENDING; close it
			// so both strategies land conflicts in the same terminal state.
			res := &domain.Resolution{DecidedBy: req.DecidedBy, Note: "insufficient remaining balance"}
			if _, cerr := s.requestRepo.Resolve(ctx, rr.RequestID, domain.RefundStatusPending, domain.RefundStatusRolledBack, res); cerr != nil {
				s.log.Error().Err(cerr).Str("request_id", rr.RequestID).Msg("failed to close request after balance conflict")
			}
		}
		return nil, err
	}

	// External execution, outside any store transaction. The idempotency key
	// makes a processor-side retry of this request settle the same refund.
	idemKey := rr.IdempotencyKey()
	pr, err := s.processor.ExecuteRefund(ctx, txn.ExternalReference, amount, txn.Currency, idemKey)
	if err != nil {
		s.log.Error().Err(err).
			Str("request_id", rr.RequestID).
			Str("capture_ref", txn.ExternalReference).
			Float64("amount", amount).
			Str("strategy", s.strategy.Name()).
			Msg("refund execution failed, rolling back reservation")
		if rerr := s.strategy.Release(ctx, rr); rerr != nil {
			s.log.Error().Err(rerr).Str("request_id", rr.RequestID).Msg("rollback failed; the reaper will resolve the request")
		}
		return nil, err
	}

	refundID := pr.RefundID
	if refundID == "" {
		// Stand-in until the processor reports the real id.
		refundID = idemKey
	}
	entry := domain.RefundEntry{
		RefundID:  refundID,
		RequestID: rr.RequestID,
		LineID:    rr.LineID,
		Amount:    amount,
		Currency:  txn.Currency,
		Reason:    req.Note,
		By:        req.DecidedBy,
		Source:    domain.RefundSourceAdmin,
		CreatedAt: time.Now().UTC(),
	}
	res := &domain.Resolution{DecidedBy: req.DecidedBy, Note: req.Note, RefundID: refundID}

	if _, err := s.strategy.Commit(ctx, rr, entry, res); err != nil {
		// The refund executed; never release the hold here. The lingering
		// RESERVED state is surfaced for the operator instead of guessed at.
		s.log.Error().Err(err).
			Str("request_id", rr.RequestID).
			Str("refund_id", refundID).
			Msg("refund executed but ledger commit failed")
		return nil, err
	}

	return s.reload(ctx, rr.RequestID)
}

// resolveAmount returns the concrete amount to reserve: the requested amount,
// or the scope's remaining balance for the full-remaining sentinel.
func (s *RefundServiceImpl) resolveAmount(rr *domain.RefundRequest, txn *domain.TransactionRecord) (float64, error) {
	if rr.Amount != nil {
		return *rr.Amount, nil
	}
	remaining, ok := txn.RemainingFor(rr.LineID)
	if !ok {
		return 0, apperror.Validation(fmt.Sprintf("line item %q not found", rr.LineID))
	}
	if remaining < domain.MinorUnitEpsilon {
		return 0, apperror.ErrBalanceConflict()
	}
	return remaining, nil
}

func (s *RefundServiceImpl) reload(ctx context.Context, requestID string) (*domain.RefundRequest, error) {
	rr, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("reload refund request: %w", err))
	}
	if rr == nil {
		return nil, apperror.ErrConsistency(fmt.Sprintf("refund request %s vanished after decision", requestID))
	}
	return rr, nil
}
