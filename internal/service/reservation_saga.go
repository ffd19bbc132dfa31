package service

import (
	"context"
	"fmt"
	"time"

	"church-payments/internal/core/domain"
	"church-payments/internal/core/ports"
	"church-payments/pkg/apperror"

	"github.com/rs/zerolog"
)

// SagaStrategy implements ports.ReservationStrategy without multi-document
// transactions. The provisional hold is a reservation marker written onto the
// ledger record by one conditional update guarded on the remaining balance;
// the marker is the lock-equivalent, expressed as data so it survives process
// restarts and is visible to the reaper.
type SagaStrategy struct {
	txnStore    ports.TransactionStore
	requestRepo ports.RefundRequestRepository
	updater     ports.RefundLedgerUpdater
	log         zerolog.Logger
}

// NewSagaStrategy creates a new SagaStrategy.
func NewSagaStrategy(
	txnStore ports.TransactionStore,
	requestRepo ports.RefundRequestRepository,
	updater ports.RefundLedgerUpdater,
	log zerolog.Logger,
) *SagaStrategy {
	return &SagaStrategy{
		txnStore:    txnStore,
		requestRepo: requestRepo,
		updater:     updater,
		log:         log,
	}
}

// Name identifies the strategy in logs.
func (s *SagaStrategy) Name() string { return "saga" }

// Reserve walks the saga's reservation half: record durable intent
// (RESERVING), earmark the balance through the marker, then promote to
// RESERVED. Every step is a conditional update. A lost balance guard closes
// the request ROLLED_BACK and reports a conflict; the caller refreshes and
// retries, never this code.
func (s *SagaStrategy) Reserve(ctx context.Context, txn *domain.TransactionRecord, req *domain.RefundRequest, amount float64) error {
	ok, err := s.requestRepo.TransitionStatus(ctx, req.RequestID, domain.RefundStatusPending, domain.RefundStatusReserving, &amount)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("enter reserving: %w", err))
	}
	if !ok {
		return apperror.ErrStatusConflict("refund request is not pending")
	}
	req.Status = domain.RefundStatusReserving
	req.Amount = &amount

	marker := domain.ReservationMarker{
		RequestID: req.RequestID,
		LineID:    req.LineID,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
	reserved, err := s.txnStore.RegisterReservation(ctx, txn.Kind, txn.ID, marker)
	if err != nil {
		// Unknown write outcome. The request stays RESERVING; the reaper
		// rolls back anything whose reservation never confirmed.
		return apperror.ErrDatabaseError(fmt.Errorf("register reservation: %w", err))
	}
	if !reserved {
		if _, cerr := closeRequest(ctx, s.requestRepo, req.RequestID, domain.RefundStatusRolledBack, nil); cerr != nil {
			s.log.Error().Err(cerr).Str("request_id", req.RequestID).Msg("failed to close request after lost balance guard")
		}
		return apperror.ErrBalanceConflict()
	}

	ok, err = s.requestRepo.TransitionStatus(ctx, req.RequestID, domain.RefundStatusReserving, domain.RefundStatusReserved, nil)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("promote to reserved: %w", err))
	}
	if !ok {
		// The reaper or an operator took the request out of the pipeline
		// between steps; undo the marker before reporting.
		if _, cerr := s.txnStore.ClearReservation(ctx, txn.Kind, txn.ID, marker); cerr != nil {
			s.log.Error().Err(cerr).Str("request_id", req.RequestID).Msg("failed to clear marker after lost promotion")
		}
		return apperror.ErrStatusConflict("refund request left the reservation pipeline")
	}
	req.Status = domain.RefundStatusReserved

	s.log.Info().
		Str("request_id", req.RequestID).
		Str("txn_kind", string(txn.Kind)).
		Str("txn_id", txn.ID).
		Float64("amount", amount).
		Msg("reservation registered")
	return nil
}

// Release undoes the hold: clear the marker (a no-op when already cleared)
// and close the request ROLLED_BACK. Safe to call repeatedly and safe to
// race with the reaper.
func (s *SagaStrategy) Release(ctx context.Context, req *domain.RefundRequest) error {
	cleared, err := s.txnStore.ClearReservation(ctx, req.TxnKind, req.TxnID, markerFor(req))
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("clear reservation: %w", err))
	}

	closed, err := closeRequest(ctx, s.requestRepo, req.RequestID, domain.RefundStatusRolledBack, nil)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("close request: %w", err))
	}
	if closed {
		req.Status = domain.RefundStatusRolledBack
	}

	if cleared || closed {
		s.log.Info().
			Str("request_id", req.RequestID).
			Str("txn_id", req.TxnID).
			Bool("marker_cleared", cleared).
			Msg("reservation rolled back")
	}
	return nil
}

// Commit writes the durable refund entry, releasing the marker in the same
// atomic update, then resolves the request COMPLETED.
func (s *SagaStrategy) Commit(ctx context.Context, req *domain.RefundRequest, entry domain.RefundEntry, res *domain.Resolution) (*domain.TransactionRecord, error) {
	marker := markerFor(req)
	rec, _, err := s.updater.Apply(ctx, req.TxnKind, req.TxnID, entry, &marker)
	if err != nil {
		return nil, err
	}

	ok, err := s.requestRepo.Resolve(ctx, req.RequestID, domain.RefundStatusReserved, domain.RefundStatusCompleted, res)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("resolve request: %w", err))
	}
	if ok {
		req.Status = domain.RefundStatusCompleted
	} else {
		s.log.Warn().Str("request_id", req.RequestID).Msg("request already resolved at commit")
	}

	s.log.Info().
		Str("request_id", req.RequestID).
		Str("refund_id", entry.RefundID).
		Float64("amount", entry.Amount).
		Msg("refund committed")
	return rec, nil
}
