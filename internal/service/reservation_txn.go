package service

import (
	"context"
	"errors"
	"fmt"

	"church-payments/internal/core/domain"
	"church-payments/internal/core/ports"
	"church-payments/pkg/apperror"

	"github.com/rs/zerolog"
)

// TxnStrategy implements ports.ReservationStrategy on deployments with
// multi-document transactions. The RESERVED request row, inserted in the same
// transaction that validates the balance, is itself the provisional hold; no
// marker is written and nothing is deducted from the record.
type TxnStrategy struct {
	txnStore    ports.TransactionStore
	requestRepo ports.RefundRequestRepository
	updater     ports.RefundLedgerUpdater
	runner      ports.TxnRunner
	log         zerolog.Logger
}

// NewTxnStrategy creates a new TxnStrategy.
func NewTxnStrategy(
	txnStore ports.TransactionStore,
	requestRepo ports.RefundRequestRepository,
	updater ports.RefundLedgerUpdater,
	runner ports.TxnRunner,
	log zerolog.Logger,
) *TxnStrategy {
	return &TxnStrategy{
		txnStore:    txnStore,
		requestRepo: requestRepo,
		updater:     updater,
		runner:      runner,
		log:         log,
	}
}

// Name identifies the strategy in logs.
func (s *TxnStrategy) Name() string { return "transactional" }

// holdTotals sums the sibling requests provisionally holding balance against
// one record.
type holdTotals struct {
	record float64 // every live sibling hold
	scoped float64 // holds on the requested scope
}

// Reserve validates the balance and inserts the hold inside one session
// transaction. The revision bump dirties the record first, so two
// transactions reserving against the same record collide and the driver
// re-runs the loser against committed state; the re-run then sees the
// winner's RESERVED row and nets it out of the balance.
func (s *TxnStrategy) Reserve(ctx context.Context, txn *domain.TransactionRecord, req *domain.RefundRequest, amount float64) error {
	err := s.runner.WithinTransaction(ctx, func(txCtx context.Context) error {
		ok, err := s.txnStore.BumpRevision(txCtx, txn.Kind, txn.ID)
		if err != nil {
			return fmt.Errorf("bump revision: %w", err)
		}
		if !ok {
			return apperror.ErrNotRefundable()
		}

		fresh, err := s.txnStore.GetByID(txCtx, txn.Kind, txn.ID)
		if err != nil {
			return fmt.Errorf("reread transaction: %w", err)
		}
		if fresh == nil {
			return apperror.ErrConsistency(fmt.Sprintf("transaction %s/%s vanished during reserve", txn.Kind, txn.ID))
		}

		holds, err := s.activeHolds(txCtx, fresh, req)
		if err != nil {
			return err
		}

		remaining, ok := fresh.RemainingFor(req.LineID)
		if !ok {
			return apperror.Validation(fmt.Sprintf("line item %q not found", req.LineID))
		}
		if remaining-holds.scoped+domain.MinorUnitEpsilon < amount {
			return apperror.ErrBalanceConflict()
		}
		if req.LineID != "" {
			// A line reservation must also fit the record-level balance once
			// record-scoped sibling holds are netted out.
			if fresh.Remaining()-holds.record+domain.MinorUnitEpsilon < amount {
				return apperror.ErrBalanceConflict()
			}
		}

		ok, err = s.requestRepo.TransitionStatus(txCtx, req.RequestID, domain.RefundStatusPending, domain.RefundStatusReserved, &amount)
		if err != nil {
			return fmt.Errorf("reserve request: %w", err)
		}
		if !ok {
			return apperror.ErrStatusConflict("refund request is not pending")
		}
		return nil
	})
	if err != nil {
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return apperror.ErrDatabaseError(fmt.Errorf("reserve transaction: %w", err))
	}

	req.Status = domain.RefundStatusReserved
	req.Amount = &amount

	s.log.Info().
		Str("request_id", req.RequestID).
		Str("txn_kind", string(txn.Kind)).
		Str("txn_id", txn.ID).
		Float64("amount", amount).
		Msg("reservation transaction committed")
	return nil
}

// activeHolds sums sibling RESERVING/RESERVED requests against the record.
// A sibling that also wrote a marker is skipped: its hold is already netted
// through the record's reserved totals.
func (s *TxnStrategy) activeHolds(ctx context.Context, rec *domain.TransactionRecord, req *domain.RefundRequest) (holdTotals, error) {
	siblings, err := s.requestRepo.ListActiveForTxn(ctx, rec.Kind, rec.ID)
	if err != nil {
		return holdTotals{}, fmt.Errorf("list active requests: %w", err)
	}

	var totals holdTotals
	for _, sib := range siblings {
		if sib.RequestID == req.RequestID || sib.Amount == nil {
			continue
		}
		if rec.HasReservation(sib.RequestID) {
			continue
		}
		totals.record += *sib.Amount
		if req.LineID == "" || sib.LineID == req.LineID {
			totals.scoped += *sib.Amount
		}
	}
	return totals, nil
}

// Release closes the request. With no marker to clear, dropping the RESERVED
// row's hold is a single status CAS. Idempotent.
func (s *TxnStrategy) Release(ctx context.Context, req *domain.RefundRequest) error {
	closed, err := closeRequest(ctx, s.requestRepo, req.RequestID, domain.RefundStatusRolledBack, nil)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("close request: %w", err))
	}
	if closed {
		req.Status = domain.RefundStatusRolledBack
		s.log.Info().
			Str("request_id", req.RequestID).
			Str("txn_id", req.TxnID).
			Msg("reservation rolled back")
	}
	return nil
}

// Commit applies the durable refund entry and resolves the request COMPLETED.
func (s *TxnStrategy) Commit(ctx context.Context, req *domain.RefundRequest, entry domain.RefundEntry, res *domain.Resolution) (*domain.TransactionRecord, error) {
	rec, _, err := s.updater.Apply(ctx, req.TxnKind, req.TxnID, entry, nil)
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
