package service

import (
	"context"
	"fmt"

	"church-payments/internal/core/domain"
	"church-payments/internal/core/ports"
	"church-payments/pkg/apperror"

	"github.com/rs/zerolog"
)

// deriveStatusAttempts bounds the CAS loop when concurrent appliers race on
// the derived status. Losing every attempt means another applier derived
// against newer totals, so the record is already converging.
const deriveStatusAttempts = 3

// LedgerUpdaterImpl implements ports.RefundLedgerUpdater: append one refund
// entry (idempotent by refund id), release a lingering reservation hold in
// the same atomic update and re-derive the record status.
type LedgerUpdaterImpl struct {
	txnStore ports.TransactionStore
	log      zerolog.Logger
}

// NewLedgerUpdater creates a new LedgerUpdaterImpl.
func NewLedgerUpdater(txnStore ports.TransactionStore, log zerolog.Logger) *LedgerUpdaterImpl {
	return &LedgerUpdaterImpl{
		txnStore: txnStore,
		log:      log,
	}
}

// Apply appends entry to the record's refund list unless an entry with the
// same refund id is already present. The append, the running totals and the
// optional marker release ride one conditional update; a duplicate refund id
// degrades to a no-op that still clears the marker, so a retried commit can
// never double-count.
func (s *LedgerUpdaterImpl) Apply(ctx context.Context, kind domain.TransactionKind, txnID string, entry domain.RefundEntry, clearMarker *domain.ReservationMarker) (*domain.TransactionRecord, bool, error) {
	applied, err := s.txnStore.AppendRefund(ctx, kind, txnID, entry, clearMarker)
	if err != nil {
		return nil, false, apperror.ErrDatabaseError(fmt.Errorf("append refund: %w", err))
	}
	if applied {
		s.log.Info().
			Str("txn_kind", string(kind)).
			Str("txn_id", txnID).
			Str("refund_id", entry.RefundID).
			Float64("amount", entry.Amount).
			Str("source", string(entry.Source)).
			Msg("refund entry appended")
	} else {
		s.log.Debug().
			Str("txn_id", txnID).
			Str("refund_id", entry.RefundID).
			Msg("refund entry already applied")
	}

	rec, err := s.deriveStatus(ctx, kind, txnID)
	if err != nil {
		return nil, applied, err
	}
	return rec, applied, nil
}

// deriveStatus re-reads the record and CASes its status to the one implied by
// the refunded total. The CAS is guarded on the observed status and total, so
// a concurrent append invalidates this writer's view and the loop re-derives
// against fresh state.
func (s *LedgerUpdaterImpl) deriveStatus(ctx context.Context, kind domain.TransactionKind, txnID string) (*domain.TransactionRecord, error) {
	for attempt := 0; attempt < deriveStatusAttempts; attempt++ {
		rec, err := s.txnStore.GetByID(ctx, kind, txnID)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("reread transaction: %w", err))
		}
		if rec == nil {
			return nil, apperror.ErrConsistency(fmt.Sprintf("transaction %s/%s vanished during refund apply", kind, txnID))
		}

		next := domain.DeriveStatus(rec.Status, rec.Amount, rec.RefundedTotal)
		if next == rec.Status {
			return rec, nil
		}

		ok, err := s.txnStore.SetDerivedStatus(ctx, kind, txnID, rec.Status, next, rec.RefundedTotal)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("set derived status: %w", err))
		}
		if ok {
			s.log.Info().
				Str("txn_id", txnID).
				Str("from", string(rec.Status)).
				Str("to", string(next)).
				Msg("transaction status derived")
			rec.Status = next
			return rec, nil
		}
		// Lost the CAS to a concurrent applier; re-derive from fresh state.
	}

	rec, err := s.txnStore.GetByID(ctx, kind, txnID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("reread transaction: %w", err))
	}
	if rec == nil {
		return nil, apperror.ErrConsistency(fmt.Sprintf("transaction %s/%s vanished during refund apply", kind, txnID))
	}
	return rec, nil
}
