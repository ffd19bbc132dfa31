package service

import (
	"context"
	"fmt"

	"church-payments/internal/core/domain"
	"church-payments/internal/core/ports"
	"church-payments/pkg/apperror"

	"github.com/rs/zerolog"
)

// LedgerQueryServiceImpl implements ports.LedgerQueryService: read access to
// ledger records with ownership enforcement.
type LedgerQueryServiceImpl struct {
	txnStore   ports.TransactionStore
	authorizer ports.Authorizer
	log        zerolog.Logger
}

// NewLedgerQueryService creates a new LedgerQueryServiceImpl.
func NewLedgerQueryService(txnStore ports.TransactionStore, authorizer ports.Authorizer, log zerolog.Logger) *LedgerQueryServiceImpl {
	return &LedgerQueryServiceImpl{
		txnStore:   txnStore,
		authorizer: authorizer,
		log:        log,
	}
}

// GetTransaction returns one ledger record for its owner or an admin.
func (s *LedgerQueryServiceImpl) GetTransaction(ctx context.Context, kind domain.TransactionKind, id string, claims *ports.TokenClaims) (*domain.TransactionRecord, error) {
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
	if !s.authorizer.CanAccess(claims, rec.OwnerID) {
		return nil, apperror.ErrNotOwner()
	}

	return rec, nil
}

// ListTransactions returns a page of ledger records. Callers scope the params
// to the requesting owner before calling; admin listings pass them through.
func (s *LedgerQueryServiceImpl) ListTransactions(ctx context.Context, params ports.TransactionListParams) ([]domain.TransactionRecord, int64, error) {
	if !params.Kind.Valid() {
		return nil, 0, apperror.Validation(fmt.Sprintf("unknown transaction kind %q", params.Kind))
	}
	normalizePaging(&params.Page, &params.PageSize)

	recs, total, err := s.txnStore.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(fmt.Errorf("list transactions: %w", err))
	}
	return recs, total, nil
}

// normalizePaging clamps page/pageSize to sane bounds.
func normalizePaging(page, pageSize *int) {
	if *page < 1 {
		*page = 1
	}
	if *pageSize < 1 {
		*pageSize = 20
	}
	if *pageSize > 100 {
		*pageSize = 100
	}
}
