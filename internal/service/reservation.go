package service

import (
	"context"

	"church-payments/internal/core/domain"
	"church-payments/internal/core/ports"

	"github.com/rs/zerolog"
)

// SelectReservationStrategy picks the reservation path from the deployment's
// capabilities, once at startup: multi-document transactions when the store
// supports them, the marker saga otherwise. Callers cannot tell the two
// apart.
func SelectReservationStrategy(
	runner ports.TxnRunner,
	txnStore ports.TransactionStore,
	requestRepo ports.RefundRequestRepository,
	updater ports.RefundLedgerUpdater,
	log zerolog.Logger,
) ports.ReservationStrategy {
	if runner.Supported() {
		return NewTxnStrategy(txnStore, requestRepo, updater, runner, log)
	}
	return NewSagaStrategy(txnStore, requestRepo, updater, log)
}

// closeRequest resolves a request out of the reservation pipeline, trying the
// RESERVED then RESERVING starting states. Returns whether any CAS matched.
func closeRequest(ctx context.Context, repo ports.RefundRequestRepository, requestID string, to domain.RefundRequestStatus, res *domain.Resolution) (bool, error) {
	for _, from := range []domain.RefundRequestStatus{domain.RefundStatusReserved, domain.RefundStatusReserving} {
		ok, err := repo.Resolve(ctx, requestID, from, to, res)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// markerFor rebuilds the marker a request holds on its ledger record. The
// amount was materialized when the request entered the pipeline.
func markerFor(req *domain.RefundRequest) domain.ReservationMarker {
	var amount float64
	if req.Amount != nil {
		amount = *req.Amount
	}
	return domain.ReservationMarker{
		RequestID: req.RequestID,
		LineID:    req.LineID,
		Amount:    amount,
	}
}
