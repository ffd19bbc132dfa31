package service

import (
	"context"
	"fmt"
	"time"

	"church-payments/internal/core/domain"
	"church-payments/internal/core/ports"

	"github.com/rs/zerolog"
)

// Reaper resolves refund requests stranded in RESERVING by crashed or
// partitioned coordinators, and reservation markers that outlived their
// requests. Every action is an idempotent conditional update, so concurrent
// reapers during a rolling deploy cannot double-process.
type Reaper struct {
	txnStore    ports.TransactionStore
	requestRepo ports.RefundRequestRepository
	interval    time.Duration
	staleAfter  time.Duration
	log         zerolog.Logger
}

// NewReaper creates a new Reaper. staleAfter should comfortably exceed any
// plausible external-call latency; a sweep that fires while a healthy
// coordinator is mid-flight would roll back a reservation it still needs.
func NewReaper(
	txnStore ports.TransactionStore,
	requestRepo ports.RefundRequestRepository,
	interval, staleAfter time.Duration,
	log zerolog.Logger,
) *Reaper {
	return &Reaper{
		txnStore:    txnStore,
		requestRepo: requestRepo,
		interval:    interval,
		staleAfter:  staleAfter,
		log:         log,
	}
}

// Run sweeps on a fixed interval until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info().
		Dur("interval", r.interval).
		Dur("stale_after", r.staleAfter).
		Msg("reservation reaper started")

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("reservation reaper stopped")
			return
		case <-ticker.C:
			if err := r.SweepOnce(ctx); err != nil {
				r.log.Error().Err(err).Msg("reaper sweep failed")
			}
		}
	}
}

// SweepOnce runs one sweep: stranded RESERVING requests first, then markers
// that outlived their requests.
func (r *Reaper) SweepOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-r.staleAfter)

	stale, err := r.requestRepo.ListStale(ctx, domain.RefundStatusReserving, cutoff)
	if err != nil {
		return fmt.Errorf("list stale requests: %w", err)
	}
	for i := range stale {
		if err := r.resolveStaleRequest(ctx, &stale[i]); err != nil {
			r.log.Error().Err(err).Str("request_id", stale[i].RequestID).Msg("failed to resolve stale request")
		}
	}

	markers, err := r.txnStore.ListStaleMarkers(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list stale markers: %w", err)
	}
	for _, sm := range markers {
		if err := r.resolveStaleMarker(ctx, sm); err != nil {
			r.log.Error().Err(err).Str("request_id", sm.Marker.RequestID).Msg("failed to resolve stale marker")
		}
	}

	return nil
}

// resolveStaleRequest settles one request stuck in RESERVING. A refund is
// never assumed executed without evidence: a live marker means the process
// died before execution confirmed, so the hold is released; an absent marker
// means the request resolved elsewhere, and the ledger decides which way.
func (r *Reaper) resolveStaleRequest(ctx context.Context, req *domain.RefundRequest) error {
	txn, err := r.txnStore.GetByID(ctx, req.TxnKind, req.TxnID)
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}
	if txn == nil {
		r.log.Error().
			Str("request_id", req.RequestID).
			Str("txn_kind", string(req.TxnKind)).
			Str("txn_id", req.TxnID).
			Msg("stale request references unknown transaction; leaving for the operator")
		return nil
	}

	if txn.HasReservation(req.RequestID) {
		return r.rollBackStale(ctx, txn, req)
	}
	return r.settleMarkerless(ctx, txn, req)
}

func (r *Reaper) rollBackStale(ctx context.Context, txn *domain.TransactionRecord, req *domain.RefundRequest) error {
	// Clear the exact marker the record holds, not a reconstruction.
	var marker domain.ReservationMarker
	for _, m := range txn.Reservations {
		if m.RequestID == req.RequestID {
			marker = m
			break
		}
	}

	cleared, err := r.txnStore.ClearReservation(ctx, txn.Kind, txn.ID, marker)
	if err != nil {
		return fmt.Errorf("clear reservation: %w", err)
	}

	res := &domain.Resolution{Note: "stale reservation rolled back"}
	closed, err := closeRequest(ctx, r.requestRepo, req.RequestID, domain.RefundStatusRolledBack, res)
	if err != nil {
		return fmt.Errorf("close request: %w", err)
	}

	r.log.Info().
		Str("request_id", req.RequestID).
		Str("txn_id", txn.ID).
		Float64("amount", marker.Amount).
		Bool("marker_cleared", cleared).
		Bool("request_closed", closed).
		Msg("stale reservation rolled back")
	return nil
}

func (r *Reaper) settleMarkerless(ctx context.Context, txn *domain.TransactionRecord, req *domain.RefundRequest) error {
	entry, found := txn.RefundForRequest(req.RequestID)
	if !found {
		// The entry may carry the idempotency key written before the
		// processor reported a refund id.
		for _, e := range txn.Refunds {
			if e.RefundID == req.IdempotencyKey() {
				entry, found = e, true
				break
			}
		}
	}

	if found {
		res := &domain.Resolution{Note: "recovered after interrupted commit", RefundID: entry.RefundID}
		closed, err := closeRequest(ctx, r.requestRepo, req.RequestID, domain.RefundStatusCompleted, res)
		if err != nil {
			return fmt.Errorf("complete request: %w", err)
		}
		r.log.Info().
			Str("request_id", req.RequestID).
			Str("refund_id", entry.RefundID).
			Bool("request_closed", closed).
			Msg("stale request completed from committed entry")
		return nil
	}

	res := &domain.Resolution{Note: "reservation never confirmed"}
	closed, err := closeRequest(ctx, r.requestRepo, req.RequestID, domain.RefundStatusRolledBack, res)
	if err != nil {
		return fmt.Errorf("close request: %w", err)
	}
	r.log.Info().
		Str("request_id", req.RequestID).
		Bool("request_closed", closed).
		Msg("stale request rolled back, no marker and no entry")
	return nil
}

// resolveStaleMarker handles a marker older than the cutoff whose request is
// no longer driving it. Terminal requests get their leftover marker cleared
// (a marker must never outlive its request); anything unexplained is logged
// for the operator, never guessed at.
func (r *Reaper) resolveStaleMarker(ctx context.Context, sm ports.StaleMarker) error {
	req, err := r.requestRepo.GetByID(ctx, sm.Marker.RequestID)
	if err != nil {
		return fmt.Errorf("get refund request: %w", err)
	}
	if req == nil {
		r.log.Error().
			Str("request_id", sm.Marker.RequestID).
			Str("txn_kind", string(sm.TxnKind)).
			Str("txn_id", sm.TxnID).
			Float64("amount", sm.Marker.Amount).
			Msg("reservation marker references unknown refund request; leaving for the operator")
		return nil
	}

	switch {
	case req.Status.Terminal():
		cleared, err := r.txnStore.ClearReservation(ctx, sm.TxnKind, sm.TxnID, sm.Marker)
		if err != nil {
			return fmt.Errorf("clear reservation: %w", err)
		}
		if cleared {
			r.log.Warn().
				Str("request_id", req.RequestID).
				Str("status", string(req.Status)).
				Msg("cleared marker that outlived its resolved request")
		}
	case req.Status == domain.RefundStatusReserved:
		// Execution or commit in flight far beyond the stale window. The
		// coordinator owns RESERVED; flag it instead of touching it.
		r.log.Warn().
			Str("request_id", req.RequestID).
			Str("txn_id", sm.TxnID).
			Time("reserved_since", sm.Marker.CreatedAt).
			Msg("reservation held by RESERVED request beyond the stale window")
	}
	// RESERVING markers are settled by the stale-request pass.
	return nil
}
