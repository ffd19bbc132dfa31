package service

import (
	"context"
	"testing"
	"time"

	"church-payments/internal/core/domain"
	"church-payments/internal/core/ports"
	"church-payments/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type reaperTestDeps struct {
	reaper      *Reaper
	txnStore    *mocks.MockTransactionStore
	requestRepo *mocks.MockRefundRequestRepository
	ctrl        *gomock.Controller
}

func setupReaper(t *testing.T) *reaperTestDeps {
	ctrl := gomock.NewController(t)
	d := &reaperTestDeps{
		txnStore:    mocks.NewMockTransactionStore(ctrl),
		requestRepo: mocks.NewMockRefundRequestRepository(ctrl),
		ctrl:        ctrl,
	}
	d.reaper = NewReaper(d.txnStore, d.requestRepo, time.Minute, 10*time.Minute, zerolog.Nop())
	return d
}

func staleReserving(txn *domain.TransactionRecord, amount float64) domain.RefundRequest {
	return domain.RefundRequest{
		RequestID: "req-stale",
		TxnKind:   txn.Kind,
		TxnID:     txn.ID,
		Amount:    &amount,
		Status:    domain.RefundStatusReserving,
		CreatedAt: time.Now().Add(-time.Hour),
	}
}

// ==================== Stale Request Tests ====================

func TestReaper_StaleRequestWithMarker_RollsBack(t *testing.T) {
	d := setupReaper(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	txn := capturedTxn(domain.KindEvent, "txn-1", "user-1", 100)
	marker := domain.ReservationMarker{RequestID: "req-stale", Amount: 30, CreatedAt: time.Now().Add(-time.Hour)}
	txn.Reservations = []domain.ReservationMarker{marker}
	txn.ReservedTotal = 30
	req := staleReserving(txn, 30)

	d.requestRepo.EXPECT().ListStale(ctx, domain.RefundStatusReserving, gomock.Any()).Return([]domain.RefundRequest{req}, nil)
	d.txnStore.EXPECT().GetByID(ctx, domain.KindEvent, "txn-1").Return(txn, nil)
	// The marker cleared is the one found on the record, not a rebuild.
	d.txnStore.EXPECT().ClearReservation(ctx, domain.KindEvent, "txn-1", marker).Return(true, nil)
	d.requestRepo.EXPECT().
		Resolve(ctx, "req-stale", domain.RefundStatusReserved, domain.RefundStatusRolledBack, gomock.Any()).
		Return(false, nil)
	d.requestRepo.EXPECT().
		Resolve(ctx, "req-stale", domain.RefundStatusReserving, domain.RefundStatusRolledBack, gomock.Any()).
		Return(true, nil)
	d.txnStore.EXPECT().ListStaleMarkers(ctx, gomock.Any()).Return(nil, nil)

	err := d.reaper.SweepOnce(ctx)
	require.NoError(t, err)
}

func TestReaper_MarkerlessRequestWithEntry_Completes(t *testing.T) {
	d := setupReaper(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	txn := capturedTxn(domain.KindEvent, "txn-1", "user-1", 100)
	// The commit landed before the crash: the entry is back-linked.
	txn.Refunds = []domain.RefundEntry{{RefundID: "REF-1", RequestID: "req-stale", Amount: 30}}
	txn.RefundedTotal = 30
	req := staleReserving(txn, 30)

	d.requestRepo.EXPECT().ListStale(ctx, domain.RefundStatusReserving, gomock.Any()).Return([]domain.RefundRequest{req}, nil)
	d.txnStore.EXPECT().GetByID(ctx, domain.KindEvent, "txn-1").Return(txn, nil)
	d.requestRepo.EXPECT().
		Resolve(ctx, "req-stale", domain.RefundStatusReserved, domain.RefundStatusCompleted, gomock.Any()).
		Return(false, nil)
	d.requestRepo.EXPECT().
		Resolve(ctx, "req-stale", domain.RefundStatusReserving, domain.RefundStatusCompleted, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _, _ domain.RefundRequestStatus, res *domain.Resolution) (bool, error) {
			assert.Equal(t, "REF-1", res.RefundID)
			return true, nil
		})
	d.txnStore.EXPECT().ListStaleMarkers(ctx, gomock.Any()).Return(nil, nil)

	err := d.reaper.SweepOnce(ctx)
	require.NoError(t, err)
}

func TestReaper_MarkerlessRequestWithIdempotencyKeyEntry_Completes(t *testing.T) {
	d := setupReaper(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	txn := capturedTxn(domain.KindEvent, "txn-1", "user-1", 100)
	req := staleReserving(txn, 30)
	// The entry was written before the processor reported the real refund id.
	txn.Refunds = []domain.RefundEntry{{RefundID: req.IdempotencyKey(), Amount: 30}}
	txn.RefundedTotal = 30

	d.requestRepo.EXPECT().ListStale(ctx, domain.RefundStatusReserving, gomock.Any()).Return([]domain.RefundRequest{req}, nil)
	d.txnStore.EXPECT().GetByID(ctx, domain.KindEvent, "txn-1").Return(txn, nil)
	d.requestRepo.EXPECT().
		Resolve(ctx, "req-stale", domain.RefundStatusReserved, domain.RefundStatusCompleted, gomock.Any()).
		Return(false, nil)
	d.requestRepo.EXPECT().
		Resolve(ctx, "req-stale", domain.RefundStatusReserving, domain.RefundStatusCompleted, gomock.Any()).
		Return(true, nil)
	d.txnStore.EXPECT().ListStaleMarkers(ctx, gomock.Any()).Return(nil, nil)

	err := d.reaper.SweepOnce(ctx)
	require.NoError(t, err)
}

func TestReaper_MarkerlessRequestWithoutEntry_RollsBack(t *testing.T) {
	d := setupReaper(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	txn := capturedTxn(domain.KindEvent, "txn-1", "user-1", 100)
	req := staleReserving(txn, 30)

	d.requestRepo.EXPECT().ListStale(ctx, domain.RefundStatusReserving, gomock.Any()).Return([]domain.RefundRequest{req}, nil)
	d.txnStore.EXPECT().GetByID(ctx, domain.KindEvent, "txn-1").Return(txn, nil)
	d.requestRepo.EXPECT().
		Resolve(ctx, "req-stale", domain.RefundStatusReserved, domain.RefundStatusRolledBack, gomock.Any()).
		Return(false, nil)
	d.requestRepo.EXPECT().
		Resolve(ctx, "req-stale", domain.RefundStatusReserving, domain.RefundStatusRolledBack, gomock.Any()).
		Return(true, nil)
	d.txnStore.EXPECT().ListStaleMarkers(ctx, gomock.Any()).Return(nil, nil)

	err := d.reaper.SweepOnce(ctx)
	require.NoError(t, err)
}

func TestReaper_StaleRequestUnknownTransaction_LeftForOperator(t *testing.T) {
	d := setupReaper(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	req := domain.RefundRequest{
		RequestID: "req-stale",
		TxnKind:   domain.KindEvent,
		TxnID:     "txn-ghost",
		Status:    domain.RefundStatusReserving,
	}

	d.requestRepo.EXPECT().ListStale(ctx, domain.RefundStatusReserving, gomock.Any()).Return([]domain.RefundRequest{req}, nil)
	d.txnStore.EXPECT().GetByID(ctx, domain.KindEvent, "txn-ghost").Return(nil, nil)
	d.txnStore.EXPECT().ListStaleMarkers(ctx, gomock.Any()).Return(nil, nil)

	err := d.reaper.SweepOnce(ctx)
	require.NoError(t, err)
}

// ==================== Stale Marker Tests ====================

func TestReaper_MarkerOnTerminalRequest_Cleared(t *testing.T) {
	d := setupReaper(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	marker := domain.ReservationMarker{RequestID: "req-done", Amount: 30, CreatedAt: time.Now().Add(-time.Hour)}
	sm := ports.StaleMarker{TxnKind: domain.KindEvent, TxnID: "txn-1", Marker: marker}
	done := &domain.RefundRequest{RequestID: "req-done", Status: domain.RefundStatusCompleted}

	d.requestRepo.EXPECT().ListStale(ctx, domain.RefundStatusReserving, gomock.Any()).Return(nil, nil)
	d.txnStore.EXPECT().ListStaleMarkers(ctx, gomock.Any()).Return([]ports.StaleMarker{sm}, nil)
	d.requestRepo.EXPECT().GetByID(ctx, "req-done").Return(done, nil)
	d.txnStore.EXPECT().ClearReservation(ctx, domain.KindEvent, "txn-1", marker).Return(true, nil)

	err := d.reaper.SweepOnce(ctx)
	require.NoError(t, err)
}

func TestReaper_MarkerOnReservedRequest_LeftAlone(t *testing.T) {
	d := setupReaper(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	marker := domain.ReservationMarker{RequestID: "req-live", Amount: 30, CreatedAt: time.Now().Add(-time.Hour)}
	sm := ports.StaleMarker{TxnKind: domain.KindEvent, TxnID: "txn-1", Marker: marker}
	live := &domain.RefundRequest{RequestID: "req-live", Status: domain.RefundStatusReserved}

	d.requestRepo.EXPECT().ListStale(ctx, domain.RefundStatusReserving, gomock.Any()).Return(nil, nil)
	d.txnStore.EXPECT().ListStaleMarkers(ctx, gomock.Any()).Return([]ports.StaleMarker{sm}, nil)
	d.requestRepo.EXPECT().GetByID(ctx, "req-live").Return(live, nil)

	// The coordinator owns RESERVED; the hold stays.
	err := d.reaper.SweepOnce(ctx)
	require.NoError(t, err)
}

func TestReaper_MarkerOnUnknownRequest_LeftForOperator(t *testing.T) {
	d := setupReaper(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	marker := domain.ReservationMarker{RequestID: "req-ghost", Amount: 30}
	sm := ports.StaleMarker{TxnKind: domain.KindEvent, TxnID: "txn-1", Marker: marker}

	d.requestRepo.EXPECT().ListStale(ctx, domain.RefundStatusReserving, gomock.Any()).Return(nil, nil)
	d.txnStore.EXPECT().ListStaleMarkers(ctx, gomock.Any()).Return([]ports.StaleMarker{sm}, nil)
	d.requestRepo.EXPECT().GetByID(ctx, "req-ghost").Return(nil, nil)

	err := d.reaper.SweepOnce(ctx)
	require.NoError(t, err)
}

// ==================== Run Tests ====================

func TestReaper_RunStopsOnCancel(t *testing.T) {
	d := setupReaper(t)
	defer d.ctrl.Finish()

	d.reaper.interval = 10 * time.Millisecond
	d.requestRepo.EXPECT().ListStale(gomock.Any(), domain.RefundStatusReserving, gomock.Any()).Return(nil, nil).AnyTimes()
	d.txnStore.EXPECT().ListStaleMarkers(gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.reaper.Run(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop on context cancel")
	}
}
