package service

import (
	"context"
	"testing"

	"church-payments/internal/core/domain"
	"church-payments/internal/core/ports/mocks"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type dispatcherTestDeps struct {
	dispatcher *DispatcherImpl
	txnStore   *mocks.MockTransactionStore
	updater    *mocks.MockRefundLedgerUpdater
	ctrl       *gomock.Controller
}

func setupDispatcher(t *testing.T) *dispatcherTestDeps {
	ctrl := gomock.NewController(t)
	d := &dispatcherTestDeps{
		txnStore: mocks.NewMockTransactionStore(ctrl),
		updater:  mocks.NewMockRefundLedgerUpdater(ctrl),
		ctrl:     ctrl,
	}
	d.dispatcher = NewDispatcher(d.txnStore, d.updater, zerolog.Nop())
	return d
}

// ==================== Routing Tests ====================

func TestDispatcher_IgnoresUnknownEventType(t *testing.T) {
	d := setupDispatcher(t)
	defer d.ctrl.Finish()

	err := d.dispatcher.Dispatch(context.Background(), "BILLING.SUBSCRIPTION.ACTIVATED", []byte(`{}`))
	require.NoError(t, err)
}

// ==================== Capture Completed Tests ====================

func TestDispatcher_CaptureCompleted(t *testing.T) {
	d := setupDispatcher(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	body := []byte(`{
		"id": "WH-58D329510W468432D-8HN650336L201105X",
		"event_type": "PAYMENT.CAPTURE.COMPLETED",
		"resource": {
			"id": "3C679366HH908993F",
			"custom_id": "event:txn-1",
			"amount": {"currency_code": "USD", "value": "120.50"},
			"supplementary_data": {"related_ids": {"order_id": "5O190127TN364715T"}}
		}
	}`)

	d.txnStore.EXPECT().
		MarkCaptured(ctx, domain.KindEvent, "5O190127TN364715T", "3C679366HH908993F", gomock.Any()).
		Return(true, nil)

	err := d.dispatcher.Dispatch(ctx, EventCaptureCompleted, body)
	require.NoError(t, err)
}

func TestDispatcher_CaptureCompleted_OrderRefFallback(t *testing.T) {
	d := setupDispatcher(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	// Sale events carry no supplementary_data; the custom id names the record.
	body := []byte(`{
		"resource": {
			"id": "8PT597110X687430LKGECATA",
			"custom_id": "donation_one_time:txn-7",
			"amount": {"currency_code": "USD", "value": "25.00"}
		}
	}`)

	rec := capturedTxn(domain.KindDonationOneTime, "txn-7", "user-1", 25)
	rec.Status = domain.TxnStatusCreated
	rec.OrderRef = "ORD-txn-7"

	d.txnStore.EXPECT().GetByID(ctx, domain.KindDonationOneTime, "txn-7").Return(rec, nil)
	d.txnStore.EXPECT().
		MarkCaptured(ctx, domain.KindDonationOneTime, "ORD-txn-7", "8PT597110X687430LKGECATA", gomock.Any()).
		Return(true, nil)

	err := d.dispatcher.Dispatch(ctx, EventSaleCompleted, body)
	require.NoError(t, err)
}

func TestDispatcher_CaptureCompleted_AlreadyRecorded(t *testing.T) {
	d := setupDispatcher(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	body := []byte(`{
		"resource": {
			"id": "3C679366HH908993F",
			"custom_id": "event:txn-1",
			"supplementary_data": {"related_ids": {"order_id": "5O190127TN364715T"}}
		}
	}`)

	rec := capturedTxn(domain.KindEvent, "txn-1", "user-1", 100)

	d.txnStore.EXPECT().
		MarkCaptured(ctx, domain.KindEvent, "5O190127TN364715T", "3C679366HH908993F", gomock.Any()).
		Return(false, nil)
	d.txnStore.EXPECT().GetByOrderRef(ctx, domain.KindEvent, "5O190127TN364715T").Return(rec, nil)

	// A redelivery after checkout already captured is not a failure.
	err := d.dispatcher.Dispatch(ctx, EventCaptureCompleted, body)
	require.NoError(t, err)
}

func TestDispatcher_CaptureCompleted_UnknownRecord(t *testing.T) {
	d := setupDispatcher(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	body := []byte(`{
		"resource": {
			"id": "3C679366HH908993F",
			"custom_id": "event:txn-ghost",
			"supplementary_data": {"related_ids": {"order_id": "5O190127TN364715T"}}
		}
	}`)

	d.txnStore.EXPECT().
		MarkCaptured(ctx, domain.KindEvent, "5O190127TN364715T", "3C679366HH908993F", gomock.Any()).
		Return(false, nil)
	d.txnStore.EXPECT().GetByOrderRef(ctx, domain.KindEvent, "5O190127TN364715T").Return(nil, nil)

	err := d.dispatcher.Dispatch(ctx, EventCaptureCompleted, body)
	assertAppError(t, err, "CON_002")
}

func TestDispatcher_CaptureCompleted_MalformedCustomID(t *testing.T) {
	d := setupDispatcher(t)
	defer d.ctrl.Finish()

	body := []byte(`{"resource": {"id": "3C679366HH908993F", "custom_id": "not-a-routing-key"}}`)

	err := d.dispatcher.Dispatch(context.Background(), EventCaptureCompleted, body)
	assertAppError(t, err, "CON_002")
}

func TestDispatcher_CaptureCompleted_UnknownKindInCustomID(t *testing.T) {
	d := setupDispatcher(t)
	defer d.ctrl.Finish()

	body := []byte(`{"resource": {"id": "3C679366HH908993F", "custom_id": "invoice:txn-1"}}`)

	err := d.dispatcher.Dispatch(context.Background(), EventCaptureCompleted, body)
	assertAppError(t, err, "CON_002")
}

// ==================== Capture Denied Tests ====================

func TestDispatcher_CaptureDenied(t *testing.T) {
	d := setupDispatcher(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	body := []byte(`{
		"resource": {
			"id": "7NW873794T343360M",
			"custom_id": "form:txn-3",
			"supplementary_data": {"related_ids": {"order_id": "1AB23456CD789012E"}}
		}
	}`)

	d.txnStore.EXPECT().MarkFailed(ctx, domain.KindForm, "1AB23456CD789012E").Return(true, nil)

	err := d.dispatcher.Dispatch(ctx, EventCaptureDenied, body)
	require.NoError(t, err)
}

// ==================== External Refund Tests ====================

func TestDispatcher_ExternalRefund_ByUpLink(t *testing.T) {
	d := setupDispatcher(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	body := []byte(`{
		"resource": {
			"id": "1JU08902781691411",
			"custom_id": "event:txn-1",
			"amount": {"currency_code": "USD", "value": "25.00"},
			"links": [
				{"href": "https://api.paypal.com/v2/payments/refunds/1JU08902781691411", "rel": "self"},
				{"href": "https://api.paypal.com/v2/payments/captures/3C679366HH908993F", "rel": "up"}
			]
		}
	}`)

	rec := capturedTxn(domain.KindEvent, "txn-1", "user-1", 100)
	rec.ExternalReference = "3C679366HH908993F"

	d.txnStore.EXPECT().GetByExternalRef(ctx, domain.KindEvent, "3C679366HH908993F").Return(rec, nil)
	d.updater.EXPECT().
		Apply(ctx, domain.KindEvent, "txn-1", gomock.Any(), nil).
		DoAndReturn(func(_ context.Context, _ domain.TransactionKind, _ string, entry domain.RefundEntry, _ *domain.ReservationMarker) (*domain.TransactionRecord, bool, error) {
			assert.Equal(t, "1JU08902781691411", entry.RefundID)
			assert.Equal(t, 25.0, entry.Amount)
			assert.Equal(t, "USD", entry.Currency)
			assert.Equal(t, domain.RefundSourceExternal, entry.Source)
			assert.Equal(t, "paypal", entry.By)
			assert.Empty(t, entry.RequestID)
			return rec, true, nil
		})

	err := d.dispatcher.Dispatch(ctx, EventCaptureRefunded, body)
	require.NoError(t, err)
}

func TestDispatcher_ExternalRefund_CustomIDFallback(t *testing.T) {
	d := setupDispatcher(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	body := []byte(`{
		"resource": {
			"id": "4GH90127TN364715B",
			"custom_id": "donation_one_time:txn-7",
			"amount": {"currency_code": "USD", "value": "10.00"}
		}
	}`)

	rec := capturedTxn(domain.KindDonationOneTime, "txn-7", "user-1", 25)

	d.txnStore.EXPECT().GetByID(ctx, domain.KindDonationOneTime, "txn-7").Return(rec, nil)
	d.updater.EXPECT().
		Apply(ctx, domain.KindDonationOneTime, "txn-7", gomock.Any(), nil).
		Return(rec, true, nil)

	err := d.dispatcher.Dispatch(ctx, EventSaleRefunded, body)
	require.NoError(t, err)
}

func TestDispatcher_ExternalRefund_DuplicateDelivery(t *testing.T) {
	d := setupDispatcher(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	body := []byte(`{
		"resource": {
			"id": "1JU08902781691411",
			"custom_id": "event:txn-1",
			"amount": {"currency_code": "USD", "value": "25.00"}
		}
	}`)

	rec := capturedTxn(domain.KindEvent, "txn-1", "user-1", 100)

	d.txnStore.EXPECT().GetByID(ctx, domain.KindEvent, "txn-1").Return(rec, nil)
	d.updater.EXPECT().
		Apply(ctx, domain.KindEvent, "txn-1", gomock.Any(), nil).
		Return(rec, false, nil)

	err := d.dispatcher.Dispatch(ctx, EventCaptureRefunded, body)
	require.NoError(t, err)
}

func TestDispatcher_ExternalRefund_UnknownRecord(t *testing.T) {
	d := setupDispatcher(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	body := []byte(`{
		"resource": {
			"id": "1JU08902781691411",
			"custom_id": "event:txn-ghost",
			"amount": {"currency_code": "USD", "value": "25.00"}
		}
	}`)

	d.txnStore.EXPECT().GetByID(ctx, domain.KindEvent, "txn-ghost").Return(nil, nil)

	err := d.dispatcher.Dispatch(ctx, EventCaptureRefunded, body)
	assertAppError(t, err, "CON_002")
}

func TestDispatcher_ExternalRefund_MalformedAmount(t *testing.T) {
	d := setupDispatcher(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	body := []byte(`{
		"resource": {
			"id": "1JU08902781691411",
			"custom_id": "event:txn-1",
			"amount": {"currency_code": "USD", "value": "twenty-five"}
		}
	}`)

	rec := capturedTxn(domain.KindEvent, "txn-1", "user-1", 100)
	d.txnStore.EXPECT().GetByID(ctx, domain.KindEvent, "txn-1").Return(rec, nil)

	err := d.dispatcher.Dispatch(ctx, EventCaptureRefunded, body)
	assertAppError(t, err, "CON_001")
}
