package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"church-payments/internal/core/domain"
	"church-payments/internal/service"
	"church-payments/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentRefundApprovals verifies the reservation balance guard under
// concurrent load. Three approved requests for $30, $40 and $50 race against
// a $100 transaction: any two fit, the third always exceeds the remaining
// balance. Exactly one approval must lose with a conflict, and the committed
// total must never pass the captured amount.
func TestConcurrentRefundApprovals(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	memberTok := issueToken(t, app, "member-1")
	adminTok := issueToken(t, app, "staff-1", "admin")

	txnID := createCapturedTxn(t, app, memberTok, "donation_one_time", 100.00)

	amounts := []float64{30.00, 40.00, 50.00}
	reqIDs := make([]string, len(amounts))
	for i, amt := range amounts {
		reqIDs[i] = createRefundRequest(t, app, memberTok, "donation_one_time", txnID, fmt.Sprintf(`"amount":%.2f`, amt))
	}

	// Keep each reservation held long enough for the approvals to overlap.
	app.processor.setRefundDelay(25 * time.Millisecond)

	statuses := make([]int, len(amounts))
	codes := make([]string, len(amounts))

	var wg sync.WaitGroup
	for i := range reqIDs {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			req, _ := http.NewRequest(http.MethodPost,
				app.server.URL+"/api/v1/admin/refund-requests/"+reqIDs[idx]+"/decide",
				bytes.NewBufferString(`{"approve":true}`))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+adminTok)

			r, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			defer r.Body.Close()
			statuses[idx] = r.StatusCode

			if r.StatusCode != http.StatusOK {
				var body struct {
					ErrorCode string `json:"error_code"`
				}
				_ = json.NewDecoder(r.Body).Decode(&body)
				codes[idx] = body.ErrorCode
			}
		}(i)
	}
	wg.Wait()

	var approved float64
	var wins, conflicts int
	for i, status := range statuses {
		switch status {
		case http.StatusOK:
			wins++
			approved += amounts[i]
		case http.StatusConflict:
			conflicts++
			assert.Equal(t, "CONF_001", codes[i])
		default:
			t.Fatalf("unexpected status %d for request %s", status, reqIDs[i])
		}
	}
	t.Logf("Concurrent approvals: %d committed ($%.2f), %d conflicted", wins, approved, conflicts)

	assert.Equal(t, 2, wins, "any two amounts fit the balance")
	assert.Equal(t, 1, conflicts, "the third must lose the balance guard")

	// The ledger converged: committed exactly the winners, nothing held.
	rec, err := app.txnStore.GetByID(context.Background(), domain.KindDonationOneTime, txnID)
	require.NoError(t, err)
	assert.Equal(t, approved, rec.RefundedTotal)
	assert.LessOrEqual(t, rec.RefundedTotal, rec.Amount)
	assert.Equal(t, 0.0, rec.ReservedTotal)
	assert.Empty(t, rec.Reservations)
	assert.Len(t, rec.Refunds, 2)
	assert.Equal(t, domain.TxnStatusPartiallyRefunded, rec.Status)

	// Two requests COMPLETED, one ROLLED_BACK.
	var completed, rolledBack int
	for _, id := range reqIDs {
		rr, err := app.requestRepo.GetByID(context.Background(), id)
		require.NoError(t, err)
		switch rr.Status {
		case domain.RefundStatusCompleted:
			completed++
		case domain.RefundStatusRolledBack:
			rolledBack++
		default:
			t.Fatalf("request %s left in %s", id, rr.Status)
		}
	}
	assert.Equal(t, 2, completed)
	assert.Equal(t, 1, rolledBack)

	// The processor executed exactly the two winning refunds.
	_, _, refunds := app.processor.counts()
	assert.Equal(t, 2, refunds)
}

// TestConcurrentWebhookDeliveries verifies the at-most-once gate: twenty
// simultaneous deliveries of the same event must apply its ledger mutation
// exactly once.
func TestConcurrentWebhookDeliveries(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	memberTok := issueToken(t, app, "member-1")
	txnID := createCapturedTxn(t, app, memberTok, "donation_one_time", 80.00)

	rec, err := app.txnStore.GetByID(context.Background(), domain.KindDonationOneTime, txnID)
	require.NoError(t, err)

	event := fmt.Sprintf(`{"id":"WH-STORM-1","event_type":"PAYMENT.CAPTURE.REFUNDED","resource":{"id":"REF-STORM-1","custom_id":"donation_one_time:%s","amount":{"currency_code":"USD","value":"15.00"},"links":[{"href":"https://api.sandbox.paypal.com/v2/payments/captures/%s","rel":"up"}]}}`,
		txnID, rec.ExternalReference)

	concurrency := 20
	var wg sync.WaitGroup
	var okCount, dupCount atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			req := newWebhookRequest(app.server.URL, event)
			r, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			defer r.Body.Close()
			if r.StatusCode != http.StatusOK {
				return
			}
			okCount.Add(1)

			var body struct {
				Data struct {
					Duplicate bool `json:"duplicate"`
				} `json:"data"`
			}
			if json.NewDecoder(r.Body).Decode(&body) == nil && body.Data.Duplicate {
				dupCount.Add(1)
			}
		}()
	}
	wg.Wait()

	t.Logf("Webhook storm: %d accepted, %d settled as duplicates", okCount.Load(), dupCount.Load())

	assert.Equal(t, int64(concurrency), okCount.Load(), "every delivery settles")
	assert.Equal(t, int64(concurrency-1), dupCount.Load(), "exactly one delivery wins the gate")
	assert.Equal(t, 1, app.eventRepo.count())

	fresh, err := app.txnStore.GetByID(context.Background(), domain.KindDonationOneTime, txnID)
	require.NoError(t, err)
	assert.Equal(t, 15.00, fresh.RefundedTotal, "the refund applied once")
	assert.Len(t, fresh.Refunds, 1)
}

// TestConcurrentCaptureAndWebhook races the API capture against the
// processor's capture-completed delivery for the same order. Both drive the
// same CREATED -> CAPTURED transition; whichever wins, the record settles
// captured once and neither caller sees an error.
func TestConcurrentCaptureAndWebhook(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	token := issueToken(t, app, "member-1")

	resp := doRequest(t, app, http.MethodPost, "/api/v1/checkout/orders", token, `{"kind":"event","amount":45.00,"currency":"USD"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		Data struct {
			ID       string `json:"id"`
			OrderRef string `json:"order_ref"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()

	event := fmt.Sprintf(`{"id":"WH-RACE-1","event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"CAP-WH-RACE","custom_id":"event:%s","supplementary_data":{"related_ids":{"order_id":"%s"}}}}`,
		created.Data.ID, created.Data.OrderRef)

	var wg sync.WaitGroup
	results := make([]int, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		req, _ := http.NewRequest(http.MethodPost,
			app.server.URL+"/api/v1/checkout/orders/event/"+created.Data.ID+"/capture", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		if r, err := http.DefaultClient.Do(req); err == nil {
			results[0] = r.StatusCode
			r.Body.Close()
		}
	}()
	go func() {
		defer wg.Done()
		req := newWebhookRequest(app.server.URL, event)
		if r, err := http.DefaultClient.Do(req); err == nil {
			results[1] = r.StatusCode
			r.Body.Close()
		}
	}()
	wg.Wait()

	assert.Equal(t, http.StatusOK, results[0], "API capture settles cleanly")
	assert.Equal(t, http.StatusOK, results[1], "webhook delivery settles cleanly")

	rec, err := app.txnStore.GetByID(context.Background(), domain.KindEvent, created.Data.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxnStatusCaptured, rec.Status)
	require.NotNil(t, rec.CapturedAt)
	assert.Contains(t, []string{"PP-CAP-001", "CAP-WH-RACE"}, rec.ExternalReference,
		"the capture reference belongs to whichever path won")
}

// TestReaper_RollsBackAbandonedReservation drives the background sweep
// against a reservation whose coordinator died mid-saga: the request sits in
// RESERVING with a live marker well past the stale cutoff.
func TestReaper_RollsBackAbandonedReservation(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	memberTok := issueToken(t, app, "member-1")
	txnID := createCapturedTxn(t, app, memberTok, "donation_one_time", 60.00)

	// Seed the crash leftovers directly: a RESERVING request and its marker,
	// both an hour old.
	staleAt := time.Now().UTC().Add(-time.Hour)
	amount := 25.00
	rr := &domain.RefundRequest{
		RequestID:   "req-stranded",
		TxnKind:     domain.KindDonationOneTime,
		TxnID:       txnID,
		Amount:      &amount,
		Currency:    "USD",
		RequestedBy: "member-1",
		Status:      domain.RefundStatusReserving,
		CreatedAt:   staleAt,
	}
	require.NoError(t, app.requestRepo.Create(context.Background(), rr))
	ok, err := app.txnStore.RegisterReservation(context.Background(), domain.KindDonationOneTime, txnID, domain.ReservationMarker{
		RequestID: rr.RequestID,
		Amount:    amount,
		CreatedAt: staleAt,
	})
	require.NoError(t, err)
	require.True(t, ok)

	log := logger.New("debug", false)
	reaper := service.NewReaper(app.txnStore, app.requestRepo, 10*time.Millisecond, time.Minute, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reaper.Run(ctx)

	require.Eventually(t, func() bool {
		req, err := app.requestRepo.GetByID(context.Background(), rr.RequestID)
		return err == nil && req != nil && req.Status == domain.RefundStatusRolledBack
	}, 2*time.Second, 20*time.Millisecond, "the sweep should roll the stranded request back")

	rec, err := app.txnStore.GetByID(context.Background(), domain.KindDonationOneTime, txnID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, rec.ReservedTotal, "the hold is released")
	assert.Empty(t, rec.Reservations)
	assert.Equal(t, 0.0, rec.RefundedTotal, "nothing was refunded without evidence")
	assert.Equal(t, 60.00, rec.Remaining())
}

// TestReaper_ClearsOrphanMarker covers the other crash window: the request
// resolved COMPLETED but the process died before its marker was pulled. The
// sweep clears the leftover hold without touching the committed refund.
func TestReaper_ClearsOrphanMarker(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	memberTok := issueToken(t, app, "member-1")
	txnID := createCapturedTxn(t, app, memberTok, "donation_one_time", 60.00)

	staleAt := time.Now().UTC().Add(-time.Hour)
	amount := 20.00
	rr := &domain.RefundRequest{
		RequestID:   "req-done",
		TxnKind:     domain.KindDonationOneTime,
		TxnID:       txnID,
		Amount:      &amount,
		Currency:    "USD",
		RequestedBy: "member-1",
		Status:      domain.RefundStatusCompleted,
		Resolution:  &domain.Resolution{RefundID: "PP-REF-DONE"},
		CreatedAt:   staleAt,
	}
	require.NoError(t, app.requestRepo.Create(context.Background(), rr))

	// The committed entry is on the ledger; only the marker lingers.
	applied, err := app.txnStore.AppendRefund(context.Background(), domain.KindDonationOneTime, txnID, domain.RefundEntry{
		RefundID:  "PP-REF-DONE",
		RequestID: rr.RequestID,
		Amount:    amount,
		Currency:  "USD",
		By:        "staff-1",
		Source:    domain.RefundSourceAdmin,
		CreatedAt: staleAt,
	}, nil)
	require.NoError(t, err)
	require.True(t, applied)
	ok, err := app.txnStore.RegisterReservation(context.Background(), domain.KindDonationOneTime, txnID, domain.ReservationMarker{
		RequestID: rr.RequestID,
		Amount:    amount,
		CreatedAt: staleAt,
	})
	require.NoError(t, err)
	require.True(t, ok)

	log := logger.New("debug", false)
	reaper := service.NewReaper(app.txnStore, app.requestRepo, time.Hour, time.Minute, log)
	require.NoError(t, reaper.SweepOnce(context.Background()))

	rec, err := app.txnStore.GetByID(context.Background(), domain.KindDonationOneTime, txnID)
	require.NoError(t, err)
	assert.Empty(t, rec.Reservations, "the orphan marker is cleared")
	assert.Equal(t, 0.0, rec.ReservedTotal)
	assert.Equal(t, amount, rec.RefundedTotal, "the committed refund stays")

	req, err := app.requestRepo.GetByID(context.Background(), rr.RequestID)
	require.NoError(t, err)
	assert.Equal(t, domain.RefundStatusCompleted, req.Status)
}

// newWebhookRequest builds a processor delivery with the full signature
// header set, without failing the calling goroutine.
func newWebhookRequest(baseURL, payload string) *http.Request {
	req, _ := http.NewRequest(http.MethodPost, baseURL+"/api/v1/webhooks/paypal", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Paypal-Transmission-Id", "69cd13f0-d67a-11e5-baa3-778b53f4ae55")
	req.Header.Set("Paypal-Transmission-Sig", "lmI95Jx3Y9nhR5SJWlHVIWpg4AgFk7n9bCHSRxbrd8A9zrhdu2rMyFrmz+Zjh3s3boXB07VXCXUZy/UFzUlnGJn0wDugt7FlSvdKeIJenLRemUxYCPVoEZzg9VFNqOa48gMkvF+XTpxBeUx/kWy6B5cp7GkT2+pOowfRK7OaynuxUoKW3JcMWw272VKjLTtTAShncla7tGF+55rxyt2KNZIIqxNMJ48RDZheGU5w1npu9dZHnPgTXB9iomeVRoD8O/jhRpnKsGrDschyNdkeh81BJJMH4Ctc6lnCCquoP/GzCzz33MMsNdid7vL/NIWaCsekQpW26FpWPi/tfj8nLA==")
	req.Header.Set("Paypal-Transmission-Time", time.Now().UTC().Format(time.RFC3339))
	req.Header.Set("Paypal-Cert-Url", "https://api.sandbox.paypal.com/v1/notifications/certs/CERT-360caa42-fca2a594-1d93a270")
	req.Header.Set("Paypal-Auth-Algo", "SHA256withRSA")
	return req
}
