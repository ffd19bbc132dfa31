package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"church-payments/internal/core/domain"
	"church-payments/internal/core/ports/mocks"
	"church-payments/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const intakeEventBody = `{"id":"WH-2WR32451HC0233532-67976317FL4543714","event_type":"PAYMENT.CAPTURE.COMPLETED","resource":{"id":"3C679366HH908993F"}}`

const intakeEventID = "WH-2WR32451HC0233532-67976317FL4543714"

func intakeHeaders() map[string]string {
	return map[string]string{
		"Paypal-Transmission-Id":   "69cd13f0-d67a-11e5-baa3-778b53f4ae55",
		"Paypal-Transmission-Sig":  "lmI95Jx3Y9nhR5SJWlHVIWpg4AgFk7n9bCHSRxbrd8A9zrhdu2rMyFrmz+Zjh3s3boXB07VXCXUZy/UFzUlnGJn0wDugt7FlSvdKeIJenLRemUxYCPVoEZzg9VFNqOa48gMkvF+XTpxBeUx/kWy6B5cp7GkT2+pOowfRK7OaynuxUoKW3JcMWw272VKjLTtTAShncla7tGF+55rxyt2KNZIIqxNMJ48RDZheGU5w1npu9dZHnPgTXB9iomeVRoD8O/jhRpnKsGrDschyNdkeh81BJJMH4Ctc6lnCCquoP/GzCzz33MMsNdid7vL/NIWaCsekQpW26FpWPi/tfj8nLA==",
		"Paypal-Transmission-Time": "2016-10-31T15:41:51Z",
		"Paypal-Cert-Url":          "https://api.paypal.com/v1/notifications/certs/CERT-360caa42-fca2a594-1d93a270",
		"Paypal-Auth-Algo":         "SHA256withRSA",
	}
}

type intakeTestDeps struct {
	intake      *WebhookIntakeImpl
	eventRepo   *mocks.MockWebhookEventRepository
	failureRepo *mocks.MockWebhookFailureRepository
	dedupe      *mocks.MockDedupeCache
	verifier    *mocks.MockProcessorClient
	dispatcher  *mocks.MockEventDispatcher
	ctrl        *gomock.Controller
}

func setupWebhookIntake(t *testing.T) *intakeTestDeps {
	ctrl := gomock.NewController(t)
	d := &intakeTestDeps{
		eventRepo:   mocks.NewMockWebhookEventRepository(ctrl),
		failureRepo: mocks.NewMockWebhookFailureRepository(ctrl),
		dedupe:      mocks.NewMockDedupeCache(ctrl),
		verifier:    mocks.NewMockProcessorClient(ctrl),
		dispatcher:  mocks.NewMockEventDispatcher(ctrl),
		ctrl:        ctrl,
	}
	d.intake = NewWebhookIntake(d.eventRepo, d.failureRepo, d.dedupe, d.verifier, d.dispatcher, zerolog.Nop())
	return d
}

func (d *intakeTestDeps) expectFreshGate(ctx context.Context) {
	d.dedupe.EXPECT().Seen(ctx, intakeEventID).Return(false, nil)
	d.eventRepo.EXPECT().CreateIfAbsent(ctx, gomock.Any()).Return(true, nil)
	d.dedupe.EXPECT().MarkSeen(ctx, intakeEventID, 48*time.Hour).Return(nil)
}

// ==================== Ingest Tests ====================

func TestWebhookIntake_Ingest_Success(t *testing.T) {
	d := setupWebhookIntake(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	headers := intakeHeaders()
	body := []byte(intakeEventBody)

	d.expectFreshGate(ctx)
	d.verifier.EXPECT().VerifyWebhookSignature(ctx, headers, body).Return(nil)
	d.dispatcher.EXPECT().Dispatch(ctx, "PAYMENT.CAPTURE.COMPLETED", body).Return(nil)

	result, err := d.intake.Ingest(ctx, headers, body)
	require.NoError(t, err)
	assert.Equal(t, intakeEventID, result.EventID)
	assert.Equal(t, "PAYMENT.CAPTURE.COMPLETED", result.EventType)
	assert.False(t, result.Duplicate)
}

func TestWebhookIntake_Ingest_FastPathDuplicate(t *testing.T) {
	d := setupWebhookIntake(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.dedupe.EXPECT().Seen(ctx, intakeEventID).Return(true, nil)

	result, err := d.intake.Ingest(ctx, intakeHeaders(), []byte(intakeEventBody))
	require.NoError(t, err)
	assert.True(t, result.Duplicate)
}

func TestWebhookIntake_Ingest_DurableGateDuplicate(t *testing.T) {
	d := setupWebhookIntake(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.dedupe.EXPECT().Seen(ctx, intakeEventID).Return(false, nil)
	d.eventRepo.EXPECT().CreateIfAbsent(ctx, gomock.Any()).Return(false, nil)
	d.dedupe.EXPECT().MarkSeen(ctx, intakeEventID, 48*time.Hour).Return(nil)

	// Verification and dispatch never run for a replayed id.
	result, err := d.intake.Ingest(ctx, intakeHeaders(), []byte(intakeEventBody))
	require.NoError(t, err)
	assert.True(t, result.Duplicate)
}

func TestWebhookIntake_Ingest_DedupeOutageFallsThrough(t *testing.T) {
	d := setupWebhookIntake(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	headers := intakeHeaders()
	body := []byte(intakeEventBody)

	d.dedupe.EXPECT().Seen(ctx, intakeEventID).Return(false, errors.New("connection refused"))
	d.eventRepo.EXPECT().CreateIfAbsent(ctx, gomock.Any()).Return(true, nil)
	d.dedupe.EXPECT().MarkSeen(ctx, intakeEventID, 48*time.Hour).Return(errors.New("connection refused"))
	d.verifier.EXPECT().VerifyWebhookSignature(ctx, headers, body).Return(nil)
	d.dispatcher.EXPECT().Dispatch(ctx, "PAYMENT.CAPTURE.COMPLETED", body).Return(nil)

	result, err := d.intake.Ingest(ctx, headers, body)
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
}

func TestWebhookIntake_Ingest_MissingEventID(t *testing.T) {
	d := setupWebhookIntake(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.failureRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, rec *domain.WebhookFailureRecord) error {
			assert.Empty(t, rec.EventID)
			assert.Equal(t, domain.FailureUnverifiable, rec.Kind)
			assert.NotEmpty(t, rec.ID)
			return nil
		},
	)

	_, err := d.intake.Ingest(ctx, intakeHeaders(), []byte(`{"event_type":"PAYMENT.CAPTURE.COMPLETED"}`))
	assertAppError(t, err, "VER_003")
}

func TestWebhookIntake_Ingest_MissingSignatureHeaders(t *testing.T) {
	d := setupWebhookIntake(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	headers := intakeHeaders()
	delete(headers, "Paypal-Transmission-Sig")

	d.expectFreshGate(ctx)
	d.failureRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, rec *domain.WebhookFailureRecord) error {
			assert.Equal(t, domain.FailureUnverifiable, rec.Kind)
			assert.Contains(t, rec.Error, "Paypal-Transmission-Sig")
			assert.Equal(t, intakeEventBody, rec.Payload)
			return nil
		},
	)

	_, err := d.intake.Ingest(ctx, headers, []byte(intakeEventBody))
	assertAppError(t, err, "VER_003")
}

func TestWebhookIntake_Ingest_SignatureInvalid(t *testing.T) {
	d := setupWebhookIntake(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	headers := intakeHeaders()
	body := []byte(intakeEventBody)

	d.expectFreshGate(ctx)
	d.verifier.EXPECT().VerifyWebhookSignature(ctx, headers, body).Return(apperror.ErrSignatureInvalid())
	d.failureRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, rec *domain.WebhookFailureRecord) error {
			assert.Equal(t, domain.FailureSignatureInvalid, rec.Kind)
			assert.Equal(t, intakeEventID, rec.EventID)
			return nil
		},
	)

	_, err := d.intake.Ingest(ctx, headers, body)
	assertAppError(t, err, "VER_001")
}

func TestWebhookIntake_Ingest_VerifierDown(t *testing.T) {
	d := setupWebhookIntake(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	headers := intakeHeaders()
	body := []byte(intakeEventBody)

	d.expectFreshGate(ctx)
	d.verifier.EXPECT().VerifyWebhookSignature(ctx, headers, body).
		Return(apperror.ErrVerifierUnavailable(errors.New("dial tcp: i/o timeout")))
	d.failureRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, rec *domain.WebhookFailureRecord) error {
			assert.Equal(t, domain.FailureVerifierError, rec.Kind)
			return nil
		},
	)

	// Fail closed: an unreachable verifier never lets an event through.
	_, err := d.intake.Ingest(ctx, headers, body)
	assertAppError(t, err, "VER_002")
}

func TestWebhookIntake_Ingest_HandlerFailureStored(t *testing.T) {
	d := setupWebhookIntake(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	headers := intakeHeaders()
	body := []byte(intakeEventBody)

	d.expectFreshGate(ctx)
	d.verifier.EXPECT().VerifyWebhookSignature(ctx, headers, body).Return(nil)
	d.dispatcher.EXPECT().Dispatch(ctx, "PAYMENT.CAPTURE.COMPLETED", body).
		Return(apperror.ErrUnknownTransaction("event:txn-ghost"))
	d.failureRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, rec *domain.WebhookFailureRecord) error {
			assert.Equal(t, domain.FailureHandler, rec.Kind)
			assert.Equal(t, intakeEventID, rec.EventID)
			assert.Equal(t, intakeEventBody, rec.Payload)
			return nil
		},
	)

	_, err := d.intake.Ingest(ctx, headers, body)
	assertAppError(t, err, "CON_002")
}

// ==================== ReplayFailure Tests ====================

func TestWebhookIntake_ReplayFailure(t *testing.T) {
	d := setupWebhookIntake(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	failure := &domain.WebhookFailureRecord{
		ID:        "fail-1",
		EventID:   intakeEventID,
		Kind:      domain.FailureHandler,
		Error:     "unknown transaction",
		Payload:   intakeEventBody,
		CreatedAt: time.Now().UTC(),
	}

	d.failureRepo.EXPECT().GetByID(ctx, "fail-1").Return(failure, nil)
	d.eventRepo.EXPECT().CreateIfAbsent(ctx, gomock.Any()).Return(false, nil)
	d.dedupe.EXPECT().MarkSeen(ctx, intakeEventID, 48*time.Hour).Return(nil)
	// No signature verification on replay: the payload cleared the
	// authenticated channel when it first arrived.
	d.dispatcher.EXPECT().Dispatch(ctx, "PAYMENT.CAPTURE.COMPLETED", []byte(intakeEventBody)).Return(nil)
	d.failureRepo.EXPECT().MarkReplayed(ctx, "fail-1", gomock.Any()).Return(nil)

	result, err := d.intake.ReplayFailure(ctx, "fail-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, intakeEventID, result.EventID)
}

func TestWebhookIntake_ReplayFailure_NotFound(t *testing.T) {
	d := setupWebhookIntake(t)
	defer d.ctrl.Finish()

	d.failureRepo.EXPECT().GetByID(gomock.Any(), "fail-ghost").Return(nil, nil)

	_, err := d.intake.ReplayFailure(context.Background(), "fail-ghost", "admin-1")
	assertAppError(t, err, "RES_001")
}

func TestWebhookIntake_ReplayFailure_DispatchStillFailing(t *testing.T) {
	d := setupWebhookIntake(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	failure := &domain.WebhookFailureRecord{
		ID:      "fail-1",
		EventID: intakeEventID,
		Kind:    domain.FailureHandler,
		Payload: intakeEventBody,
	}

	d.failureRepo.EXPECT().GetByID(ctx, "fail-1").Return(failure, nil)
	d.eventRepo.EXPECT().CreateIfAbsent(ctx, gomock.Any()).Return(false, nil)
	d.dedupe.EXPECT().MarkSeen(ctx, intakeEventID, 48*time.Hour).Return(nil)
	d.dispatcher.EXPECT().Dispatch(ctx, "PAYMENT.CAPTURE.COMPLETED", []byte(intakeEventBody)).
		Return(apperror.ErrUnknownTransaction("event:txn-ghost"))

	// The failure stays unreplayed for another attempt.
	_, err := d.intake.ReplayFailure(ctx, "fail-1", "admin-1")
	assertAppError(t, err, "CON_002")
}
