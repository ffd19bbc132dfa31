package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"church-payments/internal/core/domain"
	"church-payments/internal/core/ports"
	"church-payments/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// dedupeTTL bounds the Redis fast path. The durable event record outlives it;
// the cache only needs to cover the window in which the processor retries.
const dedupeTTL = 48 * time.Hour

// WebhookIntakeImpl implements ports.WebhookIntakeService. Deduplication runs
// before signature verification: the durable insert-if-absent on the event id
// is the at-most-once gate, so replay storms degrade to cheap no-ops and a
// handler crash after the insert is recovered by operator replay, not by
// redelivery.
type WebhookIntakeImpl struct {
	eventRepo   ports.WebhookEventRepository
	failureRepo ports.WebhookFailureRepository
	dedupe      ports.DedupeCache
	verifier    ports.ProcessorClient
	dispatcher  ports.EventDispatcher
	log         zerolog.Logger
}

// NewWebhookIntake creates a new WebhookIntakeImpl.
func NewWebhookIntake(
	eventRepo ports.WebhookEventRepository,
	failureRepo ports.WebhookFailureRepository,
	dedupe ports.DedupeCache,
	verifier ports.ProcessorClient,
	dispatcher ports.EventDispatcher,
	log zerolog.Logger,
) *WebhookIntakeImpl {
	return &WebhookIntakeImpl{
		eventRepo:   eventRepo,
		failureRepo: failureRepo,
		dedupe:      dedupe,
		verifier:    verifier,
		dispatcher:  dispatcher,
		log:         log,
	}
}

type eventEnvelope struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
}

// Ingest settles one inbound delivery: dedupe, verify, dispatch.
func (s *WebhookIntakeImpl) Ingest(ctx context.Context, headers map[string]string, rawBody []byte) (*ports.IngestResult, error) {
	var env eventEnvelope
	if err := json.Unmarshal(rawBody, &env); err != nil || env.ID == "" {
		s.recordFailure(ctx, "", domain.FailureUnverifiable, "event id missing from payload", rawBody, headers)
		return nil, apperror.ErrUnverifiable("event id missing from payload")
	}
	result := &ports.IngestResult{EventID: env.ID, EventType: env.EventType}

	// Redis fast path, advisory only: a miss or an outage falls through to
	// the durable gate.
	seen, err := s.dedupe.Seen(ctx, env.ID)
	if err != nil {
		s.log.Warn().Err(err).Str("event_id", env.ID).Msg("dedupe fast path unavailable, falling through")
	}
	if seen {
		result.Duplicate = true
		return result, nil
	}

	// Durable at-most-once gate, before signature verification.
	fresh, err := s.eventRepo.CreateIfAbsent(ctx, &domain.WebhookEventRecord{
		EventID:    env.ID,
		EventType:  env.EventType,
		ReceivedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("record webhook event: %w", err))
	}
	s.markSeen(ctx, env.ID)
	if !fresh {
		result.Duplicate = true
		s.log.Debug().Str("event_id", env.ID).Msg("duplicate webhook delivery")
		return result, nil
	}

	if missing := missingSignatureHeaders(headers); len(missing) > 0 {
		msg := "missing signature headers: " + strings.Join(missing, ", ")
		s.recordFailure(ctx, env.ID, domain.FailureUnverifiable, msg, rawBody, headers)
		return nil, apperror.ErrUnverifiable(msg)
	}

	if err := s.verifier.VerifyWebhookSignature(ctx, headers, rawBody); err != nil {
		kind := domain.FailureVerifierError
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == "VER_001" {
			kind = domain.FailureSignatureInvalid
			s.log.Warn().
				Str("event_id", env.ID).
				Str("transmission_id", headers["Paypal-Transmission-Id"]).
				Msg("webhook signature rejected")
		}
		s.recordFailure(ctx, env.ID, kind, err.Error(), rawBody, headers)
		return nil, err
	}

	if err := s.dispatcher.Dispatch(ctx, env.EventType, rawBody); err != nil {
		s.recordFailure(ctx, env.ID, domain.FailureHandler, err.Error(), rawBody, headers)
		s.log.Error().Err(err).
			Str("event_id", env.ID).
			Str("event_type", env.EventType).
			Msg("webhook handler failed")
		return nil, err
	}

	s.log.Info().
		Str("event_id", env.ID).
		Str("event_type", env.EventType).
		Msg("webhook processed")
	return result, nil
}

// ReplayFailure re-feeds a stored failure payload through the dispatcher.
// Signature verification cannot be replayed after the fact; the payload
// already arrived over the authenticated channel once, and replay is an
// operator action behind admin auth.
func (s *WebhookIntakeImpl) ReplayFailure(ctx context.Context, failureID, actorID string) (*ports.IngestResult, error) {
	rec, err := s.failureRepo.GetByID(ctx, failureID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get webhook failure: %w", err))
	}
	if rec == nil {
		return nil, apperror.ErrNotFound("webhook failure")
	}

	raw := []byte(rec.Payload)
	var env eventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, apperror.ErrUnverifiable("stored payload is not valid JSON")
	}

	// Keep the gate authoritative for any future delivery of the same id.
	if env.ID != "" {
		if _, err := s.eventRepo.CreateIfAbsent(ctx, &domain.WebhookEventRecord{
			EventID:    env.ID,
			EventType:  env.EventType,
			ReceivedAt: time.Now().UTC(),
		}); err != nil {
			s.log.Warn().Err(err).Str("event_id", env.ID).Msg("failed to record replayed event id")
		}
		s.markSeen(ctx, env.ID)
	}

	if err := s.dispatcher.Dispatch(ctx, env.EventType, raw); err != nil {
		s.log.Error().Err(err).
			Str("failure_id", failureID).
			Str("actor_id", actorID).
			Msg("webhook replay failed")
		return nil, err
	}

	if err := s.failureRepo.MarkReplayed(ctx, failureID, time.Now().UTC()); err != nil {
		s.log.Warn().Err(err).Str("failure_id", failureID).Msg("failed to stamp replayed_at")
	}

	s.log.Info().
		Str("failure_id", failureID).
		Str("event_id", env.ID).
		Str("actor_id", actorID).
		Msg("webhook failure replayed")
	return &ports.IngestResult{EventID: env.ID, EventType: env.EventType}, nil
}

// ListFailures returns a page of stored failures, newest first.
func (s *WebhookIntakeImpl) ListFailures(ctx context.Context, page, pageSize int) ([]domain.WebhookFailureRecord, int64, error) {
	normalizePaging(&page, &pageSize)

	recs, total, err := s.failureRepo.List(ctx, page, pageSize)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(fmt.Errorf("list webhook failures: %w", err))
	}
	return recs, total, nil
}

// markSeen primes the Redis fast path, best-effort.
func (s *WebhookIntakeImpl) markSeen(ctx context.Context, eventID string) {
	if err := s.dedupe.MarkSeen(ctx, eventID, dedupeTTL); err != nil {
		s.log.Warn().Err(err).Str("event_id", eventID).Msg("failed to prime dedupe fast path")
	}
}

// recordFailure stores the delivery for operator replay, best-effort.
func (s *WebhookIntakeImpl) recordFailure(ctx context.Context, eventID string, kind domain.WebhookFailureKind, msg string, rawBody []byte, headers map[string]string) {
	rec := &domain.WebhookFailureRecord{
		ID:        uuid.NewString(),
		EventID:   eventID,
		Kind:      kind,
		Error:     msg,
		Payload:   string(rawBody),
		Headers:   headers,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.failureRepo.Create(ctx, rec); err != nil {
		s.log.Error().Err(err).
			Str("event_id", eventID).
			Str("kind", string(kind)).
			Msg("failed to record webhook failure")
	}
}

// missingSignatureHeaders returns the required headers absent from the
// delivery.
func missingSignatureHeaders(headers map[string]string) []string {
	var missing []string
	for _, h := range ports.SignatureHeaders {
		if headers[h] == "" {
			missing = append(missing, h)
		}
	}
	return missing
}
