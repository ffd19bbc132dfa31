package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"church-payments/internal/core/domain"
	"church-payments/internal/core/ports"
	"church-payments/pkg/apperror"

	"github.com/rs/zerolog"
)

// Processor event types the ledger consumes. The processor emits more; the
// dispatcher ignores the rest.
const (
	EventCaptureCompleted = "PAYMENT.CAPTURE.COMPLETED"
	EventCaptureDenied    = "PAYMENT.CAPTURE.DENIED"
	EventCaptureRefunded  = "PAYMENT.CAPTURE.REFUNDED"
	EventSaleCompleted    = "PAYMENT.SALE.COMPLETED"
	EventSaleDenied       = "PAYMENT.SALE.DENIED"
	EventSaleRefunded     = "PAYMENT.SALE.REFUNDED"
)

// DispatcherImpl implements ports.EventDispatcher: pure routing from a
// verified, deduplicated processor event to one conditional ledger mutation.
// A mutation that matches no record is a handler failure, never a silent
// drop.
type DispatcherImpl struct {
	txnStore ports.TransactionStore
	updater  ports.RefundLedgerUpdater
	log      zerolog.Logger
}

// NewDispatcher creates a new DispatcherImpl.
func NewDispatcher(txnStore ports.TransactionStore, updater ports.RefundLedgerUpdater, log zerolog.Logger) *DispatcherImpl {
	return &DispatcherImpl{
		txnStore: txnStore,
		updater:  updater,
		log:      log,
	}
}

// eventResource is the slice of the processor's resource object the ledger
// reads.
type eventResource struct {
	ID       string `json:"id"`
	CustomID string `json:"custom_id"`
	Amount   struct {
		CurrencyCode string `json:"currency_code"`
		Value        string `json:"value"`
	} `json:"amount"`
	SupplementaryData struct {
		RelatedIDs struct {
			OrderID string `json:"order_id"`
		} `json:"related_ids"`
	} `json:"supplementary_data"`
	Links []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

// Dispatch routes one event to its handler.
func (s *DispatcherImpl) Dispatch(ctx context.Context, eventType string, rawBody []byte) error {
	switch eventType {
	case EventCaptureCompleted, EventSaleCompleted:
		return s.handleCaptureCompleted(ctx, rawBody)
	case EventCaptureDenied, EventSaleDenied:
		return s.handleCaptureDenied(ctx, rawBody)
	case EventCaptureRefunded, EventSaleRefunded:
		return s.handleExternalRefund(ctx, rawBody)
	default:
		s.log.Debug().Str("event_type", eventType).Msg("ignoring webhook event type")
		return nil
	}
}

func parseResource(rawBody []byte) (*eventResource, error) {
	var env struct {
		Resource eventResource `json:"resource"`
	}
	if err := json.Unmarshal(rawBody, &env); err != nil {
		return nil, apperror.ErrConsistency(fmt.Sprintf("malformed event resource: %v", err))
	}
	return &env.Resource, nil
}

// splitCustomID decodes the "kind:transaction_id" value the checkout surface
// writes into the processor order.
func splitCustomID(customID string) (domain.TransactionKind, string, error) {
	kindStr, txnID, found := strings.Cut(customID, ":")
	if !found || txnID == "" {
		return "", "", apperror.ErrUnknownTransaction(customID)
	}
	kind := domain.TransactionKind(kindStr)
	if !kind.Valid() {
		return "", "", apperror.ErrUnknownTransaction(customID)
	}
	return kind, txnID, nil
}

// handleCaptureCompleted moves the matching record CREATED -> CAPTURED and
// stores the capture id as its external reference.
func (s *DispatcherImpl) handleCaptureCompleted(ctx context.Context, rawBody []byte) error {
	res, err := parseResource(rawBody)
	if err != nil {
		return err
	}
	kind, txnID, err := splitCustomID(res.CustomID)
	if err != nil {
		return err
	}

	orderRef, err := s.resolveOrderRef(ctx, res, kind, txnID)
	if err != nil {
		return err
	}

	ok, err := s.txnStore.MarkCaptured(ctx, kind, orderRef, res.ID, time.Now().UTC())
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("mark captured: %w", err))
	}
	if !ok {
		rec, err := s.txnStore.GetByOrderRef(ctx, kind, orderRef)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("get by order ref: %w", err))
		}
		if rec == nil {
			return apperror.ErrUnknownTransaction(orderRef)
		}
		// Checkout or an earlier delivery already drove the capture.
		s.log.Debug().
			Str("order_ref", orderRef).
			Str("status", string(rec.Status)).
			Msg("capture already recorded")
		return nil
	}

	s.log.Info().
		Str("txn_kind", string(kind)).
		Str("order_ref", orderRef).
		Str("capture_ref", res.ID).
		Msg("transaction captured via webhook")
	return nil
}

// handleCaptureDenied moves the matching record CREATED -> FAILED.
func (s *DispatcherImpl) handleCaptureDenied(ctx context.Context, rawBody []byte) error {
	res, err := parseResource(rawBody)
	if err != nil {
		return err
	}
	kind, txnID, err := splitCustomID(res.CustomID)
	if err != nil {
		return err
	}

	orderRef, err := s.resolveOrderRef(ctx, res, kind, txnID)
	if err != nil {
		return err
	}

	ok, err := s.txnStore.MarkFailed(ctx, kind, orderRef)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("mark failed: %w", err))
	}
	if !ok {
		rec, err := s.txnStore.GetByOrderRef(ctx, kind, orderRef)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("get by order ref: %w", err))
		}
		if rec == nil {
			return apperror.ErrUnknownTransaction(orderRef)
		}
		s.log.Warn().
			Str("order_ref", orderRef).
			Str("status", string(rec.Status)).
			Msg("capture denial for a record no longer CREATED")
		return nil
	}

	s.log.Info().
		Str("txn_kind", string(kind)).
		Str("order_ref", orderRef).
		Msg("transaction marked failed via webhook")
	return nil
}

// handleExternalRefund records a refund issued at the processor (seller
// console, dispute) through the same idempotent ledger path admin refunds
// use.
func (s *DispatcherImpl) handleExternalRefund(ctx context.Context, rawBody []byte) error {
	res, err := parseResource(rawBody)
	if err != nil {
		return err
	}
	kind, txnID, err := splitCustomID(res.CustomID)
	if err != nil {
		return err
	}

	rec, err := s.findByCapture(ctx, res, kind, txnID)
	if err != nil {
		return err
	}

	amount, err := strconv.ParseFloat(res.Amount.Value, 64)
	if err != nil {
		return apperror.ErrConsistency(fmt.Sprintf("malformed refund amount %q", res.Amount.Value))
	}
	currency := res.Amount.CurrencyCode
	if currency == "" {
		currency = rec.Currency
	}

	entry := domain.RefundEntry{
		RefundID:  res.ID,
		Amount:    amount,
		Currency:  currency,
		By:        "paypal",
		Source:    domain.RefundSourceExternal,
		CreatedAt: time.Now().UTC(),
	}
	_, applied, err := s.updater.Apply(ctx, rec.Kind, rec.ID, entry, nil)
	if err != nil {
		return err
	}
	if !applied {
		s.log.Debug().
			Str("refund_id", res.ID).
			Str("txn_id", rec.ID).
			Msg("external refund already recorded")
		return nil
	}

	s.log.Info().
		Str("txn_kind", string(rec.Kind)).
		Str("txn_id", rec.ID).
		Str("refund_id", res.ID).
		Float64("amount", amount).
		Msg("external refund recorded")
	return nil
}

// resolveOrderRef extracts the order reference from the event, falling back
// to the record the custom id names when the supplementary data is absent.
func (s *DispatcherImpl) resolveOrderRef(ctx context.Context, res *eventResource, kind domain.TransactionKind, txnID string) (string, error) {
	if ref := res.SupplementaryData.RelatedIDs.OrderID; ref != "" {
		return ref, nil
	}
	rec, err := s.txnStore.GetByID(ctx, kind, txnID)
	if err != nil {
		return "", apperror.ErrDatabaseError(fmt.Errorf("get transaction: %w", err))
	}
	if rec == nil || rec.OrderRef == "" {
		return "", apperror.ErrUnknownTransaction(res.CustomID)
	}
	return rec.OrderRef, nil
}

// findByCapture locates the record a refund event belongs to: by the capture
// id in the resource's "up" link, falling back to the custom id.
func (s *DispatcherImpl) findByCapture(ctx context.Context, res *eventResource, kind domain.TransactionKind, txnID string) (*domain.TransactionRecord, error) {
	if captureRef := captureRefFromLinks(res); captureRef != "" {
		rec, err := s.txnStore.GetByExternalRef(ctx, kind, captureRef)
		if err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("get by external ref: %w", err))
		}
		if rec != nil {
			return rec, nil
		}
	}
	rec, err := s.txnStore.GetByID(ctx, kind, txnID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get transaction: %w", err))
	}
	if rec == nil {
		return nil, apperror.ErrUnknownTransaction(res.CustomID)
	}
	return rec, nil
}

// captureRefFromLinks pulls the capture id out of the refund resource's "up"
// link (".../v2/payments/captures/{id}").
func captureRefFromLinks(res *eventResource) string {
	for _, l := range res.Links {
		if l.Rel != "up" {
			continue
		}
		parts := strings.Split(strings.TrimRight(l.Href, "/"), "/")
		if len(parts) > 0 {
			return parts[len(parts)-1]
		}
	}
	return ""
}
