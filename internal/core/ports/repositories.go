package ports

import (
	"context"
	"time"

	"church-payments/internal/core/domain"
)

// TransactionStore defines persistence for per-kind ledger records. Reads
// return (nil, nil) when no record matches. Every mutation is a single
// conditional update: the bool result reports whether the guard matched, and
// a false result is a business outcome, not an error.
type TransactionStore interface {
	Create(ctx context.Context, rec *domain.TransactionRecord) error
	GetByID(ctx context.Context, kind domain.TransactionKind, id string) (*domain.TransactionRecord, error)
	GetByOrderRef(ctx context.Context, kind domain.TransactionKind, orderRef string) (*domain.TransactionRecord, error)
	GetByExternalRef(ctx context.Context, kind domain.TransactionKind, externalRef string) (*domain.TransactionRecord, error)
	List(ctx context.Context, params TransactionListParams) ([]domain.TransactionRecord, int64, error)

	// MarkCaptured moves CREATED records to CAPTURED, recording the capture
	// reference. Matching an already-captured record is a no-op (false).
	MarkCaptured(ctx context.Context, kind domain.TransactionKind, orderRef, captureRef string, capturedAt time.Time) (bool, error)
	// MarkFailed moves CREATED records to FAILED.
	MarkFailed(ctx context.Context, kind domain.TransactionKind, orderRef string) (bool, error)

	// RegisterReservation pushes a provisional marker guarded by the
	// remaining balance on the marker's scope. false = guard lost (conflict
	// or non-refundable status).
	RegisterReservation(ctx context.Context, kind domain.TransactionKind, id string, marker domain.ReservationMarker) (bool, error)
	// ClearReservation removes the marker and releases its hold. Clearing an
	// absent marker is a no-op (false), never an error.
	ClearReservation(ctx context.Context, kind domain.TransactionKind, id string, marker domain.ReservationMarker) (bool, error)
	// BumpRevision is the transactional path's guard-field write: it forces
	// concurrent transactions touching the same record into a write conflict
	// while asserting the record is still refundable.
	BumpRevision(ctx context.Context, kind domain.TransactionKind, id string) (bool, error)

	// AppendRefund appends entry unless its refund_id is already present
	// (false = already applied). When clearMarker is non-nil the marker is
	// pulled and its hold released in the same atomic update; a lingering
	// marker is still cleared even when the append itself is a no-op.
	AppendRefund(ctx context.Context, kind domain.TransactionKind, id string, entry domain.RefundEntry, clearMarker *domain.ReservationMarker) (bool, error)
	// SetDerivedStatus CASes the status, guarded on the previously observed
	// status and refunded total so concurrent deriving writers converge.
	SetDerivedStatus(ctx context.Context, kind domain.TransactionKind, id string, from, to domain.TransactionStatus, observedRefunded float64) (bool, error)

	// ListStaleMarkers returns live markers older than the cutoff across all
	// kinds, for the reaper's orphan sweep.
	ListStaleMarkers(ctx context.Context, olderThan time.Time) ([]StaleMarker, error)
}

// StaleMarker locates one aged reservation marker.
type StaleMarker struct {
	TxnKind domain.TransactionKind
	TxnID   string
	Marker  domain.ReservationMarker
}

// TransactionListParams holds filter + pagination for listing ledger records.
type TransactionListParams struct {
	Kind     domain.TransactionKind
	OwnerID  string
	Status   *domain.TransactionStatus
	Page     int
	PageSize int
}

// RefundRequestRepository defines persistence for refund requests. Status
// transitions are conditional (CAS from an expected status); false means the
// request was not in that status.
type RefundRequestRepository interface {
	Create(ctx context.Context, req *domain.RefundRequest) error
	GetByID(ctx context.Context, requestID string) (*domain.RefundRequest, error)
	// TransitionStatus CASes status from->to. A non-nil amount materializes
	// the full-remaining sentinel into the concrete reserved amount.
	TransitionStatus(ctx context.Context, requestID string, from, to domain.RefundRequestStatus, amount *float64) (bool, error)
	// Resolve CASes into a terminal status, stamping resolved_at and the
	// resolution.
	Resolve(ctx context.Context, requestID string, from, to domain.RefundRequestStatus, res *domain.Resolution) (bool, error)
	Search(ctx context.Context, params RefundRequestSearchParams) ([]domain.RefundRequest, int64, error)
	// ListStale returns non-terminal requests in the given status created
	// before the cutoff (reaper input).
	ListStale(ctx context.Context, status domain.RefundRequestStatus, olderThan time.Time) ([]domain.RefundRequest, error)
	// ListActiveForTxn returns RESERVING/RESERVED requests holding balance
	// against a transaction (the transactional path's provisional holds).
	ListActiveForTxn(ctx context.Context, kind domain.TransactionKind, txnID string) ([]domain.RefundRequest, error)
}

// RefundRequestSearchParams holds admin-search filters: by requester+status,
// or by transaction coordinates.
type RefundRequestSearchParams struct {
	RequestedBy string
	Status      *domain.RefundRequestStatus
	TxnKind     domain.TransactionKind
	TxnID       string
	Page        int
	PageSize    int
}

// WebhookEventRepository is the durable at-most-once gate for inbound events.
type WebhookEventRepository interface {
	// CreateIfAbsent inserts the record unless one with the same event id
	// exists. Returns false when the id was already seen.
	CreateIfAbsent(ctx context.Context, rec *domain.WebhookEventRecord) (bool, error)
}

// WebhookFailureRepository stores failed deliveries for operator inspection
// and replay.
type WebhookFailureRepository interface {
	Create(ctx context.Context, rec *domain.WebhookFailureRecord) error
	GetByID(ctx context.Context, id string) (*domain.WebhookFailureRecord, error)
	List(ctx context.Context, page, pageSize int) ([]domain.WebhookFailureRecord, int64, error)
	MarkReplayed(ctx context.Context, id string, at time.Time) error
}

// AuditRepository persists audit entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// TxnRunner provides multi-document transaction management when the backing
// deployment supports it.
type TxnRunner interface {
	// WithinTransaction runs fn inside one transaction. Store calls made with
	// fn's context join the transaction; the driver retries fn on transient
	// write conflicts.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	// Supported reports the startup capability probe result.
	Supported() bool
}
