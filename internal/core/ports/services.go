package ports

import (
	"context"
	"time"

	"church-payments/internal/core/domain"
)

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID string, roles []string) (string, time.Time, error) // token, expiry, error
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID string
	Roles  []string
}

// IsAdmin reports whether the claims carry the admin role.
func (c *TokenClaims) IsAdmin() bool {
	for _, r := range c.Roles {
		if r == "admin" {
			return true
		}
	}
	return false
}

// Authorizer decides whether a caller may act on a resource owned by ownerID.
type Authorizer interface {
	CanAccess(claims *TokenClaims, ownerID string) bool
}

// DedupeCache is the Redis-layer duplicate check in front of the durable
// event gate (fast path, advisory only).
type DedupeCache interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	MarkSeen(ctx context.Context, eventID string, ttl time.Duration) error
}

// ProcessorClient talks to the payment processor. Implementations own token
// lifecycle and outbound rate limiting; calls must never run inside a store
// transaction.
type ProcessorClient interface {
	CreateOrder(ctx context.Context, req ProcessorOrderRequest) (*ProcessorOrder, error)
	CaptureOrder(ctx context.Context, orderRef string) (*ProcessorCapture, error)
	// ExecuteRefund refunds amount against a capture. idempotencyKey makes
	// retried calls safe at the processor side.
	ExecuteRefund(ctx context.Context, captureRef string, amount float64, currency, idempotencyKey string) (*ProcessorRefund, error)
	VerifyWebhookSignature(ctx context.Context, headers map[string]string, rawBody []byte) error
}

// ProcessorOrderRequest holds input for creating one processor order.
type ProcessorOrderRequest struct {
	Amount      float64
	Currency    string
	CustomID    string
	Description string
}

// ProcessorOrder is the processor's view of a created order.
type ProcessorOrder struct {
	OrderRef    string
	Status      string
	ApprovalURL string
}

// ProcessorCapture is the processor's view of a captured order.
type ProcessorCapture struct {
	CaptureRef string
	Status     string
}

// ProcessorRefund is the processor's view of an executed refund.
type ProcessorRefund struct {
	RefundID string
	Status   string
}

// --- Service Ports (Business Logic) ---

// CheckoutService creates processor orders and captures approved ones.
type CheckoutService interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.TransactionRecord, error)
	CaptureOrder(ctx context.Context, kind domain.TransactionKind, id, actorID string) (*domain.TransactionRecord, error)
}

// CreateOrderRequest holds validated input for starting a checkout.
type CreateOrderRequest struct {
	Kind      domain.TransactionKind
	OwnerID   string
	Amount    float64
	Currency  string
	Reference string
	LineItems []LineItemInput
}

// LineItemInput is one named portion of a checkout total.
type LineItemInput struct {
	LineID string
	Label  string
	Amount float64
}

// RefundService owns the refund request lifecycle, including reservation and
// execution on approval.
type RefundService interface {
	CreateRequest(ctx context.Context, req CreateRefundRequest) (*domain.RefundRequest, error)
	GetRequest(ctx context.Context, requestID string, claims *TokenClaims) (*domain.RefundRequest, error)
	ListRequests(ctx context.Context, params RefundRequestSearchParams) ([]domain.RefundRequest, int64, error)
	Decide(ctx context.Context, req DecideRefundRequest) (*domain.RefundRequest, error)
}

// CreateRefundRequest holds validated input for a refund petition.
type CreateRefundRequest struct {
	TxnKind     domain.TransactionKind
	TxnID       string
	LineID      string
	Amount      *float64 // nil = full remaining balance
	Message     string
	RequestedBy string
	IsAdmin     bool
}

// DecideRefundRequest holds an admin's resolution of a pending request.
type DecideRefundRequest struct {
	RequestID string
	Approve   bool
	Note      string
	DecidedBy string
}

// ReservationStrategy is one way of holding refundable balance while an
// external refund executes. The implementation is chosen once at startup
// from the deployment's capabilities; callers cannot tell them apart.
type ReservationStrategy interface {
	// Reserve validates the balance and promotes the request from PENDING
	// into a reserved hold over amount.
	Reserve(ctx context.Context, txn *domain.TransactionRecord, req *domain.RefundRequest, amount float64) error
	// Release rolls the hold back after a failed execution. Idempotent.
	Release(ctx context.Context, req *domain.RefundRequest) error
	// Commit applies the finished refund to the ledger, releases the hold
	// and resolves the request as COMPLETED.
	Commit(ctx context.Context, req *domain.RefundRequest, entry domain.RefundEntry, res *domain.Resolution) (*domain.TransactionRecord, error)
	// Name identifies the strategy in logs.
	Name() string
}

// RefundLedgerUpdater applies one finished refund to its ledger record:
// append the entry (idempotent by refund id), release any lingering hold and
// re-derive the record's status. Returns the updated record and whether the
// entry was newly applied.
type RefundLedgerUpdater interface {
	Apply(ctx context.Context, kind domain.TransactionKind, txnID string, entry domain.RefundEntry, clearMarker *domain.ReservationMarker) (*domain.TransactionRecord, bool, error)
}

// LedgerQueryService reads ledger records with ownership enforcement.
type LedgerQueryService interface {
	GetTransaction(ctx context.Context, kind domain.TransactionKind, id string, claims *TokenClaims) (*domain.TransactionRecord, error)
	ListTransactions(ctx context.Context, params TransactionListParams) ([]domain.TransactionRecord, int64, error)
}

// SignatureHeaders are the delivery headers the verification boundary needs,
// in Go's canonical form. All must be present or verification fails closed.
var SignatureHeaders = []string{
	"Paypal-Transmission-Id",
	"Paypal-Transmission-Sig",
	"Paypal-Transmission-Time",
	"Paypal-Cert-Url",
	"Paypal-Auth-Algo",
}

// WebhookIntakeService verifies, deduplicates and dispatches inbound
// processor events, and replays stored failures on operator request.
type WebhookIntakeService interface {
	Ingest(ctx context.Context, headers map[string]string, rawBody []byte) (*IngestResult, error)
	ReplayFailure(ctx context.Context, failureID, actorID string) (*IngestResult, error)
	ListFailures(ctx context.Context, page, pageSize int) ([]domain.WebhookFailureRecord, int64, error)
}

// IngestResult reports how one inbound delivery was settled.
type IngestResult struct {
	EventID   string
	EventType string
	Duplicate bool
}

// EventDispatcher routes one verified, deduplicated event to its ledger
// handler.
type EventDispatcher interface {
	Dispatch(ctx context.Context, eventType string, rawBody []byte) error
}

// AuditService records administrative and money-moving actions.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}
