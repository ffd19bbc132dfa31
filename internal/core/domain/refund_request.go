package domain

import (
	"time"
)

// RefundRequestStatus is the lifecycle state of a refund request.
type RefundRequestStatus string

const (
	RefundStatusPending    RefundRequestStatus = "PENDING"
	RefundStatusReserving  RefundRequestStatus = "RESERVING"
	RefundStatusReserved   RefundRequestStatus = "RESERVED"
	RefundStatusCompleted  RefundRequestStatus = "COMPLETED"
	RefundStatusRolledBack RefundRequestStatus = "ROLLED_BACK"
	RefundStatusRejected   RefundRequestStatus = "REJECTED"
)

// Valid reports whether s is a known refund request status.
func (s RefundRequestStatus) Valid() bool {
	switch s {
	case RefundStatusPending, RefundStatusReserving, RefundStatusReserved,
		RefundStatusCompleted, RefundStatusRolledBack, RefundStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether the request can no longer change state.
func (s RefundRequestStatus) Terminal() bool {
	return s == RefundStatusCompleted || s == RefundStatusRolledBack || s == RefundStatusRejected
}

// Resolution records how a request left the pending pipeline: the deciding
// admin, their note, and the committed refund id on completion.
type Resolution struct {
	DecidedBy string `bson:"decided_by,omitempty" json:"decided_by,omitempty"`
	Note      string `bson:"note,omitempty" json:"note,omitempty"`
	RefundID  string `bson:"refund_id,omitempty" json:"refund_id,omitempty"`
}

// RefundRequest tracks user/admin refund intent, separate from the ledger's
// RefundEntry. Created PENDING by the owner; enters RESERVING only inside the
// saga reservation protocol; COMPLETED once the matching RefundEntry is
// durable and external execution succeeded; ROLLED_BACK when reservation or
// execution fails; REJECTED by admin action without ever reserving funds.
type RefundRequest struct {
	RequestID   string              `bson:"_id" json:"request_id"`
	TxnKind     TransactionKind     `bson:"txn_kind" json:"txn_kind"`
	TxnID       string              `bson:"txn_id" json:"txn_id"`
	LineID      string              `bson:"line_id,omitempty" json:"line_id,omitempty"`
	Amount      *float64            `bson:"amount,omitempty" json:"amount,omitempty"` // nil = full remaining
	Currency    string              `bson:"currency" json:"currency"`
	RequestedBy string              `bson:"requested_by" json:"requested_by"`
	Message     string              `bson:"message,omitempty" json:"message,omitempty"`
	Status      RefundRequestStatus `bson:"status" json:"status"`
	Resolution  *Resolution         `bson:"resolution,omitempty" json:"resolution,omitempty"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
	ResolvedAt  *time.Time          `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
}

// IdempotencyKey is the deterministic key sent with external refund
// execution for this request. While the refund is pending it also stands in
// for the processor refund id, so retries and the reaper can correlate a
// half-finished execution back to its request.
func (r *RefundRequest) IdempotencyKey() string {
	return "rr-" + r.RequestID
}
