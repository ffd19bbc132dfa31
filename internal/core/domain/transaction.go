package domain

import (
	"time"
)

// TransactionKind identifies the payable domain a ledger record belongs to.
// Records are partitioned into one collection per kind.
type TransactionKind string

const (
	KindEvent               TransactionKind = "event"
	KindForm                TransactionKind = "form"
	KindDonationOneTime     TransactionKind = "donation_one_time"
	KindSubscriptionPayment TransactionKind = "donation_subscription_payment"
)

// AllKinds returns every payable kind, in stable order.
func AllKinds() []TransactionKind {
	return []TransactionKind{KindEvent, KindForm, KindDonationOneTime, KindSubscriptionPayment}
}

// Valid reports whether k is a known payable kind.
func (k TransactionKind) Valid() bool {
	switch k {
	case KindEvent, KindForm, KindDonationOneTime, KindSubscriptionPayment:
		return true
	}
	return false
}

// HasLineItems reports whether records of this kind carry sub-allocations
// (per-attendee tickets, per-field form charges).
func (k TransactionKind) HasLineItems() bool {
	return k == KindEvent || k == KindForm
}

// TransactionStatus is the lifecycle state of a ledger record.
type TransactionStatus string

const (
	TxnStatusCreated           TransactionStatus = "CREATED"
	TxnStatusCaptured          TransactionStatus = "CAPTURED"
	TxnStatusPartiallyRefunded TransactionStatus = "PARTIALLY_REFUNDED"
	TxnStatusFullyRefunded     TransactionStatus = "FULLY_REFUNDED"
	TxnStatusFailed            TransactionStatus = "FAILED"
)

// MinorUnitEpsilon is the settlement-rounding tolerance used everywhere a
// derived status or balance guard compares float amounts: one minor currency
// unit.
const MinorUnitEpsilon = 0.01

// RefundSource records how a refund entry entered the ledger.
type RefundSource string

const (
	RefundSourceAdmin    RefundSource = "ADMIN"    // coordinator-driven, admin approved
	RefundSourceExternal RefundSource = "EXTERNAL" // processor webhook
	RefundSourceMigrated RefundSource = "MIGRATED" // data import
)

// RefundEntry is one committed refund on a transaction record. Immutable once
// appended; refund_id is unique within the record.
type RefundEntry struct {
	RefundID  string       `bson:"refund_id" json:"refund_id"`
	RequestID string       `bson:"request_id,omitempty" json:"request_id,omitempty"`
	LineID    string       `bson:"line_id,omitempty" json:"line_id,omitempty"`
	Amount    float64      `bson:"amount" json:"amount"`
	Currency  string       `bson:"currency" json:"currency"`
	Reason    string       `bson:"reason,omitempty" json:"reason,omitempty"`
	By        string       `bson:"by" json:"by"`
	Source    RefundSource `bson:"source" json:"source"`
	CreatedAt time.Time    `bson:"created_at" json:"created_at"`
}

// ReservationMarker provisionally earmarks part of a record's remaining
// balance for one in-flight refund request. The marker is the saga path's
// lock-equivalent, expressed as data so it survives process restarts. A
// marker must never outlive the request whose id it carries.
type ReservationMarker struct {
	RequestID string    `bson:"request_id" json:"request_id"`
	LineID    string    `bson:"line_id,omitempty" json:"line_id,omitempty"`
	Amount    float64   `bson:"amount" json:"amount"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// LineItem is a sub-allocation of a transaction's amount with its own
// remaining balance (event and form kinds only). Refunded and Reserved are
// denormalized totals maintained atomically with the arrays on the record.
type LineItem struct {
	LineID   string  `bson:"line_id" json:"line_id"`
	Label    string  `bson:"label,omitempty" json:"label,omitempty"`
	Amount   float64 `bson:"amount" json:"amount"`
	Refunded float64 `bson:"refunded" json:"refunded"`
	Reserved float64 `bson:"reserved" json:"reserved"`
}

// Remaining returns the line's refundable balance net of committed refunds
// and live reservations.
func (l LineItem) Remaining() float64 {
	return l.Amount - l.Refunded - l.Reserved
}

// TransactionRecord mirrors one processor charge for a payable domain.
// Amount and currency are immutable after capture; refunds is append-only;
// every cross-cutting mutation happens through a single conditional update.
type TransactionRecord struct {
	ID                string              `bson:"_id" json:"id"`
	Kind              TransactionKind     `bson:"kind" json:"kind"`
	OrderRef          string              `bson:"order_ref,omitempty" json:"order_ref,omitempty"`
	ApprovalURL       string              `bson:"approval_url,omitempty" json:"approval_url,omitempty"`
	ExternalReference string              `bson:"external_reference,omitempty" json:"external_reference,omitempty"`
	OwnerID           string              `bson:"owner_id" json:"owner_id"`
	Amount            float64             `bson:"amount" json:"amount"`
	Currency          string              `bson:"currency" json:"currency"`
	Status            TransactionStatus   `bson:"status" json:"status"`
	Refunds           []RefundEntry       `bson:"refunds" json:"refunds"`
	RefundedTotal     float64             `bson:"refunded_total" json:"refunded_total"`
	Reservations      []ReservationMarker `bson:"reservations" json:"reservations,omitempty"`
	ReservedTotal     float64             `bson:"reserved_total" json:"reserved_total"`
	LineItems         []LineItem          `bson:"line_items,omitempty" json:"line_items,omitempty"`
	Revision          int64               `bson:"revision" json:"-"`
	CreatedAt         time.Time           `bson:"created_at" json:"created_at"`
	CapturedAt        *time.Time          `bson:"captured_at,omitempty" json:"captured_at,omitempty"`
}

// IsRefundable reports whether the record is in a status that accepts new
// refunds.
func (t *TransactionRecord) IsRefundable() bool {
	return t.Status == TxnStatusCaptured || t.Status == TxnStatusPartiallyRefunded
}

// Remaining returns the record-level refundable balance net of committed
// refunds and live reservation markers.
func (t *TransactionRecord) Remaining() float64 {
	return t.Amount - t.RefundedTotal - t.ReservedTotal
}

// Line returns the line item with the given id.
func (t *TransactionRecord) Line(lineID string) (LineItem, bool) {
	for _, l := range t.LineItems {
		if l.LineID == lineID {
			return l, true
		}
	}
	return LineItem{}, false
}

// RemainingFor returns the remaining balance for the requested scope: the
// whole record when lineID is empty, otherwise the named line. The second
// return is false when the line does not exist.
func (t *TransactionRecord) RemainingFor(lineID string) (float64, bool) {
	if lineID == "" {
		return t.Remaining(), true
	}
	line, ok := t.Line(lineID)
	if !ok {
		return 0, false
	}
	return line.Remaining(), true
}

// HasRefund reports whether a refund entry with the given id already exists.
func (t *TransactionRecord) HasRefund(refundID string) bool {
	for _, r := range t.Refunds {
		if r.RefundID == refundID {
			return true
		}
	}
	return false
}

// RefundForRequest returns the refund entry back-linked to the given request.
func (t *TransactionRecord) RefundForRequest(requestID string) (RefundEntry, bool) {
	for _, r := range t.Refunds {
		if r.RequestID == requestID {
			return r, true
		}
	}
	return RefundEntry{}, false
}

// HasReservation reports whether a live marker for the given request exists.
func (t *TransactionRecord) HasReservation(requestID string) bool {
	for _, m := range t.Reservations {
		if m.RequestID == requestID {
			return true
		}
	}
	return false
}

// DeriveStatus computes the status implied by the refunded total. States
// outside the refundable set are terminal for derivation purposes and are
// returned unchanged; so is a record with nothing refunded. The epsilon
// absorbs settlement rounding on the fully-refunded boundary.
func DeriveStatus(current TransactionStatus, amount, refundedTotal float64) TransactionStatus {
	if refundedTotal <= 0 {
		return current
	}
	if current != TxnStatusCaptured && current != TxnStatusPartiallyRefunded {
		return current
	}
	if refundedTotal >= amount-MinorUnitEpsilon {
		return TxnStatusFullyRefunded
	}
	return TxnStatusPartiallyRefunded
}
