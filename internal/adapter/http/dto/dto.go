package dto

import (
	"time"

	"church-payments/internal/core/domain"
)

// CreateOrderRequest is the request body for starting a checkout.
type CreateOrderRequest struct {
	Kind      string            `json:"kind" binding:"required,txn_kind"`
	Amount    float64           `json:"amount" binding:"required,gt=0"`
	Currency  string            `json:"currency" binding:"required,len=3"`
	Reference string            `json:"reference,omitempty" binding:"omitempty,max=127"`
	LineItems []LineItemRequest `json:"line_items,omitempty" binding:"omitempty,dive"`
}

// LineItemRequest is one sub-allocation of a checkout order.
type LineItemRequest struct {
	LineID string  `json:"line_id" binding:"required,safe_id,max=64"`
	Label  string  `json:"label,omitempty" binding:"omitempty,max=100"`
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// CreateRefundRequestBody is the request body for a refund petition.
// Amount absent means the full remaining balance.
type CreateRefundRequestBody struct {
	TxnKind string   `json:"txn_kind" binding:"required,txn_kind"`
	TxnID   string   `json:"txn_id" binding:"required,safe_id,max=64"`
	LineID  string   `json:"line_id,omitempty" binding:"omitempty,safe_id,max=64"`
	Amount  *float64 `json:"amount,omitempty" binding:"omitempty,gt=0"`
	Message string   `json:"message,omitempty" binding:"omitempty,max=500"`
}

// DecideRequest is the admin decision body. Approve is a pointer so an
// absent field binds as an error instead of a silent reject.
type DecideRequest struct {
	Approve *bool  `json:"approve" binding:"required"`
	Note    string `json:"note,omitempty" binding:"omitempty,max=500"`
}

// RefundEntryResponse is one committed refund on a transaction.
type RefundEntryResponse struct {
	RefundID  string  `json:"refund_id"`
	RequestID string  `json:"request_id,omitempty"`
	LineID    string  `json:"line_id,omitempty"`
	Amount    float64 `json:"amount"`
	Currency  string  `json:"currency"`
	Reason    string  `json:"reason,omitempty"`
	By        string  `json:"by"`
	Source    string  `json:"source"`
	CreatedAt string  `json:"created_at"`
}

// LineItemResponse is one line item with its live balances.
type LineItemResponse struct {
	LineID    string  `json:"line_id"`
	Label     string  `json:"label,omitempty"`
	Amount    float64 `json:"amount"`
	Refunded  float64 `json:"refunded"`
	Reserved  float64 `json:"reserved"`
	Remaining float64 `json:"remaining"`
}

// TransactionResponse is the unified ledger view of one transaction.
type TransactionResponse struct {
	ID                string                `json:"id"`
	Kind              string                `json:"kind"`
	OrderRef          string                `json:"order_ref,omitempty"`
	ApprovalURL       string                `json:"approval_url,omitempty"`
	ExternalReference string                `json:"external_reference,omitempty"`
	OwnerID           string                `json:"owner_id"`
	Amount            float64               `json:"amount"`
	Currency          string                `json:"currency"`
	Status            string                `json:"status"`
	RefundedTotal     float64               `json:"refunded_total"`
	ReservedTotal     float64               `json:"reserved_total"`
	Remaining         float64               `json:"remaining"`
	Refunds           []RefundEntryResponse `json:"refunds"`
	LineItems         []LineItemResponse    `json:"line_items,omitempty"`
	CreatedAt         string                `json:"created_at"`
	CapturedAt        *string               `json:"captured_at,omitempty"`
}

// TransactionListResponse wraps a paginated transaction list.
type TransactionListResponse struct {
	Items      []TransactionResponse `json:"items"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// RefundRequestResponse is one refund request with its resolution, if any.
type RefundRequestResponse struct {
	RequestID   string   `json:"request_id"`
	TxnKind     string   `json:"txn_kind"`
	TxnID       string   `json:"txn_id"`
	LineID      string   `json:"line_id,omitempty"`
	Amount      *float64 `json:"amount,omitempty"`
	Currency    string   `json:"currency"`
	RequestedBy string   `json:"requested_by"`
	Message     string   `json:"message,omitempty"`
	Status      string   `json:"status"`
	DecidedBy   string   `json:"decided_by,omitempty"`
	Note        string   `json:"note,omitempty"`
	RefundID    string   `json:"refund_id,omitempty"`
	CreatedAt   string   `json:"created_at"`
	ResolvedAt  *string  `json:"resolved_at,omitempty"`
}

// RefundRequestListResponse wraps a paginated refund request list.
type RefundRequestListResponse struct {
	Items      []RefundRequestResponse `json:"items"`
	Total      int64                   `json:"total"`
	Page       int                     `json:"page"`
	PageSize   int                     `json:"page_size"`
	TotalPages int                     `json:"total_pages"`
}

// WebhookIngestResponse reports the outcome of one webhook delivery.
type WebhookIngestResponse struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Duplicate bool   `json:"duplicate"`
}

// WebhookFailureResponse is one stored failed delivery.
type WebhookFailureResponse struct {
	ID         string  `json:"id"`
	EventID    string  `json:"event_id,omitempty"`
	Kind       string  `json:"kind"`
	Error      string  `json:"error"`
	CreatedAt  string  `json:"created_at"`
	ReplayedAt *string `json:"replayed_at,omitempty"`
}

// WebhookFailureListResponse wraps a paginated failure list.
type WebhookFailureListResponse struct {
	Items      []WebhookFailureResponse `json:"items"`
	Total      int64                    `json:"total"`
	Page       int                      `json:"page"`
	PageSize   int                      `json:"page_size"`
	TotalPages int                      `json:"total_pages"`
}

// FromTransaction maps a ledger record to its response shape.
func FromTransaction(t *domain.TransactionRecord) TransactionResponse {
	resp := TransactionResponse{
		ID:                t.ID,
		Kind:              string(t.Kind),
		OrderRef:          t.OrderRef,
		ApprovalURL:       t.ApprovalURL,
		ExternalReference: t.ExternalReference,
		OwnerID:           t.OwnerID,
		Amount:            t.Amount,
		Currency:          t.Currency,
		Status:            string(t.Status),
		RefundedTotal:     t.RefundedTotal,
		ReservedTotal:     t.ReservedTotal,
		Remaining:         t.Remaining(),
		Refunds:           make([]RefundEntryResponse, 0, len(t.Refunds)),
		CreatedAt:         t.CreatedAt.Format(time.RFC3339),
	}
	for _, r := range t.Refunds {
		resp.Refunds = append(resp.Refunds, RefundEntryResponse{
			RefundID:  r.RefundID,
			RequestID: r.RequestID,
			LineID:    r.LineID,
			Amount:    r.Amount,
			Currency:  r.Currency,
			Reason:    r.Reason,
			By:        r.By,
			Source:    string(r.Source),
			CreatedAt: r.CreatedAt.Format(time.RFC3339),
		})
	}
	for _, l := range t.LineItems {
		resp.LineItems = append(resp.LineItems, LineItemResponse{
			LineID:    l.LineID,
			Label:     l.Label,
			Amount:    l.Amount,
			Refunded:  l.Refunded,
			Reserved:  l.Reserved,
			Remaining: l.Remaining(),
		})
	}
	if t.CapturedAt != nil {
		s := t.CapturedAt.Format(time.RFC3339)
		resp.CapturedAt = &s
	}
	return resp
}

// FromRefundRequest maps a refund request to its response shape.
func FromRefundRequest(r *domain.RefundRequest) RefundRequestResponse {
	resp := RefundRequestResponse{
		RequestID:   r.RequestID,
		TxnKind:     string(r.TxnKind),
		TxnID:       r.TxnID,
		LineID:      r.LineID,
		Amount:      r.Amount,
		Currency:    r.Currency,
		RequestedBy: r.RequestedBy,
		Message:     r.Message,
		Status:      string(r.Status),
		CreatedAt:   r.CreatedAt.Format(time.RFC3339),
	}
	if r.Resolution != nil {
		resp.DecidedBy = r.Resolution.DecidedBy
		resp.Note = r.Resolution.Note
		resp.RefundID = r.Resolution.RefundID
	}
	if r.ResolvedAt != nil {
		s := r.ResolvedAt.Format(time.RFC3339)
		resp.ResolvedAt = &s
	}
	return resp
}

// FromWebhookFailure maps a stored failure to its response shape. The raw
// payload and headers stay out of list responses; replay reads them
// server-side.
func FromWebhookFailure(f *domain.WebhookFailureRecord) WebhookFailureResponse {
	resp := WebhookFailureResponse{
		ID:        f.ID,
		EventID:   f.EventID,
		Kind:      string(f.Kind),
		Error:     f.Error,
		CreatedAt: f.CreatedAt.Format(time.RFC3339),
	}
	if f.ReplayedAt != nil {
		s := f.ReplayedAt.Format(time.RFC3339)
		resp.ReplayedAt = &s
	}
	return resp
}

// TotalPages computes the page count for a list envelope.
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	pages := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		pages++
	}
	return int(pages)
}
