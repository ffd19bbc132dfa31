package integration

import (
	"context"
	"fmt"
	"sync"
	"time"

	"church-payments/internal/core/domain"
	"church-payments/internal/core/ports"
)

// In-memory stores with the same conditional-update semantics as the MongoDB
// adapters: every guard is evaluated and applied under one lock, so the
// balance and status invariants hold under the concurrency tests exactly as
// they do against single-document updates. Reads return copies so callers
// never mutate shared state.

// --- In-Memory Transaction Store ---

type recKey struct {
	kind domain.TransactionKind
	id   string
}

type inMemoryTxnStore struct {
	mu      sync.Mutex
	records map[recKey]*domain.TransactionRecord
	order   []recKey
}

func newInMemoryTxnStore() *inMemoryTxnStore {
	return &inMemoryTxnStore{records: make(map[recKey]*domain.TransactionRecord)}
}

func cloneRecord(rec *domain.TransactionRecord) *domain.TransactionRecord {
	cp := *rec
	cp.Refunds = append([]domain.RefundEntry(nil), rec.Refunds...)
	cp.Reservations = append([]domain.ReservationMarker(nil), rec.Reservations...)
	cp.LineItems = append([]domain.LineItem(nil), rec.LineItems...)
	if rec.CapturedAt != nil {
		at := *rec.CapturedAt
		cp.CapturedAt = &at
	}
	return &cp
}

func (s *inMemoryTxnStore) Create(ctx context.Context, rec *domain.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := recKey{rec.Kind, rec.ID}
	if _, exists := s.records[k]; exists {
		return fmt.Errorf("duplicate transaction id %s", rec.ID)
	}
	s.records[k] = cloneRecord(rec)
	s.order = append(s.order, k)
	return nil
}

func (s *inMemoryTxnStore) GetByID(ctx context.Context, kind domain.TransactionKind, id string) (*domain.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[recKey{kind, id}]
	if !ok {
		return nil, nil
	}
	return cloneRecord(rec), nil
}

func (s *inMemoryTxnStore) GetByOrderRef(ctx context.Context, kind domain.TransactionKind, orderRef string) (*domain.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, rec := range s.records {
		if k.kind == kind && rec.OrderRef == orderRef {
			return cloneRecord(rec), nil
		}
	}
	return nil, nil
}

func (s *inMemoryTxnStore) GetByExternalRef(ctx context.Context, kind domain.TransactionKind, externalRef string) (*domain.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, rec := range s.records {
		if k.kind == kind && rec.ExternalReference == externalRef {
			return cloneRecord(rec), nil
		}
	}
	return nil, nil
}

func (s *inMemoryTxnStore) List(ctx context.Context, params ports.TransactionListParams) ([]domain.TransactionRecord, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.TransactionRecord
	for _, k := range s.order {
		if k.kind != params.Kind {
			continue
		}
		rec := s.records[k]
		if params.OwnerID != "" && rec.OwnerID != params.OwnerID {
			continue
		}
		if params.Status != nil && rec.Status != *params.Status {
			continue
		}
		result = append(result, *cloneRecord(rec))
	}
	total := int64(len(result))

	// Simple pagination
	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.TransactionRecord{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

func (s *inMemoryTxnStore) MarkCaptured(ctx context.Context, kind domain.TransactionKind, orderRef, captureRef string, capturedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, rec := range s.records {
		if k.kind != kind || rec.OrderRef != orderRef || rec.Status != domain.TxnStatusCreated {
			continue
		}
		rec.Status = domain.TxnStatusCaptured
		rec.ExternalReference = captureRef
		at := capturedAt
		rec.CapturedAt = &at
		return true, nil
	}
	return false, nil
}

func (s *inMemoryTxnStore) MarkFailed(ctx context.Context, kind domain.TransactionKind, orderRef string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, rec := range s.records {
		if k.kind != kind || rec.OrderRef != orderRef || rec.Status != domain.TxnStatusCreated {
			continue
		}
		rec.Status = domain.TxnStatusFailed
		return true, nil
	}
	return false, nil
}

func (s *inMemoryTxnStore) RegisterReservation(ctx context.Context, kind domain.TransactionKind, id string, marker domain.ReservationMarker) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[recKey{kind, id}]
	if !ok || !rec.IsRefundable() || rec.HasReservation(marker.RequestID) {
		return false, nil
	}
	need := marker.Amount - domain.MinorUnitEpsilon
	if rec.Remaining() < need {
		return false, nil
	}
	if marker.LineID != "" {
		line, found := rec.Line(marker.LineID)
		if !found || line.Remaining() < need {
			return false, nil
		}
	}
	rec.Reservations = append(rec.Reservations, marker)
	rec.ReservedTotal += marker.Amount
	if marker.LineID != "" {
		for i := range rec.LineItems {
			if rec.LineItems[i].LineID == marker.LineID {
				rec.LineItems[i].Reserved += marker.Amount
			}
		}
	}
	return true, nil
}

func (s *inMemoryTxnStore) ClearReservation(ctx context.Context, kind domain.TransactionKind, id string, marker domain.ReservationMarker) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[recKey{kind, id}]
	if !ok {
		return false, nil
	}
	return clearMarkerLocked(rec, marker), nil
}

// clearMarkerLocked pulls the marker for a request and releases its hold.
// Caller holds the store lock.
func clearMarkerLocked(rec *domain.TransactionRecord, marker domain.ReservationMarker) bool {
	for i, m := range rec.Reservations {
		if m.RequestID != marker.RequestID {
			continue
		}
		rec.Reservations = append(rec.Reservations[:i], rec.Reservations[i+1:]...)
		rec.ReservedTotal -= marker.Amount
		if marker.LineID != "" {
			for j := range rec.LineItems {
				if rec.LineItems[j].LineID == marker.LineID {
					rec.LineItems[j].Reserved -= marker.Amount
				}
			}
		}
		return true
	}
	return false
}

func (s *inMemoryTxnStore) BumpRevision(ctx context.Context, kind domain.TransactionKind, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[recKey{kind, id}]
	if !ok || !rec.IsRefundable() {
		return false, nil
	}
	rec.Revision++
	return true, nil
}

func (s *inMemoryTxnStore) AppendRefund(ctx context.Context, kind domain.TransactionKind, id string, entry domain.RefundEntry, clearMarker *domain.ReservationMarker) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[recKey{kind, id}]
	if !ok {
		return false, nil
	}
	applied := false
	if !rec.HasRefund(entry.RefundID) {
		rec.Refunds = append(rec.Refunds, entry)
		rec.RefundedTotal += entry.Amount
		if entry.LineID != "" {
			for i := range rec.LineItems {
				if rec.LineItems[i].LineID == entry.LineID {
					rec.LineItems[i].Refunded += entry.Amount
				}
			}
		}
		applied = true
	}
	// A lingering marker is cleared even when the append was a replay.
	if clearMarker != nil {
		clearMarkerLocked(rec, *clearMarker)
	}
	return applied, nil
}

func (s *inMemoryTxnStore) SetDerivedStatus(ctx context.Context, kind domain.TransactionKind, id string, from, to domain.TransactionStatus, observedRefunded float64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[recKey{kind, id}]
	if !ok || rec.Status != from || rec.RefundedTotal != observedRefunded {
		return false, nil
	}
	rec.Status = to
	return true, nil
}

func (s *inMemoryTxnStore) ListStaleMarkers(ctx context.Context, olderThan time.Time) ([]ports.StaleMarker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ports.StaleMarker
	for _, k := range s.order {
		for _, m := range s.records[k].Reservations {
			if m.CreatedAt.Before(olderThan) {
				out = append(out, ports.StaleMarker{TxnKind: k.kind, TxnID: k.id, Marker: m})
			}
		}
	}
	return out, nil
}

// --- In-Memory Refund Request Repo ---

type inMemoryRefundRequestRepo struct {
	mu       sync.Mutex
	requests map[string]*domain.RefundRequest
	order    []string
}

func newInMemoryRefundRequestRepo() *inMemoryRefundRequestRepo {
	return &inMemoryRefundRequestRepo{requests: make(map[string]*domain.RefundRequest)}
}

func cloneRequest(req *domain.RefundRequest) *domain.RefundRequest {
	cp := *req
	if req.Amount != nil {
		a := *req.Amount
		cp.Amount = &a
	}
	if req.Resolution != nil {
		res := *req.Resolution
		cp.Resolution = &res
	}
	if req.ResolvedAt != nil {
		at := *req.ResolvedAt
		cp.ResolvedAt = &at
	}
	return &cp
}

func (r *inMemoryRefundRequestRepo) Create(ctx context.Context, req *domain.RefundRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.requests[req.RequestID]; exists {
		return fmt.Errorf("duplicate request id %s", req.RequestID)
	}
	r.requests[req.RequestID] = cloneRequest(req)
	r.order = append(r.order, req.RequestID)
	return nil
}

func (r *inMemoryRefundRequestRepo) GetByID(ctx context.Context, requestID string) (*domain.RefundRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[requestID]
	if !ok {
		return nil, nil
	}
	return cloneRequest(req), nil
}

func (r *inMemoryRefundRequestRepo) TransitionStatus(ctx context.Context, requestID string, from, to domain.RefundRequestStatus, amount *float64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[requestID]
	if !ok || req.Status != from {
		return false, nil
	}
	req.Status = to
	if amount != nil {
		a := *amount
		req.Amount = &a
	}
	return true, nil
}

func (r *inMemoryRefundRequestRepo) Resolve(ctx context.Context, requestID string, from, to domain.RefundRequestStatus, res *domain.Resolution) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[requestID]
	if !ok || req.Status != from {
		return false, nil
	}
	req.Status = to
	if res != nil {
		cp := *res
		req.Resolution = &cp
	}
	now := time.Now().UTC()
	req.ResolvedAt = &now
	return true, nil
}

func (r *inMemoryRefundRequestRepo) Search(ctx context.Context, params ports.RefundRequestSearchParams) ([]domain.RefundRequest, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.RefundRequest
	for _, id := range r.order {
		req := r.requests[id]
		if params.RequestedBy != "" && req.RequestedBy != params.RequestedBy {
			continue
		}
		if params.Status != nil && req.Status != *params.Status {
			continue
		}
		if params.TxnID != "" && (req.TxnKind != params.TxnKind || req.TxnID != params.TxnID) {
			continue
		}
		result = append(result, *cloneRequest(req))
	}
	total := int64(len(result))

	// Simple pagination
	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.RefundRequest{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

func (r *inMemoryRefundRequestRepo) ListStale(ctx context.Context, status domain.RefundRequestStatus, olderThan time.Time) ([]domain.RefundRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.RefundRequest
	for _, id := range r.order {
		req := r.requests[id]
		if req.Status == status && req.CreatedAt.Before(olderThan) {
			out = append(out, *cloneRequest(req))
		}
	}
	return out, nil
}

func (r *inMemoryRefundRequestRepo) ListActiveForTxn(ctx context.Context, kind domain.TransactionKind, txnID string) ([]domain.RefundRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.RefundRequest
	for _, id := range r.order {
		req := r.requests[id]
		if req.TxnKind != kind || req.TxnID != txnID {
			continue
		}
		if req.Status == domain.RefundStatusReserving || req.Status == domain.RefundStatusReserved {
			out = append(out, *cloneRequest(req))
		}
	}
	return out, nil
}

// --- In-Memory Webhook Event Repo ---

type inMemoryWebhookEventRepo struct {
	mu     sync.Mutex
	events map[string]*domain.WebhookEventRecord
}

func newInMemoryWebhookEventRepo() *inMemoryWebhookEventRepo {
	return &inMemoryWebhookEventRepo{events: make(map[string]*domain.WebhookEventRecord)}
}

func (r *inMemoryWebhookEventRepo) CreateIfAbsent(ctx context.Context, rec *domain.WebhookEventRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.events[rec.EventID]; exists {
		return false, nil
	}
	cp := *rec
	r.events[rec.EventID] = &cp
	return true, nil
}

func (r *inMemoryWebhookEventRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// --- In-Memory Webhook Failure Repo ---

type inMemoryWebhookFailureRepo struct {
	mu       sync.Mutex
	failures map[string]*domain.WebhookFailureRecord
	order    []string
}

func newInMemoryWebhookFailureRepo() *inMemoryWebhookFailureRepo {
	return &inMemoryWebhookFailureRepo{failures: make(map[string]*domain.WebhookFailureRecord)}
}

func (r *inMemoryWebhookFailureRepo) Create(ctx context.Context, rec *domain.WebhookFailureRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.failures[rec.ID] = &cp
	r.order = append(r.order, rec.ID)
	return nil
}

func (r *inMemoryWebhookFailureRepo) GetByID(ctx context.Context, id string) (*domain.WebhookFailureRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.failures[id]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *inMemoryWebhookFailureRepo) List(ctx context.Context, page, pageSize int) ([]domain.WebhookFailureRecord, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Newest first, matching the MongoDB adapter's sort.
	var result []domain.WebhookFailureRecord
	for i := len(r.order) - 1; i >= 0; i-- {
		result = append(result, *r.failures[r.order[i]])
	}
	total := int64(len(result))

	start := (page - 1) * pageSize
	if start >= len(result) {
		return []domain.WebhookFailureRecord{}, total, nil
	}
	end := start + pageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

func (r *inMemoryWebhookFailureRepo) MarkReplayed(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.failures[id]
	if !ok {
		return fmt.Errorf("webhook failure not found")
	}
	stamped := at
	rec.ReplayedAt = &stamped
	return nil
}

// --- In-Memory Audit Repo ---

type inMemoryAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

func newInMemoryAuditRepo() *inMemoryAuditRepo {
	return &inMemoryAuditRepo{}
}

func (r *inMemoryAuditRepo) Create(ctx context.Context, entry *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *inMemoryAuditRepo) snapshot() []domain.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuditLog(nil), r.entries...)
}

// --- Saga-Only Transactor ---

// sagaOnlyRunner reports no multi-document transaction support, forcing the
// marker saga path the way a standalone MongoDB deployment does.
type sagaOnlyRunner struct{}

func (sagaOnlyRunner) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fmt.Errorf("multi-document transactions not supported by deployment")
}

func (sagaOnlyRunner) Supported() bool { return false }

// --- Fake Processor Client ---

// fakeProcessor stands in for the PayPal client. Counters and recorded
// idempotency keys let tests assert how the external side was driven;
// refundDelay widens the window a reservation stays held so concurrent
// approvals genuinely overlap.
type fakeProcessor struct {
	mu          sync.Mutex
	orders      int
	captures    int
	refunds     int
	refundKeys  []string
	refundErr   error
	verifyErr   error
	refundDelay time.Duration
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{}
}

func (p *fakeProcessor) CreateOrder(ctx context.Context, req ports.ProcessorOrderRequest) (*ports.ProcessorOrder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders++
	ref := fmt.Sprintf("PP-ORDER-%03d", p.orders)
	return &ports.ProcessorOrder{
		OrderRef:    ref,
		Status:      "CREATED",
		ApprovalURL: "https://www.sandbox.paypal.com/checkoutnow?token=" + ref,
	}, nil
}

func (p *fakeProcessor) CaptureOrder(ctx context.Context, orderRef string) (*ports.ProcessorCapture, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.captures++
	return &ports.ProcessorCapture{
		CaptureRef: fmt.Sprintf("PP-CAP-%03d", p.captures),
		Status:     "COMPLETED",
	}, nil
}

func (p *fakeProcessor) ExecuteRefund(ctx context.Context, captureRef string, amount float64, currency, idempotencyKey string) (*ports.ProcessorRefund, error) {
	p.mu.Lock()
	err := p.refundErr
	delay := p.refundDelay
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refunds++
	p.refundKeys = append(p.refundKeys, idempotencyKey)
	return &ports.ProcessorRefund{
		RefundID: fmt.Sprintf("PP-REF-%03d", p.refunds),
		Status:   "COMPLETED",
	}, nil
}

func (p *fakeProcessor) VerifyWebhookSignature(ctx context.Context, headers map[string]string, rawBody []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.verifyErr
}

func (p *fakeProcessor) setVerifyErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.verifyErr = err
}

func (p *fakeProcessor) setRefundErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refundErr = err
}

func (p *fakeProcessor) setRefundDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refundDelay = d
}

func (p *fakeProcessor) recordedRefundKeys() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.refundKeys...)
}

func (p *fakeProcessor) counts() (orders, captures, refunds int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.orders, p.captures, p.refunds
}
