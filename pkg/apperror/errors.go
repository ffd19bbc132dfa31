package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL) ----

// Validation returns a VAL_001 error with a caller-facing message.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

func ErrNotOwner() *AppError {
	return New("VAL_002", "Transaction is not owned by the requester", http.StatusForbidden)
}

func ErrAmountExceedsBalance() *AppError {
	return New("VAL_003", "Requested amount exceeds remaining refundable balance", http.StatusBadRequest)
}

func ErrNotRefundable() *AppError {
	return New("VAL_004", "Transaction is not in a refundable status", http.StatusBadRequest)
}

// ---- Conflicts (CONF) ----

// ErrBalanceConflict reports a lost race on the remaining-balance guard.
// The caller must refresh the transaction view and retry deliberately;
// the request is never retried automatically.
func ErrBalanceConflict() *AppError {
	return New("CONF_001", "Insufficient remaining balance, refresh and retry", http.StatusConflict)
}

func ErrStatusConflict(message string) *AppError {
	return New("CONF_002", message, http.StatusConflict)
}

// ---- Webhook verification (VER) ----

// ErrSignatureInvalid is the explicit "signature invalid" verdict from the
// processor. A security event, distinct from the verifier being unreachable.
func ErrSignatureInvalid() *AppError {
	return New("VER_001", "Webhook signature verification failed", http.StatusBadRequest)
}

func ErrVerifierUnavailable(err error) *AppError {
	return Wrap("VER_002", "Webhook verification service unavailable", http.StatusBadRequest, err)
}

// ErrUnverifiable covers payloads that cannot even be submitted for
// verification (missing event id, missing signature headers). Fails closed.
func ErrUnverifiable(message string) *AppError {
	return New("VER_003", message, http.StatusBadRequest)
}

// ---- External execution (EXT) ----

func ErrRefundExecutionFailed(err error) *AppError {
	return Wrap("EXT_001", "Processor refund execution failed", http.StatusBadGateway, err)
}

func ErrProcessorCallFailed(operation string, err error) *AppError {
	return Wrap("EXT_002", fmt.Sprintf("Processor %s call failed", operation), http.StatusBadGateway, err)
}

// ---- Consistency (CON) ----

// ErrConsistency marks ledger state that should not exist (orphan reservation
// marker, refund entry mismatch). Logged for operators, never auto-corrected.
func ErrConsistency(message string) *AppError {
	return New("CON_001", message, http.StatusInternalServerError)
}

func ErrUnknownTransaction(reference string) *AppError {
	return New("CON_002", fmt.Sprintf("No transaction matches processor reference %s", reference), http.StatusInternalServerError)
}

// ---- Authentication & Authorization (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrAdminRequired() *AppError {
	return New("AUTH_002", "Administrator role required", http.StatusForbidden)
}

// ---- Resources (RES) ----

func ErrNotFound(entity string) *AppError {
	return New("RES_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrDuplicateKey(err error) *AppError {
	return Wrap("SYS_002", "Duplicate key violation", http.StatusConflict, err)
}
