package dto

import (
	"testing"

	"church-payments/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

// --- SanitizeStruct tests ---

func TestSanitizeStruct_TrimsWhitespace(t *testing.T) {
	req := CreateOrderRequest{
		Kind:      "event",
		Currency:  " USD ",
		Reference: "  Fall retreat  ",
	}
	SanitizeStruct(&req)

	assert.Equal(t, "USD", req.Currency)
	assert.Equal(t, "Fall retreat", req.Reference)
}

func TestSanitizeStruct_EscapesHTML(t *testing.T) {
	req := CreateRefundRequestBody{
		TxnKind: "event",
		TxnID:   "txn-001",
		Message: "charged twice <script>alert('x')</script>",
	}
	SanitizeStruct(&req)

	assert.Contains(t, req.Message, "&lt;script&gt;")
	assert.NotContains(t, req.Message, "<script>")
}

func TestSanitizeStruct_NonPointerIsNoOp(t *testing.T) {
	s := "hello"
	SanitizeStruct(s) // should not panic
}

// --- Custom Validator tests ---

func TestSafeID_Valid(t *testing.T) {
	cases := []string{
		"txn-001",
		"REQ_002",
		"a.b.c",
		"simple123",
		"ABC-def_GHI.123",
	}
	for _, tc := range cases {
		assert.True(t, safeStringRe.MatchString(tc), "expected valid: %s", tc)
	}
}

func TestSafeID_Invalid(t *testing.T) {
	cases := []string{
		"txn 001",     // space
		"txn<001>",    // angle brackets
		"txn;DROP",    // semicolon
		"",            // empty
		"hello world", // space
		"txn\n001",    // newline
	}
	for _, tc := range cases {
		assert.False(t, safeStringRe.MatchString(tc), "expected invalid: %s", tc)
	}
}

func TestTxnKind_KnownKinds(t *testing.T) {
	for _, k := range domain.AllKinds() {
		assert.True(t, k.Valid(), "expected valid kind: %s", k)
	}
	assert.False(t, domain.TransactionKind("invoice").Valid())
	assert.False(t, domain.TransactionKind("").Valid())
}
