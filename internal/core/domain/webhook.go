package domain

import (
	"time"
)

// WebhookEventRecord marks one distinct provider event id as seen. Write-once;
// the record's existence is the deduplication signal, so it is created by an
// insert-if-absent before signature verification ever runs.
type WebhookEventRecord struct {
	EventID    string    `bson:"_id" json:"event_id"`
	EventType  string    `bson:"event_type,omitempty" json:"event_type,omitempty"`
	ReceivedAt time.Time `bson:"received_at" json:"received_at"`
}

// WebhookFailureKind classifies why an inbound event could not be processed.
type WebhookFailureKind string

const (
	FailureUnverifiable     WebhookFailureKind = "UNVERIFIABLE"      // missing event id or signature headers
	FailureSignatureInvalid WebhookFailureKind = "SIGNATURE_INVALID" // explicit FAILURE verdict; security event
	FailureVerifierError    WebhookFailureKind = "VERIFIER_ERROR"    // verification boundary unreachable
	FailureHandler          WebhookFailureKind = "HANDLER"           // dispatch/mutation error
)

// WebhookFailureRecord captures a verification or handling failure for
// operator inspection, keeping the original payload so the event can be
// replayed. Diagnostic only: business logic never reads these records.
type WebhookFailureRecord struct {
	ID         string             `bson:"_id" json:"id"`
	EventID    string             `bson:"event_id,omitempty" json:"event_id,omitempty"`
	Kind       WebhookFailureKind `bson:"kind" json:"kind"`
	Error      string             `bson:"error" json:"error"`
	Payload    string             `bson:"payload" json:"payload"`
	Headers    map[string]string  `bson:"headers,omitempty" json:"headers,omitempty"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	ReplayedAt *time.Time         `bson:"replayed_at,omitempty" json:"replayed_at,omitempty"`
}
