package domain

import (
	"time"
)

// AuditAction represents the type of audited action.
type AuditAction string

const (
	AuditActionRefundRequest AuditAction = "REFUND_REQUEST"
	AuditActionRefundDecide  AuditAction = "REFUND_DECIDE"
	AuditActionWebhookReplay AuditAction = "WEBHOOK_REPLAY"
	AuditActionCheckout      AuditAction = "CHECKOUT"
	AuditActionCapture       AuditAction = "CAPTURE"
)

// AuditLog records a single audited action in the system.
type AuditLog struct {
	ID           string      `bson:"_id" json:"id"`
	ActorID      string      `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	Action       AuditAction `bson:"action" json:"action"`
	ResourceType string      `bson:"resource_type" json:"resource_type"`
	ResourceID   string      `bson:"resource_id,omitempty" json:"resource_id,omitempty"`
	Details      string      `bson:"details,omitempty" json:"details,omitempty"` // JSON string
	IPAddress    string      `bson:"ip_address" json:"ip_address"`
	CreatedAt    time.Time   `bson:"created_at" json:"created_at"`
}
