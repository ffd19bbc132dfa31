package middleware

import (
	"encoding/json"
	"time"

	"church-payments/internal/core/domain"
	"church-payments/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that records successful write
// operations. Routes are matched by their registered pattern so
// parameterized paths map cleanly.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Only audit successful write operations (status 2xx)
		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method == "GET" || c.Request.Method == "HEAD" || c.Request.Method == "OPTIONS" {
			return
		}

		action, resourceType := mapRouteToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		var actorID string
		if uid, exists := c.Get(CtxUserID); exists {
			if s, ok := uid.(string); ok {
				actorID = s
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New().String(),
			ActorID:      actorID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.Param("id"),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now(),
		})
	}
}

func mapRouteToAction(route, method string) (domain.AuditAction, string) {
	if method != "POST" {
		return "", ""
	}
	switch route {
	case "/api/v1/checkout/orders":
		return domain.AuditActionCheckout, "transaction"
	case "/api/v1/checkout/orders/:kind/:id/capture":
		return domain.AuditActionCapture, "transaction"
	case "/api/v1/refund-requests":
		return domain.AuditActionRefundRequest, "refund_request"
	case "/api/v1/admin/refund-requests/:id/decide":
		return domain.AuditActionRefundDecide, "refund_request"
	case "/api/v1/admin/webhooks/failures/:id/replay":
		return domain.AuditActionWebhookReplay, "webhook_failure"
	}
	return "", ""
}
