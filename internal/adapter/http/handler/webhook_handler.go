package handler

import (
	"io"

	"church-payments/internal/adapter/http/dto"
	"church-payments/internal/core/ports"
	"church-payments/pkg/apperror"
	"church-payments/pkg/response"

	"github.com/gin-gonic/gin"
)

// WebhookHandler handles inbound processor deliveries and the admin failure
// surface.
type WebhookHandler struct {
	intakeSvc ports.WebhookIntakeService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(intakeSvc ports.WebhookIntakeService) *WebhookHandler {
	return &WebhookHandler{intakeSvc: intakeSvc}
}

// Receive handles POST /api/v1/webhooks/paypal.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}

	headers := make(map[string]string, len(ports.SignatureHeaders))
	for _, name := range ports.SignatureHeaders {
		if v := c.GetHeader(name); v != "" {
			headers[name] = v
		}
	}

	result, err := h.intakeSvc.Ingest(c.Request.Context(), headers, body)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WebhookIngestResponse{
		EventID:   result.EventID,
		EventType: result.EventType,
		Duplicate: result.Duplicate,
	})
}

// ListFailures handles GET /api/v1/admin/webhooks/failures.
func (h *WebhookHandler) ListFailures(c *gin.Context) {
	page, pageSize := pagingParams(c)

	failures, total, err := h.intakeSvc.ListFailures(c.Request.Context(), page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.WebhookFailureResponse, 0, len(failures))
	for i := range failures {
		items = append(items, dto.FromWebhookFailure(&failures[i]))
	}

	response.OK(c, dto.WebhookFailureListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: dto.TotalPages(total, pageSize),
	})
}

// Replay handles POST /api/v1/admin/webhooks/failures/:id/replay.
func (h *WebhookHandler) Replay(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	result, err := h.intakeSvc.ReplayFailure(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.WebhookIngestResponse{
		EventID:   result.EventID,
		EventType: result.EventType,
		Duplicate: result.Duplicate,
	})
}
