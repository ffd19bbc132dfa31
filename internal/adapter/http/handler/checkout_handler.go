package handler

import (
	"church-payments/internal/adapter/http/dto"
	"church-payments/internal/core/domain"
	"church-payments/internal/core/ports"
	"church-payments/pkg/apperror"
	"church-payments/pkg/response"

	"github.com/gin-gonic/gin"
)

// CheckoutHandler handles checkout endpoints.
type CheckoutHandler struct {
	checkoutSvc ports.CheckoutService
}

// NewCheckoutHandler creates a new CheckoutHandler.
func NewCheckoutHandler(checkoutSvc ports.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutSvc: checkoutSvc}
}

// CreateOrder handles POST /api/v1/checkout/orders.
func (h *CheckoutHandler) CreateOrder(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	lines := make([]ports.LineItemInput, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		lines = append(lines, ports.LineItemInput{
			LineID: li.LineID,
			Label:  li.Label,
			Amount: li.Amount,
		})
	}

	rec, err := h.checkoutSvc.CreateOrder(c.Request.Context(), ports.CreateOrderRequest{
		Kind:      domain.TransactionKind(req.Kind),
		OwnerID:   claims.UserID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Reference: req.Reference,
		LineItems: lines,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromTransaction(rec))
}

// CaptureOrder handles POST /api/v1/checkout/orders/:kind/:id/capture.
func (h *CheckoutHandler) CaptureOrder(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	kind := domain.TransactionKind(c.Param("kind"))
	rec, err := h.checkoutSvc.CaptureOrder(c.Request.Context(), kind, c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromTransaction(rec))
}
