package handler

import (
	"church-payments/internal/adapter/http/dto"
	"church-payments/internal/core/domain"
	"church-payments/internal/core/ports"
	"church-payments/pkg/apperror"
	"church-payments/pkg/response"

	"github.com/gin-gonic/gin"
)

// LedgerHandler handles transaction read endpoints.
type LedgerHandler struct {
	querySvc ports.LedgerQueryService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(querySvc ports.LedgerQueryService) *LedgerHandler {
	return &LedgerHandler{querySvc: querySvc}
}

// GetTransaction handles GET /api/v1/transactions/:kind/:id.
func (h *LedgerHandler) GetTransaction(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	kind := domain.TransactionKind(c.Param("kind"))
	rec, err := h.querySvc.GetTransaction(c.Request.Context(), kind, c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromTransaction(rec))
}

// ListTransactions handles GET /api/v1/transactions. The listing is scoped to
// the caller; admins may pass owner_id to inspect another member's records.
func (h *LedgerHandler) ListTransactions(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	ownerID := claims.UserID
	if o := c.Query("owner_id"); o != "" && claims.IsAdmin() {
		ownerID = o
	}

	params := ports.TransactionListParams{
		Kind:    domain.TransactionKind(c.Query("kind")),
		OwnerID: ownerID,
	}
	params.Page, params.PageSize = pagingParams(c)

	if s := c.Query("status"); s != "" {
		status := domain.TransactionStatus(s)
		params.Status = &status
	}

	recs, total, err := h.querySvc.ListTransactions(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.TransactionResponse, 0, len(recs))
	for i := range recs {
		items = append(items, dto.FromTransaction(&recs[i]))
	}

	response.OK(c, dto.TransactionListResponse{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: dto.TotalPages(total, params.PageSize),
	})
}
