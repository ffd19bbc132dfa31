package handler

import (
	"strconv"

	"church-payments/internal/adapter/http/dto"
	"church-payments/internal/core/domain"
	"church-payments/internal/core/ports"
	"church-payments/pkg/apperror"
	"church-payments/pkg/response"

	"github.com/gin-gonic/gin"
)

// RefundHandler handles refund request endpoints, member and admin facing.
type RefundHandler struct {
	refundSvc ports.RefundService
}

// NewRefundHandler creates a new RefundHandler.
func NewRefundHandler(refundSvc ports.RefundService) *RefundHandler {
	return &RefundHandler{refundSvc: refundSvc}
}

// Create handles POST /api/v1/refund-requests.
func (h *RefundHandler) Create(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateRefundRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.refundSvc.CreateRequest(c.Request.Context(), ports.CreateRefundRequest{
		TxnKind:     domain.TransactionKind(req.TxnKind),
		TxnID:       req.TxnID,
		LineID:      req.LineID,
		Amount:      req.Amount,
		Message:     req.Message,
		RequestedBy: claims.UserID,
		IsAdmin:     claims.IsAdmin(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromRefundRequest(result))
}

// ListMine handles GET /api/v1/refund-requests.
func (h *RefundHandler) ListMine(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	params := ports.RefundRequestSearchParams{
		RequestedBy: claims.UserID,
	}
	params.Page, params.PageSize = pagingParams(c)

	if s := c.Query("status"); s != "" {
		status := domain.RefundRequestStatus(s)
		params.Status = &status
	}

	reqs, total, err := h.refundSvc.ListRequests(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toRefundRequestList(reqs, total, params.Page, params.PageSize))
}

// Get handles GET /api/v1/refund-requests/:id.
func (h *RefundHandler) Get(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	result, err := h.refundSvc.GetRequest(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromRefundRequest(result))
}

// AdminSearch handles GET /api/v1/admin/refund-requests.
func (h *RefundHandler) AdminSearch(c *gin.Context) {
	params := ports.RefundRequestSearchParams{
		RequestedBy: c.Query("requested_by"),
		TxnID:       c.Query("txn_id"),
	}
	params.Page, params.PageSize = pagingParams(c)

	if k := c.Query("txn_kind"); k != "" {
		params.TxnKind = domain.TransactionKind(k)
	}
	if s := c.Query("status"); s != "" {
		status := domain.RefundRequestStatus(s)
		params.Status = &status
	}

	reqs, total, err := h.refundSvc.ListRequests(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toRefundRequestList(reqs, total, params.Page, params.PageSize))
}

// Decide handles POST /api/v1/admin/refund-requests/:id/decide.
func (h *RefundHandler) Decide(c *gin.Context) {
	claims, ok := currentClaims(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.DecideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	result, err := h.refundSvc.Decide(c.Request.Context(), ports.DecideRefundRequest{
		RequestID: c.Param("id"),
		Approve:   *req.Approve,
		Note:      req.Note,
		DecidedBy: claims.UserID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromRefundRequest(result))
}

func toRefundRequestList(reqs []domain.RefundRequest, total int64, page, pageSize int) dto.RefundRequestListResponse {
	items := make([]dto.RefundRequestResponse, 0, len(reqs))
	for i := range reqs {
		items = append(items, dto.FromRefundRequest(&reqs[i]))
	}
	return dto.RefundRequestListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: dto.TotalPages(total, pageSize),
	}
}

// pagingParams parses page/page_size query params, clamped to the same
// bounds the services enforce so the echoed paging matches the query run.
func pagingParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
