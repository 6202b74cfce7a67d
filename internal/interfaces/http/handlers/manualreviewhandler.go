package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
	"github.com/orris-inc/payrecon/internal/interfaces/dto"
	"github.com/orris-inc/payrecon/internal/shared/id"
	"github.com/orris-inc/payrecon/internal/shared/logger"
	"github.com/orris-inc/payrecon/internal/shared/utils"
)

type ManualReviewHandler struct {
	listUC    listManualReviewsUseCase
	resolveUC resolveManualReviewUseCase
	logger    logger.Interface
}

func NewManualReviewHandler(listUC listManualReviewsUseCase, resolveUC resolveManualReviewUseCase, logger logger.Interface) *ManualReviewHandler {
	return &ManualReviewHandler{
		listUC:    listUC,
		resolveUC: resolveUC,
		logger:    logger,
	}
}

type ResolveManualReviewRequest struct {
	Resolution string `json:"resolution" binding:"required,oneof=mark_paid mark_failed no_action dismiss"`
	Note       string `json:"note" binding:"max=2000"`
}

// List handles GET /admin/manual-reviews?status=&type=&order_id=&page=&page_size=.
func (h *ManualReviewHandler) List(c *gin.Context) {
	_, role, ok := requireActor(c)
	if !ok {
		return
	}

	pagination := utils.ParsePagination(c)
	query := usecases.ListManualReviewsQuery{
		Status:   c.Query("status"),
		Type:     c.Query("type"),
		Page:     pagination.Page,
		PageSize: pagination.PageSize,
		Role:     role,
	}
	if raw := c.Query("order_id"); raw != "" {
		orderID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || orderID == 0 {
			utils.ErrorResponse(c, http.StatusBadRequest, "invalid order_id")
			return
		}
		v := uint(orderID)
		query.OrderID = &v
	}

	result, err := h.listUC.Execute(c.Request.Context(), query)
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.ListSuccessResponse(c, dto.ToManualReviewResponses(result.Reviews), result.Total, result.Page, result.PageSize)
}

// Resolve handles POST /admin/manual-reviews/:id/resolve.
func (h *ManualReviewHandler) Resolve(c *gin.Context) {
	userID, role, ok := requireActor(c)
	if !ok {
		return
	}

	reviewSID, err := utils.ParseSIDParam(c, "id", id.PrefixManualReview, "manual review")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req ResolveManualReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	r, err := h.resolveUC.Execute(c.Request.Context(), usecases.ResolveManualReviewCommand{
		ReviewSID:  reviewSID,
		Resolution: req.Resolution,
		Note:       req.Note,
		ActorID:    userID,
		Role:       role,
	})
	if err != nil {
		h.logger.Warnw("failed to resolve manual review", "error", err, "review_id", reviewSID, "actor_id", userID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "manual review resolved", dto.ToManualReviewResponse(r))
}
