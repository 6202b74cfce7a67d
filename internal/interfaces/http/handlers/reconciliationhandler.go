package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
	"github.com/orris-inc/payrecon/internal/shared/logger"
	"github.com/orris-inc/payrecon/internal/shared/utils"
)

type ReconciliationHandler struct {
	reconcileUC reconcilePaymentsUseCase
	logger      logger.Interface
}

func NewReconciliationHandler(reconcileUC reconcilePaymentsUseCase, logger logger.Interface) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconcileUC: reconcileUC,
		logger:      logger,
	}
}

type RunSweepRequest struct {
	Mode string `json:"mode" binding:"required,oneof=stale recent full"`
}

// RunSweep handles POST /admin/reconciliation/sweeps. A sweep already
// running elsewhere yields 409.
func (h *ReconciliationHandler) RunSweep(c *gin.Context) {
	var req RunSweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	report, err := h.reconcileUC.Execute(c.Request.Context(), usecases.SweepMode(req.Mode))
	if err != nil {
		h.logger.Errorw("manual reconciliation sweep failed", "mode", req.Mode, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}
	if report.Skipped {
		utils.ErrorResponse(c, http.StatusConflict, "a reconciliation sweep is already running")
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "reconciliation sweep completed", report)
}
