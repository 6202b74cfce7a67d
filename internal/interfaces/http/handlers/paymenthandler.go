package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/interfaces/dto"
	"github.com/orris-inc/payrecon/internal/shared/id"
	"github.com/orris-inc/payrecon/internal/shared/logger"
	"github.com/orris-inc/payrecon/internal/shared/utils"
)

type PaymentHandler struct {
	initiateUC initiatePaymentUseCase
	getUC      getPaymentUseCase
	retryUC    requestPaymentRetryUseCase
	refundUC   requestRefundUseCase
	logger     logger.Interface
}

func NewPaymentHandler(
	initiateUC initiatePaymentUseCase,
	getUC getPaymentUseCase,
	retryUC requestPaymentRetryUseCase,
	refundUC requestRefundUseCase,
	logger logger.Interface,
) *PaymentHandler {
	return &PaymentHandler{
		initiateUC: initiateUC,
		getUC:      getUC,
		retryUC:    retryUC,
		refundUC:   refundUC,
		logger:     logger,
	}
}

type InitiatePaymentRequest struct {
	OrderID uint   `json:"order_id" binding:"required"`
	Gateway string `json:"gateway" binding:"required,oneof=stripe razorpay"`
}

type RequestRetryRequest struct {
	OrderID uint   `json:"order_id" binding:"required"`
	Gateway string `json:"gateway" binding:"required,oneof=stripe razorpay"`
}

type RequestRefundRequest struct {
	// Amount in minor units. Omit to refund the whole remaining balance.
	Amount *int64 `json:"amount" binding:"omitempty,gt=0"`
	Reason string `json:"reason" binding:"max=500"`
}

// InitiatePayment handles POST /payments. A reused open intent answers 200,
// a fresh one 201.
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	userID, role, ok := requireActor(c)
	if !ok {
		return
	}

	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	result, err := h.initiateUC.Execute(c.Request.Context(), usecases.InitiatePaymentCommand{
		OrderID:     req.OrderID,
		Gateway:     vo.Gateway(req.Gateway),
		RequesterID: userID,
		Role:        role,
	})
	if err != nil {
		h.logger.Warnw("failed to initiate payment", "error", err, "order_id", req.OrderID, "user_id", userID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	resp := dto.ToPaymentResponse(result.Payment)
	resp.ClientToken = result.ClientToken

	status := http.StatusCreated
	message := "payment initiated"
	if result.Reused {
		status = http.StatusOK
		message = "existing payment reused"
	}
	utils.SuccessResponse(c, status, message, resp)
}

// GetPayment handles GET /payments/:id.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	userID, role, ok := requireActor(c)
	if !ok {
		return
	}

	paymentSID, err := utils.ParseSIDParam(c, "id", id.PrefixPayment, "payment")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	p, err := h.getUC.Execute(c.Request.Context(), usecases.GetPaymentQuery{
		PaymentSID:  paymentSID,
		RequesterID: userID,
		Role:        role,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", dto.ToPaymentResponse(p))
}

// RequestRetry handles POST /payments/retry. The retry itself runs on the
// worker, so the answer is 202.
func (h *PaymentHandler) RequestRetry(c *gin.Context) {
	userID, role, ok := requireActor(c)
	if !ok {
		return
	}

	var req RequestRetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	result, err := h.retryUC.Execute(c.Request.Context(), usecases.RequestPaymentRetryCommand{
		OrderID:     req.OrderID,
		Gateway:     vo.Gateway(req.Gateway),
		RequesterID: userID,
		Role:        role,
	})
	if err != nil {
		h.logger.Warnw("failed to request payment retry", "error", err, "order_id", req.OrderID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusAccepted, "retry scheduled", gin.H{
		"job_id":   result.JobID,
		"enqueued": result.Enqueued,
	})
}

// RequestRefund handles POST /payments/:id/refunds.
func (h *PaymentHandler) RequestRefund(c *gin.Context) {
	userID, role, ok := requireActor(c)
	if !ok {
		return
	}

	paymentSID, err := utils.ParseSIDParam(c, "id", id.PrefixPayment, "payment")
	if err != nil {
		utils.ErrorResponseWithError(c, err)
		return
	}

	var req RequestRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	result, err := h.refundUC.Execute(c.Request.Context(), usecases.RequestRefundCommand{
		PaymentSID: paymentSID,
		Amount:     req.Amount,
		Reason:     req.Reason,
		ActorID:    userID,
		Role:       role,
	})
	if err != nil {
		h.logger.Warnw("refund request failed", "error", err, "payment_id", paymentSID, "actor_id", userID)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "refund processed", result)
}
