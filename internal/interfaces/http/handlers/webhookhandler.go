package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/shared/constants"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

// signatureHeaders maps each gateway to the header carrying its signature.
var signatureHeaders = map[vo.Gateway]string{
	vo.GatewayStripe:   constants.HeaderStripeSignature,
	vo.GatewayRazorpay: constants.HeaderRazorpaySignature,
}

type WebhookHandler struct {
	receiveUC receiveWebhookUseCase
	logger    logger.Interface
}

func NewWebhookHandler(receiveUC receiveWebhookUseCase, logger logger.Interface) *WebhookHandler {
	return &WebhookHandler{
		receiveUC: receiveUC,
		logger:    logger,
	}
}

// Receive handles POST /webhooks/:gateway. The raw body is passed through
// untouched because signatures are computed over the exact bytes. Gateways
// only look at the status code, so the body stays minimal.
func (h *WebhookHandler) Receive(c *gin.Context) {
	gateway := vo.Gateway(c.Param("gateway"))
	header, known := signatureHeaders[gateway]
	if !known {
		c.JSON(http.StatusNotFound, gin.H{"received": false})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, constants.MaxWebhookBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warnw("webhook body too large", "gateway", gateway, "limit", tooLarge.Limit)
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"received": false})
			return
		}
		h.logger.Warnw("failed to read webhook body", "gateway", gateway, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"received": false})
		return
	}

	result := h.receiveUC.Execute(c.Request.Context(), usecases.ReceiveWebhookCommand{
		Gateway:   gateway,
		RawBody:   body,
		Signature: c.GetHeader(header),
	})

	c.JSON(result.StatusCode, gin.H{
		"received":  result.StatusCode == http.StatusOK,
		"duplicate": result.Duplicate,
	})
}
