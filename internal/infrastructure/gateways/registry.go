package gateways

import (
	"net/http"
	"time"

	"github.com/orris-inc/payrecon/internal/application/payment/paymentgateway"
	sharedConfig "github.com/orris-inc/payrecon/internal/shared/config"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

// NewRegistry builds a registry holding every enabled gateway.
func NewRegistry(cfg sharedConfig.PaymentConfig, log logger.Interface) *paymentgateway.Registry {
	registry := paymentgateway.NewRegistry()

	if cfg.Stripe.Enabled {
		registry.Register(NewStripeGateway(cfg.Stripe, &http.Client{Timeout: 30 * time.Second}, log))
	}
	if cfg.Razorpay.Enabled {
		registry.Register(NewRazorpayGateway(cfg.Razorpay, nil, log))
	}

	log.Infow("payment gateways configured", "gateways", registry.Names())
	return registry
}
