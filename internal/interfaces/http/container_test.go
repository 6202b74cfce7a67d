package http

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/payrecon/internal/infrastructure/config"
	"github.com/orris-inc/payrecon/internal/infrastructure/repository/repotest"
	"github.com/orris-inc/payrecon/internal/shared/authorization"
	sharedConfig "github.com/orris-inc/payrecon/internal/shared/config"
	"github.com/orris-inc/payrecon/internal/shared/constants"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

const testWebhookSecret = "whsec_container_test"

func newTestContainer(t *testing.T) *Container {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &config.Config{
		Server: sharedConfig.ServerConfig{Mode: "test", BaseURL: "http://localhost"},
		Auth: sharedConfig.AuthConfig{JWT: sharedConfig.JWTConfig{
			Secret:           "container-test-secret-key",
			Issuer:           "payrecon",
			AccessExpMinutes: 15,
		}},
		Payment: sharedConfig.PaymentConfig{
			DefaultCurrency: "INR",
			Razorpay: sharedConfig.RazorpayConfig{
				Enabled:       true,
				KeyID:         "rzp_test_key",
				KeySecret:     "rzp_test_secret",
				WebhookSecret: testWebhookSecret,
			},
		},
		Webhook: sharedConfig.WebhookConfig{DedupeTTL: time.Hour},
		Queue: sharedConfig.QueueConfig{
			MaxAttempts:       3,
			BackoffBase:       time.Millisecond,
			VisibilityTimeout: time.Minute,
			PollInterval:      10 * time.Millisecond,
			Concurrency:       1,
			JobTTL:            time.Hour,
		},
		Reconciliation: sharedConfig.ReconciliationConfig{
			LockTTL:           time.Minute,
			StaleAfter:        30 * time.Minute,
			RecentWindowHours: 24,
			BatchSize:         50,
		},
		Metrics: sharedConfig.MetricsConfig{Enabled: true, Path: "/metrics"},
	}

	c, err := NewContainer(repotest.OpenSQLite(t), client, cfg, logger.NewNopLogger())
	require.NoError(t, err)
	c.SetupRoutes()
	return c
}

func signRazorpay(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Container) serve(req *nethttp.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c.Engine().ServeHTTP(w, req)
	return w
}

func (c *Container) bearer(t *testing.T, userID uint, role authorization.UserRole) string {
	t.Helper()
	token, err := c.jwtService.Generate(userID, role)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestContainer_HealthAndMetrics(t *testing.T) {
	c := newTestContainer(t)

	w := c.serve(httptest.NewRequest(nethttp.MethodGet, "/health", nil))
	assert.Equal(t, nethttp.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(constants.HeaderXRequestID))

	w = c.serve(httptest.NewRequest(nethttp.MethodGet, "/metrics", nil))
	assert.Equal(t, nethttp.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestContainer_WebhookRoute(t *testing.T) {
	c := newTestContainer(t)
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_rzp_1","order_id":"order_rzp_1","amount":5000,"currency":"inr","status":"captured"}}}}`)

	tests := []struct {
		name      string
		gateway   string
		signature string
		want      int
	}{
		{name: "unconfigured gateway", gateway: "stripe", signature: "sig", want: nethttp.StatusNotFound},
		{name: "bad signature", gateway: "razorpay", signature: "deadbeef", want: nethttp.StatusBadRequest},
		{name: "accepted", gateway: "razorpay", signature: signRazorpay(body), want: nethttp.StatusOK},
		{name: "duplicate acknowledged", gateway: "razorpay", signature: signRazorpay(body), want: nethttp.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(nethttp.MethodPost, "/webhooks/"+tt.gateway, bytes.NewReader(body))
			req.Header.Set(constants.HeaderRazorpaySignature, tt.signature)
			req.Header.Set(constants.HeaderStripeSignature, tt.signature)
			w := c.serve(req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestContainer_AuthBoundaries(t *testing.T) {
	c := newTestContainer(t)

	w := c.serve(httptest.NewRequest(nethttp.MethodGet, "/payments/pay_missing", nil))
	assert.Equal(t, nethttp.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(nethttp.MethodGet, "/admin/manual-reviews", nil)
	req.Header.Set(constants.HeaderAuthorization, c.bearer(t, 7, authorization.RoleCustomer))
	w = c.serve(req)
	assert.Equal(t, nethttp.StatusForbidden, w.Code)

	req = httptest.NewRequest(nethttp.MethodGet, "/admin/manual-reviews", nil)
	req.Header.Set(constants.HeaderAuthorization, c.bearer(t, 1, authorization.RoleFinance))
	w = c.serve(req)
	assert.Equal(t, nethttp.StatusOK, w.Code)
}

func TestContainer_WorkerQueuesRegistered(t *testing.T) {
	c := newTestContainer(t)
	assert.ElementsMatch(t, []string{"payment-webhooks", "payment-retries"}, c.worker.Queues())
}
