package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/payrecon/internal/application/payment/paymentgateway"
	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
)

func successEvent(eventID, gatewayOrderID string, amount int64) paymentgateway.WebhookEvent {
	return paymentgateway.WebhookEvent{
		EventID:          eventID,
		Type:             "payment_intent.succeeded",
		Category:         paymentgateway.EventCategorySuccess,
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: "ch_1",
		TransactionID:    "txn_1",
		Amount:           amount,
		Currency:         "INR",
	}
}

func TestReceiveWebhook_AcceptsAndEnqueues(t *testing.T) {
	h := newHarness()
	body := webhookBody(t, successEvent("evt_1", "pi_1", 1000))

	res := h.receiver().Execute(context.Background(), usecases.ReceiveWebhookCommand{
		Gateway: vo.GatewayStripe, RawBody: body, Signature: "valid",
	})

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.False(t, res.Duplicate)
	assert.True(t, h.dedupe.Has("payment-webhook:stripe:evt_1"))
	require.Len(t, h.queue.Jobs, 1)
	job := h.queue.Jobs[0]
	assert.Equal(t, usecases.QueueWebhooks, job.Queue)
	assert.Equal(t, "stripe:evt_1", job.ID)

	var queued paymentgateway.WebhookEvent
	require.NoError(t, json.Unmarshal(job.Payload, &queued))
	assert.Equal(t, "pi_1", queued.GatewayOrderID)
	assert.Equal(t, vo.GatewayStripe, queued.Gateway)
}

func TestReceiveWebhook_InvalidSignature(t *testing.T) {
	h := newHarness()
	body := webhookBody(t, successEvent("evt_1", "pi_1", 1000))

	res := h.receiver().Execute(context.Background(), usecases.ReceiveWebhookCommand{
		Gateway: vo.GatewayStripe, RawBody: body, Signature: "forged",
	})

	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.False(t, h.dedupe.Has("payment-webhook:stripe:evt_1"))
	assert.Empty(t, h.queue.Jobs)
}

func TestReceiveWebhook_DuplicateDeliveryAcknowledged(t *testing.T) {
	h := newHarness()
	uc := h.receiver()
	cmd := usecases.ReceiveWebhookCommand{
		Gateway: vo.GatewayStripe, RawBody: webhookBody(t, successEvent("evt_1", "pi_1", 1000)), Signature: "valid",
	}

	first := uc.Execute(context.Background(), cmd)
	second := uc.Execute(context.Background(), cmd)

	assert.Equal(t, http.StatusOK, first.StatusCode)
	assert.Equal(t, http.StatusOK, second.StatusCode)
	assert.True(t, second.Duplicate)
	assert.Len(t, h.queue.Jobs, 1)
}

func TestReceiveWebhook_FailsOpenWhenDedupeStoreDown(t *testing.T) {
	h := newHarness()
	h.dedupe.Err = errors.New("redis: connection refused")
	uc := h.receiver()
	cmd := usecases.ReceiveWebhookCommand{
		Gateway: vo.GatewayStripe, RawBody: webhookBody(t, successEvent("evt_1", "pi_1", 1000)), Signature: "valid",
	}

	res := uc.Execute(context.Background(), cmd)
	again := uc.Execute(context.Background(), cmd)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, http.StatusOK, again.StatusCode)
	// the deterministic job id collapses the second enqueue
	assert.Len(t, h.queue.Jobs, 1)
}

func TestReceiveWebhook_EnqueueFailureReleasesReservation(t *testing.T) {
	h := newHarness()
	h.queue.Err = errors.New("queue unavailable")

	res := h.receiver().Execute(context.Background(), usecases.ReceiveWebhookCommand{
		Gateway: vo.GatewayStripe, RawBody: webhookBody(t, successEvent("evt_1", "pi_1", 1000)), Signature: "valid",
	})

	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.False(t, h.dedupe.Has("payment-webhook:stripe:evt_1"))
	assert.Equal(t, []string{"payment-webhook:stripe:evt_1"}, h.dedupe.Released)

	h.queue.Err = nil
	retry := h.receiver().Execute(context.Background(), usecases.ReceiveWebhookCommand{
		Gateway: vo.GatewayStripe, RawBody: webhookBody(t, successEvent("evt_1", "pi_1", 1000)), Signature: "valid",
	})
	assert.Equal(t, http.StatusOK, retry.StatusCode)
	assert.False(t, retry.Duplicate)
	assert.Len(t, h.queue.Jobs, 1)
}

func TestReceiveWebhook_UnknownGateway(t *testing.T) {
	h := newHarness()

	res := h.receiver().Execute(context.Background(), usecases.ReceiveWebhookCommand{
		Gateway: "paypal", RawBody: []byte(`{}`), Signature: "valid",
	})

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
}
