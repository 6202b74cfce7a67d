package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/orris-inc/payrecon/internal/application/payment/paymentgateway"
	vo "github.com/orris-inc/payrecon/internal/domain/payment/valueobjects"
	"github.com/orris-inc/payrecon/internal/shared/logger"
)

type ReceiveWebhookCommand struct {
	Gateway   vo.Gateway
	RawBody   []byte
	Signature string
}

// ReceiveWebhookResult carries the HTTP status to answer the gateway with.
type ReceiveWebhookResult struct {
	StatusCode int
	EventID    string
	Duplicate  bool
}

type ReceiveWebhookUseCase struct {
	gateways  GatewayResolver
	dedupe    DedupeStore
	queue     JobQueue
	dedupeTTL time.Duration
	metrics   Metrics
	logger    logger.Interface
}

func NewReceiveWebhookUseCase(
	gateways GatewayResolver,
	dedupe DedupeStore,
	queue JobQueue,
	dedupeTTL time.Duration,
	metrics Metrics,
	logger logger.Interface,
) *ReceiveWebhookUseCase {
	if dedupeTTL <= 0 {
		dedupeTTL = 24 * time.Hour
	}
	if metrics == nil {
		metrics = NopMetrics
	}
	return &ReceiveWebhookUseCase{
		gateways:  gateways,
		dedupe:    dedupe,
		queue:     queue,
		dedupeTTL: dedupeTTL,
		metrics:   metrics,
		logger:    logger,
	}
}

func (uc *ReceiveWebhookUseCase) Execute(ctx context.Context, cmd ReceiveWebhookCommand) *ReceiveWebhookResult {
	gw, err := uc.gateways.Get(cmd.Gateway)
	if err != nil {
		uc.logger.Warnw("webhook for unconfigured gateway", "gateway", cmd.Gateway)
		return &ReceiveWebhookResult{StatusCode: http.StatusNotFound}
	}

	event, err := gw.VerifyWebhook(cmd.RawBody, cmd.Signature)
	if err != nil {
		uc.metrics.WebhookReceived(cmd.Gateway.String(), "invalid_signature")
		if errors.Is(err, paymentgateway.ErrInvalidSignature) {
			uc.logger.Warnw("webhook signature verification failed", "gateway", cmd.Gateway, "error", err)
		} else {
			uc.logger.Warnw("malformed webhook payload", "gateway", cmd.Gateway, "error", err)
		}
		return &ReceiveWebhookResult{StatusCode: http.StatusBadRequest}
	}

	key := WebhookDedupeKey(cmd.Gateway, event.EventID)
	reserved, err := uc.dedupe.Reserve(ctx, key, uc.dedupeTTL)
	failOpen := false
	if err != nil {
		// Dropping an event is worse than processing it twice.
		uc.logger.Warnw("dedupe store unavailable, accepting webhook", "gateway", cmd.Gateway, "event_id", event.EventID, "error", err)
		failOpen = true
		reserved = true
	}
	if !reserved {
		uc.metrics.WebhookReceived(cmd.Gateway.String(), "duplicate")
		uc.logger.Infow("duplicate webhook ignored", "gateway", cmd.Gateway, "event_id", event.EventID)
		return &ReceiveWebhookResult{StatusCode: http.StatusOK, EventID: event.EventID, Duplicate: true}
	}

	payload, err := json.Marshal(event)
	if err == nil {
		_, err = uc.queue.Enqueue(ctx, Job{
			Queue:   QueueWebhooks,
			ID:      WebhookJobID(cmd.Gateway, event.EventID),
			Payload: payload,
		})
	}
	if err != nil {
		uc.metrics.WebhookReceived(cmd.Gateway.String(), "enqueue_failed")
		uc.logger.Errorw("failed to enqueue webhook", "gateway", cmd.Gateway, "event_id", event.EventID, "error", err)
		if !failOpen {
			if relErr := uc.dedupe.Release(context.WithoutCancel(ctx), key); relErr != nil {
				uc.logger.Warnw("failed to release webhook reservation", "key", key, "error", relErr)
			}
		}
		return &ReceiveWebhookResult{StatusCode: http.StatusInternalServerError, EventID: event.EventID}
	}

	result := "accepted"
	if failOpen {
		result = "fail_open"
	}
	uc.metrics.WebhookReceived(cmd.Gateway.String(), result)
	uc.logger.Infow("webhook accepted",
		"gateway", cmd.Gateway,
		"event_id", event.EventID,
		"type", event.Type,
		"category", event.Category,
	)
	return &ReceiveWebhookResult{StatusCode: http.StatusOK, EventID: event.EventID}
}
