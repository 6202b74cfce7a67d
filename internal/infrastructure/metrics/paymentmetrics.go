// Package metrics exposes payment engine counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
)

const namespace = "payrecon"

// Metric names.
const (
	MetricWebhooksReceived       = namespace + "_webhooks_received_total"
	MetricWebhooksProcessed      = namespace + "_webhooks_processed_total"
	MetricReconciliationOutcomes = namespace + "_reconciliation_outcomes_total"
	MetricRefundsRequested       = namespace + "_refunds_requested_total"
	MetricManualReviewsOpened    = namespace + "_manual_reviews_opened_total"
)

// PaymentMetrics implements usecases.Metrics with Prometheus counters.
type PaymentMetrics struct {
	webhooksReceived  *prometheus.CounterVec
	webhooksProcessed *prometheus.CounterVec
	reconciliation    *prometheus.CounterVec
	refunds           *prometheus.CounterVec
	reviews           *prometheus.CounterVec
}

var _ usecases.Metrics = (*PaymentMetrics)(nil)

// NewPaymentMetrics builds unregistered collectors; call Register.
func NewPaymentMetrics() *PaymentMetrics {
	return &PaymentMetrics{
		webhooksReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricWebhooksReceived,
				Help: "Webhook deliveries by gateway and ingestion result",
			},
			[]string{"gateway", "result"},
		),
		webhooksProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricWebhooksProcessed,
				Help: "Processed webhook events by gateway, category and result",
			},
			[]string{"gateway", "category", "result"},
		),
		reconciliation: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricReconciliationOutcomes,
				Help: "Per payment outcomes of reconciliation sweeps",
			},
			[]string{"outcome"},
		),
		refunds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRefundsRequested,
				Help: "Refund requests by gateway and result",
			},
			[]string{"gateway", "result"},
		),
		reviews: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricManualReviewsOpened,
				Help: "Manual reviews opened by type",
			},
			[]string{"type"},
		),
	}
}

func (m *PaymentMetrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *PaymentMetrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.webhooksReceived,
		m.webhooksProcessed,
		m.reconciliation,
		m.refunds,
		m.reviews,
	}
}

func (m *PaymentMetrics) WebhookReceived(gateway, result string) {
	m.webhooksReceived.WithLabelValues(gateway, result).Inc()
}

func (m *PaymentMetrics) WebhookProcessed(gateway, category, result string) {
	m.webhooksProcessed.WithLabelValues(gateway, category, result).Inc()
}

func (m *PaymentMetrics) ReconciliationOutcome(outcome string) {
	m.reconciliation.WithLabelValues(outcome).Inc()
}

func (m *PaymentMetrics) RefundRequested(gateway, result string) {
	m.refunds.WithLabelValues(gateway, result).Inc()
}

func (m *PaymentMetrics) ReviewOpened(reviewType string) {
	m.reviews.WithLabelValues(reviewType).Inc()
}
