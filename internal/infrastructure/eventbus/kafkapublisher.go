// Package eventbus forwards audit records to Kafka for downstream consumers.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	auditapp "github.com/orris-inc/payrecon/internal/application/audit"
	"github.com/orris-inc/payrecon/internal/domain/audit"
	sharedConfig "github.com/orris-inc/payrecon/internal/shared/config"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each audit record as one message keyed by payment,
// so a consumer sees a payment's history in order.
type KafkaPublisher struct {
	writer messageWriter
}

var _ auditapp.Publisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(cfg sharedConfig.KafkaConfig) *KafkaPublisher {
	return newKafkaPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           50 * time.Millisecond,
		WriteTimeout:           10 * time.Second,
		AllowAutoTopicCreation: false,
	})
}

func newKafkaPublisher(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

func (p *KafkaPublisher) Publish(ctx context.Context, record *audit.Record) error {
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode audit record: %w", err)
	}

	key := "order-" + strconv.FormatUint(uint64(record.OrderID), 10)
	if record.PaymentID != 0 {
		key = "payment-" + strconv.FormatUint(uint64(record.PaymentID), 10)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  record.OccurredAt,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(record.Action)},
			{Key: "audit_id", Value: []byte(record.ID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish audit record %s: %w", record.ID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
