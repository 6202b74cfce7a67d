package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orris-inc/payrecon/internal/domain/audit"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w)

	rec := audit.NewRecord(audit.ActionRefundRequested, "user:7")
	rec.OrderID = 1
	rec.PaymentID = 10
	rec.Amount = 300
	require.NoError(t, p.Publish(context.Background(), rec))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "payment-10", string(msg.Key))
	assert.Equal(t, "action", msg.Headers[0].Key)
	assert.Equal(t, string(audit.ActionRefundRequested), string(msg.Headers[0].Value))

	var decoded audit.Record
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, rec.ID, decoded.ID)
	assert.Equal(t, int64(300), decoded.Amount)
}

func TestKafkaPublisher_OrderLevelKey(t *testing.T) {
	w := &fakeWriter{}
	p := newKafkaPublisher(w)

	rec := audit.NewRecord(audit.ActionReviewOpened, "reconciler")
	rec.OrderID = 5
	require.NoError(t, p.Publish(context.Background(), rec))

	assert.Equal(t, "order-5", string(w.messages[0].Key))
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := newKafkaPublisher(&fakeWriter{err: errors.New("leader not available")})

	err := p.Publish(context.Background(), audit.NewRecord(audit.ActionPaymentFailed, "webhook"))

	assert.ErrorContains(t, err, "leader not available")
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, newKafkaPublisher(w).Close())
	assert.True(t, w.closed)
}
