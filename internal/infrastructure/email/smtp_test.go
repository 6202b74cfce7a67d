package email

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/orris-inc/payrecon/internal/domain/review"
	vo "github.com/orris-inc/payrecon/internal/domain/review/valueobjects"
)

type captureSender struct {
	sent []*gomail.Message
	err  error
}

func (s *captureSender) DialAndSend(m ...*gomail.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, m...)
	return nil
}

func testReview(t *testing.T) *review.ManualReview {
	t.Helper()
	mr, err := review.NewManualReview(review.NewReviewParams{
		Type:           vo.TypePaymentMismatch,
		OrderID:        12,
		PaymentID:      34,
		ExpectedAmount: 1000,
		ReceivedAmount: 900,
		Currency:       "INR",
		Summary:        "amount <b>mismatch</b>",
	})
	require.NoError(t, err)
	return mr
}

func TestReviewNotifier_Sends(t *testing.T) {
	sender := &captureSender{}
	n := newReviewNotifier(SMTPConfig{
		FromAddress: "payments@example.com",
		FromName:    "Payments",
		Recipients:  []string{"ops@example.com", "finance@example.com"},
		BaseURL:     "https://admin.example.com/",
	}, sender)

	mr := testReview(t)
	require.NoError(t, n.NotifyReviewOpened(context.Background(), mr))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, []string{"ops@example.com", "finance@example.com"}, msg.GetHeader("To"))
	assert.Equal(t, []string{"[payments] payment_mismatch review for order 12"}, msg.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := msg.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "https://admin.example.com/admin/manual-reviews/"+mr.SID())
	assert.NotContains(t, buf.String(), "<b>mismatch</b>")
}

func TestReviewNotifier_NoRecipients(t *testing.T) {
	n := newReviewNotifier(SMTPConfig{}, &captureSender{})

	assert.ErrorIs(t, n.NotifyReviewOpened(context.Background(), testReview(t)), ErrNoRecipients)
}

func TestReviewNotifier_SendError(t *testing.T) {
	n := newReviewNotifier(SMTPConfig{Recipients: []string{"ops@example.com"}}, &captureSender{err: errors.New("connection refused")})

	err := n.NotifyReviewOpened(context.Background(), testReview(t))

	assert.ErrorContains(t, err, "connection refused")
}
