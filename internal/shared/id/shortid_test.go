package id

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateWithPrefix(t *testing.T) {
	tests := []struct {
		name   string
		gen    func() (string, error)
		prefix string
	}{
		{"payment", NewPaymentSID, PrefixPayment},
		{"manual review", NewManualReviewSID, PrefixManualReview},
		{"invoice", NewInvoiceSID, PrefixInvoice},
		{"credit note", NewCreditNoteSID, PrefixCreditNote},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sid, err := tt.gen()
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(sid, tt.prefix+"_"))
			assert.Len(t, sid, len(tt.prefix)+1+DefaultLength)
			assert.NoError(t, ValidatePrefix(sid, tt.prefix))
		})
	}
}

func TestValidatePrefix(t *testing.T) {
	assert.NoError(t, ValidatePrefix("pay_abc", PrefixPayment))
	assert.Error(t, ValidatePrefix("mrv_abc", PrefixPayment))
	assert.Error(t, ValidatePrefix("pay_", PrefixPayment))
	assert.Error(t, ValidatePrefix("payabc", PrefixPayment))
}

func TestGenerateUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		s, err := Generate(DefaultLength)
		require.NoError(t, err)
		_, dup := seen[s]
		require.False(t, dup)
		seen[s] = struct{}{}
	}
}
