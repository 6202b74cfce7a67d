package id

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	// Base62 alphabet: 0-9, A-Z, a-z
	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// DefaultLength is the default length for generated short IDs
	DefaultLength = 16
)

// Prefixes for public identifiers.
const (
	PrefixPayment      = "pay"
	PrefixManualReview = "mrv"
	PrefixInvoice      = "inv"
	PrefixCreditNote   = "cn"
)

// Generate creates a cryptographically random Base62 string.
func Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}

	result := make([]byte, length)
	alphabetLen := big.NewInt(int64(len(alphabet)))

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		result[i] = alphabet[num.Int64()]
	}

	return string(result), nil
}

// GenerateWithPrefix creates an identifier of the form "prefix_random".
func GenerateWithPrefix(prefix string) (string, error) {
	s, err := Generate(DefaultLength)
	if err != nil {
		return "", err
	}
	return prefix + "_" + s, nil
}

// ValidatePrefix checks that prefixedID looks like "expectedPrefix_xxx".
func ValidatePrefix(prefixedID, expectedPrefix string) error {
	prefix, rest, ok := strings.Cut(prefixedID, "_")
	if !ok || rest == "" {
		return fmt.Errorf("invalid prefixed ID format: %s", prefixedID)
	}
	if prefix != expectedPrefix {
		return fmt.Errorf("invalid prefix: expected %s, got %s", expectedPrefix, prefix)
	}
	return nil
}

func NewPaymentSID() (string, error) {
	return GenerateWithPrefix(PrefixPayment)
}

func NewManualReviewSID() (string, error) {
	return GenerateWithPrefix(PrefixManualReview)
}

func NewInvoiceSID() (string, error) {
	return GenerateWithPrefix(PrefixInvoice)
}

func NewCreditNoteSID() (string, error) {
	return GenerateWithPrefix(PrefixCreditNote)
}
