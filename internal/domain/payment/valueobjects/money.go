package valueobjects

import (
	"fmt"
	"strings"
)

// Money is an amount in the currency's minor unit (cents, paise).
type Money struct {
	minorUnits int64
	currency   string
}

func NewMoney(minorUnits int64, currency string) Money {
	return Money{
		minorUnits: minorUnits,
		currency:   strings.ToUpper(currency),
	}
}

func (m Money) MinorUnits() int64 {
	return m.minorUnits
}

func (m Money) Currency() string {
	return m.currency
}

func (m Money) IsPositive() bool {
	return m.minorUnits > 0
}

func (m Money) Equals(other Money) bool {
	return m.minorUnits == other.minorUnits && m.currency == other.currency
}

// WithinTolerance reports whether other differs from m by at most epsilon
// minor units. Different currencies never match.
func (m Money) WithinTolerance(other Money, epsilon int64) bool {
	if other.currency != "" && m.currency != other.currency {
		return false
	}
	diff := m.minorUnits - other.minorUnits
	if diff < 0 {
		diff = -diff
	}
	return diff <= epsilon
}

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d %s", m.minorUnits/100, abs(m.minorUnits%100), m.currency)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
