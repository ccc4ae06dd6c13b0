// Package money provides decimal currency helpers for display formatting and
// the single pence-to-pounds wire conversion the backend requires.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FromPounds converts a wire float (major units) to an exact decimal.
func FromPounds(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

// FromPence converts a minor-unit wire value to major units.
// bank_master.balance_pence is the only field that needs this.
func FromPence(pence int64) decimal.Decimal {
	return decimal.NewFromInt(pence).Shift(-2)
}

// FromMinorUnits converts a minor-unit value for a currency with the given
// decimal exponent (2 for GBP, 0 for JPY).
func FromMinorUnits(v int64, exponent int32) decimal.Decimal {
	return decimal.NewFromInt(v).Shift(-exponent)
}

// FormatGBP renders an amount as "£1,234.56". Negative amounts render as
// "-£45.67".
func FormatGBP(amount decimal.Decimal) string {
	return Format(amount, "£", 2)
}

// Format renders an amount with a currency symbol, thousands separators and
// a fixed number of decimal places.
func Format(amount decimal.Decimal, symbol string, places int32) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	fixed := amount.StringFixed(places)

	intPart := fixed
	fracPart := ""
	if idx := strings.IndexByte(fixed, '.'); idx >= 0 {
		intPart = fixed[:idx]
		fracPart = fixed[idx:]
	}

	return sign + symbol + groupThousands(intPart) + fracPart
}

// groupThousands inserts comma separators into an unsigned integer string.
func groupThousands(digits string) string {
	n := len(digits)
	if n <= 3 {
		return digits
	}

	var b strings.Builder
	b.Grow(n + n/3)

	head := n % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < n; i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}

	return b.String()
}
