// Package reconcile validates reconciliation payloads against the invariants
// the backend is supposed to uphold, and classifies the outcome. The backend's
// own "reconciled" flag is never trusted blindly: the variance is re-derived
// from the stated totals and any disagreement is surfaced as a data-integrity
// finding instead of being rendered as-is.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// defaultTolerance is one minor unit of a two-decimal currency.
var defaultTolerance = decimal.RequireFromString("0.01")

// zeroDecimalCurrencies have no minor unit, so the tolerance is one whole unit.
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
	"VND": true,
}

// Tolerances maps currency codes to reconciliation tolerances. A variance
// strictly below the tolerance counts as reconciled.
type Tolerances struct {
	byCurrency map[string]decimal.Decimal
}

// DefaultTolerances returns tolerances of 0.01 for two-decimal currencies and
// 1 for known zero-decimal currencies.
func DefaultTolerances() *Tolerances {
	return &Tolerances{byCurrency: make(map[string]decimal.Decimal)}
}

// Set overrides the tolerance for a currency.
func (t *Tolerances) Set(currency string, tolerance decimal.Decimal) {
	t.byCurrency[strings.ToUpper(currency)] = tolerance
}

// SetString overrides the tolerance for a currency from a decimal string,
// as supplied by configuration.
func (t *Tolerances) SetString(currency, value string) error {
	tol, err := decimal.NewFromString(value)
	if err != nil {
		return fmt.Errorf("invalid tolerance %q for %s: %w", value, currency, err)
	}
	if !tol.IsPositive() {
		return fmt.Errorf("tolerance for %s must be positive, got %s", currency, tol)
	}
	t.Set(currency, tol)
	return nil
}

// For returns the tolerance for a currency. An empty currency means the
// backend's reference currency (GBP).
func (t *Tolerances) For(currency string) decimal.Decimal {
	currency = strings.ToUpper(currency)
	if tol, ok := t.byCurrency[currency]; ok {
		return tol
	}
	if zeroDecimalCurrencies[currency] {
		return decimal.NewFromInt(1)
	}
	return defaultTolerance
}
