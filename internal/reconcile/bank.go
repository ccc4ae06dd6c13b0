package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jcalder/ledgerlens/internal/domain"
	"github.com/jcalder/ledgerlens/internal/money"
)

// Bank variance leg names as they appear on the wire.
const (
	LegCashbookVsBankMaster = "cashbook_vs_bank_master"
	LegBankMasterVsNominal  = "bank_master_vs_nominal"
	LegCashbookVsNominal    = "cashbook_vs_nominal"
)

// BankLeg is one pairwise comparison of a bank reconciliation, re-derived.
type BankLeg struct {
	Name       string          `json:"name"`
	Variance   decimal.Decimal `json:"variance"`
	Reconciled bool            `json:"reconciled"`
}

// BankReport is the outcome of checking one bank reconciliation payload.
// All three legs must reconcile independently for the account to reconcile.
type BankReport struct {
	Status              Status          `json:"status"`
	AccountCode         string          `json:"account_code"`
	Currency            string          `json:"currency"`
	Legs                []BankLeg       `json:"legs"`
	HasPendingTransfers bool            `json:"has_pending_transfers"`
	PendingCount        int             `json:"pending_count"`
	PendingTotal        decimal.Decimal `json:"pending_total"`
	Tolerance           decimal.Decimal `json:"tolerance"`
	Findings            []Finding       `json:"findings,omitempty"`
}

// Reconciled reports whether every leg reconciled.
func (r *BankReport) Reconciled() bool {
	for _, leg := range r.Legs {
		if !leg.Reconciled {
			return false
		}
	}
	return len(r.Legs) > 0
}

// Inconsistent reports whether any invariant was violated.
func (r *BankReport) Inconsistent() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Summary renders the one-line status for the account.
func (r *BankReport) Summary() string {
	switch r.Status {
	case StatusInconsistent:
		return fmt.Sprintf("Data inconsistency detected (%d findings)", len(r.Findings))
	case StatusUnreconciled:
		worst := decimal.Zero
		for _, leg := range r.Legs {
			if leg.Variance.Abs().GreaterThan(worst) {
				worst = leg.Variance.Abs()
			}
		}
		return "Variance of " + formatAmount(worst, r.Currency)
	case StatusReconciledPendingTransfers:
		noun := "transfers"
		if r.PendingCount == 1 {
			noun = "transfer"
		}
		return fmt.Sprintf("Reconciled with %d pending %s totalling %s",
			r.PendingCount, noun, formatAmount(r.PendingTotal, r.Currency))
	default:
		return "Reconciled"
	}
}

// CheckBank validates a three-way bank reconciliation: cashbook vs bank
// master vs nominal ledger. The bank master balance arrives in pence and is
// converted to pounds before any comparison.
func (c *Checker) CheckBank(resp *domain.BankReconciliationResponse) BankReport {
	currency := resp.Currency
	if currency == "" {
		currency = "GBP"
	}
	tol := c.tolerances.For(currency)

	r := BankReport{
		AccountCode: resp.AccountCode,
		Currency:    currency,
		Tolerance:   tol,
	}

	cashbook := money.FromPounds(resp.Cashbook.Balance)
	bankMaster := money.FromPence(resp.BankMaster.BalancePence)
	nominal := money.FromPounds(resp.NominalLedger.TotalBalance)

	c.checkBankLeg(&r, LegCashbookVsBankMaster, cashbook, bankMaster, resp.Variance.CashbookVsBankMaster, tol)
	c.checkBankLeg(&r, LegBankMasterVsNominal, bankMaster, nominal, resp.Variance.BankMasterVsNominal, tol)
	c.checkBankLeg(&r, LegCashbookVsNominal, cashbook, nominal, resp.Variance.CashbookVsNominal, tol)

	findings, hasPending, count, total := pendingTransferFindings(
		resp.Cashbook.PendingTransfer, resp.Variance.HasPendingTransfers, tol, "cashbook.pending_transfer")
	r.Findings = append(r.Findings, findings...)
	r.HasPendingTransfers = hasPending || resp.Variance.HasPendingTransfers
	r.PendingCount = count
	r.PendingTotal = total

	c.checkControlAccountsBank(&r, resp.NominalLedger, nominal, tol)

	// Aged bands partition the cashbook, so their totals must sum to its
	// balance.
	if len(resp.AgedAnalysis) > 0 {
		sum := decimal.Zero
		for _, band := range resp.AgedAnalysis {
			sum = sum.Add(money.FromPounds(band.Total))
		}
		if !within(sum, cashbook, tol) {
			r.Findings = append(r.Findings, Finding{
				Code:     CodeAgedPartitionMismatch,
				Severity: SeverityError,
				Field:    "aged_analysis",
				Message:  "aged band totals do not sum to the cashbook balance",
				Expected: cashbook,
				Actual:   sum,
			})
		}
	}

	r.Status = resolveBankStatus(&r)

	if r.Status == StatusInconsistent {
		c.log.Warn().
			Str("account", resp.AccountCode).
			Int("findings", len(r.Findings)).
			Str("date", resp.ReconciliationDate).
			Msg("Bank reconciliation payload violates its own invariants")
	}

	return r
}

// checkBankLeg re-derives one pairwise variance and validates the upstream
// statement of it.
func (c *Checker) checkBankLeg(r *BankReport, name string, left, right decimal.Decimal, upstream domain.Variance, tol decimal.Decimal) {
	derived := left.Sub(right)
	reconciled := derived.Abs().LessThan(tol)

	r.Legs = append(r.Legs, BankLeg{
		Name:       name,
		Variance:   derived,
		Reconciled: reconciled,
	})

	upstreamAmount := money.FromPounds(upstream.Amount)
	upstreamAbsolute := money.FromPounds(upstream.Absolute)

	if !within(upstreamAmount, derived, tol) {
		r.Findings = append(r.Findings, Finding{
			Code:     CodeVarianceAmountMismatch,
			Severity: SeverityError,
			Field:    "variance." + name + ".amount",
			Message:  "stated variance does not equal the difference of the stated balances",
			Expected: derived,
			Actual:   upstreamAmount,
		})
	}
	if !within(upstreamAbsolute, upstreamAmount.Abs(), tol) {
		r.Findings = append(r.Findings, Finding{
			Code:     CodeVarianceAbsolute,
			Severity: SeverityError,
			Field:    "variance." + name + ".absolute",
			Message:  "absolute does not equal |amount|",
			Expected: upstreamAmount.Abs(),
			Actual:   upstreamAbsolute,
		})
	}
	if upstream.Reconciled != reconciled {
		r.Findings = append(r.Findings, Finding{
			Code:     CodeReconciledFlagDisagrees,
			Severity: SeverityError,
			Field:    "variance." + name + ".reconciled",
			Message: fmt.Sprintf("upstream reconciled=%t but re-derived variance implies %t",
				upstream.Reconciled, reconciled),
			Expected: derived.Abs(),
			Actual:   tol,
		})
	}
}

// checkControlAccountsBank mirrors the ledger-side control account checks for
// the bank variant's report type.
func (c *Checker) checkControlAccountsBank(r *BankReport, nl domain.NominalLedger, nominalTotal, tol decimal.Decimal) {
	var proxy Report
	c.checkControlAccounts(&proxy, nl, nominalTotal, tol)
	r.Findings = append(r.Findings, proxy.Findings...)
}

func resolveBankStatus(r *BankReport) Status {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return StatusInconsistent
		}
	}
	if !r.Reconciled() {
		return StatusUnreconciled
	}
	if r.HasPendingTransfers {
		return StatusReconciledPendingTransfers
	}
	return StatusReconciled
}
