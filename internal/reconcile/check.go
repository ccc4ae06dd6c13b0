package reconcile

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jcalder/ledgerlens/internal/domain"
	"github.com/jcalder/ledgerlens/internal/money"
)

// Checker validates reconciliation payloads and classifies the outcome.
type Checker struct {
	tolerances *Tolerances
	log        zerolog.Logger
}

// NewChecker creates a checker. A nil Tolerances uses the defaults.
func NewChecker(tolerances *Tolerances, log zerolog.Logger) *Checker {
	if tolerances == nil {
		tolerances = DefaultTolerances()
	}
	return &Checker{
		tolerances: tolerances,
		log:        log.With().Str("component", "reconcile").Logger(),
	}
}

// Report is the outcome of checking one ledger reconciliation payload.
// Variance and Reconciled are re-derived from the stated totals, which is the
// source of truth here; the upstream flag only contributes findings when it
// disagrees.
type Report struct {
	Status              Status          `json:"status"`
	Currency            string          `json:"currency"`
	Reconciled          bool            `json:"reconciled"`
	HasPendingTransfers bool            `json:"has_pending_transfers"`
	PendingCount        int             `json:"pending_count"`
	PendingTotal        decimal.Decimal `json:"pending_total"`
	Variance            decimal.Decimal `json:"variance"`
	Tolerance           decimal.Decimal `json:"tolerance"`
	Findings            []Finding       `json:"findings,omitempty"`
}

// Inconsistent reports whether any invariant was violated.
func (r *Report) Inconsistent() bool {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Summary renders the one-line status an operator sees. Pending transfers are
// always disclosed alongside the reconciled state, never folded into it.
func (r *Report) Summary() string {
	switch r.Status {
	case StatusInconsistent:
		return fmt.Sprintf("Data inconsistency detected (%d findings)", len(r.Findings))
	case StatusUnreconciled:
		return "Variance of " + r.formatAmount(r.Variance.Abs())
	case StatusReconciledPendingTransfers:
		noun := "transfers"
		if r.PendingCount == 1 {
			noun = "transfer"
		}
		return fmt.Sprintf("Reconciled with %d pending %s totalling %s",
			r.PendingCount, noun, r.formatAmount(r.PendingTotal))
	default:
		return "Reconciled"
	}
}

func (r *Report) formatAmount(amount decimal.Decimal) string {
	return formatAmount(amount, r.Currency)
}

// formatAmount renders an amount in the currency's display convention.
func formatAmount(amount decimal.Decimal, currency string) string {
	return money.Format(amount, symbolFor(currency), placesFor(currency))
}

func placesFor(currency string) int32 {
	if zeroDecimalCurrencies[currency] {
		return 0
	}
	return 2
}

// symbolFor maps common currency codes to display symbols. Unrecognised codes
// render as a prefix, e.g. "CHF 12.00".
func symbolFor(currency string) string {
	switch currency {
	case "", "GBP":
		return "£"
	case "EUR":
		return "€"
	case "USD":
		return "$"
	case "JPY":
		return "¥"
	default:
		return currency + " "
	}
}

// Check validates a purchase-vs-nominal or sales-vs-nominal reconciliation.
func (c *Checker) Check(resp *domain.ReconciliationResponse) Report {
	currency := resp.Currency
	if currency == "" {
		currency = "GBP"
	}
	tol := c.tolerances.For(currency)

	r := Report{
		Currency:  currency,
		Tolerance: tol,
	}

	nominalTotal := money.FromPounds(resp.NominalLedger.TotalBalance)
	upstreamAmount := money.FromPounds(resp.Variance.Amount)
	upstreamAbsolute := money.FromPounds(resp.Variance.Absolute)

	// The payload's own absolute must equal |amount|.
	if !within(upstreamAbsolute, upstreamAmount.Abs(), tol) {
		r.Findings = append(r.Findings, Finding{
			Code:     CodeVarianceAbsolute,
			Severity: SeverityError,
			Field:    "variance.absolute",
			Message:  "variance.absolute does not equal |variance.amount|",
			Expected: upstreamAmount.Abs(),
			Actual:   upstreamAbsolute,
		})
	}

	if resp.LedgerSide != nil {
		c.checkLedgerSide(&r, resp, nominalTotal, tol)
	} else {
		// No subsidiary side for this pairing: nothing to re-derive from,
		// so the upstream statement stands as-is.
		r.Variance = upstreamAmount
		r.Reconciled = resp.Variance.Reconciled
	}

	c.checkControlAccounts(&r, resp.NominalLedger, nominalTotal, tol)

	r.Status = resolveStatus(&r)

	if r.Status == StatusInconsistent {
		c.log.Warn().
			Str("status", string(r.Status)).
			Int("findings", len(r.Findings)).
			Str("date", resp.ReconciliationDate).
			Msg("Reconciliation payload violates its own invariants")
	}

	return r
}

// checkLedgerSide re-derives the variance and validates every subsidiary
// ledger invariant: breakdown sums, pending transfer disclosure, master file
// cross-check, and aged analysis partitioning.
func (c *Checker) checkLedgerSide(r *Report, resp *domain.ReconciliationResponse, nominalTotal, tol decimal.Decimal) {
	ls := resp.LedgerSide
	ledgerTotal := money.FromPounds(ls.TotalOutstanding)
	upstreamAmount := money.FromPounds(resp.Variance.Amount)

	derived := ledgerTotal.Sub(nominalTotal)
	r.Variance = derived
	r.Reconciled = derived.Abs().LessThan(tol)

	// The payload's stated variance must match what its own totals imply.
	if !within(upstreamAmount, derived, tol) {
		r.Findings = append(r.Findings, Finding{
			Code:     CodeVarianceAmountMismatch,
			Severity: SeverityError,
			Field:    "variance.amount",
			Message:  "variance.amount does not equal ledger total minus nominal total",
			Expected: derived,
			Actual:   upstreamAmount,
		})
	}

	if resp.Variance.Reconciled != r.Reconciled {
		r.Findings = append(r.Findings, Finding{
			Code:     CodeReconciledFlagDisagrees,
			Severity: SeverityError,
			Field:    "variance.reconciled",
			Message: fmt.Sprintf("upstream reconciled=%t but re-derived variance implies %t",
				resp.Variance.Reconciled, r.Reconciled),
			Expected: derived.Abs(),
			Actual:   tol,
		})
	}

	// Breakdown rows partition the outstanding total.
	if len(ls.BreakdownByType) > 0 {
		sumTotal := decimal.Zero
		sumCount := 0
		for _, row := range ls.BreakdownByType {
			sumTotal = sumTotal.Add(money.FromPounds(row.Total))
			sumCount += row.Count
		}
		if !within(sumTotal, ledgerTotal, tol) {
			r.Findings = append(r.Findings, Finding{
				Code:     CodeBreakdownTotalMismatch,
				Severity: SeverityError,
				Field:    "ledger_side.breakdown_by_type",
				Message:  "breakdown totals do not sum to total_outstanding",
				Expected: ledgerTotal,
				Actual:   sumTotal,
			})
		}
		if sumCount != ls.TransactionCount {
			r.Findings = append(r.Findings, Finding{
				Code:     CodeBreakdownCountMismatch,
				Severity: SeverityError,
				Field:    "ledger_side.breakdown_by_type",
				Message:  "breakdown counts do not sum to transaction_count",
				Expected: decimal.NewFromInt(int64(ls.TransactionCount)),
				Actual:   decimal.NewFromInt(int64(sumCount)),
			})
		}
	}

	findings, hasPending, count, total := pendingTransferFindings(ls.PendingTransfer, resp.Variance.HasPendingTransfers, tol, "ledger_side.pending_transfer")
	r.Findings = append(r.Findings, findings...)
	r.HasPendingTransfers = hasPending || resp.Variance.HasPendingTransfers
	r.PendingCount = count
	r.PendingTotal = total

	if mc := ls.MasterCheck; mc != nil {
		difference := money.FromPounds(mc.Difference)
		if mc.Matches && !difference.Abs().LessThan(tol) {
			r.Findings = append(r.Findings, Finding{
				Code:     CodeMasterFileMismatch,
				Severity: SeverityError,
				Field:    "ledger_side.master_check",
				Message:  "master_check claims a match but states a difference above tolerance",
				Expected: decimal.Zero,
				Actual:   difference,
			})
		} else if !mc.Matches {
			r.Findings = append(r.Findings, Finding{
				Code:     CodeMasterFileMismatch,
				Severity: SeverityWarning,
				Field:    "ledger_side.master_check",
				Message:  "transaction file total disagrees with master file balances",
				Expected: money.FromPounds(mc.MasterTotal),
				Actual:   ledgerTotal,
			})
		}
	}

	// Aged bands are a partition of the outstanding transactions, not a
	// filter: their totals must sum to the ledger total.
	if len(resp.AgedAnalysis) > 0 {
		sum := decimal.Zero
		for _, band := range resp.AgedAnalysis {
			sum = sum.Add(money.FromPounds(band.Total))
		}
		if !within(sum, ledgerTotal, tol) {
			r.Findings = append(r.Findings, Finding{
				Code:     CodeAgedPartitionMismatch,
				Severity: SeverityError,
				Field:    "aged_analysis",
				Message:  "aged band totals do not sum to the ledger total",
				Expected: ledgerTotal,
				Actual:   sum,
			})
		}
	}
}

// pendingTransferFindings validates a pending batch's own arithmetic and the
// disclosure rule: count > 0 must be reflected in has_pending_transfers even
// when the pairing reconciles.
func pendingTransferFindings(pt *domain.PendingTransferBatch, upstreamFlag bool, tol decimal.Decimal, field string) (findings []Finding, hasPending bool, count int, total decimal.Decimal) {
	hasPending = pt != nil && pt.Count > 0
	if pt != nil {
		count = pt.Count
		total = money.FromPounds(pt.Total)
	}

	if hasPending && !upstreamFlag {
		findings = append(findings, Finding{
			Code:     CodePendingFlagMissing,
			Severity: SeverityError,
			Field:    "variance.has_pending_transfers",
			Message:  "pending transfers exist but has_pending_transfers is false",
			Expected: decimal.NewFromInt(int64(pt.Count)),
			Actual:   decimal.Zero,
		})
	}

	if pt == nil || len(pt.Transactions) == 0 {
		return findings, hasPending, count, total
	}

	sum := decimal.Zero
	for _, txn := range pt.Transactions {
		sum = sum.Add(money.FromPounds(txn.Value))
	}
	if !within(sum, total, tol) {
		findings = append(findings, Finding{
			Code:     CodePendingTotalMismatch,
			Severity: SeverityError,
			Field:    field + ".total",
			Message:  "pending transfer total does not equal the sum of its transactions",
			Expected: sum,
			Actual:   total,
		})
	}
	if len(pt.Transactions) != pt.Count {
		findings = append(findings, Finding{
			Code:     CodePendingCountMismatch,
			Severity: SeverityError,
			Field:    field + ".count",
			Message:  "pending transfer count does not equal the number of transactions",
			Expected: decimal.NewFromInt(int64(len(pt.Transactions))),
			Actual:   decimal.NewFromInt(int64(pt.Count)),
		})
	}

	return findings, hasPending, count, total
}

// checkControlAccounts validates each control account's internal arithmetic
// and that the accounts sum to the stated nominal total.
func (c *Checker) checkControlAccounts(r *Report, nl domain.NominalLedger, nominalTotal, tol decimal.Decimal) {
	if len(nl.ControlAccounts) == 0 {
		return
	}

	sumClosing := decimal.Zero
	for _, acct := range nl.ControlAccounts {
		debits := money.FromPounds(acct.CurrentYearDebits)
		credits := money.FromPounds(acct.CurrentYearCredits)
		net := money.FromPounds(acct.CurrentYearNet)
		broughtForward := money.FromPounds(acct.BroughtForward)
		closing := money.FromPounds(acct.ClosingBalance)

		if !within(net, debits.Sub(credits), tol) {
			r.Findings = append(r.Findings, Finding{
				Code:     CodeControlAccountNet,
				Severity: SeverityError,
				Field:    fmt.Sprintf("nominal_ledger.control_accounts.%s.current_year_net", acct.Account),
				Message:  "current_year_net does not equal debits minus credits",
				Expected: debits.Sub(credits),
				Actual:   net,
			})
		}
		if !within(closing, broughtForward.Add(net), tol) {
			r.Findings = append(r.Findings, Finding{
				Code:     CodeControlAccountClosing,
				Severity: SeverityError,
				Field:    fmt.Sprintf("nominal_ledger.control_accounts.%s.closing_balance", acct.Account),
				Message:  "closing_balance does not equal brought_forward plus current_year_net",
				Expected: broughtForward.Add(net),
				Actual:   closing,
			})
		}

		sumClosing = sumClosing.Add(closing)
	}

	if !within(sumClosing, nominalTotal, tol) {
		r.Findings = append(r.Findings, Finding{
			Code:     CodeControlTotalMismatch,
			Severity: SeverityError,
			Field:    "nominal_ledger.total_balance",
			Message:  "control account closing balances do not sum to total_balance",
			Expected: sumClosing,
			Actual:   nominalTotal,
		})
	}
}

// resolveStatus collapses findings and the re-derived facts into one status.
func resolveStatus(r *Report) Status {
	for _, f := range r.Findings {
		if f.Severity == SeverityError {
			return StatusInconsistent
		}
	}
	if !r.Reconciled {
		return StatusUnreconciled
	}
	if r.HasPendingTransfers {
		return StatusReconciledPendingTransfers
	}
	return StatusReconciled
}

// within reports whether two amounts agree to better than the tolerance.
func within(a, b, tol decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(tol)
}
