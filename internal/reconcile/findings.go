package reconcile

import "github.com/shopspring/decimal"

// Severity classifies how a finding affects the overall status.
type Severity string

const (
	// SeverityError marks a violated invariant: the payload contradicts
	// itself and the overall status becomes StatusInconsistent.
	SeverityError Severity = "error"
	// SeverityWarning marks a disclosure that needs attention but does not
	// make the payload inconsistent.
	SeverityWarning Severity = "warning"
)

// Finding codes.
const (
	CodeVarianceAmountMismatch  = "variance_amount_mismatch"
	CodeVarianceAbsolute        = "variance_absolute_mismatch"
	CodeReconciledFlagDisagrees = "reconciled_flag_disagrees"
	CodePendingFlagMissing      = "pending_flag_missing"
	CodePendingTotalMismatch    = "pending_total_mismatch"
	CodePendingCountMismatch    = "pending_count_mismatch"
	CodeBreakdownTotalMismatch  = "breakdown_total_mismatch"
	CodeBreakdownCountMismatch  = "breakdown_count_mismatch"
	CodeControlAccountNet       = "control_account_net_mismatch"
	CodeControlAccountClosing   = "control_account_closing_mismatch"
	CodeControlTotalMismatch    = "control_total_mismatch"
	CodeAgedPartitionMismatch   = "aged_partition_mismatch"
	CodeMasterFileMismatch      = "master_file_mismatch"
)

// Finding is one detected defect in a reconciliation payload. Expected and
// Actual carry the two sides of the violated equality for audit purposes.
type Finding struct {
	Code     string          `json:"code"`
	Severity Severity        `json:"severity"`
	Field    string          `json:"field"`
	Message  string          `json:"message"`
	Expected decimal.Decimal `json:"expected"`
	Actual   decimal.Decimal `json:"actual"`
}

// Status classifies the outcome of a reconciliation check.
type Status string

const (
	// StatusReconciled - totals agree within tolerance, nothing pending.
	StatusReconciled Status = "reconciled"
	// StatusReconciledPendingTransfers - totals agree, but unposted items
	// exist. Both facts are disclosed, never collapsed into one boolean: a
	// control-account pairing can net to zero while still containing
	// unposted transactions.
	StatusReconciledPendingTransfers Status = "reconciled_pending_transfers"
	// StatusUnreconciled - the re-derived variance exceeds tolerance.
	StatusUnreconciled Status = "unreconciled"
	// StatusInconsistent - the payload violates its own invariants; the
	// numbers cannot be trusted enough to call either way.
	StatusInconsistent Status = "inconsistent"
)
