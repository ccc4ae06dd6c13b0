// Package domain defines the wire contract types returned by the accounting
// backend. Every value here is a server-owned, read-only snapshot: responses
// are never mutated client-side, only superseded entirely by the next fetch.
//
// Monetary fields are plain JSON numbers in major currency units (pounds, not
// pence) with one documented exception: BankMaster.BalancePence, which the
// upstream data source supplies in minor units. That inconsistency is part of
// the wire contract and is preserved here rather than converted on decode;
// conversion happens only at the display boundary (internal/money).
package domain

// Ledger source identifiers as they appear on the wire.
const (
	SourcePurchaseLedger = "purchase_ledger"
	SourceSalesLedger    = "sales_ledger"
	SourceNominalLedger  = "nominal_ledger"
	SourceCashbook       = "cashbook"
	SourceBankMaster     = "bank_master"
)

// ReconciliationResponse is one reconciliation run for a ledger pairing
// (purchase-vs-nominal or sales-vs-nominal) on a given reconciliation date.
type ReconciliationResponse struct {
	ReconciliationDate string `json:"reconciliation_date"`
	Currency           string `json:"currency,omitempty"`

	// LedgerSide may be absent when the pairing does not apply to the
	// company (e.g. no sales ledger module).
	LedgerSide    *LedgerSide   `json:"ledger_side,omitempty"`
	NominalLedger NominalLedger `json:"nominal_ledger"`
	Variance      Variance      `json:"variance"`

	// Optional enrichments.
	AgedAnalysis []AgedBand  `json:"aged_analysis,omitempty"`
	TopSuppliers []TopEntity `json:"top_suppliers,omitempty"`
	TopCustomers []TopEntity `json:"top_customers,omitempty"`
}

// LedgerSide summarises the subsidiary ledger half of a reconciliation.
type LedgerSide struct {
	Source           string                     `json:"source"`
	TotalOutstanding float64                    `json:"total_outstanding"`
	TransactionCount int                        `json:"transaction_count"`
	BreakdownByType  []TransactionTypeBreakdown `json:"breakdown_by_type"`
	PostedToNL       *PostedBatch               `json:"posted_to_nl,omitempty"`
	PendingTransfer  *PendingTransferBatch      `json:"pending_transfer,omitempty"`
	MasterCheck      *MasterCheck               `json:"master_check,omitempty"`
}

// TransactionTypeBreakdown is one row of the by-type breakdown. Across all
// rows the totals sum to LedgerSide.TotalOutstanding and the counts sum to
// LedgerSide.TransactionCount.
type TransactionTypeBreakdown struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Count       int     `json:"count"`
	Total       float64 `json:"total"`
}

// PostedBatch summarises transactions already posted to the nominal ledger.
type PostedBatch struct {
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// PendingTransferBatch holds subsidiary-ledger transactions not yet posted to
// the nominal ledger. Each transaction carries enough fields to be
// independently auditable.
type PendingTransferBatch struct {
	Count        int                          `json:"count"`
	Total        float64                      `json:"total"`
	Transactions []PendingTransferTransaction `json:"transactions"`
}

// PendingTransferTransaction is one unposted entry.
type PendingTransferTransaction struct {
	NominalAccount string  `json:"nominal_account"`
	Source         string  `json:"source"`
	Date           *string `json:"date"` // ISO-8601 or null; null is distinct from ""
	Value          float64 `json:"value"`
	Reference      string  `json:"reference"`
}

// MasterCheck cross-checks the transaction file total against the sum of
// account balances on the supplier/customer master file.
type MasterCheck struct {
	MasterTotal float64 `json:"master_total"`
	Difference  float64 `json:"difference"`
	Matches     bool    `json:"matches"`
}

// NominalLedger summarises the control-account half of a reconciliation.
type NominalLedger struct {
	Source          string           `json:"source"`
	ControlAccounts []ControlAccount `json:"control_accounts"`
	TotalBalance    float64          `json:"total_balance"`
	CurrentYear     *int             `json:"current_year,omitempty"`
}

// ControlAccount is one nominal-ledger account entry. The backend asserts
// CurrentYearNet == debits - credits and
// ClosingBalance == BroughtForward + CurrentYearNet, within rounding
// tolerance; internal/reconcile verifies both.
type ControlAccount struct {
	Account            string  `json:"account"`
	Description        string  `json:"description"`
	BroughtForward     float64 `json:"brought_forward"`
	CurrentYearDebits  float64 `json:"current_year_debits"`
	CurrentYearCredits float64 `json:"current_year_credits"`
	CurrentYearNet     float64 `json:"current_year_net"`
	ClosingBalance     float64 `json:"closing_balance"`
}

// Variance is the backend's own statement of the reconciliation outcome.
// Amount is signed (ledger total minus nominal total), Absolute is |Amount|,
// and Reconciled is true when Absolute falls below the backend's tolerance.
// Consumers must not trust Reconciled blindly; internal/reconcile re-derives
// it and flags disagreement.
type Variance struct {
	Amount              float64 `json:"amount"`
	Absolute            float64 `json:"absolute"`
	Reconciled          bool    `json:"reconciled"`
	HasPendingTransfers bool    `json:"has_pending_transfers"`
}

// AgedBand is one band of an aged analysis. Bands partition the outstanding
// transactions: every transaction belongs to exactly one band, so band totals
// sum to the ledger total.
type AgedBand struct {
	Band  string  `json:"band"` // e.g. "current", "1_month", "2_month", "3_month_plus"
	Label string  `json:"label,omitempty"`
	Count int     `json:"count"`
	Total float64 `json:"total"`
}

// TopEntity is one row of a top-suppliers or top-customers enrichment.
type TopEntity struct {
	Account          string  `json:"account"`
	Name             string  `json:"name"`
	TotalOutstanding float64 `json:"total_outstanding"`
	TransactionCount int     `json:"transaction_count"`
}
