package domain

// BankReconciliationResponse is one bank reconciliation run for a single bank
// account: cashbook vs bank master vs nominal ledger. Unlike the two-sided
// ledger reconciliation, three pairwise variances must each independently
// reconcile.
type BankReconciliationResponse struct {
	ReconciliationDate string `json:"reconciliation_date"`
	AccountCode        string `json:"account_code"`
	Currency           string `json:"currency,omitempty"`

	Cashbook      CashbookSummary `json:"cashbook"`
	BankMaster    BankMaster      `json:"bank_master"`
	NominalLedger NominalLedger   `json:"nominal_ledger"`
	Variance      BankVariance    `json:"variance"`

	AgedAnalysis []AgedBand `json:"aged_analysis,omitempty"`
}

// CashbookSummary is the cashbook side of a bank reconciliation.
type CashbookSummary struct {
	Source           string                `json:"source"`
	Balance          float64               `json:"balance"`
	TransactionCount int                   `json:"transaction_count"`
	PendingTransfer  *PendingTransferBatch `json:"pending_transfer,omitempty"`
}

// BankMaster is the bank master-file side of a bank reconciliation.
//
// BalancePence is the one wire field expressed in minor units (pence); the
// upstream bank feed supplies it that way. It must be divided by 100 before
// display and before comparison against the major-unit cashbook and nominal
// balances. Do not "fix" this at decode time: preserving the raw wire value
// keeps the payload byte-faithful and auditable.
type BankMaster struct {
	Source       string  `json:"source"`
	AccountCode  string  `json:"account_code"`
	BalancePence int64   `json:"balance_pence"`
	LastFeedDate *string `json:"last_feed_date"` // ISO-8601 or null
}

// BankVariance carries the three pairwise variances of a bank
// reconciliation. Each leg must independently satisfy
// amount == left_total - right_total.
type BankVariance struct {
	CashbookVsBankMaster Variance `json:"cashbook_vs_bank_master"`
	BankMasterVsNominal  Variance `json:"bank_master_vs_nominal"`
	CashbookVsNominal    Variance `json:"cashbook_vs_nominal"`
	HasPendingTransfers  bool     `json:"has_pending_transfers"`
}
