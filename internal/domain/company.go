package domain

// Company is one company configuration on the backend. Which reconciliation
// pairings and enrichments exist for a company is driven by its module flags,
// not by probing for optional response fields.
type Company struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Currency string  `json:"currency"`
	YearEnd  *string `json:"year_end"` // ISO-8601 or null
	Modules  Modules `json:"modules"`
}

// Modules is the capability set enabled for a company. A pairing whose flag
// is false simply does not exist for that company; the corresponding
// endpoints return a domain error rather than empty data.
type Modules struct {
	DebtorsControl       bool `json:"debtors_control"`
	CreditorsControl     bool `json:"creditors_control"`
	BankReconciliation   bool `json:"bank_reconciliation"`
	SalesOrderProcessing bool `json:"sales_order_processing"`
	PromisesDue          bool `json:"promises_due"`
	Disputed             bool `json:"disputed"`
}

// Supplier is one supplier directory row.
type Supplier struct {
	Account   string  `json:"account"`
	Name      string  `json:"name"`
	Telephone string  `json:"telephone,omitempty"`
	Balance   float64 `json:"balance"`
}

// SupplierTransaction is one outstanding transaction on a supplier account.
type SupplierTransaction struct {
	Type        string  `json:"type"`
	Reference   string  `json:"reference"`
	Date        *string `json:"date"`     // ISO-8601 or null
	DueDate     *string `json:"due_date"` // ISO-8601 or null
	Value       float64 `json:"value"`
	Outstanding float64 `json:"outstanding"`
}

// AgedAnalysisResponse is a standalone aged creditors/debtors analysis.
type AgedAnalysisResponse struct {
	Ledger string     `json:"ledger"`
	AsAt   string     `json:"as_at"`
	Total  float64    `json:"total"`
	Bands  []AgedBand `json:"bands"`
}
