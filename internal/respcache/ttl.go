package respcache

import "time"

// TTL constants per endpoint family. Added to time.Now() when storing to
// calculate expires_at.
const (
	// Reconciliation runs are recomputed server-side on demand; a short TTL
	// keeps the monitor honest without hammering the backend.
	TTLReconciliation     = 60 * time.Second
	TTLBankReconciliation = 60 * time.Second

	// Aged analysis moves with posting activity, a little slower.
	TTLAgedAnalysis = 5 * time.Minute

	// Directory data barely moves during a session.
	TTLSuppliers            = 10 * time.Minute
	TTLSupplierTransactions = 2 * time.Minute

	// Company configuration changes only when modules are reconfigured.
	TTLCompanies = time.Hour
)
