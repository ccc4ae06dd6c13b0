package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcalder/ledgerlens/internal/domain"
)

// validBankResponse builds a self-consistent three-way bank reconciliation:
// cashbook £1,234.56, bank master 123456p, nominal £1,234.56.
func validBankResponse() *domain.BankReconciliationResponse {
	return &domain.BankReconciliationResponse{
		ReconciliationDate: "2026-03-31",
		AccountCode:        "BC10",
		Cashbook: domain.CashbookSummary{
			Source:           domain.SourceCashbook,
			Balance:          1234.56,
			TransactionCount: 17,
		},
		BankMaster: domain.BankMaster{
			Source:       domain.SourceBankMaster,
			AccountCode:  "BC10",
			BalancePence: 123456,
		},
		NominalLedger: domain.NominalLedger{
			Source: domain.SourceNominalLedger,
			ControlAccounts: []domain.ControlAccount{
				{
					Account:            "BC10",
					Description:        "Bank Current Account",
					BroughtForward:     1000.00,
					CurrentYearDebits:  500.56,
					CurrentYearCredits: 266.00,
					CurrentYearNet:     234.56,
					ClosingBalance:     1234.56,
				},
			},
			TotalBalance: 1234.56,
		},
		Variance: domain.BankVariance{
			CashbookVsBankMaster: domain.Variance{Amount: 0, Absolute: 0, Reconciled: true},
			BankMasterVsNominal:  domain.Variance{Amount: 0, Absolute: 0, Reconciled: true},
			CashbookVsNominal:    domain.Variance{Amount: 0, Absolute: 0, Reconciled: true},
		},
	}
}

func TestCheckBankReconciled(t *testing.T) {
	report := newTestChecker().CheckBank(validBankResponse())

	assert.Equal(t, StatusReconciled, report.Status)
	assert.True(t, report.Reconciled())
	assert.Empty(t, report.Findings)
	require.Len(t, report.Legs, 3)
	for _, leg := range report.Legs {
		assert.True(t, leg.Reconciled, leg.Name)
		assert.True(t, leg.Variance.IsZero(), leg.Name)
	}
}

func TestCheckBankPenceConversion(t *testing.T) {
	// The bank master balance is the one minor-unit field on the wire:
	// 95000p is £950.00, so a £1,000.00 cashbook leaves a £50.00 variance.
	resp := validBankResponse()
	resp.Cashbook.Balance = 1000.00
	resp.BankMaster.BalancePence = 95000
	resp.NominalLedger.ControlAccounts[0].BroughtForward = 765.44
	resp.NominalLedger.TotalBalance = 1000.00
	resp.NominalLedger.ControlAccounts[0].ClosingBalance = 1000.00
	resp.Variance = domain.BankVariance{
		CashbookVsBankMaster: domain.Variance{Amount: 50.00, Absolute: 50.00, Reconciled: false},
		BankMasterVsNominal:  domain.Variance{Amount: -50.00, Absolute: 50.00, Reconciled: false},
		CashbookVsNominal:    domain.Variance{Amount: 0, Absolute: 0, Reconciled: true},
	}

	report := newTestChecker().CheckBank(resp)

	assert.Equal(t, StatusUnreconciled, report.Status)
	assert.False(t, report.Reconciled())
	assert.Empty(t, report.Findings)

	legs := map[string]BankLeg{}
	for _, leg := range report.Legs {
		legs[leg.Name] = leg
	}
	assert.True(t, legs[LegCashbookVsBankMaster].Variance.Equal(decimal.RequireFromString("50")))
	assert.True(t, legs[LegBankMasterVsNominal].Variance.Equal(decimal.RequireFromString("-50")))
	assert.True(t, legs[LegCashbookVsNominal].Reconciled)
	assert.Equal(t, "Variance of £50.00", report.Summary())
}

func TestCheckBankLegFlagDisagreement(t *testing.T) {
	resp := validBankResponse()
	// Upstream claims the cashbook-vs-nominal leg reconciles when the
	// stated balances say otherwise.
	resp.Cashbook.Balance = 1334.56
	resp.Variance.CashbookVsBankMaster = domain.Variance{Amount: 100.00, Absolute: 100.00, Reconciled: false}
	resp.Variance.CashbookVsNominal = domain.Variance{Amount: 0, Absolute: 0, Reconciled: true}

	report := newTestChecker().CheckBank(resp)

	assert.Equal(t, StatusInconsistent, report.Status)
	codes := findingCodes(report.Findings)
	assert.Contains(t, codes, CodeVarianceAmountMismatch)
	assert.Contains(t, codes, CodeReconciledFlagDisagrees)
}

func TestCheckBankZeroDecimalSummary(t *testing.T) {
	// A yen account renders whole amounts, same as the ledger-side summary.
	resp := validBankResponse()
	resp.Currency = "JPY"
	resp.Cashbook.Balance = 1000
	resp.BankMaster.BalancePence = 50000
	resp.NominalLedger.TotalBalance = 500
	resp.NominalLedger.ControlAccounts = []domain.ControlAccount{
		{
			Account:            "BC10",
			Description:        "Bank Current Account",
			BroughtForward:     300,
			CurrentYearDebits:  250,
			CurrentYearCredits: 50,
			CurrentYearNet:     200,
			ClosingBalance:     500,
		},
	}
	resp.Variance = domain.BankVariance{
		CashbookVsBankMaster: domain.Variance{Amount: 500, Absolute: 500, Reconciled: false},
		BankMasterVsNominal:  domain.Variance{Amount: 0, Absolute: 0, Reconciled: true},
		CashbookVsNominal:    domain.Variance{Amount: 500, Absolute: 500, Reconciled: false},
	}

	report := newTestChecker().CheckBank(resp)

	assert.Equal(t, StatusUnreconciled, report.Status)
	assert.Empty(t, report.Findings)
	assert.Equal(t, "Variance of ¥500", report.Summary())
}

func TestCheckBankAgedPartition(t *testing.T) {
	resp := validBankResponse()
	// Bands drop £100 of the cashbook: a filter, not a partition.
	resp.AgedAnalysis = []domain.AgedBand{
		{Band: "current", Label: "Current", Count: 10, Total: 1000.00},
		{Band: "30_days", Label: "30 Days", Count: 7, Total: 134.56},
	}

	report := newTestChecker().CheckBank(resp)

	assert.Equal(t, StatusInconsistent, report.Status)
	assert.Contains(t, findingCodes(report.Findings), CodeAgedPartitionMismatch)
}

func TestCheckBankPendingTransfers(t *testing.T) {
	resp := validBankResponse()
	resp.Cashbook.PendingTransfer = &domain.PendingTransferBatch{
		Count: 1,
		Total: 75.00,
		Transactions: []domain.PendingTransferTransaction{
			{NominalAccount: "BC10", Source: "CB", Value: 75.00, Reference: "CHQ001234"},
		},
	}
	resp.Variance.HasPendingTransfers = true

	report := newTestChecker().CheckBank(resp)

	assert.Equal(t, StatusReconciledPendingTransfers, report.Status)
	assert.True(t, report.Reconciled())
	assert.True(t, report.HasPendingTransfers)
	assert.Equal(t, "Reconciled with 1 pending transfer totalling £75.00", report.Summary())
}
