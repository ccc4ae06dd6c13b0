package api

import (
	"context"
	"net/url"

	"github.com/jcalder/ledgerlens/internal/domain"
	"github.com/jcalder/ledgerlens/internal/respcache"
)

// PurchaseLedgerReconciliation fetches the purchase-ledger vs nominal-ledger
// reconciliation as at the given date (ISO-8601, empty for today).
func (c *Client) PurchaseLedgerReconciliation(ctx context.Context, date string) (*domain.ReconciliationResponse, error) {
	return c.ledgerReconciliation(ctx, "purchase_reconciliation", "/api/reconciliation/purchase", "purchase", date)
}

// SalesLedgerReconciliation fetches the sales-ledger vs nominal-ledger
// reconciliation as at the given date.
func (c *Client) SalesLedgerReconciliation(ctx context.Context, date string) (*domain.ReconciliationResponse, error) {
	return c.ledgerReconciliation(ctx, "sales_reconciliation", "/api/reconciliation/sales", "sales", date)
}

func (c *Client) ledgerReconciliation(ctx context.Context, op, path, keyPrefix, date string) (*domain.ReconciliationResponse, error) {
	params := url.Values{}
	if date != "" {
		params.Set("date", date)
	}

	var resp domain.ReconciliationResponse
	err := c.get(ctx, op, path, params,
		respcache.TableReconciliation, keyPrefix+":"+date, respcache.TTLReconciliation, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// BankReconciliation fetches the three-way bank reconciliation for one bank
// account as at the given date.
func (c *Client) BankReconciliation(ctx context.Context, accountCode, date string) (*domain.BankReconciliationResponse, error) {
	params := url.Values{}
	if date != "" {
		params.Set("date", date)
	}

	var resp domain.BankReconciliationResponse
	err := c.get(ctx, "bank_reconciliation", "/api/reconciliation/bank/"+url.PathEscape(accountCode), params,
		respcache.TableBankReconciliation, accountCode+":"+date, respcache.TTLBankReconciliation, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// AgedCreditors fetches the aged creditors analysis.
func (c *Client) AgedCreditors(ctx context.Context) (*domain.AgedAnalysisResponse, error) {
	return c.agedAnalysis(ctx, "aged_creditors", "/api/creditors/aged")
}

// AgedDebtors fetches the aged debtors analysis.
func (c *Client) AgedDebtors(ctx context.Context) (*domain.AgedAnalysisResponse, error) {
	return c.agedAnalysis(ctx, "aged_debtors", "/api/debtors/aged")
}

func (c *Client) agedAnalysis(ctx context.Context, op, path string) (*domain.AgedAnalysisResponse, error) {
	var resp domain.AgedAnalysisResponse
	err := c.get(ctx, op, path, nil,
		respcache.TableAgedAnalysis, op, respcache.TTLAgedAnalysis, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
