package api

import (
	"context"
	"net/url"

	"github.com/jcalder/ledgerlens/internal/domain"
	"github.com/jcalder/ledgerlens/internal/respcache"
)

// Companies fetches the list of companies with their module capability flags.
func (c *Client) Companies(ctx context.Context) ([]domain.Company, error) {
	var resp struct {
		Companies []domain.Company `json:"companies"`
	}
	err := c.get(ctx, "companies", "/api/companies", nil,
		respcache.TableCompanies, "companies", respcache.TTLCompanies, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Companies, nil
}

// SearchSuppliers searches the supplier directory. This endpoint family uses
// page/page_size pagination on the wire.
func (c *Client) SearchSuppliers(ctx context.Context, query string, page Page) ([]domain.Supplier, error) {
	params := url.Values{}
	params.Set("search", query)
	page.encodePageSize(params)

	var resp struct {
		Suppliers []domain.Supplier `json:"suppliers"`
	}
	// The page size is part of the query's identity: the same page number at
	// a different size holds different rows.
	cacheKey := "q:" + query + ":" + params.Get("page") + ":" + params.Get("page_size")
	err := c.get(ctx, "supplier_search", "/api/suppliers", params,
		respcache.TableSuppliers, cacheKey, respcache.TTLSuppliers, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Suppliers, nil
}

// SupplierTransactions fetches outstanding transactions for one supplier
// account. This endpoint family uses limit/offset pagination on the wire.
func (c *Client) SupplierTransactions(ctx context.Context, account string, page Page) ([]domain.SupplierTransaction, error) {
	params := url.Values{}
	page.encodeLimitOffset(params)

	var resp struct {
		Transactions []domain.SupplierTransaction `json:"transactions"`
	}
	cacheKey := account + ":" + params.Get("offset") + ":" + params.Get("limit")
	err := c.get(ctx, "supplier_transactions", "/api/suppliers/"+url.PathEscape(account)+"/transactions", params,
		respcache.TableSupplierTransactions, cacheKey, respcache.TTLSupplierTransactions, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}
