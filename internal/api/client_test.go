package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcalder/ledgerlens/internal/respcache"
)

const purchasePayload = `{
	"success": true,
	"reconciliation_date": "2026-03-31",
	"ledger_side": {
		"source": "purchase_ledger",
		"total_outstanding": 12345.67,
		"transaction_count": 10,
		"breakdown_by_type": [
			{"type": "INV", "description": "Invoice", "count": 10, "total": 12345.67}
		]
	},
	"nominal_ledger": {
		"source": "nominal_ledger",
		"control_accounts": [],
		"total_balance": 12300.00
	},
	"variance": {"amount": 45.67, "absolute": 45.67, "reconciled": false, "has_pending_transfers": false}
}`

func newTestCache(t *testing.T) *respcache.Repository {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := respcache.NewRepository(db)
	require.NoError(t, repo.EnsureSchema())
	return repo
}

func TestPurchaseLedgerReconciliation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/reconciliation/purchase", r.URL.Path)
		assert.Equal(t, "2026-03-31", r.URL.Query().Get("date"))
		w.Write([]byte(purchasePayload))
	}))
	defer srv.Close()

	client := New(srv.URL, nil, zerolog.Nop())
	resp, err := client.PurchaseLedgerReconciliation(context.Background(), "2026-03-31")
	require.NoError(t, err)

	require.NotNil(t, resp.LedgerSide)
	assert.Equal(t, 12345.67, resp.LedgerSide.TotalOutstanding)
	assert.Equal(t, 12300.00, resp.NominalLedger.TotalBalance)
	assert.Equal(t, 45.67, resp.Variance.Amount)
	assert.False(t, resp.Variance.Reconciled)
}

func TestFetchIdempotence(t *testing.T) {
	// The gateway must not transform numeric fields: two fetches of an
	// unchanged payload decode identically.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(purchasePayload))
	}))
	defer srv.Close()

	client := New(srv.URL, nil, zerolog.Nop())
	first, err := client.PurchaseLedgerReconciliation(context.Background(), "")
	require.NoError(t, err)
	second, err := client.PurchaseLedgerReconciliation(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDomainError(t *testing.T) {
	// Domain failures arrive with HTTP 200; the success flag is the signal.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": false, "error": "no SQL connector configured"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, nil, zerolog.Nop())
	_, err := client.PurchaseLedgerReconciliation(context.Background(), "")
	require.Error(t, err)

	assert.True(t, IsDomain(err))
	assert.False(t, IsTransport(err))
	assert.Contains(t, err.Error(), "no SQL connector configured")
}

func TestTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(srv.URL, nil, zerolog.Nop())
	_, err := client.PurchaseLedgerReconciliation(context.Background(), "")
	require.Error(t, err)

	assert.True(t, IsTransport(err))
	assert.False(t, IsDomain(err))
}

func TestInflightDeduplication(t *testing.T) {
	var requests atomic.Int64
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		<-release
		w.Write([]byte(purchasePayload))
	}))
	defer srv.Close()

	client := New(srv.URL, nil, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.PurchaseLedgerReconciliation(context.Background(), "2026-03-31")
			assert.NoError(t, err)
		}()
	}

	// Give the goroutines time to pile onto the same key, then let the one
	// real request proceed.
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), requests.Load())
}

func TestCacheReadThrough(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(purchasePayload))
	}))
	defer srv.Close()

	cache := newTestCache(t)
	client := New(srv.URL, cache, zerolog.Nop())

	first, err := client.PurchaseLedgerReconciliation(context.Background(), "2026-03-31")
	require.NoError(t, err)
	second, err := client.PurchaseLedgerReconciliation(context.Background(), "2026-03-31")
	require.NoError(t, err)

	assert.Equal(t, int64(1), requests.Load())
	assert.Equal(t, first, second)
}

func TestStaleCacheFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down for maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cache := newTestCache(t)
	// Seed an already-expired entry: fresh reads miss it, the fallback path
	// still finds it.
	require.NoError(t, cache.Store(respcache.TableReconciliation, "purchase:2026-03-31",
		json.RawMessage(purchasePayload), -time.Minute))

	client := New(srv.URL, cache, zerolog.Nop())
	resp, err := client.PurchaseLedgerReconciliation(context.Background(), "2026-03-31")
	require.NoError(t, err)
	assert.Equal(t, 12345.67, resp.LedgerSide.TotalOutstanding)
}

func TestDomainErrorNotCached(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(`{"success": false, "error": "period locked"}`))
	}))
	defer srv.Close()

	cache := newTestCache(t)
	client := New(srv.URL, cache, zerolog.Nop())

	_, err := client.PurchaseLedgerReconciliation(context.Background(), "2026-03-31")
	require.True(t, IsDomain(err))
	_, err = client.PurchaseLedgerReconciliation(context.Background(), "2026-03-31")
	require.True(t, IsDomain(err))

	// A domain failure is a meaningful answer but not a cacheable payload.
	assert.Equal(t, int64(2), requests.Load())
}

func TestPaginationFamilies(t *testing.T) {
	var supplierQuery, transactionsQuery string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/suppliers":
			supplierQuery = r.URL.RawQuery
			w.Write([]byte(`{"success": true, "suppliers": []}`))
		case "/api/suppliers/SMI001/transactions":
			transactionsQuery = r.URL.RawQuery
			w.Write([]byte(`{"success": true, "transactions": []}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := New(srv.URL, nil, zerolog.Nop())

	_, err := client.SearchSuppliers(context.Background(), "smith", Page{Limit: 25, Offset: 50})
	require.NoError(t, err)
	_, err = client.SupplierTransactions(context.Background(), "SMI001", Page{Limit: 25, Offset: 50})
	require.NoError(t, err)

	// Same normalized Page, two wire encodings.
	assert.Contains(t, supplierQuery, "page=3")
	assert.Contains(t, supplierQuery, "page_size=25")
	assert.Contains(t, supplierQuery, "search=smith")
	assert.Contains(t, transactionsQuery, "limit=25")
	assert.Contains(t, transactionsQuery, "offset=50")
}

func TestPageSizePartOfCacheKey(t *testing.T) {
	// Two fetches differing only in page size must not share a cache entry:
	// the same offset at a different limit holds different rows.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		field, sizeParam := "transactions", "limit"
		if r.URL.Path == "/api/suppliers" {
			field, sizeParam = "suppliers", "page_size"
		}
		size, err := strconv.Atoi(r.URL.Query().Get(sizeParam))
		require.NoError(t, err)

		rows := make([]string, size)
		for i := range rows {
			rows[i] = fmt.Sprintf(`{"reference": "ROW%04d"}`, i)
		}
		fmt.Fprintf(w, `{"success": true, "%s": [%s]}`, field, strings.Join(rows, ","))
	}))
	defer srv.Close()

	cache := newTestCache(t)
	client := New(srv.URL, cache, zerolog.Nop())

	small, err := client.SupplierTransactions(context.Background(), "SMI001", Page{Limit: 5})
	require.NoError(t, err)
	require.Len(t, small, 5)

	large, err := client.SupplierTransactions(context.Background(), "SMI001", Page{Limit: 50})
	require.NoError(t, err)
	assert.Len(t, large, 50)

	pageOne, err := client.SearchSuppliers(context.Background(), "smith", Page{Limit: 5})
	require.NoError(t, err)
	require.Len(t, pageOne, 5)

	pageTwo, err := client.SearchSuppliers(context.Background(), "smith", Page{Limit: 50})
	require.NoError(t, err)
	assert.Len(t, pageTwo, 50)
}

func TestCompanies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"success": true,
			"companies": [
				{"code": "01", "name": "Alpha Ltd", "currency": "GBP",
				 "year_end": "2026-03-31",
				 "modules": {"creditors_control": true, "bank_reconciliation": true}}
			]
		}`))
	}))
	defer srv.Close()

	client := New(srv.URL, nil, zerolog.Nop())
	companies, err := client.Companies(context.Background())
	require.NoError(t, err)
	require.Len(t, companies, 1)

	assert.Equal(t, "Alpha Ltd", companies[0].Name)
	assert.True(t, companies[0].Modules.CreditorsControl)
	assert.False(t, companies[0].Modules.DebtorsControl)
	require.NotNil(t, companies[0].YearEnd)
	assert.Equal(t, "2026-03-31", *companies[0].YearEnd)
}
