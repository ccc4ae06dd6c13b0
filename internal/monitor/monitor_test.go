package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcalder/ledgerlens/internal/api"
	"github.com/jcalder/ledgerlens/internal/events"
	"github.com/jcalder/ledgerlens/internal/reconcile"
)

const reconciledPayload = `{
	"success": true,
	"reconciliation_date": "2026-03-31",
	"ledger_side": {
		"source": "purchase_ledger",
		"total_outstanding": 1000.00,
		"transaction_count": 4,
		"breakdown_by_type": [
			{"type": "INV", "description": "Invoice", "count": 4, "total": 1000.00}
		]
	},
	"nominal_ledger": {
		"source": "nominal_ledger",
		"control_accounts": [],
		"total_balance": 1000.00
	},
	"variance": {"amount": 0, "absolute": 0, "reconciled": true, "has_pending_transfers": false}
}`

const unreconciledPayload = `{
	"success": true,
	"reconciliation_date": "2026-03-31",
	"ledger_side": {
		"source": "purchase_ledger",
		"total_outstanding": 1050.00,
		"transaction_count": 4,
		"breakdown_by_type": [
			{"type": "INV", "description": "Invoice", "count": 4, "total": 1050.00}
		]
	},
	"nominal_ledger": {
		"source": "nominal_ledger",
		"control_accounts": [],
		"total_balance": 1000.00
	},
	"variance": {"amount": 50.00, "absolute": 50.00, "reconciled": false, "has_pending_transfers": false}
}`

func newMonitor(t *testing.T, handler http.Handler, keys []string) (*Monitor, *events.Bus) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := api.New(srv.URL, nil, zerolog.Nop())
	checker := reconcile.NewChecker(nil, zerolog.Nop())
	bus := events.NewBus(zerolog.Nop())
	return New(client, checker, bus, keys, zerolog.Nop()), bus
}

func TestRefreshStoresSnapshot(t *testing.T) {
	m, bus := newMonitor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(reconciledPayload))
	}), []string{KeyPurchase})

	var mu sync.Mutex
	var updated []*events.Event
	bus.Subscribe(events.SnapshotUpdated, func(event *events.Event) {
		mu.Lock()
		updated = append(updated, event)
		mu.Unlock()
	})

	require.NoError(t, m.Refresh(context.Background(), KeyPurchase))

	snapshot, ok := m.Snapshot(KeyPurchase)
	require.True(t, ok)
	assert.Equal(t, reconcile.StatusReconciled, snapshot.Status)
	assert.Equal(t, "Reconciled", snapshot.Summary)
	assert.NotEmpty(t, snapshot.RunID)
	assert.Empty(t, snapshot.Error)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, updated, 1)
	assert.Equal(t, KeyPurchase, updated[0].Data["key"])
}

func TestRefreshUnknownKey(t *testing.T) {
	m, _ := newMonitor(t, http.NotFoundHandler(), []string{KeyPurchase})
	err := m.Refresh(context.Background(), "bank:UNKNOWN")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestStatusChangeEmitsEvent(t *testing.T) {
	var calls atomic.Int64
	m, bus := newMonitor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Write([]byte(reconciledPayload))
			return
		}
		w.Write([]byte(unreconciledPayload))
	}), []string{KeyPurchase})

	var mu sync.Mutex
	var changes []*events.Event
	bus.Subscribe(events.StatusChanged, func(event *events.Event) {
		mu.Lock()
		changes = append(changes, event)
		mu.Unlock()
	})

	require.NoError(t, m.Refresh(context.Background(), KeyPurchase))
	require.NoError(t, m.Refresh(context.Background(), KeyPurchase))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, changes, 1)
	assert.Equal(t, string(reconcile.StatusReconciled), changes[0].Data["old_status"])
	assert.Equal(t, string(reconcile.StatusUnreconciled), changes[0].Data["new_status"])
}

func TestOverlapSuppression(t *testing.T) {
	var requests atomic.Int64
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	m, _ := newMonitor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		w.Write([]byte(reconciledPayload))
	}), []string{KeyPurchase})

	done := make(chan error, 1)
	go func() {
		done <- m.Refresh(context.Background(), KeyPurchase)
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("first poll never reached the backend")
	}

	// Second tick while the first poll is in flight: skipped, no new fetch.
	require.NoError(t, m.Refresh(context.Background(), KeyPurchase))
	assert.Equal(t, int64(1), requests.Load())

	close(release)
	require.NoError(t, <-done)
}

func TestFailureIsolation(t *testing.T) {
	m, bus := newMonitor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/reconciliation/purchase" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(reconciledPayload))
	}), []string{KeyPurchase, KeySales})

	var mu sync.Mutex
	var failures []*events.Event
	bus.Subscribe(events.PollFailed, func(event *events.Event) {
		mu.Lock()
		failures = append(failures, event)
		mu.Unlock()
	})

	m.RefreshAll(context.Background())

	// The purchase failure is recorded; the sales pairing still refreshed.
	purchase, ok := m.Snapshot(KeyPurchase)
	require.True(t, ok)
	assert.NotEmpty(t, purchase.Error)

	sales, ok := m.Snapshot(KeySales)
	require.True(t, ok)
	assert.Equal(t, reconcile.StatusReconciled, sales.Status)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, failures, 1)
	assert.Equal(t, KeyPurchase, failures[0].Data["key"])
	assert.Equal(t, "transport", failures[0].Data["kind"])
}

func TestSnapshotsOrdering(t *testing.T) {
	m, _ := newMonitor(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(reconciledPayload))
	}), []string{KeySales, KeyPurchase})

	m.RefreshAll(context.Background())

	snapshots := m.Snapshots()
	require.Len(t, snapshots, 2)
	assert.Equal(t, KeyPurchase, snapshots[0].Key)
	assert.Equal(t, KeySales, snapshots[1].Key)
}
