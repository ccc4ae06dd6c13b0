// Package monitor polls reconciliation endpoints on a schedule and keeps the
// latest checked snapshot per pairing.
package monitor

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jcalder/ledgerlens/internal/api"
	"github.com/jcalder/ledgerlens/internal/domain"
	"github.com/jcalder/ledgerlens/internal/events"
	"github.com/jcalder/ledgerlens/internal/reconcile"
)

// Pairing keys. Bank pairings are "bank:" plus the account code.
const (
	KeyPurchase   = "purchase"
	KeySales      = "sales"
	bankKeyPrefix = "bank:"
)

// Snapshot is the latest checked state of one reconciliation pairing.
type Snapshot struct {
	Key       string              `json:"key"`
	RunID     string              `json:"run_id"`
	FetchedAt time.Time           `json:"fetched_at"`
	Status    reconcile.Status    `json:"status"`
	Summary   string              `json:"summary"`
	Currency  string              `json:"currency"`
	Variance  decimal.Decimal     `json:"variance"`
	Findings  []reconcile.Finding `json:"findings,omitempty"`
	Legs      []reconcile.BankLeg `json:"legs,omitempty"`
	Error     string              `json:"error,omitempty"`
}

// Monitor drives the polling cycle. A pairing whose fetch is still in flight
// is skipped on the next tick rather than queued behind it.
type Monitor struct {
	client  *api.Client
	checker *reconcile.Checker
	bus     *events.Bus
	log     zerolog.Logger

	mu        sync.Mutex
	snapshots map[string]Snapshot
	inflight  map[string]bool
	keys      []string
}

// New creates a monitor for the given pairing keys.
func New(client *api.Client, checker *reconcile.Checker, bus *events.Bus, keys []string, log zerolog.Logger) *Monitor {
	return &Monitor{
		client:    client,
		checker:   checker,
		bus:       bus,
		keys:      keys,
		snapshots: make(map[string]Snapshot),
		inflight:  make(map[string]bool),
		log:       log.With().Str("component", "monitor").Logger(),
	}
}

// BankKey builds the pairing key for a bank account code.
func BankKey(accountCode string) string {
	return bankKeyPrefix + accountCode
}

// Keys returns the configured pairing keys.
func (m *Monitor) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// RefreshAll polls every configured pairing. A failure in one pairing is
// recorded in its snapshot and does not stop the others.
func (m *Monitor) RefreshAll(ctx context.Context) {
	for _, key := range m.keys {
		if err := m.Refresh(ctx, key); err != nil {
			m.log.Error().Err(err).Str("key", key).Msg("Poll failed")
		}
	}
}

// ErrUnknownKey is returned when a refresh names a pairing the monitor was
// not configured with.
var ErrUnknownKey = errors.New("unknown pairing key")

// Refresh polls one pairing now. Returns nil without fetching when a poll for
// the same key is already in flight.
func (m *Monitor) Refresh(ctx context.Context, key string) error {
	if !m.knownKey(key) {
		return ErrUnknownKey
	}

	m.mu.Lock()
	if m.inflight[key] {
		m.mu.Unlock()
		m.log.Debug().Str("key", key).Msg("Poll already in flight, skipping")
		return nil
	}
	m.inflight[key] = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.inflight, key)
		m.mu.Unlock()
	}()

	snapshot, err := m.poll(ctx, key)
	if err != nil {
		snapshot = Snapshot{
			Key:       key,
			RunID:     uuid.New().String(),
			FetchedAt: time.Now(),
			Error:     err.Error(),
		}
		m.store(snapshot)
		m.bus.EmitTyped(events.PollFailed, "monitor", &events.PollFailedData{
			Key:   key,
			Error: err.Error(),
			Kind:  errorKind(err),
		})
		return err
	}

	previous, existed := m.Snapshot(key)
	m.store(snapshot)

	if existed && previous.Status != snapshot.Status {
		m.bus.EmitTyped(events.StatusChanged, "monitor", &events.StatusChangedData{
			Key:       key,
			OldStatus: string(previous.Status),
			NewStatus: string(snapshot.Status),
		})
	}

	variance, _ := snapshot.Variance.Float64()
	m.bus.EmitTyped(events.SnapshotUpdated, "monitor", &events.SnapshotUpdatedData{
		Key:      key,
		RunID:    snapshot.RunID,
		Status:   string(snapshot.Status),
		Variance: variance,
		Currency: snapshot.Currency,
		Summary:  snapshot.Summary,
	})

	return nil
}

func (m *Monitor) poll(ctx context.Context, key string) (Snapshot, error) {
	if code, ok := strings.CutPrefix(key, bankKeyPrefix); ok {
		resp, err := m.client.BankReconciliation(ctx, code, "")
		if err != nil {
			return Snapshot{}, err
		}
		report := m.checker.CheckBank(resp)
		return bankSnapshot(key, &report), nil
	}

	var (
		resp *domain.ReconciliationResponse
		err  error
	)
	switch key {
	case KeyPurchase:
		resp, err = m.client.PurchaseLedgerReconciliation(ctx, "")
	case KeySales:
		resp, err = m.client.SalesLedgerReconciliation(ctx, "")
	default:
		return Snapshot{}, ErrUnknownKey
	}
	if err != nil {
		return Snapshot{}, err
	}

	report := m.checker.Check(resp)
	return ledgerSnapshot(key, &report), nil
}

func (m *Monitor) knownKey(key string) bool {
	for _, k := range m.keys {
		if k == key {
			return true
		}
	}
	return false
}

func (m *Monitor) store(snapshot Snapshot) {
	m.mu.Lock()
	m.snapshots[snapshot.Key] = snapshot
	m.mu.Unlock()
}

// Snapshot returns the latest snapshot for a pairing key.
func (m *Monitor) Snapshot(key string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snapshots[key]
	return s, ok
}

// Snapshots returns all current snapshots ordered by key.
func (m *Monitor) Snapshots() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Snapshot, 0, len(m.snapshots))
	for _, s := range m.snapshots {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func ledgerSnapshot(key string, report *reconcile.Report) Snapshot {
	return Snapshot{
		Key:       key,
		RunID:     uuid.New().String(),
		FetchedAt: time.Now(),
		Status:    report.Status,
		Summary:   report.Summary(),
		Currency:  report.Currency,
		Variance:  report.Variance,
		Findings:  report.Findings,
	}
}

func bankSnapshot(key string, report *reconcile.BankReport) Snapshot {
	snapshot := Snapshot{
		Key:       key,
		RunID:     uuid.New().String(),
		FetchedAt: time.Now(),
		Status:    report.Status,
		Summary:   report.Summary(),
		Currency:  report.Currency,
		Findings:  report.Findings,
		Legs:      report.Legs,
	}
	// Worst leg stands in for the headline variance figure.
	for _, leg := range report.Legs {
		if leg.Variance.Abs().GreaterThan(snapshot.Variance.Abs()) {
			snapshot.Variance = leg.Variance
		}
	}
	return snapshot
}

func errorKind(err error) string {
	switch {
	case api.IsTransport(err):
		return "transport"
	case api.IsDomain(err):
		return "domain"
	default:
		return ""
	}
}
