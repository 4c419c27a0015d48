// Package metrics tracks collection and plotting activity for the stats panel.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// Run status values.
const (
	StatusIdle       = "idle"
	StatusFetching   = "fetching"
	StatusPersisting = "persisting"
	StatusPlotting   = "plotting"
)

// WalletActivity summarizes the latest collection of one wallet.
type WalletActivity struct {
	Name          string
	Address       string
	Records       int
	MarketsSaved  int
	MarketsSkip   int
	LastCollected time.Time
	LastDuration  time.Duration
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	RunsTotal         int64
	PagesFetched      int64
	RecordsFetched    int64
	DuplicatesRemoved int64
	MarketsSaved      int64
	MarketsSkipped    int64
	PlotsRendered     int64
	ErrorsByKind      map[string]int64
	Status            string
	CurrentWallet     string
	LastError         string
	LastErrorAt       time.Time
	Wallets           []WalletActivity
	Uptime            time.Duration
}

// MetricsTracker provides thread-safe metrics tracking.
type MetricsTracker struct {
	mu                sync.RWMutex
	runsTotal         int64
	pagesFetched      int64
	recordsFetched    int64
	duplicatesRemoved int64
	marketsSaved      int64
	marketsSkipped    int64
	plotsRendered     int64
	errorsByKind      map[string]int64
	status            string
	currentWallet     string
	lastError         string
	lastErrorAt       time.Time
	wallets           map[string]*WalletActivity
	startTime         time.Time
}

// NewMetricsTracker creates a new MetricsTracker.
func NewMetricsTracker() *MetricsTracker {
	return &MetricsTracker{
		errorsByKind: make(map[string]int64),
		wallets:      make(map[string]*WalletActivity),
		status:       StatusIdle,
		startTime:    time.Now(),
	}
}

// StartRun marks the beginning of a wallet collection.
func (m *MetricsTracker) StartRun(wallet string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runsTotal++
	m.status = StatusFetching
	m.currentWallet = wallet
}

// SetStatus sets the current activity.
func (m *MetricsTracker) SetStatus(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
}

// RecordPage counts one fetched page of count records.
func (m *MetricsTracker) RecordPage(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pagesFetched++
	m.recordsFetched += int64(count)
}

// RecordDuplicates counts records removed by deduplication.
func (m *MetricsTracker) RecordDuplicates(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duplicatesRemoved += int64(n)
}

// FinishRun records a completed wallet collection and returns to idle.
func (m *MetricsTracker) FinishRun(name, address string, records, saved, skipped int, took time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.marketsSaved += int64(saved)
	m.marketsSkipped += int64(skipped)

	m.wallets[name] = &WalletActivity{
		Name:          name,
		Address:       address,
		Records:       records,
		MarketsSaved:  saved,
		MarketsSkip:   skipped,
		LastCollected: time.Now(),
		LastDuration:  took,
	}
	m.status = StatusIdle
	m.currentWallet = ""
}

// IncrementPlots counts a rendered chart.
func (m *MetricsTracker) IncrementPlots() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plotsRendered++
}

// RecordError counts a failure of the given kind and returns to idle.
func (m *MetricsTracker) RecordError(kind string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorsByKind[kind]++
	if err != nil {
		m.lastError = err.Error()
	}
	m.lastErrorAt = time.Now()
	m.status = StatusIdle
	m.currentWallet = ""
}

// Snapshot returns a point-in-time snapshot of metrics.
func (m *MetricsTracker) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	errorsCopy := make(map[string]int64, len(m.errorsByKind))
	for k, v := range m.errorsByKind {
		errorsCopy[k] = v
	}

	wallets := make([]WalletActivity, 0, len(m.wallets))
	for _, w := range m.wallets {
		wallets = append(wallets, *w)
	}
	// most recent first
	sort.Slice(wallets, func(i, j int) bool {
		if wallets[i].LastCollected.Equal(wallets[j].LastCollected) {
			return wallets[i].Name < wallets[j].Name
		}
		return wallets[i].LastCollected.After(wallets[j].LastCollected)
	})

	return MetricsSnapshot{
		RunsTotal:         m.runsTotal,
		PagesFetched:      m.pagesFetched,
		RecordsFetched:    m.recordsFetched,
		DuplicatesRemoved: m.duplicatesRemoved,
		MarketsSaved:      m.marketsSaved,
		MarketsSkipped:    m.marketsSkipped,
		PlotsRendered:     m.plotsRendered,
		ErrorsByKind:      errorsCopy,
		Status:            m.status,
		CurrentWallet:     m.currentWallet,
		LastError:         m.lastError,
		LastErrorAt:       m.lastErrorAt,
		Wallets:           wallets,
		Uptime:            time.Since(m.startTime),
	}
}
