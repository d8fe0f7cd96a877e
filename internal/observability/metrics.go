package observability

import "sync"

// ResolutionStats aggregates resolution outcomes for one chain.
type ResolutionStats struct {
	Completed     int64 `json:"completed"`
	Failed        int64 `json:"failed"`
	Cancelled     int64 `json:"cancelled"`
	Rejected      int64 `json:"rejected"`
	TotalAttempts int64 `json:"total_attempts"`
	TotalLatency  int64 `json:"total_latency_ms"`
}

// Metrics collects in-process resolution metrics, keyed by chain name.
type Metrics struct {
	mu     sync.Mutex
	chains map[string]*ResolutionStats
}

// NewMetrics creates an empty metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{chains: make(map[string]*ResolutionStats)}
}

// RecordResolution records one finished resolution.
func (m *Metrics) RecordResolution(chain, status string, attempts, latencyMs int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats, ok := m.chains[chain]
	if !ok {
		stats = &ResolutionStats{}
		m.chains[chain] = stats
	}

	switch status {
	case "completed":
		stats.Completed++
	case "failed":
		stats.Failed++
	case "cancelled":
		stats.Cancelled++
	case "rejected":
		stats.Rejected++
	}
	stats.TotalAttempts += int64(attempts)
	stats.TotalLatency += int64(latencyMs)
}

// Snapshot returns a copy of the per-chain stats.
func (m *Metrics) Snapshot() map[string]ResolutionStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]ResolutionStats, len(m.chains))
	for chain, stats := range m.chains {
		out[chain] = *stats
	}
	return out
}
