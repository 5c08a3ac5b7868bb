package proxy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/ingest/internal/ingest"
)

// Manager implements ingest.LeaseManager over a fixed endpoint list with
// round-robin checkout. Success/failure reports adjust per-endpoint counters
// and are otherwise advisory.
type Manager struct {
	mu        sync.Mutex
	endpoints []Endpoint
	next      int
	failures  map[string]int64    // endpoint URL → reported failures
	active    map[string]Endpoint // lease id → endpoint
}

func NewManager(endpoints []Endpoint) *Manager {
	return &Manager{
		endpoints: endpoints,
		failures:  make(map[string]int64),
		active:    make(map[string]Endpoint),
	}
}

// Len reports the configured endpoint count.
func (m *Manager) Len() int { return len(m.endpoints) }

// Acquire checks out the next endpoint in rotation.
func (m *Manager) Acquire(ctx context.Context, platform string) (*ingest.Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.endpoints) == 0 {
		return nil, fmt.Errorf("proxy: no endpoints configured")
	}

	ep := m.endpoints[m.next%len(m.endpoints)]
	m.next++

	lease := &ingest.Lease{
		ID:         uuid.NewString(),
		Platform:   platform,
		ProxyURL:   ep.URL(),
		AcquiredAt: time.Now(),
	}
	m.active[lease.ID] = ep
	slog.Debug("proxy: lease acquired",
		slog.String("platform", platform),
		slog.String("lease", lease.ID),
		slog.String("host", ep.Host))
	return lease, nil
}

// Release returns the endpoint to rotation. Safe on an already-released lease.
func (m *Manager) Release(l *ingest.Lease) {
	if l == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.active[l.ID]; !ok {
		return
	}
	delete(m.active, l.ID)
	slog.Debug("proxy: lease released",
		slog.String("lease", l.ID),
		slog.Duration("held", time.Since(l.AcquiredAt)))
}

// RecordSuccess notes a working endpoint.
func (m *Manager) RecordSuccess(l *ingest.Lease) {
	if l == nil {
		return
	}
	slog.Debug("proxy: success reported", slog.String("lease", l.ID), slog.String("platform", l.Platform))
}

// RecordFailure counts a failed endpoint so operators can spot dead proxies.
func (m *Manager) RecordFailure(l *ingest.Lease, err error) {
	if l == nil {
		return
	}
	m.mu.Lock()
	m.failures[l.ProxyURL]++
	count := m.failures[l.ProxyURL]
	m.mu.Unlock()
	slog.Warn("proxy: failure reported",
		slog.String("lease", l.ID),
		slog.String("platform", l.Platform),
		slog.Int64("endpoint_failures", count),
		slog.Any("error", err))
}

// Failures snapshots per-endpoint failure counts.
func (m *Manager) Failures() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int64, len(m.failures))
	for k, v := range m.failures {
		out[k] = v
	}
	return out
}
