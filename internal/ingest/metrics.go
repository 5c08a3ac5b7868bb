package ingest

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// Metrics tracks operational counters across the ingest core.
var metrics struct {
	ResolveRequests     atomic.Int64
	CacheHits           atomic.Int64
	CacheMisses         atomic.Int64
	SlotsAcquired       atomic.Int64
	SlotTimeouts        atomic.Int64
	FailOpenGrants      atomic.Int64
	StaleSlotsReclaimed atomic.Int64
	ExtractionAttempts  atomic.Int64
	ExtractionErrors    atomic.Int64
	DirectHits          atomic.Int64
	ProxyFallbacks      atomic.Int64
}

// GetMetrics returns a snapshot of all counters.
func GetMetrics() map[string]int64 {
	return map[string]int64{
		"resolve_requests":      metrics.ResolveRequests.Load(),
		"cache_hits":            metrics.CacheHits.Load(),
		"cache_misses":          metrics.CacheMisses.Load(),
		"slots_acquired":        metrics.SlotsAcquired.Load(),
		"slot_timeouts":         metrics.SlotTimeouts.Load(),
		"fail_open_grants":      metrics.FailOpenGrants.Load(),
		"stale_slots_reclaimed": metrics.StaleSlotsReclaimed.Load(),
		"extraction_attempts":   metrics.ExtractionAttempts.Load(),
		"extraction_errors":     metrics.ExtractionErrors.Load(),
		"direct_hits":           metrics.DirectHits.Load(),
		"proxy_fallbacks":       metrics.ProxyFallbacks.Load(),
	}
}

// FormatMetrics returns counters as simple text for the HTTP endpoint.
func FormatMetrics() string {
	m := GetMetrics()
	keys := []string{
		"resolve_requests",
		"cache_hits", "cache_misses",
		"slots_acquired", "slot_timeouts", "fail_open_grants", "stale_slots_reclaimed",
		"extraction_attempts", "extraction_errors",
		"direct_hits", "proxy_fallbacks",
	}
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s %d\n", k, m[k])
	}
	return sb.String()
}
