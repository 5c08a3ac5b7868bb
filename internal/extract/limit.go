package extract

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/clipforge/ingest/internal/ingest"
)

// limitedProber smooths the local request rate toward one platform on top of
// the distributed concurrency cap. The governor bounds how many probes run at
// once; this bounds how fast a single process issues them.
type limitedProber struct {
	inner   ingest.Prober
	limiter *rate.Limiter
}

// WithRateLimit wraps a prober with a per-process token bucket.
func WithRateLimit(p ingest.Prober, limiter *rate.Limiter) ingest.Prober {
	if limiter == nil {
		return p
	}
	return &limitedProber{inner: p, limiter: limiter}
}

func (l *limitedProber) Probe(ctx context.Context, req ingest.ProbeRequest) (*ingest.ProbeResult, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}
	return l.inner.Probe(ctx, req)
}
