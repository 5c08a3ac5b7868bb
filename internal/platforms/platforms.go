// Package platforms holds the per-platform policy records and wires each one
// to the shared session engine. A platform here is a Policy value plus an
// extraction call — never a subclass.
package platforms

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/clipforge/ingest/internal/extract"
	"github.com/clipforge/ingest/internal/ingest"
)

// Adapter is one platform's entry point: policy + prober, executed by the
// generic engine.
type Adapter struct {
	Policy ingest.Policy
	prober ingest.Prober
	engine *ingest.Engine
}

// GetDownloadURL resolves a source URL into a local-copy descriptor, running
// the full cache → slot → lease → retry session under the platform's policy.
func (a *Adapter) GetDownloadURL(ctx context.Context, sourceURL string) (*ingest.DownloadResult, error) {
	return a.engine.Resolve(ctx, a.Policy, a.prober, sourceURL)
}

// Registry maps platform names to adapters.
type Registry struct {
	adapters map[string]*Adapter
}

// NewRegistry builds the four supported adapters. media probes the streaming
// platforms (yt-dlp); drive handles Google Drive's single metadata probe.
// Call Bind with the session engine before resolving: the governor inside the
// engine is itself configured from this registry's PlatformConfigs.
func NewRegistry(media, drive ingest.Prober) *Registry {
	r := &Registry{adapters: make(map[string]*Adapter)}
	r.register(twitchPolicy(), rateLimited(media, twitchRate))
	r.register(kickPolicy(), rateLimited(media, kickRate))
	r.register(rumblePolicy(), rateLimited(media, rumbleRate))
	r.register(drivePolicy(), drive)
	return r
}

func (r *Registry) register(pol ingest.Policy, prober ingest.Prober) {
	r.adapters[pol.Platform] = &Adapter{Policy: pol, prober: prober}
}

// rateLimited adds per-process request smoothing in front of a prober; the
// distributed cap lives in the governor, this just spaces the calls out.
func rateLimited(p ingest.Prober, limit rate.Limit) ingest.Prober {
	return extract.WithRateLimit(p, rate.NewLimiter(limit, 1))
}

// Bind attaches the session engine to every adapter. Split from NewRegistry
// so the governor can be configured from the registry's own policies.
func (r *Registry) Bind(engine *ingest.Engine) {
	for _, a := range r.adapters {
		a.engine = engine
	}
}

// Adapter returns the adapter for a known platform name.
func (r *Registry) Adapter(platform string) (*Adapter, bool) {
	a, ok := r.adapters[platform]
	return a, ok
}

// For picks the adapter matching a source URL's host.
func (r *Registry) For(sourceURL string) (*Adapter, error) {
	platform, ok := ingest.DetectPlatform(sourceURL)
	if !ok {
		return nil, fmt.Errorf("unsupported source url: %s", sourceURL)
	}
	a, ok := r.adapters[platform]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for platform %s", platform)
	}
	return a, nil
}

// Resolve detects the platform and runs its session.
func (r *Registry) Resolve(ctx context.Context, sourceURL string) (*ingest.DownloadResult, error) {
	a, err := r.For(sourceURL)
	if err != nil {
		return nil, err
	}
	return a.GetDownloadURL(ctx, sourceURL)
}

// PlatformConfigs lists the static concurrency records for the governor.
func (r *Registry) PlatformConfigs() []ingest.PlatformConfig {
	out := make([]ingest.PlatformConfig, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a.Policy.Config())
	}
	return out
}
