package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	defaultMarkerTTL = time.Hour
	defaultJitterMin = time.Second
	defaultJitterMax = 2 * time.Second
)

// Slot is one unit of a platform's concurrency budget, held from a successful
// acquire until release or stale-slot reclamation.
type Slot struct {
	Platform   string
	ID         string
	AcquiredAt time.Time

	// unmanaged marks a slot granted while the store was unreachable
	// (fail-open mode); releasing it touches nothing.
	unmanaged bool
	released  atomic.Bool
}

// GovernorConfig tunes the distributed semaphore. Zero values take the
// production defaults; tests shrink the jitter window.
type GovernorConfig struct {
	Platforms []PlatformConfig
	MarkerTTL time.Duration // safety TTL on per-slot existence markers
	JitterMin time.Duration // poll sleep lower bound between failed acquire iterations
	JitterMax time.Duration
}

// Governor enforces, across all processes sharing the coordination store,
// that no more than MaxConcurrent requests per platform are in flight.
//
// The acquire algorithm is optimistic: read the membership count, add a fresh
// slot id if below cap, re-read, and compensate (remove the id) if a
// concurrent acquirer pushed the count over. A brief over-count in the
// membership set is possible inside that window; granted slots stay within
// the cap because the loser of the race always backs out.
//
// When the store is unreachable the governor fails open: every request is
// granted unconditionally so ingestion never stalls behind a dead Redis. The
// mode is logged distinctly and exposed via Degraded().
type Governor struct {
	store     CoordinationStore
	platforms map[string]PlatformConfig
	markerTTL time.Duration
	jitterMin time.Duration
	jitterMax time.Duration
	degraded  atomic.Bool
}

func NewGovernor(store CoordinationStore, cfg GovernorConfig) *Governor {
	g := &Governor{
		store:     store,
		platforms: make(map[string]PlatformConfig, len(cfg.Platforms)),
		markerTTL: cfg.MarkerTTL,
		jitterMin: cfg.JitterMin,
		jitterMax: cfg.JitterMax,
	}
	for _, p := range cfg.Platforms {
		g.platforms[p.Name] = p
	}
	if g.markerTTL <= 0 {
		g.markerTTL = defaultMarkerTTL
	}
	if g.jitterMin <= 0 {
		g.jitterMin = defaultJitterMin
	}
	if g.jitterMax <= g.jitterMin {
		g.jitterMax = g.jitterMin + defaultJitterMax - defaultJitterMin
	}
	return g
}

func slotSetKey(platform string) string        { return "govern:slots:" + platform }
func slotMarkerKey(platform, id string) string { return "govern:slot:" + platform + ":" + id }

// AcquireSlot loops until a slot is obtained or timeout elapses. Waiters
// retry on independent jittered timers, so ordering among contenders is
// randomized rather than first-come-first-served.
func (g *Governor) AcquireSlot(ctx context.Context, platform string, timeout time.Duration) (*Slot, error) {
	cfg, ok := g.platforms[platform]
	if !ok {
		return nil, fmt.Errorf("governor: unknown platform %q", platform)
	}

	start := time.Now()
	deadline := start.Add(timeout)
	setKey := slotSetKey(platform)

	for {
		count, err := g.store.SetCard(ctx, setKey)
		if err != nil {
			return g.failOpen(platform, err), nil
		}
		g.markHealthy()

		if count < int64(cfg.MaxConcurrent) {
			slot, acquired := g.tryAdd(ctx, platform, cfg, setKey)
			if acquired {
				metrics.SlotsAcquired.Add(1)
				slog.Debug("governor: slot acquired",
					slog.String("platform", platform),
					slog.String("slot", slot.ID),
					slog.Duration("waited", time.Since(start)))
				return slot, nil
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			metrics.SlotTimeouts.Add(1)
			return nil, &AcquisitionTimeoutError{
				Platform: platform,
				Resource: "slot",
				Current:  count,
				Max:      cfg.MaxConcurrent,
				Waited:   time.Since(start),
			}
		}

		sleep := g.jitter()
		if sleep > remaining {
			sleep = remaining
		}
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return nil, fmt.Errorf("governor: acquire canceled for %s: %w", platform, ctx.Err())
		}
	}
}

// tryAdd performs one optimistic add-recheck-compensate round.
func (g *Governor) tryAdd(ctx context.Context, platform string, cfg PlatformConfig, setKey string) (*Slot, bool) {
	slot := &Slot{
		Platform:   platform,
		ID:         uuid.NewString(),
		AcquiredAt: time.Now(),
	}

	if err := g.store.SetAdd(ctx, setKey, slot.ID); err != nil {
		return g.failOpen(platform, err), true
	}
	// Existence marker with a safety TTL; if this holder crashes before
	// releasing, the stale-slot sweep reclaims the set entry once the
	// marker expires.
	if err := g.store.SetValue(ctx, slotMarkerKey(platform, slot.ID), slot.AcquiredAt.Format(time.RFC3339), g.markerTTL); err != nil {
		slog.Warn("governor: slot marker write failed",
			slog.String("platform", platform), slog.Any("error", err))
	}

	recount, err := g.store.SetCard(ctx, setKey)
	if err != nil {
		// Store died between add and recheck. Keep the grant; the marker
		// TTL bounds any leak.
		g.markDegraded(platform, err)
		return slot, true
	}
	if recount > int64(cfg.MaxConcurrent) {
		// Lost the race to a concurrent acquirer: back out and retry.
		if err := g.store.SetRemove(ctx, setKey, slot.ID); err != nil {
			slog.Warn("governor: compensating remove failed",
				slog.String("platform", platform), slog.Any("error", err))
		}
		_ = g.store.Delete(ctx, slotMarkerKey(platform, slot.ID))
		return nil, false
	}
	return slot, true
}

// ReleaseSlot removes the slot from the membership set. Idempotent: a second
// release of the same slot is a no-op, and removing an already-absent id
// cannot touch another holder's entry.
func (g *Governor) ReleaseSlot(ctx context.Context, slot *Slot) {
	if slot == nil || !slot.released.CompareAndSwap(false, true) {
		return
	}
	held := time.Since(slot.AcquiredAt)
	if slot.unmanaged {
		slog.Debug("governor: fail-open slot released",
			slog.String("platform", slot.Platform), slog.Duration("held", held))
		return
	}
	if err := g.store.SetRemove(ctx, slotSetKey(slot.Platform), slot.ID); err != nil {
		slog.Warn("governor: slot release failed, marker TTL will reclaim it",
			slog.String("platform", slot.Platform),
			slog.String("slot", slot.ID),
			slog.Any("error", err))
		return
	}
	_ = g.store.Delete(ctx, slotMarkerKey(slot.Platform, slot.ID))
	slog.Debug("governor: slot released",
		slog.String("platform", slot.Platform),
		slog.String("slot", slot.ID),
		slog.Duration("held", held))
}

// CurrentCount reads a platform's in-flight count from the store.
func (g *Governor) CurrentCount(ctx context.Context, platform string) (int64, error) {
	return g.store.SetCard(ctx, slotSetKey(platform))
}

// Utilization is one platform's live slot usage.
type Utilization struct {
	Current int64 `json:"current"`
	Max     int   `json:"max"`
}

// Stats reports utilization for every configured platform. Unreachable-store
// errors surface as zero counts; callers check Degraded() for the mode.
func (g *Governor) Stats(ctx context.Context) map[string]Utilization {
	out := make(map[string]Utilization, len(g.platforms))
	for name, cfg := range g.platforms {
		count, err := g.store.SetCard(ctx, slotSetKey(name))
		if err != nil {
			g.markDegraded(name, err)
			count = 0
		}
		out[name] = Utilization{Current: count, Max: cfg.MaxConcurrent}
	}
	return out
}

// CleanupStaleSlots sweeps every platform's membership set and removes ids
// whose existence marker has expired — slots leaked by a holder that crashed
// before releasing. Live markers are never touched.
func (g *Governor) CleanupStaleSlots(ctx context.Context) (int, error) {
	reclaimed := 0
	for platform := range g.platforms {
		members, err := g.store.SetMembers(ctx, slotSetKey(platform))
		if err != nil {
			return reclaimed, fmt.Errorf("governor: list slots for %s: %w", platform, err)
		}
		for _, id := range members {
			alive, err := g.store.Exists(ctx, slotMarkerKey(platform, id))
			if err != nil || alive {
				continue
			}
			if err := g.store.SetRemove(ctx, slotSetKey(platform), id); err != nil {
				slog.Warn("governor: stale slot remove failed",
					slog.String("platform", platform), slog.Any("error", err))
				continue
			}
			reclaimed++
			metrics.StaleSlotsReclaimed.Add(1)
			slog.Info("governor: reclaimed stale slot",
				slog.String("platform", platform), slog.String("slot", id))
		}
	}
	return reclaimed, nil
}

// RunCleanup sweeps on a fixed interval until ctx is canceled.
func (g *Governor) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := g.CleanupStaleSlots(ctx); err != nil {
				slog.Warn("governor: cleanup sweep failed", slog.Any("error", err))
			}
		case <-ctx.Done():
			return
		}
	}
}

// Degraded reports whether the governor is currently failing open because the
// coordination store is unreachable. Operators use this to distinguish
// "throttling active" from "throttling disabled".
func (g *Governor) Degraded() bool { return g.degraded.Load() }

func (g *Governor) failOpen(platform string, err error) *Slot {
	g.markDegraded(platform, err)
	metrics.FailOpenGrants.Add(1)
	return &Slot{
		Platform:   platform,
		ID:         uuid.NewString(),
		AcquiredAt: time.Now(),
		unmanaged:  true,
	}
}

func (g *Governor) markDegraded(platform string, err error) {
	if g.degraded.CompareAndSwap(false, true) {
		slog.Error("governor: coordination store unreachable, FAILING OPEN — platform throttling disabled",
			slog.String("platform", platform),
			slog.Any("error", err))
	}
}

func (g *Governor) markHealthy() {
	if g.degraded.CompareAndSwap(true, false) {
		slog.Info("governor: coordination store recovered, throttling active")
	}
}

func (g *Governor) jitter() time.Duration {
	spread := g.jitterMax - g.jitterMin
	return g.jitterMin + time.Duration(rand.Int63n(int64(spread)))
}
