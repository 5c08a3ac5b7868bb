package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultCacheTTL bounds how long a resolved DownloadResult stays servable.
// Platform media URLs carry signed expiries, so entries must not outlive them.
const DefaultCacheTTL = 2 * time.Hour

// ResultCache is a 2-tier, content-addressed store of resolved results:
// L1 in-memory for the fast path, L2 the shared coordination store so other
// processes see the same entry. Strictly best-effort — store errors are
// logged and treated as misses, never surfaced.
type ResultCache struct {
	l1    sync.Map          // key → *resultEntry
	store CoordinationStore // nil disables L2
	ttl   time.Duration
}

type resultEntry struct {
	data      []byte
	expiresAt time.Time
}

func NewResultCache(store CoordinationStore, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ResultCache{store: store, ttl: ttl}
}

// CacheKey derives the deterministic key for a normalized source identity.
func CacheKey(platform, normalized string) string {
	hash := sha256.Sum256([]byte(platform + "|" + normalized))
	return fmt.Sprintf("dl:%x", hash[:12])
}

// Get returns the cached result for a source URL with Cached set true.
// L2 hits repopulate L1.
func (c *ResultCache) Get(ctx context.Context, platform, sourceURL string) (*DownloadResult, bool) {
	key := CacheKey(platform, NormalizeSourceURL(platform, sourceURL))

	if val, ok := c.l1.Load(key); ok {
		entry := val.(*resultEntry)
		if time.Now().Before(entry.expiresAt) {
			if res := decodeResult(entry.data); res != nil {
				metrics.CacheHits.Add(1)
				return res, true
			}
		}
		c.l1.Delete(key) // expired or corrupt
	}

	if c.store != nil {
		data, ok, err := c.store.GetValue(ctx, key)
		if err != nil {
			slog.Warn("cache: read failed, treating as miss", slog.String("key", key), slog.Any("error", err))
		} else if ok {
			if res := decodeResult([]byte(data)); res != nil {
				metrics.CacheHits.Add(1)
				c.l1.Store(key, &resultEntry{data: []byte(data), expiresAt: time.Now().Add(c.ttl)})
				return res, true
			}
		}
	}

	metrics.CacheMisses.Add(1)
	return nil, false
}

// Set stores a fresh result under the fixed TTL. The Cached flag is a
// per-read annotation and is persisted as false. Concurrent writers for the
// same URL race harmlessly to the same value.
func (c *ResultCache) Set(ctx context.Context, platform, sourceURL string, res *DownloadResult) {
	stored := *res
	stored.Cached = false
	data, err := json.Marshal(&stored)
	if err != nil {
		slog.Warn("cache: marshal failed", slog.Any("error", err))
		return
	}

	key := CacheKey(platform, NormalizeSourceURL(platform, sourceURL))
	c.l1.Store(key, &resultEntry{data: data, expiresAt: time.Now().Add(c.ttl)})

	if c.store != nil {
		if err := c.store.SetValue(ctx, key, string(data), c.ttl); err != nil {
			slog.Warn("cache: write failed, continuing without", slog.String("key", key), slog.Any("error", err))
		}
	}
}

// RunJanitor removes expired L1 entries on an interval until ctx is canceled.
func (c *ResultCache) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.l1.Range(func(key, val any) bool {
				if entry, ok := val.(*resultEntry); ok && now.After(entry.expiresAt) {
					c.l1.Delete(key)
				}
				return true
			})
		case <-ctx.Done():
			return
		}
	}
}

func decodeResult(data []byte) *DownloadResult {
	var res DownloadResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil
	}
	res.Cached = true
	return &res
}
