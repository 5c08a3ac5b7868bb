// ingestd — source-media ingestion daemon.
//
// Resolves third-party video URLs (Twitch, Kick, Rumble, Google Drive) into
// locally fetchable download descriptors, throttled by a Redis-backed
// per-platform concurrency governor. Consumes jobs from the ingest queue and
// serves a synchronous resolve API for the upload tier.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	stealth "github.com/anatolykoptev/go-stealth"
	"github.com/anatolykoptev/go-stealth/proxypool"
	"github.com/redis/go-redis/v9"

	"github.com/clipforge/ingest/internal/clipworker"
	"github.com/clipforge/ingest/internal/extract"
	"github.com/clipforge/ingest/internal/ingest"
	"github.com/clipforge/ingest/internal/ingestserver"
	"github.com/clipforge/ingest/internal/platforms"
	"github.com/clipforge/ingest/internal/proxy"
)

var version = "dev"

func main() {
	initLogging()

	httpPort := env.Str("HTTP_PORT", "8890")
	redisURL := env.Str("REDIS_URL", "")
	cacheTTL := env.Duration("CACHE_TTL", ingest.DefaultCacheTTL)
	cleanupInterval := env.Duration("SLOT_CLEANUP_INTERVAL", 10*time.Minute)
	workerEnabled := env.Str("WORKER_ENABLED", "true") != "false"

	slog.Info("starting ingestd",
		slog.String("version", version),
		slog.String("port", httpPort),
		slog.Bool("redis", redisURL != ""))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, store := initStore(ctx, redisURL)
	cache := ingest.NewResultCache(store, cacheTTL)

	registry := platforms.NewRegistry(initProbers())
	governor := ingest.NewGovernor(store, ingest.GovernorConfig{
		Platforms: registry.PlatformConfigs(),
	})
	registry.Bind(&ingest.Engine{
		Governor: governor,
		Cache:    cache,
		Leases:   initLeases(),
	})

	go governor.RunCleanup(ctx, cleanupInterval)
	go cache.RunJanitor(ctx, cleanupInterval)

	if workerEnabled && rdb != nil {
		worker := clipworker.New(rdb, registry, clipworker.Config{
			QueueKey:     env.Str("INGEST_QUEUE_KEY", "ingest:jobs"),
			StatusPrefix: env.Str("INGEST_STATUS_PREFIX", "ingest:status:"),
			StatusTTL:    env.Duration("INGEST_STATUS_TTL", 30*time.Minute),
		})
		go func() {
			if err := worker.Run(ctx); err != nil {
				slog.Error("worker stopped", slog.Any("error", err))
			}
		}()
	}

	srv := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      ingestserver.New(registry, governor, store).Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // resolve calls may sit out slot waits and backoffs
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown incomplete", slog.Any("error", err))
	}
}

func initLogging() {
	level := slog.LevelInfo
	switch env.Str("LOG_LEVEL", "info") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// initStore connects Redis when configured, falling back to the in-process
// store for single-node deployments. An unreachable Redis is tolerated —
// the governor fails open and the client reconnects on its own.
func initStore(ctx context.Context, redisURL string) (*redis.Client, ingest.CoordinationStore) {
	if redisURL == "" {
		slog.Warn("REDIS_URL not set — using in-process coordination, no cross-process throttling")
		return nil, ingest.NewMemoryStore()
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Error("invalid REDIS_URL — using in-process coordination", slog.Any("error", err))
		return nil, ingest.NewMemoryStore()
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Warn("redis unreachable at startup, governor will fail open until it recovers",
			slog.String("addr", opts.Addr), slog.Any("error", err))
	} else {
		slog.Info("redis connected", slog.String("addr", opts.Addr))
	}
	return rdb, ingest.NewRedisStore(rdb)
}

func initProbers() (media, drive ingest.Prober) {
	media = extract.NewYTDLP(env.Str("YTDLP_PATH", "yt-dlp"))

	var opts []stealth.ClientOption
	opts = append(opts, stealth.WithTimeout(30))
	if apiKey := env.Str("WEBSHARE_API_KEY", ""); apiKey != "" {
		pool, err := proxypool.NewWebshare(apiKey)
		if err != nil {
			slog.Warn("webshare pool init failed, drive probes run direct", slog.Any("error", err))
		} else {
			opts = append(opts, stealth.WithProxyPool(pool))
			slog.Info("webshare pool initialized", slog.Int("proxies", pool.Len()))
		}
	}
	client, err := stealth.NewClient(opts...)
	if err != nil {
		slog.Error("stealth client init failed, drive resolution degraded", slog.Any("error", err))
		drive = extract.NewDrive(nil, env.Str("DRIVE_API_KEY", ""))
		return media, drive
	}
	drive = extract.NewDrive(client, env.Str("DRIVE_API_KEY", ""))
	return media, drive
}

// initLeases builds the proxy lease manager from PROXY_URLS
// (comma-separated host:port:user:pass entries). Empty list means sessions
// run without a proxy layer.
func initLeases() ingest.LeaseManager {
	entries := env.List("PROXY_URLS", "")
	if len(entries) == 0 {
		slog.Warn("PROXY_URLS not set — all extraction attempts run direct")
		return nil
	}
	endpoints, err := proxy.ParseEndpoints(entries)
	if err != nil {
		slog.Error("proxy list invalid — running without proxies", slog.Any("error", err))
		return nil
	}
	slog.Info("proxy lease manager initialized", slog.Int("endpoints", len(endpoints)))
	return proxy.NewManager(endpoints)
}
