// Package clipworker consumes ingestion jobs from a Redis list and publishes
// per-project status keys the clip pipeline polls.
package clipworker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"

	"github.com/clipforge/ingest/internal/ingest"
)

// Resolver is what the worker needs from the platform layer.
type Resolver interface {
	Resolve(ctx context.Context, sourceURL string) (*ingest.DownloadResult, error)
}

// Config tunes queue and status key handling.
type Config struct {
	QueueKey     string        // list the API pushes jobs onto
	StatusPrefix string        // status key = StatusPrefix + project id
	StatusTTL    time.Duration // status keys expire on their own
	PollTimeout  time.Duration // BRPOP block duration per iteration
}

// Worker is the ingest job consumer. One Run loop per process; concurrency
// inside a job is governed by the session layer, not here.
type Worker struct {
	rdb      *redis.Client
	resolver Resolver
	cfg      Config
}

// Job is the queue payload pushed by the upload/import API.
type Job struct {
	JobID     string `json:"job_id"`
	ProjectID string `json:"project_id"`
	SourceURL string `json:"source_url"`
}

// Status is what downstream pollers read while ingestion runs.
type Status struct {
	Status   string                 `json:"status"` // processing | completed | failed
	Stage    string                 `json:"stage,omitempty"`
	Progress int                    `json:"progress"`
	Error    string                 `json:"error,omitempty"`
	Result   *ingest.DownloadResult `json:"result,omitempty"`
}

func New(rdb *redis.Client, resolver Resolver, cfg Config) *Worker {
	if cfg.QueueKey == "" {
		cfg.QueueKey = "ingest:jobs"
	}
	if cfg.StatusPrefix == "" {
		cfg.StatusPrefix = "ingest:status:"
	}
	if cfg.StatusTTL <= 0 {
		cfg.StatusTTL = 30 * time.Minute
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 5 * time.Second
	}
	return &Worker{rdb: rdb, resolver: resolver, cfg: cfg}
}

// Run polls the queue until ctx is canceled. Lost Redis connections are
// re-established with exponential backoff rather than crashing the worker.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.waitForRedis(ctx); err != nil {
		return err
	}
	slog.Info("worker: listening for jobs", slog.String("queue", w.cfg.QueueKey))

	processed := 0
	for {
		if ctx.Err() != nil {
			slog.Info("worker: shutting down", slog.Int("jobs_processed", processed))
			return nil
		}

		vals, err := w.rdb.BRPop(ctx, w.cfg.PollTimeout, w.cfg.QueueKey).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			slog.Error("worker: queue poll failed, reconnecting", slog.Any("error", err))
			if rerr := w.waitForRedis(ctx); rerr != nil {
				return rerr
			}
			continue
		}
		if len(vals) != 2 {
			continue
		}

		w.processPayload(ctx, vals[1])
		processed++
	}
}

func (w *Worker) processPayload(ctx context.Context, payload string) {
	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		slog.Error("worker: invalid job payload, dropping", slog.Any("error", err))
		return
	}

	slog.Info("worker: job received",
		slog.String("job", job.JobID),
		slog.String("project", job.ProjectID),
		slog.String("url", job.SourceURL))

	start := time.Now()
	w.setStatus(ctx, job.ProjectID, Status{Status: "processing", Stage: "resolving_source", Progress: 5})

	res, err := w.resolver.Resolve(ctx, job.SourceURL)
	if err != nil {
		slog.Error("worker: job failed",
			slog.String("job", job.JobID),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err))
		w.setStatus(ctx, job.ProjectID, Status{Status: "failed", Error: err.Error()})
		return
	}

	slog.Info("worker: job completed",
		slog.String("job", job.JobID),
		slog.Bool("cached", res.Cached),
		slog.Duration("elapsed", time.Since(start)))
	w.setStatus(ctx, job.ProjectID, Status{Status: "completed", Progress: 100, Result: res})
}

// setStatus writes the project status key; failures are logged, never fatal —
// the job result is not lost, only its visibility.
func (w *Worker) setStatus(ctx context.Context, projectID string, st Status) {
	data, err := json.Marshal(st)
	if err != nil {
		return
	}
	key := w.cfg.StatusPrefix + projectID
	if err := w.rdb.Set(ctx, key, data, w.cfg.StatusTTL).Err(); err != nil {
		slog.Warn("worker: status write failed", slog.String("key", key), slog.Any("error", err))
	}
}

// waitForRedis blocks until a ping succeeds, backing off exponentially.
func (w *Worker) waitForRedis(ctx context.Context) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.MaxInterval = 30 * time.Second

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if err := w.rdb.Ping(ctx).Err(); err != nil {
			slog.Warn("worker: redis unreachable, retrying", slog.Any("error", err))
			return struct{}{}, err
		}
		return struct{}{}, nil
	}, backoff.WithBackOff(bo))
	return err
}
