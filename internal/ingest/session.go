package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Engine runs resilient download sessions: one cache-check → slot → lease →
// bounded-retry state machine per inbound source URL, parameterized entirely
// by a platform Policy and a Prober. All four platform adapters share this
// code; none of them subclasses anything.
type Engine struct {
	Governor *Governor
	Cache    *ResultCache
	Leases   LeaseManager // nil = no proxy layer configured
}

// Resolve turns a source URL into a DownloadResult or one of the terminal
// errors (NotFoundError, PrivateContentError, RateLimitedError,
// AcquisitionTimeoutError, ExtractionError). Only the final classified error
// reaches the caller; intermediate attempt failures are logged with their
// attempt index and applied backoff.
func (e *Engine) Resolve(ctx context.Context, pol Policy, prober Prober, sourceURL string) (*DownloadResult, error) {
	metrics.ResolveRequests.Add(1)

	if res, ok := e.Cache.Get(ctx, pol.Platform, sourceURL); ok {
		slog.Debug("session: cache hit", slog.String("platform", pol.Platform), slog.String("url", sourceURL))
		return res, nil
	}

	// Composed wall-clock budget: slot wait + lease wait + attempts + backoffs.
	ctx, cancel := context.WithTimeout(ctx, pol.SessionBudget())
	defer cancel()

	slot, err := e.Governor.AcquireSlot(ctx, pol.Platform, pol.SlotTimeout)
	if err != nil {
		return nil, err
	}
	defer e.Governor.ReleaseSlot(context.WithoutCancel(ctx), slot)

	var lease *Lease
	defer func() {
		if lease != nil {
			e.Leases.Release(lease)
		}
	}()

	// Direct-first platforms defer the lease until an attempt actually needs
	// the proxy fallback; other proxied platforms route through a lease from
	// the start.
	if pol.Proxied && !pol.DirectFirst && e.Leases != nil {
		lease, err = e.acquireLease(ctx, pol)
		if err != nil {
			return nil, err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= pol.Attempts(); attempt++ {
		res, attemptErr := e.attempt(ctx, pol, prober, sourceURL, &lease)
		if attemptErr == nil {
			dr, buildErr := buildResult(pol, res)
			if buildErr != nil {
				attemptErr = buildErr
			} else {
				e.Cache.Set(ctx, pol.Platform, sourceURL, dr)
				if lease != nil {
					e.Leases.RecordSuccess(lease)
				}
				slog.Info("session: resolved",
					slog.String("platform", pol.Platform),
					slog.String("url", sourceURL),
					slog.Int("attempt", attempt))
				return dr, nil
			}
		}

		lastErr = attemptErr

		var acq *AcquisitionTimeoutError
		if errors.As(attemptErr, &acq) {
			// Slot/lease exhaustion is not an extraction failure; surface it
			// without consuming the remaining retries.
			return nil, attemptErr
		}
		metrics.ExtractionErrors.Add(1)

		if classify(attemptErr) == classPermanent {
			if lease != nil {
				e.Leases.RecordFailure(lease, attemptErr)
			}
			slog.Warn("session: permanent failure, aborting",
				slog.String("platform", pol.Platform),
				slog.String("url", sourceURL),
				slog.Int("attempt", attempt),
				slog.Any("error", attemptErr))
			return nil, terminalPermanent(pol.Platform, sourceURL, attemptErr)
		}

		if attempt < pol.Attempts() {
			delay := pol.BackoffDelay(attempt)
			slog.Warn("session: attempt failed, backing off",
				slog.String("platform", pol.Platform),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", delay),
				slog.Any("error", attemptErr))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, e.exhausted(pol, lease, attempt, fmt.Errorf("session budget exceeded: %w", lastErr))
			}
		}
	}

	return nil, e.exhausted(pol, lease, pol.Attempts(), lastErr)
}

// attempt performs one extraction attempt. For direct-first platforms a
// failed unproxied call falls back through the lease within the same attempt,
// acquiring it lazily on first need.
func (e *Engine) attempt(ctx context.Context, pol Policy, prober Prober, sourceURL string, lease **Lease) (*ProbeResult, error) {
	req := ProbeRequest{
		URL:     sourceURL,
		Headers: pol.Headers,
		Timeout: pol.AttemptTimeout,
	}

	if pol.Proxied && pol.DirectFirst {
		metrics.ExtractionAttempts.Add(1)
		res, err := prober.Probe(ctx, req)
		if err == nil {
			metrics.DirectHits.Add(1)
			return res, nil
		}
		if classify(err) == classPermanent || e.Leases == nil {
			return nil, err
		}

		if *lease == nil {
			l, lerr := e.acquireLease(ctx, pol)
			if lerr != nil {
				return nil, lerr
			}
			*lease = l
		}
		metrics.ProxyFallbacks.Add(1)
		slog.Debug("session: direct attempt failed, retrying through proxy",
			slog.String("platform", pol.Platform), slog.Any("error", err))
		req.ProxyURL = (*lease).ProxyURL
		metrics.ExtractionAttempts.Add(1)
		return prober.Probe(ctx, req)
	}

	if *lease != nil {
		req.ProxyURL = (*lease).ProxyURL
	}
	metrics.ExtractionAttempts.Add(1)
	return prober.Probe(ctx, req)
}

func (e *Engine) acquireLease(ctx context.Context, pol Policy) (*Lease, error) {
	leaseCtx := ctx
	if pol.LeaseTimeout > 0 {
		var cancel context.CancelFunc
		leaseCtx, cancel = context.WithTimeout(ctx, pol.LeaseTimeout)
		defer cancel()
	}
	start := time.Now()
	lease, err := e.Leases.Acquire(leaseCtx, pol.Platform)
	if err != nil {
		return nil, &AcquisitionTimeoutError{
			Platform: pol.Platform,
			Resource: "lease",
			Waited:   time.Since(start),
		}
	}
	return lease, nil
}

func (e *Engine) exhausted(pol Policy, lease *Lease, attempts int, lastErr error) error {
	if lease != nil {
		e.Leases.RecordFailure(lease, lastErr)
	}
	if classify(lastErr) == classRateLimit {
		return &RateLimitedError{Platform: pol.Platform, Attempts: attempts, Err: lastErr}
	}
	return &ExtractionError{Platform: pol.Platform, Attempts: attempts, Err: lastErr}
}

// buildResult selects the preferred media candidate and assembles the
// immutable DownloadResult. Backends that already resolved a single file set
// DownloadURL on the probe result and skip selection entirely.
func buildResult(pol Policy, res *ProbeResult) (*DownloadResult, error) {
	dr := &DownloadResult{
		Title:     res.Title,
		Duration:  res.Duration,
		Thumbnail: res.Thumbnail,
		FileSize:  res.FileSize,
		MimeType:  res.MimeType,
	}

	if res.DownloadURL != "" {
		dr.DownloadURL = res.DownloadURL
		return dr, nil
	}

	usable := usableFormats(res.Formats)
	sel := pol.SelectFormat
	if sel == nil {
		sel = SelectByHeight
	}
	best, ok := sel(usable)
	if !ok {
		return nil, fmt.Errorf("%s: no playable video formats in extraction result", pol.Platform)
	}
	dr.DownloadURL = best.URL
	if dr.FileSize == 0 {
		dr.FileSize = best.FileSize
	}
	return dr, nil
}
