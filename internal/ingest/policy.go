package ingest

import "time"

// Policy is the per-platform knob set executed by the generic session engine.
// Retry behavior is data, not code: the four supported platforms differ only
// in these values and in their extraction call.
type Policy struct {
	Platform      string
	MaxRetries    int           // retries after the first attempt; 0 = single probe
	BackoffBase   time.Duration // delay before retry i is BackoffBase * 2^(i-1)
	MaxConcurrent int           // hard cap enforced by the governor
	Proxied       bool          // whether sessions route through the lease manager at all
	DirectFirst   bool          // try without a proxy before falling back to the lease

	AttemptTimeout time.Duration // socket/process timeout for one extraction call
	SlotTimeout    time.Duration // wall-clock bound on slot acquisition
	LeaseTimeout   time.Duration // wall-clock bound on lease acquisition

	Headers map[string]string

	// SelectFormat picks the preferred candidate from the usable ones.
	// Nil falls back to SelectByHeight.
	SelectFormat func([]Format) (Format, bool)
}

// Attempts is the total extraction attempts the session may make.
func (p Policy) Attempts() int { return p.MaxRetries + 1 }

// BackoffDelay returns the sleep applied after failed attempt n (1-based),
// growing exponentially from BackoffBase.
func (p Policy) BackoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BackoffBase * (1 << (attempt - 1))
}

// SessionBudget composes the worst-case wall-clock bound for one session:
// slot wait + lease wait + every attempt timeout + every inter-attempt
// backoff. The session runs under a deadline of this value so tail latency
// stays bounded even when every stage runs to its own limit.
func (p Policy) SessionBudget() time.Duration {
	budget := p.SlotTimeout + p.LeaseTimeout
	for i := 1; i <= p.Attempts(); i++ {
		budget += p.AttemptTimeout
		if p.Proxied && p.DirectFirst {
			// a direct attempt may fall back through the proxy
			budget += p.AttemptTimeout
		}
		if i < p.Attempts() {
			budget += p.BackoffDelay(i)
		}
	}
	return budget
}

// PlatformConfig is the static concurrency record loaded per platform.
// Immutable after load; MaxConcurrent is the cap the governor enforces.
type PlatformConfig struct {
	Name          string
	MaxConcurrent int
}

// Config carries the PlatformConfig for a Policy.
func (p Policy) Config() PlatformConfig {
	return PlatformConfig{Name: p.Platform, MaxConcurrent: p.MaxConcurrent}
}
