package platforms

import (
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"golang.org/x/time/rate"

	"github.com/clipforge/ingest/internal/ingest"
)

// Kick blocks known datacenter proxy ranges more aggressively than typical
// residential IPs, so a direct attempt is cheaper and often succeeds; the
// lease is only pulled in as a fallback.
const kickRate = rate.Limit(1)

func kickPolicy() ingest.Policy {
	return ingest.Policy{
		Platform:       ingest.PlatformKick,
		MaxRetries:     2,
		BackoffBase:    15 * time.Second,
		MaxConcurrent:  2,
		Proxied:        true,
		DirectFirst:    true,
		AttemptTimeout: 60 * time.Second,
		SlotTimeout:    90 * time.Second,
		LeaseTimeout:   15 * time.Second,
		Headers: map[string]string{
			"Referer":    "https://kick.com/",
			"User-Agent": stealth.RandomUserAgent(),
		},
	}
}
