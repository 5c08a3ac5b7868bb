package platforms

import (
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"golang.org/x/time/rate"

	"github.com/clipforge/ingest/internal/ingest"
)

// Twitch throttles datacenter traffic hardest of the supported platforms:
// one in-flight request globally, a single retry, and a long backoff base.
// No direct-first — always route through the lease.
const twitchRate = rate.Limit(0.5) // max 1 probe per 2s per process

func twitchPolicy() ingest.Policy {
	return ingest.Policy{
		Platform:       ingest.PlatformTwitch,
		MaxRetries:     1,
		BackoffBase:    30 * time.Second,
		MaxConcurrent:  1,
		Proxied:        true,
		DirectFirst:    false,
		AttemptTimeout: 60 * time.Second,
		SlotTimeout:    2 * time.Minute,
		LeaseTimeout:   15 * time.Second,
		Headers: map[string]string{
			"Referer":    "https://www.twitch.tv/",
			"User-Agent": stealth.RandomUserAgent(),
		},
		// VODs carry a "source"-tagged original-quality rendition.
		SelectFormat: ingest.SelectSourceFirst,
	}
}
