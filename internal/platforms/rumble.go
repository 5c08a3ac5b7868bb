package platforms

import (
	"time"

	stealth "github.com/anatolykoptev/go-stealth"
	"golang.org/x/time/rate"

	"github.com/clipforge/ingest/internal/ingest"
)

// Rumble is the most permissive of the streaming platforms: three concurrent
// slots, short backoff, direct-first.
const rumbleRate = rate.Limit(1)

func rumblePolicy() ingest.Policy {
	return ingest.Policy{
		Platform:       ingest.PlatformRumble,
		MaxRetries:     2,
		BackoffBase:    10 * time.Second,
		MaxConcurrent:  3,
		Proxied:        true,
		DirectFirst:    true,
		AttemptTimeout: 60 * time.Second,
		SlotTimeout:    90 * time.Second,
		LeaseTimeout:   15 * time.Second,
		Headers: map[string]string{
			"Referer":    "https://rumble.com/",
			"User-Agent": stealth.RandomUserAgent(),
		},
	}
}
