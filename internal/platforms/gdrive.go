package platforms

import (
	"time"

	"github.com/clipforge/ingest/internal/ingest"
)

// Google Drive is a single metadata probe — no retry loop, no proxy
// routing, one slot so bulk imports don't hammer the files endpoint.
func drivePolicy() ingest.Policy {
	return ingest.Policy{
		Platform:       ingest.PlatformGoogleDrive,
		MaxRetries:     0,
		MaxConcurrent:  1,
		DirectFirst:    false,
		AttemptTimeout: 30 * time.Second,
		SlotTimeout:    60 * time.Second,
	}
}
