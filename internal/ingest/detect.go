package ingest

import (
	"net/url"
	"strings"
)

// Supported platform names. These key the governor's membership sets and the
// platform registry.
const (
	PlatformTwitch      = "twitch"
	PlatformKick        = "kick"
	PlatformRumble      = "rumble"
	PlatformGoogleDrive = "gdrive"
)

// DetectPlatform classifies a source URL by host. Pure string matching, no IO.
func DetectPlatform(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")

	switch {
	case host == "twitch.tv" || strings.HasSuffix(host, ".twitch.tv"):
		return PlatformTwitch, true
	case host == "kick.com" || strings.HasSuffix(host, ".kick.com"):
		return PlatformKick, true
	case host == "rumble.com" || strings.HasSuffix(host, ".rumble.com"):
		return PlatformRumble, true
	case host == "drive.google.com" || host == "docs.google.com":
		return PlatformGoogleDrive, true
	}
	return "", false
}
