package ingest

import (
	"net/url"
	"regexp"
	"strings"
)

var driveIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`/file/d/([A-Za-z0-9_-]{10,})`),
	regexp.MustCompile(`[?&]id=([A-Za-z0-9_-]{10,})`),
	regexp.MustCompile(`/uc/?\?.*id=([A-Za-z0-9_-]{10,})`),
}

// DriveFileID extracts the platform-native file identifier from any of the
// usual Drive URL shapes (/file/d/<id>/view, uc?id=<id>, open?id=<id>).
func DriveFileID(raw string) (string, bool) {
	for _, re := range driveIDPatterns {
		if m := re.FindStringSubmatch(raw); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// trackingParams are stripped during normalization so the same content shared
// through different channels resolves to one cache entry.
var trackingParams = map[string]struct{}{
	"utm_source": {}, "utm_medium": {}, "utm_campaign": {}, "utm_term": {},
	"utm_content": {}, "fbclid": {}, "gclid": {}, "ref": {}, "si": {},
}

// NormalizeSourceURL produces the deterministic identity of a source URL used
// for cache keys: lowercased scheme and host, no fragment, no tracking
// params, no trailing slash. Drive URLs collapse to their file id so every
// URL shape for the same file shares one entry.
func NormalizeSourceURL(platform, raw string) string {
	raw = strings.TrimSpace(raw)

	if platform == PlatformGoogleDrive {
		if id, ok := DriveFileID(raw); ok {
			return "gdrive:" + id
		}
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for param := range q {
		if _, ok := trackingParams[strings.ToLower(param)]; ok {
			q.Del(param)
		}
	}
	u.RawQuery = q.Encode()

	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}
