package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// NotFoundError means the source content does not exist (deleted, expired VOD,
// bad URL). Never retried.
type NotFoundError struct {
	Platform string
	URL      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: content not found: %s", e.Platform, e.URL)
}

// PrivateContentError means the content exists but is not publicly fetchable
// (private, subscriber-only, login-gated). Never retried.
type PrivateContentError struct {
	Platform string
	URL      string
	Reason   string
}

func (e *PrivateContentError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: content is not accessible (%s): %s", e.Platform, e.Reason, e.URL)
	}
	return fmt.Sprintf("%s: content is not accessible: %s", e.Platform, e.URL)
}

// RateLimitedError is the terminal error when every attempt was throttled by
// the platform.
type RateLimitedError struct {
	Platform string
	Attempts int
	Err      error
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: rate limited after %d attempts: %v", e.Platform, e.Attempts, e.Err)
}

func (e *RateLimitedError) Unwrap() error { return e.Err }

// AcquisitionTimeoutError means a concurrency slot or proxy lease could not be
// obtained within its timeout. Surfaced immediately, never retried here.
type AcquisitionTimeoutError struct {
	Platform string
	Resource string // "slot" or "lease"
	Current  int64
	Max      int
	Waited   time.Duration
}

func (e *AcquisitionTimeoutError) Error() string {
	if e.Resource == "slot" {
		return fmt.Sprintf("%s: no concurrency slot after %s (utilization %d/%d)",
			e.Platform, e.Waited.Round(time.Millisecond), e.Current, e.Max)
	}
	return fmt.Sprintf("%s: no proxy lease after %s", e.Platform, e.Waited.Round(time.Millisecond))
}

// ExtractionError is the terminal error after retries are exhausted on
// transient failures, carrying the last underlying cause.
type ExtractionError struct {
	Platform string
	Attempts int
	Err      error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: extraction failed after %d attempts: %v", e.Platform, e.Attempts, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// errorClass drives the retry decision for one attempt's failure.
type errorClass int

const (
	classTransient errorClass = iota // retried with backoff
	classPermanent                   // aborts immediately
	classRateLimit                   // retried; terminal form is RateLimitedError
)

// Substring tables match the phrasing of extraction backends (yt-dlp and the
// Drive endpoints). Matching is case-insensitive on the full error chain.
var (
	notFoundPatterns = []string{
		"not found",
		"404",
		"does not exist",
		"no longer available",
		"video unavailable",
		"has been deleted",
	}
	privatePatterns = []string{
		"private",
		"subscriber",
		"subscription required",
		"members only",
		"login required",
		"sign in to",
		"access denied",
		"403",
	}
	rateLimitPatterns = []string{
		"429",
		"too many requests",
		"rate limit",
	}
)

// classify buckets an attempt failure. Typed errors win over message matching;
// everything unrecognized is transient and worth retrying.
func classify(err error) errorClass {
	if err == nil {
		return classTransient
	}

	var nf *NotFoundError
	var pc *PrivateContentError
	if errors.As(err, &nf) || errors.As(err, &pc) {
		return classPermanent
	}
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return classRateLimit
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return classTransient
	}

	msg := strings.ToLower(err.Error())
	for _, p := range rateLimitPatterns {
		if strings.Contains(msg, p) {
			return classRateLimit
		}
	}
	for _, p := range notFoundPatterns {
		if strings.Contains(msg, p) {
			return classPermanent
		}
	}
	for _, p := range privatePatterns {
		if strings.Contains(msg, p) {
			return classPermanent
		}
	}
	return classTransient
}

// terminalPermanent maps a permanent attempt failure to its caller-facing
// error. Already-typed errors pass through unchanged.
func terminalPermanent(platform, url string, err error) error {
	var nf *NotFoundError
	var pc *PrivateContentError
	if errors.As(err, &nf) || errors.As(err, &pc) {
		return err
	}

	msg := strings.ToLower(err.Error())
	for _, p := range notFoundPatterns {
		if strings.Contains(msg, p) {
			return &NotFoundError{Platform: platform, URL: url}
		}
	}
	return &PrivateContentError{Platform: platform, URL: url, Reason: firstLine(err.Error())}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
