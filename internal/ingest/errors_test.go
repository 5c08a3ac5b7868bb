package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errorClass
	}{
		{"nil", nil, classTransient},
		{"network reset", errors.New("read tcp: connection reset by peer"), classTransient},
		{"timeout", errors.New("request timed out"), classTransient},
		{"deadline", context.DeadlineExceeded, classTransient},
		{"wrapped deadline", fmt.Errorf("probe: %w", context.DeadlineExceeded), classTransient},
		{"unknown garbage", errors.New("unexpected EOF"), classTransient},

		{"not found", errors.New("ERROR: video not found"), classPermanent},
		{"404", errors.New("HTTP Error 404"), classPermanent},
		{"unavailable", errors.New("Video unavailable"), classPermanent},
		{"deleted", errors.New("this content has been deleted"), classPermanent},
		{"private", errors.New("This video is private"), classPermanent},
		{"sub only", errors.New("subscriber-only content"), classPermanent},
		{"login wall", errors.New("login required to view"), classPermanent},
		{"403", errors.New("HTTP Error 403: Forbidden"), classPermanent},
		{"typed not found", &NotFoundError{Platform: "twitch", URL: "u"}, classPermanent},
		{"typed private", &PrivateContentError{Platform: "kick", URL: "u"}, classPermanent},

		{"429", errors.New("HTTP Error 429"), classRateLimit},
		{"too many requests", errors.New("Too Many Requests"), classRateLimit},
		{"rate limit phrase", errors.New("rate limit exceeded, slow down"), classRateLimit},
		// 429 wins even though "too many requests" responses often mention other codes
		{"rate limit before permanent", errors.New("429 while fetching, video private"), classRateLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classify(tt.err); got != tt.want {
				t.Errorf("classify(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestTerminalPermanent(t *testing.T) {
	nf := terminalPermanent("twitch", "https://www.twitch.tv/videos/1", errors.New("ERROR: 404 not found"))
	var typedNF *NotFoundError
	if !errors.As(nf, &typedNF) {
		t.Fatalf("expected NotFoundError, got %T", nf)
	}
	if typedNF.Platform != "twitch" {
		t.Errorf("platform = %q", typedNF.Platform)
	}

	pc := terminalPermanent("kick", "u", errors.New("subscriber-only stream\nfull yt-dlp dump follows"))
	var typedPC *PrivateContentError
	if !errors.As(pc, &typedPC) {
		t.Fatalf("expected PrivateContentError, got %T", pc)
	}
	if typedPC.Reason != "subscriber-only stream" {
		t.Errorf("reason = %q, want first line only", typedPC.Reason)
	}

	// already-typed errors pass through untouched
	orig := &NotFoundError{Platform: "rumble", URL: "u"}
	if got := terminalPermanent("rumble", "u", orig); got != error(orig) {
		t.Errorf("typed error was rewrapped: %v", got)
	}
}

func TestAcquisitionTimeoutErrorMessage(t *testing.T) {
	slot := &AcquisitionTimeoutError{Platform: "kick", Resource: "slot", Current: 2, Max: 2}
	if msg := slot.Error(); msg == "" || msg == (&AcquisitionTimeoutError{Platform: "kick", Resource: "lease"}).Error() {
		t.Errorf("slot and lease variants must read differently: %q", msg)
	}
}

func TestTerminalErrorsUnwrap(t *testing.T) {
	cause := errors.New("tls handshake failure")
	var ext error = &ExtractionError{Platform: "rumble", Attempts: 3, Err: cause}
	if !errors.Is(ext, cause) {
		t.Error("ExtractionError must unwrap to its cause")
	}
	var rl error = &RateLimitedError{Platform: "kick", Attempts: 3, Err: cause}
	if !errors.Is(rl, cause) {
		t.Error("RateLimitedError must unwrap to its cause")
	}
}
