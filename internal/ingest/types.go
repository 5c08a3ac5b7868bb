package ingest

import (
	"context"
	"time"
)

// DownloadResult is the resolved, fetchable form of a source URL. Immutable
// once written to the cache; Cached is set per-read and never persisted.
type DownloadResult struct {
	DownloadURL string  `json:"downloadUrl"`
	Title       string  `json:"title,omitempty"`
	Duration    float64 `json:"duration,omitempty"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
	FileSize    int64   `json:"fileSize,omitempty"`
	MimeType    string  `json:"mimeType,omitempty"`
	Cached      bool    `json:"cached"`
}

// Format is one raw candidate media descriptor from the extraction backend.
type Format struct {
	URL      string
	Height   int
	HasVideo bool
	Note     string
	FileSize int64
}

// ProbeRequest parameterizes one extraction call. An empty ProxyURL means a
// direct (unproxied) attempt.
type ProbeRequest struct {
	URL      string
	Headers  map[string]string
	ProxyURL string
	Timeout  time.Duration
}

// ProbeResult is the raw extraction outcome. Backends that resolve a single
// concrete file (Google Drive) set DownloadURL directly and leave Formats
// empty; backends with multiple renditions populate Formats and leave the
// selection to the session.
type ProbeResult struct {
	Title       string
	Duration    float64
	Thumbnail   string
	FileSize    int64
	MimeType    string
	DownloadURL string
	Formats     []Format
}

// Prober is the extraction backend contract.
type Prober interface {
	Probe(ctx context.Context, req ProbeRequest) (*ProbeResult, error)
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, req ProbeRequest) (*ProbeResult, error)

func (f ProberFunc) Probe(ctx context.Context, req ProbeRequest) (*ProbeResult, error) {
	return f(ctx, req)
}

// Lease is one checked-out egress identity, exclusively held by a single
// session until released.
type Lease struct {
	ID         string
	Platform   string
	ProxyURL   string
	AcquiredAt time.Time
}

// LeaseManager is the proxy collaborator contract. RecordSuccess and
// RecordFailure are one-way notifications feeding the manager's own rotation
// policy; the session never inspects the outcome.
type LeaseManager interface {
	Acquire(ctx context.Context, platform string) (*Lease, error)
	Release(l *Lease)
	RecordSuccess(l *Lease)
	RecordFailure(l *Lease, err error)
}
