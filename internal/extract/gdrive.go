package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"

	stealth "github.com/anatolykoptev/go-stealth"

	"github.com/clipforge/ingest/internal/ingest"
)

const (
	driveAPIBase      = "https://www.googleapis.com/drive/v3/files/"
	driveDownloadBase = "https://drive.google.com/uc?export=download&id="
)

// MetaFetcher is the slice of stealth.BrowserClient the Drive prober needs.
type MetaFetcher interface {
	Do(method, url string, headers map[string]string, body io.Reader) ([]byte, map[string]string, int, error)
}

// Drive probes Google Drive files with a single metadata call — no retry
// loop, no format list; a Drive file is one concrete blob.
//
// With an API key the Drive v3 files endpoint supplies name/size/mime; the
// download URL is always the uc export endpoint, which downstream consumers
// fetch like any other opaque resource.
type Drive struct {
	Client MetaFetcher
	APIKey string
}

func NewDrive(client MetaFetcher, apiKey string) *Drive {
	return &Drive{Client: client, APIKey: apiKey}
}

type driveFileMeta struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Size     string `json:"size"` // the API returns size as a decimal string
}

func (d *Drive) Probe(ctx context.Context, req ingest.ProbeRequest) (*ingest.ProbeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Client == nil {
		return nil, fmt.Errorf("google drive: browser client not configured")
	}

	id, ok := ingest.DriveFileID(req.URL)
	if !ok {
		return nil, fmt.Errorf("google drive: file id not found in url %q", req.URL)
	}

	res := &ingest.ProbeResult{DownloadURL: driveDownloadBase + id}

	if d.APIKey == "" {
		// No API key: verify the file answers at all, skip metadata.
		return res, d.checkReachable(id, req.Headers)
	}

	metaURL := driveAPIBase + url.PathEscape(id) + "?fields=name,size,mimeType&key=" + url.QueryEscape(d.APIKey)
	body, _, status, err := d.Client.Do("GET", metaURL, mergeHeaders(req.Headers), nil)
	if err != nil {
		return nil, fmt.Errorf("google drive: metadata probe: %w", err)
	}
	if err := driveStatusError(status, id); err != nil {
		return nil, err
	}

	var meta driveFileMeta
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, fmt.Errorf("google drive: decode metadata: %w", err)
	}
	res.Title = meta.Name
	res.MimeType = meta.MimeType
	if meta.Size != "" {
		if size, err := strconv.ParseInt(meta.Size, 10, 64); err == nil {
			res.FileSize = size
		}
	}
	return res, nil
}

// checkReachable asks for headers only; a GET here would buffer the whole
// file body just to learn the status code.
func (d *Drive) checkReachable(id string, headers map[string]string) error {
	_, _, status, err := d.Client.Do("HEAD", driveDownloadBase+id, mergeHeaders(headers), nil)
	if err != nil {
		return fmt.Errorf("google drive: probe: %w", err)
	}
	return driveStatusError(status, id)
}

func driveStatusError(status int, id string) error {
	switch {
	case status == 404:
		return fmt.Errorf("google drive: file %s not found", id)
	case status == 403:
		return fmt.Errorf("google drive: file %s is private or permission denied", id)
	case status == 429:
		return fmt.Errorf("google drive: too many requests for file %s", id)
	case status >= 400:
		return fmt.Errorf("google drive: unexpected status %d for file %s", status, id)
	}
	return nil
}

func mergeHeaders(extra map[string]string) map[string]string {
	headers := stealth.ChromeHeaders()
	for k, v := range extra {
		headers[k] = v
	}
	return headers
}
