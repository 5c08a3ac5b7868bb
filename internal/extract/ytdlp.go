// Package extract provides the extraction backends download sessions probe
// through: a yt-dlp subprocess for the streaming platforms and a direct
// metadata probe for Google Drive files.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/clipforge/ingest/internal/ingest"
)

// YTDLP resolves playable media URLs by running yt-dlp with JSON output.
// No media bytes are downloaded; --dump-single-json only probes metadata.
type YTDLP struct {
	// Path to the yt-dlp binary; plain "yt-dlp" resolves via PATH.
	Path string
}

func NewYTDLP(path string) *YTDLP {
	if path == "" {
		path = "yt-dlp"
	}
	return &YTDLP{Path: path}
}

// probeGrace covers process startup/teardown beyond the socket timeout.
const probeGrace = 10 * time.Second

// ytdlpOutput is the subset of yt-dlp's JSON dump the session needs.
type ytdlpOutput struct {
	Title     string        `json:"title"`
	Duration  float64       `json:"duration"`
	Thumbnail string        `json:"thumbnail"`
	Formats   []ytdlpFormat `json:"formats"`
}

type ytdlpFormat struct {
	URL            string  `json:"url"`
	Height         int     `json:"height"`
	VCodec         string  `json:"vcodec"`
	FormatNote     string  `json:"format_note"`
	FileSize       int64   `json:"filesize"`
	FileSizeApprox int64   `json:"filesize_approx"`
	TBR            float64 `json:"tbr"`
}

func (y *YTDLP) Probe(ctx context.Context, req ingest.ProbeRequest) (*ingest.ProbeResult, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout+probeGrace)
	defer cancel()

	args := []string{
		"--dump-single-json",
		"--no-playlist",
		"--no-warnings",
		"--no-cache-dir",
		"--socket-timeout", strconv.Itoa(int(timeout.Seconds())),
	}
	for k, v := range req.Headers {
		args = append(args, "--add-header", k+":"+v)
	}
	if req.ProxyURL != "" {
		args = append(args, "--proxy", req.ProxyURL)
	}
	args = append(args, req.URL)

	cmd := exec.CommandContext(ctx, y.Path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("yt-dlp probe timed out after %s: %w", timeout, ctx.Err())
		}
		return nil, fmt.Errorf("yt-dlp: %s", stderrSummary(stderr.String(), err))
	}

	var out ytdlpOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		return nil, fmt.Errorf("yt-dlp: decode output: %w", err)
	}
	return convertOutput(&out), nil
}

func convertOutput(out *ytdlpOutput) *ingest.ProbeResult {
	res := &ingest.ProbeResult{
		Title:     out.Title,
		Duration:  out.Duration,
		Thumbnail: out.Thumbnail,
	}
	for _, f := range out.Formats {
		size := f.FileSize
		if size == 0 {
			size = f.FileSizeApprox
		}
		res.Formats = append(res.Formats, ingest.Format{
			URL:      f.URL,
			Height:   f.Height,
			HasVideo: f.VCodec != "" && f.VCodec != "none",
			Note:     f.FormatNote,
			FileSize: size,
		})
	}
	return res
}

// stderrSummary extracts the most useful line from yt-dlp's stderr — usually
// the last ERROR: line — so the session's message-based classification sees
// the platform's actual refusal (private video, unavailable, 429).
func stderrSummary(stderr string, runErr error) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if strings.HasPrefix(line, "ERROR:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		}
	}
	if last := strings.TrimSpace(lines[len(lines)-1]); last != "" {
		return last
	}
	var exitErr *exec.ExitError
	if errors.As(runErr, &exitErr) {
		return fmt.Sprintf("exit status %d", exitErr.ExitCode())
	}
	return runErr.Error()
}
