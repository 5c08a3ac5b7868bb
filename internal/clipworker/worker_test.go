package clipworker

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/clipforge/ingest/internal/ingest"
)

func TestNewAppliesDefaults(t *testing.T) {
	w := New(nil, nil, Config{})
	if w.cfg.QueueKey != "ingest:jobs" {
		t.Errorf("queue = %q", w.cfg.QueueKey)
	}
	if w.cfg.StatusPrefix != "ingest:status:" {
		t.Errorf("status prefix = %q", w.cfg.StatusPrefix)
	}
	if w.cfg.StatusTTL != 30*time.Minute {
		t.Errorf("status ttl = %v", w.cfg.StatusTTL)
	}
	if w.cfg.PollTimeout != 5*time.Second {
		t.Errorf("poll timeout = %v", w.cfg.PollTimeout)
	}

	custom := New(nil, nil, Config{QueueKey: "other", StatusTTL: time.Minute})
	if custom.cfg.QueueKey != "other" || custom.cfg.StatusTTL != time.Minute {
		t.Errorf("explicit config overridden: %+v", custom.cfg)
	}
}

func TestJobPayloadShape(t *testing.T) {
	payload := `{"job_id": "j-1", "project_id": "p-9", "source_url": "https://kick.com/video/abc"}`
	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if job.JobID != "j-1" || job.ProjectID != "p-9" || job.SourceURL != "https://kick.com/video/abc" {
		t.Errorf("job = %+v", job)
	}
}

func TestStatusSerialization(t *testing.T) {
	data, err := json.Marshal(Status{
		Status:   "completed",
		Progress: 100,
		Result:   &ingest.DownloadResult{DownloadURL: "https://cdn.example/v.mp4"},
	})
	if err != nil {
		t.Fatal(err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out["status"] != "completed" {
		t.Errorf("status = %v", out["status"])
	}
	if _, present := out["error"]; present {
		t.Error("empty error must be omitted")
	}
	res, ok := out["result"].(map[string]any)
	if !ok || res["downloadUrl"] != "https://cdn.example/v.mp4" {
		t.Errorf("result = %v", out["result"])
	}
}
