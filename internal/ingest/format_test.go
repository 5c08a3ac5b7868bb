package ingest

import "testing"

func TestUsableFormats(t *testing.T) {
	in := []Format{
		{URL: "https://cdn/720.mp4", Height: 720, HasVideo: true},
		{URL: "", Height: 1080, HasVideo: true},              // no URL
		{URL: "https://cdn/audio.m4a", HasVideo: false},      // audio-only
		{URL: "https://cdn/sb.jpg", Height: 90, HasVideo: false}, // storyboard
		{URL: "https://cdn/480.mp4", Height: 480, HasVideo: true},
	}
	got := usableFormats(in)
	if len(got) != 2 {
		t.Fatalf("kept %d formats, want 2: %+v", len(got), got)
	}
	if got[0].Height != 720 || got[1].Height != 480 {
		t.Errorf("order not preserved: %+v", got)
	}
}

func TestSelectByHeight(t *testing.T) {
	fs := []Format{
		{URL: "a", Height: 480, HasVideo: true},
		{URL: "b", Height: 1080, HasVideo: true},
		{URL: "c", Height: 720, HasVideo: true},
	}
	best, ok := SelectByHeight(fs)
	if !ok || best.URL != "b" {
		t.Errorf("SelectByHeight = (%+v, %v), want the 1080p rendition", best, ok)
	}

	if _, ok := SelectByHeight(nil); ok {
		t.Error("empty input must report no selection")
	}
}

func TestSelectByHeightStableOnTies(t *testing.T) {
	fs := []Format{
		{URL: "first", Height: 720, HasVideo: true},
		{URL: "second", Height: 720, HasVideo: true},
	}
	best, _ := SelectByHeight(fs)
	if best.URL != "first" {
		t.Errorf("tie broke to %q, want first-listed", best.URL)
	}
}

func TestSelectSourceFirst(t *testing.T) {
	fs := []Format{
		{URL: "a", Height: 1080, HasVideo: true, Note: "1080p60"},
		{URL: "b", Height: 936, HasVideo: true, Note: "Source"},
		{URL: "c", Height: 720, HasVideo: true, Note: "720p"},
	}
	best, ok := SelectSourceFirst(fs)
	if !ok || best.URL != "b" {
		t.Errorf("SelectSourceFirst = (%+v, %v), want the source-tagged rendition", best, ok)
	}

	// no source tag: fall back to tallest
	best, ok = SelectSourceFirst(fs[:1])
	if !ok || best.URL != "a" {
		t.Errorf("fallback = (%+v, %v), want tallest", best, ok)
	}
}
