package ingest

import (
	"sort"
	"strings"
)

// usableFormats drops candidates without a fetchable URL or without a video
// stream (audio-only renditions, storyboards).
func usableFormats(in []Format) []Format {
	out := make([]Format, 0, len(in))
	for _, f := range in {
		if f.URL == "" || !f.HasVideo {
			continue
		}
		out = append(out, f)
	}
	return out
}

// SelectByHeight prefers the tallest rendition. Default selector for every
// platform without a native quality tag.
func SelectByHeight(fs []Format) (Format, bool) {
	if len(fs) == 0 {
		return Format{}, false
	}
	sorted := make([]Format, len(fs))
	copy(sorted, fs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Height > sorted[j].Height
	})
	return sorted[0], true
}

// SelectSourceFirst prefers the "source"-tagged rendition (Twitch's original
// broadcast quality), falling back to tallest.
func SelectSourceFirst(fs []Format) (Format, bool) {
	for _, f := range fs {
		if strings.Contains(strings.ToLower(f.Note), "source") {
			return f, true
		}
	}
	return SelectByHeight(fs)
}
