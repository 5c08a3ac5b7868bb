package platforms

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clipforge/ingest/internal/ingest"
)

type noopProber struct{}

func (noopProber) Probe(context.Context, ingest.ProbeRequest) (*ingest.ProbeResult, error) {
	return &ingest.ProbeResult{
		Formats: []ingest.Format{{URL: "https://cdn.example/v.mp4", Height: 720, HasVideo: true}},
	}, nil
}

func newTestRegistry() *Registry {
	return NewRegistry(noopProber{}, noopProber{})
}

func TestPolicyTable(t *testing.T) {
	r := newTestRegistry()

	tests := []struct {
		platform    string
		retries     int
		backoffBase time.Duration
		maxConc     int
		proxied     bool
		directFirst bool
	}{
		{ingest.PlatformTwitch, 1, 30 * time.Second, 1, true, false},
		{ingest.PlatformKick, 2, 15 * time.Second, 2, true, true},
		{ingest.PlatformRumble, 2, 10 * time.Second, 3, true, true},
		{ingest.PlatformGoogleDrive, 0, 0, 1, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.platform, func(t *testing.T) {
			a, ok := r.Adapter(tt.platform)
			require.True(t, ok, "adapter missing")
			assert.Equal(t, tt.retries, a.Policy.MaxRetries, "max retries")
			assert.Equal(t, tt.backoffBase, a.Policy.BackoffBase, "backoff base")
			assert.Equal(t, tt.maxConc, a.Policy.MaxConcurrent, "concurrency cap")
			assert.Equal(t, tt.proxied, a.Policy.Proxied, "proxied")
			assert.Equal(t, tt.directFirst, a.Policy.DirectFirst, "direct first")
		})
	}
}

func TestTwitchPrefersSourceFormat(t *testing.T) {
	r := newTestRegistry()
	a, _ := r.Adapter(ingest.PlatformTwitch)
	require.NotNil(t, a.Policy.SelectFormat)

	best, ok := a.Policy.SelectFormat([]ingest.Format{
		{URL: "a", Height: 1080, HasVideo: true, Note: "1080p60"},
		{URL: "b", Height: 936, HasVideo: true, Note: "Source"},
	})
	require.True(t, ok)
	assert.Equal(t, "b", best.URL)
}

func TestRegistryFor(t *testing.T) {
	r := newTestRegistry()

	a, err := r.For("https://www.twitch.tv/videos/123")
	require.NoError(t, err)
	assert.Equal(t, ingest.PlatformTwitch, a.Policy.Platform)

	a, err = r.For("https://drive.google.com/file/d/1aBcDeFgHiJk/view")
	require.NoError(t, err)
	assert.Equal(t, ingest.PlatformGoogleDrive, a.Policy.Platform)

	_, err = r.For("https://youtube.com/watch?v=x")
	assert.Error(t, err)
}

func TestPlatformConfigsCoverAllAdapters(t *testing.T) {
	r := newTestRegistry()
	configs := r.PlatformConfigs()
	require.Len(t, configs, 4)

	byName := map[string]int{}
	for _, c := range configs {
		byName[c.Name] = c.MaxConcurrent
	}
	assert.Equal(t, 1, byName[ingest.PlatformTwitch])
	assert.Equal(t, 2, byName[ingest.PlatformKick])
	assert.Equal(t, 3, byName[ingest.PlatformRumble])
	assert.Equal(t, 1, byName[ingest.PlatformGoogleDrive])
}

func TestResolveThroughBoundEngine(t *testing.T) {
	r := newTestRegistry()

	gov := ingest.NewGovernor(ingest.NewMemoryStore(), ingest.GovernorConfig{
		Platforms: r.PlatformConfigs(),
	})
	r.Bind(&ingest.Engine{
		Governor: gov,
		Cache:    ingest.NewResultCache(nil, time.Minute),
	})

	res, err := r.Resolve(context.Background(), "https://rumble.com/v1abc-ep.html")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/v.mp4", res.DownloadURL)

	_, err = r.Resolve(context.Background(), "https://vimeo.com/12345")
	assert.Error(t, err)
}
