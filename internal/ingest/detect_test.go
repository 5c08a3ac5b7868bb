package ingest

import "testing"

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		url      string
		want     string
		detected bool
	}{
		{"https://www.twitch.tv/videos/2234567890", PlatformTwitch, true},
		{"https://twitch.tv/somechannel/clip/FunnyClip", PlatformTwitch, true},
		{"https://clips.twitch.tv/AbcDef", PlatformTwitch, true},
		{"https://kick.com/video/a1b2c3", PlatformKick, true},
		{"https://www.kick.com/streamer?clip=123", PlatformKick, true},
		{"https://rumble.com/v4abcd-episode-12.html", PlatformRumble, true},
		{"https://www.rumble.com/v4abcd.html", PlatformRumble, true},
		{"https://drive.google.com/file/d/1aBcDeFgHiJkLmNo/view", PlatformGoogleDrive, true},
		{"https://docs.google.com/uc?id=1aBcDeFgHiJkLmNo", PlatformGoogleDrive, true},

		{"https://youtube.com/watch?v=abc", "", false},
		{"https://nottwitch.tv/videos/1", "", false},
		{"https://google.com/drive", "", false},
		{"not a url", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := DetectPlatform(tt.url)
		if got != tt.want || ok != tt.detected {
			t.Errorf("DetectPlatform(%q) = (%q, %v), want (%q, %v)", tt.url, got, ok, tt.want, tt.detected)
		}
	}
}

func TestDriveFileID(t *testing.T) {
	tests := []struct {
		url  string
		want string
		ok   bool
	}{
		{"https://drive.google.com/file/d/1aBcDeFgHiJkLmNo/view?usp=sharing", "1aBcDeFgHiJkLmNo", true},
		{"https://drive.google.com/open?id=1aBcDeFgHiJkLmNo", "1aBcDeFgHiJkLmNo", true},
		{"https://drive.google.com/uc?export=download&id=1aBcDeFgHiJkLmNo", "1aBcDeFgHiJkLmNo", true},
		{"https://drive.google.com/drive/folders/", "", false},
		{"https://drive.google.com/file/d/short/view", "", false}, // ids are longer than 10 chars
	}
	for _, tt := range tests {
		got, ok := DriveFileID(tt.url)
		if got != tt.want || ok != tt.ok {
			t.Errorf("DriveFileID(%q) = (%q, %v), want (%q, %v)", tt.url, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNormalizeSourceURL(t *testing.T) {
	tests := []struct {
		name     string
		platform string
		raw      string
		want     string
	}{
		{
			"lowercases scheme and host",
			PlatformTwitch,
			"HTTPS://WWW.Twitch.TV/videos/123",
			"https://www.twitch.tv/videos/123",
		},
		{
			"strips tracking params keeps meaningful ones",
			PlatformKick,
			"https://kick.com/video/abc?utm_source=tw&clip=9&fbclid=xyz",
			"https://kick.com/video/abc?clip=9",
		},
		{
			"drops fragment and trailing slash",
			PlatformRumble,
			"https://rumble.com/v1.html/#comments",
			"https://rumble.com/v1.html",
		},
		{
			"drive collapses to file id",
			PlatformGoogleDrive,
			"https://drive.google.com/file/d/1aBcDeFgHiJkLmNo/view?usp=sharing",
			"gdrive:1aBcDeFgHiJkLmNo",
		},
		{
			"drive shapes converge",
			PlatformGoogleDrive,
			"https://drive.google.com/open?id=1aBcDeFgHiJkLmNo",
			"gdrive:1aBcDeFgHiJkLmNo",
		},
		{
			"unparseable input passes through",
			PlatformTwitch,
			"not a url",
			"not a url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeSourceURL(tt.platform, tt.raw); got != tt.want {
				t.Errorf("NormalizeSourceURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
